package handler

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/merenda/planning-api/internal/database"
	"github.com/merenda/planning-api/internal/enum"
	"github.com/merenda/planning-api/internal/export"
	"github.com/merenda/planning-api/internal/quantity"
	"github.com/merenda/planning-api/internal/service"
)

// NeedsStore defines the database methods needed by the needs listing.
// Satisfied by *database.Queries; narrow interface for testability.
type NeedsStore interface {
	ListNeedItems(ctx context.Context, arg database.ListNeedItemsParams) ([]database.NeedItemRow, error)
	ListRequisitionIDs(ctx context.Context, arg database.ListRequisitionIDsParams) ([]int64, error)
	CountRequisitions(ctx context.Context, arg database.CountRequisitionsParams) (int64, error)
	ListNeedItemsByRequisitionIDs(ctx context.Context, ids []int64) ([]database.NeedItemRow, error)
}

// NeedsHandler serves the three derived views over the requisition items
// and their CSV export.
type NeedsHandler struct {
	store NeedsStore
}

// NewNeedsHandler creates a new NeedsHandler.
func NewNeedsHandler(store NeedsStore) *NeedsHandler {
	return &NeedsHandler{store: store}
}

// RegisterRoutes registers the needs listing endpoints.
func (h *NeedsHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/export", h.Export)
}

// --- Response types ---

type substituteResponse struct {
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
	Unit      string `json:"unit"`
	Quantity  string `json:"quantity"`
	Display   string `json:"display"`
}

type needItemResponse struct {
	ItemID               int64               `json:"item_id"`
	RequisitionID        *int64              `json:"requisition_id"`
	School               string              `json:"school"`
	Route                *string             `json:"route"`
	Group                string              `json:"group"`
	ConsumptionWeek      string              `json:"consumption_week"`
	SupplyWeek           string              `json:"supply_week"`
	FillDate             *string             `json:"fill_date"`
	Status               string              `json:"status"`
	ProductCode          string              `json:"product_code"`
	ProductName          string              `json:"product_name"`
	Unit                 string              `json:"unit"`
	GeneratedQuantity    string              `json:"generated_quantity"`
	NutriAdjustment      *string             `json:"nutritionist_adjustment"`
	CoordAdjustment      *string             `json:"coordination_adjustment"`
	EffectiveQuantity    string              `json:"effective_quantity"`
	EffectiveDisplay     string              `json:"effective_display"`
	Substitute           *substituteResponse `json:"substitute"`
	SubstitutionsEnabled bool                `json:"substitutions_enabled"`
}

type requisitionGroupResponse struct {
	RequisitionID   *int64             `json:"requisition_id"`
	School          string             `json:"school"`
	Group           string             `json:"group"`
	ConsumptionWeek string             `json:"consumption_week"`
	SupplyWeek      string             `json:"supply_week"`
	Status          string             `json:"status"`
	ProductCount    int                `json:"product_count"`
	Total           string             `json:"total"`
	TotalDisplay    string             `json:"total_display"`
	Items           []needItemResponse `json:"items"`
}

type consolidatedRowResponse struct {
	ProductID       int64  `json:"product_id"`
	ProductCode     string `json:"product_code"`
	ProductName     string `json:"product_name"`
	Unit            string `json:"unit"`
	Group           string `json:"group"`
	Status          string `json:"status"`
	QuantityTotal   string `json:"quantity_total"`
	QuantityDisplay string `json:"quantity_display"`
	TotalSchools    int    `json:"total_schools"`
	TotalNeeds      int    `json:"total_needs"`
}

type needsListResponse struct {
	View          string `json:"view"`
	Page          int    `json:"page"`
	Limit         int    `json:"limit"`
	TotalRows     int64  `json:"total_rows"`
	TotalQuantity string `json:"total_quantity"`
	TotalDisplay  string `json:"total_display"`
	Data          any    `json:"data"`
}

func toNeedItemResponse(item database.NeedItemRow) needItemResponse {
	effective := service.EffectiveQuantity(item)
	resp := needItemResponse{
		ItemID:               item.ItemID,
		School:               item.SchoolName,
		Group:                item.GroupName,
		ConsumptionWeek:      item.ConsumptionWeek,
		SupplyWeek:           item.SupplyWeek,
		Status:               item.Status,
		ProductCode:          item.OriginProductCode,
		ProductName:          item.OriginProductName,
		Unit:                 item.Unit,
		GeneratedQuantity:    numericString(item.Quantity),
		EffectiveQuantity:    effective.StringFixed(3),
		EffectiveDisplay:     quantity.Format(effective, item.Unit),
		SubstitutionsEnabled: item.SubstitutionsEnabled,
	}
	if item.RequisitionID.Valid {
		id := item.RequisitionID.Int64
		resp.RequisitionID = &id
	}
	if item.RouteName.Valid {
		resp.Route = &item.RouteName.String
	}
	if item.FillDate.Valid {
		fd := item.FillDate.Time.Format("2006-01-02")
		resp.FillDate = &fd
	}
	if item.NutriAdjustment.Valid {
		v := numericString(item.NutriAdjustment)
		resp.NutriAdjustment = &v
	}
	if item.CoordAdjustment.Valid {
		v := numericString(item.CoordAdjustment)
		resp.CoordAdjustment = &v
	}
	if q, ok := service.GenericQuantity(item); ok {
		resp.Substitute = &substituteResponse{
			ProductID: item.SubstituteID.Int64,
			Name:      item.SubstituteName.String,
			Unit:      item.SubstituteUnit.String,
			Quantity:  q.StringFixed(3),
			Display:   quantity.Format(q, item.SubstituteUnit.String),
		}
	}
	return resp
}

// --- Filter parsing ---

type needsFilter struct {
	items database.ListNeedItemsParams
	reqs  database.CountRequisitionsParams
}

func parseNeedsFilter(r *http.Request) (needsFilter, error) {
	var f needsFilter
	q := r.URL.Query()

	if v := q.Get("school_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return f, fmt.Errorf("invalid school_id")
		}
		f.items.SchoolID = pgtype.Int8{Int64: id, Valid: true}
	}
	if v := q.Get("group"); v != "" {
		f.items.GroupName = pgtype.Text{String: v, Valid: true}
	}
	if v := q.Get("consumption_week"); v != "" {
		f.items.ConsumptionWeek = pgtype.Text{String: v, Valid: true}
	}
	if v := q.Get("supply_week"); v != "" {
		f.items.SupplyWeek = pgtype.Text{String: v, Valid: true}
	}
	if v := q.Get("nutritionist_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return f, fmt.Errorf("invalid nutritionist_id")
		}
		f.items.NutritionistID = pgtype.UUID{Bytes: id, Valid: true}
	}
	if v := q.Get("status"); v != "" {
		switch v {
		case enum.StatusGenerated, enum.StatusNutritionist, enum.StatusCoordination:
			f.items.Status = pgtype.Text{String: v, Valid: true}
		default:
			return f, fmt.Errorf("invalid status")
		}
	}

	f.reqs = database.CountRequisitionsParams{
		SchoolID:        f.items.SchoolID,
		GroupName:       f.items.GroupName,
		ConsumptionWeek: f.items.ConsumptionWeek,
		SupplyWeek:      f.items.SupplyWeek,
		NutritionistID:  f.items.NutritionistID,
		Status:          f.items.Status,
	}
	return f, nil
}

func parsePage(r *http.Request) (page, limit int) {
	q := r.URL.Query()
	page, _ = strconv.Atoi(q.Get("page"))
	if page < 1 {
		page = 1
	}
	limit, _ = strconv.Atoi(q.Get("limit"))
	if limit < 0 {
		limit = 0
	}
	return page, limit
}

// --- Handlers ---

// List serves the filtered item collection in one of the three view modes.
// Switching the view never changes the underlying set, only the grouping
// and the pagination math.
func (h *NeedsHandler) List(w http.ResponseWriter, r *http.Request) {
	filter, err := parseNeedsFilter(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	page, limit := parsePage(r)

	view := r.URL.Query().Get("view")
	if view == "" {
		view = enum.ViewByRequisition
	}

	switch view {
	case enum.ViewByRequisition:
		h.listByRequisition(w, r, filter, page, limit)
	case enum.ViewIndividual, enum.ViewConsolidated:
		h.listDerived(w, r, filter, view, page, limit)
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid view"})
	}
}

// listByRequisition paginates server-side: the grouping key is the fetch
// key, so page/limit go straight to the requisition query.
func (h *NeedsHandler) listByRequisition(w http.ResponseWriter, r *http.Request, filter needsFilter, page, limit int) {
	total, err := h.store.CountRequisitions(r.Context(), filter.reqs)
	if err != nil {
		log.Printf("ERROR: count requisitions: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	ids, err := h.store.ListRequisitionIDs(r.Context(), database.ListRequisitionIDsParams{
		SchoolID:        filter.reqs.SchoolID,
		GroupName:       filter.reqs.GroupName,
		ConsumptionWeek: filter.reqs.ConsumptionWeek,
		SupplyWeek:      filter.reqs.SupplyWeek,
		NutritionistID:  filter.reqs.NutritionistID,
		Status:          filter.reqs.Status,
		Limit:           int32(limit),
		Offset:          int32((page - 1) * limit),
	})
	if err != nil {
		log.Printf("ERROR: list requisition ids: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	var items []database.NeedItemRow
	if len(ids) > 0 {
		items, err = h.store.ListNeedItemsByRequisitionIDs(r.Context(), ids)
		if err != nil {
			log.Printf("ERROR: list need items: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
			return
		}
	}

	groups := service.ByRequisition(items)
	data := make([]requisitionGroupResponse, len(groups))
	for i, g := range groups {
		itemResps := make([]needItemResponse, len(g.Items))
		for j, item := range g.Items {
			itemResps[j] = toNeedItemResponse(item)
		}
		data[i] = requisitionGroupResponse{
			RequisitionID:   g.RequisitionID,
			School:          g.SchoolName,
			Group:           g.GroupName,
			ConsumptionWeek: g.ConsumptionWeek,
			SupplyWeek:      g.SupplyWeek,
			Status:          g.Status,
			ProductCount:    g.ProductCount,
			Total:           g.Total.StringFixed(3),
			TotalDisplay:    quantity.Format(g.Total, ""),
			Items:           itemResps,
		}
	}

	pageTotal := service.Total(items)
	writeJSON(w, http.StatusOK, needsListResponse{
		View:          enum.ViewByRequisition,
		Page:          page,
		Limit:         limit,
		TotalRows:     total,
		TotalQuantity: pageTotal.StringFixed(3),
		TotalDisplay:  quantity.Format(pageTotal, ""),
		Data:          data,
	})
}

// listDerived fetches the full snapshot and paginates client-side: the
// grouping key of these views differs from the fetch key, so slicing can
// only happen after grouping.
func (h *NeedsHandler) listDerived(w http.ResponseWriter, r *http.Request, filter needsFilter, view string, page, limit int) {
	items, err := h.store.ListNeedItems(r.Context(), filter.items)
	if err != nil {
		log.Printf("ERROR: list need items: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	total := service.Total(items)
	resp := needsListResponse{
		View:          view,
		Page:          page,
		Limit:         limit,
		TotalQuantity: total.StringFixed(3),
		TotalDisplay:  quantity.Format(total, ""),
	}

	switch view {
	case enum.ViewIndividual:
		rows := service.Individual(items)
		resp.TotalRows = int64(len(rows))
		paged := service.Paginate(rows, page, limit)
		data := make([]needItemResponse, len(paged))
		for i, item := range paged {
			data[i] = toNeedItemResponse(item)
		}
		resp.Data = data

	case enum.ViewConsolidated:
		rows := service.Consolidated(items)
		resp.TotalRows = int64(len(rows))
		paged := service.Paginate(rows, page, limit)
		data := make([]consolidatedRowResponse, len(paged))
		for i, row := range paged {
			data[i] = consolidatedRowResponse{
				ProductID:       row.OriginProductID,
				ProductCode:     row.OriginProductCode,
				ProductName:     row.OriginProductName,
				Unit:            row.Unit,
				Group:           row.GroupName,
				Status:          row.Status,
				QuantityTotal:   row.QuantityTotal.StringFixed(3),
				QuantityDisplay: quantity.Format(row.QuantityTotal, row.Unit),
				TotalSchools:    row.TotalSchools,
				TotalNeeds:      row.TotalNeeds,
			}
		}
		resp.Data = data
	}

	writeJSON(w, http.StatusOK, resp)
}

// Export streams the chosen view as CSV. The export always runs over the
// full unpaginated snapshot so the report totals match the screen totals.
func (h *NeedsHandler) Export(w http.ResponseWriter, r *http.Request) {
	filter, err := parseNeedsFilter(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	view := r.URL.Query().Get("view")
	if view == "" {
		view = enum.ViewByRequisition
	}

	items, err := h.store.ListNeedItems(r.Context(), filter.items)
	if err != nil {
		log.Printf("ERROR: list need items for export: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	total := service.Total(items)
	filename := fmt.Sprintf("necessidades-%s-%s.csv", view, time.Now().Format("20060102"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)

	switch view {
	case enum.ViewByRequisition:
		err = export.WriteByRequisition(w, service.ByRequisition(items), total)
	case enum.ViewIndividual:
		err = export.WriteIndividual(w, service.Individual(items), total)
	case enum.ViewConsolidated:
		err = export.WriteConsolidated(w, service.Consolidated(items), total)
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid view"})
		return
	}
	if err != nil {
		log.Printf("ERROR: export needs: %v", err)
	}
}
