package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/merenda/planning-api/internal/database"
)

// SchoolStore defines the database methods needed by school handlers.
// Satisfied by *database.Queries.
type SchoolStore interface {
	ListSchools(ctx context.Context) ([]database.School, error)
	GetSchool(ctx context.Context, id int64) (database.School, error)
	CreateSchool(ctx context.Context, arg database.CreateSchoolParams) (database.School, error)
	UpdateSchool(ctx context.Context, arg database.UpdateSchoolParams) (database.School, error)
	SoftDeleteSchool(ctx context.Context, id int64) (int64, error)
}

// SchoolHandler handles school registry endpoints.
type SchoolHandler struct {
	store SchoolStore
}

// NewSchoolHandler creates a new SchoolHandler.
func NewSchoolHandler(store SchoolStore) *SchoolHandler {
	return &SchoolHandler{store: store}
}

// RegisterRoutes registers the read-only school endpoints available to
// every authenticated role.
func (h *SchoolHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
}

// RegisterAdminRoutes registers the school registry mutations.
func (h *SchoolHandler) RegisterAdminRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
}

type schoolRequest struct {
	Name      string  `json:"name"`
	RouteID   *int64  `json:"route_id"`
	RouteName *string `json:"route_name"`
}

type schoolResponse struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	RouteID   *int64    `json:"route_id"`
	RouteName *string   `json:"route_name"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toSchoolResponse(s database.School) schoolResponse {
	resp := schoolResponse{
		ID:        s.ID,
		Name:      s.Name,
		IsActive:  s.IsActive,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
	if s.RouteID.Valid {
		rid := s.RouteID.Int64
		resp.RouteID = &rid
	}
	if s.RouteName.Valid {
		rn := s.RouteName.String
		resp.RouteName = &rn
	}
	return resp
}

func (r schoolRequest) routeParams() (pgtype.Int8, pgtype.Text) {
	routeID := pgtype.Int8{}
	if r.RouteID != nil {
		routeID = pgtype.Int8{Int64: *r.RouteID, Valid: true}
	}
	routeName := pgtype.Text{}
	if r.RouteName != nil && *r.RouteName != "" {
		routeName = pgtype.Text{String: *r.RouteName, Valid: true}
	}
	return routeID, routeName
}

// List returns all active schools.
func (h *SchoolHandler) List(w http.ResponseWriter, r *http.Request) {
	schools, err := h.store.ListSchools(r.Context())
	if err != nil {
		log.Printf("ERROR: list schools: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]schoolResponse, len(schools))
	for i, s := range schools {
		resp[i] = toSchoolResponse(s)
	}

	writeJSON(w, http.StatusOK, resp)
}

// Get returns a single school by ID.
func (h *SchoolHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := urlParamInt64(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid school ID"})
		return
	}

	school, err := h.store.GetSchool(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "school not found"})
			return
		}
		log.Printf("ERROR: get school: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toSchoolResponse(school))
}

// Create adds a new school.
func (h *SchoolHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req schoolRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}

	routeID, routeName := req.routeParams()
	school, err := h.store.CreateSchool(r.Context(), database.CreateSchoolParams{
		Name:      req.Name,
		RouteID:   routeID,
		RouteName: routeName,
	})
	if err != nil {
		log.Printf("ERROR: create school: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusCreated, toSchoolResponse(school))
}

// Update modifies an existing school.
func (h *SchoolHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := urlParamInt64(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid school ID"})
		return
	}

	var req schoolRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}

	routeID, routeName := req.routeParams()
	school, err := h.store.UpdateSchool(r.Context(), database.UpdateSchoolParams{
		Name:      req.Name,
		RouteID:   routeID,
		RouteName: routeName,
		ID:        id,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "school not found"})
			return
		}
		log.Printf("ERROR: update school: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toSchoolResponse(school))
}

// Delete soft-deletes a school by setting is_active=false.
func (h *SchoolHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := urlParamInt64(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid school ID"})
		return
	}

	_, err = h.store.SoftDeleteSchool(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "school not found"})
			return
		}
		log.Printf("ERROR: delete school: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
