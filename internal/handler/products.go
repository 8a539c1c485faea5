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
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/merenda/planning-api/internal/database"
	"github.com/shopspring/decimal"
)

// ProductStore defines the database methods needed by product handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type ProductStore interface {
	ListProducts(ctx context.Context) ([]database.Product, error)
	GetProduct(ctx context.Context, id int64) (database.Product, error)
	CreateProduct(ctx context.Context, arg database.CreateProductParams) (database.Product, error)
	UpdateProduct(ctx context.Context, arg database.UpdateProductParams) (database.Product, error)
	SoftDeleteProduct(ctx context.Context, id int64) (int64, error)
	ListEquivalences(ctx context.Context, originProductID int64) ([]database.ListEquivalencesRow, error)
	CreateEquivalence(ctx context.Context, arg database.CreateEquivalenceParams) (database.ProductEquivalence, error)
	DeleteEquivalence(ctx context.Context, id int64) (int64, error)
}

// ProductHandler handles the product catalog and its equivalence registry.
type ProductHandler struct {
	store ProductStore
}

// NewProductHandler creates a new ProductHandler.
func NewProductHandler(store ProductStore) *ProductHandler {
	return &ProductHandler{store: store}
}

// RegisterRoutes registers the read-only catalog endpoints available to
// every authenticated role.
func (h *ProductHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Get("/{id}/equivalences", h.ListEquivalences)
}

// RegisterAdminRoutes registers the catalog mutations.
func (h *ProductHandler) RegisterAdminRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
	r.Post("/{id}/equivalences", h.CreateEquivalence)
	r.Delete("/{id}/equivalences/{eqID}", h.DeleteEquivalence)
}

// --- Request / Response types ---

type productRequest struct {
	Code      string `json:"code"`
	Name      string `json:"name"`
	Unit      string `json:"unit"`
	IsGeneric bool   `json:"is_generic"`
}

type productResponse struct {
	ID        int64     `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Unit      string    `json:"unit"`
	IsGeneric bool      `json:"is_generic"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toProductResponse(p database.Product) productResponse {
	return productResponse{
		ID:        p.ID,
		Code:      p.Code,
		Name:      p.Name,
		Unit:      p.Unit,
		IsGeneric: p.IsGeneric,
		IsActive:  p.IsActive,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

type createEquivalenceRequest struct {
	GenericProductID int64  `json:"generic_product_id"`
	Unit             string `json:"unit"`
	Factor           string `json:"factor"`
}

type equivalenceResponse struct {
	ID                 int64  `json:"id"`
	OriginProductID    int64  `json:"origin_product_id"`
	GenericProductID   int64  `json:"generic_product_id"`
	GenericProductName string `json:"generic_product_name,omitempty"`
	Unit               string `json:"unit"`
	Factor             string `json:"factor"`
}

// --- Helpers ---

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

var errNonPositiveFactor = errors.New("non-positive factor")

func parseFactor(s string) (pgtype.Numeric, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return pgtype.Numeric{}, err
	}
	if !d.IsPositive() {
		return pgtype.Numeric{}, errNonPositiveFactor
	}
	var n pgtype.Numeric
	if err := n.Scan(d.String()); err != nil {
		return pgtype.Numeric{}, err
	}
	return n, nil
}

// --- Handlers ---

// List returns all active catalog products.
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	products, err := h.store.ListProducts(r.Context())
	if err != nil {
		log.Printf("ERROR: list products: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]productResponse, len(products))
	for i, p := range products {
		resp[i] = toProductResponse(p)
	}

	writeJSON(w, http.StatusOK, resp)
}

// Get returns a single product by ID.
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := urlParamInt64(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid product ID"})
		return
	}

	product, err := h.store.GetProduct(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "product not found"})
			return
		}
		log.Printf("ERROR: get product: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toProductResponse(product))
}

// Create adds a new product to the catalog.
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.Code == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "code is required"})
		return
	}
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}
	if req.Unit == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unit is required"})
		return
	}

	product, err := h.store.CreateProduct(r.Context(), database.CreateProductParams{
		Code:      req.Code,
		Name:      req.Name,
		Unit:      req.Unit,
		IsGeneric: req.IsGeneric,
	})
	if err != nil {
		if isUniqueViolation(err) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "product code already exists"})
			return
		}
		log.Printf("ERROR: create product: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusCreated, toProductResponse(product))
}

// Update modifies an existing product.
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := urlParamInt64(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid product ID"})
		return
	}

	var req productRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.Code == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "code is required"})
		return
	}
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}
	if req.Unit == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unit is required"})
		return
	}

	product, err := h.store.UpdateProduct(r.Context(), database.UpdateProductParams{
		Code:      req.Code,
		Name:      req.Name,
		Unit:      req.Unit,
		IsGeneric: req.IsGeneric,
		ID:        id,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "product not found"})
			return
		}
		if isUniqueViolation(err) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "product code already exists"})
			return
		}
		log.Printf("ERROR: update product: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toProductResponse(product))
}

// Delete soft-deletes a product by setting is_active=false.
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := urlParamInt64(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid product ID"})
		return
	}

	_, err = h.store.SoftDeleteProduct(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "product not found"})
			return
		}
		log.Printf("ERROR: delete product: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListEquivalences returns the generic substitutes registered for a product.
func (h *ProductHandler) ListEquivalences(w http.ResponseWriter, r *http.Request) {
	id, err := urlParamInt64(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid product ID"})
		return
	}

	eqs, err := h.store.ListEquivalences(r.Context(), id)
	if err != nil {
		log.Printf("ERROR: list equivalences: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]equivalenceResponse, len(eqs))
	for i, e := range eqs {
		resp[i] = equivalenceResponse{
			ID:                 e.ID,
			OriginProductID:    e.OriginProductID,
			GenericProductID:   e.GenericProductID,
			GenericProductName: e.GenericProductName,
			Unit:               e.Unit,
			Factor:             numericString(e.Factor),
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// CreateEquivalence registers a generic substitute with its conversion factor.
func (h *ProductHandler) CreateEquivalence(w http.ResponseWriter, r *http.Request) {
	id, err := urlParamInt64(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid product ID"})
		return
	}

	var req createEquivalenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.GenericProductID == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "generic_product_id is required"})
		return
	}
	if req.Unit == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unit is required"})
		return
	}
	if req.Factor == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "factor is required"})
		return
	}

	factor, err := parseFactor(req.Factor)
	if err != nil {
		if errors.Is(err, errNonPositiveFactor) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "factor must be > 0"})
		} else {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid factor"})
		}
		return
	}

	eq, err := h.store.CreateEquivalence(r.Context(), database.CreateEquivalenceParams{
		OriginProductID:  id,
		GenericProductID: req.GenericProductID,
		Unit:             req.Unit,
		Factor:           factor,
	})
	if err != nil {
		if isForeignKeyViolation(err) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid generic_product_id"})
			return
		}
		if isUniqueViolation(err) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "equivalence already registered"})
			return
		}
		log.Printf("ERROR: create equivalence: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusCreated, equivalenceResponse{
		ID:               eq.ID,
		OriginProductID:  eq.OriginProductID,
		GenericProductID: eq.GenericProductID,
		Unit:             eq.Unit,
		Factor:           numericString(eq.Factor),
	})
}

// DeleteEquivalence removes a registered equivalence. Existing substitutions
// keep the factor they were created with.
func (h *ProductHandler) DeleteEquivalence(w http.ResponseWriter, r *http.Request) {
	eqID, err := urlParamInt64(r, "eqID")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid equivalence ID"})
		return
	}

	_, err = h.store.DeleteEquivalence(r.Context(), eqID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "equivalence not found"})
			return
		}
		log.Printf("ERROR: delete equivalence: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
