package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/merenda/planning-api/internal/database"
	"github.com/merenda/planning-api/internal/middleware"
	"github.com/merenda/planning-api/internal/service"
)

// SubstitutionService swaps requisition product lines for generic
// equivalents. Satisfied by *service.SubstitutionService.
type SubstitutionService interface {
	Substitute(ctx context.Context, req service.SubstituteRequest) (database.ProductSubstitution, error)
	Undo(ctx context.Context, requisitionID, originProductID int64) error
	Delete(ctx context.Context, requisitionID, originProductID int64) error
}

// SubstitutionHandler exposes the substitution engine over HTTP.
type SubstitutionHandler struct {
	svc SubstitutionService
}

// NewSubstitutionHandler creates a new SubstitutionHandler.
func NewSubstitutionHandler(svc SubstitutionService) *SubstitutionHandler {
	return &SubstitutionHandler{svc: svc}
}

// RegisterRoutes registers substitution endpoints. Expected to be mounted
// under /requisitions/{id}/substitutions; the admin-only purge route is
// additionally gated in the router.
func (h *SubstitutionHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Substitute)
	r.Post("/{productID}/undo", h.Undo)
}

// RegisterAdminRoutes registers the history purge, which unlike undo does
// not restore the origin product view.
func (h *SubstitutionHandler) RegisterAdminRoutes(r chi.Router) {
	r.Delete("/{productID}", h.Delete)
}

type substituteRequest struct {
	OriginProductID  int64 `json:"origin_product_id"`
	GenericProductID int64 `json:"generic_product_id"`
}

type substitutionResponse struct {
	RequisitionID    int64  `json:"requisition_id"`
	OriginProductID  int64  `json:"origin_product_id"`
	GenericProductID int64  `json:"generic_product_id"`
	Unit             string `json:"unit"`
	Factor           string `json:"factor"`
}

// Substitute swaps one product line of the requisition for a generic
// equivalent, recomputing quantities through the registered factor.
func (h *SubstitutionHandler) Substitute(w http.ResponseWriter, r *http.Request) {
	requisitionID, err := urlParamInt64(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid requisition ID"})
		return
	}

	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	var body substituteRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if body.OriginProductID == 0 || body.GenericProductID == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "origin_product_id and generic_product_id are required"})
		return
	}

	sub, err := h.svc.Substitute(r.Context(), service.SubstituteRequest{
		RequisitionID:    requisitionID,
		OriginProductID:  body.OriginProductID,
		GenericProductID: body.GenericProductID,
		CreatedBy:        claims.UserID,
	})
	if err != nil {
		writeWorkflowError(w, "substitute product", err)
		return
	}

	writeJSON(w, http.StatusCreated, substitutionResponse{
		RequisitionID:    sub.RequisitionID,
		OriginProductID:  sub.OriginProductID,
		GenericProductID: sub.GenericProductID,
		Unit:             sub.Unit,
		Factor:           numericString(sub.Factor),
	})
}

// Undo deletes the active substitution and restores the origin product
// view. Undoing a line with no substitution succeeds silently.
func (h *SubstitutionHandler) Undo(w http.ResponseWriter, r *http.Request) {
	requisitionID, err := urlParamInt64(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid requisition ID"})
		return
	}
	productID, err := urlParamInt64(r, "productID")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid product ID"})
		return
	}

	if err := h.svc.Undo(r.Context(), requisitionID, productID); err != nil {
		writeWorkflowError(w, "undo substitution", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Delete purges the line's substitution history without restoring items.
func (h *SubstitutionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	requisitionID, err := urlParamInt64(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid requisition ID"})
		return
	}
	productID, err := urlParamInt64(r, "productID")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid product ID"})
		return
	}

	if err := h.svc.Delete(r.Context(), requisitionID, productID); err != nil {
		writeWorkflowError(w, "delete substitution history", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
