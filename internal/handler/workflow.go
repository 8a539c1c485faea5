package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/merenda/planning-api/internal/database"
	"github.com/merenda/planning-api/internal/middleware"
	"github.com/merenda/planning-api/internal/service"
)

// WorkflowService is the part of the state machine the handlers drive.
// Satisfied by *service.WorkflowService.
type WorkflowService interface {
	Advance(ctx context.Context, requisitionID int64, role string) (database.Requisition, error)
	Correct(ctx context.Context, requisitionID int64, role string, patch service.HeaderPatch) (database.Requisition, error)
	Delete(ctx context.Context, requisitionID int64, role string) error
}

// WorkflowHandler exposes the approval state machine over HTTP.
type WorkflowHandler struct {
	svc WorkflowService
}

// NewWorkflowHandler creates a new WorkflowHandler.
func NewWorkflowHandler(svc WorkflowService) *WorkflowHandler {
	return &WorkflowHandler{svc: svc}
}

// RegisterRoutes registers the workflow endpoints. Expected to be mounted
// under /requisitions.
func (h *WorkflowHandler) RegisterRoutes(r chi.Router) {
	r.Post("/{id}/advance", h.Advance)
	r.Patch("/{id}", h.Correct)
	r.Delete("/{id}", h.Delete)
}

type correctRequest struct {
	SchoolID        *int64  `json:"school_id"`
	ConsumptionWeek *string `json:"consumption_week"`
	SupplyWeek      *string `json:"supply_week"`
}

type requisitionResponse struct {
	ID              int64  `json:"id"`
	SchoolID        int64  `json:"school_id"`
	Group           string `json:"group"`
	ConsumptionWeek string `json:"consumption_week"`
	SupplyWeek      string `json:"supply_week"`
	Status          string `json:"status"`
}

func toRequisitionResponse(r database.Requisition) requisitionResponse {
	return requisitionResponse{
		ID:              r.ID,
		SchoolID:        r.SchoolID,
		Group:           r.GroupName,
		ConsumptionWeek: r.ConsumptionWeek,
		SupplyWeek:      r.SupplyWeek,
		Status:          r.Status,
	}
}

// writeWorkflowError maps the pipeline's sentinel errors onto status codes
// with messages a user can act on.
func writeWorkflowError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "requisition not found"})
	case errors.Is(err, service.ErrForbidden):
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "role may not perform this action in the requisition's current status"})
	case errors.Is(err, service.ErrInvalidTransition):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "requisition is not in the expected status for this transition"})
	case errors.Is(err, service.ErrInvalidQuantity):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "quantity must be a non-negative number with at most 3 decimal places"})
	case errors.Is(err, service.ErrConflict):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "product line is already substituted; undo it first"})
	default:
		log.Printf("ERROR: %s: %v", op, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}

// Advance moves a requisition one step forward in the approval chain, on
// behalf of the authenticated role.
func (h *WorkflowHandler) Advance(w http.ResponseWriter, r *http.Request) {
	id, err := urlParamInt64(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid requisition ID"})
		return
	}

	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	req, err := h.svc.Advance(r.Context(), id, claims.Role)
	if err != nil {
		writeWorkflowError(w, "advance requisition", err)
		return
	}

	writeJSON(w, http.StatusOK, toRequisitionResponse(req))
}

// Correct rewrites requisition header fields (admin correction path).
func (h *WorkflowHandler) Correct(w http.ResponseWriter, r *http.Request) {
	id, err := urlParamInt64(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid requisition ID"})
		return
	}

	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	var body correctRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if body.SchoolID == nil && body.ConsumptionWeek == nil && body.SupplyWeek == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "nothing to correct"})
		return
	}

	req, err := h.svc.Correct(r.Context(), id, claims.Role, service.HeaderPatch{
		SchoolID:        body.SchoolID,
		ConsumptionWeek: body.ConsumptionWeek,
		SupplyWeek:      body.SupplyWeek,
	})
	if err != nil {
		writeWorkflowError(w, "correct requisition", err)
		return
	}

	writeJSON(w, http.StatusOK, toRequisitionResponse(req))
}

// Delete removes a requisition and everything hanging off it (admin path).
func (h *WorkflowHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := urlParamInt64(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid requisition ID"})
		return
	}

	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	if err := h.svc.Delete(r.Context(), id, claims.Role); err != nil {
		writeWorkflowError(w, "delete requisition", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
