package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/merenda/planning-api/internal/enum"
	"github.com/merenda/planning-api/internal/middleware"
	"github.com/shopspring/decimal"
)

// AdjustmentService records role-specific quantity overrides.
// Satisfied by *service.AdjustmentService.
type AdjustmentService interface {
	SetAdjustment(ctx context.Context, itemID int64, role string, value *decimal.Decimal) error
}

// AdjustmentHandler exposes per-item quantity overrides over HTTP.
type AdjustmentHandler struct {
	svc AdjustmentService
}

// NewAdjustmentHandler creates a new AdjustmentHandler.
func NewAdjustmentHandler(svc AdjustmentService) *AdjustmentHandler {
	return &AdjustmentHandler{svc: svc}
}

// RegisterRoutes registers the adjustment endpoint. Expected to be mounted
// under /requisitions.
func (h *AdjustmentHandler) RegisterRoutes(r chi.Router) {
	r.Put("/{id}/items/{itemID}/adjustment", h.Set)
}

type setAdjustmentRequest struct {
	// A null or absent value clears the role's override.
	Value *string `json:"value"`
}

// Set stores or clears the authenticated role's adjustment for one item.
func (h *AdjustmentHandler) Set(w http.ResponseWriter, r *http.Request) {
	itemID, err := urlParamInt64(r, "itemID")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid item ID"})
		return
	}

	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	role := claims.Role
	// Admins adjust on behalf of the nutritionist screen.
	if role == enum.RoleAdmin {
		role = enum.RoleNutritionist
	}

	var body setAdjustmentRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	var value *decimal.Decimal
	if body.Value != nil {
		d, err := decimal.NewFromString(*body.Value)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "quantity must be a non-negative number with at most 3 decimal places"})
			return
		}
		value = &d
	}

	if err := h.svc.SetAdjustment(r.Context(), itemID, role, value); err != nil {
		writeWorkflowError(w, "set adjustment", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
