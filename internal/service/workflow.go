package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/merenda/planning-api/internal/database"
	"github.com/merenda/planning-api/internal/enum"
)

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// WorkflowStore defines the DB methods needed to drive the requisition
// state machine. Satisfied by *database.Queries (and its WithTx variant).
type WorkflowStore interface {
	GetRequisition(ctx context.Context, id int64) (database.Requisition, error)
	GetSchool(ctx context.Context, id int64) (database.School, error)
	AdvanceRequisitionStatus(ctx context.Context, arg database.AdvanceRequisitionStatusParams) (int64, error)
	UpdateRequisitionHeader(ctx context.Context, arg database.UpdateRequisitionHeaderParams) (database.Requisition, error)
	DeleteRequisitionSubstitutions(ctx context.Context, requisitionID int64) error
	DeleteRequisitionItems(ctx context.Context, requisitionID int64) error
	DeleteRequisition(ctx context.Context, id int64) (int64, error)
}

// NewWorkflowStore creates a WorkflowStore from a DBTX (pool or tx).
type NewWorkflowStore func(db database.DBTX) WorkflowStore

// ReleaseNotifier receives workflow events for the logistics dashboards.
// Implemented by the ws hub; a nil notifier disables broadcasting.
type ReleaseNotifier interface {
	RequisitionReleased(routeID, requisitionID int64)
	RequisitionDeleted(routeID, requisitionID int64)
}

// HeaderPatch carries the admin correction fields. Nil fields keep the
// stored value; status and item quantities are never part of a correction.
type HeaderPatch struct {
	SchoolID        *int64
	ConsumptionWeek *string
	SupplyWeek      *string
}

// WorkflowService advances requisitions through the approval chain
// (NEC -> NEC NUTRI -> NEC COORD) and owns the admin correction/delete path.
type WorkflowService struct {
	pool     TxBeginner
	newStore NewWorkflowStore
	notifier ReleaseNotifier
}

func NewWorkflowService(pool TxBeginner, newStore NewWorkflowStore, notifier ReleaseNotifier) *WorkflowService {
	return &WorkflowService{pool: pool, newStore: newStore, notifier: notifier}
}

// transition returns the (from, to) statuses the role is allowed to drive.
func transition(role string) (string, string, bool) {
	switch role {
	case enum.RoleNutritionist:
		return enum.StatusGenerated, enum.StatusNutritionist, true
	case enum.RoleCoordination:
		return enum.StatusNutritionist, enum.StatusCoordination, true
	}
	return "", "", false
}

// Advance moves a requisition one step forward in the approval chain.
// The update is guarded on the expected predecessor status, so a requisition
// that moved under the caller's feet yields ErrInvalidTransition, not a skip.
func (s *WorkflowService) Advance(ctx context.Context, requisitionID int64, role string) (database.Requisition, error) {
	from, to, ok := transition(role)
	if !ok {
		return database.Requisition{}, ErrForbidden
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.Requisition{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	if _, err := store.AdvanceRequisitionStatus(ctx, database.AdvanceRequisitionStatusParams{
		FromStatus: from,
		ToStatus:   to,
		ID:         requisitionID,
	}); err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return database.Requisition{}, fmt.Errorf("advance status: %w", err)
		}
		// Guarded update matched nothing: either the requisition is gone or
		// it is not sitting in the expected predecessor status.
		if _, err := store.GetRequisition(ctx, requisitionID); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return database.Requisition{}, ErrNotFound
			}
			return database.Requisition{}, fmt.Errorf("get requisition: %w", err)
		}
		return database.Requisition{}, ErrInvalidTransition
	}

	req, err := store.GetRequisition(ctx, requisitionID)
	if err != nil {
		return database.Requisition{}, fmt.Errorf("reload requisition: %w", err)
	}

	var routeID int64
	if req.Status == enum.StatusCoordination && s.notifier != nil {
		school, err := store.GetSchool(ctx, req.SchoolID)
		if err == nil && school.RouteID.Valid {
			routeID = school.RouteID.Int64
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return database.Requisition{}, fmt.Errorf("commit tx: %w", err)
	}

	// Released to logistics: tell the dashboards on the school's route.
	if req.Status == enum.StatusCoordination && s.notifier != nil && routeID != 0 {
		s.notifier.RequisitionReleased(routeID, req.ID)
	}

	return req, nil
}

// Correct rewrites requisition header fields out of band. Administrator
// only; never touches item quantities or the status.
func (s *WorkflowService) Correct(ctx context.Context, requisitionID int64, role string, patch HeaderPatch) (database.Requisition, error) {
	if role != enum.RoleAdmin {
		return database.Requisition{}, ErrForbidden
	}

	arg := database.UpdateRequisitionHeaderParams{ID: requisitionID}
	if patch.SchoolID != nil {
		arg.SchoolID = pgtype.Int8{Int64: *patch.SchoolID, Valid: true}
	}
	if patch.ConsumptionWeek != nil {
		arg.ConsumptionWeek = pgtype.Text{String: *patch.ConsumptionWeek, Valid: true}
	}
	if patch.SupplyWeek != nil {
		arg.SupplyWeek = pgtype.Text{String: *patch.SupplyWeek, Valid: true}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.Requisition{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	req, err := s.newStore(tx).UpdateRequisitionHeader(ctx, arg)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Requisition{}, ErrNotFound
		}
		return database.Requisition{}, fmt.Errorf("correct requisition: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return database.Requisition{}, fmt.Errorf("commit tx: %w", err)
	}
	return req, nil
}

// Delete removes a requisition together with all its items and substitution
// records in one transaction. Administrator only.
func (s *WorkflowService) Delete(ctx context.Context, requisitionID int64, role string) error {
	if role != enum.RoleAdmin {
		return ErrForbidden
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	req, err := store.GetRequisition(ctx, requisitionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("get requisition: %w", err)
	}

	var routeID int64
	if s.notifier != nil {
		if school, err := store.GetSchool(ctx, req.SchoolID); err == nil && school.RouteID.Valid {
			routeID = school.RouteID.Int64
		}
	}

	if err := store.DeleteRequisitionSubstitutions(ctx, requisitionID); err != nil {
		return fmt.Errorf("delete substitutions: %w", err)
	}
	if err := store.DeleteRequisitionItems(ctx, requisitionID); err != nil {
		return fmt.Errorf("delete items: %w", err)
	}
	if _, err := store.DeleteRequisition(ctx, requisitionID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("delete requisition: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	if s.notifier != nil && routeID != 0 {
		s.notifier.RequisitionDeleted(routeID, requisitionID)
	}
	return nil
}
