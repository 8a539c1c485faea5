package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/merenda/planning-api/internal/database"
)

// SubstitutionStore defines the DB methods needed to swap a requisition's
// product line for a generic equivalent. Satisfied by *database.Queries.
type SubstitutionStore interface {
	GetRequisition(ctx context.Context, id int64) (database.Requisition, error)
	CountEquivalencesForOrigin(ctx context.Context, originProductID int64) (int64, error)
	GetEquivalence(ctx context.Context, arg database.GetEquivalenceParams) (database.ProductEquivalence, error)
	GetActiveSubstitution(ctx context.Context, arg database.GetActiveSubstitutionParams) (database.ProductSubstitution, error)
	CreateSubstitution(ctx context.Context, arg database.CreateSubstitutionParams) (database.ProductSubstitution, error)
	DeleteSubstitution(ctx context.Context, arg database.DeleteSubstitutionParams) (int64, error)
	ApplySubstitution(ctx context.Context, arg database.ApplySubstitutionParams) (int64, error)
	ClearSubstitution(ctx context.Context, arg database.ClearSubstitutionParams) (int64, error)
}

// NewSubstitutionStore creates a SubstitutionStore from a DBTX (pool or tx).
type NewSubstitutionStore func(db database.DBTX) SubstitutionStore

// SubstituteRequest identifies one product line of one requisition and the
// generic product that replaces it.
type SubstituteRequest struct {
	RequisitionID    int64
	OriginProductID  int64
	GenericProductID int64
	CreatedBy        uuid.UUID
}

// SubstitutionService applies and reverts product substitutions. The
// substitution record and the affected items are always written in one
// transaction; the generic-side quantity itself is never persisted, it is
// derived from the origin side on read (see GenericQuantity).
type SubstitutionService struct {
	pool     TxBeginner
	newStore NewSubstitutionStore
}

func NewSubstitutionService(pool TxBeginner, newStore NewSubstitutionStore) *SubstitutionService {
	return &SubstitutionService{pool: pool, newStore: newStore}
}

// Substitute swaps the (requisition, origin product) line for the generic
// product. The line must have substitution enabled (an equivalence is on
// file for the origin product) and must not already be swapped.
func (s *SubstitutionService) Substitute(ctx context.Context, req SubstituteRequest) (database.ProductSubstitution, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.ProductSubstitution{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	if _, err := store.GetRequisition(ctx, req.RequisitionID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.ProductSubstitution{}, ErrNotFound
		}
		return database.ProductSubstitution{}, fmt.Errorf("get requisition: %w", err)
	}

	enabled, err := store.CountEquivalencesForOrigin(ctx, req.OriginProductID)
	if err != nil {
		return database.ProductSubstitution{}, fmt.Errorf("count equivalences: %w", err)
	}
	if enabled == 0 {
		return database.ProductSubstitution{}, ErrForbidden
	}

	_, err = store.GetActiveSubstitution(ctx, database.GetActiveSubstitutionParams{
		RequisitionID:   req.RequisitionID,
		OriginProductID: req.OriginProductID,
	})
	if err == nil {
		return database.ProductSubstitution{}, ErrConflict
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return database.ProductSubstitution{}, fmt.Errorf("check active substitution: %w", err)
	}

	conv, err := NewConversionResolver(store).Resolve(ctx, req.OriginProductID, req.GenericProductID)
	if err != nil {
		return database.ProductSubstitution{}, err
	}

	sub, err := store.CreateSubstitution(ctx, database.CreateSubstitutionParams{
		RequisitionID:    req.RequisitionID,
		OriginProductID:  req.OriginProductID,
		GenericProductID: req.GenericProductID,
		Unit:             conv.Unit,
		Factor:           decimalToNumeric(conv.Factor),
		CreatedBy:        req.CreatedBy,
	})
	if err != nil {
		return database.ProductSubstitution{}, fmt.Errorf("create substitution: %w", err)
	}

	touched, err := store.ApplySubstitution(ctx, database.ApplySubstitutionParams{
		SubstituteID:     pgtype.Int8{Int64: req.GenericProductID, Valid: true},
		ConversionFactor: decimalToNumeric(conv.Factor),
		RequisitionID:    req.RequisitionID,
		OriginProductID:  req.OriginProductID,
	})
	if err != nil {
		return database.ProductSubstitution{}, fmt.Errorf("apply substitution: %w", err)
	}
	if touched == 0 {
		// No items carry this product line; rolling back keeps the record
		// and the items consistent.
		return database.ProductSubstitution{}, ErrNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return database.ProductSubstitution{}, fmt.Errorf("commit tx: %w", err)
	}
	return sub, nil
}

// Undo deletes the active substitution and restores the origin product view
// on every affected item. Calling it on a line with no substitution is a
// no-op, not an error.
func (s *SubstitutionService) Undo(ctx context.Context, requisitionID, originProductID int64) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	if _, err := store.DeleteSubstitution(ctx, database.DeleteSubstitutionParams{
		RequisitionID:   requisitionID,
		OriginProductID: originProductID,
	}); err != nil {
		return fmt.Errorf("delete substitution: %w", err)
	}

	if _, err := store.ClearSubstitution(ctx, database.ClearSubstitutionParams{
		RequisitionID:   requisitionID,
		OriginProductID: originProductID,
	}); err != nil {
		return fmt.Errorf("clear items: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Delete removes the substitution history for the line without restoring
// the items (administrative cleanup, unlike Undo).
func (s *SubstitutionService) Delete(ctx context.Context, requisitionID, originProductID int64) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	deleted, err := s.newStore(tx).DeleteSubstitution(ctx, database.DeleteSubstitutionParams{
		RequisitionID:   requisitionID,
		OriginProductID: originProductID,
	})
	if err != nil {
		return fmt.Errorf("delete substitution: %w", err)
	}
	if deleted == 0 {
		return ErrNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
