package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/merenda/planning-api/internal/database"
	"github.com/merenda/planning-api/internal/enum"
	"github.com/shopspring/decimal"
)

// EffectiveQuantity resolves the quantity that wins for an item. Exactly one
// source is active at a time: the coordination adjustment once the
// requisition reached NEC COORD, else the nutritionist adjustment when one
// was recorded, else the generated quantity.
func EffectiveQuantity(item database.NeedItemRow) decimal.Decimal {
	if item.Status == enum.StatusCoordination && item.CoordAdjustment.Valid {
		return numericToDecimal(item.CoordAdjustment)
	}
	if item.NutriAdjustment.Valid {
		return numericToDecimal(item.NutriAdjustment)
	}
	return numericToDecimal(item.Quantity)
}

// GenericQuantity returns the generic-side quantity for a substituted item,
// recomputed from the origin side on every call so a later adjustment can
// never leave the two out of sync. Missing conversion factors count as 1.
// The second return is false when the item is not substituted.
func GenericQuantity(item database.NeedItemRow) (decimal.Decimal, bool) {
	if !item.SubstituteID.Valid {
		return decimal.Zero, false
	}
	factor := decimal.NewFromInt(1)
	if item.ConversionFactor.Valid {
		factor = numericToDecimal(item.ConversionFactor)
	}
	return EffectiveQuantity(item).Mul(factor).Round(3), true
}

// CanAdjust is the edit-permission rule the state machine exposes to the
// adjustment path. Nutritionists are locked out after hand-off to
// coordination; coordination has nothing to edit before the nutritionist
// hand-off.
func CanAdjust(role, status string) bool {
	switch role {
	case enum.RoleNutritionist:
		return status != enum.StatusCoordination
	case enum.RoleCoordination:
		return status != enum.StatusGenerated
	}
	return false
}

// AdjustmentStore defines the DB methods needed to record adjustments.
// Satisfied by *database.Queries.
type AdjustmentStore interface {
	GetNeedItem(ctx context.Context, itemID int64) (database.NeedItemRow, error)
	SetNutriAdjustment(ctx context.Context, arg database.SetNutriAdjustmentParams) (int64, error)
	SetCoordAdjustment(ctx context.Context, arg database.SetCoordAdjustmentParams) (int64, error)
}

// AdjustmentService records per-item, per-role quantity overrides.
type AdjustmentService struct {
	store AdjustmentStore
}

func NewAdjustmentService(store AdjustmentStore) *AdjustmentService {
	return &AdjustmentService{store: store}
}

// SetAdjustment stores a role-specific override for one item. A nil value
// clears the override, reverting the item to the next quantity in the
// precedence chain. The requisition status gates which role may write.
func (s *AdjustmentService) SetAdjustment(ctx context.Context, itemID int64, role string, value *decimal.Decimal) error {
	item, err := s.store.GetNeedItem(ctx, itemID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("get item: %w", err)
	}

	if !CanAdjust(role, item.Status) {
		return ErrForbidden
	}

	stored := pgtype.Numeric{}
	if value != nil {
		if value.IsNegative() || !value.Round(3).Equal(*value) {
			return ErrInvalidQuantity
		}
		stored = decimalToNumeric(*value)
	}

	switch role {
	case enum.RoleNutritionist:
		_, err = s.store.SetNutriAdjustment(ctx, database.SetNutriAdjustmentParams{Value: stored, ItemID: itemID})
	case enum.RoleCoordination:
		_, err = s.store.SetCoordAdjustment(ctx, database.SetCoordAdjustmentParams{Value: stored, ItemID: itemID})
	default:
		return ErrForbidden
	}
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("store adjustment: %w", err)
	}
	return nil
}
