package service

import (
	"errors"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// Errors surfaced by the planning pipeline. None of these are transient;
// they are returned verbatim to the caller, never retried.
var (
	ErrInvalidTransition = errors.New("requisition is not in the expected status for this transition")
	ErrForbidden         = errors.New("role is not allowed to perform this action in the current status")
	ErrInvalidQuantity   = errors.New("quantity must be a non-negative number with at most 3 decimal places")
	ErrNotFound          = errors.New("requisition, item or substitution no longer exists")
	ErrConflict          = errors.New("product line is already substituted; undo it first")
)

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func decimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(d.StringFixed(3))
	return n
}
