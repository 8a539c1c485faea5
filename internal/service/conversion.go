package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/merenda/planning-api/internal/database"
	"github.com/shopspring/decimal"
)

// Conversion is the generic side of a registered product equivalence.
type Conversion struct {
	Unit   string
	Factor decimal.Decimal
}

// ConversionStore defines the DB lookup behind the resolver.
// Satisfied by *database.Queries.
type ConversionStore interface {
	GetEquivalence(ctx context.Context, arg database.GetEquivalenceParams) (database.ProductEquivalence, error)
}

// ConversionResolver looks up the unit and conversion factor a generic
// substitute uses for a given origin product.
type ConversionResolver struct {
	store ConversionStore
}

func NewConversionResolver(store ConversionStore) *ConversionResolver {
	return &ConversionResolver{store: store}
}

// Resolve returns the generic product's unit and conversion factor for the
// requested substitution. A catalog entry without a factor converts 1:1;
// a missing entry is ErrNotFound.
func (r *ConversionResolver) Resolve(ctx context.Context, originProductID, genericProductID int64) (Conversion, error) {
	eq, err := r.store.GetEquivalence(ctx, database.GetEquivalenceParams{
		OriginProductID:  originProductID,
		GenericProductID: genericProductID,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Conversion{}, ErrNotFound
		}
		return Conversion{}, fmt.Errorf("get equivalence: %w", err)
	}

	factor := decimal.NewFromInt(1)
	if eq.Factor.Valid {
		if f := numericToDecimal(eq.Factor); !f.IsZero() {
			factor = f
		}
	}
	return Conversion{Unit: eq.Unit, Factor: factor}, nil
}
