package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

// NeedItemRow is one product line joined with its requisition header and
// product reference data. It is the flat collection every view is derived
// from; the row never carries a precomputed generic-side quantity, that is
// always recomputed from the origin side at read time.
type NeedItemRow struct {
	ItemID               int64
	RequisitionID        pgtype.Int8
	SchoolID             int64
	SchoolName           string
	RouteID              pgtype.Int8
	RouteName            pgtype.Text
	GroupName            string
	ConsumptionWeek      string
	SupplyWeek           string
	FillDate             pgtype.Date
	Status               string
	OriginProductID      int64
	OriginProductCode    string
	OriginProductName    string
	Unit                 string
	Quantity             pgtype.Numeric
	NutriAdjustment      pgtype.Numeric
	CoordAdjustment      pgtype.Numeric
	SubstituteID         pgtype.Int8
	SubstituteName       pgtype.Text
	SubstituteUnit       pgtype.Text
	ConversionFactor     pgtype.Numeric
	SubstitutionsEnabled bool
}

const needItemColumns = `
SELECT i.id,
       r.id,
       r.school_id,
       s.name,
       s.route_id,
       s.route_name,
       r.group_name,
       r.consumption_week,
       r.supply_week,
       r.fill_date,
       r.status,
       i.origin_product_id,
       p.code,
       p.name,
       p.unit,
       i.quantity,
       i.nutri_adjustment,
       i.coord_adjustment,
       i.substitute_id,
       g.name,
       g.unit,
       i.conversion_factor,
       EXISTS (SELECT 1 FROM product_equivalences e WHERE e.origin_product_id = i.origin_product_id)
FROM requisition_items i
JOIN requisitions r ON r.id = i.requisition_id
JOIN schools s ON s.id = r.school_id
JOIN products p ON p.id = i.origin_product_id
LEFT JOIN products g ON g.id = i.substitute_id
`

func scanNeedItemRow(row interface{ Scan(dest ...any) error }) (NeedItemRow, error) {
	var n NeedItemRow
	err := row.Scan(
		&n.ItemID, &n.RequisitionID, &n.SchoolID, &n.SchoolName, &n.RouteID, &n.RouteName,
		&n.GroupName, &n.ConsumptionWeek, &n.SupplyWeek, &n.FillDate, &n.Status,
		&n.OriginProductID, &n.OriginProductCode, &n.OriginProductName, &n.Unit,
		&n.Quantity, &n.NutriAdjustment, &n.CoordAdjustment,
		&n.SubstituteID, &n.SubstituteName, &n.SubstituteUnit, &n.ConversionFactor,
		&n.SubstitutionsEnabled,
	)
	return n, err
}

type ListNeedItemsParams struct {
	SchoolID        pgtype.Int8
	GroupName       pgtype.Text
	ConsumptionWeek pgtype.Text
	SupplyWeek      pgtype.Text
	NutritionistID  pgtype.UUID
	Status          pgtype.Text
}

const listNeedItems = needItemColumns + `
WHERE ($1::bigint IS NULL OR r.school_id = $1)
  AND ($2::text IS NULL OR r.group_name = $2)
  AND ($3::text IS NULL OR r.consumption_week = $3)
  AND ($4::text IS NULL OR r.supply_week = $4)
  AND ($5::uuid IS NULL OR r.nutritionist_id = $5)
  AND ($6::text IS NULL OR r.status = $6)
ORDER BY r.id, p.code, i.id
`

// ListNeedItems returns the full filtered item collection, unpaginated.
// Pagination is view-specific and happens in the consolidation engine.
func (q *Queries) ListNeedItems(ctx context.Context, arg ListNeedItemsParams) ([]NeedItemRow, error) {
	rows, err := q.db.Query(ctx, listNeedItems,
		arg.SchoolID, arg.GroupName, arg.ConsumptionWeek, arg.SupplyWeek, arg.NutritionistID, arg.Status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []NeedItemRow
	for rows.Next() {
		n, err := scanNeedItemRow(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, n)
	}
	return items, rows.Err()
}

const listNeedItemsByRequisitionIDs = needItemColumns + `
WHERE r.id = ANY($1::bigint[])
ORDER BY r.id, p.code, i.id
`

func (q *Queries) ListNeedItemsByRequisitionIDs(ctx context.Context, ids []int64) ([]NeedItemRow, error) {
	rows, err := q.db.Query(ctx, listNeedItemsByRequisitionIDs, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []NeedItemRow
	for rows.Next() {
		n, err := scanNeedItemRow(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, n)
	}
	return items, rows.Err()
}

const getNeedItem = needItemColumns + `
WHERE i.id = $1
`

func (q *Queries) GetNeedItem(ctx context.Context, itemID int64) (NeedItemRow, error) {
	return scanNeedItemRow(q.db.QueryRow(ctx, getNeedItem, itemID))
}

type SetNutriAdjustmentParams struct {
	Value  pgtype.Numeric
	ItemID int64
}

const setNutriAdjustment = `
UPDATE requisition_items
SET nutri_adjustment = $1, updated_at = now()
WHERE id = $2
RETURNING id
`

func (q *Queries) SetNutriAdjustment(ctx context.Context, arg SetNutriAdjustmentParams) (int64, error) {
	row := q.db.QueryRow(ctx, setNutriAdjustment, arg.Value, arg.ItemID)
	var id int64
	err := row.Scan(&id)
	return id, err
}

type SetCoordAdjustmentParams struct {
	Value  pgtype.Numeric
	ItemID int64
}

const setCoordAdjustment = `
UPDATE requisition_items
SET coord_adjustment = $1, updated_at = now()
WHERE id = $2
RETURNING id
`

func (q *Queries) SetCoordAdjustment(ctx context.Context, arg SetCoordAdjustmentParams) (int64, error) {
	row := q.db.QueryRow(ctx, setCoordAdjustment, arg.Value, arg.ItemID)
	var id int64
	err := row.Scan(&id)
	return id, err
}

type ApplySubstitutionParams struct {
	SubstituteID     pgtype.Int8
	ConversionFactor pgtype.Numeric
	RequisitionID    int64
	OriginProductID  int64
}

// ApplySubstitution marks every item of the (requisition, origin product)
// line as substituted. Returns the number of items touched.
const applySubstitution = `
UPDATE requisition_items
SET substitute_id = $1, conversion_factor = $2, updated_at = now()
WHERE requisition_id = $3 AND origin_product_id = $4
`

func (q *Queries) ApplySubstitution(ctx context.Context, arg ApplySubstitutionParams) (int64, error) {
	tag, err := q.db.Exec(ctx, applySubstitution,
		arg.SubstituteID, arg.ConversionFactor, arg.RequisitionID, arg.OriginProductID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

type ClearSubstitutionParams struct {
	RequisitionID   int64
	OriginProductID int64
}

const clearSubstitution = `
UPDATE requisition_items
SET substitute_id = NULL, conversion_factor = NULL, updated_at = now()
WHERE requisition_id = $1 AND origin_product_id = $2
`

func (q *Queries) ClearSubstitution(ctx context.Context, arg ClearSubstitutionParams) (int64, error) {
	tag, err := q.db.Exec(ctx, clearSubstitution, arg.RequisitionID, arg.OriginProductID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
