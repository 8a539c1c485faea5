package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const getRequisition = `
SELECT id, school_id, group_name, consumption_week, supply_week, fill_date, status, nutritionist_id, created_at, updated_at
FROM requisitions
WHERE id = $1
`

func (q *Queries) GetRequisition(ctx context.Context, id int64) (Requisition, error) {
	row := q.db.QueryRow(ctx, getRequisition, id)
	var r Requisition
	err := row.Scan(&r.ID, &r.SchoolID, &r.GroupName, &r.ConsumptionWeek, &r.SupplyWeek,
		&r.FillDate, &r.Status, &r.NutritionistID, &r.CreatedAt, &r.UpdatedAt)
	return r, err
}

type UpdateRequisitionStatusParams struct {
	Status string
	ID     int64
}

const updateRequisitionStatus = `
UPDATE requisitions
SET status = $1, updated_at = now()
WHERE id = $2
RETURNING id
`

func (q *Queries) UpdateRequisitionStatus(ctx context.Context, arg UpdateRequisitionStatusParams) (int64, error) {
	row := q.db.QueryRow(ctx, updateRequisitionStatus, arg.Status, arg.ID)
	var id int64
	err := row.Scan(&id)
	return id, err
}

type AdvanceRequisitionStatusParams struct {
	FromStatus string
	ToStatus   string
	ID         int64
}

// advanceRequisitionStatus only moves the row when it still sits in the
// expected predecessor status, so two concurrent advances cannot skip a step.
const advanceRequisitionStatus = `
UPDATE requisitions
SET status = $2, updated_at = now()
WHERE id = $3 AND status = $1
RETURNING id
`

func (q *Queries) AdvanceRequisitionStatus(ctx context.Context, arg AdvanceRequisitionStatusParams) (int64, error) {
	row := q.db.QueryRow(ctx, advanceRequisitionStatus, arg.FromStatus, arg.ToStatus, arg.ID)
	var id int64
	err := row.Scan(&id)
	return id, err
}

type ListRequisitionIDsParams struct {
	SchoolID        pgtype.Int8
	GroupName       pgtype.Text
	ConsumptionWeek pgtype.Text
	SupplyWeek      pgtype.Text
	NutritionistID  pgtype.UUID
	Status          pgtype.Text
	Limit           int32
	Offset          int32
}

const listRequisitionIDs = `
SELECT id FROM requisitions
WHERE ($1::bigint IS NULL OR school_id = $1)
  AND ($2::text IS NULL OR group_name = $2)
  AND ($3::text IS NULL OR consumption_week = $3)
  AND ($4::text IS NULL OR supply_week = $4)
  AND ($5::uuid IS NULL OR nutritionist_id = $5)
  AND ($6::text IS NULL OR status = $6)
ORDER BY id
LIMIT NULLIF($7, 0) OFFSET $8
`

// ListRequisitionIDs backs the server-side pagination of the per-requisition
// view, where the grouping key and the fetch key coincide.
func (q *Queries) ListRequisitionIDs(ctx context.Context, arg ListRequisitionIDsParams) ([]int64, error) {
	rows, err := q.db.Query(ctx, listRequisitionIDs,
		arg.SchoolID, arg.GroupName, arg.ConsumptionWeek, arg.SupplyWeek,
		arg.NutritionistID, arg.Status, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

type CountRequisitionsParams struct {
	SchoolID        pgtype.Int8
	GroupName       pgtype.Text
	ConsumptionWeek pgtype.Text
	SupplyWeek      pgtype.Text
	NutritionistID  pgtype.UUID
	Status          pgtype.Text
}

const countRequisitions = `
SELECT count(*) FROM requisitions
WHERE ($1::bigint IS NULL OR school_id = $1)
  AND ($2::text IS NULL OR group_name = $2)
  AND ($3::text IS NULL OR consumption_week = $3)
  AND ($4::text IS NULL OR supply_week = $4)
  AND ($5::uuid IS NULL OR nutritionist_id = $5)
  AND ($6::text IS NULL OR status = $6)
`

func (q *Queries) CountRequisitions(ctx context.Context, arg CountRequisitionsParams) (int64, error) {
	row := q.db.QueryRow(ctx, countRequisitions,
		arg.SchoolID, arg.GroupName, arg.ConsumptionWeek, arg.SupplyWeek, arg.NutritionistID, arg.Status)
	var n int64
	err := row.Scan(&n)
	return n, err
}

type UpdateRequisitionHeaderParams struct {
	SchoolID        pgtype.Int8
	ConsumptionWeek pgtype.Text
	SupplyWeek      pgtype.Text
	ID              int64
}

// updateRequisitionHeader rewrites only the fields present in the patch
// (COALESCE keeps the stored value when the parameter is NULL). Status and
// item quantities are never touched here.
const updateRequisitionHeader = `
UPDATE requisitions
SET school_id        = COALESCE($1, school_id),
    consumption_week = COALESCE($2, consumption_week),
    supply_week      = COALESCE($3, supply_week),
    updated_at       = now()
WHERE id = $4
RETURNING id, school_id, group_name, consumption_week, supply_week, fill_date, status, nutritionist_id, created_at, updated_at
`

func (q *Queries) UpdateRequisitionHeader(ctx context.Context, arg UpdateRequisitionHeaderParams) (Requisition, error) {
	row := q.db.QueryRow(ctx, updateRequisitionHeader, arg.SchoolID, arg.ConsumptionWeek, arg.SupplyWeek, arg.ID)
	var r Requisition
	err := row.Scan(&r.ID, &r.SchoolID, &r.GroupName, &r.ConsumptionWeek, &r.SupplyWeek,
		&r.FillDate, &r.Status, &r.NutritionistID, &r.CreatedAt, &r.UpdatedAt)
	return r, err
}

const deleteRequisitionSubstitutions = `
DELETE FROM product_substitutions WHERE requisition_id = $1
`

func (q *Queries) DeleteRequisitionSubstitutions(ctx context.Context, requisitionID int64) error {
	_, err := q.db.Exec(ctx, deleteRequisitionSubstitutions, requisitionID)
	return err
}

const deleteRequisitionItems = `
DELETE FROM requisition_items WHERE requisition_id = $1
`

func (q *Queries) DeleteRequisitionItems(ctx context.Context, requisitionID int64) error {
	_, err := q.db.Exec(ctx, deleteRequisitionItems, requisitionID)
	return err
}

const deleteRequisition = `
DELETE FROM requisitions WHERE id = $1
RETURNING id
`

func (q *Queries) DeleteRequisition(ctx context.Context, id int64) (int64, error) {
	row := q.db.QueryRow(ctx, deleteRequisition, id)
	var out int64
	err := row.Scan(&out)
	return out, err
}
