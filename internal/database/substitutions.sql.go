package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type GetActiveSubstitutionParams struct {
	RequisitionID   int64
	OriginProductID int64
}

const getActiveSubstitution = `
SELECT id, requisition_id, origin_product_id, generic_product_id, unit, factor, created_by, created_at
FROM product_substitutions
WHERE requisition_id = $1 AND origin_product_id = $2
`

func (q *Queries) GetActiveSubstitution(ctx context.Context, arg GetActiveSubstitutionParams) (ProductSubstitution, error) {
	row := q.db.QueryRow(ctx, getActiveSubstitution, arg.RequisitionID, arg.OriginProductID)
	var s ProductSubstitution
	err := row.Scan(&s.ID, &s.RequisitionID, &s.OriginProductID, &s.GenericProductID,
		&s.Unit, &s.Factor, &s.CreatedBy, &s.CreatedAt)
	return s, err
}

type CreateSubstitutionParams struct {
	RequisitionID    int64
	OriginProductID  int64
	GenericProductID int64
	Unit             string
	Factor           pgtype.Numeric
	CreatedBy        uuid.UUID
}

const createSubstitution = `
INSERT INTO product_substitutions (requisition_id, origin_product_id, generic_product_id, unit, factor, created_by)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, requisition_id, origin_product_id, generic_product_id, unit, factor, created_by, created_at
`

func (q *Queries) CreateSubstitution(ctx context.Context, arg CreateSubstitutionParams) (ProductSubstitution, error) {
	row := q.db.QueryRow(ctx, createSubstitution,
		arg.RequisitionID, arg.OriginProductID, arg.GenericProductID, arg.Unit, arg.Factor, arg.CreatedBy)
	var s ProductSubstitution
	err := row.Scan(&s.ID, &s.RequisitionID, &s.OriginProductID, &s.GenericProductID,
		&s.Unit, &s.Factor, &s.CreatedBy, &s.CreatedAt)
	return s, err
}

type DeleteSubstitutionParams struct {
	RequisitionID   int64
	OriginProductID int64
}

const deleteSubstitution = `
DELETE FROM product_substitutions
WHERE requisition_id = $1 AND origin_product_id = $2
`

func (q *Queries) DeleteSubstitution(ctx context.Context, arg DeleteSubstitutionParams) (int64, error) {
	tag, err := q.db.Exec(ctx, deleteSubstitution, arg.RequisitionID, arg.OriginProductID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
