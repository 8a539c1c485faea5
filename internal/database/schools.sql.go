package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const listSchools = `
SELECT id, name, route_id, route_name, is_active, created_at, updated_at
FROM schools
WHERE is_active = true
ORDER BY name
`

func (q *Queries) ListSchools(ctx context.Context) ([]School, error) {
	rows, err := q.db.Query(ctx, listSchools)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []School
	for rows.Next() {
		var s School
		if err := rows.Scan(&s.ID, &s.Name, &s.RouteID, &s.RouteName, &s.IsActive, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, rows.Err()
}

const getSchool = `
SELECT id, name, route_id, route_name, is_active, created_at, updated_at
FROM schools
WHERE id = $1 AND is_active = true
`

func (q *Queries) GetSchool(ctx context.Context, id int64) (School, error) {
	row := q.db.QueryRow(ctx, getSchool, id)
	var s School
	err := row.Scan(&s.ID, &s.Name, &s.RouteID, &s.RouteName, &s.IsActive, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

type CreateSchoolParams struct {
	Name      string
	RouteID   pgtype.Int8
	RouteName pgtype.Text
}

const createSchool = `
INSERT INTO schools (name, route_id, route_name)
VALUES ($1, $2, $3)
RETURNING id, name, route_id, route_name, is_active, created_at, updated_at
`

func (q *Queries) CreateSchool(ctx context.Context, arg CreateSchoolParams) (School, error) {
	row := q.db.QueryRow(ctx, createSchool, arg.Name, arg.RouteID, arg.RouteName)
	var s School
	err := row.Scan(&s.ID, &s.Name, &s.RouteID, &s.RouteName, &s.IsActive, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

type UpdateSchoolParams struct {
	Name      string
	RouteID   pgtype.Int8
	RouteName pgtype.Text
	ID        int64
}

const updateSchool = `
UPDATE schools
SET name = $1, route_id = $2, route_name = $3, updated_at = now()
WHERE id = $4 AND is_active = true
RETURNING id, name, route_id, route_name, is_active, created_at, updated_at
`

func (q *Queries) UpdateSchool(ctx context.Context, arg UpdateSchoolParams) (School, error) {
	row := q.db.QueryRow(ctx, updateSchool, arg.Name, arg.RouteID, arg.RouteName, arg.ID)
	var s School
	err := row.Scan(&s.ID, &s.Name, &s.RouteID, &s.RouteName, &s.IsActive, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

const softDeleteSchool = `
UPDATE schools
SET is_active = false, updated_at = now()
WHERE id = $1 AND is_active = true
RETURNING id
`

func (q *Queries) SoftDeleteSchool(ctx context.Context, id int64) (int64, error) {
	row := q.db.QueryRow(ctx, softDeleteSchool, id)
	var out int64
	err := row.Scan(&out)
	return out, err
}
