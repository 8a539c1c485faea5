package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const listProducts = `
SELECT id, code, name, unit, is_generic, is_active, created_at, updated_at
FROM products
WHERE is_active = true
ORDER BY code
`

func (q *Queries) ListProducts(ctx context.Context) ([]Product, error) {
	rows, err := q.db.Query(ctx, listProducts)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Code, &p.Name, &p.Unit, &p.IsGeneric, &p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

const getProduct = `
SELECT id, code, name, unit, is_generic, is_active, created_at, updated_at
FROM products
WHERE id = $1 AND is_active = true
`

func (q *Queries) GetProduct(ctx context.Context, id int64) (Product, error) {
	row := q.db.QueryRow(ctx, getProduct, id)
	var p Product
	err := row.Scan(&p.ID, &p.Code, &p.Name, &p.Unit, &p.IsGeneric, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

type CreateProductParams struct {
	Code      string
	Name      string
	Unit      string
	IsGeneric bool
}

const createProduct = `
INSERT INTO products (code, name, unit, is_generic)
VALUES ($1, $2, $3, $4)
RETURNING id, code, name, unit, is_generic, is_active, created_at, updated_at
`

func (q *Queries) CreateProduct(ctx context.Context, arg CreateProductParams) (Product, error) {
	row := q.db.QueryRow(ctx, createProduct, arg.Code, arg.Name, arg.Unit, arg.IsGeneric)
	var p Product
	err := row.Scan(&p.ID, &p.Code, &p.Name, &p.Unit, &p.IsGeneric, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

type UpdateProductParams struct {
	Code      string
	Name      string
	Unit      string
	IsGeneric bool
	ID        int64
}

const updateProduct = `
UPDATE products
SET code = $1, name = $2, unit = $3, is_generic = $4, updated_at = now()
WHERE id = $5 AND is_active = true
RETURNING id, code, name, unit, is_generic, is_active, created_at, updated_at
`

func (q *Queries) UpdateProduct(ctx context.Context, arg UpdateProductParams) (Product, error) {
	row := q.db.QueryRow(ctx, updateProduct, arg.Code, arg.Name, arg.Unit, arg.IsGeneric, arg.ID)
	var p Product
	err := row.Scan(&p.ID, &p.Code, &p.Name, &p.Unit, &p.IsGeneric, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

const softDeleteProduct = `
UPDATE products
SET is_active = false, updated_at = now()
WHERE id = $1 AND is_active = true
RETURNING id
`

func (q *Queries) SoftDeleteProduct(ctx context.Context, id int64) (int64, error) {
	row := q.db.QueryRow(ctx, softDeleteProduct, id)
	var out int64
	err := row.Scan(&out)
	return out, err
}

// --- Equivalence catalog (generic substitutes per origin product) ---

type ListEquivalencesRow struct {
	ID                 int64
	OriginProductID    int64
	GenericProductID   int64
	GenericProductName string
	Unit               string
	Factor             pgtype.Numeric
}

const listEquivalences = `
SELECT e.id, e.origin_product_id, e.generic_product_id, p.name, e.unit, e.factor
FROM product_equivalences e
JOIN products p ON p.id = e.generic_product_id
WHERE e.origin_product_id = $1
ORDER BY p.name
`

func (q *Queries) ListEquivalences(ctx context.Context, originProductID int64) ([]ListEquivalencesRow, error) {
	rows, err := q.db.Query(ctx, listEquivalences, originProductID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ListEquivalencesRow
	for rows.Next() {
		var e ListEquivalencesRow
		if err := rows.Scan(&e.ID, &e.OriginProductID, &e.GenericProductID, &e.GenericProductName, &e.Unit, &e.Factor); err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	return items, rows.Err()
}

type GetEquivalenceParams struct {
	OriginProductID  int64
	GenericProductID int64
}

const getEquivalence = `
SELECT id, origin_product_id, generic_product_id, unit, factor, created_at
FROM product_equivalences
WHERE origin_product_id = $1 AND generic_product_id = $2
`

func (q *Queries) GetEquivalence(ctx context.Context, arg GetEquivalenceParams) (ProductEquivalence, error) {
	row := q.db.QueryRow(ctx, getEquivalence, arg.OriginProductID, arg.GenericProductID)
	var e ProductEquivalence
	err := row.Scan(&e.ID, &e.OriginProductID, &e.GenericProductID, &e.Unit, &e.Factor, &e.CreatedAt)
	return e, err
}

type CreateEquivalenceParams struct {
	OriginProductID  int64
	GenericProductID int64
	Unit             string
	Factor           pgtype.Numeric
}

const createEquivalence = `
INSERT INTO product_equivalences (origin_product_id, generic_product_id, unit, factor)
VALUES ($1, $2, $3, $4)
RETURNING id, origin_product_id, generic_product_id, unit, factor, created_at
`

func (q *Queries) CreateEquivalence(ctx context.Context, arg CreateEquivalenceParams) (ProductEquivalence, error) {
	row := q.db.QueryRow(ctx, createEquivalence, arg.OriginProductID, arg.GenericProductID, arg.Unit, arg.Factor)
	var e ProductEquivalence
	err := row.Scan(&e.ID, &e.OriginProductID, &e.GenericProductID, &e.Unit, &e.Factor, &e.CreatedAt)
	return e, err
}

const deleteEquivalence = `
DELETE FROM product_equivalences
WHERE id = $1
RETURNING id
`

func (q *Queries) DeleteEquivalence(ctx context.Context, id int64) (int64, error) {
	row := q.db.QueryRow(ctx, deleteEquivalence, id)
	var out int64
	err := row.Scan(&out)
	return out, err
}

const countEquivalencesForOrigin = `
SELECT count(*) FROM product_equivalences WHERE origin_product_id = $1
`

func (q *Queries) CountEquivalencesForOrigin(ctx context.Context, originProductID int64) (int64, error) {
	row := q.db.QueryRow(ctx, countEquivalencesForOrigin, originProductID)
	var n int64
	err := row.Scan(&n)
	return n, err
}
