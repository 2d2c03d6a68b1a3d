package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// DishWithCategoryRow is a dish joined with its owning category.
type DishWithCategoryRow struct {
	Dish
	CategoryName      string
	CategorySortOrder int32
}

const listDishes = `
SELECT d.id, d.category_id, d.name, d.description, d.price, d.is_active, d.sort_order,
       d.created_at, d.updated_at,
       c.name, c.sort_order
FROM dishes d
JOIN categories c ON c.id = d.category_id
WHERE ($1::uuid IS NULL OR d.category_id = $1)
  AND ($2::text IS NULL OR d.name ILIKE '%' || $2 || '%')
  AND (NOT $3::boolean OR d.is_active)
ORDER BY c.sort_order, d.sort_order, d.name
`

type ListDishesParams struct {
	CategoryID pgtype.UUID
	Search     pgtype.Text
	ActiveOnly bool
}

func (q *Queries) ListDishes(ctx context.Context, arg ListDishesParams) ([]DishWithCategoryRow, error) {
	rows, err := q.db.Query(ctx, listDishes, arg.CategoryID, arg.Search, arg.ActiveOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []DishWithCategoryRow
	for rows.Next() {
		var d DishWithCategoryRow
		if err := rows.Scan(
			&d.ID, &d.CategoryID, &d.Name, &d.Description, &d.Price, &d.IsActive, &d.SortOrder,
			&d.CreatedAt, &d.UpdatedAt,
			&d.CategoryName, &d.CategorySortOrder,
		); err != nil {
			return nil, err
		}
		items = append(items, d)
	}
	return items, rows.Err()
}

const getDish = `
SELECT id, category_id, name, description, price, is_active, sort_order, created_at, updated_at
FROM dishes
WHERE id = $1
`

func (q *Queries) GetDish(ctx context.Context, id uuid.UUID) (Dish, error) {
	var d Dish
	err := q.db.QueryRow(ctx, getDish, id).Scan(
		&d.ID, &d.CategoryID, &d.Name, &d.Description, &d.Price, &d.IsActive, &d.SortOrder,
		&d.CreatedAt, &d.UpdatedAt,
	)
	return d, err
}

const getDishWithCategory = `
SELECT d.id, d.category_id, d.name, d.description, d.price, d.is_active, d.sort_order,
       d.created_at, d.updated_at,
       c.name, c.sort_order
FROM dishes d
JOIN categories c ON c.id = d.category_id
WHERE d.id = $1
`

func (q *Queries) GetDishWithCategory(ctx context.Context, id uuid.UUID) (DishWithCategoryRow, error) {
	var d DishWithCategoryRow
	err := q.db.QueryRow(ctx, getDishWithCategory, id).Scan(
		&d.ID, &d.CategoryID, &d.Name, &d.Description, &d.Price, &d.IsActive, &d.SortOrder,
		&d.CreatedAt, &d.UpdatedAt,
		&d.CategoryName, &d.CategorySortOrder,
	)
	return d, err
}

const createDish = `
INSERT INTO dishes (category_id, name, description, price, is_active, sort_order)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, category_id, name, description, price, is_active, sort_order, created_at, updated_at
`

type CreateDishParams struct {
	CategoryID  uuid.UUID
	Name        string
	Description pgtype.Text
	Price       pgtype.Numeric
	IsActive    bool
	SortOrder   int32
}

func (q *Queries) CreateDish(ctx context.Context, arg CreateDishParams) (Dish, error) {
	var d Dish
	err := q.db.QueryRow(ctx, createDish,
		arg.CategoryID, arg.Name, arg.Description, arg.Price, arg.IsActive, arg.SortOrder,
	).Scan(
		&d.ID, &d.CategoryID, &d.Name, &d.Description, &d.Price, &d.IsActive, &d.SortOrder,
		&d.CreatedAt, &d.UpdatedAt,
	)
	return d, err
}

const updateDish = `
UPDATE dishes
SET category_id = $2, name = $3, description = $4, price = $5, is_active = $6,
    sort_order = $7, updated_at = now()
WHERE id = $1
RETURNING id, category_id, name, description, price, is_active, sort_order, created_at, updated_at
`

type UpdateDishParams struct {
	ID          uuid.UUID
	CategoryID  uuid.UUID
	Name        string
	Description pgtype.Text
	Price       pgtype.Numeric
	IsActive    bool
	SortOrder   int32
}

func (q *Queries) UpdateDish(ctx context.Context, arg UpdateDishParams) (Dish, error) {
	var d Dish
	err := q.db.QueryRow(ctx, updateDish,
		arg.ID, arg.CategoryID, arg.Name, arg.Description, arg.Price, arg.IsActive, arg.SortOrder,
	).Scan(
		&d.ID, &d.CategoryID, &d.Name, &d.Description, &d.Price, &d.IsActive, &d.SortOrder,
		&d.CreatedAt, &d.UpdatedAt,
	)
	return d, err
}

const deleteDish = `
DELETE FROM dishes
WHERE id = $1
RETURNING id
`

// DeleteDish removes a dish. Dishes referenced by order items are protected
// by the order_items.dish_id RESTRICT constraint (23503).
func (q *Queries) DeleteDish(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	var deleted uuid.UUID
	err := q.db.QueryRow(ctx, deleteDish, id).Scan(&deleted)
	return deleted, err
}
