package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// OrderItemWithDishRow is a line item joined with its dish and the dish's category.
type OrderItemWithDishRow struct {
	OrderItem
	DishName     string
	DishPrice    pgtype.Numeric
	DishIsActive bool
	CategoryID   uuid.UUID
	CategoryName string
}

const orderItemColumns = `oi.id, oi.order_id, oi.dish_id, oi.quantity, oi.price, oi.is_random,
       oi.note, oi.created_at, oi.updated_at`

const listOrderItemsByOrder = `
SELECT id, order_id, dish_id, quantity, price, is_random, note, created_at, updated_at
FROM order_items
WHERE order_id = $1
ORDER BY created_at
`

func (q *Queries) ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]OrderItem, error) {
	rows, err := q.db.Query(ctx, listOrderItemsByOrder, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []OrderItem
	for rows.Next() {
		var i OrderItem
		if err := rows.Scan(
			&i.ID, &i.OrderID, &i.DishID, &i.Quantity, &i.Price, &i.IsRandom,
			&i.Note, &i.CreatedAt, &i.UpdatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const listOrderItemsWithDish = `
SELECT ` + orderItemColumns + `,
       d.name, d.price, d.is_active,
       c.id, c.name
FROM order_items oi
JOIN dishes d ON d.id = oi.dish_id
JOIN categories c ON c.id = d.category_id
WHERE oi.order_id = $1
ORDER BY oi.created_at
`

func (q *Queries) ListOrderItemsWithDish(ctx context.Context, orderID uuid.UUID) ([]OrderItemWithDishRow, error) {
	rows, err := q.db.Query(ctx, listOrderItemsWithDish, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []OrderItemWithDishRow
	for rows.Next() {
		var i OrderItemWithDishRow
		if err := rows.Scan(
			&i.ID, &i.OrderID, &i.DishID, &i.Quantity, &i.Price, &i.IsRandom,
			&i.Note, &i.CreatedAt, &i.UpdatedAt,
			&i.DishName, &i.DishPrice, &i.DishIsActive,
			&i.CategoryID, &i.CategoryName,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const getOrderItem = `
SELECT id, order_id, dish_id, quantity, price, is_random, note, created_at, updated_at
FROM order_items
WHERE id = $1 AND order_id = $2
`

type GetOrderItemParams struct {
	ID      uuid.UUID
	OrderID uuid.UUID
}

func (q *Queries) GetOrderItem(ctx context.Context, arg GetOrderItemParams) (OrderItem, error) {
	var i OrderItem
	err := q.db.QueryRow(ctx, getOrderItem, arg.ID, arg.OrderID).Scan(
		&i.ID, &i.OrderID, &i.DishID, &i.Quantity, &i.Price, &i.IsRandom,
		&i.Note, &i.CreatedAt, &i.UpdatedAt,
	)
	return i, err
}

const getOrderItemByDish = `
SELECT id, order_id, dish_id, quantity, price, is_random, note, created_at, updated_at
FROM order_items
WHERE order_id = $1 AND dish_id = $2
`

type GetOrderItemByDishParams struct {
	OrderID uuid.UUID
	DishID  uuid.UUID
}

func (q *Queries) GetOrderItemByDish(ctx context.Context, arg GetOrderItemByDishParams) (OrderItem, error) {
	var i OrderItem
	err := q.db.QueryRow(ctx, getOrderItemByDish, arg.OrderID, arg.DishID).Scan(
		&i.ID, &i.OrderID, &i.DishID, &i.Quantity, &i.Price, &i.IsRandom,
		&i.Note, &i.CreatedAt, &i.UpdatedAt,
	)
	return i, err
}

const getOrderItemWithDish = `
SELECT ` + orderItemColumns + `,
       d.name, d.price, d.is_active,
       c.id, c.name
FROM order_items oi
JOIN dishes d ON d.id = oi.dish_id
JOIN categories c ON c.id = d.category_id
WHERE oi.id = $1
`

func (q *Queries) GetOrderItemWithDish(ctx context.Context, id uuid.UUID) (OrderItemWithDishRow, error) {
	var i OrderItemWithDishRow
	err := q.db.QueryRow(ctx, getOrderItemWithDish, id).Scan(
		&i.ID, &i.OrderID, &i.DishID, &i.Quantity, &i.Price, &i.IsRandom,
		&i.Note, &i.CreatedAt, &i.UpdatedAt,
		&i.DishName, &i.DishPrice, &i.DishIsActive,
		&i.CategoryID, &i.CategoryName,
	)
	return i, err
}

const createOrderItem = `
INSERT INTO order_items (order_id, dish_id, quantity, price, is_random, note)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, order_id, dish_id, quantity, price, is_random, note, created_at, updated_at
`

type CreateOrderItemParams struct {
	OrderID  uuid.UUID
	DishID   uuid.UUID
	Quantity int32
	Price    pgtype.Numeric
	IsRandom bool
	Note     pgtype.Text
}

func (q *Queries) CreateOrderItem(ctx context.Context, arg CreateOrderItemParams) (OrderItem, error) {
	var i OrderItem
	err := q.db.QueryRow(ctx, createOrderItem,
		arg.OrderID, arg.DishID, arg.Quantity, arg.Price, arg.IsRandom, arg.Note,
	).Scan(
		&i.ID, &i.OrderID, &i.DishID, &i.Quantity, &i.Price, &i.IsRandom,
		&i.Note, &i.CreatedAt, &i.UpdatedAt,
	)
	return i, err
}

const addOrderItemQuantity = `
UPDATE order_items
SET quantity = quantity + $2, updated_at = now()
WHERE id = $1
RETURNING id, order_id, dish_id, quantity, price, is_random, note, created_at, updated_at
`

type AddOrderItemQuantityParams struct {
	ID     uuid.UUID
	Amount int32
}

// AddOrderItemQuantity increments atomically so concurrent adds for the same
// line item cannot lose updates. Price and is_random stay as they were.
func (q *Queries) AddOrderItemQuantity(ctx context.Context, arg AddOrderItemQuantityParams) (OrderItem, error) {
	var i OrderItem
	err := q.db.QueryRow(ctx, addOrderItemQuantity, arg.ID, arg.Amount).Scan(
		&i.ID, &i.OrderID, &i.DishID, &i.Quantity, &i.Price, &i.IsRandom,
		&i.Note, &i.CreatedAt, &i.UpdatedAt,
	)
	return i, err
}

const updateOrderItem = `
UPDATE order_items
SET quantity = $3, note = $4, updated_at = now()
WHERE id = $1 AND order_id = $2
RETURNING id, order_id, dish_id, quantity, price, is_random, note, created_at, updated_at
`

type UpdateOrderItemParams struct {
	ID       uuid.UUID
	OrderID  uuid.UUID
	Quantity int32
	Note     pgtype.Text
}

func (q *Queries) UpdateOrderItem(ctx context.Context, arg UpdateOrderItemParams) (OrderItem, error) {
	var i OrderItem
	err := q.db.QueryRow(ctx, updateOrderItem, arg.ID, arg.OrderID, arg.Quantity, arg.Note).Scan(
		&i.ID, &i.OrderID, &i.DishID, &i.Quantity, &i.Price, &i.IsRandom,
		&i.Note, &i.CreatedAt, &i.UpdatedAt,
	)
	return i, err
}

const deleteOrderItem = `
DELETE FROM order_items
WHERE id = $1 AND order_id = $2
RETURNING id
`

type DeleteOrderItemParams struct {
	ID      uuid.UUID
	OrderID uuid.UUID
}

func (q *Queries) DeleteOrderItem(ctx context.Context, arg DeleteOrderItemParams) (uuid.UUID, error) {
	var deleted uuid.UUID
	err := q.db.QueryRow(ctx, deleteOrderItem, arg.ID, arg.OrderID).Scan(&deleted)
	return deleted, err
}
