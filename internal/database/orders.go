package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// ListOrdersRow is an order with the number of line items it holds.
type ListOrdersRow struct {
	Order
	ItemCount int64
}

const listOrders = `
SELECT o.id, o.order_date, o.status, o.total_price, o.note, o.created_at, o.updated_at,
       count(oi.id)
FROM orders o
LEFT JOIN order_items oi ON oi.order_id = o.id
WHERE ($1::timestamptz IS NULL OR o.order_date >= $1)
  AND ($2::timestamptz IS NULL OR o.order_date < $2)
GROUP BY o.id
ORDER BY o.created_at DESC
`

type ListOrdersParams struct {
	StartDate pgtype.Timestamptz
	EndDate   pgtype.Timestamptz
}

func (q *Queries) ListOrders(ctx context.Context, arg ListOrdersParams) ([]ListOrdersRow, error) {
	rows, err := q.db.Query(ctx, listOrders, arg.StartDate, arg.EndDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ListOrdersRow
	for rows.Next() {
		var o ListOrdersRow
		if err := rows.Scan(
			&o.ID, &o.OrderDate, &o.Status, &o.TotalPrice, &o.Note, &o.CreatedAt, &o.UpdatedAt,
			&o.ItemCount,
		); err != nil {
			return nil, err
		}
		items = append(items, o)
	}
	return items, rows.Err()
}

const createOrder = `
INSERT INTO orders (order_date, status, note)
VALUES ($1, $2, $3)
RETURNING id, order_date, status, total_price, note, created_at, updated_at
`

type CreateOrderParams struct {
	OrderDate time.Time
	Status    string
	Note      pgtype.Text
}

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	var o Order
	err := q.db.QueryRow(ctx, createOrder, arg.OrderDate, arg.Status, arg.Note).Scan(
		&o.ID, &o.OrderDate, &o.Status, &o.TotalPrice, &o.Note, &o.CreatedAt, &o.UpdatedAt,
	)
	return o, err
}

const getOrder = `
SELECT id, order_date, status, total_price, note, created_at, updated_at
FROM orders
WHERE id = $1
`

func (q *Queries) GetOrder(ctx context.Context, id uuid.UUID) (Order, error) {
	var o Order
	err := q.db.QueryRow(ctx, getOrder, id).Scan(
		&o.ID, &o.OrderDate, &o.Status, &o.TotalPrice, &o.Note, &o.CreatedAt, &o.UpdatedAt,
	)
	return o, err
}

const updateOrder = `
UPDATE orders
SET status = $2, note = $3, updated_at = now()
WHERE id = $1
RETURNING id, order_date, status, total_price, note, created_at, updated_at
`

type UpdateOrderParams struct {
	ID     uuid.UUID
	Status string
	Note   pgtype.Text
}

func (q *Queries) UpdateOrder(ctx context.Context, arg UpdateOrderParams) (Order, error) {
	var o Order
	err := q.db.QueryRow(ctx, updateOrder, arg.ID, arg.Status, arg.Note).Scan(
		&o.ID, &o.OrderDate, &o.Status, &o.TotalPrice, &o.Note, &o.CreatedAt, &o.UpdatedAt,
	)
	return o, err
}

const updateOrderTotal = `
UPDATE orders
SET total_price = $2, updated_at = now()
WHERE id = $1
RETURNING id
`

type UpdateOrderTotalParams struct {
	ID         uuid.UUID
	TotalPrice pgtype.Numeric
}

func (q *Queries) UpdateOrderTotal(ctx context.Context, arg UpdateOrderTotalParams) (uuid.UUID, error) {
	var id uuid.UUID
	err := q.db.QueryRow(ctx, updateOrderTotal, arg.ID, arg.TotalPrice).Scan(&id)
	return id, err
}

const deleteOrder = `
DELETE FROM orders
WHERE id = $1
RETURNING id
`

// DeleteOrder removes an order; its items go with it (ON DELETE CASCADE).
func (q *Queries) DeleteOrder(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	var deleted uuid.UUID
	err := q.db.QueryRow(ctx, deleteOrder, id).Scan(&deleted)
	return deleted, err
}
