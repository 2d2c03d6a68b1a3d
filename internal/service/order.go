package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/teamdine/api/internal/database"
	"github.com/teamdine/api/internal/enum"
)

// Errors returned by the order service.
var (
	ErrOrderNotFound    = errors.New("order not found")
	ErrDishNotFound     = errors.New("dish not found")
	ErrItemNotFound     = errors.New("order item not found")
	ErrOrderNotEditable = errors.New("order is not in progress")
	ErrInvalidQuantity  = errors.New("quantity must be >= 1")
	ErrEmptySourceOrder = errors.New("source order has no items")
	ErrSameOrder        = errors.New("source and target orders are the same")
)

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// OrderStore defines the DB methods needed to mutate order items.
// Satisfied by *database.Queries (and its WithTx variant).
type OrderStore interface {
	GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
	GetDish(ctx context.Context, id uuid.UUID) (database.Dish, error)
	GetOrderItem(ctx context.Context, arg database.GetOrderItemParams) (database.OrderItem, error)
	GetOrderItemByDish(ctx context.Context, arg database.GetOrderItemByDishParams) (database.OrderItem, error)
	GetOrderItemWithDish(ctx context.Context, id uuid.UUID) (database.OrderItemWithDishRow, error)
	ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error)
	CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error)
	AddOrderItemQuantity(ctx context.Context, arg database.AddOrderItemQuantityParams) (database.OrderItem, error)
	UpdateOrderItem(ctx context.Context, arg database.UpdateOrderItemParams) (database.OrderItem, error)
	DeleteOrderItem(ctx context.Context, arg database.DeleteOrderItemParams) (uuid.UUID, error)
	UpdateOrderTotal(ctx context.Context, arg database.UpdateOrderTotalParams) (uuid.UUID, error)
}

// NewOrderStore creates an OrderStore from a DBTX (pool or tx).
// This allows the service to create store instances from transactions.
type NewOrderStore func(db database.DBTX) OrderStore

// OrderService owns all mutations of an order's line items. Every mutation
// runs inside one transaction and re-derives the parent order's total before
// committing, so orders.total_price never goes stale. An order-scoped mutex
// serializes the find-or-create decision against concurrent adds.
type OrderService struct {
	pool     TxBeginner
	newStore NewOrderStore
	locks    *orderLocks
}

// NewOrderService creates a new OrderService.
func NewOrderService(pool TxBeginner, newStore NewOrderStore) *OrderService {
	return &OrderService{
		pool:     pool,
		newStore: newStore,
		locks:    newOrderLocks(),
	}
}

// AddItemParams is the validated input for adding a dish to an order.
type AddItemParams struct {
	OrderID  uuid.UUID
	DishID   uuid.UUID
	Quantity int32
	IsRandom bool
	Note     string
}

// AddItem adds a dish to an order. An existing line item for the same dish
// gets its quantity increased; its price, is_random flag, and note stay as
// they were. Otherwise a new line item is created, freezing the dish's
// current price onto it.
func (s *OrderService) AddItem(ctx context.Context, arg AddItemParams) (*database.OrderItemWithDishRow, error) {
	if arg.Quantity < 1 {
		return nil, ErrInvalidQuantity
	}

	s.locks.lock(arg.OrderID)
	defer s.locks.unlock(arg.OrderID)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	if err := s.checkEditable(ctx, store, arg.OrderID); err != nil {
		return nil, err
	}

	dish, err := store.GetDish(ctx, arg.DishID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDishNotFound
		}
		return nil, fmt.Errorf("get dish: %w", err)
	}

	var item database.OrderItem
	existing, err := store.GetOrderItemByDish(ctx, database.GetOrderItemByDishParams{
		OrderID: arg.OrderID,
		DishID:  arg.DishID,
	})
	switch {
	case err == nil:
		item, err = store.AddOrderItemQuantity(ctx, database.AddOrderItemQuantityParams{
			ID:     existing.ID,
			Amount: arg.Quantity,
		})
		if err != nil {
			return nil, fmt.Errorf("increment order item: %w", err)
		}
	case errors.Is(err, pgx.ErrNoRows):
		item, err = store.CreateOrderItem(ctx, database.CreateOrderItemParams{
			OrderID:  arg.OrderID,
			DishID:   arg.DishID,
			Quantity: arg.Quantity,
			Price:    dish.Price,
			IsRandom: arg.IsRandom,
			Note:     textOrNull(arg.Note),
		})
		if err != nil {
			return nil, fmt.Errorf("create order item: %w", err)
		}
	default:
		return nil, fmt.Errorf("find order item: %w", err)
	}

	if err := s.recalcTotal(ctx, store, arg.OrderID); err != nil {
		return nil, err
	}

	row, err := store.GetOrderItemWithDish(ctx, item.ID)
	if err != nil {
		return nil, fmt.Errorf("load order item: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return &row, nil
}

// UpdateItemParams is the input for overwriting a line item's quantity and note.
type UpdateItemParams struct {
	OrderID  uuid.UUID
	ItemID   uuid.UUID
	Quantity int32
	Note     string
}

// UpdateItem overwrites the quantity and note of a line item. The price
// snapshot and is_random flag are never touched.
func (s *OrderService) UpdateItem(ctx context.Context, arg UpdateItemParams) (*database.OrderItemWithDishRow, error) {
	if arg.Quantity < 1 {
		return nil, ErrInvalidQuantity
	}

	s.locks.lock(arg.OrderID)
	defer s.locks.unlock(arg.OrderID)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	if err := s.checkEditable(ctx, store, arg.OrderID); err != nil {
		return nil, err
	}

	item, err := store.UpdateOrderItem(ctx, database.UpdateOrderItemParams{
		ID:       arg.ItemID,
		OrderID:  arg.OrderID,
		Quantity: arg.Quantity,
		Note:     textOrNull(arg.Note),
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("update order item: %w", err)
	}

	if err := s.recalcTotal(ctx, store, arg.OrderID); err != nil {
		return nil, err
	}

	row, err := store.GetOrderItemWithDish(ctx, item.ID)
	if err != nil {
		return nil, fmt.Errorf("load order item: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return &row, nil
}

// RemoveItem deletes a line item and re-derives the order total.
func (s *OrderService) RemoveItem(ctx context.Context, orderID, itemID uuid.UUID) error {
	s.locks.lock(orderID)
	defer s.locks.unlock(orderID)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	if err := s.checkEditable(ctx, store, orderID); err != nil {
		return err
	}

	if _, err := store.DeleteOrderItem(ctx, database.DeleteOrderItemParams{
		ID:      itemID,
		OrderID: orderID,
	}); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrItemNotFound
		}
		return fmt.Errorf("delete order item: %w", err)
	}

	if err := s.recalcTotal(ctx, store, orderID); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// CopyItems merges every line item of the source order into the target order.
// Quantities combine on matching dishes; otherwise the item is cloned with its
// frozen price and note, with is_random always cleared. The whole merge plus
// the target's total recomputation commits atomically. Returns the number of
// source items processed.
func (s *OrderService) CopyItems(ctx context.Context, sourceID, targetID uuid.UUID) (int, error) {
	if sourceID == targetID {
		return 0, ErrSameOrder
	}

	// Only the target's items change; reading the source needs no lock.
	s.locks.lock(targetID)
	defer s.locks.unlock(targetID)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	if err := s.checkEditable(ctx, store, targetID); err != nil {
		return 0, err
	}

	sourceItems, err := store.ListOrderItemsByOrder(ctx, sourceID)
	if err != nil {
		return 0, fmt.Errorf("list source items: %w", err)
	}
	if len(sourceItems) == 0 {
		return 0, ErrEmptySourceOrder
	}

	for _, src := range sourceItems {
		existing, err := store.GetOrderItemByDish(ctx, database.GetOrderItemByDishParams{
			OrderID: targetID,
			DishID:  src.DishID,
		})
		switch {
		case err == nil:
			if _, err := store.AddOrderItemQuantity(ctx, database.AddOrderItemQuantityParams{
				ID:     existing.ID,
				Amount: src.Quantity,
			}); err != nil {
				return 0, fmt.Errorf("increment target item: %w", err)
			}
		case errors.Is(err, pgx.ErrNoRows):
			if _, err := store.CreateOrderItem(ctx, database.CreateOrderItemParams{
				OrderID:  targetID,
				DishID:   src.DishID,
				Quantity: src.Quantity,
				Price:    src.Price,
				IsRandom: false,
				Note:     src.Note,
			}); err != nil {
				return 0, fmt.Errorf("clone target item: %w", err)
			}
		default:
			return 0, fmt.Errorf("find target item: %w", err)
		}
	}

	if err := s.recalcTotal(ctx, store, targetID); err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit tx: %w", err)
	}
	return len(sourceItems), nil
}

// checkEditable verifies the order exists and still accepts item mutations.
func (s *OrderService) checkEditable(ctx context.Context, store OrderStore, orderID uuid.UUID) error {
	order, err := store.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrOrderNotFound
		}
		return fmt.Errorf("get order: %w", err)
	}
	if order.Status != enum.OrderStatusInProgress {
		return fmt.Errorf("%w (status %s)", ErrOrderNotEditable, order.Status)
	}
	return nil
}

// recalcTotal re-reads the order's items, sums price*quantity, and persists
// the result. Must run inside the same transaction as the item mutation.
func (s *OrderService) recalcTotal(ctx context.Context, store OrderStore, orderID uuid.UUID) error {
	items, err := store.ListOrderItemsByOrder(ctx, orderID)
	if err != nil {
		return fmt.Errorf("list order items: %w", err)
	}

	total := decimal.Zero
	for _, item := range items {
		price := numericToDecimal(item.Price)
		total = total.Add(price.Mul(decimal.NewFromInt32(item.Quantity)))
	}

	if _, err := store.UpdateOrderTotal(ctx, database.UpdateOrderTotalParams{
		ID:         orderID,
		TotalPrice: decimalToNumeric(total),
	}); err != nil {
		return fmt.Errorf("update order total: %w", err)
	}
	return nil
}

// --- Helpers ---

func textOrNull(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: s, Valid: true}
}

// numericToDecimal converts a pgtype.Numeric to a decimal, treating any
// invalid value as zero.
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

// decimalToNumeric converts a decimal to pgtype.Numeric at the currency's
// two-decimal precision.
func decimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(d.StringFixed(2))
	return n
}
