package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/teamdine/api/internal/database"
	"github.com/teamdine/api/internal/enum"
)

// OrderStore defines the database methods needed by order handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type OrderStore interface {
	ListOrders(ctx context.Context, arg database.ListOrdersParams) ([]database.ListOrdersRow, error)
	CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
	UpdateOrder(ctx context.Context, arg database.UpdateOrderParams) (database.Order, error)
	DeleteOrder(ctx context.Context, id uuid.UUID) (uuid.UUID, error)
	ListOrderItemsWithDish(ctx context.Context, orderID uuid.UUID) ([]database.OrderItemWithDishRow, error)
}

// Notify is called after a successful order mutation so interested clients
// (the per-order WebSocket room) learn about the change. May be nil.
type Notify func(orderID uuid.UUID, eventType string)

// OrderHandler handles order CRUD endpoints.
type OrderHandler struct {
	store  OrderStore
	loc    *time.Location
	notify Notify
}

// NewOrderHandler creates a new OrderHandler. loc is the business time zone
// used to resolve calendar-day filters.
func NewOrderHandler(store OrderStore, loc *time.Location, notify Notify) *OrderHandler {
	return &OrderHandler{store: store, loc: loc, notify: notify}
}

// RegisterRoutes registers order CRUD endpoints on the given Chi router.
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
}

// --- Request / Response types ---

type createOrderRequest struct {
	OrderDate string `json:"order_date"` // RFC3339, defaults to now
	Note      string `json:"note"`
}

type updateOrderRequest struct {
	Status *string `json:"status"`
	Note   *string `json:"note"`
}

type orderResponse struct {
	ID         uuid.UUID `json:"id"`
	OrderDate  time.Time `json:"order_date"`
	Status     string    `json:"status"`
	TotalPrice string    `json:"total_price"`
	Note       *string   `json:"note"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type orderListEntry struct {
	orderResponse
	ItemCount int64 `json:"item_count"`
}

// orderDetailResponse extends orderResponse with line items for the GET
// detail endpoint.
type orderDetailResponse struct {
	orderResponse
	Items []orderItemResponse `json:"items"`
}

func toOrderResponse(o database.Order) orderResponse {
	return orderResponse{
		ID:         o.ID,
		OrderDate:  o.OrderDate,
		Status:     o.Status,
		TotalPrice: numericToString(o.TotalPrice),
		Note:       textPtr(o.Note),
		CreatedAt:  o.CreatedAt,
		UpdatedAt:  o.UpdatedAt,
	}
}

// --- Handlers ---

// List returns orders, optionally restricted to one calendar day
// (?date=YYYY-MM-DD) in the configured business time zone.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	params := database.ListOrdersParams{}

	if s := r.URL.Query().Get("date"); s != "" {
		day, err := time.ParseInLocation("2006-01-02", s, h.loc)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid date format, use YYYY-MM-DD"})
			return
		}
		params.StartDate = pgtype.Timestamptz{Time: day, Valid: true}
		params.EndDate = pgtype.Timestamptz{Time: day.AddDate(0, 0, 1), Valid: true}
	}

	orders, err := h.store.ListOrders(r.Context(), params)
	if err != nil {
		log.Printf("ERROR: list orders: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]orderListEntry, len(orders))
	for i, o := range orders {
		resp[i] = orderListEntry{
			orderResponse: toOrderResponse(o.Order),
			ItemCount:     o.ItemCount,
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// Create opens a new order in IN_PROGRESS.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	orderDate := time.Now()
	if req.OrderDate != "" {
		t, err := time.Parse(time.RFC3339, req.OrderDate)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order_date, use RFC3339"})
			return
		}
		orderDate = t
	}

	order, err := h.store.CreateOrder(r.Context(), database.CreateOrderParams{
		OrderDate: orderDate,
		Status:    enum.OrderStatusInProgress,
		Note:      textOrNull(req.Note),
	})
	if err != nil {
		log.Printf("ERROR: create order: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusCreated, toOrderResponse(order))
}

// Get returns one order with its line items (dish and category joined).
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	order, err := h.store.GetOrder(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
			return
		}
		log.Printf("ERROR: get order: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	items, err := h.store.ListOrderItemsWithDish(r.Context(), orderID)
	if err != nil {
		log.Printf("ERROR: list order items: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	itemResponses := make([]orderItemResponse, len(items))
	for i, item := range items {
		itemResponses[i] = toOrderItemResponse(item)
	}

	writeJSON(w, http.StatusOK, orderDetailResponse{
		orderResponse: toOrderResponse(order),
		Items:         itemResponses,
	})
}

// Update changes an order's status and/or note. The derived total is never
// client-writable. Omitted fields keep their current value.
func (h *OrderHandler) Update(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	var req updateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	current, err := h.store.GetOrder(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
			return
		}
		log.Printf("ERROR: get order for update: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	status := current.Status
	if req.Status != nil {
		if !isValidOrderStatus(*req.Status) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid status"})
			return
		}
		if err := validateStatusTransition(current.Status, *req.Status); err != nil {
			writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
			return
		}
		status = *req.Status
	}

	note := current.Note
	if req.Note != nil {
		note = textOrNull(*req.Note)
	}

	updated, err := h.store.UpdateOrder(r.Context(), database.UpdateOrderParams{
		ID:     orderID,
		Status: status,
		Note:   note,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
			return
		}
		log.Printf("ERROR: update order: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	if h.notify != nil {
		h.notify(orderID, "order.updated")
	}
	writeJSON(w, http.StatusOK, toOrderResponse(updated))
}

// Delete removes an order and, via cascade, its line items. Allowed in any
// status.
func (h *OrderHandler) Delete(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	_, err = h.store.DeleteOrder(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
			return
		}
		log.Printf("ERROR: delete order: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	if h.notify != nil {
		h.notify(orderID, "order.deleted")
	}
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

// --- Helpers ---

func isValidOrderStatus(s string) bool {
	switch s {
	case enum.OrderStatusInProgress, enum.OrderStatusCompleted, enum.OrderStatusCancelled:
		return true
	}
	return false
}

// allowedTransitions defines valid status transitions. COMPLETED and
// CANCELLED orders may be reopened; item mutation stays blocked until then.
var allowedTransitions = map[string][]string{
	enum.OrderStatusInProgress: {enum.OrderStatusCompleted, enum.OrderStatusCancelled},
	enum.OrderStatusCompleted:  {enum.OrderStatusInProgress},
	enum.OrderStatusCancelled:  {enum.OrderStatusInProgress},
}

// validateStatusTransition checks if the transition from current to next is
// allowed. Re-asserting the current status is a no-op and always allowed.
func validateStatusTransition(current, next string) error {
	if current == next {
		return nil
	}
	for _, s := range allowedTransitions[current] {
		if s == next {
			return nil
		}
	}
	return fmt.Errorf("cannot transition from %s to %s", current, next)
}
