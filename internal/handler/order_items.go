package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/teamdine/api/internal/database"
	"github.com/teamdine/api/internal/service"
)

// OrderItemServicer defines the service methods needed by item handlers.
// Satisfied by *service.OrderService; narrow interface for testability.
type OrderItemServicer interface {
	AddItem(ctx context.Context, arg service.AddItemParams) (*database.OrderItemWithDishRow, error)
	UpdateItem(ctx context.Context, arg service.UpdateItemParams) (*database.OrderItemWithDishRow, error)
	RemoveItem(ctx context.Context, orderID, itemID uuid.UUID) error
	CopyItems(ctx context.Context, sourceID, targetID uuid.UUID) (int, error)
}

// OrderItemHandler handles line-item mutation endpoints nested under orders.
type OrderItemHandler struct {
	svc    OrderItemServicer
	notify Notify
}

// NewOrderItemHandler creates a new OrderItemHandler.
func NewOrderItemHandler(svc OrderItemServicer, notify Notify) *OrderItemHandler {
	return &OrderItemHandler{svc: svc, notify: notify}
}

// RegisterRoutes registers item endpoints on the orders subrouter.
func (h *OrderItemHandler) RegisterRoutes(r chi.Router) {
	r.Post("/{id}/items", h.Add)
	r.Put("/{id}/items/{itemID}", h.Update)
	r.Delete("/{id}/items/{itemID}", h.Delete)
	r.Post("/{id}/copy", h.Copy)
}

// --- Request / Response types ---

type addItemRequest struct {
	DishID   string `json:"dish_id"`
	Quantity int32  `json:"quantity"` // defaults to 1
	IsRandom bool   `json:"is_random"`
	Note     string `json:"note"`
}

type updateItemRequest struct {
	Quantity int32  `json:"quantity"`
	Note     string `json:"note"`
}

type copyOrderRequest struct {
	TargetOrderID string `json:"target_order_id"`
}

type copyOrderResponse struct {
	Success     bool `json:"success"`
	CopiedCount int  `json:"copied_count"`
}

type orderItemDishResponse struct {
	ID       uuid.UUID            `json:"id"`
	Name     string               `json:"name"`
	Price    string               `json:"price"`
	IsActive bool                 `json:"is_active"`
	Category dishCategoryResponse `json:"category"`
}

type orderItemResponse struct {
	ID        uuid.UUID             `json:"id"`
	OrderID   uuid.UUID             `json:"order_id"`
	DishID    uuid.UUID             `json:"dish_id"`
	Quantity  int32                 `json:"quantity"`
	Price     string                `json:"price"`
	IsRandom  bool                  `json:"is_random"`
	Note      *string               `json:"note"`
	CreatedAt time.Time             `json:"created_at"`
	UpdatedAt time.Time             `json:"updated_at"`
	Dish      orderItemDishResponse `json:"dish"`
}

func toOrderItemResponse(i database.OrderItemWithDishRow) orderItemResponse {
	return orderItemResponse{
		ID:        i.ID,
		OrderID:   i.OrderID,
		DishID:    i.DishID,
		Quantity:  i.Quantity,
		Price:     numericToString(i.Price),
		IsRandom:  i.IsRandom,
		Note:      textPtr(i.Note),
		CreatedAt: i.CreatedAt,
		UpdatedAt: i.UpdatedAt,
		Dish: orderItemDishResponse{
			ID:       i.DishID,
			Name:     i.DishName,
			Price:    numericToString(i.DishPrice),
			IsActive: i.DishIsActive,
			Category: dishCategoryResponse{
				ID:   i.CategoryID,
				Name: i.CategoryName,
			},
		},
	}
}

// --- Handlers ---

// Add handles POST /orders/{id}/items.
func (h *OrderItemHandler) Add(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	var req addItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.DishID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "dish_id is required"})
		return
	}
	dishID, err := uuid.Parse(req.DishID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid dish_id"})
		return
	}

	quantity := req.Quantity
	if quantity == 0 {
		quantity = 1
	}

	item, err := h.svc.AddItem(r.Context(), service.AddItemParams{
		OrderID:  orderID,
		DishID:   dishID,
		Quantity: quantity,
		IsRandom: req.IsRandom,
		Note:     req.Note,
	})
	if err != nil {
		h.writeServiceError(w, "add order item", err)
		return
	}

	if h.notify != nil {
		h.notify(orderID, "order.updated")
	}
	writeJSON(w, http.StatusCreated, toOrderItemResponse(*item))
}

// Update handles PUT /orders/{id}/items/{itemID}.
func (h *OrderItemHandler) Update(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}
	itemID, err := uuid.Parse(chi.URLParam(r, "itemID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid item ID"})
		return
	}

	var req updateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	item, err := h.svc.UpdateItem(r.Context(), service.UpdateItemParams{
		OrderID:  orderID,
		ItemID:   itemID,
		Quantity: req.Quantity,
		Note:     req.Note,
	})
	if err != nil {
		h.writeServiceError(w, "update order item", err)
		return
	}

	if h.notify != nil {
		h.notify(orderID, "order.updated")
	}
	writeJSON(w, http.StatusOK, toOrderItemResponse(*item))
}

// Delete handles DELETE /orders/{id}/items/{itemID}.
func (h *OrderItemHandler) Delete(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}
	itemID, err := uuid.Parse(chi.URLParam(r, "itemID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid item ID"})
		return
	}

	if err := h.svc.RemoveItem(r.Context(), orderID, itemID); err != nil {
		h.writeServiceError(w, "delete order item", err)
		return
	}

	if h.notify != nil {
		h.notify(orderID, "order.updated")
	}
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

// Copy handles POST /orders/{id}/copy, merging this order's items into the
// target order named in the body.
func (h *OrderItemHandler) Copy(w http.ResponseWriter, r *http.Request) {
	sourceID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	var req copyOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.TargetOrderID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "target_order_id is required"})
		return
	}
	targetID, err := uuid.Parse(req.TargetOrderID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid target_order_id"})
		return
	}

	count, err := h.svc.CopyItems(r.Context(), sourceID, targetID)
	if err != nil {
		h.writeServiceError(w, "copy order", err)
		return
	}

	if h.notify != nil {
		h.notify(targetID, "order.updated")
	}
	writeJSON(w, http.StatusOK, copyOrderResponse{Success: true, CopiedCount: count})
}

// writeServiceError maps order service errors to status codes.
func (h *OrderItemHandler) writeServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, service.ErrOrderNotFound),
		errors.Is(err, service.ErrDishNotFound),
		errors.Is(err, service.ErrItemNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidQuantity),
		errors.Is(err, service.ErrEmptySourceOrder),
		errors.Is(err, service.ErrSameOrder):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, service.ErrOrderNotEditable):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	default:
		log.Printf("ERROR: %s: %v", op, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}
