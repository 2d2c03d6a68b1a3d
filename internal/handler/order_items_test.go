package handler_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/teamdine/api/internal/database"
	"github.com/teamdine/api/internal/handler"
	"github.com/teamdine/api/internal/service"
)

// --- Mock service ---

// mockItemService implements OrderItemServicer with configurable behavior.
type mockItemService struct {
	addItemFn    func(ctx context.Context, arg service.AddItemParams) (*database.OrderItemWithDishRow, error)
	updateItemFn func(ctx context.Context, arg service.UpdateItemParams) (*database.OrderItemWithDishRow, error)
	removeItemFn func(ctx context.Context, orderID, itemID uuid.UUID) error
	copyItemsFn  func(ctx context.Context, sourceID, targetID uuid.UUID) (int, error)
}

func (m *mockItemService) AddItem(ctx context.Context, arg service.AddItemParams) (*database.OrderItemWithDishRow, error) {
	return m.addItemFn(ctx, arg)
}
func (m *mockItemService) UpdateItem(ctx context.Context, arg service.UpdateItemParams) (*database.OrderItemWithDishRow, error) {
	return m.updateItemFn(ctx, arg)
}
func (m *mockItemService) RemoveItem(ctx context.Context, orderID, itemID uuid.UUID) error {
	return m.removeItemFn(ctx, orderID, itemID)
}
func (m *mockItemService) CopyItems(ctx context.Context, sourceID, targetID uuid.UUID) (int, error) {
	return m.copyItemsFn(ctx, sourceID, targetID)
}

// --- Helpers ---

func setupItemRouter(svc *mockItemService, rec *notifyRecorder) *chi.Mux {
	var notify handler.Notify
	if rec != nil {
		notify = rec.fn
	}
	h := handler.NewOrderItemHandler(svc, notify)
	r := chi.NewRouter()
	r.Route("/orders", h.RegisterRoutes)
	return r
}

func sampleItemRow(orderID uuid.UUID, quantity int32) *database.OrderItemWithDishRow {
	dishID := uuid.New()
	return &database.OrderItemWithDishRow{
		OrderItem: database.OrderItem{
			ID:        uuid.New(),
			OrderID:   orderID,
			DishID:    dishID,
			Quantity:  quantity,
			Price:     makeNumeric("30.00"),
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
		},
		DishName:     "辣子鸡丁",
		DishPrice:    makeNumeric("30.00"),
		DishIsActive: true,
		CategoryID:   uuid.New(),
		CategoryName: "精品特色",
	}
}

// --- Add tests ---

func TestItemAdd_Valid(t *testing.T) {
	orderID := uuid.New()
	dishID := uuid.New()
	rec := &notifyRecorder{}

	var captured service.AddItemParams
	svc := &mockItemService{
		addItemFn: func(ctx context.Context, arg service.AddItemParams) (*database.OrderItemWithDishRow, error) {
			captured = arg
			return sampleItemRow(arg.OrderID, arg.Quantity), nil
		},
	}

	router := setupItemRouter(svc, rec)
	rr := doRequest(t, router, "POST", "/orders/"+orderID.String()+"/items", map[string]interface{}{
		"dish_id":   dishID.String(),
		"quantity":  2,
		"is_random": true,
		"note":      "extra chili",
	})

	if rr.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusCreated, rr.Body.String())
	}
	if captured.OrderID != orderID || captured.DishID != dishID {
		t.Errorf("service params: got %+v", captured)
	}
	if captured.Quantity != 2 || !captured.IsRandom || captured.Note != "extra chili" {
		t.Errorf("service params: got %+v", captured)
	}

	resp := decodeResponse(t, rr)
	if resp["quantity"] != float64(2) {
		t.Errorf("quantity: got %v, want 2", resp["quantity"])
	}
	if resp["price"] != "30.00" {
		t.Errorf("price: got %v, want 30.00", resp["price"])
	}
	dish, ok := resp["dish"].(map[string]interface{})
	if !ok || dish["name"] != "辣子鸡丁" {
		t.Errorf("dish: got %v", resp["dish"])
	}
	if len(rec.events) != 1 || rec.events[0] != "order.updated" {
		t.Errorf("notify events: got %v, want [order.updated]", rec.events)
	}
}

func TestItemAdd_QuantityDefaultsToOne(t *testing.T) {
	var captured service.AddItemParams
	svc := &mockItemService{
		addItemFn: func(ctx context.Context, arg service.AddItemParams) (*database.OrderItemWithDishRow, error) {
			captured = arg
			return sampleItemRow(arg.OrderID, arg.Quantity), nil
		},
	}

	router := setupItemRouter(svc, nil)
	rr := doRequest(t, router, "POST", "/orders/"+uuid.New().String()+"/items", map[string]interface{}{
		"dish_id": uuid.New().String(),
	})

	if rr.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusCreated, rr.Body.String())
	}
	if captured.Quantity != 1 {
		t.Errorf("quantity: got %d, want default 1", captured.Quantity)
	}
}

func TestItemAdd_MissingDishID(t *testing.T) {
	svc := &mockItemService{}
	router := setupItemRouter(svc, nil)

	rr := doRequest(t, router, "POST", "/orders/"+uuid.New().String()+"/items", map[string]interface{}{
		"quantity": 1,
	})

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestItemAdd_InvalidOrderID(t *testing.T) {
	svc := &mockItemService{}
	router := setupItemRouter(svc, nil)

	rr := doRequest(t, router, "POST", "/orders/not-a-uuid/items", map[string]interface{}{
		"dish_id": uuid.New().String(),
	})

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestItemAdd_ServiceErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"order not found", service.ErrOrderNotFound, http.StatusNotFound},
		{"dish not found", service.ErrDishNotFound, http.StatusNotFound},
		{"invalid quantity", service.ErrInvalidQuantity, http.StatusBadRequest},
		{"order not editable", service.ErrOrderNotEditable, http.StatusConflict},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := &notifyRecorder{}
			svc := &mockItemService{
				addItemFn: func(ctx context.Context, arg service.AddItemParams) (*database.OrderItemWithDishRow, error) {
					return nil, tc.err
				},
			}
			router := setupItemRouter(svc, rec)
			rr := doRequest(t, router, "POST", "/orders/"+uuid.New().String()+"/items", map[string]interface{}{
				"dish_id": uuid.New().String(),
			})
			if rr.Code != tc.want {
				t.Fatalf("status: got %d, want %d; body: %s", rr.Code, tc.want, rr.Body.String())
			}
			if len(rec.events) != 0 {
				t.Error("no notification should fire on failure")
			}
		})
	}
}

// --- Update tests ---

func TestItemUpdate_Valid(t *testing.T) {
	orderID := uuid.New()
	itemID := uuid.New()
	rec := &notifyRecorder{}

	var captured service.UpdateItemParams
	svc := &mockItemService{
		updateItemFn: func(ctx context.Context, arg service.UpdateItemParams) (*database.OrderItemWithDishRow, error) {
			captured = arg
			return sampleItemRow(arg.OrderID, arg.Quantity), nil
		},
	}

	router := setupItemRouter(svc, rec)
	rr := doRequest(t, router, "PUT", "/orders/"+orderID.String()+"/items/"+itemID.String(), map[string]interface{}{
		"quantity": 4,
		"note":     "split across tables",
	})

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	if captured.OrderID != orderID || captured.ItemID != itemID || captured.Quantity != 4 {
		t.Errorf("service params: got %+v", captured)
	}
	if len(rec.events) != 1 || rec.events[0] != "order.updated" {
		t.Errorf("notify events: got %v", rec.events)
	}
}

func TestItemUpdate_NotFound(t *testing.T) {
	svc := &mockItemService{
		updateItemFn: func(ctx context.Context, arg service.UpdateItemParams) (*database.OrderItemWithDishRow, error) {
			return nil, service.ErrItemNotFound
		},
	}
	router := setupItemRouter(svc, nil)

	rr := doRequest(t, router, "PUT",
		"/orders/"+uuid.New().String()+"/items/"+uuid.New().String(),
		map[string]interface{}{"quantity": 1})

	if rr.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestItemUpdate_InvalidItemID(t *testing.T) {
	svc := &mockItemService{}
	router := setupItemRouter(svc, nil)

	rr := doRequest(t, router, "PUT",
		"/orders/"+uuid.New().String()+"/items/not-a-uuid",
		map[string]interface{}{"quantity": 1})

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

// --- Delete tests ---

func TestItemDelete_Valid(t *testing.T) {
	rec := &notifyRecorder{}
	svc := &mockItemService{
		removeItemFn: func(ctx context.Context, orderID, itemID uuid.UUID) error {
			return nil
		},
	}
	router := setupItemRouter(svc, rec)

	rr := doRequest(t, router, "DELETE",
		"/orders/"+uuid.New().String()+"/items/"+uuid.New().String(), nil)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	if resp := decodeResponse(t, rr); resp["success"] != true {
		t.Errorf("success: got %v, want true", resp["success"])
	}
	if len(rec.events) != 1 {
		t.Errorf("expected 1 notification, got %d", len(rec.events))
	}
}

func TestItemDelete_CompletedOrder(t *testing.T) {
	svc := &mockItemService{
		removeItemFn: func(ctx context.Context, orderID, itemID uuid.UUID) error {
			return service.ErrOrderNotEditable
		},
	}
	router := setupItemRouter(svc, nil)

	rr := doRequest(t, router, "DELETE",
		"/orders/"+uuid.New().String()+"/items/"+uuid.New().String(), nil)

	if rr.Code != http.StatusConflict {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusConflict)
	}
}

// --- Copy tests ---

func TestOrderCopy_Valid(t *testing.T) {
	sourceID := uuid.New()
	targetID := uuid.New()
	rec := &notifyRecorder{}

	svc := &mockItemService{
		copyItemsFn: func(ctx context.Context, src, tgt uuid.UUID) (int, error) {
			if src != sourceID || tgt != targetID {
				t.Errorf("copy ids: got %s -> %s, want %s -> %s", src, tgt, sourceID, targetID)
			}
			return 3, nil
		},
	}
	router := setupItemRouter(svc, rec)

	rr := doRequest(t, router, "POST", "/orders/"+sourceID.String()+"/copy", map[string]interface{}{
		"target_order_id": targetID.String(),
	})

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	resp := decodeResponse(t, rr)
	if resp["success"] != true {
		t.Errorf("success: got %v, want true", resp["success"])
	}
	if resp["copied_count"] != float64(3) {
		t.Errorf("copied_count: got %v, want 3", resp["copied_count"])
	}
	// Notification goes to the order that changed: the target.
	if len(rec.orderIDs) != 1 || rec.orderIDs[0] != targetID {
		t.Errorf("notify order ids: got %v, want [%s]", rec.orderIDs, targetID)
	}
}

func TestOrderCopy_MissingTarget(t *testing.T) {
	svc := &mockItemService{}
	router := setupItemRouter(svc, nil)

	rr := doRequest(t, router, "POST", "/orders/"+uuid.New().String()+"/copy", map[string]interface{}{})

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestOrderCopy_ServiceErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"empty source", service.ErrEmptySourceOrder, http.StatusBadRequest},
		{"same order", service.ErrSameOrder, http.StatusBadRequest},
		{"target not found", service.ErrOrderNotFound, http.StatusNotFound},
		{"target completed", service.ErrOrderNotEditable, http.StatusConflict},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &mockItemService{
				copyItemsFn: func(ctx context.Context, src, tgt uuid.UUID) (int, error) {
					return 0, tc.err
				},
			}
			router := setupItemRouter(svc, nil)
			rr := doRequest(t, router, "POST", "/orders/"+uuid.New().String()+"/copy", map[string]interface{}{
				"target_order_id": uuid.New().String(),
			})
			if rr.Code != tc.want {
				t.Fatalf("status: got %d, want %d; body: %s", rr.Code, tc.want, rr.Body.String())
			}
		})
	}
}
