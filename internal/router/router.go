package router

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/teamdine/api/internal/config"
	"github.com/teamdine/api/internal/database"
	"github.com/teamdine/api/internal/handler"
	"github.com/teamdine/api/internal/service"
	"github.com/teamdine/api/internal/ws"
)

// New creates a Chi router with all application routes wired up.
func New(cfg *config.Config, queries *database.Queries, pool *pgxpool.Pool, hub *ws.Hub, loc *time.Location) chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000"}, // Next.js dev server
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","version":"1.0.0"}`))
	})

	// WebSocket subscriptions for per-order change events
	r.Get("/ws/orders/{id}", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(hub, w, r)
	})

	notify := func(orderID uuid.UUID, eventType string) {
		payload, _ := json.Marshal(map[string]string{"order_id": orderID.String()})
		hub.BroadcastToOrder(orderID, ws.Event{Type: eventType, Payload: payload})
	}

	// Categories
	categoryHandler := handler.NewCategoryHandler(queries)
	r.Route("/categories", categoryHandler.RegisterRoutes)

	// Dishes
	dishHandler := handler.NewDishHandler(queries)
	r.Route("/dishes", dishHandler.RegisterRoutes)

	// Orders and their line items
	orderService := service.NewOrderService(pool, func(db database.DBTX) service.OrderStore {
		return database.New(db)
	})
	orderHandler := handler.NewOrderHandler(queries, loc, notify)
	itemHandler := handler.NewOrderItemHandler(orderService, notify)
	r.Route("/orders", func(r chi.Router) {
		orderHandler.RegisterRoutes(r)
		itemHandler.RegisterRoutes(r)
	})

	return r
}
