package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/teamdine/api/internal/database"
)

// DishStore defines the database methods needed by dish handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type DishStore interface {
	ListDishes(ctx context.Context, arg database.ListDishesParams) ([]database.DishWithCategoryRow, error)
	GetDishWithCategory(ctx context.Context, id uuid.UUID) (database.DishWithCategoryRow, error)
	CreateDish(ctx context.Context, arg database.CreateDishParams) (database.Dish, error)
	UpdateDish(ctx context.Context, arg database.UpdateDishParams) (database.Dish, error)
	DeleteDish(ctx context.Context, id uuid.UUID) (uuid.UUID, error)
}

// DishHandler handles dish CRUD endpoints plus the random suggestion.
type DishHandler struct {
	store DishStore
}

// NewDishHandler creates a new DishHandler.
func NewDishHandler(store DishStore) *DishHandler {
	return &DishHandler{store: store}
}

// RegisterRoutes registers dish endpoints on the given Chi router.
func (h *DishHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/random", h.Random)
	r.Get("/{id}", h.Get)
	r.Post("/", h.Create)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
}

// --- Request / Response types ---

type createDishRequest struct {
	CategoryID  string `json:"category_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       string `json:"price"`
	IsActive    *bool  `json:"is_active"`
	SortOrder   int32  `json:"sort_order"`
}

type dishCategoryResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	SortOrder int32     `json:"sort_order"`
}

type dishResponse struct {
	ID          uuid.UUID            `json:"id"`
	CategoryID  uuid.UUID            `json:"category_id"`
	Name        string               `json:"name"`
	Description *string              `json:"description"`
	Price       string               `json:"price"`
	IsActive    bool                 `json:"is_active"`
	SortOrder   int32                `json:"sort_order"`
	CreatedAt   time.Time            `json:"created_at"`
	UpdatedAt   time.Time            `json:"updated_at"`
	Category    dishCategoryResponse `json:"category"`
}

func toDishResponse(d database.DishWithCategoryRow) dishResponse {
	return dishResponse{
		ID:          d.ID,
		CategoryID:  d.CategoryID,
		Name:        d.Name,
		Description: textPtr(d.Description),
		Price:       numericToString(d.Price),
		IsActive:    d.IsActive,
		SortOrder:   d.SortOrder,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
		Category: dishCategoryResponse{
			ID:        d.CategoryID,
			Name:      d.CategoryName,
			SortOrder: d.CategorySortOrder,
		},
	}
}

// --- Helpers ---

var errNegativePrice = errors.New("negative price")

func parsePrice(s string) (pgtype.Numeric, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return pgtype.Numeric{}, err
	}
	if d.IsNegative() {
		return pgtype.Numeric{}, errNegativePrice
	}
	var n pgtype.Numeric
	if err := n.Scan(d.String()); err != nil {
		return pgtype.Numeric{}, err
	}
	return n, nil
}

// listParamsFromQuery builds dish list filters from query parameters.
// Returns false (after writing the error) when category_id is malformed.
func listParamsFromQuery(w http.ResponseWriter, r *http.Request, activeOnly bool) (database.ListDishesParams, bool) {
	params := database.ListDishesParams{ActiveOnly: activeOnly}

	if s := r.URL.Query().Get("category_id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid category_id"})
			return params, false
		}
		params.CategoryID = pgtype.UUID{Bytes: id, Valid: true}
	}
	if s := r.URL.Query().Get("search"); s != "" {
		params.Search = pgtype.Text{String: s, Valid: true}
	}
	return params, true
}

// --- Handlers ---

// List returns dishes ordered by category, optionally filtered by
// category_id and a case-insensitive substring match on the name.
func (h *DishHandler) List(w http.ResponseWriter, r *http.Request) {
	params, ok := listParamsFromQuery(w, r, false)
	if !ok {
		return
	}

	dishes, err := h.store.ListDishes(r.Context(), params)
	if err != nil {
		log.Printf("ERROR: list dishes: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]dishResponse, len(dishes))
	for i, d := range dishes {
		resp[i] = toDishResponse(d)
	}

	writeJSON(w, http.StatusOK, resp)
}

// Random picks one dish uniformly at random from the active dishes matching
// the same filters as List. With nothing to pick from it reports 404 and the
// client takes no action.
func (h *DishHandler) Random(w http.ResponseWriter, r *http.Request) {
	params, ok := listParamsFromQuery(w, r, true)
	if !ok {
		return
	}

	dishes, err := h.store.ListDishes(r.Context(), params)
	if err != nil {
		log.Printf("ERROR: list dishes for random pick: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	if len(dishes) == 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no active dishes match"})
		return
	}

	pick := dishes[rand.IntN(len(dishes))]
	writeJSON(w, http.StatusOK, toDishResponse(pick))
}

// Get returns a single dish with its category.
func (h *DishHandler) Get(w http.ResponseWriter, r *http.Request) {
	dishID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid dish ID"})
		return
	}

	dish, err := h.store.GetDishWithCategory(r.Context(), dishID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "dish not found"})
			return
		}
		log.Printf("ERROR: get dish: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toDishResponse(dish))
}

// Create adds a new dish.
func (h *DishHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createDishRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}
	if req.CategoryID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "category_id is required"})
		return
	}
	categoryID, err := uuid.Parse(req.CategoryID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid category_id"})
		return
	}
	if req.Price == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "price is required"})
		return
	}
	price, err := parsePrice(req.Price)
	if err != nil {
		if errors.Is(err, errNegativePrice) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "price must be >= 0"})
		} else {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid price"})
		}
		return
	}

	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}

	dish, err := h.store.CreateDish(r.Context(), database.CreateDishParams{
		CategoryID:  categoryID,
		Name:        req.Name,
		Description: textOrNull(req.Description),
		Price:       price,
		IsActive:    isActive,
		SortOrder:   req.SortOrder,
	})
	if err != nil {
		if isForeignKeyViolation(err) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid category_id"})
			return
		}
		log.Printf("ERROR: create dish: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	full, err := h.store.GetDishWithCategory(r.Context(), dish.ID)
	if err != nil {
		log.Printf("ERROR: load created dish: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusCreated, toDishResponse(full))
}

// Update modifies an existing dish. Existing order line items keep the price
// they froze at add time.
func (h *DishHandler) Update(w http.ResponseWriter, r *http.Request) {
	dishID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid dish ID"})
		return
	}

	var req createDishRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}
	if req.CategoryID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "category_id is required"})
		return
	}
	categoryID, err := uuid.Parse(req.CategoryID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid category_id"})
		return
	}
	if req.Price == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "price is required"})
		return
	}
	price, err := parsePrice(req.Price)
	if err != nil {
		if errors.Is(err, errNegativePrice) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "price must be >= 0"})
		} else {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid price"})
		}
		return
	}

	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}

	_, err = h.store.UpdateDish(r.Context(), database.UpdateDishParams{
		ID:          dishID,
		CategoryID:  categoryID,
		Name:        req.Name,
		Description: textOrNull(req.Description),
		Price:       price,
		IsActive:    isActive,
		SortOrder:   req.SortOrder,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "dish not found"})
			return
		}
		if isForeignKeyViolation(err) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid category_id"})
			return
		}
		log.Printf("ERROR: update dish: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	full, err := h.store.GetDishWithCategory(r.Context(), dishID)
	if err != nil {
		log.Printf("ERROR: load updated dish: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toDishResponse(full))
}

// Delete removes a dish. Dishes referenced by order line items are protected
// by the referential constraint and reported as a conflict.
func (h *DishHandler) Delete(w http.ResponseWriter, r *http.Request) {
	dishID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid dish ID"})
		return
	}

	_, err = h.store.DeleteDish(r.Context(), dishID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "dish not found"})
			return
		}
		if isForeignKeyViolation(err) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "dish is referenced by order items"})
			return
		}
		log.Printf("ERROR: delete dish: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, successResponse{Success: true})
}
