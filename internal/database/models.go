package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type Category struct {
	ID          uuid.UUID
	Name        string
	Description pgtype.Text
	SortOrder   int32
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Dish struct {
	ID          uuid.UUID
	CategoryID  uuid.UUID
	Name        string
	Description pgtype.Text
	Price       pgtype.Numeric
	IsActive    bool
	SortOrder   int32
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Order struct {
	ID         uuid.UUID
	OrderDate  time.Time
	Status     string
	TotalPrice pgtype.Numeric
	Note       pgtype.Text
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type OrderItem struct {
	ID        uuid.UUID
	OrderID   uuid.UUID
	DishID    uuid.UUID
	Quantity  int32
	Price     pgtype.Numeric
	IsRandom  bool
	Note      pgtype.Text
	CreatedAt time.Time
	UpdatedAt time.Time
}
