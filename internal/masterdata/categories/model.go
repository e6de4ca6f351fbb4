package categories

import (
	"time"

	"github.com/shopspring/decimal"
)

// Kind separates item categories from expense categories.
type Kind string

const (
	KindItem    Kind = "ITEM"
	KindExpense Kind = "EXPENSE"
)

// Category groups items or expenses. Item categories carry the commission
// and salon-owner rates applied to sale lines and the stock-tracking switch.
type Category struct {
	ID             int64           `json:"id"`
	Name           string          `json:"name"`
	Kind           Kind            `json:"kind"`
	CommissionRate decimal.Decimal `json:"commission_rate"`
	SalonOwnerRate decimal.Decimal `json:"salon_owner_rate"`
	TracksStock    bool            `json:"tracks_stock"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// Request is the create/update payload.
type Request struct {
	Name           string          `json:"name" validate:"required,max=100"`
	Kind           string          `json:"kind" validate:"required"`
	CommissionRate decimal.Decimal `json:"commission_rate"`
	SalonOwnerRate decimal.Decimal `json:"salon_owner_rate"`
	TracksStock    bool            `json:"tracks_stock"`
}

// References counts the rows that point at a category.
type References struct {
	Items    int
	Expenses int
}
