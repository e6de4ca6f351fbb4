package expenses

import (
	"time"

	"github.com/shopspring/decimal"
)

// Expense is an operating cost booked against an EXPENSE category.
type Expense struct {
	ID           int64           `json:"id"`
	CategoryID   int64           `json:"category_id"`
	CategoryName string          `json:"category_name"`
	Date         time.Time       `json:"date"`
	Amount       decimal.Decimal `json:"amount"`
	Description  string          `json:"description"`
	CreatedBy    int64           `json:"created_by,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

type Request struct {
	CategoryID  int64           `json:"category_id" validate:"required,gt=0"`
	Date        string          `json:"date" validate:"required,datetime=2006-01-02"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description" validate:"max=500"`
}

// Filter narrows expense listings. To is exclusive.
type Filter struct {
	From       time.Time
	To         time.Time
	CategoryID int64
}
