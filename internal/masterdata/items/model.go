package items

import (
	"time"

	"github.com/shopspring/decimal"
)

// Item is a sellable product or service. Stock and AverageCost are owned by
// the inventory engine and are read-only here.
type Item struct {
	ID           int64           `json:"id"`
	Name         string          `json:"name"`
	CategoryID   int64           `json:"category_id"`
	CategoryName string          `json:"category_name"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	IsService    bool            `json:"is_service"`
	Stock        int64           `json:"stock"`
	AverageCost  decimal.Decimal `json:"average_cost"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

type Request struct {
	Name       string          `json:"name" validate:"required,max=200"`
	CategoryID int64           `json:"category_id" validate:"required,gt=0"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	IsService  bool            `json:"is_service"`
}

// Filter narrows item listings.
type Filter struct {
	CategoryID int64
	IsService  *bool
}
