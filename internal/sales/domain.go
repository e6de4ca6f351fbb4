package sales

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/salonpos/salonpos/internal/shared"
)

// PaymentMethod enumerates accepted tenders.
type PaymentMethod string

const (
	PaymentCash     PaymentMethod = "CASH"
	PaymentCard     PaymentMethod = "CARD"
	PaymentTransfer PaymentMethod = "TRANSFER"
	PaymentOther    PaymentMethod = "OTHER"
)

// Sale is a completed ticket with its lines.
type Sale struct {
	ID            int64           `json:"id"`
	Code          string          `json:"code"`
	CustomerID    int64           `json:"customer_id,omitempty"`
	Date          time.Time       `json:"date"`
	Total         decimal.Decimal `json:"total"`
	PaymentMethod PaymentMethod   `json:"payment_method"`
	Note          string          `json:"note,omitempty"`
	CreatedBy     int64           `json:"created_by,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	Lines         []SaleLine      `json:"lines"`
}

// SaleLine stores the amounts and the rates in force when the sale was made.
type SaleLine struct {
	ID               int64           `json:"id"`
	SaleID           int64           `json:"sale_id"`
	ItemID           int64           `json:"item_id"`
	ItemName         string          `json:"item_name,omitempty"`
	EmployeeID       int64           `json:"employee_id"`
	Quantity         int64           `json:"quantity"`
	UnitPrice        decimal.Decimal `json:"unit_price"`
	LineTotal        decimal.Decimal `json:"line_total"`
	CommissionRate   decimal.Decimal `json:"commission_rate"`
	SalonOwnerRate   decimal.Decimal `json:"salon_owner_rate"`
	CommissionAmount decimal.Decimal `json:"commission_amount"`
	SalonOwnerAmount decimal.Decimal `json:"salon_owner_amount"`
}

// LineItem is the live item and category data a sale line is priced from.
type LineItem struct {
	ItemID         int64
	Name           string
	IsService      bool
	CategoryID     int64
	CommissionRate decimal.Decimal
	SalonOwnerRate decimal.Decimal
	TracksStock    bool
}

// StockTracked reports whether selling the item consumes inventory.
func (li LineItem) StockTracked() bool {
	return li.TracksStock && !li.IsService
}

// CreateSaleRequest is the payload accepted by CreateSale.
type CreateSaleRequest struct {
	CustomerID    *int64              `json:"customer_id" validate:"omitempty,gt=0"`
	Date          *time.Time          `json:"date"`
	Lines         []CreateLineRequest `json:"lines" validate:"required,min=1,dive"`
	Total         *decimal.Decimal    `json:"total" validate:"required"`
	PaymentMethod string              `json:"payment_method" validate:"omitempty,max=20"`
	Note          string              `json:"note" validate:"max=500"`

	IdempotencyKey string `json:"-"`
	ActorID        int64  `json:"-"`
}

// CreateLineRequest is one line of CreateSaleRequest. Total defaults to quantity × price.
type CreateLineRequest struct {
	ItemID     int64            `json:"item_id" validate:"required,gt=0"`
	EmployeeID int64            `json:"employee_id" validate:"required,gt=0"`
	Quantity   int64            `json:"quantity" validate:"required,gt=0"`
	Price      decimal.Decimal  `json:"price"`
	Total      *decimal.Decimal `json:"total"`
}

// ListFilter narrows ListSales.
type ListFilter struct {
	shared.ListFilters
	From       time.Time
	To         time.Time
	CustomerID int64
	EmployeeID int64
}

var (
	// ErrSaleNotFound indicates the sale does not exist.
	ErrSaleNotFound = fmt.Errorf("sale %w", shared.ErrNotFound)
	// ErrNoLines indicates a sale without lines.
	ErrNoLines = shared.NewValidationError("lines", "at least one line is required")
	// ErrTotalRequired indicates the sale total is missing.
	ErrTotalRequired = shared.NewValidationError("total", "is required")
)

func parsePaymentMethod(raw string) (PaymentMethod, error) {
	switch pm := PaymentMethod(raw); pm {
	case "":
		return PaymentCash, nil
	case PaymentCash, PaymentCard, PaymentTransfer, PaymentOther:
		return pm, nil
	}
	return "", shared.NewValidationError("payment_method", "must be one of CASH, CARD, TRANSFER, OTHER")
}
