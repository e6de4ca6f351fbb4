package inventory

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/salonpos/salonpos/internal/shared"
)

// MovementType enumerates supported inventory movements.
type MovementType string

const (
	// MovementPurchase adds stock bought from a supplier.
	MovementPurchase MovementType = "PURCHASE"
	// MovementReturn adds stock coming back into the shelf.
	MovementReturn MovementType = "RETURN"
	// MovementUsage consumes stock, either by a sale or by salon use.
	MovementUsage MovementType = "USAGE"
	// MovementAdjustment sets stock to an absolute counted quantity.
	MovementAdjustment MovementType = "ADJUSTMENT"
)

// Valid reports whether t is one of the recognised movement types.
func (t MovementType) Valid() bool {
	switch t {
	case MovementPurchase, MovementReturn, MovementUsage, MovementAdjustment:
		return true
	}
	return false
}

// ParseMovementType normalises user input into a MovementType.
func ParseMovementType(raw string) (MovementType, error) {
	t := MovementType(strings.ToUpper(strings.TrimSpace(raw)))
	if !t.Valid() {
		return "", ErrInvalidMovementType
	}
	return t, nil
}

// Item is the inventory view of a sellable item: identity plus its ledger.
type Item struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	IsService   bool            `json:"is_service"`
	TracksStock bool            `json:"tracks_stock"`
	Stock       int64           `json:"stock"`
	AverageCost decimal.Decimal `json:"average_cost"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Ledger returns the item's current stock and average cost.
func (i Item) Ledger() Ledger {
	return Ledger{Stock: i.Stock, AverageCost: i.AverageCost}
}

// WithLedger returns a copy of the item carrying l.
func (i Item) WithLedger(l Ledger) Item {
	i.Stock = l.Stock
	i.AverageCost = l.AverageCost
	return i
}

// Record is one entry of an item's stock movement history.
type Record struct {
	ID        int64           `json:"id"`
	ItemID    int64           `json:"item_id"`
	Date      time.Time       `json:"date"`
	Type      MovementType    `json:"type"`
	Quantity  int64           `json:"quantity"`
	UnitCost  decimal.Decimal `json:"unit_cost"`
	TotalCost decimal.Decimal `json:"total_cost"`
	COGSTotal decimal.Decimal `json:"cogs_total"`
	SaleID    int64           `json:"sale_id,omitempty"`
	Clamped   bool            `json:"clamped"`
	Shortfall int64           `json:"shortfall,omitempty"`
	Note      string          `json:"note,omitempty"`
	CreatedBy int64           `json:"created_by,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// MovementInput describes a request to record a stock movement.
type MovementInput struct {
	ItemID   int64
	Type     MovementType
	Quantity int64
	UnitCost decimal.Decimal
	Date     time.Time
	Note     string
	SaleID   int64
	ActorID  int64
}

// UpdateRecordInput carries the editable fields of an existing record.
type UpdateRecordInput struct {
	ItemID   int64
	Type     MovementType
	Quantity int64
	UnitCost decimal.Decimal
	Date     time.Time
	Note     string
	ActorID  int64
}

// MovementResult is returned by every write: the stored record and the refreshed item.
type MovementResult struct {
	Record Record `json:"record"`
	Item   Item   `json:"item"`
	Before Ledger `json:"-"`
}

// COGS is the cost attributed to consuming quantity units at the current average cost.
type COGS struct {
	ItemID    int64           `json:"item_id"`
	Quantity  int64           `json:"quantity"`
	UnitCost  decimal.Decimal `json:"unit_cost"`
	TotalCost decimal.Decimal `json:"total_cost"`
}

var (
	// ErrItemNotFound indicates the referenced item does not exist.
	ErrItemNotFound = fmt.Errorf("inventory: item %w", shared.ErrNotFound)
	// ErrRecordNotFound indicates the referenced inventory record does not exist.
	ErrRecordNotFound = fmt.Errorf("inventory: record %w", shared.ErrNotFound)
	// ErrServiceItem is returned when a stock operation targets a service.
	ErrServiceItem = fmt.Errorf("inventory: services do not carry stock: %w", shared.ErrInvalidOperation)
	// ErrInvalidMovementType indicates an unrecognised movement type.
	ErrInvalidMovementType = shared.NewValidationError("type", "must be one of PURCHASE, RETURN, USAGE, ADJUSTMENT")
	// ErrInvalidQuantity indicates a quantity outside the range allowed by the movement type.
	ErrInvalidQuantity = shared.NewValidationError("quantity", "must be > 0 (>= 0 for ADJUSTMENT)")
	// ErrInvalidUnitCost indicates a negative unit cost.
	ErrInvalidUnitCost = shared.NewValidationError("unit_cost", "must be >= 0")
	// ErrItemRequired indicates a missing item id.
	ErrItemRequired = shared.NewValidationError("item_id", "is required")
)

func validateMovement(itemID int64, t MovementType, qty int64, unitCost decimal.Decimal) error {
	if itemID <= 0 {
		return ErrItemRequired
	}
	if !t.Valid() {
		return ErrInvalidMovementType
	}
	if qty < 0 || (qty == 0 && t != MovementAdjustment) {
		return ErrInvalidQuantity
	}
	if unitCost.IsNegative() {
		return ErrInvalidUnitCost
	}
	return nil
}
