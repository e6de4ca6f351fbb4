package reports

import (
	"time"

	"github.com/shopspring/decimal"
)

// Range is a reporting window; From is inclusive and To exclusive.
type Range struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

func (r Range) token() string {
	return r.From.UTC().Format(time.RFC3339) + "_" + r.To.UTC().Format(time.RFC3339)
}

// SalesSummary aggregates sales headers and lines in a range. COGS covers the
// usage records created by those sales.
type SalesSummary struct {
	Range      Range           `json:"range"`
	SaleCount  int64           `json:"sale_count"`
	Revenue    decimal.Decimal `json:"revenue"`
	Commission decimal.Decimal `json:"commission"`
	SalonOwner decimal.Decimal `json:"salon_owner"`
	COGS       decimal.Decimal `json:"cogs"`
}

// EmployeeCommission is one employee's share of the range.
type EmployeeCommission struct {
	EmployeeID int64           `json:"employee_id"`
	Name       string          `json:"name"`
	Lines      int64           `json:"lines"`
	Revenue    decimal.Decimal `json:"revenue"`
	Commission decimal.Decimal `json:"commission"`
}

// ValuationRow values one stock-tracked item at its average cost.
type ValuationRow struct {
	ItemID      int64           `json:"item_id"`
	Name        string          `json:"name"`
	Stock       int64           `json:"stock"`
	AverageCost decimal.Decimal `json:"average_cost"`
	Value       decimal.Decimal `json:"value"`
}

type InventoryValuation struct {
	Items []ValuationRow  `json:"items"`
	Total decimal.Decimal `json:"total"`
}

type ExpenseLine struct {
	CategoryID int64           `json:"category_id"`
	Category   string          `json:"category"`
	Total      decimal.Decimal `json:"total"`
}

type ExpenseSummary struct {
	Range Range           `json:"range"`
	Lines []ExpenseLine   `json:"lines"`
	Total decimal.Decimal `json:"total"`
}

// ProfitAndLoss is revenue less cost of goods consumed less expenses.
type ProfitAndLoss struct {
	Range       Range           `json:"range"`
	Revenue     decimal.Decimal `json:"revenue"`
	COGS        decimal.Decimal `json:"cogs"`
	GrossProfit decimal.Decimal `json:"gross_profit"`
	Expenses    decimal.Decimal `json:"expenses"`
	NetProfit   decimal.Decimal `json:"net_profit"`
}

type DailyPoint struct {
	Date    time.Time       `json:"date"`
	Sales   int64           `json:"sales"`
	Revenue decimal.Decimal `json:"revenue"`
}
