package inventory

import (
	"sort"

	"github.com/shopspring/decimal"
)

const (
	// CostScale is the number of decimals kept for unit and average costs.
	CostScale int32 = 4
	// MoneyScale is the number of decimals kept for monetary totals.
	MoneyScale int32 = 2
)

// Ledger is the stock position of one item. It is a value: Apply and Replay
// return new ledgers and never mutate their receiver.
type Ledger struct {
	Stock       int64           `json:"stock"`
	AverageCost decimal.Decimal `json:"average_cost"`
}

// Equal reports whether both ledgers hold the same stock and average cost.
func (l Ledger) Equal(o Ledger) bool {
	return l.Stock == o.Stock && l.AverageCost.Equal(o.AverageCost)
}

// Movement is the ledger-relevant part of a record.
type Movement struct {
	Type     MovementType
	Quantity int64
	UnitCost decimal.Decimal
}

// Effect describes the costing outcome of applying a movement.
type Effect struct {
	UnitCost  decimal.Decimal
	TotalCost decimal.Decimal
	COGSTotal decimal.Decimal
	Clamped   bool
	Shortfall int64
}

// Apply returns the ledger after m together with the costs to store on the record.
//
// Purchase and Return blend the supplied unit cost into the weighted average.
// Usage is charged at the average in effect before the movement and never
// drives stock below zero. Adjustment overwrites stock and keeps the average.
func (l Ledger) Apply(m Movement) (Ledger, Effect) {
	qty := decimal.NewFromInt(m.Quantity)
	switch m.Type {
	case MovementPurchase, MovementReturn:
		unitCost := m.UnitCost.Round(CostScale)
		newStock := l.Stock + m.Quantity
		avg := unitCost
		if newStock > 0 {
			value := l.AverageCost.Mul(decimal.NewFromInt(l.Stock)).Add(qty.Mul(unitCost))
			avg = value.DivRound(decimal.NewFromInt(newStock), CostScale)
		}
		return Ledger{Stock: newStock, AverageCost: avg}, Effect{
			UnitCost:  unitCost,
			TotalCost: qty.Mul(unitCost).Round(MoneyScale),
			COGSTotal: decimal.Zero,
		}
	case MovementUsage:
		unitCost := l.AverageCost
		total := qty.Mul(unitCost).Round(MoneyScale)
		eff := Effect{UnitCost: unitCost, TotalCost: total, COGSTotal: total}
		newStock := l.Stock - m.Quantity
		if newStock < 0 {
			eff.Clamped = true
			eff.Shortfall = -newStock
			newStock = 0
		}
		return Ledger{Stock: newStock, AverageCost: l.AverageCost}, eff
	case MovementAdjustment:
		unitCost := m.UnitCost.Round(CostScale)
		return Ledger{Stock: m.Quantity, AverageCost: l.AverageCost}, Effect{
			UnitCost:  unitCost,
			TotalCost: qty.Mul(unitCost).Round(MoneyScale),
			COGSTotal: decimal.Zero,
		}
	default:
		return l, Effect{}
	}
}

// Replay rebuilds a ledger from zero over records in chronological order.
// The average is the weighted average of every Purchase and Return ever
// recorded; Usage and Adjustment only move stock.
func Replay(records []Record) Ledger {
	l, _ := ReplayFlags(records)
	return l
}

// ReplayFlags is Replay that also returns the records whose stored clamp
// flag or shortfall disagrees with the replayed history, already corrected.
// Only Usage records can be clamped.
func ReplayFlags(records []Record) (Ledger, []Record) {
	ordered := make([]Record, len(records))
	copy(ordered, records)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Date.Equal(ordered[j].Date) {
			return ordered[i].ID < ordered[j].ID
		}
		return ordered[i].Date.Before(ordered[j].Date)
	})

	var (
		stock, totalQty int64
		changed         []Record
	)
	totalValue := decimal.Zero
	for _, rec := range ordered {
		var (
			clamped   bool
			shortfall int64
		)
		switch rec.Type {
		case MovementPurchase, MovementReturn:
			stock += rec.Quantity
			totalValue = totalValue.Add(rec.TotalCost)
			totalQty += rec.Quantity
		case MovementUsage:
			stock -= rec.Quantity
			if stock < 0 {
				clamped, shortfall = true, -stock
				stock = 0
			}
		case MovementAdjustment:
			stock = rec.Quantity
		}
		if rec.Clamped != clamped || rec.Shortfall != shortfall {
			rec.Clamped, rec.Shortfall = clamped, shortfall
			changed = append(changed, rec)
		}
	}
	avg := decimal.Zero
	if totalQty > 0 {
		avg = totalValue.DivRound(decimal.NewFromInt(totalQty), CostScale)
	}
	return Ledger{Stock: stock, AverageCost: avg}, changed
}

// Costs recomputes the stored totals of an edited record from its own
// quantity and unit cost.
func Costs(t MovementType, qty int64, unitCost decimal.Decimal) (total, cogs decimal.Decimal) {
	unitCost = unitCost.Round(CostScale)
	total = decimal.NewFromInt(qty).Mul(unitCost).Round(MoneyScale)
	if t == MovementUsage {
		return total, total
	}
	return total, decimal.Zero
}
