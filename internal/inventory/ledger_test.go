package inventory

import (
	"math/rand"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestApplyPurchaseIntoEmptyItem(t *testing.T) {
	l, eff := Ledger{}.Apply(Movement{Type: MovementPurchase, Quantity: 12, UnitCost: d("3.5")})
	require.Equal(t, int64(12), l.Stock)
	require.True(t, l.AverageCost.Equal(d("3.5")))
	require.True(t, eff.TotalCost.Equal(d("42")))
	require.True(t, eff.COGSTotal.IsZero())
}

func TestApplyWeightedAverageAndUsage(t *testing.T) {
	l, _ := Ledger{}.Apply(Movement{Type: MovementPurchase, Quantity: 100, UnitCost: d("8")})
	l, _ = l.Apply(Movement{Type: MovementPurchase, Quantity: 50, UnitCost: d("10")})
	require.Equal(t, int64(150), l.Stock)
	require.Equal(t, "8.6667", l.AverageCost.StringFixed(4))

	l, eff := l.Apply(Movement{Type: MovementUsage, Quantity: 30, UnitCost: d("99")})
	require.Equal(t, int64(120), l.Stock)
	require.Equal(t, "8.6667", eff.UnitCost.StringFixed(4))
	require.Equal(t, "260.00", eff.TotalCost.StringFixed(2))
	require.True(t, eff.COGSTotal.Equal(eff.TotalCost))
	require.False(t, eff.Clamped)
	require.Equal(t, "8.6667", l.AverageCost.StringFixed(4))
}

func TestApplyUsageClampsAtZero(t *testing.T) {
	start := Ledger{Stock: 5, AverageCost: d("2")}
	l, eff := start.Apply(Movement{Type: MovementUsage, Quantity: 8})
	require.Equal(t, int64(0), l.Stock)
	require.True(t, eff.Clamped)
	require.Equal(t, int64(3), eff.Shortfall)
	require.Equal(t, "16.00", eff.TotalCost.StringFixed(2))
	require.True(t, l.AverageCost.Equal(d("2")))
}

func TestApplyAdjustmentKeepsAverage(t *testing.T) {
	start := Ledger{Stock: 40, AverageCost: d("1.25")}
	l, eff := start.Apply(Movement{Type: MovementAdjustment, Quantity: 7, UnitCost: d("2")})
	require.Equal(t, int64(7), l.Stock)
	require.True(t, l.AverageCost.Equal(d("1.25")))
	require.Equal(t, "14.00", eff.TotalCost.StringFixed(2))
	require.True(t, eff.COGSTotal.IsZero())

	l, _ = l.Apply(Movement{Type: MovementAdjustment, Quantity: 0})
	require.Equal(t, int64(0), l.Stock)
}

func TestApplyPurchaseZeroCostOnEmptyStock(t *testing.T) {
	l, _ := Ledger{}.Apply(Movement{Type: MovementReturn, Quantity: 4, UnitCost: decimal.Zero})
	require.Equal(t, int64(4), l.Stock)
	require.True(t, l.AverageCost.IsZero())
}

func TestReplayOrdersByDateThenID(t *testing.T) {
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	records := []Record{
		{ID: 3, Date: base.Add(2 * time.Hour), Type: MovementUsage, Quantity: 30},
		{ID: 2, Date: base, Type: MovementPurchase, Quantity: 50, TotalCost: d("500")},
		{ID: 1, Date: base, Type: MovementPurchase, Quantity: 100, TotalCost: d("800")},
	}
	l := Replay(records)
	require.Equal(t, int64(120), l.Stock)
	require.Equal(t, "8.6667", l.AverageCost.StringFixed(4))
	// input slice is untouched
	require.Equal(t, int64(3), records[0].ID)
}

func TestReplayUsageBeforePurchaseClamps(t *testing.T) {
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	l := Replay([]Record{
		{ID: 1, Date: base, Type: MovementUsage, Quantity: 10},
		{ID: 2, Date: base.Add(time.Hour), Type: MovementPurchase, Quantity: 4, TotalCost: d("8")},
	})
	require.Equal(t, int64(4), l.Stock)
	require.Equal(t, "2.0000", l.AverageCost.StringFixed(4))
}

func TestReplayFlagsCorrectsStaleClamps(t *testing.T) {
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	l, changed := ReplayFlags([]Record{
		{ID: 1, Date: base, Type: MovementPurchase, Quantity: 5, TotalCost: d("10")},
		{ID: 2, Date: base.Add(time.Hour), Type: MovementUsage, Quantity: 2, Clamped: true, Shortfall: 4},
		{ID: 3, Date: base.Add(2 * time.Hour), Type: MovementUsage, Quantity: 7},
		{ID: 4, Date: base.Add(3 * time.Hour), Type: MovementPurchase, Quantity: 1, TotalCost: d("2"), Clamped: true, Shortfall: 1},
	})
	require.Equal(t, int64(1), l.Stock)
	require.Len(t, changed, 3)

	require.Equal(t, int64(2), changed[0].ID)
	require.False(t, changed[0].Clamped)
	require.Zero(t, changed[0].Shortfall)

	require.Equal(t, int64(3), changed[1].ID)
	require.True(t, changed[1].Clamped)
	require.Equal(t, int64(4), changed[1].Shortfall)

	require.Equal(t, int64(4), changed[2].ID)
	require.False(t, changed[2].Clamped)
}

func TestReplayEmptyHistory(t *testing.T) {
	l := Replay(nil)
	require.Equal(t, int64(0), l.Stock)
	require.True(t, l.AverageCost.IsZero())
}

func TestReplayAdjustmentSetsStock(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l := Replay([]Record{
		{ID: 1, Date: base, Type: MovementPurchase, Quantity: 10, TotalCost: d("100")},
		{ID: 2, Date: base.Add(time.Hour), Type: MovementAdjustment, Quantity: 3, TotalCost: d("99")},
		{ID: 3, Date: base.Add(2 * time.Hour), Type: MovementReturn, Quantity: 2, TotalCost: d("30")},
	})
	require.Equal(t, int64(5), l.Stock)
	require.Equal(t, "10.8333", l.AverageCost.StringFixed(4))
}

// Incremental application and full replay agree on stock for any in-order
// history, and neither ever goes negative.
func TestIncrementalAndReplayStockAgree(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	types := []MovementType{MovementPurchase, MovementReturn, MovementUsage, MovementAdjustment}
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for run := 0; run < 200; run++ {
		var (
			ledger  Ledger
			records []Record
		)
		n := rng.Intn(30) + 1
		for i := 0; i < n; i++ {
			m := Movement{
				Type:     types[rng.Intn(len(types))],
				Quantity: int64(rng.Intn(50)) + 1,
				UnitCost: decimal.NewFromInt(int64(rng.Intn(2000))).Div(decimal.NewFromInt(100)),
			}
			var eff Effect
			ledger, eff = ledger.Apply(m)
			assert.GreaterOrEqual(t, ledger.Stock, int64(0))
			records = append(records, Record{
				ID:        int64(i + 1),
				Date:      base.Add(time.Duration(i) * time.Minute),
				Type:      m.Type,
				Quantity:  m.Quantity,
				UnitCost:  eff.UnitCost,
				TotalCost: eff.TotalCost,
			})
			replayed := Replay(records)
			require.GreaterOrEqual(t, replayed.Stock, int64(0))
			require.Equal(t, ledger.Stock, replayed.Stock, "run %d step %d", run, i)
		}
	}
}

func TestCosts(t *testing.T) {
	total, cogs := Costs(MovementUsage, 3, d("2.5"))
	require.Equal(t, "7.50", total.StringFixed(2))
	require.True(t, cogs.Equal(total))

	total, cogs = Costs(MovementPurchase, 3, d("2.5"))
	require.Equal(t, "7.50", total.StringFixed(2))
	require.True(t, cogs.IsZero())
}

func TestParseMovementType(t *testing.T) {
	mt, err := ParseMovementType(" usage ")
	require.NoError(t, err)
	require.Equal(t, MovementUsage, mt)

	_, err = ParseMovementType("TRANSFER")
	require.ErrorIs(t, err, ErrInvalidMovementType)
}
