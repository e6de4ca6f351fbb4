package reports

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/salonpos/salonpos/internal/inventory"
	"github.com/salonpos/salonpos/internal/shared"
)

// ErrInvalidRange indicates a window whose end is not after its start.
var ErrInvalidRange = shared.NewValidationError("to", "must be after from")

// Service coordinates report queries with the cache layer.
type Service struct {
	repo   Repository
	cache  *Cache
	logger *slog.Logger
}

// NewService wires a Repository with a Cache helper.
func NewService(repo Repository, cache *Cache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, cache: cache, logger: logger}
}

func validRange(r Range) error {
	if r.From.IsZero() || r.To.IsZero() || !r.To.After(r.From) {
		return ErrInvalidRange
	}
	return nil
}

// SalesSummary totals revenue, commission, owner share and COGS of sales in r.
func (s *Service) SalesSummary(ctx context.Context, r Range) (SalesSummary, error) {
	if err := validRange(r); err != nil {
		return SalesSummary{}, err
	}
	key, err := s.cache.BuildKey(ctx, "sales_summary", r.token())
	if err != nil {
		return SalesSummary{}, err
	}
	return fetch(ctx, s.cache, key, func(ctx context.Context) (SalesSummary, error) {
		return s.repo.SalesTotals(ctx, r)
	})
}

// EmployeeCommissions lists per-employee revenue and commission in r.
func (s *Service) EmployeeCommissions(ctx context.Context, r Range) ([]EmployeeCommission, error) {
	if err := validRange(r); err != nil {
		return nil, err
	}
	key, err := s.cache.BuildKey(ctx, "employee_commissions", r.token())
	if err != nil {
		return nil, err
	}
	return fetch(ctx, s.cache, key, func(ctx context.Context) ([]EmployeeCommission, error) {
		rows, err := s.repo.EmployeeCommissions(ctx, r)
		if rows == nil {
			rows = []EmployeeCommission{}
		}
		return rows, err
	})
}

// InventoryValuation values every stock-tracked item at stock × average cost.
func (s *Service) InventoryValuation(ctx context.Context) (InventoryValuation, error) {
	key, err := s.cache.BuildKey(ctx, "inventory_valuation")
	if err != nil {
		return InventoryValuation{}, err
	}
	return fetch(ctx, s.cache, key, func(ctx context.Context) (InventoryValuation, error) {
		rows, err := s.repo.InventoryValuation(ctx)
		if err != nil {
			return InventoryValuation{}, err
		}
		out := InventoryValuation{Items: make([]ValuationRow, 0, len(rows)), Total: decimal.Zero}
		for _, row := range rows {
			row.Value = row.AverageCost.Mul(decimal.NewFromInt(row.Stock)).Round(inventory.MoneyScale)
			out.Total = out.Total.Add(row.Value)
			out.Items = append(out.Items, row)
		}
		return out, nil
	})
}

// ExpenseSummary totals expenses per category in r.
func (s *Service) ExpenseSummary(ctx context.Context, r Range) (ExpenseSummary, error) {
	if err := validRange(r); err != nil {
		return ExpenseSummary{}, err
	}
	key, err := s.cache.BuildKey(ctx, "expenses", r.token())
	if err != nil {
		return ExpenseSummary{}, err
	}
	return fetch(ctx, s.cache, key, func(ctx context.Context) (ExpenseSummary, error) {
		lines, err := s.repo.ExpenseTotals(ctx, r)
		if err != nil {
			return ExpenseSummary{}, err
		}
		return expenseSummary(r, lines), nil
	})
}

func expenseSummary(r Range, lines []ExpenseLine) ExpenseSummary {
	out := ExpenseSummary{Range: r, Lines: lines, Total: decimal.Zero}
	if out.Lines == nil {
		out.Lines = []ExpenseLine{}
	}
	for _, l := range lines {
		out.Total = out.Total.Add(l.Total)
	}
	return out
}

// ProfitAndLoss computes revenue − COGS − expenses for r. COGS includes every
// Usage in the window, not only the ones produced by sales.
func (s *Service) ProfitAndLoss(ctx context.Context, r Range) (ProfitAndLoss, error) {
	if err := validRange(r); err != nil {
		return ProfitAndLoss{}, err
	}
	key, err := s.cache.BuildKey(ctx, "profit_and_loss", r.token())
	if err != nil {
		return ProfitAndLoss{}, err
	}
	return fetch(ctx, s.cache, key, func(ctx context.Context) (ProfitAndLoss, error) {
		var (
			sales    SalesSummary
			cogs     decimal.Decimal
			expenses []ExpenseLine
		)
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			sales, err = s.repo.SalesTotals(gctx, r)
			return err
		})
		g.Go(func() error {
			var err error
			cogs, err = s.repo.UsageCOGS(gctx, r)
			return err
		})
		g.Go(func() error {
			var err error
			expenses, err = s.repo.ExpenseTotals(gctx, r)
			return err
		})
		if err := g.Wait(); err != nil {
			return ProfitAndLoss{}, err
		}
		exp := expenseSummary(r, expenses).Total
		gross := sales.Revenue.Sub(cogs)
		return ProfitAndLoss{
			Range:       r,
			Revenue:     sales.Revenue,
			COGS:        cogs,
			GrossProfit: gross,
			Expenses:    exp,
			NetProfit:   gross.Sub(exp),
		}, nil
	})
}

// DailySales returns revenue per UTC day in r. Days without sales are omitted.
func (s *Service) DailySales(ctx context.Context, r Range) ([]DailyPoint, error) {
	if err := validRange(r); err != nil {
		return nil, err
	}
	key, err := s.cache.BuildKey(ctx, "daily_sales", r.token())
	if err != nil {
		return nil, err
	}
	return fetch(ctx, s.cache, key, func(ctx context.Context) ([]DailyPoint, error) {
		rows, err := s.repo.DailySales(ctx, r)
		if rows == nil {
			rows = []DailyPoint{}
		}
		return rows, err
	})
}

// Invalidate bumps the cache version, logging instead of failing.
func (s *Service) Invalidate(ctx context.Context, reason string) {
	if err := s.cache.Bump(ctx); err != nil {
		s.logger.Warn("report cache bump failed", slog.String("reason", reason), slog.Any("error", err))
	}
}

// HandleUsageClamped is a no-op; the ledger change that follows bumps the cache.
func (s *Service) HandleUsageClamped(context.Context, inventory.UsageClampedEvent) {}

// HandleLedgerChanged drops cached reports that read stock or COGS.
func (s *Service) HandleLedgerChanged(ctx context.Context, evt inventory.LedgerChangedEvent) {
	s.Invalidate(ctx, "ledger:"+evt.Reason)
}

// MonthToDate returns the window from the first day of now's month to the start of tomorrow.
func MonthToDate(now time.Time) Range {
	now = now.UTC()
	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
	return Range{From: from, To: to}
}
