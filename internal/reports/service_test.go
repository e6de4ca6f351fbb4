package reports

import (
	"bytes"
	"context"
	"log/slog"
	"mime"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/salonpos/salonpos/internal/inventory"
	"github.com/salonpos/salonpos/internal/rbac"
	"github.com/salonpos/salonpos/internal/shared"
)

type mockRepo struct {
	mu         sync.Mutex
	calls      map[string]int
	sales      SalesSummary
	employees  []EmployeeCommission
	valuation  []ValuationRow
	expenses   []ExpenseLine
	usageCOGS  decimal.Decimal
	daily      []DailyPoint
	salesError error
}

func (m *mockRepo) hit(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.calls == nil {
		m.calls = map[string]int{}
	}
	m.calls[name]++
}

func (m *mockRepo) count(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[name]
}

func (m *mockRepo) SalesTotals(ctx context.Context, r Range) (SalesSummary, error) {
	m.hit("sales")
	out := m.sales
	out.Range = r
	return out, m.salesError
}

func (m *mockRepo) EmployeeCommissions(ctx context.Context, r Range) ([]EmployeeCommission, error) {
	m.hit("employees")
	return m.employees, nil
}

func (m *mockRepo) InventoryValuation(ctx context.Context) ([]ValuationRow, error) {
	m.hit("valuation")
	return m.valuation, nil
}

func (m *mockRepo) ExpenseTotals(ctx context.Context, r Range) ([]ExpenseLine, error) {
	m.hit("expenses")
	return m.expenses, nil
}

func (m *mockRepo) UsageCOGS(ctx context.Context, r Range) (decimal.Decimal, error) {
	m.hit("cogs")
	return m.usageCOGS, nil
}

func (m *mockRepo) DailySales(ctx context.Context, r Range) ([]DailyPoint, error) {
	m.hit("daily")
	return m.daily, nil
}

func newTestService(t *testing.T, repo Repository) (*Service, *Cache) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	cache := NewCache(client, time.Minute)
	return NewService(repo, cache, nil), cache
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func requireDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.Truef(t, dec(want).Equal(got), "want %s, got %s", want, got)
}

var march = Range{
	From: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	To:   time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
}

func TestSalesSummaryCachesUntilBump(t *testing.T) {
	repo := &mockRepo{sales: SalesSummary{SaleCount: 4, Revenue: dec("500"), Commission: dec("62.5"), COGS: dec("40.25")}}
	svc, cache := newTestService(t, repo)
	ctx := context.Background()

	first, err := svc.SalesSummary(ctx, march)
	require.NoError(t, err)
	second, err := svc.SalesSummary(ctx, march)
	require.NoError(t, err)
	require.Equal(t, 1, repo.count("sales"))
	require.EqualValues(t, 4, second.SaleCount)
	requireDecimal(t, "500", second.Revenue)
	requireDecimal(t, first.COGS.String(), second.COGS)

	require.NoError(t, cache.Bump(ctx))
	_, err = svc.SalesSummary(ctx, march)
	require.NoError(t, err)
	require.Equal(t, 2, repo.count("sales"))

	svc.HandleLedgerChanged(ctx, inventory.LedgerChangedEvent{ItemID: 1, Reason: "USAGE"})
	_, err = svc.SalesSummary(ctx, march)
	require.NoError(t, err)
	require.Equal(t, 3, repo.count("sales"))
}

func TestLoaderErrorsAreNotCached(t *testing.T) {
	repo := &mockRepo{salesError: context.DeadlineExceeded}
	svc, _ := newTestService(t, repo)
	ctx := context.Background()

	_, err := svc.SalesSummary(ctx, march)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	repo.salesError = nil
	_, err = svc.SalesSummary(ctx, march)
	require.NoError(t, err)
	require.Equal(t, 2, repo.count("sales"))
}

func TestProfitAndLoss(t *testing.T) {
	repo := &mockRepo{
		sales:     SalesSummary{Revenue: dec("500")},
		usageCOGS: dec("120.50"),
		expenses: []ExpenseLine{
			{CategoryID: 5, Category: "Rent", Total: dec("100")},
			{CategoryID: 6, Category: "Utilities", Total: dec("50")},
		},
	}
	svc := NewService(repo, NewCache(nil, time.Minute), nil)

	pl, err := svc.ProfitAndLoss(context.Background(), march)
	require.NoError(t, err)
	requireDecimal(t, "500", pl.Revenue)
	requireDecimal(t, "120.50", pl.COGS)
	requireDecimal(t, "379.50", pl.GrossProfit)
	requireDecimal(t, "150", pl.Expenses)
	requireDecimal(t, "229.50", pl.NetProfit)
	require.Equal(t, 1, repo.count("sales"))
	require.Equal(t, 1, repo.count("cogs"))
	require.Equal(t, 1, repo.count("expenses"))
}

func TestInventoryValuation(t *testing.T) {
	repo := &mockRepo{valuation: []ValuationRow{
		{ItemID: 1, Name: "Argan Shampoo", Stock: 120, AverageCost: dec("8.6667")},
		{ItemID: 2, Name: "Hair Mask", Stock: 3, AverageCost: dec("8.6667")},
		{ItemID: 3, Name: "Serum", Stock: 0, AverageCost: dec("4")},
	}}
	svc, _ := newTestService(t, repo)

	out, err := svc.InventoryValuation(context.Background())
	require.NoError(t, err)
	require.Len(t, out.Items, 3)
	requireDecimal(t, "1040.00", out.Items[0].Value)
	requireDecimal(t, "26.00", out.Items[1].Value)
	requireDecimal(t, "0", out.Items[2].Value)
	requireDecimal(t, "1066.00", out.Total)
}

func TestExpenseSummaryEmpty(t *testing.T) {
	svc, _ := newTestService(t, &mockRepo{})
	out, err := svc.ExpenseSummary(context.Background(), march)
	require.NoError(t, err)
	require.NotNil(t, out.Lines)
	requireDecimal(t, "0", out.Total)
}

func TestInvalidRange(t *testing.T) {
	svc, _ := newTestService(t, &mockRepo{})
	_, err := svc.DailySales(context.Background(), Range{From: march.To, To: march.From})
	require.ErrorIs(t, err, shared.ErrValidation)
	_, err = svc.ProfitAndLoss(context.Background(), Range{})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestMonthToDate(t *testing.T) {
	r := MonthToDate(time.Date(2024, 3, 31, 22, 15, 0, 0, time.UTC))
	require.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), r.From)
	require.Equal(t, time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), r.To)
}

func TestListenForInvalidation(t *testing.T) {
	_, cache := newTestService(t, &mockRepo{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan int64, 1)
	require.NoError(t, cache.ListenForInvalidation(ctx, func(v int64) { got <- v }))
	require.NoError(t, cache.Bump(ctx))

	select {
	case v := <-got:
		require.EqualValues(t, 1, v)
	case <-time.After(2 * time.Second):
		t.Fatal("no invalidation received")
	}
}

func TestWriteDailySalesXLSX(t *testing.T) {
	points := []DailyPoint{
		{Date: time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC), Sales: 3, Revenue: dec("150.5")},
		{Date: time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), Sales: 1, Revenue: dec("40")},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteDailySalesXLSX(&buf, march, points))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	raw := excelize.Options{RawCellValue: true}
	cell := func(name string) string {
		v, err := f.GetCellValue(DailySalesSheet, name, raw)
		require.NoError(t, err)
		return v
	}
	require.Equal(t, "Date", cell("A1"))
	require.Equal(t, "2024-03-09", cell("A2"))
	require.Equal(t, "150.5", cell("C2"))
	require.Equal(t, "Total", cell("A4"))
	require.Equal(t, "4", cell("B4"))
	require.Equal(t, "190.5", cell("C4"))
}

func TestHandlerAdminOnly(t *testing.T) {
	repo := &mockRepo{sales: SalesSummary{SaleCount: 2, Revenue: dec("90")}}
	svc, _ := newTestService(t, repo)
	h := NewHandler(slog.Default(), svc, rbac.Middleware{})
	r := chi.NewRouter()
	r.Route("/api/reports", h.MountRoutes)

	staff := shared.ContextWithActor(context.Background(), shared.Actor{UserID: 2, Role: shared.RoleStaff})
	admin := shared.ContextWithActor(context.Background(), shared.Actor{UserID: 1, Role: shared.RoleAdmin})

	req := httptest.NewRequest(http.MethodGet, "/api/reports/sales-summary?from=2024-03-01&to=2024-03-31", nil).WithContext(staff)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusForbidden, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/reports/sales-summary?from=2024-03-01&to=2024-03-31", nil).WithContext(admin)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Contains(t, rec.Body.String(), `"sale_count":2`)
	require.Contains(t, rec.Body.String(), `"to":"2024-04-01T00:00:00Z"`)

	req = httptest.NewRequest(http.MethodGet, "/api/reports/profit-and-loss?from=March", nil).WithContext(admin)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/reports/daily-sales.xlsx?from=2024-03-01&to=2024-03-31", nil).WithContext(admin)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Header().Get("Content-Disposition"), "daily-sales-20240301.xlsx")
	require.Equal(t, XLSXContentType, rec.Header().Get("Content-Type"))
	require.Equal(t, XLSXContentType, mime.TypeByExtension(".xlsx"))
}
