package items

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/salonpos/salonpos/internal/masterdata/categories"
	mdshared "github.com/salonpos/salonpos/internal/masterdata/shared"
	"github.com/salonpos/salonpos/internal/rbac"
	"github.com/salonpos/salonpos/internal/shared"
)

type memoryRepo struct {
	rows    map[int64]Item
	records map[int64]int
	kinds   map[int64]categories.Kind
	nextID  int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		rows:    map[int64]Item{},
		records: map[int64]int{},
		kinds:   map[int64]categories.Kind{1: categories.KindItem, 2: categories.KindExpense},
	}
}

func (m *memoryRepo) List(ctx context.Context, filters shared.ListFilters, filter Filter) ([]Item, int, error) {
	var out []Item
	for _, it := range m.rows {
		out = append(out, it)
	}
	return out, len(out), nil
}

func (m *memoryRepo) Get(ctx context.Context, id int64) (Item, error) {
	it, ok := m.rows[id]
	if !ok {
		return Item{}, mdshared.NotFound("item")
	}
	return it, nil
}

func (m *memoryRepo) Create(ctx context.Context, it Item) (Item, error) {
	m.nextID++
	it.ID = m.nextID
	m.rows[it.ID] = it
	return it, nil
}

func (m *memoryRepo) Update(ctx context.Context, id int64, it Item) (Item, error) {
	current := m.rows[id]
	current.Name, current.CategoryID, current.UnitPrice, current.IsService = it.Name, it.CategoryID, it.UnitPrice, it.IsService
	m.rows[id] = current
	return current, nil
}

func (m *memoryRepo) Delete(ctx context.Context, id int64) error {
	delete(m.rows, id)
	return nil
}

func (m *memoryRepo) CountRecords(ctx context.Context, id int64) (int, error) {
	return m.records[id], nil
}

func (m *memoryRepo) CategoryKind(ctx context.Context, categoryID int64) (categories.Kind, error) {
	return m.kinds[categoryID], nil
}

func TestCreateRequiresItemCategory(t *testing.T) {
	svc := NewService(newMemoryRepo())
	ctx := context.Background()

	_, err := svc.Create(ctx, Request{Name: "Gel", CategoryID: 2, UnitPrice: decimal.NewFromInt(5)})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.Create(ctx, Request{Name: "Gel", CategoryID: 9})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.Create(ctx, Request{Name: "Gel", CategoryID: 1, UnitPrice: decimal.NewFromInt(-1)})
	require.ErrorIs(t, err, shared.ErrValidation)

	it, err := svc.Create(ctx, Request{Name: " Styling  Gel ", CategoryID: 1, UnitPrice: decimal.RequireFromString("12.499")})
	require.NoError(t, err)
	require.Equal(t, "Styling Gel", it.Name)
	require.Equal(t, "12.5", it.UnitPrice.String())
}

func TestSwitchToServiceBlockedByHistory(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)
	ctx := context.Background()

	it, err := svc.Create(ctx, Request{Name: "Shampoo", CategoryID: 1})
	require.NoError(t, err)
	repo.records[it.ID] = 1

	_, err = svc.Update(ctx, it.ID, Request{Name: "Shampoo", CategoryID: 1, IsService: true})
	require.ErrorIs(t, err, ErrServiceWithHistory)
	require.False(t, repo.rows[it.ID].IsService)

	repo.records[it.ID] = 0
	updated, err := svc.Update(ctx, it.ID, Request{Name: "Shampoo wash", CategoryID: 1, IsService: true})
	require.NoError(t, err)
	require.True(t, updated.IsService)
}

func TestUpdateNeverTouchesLedger(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)
	ctx := context.Background()

	it, err := svc.Create(ctx, Request{Name: "Serum", CategoryID: 1})
	require.NoError(t, err)
	stored := repo.rows[it.ID]
	stored.Stock, stored.AverageCost = 7, decimal.RequireFromString("3.25")
	repo.rows[it.ID] = stored

	updated, err := svc.Update(ctx, it.ID, Request{Name: "Serum XL", CategoryID: 1, UnitPrice: decimal.NewFromInt(20)})
	require.NoError(t, err)
	require.Equal(t, int64(7), updated.Stock)
	require.Equal(t, "3.25", updated.AverageCost.String())
}

func TestDeleteReferencedItem(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)
	ctx := context.Background()

	it, err := svc.Create(ctx, Request{Name: "Serum", CategoryID: 1})
	require.NoError(t, err)
	repo.records[it.ID] = 2
	require.ErrorIs(t, svc.Delete(ctx, it.ID), shared.ErrInvalidOperation)
}

func TestCreateRejectsStockField(t *testing.T) {
	h := NewHandler(nil, NewService(newMemoryRepo()), rbac.Middleware{})
	r := chi.NewRouter()
	r.Route("/api/items", h.MountRoutes)

	req := httptest.NewRequest(http.MethodPost, "/api/items/", strings.NewReader(`{"name":"Gel","category_id":1,"stock":50}`))
	req = req.WithContext(shared.ContextWithActor(req.Context(), shared.Actor{UserID: 1, Role: shared.RoleAdmin}))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
