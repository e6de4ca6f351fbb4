package inventory

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/salonpos/salonpos/internal/shared"
)

type memoryRepo struct {
	mu      sync.Mutex
	items   map[int64]Item
	records map[int64]Record
	nextID  int64
}

type memoryTx struct {
	repo *memoryRepo
}

func newMemoryRepo(items ...Item) *memoryRepo {
	r := &memoryRepo{items: make(map[int64]Item), records: make(map[int64]Record)}
	for _, it := range items {
		r.items[it.ID] = it
	}
	return r
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	items := make(map[int64]Item, len(r.items))
	for k, v := range r.items {
		items[k] = v
	}
	records := make(map[int64]Record, len(r.records))
	for k, v := range r.records {
		records[k] = v
	}
	nextID := r.nextID
	if err := fn(ctx, &memoryTx{repo: r}); err != nil {
		r.items, r.records, r.nextID = items, records, nextID
		return err
	}
	return nil
}

func (r *memoryRepo) GetItem(ctx context.Context, itemID int64) (Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	it, ok := r.items[itemID]
	if !ok {
		return Item{}, ErrItemNotFound
	}
	return it, nil
}

func (r *memoryRepo) GetRecord(ctx context.Context, recordID int64) (Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[recordID]
	if !ok {
		return Record{}, ErrRecordNotFound
	}
	return rec, nil
}

func (r *memoryRepo) ListRecordsByItem(ctx context.Context, itemID int64) ([]Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byItem(itemID), nil
}

func (r *memoryRepo) ListTrackedItemIDs(ctx context.Context) ([]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []int64
	for id, it := range r.items {
		if it.TracksStock && !it.IsService {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (r *memoryRepo) byItem(itemID int64) []Record {
	var out []Record
	for _, rec := range r.records {
		if rec.ItemID == itemID {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date.Equal(out[j].Date) {
			return out[i].ID < out[j].ID
		}
		return out[i].Date.Before(out[j].Date)
	})
	return out
}

func (tx *memoryTx) GetLedgerForUpdate(ctx context.Context, itemID int64) (Item, error) {
	it, ok := tx.repo.items[itemID]
	if !ok {
		return Item{}, ErrItemNotFound
	}
	return it, nil
}

func (tx *memoryTx) SetLedger(ctx context.Context, itemID int64, ledger Ledger) error {
	it, ok := tx.repo.items[itemID]
	if !ok {
		return ErrItemNotFound
	}
	tx.repo.items[itemID] = it.WithLedger(ledger)
	return nil
}

func (tx *memoryTx) InsertRecord(ctx context.Context, rec Record) (Record, error) {
	tx.repo.nextID++
	rec.ID = tx.repo.nextID
	rec.CreatedAt = rec.Date
	tx.repo.records[rec.ID] = rec
	return rec, nil
}

func (tx *memoryTx) GetRecordForUpdate(ctx context.Context, recordID int64) (Record, error) {
	rec, ok := tx.repo.records[recordID]
	if !ok {
		return Record{}, ErrRecordNotFound
	}
	return rec, nil
}

func (tx *memoryTx) UpdateRecord(ctx context.Context, rec Record) error {
	if _, ok := tx.repo.records[rec.ID]; !ok {
		return ErrRecordNotFound
	}
	tx.repo.records[rec.ID] = rec
	return nil
}

func (tx *memoryTx) DeleteRecord(ctx context.Context, recordID int64) error {
	if _, ok := tx.repo.records[recordID]; !ok {
		return ErrRecordNotFound
	}
	delete(tx.repo.records, recordID)
	return nil
}

func (tx *memoryTx) ListRecordsByItem(ctx context.Context, itemID int64) ([]Record, error) {
	return tx.repo.byItem(itemID), nil
}

func (tx *memoryTx) ListRecordsBySale(ctx context.Context, saleID int64) ([]Record, error) {
	var out []Record
	for _, rec := range tx.repo.records {
		if rec.SaleID == saleID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (tx *memoryTx) DeleteRecordsBySale(ctx context.Context, saleID int64) error {
	for id, rec := range tx.repo.records {
		if rec.SaleID == saleID {
			delete(tx.repo.records, id)
		}
	}
	return nil
}

type recordingEvents struct {
	clamped []UsageClampedEvent
	changed []LedgerChangedEvent
}

func (e *recordingEvents) HandleUsageClamped(_ context.Context, evt UsageClampedEvent) {
	e.clamped = append(e.clamped, evt)
}

func (e *recordingEvents) HandleLedgerChanged(_ context.Context, evt LedgerChangedEvent) {
	e.changed = append(e.changed, evt)
}

var day = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

func shampoo() Item     { return Item{ID: 1, Name: "Shampoo", TracksStock: true} }
func conditioner() Item { return Item{ID: 2, Name: "Conditioner", TracksStock: true} }
func haircut() Item     { return Item{ID: 3, Name: "Haircut", IsService: true} }

func newTestService(repo *memoryRepo) (*Service, *recordingEvents) {
	events := &recordingEvents{}
	return NewService(repo, nil, ServiceConfig{Events: events, Clock: func() time.Time { return day }}), events
}

func purchase(itemID, qty int64, cost string, at time.Time) MovementInput {
	return MovementInput{ItemID: itemID, Type: MovementPurchase, Quantity: qty, UnitCost: d(cost), Date: at}
}

func TestRecordMovementWeightedAverage(t *testing.T) {
	repo := newMemoryRepo(shampoo())
	svc, events := newTestService(repo)
	ctx := context.Background()

	res, err := svc.RecordMovement(ctx, purchase(1, 100, "8", day))
	require.NoError(t, err)
	require.Equal(t, int64(100), res.Item.Stock)
	require.Equal(t, "8.0000", res.Item.AverageCost.StringFixed(4))

	_, err = svc.RecordMovement(ctx, purchase(1, 50, "10", day.Add(time.Hour)))
	require.NoError(t, err)

	res, err = svc.RecordMovement(ctx, MovementInput{ItemID: 1, Type: MovementUsage, Quantity: 30, UnitCost: d("123"), Date: day.Add(2 * time.Hour)})
	require.NoError(t, err)
	require.Equal(t, int64(120), res.Item.Stock)
	require.Equal(t, "8.6667", res.Record.UnitCost.StringFixed(4))
	require.Equal(t, "260.00", res.Record.TotalCost.StringFixed(2))
	require.Equal(t, "260.00", res.Record.COGSTotal.StringFixed(2))
	require.Equal(t, "8.6667", res.Item.AverageCost.StringFixed(4))

	ledger, err := svc.Ledger(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, int64(120), ledger.Stock)
	require.Len(t, events.changed, 3)
	require.Empty(t, events.clamped)
}

func TestRecordMovementUsageClamps(t *testing.T) {
	repo := newMemoryRepo(shampoo())
	svc, events := newTestService(repo)
	ctx := context.Background()

	_, err := svc.RecordMovement(ctx, purchase(1, 5, "4", day))
	require.NoError(t, err)
	res, err := svc.RecordMovement(ctx, MovementInput{ItemID: 1, Type: MovementUsage, Quantity: 9, Date: day.Add(time.Hour)})
	require.NoError(t, err)
	require.Equal(t, int64(0), res.Item.Stock)
	require.True(t, res.Record.Clamped)
	require.Equal(t, int64(4), res.Record.Shortfall)
	require.Len(t, events.clamped, 1)
	require.Equal(t, int64(5), events.clamped[0].Available)
	require.Equal(t, int64(4), events.clamped[0].Shortfall)
}

func TestRecordMovementOnServiceIsRejected(t *testing.T) {
	repo := newMemoryRepo(haircut())
	svc, _ := newTestService(repo)

	_, err := svc.RecordMovement(context.Background(), purchase(3, 5, "4", day))
	require.ErrorIs(t, err, ErrServiceItem)
	require.ErrorIs(t, err, shared.ErrInvalidOperation)
	require.Empty(t, repo.records)
	require.Equal(t, int64(0), repo.items[3].Stock)
}

func TestRecordMovementValidation(t *testing.T) {
	repo := newMemoryRepo(shampoo())
	svc, _ := newTestService(repo)
	ctx := context.Background()

	cases := []struct {
		name  string
		input MovementInput
		want  error
	}{
		{"unknown type", MovementInput{ItemID: 1, Type: "TRANSFER", Quantity: 1}, ErrInvalidMovementType},
		{"zero purchase", MovementInput{ItemID: 1, Type: MovementPurchase, Quantity: 0}, ErrInvalidQuantity},
		{"negative adjustment", MovementInput{ItemID: 1, Type: MovementAdjustment, Quantity: -1}, ErrInvalidQuantity},
		{"negative cost", MovementInput{ItemID: 1, Type: MovementPurchase, Quantity: 1, UnitCost: d("-1")}, ErrInvalidUnitCost},
		{"missing item", MovementInput{Type: MovementPurchase, Quantity: 1}, ErrItemRequired},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.RecordMovement(ctx, tc.input)
			require.ErrorIs(t, err, tc.want)
			require.ErrorIs(t, err, shared.ErrValidation)
		})
	}

	_, err := svc.RecordMovement(ctx, purchase(99, 1, "1", day))
	require.ErrorIs(t, err, shared.ErrNotFound)

	res, err := svc.RecordMovement(ctx, MovementInput{ItemID: 1, Type: MovementAdjustment, Quantity: 0, Date: day})
	require.NoError(t, err)
	require.Equal(t, int64(0), res.Item.Stock)
}

func TestRecordMovementDefaultsDate(t *testing.T) {
	repo := newMemoryRepo(shampoo())
	svc, _ := newTestService(repo)
	res, err := svc.RecordMovement(context.Background(), MovementInput{ItemID: 1, Type: MovementPurchase, Quantity: 1, UnitCost: d("1")})
	require.NoError(t, err)
	require.True(t, res.Record.Date.Equal(day))
}

func TestDeleteRecordReproducesHistoryWithoutIt(t *testing.T) {
	ctx := context.Background()
	history := []MovementInput{
		purchase(1, 10, "5", day),
		purchase(1, 10, "7", day.Add(time.Hour)),
		{ItemID: 1, Type: MovementUsage, Quantity: 4, Date: day.Add(2 * time.Hour)},
	}

	withRepo := newMemoryRepo(shampoo())
	withSvc, _ := newTestService(withRepo)
	var ids []int64
	for _, in := range history {
		res, err := withSvc.RecordMovement(ctx, in)
		require.NoError(t, err)
		ids = append(ids, res.Record.ID)
	}
	item, err := withSvc.DeleteRecord(ctx, ids[1], 0)
	require.NoError(t, err)

	withoutRepo := newMemoryRepo(shampoo())
	withoutSvc, _ := newTestService(withoutRepo)
	for i, in := range history {
		if i == 1 {
			continue
		}
		_, err := withoutSvc.RecordMovement(ctx, in)
		require.NoError(t, err)
	}
	reconciled, err := withoutSvc.Reconcile(ctx, 1)
	require.NoError(t, err)

	require.Equal(t, reconciled.Stock, item.Stock)
	require.True(t, reconciled.AverageCost.Equal(item.AverageCost))
	require.Equal(t, int64(6), item.Stock)
	require.Equal(t, "5.0000", item.AverageCost.StringFixed(4))

	_, err = withSvc.DeleteRecord(ctx, ids[1], 0)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestUpdateRecordRecomputesTotalsAndReconciles(t *testing.T) {
	repo := newMemoryRepo(shampoo())
	svc, _ := newTestService(repo)
	ctx := context.Background()

	first, err := svc.RecordMovement(ctx, purchase(1, 10, "5", day))
	require.NoError(t, err)
	_, err = svc.RecordMovement(ctx, MovementInput{ItemID: 1, Type: MovementUsage, Quantity: 2, Date: day.Add(time.Hour)})
	require.NoError(t, err)

	res, err := svc.UpdateRecord(ctx, first.Record.ID, UpdateRecordInput{
		ItemID: 1, Type: MovementPurchase, Quantity: 20, UnitCost: d("6"), Date: day,
	})
	require.NoError(t, err)
	require.Equal(t, "120.00", res.Record.TotalCost.StringFixed(2))
	require.True(t, res.Record.COGSTotal.IsZero())
	require.Equal(t, int64(18), res.Item.Stock)
	require.Equal(t, "6.0000", res.Item.AverageCost.StringFixed(4))

	_, err = svc.UpdateRecord(ctx, 999, UpdateRecordInput{ItemID: 1, Type: MovementPurchase, Quantity: 1})
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestUpdateRecordMovesBetweenItems(t *testing.T) {
	repo := newMemoryRepo(shampoo(), conditioner())
	svc, events := newTestService(repo)
	ctx := context.Background()

	res, err := svc.RecordMovement(ctx, purchase(1, 10, "5", day))
	require.NoError(t, err)
	_, err = svc.RecordMovement(ctx, purchase(2, 3, "2", day))
	require.NoError(t, err)
	events.changed = nil

	moved, err := svc.UpdateRecord(ctx, res.Record.ID, UpdateRecordInput{ItemID: 2, Type: MovementPurchase, Quantity: 10, UnitCost: d("5"), Date: day})
	require.NoError(t, err)
	require.Equal(t, int64(13), moved.Item.Stock)
	require.Equal(t, int64(0), repo.items[1].Stock)
	require.True(t, repo.items[1].AverageCost.IsZero())
	require.Len(t, events.changed, 2)
}

func TestUpdateRecordRefreshesClampFlags(t *testing.T) {
	repo := newMemoryRepo(shampoo())
	svc, _ := newTestService(repo)
	ctx := context.Background()

	first, err := svc.RecordMovement(ctx, purchase(1, 5, "2", day))
	require.NoError(t, err)
	usage, err := svc.RecordMovement(ctx, MovementInput{ItemID: 1, Type: MovementUsage, Quantity: 9, Date: day.Add(time.Hour)})
	require.NoError(t, err)
	require.True(t, usage.Record.Clamped)
	require.Equal(t, int64(4), usage.Record.Shortfall)

	res, err := svc.UpdateRecord(ctx, usage.Record.ID, UpdateRecordInput{
		ItemID: 1, Type: MovementUsage, Quantity: 2, UnitCost: d("2"), Date: day.Add(time.Hour),
	})
	require.NoError(t, err)
	require.Equal(t, int64(3), res.Item.Stock)
	require.False(t, res.Record.Clamped)
	require.Zero(t, res.Record.Shortfall)
	require.False(t, repo.records[usage.Record.ID].Clamped)

	// shrinking the earlier purchase makes the usage fall short again
	_, err = svc.UpdateRecord(ctx, first.Record.ID, UpdateRecordInput{
		ItemID: 1, Type: MovementPurchase, Quantity: 1, UnitCost: d("2"), Date: day,
	})
	require.NoError(t, err)
	stored := repo.records[usage.Record.ID]
	require.True(t, stored.Clamped)
	require.Equal(t, int64(1), stored.Shortfall)

	// deleting the purchase leaves the whole usage unmet
	_, err = svc.DeleteRecord(ctx, first.Record.ID, 0)
	require.NoError(t, err)
	stored = repo.records[usage.Record.ID]
	require.True(t, stored.Clamped)
	require.Equal(t, int64(2), stored.Shortfall)
}

// staleRecordRepo serves a pre-transaction read that lags behind the record's
// current item.
type staleRecordRepo struct {
	*memoryRepo
	stale Record
}

func (r *staleRecordRepo) GetRecord(ctx context.Context, recordID int64) (Record, error) {
	return r.stale, nil
}

func TestUpdateRecordMovedConcurrentlyIsBusy(t *testing.T) {
	third := Item{ID: 4, Name: "Serum", TracksStock: true}
	mem := newMemoryRepo(shampoo(), conditioner(), third)
	svc, _ := newTestService(mem)
	ctx := context.Background()

	res, err := svc.RecordMovement(ctx, purchase(1, 10, "5", day))
	require.NoError(t, err)
	moved := res.Record
	moved.ItemID = 2
	mem.records[moved.ID] = moved

	racing := NewService(&staleRecordRepo{memoryRepo: mem, stale: res.Record}, nil, ServiceConfig{})
	_, err = racing.UpdateRecord(ctx, moved.ID, UpdateRecordInput{ItemID: 4, Type: MovementPurchase, Quantity: 3, UnitCost: d("1"), Date: day})
	require.ErrorIs(t, err, ErrItemBusy)
	require.ErrorIs(t, err, shared.ErrConflict)
	require.Equal(t, int64(2), mem.records[moved.ID].ItemID)
	require.Equal(t, int64(0), mem.items[4].Stock)
}

func TestUpdateRecordOntoServiceIsRejected(t *testing.T) {
	repo := newMemoryRepo(shampoo(), haircut())
	svc, _ := newTestService(repo)
	ctx := context.Background()

	res, err := svc.RecordMovement(ctx, purchase(1, 10, "5", day))
	require.NoError(t, err)
	_, err = svc.UpdateRecord(ctx, res.Record.ID, UpdateRecordInput{ItemID: 3, Type: MovementPurchase, Quantity: 10, UnitCost: d("5")})
	require.ErrorIs(t, err, shared.ErrInvalidOperation)
	require.Equal(t, int64(1), repo.records[res.Record.ID].ItemID)
	require.Equal(t, int64(10), repo.items[1].Stock)
}

func TestReconcileAllAndCOGS(t *testing.T) {
	repo := newMemoryRepo(shampoo(), conditioner(), haircut())
	svc, _ := newTestService(repo)
	ctx := context.Background()

	_, err := svc.RecordMovement(ctx, purchase(1, 4, "2.5", day))
	require.NoError(t, err)
	// drift the stored ledger so reconcile has something to repair
	repo.items[1] = repo.items[1].WithLedger(Ledger{Stock: 99, AverageCost: d("1")})

	n, err := svc.ReconcileAll(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.Equal(t, int64(4), repo.items[1].Stock)

	cogs, err := svc.CalculateCOGS(ctx, 1, 3)
	require.NoError(t, err)
	require.Equal(t, "7.50", cogs.TotalCost.StringFixed(2))

	cogs, err = svc.CalculateCOGS(ctx, 2, 3)
	require.NoError(t, err)
	require.True(t, cogs.TotalCost.IsZero())
	require.True(t, cogs.UnitCost.IsZero())

	_, err = svc.CalculateCOGS(ctx, 1, 0)
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.Reconcile(ctx, 3)
	require.ErrorIs(t, err, shared.ErrInvalidOperation)
}

func TestListRecordsByItemMissingItem(t *testing.T) {
	svc, _ := newTestService(newMemoryRepo())
	_, err := svc.ListRecordsByItem(context.Background(), 7)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestRedisLockerReportsBusyItem(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	locker := NewRedisLocker(rdb, time.Second)
	locker.retry = nil
	ctx := context.Background()

	release, err := locker.Lock(ctx, 1)
	require.NoError(t, err)
	require.True(t, mr.Exists(shared.ItemLockKey(1)))

	_, err = locker.Lock(ctx, 1)
	require.ErrorIs(t, err, ErrItemBusy)
	require.ErrorIs(t, err, shared.ErrConflict)

	release()
	require.False(t, mr.Exists(shared.ItemLockKey(1)))

	repo := newMemoryRepo(shampoo())
	svc := NewService(repo, nil, ServiceConfig{Locker: locker})
	held, err := locker.Lock(ctx, 1)
	require.NoError(t, err)
	_, err = svc.RecordMovement(ctx, MovementInput{ItemID: 1, Type: MovementPurchase, Quantity: 1, UnitCost: decimal.NewFromInt(1)})
	require.ErrorIs(t, err, shared.ErrConflict)
	held()
	_, err = svc.RecordMovement(ctx, MovementInput{ItemID: 1, Type: MovementPurchase, Quantity: 1, UnitCost: decimal.NewFromInt(1)})
	require.NoError(t, err)
}
