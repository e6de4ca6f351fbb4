package inventory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/salonpos/salonpos/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetItem(ctx context.Context, itemID int64) (Item, error)
	GetRecord(ctx context.Context, recordID int64) (Record, error)
	ListRecordsByItem(ctx context.Context, itemID int64) ([]Record, error)
	ListTrackedItemIDs(ctx context.Context) ([]int64, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service is the costing engine. It is the only writer of item stock and average cost.
type Service struct {
	repo   RepositoryPort
	audit  AuditPort
	locker ItemLocker
	events EventHandler
	logger *slog.Logger
	now    func() time.Time
}

// ServiceConfig groups optional collaborators.
type ServiceConfig struct {
	Locker ItemLocker
	Events EventHandler
	Logger *slog.Logger
	Clock  func() time.Time
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort, cfg ServiceConfig) *Service {
	s := &Service{repo: repo, audit: audit, locker: cfg.Locker, events: cfg.Events, logger: cfg.Logger, now: cfg.Clock}
	if s.locker == nil {
		s.locker = noopLocker{}
	}
	if s.events == nil {
		s.events = EventHandlers(nil)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	return s
}

// LockItems acquires the cross-process locks of several items, in id order.
// Callers that write ledgers inside their own transaction (sales) hold these
// for the duration of that transaction.
func (s *Service) LockItems(ctx context.Context, itemIDs ...int64) (func(), error) {
	return lockItems(ctx, s.locker, itemIDs...)
}

// RecordMovement validates, applies and persists one movement atomically.
func (s *Service) RecordMovement(ctx context.Context, input MovementInput) (MovementResult, error) {
	if err := validateMovement(input.ItemID, input.Type, input.Quantity, input.UnitCost); err != nil {
		return MovementResult{}, err
	}
	release, err := s.LockItems(ctx, input.ItemID)
	if err != nil {
		return MovementResult{}, err
	}
	defer release()

	var result MovementResult
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		result, err = s.RecordMovementTx(ctx, tx, input)
		return err
	})
	if err != nil {
		return MovementResult{}, err
	}
	s.Notify(ctx, result)
	s.recordAudit(ctx, input.ActorID, "inventory:"+string(input.Type), result.Record.ID, map[string]any{
		"item_id":  input.ItemID,
		"quantity": input.Quantity,
		"clamped":  result.Record.Clamped,
	})
	return result, nil
}

// RecordMovementTx applies a movement inside a caller-owned transaction. The
// caller must invoke Notify with the result once the transaction commits.
func (s *Service) RecordMovementTx(ctx context.Context, tx TxRepository, input MovementInput) (MovementResult, error) {
	if err := validateMovement(input.ItemID, input.Type, input.Quantity, input.UnitCost); err != nil {
		return MovementResult{}, err
	}
	item, err := tx.GetLedgerForUpdate(ctx, input.ItemID)
	if err != nil {
		return MovementResult{}, err
	}
	if item.IsService {
		return MovementResult{}, ErrServiceItem
	}

	before := item.Ledger()
	after, eff := before.Apply(Movement{Type: input.Type, Quantity: input.Quantity, UnitCost: input.UnitCost})

	date := input.Date
	if date.IsZero() {
		date = s.now()
	}
	rec, err := tx.InsertRecord(ctx, Record{
		ItemID:    item.ID,
		Date:      date,
		Type:      input.Type,
		Quantity:  input.Quantity,
		UnitCost:  eff.UnitCost,
		TotalCost: eff.TotalCost,
		COGSTotal: eff.COGSTotal,
		SaleID:    input.SaleID,
		Clamped:   eff.Clamped,
		Shortfall: eff.Shortfall,
		Note:      input.Note,
		CreatedBy: input.ActorID,
	})
	if err != nil {
		return MovementResult{}, err
	}
	if err := tx.SetLedger(ctx, item.ID, after); err != nil {
		return MovementResult{}, err
	}
	return MovementResult{Record: rec, Item: item.WithLedger(after), Before: before}, nil
}

// Notify publishes the post-commit events of a movement.
func (s *Service) Notify(ctx context.Context, results ...MovementResult) {
	for _, res := range results {
		rec := res.Record
		if rec.Clamped {
			s.logger.Warn("inventory usage clamped at zero stock",
				slog.Int64("item_id", rec.ItemID),
				slog.Int64("record_id", rec.ID),
				slog.Int64("requested", rec.Quantity),
				slog.Int64("shortfall", rec.Shortfall))
			s.events.HandleUsageClamped(ctx, UsageClampedEvent{
				ItemID:     rec.ItemID,
				RecordID:   rec.ID,
				SaleID:     rec.SaleID,
				Requested:  rec.Quantity,
				Available:  res.Before.Stock,
				Shortfall:  rec.Shortfall,
				OccurredAt: s.now(),
			})
		}
		s.events.HandleLedgerChanged(ctx, LedgerChangedEvent{
			ItemID: res.Item.ID,
			Reason: string(rec.Type),
			Before: res.Before,
			After:  res.Item.Ledger(),
		})
	}
}

// Reconcile rebuilds the item's ledger from its full record history.
func (s *Service) Reconcile(ctx context.Context, itemID int64) (Item, error) {
	if itemID <= 0 {
		return Item{}, ErrItemRequired
	}
	release, err := s.LockItems(ctx, itemID)
	if err != nil {
		return Item{}, err
	}
	defer release()

	var (
		item   Item
		before Ledger
	)
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetLedgerForUpdate(ctx, itemID)
		if err != nil {
			return err
		}
		before = current.Ledger()
		item, err = s.ReconcileTx(ctx, tx, itemID)
		return err
	})
	if err != nil {
		return Item{}, err
	}
	if !before.Equal(item.Ledger()) {
		s.events.HandleLedgerChanged(ctx, LedgerChangedEvent{ItemID: itemID, Reason: "RECONCILE", Before: before, After: item.Ledger()})
	}
	return item, nil
}

// ReconcileTx replays the item's records inside a caller-owned transaction.
func (s *Service) ReconcileTx(ctx context.Context, tx TxRepository, itemID int64) (Item, error) {
	item, err := tx.GetLedgerForUpdate(ctx, itemID)
	if err != nil {
		return Item{}, err
	}
	if item.IsService {
		return Item{}, ErrServiceItem
	}
	records, err := tx.ListRecordsByItem(ctx, itemID)
	if err != nil {
		return Item{}, err
	}
	ledger, stale := ReplayFlags(records)
	for _, rec := range stale {
		if err := tx.UpdateRecord(ctx, rec); err != nil {
			return Item{}, err
		}
	}
	if err := tx.SetLedger(ctx, itemID, ledger); err != nil {
		return Item{}, err
	}
	return item.WithLedger(ledger), nil
}

// ReconcileAll reconciles every stock-tracked item and returns how many succeeded.
func (s *Service) ReconcileAll(ctx context.Context) (int, error) {
	ids, err := s.repo.ListTrackedItemIDs(ctx)
	if err != nil {
		return 0, err
	}
	var (
		done int
		errs []error
	)
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if _, err := s.Reconcile(ctx, id); err != nil {
			s.logger.Error("reconcile item failed", slog.Int64("item_id", id), slog.Any("error", err))
			errs = append(errs, fmt.Errorf("item %d: %w", id, err))
			continue
		}
		done++
	}
	return done, errors.Join(errs...)
}

// UpdateRecord edits a record, recomputes its totals and reconciles every item it touched.
func (s *Service) UpdateRecord(ctx context.Context, recordID int64, input UpdateRecordInput) (MovementResult, error) {
	if err := validateMovement(input.ItemID, input.Type, input.Quantity, input.UnitCost); err != nil {
		return MovementResult{}, err
	}
	existing, err := s.repo.GetRecord(ctx, recordID)
	if err != nil {
		return MovementResult{}, err
	}
	release, err := s.LockItems(ctx, existing.ItemID, input.ItemID)
	if err != nil {
		return MovementResult{}, err
	}
	defer release()

	var (
		result  MovementResult
		befores = map[int64]Ledger{}
		afters  = map[int64]Ledger{}
	)
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		rec, err := tx.GetRecordForUpdate(ctx, recordID)
		if err != nil {
			return err
		}
		// moved by another writer since the lock was taken
		if rec.ItemID != existing.ItemID && rec.ItemID != input.ItemID {
			return ErrItemBusy
		}
		target, err := tx.GetLedgerForUpdate(ctx, input.ItemID)
		if err != nil {
			return err
		}
		if target.IsService {
			return ErrServiceItem
		}
		befores[target.ID] = target.Ledger()
		oldItemID := rec.ItemID
		if oldItemID != target.ID {
			old, err := tx.GetLedgerForUpdate(ctx, oldItemID)
			if err != nil {
				return err
			}
			befores[oldItemID] = old.Ledger()
		}

		total, cogs := Costs(input.Type, input.Quantity, input.UnitCost)
		rec.ItemID = target.ID
		rec.Type = input.Type
		rec.Quantity = input.Quantity
		rec.UnitCost = input.UnitCost.Round(CostScale)
		rec.TotalCost = total
		rec.COGSTotal = cogs
		rec.Note = input.Note
		if !input.Date.IsZero() {
			rec.Date = input.Date
		}
		if err := tx.UpdateRecord(ctx, rec); err != nil {
			return err
		}

		if oldItemID != target.ID {
			old, err := s.ReconcileTx(ctx, tx, oldItemID)
			if err != nil {
				return err
			}
			afters[oldItemID] = old.Ledger()
		}
		item, err := s.ReconcileTx(ctx, tx, target.ID)
		if err != nil {
			return err
		}
		afters[target.ID] = item.Ledger()
		if rec, err = tx.GetRecordForUpdate(ctx, recordID); err != nil {
			return err
		}
		result = MovementResult{Record: rec, Item: item, Before: befores[target.ID]}
		return nil
	})
	if err != nil {
		return MovementResult{}, err
	}
	for id, after := range afters {
		s.events.HandleLedgerChanged(ctx, LedgerChangedEvent{ItemID: id, Reason: "RECORD_UPDATED", Before: befores[id], After: after})
	}
	s.recordAudit(ctx, input.ActorID, "inventory:update", recordID, map[string]any{
		"old_item_id": existing.ItemID,
		"item_id":     input.ItemID,
		"type":        input.Type,
		"quantity":    input.Quantity,
	})
	return result, nil
}

// DeleteRecord removes a record and reconciles its item.
func (s *Service) DeleteRecord(ctx context.Context, recordID int64, actorID int64) (Item, error) {
	existing, err := s.repo.GetRecord(ctx, recordID)
	if err != nil {
		return Item{}, err
	}
	release, err := s.LockItems(ctx, existing.ItemID)
	if err != nil {
		return Item{}, err
	}
	defer release()

	var (
		item   Item
		before Ledger
	)
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		rec, err := tx.GetRecordForUpdate(ctx, recordID)
		if err != nil {
			return err
		}
		current, err := tx.GetLedgerForUpdate(ctx, rec.ItemID)
		if err != nil {
			return err
		}
		before = current.Ledger()
		if err := tx.DeleteRecord(ctx, recordID); err != nil {
			return err
		}
		item, err = s.ReconcileTx(ctx, tx, rec.ItemID)
		return err
	})
	if err != nil {
		return Item{}, err
	}
	s.events.HandleLedgerChanged(ctx, LedgerChangedEvent{ItemID: item.ID, Reason: "RECORD_DELETED", Before: before, After: item.Ledger()})
	s.recordAudit(ctx, actorID, "inventory:delete", recordID, map[string]any{"item_id": existing.ItemID})
	return item, nil
}

// ListRecordsByItem returns the item's history ordered by date then id.
func (s *Service) ListRecordsByItem(ctx context.Context, itemID int64) ([]Record, error) {
	if _, err := s.repo.GetItem(ctx, itemID); err != nil {
		return nil, err
	}
	return s.repo.ListRecordsByItem(ctx, itemID)
}

// Ledger returns the persisted ledger of an item.
func (s *Service) Ledger(ctx context.Context, itemID int64) (Ledger, error) {
	item, err := s.repo.GetItem(ctx, itemID)
	if err != nil {
		return Ledger{}, err
	}
	return item.Ledger(), nil
}

// CalculateCOGS prices quantity units at the item's current average cost.
func (s *Service) CalculateCOGS(ctx context.Context, itemID, quantity int64) (COGS, error) {
	if quantity <= 0 {
		return COGS{}, ErrInvalidQuantity
	}
	item, err := s.repo.GetItem(ctx, itemID)
	if err != nil {
		return COGS{}, err
	}
	out := COGS{ItemID: itemID, Quantity: quantity, UnitCost: decimal.Zero, TotalCost: decimal.Zero}
	if item.AverageCost.IsZero() {
		return out, nil
	}
	out.UnitCost = item.AverageCost
	out.TotalCost = decimal.NewFromInt(quantity).Mul(item.AverageCost).Round(MoneyScale)
	return out, nil
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, recordID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	if actorID == 0 {
		actorID = shared.ActorID(ctx)
	}
	if err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "inventory_record",
		EntityID: strconv.FormatInt(recordID, 10),
		Meta:     meta,
	}); err != nil {
		s.logger.Warn("inventory audit failed", slog.String("action", action), slog.Any("error", err))
	}
}
