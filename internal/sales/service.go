package sales

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/salonpos/salonpos/internal/inventory"
	"github.com/salonpos/salonpos/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetSale(ctx context.Context, id int64) (Sale, error)
	ListSales(ctx context.Context, filter ListFilter) ([]Sale, int, error)
}

// MovementRecorder is the part of the inventory engine sales depends on.
type MovementRecorder interface {
	LockItems(ctx context.Context, itemIDs ...int64) (func(), error)
	RecordMovementTx(ctx context.Context, tx inventory.TxRepository, input inventory.MovementInput) (inventory.MovementResult, error)
	ReconcileTx(ctx context.Context, tx inventory.TxRepository, itemID int64) (inventory.Item, error)
	Notify(ctx context.Context, results ...inventory.MovementResult)
}

// IdempotencyPort deduplicates client retries.
type IdempotencyPort interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// CacheInvalidator drops cached report results after a write.
type CacheInvalidator interface {
	Bump(ctx context.Context) error
}

// Service records sales, snapshots commission rates and drives inventory usage.
type Service struct {
	repo        RepositoryPort
	inventory   MovementRecorder
	idempotency IdempotencyPort
	audit       AuditPort
	cache       CacheInvalidator
	logger      *slog.Logger
	now         func() time.Time
	newCode     func() string
}

// Options groups optional collaborators.
type Options struct {
	Idempotency IdempotencyPort
	Audit       AuditPort
	Cache       CacheInvalidator
	Logger      *slog.Logger
	Clock       func() time.Time
}

// NewService constructs a sales service.
func NewService(repo RepositoryPort, inv MovementRecorder, opts Options) *Service {
	s := &Service{
		repo:        repo,
		inventory:   inv,
		idempotency: opts.Idempotency,
		audit:       opts.Audit,
		cache:       opts.Cache,
		logger:      opts.Logger,
		now:         opts.Clock,
		newCode:     newSaleCode,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	return s
}

func newSaleCode() string {
	return "SL-" + strings.ToUpper(uuid.NewString()[:8])
}

// CreateSale persists a sale and its lines in one transaction. For each line on
// a stock-tracked product a Usage movement tagged with the sale id is recorded.
func (s *Service) CreateSale(ctx context.Context, req CreateSaleRequest) (Sale, error) {
	if len(req.Lines) == 0 {
		return Sale{}, ErrNoLines
	}
	if req.Total == nil {
		return Sale{}, ErrTotalRequired
	}
	if req.Total.IsNegative() {
		return Sale{}, shared.NewValidationError("total", "must be >= 0")
	}
	method, err := parsePaymentMethod(strings.ToUpper(strings.TrimSpace(req.PaymentMethod)))
	if err != nil {
		return Sale{}, err
	}
	for i, line := range req.Lines {
		if err := validateLine(i, line); err != nil {
			return Sale{}, err
		}
	}

	if req.IdempotencyKey != "" && s.idempotency != nil {
		if err := s.idempotency.CheckAndInsert(ctx, req.IdempotencyKey, "sales"); err != nil {
			return Sale{}, err
		}
	}
	sale, movements, err := s.createSale(ctx, req, method)
	if err != nil {
		if req.IdempotencyKey != "" && s.idempotency != nil {
			if derr := s.idempotency.Delete(ctx, req.IdempotencyKey); derr != nil {
				s.logger.Warn("release idempotency key",
					slog.String("key", req.IdempotencyKey),
					slog.Any("error", derr))
			}
		}
		return Sale{}, err
	}

	s.inventory.Notify(ctx, movements...)
	s.bumpCache(ctx)
	s.recordAudit(ctx, req.ActorID, "sales:create", sale.ID, map[string]any{
		"code":  sale.Code,
		"total": sale.Total.StringFixed(2),
		"lines": len(sale.Lines),
	})
	return sale, nil
}

func (s *Service) createSale(ctx context.Context, req CreateSaleRequest, method PaymentMethod) (Sale, []inventory.MovementResult, error) {
	itemIDs := make([]int64, len(req.Lines))
	for i, line := range req.Lines {
		itemIDs[i] = line.ItemID
	}
	release, err := s.inventory.LockItems(ctx, itemIDs...)
	if err != nil {
		return Sale{}, nil, err
	}
	defer release()

	date := s.now()
	if req.Date != nil && !req.Date.IsZero() {
		date = req.Date.UTC()
	}
	var (
		sale      Sale
		movements []inventory.MovementResult
	)
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		movements = nil
		if req.CustomerID != nil {
			ok, err := tx.CustomerExists(ctx, *req.CustomerID)
			if err != nil {
				return err
			}
			if !ok {
				return shared.NewValidationError("customer_id", "must reference an existing customer")
			}
		}
		header := Sale{
			Code:          s.newCode(),
			Date:          date,
			Total:         req.Total.Round(2),
			PaymentMethod: method,
			Note:          strings.TrimSpace(req.Note),
			CreatedBy:     req.ActorID,
		}
		if req.CustomerID != nil {
			header.CustomerID = *req.CustomerID
		}
		var err error
		sale, err = tx.InsertSale(ctx, header)
		if err != nil {
			return err
		}

		for i, in := range req.Lines {
			ok, err := tx.EmployeeExists(ctx, in.EmployeeID)
			if err != nil {
				return err
			}
			if !ok {
				return shared.NewValidationError(fmt.Sprintf("lines[%d].employee_id", i), "must reference an existing employee")
			}
			item, err := tx.GetLineItem(ctx, in.ItemID)
			if errors.Is(err, shared.ErrNotFound) {
				return shared.NewValidationError(fmt.Sprintf("lines[%d].item_id", i), "must reference an existing item")
			}
			if err != nil {
				return err
			}
			line := priceLine(sale.ID, in, item)
			line, err = tx.InsertLine(ctx, line)
			if err != nil {
				return err
			}
			sale.Lines = append(sale.Lines, line)

			if !item.StockTracked() {
				continue
			}
			res, err := s.inventory.RecordMovementTx(ctx, tx.Inventory(), inventory.MovementInput{
				ItemID:   item.ItemID,
				Type:     inventory.MovementUsage,
				Quantity: in.Quantity,
				Date:     date,
				Note:     "sale " + sale.Code,
				SaleID:   sale.ID,
				ActorID:  req.ActorID,
			})
			if err != nil {
				return err
			}
			movements = append(movements, res)
		}
		return nil
	})
	if err != nil {
		return Sale{}, nil, err
	}
	return sale, movements, nil
}

// priceLine snapshots the category rates onto the line.
func priceLine(saleID int64, in CreateLineRequest, item LineItem) SaleLine {
	total := decimal.NewFromInt(in.Quantity).Mul(in.Price)
	if in.Total != nil {
		total = *in.Total
	}
	total = total.Round(2)
	split := CalculateLine(total, item.CommissionRate, item.SalonOwnerRate)
	return SaleLine{
		SaleID:           saleID,
		ItemID:           item.ItemID,
		ItemName:         item.Name,
		EmployeeID:       in.EmployeeID,
		Quantity:         in.Quantity,
		UnitPrice:        in.Price.Round(2),
		LineTotal:        total,
		CommissionRate:   item.CommissionRate,
		SalonOwnerRate:   item.SalonOwnerRate,
		CommissionAmount: split.Commission,
		SalonOwnerAmount: split.SalonOwner,
	}
}

func validateLine(i int, line CreateLineRequest) error {
	prefix := fmt.Sprintf("lines[%d].", i)
	switch {
	case line.ItemID <= 0:
		return shared.NewValidationError(prefix+"item_id", "is required")
	case line.EmployeeID <= 0:
		return shared.NewValidationError(prefix+"employee_id", "is required")
	case line.Quantity <= 0:
		return shared.NewValidationError(prefix+"quantity", "must be > 0")
	case line.Price.IsNegative():
		return shared.NewValidationError(prefix+"price", "must be >= 0")
	case line.Total != nil && line.Total.IsNegative():
		return shared.NewValidationError(prefix+"total", "must be >= 0")
	}
	return nil
}

// GetSale returns a sale with its lines.
func (s *Service) GetSale(ctx context.Context, id int64) (Sale, error) {
	if id <= 0 {
		return Sale{}, ErrSaleNotFound
	}
	return s.repo.GetSale(ctx, id)
}

// ListSales returns a page of sales headers.
func (s *Service) ListSales(ctx context.Context, filter ListFilter) ([]Sale, int, error) {
	if !filter.From.IsZero() && !filter.To.IsZero() && filter.To.Before(filter.From) {
		return nil, 0, shared.NewValidationError("to", "must not be before from")
	}
	return s.repo.ListSales(ctx, filter)
}

// DeleteSale removes a sale, its lines and the Usage records it produced, then
// reconciles every affected item.
func (s *Service) DeleteSale(ctx context.Context, id int64, actorID int64) error {
	existing, err := s.GetSale(ctx, id)
	if err != nil {
		return err
	}
	itemIDs := make([]int64, 0, len(existing.Lines))
	for _, line := range existing.Lines {
		itemIDs = append(itemIDs, line.ItemID)
	}
	release, err := s.inventory.LockItems(ctx, itemIDs...)
	if err != nil {
		return err
	}
	defer release()

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := tx.GetSaleForUpdate(ctx, id); err != nil {
			return err
		}
		inv := tx.Inventory()
		records, err := inv.ListRecordsBySale(ctx, id)
		if err != nil {
			return err
		}
		if err := inv.DeleteRecordsBySale(ctx, id); err != nil {
			return err
		}
		if err := tx.DeleteSale(ctx, id); err != nil {
			return err
		}
		seen := map[int64]bool{}
		for _, rec := range records {
			if seen[rec.ItemID] {
				continue
			}
			seen[rec.ItemID] = true
			if _, err := s.inventory.ReconcileTx(ctx, inv, rec.ItemID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.bumpCache(ctx)
	s.recordAudit(ctx, actorID, "sales:delete", id, map[string]any{"code": existing.Code})
	return nil
}

func (s *Service) bumpCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Bump(ctx); err != nil {
		s.logger.Warn("report cache bump failed", slog.Any("error", err))
	}
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, saleID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	if actorID == 0 {
		actorID = shared.ActorID(ctx)
	}
	if err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "sale",
		EntityID: strconv.FormatInt(saleID, 10),
		Meta:     meta,
	}); err != nil {
		s.logger.Warn("sales audit failed", slog.String("action", action), slog.Any("error", err))
	}
}
