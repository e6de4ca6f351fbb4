package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/salonpos/salonpos/internal/inventory"
	jobmetrics "github.com/salonpos/salonpos/internal/jobs"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// Reconciler is the part of the inventory engine the job drives.
type Reconciler interface {
	Reconcile(ctx context.Context, itemID int64) (inventory.Item, error)
	ReconcileAll(ctx context.Context) (int, error)
}

// ReconcileJob rebuilds stock and average cost from the record history.
type ReconcileJob struct {
	Inventory Reconciler
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
}

// NewReconcileJob wires dependencies for the reconcile handler.
func NewReconcileJob(inv Reconciler, logger *slog.Logger, metrics *jobmetrics.Metrics) *ReconcileJob {
	return &ReconcileJob{Inventory: inv, Logger: logger, Metrics: metrics}
}

// Handle processes TaskInventoryReconcile tasks.
func (j *ReconcileJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Inventory == nil {
		return errors.New("inventory reconcile: handler not configured")
	}
	var payload ReconcilePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("inventory reconcile: decode payload: %v: %w", err, asynq.SkipRetry)
	}
	metrics := j.Metrics
	if metrics == nil {
		metrics = defaultJobMetrics
	}
	tracker := metrics.Track(TaskInventoryReconcile)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(slog.Int64("item_id", payload.ItemID))
	start := time.Now()
	if payload.ItemID > 0 {
		item, err := j.Inventory.Reconcile(ctx, payload.ItemID)
		if errors.Is(err, inventory.ErrItemNotFound) || errors.Is(err, inventory.ErrServiceItem) {
			logger.Warn("reconcile skipped", slog.Any("error", err))
			return fmt.Errorf("inventory reconcile: %v: %w", err, asynq.SkipRetry)
		}
		if err != nil {
			logger.Error("reconcile item", slog.Any("error", err))
			return err
		}
		metrics.AddReconciled(1)
		logger.Info("item reconciled", slog.Int64("stock", item.Stock), slog.String("average_cost", item.AverageCost.String()))
		return nil
	}

	n, err := j.Inventory.ReconcileAll(ctx)
	metrics.AddReconciled(n)
	if err != nil {
		logger.Error("reconcile all", slog.Int("reconciled", n), slog.Any("error", err))
		return err
	}
	logger.Info("inventory reconciled", slog.Int("items", n), slog.Duration("took", time.Since(start)))
	return nil
}

func (j *ReconcileJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}

// Cleaner purges idempotency keys older than a retention window.
type Cleaner interface {
	Cleanup(ctx context.Context, olderThan time.Duration) error
}

// CleanupJob removes stale idempotency keys so clients can reuse them eventually.
type CleanupJob struct {
	Store            Cleaner
	DefaultRetention time.Duration
	Logger           *slog.Logger
	Metrics          *jobmetrics.Metrics
}

// Handle processes TaskIdempotencyCleanup tasks.
func (j *CleanupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Store == nil {
		return errors.New("idempotency cleanup: handler not configured")
	}
	var payload CleanupPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return fmt.Errorf("idempotency cleanup: decode payload: %v: %w", err, asynq.SkipRetry)
		}
	}
	retention := payload.Retention
	if retention <= 0 {
		retention = j.DefaultRetention
	}
	if retention <= 0 {
		retention = 24 * time.Hour
	}
	metrics := j.Metrics
	if metrics == nil {
		metrics = defaultJobMetrics
	}
	err := metrics.Track(TaskIdempotencyCleanup).End(j.Store.Cleanup(ctx, retention))
	if err != nil && j.Logger != nil {
		j.Logger.Error("idempotency cleanup", slog.Any("error", err))
	}
	return err
}
