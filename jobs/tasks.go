package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskInventoryReconcile rebuilds item ledgers from their record history.
	TaskInventoryReconcile = "inventory:reconcile"
	// TaskIdempotencyCleanup purges expired idempotency keys.
	TaskIdempotencyCleanup = "maintenance:idempotency_cleanup"

	// ReconcileCron runs the full reconcile nightly at 03:00 UTC.
	ReconcileCron = "0 3 * * *"
	// CleanupCron purges idempotency keys hourly.
	CleanupCron = "@hourly"
)

// ReconcilePayload selects one item; a zero ItemID reconciles every stock-tracked item.
type ReconcilePayload struct {
	ItemID       int64     `json:"item_id,omitempty"`
	ScheduledFor time.Time `json:"scheduled_for"`
}

// NewReconcileTask constructs an Asynq task for inventory reconciliation.
func NewReconcileTask(itemID int64, at time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(ReconcilePayload{ItemID: itemID, ScheduledFor: at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskInventoryReconcile, body, asynq.Queue(QueueDefault), asynq.MaxRetry(3)), nil
}

// CleanupPayload sets how old a key must be to be purged.
type CleanupPayload struct {
	Retention time.Duration `json:"retention"`
}

// NewIdempotencyCleanupTask constructs the cleanup task.
func NewIdempotencyCleanupTask(retention time.Duration) (*asynq.Task, error) {
	body, err := json.Marshal(CleanupPayload{Retention: retention})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIdempotencyCleanup, body, asynq.Queue(QueueDefault)), nil
}
