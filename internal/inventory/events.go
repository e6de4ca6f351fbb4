package inventory

import (
	"context"
	"time"
)

// UsageClampedEvent is emitted when a Usage asks for more units than are in stock.
type UsageClampedEvent struct {
	ItemID     int64
	RecordID   int64
	SaleID     int64
	Requested  int64
	Available  int64
	Shortfall  int64
	OccurredAt time.Time
}

// LedgerChangedEvent is emitted after any committed write that touches an item's ledger.
type LedgerChangedEvent struct {
	ItemID int64
	Reason string
	Before Ledger
	After  Ledger
}

// EventHandler receives inventory notifications after commit.
type EventHandler interface {
	HandleUsageClamped(ctx context.Context, evt UsageClampedEvent)
	HandleLedgerChanged(ctx context.Context, evt LedgerChangedEvent)
}

// EventHandlers fans events out to every handler in order.
type EventHandlers []EventHandler

// HandleUsageClamped implements EventHandler.
func (hs EventHandlers) HandleUsageClamped(ctx context.Context, evt UsageClampedEvent) {
	for _, h := range hs {
		if h != nil {
			h.HandleUsageClamped(ctx, evt)
		}
	}
}

// HandleLedgerChanged implements EventHandler.
func (hs EventHandlers) HandleLedgerChanged(ctx context.Context, evt LedgerChangedEvent) {
	for _, h := range hs {
		if h != nil {
			h.HandleLedgerChanged(ctx, evt)
		}
	}
}
