package secondary

import (
	"context"

	"github.com/example/quoteflow/internal/core/reorder"
)

// StockEventHandler receives one decoded stock event.
type StockEventHandler func(ctx context.Context, ev reorder.StockEvent)

// StockEventSource defines the secondary port for low-stock signals.
type StockEventSource interface {
	// Subscribe delivers events to handler until ctx is done or the source fails.
	Subscribe(ctx context.Context, handler StockEventHandler) error
}
