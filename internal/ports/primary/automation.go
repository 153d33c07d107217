package primary

import (
	"context"
	"time"

	"github.com/example/quoteflow/internal/core/reorder"
)

// AutomationService defines the primary port for the auto-quotation orchestrator.
// It lets CLI, HTTP and tests drive evaluation outside the debounce cycle.
type AutomationService interface {
	// Init starts startup reconciliation after the configured grace delay. Idempotent.
	Init(ctx context.Context) error

	// HandleStockEvent runs one event through admission and queues it.
	HandleStockEvent(ctx context.Context, ev reorder.StockEvent) OutcomeKind

	// TriggerCheck evaluates the given inventory items as if their stock had just changed.
	TriggerCheck(ctx context.Context, items []reorder.InventoryItem) (*TriggerCheckResponse, error)

	// FlushPending flushes the pending batch immediately.
	FlushPending(ctx context.Context) (*FlushResult, error)

	// PendingCount returns the number of queued requests.
	PendingCount() int

	// Subscribe returns a channel of outcomes and a function that ends the subscription.
	Subscribe() (<-chan Outcome, func())

	// Stop cancels the debounce timer and any pending reconciliation.
	Stop()
}

// OutcomeKind classifies an orchestrator outcome.
type OutcomeKind string

const (
	OutcomeEventDropped       OutcomeKind = "event_dropped"
	OutcomeLockContended      OutcomeKind = "lock_contended"
	OutcomeLockFailedOpen     OutcomeKind = "lock_failed_open"
	OutcomeLockFailedClosed   OutcomeKind = "lock_failed_closed"
	OutcomeQueued             OutcomeKind = "queued"
	OutcomeQuotationCreated   OutcomeKind = "quotation_created"
	OutcomeSubGroupSkipped    OutcomeKind = "subgroup_skipped"
	OutcomeDuplicatesFiltered OutcomeKind = "duplicates_filtered"
	OutcomeRepositoryFailure  OutcomeKind = "repository_failure"
	OutcomeFlushCompleted     OutcomeKind = "flush_completed"
)

// Outcome is one typed result of background automation.
type Outcome struct {
	Kind        OutcomeKind
	At          time.Time
	ProductID   string
	SupplierID  string
	Category    string
	QuotationID string
	Products    []string
	Reason      string
}

// TriggerCheckResponse summarises a manual check.
type TriggerCheckResponse struct {
	Evaluated int // low items with a supplier
	Queued    int
	Dropped   int
}

// FlushResult summarises one flush cycle.
type FlushResult struct {
	Processed  int      // queued requests consumed
	Created    []string // new quotation IDs
	Skipped    int      // sub-groups skipped
	Duplicates []string // products filtered because open work exists
	Failures   int      // sub-groups whose create failed
}
