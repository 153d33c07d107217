package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"

	corelock "github.com/example/quoteflow/internal/core/lock"
	"github.com/example/quoteflow/internal/core/reorder"
	"github.com/example/quoteflow/internal/ctxutil"
	"github.com/example/quoteflow/internal/ports/primary"
)

// AutomationAdapter translates CLI operations to AutomationService calls.
type AutomationAdapter struct {
	service primary.AutomationService
	out     io.Writer
}

// NewAutomationAdapter creates a new AutomationAdapter.
func NewAutomationAdapter(service primary.AutomationService, out io.Writer) *AutomationAdapter {
	return &AutomationAdapter{
		service: service,
		out:     out,
	}
}

// Check evaluates inventory items and reports what was queued.
func (a *AutomationAdapter) Check(ctx context.Context, items []reorder.InventoryItem) error {
	resp, err := a.service.TriggerCheck(ctx, items)
	if err != nil {
		return fmt.Errorf("failed to check inventory: %w", err)
	}

	fmt.Fprintf(a.out, "✓ Checked %d items: %d low, %d queued, %d dropped\n", len(items), resp.Evaluated, resp.Queued, resp.Dropped)
	return nil
}

// Emit runs a single stock event through admission.
func (a *AutomationAdapter) Emit(ctx context.Context, ev reorder.StockEvent) error {
	outcome := a.service.HandleStockEvent(ctx, ev)
	fmt.Fprintf(a.out, "%s %s: %s\n", outcomeMark(outcome), ev.ProductID, outcome)
	return nil
}

// Flush flushes the pending batch and prints the result.
func (a *AutomationAdapter) Flush(ctx context.Context) (*primary.FlushResult, error) {
	result, err := a.service.FlushPending(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to flush pending requests: %w", err)
	}

	if result.Processed == 0 {
		fmt.Fprintln(a.out, "Nothing pending")
		return result, nil
	}

	fmt.Fprintf(a.out, "✓ Flushed %d requests\n", result.Processed)
	for _, id := range result.Created {
		fmt.Fprintf(a.out, "  created %s\n", id)
	}
	if len(result.Duplicates) > 0 {
		fmt.Fprintf(a.out, "  already open: %s\n", strings.Join(result.Duplicates, ", "))
	}
	if result.Skipped > 0 {
		fmt.Fprintf(a.out, "  skipped %d sub-groups\n", result.Skipped)
	}
	if result.Failures > 0 {
		fmt.Fprintf(a.out, "  %s\n", color.New(color.FgRed).Sprintf("%d sub-groups failed", result.Failures))
	}
	return result, nil
}

// Pending prints the number of queued requests.
func (a *AutomationAdapter) Pending() {
	fmt.Fprintf(a.out, "%d requests pending\n", a.service.PendingCount())
}

// PrintOutcome writes one background outcome as a single line.
func (a *AutomationAdapter) PrintOutcome(o primary.Outcome) {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s %s", o.At.Format(time.RFC3339), outcomeMark(o.Kind), o.Kind)
	if o.QuotationID != "" {
		fmt.Fprintf(&b, " %s", o.QuotationID)
	}
	if o.ProductID != "" {
		fmt.Fprintf(&b, " product=%s", o.ProductID)
	}
	if o.SupplierID != "" {
		fmt.Fprintf(&b, " supplier=%s", o.SupplierID)
	}
	if o.Category != "" {
		fmt.Fprintf(&b, " category=%s", o.Category)
	}
	if len(o.Products) > 0 {
		fmt.Fprintf(&b, " products=%s", strings.Join(o.Products, ","))
	}
	if o.Reason != "" {
		fmt.Fprintf(&b, " (%s)", o.Reason)
	}
	fmt.Fprintln(a.out, b.String())
}

func outcomeMark(k primary.OutcomeKind) string {
	switch k {
	case primary.OutcomeQueued, primary.OutcomeQuotationCreated, primary.OutcomeFlushCompleted:
		return color.New(color.FgGreen).Sprint("✓")
	case primary.OutcomeLockFailedOpen, primary.OutcomeLockContended, primary.OutcomeDuplicatesFiltered, primary.OutcomeSubGroupSkipped:
		return color.New(color.FgYellow).Sprint("!")
	case primary.OutcomeEventDropped:
		return "-"
	default:
		return color.New(color.FgRed).Sprint("✗")
	}
}

// LockAdapter translates CLI operations to LockService calls.
type LockAdapter struct {
	service primary.LockService
	out     io.Writer
}

// NewLockAdapter creates a new LockAdapter.
func NewLockAdapter(service primary.LockService, out io.Writer) *LockAdapter {
	return &LockAdapter{
		service: service,
		out:     out,
	}
}

// Show prints the stored lock for a product and whether it is still live at now.
func (a *LockAdapter) Show(ctx context.Context, productID string, now time.Time) error {
	l, err := a.service.GetLock(ctx, productID)
	if err != nil {
		return fmt.Errorf("failed to get lock: %w", err)
	}
	if l == nil {
		fmt.Fprintf(a.out, "No lock for %s\n", productID)
		return nil
	}

	state := color.New(color.FgGreen).Sprint("live")
	if !corelock.IsLive(l, now) {
		state = color.New(color.FgYellow).Sprint("expired")
	}
	fmt.Fprintf(a.out, "\nLock:      %s (%s)\n", l.ProductID, state)
	fmt.Fprintf(a.out, "Holder:    %s\n", l.AcquiredBy)
	fmt.Fprintf(a.out, "Acquired:  %s\n", l.AcquiredAt.Format(time.RFC3339))
	fmt.Fprintf(a.out, "Heartbeat: %s\n", l.LastHeartbeat.Format(time.RFC3339))
	fmt.Fprintf(a.out, "Expires:   %s\n\n", l.ExpiresAt.Format(time.RFC3339))
	return nil
}

// Acquire takes the lock for a product as this process.
func (a *LockAdapter) Acquire(ctx context.Context, productID string) error {
	outcome, err := a.service.AcquireLock(ctx, productID)
	switch outcome {
	case primary.LockAcquired:
		fmt.Fprintf(a.out, "✓ Lock for %s acquired by %s\n", productID, a.holder(ctx))
		return nil
	case primary.LockContended:
		return fmt.Errorf("lock for %s is held by another process", productID)
	default:
		return fmt.Errorf("lock store unavailable (%s): %w", outcome, err)
	}
}

// Extend refreshes the expiry of a lock this holder owns.
func (a *LockAdapter) Extend(ctx context.Context, productID string) error {
	if err := a.service.ExtendLock(ctx, productID); err != nil {
		return err
	}

	fmt.Fprintf(a.out, "✓ Lock for %s extended\n", productID)
	return nil
}

// Release deletes the lock for a product when this holder owns it.
func (a *LockAdapter) Release(ctx context.Context, productID string) error {
	released, err := a.service.ReleaseLock(ctx, productID)
	if err != nil {
		return err
	}
	if !released {
		fmt.Fprintf(a.out, "No lock for %s held by %s\n", productID, a.holder(ctx))
		return nil
	}

	fmt.Fprintf(a.out, "✓ Lock for %s released\n", productID)
	return nil
}

// holder is the identity the lock service acts as for ctx.
func (a *LockAdapter) holder(ctx context.Context) string {
	if h := ctxutil.HolderFromContext(ctx); h != "" {
		return h
	}
	return a.service.Holder()
}
