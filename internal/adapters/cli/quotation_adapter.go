// Package cli provides thin CLI adapters that translate between CLI concerns
// and application services. Adapters handle argument parsing, output formatting,
// but delegate business logic to services.
package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/example/quoteflow/internal/core/quotation"
	"github.com/example/quoteflow/internal/ports/primary"
)

// QuotationAdapter is a thin adapter that translates CLI operations to QuotationService calls.
// It depends only on the QuotationService interface, enabling easy testing with mocks.
type QuotationAdapter struct {
	service primary.QuotationService
	out     io.Writer
}

// NewQuotationAdapter creates a new QuotationAdapter with the given service.
func NewQuotationAdapter(service primary.QuotationService, out io.Writer) *QuotationAdapter {
	return &QuotationAdapter{
		service: service,
		out:     out,
	}
}

// Create creates a new DRAFT quotation.
func (a *QuotationAdapter) Create(ctx context.Context, supplierID, category string, items []quotation.Item) error {
	resp, err := a.service.CreateQuotation(ctx, primary.CreateQuotationRequest{
		SupplierID: supplierID,
		Category:   category,
		Items:      items,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "✓ Created quotation %s for %s (%d items)\n", resp.QuotationID, resp.Quotation.SupplierID, len(resp.Quotation.Items))
	return nil
}

// List lists quotations with optional filters.
func (a *QuotationAdapter) List(ctx context.Context, filters primary.QuotationFilters) error {
	quotations, err := a.service.ListQuotations(ctx, filters)
	if err != nil {
		return fmt.Errorf("failed to list quotations: %w", err)
	}

	if len(quotations) == 0 {
		fmt.Fprintln(a.out, "No quotations found")
		return nil
	}

	fmt.Fprintf(a.out, "\n%-10s %-10s %-8s %-10s %-6s %s\n", "ID", "STATUS", "SOURCE", "SUPPLIER", "ITEMS", "CATEGORY")
	fmt.Fprintln(a.out, "────────────────────────────────────────────────────────────────")
	for _, q := range quotations {
		fmt.Fprintf(a.out, "%-10s %-10s %-8s %-10s %-6d %s\n", q.ID, colorState(q.Status), q.Source, q.SupplierID, len(q.Items), q.Category)
	}
	fmt.Fprintln(a.out)

	return nil
}

// Show displays a quotation with its items, history and available events.
func (a *QuotationAdapter) Show(ctx context.Context, quotationID string) (*quotation.Snapshot, error) {
	snap, err := a.service.GetSnapshot(ctx, quotationID)
	if err != nil {
		return nil, fmt.Errorf("failed to get quotation: %w", err)
	}
	q := snap.Context

	fmt.Fprintf(a.out, "\nQuotation: %s\n", q.ID)
	fmt.Fprintf(a.out, "Status:    %s\n", colorState(snap.State))
	fmt.Fprintf(a.out, "Source:    %s\n", q.Source)
	if q.SupplierName != "" {
		fmt.Fprintf(a.out, "Supplier:  %s (%s)\n", q.SupplierName, q.SupplierID)
	} else {
		fmt.Fprintf(a.out, "Supplier:  %s\n", q.SupplierID)
	}
	if q.SupplierEmail != "" {
		fmt.Fprintf(a.out, "Email:     %s\n", q.SupplierEmail)
	}
	if q.Category != "" {
		fmt.Fprintf(a.out, "Category:  %s\n", q.Category)
	}
	if q.QuotedTotal != nil {
		fmt.Fprintf(a.out, "Quoted:    %s\n", q.QuotedTotal.StringFixed(2))
	}
	if q.CancelReason != "" {
		fmt.Fprintf(a.out, "Cancelled: %s\n", q.CancelReason)
	}
	fmt.Fprintf(a.out, "Created:   %s\n", q.CreatedAt.Format(time.RFC3339))

	if len(q.Items) > 0 {
		fmt.Fprintln(a.out, "\nItems:")
		for _, it := range q.Items {
			fmt.Fprintf(a.out, "  %-14s %8.2f %-6s @ %s\n", it.ProductID, it.Quantity, it.Unit, it.Price.StringFixed(2))
		}
	}

	fmt.Fprintln(a.out, "\nHistory:")
	for _, h := range snap.History {
		from := string(h.PreviousState)
		if from == "" {
			from = "-"
		}
		fmt.Fprintf(a.out, "  %s  %-14s %s → %s\n", h.Timestamp.Format(time.RFC3339), h.Event, from, h.State)
	}

	if len(snap.AvailableEvents) > 0 {
		names := make([]string, 0, len(snap.AvailableEvents))
		for _, e := range snap.AvailableEvents {
			names = append(names, string(e))
		}
		fmt.Fprintf(a.out, "\nNext: %s\n", strings.Join(names, ", "))
	}
	fmt.Fprintln(a.out)

	return snap, nil
}

// Apply applies an event to a quotation.
func (a *QuotationAdapter) Apply(ctx context.Context, quotationID string, ev quotation.Event) error {
	resp, err := a.service.Transition(ctx, primary.TransitionRequest{
		QuotationID: quotationID,
		Event:       ev,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "✓ Quotation %s: %s → %s\n", quotationID, ev.Type(), colorState(resp.Snapshot.State))
	return nil
}

// Check reports whether an event would be accepted, without applying it.
func (a *QuotationAdapter) Check(ctx context.Context, quotationID string, ev quotation.Event) error {
	check, err := a.service.CanTransition(ctx, quotationID, ev)
	if err != nil {
		return fmt.Errorf("failed to check transition: %w", err)
	}

	if check.Valid {
		fmt.Fprintf(a.out, "✓ %s would move %s to %s\n", ev.Type(), quotationID, check.Target)
		return nil
	}
	fmt.Fprintf(a.out, "✗ %s rejected: %s\n", ev.Type(), check.Err.Error())
	return nil
}

// Delete deletes a quotation.
func (a *QuotationAdapter) Delete(ctx context.Context, quotationID string) error {
	if err := a.service.DeleteQuotation(ctx, quotationID); err != nil {
		return err
	}

	fmt.Fprintf(a.out, "✓ Quotation %s deleted\n", quotationID)
	return nil
}

func colorState(s quotation.State) string {
	switch s {
	case quotation.StateDraft:
		return color.New(color.FgWhite).Sprint(s)
	case quotation.StateSent, quotation.StateReplied:
		return color.New(color.FgCyan).Sprint(s)
	case quotation.StateQuoted, quotation.StateConfirmed:
		return color.New(color.FgYellow).Sprint(s)
	case quotation.StateDelivered:
		return color.New(color.FgGreen).Sprint(s)
	default:
		return color.New(color.FgRed).Sprint(s)
	}
}
