// Package primary defines the primary ports (driving adapters) for the application.
// These are the interfaces through which the outside world drives the application.
package primary

import (
	"context"

	"github.com/example/quoteflow/internal/core/quotation"
)

// QuotationService defines the primary port for quotation lifecycle operations.
type QuotationService interface {
	// CreateQuotation creates a new DRAFT quotation.
	CreateQuotation(ctx context.Context, req CreateQuotationRequest) (*CreateQuotationResponse, error)

	// GetQuotation retrieves a quotation by ID.
	GetQuotation(ctx context.Context, quotationID string) (*quotation.Quotation, error)

	// ListQuotations lists quotations with optional filters.
	ListQuotations(ctx context.Context, filters QuotationFilters) ([]*quotation.Quotation, error)

	// CanTransition pre-checks an event without applying it.
	CanTransition(ctx context.Context, quotationID string, ev quotation.Event) (*quotation.TransitionCheck, error)

	// Transition applies an event. A rejected event returns a *quotation.GuardViolation.
	Transition(ctx context.Context, req TransitionRequest) (*TransitionResponse, error)

	// GetSnapshot returns the current state, history and available events.
	GetSnapshot(ctx context.Context, quotationID string) (*quotation.Snapshot, error)

	// DeleteQuotation deletes a quotation.
	DeleteQuotation(ctx context.Context, quotationID string) error
}

// CreateQuotationRequest contains parameters for creating a quotation.
type CreateQuotationRequest struct {
	SupplierID string
	Category   string
	Items      []quotation.Item
	Source     quotation.Source // defaults to manual
}

// CreateQuotationResponse contains the result of creating a quotation.
type CreateQuotationResponse struct {
	QuotationID string
	Quotation   *quotation.Quotation
}

// QuotationFilters contains filter options for listing quotations.
type QuotationFilters struct {
	Status     string
	SupplierID string
	OpenOnly   bool
	Limit      int
}

// TransitionRequest contains parameters for applying an event.
type TransitionRequest struct {
	QuotationID string
	Event       quotation.Event
}

// TransitionResponse contains the snapshot after a successful transition.
type TransitionResponse struct {
	Snapshot quotation.Snapshot
}
