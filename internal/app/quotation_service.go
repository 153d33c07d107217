package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/example/quoteflow/internal/core/quotation"
	"github.com/example/quoteflow/internal/ports/primary"
	"github.com/example/quoteflow/internal/ports/secondary"
)

// QuotationServiceImpl implements the QuotationService interface.
type QuotationServiceImpl struct {
	quotationRepo secondary.QuotationRepository
	suppliers     secondary.SupplierDirectory
	clock         Clock
	logger        logrus.FieldLogger
}

// NewQuotationService creates a new QuotationService with injected dependencies.
func NewQuotationService(
	quotationRepo secondary.QuotationRepository,
	suppliers secondary.SupplierDirectory,
	clock Clock,
	logger logrus.FieldLogger,
) *QuotationServiceImpl {
	return &QuotationServiceImpl{
		quotationRepo: quotationRepo,
		suppliers:     suppliers,
		clock:         clock,
		logger:        logger,
	}
}

// CreateQuotation creates a new DRAFT quotation for a known supplier.
func (s *QuotationServiceImpl) CreateQuotation(ctx context.Context, req primary.CreateQuotationRequest) (*primary.CreateQuotationResponse, error) {
	// 1. Validate items
	for i, it := range req.Items {
		if strings.TrimSpace(it.ProductID) == "" {
			return nil, fmt.Errorf("item %d has no product id", i+1)
		}
		if it.Quantity <= 0 {
			return nil, fmt.Errorf("item %s must have a positive quantity", it.ProductID)
		}
	}

	// 2. Resolve supplier
	supplier, err := s.suppliers.GetByID(ctx, req.SupplierID)
	if err != nil {
		return nil, fmt.Errorf("failed to get supplier: %w", err)
	}
	if supplier == nil {
		return nil, fmt.Errorf("supplier %s %w", req.SupplierID, secondary.ErrNotFound)
	}

	// 3. Generate ID
	nextID, err := s.quotationRepo.GetNextID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to generate quotation ID: %w", err)
	}

	// 4. Build the draft in the core and persist it
	q := quotation.NewDraft(quotation.DraftInput{
		ID:            nextID,
		SupplierID:    supplier.ID,
		SupplierName:  supplier.Name,
		SupplierEmail: supplier.Email,
		Category:      req.Category,
		Source:        req.Source,
		Items:         req.Items,
	}, s.clock.Now())

	if err := s.quotationRepo.Create(ctx, &q); err != nil {
		return nil, fmt.Errorf("failed to create quotation: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"quotation_id": q.ID,
		"supplier_id":  q.SupplierID,
		"items":        len(q.Items),
	}).Info("quotation created")

	return &primary.CreateQuotationResponse{
		QuotationID: q.ID,
		Quotation:   &q,
	}, nil
}

// GetQuotation retrieves a quotation by ID.
func (s *QuotationServiceImpl) GetQuotation(ctx context.Context, quotationID string) (*quotation.Quotation, error) {
	q, err := s.quotationRepo.GetByID(ctx, quotationID)
	if err != nil {
		return nil, err
	}
	return q, nil
}

// ListQuotations lists quotations with optional filters.
func (s *QuotationServiceImpl) ListQuotations(ctx context.Context, filters primary.QuotationFilters) ([]*quotation.Quotation, error) {
	quotes, err := s.quotationRepo.List(ctx, secondary.QuotationFilters{
		Status:     filters.Status,
		SupplierID: filters.SupplierID,
		OpenOnly:   filters.OpenOnly,
		Limit:      filters.Limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list quotations: %w", err)
	}
	return quotes, nil
}

// CanTransition pre-checks an event without applying it.
func (s *QuotationServiceImpl) CanTransition(ctx context.Context, quotationID string, ev quotation.Event) (*quotation.TransitionCheck, error) {
	q, err := s.quotationRepo.GetByID(ctx, quotationID)
	if err != nil {
		return nil, err
	}
	check := quotation.NewMachine(*q, s.clock.Now).CanTransition(ev)
	return &check, nil
}

// Transition applies an event and persists the result.
// A rejected event is returned as a *quotation.GuardViolation and nothing is written.
// When another writer moved the quotation on first, the error wraps secondary.ErrConflict.
func (s *QuotationServiceImpl) Transition(ctx context.Context, req primary.TransitionRequest) (*primary.TransitionResponse, error) {
	q, err := s.quotationRepo.GetByID(ctx, req.QuotationID)
	if err != nil {
		return nil, err
	}

	result := quotation.NewMachine(*q, s.clock.Now).Send(req.Event)
	if !result.Success {
		s.logger.WithFields(logrus.Fields{
			"quotation_id": q.ID,
			"state":        result.Err.State,
			"event":        result.Err.Event,
		}).Info(result.Err.Reason)
		return nil, result.Err
	}

	updated := result.Snapshot.Context
	if err := s.quotationRepo.Update(ctx, &updated); err != nil {
		return nil, fmt.Errorf("failed to update quotation: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"quotation_id": q.ID,
		"from":         q.Status,
		"to":           updated.Status,
		"event":        req.Event.Type(),
	}).Info("quotation transitioned")

	return &primary.TransitionResponse{Snapshot: result.Snapshot}, nil
}

// GetSnapshot returns the current state, history and available events.
func (s *QuotationServiceImpl) GetSnapshot(ctx context.Context, quotationID string) (*quotation.Snapshot, error) {
	q, err := s.quotationRepo.GetByID(ctx, quotationID)
	if err != nil {
		return nil, err
	}
	snap := quotation.NewMachine(*q, s.clock.Now).Snapshot()
	return &snap, nil
}

// DeleteQuotation deletes a quotation.
func (s *QuotationServiceImpl) DeleteQuotation(ctx context.Context, quotationID string) error {
	if err := s.quotationRepo.Delete(ctx, quotationID); err != nil {
		return fmt.Errorf("failed to delete quotation: %w", err)
	}
	return nil
}

// Ensure QuotationServiceImpl implements the interface
var _ primary.QuotationService = (*QuotationServiceImpl)(nil)
