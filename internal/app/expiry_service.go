package app

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/example/quoteflow/internal/core/quotation"
	"github.com/example/quoteflow/internal/ports/primary"
	"github.com/example/quoteflow/internal/ports/secondary"
)

// ExpiryServiceImpl implements the ExpiryService interface.
type ExpiryServiceImpl struct {
	quotationRepo secondary.QuotationRepository
	clock         Clock
	logger        logrus.FieldLogger
}

// NewExpiryService creates a new ExpiryService with injected dependencies.
func NewExpiryService(quotationRepo secondary.QuotationRepository, clock Clock, logger logrus.FieldLogger) *ExpiryServiceImpl {
	return &ExpiryServiceImpl{
		quotationRepo: quotationRepo,
		clock:         clock,
		logger:        logger,
	}
}

// ExpireStale expires SENT quotations past the reply window. A failed update is
// recorded and the sweep moves on; listing failures abort it.
func (s *ExpiryServiceImpl) ExpireStale(ctx context.Context) (*primary.ExpiryResult, error) {
	sent, err := s.quotationRepo.List(ctx, secondary.QuotationFilters{Status: string(quotation.StateSent)})
	if err != nil {
		return nil, fmt.Errorf("failed to list sent quotations: %w", err)
	}

	result := &primary.ExpiryResult{Checked: len(sent)}
	for _, q := range sent {
		res := quotation.NewMachine(*q, s.clock.Now).Send(quotation.ExpireEvent{})
		if !res.Success {
			continue
		}

		updated := res.Snapshot.Context
		if err := s.quotationRepo.Update(ctx, &updated); err != nil {
			s.logger.WithFields(logrus.Fields{
				"quotation_id": q.ID,
				"error":        err.Error(),
			}).Warn("failed to expire quotation")
			result.Failed = append(result.Failed, q.ID)
			continue
		}
		result.Expired = append(result.Expired, q.ID)
	}

	if len(result.Expired) > 0 || len(result.Failed) > 0 {
		s.logger.WithFields(logrus.Fields{
			"checked": result.Checked,
			"expired": len(result.Expired),
			"failed":  len(result.Failed),
		}).Info("expiry sweep finished")
	}
	return result, nil
}

// Ensure ExpiryServiceImpl implements the interface
var _ primary.ExpiryService = (*ExpiryServiceImpl)(nil)
