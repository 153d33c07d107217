// Package app contains the application layer - service implementations and effect execution.
package app

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/example/quoteflow/internal/core/effects"
	"github.com/example/quoteflow/internal/core/quotation"
	"github.com/example/quoteflow/internal/ctxutil"
	"github.com/example/quoteflow/internal/ports/primary"
	"github.com/example/quoteflow/internal/ports/secondary"
)

// EffectExecutor interprets and executes effects.
// This is the "Imperative Shell" - the only place planned work becomes I/O.
type EffectExecutor interface {
	Execute(ctx context.Context, effs []effects.Effect) (*ExecutionReport, error)
}

// ExecutionReport lists what an execution actually changed.
type ExecutionReport struct {
	Created  []quotation.Quotation
	Released []string
}

func (r *ExecutionReport) merge(other *ExecutionReport) {
	if other == nil {
		return
	}
	r.Created = append(r.Created, other.Created...)
	r.Released = append(r.Released, other.Released...)
}

// DefaultEffectExecutor implements EffectExecutor against the repositories.
type DefaultEffectExecutor struct {
	quotationRepo secondary.QuotationRepository
	locks         primary.LockService
	clock         Clock
	logger        logrus.FieldLogger
}

// NewEffectExecutor creates a new DefaultEffectExecutor.
func NewEffectExecutor(quotationRepo secondary.QuotationRepository, locks primary.LockService, clock Clock, logger logrus.FieldLogger) *DefaultEffectExecutor {
	return &DefaultEffectExecutor{
		quotationRepo: quotationRepo,
		locks:         locks,
		clock:         clock,
		logger:        logger,
	}
}

// Execute processes a slice of effects in sequence and stops at the first failure.
// Lock releases are best-effort and never fail an execution.
func (e *DefaultEffectExecutor) Execute(ctx context.Context, effs []effects.Effect) (*ExecutionReport, error) {
	report := &ExecutionReport{}
	for _, eff := range effs {
		sub, err := e.executeOne(ctx, eff)
		report.merge(sub)
		if err != nil {
			return report, fmt.Errorf("failed to execute %s effect: %w", eff.EffectType(), err)
		}
	}
	return report, nil
}

func (e *DefaultEffectExecutor) executeOne(ctx context.Context, eff effects.Effect) (*ExecutionReport, error) {
	switch typed := eff.(type) {
	case effects.PersistEffect:
		return e.executePersist(ctx, typed)
	case effects.ReleaseLockEffect:
		return e.executeRelease(ctx, typed), nil
	case effects.CompositeEffect:
		return e.Execute(ctx, typed.Effects)
	case effects.NoEffect:
		return nil, nil
	case effects.LogEffect:
		e.executeLog(typed)
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown effect type: %T", eff)
	}
}

func (e *DefaultEffectExecutor) executePersist(ctx context.Context, eff effects.PersistEffect) (*ExecutionReport, error) {
	switch eff.Entity {
	case "quotation":
		return e.executeQuotationOp(ctx, eff)
	default:
		return nil, fmt.Errorf("unknown entity: %s", eff.Entity)
	}
}

func (e *DefaultEffectExecutor) executeQuotationOp(ctx context.Context, eff effects.PersistEffect) (*ExecutionReport, error) {
	switch eff.Operation {
	case "create":
		in, ok := eff.Data.(quotation.DraftInput)
		if !ok {
			return nil, fmt.Errorf("invalid quotation create data type: %T", eff.Data)
		}
		id, err := e.quotationRepo.GetNextID(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to generate quotation ID: %w", err)
		}
		in.ID = id
		q := quotation.NewDraft(in, e.clock.Now())
		if err := e.quotationRepo.Create(ctx, &q); err != nil {
			return nil, fmt.Errorf("failed to create quotation: %w", err)
		}
		return &ExecutionReport{Created: []quotation.Quotation{q}}, nil
	default:
		return nil, fmt.Errorf("unknown quotation operation: %s", eff.Operation)
	}
}

func (e *DefaultEffectExecutor) executeRelease(ctx context.Context, eff effects.ReleaseLockEffect) *ExecutionReport {
	if eff.Holder != "" {
		ctx = ctxutil.WithHolder(ctx, eff.Holder)
	}
	released, err := e.locks.ReleaseLock(ctx, eff.ProductID)
	if err != nil || !released {
		// Failures were logged by the lock service; the lock expires on its own.
		return nil
	}
	return &ExecutionReport{Released: []string{eff.ProductID}}
}

func (e *DefaultEffectExecutor) executeLog(eff effects.LogEffect) {
	entry := e.logger.WithFields(logrus.Fields(eff.Fields))
	switch eff.Level {
	case "debug":
		entry.Debug(eff.Message)
	case "warn":
		entry.Warn(eff.Message)
	case "error":
		entry.Error(eff.Message)
	default:
		entry.Info(eff.Message)
	}
}

// Ensure DefaultEffectExecutor implements the interface
var _ EffectExecutor = (*DefaultEffectExecutor)(nil)
