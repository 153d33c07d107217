package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/example/quoteflow/internal/core/effects"
	corelock "github.com/example/quoteflow/internal/core/lock"
	"github.com/example/quoteflow/internal/core/quotation"
	"github.com/example/quoteflow/internal/core/reorder"
	"github.com/example/quoteflow/internal/ctxutil"
	"github.com/example/quoteflow/internal/ports/primary"
	"github.com/example/quoteflow/internal/ports/secondary"
)

const (
	DefaultDebounce       = 5 * time.Second
	DefaultReconcileDelay = 3 * time.Second
	DefaultOutcomeBuffer  = 64
)

// OrchestratorConfig tunes an AutoQuotationOrchestrator.
type OrchestratorConfig struct {
	Debounce       time.Duration
	ReconcileDelay time.Duration // negative means reconcile immediately
	MaxItems       int
	OutcomeBuffer  int
	LockTTL        time.Duration // queued products' locks are extended every LockTTL/2
}

func (c OrchestratorConfig) withDefaults() OrchestratorConfig {
	if c.Debounce <= 0 {
		c.Debounce = DefaultDebounce
	}
	if c.ReconcileDelay < 0 {
		c.ReconcileDelay = 0
	} else if c.ReconcileDelay == 0 {
		c.ReconcileDelay = DefaultReconcileDelay
	}
	if c.MaxItems <= 0 {
		c.MaxItems = reorder.MaxItemsPerQuotation
	}
	if c.OutcomeBuffer <= 0 {
		c.OutcomeBuffer = DefaultOutcomeBuffer
	}
	if c.LockTTL <= 0 {
		c.LockTTL = corelock.DefaultTTL
	}
	return c
}

// OrchestratorDeps groups the ports the orchestrator drives.
type OrchestratorDeps struct {
	Quotations secondary.QuotationRepository
	Suppliers  secondary.SupplierDirectory
	Settings   secondary.SettingsStore
	Inventory  secondary.InventoryRepository
	Locks      primary.LockService
	Executor   EffectExecutor
	Clock      Clock
	Logger     logrus.FieldLogger
}

// AutoQuotationOrchestrator turns low-stock signals into deduplicated DRAFT quotations.
// All mutable state lives on the instance; independent instances never share it.
type AutoQuotationOrchestrator struct {
	deps OrchestratorDeps
	cfg  OrchestratorConfig

	mu             sync.Mutex
	pending        *reorder.Batch
	debounce       Timer
	heartbeat      Timer
	heartbeatGen   int
	reconcile      Timer
	initialized    bool
	stopped        bool
	openCache      []quotation.Quotation
	cacheAvailable bool

	// flushMu keeps at most one flush in flight.
	flushMu sync.Mutex

	subMu   sync.Mutex
	subs    map[int]chan primary.Outcome
	nextSub int
}

// NewAutoQuotationOrchestrator creates a new orchestrator with injected dependencies.
func NewAutoQuotationOrchestrator(deps OrchestratorDeps, cfg OrchestratorConfig) *AutoQuotationOrchestrator {
	if deps.Clock == nil {
		deps.Clock = SystemClock()
	}
	if deps.Logger == nil {
		deps.Logger = logrus.StandardLogger()
	}
	return &AutoQuotationOrchestrator{
		deps:    deps,
		cfg:     cfg.withDefaults(),
		pending: reorder.NewBatch(),
		subs:    make(map[int]chan primary.Outcome),
	}
}

// Init schedules startup reconciliation after the grace delay. Calling it again is a no-op.
func (o *AutoQuotationOrchestrator) Init(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.initialized {
		return nil
	}
	if o.stopped {
		return errors.New("orchestrator is stopped")
	}
	o.initialized = true

	bg := context.WithoutCancel(ctx)
	o.reconcile = o.deps.Clock.AfterFunc(o.cfg.ReconcileDelay, func() {
		o.runReconciliation(bg)
	})

	o.deps.Logger.WithField("delay", o.cfg.ReconcileDelay.String()).Info("auto-quotation orchestrator initialized")
	return nil
}

// runReconciliation scans inventory once and feeds every low item through admission.
func (o *AutoQuotationOrchestrator) runReconciliation(ctx context.Context) {
	items, err := o.deps.Inventory.List(ctx)
	if err != nil {
		o.deps.Logger.WithError(err).Error("reconciliation: failed to list inventory")
		o.publish(primary.Outcome{Kind: primary.OutcomeRepositoryFailure, Reason: err.Error()})
		return
	}

	events := reorder.SynthesizeEvents(items)
	queued := 0
	for _, ev := range events {
		if o.HandleStockEvent(ctx, ev) == primary.OutcomeQueued {
			queued++
		}
	}

	o.deps.Logger.WithFields(logrus.Fields{
		"scanned": len(items),
		"low":     len(events),
		"queued":  queued,
	}).Info("reconciliation complete")
}

// HandleStockEvent runs one event through the admission chain and queues it.
// Rejections are logged and published, never returned as errors.
func (o *AutoQuotationOrchestrator) HandleStockEvent(ctx context.Context, ev reorder.StockEvent) primary.OutcomeKind {
	log := o.deps.Logger.WithFields(logrus.Fields{
		"product_id":  ev.ProductID,
		"supplier_id": ev.SupplierID,
	})

	o.mu.Lock()
	stopped := o.stopped
	o.mu.Unlock()
	if stopped {
		return o.drop(log, ev, "orchestrator is stopped")
	}

	mode, err := o.deps.Settings.GetAutomationMode(ctx)
	if err != nil {
		log.WithError(err).Warn("failed to read automation mode, assuming auto")
		mode = reorder.ModeAuto
	}

	if result := reorder.CanAdmit(reorder.AdmissionContext{Mode: mode, Event: ev}); !result.Allowed {
		return o.drop(log, ev, result.Reason)
	}

	outcome, lockErr := o.deps.Locks.AcquireLock(ctx, ev.ProductID)
	switch outcome {
	case primary.LockContended:
		log.Debug("product already being handled")
		o.publish(primary.Outcome{Kind: primary.OutcomeLockContended, ProductID: ev.ProductID, SupplierID: ev.SupplierID})
		return primary.OutcomeLockContended
	case primary.LockFailedClosed:
		o.publish(primary.Outcome{Kind: primary.OutcomeLockFailedClosed, ProductID: ev.ProductID, SupplierID: ev.SupplierID, Reason: errString(lockErr)})
		return primary.OutcomeLockFailedClosed
	case primary.LockFailedOpen:
		o.publish(primary.Outcome{Kind: primary.OutcomeLockFailedOpen, ProductID: ev.ProductID, SupplierID: ev.SupplierID, Reason: errString(lockErr)})
	}

	req := reorder.RequestFromEvent(ev, o.deps.Clock.Now())
	if outcome == primary.LockAcquired {
		req.LockHolder = o.lockHolder(ctx)
	}

	o.mu.Lock()
	replaced := o.pending.Add(req)
	o.resetDebounceLocked()
	pending := o.pending.Len()
	o.mu.Unlock()

	log.WithFields(logrus.Fields{"pending": pending, "replaced": replaced}).Info("queued reorder request")
	o.publish(primary.Outcome{
		Kind:       primary.OutcomeQueued,
		ProductID:  ev.ProductID,
		SupplierID: ev.SupplierID,
		Category:   ev.Category,
	})
	return primary.OutcomeQueued
}

func (o *AutoQuotationOrchestrator) drop(log logrus.FieldLogger, ev reorder.StockEvent, reason string) primary.OutcomeKind {
	log.WithField("reason", reason).Info("stock event dropped")
	o.publish(primary.Outcome{
		Kind:       primary.OutcomeEventDropped,
		ProductID:  ev.ProductID,
		SupplierID: ev.SupplierID,
		Reason:     reason,
	})
	return primary.OutcomeEventDropped
}

// lockHolder is the identity the lock service wrote for ctx.
func (o *AutoQuotationOrchestrator) lockHolder(ctx context.Context) string {
	if h := ctxutil.HolderFromContext(ctx); h != "" {
		return h
	}
	return o.deps.Locks.Holder()
}

// resetDebounceLocked restarts the shared debounce timer and makes sure the lock
// heartbeat is running. Caller holds o.mu.
func (o *AutoQuotationOrchestrator) resetDebounceLocked() {
	if o.debounce != nil {
		o.debounce.Stop()
	}
	o.debounce = o.deps.Clock.AfterFunc(o.cfg.Debounce, func() {
		if _, err := o.FlushPending(context.Background()); err != nil {
			o.deps.Logger.WithError(err).Error("debounced flush failed")
		}
	})
	if o.heartbeat == nil {
		o.scheduleHeartbeatLocked()
	}
}

// scheduleHeartbeatLocked arms the next lock heartbeat. Caller holds o.mu.
func (o *AutoQuotationOrchestrator) scheduleHeartbeatLocked() {
	o.heartbeatGen++
	gen := o.heartbeatGen
	o.heartbeat = o.deps.Clock.AfterFunc(o.cfg.LockTTL/2, func() {
		o.heartbeatLocks(context.Background(), gen)
	})
}

// stopHeartbeatLocked cancels the heartbeat; a callback already running sees
// a newer generation and returns. Caller holds o.mu.
func (o *AutoQuotationOrchestrator) stopHeartbeatLocked() {
	if o.heartbeat != nil {
		o.heartbeat.Stop()
		o.heartbeat = nil
	}
	o.heartbeatGen++
}

// heartbeatLocks extends the lock of every queued product this process holds.
// A steady event stream keeps restarting the debounce, so a batch can outlive
// the lock TTL. Locks found lost are forgotten so the flush leaves them alone.
func (o *AutoQuotationOrchestrator) heartbeatLocks(ctx context.Context, gen int) {
	o.mu.Lock()
	if gen != o.heartbeatGen || o.stopped {
		o.mu.Unlock()
		return
	}
	o.heartbeat = nil
	locked := o.pending.Locked()
	o.mu.Unlock()

	for _, lp := range locked {
		err := o.deps.Locks.ExtendLock(ctxutil.WithHolder(ctx, lp.Holder), lp.ProductID)
		if err == nil {
			continue
		}
		log := o.deps.Logger.WithFields(logrus.Fields{
			"product_id": lp.ProductID,
			"holder":     lp.Holder,
		}).WithError(err)
		if errors.Is(err, primary.ErrLockNotHeld) {
			log.Warn("lock lost while product was queued")
			o.mu.Lock()
			o.pending.ForgetLock(lp.ProductID)
			o.mu.Unlock()
			continue
		}
		log.Warn("failed to extend lock, retrying on next heartbeat")
	}

	o.mu.Lock()
	if gen == o.heartbeatGen && o.heartbeat == nil && !o.stopped && o.pending.Len() > 0 {
		o.scheduleHeartbeatLocked()
	}
	o.mu.Unlock()
}

// TriggerCheck evaluates items as if their stock had just changed.
func (o *AutoQuotationOrchestrator) TriggerCheck(ctx context.Context, items []reorder.InventoryItem) (*primary.TriggerCheckResponse, error) {
	events := reorder.SynthesizeEvents(items)
	resp := &primary.TriggerCheckResponse{Evaluated: len(events)}
	for _, ev := range events {
		if o.HandleStockEvent(ctx, ev) == primary.OutcomeQueued {
			resp.Queued++
		} else {
			resp.Dropped++
		}
	}
	return resp, nil
}

// PendingCount returns the number of queued requests.
func (o *AutoQuotationOrchestrator) PendingCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.pending.Len()
}

// FlushPending turns the pending batch into quotations.
// The batch is swapped out first, so it is always cleared whatever happens to
// individual sub-groups, and events arriving mid-flush wait for the next one.
func (o *AutoQuotationOrchestrator) FlushPending(ctx context.Context) (*primary.FlushResult, error) {
	o.flushMu.Lock()
	defer o.flushMu.Unlock()

	o.mu.Lock()
	batch := o.pending
	o.pending = reorder.NewBatch()
	if o.debounce != nil {
		o.debounce.Stop()
		o.debounce = nil
	}
	o.stopHeartbeatLocked()
	o.mu.Unlock()

	result := &primary.FlushResult{Processed: batch.Len()}
	if batch.Len() == 0 {
		return result, nil
	}

	groups := batch.Groups()

	// 1. Open quotations, falling back to the cache
	open := o.loadOpenQuotations(ctx)

	// 2. Resolve every supplier once
	suppliers := make(map[string]reorder.SupplierInfo, len(groups))
	for _, g := range groups {
		suppliers[g.SupplierID] = o.resolveSupplier(ctx, g.SupplierID)
	}

	// 3. Plan (pure)
	plan := reorder.GenerateFlushPlan(reorder.FlushPlanInput{
		Groups:       groups,
		Suppliers:    suppliers,
		OpenProducts: reorder.OpenProducts(open),
		MaxItems:     o.cfg.MaxItems,
	})

	// 4. Execute sub-group by sub-group; one failure never blocks the rest
	for _, d := range plan.Decisions {
		o.applyDecision(ctx, d, result)
	}

	// 5. Release the locks this process wrote for flushed products
	releases := make([]effects.Effect, 0, len(plan.Releases))
	for _, r := range plan.Releases {
		releases = append(releases, r)
	}
	if _, err := o.deps.Executor.Execute(ctx, releases); err != nil {
		o.deps.Logger.WithError(err).Warn("failed to release locks after flush")
	}

	o.deps.Logger.WithFields(logrus.Fields{
		"processed":  result.Processed,
		"created":    len(result.Created),
		"skipped":    result.Skipped,
		"duplicates": len(result.Duplicates),
		"failures":   result.Failures,
	}).Info("flush complete")
	o.publish(primary.Outcome{Kind: primary.OutcomeFlushCompleted, Products: batch.ProductIDs()})

	return result, nil
}

func (o *AutoQuotationOrchestrator) applyDecision(ctx context.Context, d reorder.SubGroupDecision, result *primary.FlushResult) {
	if len(d.Duplicates) > 0 {
		result.Duplicates = append(result.Duplicates, d.Duplicates...)
		o.publish(primary.Outcome{
			Kind:       primary.OutcomeDuplicatesFiltered,
			SupplierID: d.SupplierID,
			Category:   d.Category,
			Products:   d.Duplicates,
		})
	}

	report, err := o.deps.Executor.Execute(ctx, d.Effects)
	if err != nil {
		result.Failures++
		o.deps.Logger.WithFields(logrus.Fields{
			"supplier_id": d.SupplierID,
			"category":    d.Category,
		}).WithError(err).Error("failed to create quotation")
		o.publish(primary.Outcome{
			Kind:       primary.OutcomeRepositoryFailure,
			SupplierID: d.SupplierID,
			Category:   d.Category,
			Reason:     err.Error(),
		})
		return
	}

	if d.Skipped {
		result.Skipped++
		o.publish(primary.Outcome{
			Kind:       primary.OutcomeSubGroupSkipped,
			SupplierID: d.SupplierID,
			Category:   d.Category,
			Reason:     d.SkipReason,
		})
		return
	}

	for _, q := range report.Created {
		result.Created = append(result.Created, q.ID)
		o.mu.Lock()
		o.openCache = append(o.openCache, q)
		o.mu.Unlock()

		products := make([]string, 0, len(q.Items))
		for _, it := range q.Items {
			products = append(products, it.ProductID)
		}
		o.deps.Logger.WithFields(logrus.Fields{
			"quotation_id": q.ID,
			"supplier_id":  q.SupplierID,
			"category":     q.Category,
			"items":        len(q.Items),
		}).Info("automatic quotation created")
		o.publish(primary.Outcome{
			Kind:        primary.OutcomeQuotationCreated,
			SupplierID:  q.SupplierID,
			Category:    q.Category,
			QuotationID: q.ID,
			Products:    products,
		})
	}
}

// loadOpenQuotations reads open quotations and refreshes the cache.
// On failure the last successful snapshot is used.
func (o *AutoQuotationOrchestrator) loadOpenQuotations(ctx context.Context) []quotation.Quotation {
	quotes, err := o.deps.Quotations.List(ctx, secondary.QuotationFilters{OpenOnly: true})
	if err != nil {
		o.mu.Lock()
		cached := make([]quotation.Quotation, len(o.openCache))
		copy(cached, o.openCache)
		available := o.cacheAvailable
		o.mu.Unlock()

		o.deps.Logger.WithError(err).WithField("cached", len(cached)).Warn("failed to list open quotations, using cache")
		o.publish(primary.Outcome{Kind: primary.OutcomeRepositoryFailure, Reason: err.Error()})
		if !available {
			o.deps.Logger.Warn("no open quotation snapshot cached, deduplication limited to this flush")
		}
		return cached
	}

	open := make([]quotation.Quotation, 0, len(quotes))
	for _, q := range quotes {
		if q != nil && quotation.IsOpen(q.Status) {
			open = append(open, *q)
		}
	}

	o.mu.Lock()
	o.openCache = open
	o.cacheAvailable = true
	o.mu.Unlock()

	return open
}

func (o *AutoQuotationOrchestrator) resolveSupplier(ctx context.Context, supplierID string) reorder.SupplierInfo {
	rec, err := o.deps.Suppliers.GetByID(ctx, supplierID)
	if err != nil {
		o.deps.Logger.WithField("supplier_id", supplierID).WithError(err).Warn("supplier lookup failed")
		return reorder.SupplierInfo{ID: supplierID, LookupError: err.Error()}
	}
	if rec == nil {
		return reorder.SupplierInfo{ID: supplierID}
	}
	return reorder.SupplierInfo{
		ID:               rec.ID,
		Name:             rec.Name,
		Email:            rec.Email,
		AutoOrderEnabled: rec.AutoOrderEnabled,
		Found:            true,
	}
}

// Subscribe returns a buffered channel of outcomes. Outcomes are dropped, with a
// warning, while the subscriber's buffer is full. The returned func unsubscribes.
func (o *AutoQuotationOrchestrator) Subscribe() (<-chan primary.Outcome, func()) {
	o.subMu.Lock()
	defer o.subMu.Unlock()

	id := o.nextSub
	o.nextSub++
	ch := make(chan primary.Outcome, o.cfg.OutcomeBuffer)
	o.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			o.subMu.Lock()
			defer o.subMu.Unlock()
			delete(o.subs, id)
			close(ch)
		})
	}
}

func (o *AutoQuotationOrchestrator) publish(out primary.Outcome) {
	if out.At.IsZero() {
		out.At = o.deps.Clock.Now()
	}

	o.subMu.Lock()
	defer o.subMu.Unlock()
	for id, ch := range o.subs {
		select {
		case ch <- out:
		default:
			o.deps.Logger.WithFields(logrus.Fields{
				"subscriber": id,
				"kind":       out.Kind,
			}).Warn("outcome subscriber is full, dropping outcome")
		}
	}
}

// Stop cancels the debounce timer and pending reconciliation. Queued requests stay
// queued and can still be flushed explicitly.
func (o *AutoQuotationOrchestrator) Stop() {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.stopped = true
	if o.debounce != nil {
		o.debounce.Stop()
		o.debounce = nil
	}
	o.stopHeartbeatLocked()
	if o.reconcile != nil {
		o.reconcile.Stop()
		o.reconcile = nil
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// Ensure AutoQuotationOrchestrator implements the interface
var _ primary.AutomationService = (*AutoQuotationOrchestrator)(nil)
