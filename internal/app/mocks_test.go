package app

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	corelock "github.com/example/quoteflow/internal/core/lock"
	"github.com/example/quoteflow/internal/core/quotation"
	"github.com/example/quoteflow/internal/core/reorder"
	"github.com/example/quoteflow/internal/ports/secondary"
)

// ============================================================================
// Fake clock
// ============================================================================

type fakeTimer struct {
	clock   *fakeClock
	at      time.Time
	f       func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	active := !t.stopped && !t.fired
	t.stopped = true
	return active
}

// fakeClock fires timers synchronously from Advance.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, at: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

// Advance moves time forward and runs every timer that became due, in deadline order.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	now := c.now
	var due []*fakeTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired && !t.at.After(now) {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()

	sort.Slice(due, func(i, j int) bool { return due[i].at.Before(due[j].at) })
	for _, t := range due {
		t.f()
	}
}

// activeTimers counts timers that are neither stopped nor fired.
func (c *fakeClock) activeTimers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

// ============================================================================
// Mock Implementations
// ============================================================================

// mockQuotationRepository implements secondary.QuotationRepository for testing.
type mockQuotationRepository struct {
	mu          sync.Mutex
	quotations  map[string]*quotation.Quotation
	order       []string
	maxNum      int
	createErr   error
	createErrFn func(q *quotation.Quotation) error
	listErr     error
	updateErr   error
	updates     int
}

func newMockQuotationRepository() *mockQuotationRepository {
	return &mockQuotationRepository{quotations: make(map[string]*quotation.Quotation)}
}

func (m *mockQuotationRepository) Create(ctx context.Context, q *quotation.Quotation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	if m.createErrFn != nil {
		if err := m.createErrFn(q); err != nil {
			return err
		}
	}
	stored := q.Clone()
	m.quotations[q.ID] = &stored
	m.order = append(m.order, q.ID)
	if n := quotation.ParseNumber(q.ID); n > m.maxNum {
		m.maxNum = n
	}
	return nil
}

func (m *mockQuotationRepository) GetByID(ctx context.Context, id string) (*quotation.Quotation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.quotations[id]
	if !ok {
		return nil, fmt.Errorf("quotation %s %w", id, secondary.ErrNotFound)
	}
	out := q.Clone()
	return &out, nil
}

func (m *mockQuotationRepository) List(ctx context.Context, filters secondary.QuotationFilters) ([]*quotation.Quotation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	var result []*quotation.Quotation
	for _, id := range m.order {
		q, ok := m.quotations[id]
		if !ok {
			continue
		}
		if filters.Status != "" && string(q.Status) != filters.Status {
			continue
		}
		if filters.SupplierID != "" && q.SupplierID != filters.SupplierID {
			continue
		}
		if filters.OpenOnly && !quotation.IsOpen(q.Status) {
			continue
		}
		out := q.Clone()
		result = append(result, &out)
	}
	return result, nil
}

func (m *mockQuotationRepository) Update(ctx context.Context, q *quotation.Quotation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return m.updateErr
	}
	if _, ok := m.quotations[q.ID]; !ok {
		return fmt.Errorf("quotation %s %w", q.ID, secondary.ErrNotFound)
	}
	stored := q.Clone()
	m.quotations[q.ID] = &stored
	m.updates++
	return nil
}

func (m *mockQuotationRepository) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.quotations[id]; !ok {
		return fmt.Errorf("quotation %s %w", id, secondary.ErrNotFound)
	}
	delete(m.quotations, id)
	return nil
}

func (m *mockQuotationRepository) GetNextID(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return quotation.GenerateID(m.maxNum), nil
}

// all returns stored quotations in creation order.
func (m *mockQuotationRepository) all() []*quotation.Quotation {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*quotation.Quotation
	for _, id := range m.order {
		if q, ok := m.quotations[id]; ok {
			c := q.Clone()
			out = append(out, &c)
		}
	}
	return out
}

// mockSupplierDirectory implements secondary.SupplierDirectory for testing.
type mockSupplierDirectory struct {
	suppliers map[string]*secondary.SupplierRecord
	getErr    map[string]error
}

func newMockSupplierDirectory(records ...*secondary.SupplierRecord) *mockSupplierDirectory {
	m := &mockSupplierDirectory{
		suppliers: make(map[string]*secondary.SupplierRecord),
		getErr:    make(map[string]error),
	}
	for _, r := range records {
		m.suppliers[r.ID] = r
	}
	return m
}

func (m *mockSupplierDirectory) GetByID(ctx context.Context, id string) (*secondary.SupplierRecord, error) {
	if err := m.getErr[id]; err != nil {
		return nil, err
	}
	return m.suppliers[id], nil
}

func (m *mockSupplierDirectory) Upsert(ctx context.Context, supplier *secondary.SupplierRecord) error {
	m.suppliers[supplier.ID] = supplier
	return nil
}

func (m *mockSupplierDirectory) List(ctx context.Context) ([]*secondary.SupplierRecord, error) {
	var out []*secondary.SupplierRecord
	for _, s := range m.suppliers {
		out = append(out, s)
	}
	return out, nil
}

// mockSettingsStore implements secondary.SettingsStore for testing.
type mockSettingsStore struct {
	mode reorder.AutomationMode
	err  error
}

func (m *mockSettingsStore) GetAutomationMode(ctx context.Context) (reorder.AutomationMode, error) {
	if m.err != nil {
		return "", m.err
	}
	if m.mode == "" {
		return reorder.ModeAuto, nil
	}
	return m.mode, nil
}

func (m *mockSettingsStore) SetAutomationMode(ctx context.Context, mode reorder.AutomationMode) error {
	m.mode = mode
	return nil
}

// mockInventoryRepository implements secondary.InventoryRepository for testing.
type mockInventoryRepository struct {
	items   []reorder.InventoryItem
	listErr error
}

func (m *mockInventoryRepository) List(ctx context.Context) ([]reorder.InventoryItem, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.items, nil
}

func (m *mockInventoryRepository) GetByProductID(ctx context.Context, productID string) (*reorder.InventoryItem, error) {
	for i := range m.items {
		if m.items[i].ProductID == productID {
			item := m.items[i]
			return &item, nil
		}
	}
	return nil, nil
}

func (m *mockInventoryRepository) Upsert(ctx context.Context, item reorder.InventoryItem) error {
	m.items = append(m.items, item)
	return nil
}

// memLockStore implements secondary.LockStore with an atomic conditional create.
type memLockStore struct {
	mu         sync.Mutex
	locks      map[string]corelock.Lock
	getErr     error
	acquireErr error
	deleteErr  error
	acquires   int
}

func newMemLockStore() *memLockStore {
	return &memLockStore{locks: make(map[string]corelock.Lock)}
}

func (m *memLockStore) Get(ctx context.Context, productID string) (*corelock.Lock, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	l, ok := m.locks[productID]
	if !ok {
		return nil, nil
	}
	return &l, nil
}

func (m *memLockStore) Acquire(ctx context.Context, l corelock.Lock, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.acquires++
	if m.acquireErr != nil {
		return false, m.acquireErr
	}
	var existing *corelock.Lock
	if cur, ok := m.locks[l.ProductID]; ok {
		existing = &cur
	}
	if !corelock.CanAcquire(existing, now).Allowed {
		return false, nil
	}
	m.locks[l.ProductID] = l
	return true, nil
}

func (m *memLockStore) Extend(ctx context.Context, l corelock.Lock) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.locks[l.ProductID]
	if !ok || cur.AcquiredBy != l.AcquiredBy {
		return false, nil
	}
	m.locks[l.ProductID] = l
	return true, nil
}

func (m *memLockStore) Release(ctx context.Context, productID, holder string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return false, m.deleteErr
	}
	cur, ok := m.locks[productID]
	if !ok || cur.AcquiredBy != holder {
		return false, nil
	}
	delete(m.locks, productID)
	return true, nil
}

// put stores l as if another process had written it.
func (m *memLockStore) put(l corelock.Lock) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locks[l.ProductID] = l
}

func (m *memLockStore) holder(productID string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.locks[productID].AcquiredBy
}

func (m *memLockStore) held(productID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.locks[productID]
	return ok
}

var errStoreDown = errors.New("store unavailable")
