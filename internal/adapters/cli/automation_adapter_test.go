package cli

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	corelock "github.com/example/quoteflow/internal/core/lock"
	"github.com/example/quoteflow/internal/core/reorder"
	"github.com/example/quoteflow/internal/ctxutil"
	"github.com/example/quoteflow/internal/ports/primary"
)

// mockAutomationService implements primary.AutomationService for testing
type mockAutomationService struct {
	outcome   primary.OutcomeKind
	pending   int
	triggerFn func(ctx context.Context, items []reorder.InventoryItem) (*primary.TriggerCheckResponse, error)
	flushFn   func(ctx context.Context) (*primary.FlushResult, error)

	lastEvent reorder.StockEvent
}

func (m *mockAutomationService) Init(ctx context.Context) error { return nil }

func (m *mockAutomationService) HandleStockEvent(ctx context.Context, ev reorder.StockEvent) primary.OutcomeKind {
	m.lastEvent = ev
	return m.outcome
}

func (m *mockAutomationService) TriggerCheck(ctx context.Context, items []reorder.InventoryItem) (*primary.TriggerCheckResponse, error) {
	if m.triggerFn != nil {
		return m.triggerFn(ctx, items)
	}
	return &primary.TriggerCheckResponse{}, nil
}

func (m *mockAutomationService) FlushPending(ctx context.Context) (*primary.FlushResult, error) {
	if m.flushFn != nil {
		return m.flushFn(ctx)
	}
	return &primary.FlushResult{}, nil
}

func (m *mockAutomationService) PendingCount() int { return m.pending }

func (m *mockAutomationService) Subscribe() (<-chan primary.Outcome, func()) {
	return make(chan primary.Outcome), func() {}
}

func (m *mockAutomationService) Stop() {}

// mockLockService implements primary.LockService for testing
type mockLockService struct {
	outcome    primary.LockOutcome
	acquireErr error
	lock       *corelock.Lock
	releaseErr error
	extendErr  error
	notHeld    bool

	released []string
	extended []string
}

func (m *mockLockService) AcquireLock(ctx context.Context, productID string) (primary.LockOutcome, error) {
	return m.outcome, m.acquireErr
}

func (m *mockLockService) ExtendLock(ctx context.Context, productID string) error {
	if m.extendErr != nil {
		return m.extendErr
	}
	m.extended = append(m.extended, productID)
	return nil
}

func (m *mockLockService) ReleaseLock(ctx context.Context, productID string) (bool, error) {
	if m.releaseErr != nil {
		return false, m.releaseErr
	}
	if m.notHeld {
		return false, nil
	}
	m.released = append(m.released, productID)
	return true, nil
}

func (m *mockLockService) GetLock(ctx context.Context, productID string) (*corelock.Lock, error) {
	return m.lock, nil
}

func (m *mockLockService) Holder() string { return "cli-test" }

func TestAutomationAdapter_Check(t *testing.T) {
	mock := &mockAutomationService{
		triggerFn: func(ctx context.Context, items []reorder.InventoryItem) (*primary.TriggerCheckResponse, error) {
			return &primary.TriggerCheckResponse{Evaluated: 2, Queued: 1, Dropped: 1}, nil
		},
	}
	var buf bytes.Buffer
	adapter := NewAutomationAdapter(mock, &buf)

	items := []reorder.InventoryItem{{ProductID: "A"}, {ProductID: "B"}, {ProductID: "C"}}
	if err := adapter.Check(context.Background(), items); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), "Checked 3 items: 2 low, 1 queued, 1 dropped") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestAutomationAdapter_Check_Error(t *testing.T) {
	mock := &mockAutomationService{
		triggerFn: func(ctx context.Context, items []reorder.InventoryItem) (*primary.TriggerCheckResponse, error) {
			return nil, errors.New("settings unavailable")
		},
	}
	adapter := NewAutomationAdapter(mock, &bytes.Buffer{})

	if err := adapter.Check(context.Background(), nil); err == nil {
		t.Fatal("expected error, got nil")
	}
}

func TestAutomationAdapter_Emit(t *testing.T) {
	mock := &mockAutomationService{outcome: primary.OutcomeLockContended}
	var buf bytes.Buffer
	adapter := NewAutomationAdapter(mock, &buf)

	ev := reorder.StockEvent{Type: reorder.EventNeedsReorder, ProductID: "PRD-MILK"}
	if err := adapter.Emit(context.Background(), ev); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mock.lastEvent.ProductID != "PRD-MILK" {
		t.Errorf("event = %+v, want PRD-MILK", mock.lastEvent)
	}
	if !strings.Contains(buf.String(), "PRD-MILK: lock_contended") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestAutomationAdapter_Flush(t *testing.T) {
	tests := []struct {
		name   string
		result *primary.FlushResult
		want   []string
	}{
		{
			name:   "nothing pending",
			result: &primary.FlushResult{},
			want:   []string{"Nothing pending"},
		},
		{
			name: "created and duplicates",
			result: &primary.FlushResult{
				Processed:  3,
				Created:    []string{"QUO-004"},
				Duplicates: []string{"PRD-CREAM"},
				Skipped:    1,
				Failures:   1,
			},
			want: []string{"Flushed 3 requests", "created QUO-004", "already open: PRD-CREAM", "skipped 1 sub-groups", "1 sub-groups failed"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &mockAutomationService{
				flushFn: func(ctx context.Context) (*primary.FlushResult, error) { return tt.result, nil },
			}
			var buf bytes.Buffer
			adapter := NewAutomationAdapter(mock, &buf)

			if _, err := adapter.Flush(context.Background()); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			for _, want := range tt.want {
				if !strings.Contains(buf.String(), want) {
					t.Errorf("output missing %q: %q", want, buf.String())
				}
			}
		})
	}
}

func TestAutomationAdapter_PendingAndOutcome(t *testing.T) {
	var buf bytes.Buffer
	adapter := NewAutomationAdapter(&mockAutomationService{pending: 4}, &buf)

	adapter.Pending()
	adapter.PrintOutcome(primary.Outcome{
		Kind:        primary.OutcomeQuotationCreated,
		At:          adapterNow,
		QuotationID: "QUO-002",
		SupplierID:  "SUP-001",
		Products:    []string{"PRD-MILK", "PRD-CREAM"},
	})

	output := buf.String()
	for _, want := range []string{"4 requests pending", "quotation_created QUO-002", "supplier=SUP-001", "products=PRD-MILK,PRD-CREAM"} {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %q: %q", want, output)
		}
	}
}

func TestLockAdapter_Show(t *testing.T) {
	l := corelock.New("PRD-MILK", "proc-a", adapterNow, corelock.DefaultTTL)

	tests := []struct {
		name string
		lock *corelock.Lock
		now  time.Time
		want string
	}{
		{name: "no lock", lock: nil, now: adapterNow, want: "No lock for PRD-MILK"},
		{name: "live", lock: &l, now: adapterNow.Add(time.Minute), want: "live"},
		{name: "expired", lock: &l, now: adapterNow.Add(corelock.DefaultTTL), want: "expired"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			adapter := NewLockAdapter(&mockLockService{lock: tt.lock}, &buf)

			if err := adapter.Show(context.Background(), "PRD-MILK", tt.now); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !strings.Contains(buf.String(), tt.want) {
				t.Errorf("output = %q, want %q", buf.String(), tt.want)
			}
		})
	}
}

func TestLockAdapter_Acquire(t *testing.T) {
	tests := []struct {
		name    string
		outcome primary.LockOutcome
		err     error
		wantErr bool
	}{
		{name: "acquired", outcome: primary.LockAcquired},
		{name: "contended", outcome: primary.LockContended, wantErr: true},
		{name: "store down", outcome: primary.LockFailedOpen, err: errors.New("timeout"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			adapter := NewLockAdapter(&mockLockService{outcome: tt.outcome, acquireErr: tt.err}, &buf)

			err := adapter.Acquire(context.Background(), "PRD-MILK")
			if (err != nil) != tt.wantErr {
				t.Errorf("err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLockAdapter_Release(t *testing.T) {
	mock := &mockLockService{}
	var buf bytes.Buffer
	adapter := NewLockAdapter(mock, &buf)

	if err := adapter.Release(context.Background(), "PRD-MILK"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(mock.released) != 1 || mock.released[0] != "PRD-MILK" {
		t.Errorf("released = %v, want [PRD-MILK]", mock.released)
	}
	if !strings.Contains(buf.String(), "✓ Lock for PRD-MILK released") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestLockAdapter_ReleaseNotHeld(t *testing.T) {
	mock := &mockLockService{notHeld: true}
	var buf bytes.Buffer
	adapter := NewLockAdapter(mock, &buf)

	ctx := ctxutil.WithHolder(context.Background(), "cli")
	if err := adapter.Release(ctx, "PRD-MILK"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), "No lock for PRD-MILK held by cli") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestLockAdapter_Extend(t *testing.T) {
	mock := &mockLockService{}
	var buf bytes.Buffer
	adapter := NewLockAdapter(mock, &buf)

	if err := adapter.Extend(context.Background(), "PRD-MILK"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(mock.extended) != 1 || !strings.Contains(buf.String(), "✓ Lock for PRD-MILK extended") {
		t.Errorf("extended = %v, output = %q", mock.extended, buf.String())
	}

	mock.extendErr = errors.New("no live lock for PRD-MILK")
	if err := adapter.Extend(context.Background(), "PRD-MILK"); err == nil {
		t.Error("expected extend error")
	}
}
