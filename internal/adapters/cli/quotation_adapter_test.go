package cli

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/example/quoteflow/internal/core/quotation"
	"github.com/example/quoteflow/internal/ports/primary"
)

var adapterNow = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

// mockQuotationService implements primary.QuotationService for testing
type mockQuotationService struct {
	createFn     func(ctx context.Context, req primary.CreateQuotationRequest) (*primary.CreateQuotationResponse, error)
	listFn       func(ctx context.Context, filters primary.QuotationFilters) ([]*quotation.Quotation, error)
	canFn        func(ctx context.Context, id string, ev quotation.Event) (*quotation.TransitionCheck, error)
	transitionFn func(ctx context.Context, req primary.TransitionRequest) (*primary.TransitionResponse, error)
	snapshotFn   func(ctx context.Context, id string) (*quotation.Snapshot, error)
	deleteFn     func(ctx context.Context, id string) error

	// Track calls for verification
	lastCreateReq     primary.CreateQuotationRequest
	lastTransitionReq primary.TransitionRequest
	lastFilters       primary.QuotationFilters
}

func draft(id string) *quotation.Quotation {
	q := quotation.NewDraft(quotation.DraftInput{
		ID:            id,
		SupplierID:    "SUP-001",
		SupplierName:  "Fresh Dairy Co",
		SupplierEmail: "orders@dairy.example",
		Category:      "Dairy",
		Items:         []quotation.Item{{ProductID: "PRD-MILK", Quantity: 12, Unit: "l", Price: decimal.NewFromFloat(1.1)}},
	}, adapterNow)
	return &q
}

func (m *mockQuotationService) CreateQuotation(ctx context.Context, req primary.CreateQuotationRequest) (*primary.CreateQuotationResponse, error) {
	m.lastCreateReq = req
	if m.createFn != nil {
		return m.createFn(ctx, req)
	}
	q := draft("QUO-001")
	q.Items = req.Items
	return &primary.CreateQuotationResponse{QuotationID: q.ID, Quotation: q}, nil
}

func (m *mockQuotationService) GetQuotation(ctx context.Context, id string) (*quotation.Quotation, error) {
	return draft(id), nil
}

func (m *mockQuotationService) ListQuotations(ctx context.Context, filters primary.QuotationFilters) ([]*quotation.Quotation, error) {
	m.lastFilters = filters
	if m.listFn != nil {
		return m.listFn(ctx, filters)
	}
	return []*quotation.Quotation{}, nil
}

func (m *mockQuotationService) CanTransition(ctx context.Context, id string, ev quotation.Event) (*quotation.TransitionCheck, error) {
	if m.canFn != nil {
		return m.canFn(ctx, id, ev)
	}
	return &quotation.TransitionCheck{Valid: true, Target: quotation.StateSent}, nil
}

func (m *mockQuotationService) Transition(ctx context.Context, req primary.TransitionRequest) (*primary.TransitionResponse, error) {
	m.lastTransitionReq = req
	if m.transitionFn != nil {
		return m.transitionFn(ctx, req)
	}
	return &primary.TransitionResponse{Snapshot: quotation.Snapshot{State: quotation.StateSent}}, nil
}

func (m *mockQuotationService) GetSnapshot(ctx context.Context, id string) (*quotation.Snapshot, error) {
	if m.snapshotFn != nil {
		return m.snapshotFn(ctx, id)
	}
	q := draft(id)
	return &quotation.Snapshot{
		State:           q.Status,
		Context:         *q,
		History:         q.History,
		AvailableEvents: []quotation.EventType{quotation.EventSend, quotation.EventCancel},
	}, nil
}

func (m *mockQuotationService) DeleteQuotation(ctx context.Context, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

// ============================================================================
// Create Tests
// ============================================================================

func TestQuotationAdapter_Create(t *testing.T) {
	mock := &mockQuotationService{}
	var buf bytes.Buffer
	adapter := NewQuotationAdapter(mock, &buf)

	items := []quotation.Item{{ProductID: "PRD-MILK", Quantity: 12}}
	err := adapter.Create(context.Background(), "SUP-001", "Dairy", items)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if mock.lastCreateReq.SupplierID != "SUP-001" || mock.lastCreateReq.Category != "Dairy" {
		t.Errorf("request = %+v, want SUP-001/Dairy", mock.lastCreateReq)
	}
	output := buf.String()
	if !strings.Contains(output, "✓ Created quotation QUO-001") {
		t.Errorf("output = %q, want creation message", output)
	}
	if !strings.Contains(output, "(1 items)") {
		t.Errorf("output = %q, want item count", output)
	}
}

func TestQuotationAdapter_Create_Error(t *testing.T) {
	mock := &mockQuotationService{
		createFn: func(ctx context.Context, req primary.CreateQuotationRequest) (*primary.CreateQuotationResponse, error) {
			return nil, errors.New("supplier SUP-404 not found")
		},
	}
	var buf bytes.Buffer
	adapter := NewQuotationAdapter(mock, &buf)

	err := adapter.Create(context.Background(), "SUP-404", "", nil)
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if buf.Len() != 0 {
		t.Errorf("expected no output on error, got %q", buf.String())
	}
}

// ============================================================================
// List Tests
// ============================================================================

func TestQuotationAdapter_List(t *testing.T) {
	mock := &mockQuotationService{
		listFn: func(ctx context.Context, filters primary.QuotationFilters) ([]*quotation.Quotation, error) {
			return []*quotation.Quotation{draft("QUO-001"), draft("QUO-002")}, nil
		},
	}
	var buf bytes.Buffer
	adapter := NewQuotationAdapter(mock, &buf)

	err := adapter.List(context.Background(), primary.QuotationFilters{Status: "DRAFT"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if mock.lastFilters.Status != "DRAFT" {
		t.Errorf("filters = %+v, want DRAFT", mock.lastFilters)
	}
	output := buf.String()
	for _, want := range []string{"QUO-001", "QUO-002", "SUPPLIER", "DRAFT"} {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %q: %q", want, output)
		}
	}
}

func TestQuotationAdapter_List_Empty(t *testing.T) {
	var buf bytes.Buffer
	adapter := NewQuotationAdapter(&mockQuotationService{}, &buf)

	if err := adapter.List(context.Background(), primary.QuotationFilters{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), "No quotations found") {
		t.Errorf("output = %q, want empty message", buf.String())
	}
}

// ============================================================================
// Show Tests
// ============================================================================

func TestQuotationAdapter_Show(t *testing.T) {
	var buf bytes.Buffer
	adapter := NewQuotationAdapter(&mockQuotationService{}, &buf)

	snap, err := adapter.Show(context.Background(), "QUO-007")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.Context.ID != "QUO-007" {
		t.Errorf("snapshot ID = %q, want QUO-007", snap.Context.ID)
	}

	output := buf.String()
	for _, want := range []string{"Quotation: QUO-007", "Fresh Dairy Co (SUP-001)", "PRD-MILK", "1.10", "CREATE", "Next: SEND, CANCEL"} {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %q:\n%s", want, output)
		}
	}
}

func TestQuotationAdapter_Show_NotFound(t *testing.T) {
	mock := &mockQuotationService{
		snapshotFn: func(ctx context.Context, id string) (*quotation.Snapshot, error) {
			return nil, errors.New("quotation QUO-999 not found")
		},
	}
	var buf bytes.Buffer
	adapter := NewQuotationAdapter(mock, &buf)

	if _, err := adapter.Show(context.Background(), "QUO-999"); err == nil {
		t.Fatal("expected error, got nil")
	}
}

// ============================================================================
// Apply / Check Tests
// ============================================================================

func TestQuotationAdapter_Apply(t *testing.T) {
	mock := &mockQuotationService{}
	var buf bytes.Buffer
	adapter := NewQuotationAdapter(mock, &buf)

	err := adapter.Apply(context.Background(), "QUO-001", quotation.SendEvent{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if mock.lastTransitionReq.QuotationID != "QUO-001" {
		t.Errorf("QuotationID = %q, want QUO-001", mock.lastTransitionReq.QuotationID)
	}
	if !strings.Contains(buf.String(), "SEND →") || !strings.Contains(buf.String(), "SENT") {
		t.Errorf("output = %q, want transition message", buf.String())
	}
}

func TestQuotationAdapter_Apply_GuardViolation(t *testing.T) {
	violation := &quotation.GuardViolation{Code: quotation.CodeGuardFailed, State: quotation.StateDraft, Event: quotation.EventSend, Reason: "supplier has no email address"}
	mock := &mockQuotationService{
		transitionFn: func(ctx context.Context, req primary.TransitionRequest) (*primary.TransitionResponse, error) {
			return nil, violation
		},
	}
	var buf bytes.Buffer
	adapter := NewQuotationAdapter(mock, &buf)

	err := adapter.Apply(context.Background(), "QUO-001", quotation.SendEvent{})
	var got *quotation.GuardViolation
	if !errors.As(err, &got) || got != violation {
		t.Errorf("err = %v, want the guard violation", err)
	}
}

func TestQuotationAdapter_Check(t *testing.T) {
	tests := []struct {
		name  string
		check *quotation.TransitionCheck
		want  string
	}{
		{
			name:  "valid",
			check: &quotation.TransitionCheck{Valid: true, Target: quotation.StateSent},
			want:  "✓ SEND would move QUO-001 to SENT",
		},
		{
			name: "rejected",
			check: &quotation.TransitionCheck{Err: &quotation.GuardViolation{
				Code: quotation.CodeGuardFailed, State: quotation.StateDraft, Event: quotation.EventSend, Reason: "supplier has no email address",
			}},
			want: "✗ SEND rejected",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &mockQuotationService{
				canFn: func(ctx context.Context, id string, ev quotation.Event) (*quotation.TransitionCheck, error) {
					return tt.check, nil
				},
			}
			var buf bytes.Buffer
			adapter := NewQuotationAdapter(mock, &buf)

			if err := adapter.Check(context.Background(), "QUO-001", quotation.SendEvent{}); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !strings.Contains(buf.String(), tt.want) {
				t.Errorf("output = %q, want %q", buf.String(), tt.want)
			}
		})
	}
}

// ============================================================================
// Delete Tests
// ============================================================================

func TestQuotationAdapter_Delete(t *testing.T) {
	var buf bytes.Buffer
	adapter := NewQuotationAdapter(&mockQuotationService{}, &buf)

	if err := adapter.Delete(context.Background(), "QUO-001"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), "✓ Quotation QUO-001 deleted") {
		t.Errorf("output = %q, want delete message", buf.String())
	}
}
