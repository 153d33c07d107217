// Package quotation contains the pure business logic for the quotation lifecycle.
// This is part of the Functional Core - no I/O, only pure functions over values.
package quotation

import (
	"time"

	"github.com/shopspring/decimal"
)

// State represents the lifecycle state of a quotation.
type State string

const (
	StateDraft     State = "DRAFT"
	StateSent      State = "SENT"
	StateReplied   State = "REPLIED"
	StateQuoted    State = "QUOTED"
	StateConfirmed State = "CONFIRMED"
	StateDelivered State = "DELIVERED"
	StateCancelled State = "CANCELLED"
	StateExpired   State = "EXPIRED"
)

// AllStates lists every state in lifecycle order.
var AllStates = []State{
	StateDraft, StateSent, StateReplied, StateQuoted,
	StateConfirmed, StateDelivered, StateCancelled, StateExpired,
}

// IsOpen reports whether a quotation in this state still represents outstanding
// procurement work. Open quotations block new automatic quotations for their products.
func IsOpen(s State) bool {
	switch s {
	case StateDraft, StateSent, StateReplied, StateQuoted, StateConfirmed:
		return true
	}
	return false
}

// IsTerminal reports whether no transition leaves this state.
func IsTerminal(s State) bool {
	return s == StateDelivered
}

// Source records who raised a quotation.
type Source string

const (
	SourceManual Source = "manual"
	SourceAuto   Source = "auto"
)

// Item is a single line on a quotation.
type Item struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	Category  string          `json:"category"`
	Quantity  float64         `json:"quantity"`
	Unit      string          `json:"unit"`
	Price     decimal.Decimal `json:"price"`
}

// HistoryEntry is one applied event in a quotation's event-sourced history.
type HistoryEntry struct {
	PreviousState State          `json:"previous_state"`
	State         State          `json:"state"`
	Event         EventType      `json:"event"`
	Timestamp     time.Time      `json:"timestamp"`
	Payload       map[string]any `json:"payload,omitempty"`
}

// Quotation is the machine context: everything the guards and actions read or derive.
type Quotation struct {
	ID            string
	SupplierID    string
	SupplierName  string
	SupplierEmail string
	Category      string
	Source        Source
	Items         []Item
	Status        State

	SentAt      *time.Time
	RepliedAt   *time.Time
	AnalyzedAt  *time.Time
	ConfirmedAt *time.Time
	DeliveredAt *time.Time
	CancelledAt *time.Time

	QuotedTotal  *decimal.Decimal
	ReplyBody    string
	CancelReason string

	CreatedAt time.Time
	UpdatedAt time.Time
	History   []HistoryEntry
}

// DraftInput carries the fields of a newly raised quotation.
type DraftInput struct {
	ID            string
	SupplierID    string
	SupplierName  string
	SupplierEmail string
	Category      string
	Source        Source
	Items         []Item
}

// NewDraft builds a DRAFT quotation whose history starts with a CREATE entry,
// so the status always matches the last history entry.
func NewDraft(in DraftInput, now time.Time) Quotation {
	source := in.Source
	if source == "" {
		source = SourceManual
	}
	items := make([]Item, len(in.Items))
	copy(items, in.Items)

	return Quotation{
		ID:            in.ID,
		SupplierID:    in.SupplierID,
		SupplierName:  in.SupplierName,
		SupplierEmail: in.SupplierEmail,
		Category:      in.Category,
		Source:        source,
		Items:         items,
		Status:        StateDraft,
		CreatedAt:     now,
		UpdatedAt:     now,
		History: []HistoryEntry{{
			State:     StateDraft,
			Event:     EventCreate,
			Timestamp: now,
			Payload:   map[string]any{"source": string(source), "items": len(items)},
		}},
	}
}

// Clone returns a deep copy so callers can never mutate machine state through shared slices.
func (q Quotation) Clone() Quotation {
	out := q
	out.Items = make([]Item, len(q.Items))
	copy(out.Items, q.Items)
	out.History = make([]HistoryEntry, len(q.History))
	for i, h := range q.History {
		out.History[i] = h
		if h.Payload != nil {
			p := make(map[string]any, len(h.Payload))
			for k, v := range h.Payload {
				p[k] = v
			}
			out.History[i].Payload = p
		}
	}
	out.SentAt = cloneTime(q.SentAt)
	out.RepliedAt = cloneTime(q.RepliedAt)
	out.AnalyzedAt = cloneTime(q.AnalyzedAt)
	out.ConfirmedAt = cloneTime(q.ConfirmedAt)
	out.DeliveredAt = cloneTime(q.DeliveredAt)
	out.CancelledAt = cloneTime(q.CancelledAt)
	if q.QuotedTotal != nil {
		total := *q.QuotedTotal
		out.QuotedTotal = &total
	}
	return out
}

// ContainsProduct reports whether any line on the quotation is for productID.
func (q Quotation) ContainsProduct(productID string) bool {
	for _, it := range q.Items {
		if it.ProductID == productID {
			return true
		}
	}
	return false
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
