package quotation

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// EventType names an event the machine understands.
type EventType string

const (
	// EventCreate only ever appears as the first history entry.
	EventCreate EventType = "CREATE"

	EventSend         EventType = "SEND"
	EventCancel       EventType = "CANCEL"
	EventReceiveReply EventType = "RECEIVE_REPLY"
	EventExpire       EventType = "EXPIRE"
	EventAnalyze      EventType = "ANALYZE"
	EventConfirm      EventType = "CONFIRM"
	EventDeliver      EventType = "DELIVER"
	EventReset        EventType = "RESET"
)

// Event is a closed union of the events a quotation accepts.
// Each variant carries only the fields its guard and action need.
type Event interface {
	Type() EventType
	payload() map[string]any
}

// SendEvent dispatches a draft to the supplier.
type SendEvent struct{}

// CancelEvent abandons the quotation.
type CancelEvent struct {
	Reason string
}

// ReceiveReplyEvent records the supplier's email reply.
type ReceiveReplyEvent struct {
	EmailBody string
}

// ExpireEvent marks a sent quotation that never got an answer.
type ExpireEvent struct{}

// AnalyzeEvent replaces the requested items with the supplier's quoted lines.
type AnalyzeEvent struct {
	QuotedItems []QuotedItem
}

// ConfirmEvent accepts the quoted total.
type ConfirmEvent struct{}

// DeliverEvent records receipt of the goods.
type DeliverEvent struct{}

// ResetEvent returns a cancelled or expired quotation to a fresh draft.
type ResetEvent struct{}

// QuotedItem is a line as priced by the supplier.
type QuotedItem struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	Category  string          `json:"category"`
	Quantity  float64         `json:"quantity"`
	Unit      string          `json:"unit"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

func (SendEvent) Type() EventType         { return EventSend }
func (CancelEvent) Type() EventType       { return EventCancel }
func (ReceiveReplyEvent) Type() EventType { return EventReceiveReply }
func (ExpireEvent) Type() EventType       { return EventExpire }
func (AnalyzeEvent) Type() EventType      { return EventAnalyze }
func (ConfirmEvent) Type() EventType      { return EventConfirm }
func (DeliverEvent) Type() EventType      { return EventDeliver }
func (ResetEvent) Type() EventType        { return EventReset }

func (SendEvent) payload() map[string]any    { return nil }
func (ExpireEvent) payload() map[string]any  { return nil }
func (ConfirmEvent) payload() map[string]any { return nil }
func (DeliverEvent) payload() map[string]any { return nil }
func (ResetEvent) payload() map[string]any   { return nil }

func (e CancelEvent) payload() map[string]any {
	if e.Reason == "" {
		return nil
	}
	return map[string]any{"reason": e.Reason}
}

func (e ReceiveReplyEvent) payload() map[string]any {
	return map[string]any{"email_body": e.EmailBody}
}

func (e AnalyzeEvent) payload() map[string]any {
	lines := make([]map[string]any, 0, len(e.QuotedItems))
	for _, qi := range e.QuotedItems {
		lines = append(lines, map[string]any{
			"product_id": qi.ProductID,
			"quantity":   qi.Quantity,
			"unit_price": qi.UnitPrice.String(),
		})
	}
	return map[string]any{"quoted_items": lines}
}

// Payload is the loosely-typed wire form of an event's fields,
// used by the CLI and HTTP adapters before an Event is built.
type Payload struct {
	EmailBody   string       `json:"email_body,omitempty"`
	Reason      string       `json:"reason,omitempty"`
	QuotedItems []QuotedItem `json:"quoted_items,omitempty"`
}

// ParseEvent builds the typed event for name. Unknown names are an error.
func ParseEvent(name string, p Payload) (Event, error) {
	switch EventType(strings.ToUpper(strings.TrimSpace(name))) {
	case EventSend:
		return SendEvent{}, nil
	case EventCancel:
		return CancelEvent{Reason: p.Reason}, nil
	case EventReceiveReply:
		return ReceiveReplyEvent{EmailBody: p.EmailBody}, nil
	case EventExpire:
		return ExpireEvent{}, nil
	case EventAnalyze:
		return AnalyzeEvent{QuotedItems: p.QuotedItems}, nil
	case EventConfirm:
		return ConfirmEvent{}, nil
	case EventDeliver:
		return DeliverEvent{}, nil
	case EventReset:
		return ResetEvent{}, nil
	default:
		return nil, fmt.Errorf("unknown quotation event %q", name)
	}
}
