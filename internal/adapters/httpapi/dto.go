package httpapi

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/example/quoteflow/internal/core/quotation"
	"github.com/example/quoteflow/internal/core/reorder"
)

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	State   string `json:"state,omitempty"`
	Event   string `json:"event,omitempty"`
}

// CreateQuotationRequest is the body of POST /v1/quotations.
type CreateQuotationRequest struct {
	SupplierID string           `json:"supplier_id" binding:"required"`
	Category   string           `json:"category"`
	Items      []quotation.Item `json:"items"`
}

// EventRequest is the body of POST /v1/quotations/:id/events.
type EventRequest struct {
	Event   string            `json:"event" binding:"required"`
	Payload quotation.Payload `json:"payload"`
}

// HistoryEntryResponse is one applied event.
type HistoryEntryResponse struct {
	PreviousState string         `json:"previous_state,omitempty"`
	State         string         `json:"state"`
	Event         string         `json:"event"`
	Timestamp     time.Time      `json:"timestamp"`
	Payload       map[string]any `json:"payload,omitempty"`
}

// QuotationResponse is the JSON form of a quotation.
type QuotationResponse struct {
	ID            string                 `json:"id"`
	SupplierID    string                 `json:"supplier_id"`
	SupplierName  string                 `json:"supplier_name,omitempty"`
	SupplierEmail string                 `json:"supplier_email,omitempty"`
	Category      string                 `json:"category,omitempty"`
	Source        string                 `json:"source"`
	Status        string                 `json:"status"`
	Items         []quotation.Item       `json:"items"`
	SentAt        *time.Time             `json:"sent_at,omitempty"`
	RepliedAt     *time.Time             `json:"replied_at,omitempty"`
	AnalyzedAt    *time.Time             `json:"analyzed_at,omitempty"`
	ConfirmedAt   *time.Time             `json:"confirmed_at,omitempty"`
	DeliveredAt   *time.Time             `json:"delivered_at,omitempty"`
	CancelledAt   *time.Time             `json:"cancelled_at,omitempty"`
	QuotedTotal   *decimal.Decimal       `json:"quoted_total,omitempty"`
	ReplyBody     string                 `json:"reply_body,omitempty"`
	CancelReason  string                 `json:"cancel_reason,omitempty"`
	CreatedAt     time.Time              `json:"created_at"`
	UpdatedAt     time.Time              `json:"updated_at"`
	History       []HistoryEntryResponse `json:"history"`
}

// SnapshotResponse is the JSON form of a machine snapshot.
type SnapshotResponse struct {
	State           string            `json:"state"`
	Quotation       QuotationResponse `json:"quotation"`
	AvailableEvents []string          `json:"available_events"`
}

// InventoryItemRequest is an inventory row supplied to a manual trigger.
type InventoryItemRequest struct {
	ProductID           string          `json:"product_id"`
	Name                string          `json:"name"`
	Category            string          `json:"category"`
	CurrentStock        float64         `json:"current_stock"`
	MinStock            float64         `json:"min_stock"`
	MaxStock            float64         `json:"max_stock"`
	Unit                string          `json:"unit"`
	SupplierID          string          `json:"supplier_id"`
	SupplierName        string          `json:"supplier_name"`
	Price               decimal.Decimal `json:"price"`
	EnableAutoQuotation *bool           `json:"enable_auto_quotation,omitempty"`
}

// TriggerRequest is the body of POST /v1/automation/trigger. Items win over
// ProductIDs; with neither, the whole inventory is checked.
type TriggerRequest struct {
	Items      []InventoryItemRequest `json:"items"`
	ProductIDs []string               `json:"product_ids"`
}

func fromQuotation(q *quotation.Quotation) QuotationResponse {
	history := make([]HistoryEntryResponse, 0, len(q.History))
	for _, h := range q.History {
		history = append(history, HistoryEntryResponse{
			PreviousState: string(h.PreviousState),
			State:         string(h.State),
			Event:         string(h.Event),
			Timestamp:     h.Timestamp,
			Payload:       h.Payload,
		})
	}
	items := q.Items
	if items == nil {
		items = []quotation.Item{}
	}
	return QuotationResponse{
		ID:            q.ID,
		SupplierID:    q.SupplierID,
		SupplierName:  q.SupplierName,
		SupplierEmail: q.SupplierEmail,
		Category:      q.Category,
		Source:        string(q.Source),
		Status:        string(q.Status),
		Items:         items,
		SentAt:        q.SentAt,
		RepliedAt:     q.RepliedAt,
		AnalyzedAt:    q.AnalyzedAt,
		ConfirmedAt:   q.ConfirmedAt,
		DeliveredAt:   q.DeliveredAt,
		CancelledAt:   q.CancelledAt,
		QuotedTotal:   q.QuotedTotal,
		ReplyBody:     q.ReplyBody,
		CancelReason:  q.CancelReason,
		CreatedAt:     q.CreatedAt,
		UpdatedAt:     q.UpdatedAt,
		History:       history,
	}
}

func fromSnapshot(s quotation.Snapshot) SnapshotResponse {
	q := s.Context
	q.History = s.History
	events := make([]string, 0, len(s.AvailableEvents))
	for _, e := range s.AvailableEvents {
		events = append(events, string(e))
	}
	return SnapshotResponse{
		State:           string(s.State),
		Quotation:       fromQuotation(&q),
		AvailableEvents: events,
	}
}

func (r InventoryItemRequest) toInventoryItem() reorder.InventoryItem {
	return reorder.InventoryItem{
		ProductID:           r.ProductID,
		Name:                r.Name,
		Category:            r.Category,
		CurrentStock:        r.CurrentStock,
		MinStock:            r.MinStock,
		MaxStock:            r.MaxStock,
		Unit:                r.Unit,
		SupplierID:          r.SupplierID,
		SupplierName:        r.SupplierName,
		Price:               r.Price,
		EnableAutoQuotation: r.EnableAutoQuotation,
	}
}
