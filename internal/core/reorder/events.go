// Package reorder contains the pure business logic for automatic quotations:
// admission of low-stock signals, pending batches, and flush planning.
// No I/O happens here; the orchestrator pre-fetches everything a decision needs.
package reorder

import (
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// EventNeedsReorder is the only stock event type acted on.
const EventNeedsReorder = "NEEDS_REORDER"

// StockEvent is a low-stock signal from the inventory subsystem.
// EnableAutoQuotation is tri-state: nil means the item did not say.
type StockEvent struct {
	Type                string          `json:"type"`
	ProductID           string          `json:"productId"`
	ProductName         string          `json:"productName"`
	Category            string          `json:"category"`
	CurrentStock        float64         `json:"currentStock"`
	QuantityToOrder     float64         `json:"quantityToOrder"`
	Unit                string          `json:"unit"`
	SupplierID          string          `json:"supplierId"`
	SupplierName        string          `json:"supplierName"`
	SupplierEmail       string          `json:"supplierEmail"`
	CurrentPrice        decimal.Decimal `json:"currentPrice"`
	EnableAutoQuotation *bool           `json:"enableAutoQuotation,omitempty"`
}

// InventoryItem is an inventory row as seen by reconciliation and manual checks.
type InventoryItem struct {
	ProductID           string
	Name                string
	Category            string
	CurrentStock        float64
	MinStock            float64
	MaxStock            float64
	Unit                string
	SupplierID          string
	SupplierName        string
	SupplierEmail       string
	Price               decimal.Decimal
	EnableAutoQuotation *bool
}

// IsLow reports whether the item is at or below its configured minimum.
func (i InventoryItem) IsLow() bool {
	return i.CurrentStock <= i.MinStock
}

// QuantityToOrder refills to MaxStock when one is configured above the current level,
// otherwise to twice the minimum. Never less than one unit.
func QuantityToOrder(i InventoryItem) float64 {
	var qty float64
	if i.MaxStock > i.CurrentStock {
		qty = i.MaxStock - i.CurrentStock
	} else {
		qty = 2*i.MinStock - i.CurrentStock
	}
	qty = math.Ceil(qty)
	if qty < 1 {
		return 1
	}
	return qty
}

// SynthesizeEvents produces a NEEDS_REORDER event for every low item that has a supplier.
func SynthesizeEvents(items []InventoryItem) []StockEvent {
	var out []StockEvent
	for _, it := range items {
		if !it.IsLow() || strings.TrimSpace(it.SupplierID) == "" {
			continue
		}
		out = append(out, StockEvent{
			Type:                EventNeedsReorder,
			ProductID:           it.ProductID,
			ProductName:         it.Name,
			Category:            it.Category,
			CurrentStock:        it.CurrentStock,
			QuantityToOrder:     QuantityToOrder(it),
			Unit:                it.Unit,
			SupplierID:          it.SupplierID,
			SupplierName:        it.SupplierName,
			SupplierEmail:       it.SupplierEmail,
			CurrentPrice:        it.Price,
			EnableAutoQuotation: it.EnableAutoQuotation,
		})
	}
	return out
}

// Request is an admitted event queued for the next flush.
type Request struct {
	ProductID    string
	ProductName  string
	Category     string
	Quantity     float64
	Unit         string
	Price        decimal.Decimal
	SupplierID   string
	SupplierName string
	QueuedAt     time.Time

	// LockHolder is the holder that wrote this product's processing lock.
	// Empty when the request was admitted without one (store failure, fail-open).
	LockHolder string
}

// RequestFromEvent converts an admitted event into a queued request.
func RequestFromEvent(ev StockEvent, now time.Time) Request {
	qty := ev.QuantityToOrder
	if qty <= 0 {
		qty = 1
	}
	return Request{
		ProductID:    ev.ProductID,
		ProductName:  ev.ProductName,
		Category:     strings.TrimSpace(ev.Category),
		Quantity:     qty,
		Unit:         ev.Unit,
		Price:        ev.CurrentPrice,
		SupplierID:   ev.SupplierID,
		SupplierName: ev.SupplierName,
		QueuedAt:     now,
	}
}
