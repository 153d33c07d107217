package quotation

import (
	"time"

	"github.com/shopspring/decimal"
)

// applyAction derives the next context from the current one and the event.
// q must already be a private copy; the status and history are set by the machine.
func applyAction(q Quotation, ev Event, now time.Time) Quotation {
	switch e := ev.(type) {
	case SendEvent:
		q.SentAt = &now
	case ReceiveReplyEvent:
		q.RepliedAt = &now
		q.ReplyBody = e.EmailBody
	case AnalyzeEvent:
		q.Items = itemsFromQuote(q.Items, e.QuotedItems)
		total := QuotedTotal(e.QuotedItems)
		q.QuotedTotal = &total
		q.AnalyzedAt = &now
	case ConfirmEvent:
		q.ConfirmedAt = &now
	case DeliverEvent:
		q.DeliveredAt = &now
	case CancelEvent:
		q.CancelledAt = &now
		q.CancelReason = e.Reason
	case ResetEvent:
		q.SentAt = nil
		q.RepliedAt = nil
		q.AnalyzedAt = nil
		q.ConfirmedAt = nil
		q.DeliveredAt = nil
		q.CancelledAt = nil
		q.QuotedTotal = nil
		q.ReplyBody = ""
		q.CancelReason = ""
	case ExpireEvent:
		// state change only
	}
	return q
}

// QuotedTotal sums quantity x unit price over the quoted lines.
func QuotedTotal(lines []QuotedItem) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(decimal.NewFromFloat(l.Quantity).Mul(l.UnitPrice))
	}
	return total
}

// itemsFromQuote converts quoted lines to items. Descriptive fields the supplier
// left blank are carried over from the requested line for the same product.
func itemsFromQuote(requested []Item, lines []QuotedItem) []Item {
	byProduct := make(map[string]Item, len(requested))
	for _, it := range requested {
		byProduct[it.ProductID] = it
	}

	items := make([]Item, 0, len(lines))
	for _, l := range lines {
		it := Item{
			ProductID: l.ProductID,
			Name:      l.Name,
			Category:  l.Category,
			Quantity:  l.Quantity,
			Unit:      l.Unit,
			Price:     l.UnitPrice,
		}
		if orig, ok := byProduct[l.ProductID]; ok {
			if it.Name == "" {
				it.Name = orig.Name
			}
			if it.Category == "" {
				it.Category = orig.Category
			}
			if it.Unit == "" {
				it.Unit = orig.Unit
			}
		}
		items = append(items, it)
	}
	return items
}
