package quotation

import (
	"fmt"
	"strings"
	"time"
)

const (
	// ExpiryAfter is how long a sent quotation may wait for a reply before it can expire.
	ExpiryAfter = 7 * 24 * time.Hour

	// CancelConfirmedWindow is how long after confirmation a quotation may still be cancelled.
	CancelConfirmedWindow = 24 * time.Hour
)

// GuardResult represents the outcome of a guard evaluation.
type GuardResult struct {
	Allowed bool
	Reason  string
}

// Error converts the guard result to an error if not allowed.
func (r GuardResult) Error() error {
	if r.Allowed {
		return nil
	}
	return fmt.Errorf("%s", r.Reason)
}

func allow() GuardResult { return GuardResult{Allowed: true} }

func deny(format string, args ...any) GuardResult {
	return GuardResult{Allowed: false, Reason: fmt.Sprintf(format, args...)}
}

// CanSend evaluates whether a draft can be dispatched.
// Rules:
// - Supplier email must be set
// - At least one item must be present
func CanSend(q Quotation) GuardResult {
	if strings.TrimSpace(q.SupplierEmail) == "" {
		return deny("quotation %s has no supplier email", q.ID)
	}
	if len(q.Items) == 0 {
		return deny("quotation %s has no items", q.ID)
	}
	return allow()
}

// CanReceiveReply evaluates whether a reply payload is usable.
// Rules:
// - Email body must be present
func CanReceiveReply(ev ReceiveReplyEvent) GuardResult {
	if strings.TrimSpace(ev.EmailBody) == "" {
		return deny("reply email body is required")
	}
	return allow()
}

// CanExpire evaluates whether a sent quotation has waited long enough to expire.
// Rules:
// - sentAt must be set
// - At least 7 days must have passed since sentAt
func CanExpire(q Quotation, now time.Time) GuardResult {
	if q.SentAt == nil {
		return deny("quotation %s has no sent timestamp", q.ID)
	}
	if waited := now.Sub(*q.SentAt); waited < ExpiryAfter {
		return deny("quotation %s was sent %s ago, expiry requires %s", q.ID, waited.Round(time.Minute), ExpiryAfter)
	}
	return allow()
}

// CanAnalyze evaluates whether the supplier's quote can be applied.
// Rules:
// - Quoted items must be non-empty
func CanAnalyze(ev AnalyzeEvent) GuardResult {
	if len(ev.QuotedItems) == 0 {
		return deny("quoted items are required")
	}
	return allow()
}

// CanConfirm evaluates whether a quoted total can be accepted.
// Rules:
// - Quoted total must be greater than zero
func CanConfirm(q Quotation) GuardResult {
	if q.QuotedTotal == nil || !q.QuotedTotal.IsPositive() {
		return deny("quotation %s has no positive quoted total", q.ID)
	}
	return allow()
}

// CanCancelConfirmed evaluates whether a confirmed quotation is still inside its cancellation window.
// Rules:
// - Less than 24 hours since confirmedAt
func CanCancelConfirmed(q Quotation, now time.Time) GuardResult {
	if q.ConfirmedAt == nil {
		return deny("quotation %s has no confirmation timestamp", q.ID)
	}
	if now.Sub(*q.ConfirmedAt) >= CancelConfirmedWindow {
		return deny("quotation %s was confirmed more than %s ago", q.ID, CancelConfirmedWindow)
	}
	return allow()
}
