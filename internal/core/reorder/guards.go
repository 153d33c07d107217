package reorder

import (
	"fmt"
	"strings"
)

// AutomationMode is the global automation setting.
type AutomationMode string

const (
	ModeAuto   AutomationMode = "auto"
	ModeManual AutomationMode = "manual"
)

// ParseAutomationMode accepts "auto" or "manual" (case-insensitive).
func ParseAutomationMode(s string) (AutomationMode, error) {
	switch AutomationMode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeAuto:
		return ModeAuto, nil
	case ModeManual:
		return ModeManual, nil
	default:
		return "", fmt.Errorf("invalid automation mode %q (want auto or manual)", s)
	}
}

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

// AdmissionContext provides context for the admission guard chain.
type AdmissionContext struct {
	Mode  AutomationMode
	Event StockEvent
}

// CanAdmit evaluates whether a stock event may enter the pending batch.
// Lock acquisition is the last link of the chain and is evaluated by the caller.
// Rules:
// - Automation must not be manual
// - Event must not opt out of automatic quotations
// - Event must be a NEEDS_REORDER signal
// - Product ID must be present
// - Supplier ID must be present
func CanAdmit(ctx AdmissionContext) GuardResult {
	ev := ctx.Event

	if ctx.Mode == ModeManual {
		return GuardResult{Allowed: false, Reason: "automation mode is manual"}
	}

	if ev.EnableAutoQuotation != nil && !*ev.EnableAutoQuotation {
		return GuardResult{
			Allowed: false,
			Reason:  fmt.Sprintf("product %s has automatic quotations disabled", ev.ProductID),
		}
	}

	if ev.Type != "" && ev.Type != EventNeedsReorder {
		return GuardResult{
			Allowed: false,
			Reason:  fmt.Sprintf("ignoring stock event of type %s", ev.Type),
		}
	}

	if strings.TrimSpace(ev.ProductID) == "" {
		return GuardResult{Allowed: false, Reason: "stock event has no product id"}
	}

	if strings.TrimSpace(ev.SupplierID) == "" {
		return GuardResult{
			Allowed: false,
			Reason:  fmt.Sprintf("product %s has no supplier", ev.ProductID),
		}
	}

	return GuardResult{Allowed: true}
}

// SupplierInfo is a resolved supplier record, pre-fetched for planning.
type SupplierInfo struct {
	ID               string
	Name             string
	Email            string
	AutoOrderEnabled bool
	Found            bool
	LookupError      string // Non-empty when the lookup itself failed
}

// CanOrderFrom evaluates whether a quotation may be raised automatically for a supplier.
// Rules:
// - Supplier lookup must have succeeded
// - Supplier must exist
// - Supplier must have auto-ordering enabled
// - Supplier must have an email address
func CanOrderFrom(s SupplierInfo) GuardResult {
	if s.LookupError != "" {
		return GuardResult{
			Allowed: false,
			Reason:  fmt.Sprintf("supplier %s lookup failed: %s", s.ID, s.LookupError),
		}
	}

	if !s.Found {
		return GuardResult{Allowed: false, Reason: fmt.Sprintf("supplier %s not found", s.ID)}
	}

	if !s.AutoOrderEnabled {
		return GuardResult{
			Allowed: false,
			Reason:  fmt.Sprintf("supplier %s has auto-ordering disabled", s.ID),
		}
	}

	if strings.TrimSpace(s.Email) == "" {
		return GuardResult{Allowed: false, Reason: fmt.Sprintf("supplier %s has no email address", s.ID)}
	}

	return GuardResult{Allowed: true}
}
