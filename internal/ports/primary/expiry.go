package primary

import "context"

// ExpiryService sweeps SENT quotations whose supplier never replied.
type ExpiryService interface {
	// ExpireStale applies EXPIRE to every SENT quotation old enough to accept it.
	ExpireStale(ctx context.Context) (*ExpiryResult, error)
}

// ExpiryResult summarises one sweep.
type ExpiryResult struct {
	Checked int
	Expired []string
	Failed  []string
}
