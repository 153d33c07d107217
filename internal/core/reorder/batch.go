package reorder

// Batch is the in-memory pending batch: supplierID to queued requests.
// Within one supplier group a product appears at most once.
// Batch is not safe for concurrent use; the orchestrator guards it.
type Batch struct {
	order  []string
	groups map[string][]Request
}

// NewBatch returns an empty batch.
func NewBatch() *Batch {
	return &Batch{groups: make(map[string][]Request)}
}

// Add queues r under its supplier. A request for a product already queued for
// that supplier replaces the earlier one in place, keeping the earlier lock
// holder when r carries none. Returns true when it replaced.
func (b *Batch) Add(r Request) bool {
	group, ok := b.groups[r.SupplierID]
	if !ok {
		b.order = append(b.order, r.SupplierID)
	}
	for i := range group {
		if group[i].ProductID == r.ProductID {
			if r.LockHolder == "" {
				r.LockHolder = group[i].LockHolder
			}
			group[i] = r
			return true
		}
	}
	b.groups[r.SupplierID] = append(group, r)
	return false
}

// Len returns the number of queued requests across all suppliers.
func (b *Batch) Len() int {
	n := 0
	for _, g := range b.groups {
		n += len(g)
	}
	return n
}

// SupplierGroup is one supplier's queued requests.
type SupplierGroup struct {
	SupplierID string
	Requests   []Request
}

// Groups returns supplier groups in first-queued order.
func (b *Batch) Groups() []SupplierGroup {
	out := make([]SupplierGroup, 0, len(b.order))
	for _, id := range b.order {
		reqs := make([]Request, len(b.groups[id]))
		copy(reqs, b.groups[id])
		out = append(out, SupplierGroup{SupplierID: id, Requests: reqs})
	}
	return out
}

// ProductIDs returns every queued product, deduplicated across suppliers.
func (b *Batch) ProductIDs() []string {
	seen := make(map[string]bool)
	var out []string
	for _, id := range b.order {
		for _, r := range b.groups[id] {
			if !seen[r.ProductID] {
				seen[r.ProductID] = true
				out = append(out, r.ProductID)
			}
		}
	}
	return out
}

// LockedProduct is a queued product together with the holder of its lock.
type LockedProduct struct {
	ProductID string
	Holder    string
}

// Locked returns every queued product whose lock this process wrote, in queue order.
func (b *Batch) Locked() []LockedProduct {
	seen := make(map[string]bool)
	var out []LockedProduct
	for _, id := range b.order {
		for _, r := range b.groups[id] {
			if r.LockHolder == "" || seen[r.ProductID] {
				continue
			}
			seen[r.ProductID] = true
			out = append(out, LockedProduct{ProductID: r.ProductID, Holder: r.LockHolder})
		}
	}
	return out
}

// ForgetLock clears the lock holder of every queued request for productID,
// so the flush does not release a lock this process no longer owns.
func (b *Batch) ForgetLock(productID string) {
	for _, id := range b.order {
		group := b.groups[id]
		for i := range group {
			if group[i].ProductID == productID {
				group[i].LockHolder = ""
			}
		}
	}
}

// CategoryGroup is the slice of a supplier group sharing one category.
type CategoryGroup struct {
	Category string
	Requests []Request
}

// PartitionByCategory splits requests by category, preserving first-seen order.
func PartitionByCategory(reqs []Request) []CategoryGroup {
	index := make(map[string]int)
	var out []CategoryGroup
	for _, r := range reqs {
		i, ok := index[r.Category]
		if !ok {
			i = len(out)
			index[r.Category] = i
			out = append(out, CategoryGroup{Category: r.Category})
		}
		out[i].Requests = append(out[i].Requests, r)
	}
	return out
}
