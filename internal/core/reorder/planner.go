package reorder

import (
	"fmt"

	"github.com/example/quoteflow/internal/core/effects"
	"github.com/example/quoteflow/internal/core/quotation"
)

// MaxItemsPerQuotation caps the lines on one automatic quotation.
const MaxItemsPerQuotation = 20

// OpenProducts indexes every product that appears on an open quotation.
func OpenProducts(quotes []quotation.Quotation) map[string]string {
	out := make(map[string]string)
	for _, q := range quotes {
		if !quotation.IsOpen(q.Status) {
			continue
		}
		for _, it := range q.Items {
			if _, ok := out[it.ProductID]; !ok {
				out[it.ProductID] = q.ID
			}
		}
	}
	return out
}

// FilterOpen drops requests whose product already has open work.
// Category is ignored: an open quotation blocks the product under any tag.
func FilterOpen(reqs []Request, open map[string]string) (kept []Request, dropped []string) {
	for _, r := range reqs {
		if _, ok := open[r.ProductID]; ok {
			dropped = append(dropped, r.ProductID)
			continue
		}
		kept = append(kept, r)
	}
	return kept, dropped
}

// FlushPlanInput contains pre-fetched data for one flush cycle.
type FlushPlanInput struct {
	Groups       []SupplierGroup
	Suppliers    map[string]SupplierInfo // keyed by supplier ID; missing entries mean not found
	OpenProducts map[string]string       // productID -> open quotation ID
	MaxItems     int                     // 0 means MaxItemsPerQuotation
}

// SubGroupDecision is the outcome planned for one (supplier, category) sub-group.
type SubGroupDecision struct {
	SupplierID string
	Category   string
	Skipped    bool
	SkipReason string
	Duplicates []string // products filtered because open work exists
	Overflow   []string // products beyond the per-quotation cap
	Draft      *quotation.DraftInput
	Effects    []effects.Effect
}

// FlushPlan represents the planned effects for one flush cycle.
type FlushPlan struct {
	Decisions []SubGroupDecision
	Releases  []effects.ReleaseLockEffect
}

// Effects returns all effects as a flat slice for execution.
func (p FlushPlan) Effects() []effects.Effect {
	var result []effects.Effect
	for _, d := range p.Decisions {
		result = append(result, d.Effects...)
	}
	for _, e := range p.Releases {
		result = append(result, e)
	}
	return result
}

// Drafts returns the number of quotations the plan creates.
func (p FlushPlan) Drafts() int {
	n := 0
	for _, d := range p.Decisions {
		if d.Draft != nil {
			n++
		}
	}
	return n
}

// GenerateFlushPlan decides what every queued sub-group becomes.
// This is a pure function - all input data must be pre-fetched.
// Products planned into an earlier sub-group count as open for later ones.
func GenerateFlushPlan(input FlushPlanInput) FlushPlan {
	maxItems := input.MaxItems
	if maxItems <= 0 {
		maxItems = MaxItemsPerQuotation
	}

	open := make(map[string]string, len(input.OpenProducts))
	for k, v := range input.OpenProducts {
		open[k] = v
	}

	var plan FlushPlan
	released := make(map[string]bool)

	for _, group := range input.Groups {
		for _, cat := range PartitionByCategory(group.Requests) {
			plan.Decisions = append(plan.Decisions, planSubGroup(group.SupplierID, cat, input.Suppliers, open, maxItems))
		}
		// Only locks this process wrote are released; a fail-open admission owns none.
		for _, r := range group.Requests {
			if r.LockHolder != "" && !released[r.ProductID] {
				released[r.ProductID] = true
				plan.Releases = append(plan.Releases, effects.ReleaseLockEffect{ProductID: r.ProductID, Holder: r.LockHolder})
			}
		}
	}

	return plan
}

func planSubGroup(supplierID string, cat CategoryGroup, suppliers map[string]SupplierInfo, open map[string]string, maxItems int) SubGroupDecision {
	d := SubGroupDecision{SupplierID: supplierID, Category: cat.Category}

	info, ok := suppliers[supplierID]
	if !ok {
		info = SupplierInfo{ID: supplierID}
	}
	if result := CanOrderFrom(info); !result.Allowed {
		d.Skipped = true
		d.SkipReason = result.Reason
		d.Effects = append(d.Effects, effects.LogEffect{
			Level:   "warn",
			Message: "skipping sub-group",
			Fields:  map[string]any{"supplier_id": supplierID, "category": cat.Category, "reason": result.Reason},
		})
		return d
	}

	kept, dropped := FilterOpen(cat.Requests, open)
	d.Duplicates = dropped
	if len(dropped) > 0 {
		d.Effects = append(d.Effects, effects.LogEffect{
			Level:   "info",
			Message: "filtered products with open quotations",
			Fields:  map[string]any{"supplier_id": supplierID, "category": cat.Category, "products": dropped},
		})
	}
	if len(kept) == 0 {
		d.Skipped = true
		d.SkipReason = "every product already has an open quotation"
		return d
	}

	if len(kept) > maxItems {
		for _, r := range kept[maxItems:] {
			d.Overflow = append(d.Overflow, r.ProductID)
		}
		kept = kept[:maxItems]
	}

	items := make([]quotation.Item, 0, len(kept))
	for _, r := range kept {
		items = append(items, quotation.Item{
			ProductID: r.ProductID,
			Name:      r.ProductName,
			Category:  r.Category,
			Quantity:  r.Quantity,
			Unit:      r.Unit,
			Price:     r.Price,
		})
		// Marked before the create runs. If that create fails, later sub-groups in
		// this flush still skip the product; it re-triggers on its next stock event.
		open[r.ProductID] = fmt.Sprintf("planned:%s/%s", supplierID, cat.Category)
	}

	supplierName := info.Name
	if supplierName == "" && len(kept) > 0 {
		supplierName = kept[0].SupplierName
	}

	draft := quotation.DraftInput{
		SupplierID:    supplierID,
		SupplierName:  supplierName,
		SupplierEmail: info.Email,
		Category:      cat.Category,
		Source:        quotation.SourceAuto,
		Items:         items,
	}
	d.Draft = &draft
	d.Effects = append(d.Effects, effects.PersistEffect{
		Entity:    "quotation",
		Operation: "create",
		Data:      draft,
	})
	return d
}
