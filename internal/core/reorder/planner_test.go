package reorder

import (
	"fmt"
	"testing"
	"time"

	"github.com/example/quoteflow/internal/core/effects"
	"github.com/example/quoteflow/internal/core/quotation"
)

var testNow = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func readySupplier(id string) SupplierInfo {
	return SupplierInfo{ID: id, Name: "Supplier " + id, Email: id + "@example.com", AutoOrderEnabled: true, Found: true}
}

func TestGenerateFlushPlan_OneQuotationPerCategory(t *testing.T) {
	b := NewBatch()
	b.Add(req("S1", "P-A", "Dairy"))
	b.Add(req("S1", "P-B", "Bakery"))

	plan := GenerateFlushPlan(FlushPlanInput{
		Groups:    b.Groups(),
		Suppliers: map[string]SupplierInfo{"S1": readySupplier("S1")},
	})

	if plan.Drafts() != 2 {
		t.Fatalf("Drafts = %d, want 2", plan.Drafts())
	}
	for _, d := range plan.Decisions {
		if len(d.Draft.Items) != 1 {
			t.Errorf("%s draft has %d items, want 1", d.Category, len(d.Draft.Items))
		}
		for _, it := range d.Draft.Items {
			if it.Category != d.Category {
				t.Errorf("item %s category %q landed in %q quotation", it.ProductID, it.Category, d.Category)
			}
		}
		if d.Draft.SupplierID != "S1" || d.Draft.Source != quotation.SourceAuto {
			t.Errorf("draft = %+v, want supplier S1 source auto", d.Draft)
		}
	}
	if len(plan.Releases) != 2 {
		t.Errorf("Releases = %d, want 2", len(plan.Releases))
	}
}

func TestGenerateFlushPlan_OpenQuotationBlocksProductAcrossCategories(t *testing.T) {
	existing := quotation.NewDraft(quotation.DraftInput{
		ID:         "QUO-001",
		SupplierID: "S1",
		Category:   "Dairy",
		Items:      []quotation.Item{{ProductID: "P-X", Category: "Dairy", Quantity: 1}},
	}, testNow)

	b := NewBatch()
	b.Add(req("S1", "P-X", "Cheese"))

	plan := GenerateFlushPlan(FlushPlanInput{
		Groups:       b.Groups(),
		Suppliers:    map[string]SupplierInfo{"S1": readySupplier("S1")},
		OpenProducts: OpenProducts([]quotation.Quotation{existing}),
	})

	if plan.Drafts() != 0 {
		t.Fatalf("Drafts = %d, want 0", plan.Drafts())
	}
	d := plan.Decisions[0]
	if !d.Skipped || len(d.Duplicates) != 1 || d.Duplicates[0] != "P-X" {
		t.Errorf("decision = %+v, want skipped with duplicate P-X", d)
	}
}

func TestGenerateFlushPlan_ClosedQuotationDoesNotBlock(t *testing.T) {
	delivered := quotation.Quotation{
		ID:     "QUO-001",
		Status: quotation.StateDelivered,
		Items:  []quotation.Item{{ProductID: "P-X"}},
	}

	b := NewBatch()
	b.Add(req("S1", "P-X", "Dairy"))

	plan := GenerateFlushPlan(FlushPlanInput{
		Groups:       b.Groups(),
		Suppliers:    map[string]SupplierInfo{"S1": readySupplier("S1")},
		OpenProducts: OpenProducts([]quotation.Quotation{delivered}),
	})

	if plan.Drafts() != 1 {
		t.Errorf("Drafts = %d, want 1", plan.Drafts())
	}
}

func TestGenerateFlushPlan_SupplierProblemsSkipOnlyTheirGroup(t *testing.T) {
	tests := []struct {
		name string
		info *SupplierInfo
	}{
		{name: "missing", info: nil},
		{name: "auto-order disabled", info: &SupplierInfo{ID: "S2", Email: "s2@example.com", Found: true}},
		{name: "no email", info: &SupplierInfo{ID: "S2", AutoOrderEnabled: true, Found: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			suppliers := map[string]SupplierInfo{"S1": readySupplier("S1")}
			if tt.info != nil {
				suppliers["S2"] = *tt.info
			}

			b := NewBatch()
			b.Add(req("S2", "P-1", "Dairy"))
			b.Add(req("S1", "P-2", "Dairy"))

			plan := GenerateFlushPlan(FlushPlanInput{Groups: b.Groups(), Suppliers: suppliers})

			if plan.Drafts() != 1 {
				t.Fatalf("Drafts = %d, want 1", plan.Drafts())
			}
			if !plan.Decisions[0].Skipped || plan.Decisions[0].SupplierID != "S2" {
				t.Errorf("first decision = %+v, want S2 skipped", plan.Decisions[0])
			}
			if plan.Decisions[1].Draft == nil || plan.Decisions[1].SupplierID != "S1" {
				t.Errorf("second decision = %+v, want S1 draft", plan.Decisions[1])
			}
			// Locks are released for skipped products too.
			if len(plan.Releases) != 2 {
				t.Errorf("Releases = %d, want 2", len(plan.Releases))
			}
		})
	}
}

func TestGenerateFlushPlan_CapsItems(t *testing.T) {
	b := NewBatch()
	for i := 0; i < 25; i++ {
		b.Add(req("S1", fmt.Sprintf("P-%02d", i), "Dairy"))
	}

	plan := GenerateFlushPlan(FlushPlanInput{
		Groups:    b.Groups(),
		Suppliers: map[string]SupplierInfo{"S1": readySupplier("S1")},
	})

	d := plan.Decisions[0]
	if len(d.Draft.Items) != MaxItemsPerQuotation {
		t.Errorf("items = %d, want %d", len(d.Draft.Items), MaxItemsPerQuotation)
	}
	if len(d.Overflow) != 5 {
		t.Errorf("overflow = %d, want 5", len(d.Overflow))
	}
}

func TestGenerateFlushPlan_ProductPlannedOnceAcrossSuppliers(t *testing.T) {
	b := NewBatch()
	b.Add(req("S1", "P-1", "Dairy"))
	b.Add(req("S2", "P-1", "Dairy"))

	plan := GenerateFlushPlan(FlushPlanInput{
		Groups: b.Groups(),
		Suppliers: map[string]SupplierInfo{
			"S1": readySupplier("S1"),
			"S2": readySupplier("S2"),
		},
	})

	if plan.Drafts() != 1 {
		t.Errorf("Drafts = %d, want 1", plan.Drafts())
	}
	if len(plan.Releases) != 1 {
		t.Errorf("Releases = %d, want 1", len(plan.Releases))
	}
}

func TestGenerateFlushPlan_ReleasesOnlyHeldLocks(t *testing.T) {
	b := NewBatch()
	b.Add(req("S1", "P-1", "Dairy"))
	failedOpen := req("S1", "P-2", "Dairy")
	failedOpen.LockHolder = ""
	b.Add(failedOpen)
	cli := req("S1", "P-3", "Dairy")
	cli.LockHolder = "cli"
	b.Add(cli)

	plan := GenerateFlushPlan(FlushPlanInput{
		Groups:    b.Groups(),
		Suppliers: map[string]SupplierInfo{"S1": readySupplier("S1")},
	})

	if plan.Drafts() != 1 || len(plan.Decisions[0].Draft.Items) != 3 {
		t.Fatalf("want one draft with all three products, got %+v", plan.Decisions)
	}
	want := []effects.ReleaseLockEffect{
		{ProductID: "P-1", Holder: "proc-a"},
		{ProductID: "P-3", Holder: "cli"},
	}
	if len(plan.Releases) != len(want) {
		t.Fatalf("Releases = %+v, want %+v", plan.Releases, want)
	}
	for i := range want {
		if plan.Releases[i] != want[i] {
			t.Errorf("Releases[%d] = %+v, want %+v", i, plan.Releases[i], want[i])
		}
	}
}

func TestFlushPlan_Effects(t *testing.T) {
	b := NewBatch()
	b.Add(req("S1", "P-1", "Dairy"))

	plan := GenerateFlushPlan(FlushPlanInput{
		Groups:    b.Groups(),
		Suppliers: map[string]SupplierInfo{"S1": readySupplier("S1")},
	})

	effs := plan.Effects()
	if len(effs) != 2 {
		t.Fatalf("effects = %d, want persist + release", len(effs))
	}
	persist, ok := effs[0].(effects.PersistEffect)
	if !ok || persist.Entity != "quotation" || persist.Operation != "create" {
		t.Errorf("first effect = %#v, want quotation create", effs[0])
	}
	if _, ok := effs[1].(effects.ReleaseLockEffect); !ok {
		t.Errorf("second effect = %#v, want release_lock", effs[1])
	}
}
