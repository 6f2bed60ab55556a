package budget

import (
	"strings"
	"testing"

	"finanzas/internal/core"
)

func recurringTree(amount float64) []core.Field {
	fields := core.StarterFields(core.TemplateClassic)
	fields[0].Categories[0].Subcategories[0].RecurringAmount = amount // s_rent
	return fields
}

func TestRecurringSingleTemplateFlow(t *testing.T) {
	fields := recurringTree(5000)
	month := core.EmptyMonth()

	if StateOf(month) != RecurringPending {
		t.Fatalf("fresh month should be pending")
	}
	candidates := RecurringCandidates(fields, month)
	if len(candidates) != 1 {
		t.Fatalf("expected one candidate, got %+v", candidates)
	}
	c := candidates[0]
	if c.SubcategoryID != "s_rent" || c.Amount != 5000 || c.CategoryName != "Casa" || c.FieldName != "Gastos para Vivir" {
		t.Fatalf("unexpected candidate %+v", c)
	}

	month = ResolveRecurring(month, candidates, SelectAll(candidates))
	if month.Expenses["s_rent"] != 5000 || !month.RecurringApplied {
		t.Fatalf("accepted candidate not applied: %+v", month)
	}
	if StateOf(month) != RecurringSettled {
		t.Fatalf("month should be settled")
	}
	if again := RecurringCandidates(fields, month); len(again) != 0 {
		t.Fatalf("settled month must not re-prompt, got %+v", again)
	}
}

func TestRecurringRejectStillSettles(t *testing.T) {
	fields := recurringTree(5000)
	month := core.EmptyMonth()
	candidates := RecurringCandidates(fields, month)

	month = ResolveRecurring(month, candidates, nil)
	if _, ok := month.Expenses["s_rent"]; ok {
		t.Fatalf("rejected candidate was written")
	}
	if !month.RecurringApplied {
		t.Fatalf("rejecting everything must still settle the month")
	}
}

func TestRecurringSkipsExistingEntries(t *testing.T) {
	fields := recurringTree(5000)
	fields[0].Categories[1].Subcategories[0].RecurringAmount = 300 // s_supermarket
	month := core.EmptyMonth()
	month.Expenses["s_rent"] = 4800

	candidates := RecurringCandidates(fields, month)
	if len(candidates) != 1 || candidates[0].SubcategoryID != "s_supermarket" {
		t.Fatalf("unexpected candidates %+v", candidates)
	}

	month.Expenses["s_supermarket"] = 0
	if got := RecurringCandidates(fields, month); len(got) != 1 {
		t.Fatalf("a zero entry should still be offered, got %+v", got)
	}
}

func TestRecurringNoTemplates(t *testing.T) {
	fields := core.StarterFields(core.TemplateClassic)
	if got := RecurringCandidates(fields, core.EmptyMonth()); len(got) != 0 {
		t.Fatalf("no templates should mean no candidates, got %+v", got)
	}
}

func TestResolveRecurringPartialSelection(t *testing.T) {
	fields := recurringTree(5000)
	fields[2].Categories[0].Subcategories[1].RecurringAmount = 150 // s_hobbies
	month := core.EmptyMonth()
	candidates := RecurringCandidates(fields, month)
	if len(candidates) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(candidates))
	}

	got := ResolveRecurring(month, candidates, []string{"s_hobbies", "not_a_candidate"})
	if got.Expenses["s_hobbies"] != 150 {
		t.Fatalf("selected candidate missing")
	}
	if _, ok := got.Expenses["s_rent"]; ok {
		t.Fatalf("unselected candidate written")
	}
	if _, ok := got.Expenses["not_a_candidate"]; ok {
		t.Fatalf("unknown id written")
	}
	if len(month.Expenses) != 0 {
		t.Fatalf("ResolveRecurring mutated its input")
	}
}

func TestNewIDsArePrefixedAndUnique(t *testing.T) {
	a, b := NewField(), NewField()
	if a.ID == b.ID || !strings.HasPrefix(a.ID, "f_") {
		t.Fatalf("unexpected ids %q %q", a.ID, b.ID)
	}
	if sub := NewSubcategory(); !strings.HasPrefix(sub.ID, "s_") || sub.Name != "Nuevo Item" || sub.RecurringAmount != 0 {
		t.Fatalf("unexpected subcategory %+v", sub)
	}
	if cat := NewCategory(); cat.Name != "Nueva Categoría" {
		t.Fatalf("unexpected category %+v", cat)
	}
	e, err := NewExtra("f_fun", "cine", 20)
	if err != nil || !strings.HasPrefix(e.ID, "e_") || e.FieldID != "f_fun" {
		t.Fatalf("unexpected extra %+v, %v", e, err)
	}
	if _, err := NewExtra("f_fun", "x", -1); err == nil {
		t.Fatalf("negative extra should fail")
	}
}
