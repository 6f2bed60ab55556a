package core

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
)

func TestValidateTree(t *testing.T) {
	good := StarterFields(TemplateClassic)
	if err := ValidateTree(good); err != nil {
		t.Fatalf("expected starter tree to be valid, got %v", err)
	}

	dupSub := CloneFields(good)
	dupSub[1].Categories[0].Subcategories = append(dupSub[1].Categories[0].Subcategories, Subcategory{ID: "s_rent", Name: "again"})
	if err := ValidateTree(dupSub); !errors.Is(err, ErrDuplicateSubcategory) {
		t.Fatalf("expected ErrDuplicateSubcategory, got %v", err)
	}

	dupField := append(CloneFields(good), Field{ID: "f_fun", Name: "Otra"})
	if err := ValidateTree(dupField); !errors.Is(err, ErrDuplicateField) {
		t.Fatalf("expected ErrDuplicateField, got %v", err)
	}

	negative := CloneFields(good)
	negative[0].Percentage = -1
	if err := ValidateTree(negative); !errors.Is(err, ErrInvalidPercentage) {
		t.Fatalf("expected ErrInvalidPercentage, got %v", err)
	}

	nan := CloneFields(good)
	nan[0].Percentage = math.NaN()
	if err := ValidateTree(nan); !errors.Is(err, ErrInvalidPercentage) {
		t.Fatalf("expected ErrInvalidPercentage for NaN, got %v", err)
	}

	negRecurring := CloneFields(good)
	negRecurring[0].Categories[0].Subcategories[0].RecurringAmount = -5
	if err := ValidateTree(negRecurring); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestCloneFieldsIsDeep(t *testing.T) {
	orig := StarterFields(TemplateClassic)
	cp := CloneFields(orig)
	cp[0].Categories[0].Subcategories[0].Name = "changed"
	cp[0].Categories[0].Name = "changed"
	if orig[0].Categories[0].Subcategories[0].Name == "changed" || orig[0].Categories[0].Name == "changed" {
		t.Fatalf("clone shares memory with original")
	}
}

func TestFieldThreshold(t *testing.T) {
	if got := (Field{}).Threshold(); got != DefaultAlertThreshold {
		t.Fatalf("Threshold() = %v, want %v", got, DefaultAlertThreshold)
	}
	if got := (Field{AlertThreshold: 65}).Threshold(); got != 65 {
		t.Fatalf("Threshold() = %v, want 65", got)
	}
}

func TestStarterFieldsTemplates(t *testing.T) {
	cases := []struct {
		tpl    Template
		fields int
		total  float64
	}{
		{TemplateClassic, 4, 100},
		{TemplateSimple, 3, 100},
	}
	for _, tc := range cases {
		fields := StarterFields(tc.tpl)
		if len(fields) != tc.fields {
			t.Fatalf("%s: got %d fields, want %d", tc.tpl, len(fields), tc.fields)
		}
		if got := TotalPercentage(fields); got != tc.total {
			t.Fatalf("%s: total = %v, want %v", tc.tpl, got, tc.total)
		}
	}
	if !StarterFields(TemplateClassic)[3].IsSavings() {
		t.Fatalf("classic template should end with the savings field")
	}
}

func TestIconAndColorFallback(t *testing.T) {
	var f Field
	raw := `{"id":"f1","name":"X","percentage":10,"color":"magenta","icon":"Rocket","categories":[],"type":"standard"}`
	if err := json.Unmarshal([]byte(raw), &f); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if f.Icon != IconUnknown {
		t.Fatalf("icon = %q, want fallback", f.Icon)
	}
	if f.Color != ColorUnknown || f.Color.Hex() != FallbackHex {
		t.Fatalf("color = %q (%s), want fallback", f.Color, f.Color.Hex())
	}

	raw = `{"id":"f1","name":"X","color":"Teal","icon":"Plane"}`
	if err := json.Unmarshal([]byte(raw), &f); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if f.Icon != IconPlane || f.Color != ColorTeal {
		t.Fatalf("got icon %q color %q", f.Icon, f.Color)
	}
	if ColorBlue.Hex() != "#3b82f6" {
		t.Fatalf("blue hex = %s", ColorBlue.Hex())
	}
}

func TestThemeToggle(t *testing.T) {
	if ThemeDark.Toggle() != ThemeLight || ThemeLight.Toggle() != ThemeDark {
		t.Fatalf("toggle should flip between light and dark")
	}
	if Theme("").Toggle() != ThemeDark {
		t.Fatalf("unset theme should toggle to dark")
	}
}
