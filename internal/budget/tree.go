package budget

import (
	"fmt"

	"github.com/google/uuid"

	"finanzas/internal/core"
)

func newID(prefix string) string {
	return prefix + uuid.NewString()
}

// NewField returns a standard field at 0% with a single "General" category,
// so adding it never trips the allocation limit.
func NewField() core.Field {
	return core.Field{
		ID:             newID("f_"),
		Name:           "Nuevo Campo",
		Percentage:     0,
		Color:          core.ColorGray,
		Icon:           core.IconDollarSign,
		Type:           core.FieldStandard,
		AlertThreshold: core.DefaultAlertThreshold,
		Categories: []core.Category{
			{ID: newID("c_"), Name: "General", Subcategories: []core.Subcategory{}},
		},
	}
}

func NewCategory() core.Category {
	return core.Category{ID: newID("c_"), Name: "Nueva Categoría", Subcategories: []core.Subcategory{}}
}

func NewSubcategory() core.Subcategory {
	return core.Subcategory{ID: newID("s_"), Name: "Nuevo Item"}
}

// NewExtra builds an extra for fieldID with a fresh id.
func NewExtra(fieldID, description string, amount float64) (core.Extra, error) {
	if !core.ValidAmount(amount) {
		return core.Extra{}, fmt.Errorf("%w: %v", core.ErrInvalidAmount, amount)
	}
	return core.Extra{
		ID:          newID("e_"),
		Description: description,
		Amount:      amount,
		FieldID:     fieldID,
	}, nil
}

// Locate finds the field and category owning subcategory id.
func Locate(fields []core.Field, subID string) (core.Field, core.Category, core.Subcategory, bool) {
	for _, f := range fields {
		for _, c := range f.Categories {
			for _, s := range c.Subcategories {
				if s.ID == subID {
					return f, c, s, true
				}
			}
		}
	}
	return core.Field{}, core.Category{}, core.Subcategory{}, false
}
