package core

import "fmt"

// Template names a starter field tree for new documents.
type Template string

const (
	TemplateClassic Template = "classic"
	TemplateSimple  Template = "simple"
)

func (t Template) IsValid() bool {
	return t == TemplateClassic || t == TemplateSimple
}

// ParseTemplate accepts a template name; empty selects the classic tree.
func ParseTemplate(s string) (Template, error) {
	if s == "" {
		return TemplateClassic, nil
	}
	t := Template(s)
	if !t.IsValid() {
		return "", fmt.Errorf("unknown template %q", s)
	}
	return t, nil
}

func sub(id, name string) Subcategory {
	return Subcategory{ID: id, Name: name}
}

// StarterFields returns a fresh copy of the template's field tree.
func StarterFields(t Template) []Field {
	if t == TemplateSimple {
		return simpleFields()
	}
	return classicFields()
}

func classicFields() []Field {
	return []Field{
		{
			ID: "f_living", Name: "Gastos para Vivir", Percentage: 50,
			Color: ColorBlue, Icon: IconHome, Type: FieldStandard,
			Categories: []Category{
				{ID: "c_home", Name: "Casa", Subcategories: []Subcategory{
					sub("s_rent", "Alquiler"),
					sub("s_services", "Servicios (Luz/Gas/Agua)"),
					sub("s_internet", "Internet"),
				}},
				{ID: "c_food", Name: "Alimentación", Subcategories: []Subcategory{
					sub("s_supermarket", "Supermercado"),
				}},
				{ID: "c_transport", Name: "Transporte", Subcategories: []Subcategory{
					sub("s_fuel", "Combustible/Transporte Público"),
				}},
			},
		},
		{
			ID: "f_investment", Name: "Inversión", Percentage: 25,
			Color: ColorPurple, Icon: IconTrendingUp, Type: FieldStandard,
			Categories: []Category{
				{ID: "c_invest", Name: "Crecimiento", Subcategories: []Subcategory{
					sub("s_stocks", "Cedears/Acciones"),
					sub("s_crypto", "Criptomonedas"),
					sub("s_education", "Cursos/Formación"),
				}},
			},
		},
		{
			ID: "f_fun", Name: "Disfrute", Percentage: 15,
			Color: ColorPink, Icon: IconSmile, Type: FieldStandard,
			Categories: []Category{
				{ID: "c_outing", Name: "Ocio", Subcategories: []Subcategory{
					sub("s_dining", "Cenas/Salidas"),
					sub("s_hobbies", "Hobbies"),
					sub("s_travel", "Viajes"),
				}},
			},
		},
		{
			ID: "f_security", Name: "Fondo de Seguridad", Percentage: 10,
			Color: ColorGreen, Icon: IconShield, Type: FieldSavings,
			Categories: []Category{
				{ID: "c_savings", Name: "Resguardo", Subcategories: []Subcategory{
					sub("s_emergency", "Fondo de Emergencia"),
				}},
			},
		},
	}
}

// simpleFields is the three-bucket 50/30/20 split without a savings field.
func simpleFields() []Field {
	fields := classicFields()[:3]
	for i, pct := range []float64{50, 30, 20} {
		fields[i].Percentage = pct
	}
	return fields
}

// DefaultAppData is the document used for new accounts and when the store is unreachable.
func DefaultAppData(t Template) AppData {
	return AppData{
		Theme:  ThemeDark,
		Fields: StarterFields(t),
		Months: map[string]MonthlyData{},
	}
}

// EmptyMonth is the lazily created month: zero salary and empty maps.
func EmptyMonth() MonthlyData {
	return MonthlyData{
		Expenses:    map[string]float64{},
		ExpensesUSD: map[string]float64{},
		PaidStatus:  map[string]bool{},
		Extras:      map[string][]Extra{},
	}
}
