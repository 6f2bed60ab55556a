package core

// Normalize patches a decoded document so the rest of the code can rely on
// its shape: legacy documents without fields get the template tree, nil maps
// become empty and unknown enum values collapse to their fallback.
func Normalize(d AppData, t Template) AppData {
	if !d.Theme.IsValid() {
		d.Theme = ThemeDark
	}
	if d.Fields == nil {
		d.Fields = StarterFields(t)
	}
	d.Fields = normalizeFields(d.Fields)
	if d.Months == nil {
		d.Months = map[string]MonthlyData{}
	}
	for k, m := range d.Months {
		m = m.withMaps()
		if m.Fields != nil {
			m.Fields = normalizeFields(m.Fields)
		}
		d.Months[k] = m
	}
	return d
}

func normalizeFields(fields []Field) []Field {
	for i := range fields {
		f := &fields[i]
		f.Icon = ParseIcon(string(f.Icon))
		f.Color = ParseColor(string(f.Color))
		if !f.Type.IsValid() {
			f.Type = FieldStandard
		}
		if f.Categories == nil {
			f.Categories = []Category{}
		}
		for j := range f.Categories {
			if f.Categories[j].Subcategories == nil {
				f.Categories[j].Subcategories = []Subcategory{}
			}
		}
	}
	return fields
}
