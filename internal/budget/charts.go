package budget

// ChartPoint is one bar of the budget-vs-spent chart.
type ChartPoint struct {
	Name   string  `json:"name"`
	Budget float64 `json:"budget"`
	Spent  float64 `json:"spent"`
	Color  string  `json:"color"`
}

// ChartSeries keeps only fields that have a budget or some spend.
func ChartSeries(s MonthSummary) []ChartPoint {
	out := make([]ChartPoint, 0, len(s.Fields))
	for _, f := range s.Fields {
		if f.Budget <= 0 && f.TotalSpent <= 0 {
			continue
		}
		out = append(out, ChartPoint{
			Name:   f.Name,
			Budget: f.Budget,
			Spent:  f.TotalSpent,
			Color:  f.Color.Hex(),
		})
	}
	return out
}

// Alert is a standard field that crossed its threshold.
type Alert struct {
	FieldID     string  `json:"fieldId"`
	FieldName   string  `json:"fieldName"`
	PercentUsed float64 `json:"percentUsed"`
	IsOver      bool    `json:"isOver"`
}

// Alerts lists warning and over-budget standard fields in tree order.
func Alerts(s MonthSummary) []Alert {
	var out []Alert
	for _, f := range s.Fields {
		if f.Alert != AlertWarning && f.Alert != AlertOver {
			continue
		}
		out = append(out, Alert{
			FieldID:     f.FieldID,
			FieldName:   f.Name,
			PercentUsed: f.PercentUsed,
			IsOver:      f.Alert == AlertOver,
		})
	}
	return out
}
