package budget

import (
	"reflect"
	"testing"

	"finanzas/internal/core"
)

func singleField(pct float64, typ core.FieldType, subs ...string) core.Field {
	cat := core.Category{ID: "c1", Name: "Cat"}
	for _, s := range subs {
		cat.Subcategories = append(cat.Subcategories, core.Subcategory{ID: s, Name: s})
	}
	return core.Field{ID: "f1", Name: "Field", Percentage: pct, Type: typ, Color: core.ColorBlue, Categories: []core.Category{cat}}
}

func TestAggregateOverBudgetScenario(t *testing.T) {
	field := singleField(50, core.FieldStandard, "s1")
	month := core.EmptyMonth()
	month.Salary = 100000
	month.Expenses["s1"] = 60000

	got := Aggregate([]core.Field{field}, month)
	fs := got.Fields[0]
	if fs.Budget != 50000 || fs.PercentUsed != 120 || fs.Remaining != -10000 || fs.Alert != AlertOver {
		t.Fatalf("unexpected field summary %+v", fs)
	}
	if got.TotalExpenses != 60000 || got.Available != 40000 {
		t.Fatalf("unexpected totals %+v", got)
	}
}

func TestAggregateExtrasCountTowardsFieldAndTotal(t *testing.T) {
	field := singleField(10, core.FieldStandard, "s1")
	month := core.EmptyMonth()
	month.Salary = 100000
	month.Extras["f1"] = []core.Extra{{ID: "e1", Amount: 2000}, {ID: "e2", Amount: 3000}}

	got := Aggregate([]core.Field{field}, month)
	fs := got.Fields[0]
	if fs.SubTotal != 0 || fs.ExtraTotal != 5000 || fs.TotalSpent != 5000 {
		t.Fatalf("unexpected field summary %+v", fs)
	}
	if got.TotalExpenses != 5000 {
		t.Fatalf("TotalExpenses = %v, want 5000", got.TotalExpenses)
	}
}

func TestAggregateAlertStates(t *testing.T) {
	cases := []struct {
		name      string
		typ       core.FieldType
		threshold float64
		spent     float64
		want      AlertState
	}{
		{"standard below threshold", core.FieldStandard, 0, 790, AlertOK},
		{"standard at default threshold", core.FieldStandard, 0, 800, AlertWarning},
		{"standard just under limit", core.FieldStandard, 0, 999, AlertWarning},
		{"standard at limit", core.FieldStandard, 0, 1000, AlertOver},
		{"custom threshold", core.FieldStandard, 50, 600, AlertWarning},
		{"savings never warns", core.FieldSavings, 0, 950, AlertOK},
		{"savings goal reached", core.FieldSavings, 0, 1000, AlertGoalReached},
		{"savings above goal", core.FieldSavings, 0, 1500, AlertGoalReached},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			field := singleField(10, tc.typ, "s1")
			field.AlertThreshold = tc.threshold
			month := core.EmptyMonth()
			month.Salary = 10000
			month.Expenses["s1"] = tc.spent
			got := Aggregate([]core.Field{field}, month).Fields[0].Alert
			if got != tc.want {
				t.Fatalf("alert = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestAggregateZeroBudget(t *testing.T) {
	field := singleField(0, core.FieldStandard, "s1")
	month := core.EmptyMonth()
	month.Expenses["s1"] = 300

	fs := Aggregate([]core.Field{field}, month).Fields[0]
	if fs.PercentUsed != 0 || fs.Alert != AlertOK || fs.Remaining != -300 {
		t.Fatalf("unexpected zero budget summary %+v", fs)
	}
}

func TestAggregateCountsOrphansInGrandTotal(t *testing.T) {
	field := singleField(50, core.FieldStandard, "s1")
	month := core.EmptyMonth()
	month.Salary = 1000
	month.Expenses["s1"] = 100
	month.Expenses["deleted_sub"] = 40
	month.Extras["deleted_field"] = []core.Extra{{ID: "e", Amount: 10}}

	got := Aggregate([]core.Field{field}, month)
	if got.Fields[0].TotalSpent != 100 {
		t.Fatalf("orphan leaked into field spend: %+v", got.Fields[0])
	}
	if got.TotalExpenses != 150 || got.Available != 850 {
		t.Fatalf("totals = %v / %v, want 150 / 850", got.TotalExpenses, got.Available)
	}
}

func TestAggregateAllocationIsUncapped(t *testing.T) {
	fields := pctFields(70, 60)
	got := Aggregate(fields, core.EmptyMonth())
	if got.TotalAllocatedPercentage != 130 {
		t.Fatalf("TotalAllocatedPercentage = %v", got.TotalAllocatedPercentage)
	}
}

func TestAggregateUSDStaysSeparate(t *testing.T) {
	fields := core.StarterFields(core.TemplateClassic)
	month := core.EmptyMonth()
	month.Salary = 1000
	month.Expenses["s_stocks"] = 100
	month.ExpensesUSD["s_stocks"] = 25
	month.ExpensesUSD["s_crypto"] = 5

	got := Aggregate(fields, month)
	inv, ok := got.Field("f_investment")
	if !ok {
		t.Fatalf("investment field missing")
	}
	if inv.USDTotal != 30 || inv.TotalSpent != 100 {
		t.Fatalf("unexpected investment summary %+v", inv)
	}
	if got.TotalUSD != 30 || got.TotalExpenses != 100 || got.Available != 900 {
		t.Fatalf("USD leaked into primary totals: %+v", got)
	}
}

func TestAggregateIsIdempotent(t *testing.T) {
	fields := core.StarterFields(core.TemplateClassic)
	month := core.EmptyMonth()
	month.Salary = 123456.78
	month.Expenses["s_rent"] = 0.1
	month.Expenses["s_fuel"] = 0.2
	month.Expenses["s_dining"] = 1234.5
	month.Expenses["gone"] = 0.3
	month.Extras["f_fun"] = []core.Extra{{ID: "e", Amount: 0.7}}

	first := Aggregate(fields, month)
	second := Aggregate(fields, month)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("aggregate is not idempotent:\n%+v\n%+v", first, second)
	}
}

func TestChartSeriesAndAlerts(t *testing.T) {
	fields := core.StarterFields(core.TemplateClassic)
	month := core.EmptyMonth()
	month.Salary = 1000
	month.Expenses["s_rent"] = 450   // 90% of 500
	month.Expenses["s_dining"] = 200 // 133% of 150
	month.Expenses["s_emergency"] = 100

	summary := Aggregate(fields, month)
	alerts := Alerts(summary)
	if len(alerts) != 2 {
		t.Fatalf("expected 2 alerts, got %+v", alerts)
	}
	if alerts[0].FieldID != "f_living" || alerts[0].IsOver {
		t.Fatalf("unexpected first alert %+v", alerts[0])
	}
	if alerts[1].FieldID != "f_fun" || !alerts[1].IsOver {
		t.Fatalf("unexpected second alert %+v", alerts[1])
	}

	series := ChartSeries(summary)
	if len(series) != 4 || series[0].Color != "#3b82f6" {
		t.Fatalf("unexpected series %+v", series)
	}

	empty := ChartSeries(Aggregate(fields, core.EmptyMonth()))
	if len(empty) != 0 {
		t.Fatalf("fields without budget or spend should be dropped, got %+v", empty)
	}
}
