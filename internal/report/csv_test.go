package report

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finanzas/internal/core"
)

func TestWriteMonthCSV(t *testing.T) {
	fields := core.StarterFields(core.TemplateClassic)
	month := core.EmptyMonth()
	month.Salary = 100000
	month.Expenses["s_rent"] = 40000
	month.ExpensesUSD["s_stocks"] = 25
	month.PaidStatus["s_rent"] = true
	month.Extras["f_fun"] = []core.Extra{{ID: "e1", Description: "teatro, platea", Amount: 3000, FieldID: "f_fun"}}

	var buf bytes.Buffer
	generated := time.Date(2025, time.March, 31, 20, 0, 0, 0, time.UTC)
	require.NoError(t, WriteMonthCSV(&buf, "2025-03", fields, month, generated))

	r := csv.NewReader(bytes.NewReader(buf.Bytes()))
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	require.NoError(t, err)

	assert.Equal(t, []string{"Month", "2025-03"}, records[1])
	assert.Equal(t, []string{"Generated", "2025-03-31 20:00:00"}, records[2])
	assert.Contains(t, records, []string{"Salary", "100000.00"})
	assert.Contains(t, records, []string{"Total Expenses", "43000.00"})
	assert.Contains(t, records, []string{"Available", "57000.00"})
	assert.Contains(t, records, []string{"Gastos para Vivir", "Casa", "Alquiler", "40000.00", "0.00", "true"})
	assert.Contains(t, records, []string{"Inversión", "Crecimiento", "Cedears/Acciones", "0.00", "25.00", "false"})
	assert.Contains(t, records, []string{"Disfrute", "teatro, platea", "3000.00"})

	var living []string
	for _, rec := range records {
		if len(rec) == 10 && rec[0] == "Gastos para Vivir" {
			living = rec
		}
	}
	require.NotNil(t, living)
	assert.Equal(t, "50000.00", living[3])
	assert.Equal(t, "80.0%", living[8])
}

func TestWriteMonthCSVWithoutExtras(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteMonthCSV(&buf, "2025-01", core.StarterFields(core.TemplateSimple), core.EmptyMonth(), time.Now()))
	assert.NotContains(t, buf.String(), "EXTRAS")
	assert.Contains(t, buf.String(), "FIELDS")
}
