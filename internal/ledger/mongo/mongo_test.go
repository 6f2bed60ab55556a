package mongo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"finanzas/internal/core"
)

func TestDocumentBSONShape(t *testing.T) {
	data := core.DefaultAppData(core.TemplateClassic)
	data.SetMonth("2025-06", core.MonthlyData{
		Salary:   100,
		Expenses: map[string]float64{"s_rent": 30},
		Extras:   map[string][]core.Extra{"f_fun": {{ID: "e1", Amount: 5, FieldID: "f_fun"}}},
	})
	in := document{Account: "acc", Data: data, UpdatedAt: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)}

	raw, err := bson.Marshal(in)
	require.NoError(t, err)

	var asMap bson.M
	require.NoError(t, bson.Unmarshal(raw, &asMap))
	assert.Equal(t, "acc", asMap["_id"])
	inner, ok := asMap["data"].(bson.M)
	require.True(t, ok)
	assert.Contains(t, inner, "months")
	assert.Contains(t, inner, "fields")

	var out document
	require.NoError(t, bson.Unmarshal(raw, &out))
	assert.Equal(t, 30.0, out.Data.Months["2025-06"].Expenses["s_rent"])
	assert.Equal(t, core.IconHome, out.Data.Fields[0].Icon)
	assert.Equal(t, 5.0, out.Data.Months["2025-06"].Extras["f_fun"][0].Amount)
}
