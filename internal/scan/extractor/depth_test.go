package extractor

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"chaintrace/internal/scan/models"
)

func TestDimensionality(t *testing.T) {
	tests := []struct {
		name   string
		tag    models.ContentType
		fields models.FieldMap
		want   int
	}{
		{"flat mapping", models.TypeStructuredJSON, models.FieldMap{"a": 1, "b": "x"}, 1},
		{"one nested level", models.TypeStructuredJSON, models.FieldMap{"a": map[string]any{"b": 1}}, 2},
		{"deep nesting", models.TypeStructuredJSON, models.FieldMap{
			"a": map[string]any{"b": map[string]any{"c": map[string]any{"d": 1}}},
			"e": map[string]any{"f": 2},
		}, 4},
		{"empty mapping", models.TypeGenericText, models.FieldMap{}, 1},
		{"lists do not add depth", models.TypeStructuredJSON, models.FieldMap{"a": []any{map[string]any{"b": 1}}}, 1},
		{"layered uses layer count", models.TypeLayeredPayload, models.FieldMap{"layer_count": 5}, 5},
		{"layered zero layers floors at one", models.TypeLayeredPayload, models.FieldMap{"layer_count": 0}, 1},
		{"layered missing count floors at one", models.TypeLayeredPayload, models.FieldMap{}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Dimensionality(tt.tag, tt.fields)
			assert.Equal(t, tt.want, got)
			assert.GreaterOrEqual(t, got, 1)
		})
	}
}

// Dimensionality is a pure function of the field mapping: extraction
// results from any type feed it without tag-specific coupling.
func TestDimensionality_FromExtraction(t *testing.T) {
	e := New()

	fields := e.Extract(`{"outer":{"inner":{"leaf":true}}}`, models.TypeStructuredJSON)
	assert.Equal(t, 3, Dimensionality(models.TypeStructuredJSON, fields))

	fields = e.Extract(`{"layers":[{"data":"a"},{"data":"b"}]}`, models.TypeLayeredPayload)
	assert.Equal(t, 2, Dimensionality(models.TypeLayeredPayload, fields))
}
