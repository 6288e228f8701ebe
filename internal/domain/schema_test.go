package domain

import (
	"reflect"
	"sort"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// jsonFields maps each JSON property of a struct type to whether it is
// required (no omitempty).
func jsonFields(t reflect.Type) map[string]bool {
	out := make(map[string]bool)
	for i := 0; i < t.NumField(); i++ {
		tag := t.Field(i).Tag.Get("json")
		if tag == "" || tag == "-" {
			continue
		}
		name, opts, _ := strings.Cut(tag, ",")
		out[name] = !strings.Contains(opts, "omitempty")
	}
	return out
}

func schemaFields(fields []Field) map[string]bool {
	out := make(map[string]bool, len(fields))
	for _, f := range fields {
		out[f.Name] = f.Required
	}
	return out
}

func findField(t *testing.T, fields []Field, name string) Field {
	t.Helper()
	for _, f := range fields {
		if f.Name == name {
			return f
		}
	}
	t.Fatalf("schema has no field %q", name)
	return Field{}
}

// The declared schema and the Go types must describe the same shape,
// including which fields are mandatory.
func TestAnalysisSchema_InSyncWithTypes(t *testing.T) {
	cases := []struct {
		name   string
		fields []Field
		typ    reflect.Type
	}{
		{"WeatherAnalysis", AnalysisSchema.Fields, reflect.TypeOf(WeatherAnalysis{})},
		{"ForecastPoint", findField(t, AnalysisSchema.Fields, "forecast48h").Items.Fields, reflect.TypeOf(ForecastPoint{})},
		{"FloodWarning", findField(t, AnalysisSchema.Fields, "floodWarning").Fields, reflect.TypeOf(FloodWarning{})},
		{"StormForecast", findField(t, AnalysisSchema.Fields, "stormForecast").Fields, reflect.TypeOf(StormForecast{})},
		{
			"StormPathPoint",
			findField(t, findField(t, AnalysisSchema.Fields, "stormForecast").Fields, "predictedPath").Items.Fields,
			reflect.TypeOf(StormPathPoint{}),
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if diff := cmp.Diff(jsonFields(tc.typ), schemaFields(tc.fields)); diff != "" {
				t.Fatalf("schema/type mismatch (-type +schema):\n%s", diff)
			}
		})
	}
}

func TestAnalysisSchema_OptionalTopLevelFields(t *testing.T) {
	var optional []string
	for _, f := range AnalysisSchema.Fields {
		if !f.Required {
			optional = append(optional, f.Name)
		}
	}
	sort.Strings(optional)
	assert.Equal(t, []string{"maxTemp", "minTemp", "windDirection"}, optional)
}

func TestSchema_Document(t *testing.T) {
	doc := AnalysisSchema.Document()

	assert.Equal(t, "OBJECT", doc["type"])
	required, ok := doc["required"].([]string)
	require.True(t, ok)
	assert.Contains(t, required, "stormForecast")
	assert.NotContains(t, required, "minTemp")

	props, ok := doc["properties"].(map[string]any)
	require.True(t, ok)
	assert.Len(t, props, len(AnalysisSchema.Fields))

	flood := props["floodWarning"].(map[string]any)
	risk := flood["properties"].(map[string]any)["riskLevel"].(map[string]any)
	assert.Equal(t, []string{"LOW", "MEDIUM", "HIGH", "CRITICAL"}, risk["enum"])

	forecast := props["forecast48h"].(map[string]any)
	assert.Equal(t, "ARRAY", forecast["type"])
	items := forecast["items"].(map[string]any)
	assert.Equal(t, "OBJECT", items["type"])

	storm := props["stormForecast"].(map[string]any)
	path := storm["properties"].(map[string]any)["predictedPath"].(map[string]any)
	lat := path["items"].(map[string]any)["properties"].(map[string]any)["lat"].(map[string]any)
	assert.Equal(t, "NUMBER", lat["type"])
}
