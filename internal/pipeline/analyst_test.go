package pipeline_test

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/weather-lens-service/internal/domain"
	"github.com/couchcryptid/weather-lens-service/internal/observability"
	"github.com/couchcryptid/weather-lens-service/internal/pipeline"
)

type stubJSONModel struct {
	raw    []byte
	err    error
	prompt string
	schema domain.Schema
}

func (m *stubJSONModel) GenerateJSON(_ context.Context, prompt string, schema domain.Schema) ([]byte, error) {
	m.prompt = prompt
	m.schema = schema
	return m.raw, m.err
}

type stubImageModel struct {
	parts  []domain.ContentPart
	err    error
	prompt string
	calls  int
}

func (m *stubImageModel) GenerateImage(_ context.Context, prompt string) ([]domain.ContentPart, error) {
	m.calls++
	m.prompt = prompt
	return m.parts, m.err
}

const validAnalysis = `{
	"locationName": "Đà Nẵng",
	"summary": "Trời nhiều mây, có mưa rào",
	"immersiveDescription": "Tôi đứng trên bãi biển Mỹ Khê, gió thổi mạnh.",
	"temperature": "28°",
	"minTemp": "24",
	"maxTemp": "31",
	"windSpeed": "25",
	"windDirection": "ĐB",
	"rainfall": "12mm",
	"terrainType": "Đồng bằng ven biển",
	"recommendation": "Mang theo áo mưa",
	"forecast48h": [{"timeLabel": "+12h", "temperature": "27°", "windSpeed": "30", "rainfall": "20mm"}],
	"floodWarning": {"riskLevel": "SEVERE", "message": "Ngập cục bộ", "affectedArea": "Quận Sơn Trà"},
	"stormForecast": {"hasStorm": false, "name": "", "intensity": "", "direction": "", "eta": "",
		"predictedPath": [{"lat": 17, "lng": 110, "time": "+6h", "intensity": "Cấp 8"}]}
}`

func TestAnalyst_Analyze_Success(t *testing.T) {
	model := &stubJSONModel{raw: []byte(validAnalysis)}
	metrics := observability.NewMetricsForTesting()
	a := pipeline.NewAnalyst(model, metrics, discardLogger())

	got, status := a.AnalyzeWithStatus(context.Background(), domain.DefaultLocation, domain.LayerWind)

	assert.Equal(t, pipeline.StatusOK, status)
	assert.Equal(t, "Đà Nẵng", got.LocationName)
	assert.Equal(t, "ĐB", got.WindDirection)
	require.Len(t, got.Forecast48h, 1)
	assert.Equal(t, "+12h", got.Forecast48h[0].TimeLabel)
	assert.Equal(t, domain.RiskLow, got.FloodWarning.RiskLevel, "unknown risk levels are downgraded")
	assert.Empty(t, got.StormForecast.PredictedPath, "path ignored without a storm")

	assert.Contains(t, model.prompt, "16.0471")
	assert.Contains(t, model.prompt, "WIND")
	assert.Equal(t, domain.AnalysisSchema, model.schema)
	assert.InDelta(t, 1.0, testutil.ToFloat64(metrics.ModelRequests.WithLabelValues("analyze", "success")), 0)
}

func TestAnalyst_Analyze_Fallbacks(t *testing.T) {
	tests := []struct {
		name    string
		model   *stubJSONModel
		outcome string
	}{
		{"model error", &stubJSONModel{err: errors.New("gemini API error: status 500")}, "error"},
		{"empty body", &stubJSONModel{raw: []byte("  \n")}, "empty"},
		{"malformed json", &stubJSONModel{raw: []byte(`{"locationName": "Huế",`)}, "parse_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			metrics := observability.NewMetricsForTesting()
			a := pipeline.NewAnalyst(tt.model, metrics, discardLogger())

			got, status := a.AnalyzeWithStatus(context.Background(), domain.DefaultLocation, domain.LayerRain)
			assert.Equal(t, pipeline.StatusDegraded, status)
			assert.Equal(t, domain.FallbackAnalysis(), got)
			assert.Equal(t, got, a.Analyze(context.Background(), domain.DefaultLocation, domain.LayerRain))
			assert.InDelta(t, 2.0, testutil.ToFloat64(metrics.ModelRequests.WithLabelValues("analyze", tt.outcome)), 0)
		})
	}
}

func TestAnalyst_Analyze_Cancelled(t *testing.T) {
	metrics := observability.NewMetricsForTesting()
	a := pipeline.NewAnalyst(&stubJSONModel{err: context.Canceled}, metrics, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, status := a.AnalyzeWithStatus(ctx, domain.DefaultLocation, domain.LayerRain)
	assert.Equal(t, pipeline.StatusDegraded, status)
	assert.InDelta(t, 1.0, testutil.ToFloat64(metrics.ModelRequests.WithLabelValues("analyze", "canceled")), 0)
}

func TestIllustrator_GenerateImage(t *testing.T) {
	model := &stubImageModel{parts: []domain.ContentPart{
		{Text: "Here you go"},
		{Inline: &domain.InlineData{MIMEType: "image/jpeg", Data: []byte{0xff, 0xd8}}},
	}}
	il := pipeline.NewIllustrator(model, true, observability.NewMetricsForTesting(), discardLogger())

	url, ok := il.GenerateImage(context.Background(), "Hội An", "Phố cổ trong mưa", domain.LayerRain)
	require.True(t, ok)
	assert.Equal(t, "data:image/jpeg;base64,/9g=", url)
	assert.Contains(t, model.prompt, "Hội An")
	assert.Contains(t, model.prompt, domain.StyleFragments[domain.LayerRain])
}

func TestIllustrator_GenerateImage_Absent(t *testing.T) {
	tests := []struct {
		name    string
		model   *stubImageModel
		enabled bool
		outcome string
		calls   int
	}{
		{"disabled", &stubImageModel{}, false, "disabled", 0},
		{"model error", &stubImageModel{err: errors.New("boom")}, true, "error", 1},
		{"text only", &stubImageModel{parts: []domain.ContentPart{{Text: "I cannot draw that"}}}, true, "no_image", 1},
		{"no parts", &stubImageModel{}, true, "no_image", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			metrics := observability.NewMetricsForTesting()
			il := pipeline.NewIllustrator(tt.model, tt.enabled, metrics, discardLogger())

			url, ok := il.GenerateImage(context.Background(), "Sa Pa", "Sương mù", domain.LayerTemperature)
			assert.False(t, ok)
			assert.Empty(t, url)
			assert.Equal(t, tt.calls, tt.model.calls)
			assert.InDelta(t, 1.0, testutil.ToFloat64(metrics.ModelRequests.WithLabelValues("image", tt.outcome)), 0)
		})
	}
}

func TestIllustrator_NilModelIsDisabled(t *testing.T) {
	il := pipeline.NewIllustrator(nil, true, observability.NewMetricsForTesting(), discardLogger())
	url, ok := il.GenerateImage(context.Background(), "x", "y", domain.LayerTerrain)
	assert.False(t, ok)
	assert.Empty(t, url)
}
