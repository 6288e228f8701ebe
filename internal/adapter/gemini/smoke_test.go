//go:build gemini

package gemini

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/couchcryptid/weather-lens-service/internal/config"
	"github.com/couchcryptid/weather-lens-service/internal/domain"
	"github.com/couchcryptid/weather-lens-service/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// These tests hit the real Gemini API and require a valid GEMINI_API_KEY env var.
// Run with: go test -tags=gemini ./internal/adapter/gemini/ -v -count=1

func smokeClient(t *testing.T) *Client {
	t.Helper()
	key := os.Getenv("GEMINI_API_KEY")
	if key == "" {
		t.Fatal("GEMINI_API_KEY must be set to run smoke tests")
	}
	return NewClient(config.GeminiConfig{
		APIKey:           key,
		BaseURL:          "https://generativelanguage.googleapis.com",
		AnalysisModel:    "gemini-2.5-flash",
		ImageModel:       "gemini-3-pro-image-preview",
		ImageAspectRatio: "16:9",
		ImageSize:        "1K",
		Timeout:          90 * time.Second,
	}, observability.NewMetricsForTesting(), discardLogger())
}

func TestSmoke_GenerateJSON_DaNang(t *testing.T) {
	c := smokeClient(t)

	prompt := domain.AnalysisPrompt(domain.DefaultLocation, domain.LayerRain)
	raw, err := c.GenerateJSON(context.Background(), prompt, domain.AnalysisSchema)
	require.NoError(t, err)

	var a domain.WeatherAnalysis
	require.NoError(t, json.Unmarshal(raw, &a))
	a = a.Normalize()

	assert.NotEmpty(t, a.LocationName)
	assert.NotEmpty(t, a.Temperature)
	assert.True(t, a.RiskLevel.Valid())
}

func TestSmoke_GenerateImage(t *testing.T) {
	c := smokeClient(t)

	prompt := domain.ImagePrompt("Đà Nẵng", "Mưa lớn trên bãi biển Mỹ Khê", domain.LayerRain)
	parts, err := c.GenerateImage(context.Background(), prompt)
	require.NoError(t, err)

	img, err := domain.FirstImage(parts)
	require.NoError(t, err)
	assert.NotEmpty(t, img.Data)
	assert.Contains(t, img.DataURI(), "data:image/")
}
