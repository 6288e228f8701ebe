package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStyleFragments_CoverEveryLayer(t *testing.T) {
	assert.Len(t, StyleFragments, len(Layers))
	for _, l := range Layers {
		assert.NotEmpty(t, StyleFragments[l], l)
		assert.NotEmpty(t, layerFocus[l], l)
	}
}

func TestImagePrompt_UsesLayerFragment(t *testing.T) {
	for _, layer := range Layers {
		t.Run(layer.String(), func(t *testing.T) {
			prompt := ImagePrompt("Đà Nẵng", "Gió biển thổi mạnh qua bãi cát.", layer)

			assert.Contains(t, prompt, StyleFragments[layer])
			for other, fragment := range StyleFragments {
				if other != layer {
					assert.NotContains(t, prompt, fragment)
				}
			}
			assert.Contains(t, prompt, "Đà Nẵng")
			assert.Contains(t, prompt, "Gió biển thổi mạnh qua bãi cát.")
			assert.Contains(t, prompt, noTextClause)
			assert.Contains(t, prompt, photoQualifiers)
		})
	}
}

func TestAnalysisPrompt(t *testing.T) {
	prompt := AnalysisPrompt(Coordinates{Latitude: 16.0471, Longitude: 108.2068}, LayerRain)

	assert.Contains(t, prompt, "16.0471")
	assert.Contains(t, prompt, "108.2068")
	assert.Contains(t, prompt, "RAIN")
	assert.Contains(t, prompt, layerFocus[LayerRain])
	assert.Contains(t, prompt, "windDirection")
	assert.True(t, strings.HasSuffix(prompt, "Trả về JSON."))
}
