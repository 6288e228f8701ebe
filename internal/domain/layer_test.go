package domain

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLayer(t *testing.T) {
	l, err := ParseLayer(" rain ")
	require.NoError(t, err)
	assert.Equal(t, LayerRain, l)

	_, err = ParseLayer("snow")
	assert.Error(t, err)
}

func TestLayerType_UnmarshalJSON(t *testing.T) {
	var body struct {
		Layer LayerType `json:"layer"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"layer":"wind"}`), &body))
	assert.Equal(t, LayerWind, body.Layer)

	assert.Error(t, json.Unmarshal([]byte(`{"layer":"HUMIDITY"}`), &body))
}

func TestCoordinates_Valid(t *testing.T) {
	assert.True(t, Coordinates{Latitude: 16.0471, Longitude: 108.2068}.Valid())
	assert.True(t, Coordinates{Latitude: -90, Longitude: 180}.Valid())
	assert.False(t, Coordinates{Latitude: 91, Longitude: 0}.Valid())
	assert.False(t, Coordinates{Latitude: 0, Longitude: -181}.Valid())
	assert.False(t, Coordinates{Latitude: math.NaN(), Longitude: 0}.Valid())
}
