package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/golang/geo/s2"
)

// LayerType selects the environmental facet a narrative and image emphasise.
type LayerType string

const (
	LayerTerrain     LayerType = "TERRAIN"
	LayerWind        LayerType = "WIND"
	LayerRain        LayerType = "RAIN"
	LayerTemperature LayerType = "TEMPERATURE"
)

// Layers lists every layer in display order.
var Layers = []LayerType{LayerTerrain, LayerWind, LayerRain, LayerTemperature}

// ErrUnknownLayer is returned for a layer name outside Layers.
var ErrUnknownLayer = errors.New("unknown layer")

// ParseLayer accepts a layer name in any case.
func ParseLayer(s string) (LayerType, error) {
	l := LayerType(strings.ToUpper(strings.TrimSpace(s)))
	if !l.Valid() {
		return "", fmt.Errorf("%w %q", ErrUnknownLayer, s)
	}
	return l, nil
}

// Valid reports whether l is one of the known layers.
func (l LayerType) Valid() bool {
	_, ok := StyleFragments[l]
	return ok
}

func (l LayerType) String() string { return string(l) }

func (l *LayerType) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseLayer(s)
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// Coordinates is a WGS-84 latitude/longitude pair in degrees.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Valid reports whether the pair lies within normal latitude/longitude ranges.
func (c Coordinates) Valid() bool {
	return c.latLng().IsValid()
}

func (c Coordinates) latLng() s2.LatLng {
	return s2.LatLngFromDegrees(c.Latitude, c.Longitude)
}
