package domain

import "slices"

// RiskLevel grades a flood warning.
type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
)

// RiskLevels lists every flood risk level, lowest first.
var RiskLevels = []RiskLevel{RiskLow, RiskMedium, RiskHigh, RiskCritical}

// Valid reports whether r is a known risk level.
func (r RiskLevel) Valid() bool {
	for _, l := range RiskLevels {
		if r == l {
			return true
		}
	}
	return false
}

// ForecastPoint is one step of the 48-hour forecast. Order is chronological.
type ForecastPoint struct {
	TimeLabel   string `json:"timeLabel"` // e.g. "+12h", "Ngày mai"
	Temperature string `json:"temperature"`
	WindSpeed   string `json:"windSpeed"`
	Rainfall    string `json:"rainfall"`
}

// StormPathPoint is one predicted storm position. Order is present to future.
type StormPathPoint struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lng"`
	Time      string  `json:"time"`      // e.g. "+12h"
	Intensity string  `json:"intensity"` // e.g. "Cấp 10"
}

// Coordinates returns the point's position.
func (p StormPathPoint) Coordinates() Coordinates {
	return Coordinates{Latitude: p.Latitude, Longitude: p.Longitude}
}

// StormForecast describes a nearby storm, if any. PredictedPath must be
// ignored when HasStorm is false.
type StormForecast struct {
	HasStorm      bool             `json:"hasStorm"`
	Name          string           `json:"name"`
	Intensity     string           `json:"intensity"`
	Direction     string           `json:"direction"`
	ETA           string           `json:"eta"`
	PredictedPath []StormPathPoint `json:"predictedPath,omitempty"`
}

// FloodWarning is the model's flood assessment for the location.
type FloodWarning struct {
	RiskLevel    RiskLevel `json:"riskLevel"`
	Message      string    `json:"message"`
	AffectedArea string    `json:"affectedArea"`
}

// WeatherAnalysis is the structured record returned for one coordinate.
type WeatherAnalysis struct {
	LocationName         string          `json:"locationName"`
	Summary              string          `json:"summary"`
	ImmersiveDescription string          `json:"immersiveDescription"`
	Temperature          string          `json:"temperature"`
	MinTemp              string          `json:"minTemp,omitempty"`
	MaxTemp              string          `json:"maxTemp,omitempty"`
	WindSpeed            string          `json:"windSpeed"`
	WindDirection        string          `json:"windDirection,omitempty"`
	Rainfall             string          `json:"rainfall"`
	TerrainType          string          `json:"terrainType"`
	Recommendation       string          `json:"recommendation"`
	Forecast48h          []ForecastPoint `json:"forecast48h"`
	FloodWarning         FloodWarning    `json:"floodWarning"`
	StormForecast        StormForecast   `json:"stormForecast"`
}

// GeneratedVisual is the illustrative image slot of a session. An empty
// ImageURL means not generated yet or generation failed.
type GeneratedVisual struct {
	ImageURL string `json:"imageUrl,omitempty"`
	Loading  bool   `json:"loading"`
}

// Normalize returns a copy with nil sequences replaced by empty ones, an
// unknown risk level downgraded to LOW, and the storm path dropped when no
// storm is reported.
func (a WeatherAnalysis) Normalize() WeatherAnalysis {
	if a.Forecast48h == nil {
		a.Forecast48h = []ForecastPoint{}
	} else {
		a.Forecast48h = slices.Clone(a.Forecast48h)
	}
	if !a.FloodWarning.RiskLevel.Valid() {
		a.FloodWarning.RiskLevel = RiskLow
	}
	if !a.StormForecast.HasStorm || a.StormForecast.PredictedPath == nil {
		a.StormForecast.PredictedPath = []StormPathPoint{}
	} else {
		a.StormForecast.PredictedPath = slices.Clone(a.StormForecast.PredictedPath)
	}
	return a
}

// Placeholder text used by FallbackAnalysis.
const (
	PlaceholderLocation    = "Không xác định"
	PlaceholderDescription = "Đang kết nối vệ tinh..."
	PlaceholderValue       = "--"
)

// FallbackAnalysis is the degraded record substituted when the model call
// fails. It satisfies the full WeatherAnalysis shape.
func FallbackAnalysis() WeatherAnalysis {
	return WeatherAnalysis{
		LocationName:         PlaceholderLocation,
		Summary:              PlaceholderValue,
		ImmersiveDescription: PlaceholderDescription,
		Temperature:          PlaceholderValue,
		MinTemp:              PlaceholderValue,
		MaxTemp:              PlaceholderValue,
		WindSpeed:            PlaceholderValue,
		WindDirection:        PlaceholderValue,
		Rainfall:             PlaceholderValue,
		TerrainType:          PlaceholderValue,
		Recommendation:       PlaceholderValue,
		Forecast48h:          []ForecastPoint{},
		FloodWarning:         FloodWarning{RiskLevel: RiskLow},
		StormForecast:        StormForecast{PredictedPath: []StormPathPoint{}},
	}
}

// Clone returns a deep copy of a.
func (a WeatherAnalysis) Clone() WeatherAnalysis {
	a.Forecast48h = slices.Clone(a.Forecast48h)
	a.StormForecast.PredictedPath = slices.Clone(a.StormForecast.PredictedPath)
	return a
}
