package domain

import (
	"fmt"
	"math"
	"time"

	"github.com/golang/geo/s1"
)

// ProximityThreshold is the planar distance, in degrees, below which a storm
// path point counts as approaching.
const ProximityThreshold = 2.0

const earthRadiusKm = 6371.0088

// PlanarDistance is the Euclidean distance between two coordinates in degrees.
func PlanarDistance(a, b Coordinates) float64 {
	return math.Hypot(a.Latitude-b.Latitude, a.Longitude-b.Longitude)
}

// GreatCircleKm approximates the surface distance between two coordinates.
// Display only; proximity decisions use PlanarDistance.
func GreatCircleKm(a, b Coordinates) float64 {
	return angleKm(a.latLng().Distance(b.latLng()))
}

func angleKm(a s1.Angle) float64 {
	return a.Radians() * earthRadiusKm
}

// ApproachingPoint returns the first predicted path point closer to user than
// threshold. It reports false when no storm is reported or the path is empty.
func ApproachingPoint(user Coordinates, storm StormForecast, threshold float64) (StormPathPoint, float64, bool) {
	if !storm.HasStorm {
		return StormPathPoint{}, 0, false
	}
	for _, p := range storm.PredictedPath {
		d := PlanarDistance(p.Coordinates(), user)
		if d < threshold {
			return p, d, true
		}
	}
	return StormPathPoint{}, 0, false
}

// AlertKey identifies an alert scenario: one storm seen from one user
// coordinate rounded to two decimals.
func AlertKey(stormName string, user Coordinates) string {
	return fmt.Sprintf("%s-%.2f-%.2f", stormName, user.Latitude, user.Longitude)
}

// StormAlert is a one-shot warning that a storm is approaching the user.
type StormAlert struct {
	Key          string         `json:"key"`
	StormName    string         `json:"stormName"`
	Intensity    string         `json:"intensity"`
	ETA          string         `json:"eta"`
	UserLocation Coordinates    `json:"userLocation"`
	Point        StormPathPoint `json:"point"`
	DistanceDeg  float64        `json:"distanceDeg"`
	DistanceKm   float64        `json:"distanceKm"`
	Message      string         `json:"message"`
	IssuedAt     time.Time      `json:"issuedAt"`
	SessionID    string         `json:"sessionId,omitempty"`
}

// NewStormAlert evaluates user against storm and builds the alert if a path
// point lies within ProximityThreshold.
func NewStormAlert(user Coordinates, storm StormForecast) (StormAlert, bool) {
	point, dist, ok := ApproachingPoint(user, storm, ProximityThreshold)
	if !ok {
		return StormAlert{}, false
	}
	return StormAlert{
		Key:          AlertKey(storm.Name, user),
		StormName:    storm.Name,
		Intensity:    storm.Intensity,
		ETA:          point.Time,
		UserLocation: user,
		Point:        point,
		DistanceDeg:  dist,
		DistanceKm:   GreatCircleKm(user, point.Coordinates()),
		Message: fmt.Sprintf(
			"CẢNH BÁO KHẨN CẤP: Bão %s (Cấp %s) đang di chuyển vào khu vực của bạn! Thời gian dự kiến: %s. Vui lòng theo dõi sát diễn biến thời tiết.",
			storm.Name, storm.Intensity, point.Time,
		),
		IssuedAt: clock.Now().UTC(),
	}, true
}
