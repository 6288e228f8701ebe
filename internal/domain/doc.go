// Package domain models location weather analyses produced by a generative
// model for points on a map of Vietnam.
//
// # Analysis Records
//
// A [WeatherAnalysis] is created fresh for every location selection and is
// never mutated afterwards; a new selection replaces it wholesale. All numeric
// values in it are model estimates carried as display strings:
//
//	temperature    "28°"
//	minTemp/maxTemp "24", "32" (optional)
//	windSpeed      "15" (km/h, no unit)
//	windDirection  Vietnamese compass abbreviation: Đ, T, N, B, ĐB, ĐN, TB, TN (optional)
//	rainfall       "5mm"
//
// The shape the model must return is declared once as data in [AnalysisSchema]
// and kept separate from the Go types. The schema test keeps the two in sync.
//
// # Degraded Results
//
// Model failures never surface as errors to the session layer. The caller
// substitutes [FallbackAnalysis], whose text fields hold placeholders and whose
// structured fields are empty: no forecast points, no storm, LOW flood risk.
//
// # Layers
//
// The active [LayerType] selects which facet the narrative emphasises and which
// style fragment the image prompt uses. Style fragments are an explicit map
// ([StyleFragments]) so adding a layer is a data change.
//
// # Storm Proximity
//
// Proximity is planar Euclidean distance in degrees of latitude/longitude, not
// a geodesic. A storm is approaching when any predicted path point lies closer
// than [ProximityThreshold] (2.0 degrees, roughly 220 km at these latitudes).
// Alerts are deduplicated per storm name and user coordinate rounded to two
// decimals; see [AlertKey].
package domain
