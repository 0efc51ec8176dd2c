// Package geo converts region boundaries between shapefile and go-geom forms
// and derives centroids, CBD distances and GeoJSON output from them.
package geo

// Ring classification constants.
const (
	RingInner    = "inner"
	RingMiddle   = "middle"
	RingOuter    = "outer"
	RingRegional = "regional"
)

// Distance thresholds for classification (kilometers from the state capital CBD).
const (
	innerRingThreshold  = 10.0
	middleRingThreshold = 25.0
	outerRingThreshold  = 50.0
)

// Classify returns the metropolitan ring for a distance to the capital CBD.
// Rules:
//   - inner: distance <= 10km
//   - middle: distance <= 25km
//   - outer: distance <= 50km
//   - regional: anything further
//
// A negative distance is treated as unknown and yields "".
func Classify(distanceKM float64) string {
	switch {
	case distanceKM < 0:
		return ""
	case distanceKM <= innerRingThreshold:
		return RingInner
	case distanceKM <= middleRingThreshold:
		return RingMiddle
	case distanceKM <= outerRingThreshold:
		return RingOuter
	default:
		return RingRegional
	}
}
