package geo

import (
	"math"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"

	"github.com/sells-group/suburb-insights/internal/model"
)

const earthRadiusKM = 6371.0

// capitalCBDs holds the CBD of each state capital as (lon, lat).
var capitalCBDs = map[model.State]geom.Coord{
	model.StateNSW: {151.2093, -33.8688}, // Sydney
	model.StateVIC: {144.9631, -37.8136}, // Melbourne
	model.StateQLD: {153.0251, -27.4698}, // Brisbane
	model.StateSA:  {138.6007, -34.9285}, // Adelaide
	model.StateWA:  {115.8605, -31.9505}, // Perth
	model.StateTAS: {147.3272, -42.8821}, // Hobart
	model.StateNT:  {130.8456, -12.4634}, // Darwin
	model.StateACT: {149.1300, -35.2809}, // Canberra
}

// CBDFor returns the capital CBD of a state. Other territories have none.
func CBDFor(state model.State) (geom.Coord, bool) {
	c, ok := capitalCBDs[state]
	return c, ok
}

// Centroid returns the area centroid of a region boundary as (lon, lat).
func Centroid(g geom.T) (geom.Coord, error) {
	if g == nil || g.Empty() {
		return nil, eris.New("geo: centroid of empty geometry")
	}
	c, err := xy.Centroid(g)
	if err != nil {
		return nil, eris.Wrap(err, "geo: centroid")
	}
	if len(c) < 2 || math.IsNaN(c[0]) || math.IsNaN(c[1]) {
		return nil, eris.New("geo: centroid undefined for zero-area geometry")
	}
	return geom.Coord{c[0], c[1]}, nil
}

// HaversineKM returns the great-circle distance in kilometers between two
// (lon, lat) coordinates.
func HaversineKM(a, b geom.Coord) float64 {
	lat1 := a[1] * math.Pi / 180
	lat2 := b[1] * math.Pi / 180
	dLat := (b[1] - a[1]) * math.Pi / 180
	dLon := (b[0] - a[0]) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKM * math.Asin(math.Min(1, math.Sqrt(h)))
}

// DistanceToCBD returns the distance from a centroid to its state capital.
func DistanceToCBD(state model.State, centroid geom.Coord) (float64, bool) {
	if len(centroid) < 2 {
		return 0, false
	}
	cbd, ok := CBDFor(state)
	if !ok {
		return 0, false
	}
	return HaversineKM(centroid, cbd), true
}
