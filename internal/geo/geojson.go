package geo

import (
	"math"

	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/sells-group/suburb-insights/internal/model"
)

// Colour maps a 0-100 score onto a red to green gradient with a fixed blue
// channel. Scores outside the range are clamped; NaN is treated as 0.
func Colour(score float64) [3]int {
	s := score
	if math.IsNaN(s) {
		s = 0
	}
	s = math.Max(0, math.Min(100, s))
	return [3]int{
		int(255 * (100 - s) / 100),
		int(255 * s / 100),
		60,
	}
}

// FeatureCollection renders ranked and unranked regions as GeoJSON features.
// Regions without a boundary get a null geometry so every region is listed.
func FeatureCollection(ranked []model.RankedRegion, unranked []model.JoinedRegion) *geojson.FeatureCollection {
	fc := &geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, len(ranked)+len(unranked))}

	for _, r := range ranked {
		props := regionProperties(r.JoinedRegion)
		props["ranked"] = true
		props["rank"] = r.Rank
		props["score"] = r.Score
		props["scaled"] = r.Scaled
		props["colour"] = Colour(r.Scaled)
		fc.Features = append(fc.Features, &geojson.Feature{
			ID:         string(r.Region.Code),
			Geometry:   r.Region.Geometry,
			Properties: props,
		})
	}

	for _, j := range unranked {
		props := regionProperties(j)
		props["ranked"] = false
		props["colour"] = Colour(math.NaN())
		fc.Features = append(fc.Features, &geojson.Feature{
			ID:         string(j.Region.Code),
			Geometry:   j.Region.Geometry,
			Properties: props,
		})
	}

	return fc
}

func regionProperties(j model.JoinedRegion) map[string]interface{} {
	props := map[string]interface{}{
		"sa2_code": string(j.Region.Code),
		"sa2_name": j.Region.Name,
		"state":    string(j.Region.State),
		"sources":  j.Sources,
	}
	for k, v := range j.Metrics.Values() {
		props[string(k)] = v
	}
	if d, ok := j.Metrics.Get(model.MetricDistanceCBDKm); ok {
		props["ring"] = Classify(d)
	}
	if len(j.Region.Centroid) >= 2 {
		props["centroid"] = []float64{j.Region.Centroid[0], j.Region.Centroid[1]}
	}
	return props
}
