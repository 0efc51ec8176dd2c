package scorer

import (
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/sells-group/suburb-insights/internal/config"
	"github.com/sells-group/suburb-insights/internal/model"
)

// factorStats holds the population mean and standard deviation of one factor.
type factorStats struct {
	mean float64
	std  float64
}

// z returns the standardized value, or 0 when the population has no spread.
func (s factorStats) z(v float64) float64 {
	if s.std == 0 || math.IsNaN(s.std) {
		return 0
	}
	return (v - s.mean) / s.std
}

func population(regions []model.JoinedRegion, m model.Metric) factorStats {
	var sum float64
	var n int
	for _, r := range regions {
		if v, ok := r.Metrics.Get(m); ok && !math.IsNaN(v) {
			sum += v
			n++
		}
	}
	if n == 0 {
		return factorStats{std: math.NaN()}
	}
	mean := sum / float64(n)
	var ss float64
	for _, r := range regions {
		if v, ok := r.Metrics.Get(m); ok && !math.IsNaN(v) {
			ss += (v - mean) * (v - mean)
		}
	}
	return factorStats{mean: mean, std: math.Sqrt(ss / float64(n))}
}

// Rank scores the joined regions and returns them ordered by score
// descending, ties broken by ascending SA2 code.
//
// Only factors with a positive weight take part. Each contributes
// weight·direction·z, with z computed over the filtered population. Under
// the renormalize policy the score divides by the weight of the factors the
// region has; under the default policy a missing factor contributes
// weight·MissingDefault and the score divides by the full weight sum. A
// region with none of the active factors is returned in Unranked under
// either policy.
//
// Scaled is a 0-100 min-max of the score over every ranked region; MinScore
// and Limit are applied after it is computed.
func Rank(regions []model.JoinedRegion, c config.ScoringConfig, f Filters) (model.RankedResult, error) {
	if err := ValidateScoring(c); err != nil {
		return model.RankedResult{}, err
	}
	log := zap.L().With(zap.String("component", "scorer"))

	policy := c.MissingPolicy
	if policy == "" {
		policy = PolicyRenormalize
	}
	weights := Weights(c)

	var pop []model.JoinedRegion
	for _, r := range regions {
		if f.includes(r.Region) {
			pop = append(pop, r)
		}
	}

	type active struct {
		Factor
		stats factorStats
	}
	var act []active
	total := 0.0
	for _, fac := range factors {
		w := weights[fac.Metric]
		if w <= 0 {
			continue
		}
		fac.Weight = w
		act = append(act, active{Factor: fac, stats: population(pop, fac.Metric)})
		total += w
	}

	res := model.RankedResult{
		Ranked:   make([]model.RankedRegion, 0, len(pop)),
		Unranked: []model.JoinedRegion{},
	}
	for _, r := range pop {
		components := make(map[model.Metric]float64, len(act))
		sum, avail := 0.0, 0.0
		for _, a := range act {
			v, ok := r.Metrics.Get(a.Metric)
			if !ok || math.IsNaN(v) {
				if policy == PolicyDefault {
					components[a.Metric] = a.Weight * c.MissingDefault
					sum += components[a.Metric]
				}
				continue
			}
			components[a.Metric] = a.Weight * a.Direction * a.stats.z(v)
			sum += components[a.Metric]
			avail += a.Weight
		}
		if avail == 0 {
			res.Unranked = append(res.Unranked, r)
			continue
		}

		denom := avail
		if policy == PolicyDefault {
			denom = total
		}
		res.Ranked = append(res.Ranked, model.RankedRegion{
			JoinedRegion: r,
			Score:        sum / denom,
			Components:   components,
		})
	}

	sort.Slice(res.Ranked, func(i, j int) bool {
		a, b := res.Ranked[i], res.Ranked[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		return a.Region.Code < b.Region.Code
	})
	sort.Slice(res.Unranked, func(i, j int) bool {
		return res.Unranked[i].Region.Code < res.Unranked[j].Region.Code
	})

	scale(res.Ranked)
	for i := range res.Ranked {
		res.Ranked[i].Rank = i + 1
	}
	res.Ranked = trim(res.Ranked, f)

	log.Debug("ranked regions",
		zap.Int("population", len(pop)),
		zap.Int("ranked", len(res.Ranked)),
		zap.Int("unranked", len(res.Unranked)),
		zap.String("policy", policy),
	)
	return res, nil
}

// scale sets Scaled to the min-max position of each score. All-equal
// scores map to 50.
func scale(ranked []model.RankedRegion) {
	if len(ranked) == 0 {
		return
	}
	hi := ranked[0].Score
	lo := ranked[len(ranked)-1].Score
	for i := range ranked {
		if hi == lo {
			ranked[i].Scaled = 50
			continue
		}
		ranked[i].Scaled = (ranked[i].Score - lo) / (hi - lo) * 100
	}
}

func trim(ranked []model.RankedRegion, f Filters) []model.RankedRegion {
	if f.MinScore != nil {
		n := sort.Search(len(ranked), func(i int) bool { return ranked[i].Score < *f.MinScore })
		ranked = ranked[:n]
	}
	if f.Limit > 0 && len(ranked) > f.Limit {
		ranked = ranked[:f.Limit]
	}
	return ranked
}
