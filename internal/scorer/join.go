package scorer

import (
	"errors"
	"sort"
	"time"

	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/sells-group/suburb-insights/internal/dataset"
	"github.com/sells-group/suburb-insights/internal/finance"
	"github.com/sells-group/suburb-insights/internal/geo"
	"github.com/sells-group/suburb-insights/internal/geokey"
	"github.com/sells-group/suburb-insights/internal/model"
)

// momentumLag is the minimum gap between the two median observations
// compared by price_momentum_qoq.
const momentumLag = 3 // months

// sourceOrder fixes the order of JoinedRegion.Sources.
var sourceOrder = []string{
	dataset.SourceOwnership,
	dataset.SourceSEIFA,
	dataset.SourceVacancy,
	dataset.SourceMedians,
	dataset.SourceCashRate,
	dataset.SourceGeometry,
}

// JoinResult is the outer join of every SA2-resolvable source.
type JoinResult struct {
	Regions     []model.JoinedRegion // ascending by code
	Diagnostics model.Diagnostics
}

// accumulator is a weighted mean. SA2-keyed rows carry weight 1, so
// duplicate rows average; postcode rows carry their allocation share.
type accumulator struct {
	sum    float64
	weight float64
}

func (a *accumulator) add(v, w float64) {
	a.sum += v * w
	a.weight += w
}

func (a *accumulator) mean() (float64, bool) {
	if a == nil || a.weight <= 0 {
		return 0, false
	}
	return a.sum / a.weight, true
}

// observation groups the median rows for one region and date.
type observation struct {
	at    time.Time
	dated bool
	price accumulator
	rent  accumulator
}

type regionBuilder struct {
	code         model.SA2Code
	name         string
	namePriority int
	geometry     geom.T
	values       map[model.Metric]*accumulator
	medians      map[time.Time]*observation
	sources      map[string]bool
}

func (b *regionBuilder) add(m model.Metric, v *float64, w float64) {
	if v == nil {
		return
	}
	acc := b.values[m]
	if acc == nil {
		acc = &accumulator{}
		b.values[m] = acc
	}
	acc.add(*v, w)
}

func (b *regionBuilder) setName(name string, priority int) {
	if name == "" {
		return
	}
	if b.name == "" || priority > b.namePriority {
		b.name, b.namePriority = name, priority
	}
}

// joiner carries the state of one Join call.
type joiner struct {
	regions  map[model.SA2Code]*regionBuilder
	resolver *geokey.Resolver
	unjoined []model.Unjoined
}

func (j *joiner) region(code model.SA2Code) *regionBuilder {
	b := j.regions[code]
	if b == nil {
		b = &regionBuilder{
			code:    code,
			values:  make(map[model.Metric]*accumulator),
			medians: make(map[time.Time]*observation),
			sources: make(map[string]bool),
		}
		j.regions[code] = b
	}
	return b
}

// resolve maps a raw key to allocations, recording failures as diagnostics.
func (j *joiner) resolve(source, raw string, dim model.Dimension) []geokey.Allocation {
	allocs, err := j.resolver.Resolve(source, raw, dim)
	if err != nil {
		var ue *geokey.UnjoinableKeyError
		if errors.As(err, &ue) {
			j.unjoined = append(j.unjoined, ue.Diagnostic())
		}
		return nil
	}
	return allocs
}

// Join performs the outer join over the SA2 dimension. The key universe is
// the union of SA2 keys from ownership, SEIFA and geometry, plus medians and
// vacancy keys resolved to SA2 through the name index or the correspondence
// table. Postcode values are bridged with the allocation-weighted mean.
// calc supplies the repayment metric and may be nil.
func Join(b *dataset.Bundle, calc *finance.Calculator) JoinResult {
	log := zap.L().With(zap.String("component", "scorer"))

	var corr *geokey.Correspondence
	var unjoined []model.Unjoined
	if b.Correspondence.Path != "" {
		var bad []*geokey.UnjoinableKeyError
		corr, bad = geokey.NewCorrespondence(b.Correspondence.Rows)
		for _, e := range bad {
			unjoined = append(unjoined, e.Diagnostic())
		}
	}

	names := geokey.NewNameIndex()
	for _, rec := range b.Geometry.Rows {
		addName(names, rec.RawKey, rec.Name)
	}
	for _, rec := range b.Ownership.Rows {
		addName(names, rec.RawKey, rec.Name)
	}
	for _, rec := range b.SEIFA.Rows {
		addName(names, rec.RawKey, rec.Name)
	}
	if corr != nil {
		for _, code := range corr.SA2Codes() {
			names.Add(code, corr.Name(code))
		}
	}

	j := &joiner{
		regions:  make(map[model.SA2Code]*regionBuilder),
		resolver: geokey.NewResolver(corr, names),
		unjoined: unjoined,
	}

	for _, rec := range b.Ownership.Rows {
		for _, a := range j.resolve(dataset.SourceOwnership, rec.RawKey, model.DimensionSA2) {
			r := j.region(a.SA2)
			r.sources[dataset.SourceOwnership] = true
			r.setName(rec.Name, 2)
			r.add(model.MetricOwnershipPct, rec.OwnershipPct, a.Weight)
		}
	}
	for _, rec := range b.SEIFA.Rows {
		for _, a := range j.resolve(dataset.SourceSEIFA, rec.RawKey, model.DimensionSA2) {
			r := j.region(a.SA2)
			r.sources[dataset.SourceSEIFA] = true
			r.setName(rec.Name, 1)
			r.add(model.MetricIRSADRank, rec.IRSADRank, a.Weight)
		}
	}
	for _, rec := range b.Vacancy.Rows {
		for _, a := range j.resolve(dataset.SourceVacancy, rec.RawKey, model.DimensionPostcode) {
			r := j.region(a.SA2)
			r.sources[dataset.SourceVacancy] = true
			r.add(model.MetricVacancyRate, rec.VacancyPct, a.Weight)
		}
	}
	for _, rec := range b.Medians.Rows {
		for _, a := range j.resolve(dataset.SourceMedians, rec.RawKey, rec.Dimension) {
			r := j.region(a.SA2)
			r.sources[dataset.SourceMedians] = true
			addObservation(r, rec, a.Weight)
		}
	}
	for _, rec := range b.Geometry.Rows {
		for _, a := range j.resolve(dataset.SourceGeometry, rec.RawKey, model.DimensionSA2) {
			r := j.region(a.SA2)
			r.sources[dataset.SourceGeometry] = true
			r.setName(rec.Name, 3)
			if r.geometry == nil {
				r.geometry = rec.Geometry
			}
		}
	}

	rates := sortedRates(b.CashRates.Rows)

	codes := make([]model.SA2Code, 0, len(j.regions))
	for code := range j.regions {
		codes = append(codes, code)
	}
	sort.Slice(codes, func(a, b int) bool { return codes[a] < codes[b] })

	res := JoinResult{Regions: make([]model.JoinedRegion, 0, len(codes))}
	for _, code := range codes {
		if corr != nil && j.regions[code].name == "" {
			j.regions[code].setName(corr.Name(code), 0)
		}
		res.Regions = append(res.Regions, j.regions[code].build(rates, calc))
	}

	res.Diagnostics = model.Diagnostics{
		Sources:  b.Summaries(),
		Warnings: b.Warnings(),
		Unjoined: j.unjoined,
	}

	counts := res.Diagnostics.UnjoinedBySource()
	for _, source := range model.SortedSources(counts) {
		log.Info("unjoined keys", zap.String("source", source), zap.Int("count", counts[source]))
	}
	log.Debug("join complete", zap.Int("regions", len(res.Regions)))
	return res
}

func addName(names *geokey.NameIndex, raw, name string) {
	if name == "" {
		return
	}
	if code, err := geokey.NormalizeSA2(raw); err == nil {
		names.Add(code, name)
	}
}

func addObservation(r *regionBuilder, rec model.MedianRecord, w float64) {
	var at time.Time
	if rec.ObservedAt != nil {
		at = *rec.ObservedAt
	}
	obs := r.medians[at]
	if obs == nil {
		obs = &observation{at: at, dated: rec.ObservedAt != nil}
		r.medians[at] = obs
	}
	if rec.MedianPrice != nil {
		obs.price.add(*rec.MedianPrice, w)
	}
	if rec.MedianRentWeekly != nil {
		obs.rent.add(*rec.MedianRentWeekly, w)
	}
}

func (b *regionBuilder) build(rates []model.CashRateRecord, calc *finance.Calculator) model.JoinedRegion {
	jr := model.JoinedRegion{
		Region: model.Region{
			Code:     b.code,
			Name:     b.name,
			State:    model.StateForSA2(b.code),
			Geometry: b.geometry,
		},
	}
	if jr.Region.Name == "" {
		jr.Region.Name = string(b.code)
	}

	m := &jr.Metrics
	for _, metric := range []model.Metric{model.MetricOwnershipPct, model.MetricIRSADRank, model.MetricVacancyRate} {
		if v, ok := b.values[metric].mean(); ok {
			m.Set(metric, v)
		}
	}

	latest, previous := b.latestObservations()
	if latest != nil {
		price, hasPrice := latest.price.mean()
		rent, hasRent := latest.rent.mean()
		if hasPrice {
			m.Set(model.MetricMedianPrice, price)
			if calc != nil {
				m.Set(model.MetricMonthlyRepayment, calc.Repayment(price))
			}
		}
		if hasRent {
			m.Set(model.MetricMedianRentWeekly, rent)
		}
		if hasPrice && hasRent && price > 0 {
			m.Set(model.MetricGrossYield, finance.GrossYieldPct(price, rent))
		}
		if previous != nil && hasPrice {
			if prev, ok := previous.price.mean(); ok && prev > 0 {
				m.Set(model.MetricPriceMomentumQoQ, (price/prev-1)*100)
			}
		}
		if latest.dated {
			if rate, ok := rateAt(rates, latest.at); ok {
				m.Set(model.MetricCashRate, rate)
				b.sources[dataset.SourceCashRate] = true
			}
		}
	}

	if b.geometry != nil {
		if c, err := geo.Centroid(b.geometry); err == nil {
			jr.Region.Centroid = c
			if d, ok := geo.DistanceToCBD(jr.Region.State, c); ok {
				m.Set(model.MetricDistanceCBDKm, d)
			}
		}
	}

	for _, s := range sourceOrder {
		if b.sources[s] {
			jr.Sources = append(jr.Sources, s)
		}
	}
	return jr
}

// latestObservations returns the most recent median observation with a
// price or rent, and the most recent priced observation dated at least
// momentumLag months before it. Undated observations are used only when no
// dated ones exist.
func (b *regionBuilder) latestObservations() (latest, previous *observation) {
	var dated []*observation
	var undated *observation
	for _, obs := range b.medians {
		if obs.price.weight <= 0 && obs.rent.weight <= 0 {
			continue
		}
		if obs.dated {
			dated = append(dated, obs)
		} else {
			undated = obs
		}
	}
	if len(dated) == 0 {
		return undated, nil
	}

	sort.Slice(dated, func(i, j int) bool { return dated[i].at.Before(dated[j].at) })
	latest = dated[len(dated)-1]
	cutoff := latest.at.AddDate(0, -momentumLag, 0)
	for i := len(dated) - 2; i >= 0; i-- {
		if !dated[i].at.After(cutoff) && dated[i].price.weight > 0 {
			return latest, dated[i]
		}
	}
	return latest, nil
}

func sortedRates(rows []model.CashRateRecord) []model.CashRateRecord {
	out := make([]model.CashRateRecord, len(rows))
	copy(out, rows)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// rateAt returns the cash rate in effect on day: the latest change on or
// before it.
func rateAt(rates []model.CashRateRecord, day time.Time) (float64, bool) {
	i := sort.Search(len(rates), func(i int) bool { return rates[i].Date.After(day) })
	if i == 0 {
		return 0, false
	}
	return rates[i-1].Rate, true
}
