package geokey

import (
	"sort"

	"github.com/sells-group/suburb-insights/internal/model"
)

// Allocation is the share of a postcode assigned to one SA2.
type Allocation struct {
	SA2    model.SA2Code
	Weight float64
}

// Correspondence bridges postcodes to SA2 regions. The mapping is
// many-to-many: a postcode may span several SA2s and an SA2 may draw from
// several postcodes. It is built once and read-only afterwards.
type Correspondence struct {
	byPostcode map[model.Postcode][]Allocation
	names      map[model.SA2Code]string
}

// NewCorrespondence builds a correspondence from table rows. Rows whose keys
// fail normalization are returned as unjoinable diagnostics. A missing ratio
// counts as weight 1; non-positive ratios carry no share and are ignored.
// Duplicate postcode/SA2 pairs accumulate their weights.
func NewCorrespondence(records []model.CorrespondenceRecord) (*Correspondence, []*UnjoinableKeyError) {
	c := &Correspondence{
		byPostcode: make(map[model.Postcode][]Allocation),
		names:      make(map[model.SA2Code]string),
	}
	var bad []*UnjoinableKeyError

	weights := make(map[model.Postcode]map[model.SA2Code]float64)
	for _, rec := range records {
		pc, err := NormalizePostcode(rec.RawPostcode)
		if err != nil {
			bad = append(bad, &UnjoinableKeyError{
				Source: "correspondence", RawKey: rec.RawPostcode,
				Dimension: model.DimensionPostcode, Reason: ReasonInvalidKey, Err: err,
			})
			continue
		}
		sa2, err := NormalizeSA2(rec.RawSA2)
		if err != nil {
			bad = append(bad, &UnjoinableKeyError{
				Source: "correspondence", RawKey: rec.RawSA2,
				Dimension: model.DimensionSA2, Reason: ReasonInvalidKey, Err: err,
			})
			continue
		}

		if rec.SA2Name != "" {
			if _, ok := c.names[sa2]; !ok {
				c.names[sa2] = rec.SA2Name
			}
		}

		w := 1.0
		if rec.Ratio != nil {
			w = *rec.Ratio
		}
		if w <= 0 {
			continue
		}
		if weights[pc] == nil {
			weights[pc] = make(map[model.SA2Code]float64)
		}
		weights[pc][sa2] += w
	}

	for pc, bySA2 := range weights {
		allocs := make([]Allocation, 0, len(bySA2))
		for sa2, w := range bySA2 {
			allocs = append(allocs, Allocation{SA2: sa2, Weight: w})
		}
		sort.Slice(allocs, func(i, j int) bool { return allocs[i].SA2 < allocs[j].SA2 })
		c.byPostcode[pc] = allocs
	}

	return c, bad
}

// Allocations returns the SA2 shares for a postcode, ordered by SA2 code.
// The returned slice is a copy.
func (c *Correspondence) Allocations(pc model.Postcode) []Allocation {
	if c == nil {
		return nil
	}
	src := c.byPostcode[pc]
	if len(src) == 0 {
		return nil
	}
	out := make([]Allocation, len(src))
	copy(out, src)
	return out
}

// Name returns the SA2 display name recorded in the table, if any.
func (c *Correspondence) Name(code model.SA2Code) string {
	if c == nil {
		return ""
	}
	return c.names[code]
}

// SA2Codes returns every SA2 referenced by the table, sorted.
func (c *Correspondence) SA2Codes() []model.SA2Code {
	if c == nil {
		return nil
	}
	seen := make(map[model.SA2Code]struct{})
	for _, allocs := range c.byPostcode {
		for _, a := range allocs {
			seen[a.SA2] = struct{}{}
		}
	}
	out := make([]model.SA2Code, 0, len(seen))
	for code := range seen {
		out = append(out, code)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Len returns the number of postcodes with at least one allocation.
func (c *Correspondence) Len() int {
	if c == nil {
		return 0
	}
	return len(c.byPostcode)
}
