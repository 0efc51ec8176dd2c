package model

import (
	"sort"
	"time"

	"github.com/twpayne/go-geom"
)

// Region is a geographic unit identified by its canonical SA2 code.
type Region struct {
	Code     SA2Code    `json:"code"`
	Name     string     `json:"name"`
	State    State      `json:"state"`
	Geometry geom.T     `json:"-"`
	Centroid geom.Coord `json:"centroid,omitempty"`
}

// JoinedRegion is the outer-join result for one region: every metric any
// source contributed, plus the names of the contributing sources.
type JoinedRegion struct {
	Region  Region   `json:"region"`
	Metrics Metrics  `json:"metrics"`
	Sources []string `json:"sources"`
}

// RankedRegion is a JoinedRegion with its composite score and 1-based rank.
type RankedRegion struct {
	JoinedRegion
	Rank       int                `json:"rank"`
	Score      float64            `json:"score"`
	Scaled     float64            `json:"scaled"` // 0-100 within the ranked set
	Components map[Metric]float64 `json:"components"`
}

// RankedResult is the engine output. Ranked is ordered by score descending
// with ties broken by ascending region code. Unranked holds regions that
// joined but had no scoring metric available, ordered by code.
type RankedResult struct {
	Ranked      []RankedRegion `json:"ranked"`
	Unranked    []JoinedRegion `json:"unranked"`
	Diagnostics Diagnostics    `json:"diagnostics"`
}

// Len returns the number of regions in the result, ranked or not.
func (r RankedResult) Len() int {
	return len(r.Ranked) + len(r.Unranked)
}

// Warning is a non-fatal problem found while loading a source.
type Warning struct {
	Source  string `json:"source"`
	Line    int    `json:"line,omitempty"`
	Message string `json:"message"`
}

// Unjoined is a source key that could not be resolved to a region.
type Unjoined struct {
	Source    string    `json:"source"`
	RawKey    string    `json:"raw_key"`
	Dimension Dimension `json:"dimension"`
	Reason    string    `json:"reason"`
}

// SourceSummary describes how one source was loaded.
type SourceSummary struct {
	Source     string `json:"source"`
	Path       string `json:"path,omitempty"`
	UsedSample bool   `json:"used_sample"`
	Rows       int    `json:"rows"`
	Warnings   int    `json:"warnings"`
}

// Diagnostics collects load warnings and unjoined keys for coverage reporting.
type Diagnostics struct {
	Sources  []SourceSummary `json:"sources"`
	Warnings []Warning       `json:"warnings"`
	Unjoined []Unjoined      `json:"unjoined"`
}

// UnjoinedBySource counts unjoined keys per source.
func (d Diagnostics) UnjoinedBySource() map[string]int {
	out := make(map[string]int)
	for _, u := range d.Unjoined {
		out[u.Source]++
	}
	return out
}

// WarningsBySource counts warnings per source.
func (d Diagnostics) WarningsBySource() map[string]int {
	out := make(map[string]int)
	for _, w := range d.Warnings {
		out[w.Source]++
	}
	return out
}

// SortedSources returns the keys of a per-source count map in order.
func SortedSources(counts map[string]int) []string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Run wraps one engine invocation with the fields that differ between
// otherwise identical runs.
type Run struct {
	ID          string             `json:"id"`
	Label       string             `json:"label,omitempty"`
	GeneratedAt time.Time          `json:"generated_at"`
	Policy      string             `json:"policy"`
	Weights     map[Metric]float64 `json:"weights"`
	Result      RankedResult       `json:"result"`
}
