package model

import (
	"time"

	"github.com/twpayne/go-geom"
)

// Records below are one row of one input source, validated at load time.
// Keys are kept raw; the key normalizer canonicalizes them during the join so
// unmappable keys can be reported rather than dropped at parse time.

// OwnershipRecord is a row of the SA2 home-ownership source (Census G37).
type OwnershipRecord struct {
	Line         int      `json:"line"`
	RawKey       string   `json:"raw_key"`
	Name         string   `json:"name,omitempty"`
	OwnershipPct *float64 `json:"ownership_pct,omitempty"`
}

// SEIFARecord is a row of the SA2 SEIFA IRSAD source.
type SEIFARecord struct {
	Line      int      `json:"line"`
	RawKey    string   `json:"raw_key"`
	Name      string   `json:"name,omitempty"`
	IRSADRank *float64 `json:"irsad_rank,omitempty"`
}

// VacancyRecord is a row of the postcode vacancy source.
type VacancyRecord struct {
	Line       int      `json:"line"`
	RawKey     string   `json:"raw_key"`
	VacancyPct *float64 `json:"vacancy_pct,omitempty"`
}

// MedianRecord is one observation of the price medians source. The region
// identifier may be an SA2 code, a postcode or a suburb name; Dimension records
// which column it came from.
type MedianRecord struct {
	Line             int        `json:"line"`
	RawKey           string     `json:"raw_key"`
	Dimension        Dimension  `json:"dimension"`
	MedianPrice      *float64   `json:"median_price,omitempty"`
	MedianRentWeekly *float64   `json:"median_rent_weekly,omitempty"`
	ObservedAt       *time.Time `json:"observed_at,omitempty"`
}

// CashRateRecord is one RBA cash rate target observation.
type CashRateRecord struct {
	Line int       `json:"line"`
	Date time.Time `json:"date"`
	Rate float64   `json:"rate"`
}

// CorrespondenceRecord maps a postcode to an SA2. Ratio is the share of the
// postcode allocated to the SA2 when the table provides one.
type CorrespondenceRecord struct {
	Line        int      `json:"line"`
	RawPostcode string   `json:"raw_postcode"`
	RawSA2      string   `json:"raw_sa2"`
	SA2Name     string   `json:"sa2_name,omitempty"`
	Ratio       *float64 `json:"ratio,omitempty"`
}

// BoundaryRecord is one region polygon from the geometry source.
type BoundaryRecord struct {
	Line     int    `json:"line"`
	RawKey   string `json:"raw_key"`
	Name     string `json:"name,omitempty"`
	Geometry geom.T `json:"-"`
}

// StampDutyBracket is one row of a state stamp duty schedule.
type StampDutyBracket struct {
	State         State   `json:"state"`
	Occupancy     string  `json:"occupancy"` // OO or INV
	BracketMin    float64 `json:"bracket_min"`
	BracketMax    float64 `json:"bracket_max"`
	Base          float64 `json:"base"`
	RatePct       float64 `json:"rate_pct"`
	MarginalAbove float64 `json:"marginal_above"`
}
