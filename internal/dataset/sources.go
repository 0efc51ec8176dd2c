package dataset

import (
	"context"
	"math"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/suburb-insights/internal/fetcher"
	"github.com/sells-group/suburb-insights/internal/model"
)

// Column aliases, most specific first.
var (
	sa2KeyCols      = []string{"sa2_code21", "sa2_code_2021", "sa2_code", "sa2_code*", "sa2_main*"}
	sa2NameCols     = []string{"sa2_name21", "sa2_name_2021", "sa2_name", "sa2_name*"}
	postcodeCols    = []string{"postcode", "poa_code_2021", "poa_code21", "poa_code*", "poa", "postal_code"}
	suburbCols      = []string{"suburb", "locality", "suburb_name", "locality_name"}
	regionCols      = []string{"region_id", "region", "area"}
	ownershipCols   = []string{"ownership_pct", "home_ownership_pct", "ownership"}
	outrightPctCols = []string{"*owned_outright*_p"}
	mortgagePctCols = []string{"*owned_with*mortgage*_p"}
	outrightNumCols = []string{"*owned_outright*_n"}
	mortgageNumCols = []string{"*owned_with*mortgage*_n"}
	tenureTotalCols = []string{"total_total", "*_total"}
	irsadCols       = []string{"irsad_rank", "*irsad*rank*"}
	decileCols      = []string{"irsad_decile", "*irsad*decile*", "*decile*"}
	vacancyCols     = []string{"vacancy_pct", "vacancy_rate", "vacancy_rate_pct", "vacancy"}
	priceCols       = []string{"median_price", "median_house_price", "*median*price*", "median"}
	rentCols        = []string{"median_rent_weekly", "median_weekly_rent", "median_rent", "weekly_rent", "*median*rent*"}
	dateCols        = []string{"date", "period", "quarter", "month", "observed_at", "effective_date"}
	cashRateCols    = []string{"cash_rate", "cash_rate_target", "cash_rate_target_pct", "rate", "value"}
	ratioCols       = []string{"ratio", "ratio_from_to", "ratio*", "overlap*"}
)

// Schemas reported by MissingFileError.
var (
	ownershipSchema      = []string{"sa2_code21", "sa2_name21", "ownership_pct"}
	seifaSchema          = []string{"sa2_code21", "sa2_name21", "irsad_rank"}
	vacancySchema        = []string{"postcode", "vacancy_pct"}
	mediansSchema        = []string{"region_id|sa2_code21|postcode|suburb", "median_price", "median_rent_weekly", "date"}
	cashRateSchema       = []string{"date", "cash_rate"}
	correspondenceSchema = []string{"postcode", "sa2_code_2021", "ratio"}
	stampDutySchema      = []string{"state", "occupancy", "bracket_min", "bracket_max", "base", "rate_pct", "marginal_above"}
	geometrySchema       = []string{"SA2_CODE21", "SA2_NAME21", "geometry"}
)

// LoadOwnership loads the SA2 home-ownership table. When no ownership_pct
// column exists the share is derived from the owned-outright and
// owned-with-mortgage columns: percentages are summed, counts are divided by
// the dwelling total.
func (l *Loader) LoadOwnership(ctx context.Context) (Table[model.OwnershipRecord], error) {
	return loadTable(ctx, l, SourceOwnership, l.cfg.Ownership, ownershipSchema, false,
		func(h header) (rowParser[model.OwnershipRecord], error) {
			keyIdx := h.find(sa2KeyCols...)
			if keyIdx < 0 {
				return nil, missingColumn("sa2_code21", sa2KeyCols)
			}
			nameIdx := h.find(sa2NameCols...)
			valIdx := h.find(ownershipCols...)
			ooP, mwP := h.find(outrightPctCols...), h.find(mortgagePctCols...)
			ooN, mwN, total := h.find(outrightNumCols...), h.find(mortgageNumCols...), h.find(tenureTotalCols...)

			derivePct := ooP >= 0 && mwP >= 0
			deriveNum := ooN >= 0 && mwN >= 0 && total >= 0
			if valIdx < 0 && !derivePct && !deriveNum {
				return nil, missingColumn("ownership_pct", ownershipCols)
			}

			return func(row fetcher.Row) (model.OwnershipRecord, error) {
				rec := model.OwnershipRecord{Line: row.Line, RawKey: cell(row.Fields, keyIdx), Name: cell(row.Fields, nameIdx)}
				if rec.RawKey == "" {
					return rec, eris.New("empty SA2 code")
				}

				var pct *float64
				var err error
				switch {
				case valIdx >= 0:
					pct, err = parseNumber(cell(row.Fields, valIdx))
				case derivePct:
					pct, err = sumCells(row.Fields, ooP, mwP)
				default:
					pct, err = shareOf(row.Fields, ooN, mwN, total)
				}
				if err != nil {
					return rec, eris.Wrap(err, "ownership_pct")
				}
				if pct != nil && (*pct < 0 || *pct > 100) {
					return rec, eris.Errorf("ownership_pct %.2f outside 0-100", *pct)
				}
				rec.OwnershipPct = pct
				return rec, nil
			}, nil
		})
}

// LoadSEIFA loads the SA2 IRSAD table. The rank column falls back to the
// decile when no rank is published.
func (l *Loader) LoadSEIFA(ctx context.Context) (Table[model.SEIFARecord], error) {
	return loadTable(ctx, l, SourceSEIFA, l.cfg.SEIFA, seifaSchema, false,
		func(h header) (rowParser[model.SEIFARecord], error) {
			keyIdx := h.find(sa2KeyCols...)
			if keyIdx < 0 {
				return nil, missingColumn("sa2_code21", sa2KeyCols)
			}
			rankIdx := h.find(irsadCols...)
			if rankIdx < 0 {
				rankIdx = h.find(decileCols...)
			}
			if rankIdx < 0 {
				return nil, missingColumn("irsad_rank", append(irsadCols, decileCols...))
			}
			nameIdx := h.find(sa2NameCols...)

			return func(row fetcher.Row) (model.SEIFARecord, error) {
				rec := model.SEIFARecord{Line: row.Line, RawKey: cell(row.Fields, keyIdx), Name: cell(row.Fields, nameIdx)}
				if rec.RawKey == "" {
					return rec, eris.New("empty SA2 code")
				}
				rank, err := parseNumber(cell(row.Fields, rankIdx))
				if err != nil {
					return rec, eris.Wrap(err, "irsad_rank")
				}
				if rank != nil && *rank < 0 {
					return rec, eris.Errorf("irsad_rank %.0f is negative", *rank)
				}
				rec.IRSADRank = rank
				return rec, nil
			}, nil
		})
}

// LoadVacancy loads the postcode vacancy table.
func (l *Loader) LoadVacancy(ctx context.Context) (Table[model.VacancyRecord], error) {
	return loadTable(ctx, l, SourceVacancy, l.cfg.Vacancy, vacancySchema, false,
		func(h header) (rowParser[model.VacancyRecord], error) {
			keyIdx := h.find(postcodeCols...)
			if keyIdx < 0 {
				return nil, missingColumn("postcode", postcodeCols)
			}
			valIdx := h.find(vacancyCols...)
			if valIdx < 0 {
				return nil, missingColumn("vacancy_pct", vacancyCols)
			}

			return func(row fetcher.Row) (model.VacancyRecord, error) {
				rec := model.VacancyRecord{Line: row.Line, RawKey: cell(row.Fields, keyIdx)}
				if rec.RawKey == "" {
					return rec, eris.New("empty postcode")
				}
				v, err := parseNumber(cell(row.Fields, valIdx))
				if err != nil {
					return rec, eris.Wrap(err, "vacancy_pct")
				}
				if v != nil && (*v < 0 || *v > 100) {
					return rec, eris.Errorf("vacancy_pct %.2f outside 0-100", *v)
				}
				rec.VacancyPct = v
				return rec, nil
			}, nil
		})
}

// LoadMedians loads the price medians table (CSV or XLSX). The region column
// decides the key dimension: an SA2 column, then a postcode column, then a
// suburb name column, then a generic region column whose dimension is
// inferred per row.
func (l *Loader) LoadMedians(ctx context.Context) (Table[model.MedianRecord], error) {
	return loadTable(ctx, l, SourceMedians, l.cfg.Medians, mediansSchema, false,
		func(h header) (rowParser[model.MedianRecord], error) {
			keyIdx, dim := -1, model.DimensionAuto
			for _, c := range []struct {
				cols []string
				dim  model.Dimension
			}{
				{sa2KeyCols, model.DimensionSA2},
				{postcodeCols, model.DimensionPostcode},
				{suburbCols, model.DimensionName},
				{regionCols, model.DimensionAuto},
			} {
				if idx := h.find(c.cols...); idx >= 0 {
					keyIdx, dim = idx, c.dim
					break
				}
			}
			if keyIdx < 0 {
				return nil, missingColumn("region_id", regionCols)
			}
			priceIdx := h.find(priceCols...)
			if priceIdx < 0 {
				return nil, missingColumn("median_price", priceCols)
			}
			rentIdx := h.find(rentCols...)
			dateIdx := h.find(dateCols...)

			return func(row fetcher.Row) (model.MedianRecord, error) {
				rec := model.MedianRecord{Line: row.Line, RawKey: cell(row.Fields, keyIdx), Dimension: dim}
				if rec.RawKey == "" {
					return rec, eris.New("empty region key")
				}
				price, err := parseNumber(cell(row.Fields, priceIdx))
				if err != nil {
					return rec, eris.Wrap(err, "median_price")
				}
				if price != nil && *price <= 0 {
					return rec, eris.Errorf("median_price %.0f must be positive", *price)
				}
				rec.MedianPrice = price

				if rentIdx >= 0 {
					rent, err := parseNumber(cell(row.Fields, rentIdx))
					if err != nil {
						return rec, eris.Wrap(err, "median_rent_weekly")
					}
					if rent != nil && *rent < 0 {
						return rec, eris.Errorf("median_rent_weekly %.0f is negative", *rent)
					}
					rec.MedianRentWeekly = rent
				}
				if rec.MedianPrice == nil && rec.MedianRentWeekly == nil {
					return rec, eris.New("no median price or rent")
				}

				if raw := cell(row.Fields, dateIdx); raw != "" {
					at, err := parseDate(raw)
					if err != nil {
						return rec, eris.Wrap(err, "date")
					}
					rec.ObservedAt = &at
				}
				return rec, nil
			}, nil
		})
}

// LoadCashRates loads the RBA cash rate target history.
func (l *Loader) LoadCashRates(ctx context.Context) (Table[model.CashRateRecord], error) {
	return loadTable(ctx, l, SourceCashRate, l.cfg.CashRate, cashRateSchema, false,
		func(h header) (rowParser[model.CashRateRecord], error) {
			dateIdx := h.find(dateCols...)
			if dateIdx < 0 {
				return nil, missingColumn("date", dateCols)
			}
			rateIdx := h.find(cashRateCols...)
			if rateIdx < 0 {
				return nil, missingColumn("cash_rate", cashRateCols)
			}

			return func(row fetcher.Row) (model.CashRateRecord, error) {
				rec := model.CashRateRecord{Line: row.Line}
				at, err := parseDate(cell(row.Fields, dateIdx))
				if err != nil {
					return rec, eris.Wrap(err, "date")
				}
				rate, err := parseNumber(cell(row.Fields, rateIdx))
				if err != nil {
					return rec, eris.Wrap(err, "cash_rate")
				}
				if rate == nil {
					return rec, eris.New("cash_rate is empty")
				}
				rec.Date, rec.Rate = at, *rate
				return rec, nil
			}, nil
		})
}

// LoadCorrespondence loads the postcode to SA2 correspondence table. The
// table is optional: when absent the result is an empty table.
func (l *Loader) LoadCorrespondence(ctx context.Context) (Table[model.CorrespondenceRecord], error) {
	return loadTable(ctx, l, SourceCorrespondence, l.cfg.Correspondence, correspondenceSchema, true,
		func(h header) (rowParser[model.CorrespondenceRecord], error) {
			pcIdx := h.find(postcodeCols...)
			if pcIdx < 0 {
				return nil, missingColumn("postcode", postcodeCols)
			}
			sa2Idx := h.find(sa2KeyCols...)
			if sa2Idx < 0 {
				return nil, missingColumn("sa2_code_2021", sa2KeyCols)
			}
			ratioIdx := h.find(ratioCols...)
			nameIdx := h.find(sa2NameCols...)

			return func(row fetcher.Row) (model.CorrespondenceRecord, error) {
				rec := model.CorrespondenceRecord{
					Line:        row.Line,
					RawPostcode: cell(row.Fields, pcIdx),
					RawSA2:      cell(row.Fields, sa2Idx),
					SA2Name:     cell(row.Fields, nameIdx),
				}
				if rec.RawPostcode == "" || rec.RawSA2 == "" {
					return rec, eris.New("empty postcode or SA2 code")
				}
				if ratioIdx >= 0 {
					r, err := parseNumber(cell(row.Fields, ratioIdx))
					if err != nil {
						return rec, eris.Wrap(err, "ratio")
					}
					if r != nil && *r < 0 {
						return rec, eris.Errorf("ratio %.4f is negative", *r)
					}
					rec.Ratio = r
				}
				return rec, nil
			}, nil
		})
}

// LoadStampDuty loads the stamp duty bracket schedule. The source is optional
// and is not part of the ranking bundle. A missing bracket_max makes the
// bracket open-ended (math.MaxFloat64); a missing marginal_above defaults to
// the bracket minimum.
func (l *Loader) LoadStampDuty(ctx context.Context) (Table[model.StampDutyBracket], error) {
	return loadTable(ctx, l, SourceStampDuty, l.cfg.StampDuty, stampDutySchema, true,
		func(h header) (rowParser[model.StampDutyBracket], error) {
			idx := make(map[string]int, len(stampDutySchema))
			for _, col := range stampDutySchema {
				idx[col] = h.find(col)
			}
			for _, col := range []string{"state", "occupancy", "bracket_min", "base", "rate_pct"} {
				if idx[col] < 0 {
					return nil, missingColumn(col, []string{col})
				}
			}

			return func(row fetcher.Row) (model.StampDutyBracket, error) {
				var b model.StampDutyBracket
				st, ok := model.ParseState(cell(row.Fields, idx["state"]))
				if !ok {
					return b, eris.Errorf("unknown state %q", cell(row.Fields, idx["state"]))
				}
				b.State = st
				b.Occupancy = strings.ToUpper(cell(row.Fields, idx["occupancy"]))
				if b.Occupancy != "OO" && b.Occupancy != "INV" {
					return b, eris.Errorf("occupancy %q must be OO or INV", b.Occupancy)
				}

				nums := make(map[string]*float64, 5)
				for _, col := range []string{"bracket_min", "bracket_max", "base", "rate_pct", "marginal_above"} {
					v, err := parseNumber(cell(row.Fields, idx[col]))
					if err != nil {
						return b, eris.Wrap(err, col)
					}
					nums[col] = v
				}
				for _, col := range []string{"bracket_min", "base", "rate_pct"} {
					if nums[col] == nil {
						return b, eris.Errorf("%s is empty", col)
					}
				}

				b.BracketMin = *nums["bracket_min"]
				b.Base = *nums["base"]
				b.RatePct = *nums["rate_pct"]
				b.BracketMax = math.MaxFloat64
				if nums["bracket_max"] != nil {
					b.BracketMax = *nums["bracket_max"]
					if b.BracketMax < b.BracketMin {
						return b, eris.Errorf("bracket_max %.0f below bracket_min %.0f", b.BracketMax, b.BracketMin)
					}
				}
				b.MarginalAbove = b.BracketMin
				if nums["marginal_above"] != nil {
					b.MarginalAbove = *nums["marginal_above"]
				}
				return b, nil
			}, nil
		})
}

func sumCells(fields []string, a, b int) (*float64, error) {
	x, err := parseNumber(cell(fields, a))
	if err != nil {
		return nil, err
	}
	y, err := parseNumber(cell(fields, b))
	if err != nil {
		return nil, err
	}
	if x == nil || y == nil {
		return nil, nil
	}
	sum := *x + *y
	return &sum, nil
}

func shareOf(fields []string, a, b, total int) (*float64, error) {
	sum, err := sumCells(fields, a, b)
	if err != nil || sum == nil {
		return nil, err
	}
	t, err := parseNumber(cell(fields, total))
	if err != nil {
		return nil, err
	}
	if t == nil || *t <= 0 {
		return nil, nil
	}
	pct := *sum / *t * 100
	return &pct, nil
}
