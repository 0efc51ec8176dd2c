package dataset

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/suburb-insights/internal/model"
)

// Bundle holds every table the ranking engine joins. It is built once by
// LoadBundle and only read afterwards, so concurrent engine runs may share it.
type Bundle struct {
	Ownership      Table[model.OwnershipRecord]
	SEIFA          Table[model.SEIFARecord]
	Vacancy        Table[model.VacancyRecord]
	Medians        Table[model.MedianRecord]
	CashRates      Table[model.CashRateRecord]
	Correspondence Table[model.CorrespondenceRecord]
	Geometry       Table[model.BoundaryRecord]
}

// LoadBundle loads every ranking source in turn. The first MissingFileError
// or read failure aborts the load.
func (l *Loader) LoadBundle(ctx context.Context) (*Bundle, error) {
	b := &Bundle{}
	var err error

	if b.Ownership, err = l.LoadOwnership(ctx); err != nil {
		return nil, err
	}
	if b.SEIFA, err = l.LoadSEIFA(ctx); err != nil {
		return nil, err
	}
	if b.Vacancy, err = l.LoadVacancy(ctx); err != nil {
		return nil, err
	}
	if b.Medians, err = l.LoadMedians(ctx); err != nil {
		return nil, err
	}
	if b.CashRates, err = l.LoadCashRates(ctx); err != nil {
		return nil, err
	}
	if b.Correspondence, err = l.LoadCorrespondence(ctx); err != nil {
		return nil, err
	}
	if b.Geometry, err = l.LoadGeometry(ctx); err != nil {
		return nil, err
	}

	zap.L().Info("dataset bundle loaded",
		zap.String("component", "dataset"),
		zap.Int("ownership", b.Ownership.Len()),
		zap.Int("seifa", b.SEIFA.Len()),
		zap.Int("vacancy", b.Vacancy.Len()),
		zap.Int("medians", b.Medians.Len()),
		zap.Int("cash_rate", b.CashRates.Len()),
		zap.Int("correspondence", b.Correspondence.Len()),
		zap.Int("geometry", b.Geometry.Len()),
		zap.Int("warnings", len(b.Warnings())),
	)
	return b, nil
}

// Warnings returns the load warnings of every table in source order.
func (b *Bundle) Warnings() []model.Warning {
	var out []model.Warning
	out = append(out, b.Ownership.Warnings...)
	out = append(out, b.SEIFA.Warnings...)
	out = append(out, b.Vacancy.Warnings...)
	out = append(out, b.Medians.Warnings...)
	out = append(out, b.CashRates.Warnings...)
	out = append(out, b.Correspondence.Warnings...)
	out = append(out, b.Geometry.Warnings...)
	return out
}

// Summaries describes each table for coverage reporting.
func (b *Bundle) Summaries() []model.SourceSummary {
	return []model.SourceSummary{
		summarize(b.Ownership),
		summarize(b.SEIFA),
		summarize(b.Vacancy),
		summarize(b.Medians),
		summarize(b.CashRates),
		summarize(b.Correspondence),
		summarize(b.Geometry),
	}
}

func summarize[T any](t Table[T]) model.SourceSummary {
	return model.SourceSummary{
		Source:     t.Source,
		Path:       t.Path,
		UsedSample: t.UsedSample,
		Rows:       t.Len(),
		Warnings:   len(t.Warnings),
	}
}
