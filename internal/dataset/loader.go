// Package dataset loads the raw input tables (ownership, SEIFA, vacancy,
// medians, cash rate, correspondence, boundaries, stamp duty) into typed
// records. Loads are independent and synchronous; every file handle is
// opened and closed within its load call.
package dataset

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/suburb-insights/internal/config"
	"github.com/sells-group/suburb-insights/internal/fetcher"
	"github.com/sells-group/suburb-insights/internal/model"
)

// Source names used in tables, warnings and diagnostics.
const (
	SourceOwnership      = "ownership"
	SourceSEIFA          = "seifa"
	SourceVacancy        = "vacancy"
	SourceMedians        = "medians"
	SourceCashRate       = "cash_rate"
	SourceCorrespondence = "correspondence"
	SourceGeometry       = "geometry"
	SourceStampDuty      = "stamp_duty"
)

// headerScanRows bounds how far into a file the header row is searched for.
// Agency spreadsheets often carry title and notes rows above the header.
const headerScanRows = 15

// Table is the result of loading one source.
type Table[T any] struct {
	Source     string          `json:"source"`
	Path       string          `json:"path,omitempty"`
	UsedSample bool            `json:"used_sample"`
	Rows       []T             `json:"-"`
	Warnings   []model.Warning `json:"warnings,omitempty"`
}

// Len returns the number of loaded rows.
func (t Table[T]) Len() int { return len(t.Rows) }

func (t *Table[T]) warn(line int, format string, args ...any) {
	t.Warnings = append(t.Warnings, model.Warning{Source: t.Source, Line: line, Message: fmt.Sprintf(format, args...)})
}

// Loader reads sources described by a DataConfig.
type Loader struct {
	cfg    config.DataConfig
	reader fetcher.Reader
}

// NewLoader creates a Loader reading from local disk.
func NewLoader(cfg config.DataConfig) *Loader {
	return &Loader{cfg: cfg, reader: fetcher.FileReader{}}
}

// WithReader returns a copy of the loader that reads rows through r.
func (l *Loader) WithReader(r fetcher.Reader) *Loader {
	cp := *l
	cp.reader = r
	return &cp
}

// resolved is the outcome of the full/sample fallback.
type resolved struct {
	path       string
	usedSample bool
}

// resolve picks the file to load: the full file when it exists and is
// non-empty, else the sample. An existing but empty file is still used (it
// yields an empty table). Neither existing is a MissingFileError unless the
// source is optional, in which case the zero resolved is returned.
func (l *Loader) resolve(source, dir string, sf config.SourceFile, schema []string, optional bool) (resolved, error) {
	full := l.abs(dir, sf.Path)
	sample := l.abs(dir, sf.Sample)

	fullSize, fullOK := statFile(full)
	sampleSize, sampleOK := statFile(sample)

	switch {
	case fullOK && fullSize > 0:
		return resolved{path: full}, nil
	case sampleOK && sampleSize > 0:
		return resolved{path: sample, usedSample: true}, nil
	case fullOK:
		return resolved{path: full}, nil
	case sampleOK:
		return resolved{path: sample, usedSample: true}, nil
	case optional:
		return resolved{}, nil
	default:
		return resolved{}, &MissingFileError{Source: source, Path: full, Sample: sample, Schema: schema}
	}
}

func (l *Loader) abs(dir, p string) string {
	if p == "" {
		return ""
	}
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}

func statFile(p string) (int64, bool) {
	if p == "" {
		return 0, false
	}
	info, err := os.Stat(p)
	if err != nil || info.IsDir() {
		return 0, false
	}
	return info.Size(), true
}

// rowParser converts one data row into a record.
type rowParser[T any] func(row fetcher.Row) (T, error)

// binder inspects a header and returns a parser for the rows beneath it, or
// an error naming the first required column it could not find.
type binder[T any] func(h header) (rowParser[T], error)

// loadTable runs the shared load sequence: resolve the file, read rows,
// locate the header, parse each row and collect warnings.
func loadTable[T any](ctx context.Context, l *Loader, source string, sf config.SourceFile, schema []string, optional bool, bind binder[T]) (Table[T], error) {
	tbl := Table[T]{Source: source}
	log := zap.L().With(zap.String("component", "dataset"), zap.String("source", source))

	res, err := l.resolve(source, l.cfg.Dir, sf, schema, optional)
	if err != nil {
		return tbl, err
	}
	if res.path == "" {
		tbl.warn(0, "optional source not found, skipped")
		log.Info("optional source not found")
		return tbl, nil
	}
	tbl.Path = res.path
	tbl.UsedSample = res.usedSample

	rows, err := l.reader.ReadRows(ctx, res.path, fetcher.ReadOptions{
		Encoding: sf.Encoding,
		Sheet:    sf.Sheet,
		Member:   sf.Member,
		TempDir:  l.cfg.TempDir,
	})
	if err != nil {
		return tbl, eris.Wrapf(err, "dataset: read %s", source)
	}
	if len(rows) == 0 {
		log.Info("source is empty", zap.String("path", res.path))
		return tbl, nil
	}

	parse, start, bindErr := locateHeader(rows, bind)
	if bindErr != nil {
		tbl.warn(rows[0].Line, "%v", bindErr)
		log.Warn("source unusable", zap.String("path", res.path), zap.Error(bindErr))
		return tbl, nil
	}

	for _, row := range rows[start:] {
		if row.Err == nil && blankRow(row.Fields) {
			continue
		}
		err := row.Err
		var rec T
		if err == nil {
			rec, err = parse(row)
		}
		if err != nil {
			mr := &MalformedRowError{Source: source, Line: row.Line, Reason: err.Error()}
			tbl.Warnings = append(tbl.Warnings, mr.Warning())
			log.Debug("skipping malformed row", zap.Int("line", row.Line), zap.String("reason", mr.Reason))
			continue
		}
		tbl.Rows = append(tbl.Rows, rec)
	}

	if len(tbl.Warnings) > 0 {
		log.Warn("skipped malformed rows", zap.Int("count", len(tbl.Warnings)))
	}
	log.Debug("source loaded",
		zap.String("path", res.path),
		zap.Bool("sample", res.usedSample),
		zap.Int("rows", len(tbl.Rows)),
	)
	return tbl, nil
}

// locateHeader binds the first row that satisfies the binder, scanning up to
// headerScanRows rows. It returns the parser and the index of the first data
// row. When no row binds, the error from the first row is returned.
func locateHeader[T any](rows []fetcher.Row, bind binder[T]) (rowParser[T], int, error) {
	var firstErr error
	for i := 0; i < len(rows) && i < headerScanRows; i++ {
		if rows[i].Err != nil {
			continue
		}
		parse, err := bind(newHeader(rows[i].Fields))
		if err == nil {
			return parse, i + 1, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return nil, 0, firstErr
}

func blankRow(fields []string) bool {
	for _, f := range fields {
		if f != "" {
			return false
		}
	}
	return true
}

// missingColumn is the binder error for an absent required column.
func missingColumn(name string, aliases []string) error {
	return eris.Errorf("required column %q not found (accepted: %v)", name, aliases)
}
