// Package fetcher reads tabular source files (CSV, XLSX, ZIP-wrapped either)
// from local disk into positioned rows.
package fetcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// Row is one record of a tabular file. Line is 1-based and refers to the
// physical line (CSV) or sheet row (XLSX) the record starts on.
type Row struct {
	Line   int
	Fields []string
	Err    error // set when the record could not be parsed; Fields is nil
}

// ReadOptions configures ReadRows.
type ReadOptions struct {
	Encoding  string // charset label for text files; default utf-8
	Delimiter rune   // 0 sniffs from the first line
	Sheet     string // XLSX sheet name; default first sheet
	Member    string // ZIP member to read; default first tabular member
	TempDir   string // extraction directory for ZIP sources; default os.TempDir()
}

// Reader loads every row of a file.
type Reader interface {
	ReadRows(ctx context.Context, path string, opts ReadOptions) ([]Row, error)
}

// FileReader is the on-disk Reader.
type FileReader struct{}

// ReadRows reads path by extension. ZIP archives are unpacked to a temporary
// directory and the selected member read in turn.
func (FileReader) ReadRows(ctx context.Context, path string, opts ReadOptions) ([]Row, error) {
	return ReadRows(ctx, path, opts)
}

// ReadRows is FileReader.ReadRows without the receiver.
func ReadRows(ctx context.Context, path string, opts ReadOptions) ([]Row, error) {
	switch Kind(path) {
	case KindXLSX:
		return ReadXLSX(path, XLSXOptions{SheetName: opts.Sheet})
	case KindZIP:
		return readZIPRows(ctx, path, opts)
	default:
		f, err := os.Open(path)
		if err != nil {
			return nil, eris.Wrapf(err, "fetcher: open %s", path)
		}
		defer f.Close() //nolint:errcheck

		r, err := DecodeReader(f, opts.Encoding)
		if err != nil {
			return nil, err
		}
		rowCh, errCh := StreamCSV(ctx, r, CSVOptions{
			Delimiter:  opts.Delimiter,
			LazyQuotes: true,
			TrimSpace:  true,
		})
		var rows []Row
		for row := range rowCh {
			rows = append(rows, row)
		}
		if err := <-errCh; err != nil {
			return rows, eris.Wrapf(err, "fetcher: read %s", path)
		}
		return rows, nil
	}
}

// FileKind classifies a source path by extension.
type FileKind string

const (
	KindCSV     FileKind = "csv"
	KindXLSX    FileKind = "xlsx"
	KindZIP     FileKind = "zip"
	KindShape   FileKind = "shp"
	KindGeoJSON FileKind = "geojson"
)

// Kind returns the FileKind for path. Anything unrecognised is read as
// delimited text.
func Kind(path string) FileKind {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return KindXLSX
	case ".zip":
		return KindZIP
	case ".shp":
		return KindShape
	case ".geojson", ".json":
		return KindGeoJSON
	default:
		return KindCSV
	}
}

func readZIPRows(ctx context.Context, path string, opts ReadOptions) ([]Row, error) {
	dir, err := os.MkdirTemp(opts.TempDir, "suburb-zip-*")
	if err != nil {
		return nil, eris.Wrap(err, "fetcher: create extraction dir")
	}
	defer os.RemoveAll(dir) //nolint:errcheck

	var member string
	if opts.Member != "" {
		member, err = ExtractZIPFile(path, opts.Member, dir)
	} else {
		member, err = ExtractZIPMatching(path, dir, ".csv", ".tsv", ".txt", ".xlsx")
	}
	if err != nil {
		return nil, err
	}
	if Kind(member) == KindZIP {
		return nil, eris.Errorf("fetcher: nested archive %q in %s", filepath.Base(member), path)
	}

	inner := opts
	inner.Member = ""
	return ReadRows(ctx, member, inner)
}
