// Package export renders a ranking run for a presentation layer: a terminal
// table, CSV, JSON, XLSX or GeoJSON.
package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/suburb-insights/internal/geo"
	"github.com/sells-group/suburb-insights/internal/model"
)

// Output formats.
const (
	FormatTable   = "table"
	FormatCSV     = "csv"
	FormatJSON    = "json"
	FormatXLSX    = "xlsx"
	FormatGeoJSON = "geojson"
)

// Formats lists the supported output formats.
func Formats() []string {
	return []string{FormatTable, FormatCSV, FormatJSON, FormatXLSX, FormatGeoJSON}
}

// ParseFormat validates a format name case-insensitively.
func ParseFormat(s string) (string, error) {
	f := strings.ToLower(strings.TrimSpace(s))
	for _, known := range Formats() {
		if f == known {
			return f, nil
		}
	}
	return "", eris.Errorf("export: unknown format %q (want one of %s)", s, strings.Join(Formats(), ", "))
}

// Write renders run to w in the given format.
func Write(w io.Writer, format string, run model.Run) error {
	switch format {
	case FormatTable:
		return WriteTable(w, run)
	case FormatCSV:
		return WriteCSV(w, run)
	case FormatJSON:
		return WriteJSON(w, run)
	case FormatXLSX:
		return WriteXLSX(w, run)
	case FormatGeoJSON:
		return WriteGeoJSON(w, run)
	default:
		return eris.Errorf("export: unknown format %q", format)
	}
}

// WriteFile renders run to path, or to stdout when path is empty.
func WriteFile(path, format string, run model.Run) error {
	if path == "" {
		return Write(os.Stdout, format, run)
	}
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "export: create %s", path)
	}
	if err := Write(f, format, run); err != nil {
		_ = f.Close()
		return err
	}
	return eris.Wrapf(f.Close(), "export: close %s", path)
}

// Columns returns the flat column layout shared by CSV and XLSX output.
func Columns() []string {
	cols := []string{"rank", "sa2_code", "sa2_name", "state", "score", "scaled", "ring"}
	for _, m := range model.AllMetrics() {
		cols = append(cols, string(m))
	}
	return append(cols, "sources")
}

// rankedRow flattens a ranked region into Columns order.
func rankedRow(r model.RankedRegion) []string {
	row := []string{
		strconv.Itoa(r.Rank),
		string(r.Region.Code),
		r.Region.Name,
		string(r.Region.State),
		formatFloat(r.Score),
		formatFloat(r.Scaled),
	}
	return append(row, metricCells(r.JoinedRegion)...)
}

// unrankedRow flattens an unranked region; rank and score cells are empty.
func unrankedRow(j model.JoinedRegion) []string {
	row := []string{"", string(j.Region.Code), j.Region.Name, string(j.Region.State), "", ""}
	return append(row, metricCells(j)...)
}

func metricCells(j model.JoinedRegion) []string {
	ring := ""
	if d, ok := j.Metrics.Get(model.MetricDistanceCBDKm); ok {
		ring = geo.Classify(d)
	}
	cells := []string{ring}
	for _, m := range model.AllMetrics() {
		if v, ok := j.Metrics.Get(m); ok {
			cells = append(cells, formatFloat(v))
		} else {
			cells = append(cells, "")
		}
	}
	return append(cells, strings.Join(j.Sources, ";"))
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// WriteCSV writes ranked regions in rank order followed by unranked regions.
func WriteCSV(w io.Writer, run model.Run) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(Columns()); err != nil {
		return eris.Wrap(err, "export: write csv header")
	}
	for _, r := range run.Result.Ranked {
		if err := cw.Write(rankedRow(r)); err != nil {
			return eris.Wrap(err, "export: write csv row")
		}
	}
	for _, j := range run.Result.Unranked {
		if err := cw.Write(unrankedRow(j)); err != nil {
			return eris.Wrap(err, "export: write csv row")
		}
	}

	cw.Flush()
	return eris.Wrap(cw.Error(), "export: flush csv")
}

// WriteJSON writes the whole run envelope as indented JSON.
func WriteJSON(w io.Writer, run model.Run) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return eris.Wrap(enc.Encode(run), "export: encode json")
}

// WriteGeoJSON writes ranked and unranked regions as a FeatureCollection.
// Each feature carries the run ID in its properties.
func WriteGeoJSON(w io.Writer, run model.Run) error {
	fc := geo.FeatureCollection(run.Result.Ranked, run.Result.Unranked)
	for _, f := range fc.Features {
		f.Properties["run_id"] = run.ID
	}
	data, err := json.Marshal(fc)
	if err != nil {
		return eris.Wrap(err, "export: encode geojson")
	}
	_, err = w.Write(append(data, '\n'))
	return eris.Wrap(err, "export: write geojson")
}
