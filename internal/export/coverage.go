package export

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"text/tabwriter"

	"github.com/sells-group/suburb-insights/internal/model"
)

var coverageColumns = []string{"source", "path", "sample", "rows", "warnings", "unjoined"}

// coverageRows returns one row per loaded source. Sources that only appear
// in the warning or unjoined lists are appended in name order.
func coverageRows(d model.Diagnostics) [][]string {
	unjoined := d.UnjoinedBySource()
	warnings := d.WarningsBySource()
	seen := make(map[string]bool, len(d.Sources))

	rows := make([][]string, 0, len(d.Sources))
	for _, s := range d.Sources {
		seen[s.Source] = true
		rows = append(rows, []string{
			s.Source,
			s.Path,
			strconv.FormatBool(s.UsedSample),
			strconv.Itoa(s.Rows),
			strconv.Itoa(max(s.Warnings, warnings[s.Source])),
			strconv.Itoa(unjoined[s.Source]),
		})
	}

	extra := make(map[string]int)
	for _, counts := range []map[string]int{unjoined, warnings} {
		for source := range counts {
			if !seen[source] {
				extra[source]++
			}
		}
	}
	for _, source := range model.SortedSources(extra) {
		rows = append(rows, []string{source, "", "false", "0", strconv.Itoa(warnings[source]), strconv.Itoa(unjoined[source])})
	}
	return rows
}

// WriteCoverage writes the per-source summary, then the load warnings and
// unjoined keys, at most maxDetail of each (0 lists all).
func WriteCoverage(out io.Writer, d model.Diagnostics, maxDetail int) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "SOURCE\tPATH\tSAMPLE\tROWS\tWARNINGS\tUNJOINED")
	_, _ = fmt.Fprintln(w, "------\t----\t------\t----\t--------\t--------")
	for _, row := range coverageRows(d) {
		path := row[1]
		if path == "" {
			path = "-"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", row[0], path, row[2], row[3], row[4], row[5])
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if len(d.Warnings) > 0 {
		_, _ = fmt.Fprintf(out, "\nWarnings (%d):\n", len(d.Warnings))
		for i, warn := range d.Warnings {
			if maxDetail > 0 && i == maxDetail {
				_, _ = fmt.Fprintf(out, "  ... %d more\n", len(d.Warnings)-maxDetail)
				break
			}
			if warn.Line > 0 {
				_, _ = fmt.Fprintf(out, "  %s line %d: %s\n", warn.Source, warn.Line, warn.Message)
			} else {
				_, _ = fmt.Fprintf(out, "  %s: %s\n", warn.Source, warn.Message)
			}
		}
	}

	if len(d.Unjoined) > 0 {
		unjoined := make([]model.Unjoined, len(d.Unjoined))
		copy(unjoined, d.Unjoined)
		sort.SliceStable(unjoined, func(i, j int) bool {
			if unjoined[i].Source != unjoined[j].Source {
				return unjoined[i].Source < unjoined[j].Source
			}
			return unjoined[i].RawKey < unjoined[j].RawKey
		})

		_, _ = fmt.Fprintf(out, "\nUnjoined keys (%d):\n", len(unjoined))
		for i, u := range unjoined {
			if maxDetail > 0 && i == maxDetail {
				_, _ = fmt.Fprintf(out, "  ... %d more\n", len(unjoined)-maxDetail)
				break
			}
			_, _ = fmt.Fprintf(out, "  %s %s %q: %s\n", u.Source, u.Dimension, u.RawKey, u.Reason)
		}
	}
	return nil
}
