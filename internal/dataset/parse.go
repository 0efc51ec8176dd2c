package dataset

import (
	"math"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// placeholders are cell values statistical agencies use for "no value".
var placeholders = map[string]bool{
	"": true, "-": true, "--": true, "..": true, "...": true, "*": true, "**": true, "#": true,
	"na": true, "n/a": true, "np": true, "nan": true, "null": true, "none": true,
}

// parseNumber parses a numeric cell. Thousands separators, currency signs and
// a percent suffix are ignored. Empty and placeholder cells are absent (nil,
// nil), which is distinct from an explicit zero.
func parseNumber(s string) (*float64, error) {
	s = strings.TrimSpace(s)
	if placeholders[strings.ToLower(s)] {
		return nil, nil
	}

	clean := strings.NewReplacer(",", "", "$", "", "%", "", " ", "", "\u00a0", "").Replace(s)
	neg := false
	if strings.HasPrefix(clean, "(") && strings.HasSuffix(clean, ")") {
		neg = true
		clean = strings.TrimSuffix(strings.TrimPrefix(clean, "("), ")")
	}

	v, err := strconv.ParseFloat(clean, 64)
	if err != nil {
		return nil, eris.Errorf("not a number: %q", s)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, eris.Errorf("not a finite number: %q", s)
	}
	if neg {
		v = -v
	}
	return &v, nil
}

// dateLayouts are tried in order. Day-first layouts precede month-first
// because Australian sources write dates day-first.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02T15:04:05Z07:00",
	"02/01/2006",
	"2/1/2006",
	"02-Jan-2006",
	"2-Jan-2006",
	"02 Jan 2006",
	"Jan-2006",
	"Jan 2006",
	"January 2006",
	"2006-01",
	"01/2006",
}

// parseDate parses a date cell in any of the supported layouts.
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, eris.New("empty date")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	if q, ok := parseQuarter(s); ok {
		return q, nil
	}
	return time.Time{}, eris.Errorf("unrecognised date %q", s)
}

// parseQuarter accepts quarter labels such as "2024Q1" and "Q1 2024",
// returning the first day of the quarter's last month.
func parseQuarter(s string) (time.Time, bool) {
	u := strings.ToUpper(strings.ReplaceAll(s, " ", ""))
	var year, q int
	switch {
	case len(u) == 6 && u[4] == 'Q':
		y, err1 := strconv.Atoi(u[:4])
		n, err2 := strconv.Atoi(u[5:])
		if err1 != nil || err2 != nil {
			return time.Time{}, false
		}
		year, q = y, n
	case len(u) == 6 && u[0] == 'Q':
		n, err1 := strconv.Atoi(u[1:2])
		y, err2 := strconv.Atoi(u[2:])
		if err1 != nil || err2 != nil {
			return time.Time{}, false
		}
		year, q = y, n
	default:
		return time.Time{}, false
	}
	if q < 1 || q > 4 {
		return time.Time{}, false
	}
	return time.Date(year, time.Month(q*3), 1, 0, 0, 0, 0, time.UTC), true
}

// normalizeCol canonicalizes a header cell for alias matching:
// "SA2 Code 2021" and "sa2_code_2021" both become "sa2_code_2021", and
// "Ownership %" becomes "ownership_pct".
func normalizeCol(s string) string {
	s = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(s, "\ufeff")))
	s = strings.NewReplacer(" ", "_", "-", "_", ".", "_", "(", "", ")", "", "%", "pct").Replace(s)
	for strings.Contains(s, "__") {
		s = strings.ReplaceAll(s, "__", "_")
	}
	return strings.Trim(s, "_")
}

// header maps normalized column names to indices.
type header struct {
	names []string
}

func newHeader(fields []string) header {
	h := header{names: make([]string, len(fields))}
	for i, f := range fields {
		h.names[i] = normalizeCol(f)
	}
	return h
}

// find returns the index of the first column matching any alias, trying
// aliases in order. Aliases may contain '*' wildcards. Returns -1 if none
// match.
func (h header) find(aliases ...string) int {
	for _, alias := range aliases {
		pattern := normalizeCol(alias)
		for i, name := range h.names {
			if name == "" {
				continue
			}
			if strings.Contains(pattern, "*") {
				if ok, _ := path.Match(pattern, name); ok {
					return i
				}
				continue
			}
			if name == pattern {
				return i
			}
		}
	}
	return -1
}

// cell returns fields[idx] or "" when idx is out of range or unset.
func cell(fields []string, idx int) string {
	if idx < 0 || idx >= len(fields) {
		return ""
	}
	return strings.TrimSpace(fields[idx])
}
