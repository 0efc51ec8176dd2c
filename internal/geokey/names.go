package geokey

import (
	"sort"
	"strings"

	"github.com/sells-group/suburb-insights/internal/model"
)

// NameIndex resolves suburb names to SA2 codes. Whole SA2 names win over the
// parts of compound names ("Carlton North - Princes Hill" indexes both
// "CARLTON NORTH" and "PRINCES HILL" as parts). A name that maps to more than
// one SA2 is ambiguous and never guessed.
type NameIndex struct {
	full  map[string][]model.SA2Code
	parts map[string][]model.SA2Code
}

// NewNameIndex returns an empty index.
func NewNameIndex() *NameIndex {
	return &NameIndex{
		full:  make(map[string][]model.SA2Code),
		parts: make(map[string][]model.SA2Code),
	}
}

// Add indexes name for code. Adding the same pair twice is a no-op.
func (n *NameIndex) Add(code model.SA2Code, name string) {
	key := NormalizeName(name)
	if key == "" {
		return
	}
	n.full[key] = appendUnique(n.full[key], code)

	if !strings.Contains(key, " - ") {
		return
	}
	for _, part := range strings.Split(key, " - ") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n.parts[part] = appendUnique(n.parts[part], code)
	}
}

// Lookup resolves raw to a single SA2 code. The reason is one of
// ReasonUnknownName or ReasonAmbiguousName when resolution fails.
func (n *NameIndex) Lookup(raw string) (model.SA2Code, string) {
	if n == nil {
		return "", ReasonUnknownName
	}
	key := NormalizeName(raw)
	for _, idx := range []map[string][]model.SA2Code{n.full, n.parts} {
		codes := idx[key]
		switch len(codes) {
		case 0:
			continue
		case 1:
			return codes[0], ""
		default:
			return "", ReasonAmbiguousName
		}
	}
	return "", ReasonUnknownName
}

// Len returns the number of distinct full names indexed.
func (n *NameIndex) Len() int {
	if n == nil {
		return 0
	}
	return len(n.full)
}

func appendUnique(codes []model.SA2Code, code model.SA2Code) []model.SA2Code {
	for _, c := range codes {
		if c == code {
			return codes
		}
	}
	codes = append(codes, code)
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })
	return codes
}
