// Package geokey canonicalizes geographic keys (SA2 codes, postcodes, suburb
// names) and bridges postcode-keyed sources onto SA2 regions.
package geokey

import (
	"regexp"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/suburb-insights/internal/model"
)

var (
	digitsOnly    = regexp.MustCompile(`^[0-9]+$`)
	floatSuffix   = regexp.MustCompile(`\.0+$`)
	poaPrefix     = regexp.MustCompile(`(?i)^POA\s*`)
	bracketSuffix = regexp.MustCompile(`\s*\([^)]*\)\s*$`)
	nonNameChars  = regexp.MustCompile(`[^A-Z0-9' -]+`)
	multiSpace    = regexp.MustCompile(`\s{2,}`)
)

// NormalizeSA2 canonicalizes a raw SA2 code. Spreadsheet exports often carry
// codes as floats ("201011001.0"); those are accepted. The result is always
// nine digits with a non-zero state digit.
func NormalizeSA2(raw string) (model.SA2Code, error) {
	s := strings.TrimSpace(raw)
	s = floatSuffix.ReplaceAllString(s, "")
	if !digitsOnly.MatchString(s) {
		return "", eris.Errorf("geokey: sa2 code %q is not numeric", raw)
	}
	if len(s) != 9 {
		return "", eris.Errorf("geokey: sa2 code %q must have 9 digits, got %d", raw, len(s))
	}
	if s[0] == '0' {
		return "", eris.Errorf("geokey: sa2 code %q has no state digit", raw)
	}
	return model.SA2Code(s), nil
}

// NormalizePostcode canonicalizes a raw postcode. The ABS "POA" prefix is
// stripped and 3-digit NT/ACT postcodes whose leading zero was lost are padded.
func NormalizePostcode(raw string) (model.Postcode, error) {
	s := strings.TrimSpace(raw)
	s = poaPrefix.ReplaceAllString(s, "")
	s = floatSuffix.ReplaceAllString(s, "")
	if !digitsOnly.MatchString(s) {
		return "", eris.Errorf("geokey: postcode %q is not numeric", raw)
	}
	switch len(s) {
	case 4:
	case 3:
		s = "0" + s
	default:
		return "", eris.Errorf("geokey: postcode %q must have 4 digits, got %d", raw, len(s))
	}
	return model.Postcode(s), nil
}

// NormalizeName canonicalizes a suburb or SA2 display name for matching:
// upper case, bracketed state suffixes removed ("Carlton (Vic.)"), "&" spelled
// out, punctuation dropped and whitespace collapsed.
func NormalizeName(raw string) string {
	s := strings.ToUpper(strings.TrimSpace(raw))
	s = bracketSuffix.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "&", " AND ")
	s = nonNameChars.ReplaceAllString(s, " ")
	s = multiSpace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// Detect infers the dimension of a raw key from its shape: nine digits is an
// SA2 code, three or four digits (optionally POA-prefixed) is a postcode,
// anything else is a name.
func Detect(raw string) model.Dimension {
	if _, err := NormalizeSA2(raw); err == nil {
		return model.DimensionSA2
	}
	if _, err := NormalizePostcode(raw); err == nil {
		return model.DimensionPostcode
	}
	return model.DimensionName
}
