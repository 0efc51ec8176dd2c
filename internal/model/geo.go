package model

import (
	"strings"
)

// SA2Code is a canonical 9-digit Statistical Area Level 2 code.
type SA2Code string

// Postcode is a canonical 4-digit Australian postcode.
type Postcode string

// Dimension identifies the key system a raw source key belongs to.
type Dimension string

const (
	DimensionSA2      Dimension = "sa2"
	DimensionPostcode Dimension = "postcode"
	DimensionName     Dimension = "name"
	DimensionAuto     Dimension = "auto" // inferred from the key's shape
)

// State is an Australian state or territory abbreviation.
type State string

const (
	StateNSW State = "NSW"
	StateVIC State = "VIC"
	StateQLD State = "QLD"
	StateSA  State = "SA"
	StateWA  State = "WA"
	StateTAS State = "TAS"
	StateNT  State = "NT"
	StateACT State = "ACT"
	StateOT  State = "OT" // other territories
)

// sa2StateDigits maps the leading digit of an SA2 code to its state.
var sa2StateDigits = map[byte]State{
	'1': StateNSW,
	'2': StateVIC,
	'3': StateQLD,
	'4': StateSA,
	'5': StateWA,
	'6': StateTAS,
	'7': StateNT,
	'8': StateACT,
	'9': StateOT,
}

// AllStates returns every state in ABS state-code order.
func AllStates() []State {
	return []State{StateNSW, StateVIC, StateQLD, StateSA, StateWA, StateTAS, StateNT, StateACT, StateOT}
}

// StateForSA2 returns the state encoded in the first digit of an SA2 code,
// or "" when the code is empty or the digit is unknown.
func StateForSA2(code SA2Code) State {
	if code == "" {
		return ""
	}
	return sa2StateDigits[code[0]]
}

// ParseState parses a state abbreviation case-insensitively.
func ParseState(s string) (State, bool) {
	st := State(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range AllStates() {
		if st == known {
			return st, true
		}
	}
	return "", false
}
