package geokey

import (
	"errors"
	"fmt"

	"github.com/sells-group/suburb-insights/internal/model"
)

// UnjoinableKeyError reports a source key that cannot be resolved to any
// region: it is malformed, missing from the correspondence table, or names an
// unknown or ambiguous suburb. It is recorded as a diagnostic, never fatal.
type UnjoinableKeyError struct {
	Source    string
	RawKey    string
	Dimension model.Dimension
	Reason    string
	Err       error
}

func (e *UnjoinableKeyError) Error() string {
	return fmt.Sprintf("geokey: %s key %q from %s is unjoinable: %s", e.Dimension, e.RawKey, e.Source, e.Reason)
}

func (e *UnjoinableKeyError) Unwrap() error {
	return e.Err
}

// Diagnostic converts the error into its reporting form.
func (e *UnjoinableKeyError) Diagnostic() model.Unjoined {
	return model.Unjoined{
		Source:    e.Source,
		RawKey:    e.RawKey,
		Dimension: e.Dimension,
		Reason:    e.Reason,
	}
}

// IsUnjoinable returns true if err (or any error in its chain) is an
// UnjoinableKeyError.
func IsUnjoinable(err error) bool {
	var ue *UnjoinableKeyError
	return errors.As(err, &ue)
}

const (
	ReasonInvalidKey       = "invalid key"
	ReasonNoCorrespondence = "no correspondence entry"
	ReasonNoTable          = "correspondence table not loaded"
	ReasonUnknownName      = "unknown region name"
	ReasonAmbiguousName    = "ambiguous region name"
)
