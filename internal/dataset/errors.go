package dataset

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sells-group/suburb-insights/internal/model"
)

// MissingFileError reports a required source for which neither the full
// file nor its sample exists. It aborts the run.
type MissingFileError struct {
	Source string
	Path   string
	Sample string
	Schema []string
}

func (e *MissingFileError) Error() string {
	msg := fmt.Sprintf("dataset: %s source not found at %s", e.Source, e.Path)
	if e.Sample != "" {
		msg += fmt.Sprintf(" (sample %s also missing)", e.Sample)
	}
	if len(e.Schema) > 0 {
		msg += fmt.Sprintf("; expected columns: %s", strings.Join(e.Schema, ", "))
	}
	return msg
}

// IsMissingFile returns true if err (or any error in its chain) is a
// MissingFileError.
func IsMissingFile(err error) bool {
	var mf *MissingFileError
	return errors.As(err, &mf)
}

// MalformedRowError describes a row that was skipped during a load. Loads
// never return it; it is recorded as a table warning.
type MalformedRowError struct {
	Source string
	Line   int
	Reason string
}

func (e *MalformedRowError) Error() string {
	return fmt.Sprintf("dataset: %s line %d: %s", e.Source, e.Line, e.Reason)
}

// Warning converts the error into its reporting form.
func (e *MalformedRowError) Warning() model.Warning {
	return model.Warning{Source: e.Source, Line: e.Line, Message: e.Reason}
}
