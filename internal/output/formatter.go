// Package output renders a diagnostic set in the format a caller asked for.
package output

import (
	"fmt"
	"strings"

	"sqlaudit/internal/diagnostic"
)

// Format is an enum type representing the available output formats.
type Format string

const (
	FormatHuman Format = "human"
	FormatJSON  Format = "json"
	FormatSARIF Format = "sarif"
)

// Formatter renders a run's diagnostics, stamped with the run's ID, as a string.
type Formatter interface {
	Format(runID string, diagnostics []diagnostic.Diagnostic) (string, error)
}

// NewFormatter creates a new Formatter instance based on the given name.
// If no format is specified, defaults to human format.
func NewFormatter(name string) (Formatter, error) {
	format := Format(strings.ToLower(strings.TrimSpace(name)))
	switch format {
	case "", FormatHuman:
		return humanFormatter{}, nil
	case FormatJSON:
		return jsonFormatter{}, nil
	case FormatSARIF:
		return sarifFormatter{}, nil
	default:
		return nil, fmt.Errorf("unsupported format: %s; use 'human', 'json', or 'sarif'", name)
	}
}
