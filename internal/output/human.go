package output

import (
	"fmt"
	"strings"

	"sqlaudit/internal/diagnostic"
)

type humanFormatter struct{}

// Format renders diagnostics one per line: "line:col: CODE severity: message".
// A diagnostic with no Location is printed without a position prefix.
func (humanFormatter) Format(runID string, diagnostics []diagnostic.Diagnostic) (string, error) {
	if len(diagnostics) == 0 {
		return "No issues found.\n", nil
	}

	var sb strings.Builder
	for _, d := range diagnostics {
		if d.Location != nil {
			fmt.Fprintf(&sb, "%d:%d: %s %s: %s\n", d.Location.Line, d.Location.Column, d.Code, d.Severity, d.Message)
		} else {
			fmt.Fprintf(&sb, "%s %s: %s\n", d.Code, d.Severity, d.Message)
		}
		if d.Hint != nil {
			fmt.Fprintf(&sb, "  hint: %s\n", *d.Hint)
		}
	}

	errors, warnings := countBySeverity(diagnostics)
	fmt.Fprintf(&sb, "\n%d error(s), %d warning(s)\n", errors, warnings)
	return sb.String(), nil
}

func countBySeverity(diagnostics []diagnostic.Diagnostic) (errors, warnings int) {
	for _, d := range diagnostics {
		if d.Severity == diagnostic.SeverityError {
			errors++
		} else {
			warnings++
		}
	}
	return
}
