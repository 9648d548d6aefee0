package output

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sqlaudit/internal/diagnostic"
)

func sampleDiagnostics() []diagnostic.Diagnostic {
	hint := "did you mean 'name'?"
	return []diagnostic.Diagnostic{
		diagnostic.New(diagnostic.CodeColumnNotFound, "column \"nmae\" not found", &diagnostic.Location{Line: 3, Column: 8, Length: 4}).WithHint(&hint),
		diagnostic.NewWarning(diagnostic.CodeParseError, "deprecated syntax", nil),
	}
}

func TestHumanFormatter_EmptyDiagnosticsReportsNoIssues(t *testing.T) {
	f := humanFormatter{}
	out, err := f.Format("run-1", nil)
	require.NoError(t, err)
	assert.Equal(t, "No issues found.\n", out)
}

func TestHumanFormatter_RendersPositionCodeAndHint(t *testing.T) {
	f := humanFormatter{}
	out, err := f.Format("run-1", sampleDiagnostics())
	require.NoError(t, err)
	assert.Contains(t, out, "3:8: E0002 error: column \"nmae\" not found")
	assert.Contains(t, out, "hint: did you mean 'name'?")
	assert.Contains(t, out, "E1000 warning: deprecated syntax")
	assert.Contains(t, out, "1 error(s), 1 warning(s)")
}

func TestHumanFormatter_DiagnosticWithoutLocationOmitsPositionPrefix(t *testing.T) {
	f := humanFormatter{}
	out, err := f.Format("run-1", []diagnostic.Diagnostic{diagnostic.Internal("boom")})
	require.NoError(t, err)
	assert.Contains(t, out, "E1000 error: internal analyzer error: boom")
}
