// Package diagnostic defines the analyzer's public output: structured,
// non-fatal findings accumulated during catalog building and resolution.
// Diagnostics are never returned as Go errors — see smf's own
// ValidationError for the shape this generalizes from a single
// first-error-wins value into an accumulated list.
package diagnostic

// Code is one of the seven stable diagnostic codes the analyzer emits.
type Code string

const (
	CodeTableNotFound    Code = "E0001"
	CodeColumnNotFound   Code = "E0002"
	CodeTypeMismatch     Code = "E0003"
	CodeInsertArity      Code = "E0005"
	CodeAmbiguousColumn  Code = "E0006"
	CodeJoinTypeMismatch Code = "E0007"
	CodeParseError       Code = "E1000"
)

// Severity classifies a Diagnostic as blocking or informational.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Location pinpoints a Diagnostic in source text. A nil *Location means the
// analyzer could not attribute a position (e.g. a whole-statement issue).
type Location struct {
	Line   int
	Column int
	Length int
}

// Diagnostic is a single analyzer finding.
type Diagnostic struct {
	Code     Code
	Severity Severity
	Message  string
	Location *Location
	Hint     *string
}

// New constructs an error-severity Diagnostic.
func New(code Code, message string, loc *Location) Diagnostic {
	return Diagnostic{Code: code, Severity: SeverityError, Message: message, Location: loc}
}

// NewWarning constructs a warning-severity Diagnostic.
func NewWarning(code Code, message string, loc *Location) Diagnostic {
	return Diagnostic{Code: code, Severity: SeverityWarning, Message: message, Location: loc}
}

// WithHint attaches a "Did you mean 'X'?" style hint and returns the
// receiver for chaining at the call site. A nil hint (no suggestion in
// range) is a no-op, so callers can chain Suggest's result directly.
func (d Diagnostic) WithHint(hint *string) Diagnostic {
	d.Hint = hint
	return d
}

// InternalErrorMessage is the fixed message used for the programmer-error tier
// (spec.md §7 tier 3): an internal invariant violation surfaced as a single
// E1000 diagnostic rather than a panic escaping the public API.
const InternalErrorMessage = "internal analyzer error"

// Internal constructs the tier-3 "internal analyzer error" diagnostic.
func Internal(detail string) Diagnostic {
	msg := InternalErrorMessage
	if detail != "" {
		msg = InternalErrorMessage + ": " + detail
	}
	return New(CodeParseError, msg, nil)
}

// Set is a caller-configured collection of disabled rule codes.
type Set map[Code]bool

// Disabled reports whether code has been suppressed by configuration.
func (s Set) Disabled(code Code) bool {
	if s == nil {
		return false
	}
	return s[code]
}

// Sink accumulates diagnostics for one analyzed document, honoring a
// disabled-rule set and an optional max_errors soft cap. Once the cap is
// reached Add drops every further diagnostic; internal/analyzer checks
// Full() between statements and resolves no further statement, while a
// statement already being resolved is walked to its end.
type Sink struct {
	disabled  Set
	maxErrors int // 0 means unbounded
	items     []Diagnostic
}

// NewSink constructs a Sink with the given disabled-rule set and optional
// max_errors bound (<=0 means unbounded).
func NewSink(disabled Set, maxErrors int) *Sink {
	return &Sink{disabled: disabled, maxErrors: maxErrors}
}

// Add appends d unless its code is disabled or the sink is already full.
// Returns true if d was appended.
func (s *Sink) Add(d Diagnostic) bool {
	if s.disabled.Disabled(d.Code) {
		return false
	}
	if s.Full() {
		return false
	}
	s.items = append(s.items, d)
	return true
}

// Full reports whether the configured max_errors bound has been reached.
func (s *Sink) Full() bool {
	return s.maxErrors > 0 && len(s.items) >= s.maxErrors
}

// Diagnostics returns the accumulated diagnostics in insertion order.
func (s *Sink) Diagnostics() []Diagnostic {
	return s.items
}
