package output

import (
	"encoding/json"

	"sqlaudit/internal/diagnostic"
)

type jsonFormatter struct{}

type diagnosticSummary struct {
	Errors   int `json:"errors"`
	Warnings int `json:"warnings"`
}

type diagnosticWire struct {
	Code     string  `json:"code"`
	Severity string  `json:"severity"`
	Message  string  `json:"message"`
	Line     int     `json:"line,omitempty"`
	Column   int     `json:"column,omitempty"`
	Length   int     `json:"length,omitempty"`
	Hint     *string `json:"hint,omitempty"`
}

type diagnosticsPayload struct {
	Format      string            `json:"format"`
	RunID       string            `json:"runId"`
	Summary     diagnosticSummary `json:"summary"`
	Diagnostics []diagnosticWire  `json:"diagnostics"`
}

type Payload interface {
	diagnosticsPayload
}

func (jsonFormatter) Format(runID string, diagnostics []diagnostic.Diagnostic) (string, error) {
	payload := diagnosticsPayload{
		Format:      string(FormatJSON),
		RunID:       runID,
		Diagnostics: make([]diagnosticWire, 0, len(diagnostics)),
	}
	for _, d := range diagnostics {
		if d.Severity == diagnostic.SeverityError {
			payload.Summary.Errors++
		} else {
			payload.Summary.Warnings++
		}
		payload.Diagnostics = append(payload.Diagnostics, toWire(d))
	}
	return marshalJSON(payload)
}

func toWire(d diagnostic.Diagnostic) diagnosticWire {
	w := diagnosticWire{
		Code:     string(d.Code),
		Severity: string(d.Severity),
		Message:  d.Message,
		Hint:     d.Hint,
	}
	if d.Location != nil {
		w.Line = d.Location.Line
		w.Column = d.Location.Column
		w.Length = d.Location.Length
	}
	return w
}

func marshalJSON[T Payload](payload T) (string, error) {
	b, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b) + "\n", nil
}
