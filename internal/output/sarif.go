package output

import (
	"encoding/json"

	"sqlaudit/internal/diagnostic"
)

// sarifFormatter renders a sarif-2.1.0 subset: one run per invocation, one
// result per diagnostic, ruleId set to the diagnostic code. The full SARIF
// schema covers far more (fixes, taxonomies, artifact graphs) than a lint
// run needs, so only the fields a SARIF-consuming viewer (e.g. GitHub code
// scanning) actually reads are populated.
type sarifFormatter struct{}

type sarifLog struct {
	Schema  string     `json:"$schema"`
	Version string     `json:"version"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool       sarifTool     `json:"tool"`
	Results    []sarifResult `json:"results"`
	Properties sarifRunProps `json:"properties"`
}

type sarifRunProps struct {
	RunID string `json:"runId"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name  string      `json:"name"`
	Rules []sarifRule `json:"rules"`
}

type sarifRule struct {
	ID string `json:"id"`
}

type sarifResult struct {
	RuleID    string          `json:"ruleId"`
	Level     string          `json:"level"`
	Message   sarifMessage    `json:"message"`
	Locations []sarifLocation `json:"locations,omitempty"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifLocation struct {
	PhysicalLocation sarifPhysicalLocation `json:"physicalLocation"`
}

type sarifPhysicalLocation struct {
	Region sarifRegion `json:"region"`
}

type sarifRegion struct {
	StartLine   int `json:"startLine"`
	StartColumn int `json:"startColumn"`
}

func (sarifFormatter) Format(runID string, diagnostics []diagnostic.Diagnostic) (string, error) {
	log := sarifLog{
		Schema:  "https://raw.githubusercontent.com/oasis-tcs/sarif-spec/main/Schemata/sarif-schema-2.1.0.json",
		Version: "2.1.0",
		Runs: []sarifRun{
			{
				Tool:       sarifTool{Driver: sarifDriver{Name: "sqlaudit", Rules: sarifRules(diagnostics)}},
				Results:    make([]sarifResult, 0, len(diagnostics)),
				Properties: sarifRunProps{RunID: runID},
			},
		},
	}

	run := &log.Runs[0]
	for _, d := range diagnostics {
		run.Results = append(run.Results, sarifResultFor(d))
	}

	b, err := json.MarshalIndent(log, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b) + "\n", nil
}

func sarifResultFor(d diagnostic.Diagnostic) sarifResult {
	r := sarifResult{
		RuleID:  string(d.Code),
		Level:   sarifLevel(d.Severity),
		Message: sarifMessage{Text: d.Message},
	}
	if d.Location != nil {
		r.Locations = []sarifLocation{{
			PhysicalLocation: sarifPhysicalLocation{
				Region: sarifRegion{StartLine: d.Location.Line, StartColumn: d.Location.Column},
			},
		}}
	}
	return r
}

func sarifLevel(s diagnostic.Severity) string {
	if s == diagnostic.SeverityWarning {
		return "warning"
	}
	return "error"
}

func sarifRules(diagnostics []diagnostic.Diagnostic) []sarifRule {
	seen := make(map[string]bool)
	var rules []sarifRule
	for _, d := range diagnostics {
		code := string(d.Code)
		if seen[code] {
			continue
		}
		seen[code] = true
		rules = append(rules, sarifRule{ID: code})
	}
	return rules
}
