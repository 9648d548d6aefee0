package httpserver

import (
	"errors"
	"net/http"

	"github.com/go-chi/render"

	"sqlaudit/internal/analyzer"
	"sqlaudit/internal/config"
	"sqlaudit/internal/diagnostic"
)

// analyzeRequest is the body of POST /v1/analyze: a schema plus the queries
// to check against it.
type analyzeRequest struct {
	Dialect string   `json:"dialect"`
	DDL     string   `json:"ddl"`
	Queries []string `json:"queries"`
}

func (req *analyzeRequest) Bind(r *http.Request) error {
	if req.DDL == "" && len(req.Queries) == 0 {
		return errors.New("ddl or at least one query is required")
	}
	return nil
}

type diagnosticResponse struct {
	Code     string  `json:"code"`
	Severity string  `json:"severity"`
	Message  string  `json:"message"`
	Line     int     `json:"line,omitempty"`
	Column   int     `json:"column,omitempty"`
	Hint     *string `json:"hint,omitempty"`
}

type analyzeResponse struct {
	RunID       string               `json:"runId"`
	Diagnostics []diagnosticResponse `json:"diagnostics"`
}

func toDiagnosticResponse(d diagnostic.Diagnostic) diagnosticResponse {
	resp := diagnosticResponse{
		Code:     string(d.Code),
		Severity: string(d.Severity),
		Message:  d.Message,
		Hint:     d.Hint,
	}
	if d.Location != nil {
		resp.Line = d.Location.Line
		resp.Column = d.Location.Column
	}
	return resp
}

// handleAnalyze parses and resolves a DDL+queries document against a fresh
// in-memory catalog and reports every diagnostic the same run would produce
// from the command line.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := render.Bind(r, &req); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, map[string]string{"error": "ddl or at least one query is required"})
		return
	}

	source := req.DDL + "\n" + joinQueries(req.Queries)
	a := analyzer.New(analyzer.Options{
		DisabledRules: config.DisabledSet(s.cfg),
		MaxErrors:     s.cfg.MaxErrors,
		Logger:        s.logger,
	})
	result := a.AnalyzeSource(source)

	resp := analyzeResponse{RunID: result.RunID, Diagnostics: make([]diagnosticResponse, 0, len(result.Diagnostics))}
	for _, d := range result.Diagnostics {
		resp.Diagnostics = append(resp.Diagnostics, toDiagnosticResponse(d))
	}

	render.JSON(w, r, resp)
}

func joinQueries(queries []string) string {
	out := ""
	for _, q := range queries {
		out += q + ";\n"
	}
	return out
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]string{"status": "ok"})
}
