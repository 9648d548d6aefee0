// Package httpserver exposes the analyzer over HTTP: the same
// catalog-then-resolve pipeline cmd/sqlaudit's lint command drives locally,
// reachable as a request/response cycle for callers that want to lint SQL
// without shelling out, grounded on the chi router wiring
// zoravur-postgres-spreadsheet-view's server/internal/api uses.
package httpserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"sqlaudit/internal/config"
)

// Server bundles the router with the configuration each /v1/analyze request
// is evaluated against.
type Server struct {
	router *chi.Mux
	cfg    config.Config
	logger *zap.Logger
}

// New builds a Server ready to be used as an http.Handler.
func New(cfg config.Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{cfg: cfg, logger: logger}
	s.router = chi.NewRouter()
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.Use(s.loggingMiddleware)
	s.router.Get("/healthz", s.handleHealthz)
	s.router.Route("/v1", func(r chi.Router) {
		r.Post("/analyze", s.handleAnalyze)
	})
}

// ServeHTTP makes Server an http.Handler, so it plugs directly into
// http.ListenAndServe.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)
		s.logger.Info("request handled",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.status),
			zap.Duration("duration", time.Since(start)),
		)
	})
}
