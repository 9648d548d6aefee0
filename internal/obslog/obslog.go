// Package obslog is a thin set of structured-logging helpers over zap, the
// way zoravur-postgres-spreadsheet-view's internal/logutil wraps zap for
// its own handlers. The teacher itself never logs through a library, so
// this package is grounded on that sibling example instead: every call
// here is a small free function taking a *zap.Logger and returning nothing,
// rather than a package-global logger singleton.
package obslog

import "go.uber.org/zap"

// Init builds the base logger for a CLI invocation: human-readable console
// output at Info level, or zap's development console output at Debug level
// when verbose is set.
func Init(verbose bool) (*zap.Logger, error) {
	if verbose {
		cfg := zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
		return cfg.Build()
	}
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig.TimeKey = ""
	return cfg.Build()
}

// CatalogBuilt logs the shape of a catalog built from one document's DDL.
func CatalogBuilt(log *zap.Logger, tables, views, diagnostics int) {
	log.Debug("catalog built",
		zap.Int("tables", tables),
		zap.Int("views", views),
		zap.Int("ddl_diagnostics", diagnostics),
	)
}

// Analyzed logs the outcome of resolving every DML statement in a document.
func Analyzed(log *zap.Logger, statements, diagnostics int) {
	log.Info("analysis complete",
		zap.Int("statements", statements),
		zap.Int("diagnostics", diagnostics),
	)
}

// MaxErrorsReached logs that the configured soft cap halted a run early.
func MaxErrorsReached(log *zap.Logger, max int) {
	log.Warn("max_errors reached, halting further resolution", zap.Int("max_errors", max))
}

// SkippedStatement logs a statement the frontend could not parse or
// translate, before it is reported to the caller as an E1000 diagnostic.
func SkippedStatement(log *zap.Logger, reason string) {
	log.Warn("statement skipped", zap.String("reason", reason))
}
