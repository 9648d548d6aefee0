// Package analyzer wires the catalog builder, frontend, and resolver into
// a single entry point per invocation, the way the teacher's
// internal/apply.Applier wires a parser, a statement analyzer, and a
// connector behind one Options-configured struct. Analyzer additionally
// stamps every run with a UUID so logs and formatted output can be
// correlated across a multi-file invocation.
package analyzer

import (
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"sqlaudit/internal/catalog"
	"sqlaudit/internal/diagnostic"
	"sqlaudit/internal/frontend/mysql"
	"sqlaudit/internal/obslog"
	"sqlaudit/internal/resolver"
)

// Options configures one Analyzer invocation.
type Options struct {
	DisabledRules diagnostic.Set
	MaxErrors     int
	Logger        *zap.Logger
}

// Analyzer runs schema-then-query analysis over one logical unit of work
// (typically one file's worth of mixed DDL/DML source).
type Analyzer struct {
	opts     Options
	frontend *mysql.Frontend
	logger   *zap.Logger
}

// New constructs an Analyzer. A nil Logger falls back to zap's no-op
// logger so callers that don't care about observability pay nothing for it.
func New(opts Options) *Analyzer {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Analyzer{opts: opts, frontend: mysql.New(), logger: logger}
}

// Result is the outcome of analyzing one source document.
type Result struct {
	RunID       string
	Catalog     *catalog.Catalog
	Diagnostics []diagnostic.Diagnostic
}

// AnalyzeSource parses source as a single mixed DDL/DML document, builds a
// catalog from its DDL statements in order, then resolves every DML
// statement against that catalog, accumulating diagnostics throughout.
// Tier-3 programmer errors (spec.md §7) are recovered here so a defect in
// one document never takes down a multi-file run.
func (a *Analyzer) AnalyzeSource(source string) (res Result) {
	res.RunID = uuid.NewString()
	log := a.logger.With(zap.String("run_id", res.RunID))

	defer func() {
		if rec := recover(); rec != nil {
			log.Error("internal analyzer error", zap.Any("panic", rec))
			res.Diagnostics = append(res.Diagnostics, diagnostic.Internal(fmt.Sprintf("%v", rec)))
		}
	}()

	sink := diagnostic.NewSink(a.opts.DisabledRules, a.opts.MaxErrors)

	ddlStmts, dmlStmts, parseErrs := a.frontend.ParseDocument(source)
	for _, pe := range parseErrs {
		log.Warn("statement skipped", zap.Error(pe.Err), zap.Int("offset", pe.Pos.Column))
		sink.Add(diagnostic.New(diagnostic.CodeParseError, pe.Error(),
			&diagnostic.Location{Line: pe.Pos.Line, Column: pe.Pos.Column}))
	}

	cat, catDiags := catalog.Build(ddlStmts)
	for _, d := range catDiags {
		sink.Add(d)
	}
	resolveViewColumns(cat, sink)
	obslog.CatalogBuilt(log, len(cat.Tables), len(cat.Views), len(catDiags))

	for _, stmt := range dmlStmts {
		if sink.Full() {
			obslog.MaxErrorsReached(log, a.opts.MaxErrors)
			break
		}
		rv := resolver.New(cat, sink)
		rv.Resolve(stmt)
	}

	obslog.Analyzed(log, len(dmlStmts), len(sink.Diagnostics()))
	res.Catalog = cat
	res.Diagnostics = sink.Diagnostics()
	return res
}

// resolveViewColumns resolves every view's defining query against cat,
// expanding SELECT * at definition time, and fills in its real output
// schema (spec.md §4.1). Views are visited in declaration order so a view
// that selects from an earlier view sees that view's resolved columns
// rather than the Unknown-typed header stub catalog.Build leaves behind.
// Diagnostics from a broken view definition (e.g. an unknown column in its
// own SELECT) are reported against the same sink as every other statement.
func resolveViewColumns(cat *catalog.Catalog, sink *diagnostic.Sink) {
	for _, k := range cat.ViewOrder {
		view := cat.Views[k]
		if view == nil || view.Query == nil {
			continue
		}
		rv := resolver.New(cat, sink)
		cols := rv.ResolveQuery(view.Query)

		resolved := make([]*catalog.Column, len(cols))
		for i, c := range cols {
			name := c.Name
			if i < len(view.HeaderColumns) {
				name = view.HeaderColumns[i]
			}
			resolved[i] = &catalog.Column{Name: name, Type: c.Type, Nullable: true}
		}
		view.Columns = resolved
	}
}
