// Package mysql translates a MySQL/TiDB-dialect source file into the
// neutral sqlast tree that internal/catalog and internal/resolver consume.
// It wraps github.com/pingcap/tidb/pkg/parser the same way
// internal/parser/mysql does for DDL, extended here to also cover DML
// (spec.md §6: "the parser delivers an AST... the parser is an external
// collaborator").
package mysql

import (
	"fmt"
	"strings"

	"github.com/pingcap/tidb/pkg/parser"
	"github.com/pingcap/tidb/pkg/parser/ast"
	"github.com/pingcap/tidb/pkg/parser/format"
	_ "github.com/pingcap/tidb/pkg/parser/test_driver"

	"sqlaudit/internal/sqlast"
)

// Frontend parses MySQL-dialect source text into sqlast statements.
type Frontend struct {
	p *parser.Parser
}

// New constructs a Frontend backed by a fresh TiDB parser instance.
func New() *Frontend {
	return &Frontend{p: parser.New()}
}

// StatementError records a single top-level statement that failed to parse
// or translate; the caller reports it as an E1000 diagnostic and continues
// with the remaining statements (spec.md §7: a malformed statement must not
// abort the run).
type StatementError struct {
	Pos Pos
	Err error
}

// Pos mirrors sqlast.Pos so this package does not need to import sqlast
// just for error reporting positions; frontend.go converts between them.
type Pos struct {
	Line   int
	Column int
}

func (e *StatementError) Error() string { return e.Err.Error() }

// Parse splits source into top-level statements and translates each one
// independently. A statement whose shape this translator does not
// recognize is reported via errs and the others are still translated.
// When the underlying parser rejects the source, Parse returns a single
// error and no statements; it does not retry statement by statement.
func (f *Frontend) Parse(source string) (stmts []sqlast.Statement, errs []*StatementError) {
	nodes, _, err := f.p.Parse(source, "", "")
	if err != nil {
		return nil, []*StatementError{{Err: fmt.Errorf("parse error: %w", err)}}
	}

	for _, node := range nodes {
		stmt, convErr := f.translateTop(node)
		if convErr != nil {
			errs = append(errs, &StatementError{Pos: posOf(node), Err: convErr})
			continue
		}
		if stmt != nil {
			stmts = append(stmts, stmt)
		}
	}
	return stmts, errs
}

func posOf(node ast.Node) Pos {
	if node == nil {
		return Pos{}
	}
	// TiDB's AST does not carry line/column on every node; OriginTextPosition
	// is the byte offset into the statement, which is the best available
	// signal without re-lexing. Line/column attribution is left to the
	// caller when it has the original multi-statement source offsets.
	return Pos{Line: 1, Column: node.OriginTextPosition() + 1}
}

func toPos(node ast.Node) sqlast.Pos {
	p := posOf(node)
	return sqlast.Pos{Line: p.Line, Column: p.Column}
}

func (f *Frontend) translateTop(node ast.StmtNode) (sqlast.Statement, error) {
	switch n := node.(type) {
	case *ast.CreateTableStmt:
		return f.translateCreateTable(n)
	case *ast.CreateViewStmt:
		return f.translateCreateView(n)
	case *ast.AlterTableStmt:
		return f.translateAlterTable(n)
	case *ast.SelectStmt, *ast.SetOprStmt, *ast.InsertStmt, *ast.UpdateStmt, *ast.DeleteStmt:
		// DML statements are not folded into the catalog; ParseDocument
		// routes them through translateDML instead and reports them
		// separately from the DDL statement list.
		return nil, nil
	default:
		return &sqlast.Skipped{Kind: skippedKind(node)}, nil
	}
}

// isDML reports whether node is one of the statement kinds ParseDocument
// routes to its dml return value rather than its ddl one.
func isDML(node ast.StmtNode) bool {
	switch node.(type) {
	case *ast.SelectStmt, *ast.SetOprStmt, *ast.InsertStmt, *ast.UpdateStmt, *ast.DeleteStmt:
		return true
	default:
		return false
	}
}

func (f *Frontend) translateDML(node ast.StmtNode) (any, error) {
	switch n := node.(type) {
	case *ast.SelectStmt:
		q, err := f.translateSelectStmt(n)
		if err != nil {
			return nil, err
		}
		return q, nil
	case *ast.SetOprStmt:
		body, err := f.translateSetOpr(n)
		if err != nil {
			return nil, err
		}
		return &sqlast.Query{Pos: toPos(n), Body: body}, nil
	case *ast.InsertStmt:
		return f.translateInsert(n)
	case *ast.UpdateStmt:
		return f.translateUpdate(n)
	case *ast.DeleteStmt:
		return f.translateDelete(n)
	default:
		return nil, fmt.Errorf("unsupported DML statement %T", n)
	}
}

// ParseDocument parses a document that may freely mix DDL and DML
// statements — the common shape of a fixture file that creates its own
// schema and then exercises it — and resolves each top-level statement
// independently so one malformed statement does not disturb the rest
// (spec.md §4.1's resilient-parsing contract, extended here to also cover
// DML since a single analyzer run walks both in source order).
func (f *Frontend) ParseDocument(source string) (ddl []sqlast.Statement, dml []any, errs []*StatementError) {
	nodes, _, err := f.p.Parse(source, "", "")
	if err != nil {
		// Fall back to parsing each ';'-separated piece on its own, so one
		// statement the parser rejects does not discard the others.
		nodes = nil
		for _, piece := range strings.Split(source, ";") {
			if strings.TrimSpace(piece) == "" {
				continue
			}
			pieceNodes, _, pieceErr := f.p.Parse(piece, "", "")
			if pieceErr != nil {
				errs = append(errs, &StatementError{Err: fmt.Errorf("parse error: %w", pieceErr)})
				continue
			}
			nodes = append(nodes, pieceNodes...)
		}
	}

	for _, node := range nodes {
		if isDML(node) {
			stmt, convErr := f.translateDML(node)
			if convErr != nil {
				errs = append(errs, &StatementError{Pos: posOf(node), Err: convErr})
				continue
			}
			dml = append(dml, stmt)
			continue
		}
		stmt, convErr := f.translateTop(node)
		if convErr != nil {
			errs = append(errs, &StatementError{Pos: posOf(node), Err: convErr})
			continue
		}
		if stmt != nil {
			ddl = append(ddl, stmt)
		}
	}
	return ddl, dml, errs
}

func skippedKind(node ast.StmtNode) string {
	return strings.TrimPrefix(fmt.Sprintf("%T", node), "*ast.")
}

func (f *Frontend) exprToString(e ast.ExprNode) string {
	if e == nil {
		return ""
	}
	var sb strings.Builder
	ctx := format.NewRestoreCtx(format.DefaultRestoreFlags, &sb)
	if err := e.Restore(ctx); err != nil {
		return ""
	}
	return strings.TrimSpace(sb.String())
}
