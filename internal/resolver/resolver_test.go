package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sqlaudit/internal/catalog"
	"sqlaudit/internal/diagnostic"
	"sqlaudit/internal/sqlast"
)

func usersCatalog() *catalog.Catalog {
	cat, _ := catalog.Build([]sqlast.Statement{
		&sqlast.CreateTable{Name: "users", Columns: []*sqlast.ColumnDef{
			{Name: "id", RawType: "INT", PrimaryKey: true},
			{Name: "name", RawType: "VARCHAR(255)"},
			{Name: "email", RawType: "VARCHAR(255)"},
		}},
		&sqlast.CreateTable{Name: "orders", Columns: []*sqlast.ColumnDef{
			{Name: "id", RawType: "INT", PrimaryKey: true},
			{Name: "user_id", RawType: "INT"},
			{Name: "total", RawType: "DECIMAL(10,2)"},
		}},
	})
	return cat
}

func col(qualifier, name string) sqlast.Expr {
	return &sqlast.ColumnRef{Qualifier: qualifier, Name: name}
}

func run(t *testing.T, cat *catalog.Catalog, stmt any) []diagnostic.Diagnostic {
	t.Helper()
	sink := diagnostic.NewSink(nil, 0)
	r := New(cat, sink)
	r.Resolve(stmt)
	return sink.Diagnostics()
}

func TestSelect_SimpleColumnResolvesCleanly(t *testing.T) {
	q := &sqlast.Query{Body: &sqlast.Select{
		Projection: []*sqlast.SelectItem{{Expr: col("", "name")}},
		From:       []sqlast.TableFactor{&sqlast.NamedTable{Name: "users"}},
	}}
	diags := run(t, usersCatalog(), q)
	assert.Empty(t, diags)
}

func TestSelect_UnknownTableReportsE0001WithHint(t *testing.T) {
	q := &sqlast.Query{Body: &sqlast.Select{
		Projection: []*sqlast.SelectItem{{Wildcard: true}},
		From:       []sqlast.TableFactor{&sqlast.NamedTable{Name: "usres"}},
	}}
	diags := run(t, usersCatalog(), q)
	require.Len(t, diags, 1)
	assert.Equal(t, "E0001", string(diags[0].Code))
	require.NotNil(t, diags[0].Hint)
	assert.Contains(t, *diags[0].Hint, "users")
}

func TestSelect_UnknownColumnReportsE0002WithHint(t *testing.T) {
	q := &sqlast.Query{Body: &sqlast.Select{
		Projection: []*sqlast.SelectItem{{Expr: col("", "naem")}},
		From:       []sqlast.TableFactor{&sqlast.NamedTable{Name: "users"}},
	}}
	diags := run(t, usersCatalog(), q)
	require.Len(t, diags, 1)
	assert.Equal(t, "E0002", string(diags[0].Code))
	require.NotNil(t, diags[0].Hint)
	assert.Contains(t, *diags[0].Hint, "name")
}

func TestSelect_AmbiguousColumnAcrossJoinIsE0006(t *testing.T) {
	q := &sqlast.Query{Body: &sqlast.Select{
		Projection: []*sqlast.SelectItem{{Expr: col("", "id")}},
		From: []sqlast.TableFactor{&sqlast.JoinExpr{
			Kind:  sqlast.JoinInner,
			Left:  &sqlast.NamedTable{Name: "users", Alias: "u"},
			Right: &sqlast.NamedTable{Name: "orders", Alias: "o"},
			On:    &sqlast.BinaryExpr{Op: sqlast.OpEq, Left: col("u", "id"), Right: col("o", "user_id")},
		}},
	}}
	diags := run(t, usersCatalog(), q)
	require.Len(t, diags, 1)
	assert.Equal(t, "E0006", string(diags[0].Code))
}

func TestSelect_QualifiedColumnNeverAmbiguous(t *testing.T) {
	q := &sqlast.Query{Body: &sqlast.Select{
		Projection: []*sqlast.SelectItem{{Expr: col("u", "id")}},
		From: []sqlast.TableFactor{&sqlast.JoinExpr{
			Kind:  sqlast.JoinInner,
			Left:  &sqlast.NamedTable{Name: "users", Alias: "u"},
			Right: &sqlast.NamedTable{Name: "orders", Alias: "o"},
			On:    &sqlast.BinaryExpr{Op: sqlast.OpEq, Left: col("u", "id"), Right: col("o", "user_id")},
		}},
	}}
	diags := run(t, usersCatalog(), q)
	assert.Empty(t, diags)
}

func TestJoinCondition_TypeMismatchReportsE0007(t *testing.T) {
	q := &sqlast.Query{Body: &sqlast.Select{
		Projection: []*sqlast.SelectItem{{Wildcard: true}},
		From: []sqlast.TableFactor{&sqlast.JoinExpr{
			Kind:  sqlast.JoinInner,
			Left:  &sqlast.NamedTable{Name: "users", Alias: "u"},
			Right: &sqlast.NamedTable{Name: "orders", Alias: "o"},
			On: &sqlast.BinaryExpr{
				Op:   sqlast.OpEq,
				Left: col("u", "name"),
				Right: col("o", "total"),
			},
		}},
	}}
	diags := run(t, usersCatalog(), q)
	require.Len(t, diags, 1)
	assert.Equal(t, "E0007", string(diags[0].Code))
}

func TestWhere_TypeMismatchOutsideJoinReportsE0003(t *testing.T) {
	q := &sqlast.Query{Body: &sqlast.Select{
		Projection: []*sqlast.SelectItem{{Wildcard: true}},
		From:       []sqlast.TableFactor{&sqlast.NamedTable{Name: "users", Alias: "u"}},
		Where: &sqlast.BinaryExpr{
			Op:   sqlast.OpEq,
			Left: col("u", "name"),
			Right: &sqlast.Literal{Kind: sqlast.LiteralInteger, Text: "1"},
		},
	}}
	diags := run(t, usersCatalog(), q)
	require.Len(t, diags, 1)
	assert.Equal(t, "E0003", string(diags[0].Code))
}

func TestSubquery_InSubqueryIsCorrelatedAndSeesOuterRelation(t *testing.T) {
	inner := &sqlast.Query{Body: &sqlast.Select{
		Projection: []*sqlast.SelectItem{{Expr: col("", "name")}, {Expr: col("", "bogus")}},
		From:       []sqlast.TableFactor{&sqlast.NamedTable{Name: "orders"}},
	}}
	q := &sqlast.Query{Body: &sqlast.Select{
		Projection: []*sqlast.SelectItem{{Wildcard: true}},
		From:       []sqlast.TableFactor{&sqlast.NamedTable{Name: "users", Alias: "u"}},
		Where: &sqlast.InExpr{
			Expr:     col("u", "id"),
			Subquery: &sqlast.SubqueryExpr{Query: inner},
		},
	}}
	diags := run(t, usersCatalog(), q)
	require.Len(t, diags, 1, "the IN subquery's frame is correlated, so name resolves against users u; only bogus, which no visible relation has, is reported")
	assert.Equal(t, "E0002", string(diags[0].Code))
}

func TestSubquery_CorrelatedCanSeeOuterRelation(t *testing.T) {
	inner := &sqlast.Query{Body: &sqlast.Select{
		Projection: []*sqlast.SelectItem{{Expr: col("", "user_id")}},
		From:       []sqlast.TableFactor{&sqlast.NamedTable{Name: "orders", Alias: "o"}},
		Where: &sqlast.BinaryExpr{
			Op:   sqlast.OpEq,
			Left: col("o", "user_id"),
			Right: col("u", "id"),
		},
	}}
	q := &sqlast.Query{Body: &sqlast.Select{
		Projection: []*sqlast.SelectItem{{Wildcard: true}},
		From:       []sqlast.TableFactor{&sqlast.NamedTable{Name: "users", Alias: "u"}},
		Where: &sqlast.SubqueryExpr{Query: inner, Quantifier: "EXISTS"},
	}}
	diags := run(t, usersCatalog(), q)
	assert.Empty(t, diags, "EXISTS subqueries are correlated and may reference the outer alias")
}

func TestCTE_VisibleAcrossIsolatedSubqueryBoundary(t *testing.T) {
	cte := &sqlast.CTE{
		Name: "recent",
		Query: &sqlast.Query{Body: &sqlast.Select{
			Projection: []*sqlast.SelectItem{{Expr: col("", "id")}},
			From:       []sqlast.TableFactor{&sqlast.NamedTable{Name: "orders"}},
		}},
	}
	// An isolated derived table referencing "recent" — the CTE must still
	// resolve even though ordinary relation visibility is blocked here.
	derived := &sqlast.DerivedTable{
		Alias: "d",
		Query: &sqlast.Query{Body: &sqlast.Select{
			Projection: []*sqlast.SelectItem{{Wildcard: true}},
			From:       []sqlast.TableFactor{&sqlast.NamedTable{Name: "recent"}},
		}},
	}
	q := &sqlast.Query{
		With: &sqlast.WithClause{CTEs: []*sqlast.CTE{cte}},
		Body: &sqlast.Select{
			Projection: []*sqlast.SelectItem{{Wildcard: true}},
			From:       []sqlast.TableFactor{derived},
		},
	}
	diags := run(t, usersCatalog(), q)
	assert.Empty(t, diags)
}

func TestCTE_RecursiveSelfReferenceResolvesAsOpaque(t *testing.T) {
	anchor := &sqlast.Select{
		Projection: []*sqlast.SelectItem{{Expr: col("", "id")}},
		From:       []sqlast.TableFactor{&sqlast.NamedTable{Name: "orders"}},
	}
	recursive := &sqlast.Select{
		Projection: []*sqlast.SelectItem{{Expr: col("", "id")}},
		From:       []sqlast.TableFactor{&sqlast.NamedTable{Name: "tree"}},
	}
	cte := &sqlast.CTE{
		Name:      "tree",
		Recursive: true,
		Query: &sqlast.Query{Body: &sqlast.SetOperation{
			Op: sqlast.SetOpUnion, All: true, Left: anchor, Right: recursive,
		}},
	}
	q := &sqlast.Query{
		With: &sqlast.WithClause{CTEs: []*sqlast.CTE{cte}},
		Body: &sqlast.Select{
			Projection: []*sqlast.SelectItem{{Wildcard: true}},
			From:       []sqlast.TableFactor{&sqlast.NamedTable{Name: "tree"}},
		},
	}
	diags := run(t, usersCatalog(), q)
	assert.Empty(t, diags, "a recursive CTE referencing its own name resolves via the opaque forward-declaration placeholder")
}

func TestSetOperation_ArityMismatchReportsE0005(t *testing.T) {
	left := &sqlast.Select{Projection: []*sqlast.SelectItem{{Expr: col("", "id")}}, From: []sqlast.TableFactor{&sqlast.NamedTable{Name: "users"}}}
	right := &sqlast.Select{Projection: []*sqlast.SelectItem{{Expr: col("", "id")}, {Expr: col("", "name")}}, From: []sqlast.TableFactor{&sqlast.NamedTable{Name: "users"}}}
	q := &sqlast.Query{Body: &sqlast.SetOperation{Op: sqlast.SetOpUnion, Left: left, Right: right}}
	diags := run(t, usersCatalog(), q)
	require.Len(t, diags, 1)
	assert.Equal(t, "E0005", string(diags[0].Code))
}

func TestOrderBy_ResolvesAliasBeforeFallingBackToScope(t *testing.T) {
	q := &sqlast.Query{
		Body: &sqlast.Select{
			Projection: []*sqlast.SelectItem{{Expr: col("", "name"), Alias: "n"}},
			From:       []sqlast.TableFactor{&sqlast.NamedTable{Name: "users"}},
		},
		OrderBy: []*sqlast.OrderItem{{Expr: col("", "n")}},
	}
	diags := run(t, usersCatalog(), q)
	assert.Empty(t, diags, "ORDER BY n resolves against the projection alias, not a real column")
}

func TestInsert_ExplicitColumnArityMismatchReportsE0005(t *testing.T) {
	ins := &sqlast.Insert{
		Table:   &sqlast.NamedTable{Name: "users"},
		Columns: []string{"name", "email"},
		HasCols: true,
		Source: &sqlast.Values{Rows: [][]sqlast.Expr{
			{&sqlast.Literal{Kind: sqlast.LiteralString, Text: "'a'"}},
		}},
	}
	diags := run(t, usersCatalog(), ins)
	require.Len(t, diags, 1)
	assert.Equal(t, "E0005", string(diags[0].Code))
}

func TestInsert_ValuesTypeMismatchReportsE0003(t *testing.T) {
	ins := &sqlast.Insert{
		Table:   &sqlast.NamedTable{Name: "orders"},
		Columns: []string{"id", "user_id", "total"},
		HasCols: true,
		Source: &sqlast.Values{Rows: [][]sqlast.Expr{
			{
				&sqlast.Literal{Kind: sqlast.LiteralInteger, Text: "1"},
				&sqlast.Literal{Kind: sqlast.LiteralInteger, Text: "2"},
				&sqlast.Literal{Kind: sqlast.LiteralString, Text: "'oops'"},
			},
		}},
	}
	diags := run(t, usersCatalog(), ins)
	require.Len(t, diags, 1)
	assert.Equal(t, "E0003", string(diags[0].Code))
}

func TestUpdate_UnknownColumnInAssignment(t *testing.T) {
	upd := &sqlast.Update{
		Table: &sqlast.NamedTable{Name: "users"},
		Assignments: []*sqlast.Assignment{
			{Column: "naem", Value: &sqlast.Literal{Kind: sqlast.LiteralString, Text: "'x'"}},
		},
	}
	diags := run(t, usersCatalog(), upd)
	require.Len(t, diags, 1)
	assert.Equal(t, "E0002", string(diags[0].Code))
}

func TestDelete_UsingRelationVisibleInWhere(t *testing.T) {
	del := &sqlast.Delete{
		Table: &sqlast.NamedTable{Name: "users", Alias: "u"},
		Using: []sqlast.TableFactor{&sqlast.NamedTable{Name: "orders", Alias: "o"}},
		Where: &sqlast.BinaryExpr{Op: sqlast.OpEq, Left: col("u", "id"), Right: col("o", "user_id")},
	}
	diags := run(t, usersCatalog(), del)
	assert.Empty(t, diags)
}

func TestEmptySchema_EmptyQueryAgainstMissingTableIsSingleDiagnostic(t *testing.T) {
	cat, _ := catalog.Build(nil)
	q := &sqlast.Query{Body: &sqlast.Select{
		Projection: []*sqlast.SelectItem{{Wildcard: true}},
		From:       []sqlast.TableFactor{&sqlast.NamedTable{Name: "users"}},
	}}
	diags := run(t, cat, q)
	require.Len(t, diags, 1, "an unresolved table registers opaquely so downstream wildcard expansion reports nothing further")
	assert.Equal(t, "E0001", string(diags[0].Code))
}

func TestWildcardExpansion_SingleColumnTable(t *testing.T) {
	cat, _ := catalog.Build([]sqlast.Statement{
		&sqlast.CreateTable{Name: "flags", Columns: []*sqlast.ColumnDef{{Name: "enabled", RawType: "BOOLEAN"}}},
	})
	q := &sqlast.Query{Body: &sqlast.Select{
		Projection: []*sqlast.SelectItem{{Wildcard: true}},
		From:       []sqlast.TableFactor{&sqlast.NamedTable{Name: "flags"}},
	}}
	diags := run(t, cat, q)
	assert.Empty(t, diags)
}

func TestResolveOfUnrecognizedStatementTypeIsANoop(t *testing.T) {
	sink := diagnostic.NewSink(nil, 0)
	r := New(usersCatalog(), sink)
	r.Resolve("not a statement")
	assert.Empty(t, sink.Diagnostics())
}

func TestResolvePanicRecoveredAsInternalDiagnostic(t *testing.T) {
	sink := diagnostic.NewSink(nil, 0)
	r := New(usersCatalog(), sink)
	// A typed-nil *NamedTable satisfies the TableFactor interface, so it
	// dispatches into resolveNamedTable's field access and panics there —
	// exercising Resolve's top-level recover() -> E1000 path.
	var nilTable *sqlast.NamedTable
	var tf sqlast.TableFactor = nilTable
	q := &sqlast.Query{Body: &sqlast.Select{
		Projection: []*sqlast.SelectItem{{Wildcard: true}},
		From:       []sqlast.TableFactor{tf},
	}}
	r.Resolve(q)
	require.Len(t, sink.Diagnostics(), 1)
	assert.Equal(t, diagnostic.InternalErrorMessage, sink.Diagnostics()[0].Message)
}

func TestInsert_NoColumnListCountsOnlyNonIdentityColumns(t *testing.T) {
	cat, _ := catalog.Build([]sqlast.Statement{
		&sqlast.CreateTable{Name: "posts", Columns: []*sqlast.ColumnDef{
			{Name: "id", RawType: "INT", Identity: true, PrimaryKey: true},
			{Name: "title", RawType: "VARCHAR(255)"},
			{Name: "body", RawType: "TEXT"},
		}},
	})
	ins := &sqlast.Insert{
		Table: &sqlast.NamedTable{Name: "posts"},
		Source: &sqlast.Values{Rows: [][]sqlast.Expr{
			{
				&sqlast.Literal{Kind: sqlast.LiteralString, Text: "'hello'"},
				&sqlast.Literal{Kind: sqlast.LiteralString, Text: "'world'"},
			},
		}},
	}
	diags := run(t, cat, ins)
	assert.Empty(t, diags, "an AUTO_INCREMENT id is never part of the insertable-column count")
}

func TestInsert_NoColumnListStillFlagsArityMismatchAgainstInsertableColumns(t *testing.T) {
	cat, _ := catalog.Build([]sqlast.Statement{
		&sqlast.CreateTable{Name: "posts", Columns: []*sqlast.ColumnDef{
			{Name: "id", RawType: "INT", Identity: true, PrimaryKey: true},
			{Name: "title", RawType: "VARCHAR(255)"},
			{Name: "body", RawType: "TEXT"},
		}},
	})
	ins := &sqlast.Insert{
		Table: &sqlast.NamedTable{Name: "posts"},
		Source: &sqlast.Values{Rows: [][]sqlast.Expr{
			{&sqlast.Literal{Kind: sqlast.LiteralString, Text: "'hello'"}},
		}},
	}
	diags := run(t, cat, ins)
	require.Len(t, diags, 1)
	assert.Equal(t, "E0005", string(diags[0].Code))
}

func TestInsert_ReturningColumnResolvesAgainstTargetTable(t *testing.T) {
	ins := &sqlast.Insert{
		Table:   &sqlast.NamedTable{Name: "users"},
		Columns: []string{"name", "email"},
		HasCols: true,
		Source: &sqlast.Values{Rows: [][]sqlast.Expr{
			{
				&sqlast.Literal{Kind: sqlast.LiteralString, Text: "'a'"},
				&sqlast.Literal{Kind: sqlast.LiteralString, Text: "'b'"},
			},
		}},
		Returning: []*sqlast.SelectItem{{Expr: col("", "id")}},
	}
	diags := run(t, usersCatalog(), ins)
	assert.Empty(t, diags)
}

func TestInsert_ReturningUnknownColumnReportsE0002(t *testing.T) {
	ins := &sqlast.Insert{
		Table:   &sqlast.NamedTable{Name: "users"},
		Columns: []string{"name", "email"},
		HasCols: true,
		Source: &sqlast.Values{Rows: [][]sqlast.Expr{
			{
				&sqlast.Literal{Kind: sqlast.LiteralString, Text: "'a'"},
				&sqlast.Literal{Kind: sqlast.LiteralString, Text: "'b'"},
			},
		}},
		Returning: []*sqlast.SelectItem{{Expr: col("", "bogus")}},
	}
	diags := run(t, usersCatalog(), ins)
	require.Len(t, diags, 1)
	assert.Equal(t, "E0002", string(diags[0].Code))
}

func TestUpdate_ReturningColumnResolvesAgainstTargetTable(t *testing.T) {
	upd := &sqlast.Update{
		Table: &sqlast.NamedTable{Name: "users"},
		Assignments: []*sqlast.Assignment{
			{Column: "name", Value: &sqlast.Literal{Kind: sqlast.LiteralString, Text: "'x'"}},
		},
		Returning: []*sqlast.SelectItem{{Expr: col("", "email")}},
	}
	diags := run(t, usersCatalog(), upd)
	assert.Empty(t, diags)
}

func TestDelete_ReturningUnknownColumnReportsE0002(t *testing.T) {
	del := &sqlast.Delete{
		Table:     &sqlast.NamedTable{Name: "users"},
		Returning: []*sqlast.SelectItem{{Expr: col("", "bogus")}},
	}
	diags := run(t, usersCatalog(), del)
	require.Len(t, diags, 1)
	assert.Equal(t, "E0002", string(diags[0].Code))
}

// Lateral derived tables are not exercised through internal/frontend/mysql:
// see DESIGN.md's note under internal/frontend/mysql on why MySQL LATERAL
// derived tables are out of scope for the dialect frontend. This test drives
// resolveTableFactor's Lateral branch directly with a hand-built AST, the
// way TestResolvePanicRecoveredAsInternalDiagnostic hand-builds a node no
// frontend would ever emit to reach a specific resolver path.
func TestDerivedTable_LateralSeesPrecedingFromItem(t *testing.T) {
	lateral := &sqlast.DerivedTable{
		Alias:   "o",
		Lateral: true,
		Query: &sqlast.Query{Body: &sqlast.Select{
			Projection: []*sqlast.SelectItem{{Expr: col("", "total")}},
			From:       []sqlast.TableFactor{&sqlast.NamedTable{Name: "orders"}},
			Where: &sqlast.BinaryExpr{
				Op:   sqlast.OpEq,
				Left: col("", "user_id"),
				Right: col("u", "id"),
			},
		}},
	}
	q := &sqlast.Query{Body: &sqlast.Select{
		Projection: []*sqlast.SelectItem{{Wildcard: true}},
		From:       []sqlast.TableFactor{&sqlast.NamedTable{Name: "users", Alias: "u"}, lateral},
	}}
	diags := run(t, usersCatalog(), q)
	assert.Empty(t, diags, "LATERAL gives the derived table a correlated frame that sees users aliased u to its left")
}

func TestDerivedTable_NonLateralCannotSeePrecedingFromItem(t *testing.T) {
	notLateral := &sqlast.DerivedTable{
		Alias: "o",
		Query: &sqlast.Query{Body: &sqlast.Select{
			Projection: []*sqlast.SelectItem{{Expr: col("", "total")}},
			From:       []sqlast.TableFactor{&sqlast.NamedTable{Name: "orders"}},
			Where: &sqlast.BinaryExpr{
				Op:   sqlast.OpEq,
				Left: col("", "user_id"),
				Right: col("u", "id"),
			},
		}},
	}
	q := &sqlast.Query{Body: &sqlast.Select{
		Projection: []*sqlast.SelectItem{{Wildcard: true}},
		From:       []sqlast.TableFactor{&sqlast.NamedTable{Name: "users", Alias: "u"}, notLateral},
	}}
	diags := run(t, usersCatalog(), q)
	require.Len(t, diags, 1, "without LATERAL the derived table's own frame is isolated and cannot see u")
	assert.Equal(t, "E0001", string(diags[0].Code))
}

func TestDisabledRuleIsSuppressed(t *testing.T) {
	disabled := diagnostic.Set{diagnostic.CodeTableNotFound: true}
	sink := diagnostic.NewSink(disabled, 0)
	r := New(usersCatalog(), sink)
	q := &sqlast.Query{Body: &sqlast.Select{
		Projection: []*sqlast.SelectItem{{Wildcard: true}},
		From:       []sqlast.TableFactor{&sqlast.NamedTable{Name: "bogus"}},
	}}
	r.Resolve(q)
	assert.Empty(t, sink.Diagnostics())
}
