package mysql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sqlaudit/internal/sqlast"
)

func TestParseDocument_CreateTableAndSimpleSelect(t *testing.T) {
	f := New()
	ddl, dml, errs := f.ParseDocument(`
		CREATE TABLE users (id INT PRIMARY KEY, name VARCHAR(255) NOT NULL);
		SELECT id, name FROM users WHERE id = 1;
	`)
	require.Empty(t, errs)
	require.Len(t, ddl, 1)
	require.Len(t, dml, 1)

	table, ok := ddl[0].(*sqlast.CreateTable)
	require.True(t, ok)
	assert.Equal(t, "users", table.Name)
	require.Len(t, table.Columns, 2)
	assert.Equal(t, "id", table.Columns[0].Name)
	assert.True(t, table.Columns[0].PrimaryKey)
	assert.True(t, table.Columns[1].NotNull)

	query, ok := dml[0].(*sqlast.Query)
	require.True(t, ok)
	sel, ok := query.Body.(*sqlast.Select)
	require.True(t, ok)
	require.Len(t, sel.Projection, 2)
	require.Len(t, sel.From, 1)
	assert.NotNil(t, sel.Where)
}

func TestParseDocument_JoinAndAlias(t *testing.T) {
	f := New()
	_, dml, errs := f.ParseDocument(`
		SELECT u.id, o.total FROM users u JOIN orders o ON u.id = o.user_id;
	`)
	require.Empty(t, errs)
	require.Len(t, dml, 1)

	sel := dml[0].(*sqlast.Query).Body.(*sqlast.Select)
	require.Len(t, sel.From, 1)
	join, ok := sel.From[0].(*sqlast.JoinExpr)
	require.True(t, ok)
	assert.NotNil(t, join.On)

	left, ok := join.Left.(*sqlast.NamedTable)
	require.True(t, ok)
	assert.Equal(t, "u", left.Alias)
}

func TestParseDocument_UnionSetOperation(t *testing.T) {
	f := New()
	_, dml, errs := f.ParseDocument(`
		SELECT id FROM users UNION ALL SELECT id FROM orders;
	`)
	require.Empty(t, errs)
	require.Len(t, dml, 1)

	query := dml[0].(*sqlast.Query)
	_, ok := query.Body.(*sqlast.SetOperation)
	assert.True(t, ok)
}

func TestParseDocument_CTE(t *testing.T) {
	f := New()
	_, dml, errs := f.ParseDocument(`
		WITH recent AS (SELECT id FROM orders)
		SELECT id FROM recent;
	`)
	require.Empty(t, errs)
	require.Len(t, dml, 1)

	query := dml[0].(*sqlast.Query)
	require.NotNil(t, query.With)
	require.Len(t, query.With.CTEs, 1)
	assert.Equal(t, "recent", query.With.CTEs[0].Name)
}

func TestParseDocument_InsertValues(t *testing.T) {
	f := New()
	_, dml, errs := f.ParseDocument(`
		INSERT INTO users (id, name) VALUES (1, 'alice');
	`)
	require.Empty(t, errs)
	require.Len(t, dml, 1)

	ins, ok := dml[0].(*sqlast.Insert)
	require.True(t, ok)
	assert.Equal(t, "users", ins.Table.Name)
	assert.Equal(t, []string{"id", "name"}, ins.Columns)
	values, ok := ins.Source.(*sqlast.Values)
	require.True(t, ok)
	require.Len(t, values.Rows, 1)
	require.Len(t, values.Rows[0], 2)
}

func TestParseDocument_UpdateAndDelete(t *testing.T) {
	f := New()
	_, dml, errs := f.ParseDocument(`
		UPDATE users SET name = 'bob' WHERE id = 1;
		DELETE FROM users WHERE id = 1;
	`)
	require.Empty(t, errs)
	require.Len(t, dml, 2)

	upd, ok := dml[0].(*sqlast.Update)
	require.True(t, ok)
	require.Len(t, upd.Assignments, 1)
	assert.Equal(t, "name", upd.Assignments[0].Column)

	del, ok := dml[1].(*sqlast.Delete)
	require.True(t, ok)
	assert.Equal(t, "users", del.Table.Name)
}

func TestParseDocument_MalformedStatementDoesNotAbortTheRest(t *testing.T) {
	f := New()
	ddl, dml, errs := f.ParseDocument(`SELEKT * FORM nowhere; CREATE TABLE users (id INT);`)
	require.Len(t, errs, 1)
	require.Len(t, ddl, 1)
	assert.Empty(t, dml)
}

func TestParseDocument_UnparsableSourceReturnsSingleError(t *testing.T) {
	f := New()
	_, _, errs := f.ParseDocument(`SELEKT * FORM nowhere;`)
	require.Len(t, errs, 1)
}

func TestParseDocument_SkippedDDLIsRecordedNotDropped(t *testing.T) {
	f := New()
	ddl, _, errs := f.ParseDocument(`CREATE INDEX idx_users_name ON users (name);`)
	require.Empty(t, errs)
	require.Len(t, ddl, 1)
	_, ok := ddl[0].(*sqlast.Skipped)
	assert.True(t, ok)
}
