// Package catalog builds the in-memory schema catalog the resolver checks
// DML statements against, from a sequence of neutral DDL statements. It
// plays the role internal/core's Database/Table/Column types play for the
// teacher's schema-diffing pipeline, trimmed to what name resolution needs
// and extended with views and enum types.
package catalog

import (
	"fmt"
	"strings"

	"sqlaudit/internal/diagnostic"
	"sqlaudit/internal/sqlast"
	"sqlaudit/internal/sqltype"
)

// Column is a resolved column of a table or view.
type Column struct {
	Name        string
	Type        sqltype.SqlType
	Nullable    bool
	Default     string // raw defining expression text; empty means no default
	IsIdentity  bool   // AUTO_INCREMENT / GENERATED ... AS IDENTITY
	IsGenerated bool   // computed/generated column
}

// ForeignKey is a table-level FOREIGN KEY (...) REFERENCES ... constraint.
type ForeignKey struct {
	Columns    []string
	RefTable   string
	RefColumns []string
}

// Table is a base table: CREATE TABLE plus any ALTER TABLE operations
// applied to it, folded in statement order.
type Table struct {
	Schema           string
	Name             string
	Columns          []*Column
	PrimaryKey       []string
	UniqueKeys       [][]string
	ForeignKeys      []*ForeignKey
	CheckConstraints []string // raw CHECK(...) expression text
}

// FindColumn looks up a column case-insensitively.
func (t *Table) FindColumn(name string) *Column {
	for _, c := range t.Columns {
		if strings.EqualFold(c.Name, name) {
			return c
		}
	}
	return nil
}

// ColumnNames returns all column names in declaration order, used to build
// "Did you mean" suggestion candidate lists.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// InsertableColumns returns every column except identity and generated
// ones: the set a column-less INSERT's source arity is checked against,
// since a writer conventionally omits columns the engine populates itself
// (spec.md §4.3).
func (t *Table) InsertableColumns() []*Column {
	out := make([]*Column, 0, len(t.Columns))
	for _, c := range t.Columns {
		if c.IsIdentity || c.IsGenerated {
			continue
		}
		out = append(out, c)
	}
	return out
}

// View is a named query whose output column list becomes resolvable like a
// table's columns.
type View struct {
	Schema  string
	Name    string
	Columns []*Column
	Query   *sqlast.Query
	// HeaderColumns is the explicit column-name list from the view header,
	// if any; it overrides the defining query's own projection names once
	// the query has been resolved.
	HeaderColumns []string
}

// FindColumn looks up a view output column case-insensitively.
func (v *View) FindColumn(name string) *Column {
	for _, c := range v.Columns {
		if strings.EqualFold(c.Name, name) {
			return c
		}
	}
	return nil
}

// Enum is a CREATE TYPE ... AS ENUM declaration.
type Enum struct {
	Name     string
	Variants []string
}

// Catalog is the full set of declared relations and enum types available to
// the resolver for a given analysis run.
type Catalog struct {
	Tables map[string]*Table
	Views  map[string]*View
	Enums  map[string]*Enum
	// ViewOrder holds view lookup keys in declaration order, so a later
	// pass that resolves view query bodies (internal/analyzer) can resolve
	// a view that selects from an earlier view after that earlier view's
	// own output schema is known.
	ViewOrder []string
}

func newCatalog() *Catalog {
	return &Catalog{
		Tables: map[string]*Table{},
		Views:  map[string]*View{},
		Enums:  map[string]*Enum{},
	}
}

// key builds the case-insensitive lookup key for a schema-qualified name.
func key(schema, name string) string {
	return strings.ToLower(schema) + "." + strings.ToLower(name)
}

// FindTable looks up a base table by unqualified or schema-qualified name.
func (c *Catalog) FindTable(schema, name string) *Table {
	if schema != "" {
		return c.Tables[key(schema, name)]
	}
	for _, t := range c.Tables {
		if strings.EqualFold(t.Name, name) {
			return t
		}
	}
	return nil
}

// FindView looks up a view the same way FindTable looks up a base table.
func (c *Catalog) FindView(schema, name string) *View {
	if schema != "" {
		return c.Views[key(schema, name)]
	}
	for _, v := range c.Views {
		if strings.EqualFold(v.Name, name) {
			return v
		}
	}
	return nil
}

// TableNames returns every declared table and view name, for "Did you
// mean" suggestions when a FROM-clause name does not resolve.
func (c *Catalog) TableNames() []string {
	names := make([]string, 0, len(c.Tables)+len(c.Views))
	for _, t := range c.Tables {
		names = append(names, t.Name)
	}
	for _, v := range c.Views {
		names = append(names, v.Name)
	}
	return names
}

// FindEnum looks up an enum type by name, case-insensitively.
func (c *Catalog) FindEnum(name string) *Enum {
	for _, e := range c.Enums {
		if strings.EqualFold(e.Name, name) {
			return e
		}
	}
	return nil
}

// Build folds a sequence of DDL statements into a Catalog. DDL statements
// are applied in order, so an ALTER TABLE must follow the CREATE TABLE it
// targets; a CREATE TABLE IF NOT EXISTS against an existing table is a
// no-op rather than an error, matching idempotent-migration-script usage.
func Build(stmts []sqlast.Statement) (*Catalog, []diagnostic.Diagnostic) {
	cat := newCatalog()
	var diags []diagnostic.Diagnostic

	for _, stmt := range stmts {
		switch s := stmt.(type) {
		case *sqlast.CreateTable:
			diags = append(diags, applyCreateTable(cat, s)...)
		case *sqlast.CreateView:
			diags = append(diags, applyCreateView(cat, s)...)
		case *sqlast.CreateType:
			applyCreateType(cat, s)
		case *sqlast.AlterTable:
			diags = append(diags, applyAlterTable(cat, s)...)
		case *sqlast.Skipped:
			// intentionally ignored: CREATE INDEX, CREATE FUNCTION, etc.
		}
	}
	return cat, diags
}

func applyCreateTable(cat *Catalog, s *sqlast.CreateTable) []diagnostic.Diagnostic {
	k := key(s.Schema, s.Name)
	if _, exists := cat.Tables[k]; exists {
		if s.IfNotExists {
			return nil
		}
		return []diagnostic.Diagnostic{diagnostic.New(
			diagnostic.CodeTableNotFound,
			fmt.Sprintf("table %q already declared", s.Name),
			locFromPos(s.Pos),
		)}
	}

	table := &Table{Schema: s.Schema, Name: s.Name}
	seen := map[string]bool{}
	var diags []diagnostic.Diagnostic
	for _, col := range s.Columns {
		lower := strings.ToLower(col.Name)
		if seen[lower] {
			diags = append(diags, diagnostic.New(
				diagnostic.CodeColumnNotFound,
				fmt.Sprintf("column %q declared more than once in table %q", col.Name, s.Name),
				locFromPos(col.Pos),
			))
			continue
		}
		seen[lower] = true
		table.Columns = append(table.Columns, &Column{
			Name:        col.Name,
			Type:        sqltype.FromRawType(col.RawType),
			Nullable:    !col.NotNull && !col.PrimaryKey && !col.Identity && !col.Generated,
			Default:     col.Default,
			IsIdentity:  col.Identity,
			IsGenerated: col.Generated,
		})
		if col.PrimaryKey {
			table.PrimaryKey = append(table.PrimaryKey, col.Name)
		}
		if col.Unique {
			table.UniqueKeys = append(table.UniqueKeys, []string{col.Name})
		}
	}

	for _, c := range s.Constraints {
		applyConstraint(table, c)
	}
	cat.Tables[k] = table
	return diags
}

// applyConstraint folds one table-level constraint into table: PRIMARY KEY
// columns become not-nullable regardless of how the constraint was spelled
// (mirroring the teacher's ensurePrimaryKeyColumn behavior for the
// column-level case), and each constraint kind also feeds the matching
// Table field spec.md §3 requires.
func applyConstraint(table *Table, c *sqlast.TableConstraint) {
	switch c.Kind {
	case sqlast.ConstraintPrimaryKey:
		table.PrimaryKey = append(table.PrimaryKey, c.Columns...)
		for _, colName := range c.Columns {
			if col := table.FindColumn(colName); col != nil {
				col.Nullable = false
			}
		}
	case sqlast.ConstraintUnique:
		table.UniqueKeys = append(table.UniqueKeys, append([]string(nil), c.Columns...))
	case sqlast.ConstraintForeignKey:
		table.ForeignKeys = append(table.ForeignKeys, &ForeignKey{
			Columns:    c.Columns,
			RefTable:   c.RefTable,
			RefColumns: c.RefColumns,
		})
	case sqlast.ConstraintCheck:
		if c.RawCheck != "" {
			table.CheckConstraints = append(table.CheckConstraints, c.RawCheck)
		}
	}
}

func applyCreateView(cat *Catalog, s *sqlast.CreateView) []diagnostic.Diagnostic {
	k := key(s.Schema, s.Name)
	view := &View{Schema: s.Schema, Name: s.Name, Query: s.Query, HeaderColumns: s.Columns}

	// Until a later pass resolves Query (internal/analyzer, once the whole
	// catalog exists), the only schema we can know is the explicit header,
	// typed Unknown; a view with no header and a query gets its real
	// columns filled in by that pass instead of here.
	for _, name := range s.Columns {
		view.Columns = append(view.Columns, &Column{Name: name, Type: sqltype.New(sqltype.Unknown), Nullable: true})
	}

	if _, exists := cat.Views[k]; !exists {
		cat.ViewOrder = append(cat.ViewOrder, k)
	}
	cat.Views[k] = view
	return nil
}

func applyCreateType(cat *Catalog, s *sqlast.CreateType) {
	cat.Enums[strings.ToLower(s.Name)] = &Enum{Name: s.Name, Variants: s.Variants}
}

func applyAlterTable(cat *Catalog, s *sqlast.AlterTable) []diagnostic.Diagnostic {
	k := key(s.Schema, s.Name)
	table, ok := cat.Tables[k]
	if !ok {
		return []diagnostic.Diagnostic{diagnostic.New(
			diagnostic.CodeTableNotFound,
			fmt.Sprintf("table %q not found", s.Name),
			locFromPos(s.Pos),
		).WithHint(diagnostic.Suggest(s.Name, cat.TableNames()))}
	}

	var diags []diagnostic.Diagnostic
	for _, op := range s.Operations {
		switch op.Kind {
		case sqlast.AlterAddColumn:
			if op.Column == nil {
				continue
			}
			if table.FindColumn(op.Column.Name) != nil {
				diags = append(diags, diagnostic.New(
					diagnostic.CodeColumnNotFound,
					fmt.Sprintf("column %q already exists on table %q", op.Column.Name, table.Name),
					locFromPos(op.Column.Pos),
				))
				continue
			}
			table.Columns = append(table.Columns, &Column{
				Name:        op.Column.Name,
				Type:        sqltype.FromRawType(op.Column.RawType),
				Nullable:    !op.Column.NotNull && !op.Column.PrimaryKey && !op.Column.Identity && !op.Column.Generated,
				Default:     op.Column.Default,
				IsIdentity:  op.Column.Identity,
				IsGenerated: op.Column.Generated,
			})
			if op.Column.PrimaryKey {
				table.PrimaryKey = append(table.PrimaryKey, op.Column.Name)
			}
			if op.Column.Unique {
				table.UniqueKeys = append(table.UniqueKeys, []string{op.Column.Name})
			}

		case sqlast.AlterDropColumn:
			idx := -1
			for i, c := range table.Columns {
				if strings.EqualFold(c.Name, op.ColumnName) {
					idx = i
					break
				}
			}
			if idx == -1 {
				diags = append(diags, diagnostic.New(
					diagnostic.CodeColumnNotFound,
					fmt.Sprintf("column %q not found on table %q", op.ColumnName, table.Name),
					locFromPos(s.Pos),
				).WithHint(diagnostic.Suggest(op.ColumnName, table.ColumnNames())))
				continue
			}
			table.Columns = append(table.Columns[:idx], table.Columns[idx+1:]...)

		case sqlast.AlterRenameColumn:
			if col := table.FindColumn(op.ColumnName); col != nil {
				col.Name = op.NewName
			}

		case sqlast.AlterRenameTable:
			delete(cat.Tables, k)
			table.Name = op.NewName
			cat.Tables[key(table.Schema, table.Name)] = table

		case sqlast.AlterAddConstraint:
			if op.Constraint != nil {
				applyConstraint(table, op.Constraint)
			}

		case sqlast.AlterUnsupported:
			// recognized-but-ignored ALTER sub-form
		}
	}
	return diags
}

func locFromPos(p sqlast.Pos) *diagnostic.Location {
	return &diagnostic.Location{Line: p.Line, Column: p.Column}
}
