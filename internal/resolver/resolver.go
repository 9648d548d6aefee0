// Package resolver walks a neutral DML AST against a catalog and scope
// stack, accumulating diagnostics. It is a pure accumulate pass over the
// AST in the same spirit as the teacher's internal/diff package walks two
// schema snapshots and accumulates change records — no statement here
// mutates the catalog, and nothing aborts the walk early (spec.md §4.3:
// "no terminal or error states that abort the traversal").
package resolver

import (
	"fmt"
	"strings"

	"sqlaudit/internal/catalog"
	"sqlaudit/internal/diagnostic"
	"sqlaudit/internal/scope"
	"sqlaudit/internal/sqlast"
	"sqlaudit/internal/sqltype"
)

// Column is one entry of a query expression's output schema.
type Column struct {
	Name string
	Type sqltype.SqlType
}

// cteEntry is a CTE's resolved output schema, or a placeholder used while
// resolving a recursive CTE's own anchor/recursive members.
type cteEntry struct {
	Columns []Column
	Opaque  bool
}

// cteScope is one level of the CTE-name stack, mirroring one scope.Stack
// frame.
type cteScope struct {
	names map[string]*cteEntry
}

// Resolver drives one resolution pass. It is not safe for concurrent use;
// callers needing concurrency construct one Resolver per goroutine, each
// against its own Catalog (spec.md §5).
type Resolver struct {
	cat   *catalog.Catalog
	sink  *diagnostic.Sink
	stack *scope.Stack

	// ctes mirrors the scope stack's frame nesting with CTE name -> schema
	// bindings; kept here because scope.Stack does not track CTE names at
	// all, only relations.
	ctes []*cteScope
}

// New constructs a Resolver bound to cat, reporting into sink.
func New(cat *catalog.Catalog, sink *diagnostic.Sink) *Resolver {
	return &Resolver{cat: cat, sink: sink, stack: scope.New()}
}

func (r *Resolver) pushIsolated() {
	r.stack.PushIsolated()
	r.ctes = append(r.ctes, &cteScope{names: map[string]*cteEntry{}})
}

func (r *Resolver) pushCorrelated() {
	r.stack.PushCorrelated()
	r.ctes = append(r.ctes, &cteScope{names: map[string]*cteEntry{}})
}

func (r *Resolver) pop() {
	r.stack.Pop()
	r.ctes = r.ctes[:len(r.ctes)-1]
}

// lookupCTE searches every enclosing level regardless of correlation: a
// CTE name is a lexical binding, visible everywhere within the query that
// introduces it, unlike a relation which an isolated subquery cannot see
// past (spec.md §8: "a CTE name is visible everywhere in the query it
// introduces").
func (r *Resolver) lookupCTE(name string) (*cteEntry, bool) {
	for i := len(r.ctes) - 1; i >= 0; i-- {
		if e, ok := r.ctes[i].names[name]; ok {
			return e, true
		}
	}
	return nil, false
}

func (r *Resolver) report(d diagnostic.Diagnostic) {
	r.sink.Add(d)
}

func locOf(p sqlast.Pos) *diagnostic.Location {
	return &diagnostic.Location{Line: p.Line, Column: p.Column}
}

// Resolve dispatches on the concrete statement kind produced by a
// frontend: *sqlast.Query (a bare SELECT/set-op/VALUES), *sqlast.Insert,
// *sqlast.Update, or *sqlast.Delete.
func (r *Resolver) Resolve(stmt any) {
	defer func() {
		if rec := recover(); rec != nil {
			r.report(diagnostic.Internal(""))
		}
	}()

	switch s := stmt.(type) {
	case *sqlast.Query:
		r.pushIsolated()
		r.resolveQuery(s)
		r.pop()
	case *sqlast.Insert:
		r.resolveInsert(s)
	case *sqlast.Update:
		r.resolveUpdate(s)
	case *sqlast.Delete:
		r.resolveDelete(s)
	}
}

// ResolveQuery resolves a standalone query in its own isolated frame and
// returns its output columns. Used to resolve a view's defining SELECT
// against the current catalog once every DDL statement has been applied
// (spec.md §4.1: "the resulting projection list becomes the view's output
// schema"), the same shape Resolve uses internally for a bare *sqlast.Query.
func (r *Resolver) ResolveQuery(q *sqlast.Query) []Column {
	r.pushIsolated()
	cols := r.resolveQuery(q)
	r.pop()
	return cols
}

func (r *Resolver) resolveQuery(q *sqlast.Query) []Column {
	if q.With != nil {
		r.resolveWith(q.With)
	}
	cols := r.resolveQueryBody(q.Body)

	aliasCols := func(name string) (sqltype.SqlType, bool) {
		for _, c := range cols {
			if strings.EqualFold(c.Name, name) {
				return c.Type, true
			}
		}
		return sqltype.SqlType{}, false
	}
	for _, item := range q.OrderBy {
		if ref, ok := item.Expr.(*sqlast.ColumnRef); ok && ref.Qualifier == "" {
			if _, ok := aliasCols(ref.Name); ok {
				continue
			}
		}
		r.resolveExpr(item.Expr)
	}
	if q.Limit != nil {
		if q.Limit.Count != nil {
			r.resolveExpr(q.Limit.Count)
		}
		if q.Limit.Offset != nil {
			r.resolveExpr(q.Limit.Offset)
		}
	}
	return cols
}

func (r *Resolver) resolveWith(with *sqlast.WithClause) {
	for _, cte := range with.CTEs {
		if cte.Recursive {
			r.ctes[len(r.ctes)-1].names[cte.Name] = &cteEntry{Opaque: true}
		}
		r.pushIsolated()
		cols := r.resolveQuery(cte.Query)
		r.pop()

		if len(cte.Columns) > 0 {
			named := make([]Column, len(cols))
			copy(named, cols)
			for i, name := range cte.Columns {
				if i < len(named) {
					named[i].Name = name
				}
			}
			cols = named
		}
		r.ctes[len(r.ctes)-1].names[cte.Name] = &cteEntry{Columns: cols}
	}
}

func (r *Resolver) resolveQueryBody(body sqlast.QueryBody) []Column {
	switch b := body.(type) {
	case *sqlast.Select:
		return r.resolveSelect(b)
	case *sqlast.SetOperation:
		return r.resolveSetOperation(b)
	case *sqlast.Values:
		return r.resolveValues(b)
	default:
		return nil
	}
}

// resolveSetOperation resolves each branch in its own frame: UNION/
// INTERSECT/EXCEPT branches are independent SELECTs that happen to share
// the enclosing CTE scope, not a single FROM list, so one branch's
// relations must never leak into the other's column lookup.
func (r *Resolver) resolveSetOperation(s *sqlast.SetOperation) []Column {
	r.pushIsolated()
	left := r.resolveQueryBody(s.Left)
	r.pop()

	r.pushIsolated()
	right := r.resolveQueryBody(s.Right)
	r.pop()
	if len(left) != len(right) {
		r.report(diagnostic.New(
			diagnostic.CodeInsertArity,
			fmt.Sprintf("set operation branches have differing arity: %d vs %d", len(left), len(right)),
			locOf(s.Pos),
		))
		return left
	}
	out := make([]Column, len(left))
	for i := range left {
		out[i] = Column{Name: left[i].Name, Type: left[i].Type.Widen(right[i].Type)}
	}
	return out
}

func (r *Resolver) resolveValues(v *sqlast.Values) []Column {
	if len(v.Rows) == 0 {
		return nil
	}
	width := len(v.Rows[0])
	types := make([]sqltype.SqlType, width)
	for ri, row := range v.Rows {
		if len(row) != width {
			r.report(diagnostic.New(
				diagnostic.CodeInsertArity,
				fmt.Sprintf("VALUES row %d has %d columns, expected %d", ri+1, len(row), width),
				locOf(v.Pos),
			))
			continue
		}
		for i, e := range row {
			t := r.resolveExpr(e)
			if ri == 0 {
				types[i] = t
			} else {
				types[i] = types[i].Widen(t)
			}
		}
	}
	out := make([]Column, width)
	for i, t := range types {
		out[i] = Column{Name: "?column?", Type: t}
	}
	return out
}

func (r *Resolver) resolveSelect(s *sqlast.Select) []Column {
	for _, tf := range s.From {
		r.resolveTableFactor(tf, false)
	}

	if s.Where != nil {
		r.resolveExpr(s.Where)
	}
	if s.GroupBy != nil {
		for _, e := range s.GroupBy.Items {
			r.resolveExpr(e)
		}
	}
	if s.Having != nil {
		r.resolveExpr(s.Having)
	}

	var out []Column
	for _, item := range s.Projection {
		out = append(out, r.resolveSelectItem(item)...)
	}
	return out
}

func (r *Resolver) resolveSelectItem(item *sqlast.SelectItem) []Column {
	if item.Wildcard {
		return r.expandWildcard(item)
	}
	t := r.resolveExpr(item.Expr)
	name := item.Alias
	if name == "" {
		if ref, ok := item.Expr.(*sqlast.ColumnRef); ok {
			name = ref.Name
		} else {
			name = "?column?"
		}
	}
	return []Column{{Name: name, Type: t}}
}

func (r *Resolver) expandWildcard(item *sqlast.SelectItem) []Column {
	var out []Column
	if item.Qualifier == "" {
		for _, rel := range r.stack.ActiveRelations() {
			for _, c := range rel.Columns {
				out = append(out, Column{Name: c, Type: sqltype.New(sqltype.Unknown)})
			}
		}
		return out
	}
	rel, ok := r.stack.LookupQualified(item.Qualifier, "")
	if !ok && !r.stack.ResolveQualifier(item.Qualifier) {
		r.report(diagnostic.New(
			diagnostic.CodeTableNotFound,
			fmt.Sprintf("no table or alias named %q is in scope", item.Qualifier),
			locOf(item.Pos),
		))
		return nil
	}
	if rel != nil {
		for _, c := range rel.Columns {
			out = append(out, Column{Name: c, Type: sqltype.New(sqltype.Unknown)})
		}
	}
	return out
}

// resolveTableFactor registers tf's relation(s) into the active frame. A
// lateral derived table gets its own correlated child frame that sees
// everything registered so far in the enclosing frame (left-to-right
// FROM-list visibility); a non-lateral derived table gets an isolated one.
func (r *Resolver) resolveTableFactor(tf sqlast.TableFactor, forceLateral bool) {
	switch t := tf.(type) {
	case *sqlast.NamedTable:
		r.resolveNamedTable(t)

	case *sqlast.JoinExpr:
		r.resolveTableFactor(t.Left, false)
		r.resolveTableFactor(t.Right, false)
		if t.On != nil {
			if be, ok := t.On.(*sqlast.BinaryExpr); ok {
				be.InJoinCondition = true
			}
			r.resolveExpr(t.On)
		}
		for _, col := range t.Using {
			r.resolveUsingColumn(col, t.Pos)
		}

	case *sqlast.DerivedTable:
		if t.Lateral || forceLateral {
			r.pushCorrelated()
		} else {
			r.pushIsolated()
		}
		cols := r.resolveQuery(t.Query)
		r.pop()
		r.stack.AddRelation(&scope.Relation{Alias: t.Alias, Columns: columnNames(cols, t.Columns)})

	case *sqlast.TableValuedFunction:
		for _, a := range t.Args {
			r.resolveExpr(a)
		}
		r.stack.AddRelation(&scope.Relation{Alias: t.Alias, Opaque: true})
	}
}

func columnNames(cols []Column, override []string) []string {
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	for i, o := range override {
		if i < len(names) {
			names[i] = o
		}
	}
	return names
}

func (r *Resolver) resolveUsingColumn(col string, pos sqlast.Pos) {
	// USING columns must exist on every relation added so far in this
	// frame; a precise per-side check is left to the column-ref path when
	// the column is later referenced unqualified.
	_, ok, ambiguous := r.stack.LookupUnqualified(col)
	if ambiguous {
		return
	}
	if !ok {
		r.report(diagnostic.New(
			diagnostic.CodeColumnNotFound,
			fmt.Sprintf("USING column %q not found in joined relations", col),
			locOf(pos),
		))
	}
}

func (r *Resolver) resolveNamedTable(t *sqlast.NamedTable) {
	if entry, ok := r.lookupCTE(t.Name); ok && t.Schema == "" {
		alias := t.Alias
		if alias == "" {
			alias = t.Name
		}
		if entry.Opaque {
			r.stack.AddRelation(&scope.Relation{Alias: alias, Opaque: true})
			return
		}
		r.stack.AddRelation(&scope.Relation{Alias: alias, Columns: columnNames(entry.Columns, nil)})
		return
	}

	alias := t.Alias
	if alias == "" {
		alias = t.Name
	}
	if table := r.cat.FindTable(t.Schema, t.Name); table != nil {
		r.stack.AddRelation(&scope.Relation{Alias: alias, Columns: table.ColumnNames()})
		return
	}
	if view := r.cat.FindView(t.Schema, t.Name); view != nil {
		names := make([]string, len(view.Columns))
		for i, c := range view.Columns {
			names[i] = c.Name
		}
		r.stack.AddRelation(&scope.Relation{Alias: alias, Columns: names})
		return
	}

	r.report(diagnostic.New(
		diagnostic.CodeTableNotFound,
		fmt.Sprintf("table %q not found", t.Name),
		locOf(t.Pos),
	).WithHint(diagnostic.Suggest(t.Name, r.cat.TableNames())))
	// Register an opaque relation under the given alias anyway so that
	// later references to it do not cascade into further unknown-column
	// diagnostics for a table that was already reported missing.
	r.stack.AddRelation(&scope.Relation{Alias: alias, Opaque: true})
}

// resolveExpr validates column references within e and returns its
// inferred SqlType per the table in spec.md §4.3.
func (r *Resolver) resolveExpr(e sqlast.Expr) sqltype.SqlType {
	if e == nil {
		return sqltype.New(sqltype.Unknown)
	}
	switch n := e.(type) {
	case *sqlast.ColumnRef:
		return r.resolveColumnRef(n)

	case *sqlast.Literal:
		switch n.Kind {
		case sqlast.LiteralInteger:
			return sqltype.New(sqltype.Integer)
		case sqlast.LiteralDecimal:
			return sqltype.New(sqltype.Decimal)
		case sqlast.LiteralString:
			return sqltype.New(sqltype.Text)
		case sqlast.LiteralBoolean:
			return sqltype.New(sqltype.Boolean)
		default:
			return sqltype.New(sqltype.Unknown)
		}

	case *sqlast.Cast:
		r.resolveExpr(n.Expr)
		return sqltype.FromRawType(n.RawType)

	case *sqlast.BinaryExpr:
		return r.resolveBinaryExpr(n)

	case *sqlast.UnaryExpr:
		t := r.resolveExpr(n.Expr)
		if n.Op == sqlast.OpNot {
			return sqltype.New(sqltype.Boolean)
		}
		return t

	case *sqlast.IsNullExpr:
		r.resolveExpr(n.Expr)
		return sqltype.New(sqltype.Boolean)

	case *sqlast.BetweenExpr:
		t := r.resolveExpr(n.Expr)
		lo := r.resolveExpr(n.Low)
		hi := r.resolveExpr(n.High)
		if !t.IsCompatibleWith(lo) || !t.IsCompatibleWith(hi) {
			r.report(diagnostic.New(diagnostic.CodeTypeMismatch,
				fmt.Sprintf("BETWEEN operands are not comparable types: %s, %s, %s", t.DisplayName(), lo.DisplayName(), hi.DisplayName()),
				locOf(n.Pos)))
		}
		return sqltype.New(sqltype.Boolean)

	case *sqlast.InExpr:
		t := r.resolveExpr(n.Expr)
		if n.Subquery != nil {
			r.resolveExpr(n.Subquery)
			return sqltype.New(sqltype.Boolean)
		}
		for _, item := range n.List {
			it := r.resolveExpr(item)
			if !t.IsCompatibleWith(it) {
				r.report(diagnostic.New(diagnostic.CodeTypeMismatch,
					fmt.Sprintf("IN list element of type %s is not compatible with %s", it.DisplayName(), t.DisplayName()),
					locOf(n.Pos)))
				break
			}
		}
		return sqltype.New(sqltype.Boolean)

	case *sqlast.CaseExpr:
		return r.resolveCaseExpr(n)

	case *sqlast.FuncCall:
		return r.resolveFuncCall(n)

	case *sqlast.SubqueryExpr:
		r.pushCorrelated()
		cols := r.resolveQuery(n.Query)
		r.pop()
		if n.Quantifier == "EXISTS" {
			return sqltype.New(sqltype.Boolean)
		}
		if len(cols) == 0 {
			return sqltype.New(sqltype.Unknown)
		}
		return cols[0].Type

	case *sqlast.ArrayExpr:
		elem := sqltype.New(sqltype.Unknown)
		for i, item := range n.Items {
			t := r.resolveExpr(item)
			if i == 0 {
				elem = t
			} else {
				elem = elem.Widen(t)
			}
		}
		return sqltype.NewArray(elem)

	case *sqlast.SubscriptExpr:
		t := r.resolveExpr(n.Expr)
		r.resolveExpr(n.Index)
		if t.Elem != nil {
			return *t.Elem
		}
		return sqltype.New(sqltype.Unknown)

	case *sqlast.AtTimeZoneExpr:
		t := r.resolveExpr(n.Expr)
		r.resolveExpr(n.Zone)
		if t.Family != sqltype.Timestamp && t.Family != sqltype.TimestampTz && t.Family != sqltype.Unknown {
			r.report(diagnostic.New(diagnostic.CodeTypeMismatch,
				fmt.Sprintf("AT TIME ZONE requires a timestamp operand, got %s", t.DisplayName()),
				locOf(n.Pos)))
		}
		return sqltype.New(sqltype.TimestampTz)

	default:
		return sqltype.New(sqltype.Unknown)
	}
}

func (r *Resolver) resolveBinaryExpr(n *sqlast.BinaryExpr) sqltype.SqlType {
	left := r.resolveExpr(n.Left)
	right := r.resolveExpr(n.Right)

	switch {
	case n.Op.IsComparison():
		if !left.IsCompatibleWith(right) {
			code := diagnostic.CodeTypeMismatch
			if n.InJoinCondition {
				code = diagnostic.CodeJoinTypeMismatch
			}
			r.report(diagnostic.New(code,
				fmt.Sprintf("cannot compare %s with %s", left.DisplayName(), right.DisplayName()),
				locOf(n.Pos)))
		}
		return sqltype.New(sqltype.Boolean)

	case n.Op == sqlast.OpConcat:
		if !left.IsCompatibleWith(right) {
			r.report(diagnostic.New(diagnostic.CodeTypeMismatch,
				fmt.Sprintf("cannot concatenate %s with %s", left.DisplayName(), right.DisplayName()),
				locOf(n.Pos)))
		}
		return sqltype.New(sqltype.Text)

	case n.Op.IsArithmetic():
		if !(left.IsNumeric() && right.IsNumeric()) && left.Family != sqltype.Unknown && right.Family != sqltype.Unknown {
			r.report(diagnostic.New(diagnostic.CodeTypeMismatch,
				fmt.Sprintf("arithmetic requires numeric operands, got %s and %s", left.DisplayName(), right.DisplayName()),
				locOf(n.Pos)))
			return sqltype.New(sqltype.Unknown)
		}
		return left.Widen(right)

	case n.Op.IsLogical():
		return sqltype.New(sqltype.Boolean)

	default:
		return sqltype.New(sqltype.Unknown)
	}
}

func (r *Resolver) resolveCaseExpr(n *sqlast.CaseExpr) sqltype.SqlType {
	if n.Operand != nil {
		r.resolveExpr(n.Operand)
	}
	result := sqltype.New(sqltype.Unknown)
	for i, w := range n.Whens {
		r.resolveExpr(w.When)
		t := r.resolveExpr(w.Then)
		if i == 0 {
			result = t
		} else if !result.IsCompatibleWith(t) {
			r.report(diagnostic.New(diagnostic.CodeTypeMismatch,
				fmt.Sprintf("CASE branch type %s incompatible with %s", t.DisplayName(), result.DisplayName()),
				locOf(n.Pos)))
		} else {
			result = result.Widen(t)
		}
	}
	if n.Else != nil {
		t := r.resolveExpr(n.Else)
		if result.Family != sqltype.Unknown && !result.IsCompatibleWith(t) {
			r.report(diagnostic.New(diagnostic.CodeTypeMismatch,
				fmt.Sprintf("CASE ELSE type %s incompatible with %s", t.DisplayName(), result.DisplayName()),
				locOf(n.Pos)))
		} else {
			result = result.Widen(t)
		}
	}
	return result
}

var textFuncs = map[string]bool{
	"substring": true, "trim": true, "overlay": true, "upper": true, "lower": true,
}

func (r *Resolver) resolveFuncCall(n *sqlast.FuncCall) sqltype.SqlType {
	for _, a := range n.Args {
		r.resolveExpr(a)
	}
	if n.Window != nil {
		for _, p := range n.Window.PartitionBy {
			r.resolveExpr(p)
		}
		for _, o := range n.Window.OrderBy {
			r.resolveExpr(o.Expr)
		}
	}
	if n.Filter != nil {
		r.resolveExpr(n.Filter)
	}

	lower := strings.ToLower(n.Name)
	switch {
	case n.ExtractField != "" || lower == "extract":
		return sqltype.New(sqltype.Numeric)
	case lower == "position":
		return sqltype.New(sqltype.Integer)
	case textFuncs[lower]:
		return sqltype.New(sqltype.Text)
	case lower == "coalesce" || lower == "nullif":
		result := sqltype.New(sqltype.Unknown)
		for i, a := range n.Args {
			t := r.resolveExpr(a)
			if i == 0 {
				result = t
			} else {
				result = result.Widen(t)
			}
		}
		return result
	default:
		return sqltype.New(sqltype.Unknown)
	}
}

func (r *Resolver) resolveColumnRef(ref *sqlast.ColumnRef) sqltype.SqlType {
	if ref.Qualifier != "" {
		rel, ok := r.stack.LookupQualified(ref.Qualifier, ref.Name)
		if rel == nil {
			if !r.stack.ResolveQualifier(ref.Qualifier) {
				r.report(diagnostic.New(diagnostic.CodeTableNotFound,
					fmt.Sprintf("no table or alias named %q is in scope", ref.Qualifier),
					locOf(ref.Pos)))
				return sqltype.New(sqltype.Unknown)
			}
		}
		if !ok {
			candidates := relationColumnCandidates(rel)
			r.report(diagnostic.New(diagnostic.CodeColumnNotFound,
				fmt.Sprintf("column %q not found on %q", ref.Name, ref.Qualifier),
				locOf(ref.Pos)).WithHint(diagnostic.Suggest(ref.Name, candidates)))
			return sqltype.New(sqltype.Unknown)
		}
		if rel.Opaque {
			return sqltype.New(sqltype.Unknown)
		}
		return r.columnType(rel.Alias, ref.Name)
	}

	alias, ok, ambiguous := r.stack.LookupUnqualified(ref.Name)
	if ambiguous {
		r.report(diagnostic.New(diagnostic.CodeAmbiguousColumn,
			fmt.Sprintf("column reference %q is ambiguous", ref.Name),
			locOf(ref.Pos)))
		return sqltype.New(sqltype.Unknown)
	}
	if !ok {
		var candidates []string
		for _, rel := range r.stack.ActiveRelations() {
			candidates = append(candidates, rel.Columns...)
		}
		r.report(diagnostic.New(diagnostic.CodeColumnNotFound,
			fmt.Sprintf("column %q not found", ref.Name),
			locOf(ref.Pos)).WithHint(diagnostic.Suggest(ref.Name, candidates)))
		return sqltype.New(sqltype.Unknown)
	}
	return r.columnType(alias, ref.Name)
}

func relationColumnCandidates(rel *scope.Relation) []string {
	if rel == nil {
		return nil
	}
	return rel.Columns
}

// columnType looks up the declared type of alias.name against the
// catalog, trying base tables then views; a relation that resolved from a
// CTE or derived table already reports Unknown through the opaque path
// above and never reaches here with meaningful type data beyond what the
// catalog can answer, which is acceptable since CTE/derived columns are
// tracked as names only in scope.Relation.
func (r *Resolver) columnType(alias, name string) sqltype.SqlType {
	if t := r.cat.FindTable("", alias); t != nil {
		if c := t.FindColumn(name); c != nil {
			return c.Type
		}
	}
	if v := r.cat.FindView("", alias); v != nil {
		if c := v.FindColumn(name); c != nil {
			return c.Type
		}
	}
	return sqltype.New(sqltype.Unknown)
}

func (r *Resolver) resolveInsert(ins *sqlast.Insert) {
	table := r.cat.FindTable(ins.Table.Schema, ins.Table.Name)
	if table == nil {
		r.report(diagnostic.New(diagnostic.CodeTableNotFound,
			fmt.Sprintf("table %q not found", ins.Table.Name),
			locOf(ins.Table.Pos)).WithHint(diagnostic.Suggest(ins.Table.Name, r.cat.TableNames())))
	}

	r.pushIsolated()
	if table != nil {
		r.stack.AddRelation(&scope.Relation{Alias: table.Name, Columns: table.ColumnNames()})
	}
	cols := r.resolveQueryBody(ins.Source)
	r.pop()

	if table == nil {
		return
	}

	if len(ins.Returning) > 0 {
		r.pushIsolated()
		r.stack.AddRelation(&scope.Relation{Alias: table.Name, Columns: table.ColumnNames()})
		for _, item := range ins.Returning {
			r.resolveSelectItem(item)
		}
		r.pop()
	}

	var targetCols []*catalog.Column
	if ins.HasCols {
		for _, name := range ins.Columns {
			c := table.FindColumn(name)
			if c == nil {
				r.report(diagnostic.New(diagnostic.CodeColumnNotFound,
					fmt.Sprintf("column %q not found on table %q", name, table.Name),
					locOf(ins.Pos)).WithHint(diagnostic.Suggest(name, table.ColumnNames())))
				continue
			}
			targetCols = append(targetCols, c)
		}
		if len(targetCols) == len(ins.Columns) && len(targetCols) != len(cols) {
			r.report(diagnostic.New(diagnostic.CodeInsertArity,
				fmt.Sprintf("INSERT specifies %d columns but source has %d", len(targetCols), len(cols)),
				locOf(ins.Pos)))
			return
		}
	} else {
		targetCols = table.InsertableColumns()
		if len(targetCols) != len(cols) {
			r.report(diagnostic.New(diagnostic.CodeInsertArity,
				fmt.Sprintf("INSERT source has %d columns but table %q has %d insertable columns", len(cols), table.Name, len(targetCols)),
				locOf(ins.Pos)))
			return
		}
	}

	for i := 0; i < len(targetCols) && i < len(cols); i++ {
		target := targetCols[i].Type
		src := cols[i].Type
		if target.Family != sqltype.Unknown && src.Family != sqltype.Unknown && !target.IsCompatibleWith(src) {
			r.report(diagnostic.New(diagnostic.CodeTypeMismatch,
				fmt.Sprintf("value of type %s is not compatible with column %q of type %s", src.DisplayName(), targetCols[i].Name, target.DisplayName()),
				locOf(ins.Pos)))
		}
	}
}

func (r *Resolver) resolveUpdate(upd *sqlast.Update) {
	table := r.cat.FindTable(upd.Table.Schema, upd.Table.Name)
	if table == nil {
		r.report(diagnostic.New(diagnostic.CodeTableNotFound,
			fmt.Sprintf("table %q not found", upd.Table.Name),
			locOf(upd.Table.Pos)).WithHint(diagnostic.Suggest(upd.Table.Name, r.cat.TableNames())))
	}

	r.pushIsolated()
	alias := upd.Table.Alias
	if alias == "" && table != nil {
		alias = table.Name
	}
	if table != nil {
		r.stack.AddRelation(&scope.Relation{Alias: alias, Columns: table.ColumnNames()})
	}
	for _, tf := range upd.From {
		r.resolveTableFactor(tf, false)
	}

	for _, a := range upd.Assignments {
		valType := r.resolveExpr(a.Value)
		if table == nil {
			continue
		}
		col := table.FindColumn(a.Column)
		if col == nil {
			r.report(diagnostic.New(diagnostic.CodeColumnNotFound,
				fmt.Sprintf("column %q not found on table %q", a.Column, table.Name),
				locOf(upd.Pos)).WithHint(diagnostic.Suggest(a.Column, table.ColumnNames())))
			continue
		}
		if col.Type.Family != sqltype.Unknown && valType.Family != sqltype.Unknown && !col.Type.IsCompatibleWith(valType) {
			r.report(diagnostic.New(diagnostic.CodeTypeMismatch,
				fmt.Sprintf("value of type %s is not compatible with column %q of type %s", valType.DisplayName(), a.Column, col.Type.DisplayName()),
				locOf(upd.Pos)))
		}
	}

	if upd.Where != nil {
		r.resolveExpr(upd.Where)
	}
	for _, item := range upd.Returning {
		r.resolveSelectItem(item)
	}
	r.pop()
}

func (r *Resolver) resolveDelete(del *sqlast.Delete) {
	table := r.cat.FindTable(del.Table.Schema, del.Table.Name)
	if table == nil {
		r.report(diagnostic.New(diagnostic.CodeTableNotFound,
			fmt.Sprintf("table %q not found", del.Table.Name),
			locOf(del.Table.Pos)).WithHint(diagnostic.Suggest(del.Table.Name, r.cat.TableNames())))
	}

	r.pushIsolated()
	alias := del.Table.Alias
	if alias == "" && table != nil {
		alias = table.Name
	}
	if table != nil {
		r.stack.AddRelation(&scope.Relation{Alias: alias, Columns: table.ColumnNames()})
	}
	for _, tf := range del.Using {
		r.resolveTableFactor(tf, false)
	}
	if del.Where != nil {
		r.resolveExpr(del.Where)
	}
	for _, item := range del.Returning {
		r.resolveSelectItem(item)
	}
	r.pop()
}
