package mysql

import (
	"fmt"

	"github.com/pingcap/tidb/pkg/parser/ast"
	"github.com/pingcap/tidb/pkg/parser/opcode"

	"sqlaudit/internal/sqlast"
)

func (f *Frontend) translateSelectStmt(sel *ast.SelectStmt) (*sqlast.Query, error) {
	q := &sqlast.Query{Pos: toPos(sel)}

	if sel.With != nil {
		wc, err := f.translateWithClause(sel.With)
		if err != nil {
			return nil, err
		}
		q.With = wc
	}

	body, err := f.translateSelectBody(sel)
	if err != nil {
		return nil, err
	}
	q.Body = body

	if sel.OrderBy != nil {
		items, err := f.translateOrderBy(sel.OrderBy)
		if err != nil {
			return nil, err
		}
		q.OrderBy = items
	}
	if sel.Limit != nil {
		lim, err := f.translateLimit(sel.Limit)
		if err != nil {
			return nil, err
		}
		q.Limit = lim
	}
	return q, nil
}

func (f *Frontend) translateSelectBody(sel *ast.SelectStmt) (*sqlast.Select, error) {
	out := &sqlast.Select{
		Pos:      toPos(sel),
		Distinct: sel.Distinct,
	}

	if sel.Fields != nil {
		for _, field := range sel.Fields.Fields {
			item, err := f.translateSelectField(field)
			if err != nil {
				return nil, err
			}
			out.Projection = append(out.Projection, item)
		}
	}

	if sel.From != nil && sel.From.TableRefs != nil {
		tf, err := f.translateJoin(sel.From.TableRefs)
		if err != nil {
			return nil, err
		}
		out.From = append(out.From, tf)
	}

	if sel.Where != nil {
		w, err := f.translateExpr(sel.Where)
		if err != nil {
			return nil, err
		}
		out.Where = w
	}

	if sel.GroupBy != nil {
		gb, err := f.translateGroupBy(sel.GroupBy)
		if err != nil {
			return nil, err
		}
		out.GroupBy = gb
	}

	if sel.Having != nil && sel.Having.Expr != nil {
		h, err := f.translateExpr(sel.Having.Expr)
		if err != nil {
			return nil, err
		}
		out.Having = h
	}

	return out, nil
}

func (f *Frontend) translateSetOpr(stmt *ast.SetOprStmt) (sqlast.QueryBody, error) {
	if stmt.SelectList == nil || len(stmt.SelectList.Selects) == 0 {
		return nil, fmt.Errorf("set operation with no operands")
	}

	var left sqlast.QueryBody
	switch first := stmt.SelectList.Selects[0].(type) {
	case *ast.SelectStmt:
		sel, err := f.translateSelectBody(first)
		if err != nil {
			return nil, err
		}
		left = sel
	default:
		return nil, fmt.Errorf("unsupported set-operation operand %T", first)
	}

	for i := 1; i < len(stmt.SelectList.Selects); i++ {
		sel, ok := stmt.SelectList.Selects[i].(*ast.SelectStmt)
		if !ok {
			return nil, fmt.Errorf("unsupported set-operation operand %T", stmt.SelectList.Selects[i])
		}
		right, err := f.translateSelectBody(sel)
		if err != nil {
			return nil, err
		}
		op := sqlast.SetOpUnion
		all := false
		if sel.AfterSetOperator != nil {
			switch *sel.AfterSetOperator {
			case ast.Union:
				op = sqlast.SetOpUnion
			case ast.UnionAll:
				op, all = sqlast.SetOpUnion, true
			case ast.Intersect:
				op = sqlast.SetOpIntersect
			case ast.IntersectAll:
				op, all = sqlast.SetOpIntersect, true
			case ast.Except:
				op = sqlast.SetOpExcept
			case ast.ExceptAll:
				op, all = sqlast.SetOpExcept, true
			}
		}
		left = &sqlast.SetOperation{Pos: toPos(sel), Op: op, All: all, Left: left, Right: right}
	}
	return left, nil
}

func (f *Frontend) translateWithClause(with *ast.WithClause) (*sqlast.WithClause, error) {
	wc := &sqlast.WithClause{}
	for _, cte := range with.CTEs {
		var inner *sqlast.Query
		switch body := cte.Query.Query.(type) {
		case *ast.SelectStmt:
			q, err := f.translateSelectStmt(body)
			if err != nil {
				return nil, err
			}
			inner = q
		case *ast.SetOprStmt:
			setBody, err := f.translateSetOpr(body)
			if err != nil {
				return nil, err
			}
			inner = &sqlast.Query{Pos: toPos(body), Body: setBody}
		default:
			return nil, fmt.Errorf("unsupported CTE body %T", body)
		}
		c := &sqlast.CTE{Name: cte.Name.O, Query: inner, Recursive: with.IsRecursive}
		for _, col := range cte.ColNameList {
			c.Columns = append(c.Columns, col.O)
		}
		wc.CTEs = append(wc.CTEs, c)
	}
	return wc, nil
}

func (f *Frontend) translateSelectField(field *ast.SelectField) (*sqlast.SelectItem, error) {
	if field.WildCard != nil {
		qualifier := ""
		if field.WildCard.Table.L != "" {
			qualifier = field.WildCard.Table.O
		}
		return &sqlast.SelectItem{Pos: toPos(field), Wildcard: true, Qualifier: qualifier}, nil
	}
	e, err := f.translateExpr(field.Expr)
	if err != nil {
		return nil, err
	}
	alias := ""
	if field.AsName.L != "" {
		alias = field.AsName.O
	}
	return &sqlast.SelectItem{Pos: toPos(field), Expr: e, Alias: alias}, nil
}

func (f *Frontend) translateGroupBy(gb *ast.GroupByClause) (*sqlast.GroupByClause, error) {
	out := &sqlast.GroupByClause{Mode: sqlast.GroupBySimple}
	for _, item := range gb.Items {
		e, err := f.translateExpr(item.Expr)
		if err != nil {
			return nil, err
		}
		out.Items = append(out.Items, e)
	}
	return out, nil
}

func (f *Frontend) translateOrderBy(ob *ast.OrderByClause) ([]*sqlast.OrderItem, error) {
	var items []*sqlast.OrderItem
	for _, item := range ob.Items {
		e, err := f.translateExpr(item.Expr)
		if err != nil {
			return nil, err
		}
		items = append(items, &sqlast.OrderItem{Expr: e, Desc: item.Desc})
	}
	return items, nil
}

func (f *Frontend) translateLimit(l *ast.Limit) (*sqlast.Limit, error) {
	out := &sqlast.Limit{}
	if l.Count != nil {
		e, err := f.translateExpr(l.Count)
		if err != nil {
			return nil, err
		}
		out.Count = e
	}
	if l.Offset != nil {
		e, err := f.translateExpr(l.Offset)
		if err != nil {
			return nil, err
		}
		out.Offset = e
	}
	return out, nil
}

func (f *Frontend) translateJoin(node ast.ResultSetNode) (sqlast.TableFactor, error) {
	switch n := node.(type) {
	case *ast.TableSource:
		return f.translateTableSource(n)
	case *ast.Join:
		if n.Right == nil {
			return f.translateJoin(n.Left)
		}
		left, err := f.translateJoin(n.Left)
		if err != nil {
			return nil, err
		}
		right, err := f.translateJoin(n.Right)
		if err != nil {
			return nil, err
		}
		je := &sqlast.JoinExpr{Pos: toPos(n), Left: left, Right: right, Kind: translateJoinKind(n)}
		if n.On != nil && n.On.Expr != nil {
			on, err := f.translateExpr(n.On.Expr)
			if err != nil {
				return nil, err
			}
			je.On = on
		}
		for _, col := range n.Using {
			je.Using = append(je.Using, col.Name.O)
		}
		return je, nil
	default:
		return nil, fmt.Errorf("unsupported table reference %T", node)
	}
}

func translateJoinKind(j *ast.Join) sqlast.JoinKind {
	switch j.Tp {
	case ast.LeftJoin:
		return sqlast.JoinLeft
	case ast.RightJoin:
		return sqlast.JoinRight
	default:
		if j.On == nil && len(j.Using) == 0 {
			return sqlast.JoinCross
		}
		return sqlast.JoinInner
	}
}

func (f *Frontend) translateTableSource(ts *ast.TableSource) (sqlast.TableFactor, error) {
	alias := ""
	if ts.AsName.L != "" {
		alias = ts.AsName.O
	}
	switch src := ts.Source.(type) {
	case *ast.TableName:
		return &sqlast.NamedTable{Pos: toPos(ts), Schema: src.Schema.O, Name: src.Name.O, Alias: alias}, nil
	case *ast.SelectStmt:
		q, err := f.translateSelectStmt(src)
		if err != nil {
			return nil, err
		}
		return &sqlast.DerivedTable{Pos: toPos(ts), Query: q, Alias: alias}, nil
	case *ast.SetOprStmt:
		body, err := f.translateSetOpr(src)
		if err != nil {
			return nil, err
		}
		return &sqlast.DerivedTable{Pos: toPos(ts), Query: &sqlast.Query{Pos: toPos(src), Body: body}, Alias: alias}, nil
	default:
		return nil, fmt.Errorf("unsupported table source %T", src)
	}
}

func (f *Frontend) translateExpr(e ast.ExprNode) (sqlast.Expr, error) {
	if e == nil {
		return nil, nil
	}
	switch n := e.(type) {
	case *ast.ColumnNameExpr:
		return &sqlast.ColumnRef{Pos: toPos(n), Qualifier: n.Name.Table.O, Name: n.Name.Name.O}, nil

	case *ast.ValueExpr:
		return f.translateLiteral(n), nil

	case *ast.ParenthesesExpr:
		return f.translateExpr(n.Expr)

	case *ast.BinaryOperationExpr:
		left, err := f.translateExpr(n.L)
		if err != nil {
			return nil, err
		}
		right, err := f.translateExpr(n.R)
		if err != nil {
			return nil, err
		}
		op, ok := translateBinOp(n.Op)
		if !ok {
			return nil, fmt.Errorf("unsupported binary operator %v", n.Op)
		}
		return &sqlast.BinaryExpr{Pos: toPos(n), Op: op, Left: left, Right: right}, nil

	case *ast.UnaryOperationExpr:
		inner, err := f.translateExpr(n.V)
		if err != nil {
			return nil, err
		}
		op := sqlast.OpNeg
		if n.Op == opcode.Plus {
			op = sqlast.OpPos
		}
		return &sqlast.UnaryExpr{Pos: toPos(n), Op: op, Expr: inner}, nil

	case *ast.IsNullExpr:
		inner, err := f.translateExpr(n.Expr)
		if err != nil {
			return nil, err
		}
		check := sqlast.IsNull
		if n.Not {
			check = sqlast.IsNotNull
		}
		return &sqlast.IsNullExpr{Pos: toPos(n), Expr: inner, Check: check}, nil

	case *ast.IsTruthExpr:
		inner, err := f.translateExpr(n.Expr)
		if err != nil {
			return nil, err
		}
		check := sqlast.IsTrue
		if n.True == 0 {
			check = sqlast.IsFalse
		}
		if n.Not {
			// "IS NOT TRUE" collapses to the opposite truth check; a
			// dedicated negated-flag is not worth a new node type.
			if check == sqlast.IsTrue {
				check = sqlast.IsFalse
			} else {
				check = sqlast.IsTrue
			}
		}
		return &sqlast.IsNullExpr{Pos: toPos(n), Expr: inner, Check: check}, nil

	case *ast.BetweenExpr:
		inner, err := f.translateExpr(n.Expr)
		if err != nil {
			return nil, err
		}
		lo, err := f.translateExpr(n.Left)
		if err != nil {
			return nil, err
		}
		hi, err := f.translateExpr(n.Right)
		if err != nil {
			return nil, err
		}
		return &sqlast.BetweenExpr{Pos: toPos(n), Expr: inner, Low: lo, High: hi, Not: n.Not}, nil

	case *ast.PatternInExpr:
		inner, err := f.translateExpr(n.Expr)
		if err != nil {
			return nil, err
		}
		out := &sqlast.InExpr{Pos: toPos(n), Expr: inner, Not: n.Not}
		if n.Sel != nil {
			sq, err := f.translateSubquery(n.Sel)
			if err != nil {
				return nil, err
			}
			out.Subquery = sq
			return out, nil
		}
		for _, item := range n.List {
			v, err := f.translateExpr(item)
			if err != nil {
				return nil, err
			}
			out.List = append(out.List, v)
		}
		return out, nil

	case *ast.PatternLikeOrIlikeExpr:
		left, err := f.translateExpr(n.Expr)
		if err != nil {
			return nil, err
		}
		right, err := f.translateExpr(n.Pattern)
		if err != nil {
			return nil, err
		}
		op := sqlast.OpLike
		be := &sqlast.BinaryExpr{Pos: toPos(n), Op: op, Left: left, Right: right}
		if n.Not {
			return &sqlast.UnaryExpr{Pos: toPos(n), Op: sqlast.OpNot, Expr: be}, nil
		}
		return be, nil

	case *ast.CaseExpr:
		out := &sqlast.CaseExpr{Pos: toPos(n)}
		if n.Value != nil {
			v, err := f.translateExpr(n.Value)
			if err != nil {
				return nil, err
			}
			out.Operand = v
		}
		for _, w := range n.WhenClauses {
			when, err := f.translateExpr(w.Expr)
			if err != nil {
				return nil, err
			}
			then, err := f.translateExpr(w.Result)
			if err != nil {
				return nil, err
			}
			out.Whens = append(out.Whens, &sqlast.CaseWhen{When: when, Then: then})
		}
		if n.ElseClause != nil {
			els, err := f.translateExpr(n.ElseClause)
			if err != nil {
				return nil, err
			}
			out.Else = els
		}
		return out, nil

	case *ast.FuncCallExpr:
		out := &sqlast.FuncCall{Pos: toPos(n), Name: n.FnName.O}
		for _, arg := range n.Args {
			v, err := f.translateExpr(arg)
			if err != nil {
				return nil, err
			}
			out.Args = append(out.Args, v)
		}
		return out, nil

	case *ast.AggregateFuncExpr:
		out := &sqlast.FuncCall{Pos: toPos(n), Name: n.F, Distinct: n.Distinct}
		for _, arg := range n.Args {
			v, err := f.translateExpr(arg)
			if err != nil {
				return nil, err
			}
			out.Args = append(out.Args, v)
		}
		return out, nil

	case *ast.WindowFuncExpr:
		out := &sqlast.FuncCall{Pos: toPos(n), Name: n.Name, Window: &sqlast.WindowSpec{}}
		for _, arg := range n.Args {
			v, err := f.translateExpr(arg)
			if err != nil {
				return nil, err
			}
			out.Args = append(out.Args, v)
		}
		return out, nil

	case *ast.SubqueryExpr:
		return f.translateSubquery(n)

	case *ast.ExistsSubqueryExpr:
		inner, ok := n.Sel.(*ast.SubqueryExpr)
		if !ok {
			return nil, fmt.Errorf("unsupported EXISTS operand %T", n.Sel)
		}
		sq, err := f.translateSubquery(inner)
		if err != nil {
			return nil, err
		}
		sq.Quantifier = "EXISTS"
		if n.Not {
			return &sqlast.UnaryExpr{Pos: toPos(n), Op: sqlast.OpNot, Expr: sq}, nil
		}
		return sq, nil

	case *ast.CompareSubqueryExpr:
		left, err := f.translateExpr(n.L)
		if err != nil {
			return nil, err
		}
		inner, ok := n.R.(*ast.SubqueryExpr)
		if !ok {
			return nil, fmt.Errorf("unsupported comparison-subquery operand %T", n.R)
		}
		sq, err := f.translateSubquery(inner)
		if err != nil {
			return nil, err
		}
		if n.All {
			sq.Quantifier = "ALL"
		} else {
			sq.Quantifier = "ANY"
		}
		op, ok := translateBinOp(n.Op)
		if !ok {
			return nil, fmt.Errorf("unsupported comparison operator %v", n.Op)
		}
		return &sqlast.BinaryExpr{Pos: toPos(n), Op: op, Left: left, Right: sq}, nil

	case *ast.RowExpr:
		out := &sqlast.ArrayExpr{Pos: toPos(n)}
		for _, v := range n.Values {
			item, err := f.translateExpr(v)
			if err != nil {
				return nil, err
			}
			out.Items = append(out.Items, item)
		}
		return out, nil

	case *ast.DefaultExpr:
		return &sqlast.Literal{Pos: toPos(n), Kind: sqlast.LiteralNull}, nil

	default:
		return nil, fmt.Errorf("unsupported expression %T", n)
	}
}

func (f *Frontend) translateSubquery(n *ast.SubqueryExpr) (*sqlast.SubqueryExpr, error) {
	sel, ok := n.Query.(*ast.SelectStmt)
	if !ok {
		if setOpr, ok := n.Query.(*ast.SetOprStmt); ok {
			body, err := f.translateSetOpr(setOpr)
			if err != nil {
				return nil, err
			}
			return &sqlast.SubqueryExpr{Pos: toPos(n), Query: &sqlast.Query{Pos: toPos(n), Body: body}}, nil
		}
		return nil, fmt.Errorf("unsupported subquery body %T", n.Query)
	}
	q, err := f.translateSelectStmt(sel)
	if err != nil {
		return nil, err
	}
	return &sqlast.SubqueryExpr{Pos: toPos(n), Query: q}, nil
}

func (f *Frontend) translateLiteral(v *ast.ValueExpr) *sqlast.Literal {
	text := f.exprToString(v)
	if v.GetValue() == nil {
		return &sqlast.Literal{Pos: toPos(v), Kind: sqlast.LiteralNull}
	}
	kind := sqlast.LiteralString
	switch v.GetValue().(type) {
	case int64, uint64:
		kind = sqlast.LiteralInteger
	case float64:
		kind = sqlast.LiteralDecimal
	}
	return &sqlast.Literal{Pos: toPos(v), Kind: kind, Text: text}
}

func translateBinOp(op opcode.Op) (sqlast.BinaryOp, bool) {
	switch op {
	case opcode.EQ:
		return sqlast.OpEq, true
	case opcode.NE:
		return sqlast.OpNeq, true
	case opcode.LT:
		return sqlast.OpLt, true
	case opcode.GT:
		return sqlast.OpGt, true
	case opcode.LE:
		return sqlast.OpLe, true
	case opcode.GE:
		return sqlast.OpGe, true
	case opcode.NullEQ:
		return sqlast.OpIsDistinctFrom, true
	case opcode.Plus:
		return sqlast.OpAdd, true
	case opcode.Minus:
		return sqlast.OpSub, true
	case opcode.Mul:
		return sqlast.OpMul, true
	case opcode.Div:
		return sqlast.OpDiv, true
	case opcode.Mod:
		return sqlast.OpMod, true
	case opcode.LogicAnd:
		return sqlast.OpAnd, true
	case opcode.LogicOr:
		return sqlast.OpOr, true
	default:
		return 0, false
	}
}

func (f *Frontend) translateInsert(stmt *ast.InsertStmt) (*sqlast.Insert, error) {
	ts, ok := stmt.Table.TableRefs.Left.(*ast.TableSource)
	if !ok {
		return nil, fmt.Errorf("unsupported insert target %T", stmt.Table.TableRefs.Left)
	}
	tn, ok := ts.Source.(*ast.TableName)
	if !ok {
		return nil, fmt.Errorf("unsupported insert target source %T", ts.Source)
	}

	out := &sqlast.Insert{
		Pos:     toPos(stmt),
		Table:   &sqlast.NamedTable{Pos: toPos(tn), Schema: tn.Schema.O, Name: tn.Name.O},
		HasCols: len(stmt.Columns) > 0,
	}
	for _, col := range stmt.Columns {
		out.Columns = append(out.Columns, col.Name.O)
	}

	if stmt.Select != nil {
		switch sel := stmt.Select.(type) {
		case *ast.SelectStmt:
			q, err := f.translateSelectBody(sel)
			if err != nil {
				return nil, err
			}
			out.Source = q
		case *ast.SetOprStmt:
			body, err := f.translateSetOpr(sel)
			if err != nil {
				return nil, err
			}
			out.Source = body
		default:
			return nil, fmt.Errorf("unsupported insert source %T", sel)
		}
		return out, nil
	}

	values := &sqlast.Values{Pos: toPos(stmt)}
	for _, row := range stmt.Lists {
		var r []sqlast.Expr
		for _, item := range row {
			v, err := f.translateExpr(item)
			if err != nil {
				return nil, err
			}
			r = append(r, v)
		}
		values.Rows = append(values.Rows, r)
	}
	out.Source = values
	return out, nil
}

func (f *Frontend) translateUpdate(stmt *ast.UpdateStmt) (*sqlast.Update, error) {
	ts, ok := stmt.TableRefs.TableRefs.Left.(*ast.TableSource)
	if !ok {
		return nil, fmt.Errorf("unsupported update target %T", stmt.TableRefs.TableRefs.Left)
	}
	tn, ok := ts.Source.(*ast.TableName)
	if !ok {
		return nil, fmt.Errorf("unsupported update target source %T", ts.Source)
	}

	out := &sqlast.Update{
		Pos:   toPos(stmt),
		Table: &sqlast.NamedTable{Pos: toPos(tn), Schema: tn.Schema.O, Name: tn.Name.O},
	}
	for _, a := range stmt.List {
		v, err := f.translateExpr(a.Expr)
		if err != nil {
			return nil, err
		}
		out.Assignments = append(out.Assignments, &sqlast.Assignment{Column: a.Column.Name.O, Value: v})
	}
	if stmt.Where != nil {
		w, err := f.translateExpr(stmt.Where)
		if err != nil {
			return nil, err
		}
		out.Where = w
	}
	return out, nil
}

func (f *Frontend) translateDelete(stmt *ast.DeleteStmt) (*sqlast.Delete, error) {
	ts, ok := stmt.TableRefs.TableRefs.Left.(*ast.TableSource)
	if !ok {
		return nil, fmt.Errorf("unsupported delete target %T", stmt.TableRefs.TableRefs.Left)
	}
	tn, ok := ts.Source.(*ast.TableName)
	if !ok {
		return nil, fmt.Errorf("unsupported delete target source %T", ts.Source)
	}

	out := &sqlast.Delete{
		Pos:   toPos(stmt),
		Table: &sqlast.NamedTable{Pos: toPos(tn), Schema: tn.Schema.O, Name: tn.Name.O},
	}
	if stmt.Where != nil {
		w, err := f.translateExpr(stmt.Where)
		if err != nil {
			return nil, err
		}
		out.Where = w
	}
	return out, nil
}
