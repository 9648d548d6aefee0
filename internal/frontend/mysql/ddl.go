package mysql

import (
	"github.com/pingcap/tidb/pkg/parser/ast"

	"sqlaudit/internal/sqlast"
)

func (f *Frontend) translateCreateTable(stmt *ast.CreateTableStmt) (*sqlast.CreateTable, error) {
	table := &sqlast.CreateTable{
		Pos:         toPos(stmt),
		Schema:      stmt.Table.Schema.O,
		Name:        stmt.Table.Name.O,
		IfNotExists: stmt.IfNotExists,
	}

	for _, col := range stmt.Cols {
		table.Columns = append(table.Columns, f.translateColumnDef(col))
	}
	for _, c := range stmt.Constraints {
		if tc := f.translateConstraint(c); tc != nil {
			table.Constraints = append(table.Constraints, tc)
		}
	}
	return table, nil
}

func (f *Frontend) translateColumnDef(col *ast.ColumnDef) *sqlast.ColumnDef {
	c := &sqlast.ColumnDef{
		Pos:     toPos(col),
		Name:    col.Name.Name.O,
		RawType: col.Tp.String(),
	}
	for _, opt := range col.Options {
		switch opt.Tp {
		case ast.ColumnOptionNotNull:
			c.NotNull = true
		case ast.ColumnOptionNull:
			c.ExplicitNull = true
		case ast.ColumnOptionPrimaryKey:
			c.PrimaryKey = true
			c.NotNull = true
		case ast.ColumnOptionUniqKey:
			c.Unique = true
		case ast.ColumnOptionAutoIncrement:
			c.Identity = true
		case ast.ColumnOptionGenerated:
			c.Generated = true
		case ast.ColumnOptionDefaultValue:
			c.Default = f.exprToString(opt.Expr)
		}
	}
	return c
}

func (f *Frontend) translateConstraint(c *ast.Constraint) *sqlast.TableConstraint {
	columns := make([]string, 0, len(c.Keys))
	for _, key := range c.Keys {
		if key.Column != nil {
			columns = append(columns, key.Column.Name.O)
		}
	}
	switch c.Tp {
	case ast.ConstraintPrimaryKey:
		return &sqlast.TableConstraint{Kind: sqlast.ConstraintPrimaryKey, Columns: columns}
	case ast.ConstraintUniq, ast.ConstraintUniqKey, ast.ConstraintUniqIndex:
		return &sqlast.TableConstraint{Kind: sqlast.ConstraintUnique, Columns: columns}
	case ast.ConstraintForeignKey:
		tc := &sqlast.TableConstraint{Kind: sqlast.ConstraintForeignKey, Columns: columns}
		if c.Refer != nil {
			tc.RefTable = c.Refer.Table.Name.O
			for _, spec := range c.Refer.IndexPartSpecifications {
				if spec.Column != nil {
					tc.RefColumns = append(tc.RefColumns, spec.Column.Name.O)
				}
			}
		}
		return tc
	case ast.ConstraintCheck:
		return &sqlast.TableConstraint{Kind: sqlast.ConstraintCheck, Columns: columns, RawCheck: f.exprToString(c.Expr)}
	default:
		return nil
	}
}

func (f *Frontend) translateCreateView(stmt *ast.CreateViewStmt) (*sqlast.CreateView, error) {
	view := &sqlast.CreateView{
		Pos:    toPos(stmt),
		Schema: stmt.ViewName.Schema.O,
		Name:   stmt.ViewName.Name.O,
	}
	for _, col := range stmt.Cols {
		view.Columns = append(view.Columns, col.O)
	}

	if sel, ok := stmt.Select.(*ast.SelectStmt); ok {
		q, err := f.translateSelectStmt(sel)
		if err != nil {
			return nil, err
		}
		view.Query = q
	} else if setOpr, ok := stmt.Select.(*ast.SetOprStmt); ok {
		body, err := f.translateSetOpr(setOpr)
		if err != nil {
			return nil, err
		}
		view.Query = &sqlast.Query{Pos: toPos(setOpr), Body: body}
	}
	return view, nil
}

func (f *Frontend) translateAlterTable(stmt *ast.AlterTableStmt) (*sqlast.AlterTable, error) {
	alter := &sqlast.AlterTable{
		Pos:    toPos(stmt),
		Schema: stmt.Table.Schema.O,
		Name:   stmt.Table.Name.O,
	}
	for _, spec := range stmt.Specs {
		op := f.translateAlterSpec(spec)
		if op != nil {
			alter.Operations = append(alter.Operations, op)
		}
	}
	return alter, nil
}

func (f *Frontend) translateAlterSpec(spec *ast.AlterTableSpec) *sqlast.AlterOp {
	switch spec.Tp {
	case ast.AlterTableAddColumns:
		if len(spec.NewColumns) == 0 {
			return nil
		}
		return &sqlast.AlterOp{Kind: sqlast.AlterAddColumn, Column: f.translateColumnDef(spec.NewColumns[0])}
	case ast.AlterTableDropColumn:
		return &sqlast.AlterOp{Kind: sqlast.AlterDropColumn, ColumnName: spec.OldColumnName.Name.O}
	case ast.AlterTableChangeColumn, ast.AlterTableRenameColumn:
		op := &sqlast.AlterOp{Kind: sqlast.AlterRenameColumn}
		if spec.OldColumnName != nil {
			op.ColumnName = spec.OldColumnName.Name.O
		}
		if len(spec.NewColumns) > 0 {
			op.NewName = spec.NewColumns[0].Name.Name.O
		}
		return op
	case ast.AlterTableRenameTable:
		return &sqlast.AlterOp{Kind: sqlast.AlterRenameTable, NewName: spec.NewTable.Name.O}
	case ast.AlterTableAddConstraint:
		if tc := f.translateConstraint(spec.Constraint); tc != nil {
			return &sqlast.AlterOp{Kind: sqlast.AlterAddConstraint, Constraint: tc}
		}
		return nil
	default:
		return &sqlast.AlterOp{Kind: sqlast.AlterUnsupported}
	}
}
