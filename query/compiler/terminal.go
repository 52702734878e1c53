package compiler

import (
	"fmt"
	"reflect"

	"github.com/satishbabariya/sqlchain/query/ast"
	"github.com/satishbabariya/sqlchain/query/dialect"
	"github.com/satishbabariya/sqlchain/query/failure"
	"github.com/satishbabariya/sqlchain/query/ir"
)

func (cc *compilation) terminal(st *state, term Terminal) (*Compiled, error) {
	op := term.Kind.String()
	switch term.Kind {
	case TerminalList, TerminalFirst, TerminalSingle, TerminalElementAt:
		switch term.Kind {
		case TerminalFirst:
			st.take(1)
		case TerminalSingle:
			// a second row is enough to report the violation
			st.take(2)
		case TerminalElementAt:
			if term.Index < 0 {
				st.take(0)
				break
			}
			st.skip(term.Index)
			st.take(1)
		}
		out := st.output()
		return &Compiled{
			Stmt: st.statement(false),
			Plan: Plan{Kind: PlanRows, Terminal: term, Table: out.table, Fields: out.outFields()},
		}, nil

	case TerminalCount:
		st.openCompound()
		var sel *ir.Select
		if st.sel.Simple() && st.group == nil {
			sel = st.sel.Clone()
			sel.OrderBy = nil
		} else {
			sel = &ir.Select{From: ir.Derived{Stmt: st.statement(true), Alias: cc.derivedAlias()}}
		}
		sel.Columns = []ir.Projection{{Expr: ir.Aggregate{Func: string(ast.AggCount)}, Alias: "count"}}
		return scalar(sel, term, "count", int64Type), nil

	case TerminalAny:
		sel := &ir.Select{Columns: []ir.Projection{{Expr: flag(ir.Exists{Sub: st.existsStatement()}), Alias: "any"}}}
		return scalar(sel, term, "any", boolType), nil

	case TerminalAll:
		if term.Pred == nil {
			return nil, failure.Translationf(op, "all requires a predicate")
		}
		st.openCompound()
		if st.sel.Paged() || st.sel.Distinct {
			st.wrap()
		}
		p, err := st.env(op).predicate(term.Pred)
		if err != nil {
			return nil, err
		}
		st.where(ir.Unary{Op: "NOT", X: p})
		sub := st.existsStatement()
		sel := &ir.Select{Columns: []ir.Projection{{Expr: flag(ir.Exists{Sub: sub, Not: true}), Alias: "all"}}}
		return scalar(sel, term, "all", boolType), nil

	case TerminalSum, TerminalMin, TerminalMax, TerminalAverage:
		return cc.aggregate(st, term)
	}
	return nil, failure.Translationf(op, "unknown terminal %s", term.Kind)
}

func flag(pred ir.Expr) ir.Expr {
	return ir.Case{Whens: []ir.When{{Cond: pred, Then: ir.One}}, Else: ir.Zero}
}

func scalar(sel *ir.Select, term Terminal, name string, typ reflect.Type) *Compiled {
	return &Compiled{
		Stmt: sel,
		Plan: Plan{Kind: PlanScalar, Terminal: term, Fields: []OutField{{Name: name, Type: typ}}},
	}
}

var aggFuncs = map[TerminalKind]ast.AggFunc{
	TerminalSum:     ast.AggSum,
	TerminalMin:     ast.AggMin,
	TerminalMax:     ast.AggMax,
	TerminalAverage: ast.AggAvg,
}

func (cc *compilation) aggregate(st *state, term Terminal) (*Compiled, error) {
	op := term.Kind.String()
	st.openCompound()
	if !st.sel.Simple() || st.group != nil {
		st.wrap()
	}

	var v value
	if term.Selector != nil {
		var err error
		if v, err = st.env(op).scalar(term.Selector); err != nil {
			return nil, err
		}
	} else {
		leaves := st.output().leaves()
		if len(leaves) != 1 {
			return nil, failure.Translationf(op, "%s needs a selector when the chain projects %d fields", op, len(leaves))
		}
		v = value{expr: leaves[0].expr, typ: leaves[0].typ}
	}

	arg, typ := v.expr, v.typ
	fn := aggFuncs[term.Kind]
	if fn == ast.AggAvg {
		arg = ir.Cast{X: arg, To: dialect.CastFloat}
		typ = float64Type
	}
	sel := st.sel.Clone()
	sel.OrderBy = nil
	sel.Columns = []ir.Projection{{Expr: ir.Aggregate{Func: string(fn), Arg: arg}, Alias: "value"}}
	return &Compiled{
		Stmt: sel,
		Plan: Plan{Kind: PlanScalar, Terminal: term, Fields: []OutField{{Name: "value", Column: v.col, Type: typ}}},
	}, nil
}

// delete compiles a destructive terminal. Only filters may precede it, and at
// least one is required.
func (cc *compilation) delete(chain ast.Node) (*Compiled, error) {
	const op = "delete"
	nodes := ast.Chain(chain)
	src, ok := nodes[0].(*ast.Source)
	if !ok {
		return nil, failure.Translationf(op, "chain does not start with a source")
	}
	if src.Table == nil {
		return nil, failure.Mappingf("", "source has no table mapping")
	}
	for _, n := range nodes[1:] {
		switch n.(type) {
		case *ast.Take, *ast.Skip:
			return nil, failure.Translationf(op, "%w: chain carries %s", ErrUnsafeDelete, n.Type())
		}
	}

	sc := entityScope(src.Table, src.Table.Name)
	e := &env{cc: cc, op: op, current: sc}
	var where ir.Expr
	for _, n := range nodes[1:] {
		f, ok := n.(*ast.Filter)
		if !ok {
			return nil, failure.Translationf(op, "%w: %s before delete", ErrUnsupportedNode, n.Type())
		}
		p, err := e.predicate(f.Pred)
		if err != nil {
			return nil, err
		}
		where = ir.And(where, p)
	}
	if where == nil {
		return nil, failure.Translationf(op, "%w: chain has no filter", ErrUnsafeDelete)
	}
	return &Compiled{
		Stmt: &ir.Delete{Table: ir.Table{Name: src.Table.Name}, Where: where},
		Plan: Plan{Kind: PlanExec, Terminal: Terminal{Kind: TerminalDelete}, Table: src.Table},
	}, nil
}

// groups compiles a GroupBy chain whose groups are read with their elements.
// The element rows are selected with their key columns appended and ordered by
// key; Having filters become an EXISTS over the grouped statement correlated on
// the key.
func (cc *compilation) groups(chain ast.Node) (*Compiled, error) {
	const op = "groups"
	var havings []ast.Expr
	n := chain
	for {
		h, ok := n.(*ast.Having)
		if !ok {
			break
		}
		havings = append([]ast.Expr{h.Pred}, havings...)
		n = h.Input
	}
	gb, ok := n.(*ast.GroupBy)
	if !ok {
		return nil, failure.Translationf(op, "reading groups needs a chain ending in GroupBy, got %s", n.Type())
	}

	a, err := cc.chain(gb.Input, nil)
	if err != nil {
		return nil, err
	}
	a.prepareGroup()
	keys, single, err := a.env("groupBy").keyScope(gb.Key)
	if err != nil {
		return nil, err
	}
	keyLeaves := keys.leaves()

	if len(havings) > 0 {
		b, err := cc.chain(gb.Input, nil)
		if err != nil {
			return nil, err
		}
		if err := b.groupBy(gb.Key); err != nil {
			return nil, err
		}
		for _, h := range havings {
			if err := b.filter(h, "having"); err != nil {
				return nil, err
			}
		}
		inner := b.sel.Clone()
		inner.Columns = []ir.Projection{{Expr: ir.One}}
		inner.OrderBy = nil
		for i, l := range b.group.key.leaves() {
			inner.Where = ir.And(inner.Where, nullSafeEq(l.expr, keyLeaves[i].expr))
		}
		a.sel.Where = ir.And(a.sel.Where, ir.Exists{Sub: inner})
	}

	elem := a.scope
	sel := a.sel.Clone()
	sel.Columns = elem.projections()
	prior := sel.OrderBy
	sel.OrderBy = nil
	plan := Plan{
		Kind:      PlanGroups,
		Terminal:  Terminal{Kind: TerminalGroups},
		Table:     elem.table,
		Fields:    elem.outFields(),
		SingleKey: single,
	}
	for i, l := range keyLeaves {
		sel.Columns = append(sel.Columns, ir.Projection{Expr: l.expr, Alias: fmt.Sprintf("__k%d", i)})
		sel.OrderBy = append(sel.OrderBy, ir.Order{Expr: l.expr})
		plan.Keys = append(plan.Keys, OutField{Name: l.name, Column: l.col, Type: l.typ})
	}
	sel.OrderBy = append(sel.OrderBy, prior...)
	return &Compiled{Stmt: sel, Plan: plan}, nil
}

// nullSafeEq matches two key values treating NULL as equal to NULL
func nullSafeEq(a, b ir.Expr) ir.Expr {
	eq := ir.Binary{Op: "=", Left: a, Right: b}
	bothNull := ir.Binary{Op: "AND", Left: ir.IsNull{X: a}, Right: ir.IsNull{X: b}}
	return ir.Binary{Op: "OR", Left: eq, Right: bothNull}
}
