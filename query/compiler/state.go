package compiler

import (
	"github.com/satishbabariya/sqlchain/query/ast"
	"github.com/satishbabariya/sqlchain/query/failure"
	"github.com/satishbabariya/sqlchain/query/ir"
	"github.com/satishbabariya/sqlchain/query/mapping"
)

// group is the grouping in effect after GroupBy
type group struct {
	key    *scope
	single bool
	elem   *scope
}

// state is a chain compiled so far. Operators accumulate into sel following
// the canonical clause order; a set operation or a regrouping turns the
// statement into a derived table first.
type state struct {
	cc        *compilation
	sel       *ir.Select
	scope     *scope
	compound  *ir.Compound
	group     *group
	projected bool
	parent    *env
}

var setOps = map[ast.SetKind]ir.SetOp{
	ast.SetUnion:     ir.Union,
	ast.SetUnionAll:  ir.UnionAll,
	ast.SetIntersect: ir.Intersect,
	ast.SetExcept:    ir.Except,
}

func (cc *compilation) source(t *mapping.Table, parent *env) *state {
	alias := cc.tableAlias()
	return &state{
		cc:     cc,
		sel:    &ir.Select{From: ir.Table{Name: t.Name, Alias: alias}},
		scope:  entityScope(t, alias),
		parent: parent,
	}
}

func (st *state) env(op string) *env {
	e := &env{cc: st.cc, op: op, group: st.group, parent: st.parent}
	if st.group == nil || st.projected {
		e.current = st.scope
	}
	return e
}

func (st *state) apply(n ast.Node) error {
	switch n := n.(type) {
	case *ast.Filter:
		return st.filter(n.Pred, "where")
	case *ast.Having:
		if st.group == nil {
			return failure.Translationf("having", "having without GroupBy")
		}
		return st.filter(n.Pred, "having")
	case *ast.Project:
		return st.project(n.Shape)
	case *ast.Sort:
		return st.sort(n)
	case *ast.Take:
		st.take(n.N)
		return nil
	case *ast.Skip:
		st.skip(n.N)
		return nil
	case *ast.Distinct:
		st.openCompound()
		st.sel.Distinct = true
		return nil
	case *ast.GroupBy:
		return st.groupBy(n.Key)
	case *ast.Join:
		return st.join(n)
	case *ast.CrossApply:
		return st.crossApply(n)
	case *ast.SetCombine:
		return st.combine(n)
	}
	return failure.Translationf(string(n.Type()), "%w: %s", ErrUnsupportedNode, n.Type())
}

// output is the row the statement returns: the key columns of an unprojected
// grouping, the current row otherwise
func (st *state) output() *scope {
	if st.group != nil && !st.projected {
		return st.group.key
	}
	return st.scope
}

// statement finalizes the select list. Nested statements lose an ORDER BY
// that has no paging attached, since it cannot affect the result.
func (st *state) statement(nested bool) ir.Statement {
	if st.compound != nil {
		return st.compound
	}
	sel := st.sel.Clone()
	sel.Columns = st.output().projections()
	if nested && !sel.Paged() {
		sel.OrderBy = nil
	}
	return sel
}

// wrap turns the statement built so far into a derived table
func (st *state) wrap() {
	out := st.output()
	stmt := st.statement(true)
	alias := st.cc.derivedAlias()
	st.sel = &ir.Select{From: ir.Derived{Stmt: stmt, Alias: alias}}
	st.scope = out.rebase(alias)
	st.compound = nil
	st.group = nil
	st.projected = false
}

func (st *state) openCompound() {
	if st.compound != nil {
		st.wrap()
	}
}

func (st *state) where(pred ir.Expr) {
	if st.group != nil {
		st.sel.Having = ir.And(st.sel.Having, pred)
		return
	}
	st.sel.Where = ir.And(st.sel.Where, pred)
}

func (st *state) filter(pred ast.Expr, op string) error {
	st.openCompound()
	p, err := st.env(op).predicate(pred)
	if err != nil {
		return err
	}
	st.where(p)
	return nil
}

func (st *state) project(shape ast.Shape) error {
	st.openCompound()
	if len(shape.Fields) == 0 {
		return failure.Translationf("select", "projection has no fields")
	}
	sc, err := st.env("select").shape(shape)
	if err != nil {
		return err
	}
	st.scope = sc
	st.projected = true
	return nil
}

func (st *state) sort(n *ast.Sort) error {
	st.openCompound()
	terms, err := st.env("orderBy").keyValues(n.Key)
	if err != nil {
		return err
	}
	if !n.Then {
		st.sel.OrderBy = nil
	}
	for _, t := range terms {
		st.sel.OrderBy = append(st.sel.OrderBy, ir.Order{Expr: t, Desc: n.Desc})
	}
	return nil
}

func (st *state) take(n int) {
	st.openCompound()
	if n < 0 {
		n = 0
	}
	if st.sel.Limit == nil || *st.sel.Limit > n {
		st.sel.Limit = ir.IntPtr(n)
	}
}

func (st *state) skip(n int) {
	st.openCompound()
	if n <= 0 {
		return
	}
	offset := n
	if st.sel.Offset != nil {
		offset += *st.sel.Offset
	}
	st.sel.Offset = ir.IntPtr(offset)
	if st.sel.Limit != nil {
		st.sel.Limit = ir.IntPtr(max(*st.sel.Limit-n, 0))
	}
}

// prepareGroup wraps anything that must be evaluated before rows are grouped
func (st *state) prepareGroup() {
	if st.compound != nil || st.group != nil || st.sel.Paged() || st.sel.Distinct {
		st.wrap()
	}
}

func (st *state) groupBy(key ast.Expr) error {
	st.prepareGroup()
	ks, single, err := st.env("groupBy").keyScope(key)
	if err != nil {
		return err
	}
	st.sel.GroupBy = nil
	for _, l := range ks.leaves() {
		st.sel.GroupBy = append(st.sel.GroupBy, l.expr)
	}
	st.sel.OrderBy = nil
	st.group = &group{key: ks, single: single, elem: st.scope}
	st.projected = false
	return nil
}

// joinSource compiles the inner chain of a join. A chain that is only a source
// and filters joins the table itself and returns the filters for ON; anything
// richer joins as a derived table.
func (st *state) joinSource(inner ast.Node, op string) (*scope, ir.Source, []ir.Expr, error) {
	nodes := ast.Chain(inner)
	if src, ok := nodes[0].(*ast.Source); ok && src.Table != nil && onlyFilters(nodes[1:]) {
		alias := st.cc.tableAlias()
		sc := entityScope(src.Table, alias)
		e := &env{cc: st.cc, op: op, current: sc, parent: st.parent}
		var preds []ir.Expr
		for _, n := range nodes[1:] {
			p, err := e.predicate(n.(*ast.Filter).Pred)
			if err != nil {
				return nil, nil, nil, err
			}
			preds = append(preds, p)
		}
		return sc, ir.Table{Name: src.Table.Name, Alias: alias}, preds, nil
	}

	ist, err := st.cc.chain(inner, st.parent)
	if err != nil {
		return nil, nil, nil, err
	}
	out := ist.output()
	stmt := ist.statement(true)
	alias := st.cc.derivedAlias()
	return out.rebase(alias), ir.Derived{Stmt: stmt, Alias: alias}, nil, nil
}

func onlyFilters(nodes []ast.Node) bool {
	for _, n := range nodes {
		if _, ok := n.(*ast.Filter); !ok {
			return false
		}
	}
	return true
}

func (st *state) join(n *ast.Join) error {
	if st.compound != nil || st.group != nil {
		st.wrap()
	}
	outer := st.scope
	inner, src, filters, err := st.joinSource(n.Inner, "join")
	if err != nil {
		return err
	}

	oe := &env{cc: st.cc, op: "join", current: outer, outer: outer, parent: st.parent}
	ie := &env{cc: st.cc, op: "join", current: inner, inner: inner, parent: st.parent}
	outerKeys, err := oe.keyValues(n.OuterKey)
	if err != nil {
		return err
	}
	innerKeys, err := ie.keyValues(n.InnerKey)
	if err != nil {
		return err
	}
	if len(outerKeys) != len(innerKeys) {
		return failure.Translationf("join", "%w: outer %d, inner %d", ErrKeyMismatch, len(outerKeys), len(innerKeys))
	}

	conds := make([]ir.Expr, 0, len(outerKeys)+len(filters))
	for i := range outerKeys {
		conds = append(conds, ir.Binary{Op: "=", Left: outerKeys[i], Right: innerKeys[i]})
	}
	conds = append(conds, filters...)

	kind := ir.InnerJoin
	if n.Kind == ast.JoinLeft {
		kind = ir.LeftJoin
		inner = inner.nullable()
	}
	st.sel.Joins = append(st.sel.Joins, ir.Join{Kind: kind, Source: src, On: ir.And(conds...)})
	return st.joinResult(outer, inner, n.Result)
}

func (st *state) crossApply(n *ast.CrossApply) error {
	if st.compound != nil || st.group != nil {
		st.wrap()
	}
	outer := st.scope
	inner, src, filters, err := st.joinSource(n.Inner, "crossApply")
	if err != nil {
		return err
	}
	st.sel.Joins = append(st.sel.Joins, ir.Join{Kind: ir.CrossJoin, Source: src})
	for _, f := range filters {
		st.sel.Where = ir.And(st.sel.Where, f)
	}
	return st.joinResult(outer, inner, n.Result)
}

func (st *state) joinResult(outer, inner *scope, result ast.Shape) error {
	if len(result.Fields) == 0 {
		result = ast.Fields(ast.As("outer", ast.OuterRow()), ast.As("inner", ast.InnerRow()))
	}
	re := &env{cc: st.cc, op: "join", outer: outer, inner: inner, parent: st.parent}
	sc, err := re.shape(result)
	if err != nil {
		return err
	}
	st.scope = sc
	st.projected = false
	return nil
}

func (st *state) combine(n *ast.SetCombine) error {
	op, ok := setOps[n.Kind]
	if !ok {
		return failure.Translationf("setCombine", "unknown set operator %q", n.Kind)
	}
	other, err := st.cc.chain(n.Other, st.parent)
	if err != nil {
		return err
	}
	left, right := st.output(), other.output()
	if err := sameShape(left, right); err != nil {
		return err
	}
	st.compound = &ir.Compound{Op: op, Left: st.statement(true), Right: other.statement(true)}
	st.sel = &ir.Select{}
	st.scope = left
	st.group = nil
	st.projected = false
	return nil
}

func sameShape(left, right *scope) error {
	l, r := left.leaves(), right.leaves()
	if len(l) != len(r) {
		return failure.Translationf("setCombine", "%w: %d fields vs %d", ErrShapeMismatch, len(l), len(r))
	}
	for i := range l {
		lc, rc := typeClass(l[i].typ), typeClass(r[i].typ)
		if lc != "" && rc != "" && lc != rc {
			return failure.Translationf("setCombine", "%w: field %d is %s on the left and %s on the right",
				ErrShapeMismatch, i, l[i].typ, r[i].typ)
		}
	}
	return nil
}

// existsStatement is the chain as a SELECT 1 subquery
func (st *state) existsStatement() ir.Statement {
	st.openCompound()
	sel := st.sel.Clone()
	sel.Columns = []ir.Projection{{Expr: ir.One}}
	if !sel.Paged() {
		sel.OrderBy = nil
	}
	return sel
}
