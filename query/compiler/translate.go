package compiler

import (
	"reflect"

	"github.com/satishbabariya/sqlchain/query/ast"
	"github.com/satishbabariya/sqlchain/query/dialect"
	"github.com/satishbabariya/sqlchain/query/failure"
	"github.com/satishbabariya/sqlchain/query/ir"
	"github.com/satishbabariya/sqlchain/query/mapping"
)

// env is what an expression can see while it is translated
type env struct {
	cc      *compilation
	op      string
	current *scope
	outer   *scope
	inner   *scope
	group   *group
	parent  *env
	inAgg   bool
}

// value is a translated expression with what is known about it
type value struct {
	expr ir.Expr
	pred bool
	col  *mapping.Column
	typ  reflect.Type
	row  *scope
	null bool
	// lit holds the caller value of a Literal or Param so it can be re-encoded
	// against an enum column
	lit     bool
	litName string
	litVal  any
}

func (e *env) fail(format string, args ...any) error {
	return failure.Translationf(e.op, format, args...)
}

func (e *env) profile() dialect.Profile {
	return e.cc.c.profile
}

// predicate translates x for a boolean context
func (e *env) predicate(x ast.Expr) (ir.Expr, error) {
	v, err := e.translate(x)
	if err != nil {
		return nil, err
	}
	if v.row != nil {
		return nil, e.fail("a whole row cannot be used as a condition")
	}
	return e.asPred(v), nil
}

// scalar translates x for a value context
func (e *env) scalar(x ast.Expr) (value, error) {
	v, err := e.translate(x)
	if err != nil {
		return value{}, err
	}
	if v.row != nil {
		return value{}, e.fail("a whole row cannot be used as a value")
	}
	if v.pred {
		v = value{expr: e.asValue(v), typ: boolType}
	}
	return v, nil
}

func (e *env) asPred(v value) ir.Expr {
	switch {
	case v.pred:
		return v.expr
	case v.null:
		return ir.False
	case v.lit && v.litName == "":
		if b, ok := v.litVal.(bool); ok {
			if b {
				return ir.True
			}
			return ir.False
		}
	}
	return ir.Binary{Op: "=", Left: v.expr, Right: ir.Param{Value: true}}
}

func (e *env) asValue(v value) ir.Expr {
	if v.pred {
		return ir.Case{Whens: []ir.When{{Cond: v.expr, Then: ir.One}}, Else: ir.Zero}
	}
	return v.expr
}

func (e *env) translate(x ast.Expr) (value, error) {
	switch x := x.(type) {
	case nil:
		return value{}, e.fail("missing expression")
	case ast.ColumnRef:
		return e.column(x)
	case ast.Literal:
		return literal("", x.Value), nil
	case ast.Param:
		return literal(x.Name, x.Value), nil
	case ast.Binary:
		return e.binary(x)
	case ast.Unary:
		return e.unary(x)
	case ast.Call:
		return e.call(x)
	case ast.Conditional:
		return e.conditional(x)
	case ast.Coalesce:
		return e.coalesce(x)
	case ast.HasValue:
		v, err := e.scalar(x.X)
		if err != nil {
			return value{}, err
		}
		return value{expr: ir.IsNull{X: v.expr, Not: true}, pred: true}, nil
	case ast.Like:
		return e.like(x)
	case ast.InList:
		return e.inList(x)
	case ast.InQuery:
		return e.inQuery(x)
	case ast.Exists:
		sub, err := e.subquery(x.Query)
		if err != nil {
			return value{}, err
		}
		return value{expr: ir.Exists{Sub: sub.existsStatement()}, pred: true}, nil
	case ast.Aggregate:
		return e.aggregate(x)
	case ast.Cast:
		v, err := e.scalar(x.X)
		if err != nil {
			return value{}, err
		}
		return value{expr: ir.Cast{X: v.expr, To: x.To}, typ: castType(x.To)}, nil
	case ast.Now:
		if clock := e.cc.c.clock; clock != nil {
			return value{expr: ir.Param{Value: clock()}, typ: timeType}, nil
		}
		return value{expr: ir.Now{}, typ: timeType}, nil
	case ast.Shape:
		return value{}, e.fail("composite value %v cannot be used as a scalar", x.Names())
	}
	return value{}, e.fail("%w: %T", ErrUnsupportedExpr, x)
}

func literal(name string, v any) value {
	if isNil(v) {
		return value{expr: ir.Null, null: true}
	}
	return value{
		expr:    ir.Param{Name: name, Value: v},
		typ:     typeOf(v),
		lit:     true,
		litName: name,
		litVal:  v,
	}
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

func (e *env) sideScope(side ast.Side) (*scope, error) {
	switch side {
	case ast.SideCurrent:
		if e.current == nil {
			if e.group != nil {
				return nil, e.fail("%w", ErrGroupedReference)
			}
			return nil, e.fail("no current row here")
		}
		return e.current, nil
	case ast.SideOuter:
		if e.outer == nil {
			return nil, e.fail("the outer row is only visible in join results")
		}
		return e.outer, nil
	case ast.SideInner:
		if e.inner == nil {
			return nil, e.fail("the inner row is only visible in join results")
		}
		return e.inner, nil
	case ast.SideParent:
		if e.parent == nil {
			return nil, e.fail("parent row referenced outside a subquery")
		}
		return e.parent.sideScope(ast.SideCurrent)
	case ast.SideKey:
		if e.group == nil {
			return nil, e.fail("group key referenced without GroupBy")
		}
		return e.group.key, nil
	}
	return nil, e.fail("unknown row side %d", side)
}

func (e *env) column(ref ast.ColumnRef) (value, error) {
	sc, err := e.sideScope(ref.Side)
	if err != nil {
		return value{}, err
	}
	if ref.Name == "" {
		if ref.Side == ast.SideKey && e.group.single {
			return fieldValue(sc.fields[0]), nil
		}
		return value{row: sc}, nil
	}
	f, ok := sc.lookup(ref.Name)
	if !ok {
		return value{}, e.fail("unknown field %q on the %s row", ref.Name, ref.Side)
	}
	return fieldValue(f), nil
}

func fieldValue(f *field) value {
	if f.row != nil {
		return value{row: f.row}
	}
	return value{expr: f.expr, col: f.col, typ: f.typ}
}

// encodeFor re-encodes a caller value compared against an enum column
func (e *env) encodeFor(col *mapping.Column, v value) (value, error) {
	if col == nil || col.Enum == mapping.EnumNone || !v.lit || v.litVal == nil {
		return v, nil
	}
	enc, err := col.Encode(v.litVal)
	if err != nil {
		return value{}, e.fail("encode %s: %w", col.Name, err)
	}
	v.expr = ir.Param{Name: v.litName, Value: enc}
	v.litVal = enc
	return v, nil
}

func (e *env) binary(x ast.Binary) (value, error) {
	if x.Op.Logical() {
		l, err := e.predicate(x.Left)
		if err != nil {
			return value{}, err
		}
		r, err := e.predicate(x.Right)
		if err != nil {
			return value{}, err
		}
		return value{expr: ir.Binary{Op: string(x.Op), Left: l, Right: r}, pred: true}, nil
	}

	lv, err := e.translate(x.Left)
	if err != nil {
		return value{}, err
	}
	rv, err := e.translate(x.Right)
	if err != nil {
		return value{}, err
	}
	if lv.row != nil || rv.row != nil {
		return value{}, e.fail("whole rows cannot be compared; compare their fields")
	}

	if x.Op.Comparison() {
		if lv.null || rv.null {
			return e.nullComparison(x.Op, lv, rv)
		}
		if lv, err = e.encodeFor(rv.col, lv); err != nil {
			return value{}, err
		}
		if rv, err = e.encodeFor(lv.col, rv); err != nil {
			return value{}, err
		}
		l, r := e.asValue(lv), e.asValue(rv)
		if isTime(lv.typ) || isTime(rv.typ) {
			l, r = e.timeKey(l), e.timeKey(r)
		}
		return value{expr: ir.Binary{Op: string(x.Op), Left: l, Right: r}, pred: true}, nil
	}

	typ := lv.typ
	if typ == nil {
		typ = rv.typ
	}
	return value{expr: ir.Binary{Op: string(x.Op), Left: e.asValue(lv), Right: e.asValue(rv)}, typ: typ}, nil
}

// timeKey puts a timestamp into the form timestamps order correctly in. Text
// timestamps carry their own offset, so they are normalized to UTC first.
func (e *env) timeKey(x ir.Expr) ir.Expr {
	if _, ok := x.(ir.Now); ok || !e.profile().Supports(dialect.FuncTimeKey) {
		return x
	}
	return ir.Func{Func: dialect.FuncTimeKey, Args: []ir.Expr{x}}
}

// nullComparison turns = NULL and <> NULL into IS [NOT] NULL
func (e *env) nullComparison(op ast.BinaryOp, lv, rv value) (value, error) {
	if lv.null && rv.null {
		switch op {
		case ast.OpEq:
			return value{expr: ir.True, pred: true}, nil
		case ast.OpNe:
			return value{expr: ir.False, pred: true}, nil
		}
	}
	other := lv
	if lv.null {
		other = rv
	}
	switch op {
	case ast.OpEq:
		return value{expr: ir.IsNull{X: e.asValue(other)}, pred: true}, nil
	case ast.OpNe:
		return value{expr: ir.IsNull{X: e.asValue(other), Not: true}, pred: true}, nil
	}
	return value{}, e.fail("cannot order a value against null with %s", op)
}

func (e *env) unary(x ast.Unary) (value, error) {
	if x.Op == ast.OpNot {
		p, err := e.predicate(x.X)
		if err != nil {
			return value{}, err
		}
		if ex, ok := p.(ir.Exists); ok {
			ex.Not = !ex.Not
			return value{expr: ex, pred: true}, nil
		}
		return value{expr: ir.Unary{Op: "NOT", X: p}, pred: true}, nil
	}
	v, err := e.scalar(x.X)
	if err != nil {
		return value{}, err
	}
	return value{expr: ir.Unary{Op: string(x.Op), X: v.expr}, typ: v.typ}, nil
}

func (e *env) call(x ast.Call) (value, error) {
	if !e.profile().Supports(x.Func) {
		return value{}, e.fail("function %s is not supported by %s", x.Func, e.profile().Name())
	}
	if len(x.Args) != x.Func.Arity() {
		return value{}, e.fail("function %s expects %d arguments, got %d", x.Func, x.Func.Arity(), len(x.Args))
	}
	args := make([]ir.Expr, len(x.Args))
	var first reflect.Type
	for i, a := range x.Args {
		v, err := e.scalar(a)
		if err != nil {
			return value{}, err
		}
		if i == 0 {
			first = v.typ
		}
		args[i] = v.expr
	}
	out := value{expr: ir.Func{Func: x.Func, Args: args}, pred: x.Func.Predicate()}
	if !out.pred {
		out.typ = resultType(x.Func, first)
	}
	return out, nil
}

func resultType(f dialect.Func, arg reflect.Type) reflect.Type {
	switch f {
	case dialect.FuncReplace, dialect.FuncTrim, dialect.FuncTrimStart, dialect.FuncTrimEnd,
		dialect.FuncSubstring, dialect.FuncSubstringFrom, dialect.FuncUpper, dialect.FuncLower,
		dialect.FuncConcat:
		return stringType
	case dialect.FuncLength, dialect.FuncIndexOf, dialect.FuncYear, dialect.FuncMonth,
		dialect.FuncDay, dialect.FuncHour, dialect.FuncMinute, dialect.FuncSecond,
		dialect.FuncDayOfWeek:
		return int64Type
	case dialect.FuncPower, dialect.FuncSqrt, dialect.FuncLn, dialect.FuncLog10, dialect.FuncLog:
		return float64Type
	case dialect.FuncDate, dialect.FuncAddDays, dialect.FuncAddMonths, dialect.FuncAddYears,
		dialect.FuncAddHours, dialect.FuncAddMinutes, dialect.FuncAddSeconds:
		return timeType
	}
	return arg
}

func castType(t dialect.CastType) reflect.Type {
	switch t {
	case dialect.CastInt:
		return int64Type
	case dialect.CastText:
		return stringType
	}
	return float64Type
}

func (e *env) conditional(x ast.Conditional) (value, error) {
	cond, err := e.predicate(x.If)
	if err != nil {
		return value{}, err
	}
	then, err := e.scalar(x.Then)
	if err != nil {
		return value{}, err
	}
	els, err := e.scalar(x.Else)
	if err != nil {
		return value{}, err
	}
	typ := then.typ
	if typ == nil {
		typ = els.typ
	}
	return value{
		expr: ir.Case{Whens: []ir.When{{Cond: cond, Then: then.expr}}, Else: els.expr},
		typ:  typ,
	}, nil
}

func (e *env) coalesce(x ast.Coalesce) (value, error) {
	if len(x.Args) < 2 {
		return value{}, e.fail("coalesce needs at least two arguments")
	}
	args := make([]ir.Expr, len(x.Args))
	var typ reflect.Type
	for i, a := range x.Args {
		v, err := e.scalar(a)
		if err != nil {
			return value{}, err
		}
		if typ == nil {
			typ = v.typ
		}
		args[i] = v.expr
	}
	return value{expr: ir.Coalesce{Args: args}, typ: typ}, nil
}

func (e *env) like(x ast.Like) (value, error) {
	v, err := e.scalar(x.X)
	if err != nil {
		return value{}, err
	}
	p, err := e.scalar(x.Pattern)
	if err != nil {
		return value{}, err
	}
	target, pattern := v.expr, p.expr
	if e.profile().Like() == dialect.LikeFold {
		target = ir.Func{Func: dialect.FuncLower, Args: []ir.Expr{target}}
		pattern = ir.Func{Func: dialect.FuncLower, Args: []ir.Expr{pattern}}
	}
	return value{expr: ir.Like{X: target, Pattern: pattern}, pred: true}, nil
}

// inList binds each element; an empty list is always false and a nil element
// adds an IS NULL alternative
func (e *env) inList(x ast.InList) (value, error) {
	v, err := e.scalar(x.X)
	if err != nil {
		return value{}, err
	}
	if len(x.Values) == 0 {
		return value{expr: ir.False, pred: true}, nil
	}
	var (
		list    []ir.Expr
		hasNull bool
	)
	for _, item := range x.Values {
		if isNil(item) {
			hasNull = true
			continue
		}
		lv, err := e.encodeFor(v.col, literal("", item))
		if err != nil {
			return value{}, err
		}
		list = append(list, lv.expr)
	}
	isNull := ir.IsNull{X: v.expr}
	switch {
	case len(list) == 0:
		return value{expr: isNull, pred: true}, nil
	case hasNull:
		return value{expr: ir.Binary{Op: "OR", Left: ir.In{X: v.expr, List: list}, Right: isNull}, pred: true}, nil
	}
	return value{expr: ir.In{X: v.expr, List: list}, pred: true}, nil
}

func (e *env) inQuery(x ast.InQuery) (value, error) {
	v, err := e.scalar(x.X)
	if err != nil {
		return value{}, err
	}
	sub, err := e.subquery(x.Query)
	if err != nil {
		return value{}, err
	}
	sub.openCompound()
	if n := len(sub.output().leaves()); n != 1 {
		return value{}, e.fail("IN subquery must project exactly one field, got %d", n)
	}
	return value{expr: ir.InSelect{X: v.expr, Sub: sub.statement(true)}, pred: true}, nil
}

// subquery compiles a nested chain that may read this row through ParentCol
func (e *env) subquery(n ast.Node) (*state, error) {
	if n == nil {
		return nil, e.fail("subquery has no chain")
	}
	return e.cc.chain(n, e)
}

func (e *env) aggregate(x ast.Aggregate) (value, error) {
	if e.group == nil {
		return value{}, e.fail("aggregate %s used outside GroupBy", x.Func)
	}
	if e.inAgg {
		return value{}, e.fail("aggregate %s nested inside another aggregate", x.Func)
	}
	if x.Arg == nil {
		if x.Func != ast.AggCount {
			return value{}, e.fail("aggregate %s needs an argument", x.Func)
		}
		return value{expr: ir.Aggregate{Func: string(ast.AggCount)}, typ: int64Type}, nil
	}

	ae := &env{cc: e.cc, op: e.op, current: e.group.elem, parent: e.parent, inAgg: true}
	v, err := ae.scalar(x.Arg)
	if err != nil {
		return value{}, err
	}
	arg, typ := v.expr, v.typ
	switch x.Func {
	case ast.AggCount:
		typ = int64Type
	case ast.AggAvg:
		arg = ir.Cast{X: arg, To: dialect.CastFloat}
		typ = float64Type
	case ast.AggSum, ast.AggMin, ast.AggMax:
	default:
		return value{}, e.fail("%w: aggregate %s", ErrUnsupportedExpr, x.Func)
	}
	return value{expr: ir.Aggregate{Func: string(x.Func), Arg: arg, Distinct: x.Distinct}, typ: typ}, nil
}

// shape translates a projection into a new row
func (e *env) shape(s ast.Shape) (*scope, error) {
	out := &scope{}
	seen := make(map[string]bool, len(s.Fields))
	for _, f := range s.Fields {
		if f.Name == "" {
			return nil, e.fail("projection field without a name")
		}
		if seen[f.Name] {
			return nil, e.fail("projection field %q appears twice", f.Name)
		}
		seen[f.Name] = true

		v, err := e.translate(f.Expr)
		if err != nil {
			return nil, err
		}
		if v.row != nil {
			out.fields = append(out.fields, &field{name: f.Name, row: v.row})
			continue
		}
		typ := v.typ
		if v.pred {
			typ = boolType
		}
		out.fields = append(out.fields, &field{name: f.Name, expr: e.asValue(v), col: v.col, typ: typ})
	}
	return out, nil
}

// keyValues translates a sort or join key; shapes and whole rows expand to
// one expression per field in declaration order
func (e *env) keyValues(x ast.Expr) ([]ir.Expr, error) {
	if s, ok := x.(ast.Shape); ok {
		sc, err := e.shape(s)
		if err != nil {
			return nil, err
		}
		return leafExprs(sc), nil
	}
	v, err := e.translate(x)
	if err != nil {
		return nil, err
	}
	if v.row != nil {
		return leafExprs(v.row), nil
	}
	if isTime(v.typ) {
		return []ir.Expr{e.timeKey(e.asValue(v))}, nil
	}
	return []ir.Expr{e.asValue(v)}, nil
}

// keyScope translates a GroupBy key into the row of key fields
func (e *env) keyScope(x ast.Expr) (*scope, bool, error) {
	if s, ok := x.(ast.Shape); ok {
		sc, err := e.shape(s)
		return sc, false, err
	}
	v, err := e.translate(x)
	if err != nil {
		return nil, false, err
	}
	if v.row != nil {
		return v.row, false, nil
	}
	typ := v.typ
	if v.pred {
		typ = boolType
	}
	return &scope{fields: []*field{{name: "key", expr: e.asValue(v), col: v.col, typ: typ}}}, true, nil
}

func leafExprs(sc *scope) []ir.Expr {
	leaves := sc.leaves()
	out := make([]ir.Expr, len(leaves))
	for i, l := range leaves {
		out[i] = l.expr
	}
	return out
}
