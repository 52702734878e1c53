package ast

import (
	"reflect"

	"github.com/satishbabariya/sqlchain/query/dialect"
)

// E converts v to an expression: expressions pass through, anything else becomes a Literal.
func E(v any) Expr {
	if e, ok := v.(Expr); ok {
		return e
	}
	return Literal{Value: v}
}

func exprs(vs []any) []Expr {
	out := make([]Expr, len(vs))
	for i, v := range vs {
		out[i] = E(v)
	}
	return out
}

// Col reads a field of the current row
func Col(name string) ColumnRef { return ColumnRef{Side: SideCurrent, Name: name} }

// Row is the whole current row
func Row() ColumnRef { return ColumnRef{Side: SideCurrent} }

// OuterCol reads a field of the outer row in a join result
func OuterCol(name string) ColumnRef { return ColumnRef{Side: SideOuter, Name: name} }

// InnerCol reads a field of the inner row in a join result
func InnerCol(name string) ColumnRef { return ColumnRef{Side: SideInner, Name: name} }

// OuterRow is the whole outer row in a join result
func OuterRow() ColumnRef { return ColumnRef{Side: SideOuter} }

// InnerRow is the whole inner row in a join result
func InnerRow() ColumnRef { return ColumnRef{Side: SideInner} }

// ParentCol reads a field of the enclosing query's row from inside a subquery
func ParentCol(name string) ColumnRef { return ColumnRef{Side: SideParent, Name: name} }

// Key is the whole group key
func Key() ColumnRef { return ColumnRef{Side: SideKey} }

// KeyField reads one field of a composite group key
func KeyField(name string) ColumnRef { return ColumnRef{Side: SideKey, Name: name} }

// Lit wraps a caller value
func Lit(v any) Literal { return Literal{Value: v} }

// P is a caller value bound under an explicit parameter name
func P(name string, v any) Param { return Param{Name: name, Value: v} }

// As names an expression inside a Shape
func As(name string, v any) Field { return Field{Name: name, Expr: E(v)} }

// Fields builds a Shape
func Fields(fields ...Field) Shape { return Shape{Fields: fields} }

// Comparison

func Eq(a, b any) Binary { return Binary{Op: OpEq, Left: E(a), Right: E(b)} }
func Ne(a, b any) Binary { return Binary{Op: OpNe, Left: E(a), Right: E(b)} }
func Lt(a, b any) Binary { return Binary{Op: OpLt, Left: E(a), Right: E(b)} }
func Le(a, b any) Binary { return Binary{Op: OpLe, Left: E(a), Right: E(b)} }
func Gt(a, b any) Binary { return Binary{Op: OpGt, Left: E(a), Right: E(b)} }
func Ge(a, b any) Binary { return Binary{Op: OpGe, Left: E(a), Right: E(b)} }

// IsNull is true when v is absent
func IsNull(v any) Binary { return Eq(v, nil) }

// And combines predicates; with no arguments it is an always-true literal
func And(preds ...Expr) Expr { return fold(OpAnd, preds) }

// Or combines predicates
func Or(preds ...Expr) Expr { return fold(OpOr, preds) }

func fold(op BinaryOp, preds []Expr) Expr {
	switch len(preds) {
	case 0:
		return Literal{Value: op == OpAnd}
	case 1:
		return preds[0]
	}
	out := preds[0]
	for _, p := range preds[1:] {
		out = Binary{Op: op, Left: out, Right: p}
	}
	return out
}

// Not negates a predicate
func Not(pred Expr) Unary { return Unary{Op: OpNot, X: pred} }

// Arithmetic

func Add(a, b any) Binary { return Binary{Op: OpAdd, Left: E(a), Right: E(b)} }
func Sub(a, b any) Binary { return Binary{Op: OpSub, Left: E(a), Right: E(b)} }
func Mul(a, b any) Binary { return Binary{Op: OpMul, Left: E(a), Right: E(b)} }
func Div(a, b any) Binary { return Binary{Op: OpDiv, Left: E(a), Right: E(b)} }
func Mod(a, b any) Binary { return Binary{Op: OpMod, Left: E(a), Right: E(b)} }
func Neg(a any) Unary     { return Unary{Op: OpNeg, X: E(a)} }

// Bitwise

func BitAnd(a, b any) Binary { return Binary{Op: OpBitAnd, Left: E(a), Right: E(b)} }
func BitOr(a, b any) Binary  { return Binary{Op: OpBitOr, Left: E(a), Right: E(b)} }
func BitXor(a, b any) Call   { return call(dialect.FuncBitXor, a, b) }
func BitNot(a any) Unary     { return Unary{Op: OpBitNot, X: E(a)} }

func call(f dialect.Func, args ...any) Call { return Call{Func: f, Args: exprs(args)} }

// Fn calls a dialect function by identifier
func Fn(f dialect.Func, args ...any) Call { return call(f, args...) }

// Strings

func Contains(s, sub any) Call   { return call(dialect.FuncContains, s, sub) }
func StartsWith(s, pre any) Call { return call(dialect.FuncStartsWith, s, pre) }
func EndsWith(s, suf any) Call   { return call(dialect.FuncEndsWith, s, suf) }

// ContainsFold is a case-insensitive Contains
func ContainsFold(s, sub any) Call { return Contains(Lower(s), Lower(sub)) }

// StartsWithFold is a case-insensitive StartsWith
func StartsWithFold(s, pre any) Call { return StartsWith(Lower(s), Lower(pre)) }

// EndsWithFold is a case-insensitive EndsWith
func EndsWithFold(s, suf any) Call { return EndsWith(Lower(s), Lower(suf)) }

func Replace(s, old, repl any) Call { return call(dialect.FuncReplace, s, old, repl) }
func Trim(s any) Call               { return call(dialect.FuncTrim, s) }
func TrimStart(s any) Call          { return call(dialect.FuncTrimStart, s) }
func TrimEnd(s any) Call            { return call(dialect.FuncTrimEnd, s) }
func Upper(s any) Call              { return call(dialect.FuncUpper, s) }
func Lower(s any) Call              { return call(dialect.FuncLower, s) }
func Length(s any) Call             { return call(dialect.FuncLength, s) }

// Substring takes length characters from the 0-based start
func Substring(s, start, length any) Call { return call(dialect.FuncSubstring, s, start, length) }

// SubstringFrom takes everything from the 0-based start
func SubstringFrom(s, start any) Call { return call(dialect.FuncSubstringFrom, s, start) }

// IndexOf is the 0-based position of sub in s, or -1
func IndexOf(s, sub any) Call { return call(dialect.FuncIndexOf, s, sub) }

// Concat joins two or more strings
func Concat(a, b any, rest ...any) Call {
	out := call(dialect.FuncConcat, a, b)
	for _, r := range rest {
		out = call(dialect.FuncConcat, out, r)
	}
	return out
}

// Math

func Abs(x any) Call             { return call(dialect.FuncAbs, x) }
func Round(x any) Call           { return call(dialect.FuncRound, x) }
func RoundTo(x, digits any) Call { return call(dialect.FuncRoundDigits, x, digits) }
func Floor(x any) Call           { return call(dialect.FuncFloor, x) }
func Ceiling(x any) Call         { return call(dialect.FuncCeiling, x) }
func Pow(x, y any) Call          { return call(dialect.FuncPower, x, y) }
func Sqrt(x any) Call            { return call(dialect.FuncSqrt, x) }
func Ln(x any) Call              { return call(dialect.FuncLn, x) }
func Log10(x any) Call           { return call(dialect.FuncLog10, x) }
func Log(x, base any) Call       { return call(dialect.FuncLog, x, base) }
func Greatest(a, b any) Call     { return call(dialect.FuncGreatest, a, b) }
func Least(a, b any) Call        { return call(dialect.FuncLeast, a, b) }

// CastTo converts x to a logical type
func CastTo(x any, to dialect.CastType) Cast { return Cast{X: E(x), To: to} }

// Dates

func Year(t any) Call          { return call(dialect.FuncYear, t) }
func Month(t any) Call         { return call(dialect.FuncMonth, t) }
func Day(t any) Call           { return call(dialect.FuncDay, t) }
func Hour(t any) Call          { return call(dialect.FuncHour, t) }
func Minute(t any) Call        { return call(dialect.FuncMinute, t) }
func Second(t any) Call        { return call(dialect.FuncSecond, t) }
func DayOfWeek(t any) Call     { return call(dialect.FuncDayOfWeek, t) }
func DateOf(t any) Call        { return call(dialect.FuncDate, t) }
func AddDays(t, n any) Call    { return call(dialect.FuncAddDays, t, n) }
func AddMonths(t, n any) Call  { return call(dialect.FuncAddMonths, t, n) }
func AddYears(t, n any) Call   { return call(dialect.FuncAddYears, t, n) }
func AddHours(t, n any) Call   { return call(dialect.FuncAddHours, t, n) }
func AddMinutes(t, n any) Call { return call(dialect.FuncAddMinutes, t, n) }
func AddSeconds(t, n any) Call { return call(dialect.FuncAddSeconds, t, n) }
func CurrentTime() Now         { return Now{} }

// Conditionals and nulls

func If(cond, then, els any) Conditional {
	return Conditional{If: E(cond), Then: E(then), Else: E(els)}
}

func CoalesceOf(a, b any, rest ...any) Coalesce {
	return Coalesce{Args: exprs(append([]any{a, b}, rest...))}
}

func Present(x any) HasValue { return HasValue{X: E(x)} }

// Matching and membership

func LikePattern(x, pattern any) Like { return Like{X: E(x), Pattern: E(pattern)} }

// In tests x against the listed values
func In(x any, values ...any) InList { return InList{X: E(x), Values: values} }

// InSlice tests x against the elements of a slice
func InSlice(x any, slice any) InList {
	rv := reflect.ValueOf(slice)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return InList{X: E(x), Values: []any{slice}}
	}
	values := make([]any, rv.Len())
	for i := range values {
		values[i] = rv.Index(i).Interface()
	}
	return InList{X: E(x), Values: values}
}

func InSub(x any, q Node) InQuery { return InQuery{X: E(x), Query: q} }
func Any(q Node) Exists           { return Exists{Query: q} }

// Aggregates

func Count() Aggregate              { return Aggregate{Func: AggCount} }
func CountOf(x any) Aggregate       { return Aggregate{Func: AggCount, Arg: E(x)} }
func CountDistinct(x any) Aggregate { return Aggregate{Func: AggCount, Arg: E(x), Distinct: true} }
func Sum(x any) Aggregate           { return Aggregate{Func: AggSum, Arg: E(x)} }
func Min(x any) Aggregate           { return Aggregate{Func: AggMin, Arg: E(x)} }
func Max(x any) Aggregate           { return Aggregate{Func: AggMax, Arg: E(x)} }
func Avg(x any) Aggregate           { return Aggregate{Func: AggAvg, Arg: E(x)} }
