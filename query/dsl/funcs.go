package dsl

import (
	"fmt"

	"github.com/satishbabariya/sqlchain/query/ast"
	"github.com/satishbabariya/sqlchain/query/dialect"
)

type function struct {
	min, max int // max < 0 means variadic
	build    func(args []ast.Expr) ast.Expr
}

func (f function) arity() string {
	switch {
	case f.max < 0:
		return fmt.Sprintf("at least %d", f.min)
	case f.min == f.max:
		return fmt.Sprint(f.min)
	default:
		return fmt.Sprintf("%d to %d", f.min, f.max)
	}
}

func unaryFn[R ast.Expr](fn func(any) R) function {
	return function{1, 1, func(a []ast.Expr) ast.Expr { return fn(a[0]) }}
}

func binaryFn[R ast.Expr](fn func(any, any) R) function {
	return function{2, 2, func(a []ast.Expr) ast.Expr { return fn(a[0], a[1]) }}
}

func castFn(to dialect.CastType) function {
	return function{1, 1, func(a []ast.Expr) ast.Expr { return ast.CastTo(a[0], to) }}
}

// functions is keyed by lower-case name
var functions = map[string]function{
	"contains":       binaryFn(ast.Contains),
	"startswith":     binaryFn(ast.StartsWith),
	"endswith":       binaryFn(ast.EndsWith),
	"containsfold":   binaryFn(ast.ContainsFold),
	"startswithfold": binaryFn(ast.StartsWithFold),
	"endswithfold":   binaryFn(ast.EndsWithFold),
	"replace":        {3, 3, func(a []ast.Expr) ast.Expr { return ast.Replace(a[0], a[1], a[2]) }},
	"trim":           unaryFn(ast.Trim),
	"trimstart":      unaryFn(ast.TrimStart),
	"trimend":        unaryFn(ast.TrimEnd),
	"upper":          unaryFn(ast.Upper),
	"lower":          unaryFn(ast.Lower),
	"length":         unaryFn(ast.Length),
	"substring": {2, 3, func(a []ast.Expr) ast.Expr {
		if len(a) == 2 {
			return ast.SubstringFrom(a[0], a[1])
		}
		return ast.Substring(a[0], a[1], a[2])
	}},
	"indexof": binaryFn(ast.IndexOf),
	"concat": {2, -1, func(a []ast.Expr) ast.Expr {
		rest := make([]any, len(a)-2)
		for i, r := range a[2:] {
			rest[i] = r
		}
		return ast.Concat(a[0], a[1], rest...)
	}},

	"abs": unaryFn(ast.Abs),
	"round": {1, 2, func(a []ast.Expr) ast.Expr {
		if len(a) == 2 {
			return ast.RoundTo(a[0], a[1])
		}
		return ast.Round(a[0])
	}},
	"floor":    unaryFn(ast.Floor),
	"ceiling":  unaryFn(ast.Ceiling),
	"pow":      binaryFn(ast.Pow),
	"sqrt":     unaryFn(ast.Sqrt),
	"ln":       unaryFn(ast.Ln),
	"log10":    unaryFn(ast.Log10),
	"log":      binaryFn(ast.Log),
	"greatest": binaryFn(ast.Greatest),
	"least":    binaryFn(ast.Least),
	"bitxor":   binaryFn(ast.BitXor),
	"int":      castFn(dialect.CastInt),
	"float":    castFn(dialect.CastFloat),
	"text":     castFn(dialect.CastText),
	"decimal":  castFn(dialect.CastDecimal),

	"year":       unaryFn(ast.Year),
	"month":      unaryFn(ast.Month),
	"day":        unaryFn(ast.Day),
	"hour":       unaryFn(ast.Hour),
	"minute":     unaryFn(ast.Minute),
	"second":     unaryFn(ast.Second),
	"dayofweek":  unaryFn(ast.DayOfWeek),
	"date":       unaryFn(ast.DateOf),
	"adddays":    binaryFn(ast.AddDays),
	"addmonths":  binaryFn(ast.AddMonths),
	"addyears":   binaryFn(ast.AddYears),
	"addhours":   binaryFn(ast.AddHours),
	"addminutes": binaryFn(ast.AddMinutes),
	"addseconds": binaryFn(ast.AddSeconds),
	"now":        {0, 0, func([]ast.Expr) ast.Expr { return ast.CurrentTime() }},

	"if": {3, 3, func(a []ast.Expr) ast.Expr { return ast.If(a[0], a[1], a[2]) }},
	"coalesce": {2, -1, func(a []ast.Expr) ast.Expr {
		rest := make([]any, len(a)-2)
		for i, r := range a[2:] {
			rest[i] = r
		}
		return ast.CoalesceOf(a[0], a[1], rest...)
	}},
	"present": unaryFn(ast.Present),

	"count": {0, 1, func(a []ast.Expr) ast.Expr {
		if len(a) == 0 {
			return ast.Count()
		}
		return ast.CountOf(a[0])
	}},
	"countdistinct": unaryFn(ast.CountDistinct),
	"sum":           unaryFn(ast.Sum),
	"min":           unaryFn(ast.Min),
	"max":           unaryFn(ast.Max),
	"avg":           unaryFn(ast.Avg),
}
