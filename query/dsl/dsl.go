// Package dsl parses a small textual expression language into chain
// expressions, so predicates, sort keys and projections can live in files.
//
//	price > 10 && contains(name, "a")
//	category in ["a", "b"] || key.total >= @min
//	name, total: sum(price), n: count()
//
// Identifiers read fields of the current row. The prefixes outer., inner.,
// parent. and key. read the other sides; row. forces the current row.
// @name refers to a caller-supplied variable, bound as a named parameter.
package dsl

import (
	"strconv"
	"strings"

	"github.com/satishbabariya/sqlchain/query/ast"
	"github.com/satishbabariya/sqlchain/query/failure"
)

// Vars are the values @name references resolve to
type Vars map[string]any

// Parse parses one scalar or predicate expression
func Parse(src string, vars Vars) (ast.Expr, error) {
	raw, err := exprParser.ParseString("", src)
	if err != nil {
		return nil, failure.Translationf("parse", "%w", err)
	}
	return (&converter{vars: vars}).or(raw)
}

// MustParse is Parse for expressions known to be valid; it panics otherwise
func MustParse(src string, vars Vars) ast.Expr {
	e, err := Parse(src, vars)
	if err != nil {
		panic(err)
	}
	return e
}

// ParseShape parses a comma separated projection. Each field is "name: expr";
// the name may be left out for a plain field reference, which keeps its own
// last path segment as the name.
func ParseShape(src string, vars Vars) (ast.Shape, error) {
	raw, err := shapeParser.ParseString("", src)
	if err != nil {
		return ast.Shape{}, failure.Translationf("parse", "%w", err)
	}
	c := &converter{vars: vars}
	out := ast.Shape{Fields: make([]ast.Field, 0, len(raw.Fields))}
	seen := make(map[string]bool, len(raw.Fields))
	for _, f := range raw.Fields {
		e, err := c.or(f.Expr)
		if err != nil {
			return ast.Shape{}, err
		}
		name := f.Name
		if name == "" {
			ref, ok := e.(ast.ColumnRef)
			if !ok || ref.Name == "" {
				return ast.Shape{}, failure.Translationf("parse", "%s: computed field needs a name", f.Pos)
			}
			name = ref.Name[strings.LastIndex(ref.Name, ".")+1:]
		}
		if seen[name] {
			return ast.Shape{}, failure.Translationf("parse", "%s: duplicate field %q", f.Pos, name)
		}
		seen[name] = true
		out.Fields = append(out.Fields, ast.Field{Name: name, Expr: e})
	}
	return out, nil
}

type converter struct {
	vars Vars
}

func (c *converter) or(x *orExpr) (ast.Expr, error) {
	terms := make([]ast.Expr, 0, len(x.Terms))
	for _, t := range x.Terms {
		e, err := c.and(t)
		if err != nil {
			return nil, err
		}
		terms = append(terms, e)
	}
	return ast.Or(terms...), nil
}

func (c *converter) and(x *andExpr) (ast.Expr, error) {
	terms := make([]ast.Expr, 0, len(x.Terms))
	for _, t := range x.Terms {
		e, err := c.not(t)
		if err != nil {
			return nil, err
		}
		terms = append(terms, e)
	}
	return ast.And(terms...), nil
}

func (c *converter) not(x *notExpr) (ast.Expr, error) {
	if x.Not != nil {
		e, err := c.not(x.Not)
		if err != nil {
			return nil, err
		}
		return ast.Not(e), nil
	}
	return c.compare(x.Compare)
}

var comparisons = map[string]func(a, b any) ast.Binary{
	"==": ast.Eq,
	"!=": ast.Ne,
	"<":  ast.Lt,
	"<=": ast.Le,
	">":  ast.Gt,
	">=": ast.Ge,
}

func (c *converter) compare(x *compare) (ast.Expr, error) {
	left, err := c.sum(x.Left)
	if err != nil || x.Op == "" {
		return left, err
	}
	switch x.Op {
	case "in":
		return c.in(left, x.Right)
	case "like":
		right, err := c.sum(x.Right)
		if err != nil {
			return nil, err
		}
		return ast.LikePattern(left, right), nil
	}
	right, err := c.sum(x.Right)
	if err != nil {
		return nil, err
	}
	return comparisons[x.Op](left, right), nil
}

// in accepts only a bracketed list of constants or variables
func (c *converter) in(left ast.Expr, right *sum) (ast.Expr, error) {
	var items *list
	if len(right.Rest) == 0 && len(right.Left.Rest) == 0 && right.Left.Left.Value != nil {
		items = right.Left.Left.Value.List
	}
	if items == nil {
		return nil, failure.Translationf("parse", "in needs a [...] list")
	}
	var values []any
	for _, it := range items.Items {
		e, err := c.or(it)
		if err != nil {
			return nil, err
		}
		switch v := e.(type) {
		case ast.Literal:
			values = append(values, v.Value)
		case ast.Param:
			values = append(values, v.Value)
		default:
			return nil, failure.Translationf("parse", "in list items must be constants, got %T", e)
		}
	}
	return ast.In(left, values...), nil
}

func (c *converter) sum(x *sum) (ast.Expr, error) {
	out, err := c.product(x.Left)
	if err != nil {
		return nil, err
	}
	for _, r := range x.Rest {
		right, err := c.product(r.Right)
		if err != nil {
			return nil, err
		}
		if r.Op == "+" {
			out = ast.Add(out, right)
		} else {
			out = ast.Sub(out, right)
		}
	}
	return out, nil
}

func (c *converter) product(x *product) (ast.Expr, error) {
	out, err := c.unary(x.Left)
	if err != nil {
		return nil, err
	}
	for _, r := range x.Rest {
		right, err := c.unary(r.Right)
		if err != nil {
			return nil, err
		}
		switch r.Op {
		case "*":
			out = ast.Mul(out, right)
		case "/":
			out = ast.Div(out, right)
		default:
			out = ast.Mod(out, right)
		}
	}
	return out, nil
}

func (c *converter) unary(x *unary) (ast.Expr, error) {
	if x.Neg == nil {
		return c.primary(x.Value)
	}
	e, err := c.unary(x.Neg)
	if err != nil {
		return nil, err
	}
	if lit, ok := e.(ast.Literal); ok {
		switch v := lit.Value.(type) {
		case int64:
			return ast.Lit(-v), nil
		case float64:
			return ast.Lit(-v), nil
		}
	}
	return ast.Neg(e), nil
}

func (c *converter) primary(x *primary) (ast.Expr, error) {
	switch {
	case x.Number != nil:
		return number(*x.Number)
	case x.String != nil:
		return ast.Lit(*x.String), nil
	case x.Bool != nil:
		return ast.Lit(*x.Bool == "true"), nil
	case x.Null:
		return ast.Lit(nil), nil
	case x.Param != nil:
		name := strings.TrimPrefix(*x.Param, "@")
		v, ok := c.vars[name]
		if !ok {
			return nil, failure.Translationf("parse", "%s: undefined variable @%s", x.Pos, name)
		}
		return ast.P(name, v), nil
	case x.Call != nil:
		return c.call(x)
	case x.Ref != nil:
		return ref(*x.Ref), nil
	case x.List != nil:
		return nil, failure.Translationf("parse", "%s: a list is only allowed after in", x.Pos)
	case x.Group != nil:
		return c.or(x.Group)
	}
	return nil, failure.Translationf("parse", "%s: empty expression", x.Pos)
}

func number(s string) (ast.Expr, error) {
	if !strings.Contains(s, ".") {
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return ast.Lit(n), nil
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, failure.Translationf("parse", "bad number %q: %w", s, err)
	}
	return ast.Lit(f), nil
}

func ref(path string) ast.Expr {
	head, rest, dotted := strings.Cut(path, ".")
	switch head {
	case "row":
		if dotted {
			return ast.Col(rest)
		}
		return ast.Row()
	case "outer":
		if dotted {
			return ast.OuterCol(rest)
		}
		return ast.OuterRow()
	case "inner":
		if dotted {
			return ast.InnerCol(rest)
		}
		return ast.InnerRow()
	case "parent":
		if dotted {
			return ast.ParentCol(rest)
		}
	case "key":
		if dotted {
			return ast.KeyField(rest)
		}
		return ast.Key()
	}
	return ast.Col(path)
}

func (c *converter) call(x *primary) (ast.Expr, error) {
	name := strings.ToLower(x.Call.Name)
	fn, ok := functions[name]
	if !ok {
		return nil, failure.Translationf("parse", "%s: unknown function %s", x.Pos, x.Call.Name)
	}
	if len(x.Call.Args) < fn.min || (fn.max >= 0 && len(x.Call.Args) > fn.max) {
		return nil, failure.Translationf("parse", "%s: %s takes %s arguments, got %d", x.Pos, x.Call.Name, fn.arity(), len(x.Call.Args))
	}
	args := make([]ast.Expr, len(x.Call.Args))
	for i, a := range x.Call.Args {
		e, err := c.or(a)
		if err != nil {
			return nil, err
		}
		args[i] = e
	}
	return fn.build(args), nil
}
