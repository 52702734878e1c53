package sqlgen

import (
	"strings"

	"github.com/satishbabariya/sqlchain/query/ir"
)

// Binding strength, loosest first
const (
	precOr = iota + 1
	precAnd
	precNot
	precCompare
	precBitwise
	precAdditive
	precMultiplicative
	precUnary
	precAtom
)

func binaryPrec(op string) int {
	switch op {
	case "OR":
		return precOr
	case "AND":
		return precAnd
	case "=", "<>", "<", "<=", ">", ">=":
		return precCompare
	case "&", "|":
		return precBitwise
	case "+", "-":
		return precAdditive
	case "*", "/", "%":
		return precMultiplicative
	}
	return precCompare
}

func associative(op string) bool {
	switch op {
	case "AND", "OR", "+", "*", "&", "|":
		return true
	}
	return false
}

// precedence returns how tightly e binds and, for infix forms, its operator
func (w *writer) precedence(e ir.Expr) (int, string) {
	switch x := e.(type) {
	case ir.Binary:
		return binaryPrec(x.Op), x.Op
	case ir.Unary:
		if x.Op == "NOT" {
			return precNot, x.Op
		}
		return precUnary, x.Op
	case ir.IsNull, ir.In, ir.InSelect, ir.Like:
		return precCompare, ""
	case ir.Func:
		tmpl, ok := w.p.Template(x.Func)
		if !ok || callForm(tmpl) {
			return precAtom, ""
		}
		if x.Func.Predicate() {
			return precCompare, ""
		}
		return precBitwise, ""
	}
	return precAtom, ""
}

// callForm reports whether a template is a single call or a fully parenthesized group
func callForm(tmpl string) bool {
	if !strings.HasSuffix(tmpl, ")") {
		return false
	}
	open := strings.IndexByte(tmpl, '(')
	if open < 0 {
		return false
	}
	for _, r := range tmpl[:open] {
		if !(r >= 'A' && r <= 'Z' || r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '_') {
			return false
		}
	}
	depth := 0
	for i := open; i < len(tmpl); i++ {
		switch tmpl[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 && i != len(tmpl)-1 {
				return false
			}
		case '\'':
			end := strings.IndexByte(tmpl[i+1:], '\'')
			if end < 0 {
				return false
			}
			i += end + 1
		}
	}
	return true
}

// child renders e, parenthesized when it binds looser than min
func (w *writer) child(e ir.Expr, min int) {
	p, _ := w.precedence(e)
	if p < min {
		w.write("(")
		w.expr(e)
		w.write(")")
		return
	}
	w.expr(e)
}

func (w *writer) expr(e ir.Expr) {
	switch x := e.(type) {
	case ir.Column:
		if x.Table != "" {
			w.write(w.quote(x.Table), ".")
		}
		w.write(w.quote(x.Name))

	case ir.Param:
		w.bind(x)

	case ir.Const:
		w.write(x.SQL)

	case ir.Binary:
		w.binary(x)

	case ir.Unary:
		if x.Op == "NOT" {
			w.write("NOT (")
			w.expr(x.X)
			w.write(")")
			return
		}
		w.write(x.Op)
		w.child(x.X, precAtom)

	case ir.Func:
		w.function(x)

	case ir.Case:
		w.write("CASE")
		for _, when := range x.Whens {
			w.write(" WHEN ")
			w.expr(when.Cond)
			w.write(" THEN ")
			w.expr(when.Then)
		}
		if x.Else != nil {
			w.write(" ELSE ")
			w.expr(x.Else)
		}
		w.write(" END")

	case ir.Cast:
		w.write("CAST(")
		w.expr(x.X)
		w.write(" AS ", w.p.CastName(x.To), ")")

	case ir.Coalesce:
		w.write("COALESCE(")
		w.list(x.Args)
		w.write(")")

	case ir.IsNull:
		w.child(x.X, precCompare+1)
		if x.Not {
			w.write(" IS NOT NULL")
		} else {
			w.write(" IS NULL")
		}

	case ir.In:
		if len(x.List) == 0 {
			w.expr(ir.False)
			return
		}
		w.child(x.X, precCompare+1)
		w.write(" IN (")
		w.list(x.List)
		w.write(")")

	case ir.InSelect:
		w.child(x.X, precCompare+1)
		w.write(" IN (")
		w.statement(x.Sub)
		w.write(")")

	case ir.Exists:
		if x.Not {
			w.write("NOT ")
		}
		w.write("EXISTS (")
		w.statement(x.Sub)
		w.write(")")

	case ir.Like:
		w.child(x.X, precCompare+1)
		w.write(" LIKE ")
		w.child(x.Pattern, precCompare+1)

	case ir.Aggregate:
		w.write(x.Func, "(")
		switch {
		case x.Arg == nil:
			w.write("*")
		case x.Distinct:
			w.write("DISTINCT ")
			w.expr(x.Arg)
		default:
			w.expr(x.Arg)
		}
		w.write(")")

	case ir.Now:
		w.write(w.p.NowSQL())

	case ir.Subquery:
		w.write("(")
		w.statement(x.Stmt)
		w.write(")")

	case nil:
		w.fail("missing expression")

	default:
		w.fail("unsupported expression %T", e)
	}
}

func (w *writer) list(items []ir.Expr) {
	for i, item := range items {
		if i > 0 {
			w.write(", ")
		}
		w.expr(item)
	}
}

func (w *writer) binary(b ir.Binary) {
	prec := binaryPrec(b.Op)
	w.operandOf(b.Op, prec, b.Left, true)
	w.write(" ", b.Op, " ")
	w.operandOf(b.Op, prec, b.Right, false)
}

// operandOf parenthesizes an operand that binds looser than its parent, any
// same-strength right operand of a non-associative operator, and any mix of
// bitwise with other operators.
func (w *writer) operandOf(op string, prec int, e ir.Expr, left bool) {
	cp, cop := w.precedence(e)
	wrap := cp < prec
	switch {
	case cp == precAtom:
		wrap = false
	case prec == precBitwise || cp == precBitwise:
		wrap = cop != op
	case cp == prec:
		if left {
			wrap = prec == precCompare
		} else {
			wrap = !(cop == op && associative(op))
		}
	}
	if wrap {
		w.write("(")
		w.expr(e)
		w.write(")")
		return
	}
	w.expr(e)
}

// function expands a dialect template. Arguments render in text order, so
// parameters are numbered as they appear; an argument used twice is bound twice.
func (w *writer) function(f ir.Func) {
	tmpl, ok := w.p.Template(f.Func)
	if !ok {
		w.fail("function %s is not supported by %s", f.Func, w.p.Name())
		return
	}
	if len(f.Args) != f.Func.Arity() {
		w.fail("function %s expects %d arguments, got %d", f.Func, f.Func.Arity(), len(f.Args))
		return
	}
	for i := 0; i < len(tmpl); i++ {
		c := tmpl[i]
		if c != '{' {
			w.b.WriteByte(c)
			continue
		}
		end := strings.IndexByte(tmpl[i:], '}')
		if end < 0 {
			w.b.WriteByte(c)
			continue
		}
		idx := argIndex(tmpl[i+1 : i+end])
		if idx < 0 || idx >= len(f.Args) {
			w.fail("template for %s references missing argument %q", f.Func, tmpl[i:i+end+1])
			return
		}
		if fullArgument(tmpl, i, i+end+1) {
			w.expr(f.Args[idx])
		} else {
			w.child(f.Args[idx], precAtom)
		}
		i += end
	}
}

func argIndex(s string) int {
	if s == "" {
		return -1
	}
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return -1
		}
		n = n*10 + int(r-'0')
	}
	return n
}

// fullArgument reports whether the placeholder spanning [start, end) is an
// entire call argument, so it needs no parentheses of its own
func fullArgument(tmpl string, start, end int) bool {
	before := tmpl[:start]
	after := tmpl[end:]
	opened := strings.HasSuffix(before, "(") || strings.HasSuffix(before, ", ")
	closed := strings.HasPrefix(after, ",") || strings.HasPrefix(after, ")")
	if !opened || !closed {
		return false
	}
	// "(" alone might be a grouping paren rather than a call
	if strings.HasSuffix(before, "(") {
		trimmed := strings.TrimSuffix(before, "(")
		return trimmed != "" && isIdentByte(trimmed[len(trimmed)-1])
	}
	return true
}

func isIdentByte(c byte) bool {
	return c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z' || c >= '0' && c <= '9' || c == '_'
}
