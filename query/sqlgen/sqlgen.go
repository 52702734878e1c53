// Package sqlgen renders the SQL IR into dialect-specific text plus an ordered parameter list.
package sqlgen

import (
	"database/sql"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/satishbabariya/sqlchain/query/dialect"
	"github.com/satishbabariya/sqlchain/query/failure"
	"github.com/satishbabariya/sqlchain/query/ir"
)

// Param is one bound parameter in text order
type Param struct {
	Name  string
	Value any
	Type  string
}

// Query represents a SQL query with its parameters
type Query struct {
	SQL     string
	Params  []Param
	Dialect dialect.Name
	named   bool
}

// Args returns the parameters ready for database/sql: sql.Named values for
// dialects with named markers, positional values otherwise.
func (q *Query) Args() []any {
	args := make([]any, len(q.Params))
	for i, p := range q.Params {
		if q.named {
			args[i] = sql.Named(p.Name, p.Value)
		} else {
			args[i] = p.Value
		}
	}
	return args
}

// Named reports whether parameters bind by name
func (q *Query) Named() bool {
	return q.named
}

// Values returns the raw parameter values in order
func (q *Query) Values() []any {
	values := make([]any, len(q.Params))
	for i, p := range q.Params {
		values[i] = p.Value
	}
	return values
}

// String renders the statement and its parameters on separate lines
func (q *Query) String() string {
	var b strings.Builder
	b.WriteString(q.SQL)
	for _, p := range q.Params {
		fmt.Fprintf(&b, "\n  %s (%s) = %v", p.Name, p.Type, p.Value)
	}
	return b.String()
}

// Renderer serializes IR statements for one dialect. Rendering is pure: the
// same statement always yields byte-identical output.
type Renderer struct {
	profile dialect.Profile
}

// NewRenderer creates a renderer for a dialect profile
func NewRenderer(profile dialect.Profile) *Renderer {
	return &Renderer{profile: profile}
}

// Profile returns the renderer's dialect profile
func (r *Renderer) Profile() dialect.Profile {
	return r.profile
}

// Render serializes a statement
func (r *Renderer) Render(stmt ir.Statement) (*Query, error) {
	w := r.newWriter()
	w.statement(stmt)
	return w.finish()
}

// RenderCompound serializes a set operation
func (r *Renderer) RenderCompound(c *ir.Compound) (*Query, error) {
	w := r.newWriter()
	w.compound(c)
	return w.finish()
}

// RenderExpr serializes a single expression, mostly useful for diagnostics
func (r *Renderer) RenderExpr(e ir.Expr) (*Query, error) {
	w := r.newWriter()
	w.expr(e)
	return w.finish()
}

func (r *Renderer) newWriter() *writer {
	return &writer{p: r.profile, used: make(map[string]any)}
}

// writer accumulates text and parameters for one statement
type writer struct {
	p       dialect.Profile
	b       strings.Builder
	params  []Param
	used    map[string]any
	next    int
	derived int
	err     error
}

func (w *writer) finish() (*Query, error) {
	if w.err != nil {
		return nil, w.err
	}
	return &Query{
		SQL:     w.b.String(),
		Params:  w.params,
		Dialect: w.p.Name(),
		named:   w.p.NamedParams(),
	}, nil
}

func (w *writer) write(parts ...string) {
	for _, s := range parts {
		w.b.WriteString(s)
	}
}

func (w *writer) fail(format string, args ...any) {
	if w.err == nil {
		w.err = failure.Translationf("render", format, args...)
	}
}

func (w *writer) quote(ident string) string {
	return w.p.Quote(ident)
}

// bind appends a parameter and writes its marker
func (w *writer) bind(p ir.Param) {
	name := p.Name
	if name != "" && w.p.NamedParams() {
		if prev, ok := w.used[name]; ok {
			if !reflect.DeepEqual(prev, p.Value) {
				w.fail("parameter %q bound to two different values", name)
			}
			w.write(w.p.Marker(len(w.params), name))
			return
		}
	}
	if name == "" {
		for {
			name = w.p.ParamName(w.next)
			w.next++
			if _, taken := w.used[name]; !taken {
				break
			}
		}
	}
	w.used[name] = p.Value
	w.write(w.p.Marker(len(w.params), name))
	w.params = append(w.params, Param{Name: name, Value: p.Value, Type: typeName(p.Value)})
}

func typeName(v any) string {
	if v == nil {
		return "null"
	}
	return reflect.TypeOf(v).String()
}

func (w *writer) statement(stmt ir.Statement) {
	switch s := stmt.(type) {
	case *ir.Select:
		w.selectStmt(s)
	case *ir.Compound:
		w.compound(s)
	case *ir.Delete:
		w.deleteStmt(s)
	default:
		w.fail("unsupported statement %T", stmt)
	}
}

func (w *writer) selectStmt(s *ir.Select) {
	w.write("SELECT ")
	if s.Distinct {
		w.write("DISTINCT ")
	}
	w.top(s)

	if len(s.Columns) == 0 {
		w.write("*")
	}
	for i, col := range s.Columns {
		if i > 0 {
			w.write(", ")
		}
		w.expr(col.Expr)
		if col.Alias != "" && !sameName(col.Expr, col.Alias) {
			w.write(" AS ", w.quote(col.Alias))
		}
	}

	if s.From != nil {
		w.write(" FROM ")
		w.source(s.From)
	}

	for _, j := range s.Joins {
		w.write(" ", string(j.Kind), " ")
		w.source(j.Source)
		if j.On != nil {
			w.write(" ON ")
			w.expr(j.On)
		}
	}

	if s.Where != nil {
		w.write(" WHERE ")
		w.expr(s.Where)
	}

	if len(s.GroupBy) > 0 {
		w.write(" GROUP BY ")
		for i, g := range s.GroupBy {
			if i > 0 {
				w.write(", ")
			}
			w.expr(g)
		}
	}

	if s.Having != nil {
		w.write(" HAVING ")
		w.expr(s.Having)
	}

	w.orderBy(s)
	w.paging(s)
}

func sameName(e ir.Expr, alias string) bool {
	c, ok := e.(ir.Column)
	return ok && c.Name == alias
}

func (w *writer) orderBy(s *ir.Select) {
	if len(s.OrderBy) == 0 {
		return
	}
	w.write(" ORDER BY ")
	for i, o := range s.OrderBy {
		if i > 0 {
			w.write(", ")
		}
		w.expr(o.Expr)
		if o.Desc {
			w.write(" DESC")
		}
	}
}

// paging renders LIMIT/OFFSET for dialects using PagingLimitOffset; the
// TOP/OFFSET FETCH form lives in mssql.go.
func (w *writer) paging(s *ir.Select) {
	if w.p.Paging() == dialect.PagingTopOffsetFetch {
		w.offsetFetch(s)
		return
	}
	if s.Limit != nil {
		w.write(" LIMIT ", strconv.Itoa(*s.Limit))
	}
	if s.Offset != nil {
		if s.Limit == nil {
			switch w.p.Name() {
			case dialect.SQLite:
				w.write(" LIMIT -1")
			case dialect.MySQL:
				w.write(" LIMIT 18446744073709551615")
			}
		}
		w.write(" OFFSET ", strconv.Itoa(*s.Offset))
	}
}

func (w *writer) source(src ir.Source) {
	switch s := src.(type) {
	case ir.Table:
		w.write(w.quote(s.Name))
		if s.Alias != "" && s.Alias != s.Name {
			w.write(" AS ", w.quote(s.Alias))
		}
	case ir.Derived:
		w.write("(")
		w.statement(s.Stmt)
		w.write(") AS ", w.quote(s.Alias))
	default:
		w.fail("unsupported source %T", src)
	}
}

// compound renders a set operation. Operands that carry ordering or paging, and
// right-nested compounds, are wrapped as derived tables since not every dialect
// accepts them as bare operands.
func (w *writer) compound(c *ir.Compound) {
	w.operand(c.Left, true)
	w.write(" ", string(c.Op), " ")
	w.operand(c.Right, false)
}

func (w *writer) operand(stmt ir.Statement, left bool) {
	wrap := false
	switch s := stmt.(type) {
	case *ir.Select:
		wrap = len(s.OrderBy) > 0 || s.Paged()
	case *ir.Compound:
		wrap = !left
	}
	if !wrap {
		w.statement(stmt)
		return
	}
	alias := fmt.Sprintf("u%d", w.derived)
	w.derived++
	w.write("SELECT * FROM (")
	w.statement(stmt)
	w.write(") AS ", w.quote(alias))
}

func (w *writer) deleteStmt(d *ir.Delete) {
	w.write("DELETE FROM ", w.quote(d.Table.Name))
	if d.Where != nil {
		w.write(" WHERE ")
		w.expr(d.Where)
	}
}
