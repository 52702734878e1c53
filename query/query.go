// Package query is the typed chain API: operators build an immutable chain,
// terminals compile it to one statement, run it and materialize the rows.
package query

import (
	"reflect"

	"github.com/satishbabariya/sqlchain/query/ast"
	"github.com/satishbabariya/sqlchain/query/compiler"
	"github.com/satishbabariya/sqlchain/query/executor"
	"github.com/satishbabariya/sqlchain/query/failure"
	"github.com/satishbabariya/sqlchain/query/mapping"
	"github.com/satishbabariya/sqlchain/query/sqlgen"
)

// Session is where chains run
type Session = executor.Session

// Row is a projected row read without a Go shape
type Row = executor.Record

// compilerSource is implemented by sessions that configure their own compiler
type compilerSource interface {
	Compiler() *compiler.Compiler
}

// link is the part shared by every chain handle: where it runs, its last
// operator and the first builder error, reported at the terminal
type link struct {
	session Session
	node    ast.Node
	err     error
}

func (l link) chain() link { return l }

func (l link) then(n ast.Node) link {
	if l.err != nil {
		return l
	}
	return link{session: l.session, node: n}
}

func (l link) fail(err error) link {
	if l.err != nil {
		return l
	}
	return link{session: l.session, node: l.node, err: err}
}

func (l link) compiler() *compiler.Compiler {
	if cs, ok := l.session.(compilerSource); ok {
		return cs.Compiler()
	}
	return compiler.NewCompiler(l.session.Profile())
}

// Chain is a query or a grouping that can be projected
type Chain interface {
	chain() link
}

// Query is a chain whose rows materialize as T. Operators return a new Query
// and never modify the receiver, so chains can be branched freely.
type Query[T any] struct {
	link
}

// From starts a chain over the table T maps to
func From[T any](s Session) *Query[T] {
	table, err := mapping.For[T](s.Registry())
	if err != nil {
		return &Query[T]{link{session: s, err: err}}
	}
	return &Query[T]{link{session: s, node: &ast.Source{Table: table}}}
}

// FromTable starts a chain over a table described at runtime
func FromTable(s Session, table *mapping.Table) *Query[Row] {
	if table == nil {
		return &Query[Row]{link{session: s, err: failure.Mappingf("", "no table given")}}
	}
	return &Query[Row]{link{session: s, node: &ast.Source{Table: table}}}
}

// Node returns the chain's last operator
func (q *Query[T]) Node() ast.Node {
	return q.node
}

// Err returns the first error recorded while building the chain
func (q *Query[T]) Err() error {
	return q.err
}

func (q *Query[T]) next(n ast.Node) *Query[T] {
	return &Query[T]{q.then(n)}
}

func (q *Query[T]) failed(err error) *Query[T] {
	return &Query[T]{q.fail(err)}
}

// Where keeps the rows matching pred; consecutive calls AND together
func (q *Query[T]) Where(pred ast.Expr) *Query[T] {
	if pred == nil {
		return q.failed(failure.Translationf("where", "nil predicate"))
	}
	return q.next(&ast.Filter{Input: q.node, Pred: pred})
}

// OrderBy sorts by key, replacing any earlier ordering
func (q *Query[T]) OrderBy(key ast.Expr) *Query[T] {
	return q.sort(key, false, false)
}

// OrderByDesc sorts by key descending, replacing any earlier ordering
func (q *Query[T]) OrderByDesc(key ast.Expr) *Query[T] {
	return q.sort(key, true, false)
}

// ThenBy adds a secondary ascending sort key
func (q *Query[T]) ThenBy(key ast.Expr) *Query[T] {
	return q.sort(key, false, true)
}

// ThenByDesc adds a secondary descending sort key
func (q *Query[T]) ThenByDesc(key ast.Expr) *Query[T] {
	return q.sort(key, true, true)
}

func (q *Query[T]) sort(key ast.Expr, desc, then bool) *Query[T] {
	if key == nil {
		return q.failed(failure.Translationf("orderBy", "nil sort key"))
	}
	return q.next(&ast.Sort{Input: q.node, Key: key, Desc: desc, Then: then})
}

// Take keeps at most n rows
func (q *Query[T]) Take(n int) *Query[T] {
	return q.next(&ast.Take{Input: q.node, N: n})
}

// Skip drops the first n rows
func (q *Query[T]) Skip(n int) *Query[T] {
	return q.next(&ast.Skip{Input: q.node, N: n})
}

// Distinct removes duplicate rows
func (q *Query[T]) Distinct() *Query[T] {
	return q.next(&ast.Distinct{Input: q.node})
}

// Union combines with other, removing duplicates
func (q *Query[T]) Union(other *Query[T]) *Query[T] {
	return q.combine(other, ast.SetUnion)
}

// UnionAll combines with other, keeping duplicates
func (q *Query[T]) UnionAll(other *Query[T]) *Query[T] {
	return q.combine(other, ast.SetUnionAll)
}

// Intersect keeps rows present in both chains
func (q *Query[T]) Intersect(other *Query[T]) *Query[T] {
	return q.combine(other, ast.SetIntersect)
}

// Except keeps rows absent from other
func (q *Query[T]) Except(other *Query[T]) *Query[T] {
	return q.combine(other, ast.SetExcept)
}

func (q *Query[T]) combine(other *Query[T], kind ast.SetKind) *Query[T] {
	if other == nil {
		return q.failed(failure.Translationf(string(ast.NodeTypeSetCombine), "nil operand"))
	}
	if other.err != nil {
		return q.failed(other.err)
	}
	return q.next(&ast.SetCombine{Input: q.node, Other: other.node, Kind: kind})
}

// GroupBy groups rows by key, a scalar expression or an ast.Shape for
// composite keys
func (q *Query[T]) GroupBy(key ast.Expr) *Grouping[T] {
	if key == nil {
		return &Grouping[T]{q.fail(failure.Translationf("groupBy", "nil key"))}
	}
	return &Grouping[T]{q.then(&ast.GroupBy{Input: q.node, Key: key})}
}

// Select projects every row onto shape. Fields read back by name through Row.
func Select(c Chain, shape ast.Shape) *Query[Row] {
	return SelectInto[Row](c, shape)
}

// SelectInto projects every row onto shape and binds the fields to R by name
func SelectInto[R any](c Chain, shape ast.Shape) *Query[R] {
	l := c.chain()
	return &Query[R]{l.then(&ast.Project{Input: l.node, Shape: shape})}
}

// SelectValue projects every row onto one scalar expression
func SelectValue[V any](c Chain, expr ast.Expr) *Query[V] {
	return SelectInto[V](c, ast.Fields(ast.As("value", expr)))
}

// Join pairs outer rows with inner rows whose keys are equal. Keys are
// scalar expressions or ast.Shapes with the same field count. An empty
// result shape yields the fields "outer" and "inner" holding both rows, which
// bind to a struct such as Pair.
func Join[R, O, I any](outer *Query[O], inner *Query[I], outerKey, innerKey ast.Expr, result ast.Shape) *Query[R] {
	return join[R](outer, inner, outerKey, innerKey, result, ast.JoinInner)
}

// LeftJoin is Join keeping outer rows without a match; their inner fields
// are NULL
func LeftJoin[R, O, I any](outer *Query[O], inner *Query[I], outerKey, innerKey ast.Expr, result ast.Shape) *Query[R] {
	return join[R](outer, inner, outerKey, innerKey, result, ast.JoinLeft)
}

func join[R, O, I any](outer *Query[O], inner *Query[I], outerKey, innerKey ast.Expr, result ast.Shape, kind ast.JoinKind) *Query[R] {
	l := outer.link
	if inner.err != nil {
		l = l.fail(inner.err)
	}
	return &Query[R]{l.then(&ast.Join{
		Input:    outer.node,
		Inner:    inner.node,
		OuterKey: outerKey,
		InnerKey: innerKey,
		Result:   result,
		Kind:     kind,
	})}
}

// CrossApply pairs every outer row with every inner row
func CrossApply[R, O, I any](outer *Query[O], inner *Query[I], result ast.Shape) *Query[R] {
	l := outer.link
	if inner.err != nil {
		l = l.fail(inner.err)
	}
	return &Query[R]{l.then(&ast.CrossApply{Input: outer.node, Inner: inner.node, Result: result})}
}

// Pair is the default row of a join: the outer row and the inner row, nil
// when a left join found no match
type Pair[O, I any] struct {
	Outer O
	Inner *I
}

// Sub returns the chain as a subquery expression for Exists and InQuery
func (q *Query[T]) Sub() ast.Node {
	return q.node
}

// ToSQL renders the statement ToList would run
func (q *Query[T]) ToSQL() (*sqlgen.Query, error) {
	return q.ToSQLFor(compiler.Terminal{Kind: compiler.TerminalList})
}

// ToSQLFor renders the statement a terminal of the given kind would run
func (q *Query[T]) ToSQLFor(term compiler.Terminal) (*sqlgen.Query, error) {
	_, rq, err := q.compile(term)
	return rq, err
}

func (l link) compile(term compiler.Terminal) (*compiler.Compiled, *sqlgen.Query, error) {
	if l.err != nil {
		return nil, nil, l.err
	}
	c := l.compiler()
	out, err := c.Compile(l.node, term)
	if err != nil {
		return nil, nil, err
	}
	rq, err := sqlgen.NewRenderer(c.Profile()).Render(out.Stmt)
	if err != nil {
		return nil, nil, err
	}
	return out, rq, nil
}

func typeOf[V any]() reflect.Type {
	return reflect.TypeOf((*V)(nil)).Elem()
}
