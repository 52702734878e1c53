package query

import (
	"context"
	"reflect"

	"github.com/satishbabariya/sqlchain/query/ast"
	"github.com/satishbabariya/sqlchain/query/compiler"
	"github.com/satishbabariya/sqlchain/query/executor"
	"github.com/satishbabariya/sqlchain/query/failure"
)

// run compiles the chain for term and reads the whole result
func (l link) run(ctx context.Context, term compiler.Terminal) (*compiler.Compiled, *executor.Result, error) {
	out, rq, err := l.compile(term)
	if err != nil {
		return nil, nil, err
	}
	res, err := l.session.Executor().Query(ctx, term.Kind.String(), rq)
	if err != nil {
		return nil, nil, err
	}
	return out, res, nil
}

// bindAll materializes every row as V. Rows of a table without declared
// columns take their field names from the result.
func bindAll[V any](l link, out *compiler.Compiled, res *executor.Result) ([]V, error) {
	fields := out.Plan.Fields
	if len(fields) == 0 {
		fields = make([]compiler.OutField, len(res.Columns))
		for i, c := range res.Columns {
			fields[i] = compiler.OutField{Name: c}
		}
	}
	b, err := executor.NewBinder(typeOf[V](), out.Plan.Table, fields, l.session.Profile())
	if err != nil {
		return nil, err
	}
	list := make([]V, 0, len(res.Rows))
	for _, row := range res.Rows {
		v, err := b.Bind(row)
		if err != nil {
			return nil, err
		}
		list = append(list, v.Interface().(V))
	}
	return list, nil
}

func rows[V any](ctx context.Context, l link, term compiler.Terminal) ([]V, error) {
	out, res, err := l.run(ctx, term)
	if err != nil {
		return nil, err
	}
	return bindAll[V](l, out, res)
}

// scalar reads the first column of the first row; present is false when the
// statement returned no row or NULL
func scalar[V any](ctx context.Context, l link, term compiler.Terminal) (v V, present bool, err error) {
	out, res, err := l.run(ctx, term)
	if err != nil {
		return v, false, err
	}
	if len(res.Rows) == 0 || len(res.Rows[0]) == 0 || res.Rows[0][0] == nil {
		return v, false, nil
	}
	b, err := executor.NewBinder(typeOf[V](), nil, out.Plan.Fields, l.session.Profile())
	if err != nil {
		return v, false, err
	}
	rv, err := b.Bind(res.Rows[0][:1])
	if err != nil {
		return v, false, err
	}
	return rv.Interface().(V), true, nil
}

// ToList runs the chain and returns every row
func (q *Query[T]) ToList(ctx context.Context) ([]T, error) {
	return rows[T](ctx, q.link, compiler.Terminal{Kind: compiler.TerminalList})
}

// ToArray runs the chain and returns every row
func (q *Query[T]) ToArray(ctx context.Context) ([]T, error) {
	return q.ToList(ctx)
}

// First returns the first row, failing with ErrNoElements when there is none
func (q *Query[T]) First(ctx context.Context) (T, error) {
	v, ok, err := q.first(ctx)
	if err == nil && !ok {
		err = failure.NewSequence("first", failure.ErrNoElements)
	}
	return v, err
}

// FirstOrDefault returns the first row, or the zero value when there is none
func (q *Query[T]) FirstOrDefault(ctx context.Context) (T, error) {
	v, _, err := q.first(ctx)
	return v, err
}

func (q *Query[T]) first(ctx context.Context) (T, bool, error) {
	var zero T
	list, err := rows[T](ctx, q.link, compiler.Terminal{Kind: compiler.TerminalFirst})
	if err != nil || len(list) == 0 {
		return zero, false, err
	}
	return list[0], true, nil
}

// Single returns the only row, failing when there are zero rows or several
func (q *Query[T]) Single(ctx context.Context) (T, error) {
	v, ok, err := q.single(ctx)
	if err == nil && !ok {
		err = failure.NewSequence("single", failure.ErrNoElements)
	}
	return v, err
}

// SingleOrDefault returns the only row or the zero value, failing only when
// there are several rows
func (q *Query[T]) SingleOrDefault(ctx context.Context) (T, error) {
	v, _, err := q.single(ctx)
	return v, err
}

func (q *Query[T]) single(ctx context.Context) (T, bool, error) {
	var zero T
	list, err := rows[T](ctx, q.link, compiler.Terminal{Kind: compiler.TerminalSingle})
	switch {
	case err != nil:
		return zero, false, err
	case len(list) > 1:
		return zero, false, failure.NewSequence("single", failure.ErrMoreThanOne)
	case len(list) == 0:
		return zero, false, nil
	}
	return list[0], true, nil
}

// ElementAt returns the row at the 0-based index, failing with ErrOutOfRange
// past the end
func (q *Query[T]) ElementAt(ctx context.Context, index int) (T, error) {
	v, ok, err := q.elementAt(ctx, index)
	if err == nil && !ok {
		err = failure.NewSequence("elementAt", failure.ErrOutOfRange)
	}
	return v, err
}

// ElementAtOrDefault returns the row at the 0-based index or the zero value
func (q *Query[T]) ElementAtOrDefault(ctx context.Context, index int) (T, error) {
	v, _, err := q.elementAt(ctx, index)
	return v, err
}

func (q *Query[T]) elementAt(ctx context.Context, index int) (T, bool, error) {
	var zero T
	list, err := rows[T](ctx, q.link, compiler.Terminal{Kind: compiler.TerminalElementAt, Index: index})
	if err != nil || len(list) == 0 {
		return zero, false, err
	}
	return list[0], true, nil
}

// Count returns the number of rows
func (q *Query[T]) Count(ctx context.Context) (int, error) {
	n, err := q.LongCount(ctx)
	return int(n), err
}

// LongCount returns the number of rows as int64
func (q *Query[T]) LongCount(ctx context.Context) (int64, error) {
	n, _, err := scalar[int64](ctx, q.link, compiler.Terminal{Kind: compiler.TerminalCount})
	return n, err
}

// Any reports whether the chain yields at least one row
func (q *Query[T]) Any(ctx context.Context) (bool, error) {
	ok, _, err := scalar[bool](ctx, q.link, compiler.Terminal{Kind: compiler.TerminalAny})
	return ok, err
}

// AnyWhere reports whether any row matches pred
func (q *Query[T]) AnyWhere(ctx context.Context, pred ast.Expr) (bool, error) {
	return q.Where(pred).Any(ctx)
}

// All reports whether every row matches pred; true for an empty chain
func (q *Query[T]) All(ctx context.Context, pred ast.Expr) (bool, error) {
	ok, _, err := scalar[bool](ctx, q.link, compiler.Terminal{Kind: compiler.TerminalAll, Pred: pred})
	return ok, err
}

// Delete removes the rows the chain selects and returns how many were
// removed. The chain must be a source followed by at least one Where and
// nothing else.
func (q *Query[T]) Delete(ctx context.Context) (int64, error) {
	_, rq, err := q.compile(compiler.Terminal{Kind: compiler.TerminalDelete})
	if err != nil {
		return 0, err
	}
	return q.session.Executor().Exec(ctx, "delete", rq)
}

// Number is the set of Go types Sum accepts
type Number interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64
}

func aggregate[V any, T any](ctx context.Context, q *Query[T], kind compiler.TerminalKind, selector ast.Expr) (V, bool, error) {
	return scalar[V](ctx, q.link, compiler.Terminal{Kind: kind, Selector: selector})
}

// Sum adds selector over every row; an empty chain sums to zero. A nil
// selector sums the chain's single projected field.
func Sum[V Number, T any](ctx context.Context, q *Query[T], selector ast.Expr) (V, error) {
	v, _, err := aggregate[V](ctx, q, compiler.TerminalSum, selector)
	return v, err
}

// Min returns the smallest selector value. An empty chain fails with
// ErrNoElements unless V is a pointer, which is then nil.
func Min[V any, T any](ctx context.Context, q *Query[T], selector ast.Expr) (V, error) {
	v, ok, err := aggregate[V](ctx, q, compiler.TerminalMin, selector)
	return nonEmpty("min", v, ok, err)
}

// Max returns the largest selector value, with the empty-chain rule of Min
func Max[V any, T any](ctx context.Context, q *Query[T], selector ast.Expr) (V, error) {
	v, ok, err := aggregate[V](ctx, q, compiler.TerminalMax, selector)
	return nonEmpty("max", v, ok, err)
}

// Average returns the mean of selector, with the empty-chain rule of Min
func Average[V any, T any](ctx context.Context, q *Query[T], selector ast.Expr) (V, error) {
	v, ok, err := aggregate[V](ctx, q, compiler.TerminalAverage, selector)
	return nonEmpty("average", v, ok, err)
}

func nonEmpty[V any](op string, v V, present bool, err error) (V, error) {
	if err != nil || present || typeOf[V]().Kind() == reflect.Ptr {
		return v, err
	}
	return v, failure.NewSequence(op, failure.ErrNoElements)
}
