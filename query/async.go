package query

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/satishbabariya/sqlchain/query/ast"
	"github.com/satishbabariya/sqlchain/query/failure"
)

// Future is the pending result of an asynchronous terminal. The value is
// delivered only after every row has been read.
type Future[V any] struct {
	done chan struct{}
	val  V
	err  error
}

func async[V any](ctx context.Context, fn func(context.Context) (V, error)) *Future[V] {
	f := &Future[V]{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		f.val, f.err = fn(ctx)
	}()
	return f
}

// Await blocks until the result is ready or ctx ends. Ending ctx stops the
// wait only; the statement itself is bound to the context the terminal got.
func (f *Future[V]) Await(ctx context.Context) (V, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero V
		return zero, failure.NewExecution("await", "", "", ctx.Err())
	}
}

// Done is closed when the result is ready
func (f *Future[V]) Done() <-chan struct{} {
	return f.done
}

func (f *Future[V]) wait(ctx context.Context) error {
	_, err := f.Await(ctx)
	return err
}

// Awaitable is any Future
type Awaitable interface {
	wait(ctx context.Context) error
}

// WhenAll waits for every future and returns the first failure
func WhenAll(ctx context.Context, futures ...Awaitable) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, f := range futures {
		g.Go(func() error {
			return f.wait(gctx)
		})
	}
	return g.Wait()
}

// ToListAsync is the asynchronous form of ToList
func (q *Query[T]) ToListAsync(ctx context.Context) *Future[[]T] {
	return async(ctx, q.ToList)
}

// ToArrayAsync is the asynchronous form of ToArray
func (q *Query[T]) ToArrayAsync(ctx context.Context) *Future[[]T] {
	return async(ctx, q.ToArray)
}

// FirstAsync is the asynchronous form of First
func (q *Query[T]) FirstAsync(ctx context.Context) *Future[T] {
	return async(ctx, q.First)
}

// FirstOrDefaultAsync is the asynchronous form of FirstOrDefault
func (q *Query[T]) FirstOrDefaultAsync(ctx context.Context) *Future[T] {
	return async(ctx, q.FirstOrDefault)
}

// SingleAsync is the asynchronous form of Single
func (q *Query[T]) SingleAsync(ctx context.Context) *Future[T] {
	return async(ctx, q.Single)
}

// SingleOrDefaultAsync is the asynchronous form of SingleOrDefault
func (q *Query[T]) SingleOrDefaultAsync(ctx context.Context) *Future[T] {
	return async(ctx, q.SingleOrDefault)
}

// ElementAtAsync is the asynchronous form of ElementAt
func (q *Query[T]) ElementAtAsync(ctx context.Context, index int) *Future[T] {
	return async(ctx, func(ctx context.Context) (T, error) { return q.ElementAt(ctx, index) })
}

// ElementAtOrDefaultAsync is the asynchronous form of ElementAtOrDefault
func (q *Query[T]) ElementAtOrDefaultAsync(ctx context.Context, index int) *Future[T] {
	return async(ctx, func(ctx context.Context) (T, error) { return q.ElementAtOrDefault(ctx, index) })
}

// CountAsync is the asynchronous form of Count
func (q *Query[T]) CountAsync(ctx context.Context) *Future[int] {
	return async(ctx, q.Count)
}

// LongCountAsync is the asynchronous form of LongCount
func (q *Query[T]) LongCountAsync(ctx context.Context) *Future[int64] {
	return async(ctx, q.LongCount)
}

// AnyAsync is the asynchronous form of Any
func (q *Query[T]) AnyAsync(ctx context.Context) *Future[bool] {
	return async(ctx, q.Any)
}

// AnyWhereAsync is the asynchronous form of AnyWhere
func (q *Query[T]) AnyWhereAsync(ctx context.Context, pred ast.Expr) *Future[bool] {
	return async(ctx, func(ctx context.Context) (bool, error) { return q.AnyWhere(ctx, pred) })
}

// AllAsync is the asynchronous form of All
func (q *Query[T]) AllAsync(ctx context.Context, pred ast.Expr) *Future[bool] {
	return async(ctx, func(ctx context.Context) (bool, error) { return q.All(ctx, pred) })
}

// DeleteAsync is the asynchronous form of Delete
func (q *Query[T]) DeleteAsync(ctx context.Context) *Future[int64] {
	return async(ctx, q.Delete)
}

// SumAsync is the asynchronous form of Sum
func SumAsync[V Number, T any](ctx context.Context, q *Query[T], selector ast.Expr) *Future[V] {
	return async(ctx, func(ctx context.Context) (V, error) { return Sum[V](ctx, q, selector) })
}

// MinAsync is the asynchronous form of Min
func MinAsync[V any, T any](ctx context.Context, q *Query[T], selector ast.Expr) *Future[V] {
	return async(ctx, func(ctx context.Context) (V, error) { return Min[V](ctx, q, selector) })
}

// MaxAsync is the asynchronous form of Max
func MaxAsync[V any, T any](ctx context.Context, q *Query[T], selector ast.Expr) *Future[V] {
	return async(ctx, func(ctx context.Context) (V, error) { return Max[V](ctx, q, selector) })
}

// AverageAsync is the asynchronous form of Average
func AverageAsync[V any, T any](ctx context.Context, q *Query[T], selector ast.Expr) *Future[V] {
	return async(ctx, func(ctx context.Context) (V, error) { return Average[V](ctx, q, selector) })
}
