package query

import (
	"context"
	"errors"
	"reflect"

	"github.com/satishbabariya/sqlchain/query/ast"
	"github.com/satishbabariya/sqlchain/query/compiler"
	"github.com/satishbabariya/sqlchain/query/executor"
	"github.com/satishbabariya/sqlchain/query/failure"
)

// Grouping is a chain grouped by a key. Project it with Select or SelectInto
// using KeyRef/KeyField and aggregates, or read whole groups with Groups.
type Grouping[T any] struct {
	link
}

// Having keeps the groups matching an aggregate predicate
func (g *Grouping[T]) Having(pred ast.Expr) *Grouping[T] {
	if pred == nil {
		return &Grouping[T]{g.fail(failure.Translationf("having", "nil predicate"))}
	}
	return &Grouping[T]{g.then(&ast.Having{Input: g.node, Pred: pred})}
}

// Select projects every group onto shape
func (g *Grouping[T]) Select(shape ast.Shape) *Query[Row] {
	return Select(g, shape)
}

// Keys is the chain of distinct group keys
func (g *Grouping[T]) Keys() *Query[Row] {
	return &Query[Row]{g.link}
}

var errShortRow = errors.New("row is shorter than its materialization plan")

// Group is one group key with the elements that share it
type Group[K, T any] struct {
	Key   K
	Items []T
}

// Groups reads every group with its elements. K is a scalar for a single key
// or a struct (or Row) for a composite ast.Shape key.
func Groups[K, T any](ctx context.Context, g *Grouping[T]) ([]Group[K, T], error) {
	out, res, err := g.run(ctx, compiler.Terminal{Kind: compiler.TerminalGroups})
	if err != nil {
		return nil, err
	}

	plan := out.Plan
	profile := g.session.Profile()
	elems, err := executor.NewBinder(typeOf[T](), plan.Table, plan.Fields, profile)
	if err != nil {
		return nil, err
	}
	keys, err := executor.NewBinder(typeOf[K](), nil, plan.Keys, profile)
	if err != nil {
		return nil, err
	}

	n := len(plan.Fields)
	var groups []Group[K, T]
	var prev []any
	for _, row := range res.Rows {
		if len(row) < n+len(plan.Keys) {
			return nil, failure.NewExecution("groups", "", string(profile.Name()), errShortRow)
		}
		item, err := elems.Bind(row[:n])
		if err != nil {
			return nil, err
		}
		raw := row[n : n+len(plan.Keys)]
		if len(groups) == 0 || !reflect.DeepEqual(raw, prev) {
			key, err := keys.Bind(raw)
			if err != nil {
				return nil, err
			}
			groups = append(groups, Group[K, T]{Key: key.Interface().(K)})
			prev = raw
		}
		last := &groups[len(groups)-1]
		last.Items = append(last.Items, item.Interface().(T))
	}
	return groups, nil
}

// GroupsAsync is the asynchronous form of Groups
func GroupsAsync[K, T any](ctx context.Context, g *Grouping[T]) *Future[[]Group[K, T]] {
	return async(ctx, func(ctx context.Context) ([]Group[K, T], error) { return Groups[K](ctx, g) })
}

// Count returns the number of groups
func (g *Grouping[T]) Count(ctx context.Context) (int, error) {
	return g.Keys().Count(ctx)
}
