package ast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satishbabariya/sqlchain/query/dialect"
	"github.com/satishbabariya/sqlchain/query/mapping"
)

func TestChainOrderAndSharing(t *testing.T) {
	src := &Source{Table: mapping.NewTable("orders", &mapping.Column{Name: "id"})}
	base := &Filter{Input: src, Pred: Gt(Col("id"), 3)}
	left := &Take{Input: base, N: 5}
	right := &Skip{Input: base, N: 2}

	chain := Chain(left)
	require.Len(t, chain, 3)
	assert.Equal(t, NodeTypeSource, chain[0].Type())
	assert.Equal(t, NodeTypeFilter, chain[1].Type())
	assert.Equal(t, NodeTypeTake, chain[2].Type())

	assert.Same(t, base, right.Prev())
	assert.Same(t, src, Root(right))
	assert.Len(t, Chain(right), 3)
}

func TestBuildersWrapValues(t *testing.T) {
	e := Eq(Col("name"), "bob")
	assert.Equal(t, ColumnRef{Side: SideCurrent, Name: "name"}, e.Left)
	assert.Equal(t, Literal{Value: "bob"}, e.Right)

	assert.Equal(t, Literal{Value: nil}, IsNull(Col("x")).Right)
	assert.Equal(t, Literal{Value: true}, And())
	assert.Equal(t, Col("a"), Or(Col("a")))

	and := And(Col("a"), Col("b"), Col("c")).(Binary)
	assert.Equal(t, OpAnd, and.Op)
	assert.Equal(t, Col("c"), and.Right)

	fold := ContainsFold(Col("name"), "AB")
	assert.Equal(t, dialect.FuncContains, fold.Func)
	assert.Equal(t, dialect.FuncLower, fold.Args[0].(Call).Func)

	c := Concat(Col("a"), "-", Col("b"))
	assert.Equal(t, dialect.FuncConcat, c.Func)
	assert.Equal(t, Col("b"), c.Args[1])
}

func TestInSliceFlattens(t *testing.T) {
	in := InSlice(Col("id"), []int{1, 2, 3})
	assert.Equal(t, []any{1, 2, 3}, in.Values)

	single := InSlice(Col("id"), 7)
	assert.Equal(t, []any{7}, single.Values)

	assert.Empty(t, InSlice(Col("id"), []string{}).Values)
}

func TestShapeNames(t *testing.T) {
	s := Fields(As("total", Sum(Col("amount"))), As("cat", Key()))
	assert.Equal(t, []string{"total", "cat"}, s.Names())
	assert.Equal(t, "key", SideKey.String())
	assert.Equal(t, "outer", OuterRow().Side.String())
}
