// Package ast defines the operator chain and the scalar expression tree.
package ast

import "github.com/satishbabariya/sqlchain/query/mapping"

// Node is one operator in a chain. Every node except Source has exactly one input.
// Nodes are never modified after construction, so chains can share prefixes.
type Node interface {
	Type() NodeType
	Prev() Node
}

// NodeType represents the type of chain node
type NodeType string

const (
	NodeTypeSource     NodeType = "Source"
	NodeTypeFilter     NodeType = "Filter"
	NodeTypeProject    NodeType = "Project"
	NodeTypeSort       NodeType = "Sort"
	NodeTypeJoin       NodeType = "Join"
	NodeTypeGroupBy    NodeType = "GroupBy"
	NodeTypeHaving     NodeType = "Having"
	NodeTypeTake       NodeType = "Take"
	NodeTypeSkip       NodeType = "Skip"
	NodeTypeSetCombine NodeType = "SetCombine"
	NodeTypeDistinct   NodeType = "Distinct"
	NodeTypeCrossApply NodeType = "CrossApply"
)

// JoinKind distinguishes inner and left outer joins
type JoinKind string

const (
	JoinInner JoinKind = "INNER"
	JoinLeft  JoinKind = "LEFT"
)

// SetKind is the set operator of a SetCombine
type SetKind string

const (
	SetUnion     SetKind = "UNION"
	SetUnionAll  SetKind = "UNION ALL"
	SetIntersect SetKind = "INTERSECT"
	SetExcept    SetKind = "EXCEPT"
)

// Source starts a chain over a mapped table
type Source struct {
	Table *mapping.Table
}

func (n *Source) Type() NodeType { return NodeTypeSource }
func (n *Source) Prev() Node     { return nil }

// Filter keeps rows matching Pred. Chained filters AND together.
type Filter struct {
	Input Node
	Pred  Expr
}

func (n *Filter) Type() NodeType { return NodeTypeFilter }
func (n *Filter) Prev() Node     { return n.Input }

// Project replaces the current row with Shape
type Project struct {
	Input Node
	Shape Shape
}

func (n *Project) Type() NodeType { return NodeTypeProject }
func (n *Project) Prev() Node     { return n.Input }

// Sort orders by Key. Then appends to the previous ordering instead of replacing it.
type Sort struct {
	Input Node
	Key   Expr
	Desc  bool
	Then  bool
}

func (n *Sort) Type() NodeType { return NodeTypeSort }
func (n *Sort) Prev() Node     { return n.Input }

// Join correlates the current row (outer) with rows of Inner.
// OuterKey is evaluated against the outer row and InnerKey against the inner row;
// composite keys are Shapes with the same field count. Result may reference both
// sides with OuterCol/InnerCol and whole rows with OuterRow/InnerRow.
type Join struct {
	Input    Node
	Inner    Node
	OuterKey Expr
	InnerKey Expr
	Result   Shape
	Kind     JoinKind
}

func (n *Join) Type() NodeType { return NodeTypeJoin }
func (n *Join) Prev() Node     { return n.Input }

// CrossApply pairs every outer row with every row of Inner
type CrossApply struct {
	Input  Node
	Inner  Node
	Result Shape
}

func (n *CrossApply) Type() NodeType { return NodeTypeCrossApply }
func (n *CrossApply) Prev() Node     { return n.Input }

// GroupBy groups rows by Key (a scalar or a Shape for composite keys).
// After it, expressions may only use KeyRef/KeyField and aggregates.
type GroupBy struct {
	Input Node
	Key   Expr
}

func (n *GroupBy) Type() NodeType { return NodeTypeGroupBy }
func (n *GroupBy) Prev() Node     { return n.Input }

// Having filters groups by an aggregate predicate
type Having struct {
	Input Node
	Pred  Expr
}

func (n *Having) Type() NodeType { return NodeTypeHaving }
func (n *Having) Prev() Node     { return n.Input }

// Take limits the result to N rows
type Take struct {
	Input Node
	N     int
}

func (n *Take) Type() NodeType { return NodeTypeTake }
func (n *Take) Prev() Node     { return n.Input }

// Skip drops the first N rows
type Skip struct {
	Input Node
	N     int
}

func (n *Skip) Type() NodeType { return NodeTypeSkip }
func (n *Skip) Prev() Node     { return n.Input }

// SetCombine applies a set operator between the chain and Other
type SetCombine struct {
	Input Node
	Other Node
	Kind  SetKind
}

func (n *SetCombine) Type() NodeType { return NodeTypeSetCombine }
func (n *SetCombine) Prev() Node     { return n.Input }

// Distinct removes duplicate rows
type Distinct struct {
	Input Node
}

func (n *Distinct) Type() NodeType { return NodeTypeDistinct }
func (n *Distinct) Prev() Node     { return n.Input }

// Chain returns the nodes from the source to n, in application order
func Chain(n Node) []Node {
	var nodes []Node
	for ; n != nil; n = n.Prev() {
		nodes = append(nodes, n)
	}
	for i, j := 0, len(nodes)-1; i < j; i, j = i+1, j-1 {
		nodes[i], nodes[j] = nodes[j], nodes[i]
	}
	return nodes
}

// Root returns the Source a chain starts from
func Root(n Node) *Source {
	for ; n != nil; n = n.Prev() {
		if src, ok := n.(*Source); ok {
			return src
		}
	}
	return nil
}
