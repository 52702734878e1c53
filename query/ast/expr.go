package ast

import "github.com/satishbabariya/sqlchain/query/dialect"

// Expr is a scalar expression embedded in a chain operator
type Expr interface {
	exprNode()
}

// Side selects which row a ColumnRef reads from
type Side int

const (
	// SideCurrent is the row of the operator's own input
	SideCurrent Side = iota
	// SideOuter is the left row inside a join or cross-apply result
	SideOuter
	// SideInner is the right row inside a join or cross-apply result
	SideInner
	// SideParent is the enclosing query's row inside a subquery
	SideParent
	// SideKey is the group key after GroupBy
	SideKey
)

func (s Side) String() string {
	switch s {
	case SideOuter:
		return "outer"
	case SideInner:
		return "inner"
	case SideParent:
		return "parent"
	case SideKey:
		return "key"
	default:
		return "current"
	}
}

// ColumnRef reads a field. An empty Name refers to the whole row (or the whole key).
// Dotted names walk into nested rows of a shape, e.g. "customer.name".
type ColumnRef struct {
	Side Side
	Name string
}

// Literal is a caller value; it is always sent as a bound parameter
type Literal struct {
	Value any
}

// Param is a caller value with an explicit parameter name
type Param struct {
	Name  string
	Value any
}

// BinaryOp is an infix operator
type BinaryOp string

const (
	OpEq     BinaryOp = "="
	OpNe     BinaryOp = "<>"
	OpLt     BinaryOp = "<"
	OpLe     BinaryOp = "<="
	OpGt     BinaryOp = ">"
	OpGe     BinaryOp = ">="
	OpAnd    BinaryOp = "AND"
	OpOr     BinaryOp = "OR"
	OpAdd    BinaryOp = "+"
	OpSub    BinaryOp = "-"
	OpMul    BinaryOp = "*"
	OpDiv    BinaryOp = "/"
	OpMod    BinaryOp = "%"
	OpBitAnd BinaryOp = "&"
	OpBitOr  BinaryOp = "|"
)

// Comparison reports whether op compares two values
func (op BinaryOp) Comparison() bool {
	switch op {
	case OpEq, OpNe, OpLt, OpLe, OpGt, OpGe:
		return true
	}
	return false
}

// Logical reports whether op combines two predicates
func (op BinaryOp) Logical() bool {
	return op == OpAnd || op == OpOr
}

// Binary applies an infix operator
type Binary struct {
	Op    BinaryOp
	Left  Expr
	Right Expr
}

// UnaryOp is a prefix operator
type UnaryOp string

const (
	OpNot    UnaryOp = "NOT"
	OpNeg    UnaryOp = "-"
	OpBitNot UnaryOp = "~"
)

// Unary applies a prefix operator
type Unary struct {
	Op UnaryOp
	X  Expr
}

// Call invokes a dialect scalar function
type Call struct {
	Func dialect.Func
	Args []Expr
}

// Conditional is a ternary expression
type Conditional struct {
	If   Expr
	Then Expr
	Else Expr
}

// Coalesce returns the first non-null argument
type Coalesce struct {
	Args []Expr
}

// HasValue tests a nullable value for presence
type HasValue struct {
	X Expr
}

// Like matches X against a caller pattern
type Like struct {
	X       Expr
	Pattern Expr
}

// InList tests membership in an in-memory collection
type InList struct {
	X      Expr
	Values []any
}

// InQuery tests membership in the single-field projection of a nested chain
type InQuery struct {
	X     Expr
	Query Node
}

// Exists tests whether a nested chain yields any row. The nested chain may read
// the enclosing row through ParentCol.
type Exists struct {
	Query Node
}

// AggFunc is an aggregate function over a group
type AggFunc string

const (
	AggCount AggFunc = "COUNT"
	AggSum   AggFunc = "SUM"
	AggMin   AggFunc = "MIN"
	AggMax   AggFunc = "MAX"
	AggAvg   AggFunc = "AVG"
)

// Aggregate applies an aggregate to the rows of the current group. A nil Arg counts rows.
type Aggregate struct {
	Func     AggFunc
	Arg      Expr
	Distinct bool
}

// Cast converts X to a logical type
type Cast struct {
	X  Expr
	To dialect.CastType
}

// Now is the current instant
type Now struct{}

// Field is one named member of a Shape
type Field struct {
	Name string
	Expr Expr
}

// Shape is an ordered, named projection. It doubles as a composite key.
type Shape struct {
	Fields []Field
}

func (ColumnRef) exprNode()   {}
func (Literal) exprNode()     {}
func (Param) exprNode()       {}
func (Binary) exprNode()      {}
func (Unary) exprNode()       {}
func (Call) exprNode()        {}
func (Conditional) exprNode() {}
func (Coalesce) exprNode()    {}
func (HasValue) exprNode()    {}
func (Like) exprNode()        {}
func (InList) exprNode()      {}
func (InQuery) exprNode()     {}
func (Exists) exprNode()      {}
func (Aggregate) exprNode()   {}
func (Cast) exprNode()        {}
func (Now) exprNode()         {}
func (Shape) exprNode()       {}

// Names returns the field names of the shape in order
func (s Shape) Names() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}
