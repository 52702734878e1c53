// Package ir is the structured SQL statement tree built by the compiler and
// serialized by sqlgen. It holds values, not text: parameters are named only
// when rendered.
package ir

import "github.com/satishbabariya/sqlchain/query/dialect"

// Statement is a renderable statement
type Statement interface {
	stmt()
}

// Expr is a SQL expression
type Expr interface {
	expr()
}

// Source is a FROM or JOIN target
type Source interface {
	source()
}

// Select is a single SELECT statement
type Select struct {
	Distinct bool
	Columns  []Projection
	From     Source
	Joins    []Join
	Where    Expr
	GroupBy  []Expr
	Having   Expr
	OrderBy  []Order
	Limit    *int
	Offset   *int
}

// Projection is one select-list entry
type Projection struct {
	Expr  Expr
	Alias string
}

// Order is one ORDER BY term
type Order struct {
	Expr Expr
	Desc bool
}

// JoinKind is the join operator
type JoinKind string

const (
	InnerJoin JoinKind = "INNER JOIN"
	LeftJoin  JoinKind = "LEFT OUTER JOIN"
	CrossJoin JoinKind = "CROSS JOIN"
)

// Join attaches a source to a select
type Join struct {
	Kind   JoinKind
	Source Source
	On     Expr
}

// Table is a base table reference
type Table struct {
	Name  string
	Alias string
}

// Derived is a subquery used as a source
type Derived struct {
	Stmt  Statement
	Alias string
}

// SetOp is a set operator
type SetOp string

const (
	Union     SetOp = "UNION"
	UnionAll  SetOp = "UNION ALL"
	Intersect SetOp = "INTERSECT"
	Except    SetOp = "EXCEPT"
)

// Compound combines two statements of identical shape
type Compound struct {
	Op    SetOp
	Left  Statement
	Right Statement
}

// Delete removes rows of a table
type Delete struct {
	Table Table
	Where Expr
}

// Column reads a column of a source alias; an empty Table leaves it unqualified
type Column struct {
	Table string
	Name  string
}

// Param is a bound value. Name is empty for generated parameters.
type Param struct {
	Name  string
	Value any
}

// Const is compiler-owned SQL text such as 1, 0 or NULL. Caller values never use it.
type Const struct {
	SQL string
}

// Binary is an infix operation
type Binary struct {
	Op    string
	Left  Expr
	Right Expr
}

// Unary is a prefix operation
type Unary struct {
	Op string
	X  Expr
}

// Func applies a dialect function template
type Func struct {
	Func dialect.Func
	Args []Expr
}

// When is one CASE branch
type When struct {
	Cond Expr
	Then Expr
}

// Case is a searched CASE expression
type Case struct {
	Whens []When
	Else  Expr
}

// Cast converts to a logical type
type Cast struct {
	X  Expr
	To dialect.CastType
}

// Coalesce returns the first non-null argument
type Coalesce struct {
	Args []Expr
}

// IsNull tests for NULL
type IsNull struct {
	X   Expr
	Not bool
}

// In tests membership in a list
type In struct {
	X    Expr
	List []Expr
}

// InSelect tests membership in a single-column subquery
type InSelect struct {
	X   Expr
	Sub Statement
}

// Exists tests whether a subquery yields a row
type Exists struct {
	Sub Statement
	Not bool
}

// Like is a pattern match
type Like struct {
	X       Expr
	Pattern Expr
}

// Aggregate is an aggregate call; a nil Arg renders *
type Aggregate struct {
	Func     string
	Arg      Expr
	Distinct bool
}

// Now reads the database clock
type Now struct{}

// Subquery is a scalar subquery
type Subquery struct {
	Stmt Statement
}

var (
	// True is an always-true predicate
	True = Binary{Op: "=", Left: Const{SQL: "1"}, Right: Const{SQL: "1"}}
	// False is an always-false predicate
	False = Binary{Op: "=", Left: Const{SQL: "1"}, Right: Const{SQL: "0"}}
	// Null is the NULL literal
	Null = Const{SQL: "NULL"}
	// One is the integer constant 1
	One = Const{SQL: "1"}
	// Zero is the integer constant 0
	Zero = Const{SQL: "0"}
	// Star is the * projection
	Star = Const{SQL: "*"}
)

func (*Select) stmt()   {}
func (*Compound) stmt() {}
func (*Delete) stmt()   {}

func (Table) source()   {}
func (Derived) source() {}

func (Column) expr()    {}
func (Param) expr()     {}
func (Const) expr()     {}
func (Binary) expr()    {}
func (Unary) expr()     {}
func (Func) expr()      {}
func (Case) expr()      {}
func (Cast) expr()      {}
func (Coalesce) expr()  {}
func (IsNull) expr()    {}
func (In) expr()        {}
func (InSelect) expr()  {}
func (Exists) expr()    {}
func (Like) expr()      {}
func (Aggregate) expr() {}
func (Now) expr()       {}
func (Subquery) expr()  {}

// Clone returns a shallow copy of the select with its own clause slices
func (s *Select) Clone() *Select {
	c := *s
	c.Columns = append([]Projection(nil), s.Columns...)
	c.Joins = append([]Join(nil), s.Joins...)
	c.GroupBy = append([]Expr(nil), s.GroupBy...)
	c.OrderBy = append([]Order(nil), s.OrderBy...)
	return &c
}

// Paged reports whether the select carries LIMIT or OFFSET
func (s *Select) Paged() bool {
	return s.Limit != nil || s.Offset != nil
}

// Simple reports whether aggregating over the select can reuse its clauses directly
func (s *Select) Simple() bool {
	return !s.Distinct && !s.Paged() && len(s.GroupBy) == 0 && s.Having == nil
}

// IntPtr returns a pointer to n
func IntPtr(n int) *int {
	return &n
}

// And combines predicates, skipping nils
func And(preds ...Expr) Expr {
	var out Expr
	for _, p := range preds {
		if p == nil {
			continue
		}
		if out == nil {
			out = p
			continue
		}
		out = Binary{Op: "AND", Left: out, Right: p}
	}
	return out
}
