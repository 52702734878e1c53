// Package compiler compiles operator chains into SQL IR.
package compiler

import (
	"fmt"
	"reflect"
	"time"

	"github.com/satishbabariya/sqlchain/query/ast"
	"github.com/satishbabariya/sqlchain/query/dialect"
	"github.com/satishbabariya/sqlchain/query/failure"
	"github.com/satishbabariya/sqlchain/query/ir"
	"github.com/satishbabariya/sqlchain/query/mapping"
)

// Compiler compiles operator chains for one dialect
type Compiler struct {
	profile dialect.Profile
	clock   func() time.Time
}

// Option configures a Compiler
type Option func(*Compiler)

// WithClientClock makes Now bind the client's current time instead of reading
// the database clock
func WithClientClock(clock func() time.Time) Option {
	return func(c *Compiler) {
		if clock == nil {
			clock = time.Now
		}
		c.clock = clock
	}
}

// NewCompiler creates a new chain compiler
func NewCompiler(profile dialect.Profile, opts ...Option) *Compiler {
	c := &Compiler{profile: profile}
	if profile.Now() == dialect.NowClient {
		c.clock = time.Now
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Profile returns the dialect the compiler targets
func (c *Compiler) Profile() dialect.Profile {
	return c.profile
}

// TerminalKind selects what a terminal operator asks of the chain
type TerminalKind int

const (
	TerminalList TerminalKind = iota
	TerminalFirst
	TerminalSingle
	TerminalElementAt
	TerminalCount
	TerminalAny
	TerminalAll
	TerminalSum
	TerminalMin
	TerminalMax
	TerminalAverage
	TerminalDelete
	TerminalGroups
)

var terminalNames = map[TerminalKind]string{
	TerminalList:      "list",
	TerminalFirst:     "first",
	TerminalSingle:    "single",
	TerminalElementAt: "elementAt",
	TerminalCount:     "count",
	TerminalAny:       "any",
	TerminalAll:       "all",
	TerminalSum:       "sum",
	TerminalMin:       "min",
	TerminalMax:       "max",
	TerminalAverage:   "average",
	TerminalDelete:    "delete",
	TerminalGroups:    "groups",
}

func (k TerminalKind) String() string {
	if s, ok := terminalNames[k]; ok {
		return s
	}
	return fmt.Sprintf("terminal(%d)", int(k))
}

// Terminal describes the terminal operator applied to a chain
type Terminal struct {
	Kind TerminalKind
	// Index is the element position for TerminalElementAt
	Index int
	// Pred is the predicate of TerminalAll
	Pred ast.Expr
	// Selector is the aggregated value of Sum/Min/Max/Average; nil uses the
	// chain's single projected field
	Selector ast.Expr
}

// PlanKind says how result rows become values
type PlanKind int

const (
	// PlanRows binds every row to one element
	PlanRows PlanKind = iota
	// PlanScalar reads the first column of the first row
	PlanScalar
	// PlanGroups binds rows ordered by key; the trailing Keys columns hold the key
	PlanGroups
	// PlanExec reports the affected row count
	PlanExec
)

// OutField is one output column of a compiled statement
type OutField struct {
	Name   string
	Column *mapping.Column
	Type   reflect.Type
}

// Plan is the materialization plan of a compiled chain
type Plan struct {
	Kind     PlanKind
	Terminal Terminal
	// Table is set when rows are entities of a mapped table
	Table  *mapping.Table
	Fields []OutField
	Keys   []OutField
	// SingleKey is set when the group key is one value rather than a shape
	SingleKey bool
}

// Compiled is a statement ready for rendering plus how to read its rows
type Compiled struct {
	Stmt ir.Statement
	Plan Plan
}

// Compile translates a chain and its terminal into a statement
func (c *Compiler) Compile(chain ast.Node, term Terminal) (*Compiled, error) {
	if chain == nil {
		return nil, failure.Translationf(term.Kind.String(), "empty chain")
	}
	cc := &compilation{c: c}
	switch term.Kind {
	case TerminalDelete:
		return cc.delete(chain)
	case TerminalGroups:
		return cc.groups(chain)
	}

	st, err := cc.chain(chain, nil)
	if err != nil {
		return nil, err
	}
	return cc.terminal(st, term)
}

// compilation carries per-statement alias counters shared by all nested chains
type compilation struct {
	c       *Compiler
	tables  int
	derived int
}

func (cc *compilation) tableAlias() string {
	alias := fmt.Sprintf("t%d", cc.tables)
	cc.tables++
	return alias
}

func (cc *compilation) derivedAlias() string {
	alias := fmt.Sprintf("d%d", cc.derived)
	cc.derived++
	return alias
}

// chain compiles every operator of a chain. parent is the enclosing query's
// environment when the chain is a subquery.
func (cc *compilation) chain(n ast.Node, parent *env) (*state, error) {
	nodes := ast.Chain(n)
	src, ok := nodes[0].(*ast.Source)
	if !ok {
		return nil, failure.Translationf("source", "chain does not start with a source")
	}
	if src.Table == nil {
		return nil, failure.Mappingf("", "source has no table mapping")
	}
	st := cc.source(src.Table, parent)
	for _, node := range nodes[1:] {
		if err := st.apply(node); err != nil {
			return nil, err
		}
	}
	return st, nil
}
