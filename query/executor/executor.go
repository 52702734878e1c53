// Package executor runs rendered statements and materializes their rows.
package executor

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/satishbabariya/sqlchain/internal/debug"
	"github.com/satishbabariya/sqlchain/query/cache"
	"github.com/satishbabariya/sqlchain/query/dialect"
	"github.com/satishbabariya/sqlchain/query/failure"
	"github.com/satishbabariya/sqlchain/query/mapping"
	"github.com/satishbabariya/sqlchain/query/sqlgen"
)

// Conn runs statements; satisfied by *sql.DB, *sql.Tx and *sql.Conn
type Conn interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Session is what a chain runs against: a dialect, a mapping registry and an executor
type Session interface {
	Profile() dialect.Profile
	Registry() *mapping.Registry
	Executor() *Executor
}

// Event describes one executed statement
type Event struct {
	Op       string
	Dialect  dialect.Name
	SQL      string
	Params   int
	Rows     int64
	Duration time.Duration
	Err      error
}

// Observer receives an Event after every statement
type Observer interface {
	Observe(Event)
}

// Option configures an Executor
type Option func(*Executor)

// WithStatementCache runs statements through a shared prepared-statement cache
func WithStatementCache(c *cache.Statements) Option {
	return func(e *Executor) {
		e.stmts = c
	}
}

// WithLogger logs statements to l instead of the debug logger
func WithLogger(l *slog.Logger) Option {
	return func(e *Executor) {
		e.logger = l
	}
}

// WithObserver reports every statement to o
func WithObserver(o Observer) Option {
	return func(e *Executor) {
		e.observer = o
	}
}

// Executor binds parameters, runs statements and reads result sets
type Executor struct {
	conn     Conn
	profile  dialect.Profile
	stmts    *cache.Statements
	prep     cache.Preparer
	tx       *sql.Tx
	logger   *slog.Logger
	observer Observer
}

// NewExecutor creates an executor over conn for one dialect
func NewExecutor(conn Conn, profile dialect.Profile, opts ...Option) *Executor {
	e := &Executor{conn: conn, profile: profile}
	if tx, ok := conn.(*sql.Tx); ok {
		e.tx = tx
	} else if p, ok := conn.(cache.Preparer); ok {
		e.prep = p
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// InTx returns an executor running on tx. It shares the statement cache;
// cached statements are rebound to the transaction.
func (e *Executor) InTx(tx *sql.Tx) *Executor {
	c := *e
	c.conn = tx
	c.tx = tx
	return &c
}

// Profile returns the dialect the executor binds for
func (e *Executor) Profile() dialect.Profile {
	return e.profile
}

// Conn returns the underlying connection
func (e *Executor) Conn() Conn {
	return e.conn
}

// Statements returns the statement cache, or nil when caching is off
func (e *Executor) Statements() *cache.Statements {
	return e.stmts
}

// Result is a fully read result set
type Result struct {
	Columns []string
	Rows    [][]any
}

// Query runs a statement and reads every row before returning
func (e *Executor) Query(ctx context.Context, op string, q *sqlgen.Query) (*Result, error) {
	start := time.Now()
	args, err := e.bindArgs(q)
	if err != nil {
		return nil, e.finish(ctx, op, q, start, 0, err)
	}

	rows, done, err := e.query(ctx, q.SQL, args)
	if err != nil {
		return nil, e.finish(ctx, op, q, start, 0, err)
	}
	defer done()
	defer rows.Close()

	res, err := read(rows)
	if err != nil {
		return nil, e.finish(ctx, op, q, start, 0, err)
	}
	return res, e.finish(ctx, op, q, start, int64(len(res.Rows)), nil)
}

// Exec runs a statement and returns the number of affected rows
func (e *Executor) Exec(ctx context.Context, op string, q *sqlgen.Query) (int64, error) {
	res, err := e.ExecResult(ctx, op, q)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, failure.NewExecution(op, q.SQL, string(q.Dialect), fmt.Errorf("failed to read affected rows: %w", err))
	}
	return n, nil
}

// ExecResult runs a statement and returns the driver result
func (e *Executor) ExecResult(ctx context.Context, op string, q *sqlgen.Query) (sql.Result, error) {
	start := time.Now()
	args, err := e.bindArgs(q)
	if err != nil {
		return nil, e.finish(ctx, op, q, start, 0, err)
	}

	var res sql.Result
	if stmt, done, perr := e.prepared(ctx, q.SQL); perr != nil {
		err = perr
	} else if stmt != nil {
		res, err = stmt.ExecContext(ctx, args...)
		done()
	} else {
		res, err = e.conn.ExecContext(ctx, q.SQL, args...)
	}
	if err != nil {
		return nil, e.finish(ctx, op, q, start, 0, err)
	}

	var n int64
	if affected, aerr := res.RowsAffected(); aerr == nil {
		n = affected
	}
	return res, e.finish(ctx, op, q, start, n, nil)
}

func (e *Executor) query(ctx context.Context, text string, args []any) (*sql.Rows, func(), error) {
	stmt, done, err := e.prepared(ctx, text)
	if err != nil {
		return nil, nil, err
	}
	if stmt == nil {
		rows, err := e.conn.QueryContext(ctx, text, args...)
		return rows, func() {}, err
	}
	rows, err := stmt.QueryContext(ctx, args...)
	if err != nil {
		done()
		return nil, nil, err
	}
	return rows, done, nil
}

// prepared returns the cached statement for text, or nil when caching is off.
// done releases a transaction-bound copy of the statement.
func (e *Executor) prepared(ctx context.Context, text string) (*sql.Stmt, func(), error) {
	if e.stmts == nil || e.prep == nil {
		return nil, func() {}, nil
	}
	stmt, err := e.stmts.Prepare(ctx, e.prep, text)
	if err != nil {
		return nil, nil, err
	}
	if e.tx == nil {
		return stmt, func() {}, nil
	}
	txStmt := e.tx.StmtContext(ctx, stmt)
	return txStmt, func() { txStmt.Close() }, nil
}

func (e *Executor) log() *slog.Logger {
	if e.logger != nil {
		return e.logger
	}
	return debug.Logger()
}

// finish logs and reports a statement, turning err into an execution failure
func (e *Executor) finish(ctx context.Context, op string, q *sqlgen.Query, start time.Time, rows int64, err error) error {
	elapsed := time.Since(start)
	var out error
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
			err = fmt.Errorf("%w: %w", ctxErr, err)
		}
		out = failure.NewExecution(op, q.SQL, string(q.Dialect), classify(err))
		e.log().Debug("statement failed",
			"op", op, "dialect", q.Dialect, "sql", q.SQL, "params", q.Values(),
			"duration", elapsed, "error", err)
	} else {
		e.log().Debug("statement",
			"op", op, "dialect", q.Dialect, "sql", q.SQL, "params", q.Values(),
			"rows", rows, "duration", elapsed)
	}

	if e.observer != nil {
		e.observer.Observe(Event{
			Op:       op,
			Dialect:  q.Dialect,
			SQL:      q.SQL,
			Params:   len(q.Params),
			Rows:     rows,
			Duration: elapsed,
			Err:      out,
		})
	}
	return out
}

// read copies every row of rows into memory
func read(rows *sql.Rows) (*Result, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}
	res := &Result{Columns: cols}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		res.Rows = append(res.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}
