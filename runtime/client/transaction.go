package client

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/satishbabariya/sqlchain/query/compiler"
	"github.com/satishbabariya/sqlchain/query/dialect"
	"github.com/satishbabariya/sqlchain/query/executor"
	"github.com/satishbabariya/sqlchain/query/mapping"
)

// Tx is a session bound to one transaction: chains started from it run
// inside the transaction
type Tx struct {
	client *Client
	ex     *executor.Executor
	depth  int // nesting depth for savepoints
}

// TransactionFunc is a function that runs within a transaction
type TransactionFunc func(tx *Tx) error

func (tx *Tx) Profile() dialect.Profile     { return tx.client.profile }
func (tx *Tx) Registry() *mapping.Registry  { return tx.client.registry }
func (tx *Tx) Executor() *executor.Executor { return tx.ex }
func (tx *Tx) Compiler() *compiler.Compiler { return tx.client.compiler }

// SQL returns the underlying transaction
func (tx *Tx) SQL() *sql.Tx {
	return tx.ex.Tx()
}

// Transaction runs fn in a transaction. It commits when fn returns nil and
// rolls back on an error or a panic.
func (c *Client) Transaction(ctx context.Context, fn TransactionFunc) error {
	return c.TransactionWithOptions(ctx, nil, fn)
}

// TransactionWithOptions runs fn in a transaction begun with opts
func (c *Client) TransactionWithOptions(ctx context.Context, opts *sql.TxOptions, fn TransactionFunc) error {
	sqlTx, err := c.db.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	tx := &Tx{client: c, ex: c.ex.InTx(sqlTx)}

	defer func() {
		if p := recover(); p != nil {
			_ = sqlTx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := sqlTx.Rollback(); rbErr != nil {
			return fmt.Errorf("transaction error: %v, rollback error: %w", err, rbErr)
		}
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// TransactionWithIsolation runs fn in a transaction at the given isolation level
func (c *Client) TransactionWithIsolation(ctx context.Context, level sql.IsolationLevel, fn TransactionFunc) error {
	return c.TransactionWithOptions(ctx, &sql.TxOptions{Isolation: level}, fn)
}

// ReadOnlyTransaction runs fn in a read-only transaction
func (c *Client) ReadOnlyTransaction(ctx context.Context, fn TransactionFunc) error {
	return c.TransactionWithOptions(ctx, &sql.TxOptions{ReadOnly: true}, fn)
}

// Transaction runs fn inside a savepoint of tx. An error or panic from fn
// undoes only the work done since the savepoint.
func (tx *Tx) Transaction(ctx context.Context, fn TransactionFunc) error {
	tx.depth++
	defer func() { tx.depth-- }()
	name := fmt.Sprintf("sp_%d", tx.depth)

	if err := tx.ex.Savepoint(ctx, name); err != nil {
		return fmt.Errorf("failed to create savepoint: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.ex.RollbackTo(ctx, name)
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.ex.RollbackTo(ctx, name); rbErr != nil {
			return fmt.Errorf("nested transaction error: %v, rollback error: %w", err, rbErr)
		}
		return err
	}

	if err := tx.ex.Release(ctx, name); err != nil {
		return fmt.Errorf("failed to release savepoint: %w", err)
	}
	return nil
}
