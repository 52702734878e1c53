package executor

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/satishbabariya/sqlchain/query/dialect"
	"github.com/satishbabariya/sqlchain/query/sqlgen"
)

// Tx returns the transaction the executor is bound to, or nil
func (e *Executor) Tx() *sql.Tx {
	return e.tx
}

// Savepoint marks a point inside the executor's transaction
func (e *Executor) Savepoint(ctx context.Context, name string) error {
	text := "SAVEPOINT " + e.profile.Quote(name)
	if e.profile.Name() == dialect.SQLServer {
		text = "SAVE TRANSACTION " + e.profile.Quote(name)
	}
	return e.txStatement(ctx, "savepoint", text)
}

// RollbackTo undoes everything after the named savepoint
func (e *Executor) RollbackTo(ctx context.Context, name string) error {
	text := "ROLLBACK TO SAVEPOINT " + e.profile.Quote(name)
	if e.profile.Name() == dialect.SQLServer {
		text = "ROLLBACK TRANSACTION " + e.profile.Quote(name)
	}
	return e.txStatement(ctx, "rollback", text)
}

// Release forgets the named savepoint, keeping its changes.
// SQL Server has no release; its savepoints end with the transaction.
func (e *Executor) Release(ctx context.Context, name string) error {
	if e.profile.Name() == dialect.SQLServer {
		return nil
	}
	return e.txStatement(ctx, "release", "RELEASE SAVEPOINT "+e.profile.Quote(name))
}

func (e *Executor) txStatement(ctx context.Context, op, text string) error {
	if e.tx == nil {
		return fmt.Errorf("%s needs a transaction", op)
	}
	_, err := e.ExecResult(ctx, op, &sqlgen.Query{SQL: text, Dialect: e.profile.Name()})
	return err
}
