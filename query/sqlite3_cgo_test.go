//go:build cgo

package query_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satishbabariya/sqlchain/query"
	"github.com/satishbabariya/sqlchain/query/ast"
	"github.com/satishbabariya/sqlchain/query/compiler"
	"github.com/satishbabariya/sqlchain/query/dialect"
	"github.com/satishbabariya/sqlchain/query/executor"
	"github.com/satishbabariya/sqlchain/query/mapping"
)

func TestEmptyBlobStaysEmptyWithSqlite3(t *testing.T) {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec("CREATE TABLE attachments (id TEXT PRIMARY KEY, data BLOB, created TEXT NOT NULL, timeout INTEGER NOT NULL, amount REAL)")
	require.NoError(t, err)

	profile := dialect.Get(dialect.SQLite)
	s := &session{
		ex:       executor.NewExecutor(db, profile),
		registry: mapping.NewRegistry(),
		compiler: compiler.NewCompiler(profile),
	}

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", []byte{}},
		{"nil", nil},
		{"payload", []byte{1, 2, 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id := uuid.New()
			data, err := executor.BindValue(profile, tt.data)
			require.NoError(t, err)
			created, err := executor.BindValue(profile, time.Now())
			require.NoError(t, err)
			_, err = db.Exec("INSERT INTO attachments (id, data, created, timeout) VALUES (?, ?, ?, 0)", id.String(), data, created)
			require.NoError(t, err)

			got, err := query.From[Attachment](s).Where(ast.Eq(ast.Col("id"), id)).Single(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.data == nil, got.Data == nil)
			assert.Len(t, got.Data, len(tt.data))
		})
	}
}
