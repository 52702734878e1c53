package dialect_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satishbabariya/sqlchain/query/dialect"
)

func TestLookup(t *testing.T) {
	tests := []struct {
		provider string
		want     dialect.Name
	}{
		{"sqlite", dialect.SQLite},
		{"sqlite3", dialect.SQLite},
		{"mssql", dialect.SQLServer},
		{"sqlserver", dialect.SQLServer},
		{"postgresql", dialect.Postgres},
		{"MySQL", dialect.MySQL},
	}

	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			p, err := dialect.Lookup(tt.provider)
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.Name())
		})
	}

	_, err := dialect.Lookup("oracle")
	assert.Error(t, err)
}

func TestProfileMarkersAndQuoting(t *testing.T) {
	tests := []struct {
		name   dialect.Name
		marker string
		quoted string
		named  bool
	}{
		{dialect.SQLite, "$p3", "[order]]s]", true},
		{dialect.SQLServer, "@p3", "[order]]s]", true},
		{dialect.Postgres, "$4", `"order]s"`, false},
		{dialect.MySQL, "?", "`order]s`", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.name), func(t *testing.T) {
			p := dialect.Get(tt.name)
			assert.Equal(t, tt.marker, p.Marker(3, p.ParamName(3)))
			assert.Equal(t, tt.quoted, p.Quote("order]s"))
			assert.Equal(t, tt.named, p.NamedParams())
		})
	}
}

func TestPaging(t *testing.T) {
	assert.Equal(t, dialect.PagingLimitOffset, dialect.Get(dialect.SQLite).Paging())
	assert.Equal(t, dialect.PagingTopOffsetFetch, dialect.Get(dialect.SQLServer).Paging())
}

func TestEveryDialectCoversEveryFunction(t *testing.T) {
	for _, name := range []dialect.Name{dialect.SQLite, dialect.SQLServer, dialect.Postgres, dialect.MySQL} {
		p := dialect.Get(name)
		for f := dialect.FuncContains; f <= dialect.FuncBitXor; f++ {
			assert.Truef(t, p.Supports(f), "%s lacks %s", name, f)
		}
	}
}

func TestFuncByName(t *testing.T) {
	f, ok := dialect.FuncByName("indexOf")
	require.True(t, ok)
	assert.Equal(t, dialect.FuncIndexOf, f)
	assert.Equal(t, 2, f.Arity())
	assert.False(t, f.Predicate())
	assert.True(t, dialect.FuncContains.Predicate())

	_, ok = dialect.FuncByName("soundex")
	assert.False(t, ok)
}

func TestPolicyCopies(t *testing.T) {
	base := dialect.Get(dialect.SQLite)
	folded := base.WithLike(dialect.LikeFold).WithNow(dialect.NowClient)

	assert.Equal(t, dialect.LikeNative, base.Like())
	assert.Equal(t, dialect.LikeFold, folded.Like())
	assert.Equal(t, dialect.NowClient, folded.Now())
	assert.Equal(t, "INTEGER", base.CastName(dialect.CastInt))
	assert.Equal(t, dialect.SQLiteTimeLayout, base.TimeLayout())
	assert.Empty(t, dialect.Get(dialect.SQLServer).TimeLayout())
}
