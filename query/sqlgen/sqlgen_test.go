package sqlgen

import (
	"bytes"
	"database/sql"
	"fmt"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satishbabariya/sqlchain/query/dialect"
	"github.com/satishbabariya/sqlchain/query/failure"
	"github.com/satishbabariya/sqlchain/query/ir"
)

var dialects = []dialect.Name{dialect.SQLite, dialect.SQLServer, dialect.Postgres, dialect.MySQL}

func col(table, name string) ir.Column { return ir.Column{Table: table, Name: name} }

func val(v any) ir.Param { return ir.Param{Value: v} }

func renderAll(t *testing.T, stmt ir.Statement) []byte {
	t.Helper()
	var buf bytes.Buffer
	for _, name := range dialects {
		q, err := NewRenderer(dialect.Get(name)).Render(stmt)
		require.NoError(t, err, name)
		fmt.Fprintf(&buf, "-- %s\n%s\n\n", name, q.String())
	}
	return buf.Bytes()
}

func TestRenderGolden(t *testing.T) {
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)

	tests := []struct {
		name string
		stmt ir.Statement
	}{
		{
			name: "select_filter_page",
			stmt: &ir.Select{
				Columns: []ir.Projection{{Expr: col("t0", "id"), Alias: "id"}, {Expr: col("t0", "name"), Alias: "name"}},
				From:    ir.Table{Name: "orders", Alias: "t0"},
				Where: ir.And(
					ir.Binary{Op: ">", Left: col("t0", "total"), Right: val(10)},
					ir.Like{X: col("t0", "name"), Pattern: val("a%")},
				),
				OrderBy: []ir.Order{{Expr: col("t0", "name")}, {Expr: col("t0", "id"), Desc: true}},
				Limit:   ir.IntPtr(5),
				Offset:  ir.IntPtr(10),
			},
		},
		{
			name: "take_only",
			stmt: &ir.Select{From: ir.Table{Name: "users", Alias: "t0"}, Limit: ir.IntPtr(3)},
		},
		{
			name: "skip_only",
			stmt: &ir.Select{From: ir.Table{Name: "users", Alias: "t0"}, Offset: ir.IntPtr(4)},
		},
		{
			name: "functions",
			stmt: &ir.Select{
				Columns: []ir.Projection{
					{
						Expr: ir.Case{
							Whens: []ir.When{{Cond: ir.Func{Func: dialect.FuncContains, Args: []ir.Expr{col("t0", "name"), val("x")}}, Then: ir.One}},
							Else:  ir.Zero,
						},
						Alias: "has_x",
					},
					{Expr: ir.Func{Func: dialect.FuncSubstring, Args: []ir.Expr{col("t0", "name"), val(1), val(2)}}, Alias: "part"},
					{
						Expr: ir.Func{Func: dialect.FuncConcat, Args: []ir.Expr{
							ir.Func{Func: dialect.FuncConcat, Args: []ir.Expr{col("t0", "first"), val("-")}},
							col("t0", "last"),
						}},
						Alias: "full",
					},
				},
				From: ir.Table{Name: "people", Alias: "t0"},
			},
		},
		{
			name: "union_paged_operand",
			stmt: &ir.Compound{
				Op: ir.Union,
				Left: &ir.Select{
					Columns: []ir.Projection{{Expr: col("t0", "id"), Alias: "id"}},
					From:    ir.Table{Name: "a", Alias: "t0"},
					OrderBy: []ir.Order{{Expr: col("t0", "id")}},
					Limit:   ir.IntPtr(2),
				},
				Right: &ir.Select{
					Columns: []ir.Projection{{Expr: col("t1", "id"), Alias: "id"}},
					From:    ir.Table{Name: "b", Alias: "t1"},
				},
			},
		},
		{
			name: "delete",
			stmt: &ir.Delete{
				Table: ir.Table{Name: "orders"},
				Where: ir.Binary{Op: "<", Left: col("orders", "total"), Right: val(5)},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g.Assert(t, tt.name, renderAll(t, tt.stmt))
		})
	}
}

func TestRenderPrecedence(t *testing.T) {
	a, b, c := col("", "a"), col("", "b"), col("", "c")
	eq := func(l ir.Expr, n string) ir.Expr { return ir.Binary{Op: "=", Left: l, Right: ir.Const{SQL: n}} }

	tests := []struct {
		name string
		expr ir.Expr
		want string
	}{
		{"right nested subtraction", ir.Binary{Op: "-", Left: a, Right: ir.Binary{Op: "-", Left: b, Right: c}}, "[a] - ([b] - [c])"},
		{"left nested subtraction", ir.Binary{Op: "-", Left: ir.Binary{Op: "-", Left: a, Right: b}, Right: c}, "[a] - [b] - [c]"},
		{"sum times", ir.Binary{Op: "*", Left: ir.Binary{Op: "+", Left: a, Right: b}, Right: c}, "([a] + [b]) * [c]"},
		{"double negation", ir.Unary{Op: "-", X: ir.Unary{Op: "-", X: a}}, "-(-[a])"},
		{"bitwise mix", ir.Binary{Op: "&", Left: ir.Binary{Op: "+", Left: a, Right: b}, Right: c}, "([a] + [b]) & [c]"},
		{"bitwise chain", ir.Binary{Op: "|", Left: ir.Binary{Op: "|", Left: a, Right: b}, Right: c}, "[a] | [b] | [c]"},
		{"or inside and", ir.Binary{Op: "AND", Left: ir.Binary{Op: "OR", Left: eq(a, "1"), Right: eq(b, "2")}, Right: eq(c, "3")}, "([a] = 1 OR [b] = 2) AND [c] = 3"},
		{"and inside or", ir.Binary{Op: "OR", Left: ir.Binary{Op: "AND", Left: eq(a, "1"), Right: eq(b, "2")}, Right: ir.Unary{Op: "NOT", X: ir.Binary{Op: "OR", Left: eq(a, "3"), Right: eq(c, "4")}}}, "[a] = 1 AND [b] = 2 OR NOT ([a] = 3 OR [c] = 4)"},
		{"empty in list", ir.In{X: a}, "1 = 0"},
		{"is not null", ir.IsNull{X: a, Not: true}, "[a] IS NOT NULL"},
		{"count distinct", ir.Aggregate{Func: "COUNT", Arg: a, Distinct: true}, "COUNT(DISTINCT [a])"},
		{"count rows", ir.Aggregate{Func: "COUNT"}, "COUNT(*)"},
		{"cast", ir.Cast{X: a, To: dialect.CastFloat}, "CAST([a] AS REAL)"},
		{"coalesce", ir.Coalesce{Args: []ir.Expr{a, b}}, "COALESCE([a], [b])"},
		{"template slot wraps composite", ir.Func{Func: dialect.FuncSubstringFrom, Args: []ir.Expr{a, ir.Binary{Op: "+", Left: b, Right: c}}}, "SUBSTR([a], ([b] + [c]) + 1)"},
		{"call argument stays bare", ir.Func{Func: dialect.FuncUpper, Args: []ir.Expr{ir.Binary{Op: "+", Left: a, Right: b}}}, "UPPER([a] + [b])"},
		{"quoted identifier", col("", "we]ird"), "[we]]ird]"},
	}

	r := NewRenderer(dialect.Get(dialect.SQLite))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := r.RenderExpr(tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.want, q.SQL)
		})
	}
}

func TestParamsFollowTextOrder(t *testing.T) {
	// CHARINDEX puts the needle first, so it binds first
	expr := ir.Func{Func: dialect.FuncContains, Args: []ir.Expr{val("haystack"), val("needle")}}
	q, err := NewRenderer(dialect.Get(dialect.SQLServer)).RenderExpr(expr)
	require.NoError(t, err)
	assert.Equal(t, "(CHARINDEX(@p0, @p1) > 0 OR LEN(@p2 + 'x') = 1)", q.SQL)
	assert.Equal(t, []any{"needle", "haystack", "needle"}, q.Values())

	q, err = NewRenderer(dialect.Get(dialect.SQLite)).RenderExpr(expr)
	require.NoError(t, err)
	assert.Equal(t, "INSTR($p0, $p1) > 0", q.SQL)
	assert.Equal(t, []any{"haystack", "needle"}, q.Values())
}

func TestSQLServerStringFunctions(t *testing.T) {
	field := col("", "name")
	tests := []struct {
		name string
		expr ir.Expr
		want string
	}{
		{
			name: "length keeps trailing spaces",
			expr: ir.Binary{Op: ">", Left: ir.Func{Func: dialect.FuncLength, Args: []ir.Expr{field}}, Right: val(1)},
			want: "(LEN([name] + 'x') - 1) > @p0",
		},
		{
			name: "empty needle is found at zero",
			expr: ir.Func{Func: dialect.FuncIndexOf, Args: []ir.Expr{field, val("")}},
			want: "(CASE WHEN LEN(@p0 + 'x') = 1 THEN 0 ELSE CHARINDEX(@p1, [name]) - 1 END)",
		},
		{
			name: "prefix length keeps trailing spaces",
			expr: ir.Func{Func: dialect.FuncStartsWith, Args: []ir.Expr{field, val("a ")}},
			want: "LEFT([name], LEN(@p0 + 'x') - 1) = @p1",
		},
	}

	r := NewRenderer(dialect.Get(dialect.SQLServer))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := r.RenderExpr(tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.want, q.SQL)
		})
	}
}

func TestNamedParamReuse(t *testing.T) {
	pred := ir.Binary{
		Op:    "OR",
		Left:  ir.Binary{Op: "=", Left: col("", "a"), Right: ir.Param{Name: "v", Value: 1}},
		Right: ir.Binary{Op: "=", Left: col("", "b"), Right: ir.Param{Name: "v", Value: 1}},
	}

	q, err := NewRenderer(dialect.Get(dialect.SQLite)).RenderExpr(pred)
	require.NoError(t, err)
	assert.Equal(t, "[a] = $v OR [b] = $v", q.SQL)
	require.Len(t, q.Params, 1)
	assert.Equal(t, []any{sql.Named("v", 1)}, q.Args())

	q, err = NewRenderer(dialect.Get(dialect.Postgres)).RenderExpr(pred)
	require.NoError(t, err)
	assert.Equal(t, `"a" = $1 OR "b" = $2`, q.SQL)
	assert.Equal(t, []any{1, 1}, q.Args())

	conflict := ir.Binary{
		Op:    "OR",
		Left:  ir.Binary{Op: "=", Left: col("", "a"), Right: ir.Param{Name: "v", Value: 1}},
		Right: ir.Binary{Op: "=", Left: col("", "b"), Right: ir.Param{Name: "v", Value: 2}},
	}
	_, err = NewRenderer(dialect.Get(dialect.SQLServer)).RenderExpr(conflict)
	require.Error(t, err)
	assert.True(t, failure.IsKind(err, failure.Translation))
}

func TestGeneratedNamesSkipExplicitOnes(t *testing.T) {
	pred := ir.And(
		ir.Binary{Op: "=", Left: col("", "a"), Right: ir.Param{Name: "p0", Value: "x"}},
		ir.Binary{Op: "=", Left: col("", "b"), Right: val("y")},
	)
	q, err := NewRenderer(dialect.Get(dialect.SQLite)).RenderExpr(pred)
	require.NoError(t, err)
	assert.Equal(t, "[a] = $p0 AND [b] = $p1", q.SQL)
}

func TestRenderErrors(t *testing.T) {
	r := NewRenderer(dialect.Get(dialect.MySQL))

	_, err := r.RenderExpr(ir.Func{Func: dialect.FuncUpper})
	require.Error(t, err)
	assert.True(t, failure.IsKind(err, failure.Translation))

	_, err = r.Render(&ir.Select{Where: ir.Binary{Op: "=", Left: col("", "a")}})
	require.Error(t, err)
}

func TestRenderRepeatable(t *testing.T) {
	stmt := &ir.Select{
		From:  ir.Table{Name: "t", Alias: "t0"},
		Where: ir.Binary{Op: "=", Left: col("t0", "x"), Right: val(1)},
	}
	r := NewRenderer(dialect.Get(dialect.SQLServer))
	first, err := r.Render(stmt)
	require.NoError(t, err)
	second, err := r.Render(stmt)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestCrudStatements(t *testing.T) {
	values := []Assignment{{Column: "name", Value: "ann"}, {Column: "age", Value: 30}}
	key := []Assignment{{Column: "id", Value: int64(7)}}

	tests := []struct {
		dialect dialect.Name
		insert  string
		update  string
		remove  string
		get     string
	}{
		{
			dialect.SQLite,
			"INSERT INTO [users] ([name], [age]) VALUES ($p0, $p1)",
			"UPDATE [users] SET [name] = $p0, [age] = $p1 WHERE [id] = $p2",
			"DELETE FROM [users] WHERE [id] = $p0",
			"SELECT [id], [name] FROM [users] WHERE [id] = $p0",
		},
		{
			dialect.SQLServer,
			"INSERT INTO [users] ([name], [age]) OUTPUT INSERTED.[id] VALUES (@p0, @p1)",
			"UPDATE [users] SET [name] = @p0, [age] = @p1 WHERE [id] = @p2",
			"DELETE FROM [users] WHERE [id] = @p0",
			"SELECT [id], [name] FROM [users] WHERE [id] = @p0",
		},
		{
			dialect.Postgres,
			`INSERT INTO "users" ("name", "age") VALUES ($1, $2) RETURNING "id"`,
			`UPDATE "users" SET "name" = $1, "age" = $2 WHERE "id" = $3`,
			`DELETE FROM "users" WHERE "id" = $1`,
			`SELECT "id", "name" FROM "users" WHERE "id" = $1`,
		},
		{
			dialect.MySQL,
			"INSERT INTO `users` (`name`, `age`) VALUES (?, ?)",
			"UPDATE `users` SET `name` = ?, `age` = ? WHERE `id` = ?",
			"DELETE FROM `users` WHERE `id` = ?",
			"SELECT `id`, `name` FROM `users` WHERE `id` = ?",
		},
	}

	for _, tt := range tests {
		t.Run(string(tt.dialect), func(t *testing.T) {
			r := NewRenderer(dialect.Get(tt.dialect))

			q, err := r.Insert("users", values, "id")
			require.NoError(t, err)
			assert.Equal(t, tt.insert, q.SQL)
			assert.Len(t, q.Params, 2)

			q, err = r.Update("users", values, key)
			require.NoError(t, err)
			assert.Equal(t, tt.update, q.SQL)
			assert.Equal(t, []any{"ann", 30, int64(7)}, q.Values())

			q, err = r.DeleteByKey("users", key)
			require.NoError(t, err)
			assert.Equal(t, tt.remove, q.SQL)

			q, err = r.SelectByKey("users", []string{"id", "name"}, key)
			require.NoError(t, err)
			assert.Equal(t, tt.get, q.SQL)
		})
	}

	_, err := NewRenderer(dialect.Get(dialect.SQLite)).Update("users", nil, key)
	assert.Error(t, err)
}
