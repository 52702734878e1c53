package compiler_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satishbabariya/sqlchain/query/ast"
	"github.com/satishbabariya/sqlchain/query/compiler"
	"github.com/satishbabariya/sqlchain/query/dialect"
	"github.com/satishbabariya/sqlchain/query/failure"
	"github.com/satishbabariya/sqlchain/query/mapping"
	"github.com/satishbabariya/sqlchain/query/sqlgen"
)

type Status int

const (
	StatusDraft Status = iota
	StatusActive
)

func (Status) EnumNames() []string { return []string{"draft", "active"} }

type Customer struct {
	ID   int64   `db:"id,pk,autoincrement"`
	Name string  `db:"name"`
	City *string `db:"city"`
}

func (Customer) TableName() string { return "customers" }

type Order struct {
	ID         int64   `db:"id,pk,autoincrement"`
	CustomerID int64   `db:"customer_id"`
	Total      float64 `db:"total"`
	Status     Status  `db:"status"`
	Paid       bool    `db:"paid"`
}

func (Order) TableName() string { return "orders" }

const (
	orderCols    = "[t0].[id], [t0].[customer_id], [t0].[total], [t0].[status], [t0].[paid]"
	customerCols = "[t0].[id], [t0].[name], [t0].[city]"
)

func tables(t *testing.T) (*mapping.Table, *mapping.Table) {
	t.Helper()
	r := mapping.NewRegistry()
	orders, err := mapping.For[Order](r)
	require.NoError(t, err)
	customers, err := mapping.For[Customer](r)
	require.NoError(t, err)
	return orders, customers
}

func render(t *testing.T, name dialect.Name, chain ast.Node, term compiler.Terminal, opts ...compiler.Option) (*sqlgen.Query, *compiler.Compiled) {
	t.Helper()
	c := compiler.NewCompiler(dialect.Get(name), opts...)
	out, err := c.Compile(chain, term)
	require.NoError(t, err)
	q, err := sqlgen.NewRenderer(c.Profile()).Render(out.Stmt)
	require.NoError(t, err)
	return q, out
}

func TestCompileChains(t *testing.T) {
	orders, customers := tables(t)
	src := &ast.Source{Table: orders}
	csrc := &ast.Source{Table: customers}
	list := compiler.Terminal{Kind: compiler.TerminalList}

	tests := []struct {
		name   string
		chain  ast.Node
		term   compiler.Terminal
		sql    string
		values []any
	}{
		{
			name: "filters_and_together",
			chain: &ast.Filter{
				Input: &ast.Filter{Input: src, Pred: ast.Gt(ast.Col("total"), 10)},
				Pred:  ast.Col("paid"),
			},
			term:   list,
			sql:    "SELECT " + orderCols + " FROM [orders] AS [t0] WHERE [t0].[total] > $p0 AND [t0].[paid] = $p1",
			values: []any{10, true},
		},
		{
			name:   "go_field_names_resolve",
			chain:  &ast.Filter{Input: src, Pred: ast.Eq(ast.Col("CustomerID"), 3)},
			term:   list,
			sql:    "SELECT " + orderCols + " FROM [orders] AS [t0] WHERE [t0].[customer_id] = $p0",
			values: []any{3},
		},
		{
			name:   "null_comparison",
			chain:  &ast.Filter{Input: csrc, Pred: ast.Or(ast.Eq(ast.Col("city"), nil), ast.Ne(nil, ast.Col("name")))},
			term:   list,
			sql:    "SELECT " + customerCols + " FROM [customers] AS [t0] WHERE [t0].[city] IS NULL OR [t0].[name] IS NOT NULL",
			values: []any{},
		},
		{
			name:   "null_named_parameter",
			chain:  &ast.Filter{Input: csrc, Pred: ast.And(ast.Eq(ast.Col("city"), ast.P("c", nil)), ast.Ne(ast.Col("name"), ast.P("n", nil)))},
			term:   list,
			sql:    "SELECT " + customerCols + " FROM [customers] AS [t0] WHERE [t0].[city] IS NULL AND [t0].[name] IS NOT NULL",
			values: []any{},
		},
		{
			name:   "enum_literal_encoded",
			chain:  &ast.Filter{Input: src, Pred: ast.Eq(ast.Col("status"), StatusActive)},
			term:   list,
			sql:    "SELECT " + orderCols + " FROM [orders] AS [t0] WHERE [t0].[status] = $p0",
			values: []any{"active"},
		},
		{
			name:   "in_list_with_null",
			chain:  &ast.Filter{Input: csrc, Pred: ast.In(ast.Col("city"), "Oslo", nil)},
			term:   list,
			sql:    "SELECT " + customerCols + " FROM [customers] AS [t0] WHERE [t0].[city] IN ($p0) OR [t0].[city] IS NULL",
			values: []any{"Oslo"},
		},
		{
			name:   "empty_in_list",
			chain:  &ast.Filter{Input: csrc, Pred: ast.Not(ast.In(ast.Col("id")))},
			term:   list,
			sql:    "SELECT " + customerCols + " FROM [customers] AS [t0] WHERE NOT (1 = 0)",
			values: []any{},
		},
		{
			name: "order_then_page",
			chain: &ast.Take{
				Input: &ast.Skip{
					Input: &ast.Sort{
						Input: &ast.Sort{Input: src, Key: ast.Col("total"), Desc: true},
						Key:   ast.Col("id"),
						Then:  true,
					},
					N: 5,
				},
				N: 10,
			},
			term:   list,
			sql:    "SELECT " + orderCols + " FROM [orders] AS [t0] ORDER BY [t0].[total] DESC, [t0].[id] LIMIT 10 OFFSET 5",
			values: []any{},
		},
		{
			name:   "order_by_replaces",
			chain:  &ast.Sort{Input: &ast.Sort{Input: src, Key: ast.Col("total")}, Key: ast.Col("id")},
			term:   list,
			sql:    "SELECT " + orderCols + " FROM [orders] AS [t0] ORDER BY [t0].[id]",
			values: []any{},
		},
		{
			name:   "take_then_skip",
			chain:  &ast.Skip{Input: &ast.Take{Input: src, N: 10}, N: 3},
			term:   list,
			sql:    "SELECT " + orderCols + " FROM [orders] AS [t0] LIMIT 7 OFFSET 3",
			values: []any{},
		},
		{
			name: "filter_after_take_is_canonical",
			chain: &ast.Filter{
				Input: &ast.Take{Input: &ast.Sort{Input: src, Key: ast.Col("total")}, N: 3},
				Pred:  ast.Col("paid"),
			},
			term:   list,
			sql:    "SELECT " + orderCols + " FROM [orders] AS [t0] WHERE [t0].[paid] = $p0 ORDER BY [t0].[total] LIMIT 3",
			values: []any{true},
		},
		{
			name: "group_after_take_wraps",
			chain: &ast.Project{
				Input: &ast.GroupBy{
					Input: &ast.Take{Input: &ast.Sort{Input: src, Key: ast.Col("total"), Desc: true}, N: 3},
					Key:   ast.Col("customer_id"),
				},
				Shape: ast.Fields(ast.As("customer", ast.Key()), ast.As("orders", ast.Count())),
			},
			term: list,
			sql: "SELECT [d0].[customer_id] AS [customer], COUNT(*) AS [orders] FROM (SELECT " + orderCols +
				" FROM [orders] AS [t0] ORDER BY [t0].[total] DESC LIMIT 3) AS [d0] GROUP BY [d0].[customer_id]",
			values: []any{},
		},
		{
			name:   "skip_twice",
			chain:  &ast.Skip{Input: &ast.Skip{Input: src, N: 2}, N: 3},
			term:   list,
			sql:    "SELECT " + orderCols + " FROM [orders] AS [t0] LIMIT -1 OFFSET 5",
			values: []any{},
		},
		{
			name: "projection",
			chain: &ast.Project{Input: src, Shape: ast.Fields(
				ast.As("id", ast.Col("id")),
				ast.As("gross", ast.Mul(ast.Col("total"), 1.25)),
				ast.As("big", ast.Gt(ast.Col("total"), 100)),
			)},
			term:   list,
			sql:    "SELECT [t0].[id], [t0].[total] * $p0 AS [gross], CASE WHEN [t0].[total] > $p1 THEN 1 ELSE 0 END AS [big] FROM [orders] AS [t0]",
			values: []any{1.25, 100},
		},
		{
			name: "inner_join",
			chain: &ast.Join{
				Input:    src,
				Inner:    csrc,
				OuterKey: ast.Col("customer_id"),
				InnerKey: ast.Col("id"),
				Result:   ast.Fields(ast.As("order_id", ast.OuterCol("id")), ast.As("customer", ast.InnerCol("name"))),
				Kind:     ast.JoinInner,
			},
			term:   list,
			sql:    "SELECT [t0].[id] AS [order_id], [t1].[name] AS [customer] FROM [orders] AS [t0] INNER JOIN [customers] AS [t1] ON [t0].[customer_id] = [t1].[id]",
			values: []any{},
		},
		{
			name: "left_join_filtered_inner",
			chain: &ast.Join{
				Input:    csrc,
				Inner:    &ast.Filter{Input: src, Pred: ast.Col("paid")},
				OuterKey: ast.Col("id"),
				InnerKey: ast.Col("customer_id"),
				Result:   ast.Fields(ast.As("name", ast.OuterCol("name")), ast.As("total", ast.InnerCol("total"))),
				Kind:     ast.JoinLeft,
			},
			term:   list,
			sql:    "SELECT [t0].[name], [t1].[total] FROM [customers] AS [t0] LEFT OUTER JOIN [orders] AS [t1] ON [t0].[id] = [t1].[customer_id] AND [t1].[paid] = $p0",
			values: []any{true},
		},
		{
			name: "composite_join_key",
			chain: &ast.Join{
				Input:    src,
				Inner:    src,
				OuterKey: ast.Fields(ast.As("c", ast.Col("customer_id")), ast.As("t", ast.Col("total"))),
				InnerKey: ast.Fields(ast.As("c", ast.Col("customer_id")), ast.As("t", ast.Col("total"))),
				Result:   ast.Fields(ast.As("a", ast.OuterCol("id")), ast.As("b", ast.InnerCol("id"))),
			},
			term:   list,
			sql:    "SELECT [t0].[id] AS [a], [t1].[id] AS [b] FROM [orders] AS [t0] INNER JOIN [orders] AS [t1] ON [t0].[customer_id] = [t1].[customer_id] AND [t0].[total] = [t1].[total]",
			values: []any{},
		},
		{
			name: "group_having_project",
			chain: &ast.Project{
				Input: &ast.Having{
					Input: &ast.GroupBy{Input: src, Key: ast.Col("customer_id")},
					Pred:  ast.Gt(ast.Count(), 1),
				},
				Shape: ast.Fields(
					ast.As("customer", ast.Key()),
					ast.As("orders", ast.Count()),
					ast.As("total", ast.Sum(ast.Col("total"))),
				),
			},
			term:   list,
			sql:    "SELECT [t0].[customer_id] AS [customer], COUNT(*) AS [orders], SUM([t0].[total]) AS [total] FROM [orders] AS [t0] GROUP BY [t0].[customer_id] HAVING COUNT(*) > $p0",
			values: []any{1},
		},
		{
			name: "composite_group_key",
			chain: &ast.Project{
				Input: &ast.GroupBy{Input: src, Key: ast.Fields(ast.As("c", ast.Col("customer_id")), ast.As("p", ast.Col("paid")))},
				Shape: ast.Fields(ast.As("c", ast.KeyField("c")), ast.As("avg", ast.Avg(ast.Col("total")))),
			},
			term:   list,
			sql:    "SELECT [t0].[customer_id] AS [c], AVG(CAST([t0].[total] AS REAL)) AS [avg] FROM [orders] AS [t0] GROUP BY [t0].[customer_id], [t0].[paid]",
			values: []any{},
		},
		{
			name: "exists_correlated",
			chain: &ast.Filter{Input: csrc, Pred: ast.Not(ast.Any(
				&ast.Filter{Input: src, Pred: ast.Eq(ast.Col("customer_id"), ast.ParentCol("id"))},
			))},
			term:   list,
			sql:    "SELECT " + customerCols + " FROM [customers] AS [t0] WHERE NOT EXISTS (SELECT 1 FROM [orders] AS [t1] WHERE [t1].[customer_id] = [t0].[id])",
			values: []any{},
		},
		{
			name: "in_subquery",
			chain: &ast.Filter{Input: csrc, Pred: ast.InSub(ast.Col("id"), &ast.Project{
				Input: &ast.Filter{Input: src, Pred: ast.Gt(ast.Col("total"), 50)},
				Shape: ast.Fields(ast.As("customer_id", ast.Col("customer_id"))),
			})},
			term:   list,
			sql:    "SELECT " + customerCols + " FROM [customers] AS [t0] WHERE [t0].[id] IN (SELECT [t1].[customer_id] FROM [orders] AS [t1] WHERE [t1].[total] > $p0)",
			values: []any{50},
		},
		{
			name:   "first",
			chain:  &ast.Filter{Input: src, Pred: ast.Col("paid")},
			term:   compiler.Terminal{Kind: compiler.TerminalFirst},
			sql:    "SELECT " + orderCols + " FROM [orders] AS [t0] WHERE [t0].[paid] = $p0 LIMIT 1",
			values: []any{true},
		},
		{
			name:   "single_reads_two",
			chain:  src,
			term:   compiler.Terminal{Kind: compiler.TerminalSingle},
			sql:    "SELECT " + orderCols + " FROM [orders] AS [t0] LIMIT 2",
			values: []any{},
		},
		{
			name:   "element_at",
			chain:  src,
			term:   compiler.Terminal{Kind: compiler.TerminalElementAt, Index: 4},
			sql:    "SELECT " + orderCols + " FROM [orders] AS [t0] LIMIT 1 OFFSET 4",
			values: []any{},
		},
		{
			name:   "count",
			chain:  &ast.Sort{Input: &ast.Filter{Input: src, Pred: ast.Col("paid")}, Key: ast.Col("id")},
			term:   compiler.Terminal{Kind: compiler.TerminalCount},
			sql:    "SELECT COUNT(*) AS [count] FROM [orders] AS [t0] WHERE [t0].[paid] = $p0",
			values: []any{true},
		},
		{
			name:   "count_paged",
			chain:  &ast.Take{Input: src, N: 3},
			term:   compiler.Terminal{Kind: compiler.TerminalCount},
			sql:    "SELECT COUNT(*) AS [count] FROM (SELECT " + orderCols + " FROM [orders] AS [t0] LIMIT 3) AS [d0]",
			values: []any{},
		},
		{
			name:   "any",
			chain:  &ast.Filter{Input: src, Pred: ast.Gt(ast.Col("total"), 100)},
			term:   compiler.Terminal{Kind: compiler.TerminalAny},
			sql:    "SELECT CASE WHEN EXISTS (SELECT 1 FROM [orders] AS [t0] WHERE [t0].[total] > $p0) THEN 1 ELSE 0 END AS [any]",
			values: []any{100},
		},
		{
			name:   "all",
			chain:  src,
			term:   compiler.Terminal{Kind: compiler.TerminalAll, Pred: ast.Gt(ast.Col("total"), 0)},
			sql:    "SELECT CASE WHEN NOT EXISTS (SELECT 1 FROM [orders] AS [t0] WHERE NOT ([t0].[total] > $p0)) THEN 1 ELSE 0 END AS [all]",
			values: []any{0},
		},
		{
			name:   "sum",
			chain:  &ast.Filter{Input: src, Pred: ast.Col("paid")},
			term:   compiler.Terminal{Kind: compiler.TerminalSum, Selector: ast.Col("total")},
			sql:    "SELECT SUM([t0].[total]) AS [value] FROM [orders] AS [t0] WHERE [t0].[paid] = $p0",
			values: []any{true},
		},
		{
			name:   "average_of_projection",
			chain:  &ast.Project{Input: src, Shape: ast.Fields(ast.As("total", ast.Col("total")))},
			term:   compiler.Terminal{Kind: compiler.TerminalAverage},
			sql:    "SELECT AVG(CAST([t0].[total] AS REAL)) AS [value] FROM [orders] AS [t0]",
			values: []any{},
		},
		{
			name: "union_then_count",
			chain: &ast.SetCombine{
				Input: &ast.Project{
					Input: &ast.Filter{Input: src, Pred: ast.Lt(ast.Col("total"), 5)},
					Shape: ast.Fields(ast.As("id", ast.Col("id"))),
				},
				Other: &ast.Project{
					Input: &ast.Filter{Input: src, Pred: ast.Gt(ast.Col("total"), 50)},
					Shape: ast.Fields(ast.As("id", ast.Col("id"))),
				},
				Kind: ast.SetUnion,
			},
			term:   compiler.Terminal{Kind: compiler.TerminalCount},
			sql:    "SELECT COUNT(*) AS [count] FROM (SELECT [t0].[id] FROM [orders] AS [t0] WHERE [t0].[total] < $p0 UNION SELECT [t1].[id] FROM [orders] AS [t1] WHERE [t1].[total] > $p1) AS [d0]",
			values: []any{5, 50},
		},
		{
			name: "filter_after_union_wraps",
			chain: &ast.Filter{
				Input: &ast.SetCombine{Input: src, Other: src, Kind: ast.SetUnionAll},
				Pred:  ast.Col("paid"),
			},
			term: list,
			sql: "SELECT [d0].[id], [d0].[customer_id], [d0].[total], [d0].[status], [d0].[paid] FROM (SELECT " + orderCols +
				" FROM [orders] AS [t0] UNION ALL SELECT [t1].[id], [t1].[customer_id], [t1].[total], [t1].[status], [t1].[paid] FROM [orders] AS [t1]) AS [d0] WHERE [d0].[paid] = $p0",
			values: []any{true},
		},
		{
			name: "delete",
			chain: &ast.Filter{
				Input: &ast.Filter{Input: src, Pred: ast.Eq(ast.Col("customer_id"), 7)},
				Pred:  ast.Not(ast.Col("paid")),
			},
			term:   compiler.Terminal{Kind: compiler.TerminalDelete},
			sql:    "DELETE FROM [orders] WHERE [orders].[customer_id] = $p0 AND NOT ([orders].[paid] = $p1)",
			values: []any{7, true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, _ := render(t, dialect.SQLite, tt.chain, tt.term)
			assert.Equal(t, tt.sql, q.SQL)
			values := q.Values()
			if values == nil {
				values = []any{}
			}
			assert.Equal(t, tt.values, values)
		})
	}
}

func TestCompileSQLServerPaging(t *testing.T) {
	orders, _ := tables(t)
	src := &ast.Source{Table: orders}

	q, _ := render(t, dialect.SQLServer, &ast.Filter{Input: src, Pred: ast.Col("paid")}, compiler.Terminal{Kind: compiler.TerminalFirst})
	assert.Equal(t, "SELECT TOP 1 [t0].[id], [t0].[customer_id], [t0].[total], [t0].[status], [t0].[paid] FROM [orders] AS [t0] WHERE [t0].[paid] = @p0", q.SQL)

	q, _ = render(t, dialect.SQLServer, src, compiler.Terminal{Kind: compiler.TerminalElementAt, Index: 2})
	assert.Equal(t, "SELECT [t0].[id], [t0].[customer_id], [t0].[total], [t0].[status], [t0].[paid] FROM [orders] AS [t0] ORDER BY (SELECT NULL) OFFSET 2 ROWS FETCH NEXT 1 ROWS ONLY", q.SQL)
}

func TestCompileNow(t *testing.T) {
	orders, _ := tables(t)
	src := &ast.Source{Table: orders}
	chain := &ast.Project{Input: src, Shape: ast.Fields(ast.As("at", ast.CurrentTime()))}
	list := compiler.Terminal{Kind: compiler.TerminalList}

	q, _ := render(t, dialect.SQLite, chain, list)
	assert.Equal(t, "SELECT STRFTIME('%Y-%m-%d %H:%M:%f', 'now') AS [at] FROM [orders] AS [t0]", q.SQL)

	fixed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	q, _ = render(t, dialect.SQLite, chain, list, compiler.WithClientClock(func() time.Time { return fixed }))
	assert.Equal(t, "SELECT $p0 AS [at] FROM [orders] AS [t0]", q.SQL)
	assert.Equal(t, []any{fixed}, q.Values())
}

type Event struct {
	ID int64     `db:"id,pk,autoincrement"`
	At time.Time `db:"at"`
}

func (Event) TableName() string { return "events" }

func TestCompileTimeComparison(t *testing.T) {
	events, err := mapping.For[Event](mapping.NewRegistry())
	require.NoError(t, err)
	src := &ast.Source{Table: events}
	list := compiler.Terminal{Kind: compiler.TerminalList}
	before := &ast.Filter{Input: src, Pred: ast.Lt(ast.Col("at"), ast.CurrentTime())}
	const cols = "SELECT [t0].[id], [t0].[at] FROM [events] AS [t0]"

	t.Run("sqlite normalizes both sides", func(t *testing.T) {
		q, _ := render(t, dialect.SQLite, before, list)
		assert.Equal(t, cols+" WHERE STRFTIME('%Y-%m-%d %H:%M:%f', [t0].[at]) < STRFTIME('%Y-%m-%d %H:%M:%f', 'now')", q.SQL)
	})

	t.Run("sqlite client clock", func(t *testing.T) {
		fixed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.FixedZone("", 5*3600))
		q, _ := render(t, dialect.SQLite, before, list, compiler.WithClientClock(func() time.Time { return fixed }))
		assert.Equal(t, cols+" WHERE STRFTIME('%Y-%m-%d %H:%M:%f', [t0].[at]) < STRFTIME('%Y-%m-%d %H:%M:%f', $p0)", q.SQL)
	})

	t.Run("sqlite sort and add", func(t *testing.T) {
		chain := &ast.Sort{
			Input: &ast.Filter{Input: src, Pred: ast.Gt(ast.AddDays(ast.Col("at"), 1), ast.CurrentTime())},
			Key:   ast.Col("at"),
		}
		q, _ := render(t, dialect.SQLite, chain, list)
		assert.Equal(t, cols+
			" WHERE STRFTIME('%Y-%m-%d %H:%M:%f', STRFTIME('%Y-%m-%d %H:%M:%f', [t0].[at], $p0 || ' days')) > STRFTIME('%Y-%m-%d %H:%M:%f', 'now')"+
			" ORDER BY STRFTIME('%Y-%m-%d %H:%M:%f', [t0].[at])", q.SQL)
	})

	t.Run("postgres compares natively", func(t *testing.T) {
		q, _ := render(t, dialect.Postgres, before, list)
		assert.Equal(t, `SELECT "t0"."id", "t0"."at" FROM "events" AS "t0" WHERE "t0"."at" < CURRENT_TIMESTAMP`, q.SQL)
	})
}

func TestCompileLikeFold(t *testing.T) {
	_, customers := tables(t)
	chain := &ast.Filter{Input: &ast.Source{Table: customers}, Pred: ast.LikePattern(ast.Col("name"), "a%")}
	list := compiler.Terminal{Kind: compiler.TerminalList}

	c := compiler.NewCompiler(dialect.Get(dialect.SQLite).WithLike(dialect.LikeFold))
	out, err := c.Compile(chain, list)
	require.NoError(t, err)
	q, err := sqlgen.NewRenderer(c.Profile()).Render(out.Stmt)
	require.NoError(t, err)
	assert.Equal(t, "SELECT "+customerCols+" FROM [customers] AS [t0] WHERE LOWER([t0].[name]) LIKE LOWER($p0)", q.SQL)
}

func TestCompilePlans(t *testing.T) {
	orders, customers := tables(t)
	src := &ast.Source{Table: orders}

	t.Run("entity rows", func(t *testing.T) {
		_, out := render(t, dialect.SQLite, src, compiler.Terminal{Kind: compiler.TerminalList})
		assert.Equal(t, compiler.PlanRows, out.Plan.Kind)
		assert.Same(t, orders, out.Plan.Table)
		require.Len(t, out.Plan.Fields, 5)
		assert.Equal(t, "customer_id", out.Plan.Fields[1].Name)
	})

	t.Run("default join result nests both rows", func(t *testing.T) {
		chain := &ast.Join{
			Input:    src,
			Inner:    &ast.Source{Table: customers},
			OuterKey: ast.Col("customer_id"),
			InnerKey: ast.Col("id"),
		}
		_, out := render(t, dialect.SQLite, chain, compiler.Terminal{Kind: compiler.TerminalList})
		assert.Nil(t, out.Plan.Table)
		require.Len(t, out.Plan.Fields, 8)
		assert.Equal(t, "outer.id", out.Plan.Fields[0].Name)
		assert.Equal(t, "inner.city", out.Plan.Fields[7].Name)
	})

	t.Run("groups", func(t *testing.T) {
		chain := &ast.Having{
			Input: &ast.GroupBy{Input: src, Key: ast.Col("customer_id")},
			Pred:  ast.Gt(ast.Count(), 1),
		}
		q, out := render(t, dialect.SQLite, chain, compiler.Terminal{Kind: compiler.TerminalGroups})
		assert.Equal(t, compiler.PlanGroups, out.Plan.Kind)
		assert.True(t, out.Plan.SingleKey)
		require.Len(t, out.Plan.Keys, 1)
		assert.Equal(t, "key", out.Plan.Keys[0].Name)
		assert.Equal(t, "SELECT "+orderCols+", [t0].[customer_id] AS [__k0] FROM [orders] AS [t0] WHERE EXISTS ("+
			"SELECT 1 FROM [orders] AS [t1] WHERE [t1].[customer_id] = [t0].[customer_id] OR [t1].[customer_id] IS NULL AND [t0].[customer_id] IS NULL "+
			"GROUP BY [t1].[customer_id] HAVING COUNT(*) > $p0) ORDER BY [t0].[customer_id]", q.SQL)
	})
}

func TestCompileFailures(t *testing.T) {
	orders, customers := tables(t)
	src := &ast.Source{Table: orders}
	list := compiler.Terminal{Kind: compiler.TerminalList}

	tests := []struct {
		name  string
		chain ast.Node
		term  compiler.Terminal
		kind  failure.Kind
		is    error
	}{
		{
			name:  "unknown field",
			chain: &ast.Filter{Input: src, Pred: ast.Eq(ast.Col("missing"), 1)},
			term:  list,
			kind:  failure.Translation,
		},
		{
			name: "element reference after group",
			chain: &ast.Project{
				Input: &ast.GroupBy{Input: src, Key: ast.Col("customer_id")},
				Shape: ast.Fields(ast.As("total", ast.Col("total"))),
			},
			term: list,
			kind: failure.Translation,
			is:   compiler.ErrGroupedReference,
		},
		{
			name:  "aggregate without group",
			chain: &ast.Project{Input: src, Shape: ast.Fields(ast.As("n", ast.Count()))},
			term:  list,
			kind:  failure.Translation,
		},
		{
			name: "set shape mismatch",
			chain: &ast.SetCombine{
				Input: src,
				Other: &ast.Source{Table: customers},
				Kind:  ast.SetUnion,
			},
			term: list,
			kind: failure.Translation,
			is:   compiler.ErrShapeMismatch,
		},
		{
			name: "set type mismatch",
			chain: &ast.SetCombine{
				Input: &ast.Project{Input: src, Shape: ast.Fields(ast.As("v", ast.Col("total")))},
				Other: &ast.Project{Input: &ast.Source{Table: customers}, Shape: ast.Fields(ast.As("v", ast.Col("name")))},
				Kind:  ast.SetUnion,
			},
			term: list,
			kind: failure.Translation,
			is:   compiler.ErrShapeMismatch,
		},
		{
			name: "join key count mismatch",
			chain: &ast.Join{
				Input:    src,
				Inner:    &ast.Source{Table: customers},
				OuterKey: ast.Fields(ast.As("a", ast.Col("id")), ast.As("b", ast.Col("total"))),
				InnerKey: ast.Col("id"),
			},
			term: list,
			kind: failure.Translation,
			is:   compiler.ErrKeyMismatch,
		},
		{
			name:  "ordering against null",
			chain: &ast.Filter{Input: src, Pred: ast.Gt(ast.Col("total"), nil)},
			term:  list,
			kind:  failure.Translation,
		},
		{
			name:  "unsupported function",
			chain: &ast.Filter{Input: src, Pred: ast.Fn(dialect.FuncTrim, ast.Col("id"), 1)},
			term:  list,
			kind:  failure.Translation,
		},
		{
			name:  "delete without filter",
			chain: src,
			term:  compiler.Terminal{Kind: compiler.TerminalDelete},
			kind:  failure.Translation,
			is:    compiler.ErrUnsafeDelete,
		},
		{
			name:  "delete with take",
			chain: &ast.Take{Input: &ast.Filter{Input: src, Pred: ast.Col("paid")}, N: 1},
			term:  compiler.Terminal{Kind: compiler.TerminalDelete},
			kind:  failure.Translation,
			is:    compiler.ErrUnsafeDelete,
		},
		{
			name:  "all without predicate",
			chain: src,
			term:  compiler.Terminal{Kind: compiler.TerminalAll},
			kind:  failure.Translation,
		},
		{
			name:  "missing mapping",
			chain: &ast.Source{},
			term:  list,
			kind:  failure.Mapping,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := compiler.NewCompiler(dialect.Get(dialect.SQLite)).Compile(tt.chain, tt.term)
			require.Error(t, err)
			assert.True(t, failure.IsKind(err, tt.kind), "got %v", err)
			if tt.is != nil {
				assert.ErrorIs(t, err, tt.is)
			}
		})
	}
}

func TestSharedPrefixIsNotMutated(t *testing.T) {
	orders, _ := tables(t)
	base := &ast.Filter{Input: &ast.Source{Table: orders}, Pred: ast.Col("paid")}
	c := compiler.NewCompiler(dialect.Get(dialect.SQLite))
	r := sqlgen.NewRenderer(c.Profile())

	first, err := c.Compile(base, compiler.Terminal{Kind: compiler.TerminalFirst})
	require.NoError(t, err)
	all, err := c.Compile(base, compiler.Terminal{Kind: compiler.TerminalList})
	require.NoError(t, err)

	q1, err := r.Render(first.Stmt)
	require.NoError(t, err)
	q2, err := r.Render(all.Stmt)
	require.NoError(t, err)
	assert.Contains(t, q1.SQL, "LIMIT 1")
	assert.NotContains(t, q2.SQL, "LIMIT")
}
