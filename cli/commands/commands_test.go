package commands

import (
	"bytes"
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satishbabariya/sqlchain/cli/internal/config"
	"github.com/satishbabariya/sqlchain/query/compiler"
	"github.com/satishbabariya/sqlchain/runtime/client"
)

const itemsQuery = `
table: items
where:
  - price > @min
select: "name, price"
order_by: ["price desc"]
vars:
  min: 10
`

func setup(t *testing.T, files map[string]string) {
	t.Helper()
	prevFs, prevColor := config.AppFs, color.NoColor
	fs := afero.NewMemMapFs()
	for name, body := range files {
		require.NoError(t, afero.WriteFile(fs, name, []byte(body), 0o644))
	}
	config.AppFs = fs
	color.NoColor = true
	for _, name := range []string{"SQLCHAIN_DIALECT", "SQLCHAIN_PROVIDER", "SQLCHAIN_DATABASE_URL", "SQLCHAIN_CLIENT_CLOCK"} {
		t.Setenv(name, "")
	}
	t.Cleanup(func() {
		config.AppFs, color.NoColor = prevFs, prevColor
	})
}

func execRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := NewRootCommand()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestRenderCommand(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want []string
	}{
		{
			name: "default dialect",
			args: []string{"render", "items.yaml"},
			want: []string{"SELECT [t0].[name], [t0].[price] FROM [items] AS [t0]", "[t0].[price] > $min", "-- parameters", "min = 10"},
		},
		{
			name: "postgres",
			args: []string{"render", "items.yaml", "--dialect", "postgres"},
			want: []string{`FROM "items" AS "t0"`, `"t0"."price" > $1`, "ORDER BY", "min = 10"},
		},
		{
			name: "mysql with override",
			args: []string{"render", "items.yaml", "-d", "mysql", "--var", "min=99"},
			want: []string{"FROM `items` AS `t0`", "`t0`.`price` > ?", "min = 99"},
		},
		{
			name: "count terminal",
			args: []string{"render", "count.yaml"},
			want: []string{"COUNT(*)", "[items]"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setup(t, map[string]string{
				"items.yaml": itemsQuery,
				"count.yaml": "table: items\nterminal: count\n",
			})
			out, err := execRoot(t, tt.args...)
			require.NoError(t, err)
			for _, w := range tt.want {
				assert.Contains(t, out, w)
			}
		})
	}
}

func TestRenderCommandUsesConfiguredDialect(t *testing.T) {
	setup(t, map[string]string{"items.yaml": itemsQuery})
	t.Setenv("SQLCHAIN_DIALECT", "sqlserver")

	out, err := execRoot(t, "render", "items.yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "@min")
}

func TestRenderCommandErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"missing file", []string{"render", "nope.yaml"}, "failed to read query file"},
		{"unknown dialect", []string{"render", "items.yaml", "-d", "oracle"}, "unsupported dialect"},
		{"bad var", []string{"render", "items.yaml", "--var", "min"}, "--var"},
		{"no args", []string{"render"}, "accepts 1 arg"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setup(t, map[string]string{"items.yaml": itemsQuery})
			_, err := execRoot(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestStatementMarkdown(t *testing.T) {
	setup(t, map[string]string{"items.yaml": itemsQuery})
	q, err := renderFile("items.yaml", "sqlite", nil)
	require.NoError(t, err)

	md := statementMarkdown(q)
	assert.Contains(t, md, "## sqlite")
	assert.Contains(t, md, "```sql\n"+q.SQL+"\n```")
	assert.Contains(t, md, "| min | int | `10` |")

	var buf bytes.Buffer
	require.NoError(t, printStatement(&buf, q, true))
	assert.Contains(t, buf.String(), "items")
}

func TestVersionCommand(t *testing.T) {
	setup(t, nil)
	out, err := execRoot(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "sqlchain version")
	assert.Contains(t, out, "Providers:")

	out, err = execRoot(t, "version", "--short")
	require.NoError(t, err)
	assert.NotContains(t, out, "Providers:")
}

func seed(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "shop.db")
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()
	for _, stmt := range []string{
		"CREATE TABLE items (id INTEGER PRIMARY KEY, name TEXT NOT NULL, price INTEGER NOT NULL)",
		"INSERT INTO items (name, price) VALUES ('lamp', 40), ('desk', 120), ('pen', 2)",
	} {
		_, err := db.Exec(stmt)
		require.NoError(t, err)
	}
	return path
}

func TestExecute(t *testing.T) {
	path := seed(t)
	setup(t, map[string]string{
		"items.yaml": itemsQuery,
		"count.yaml": "table: items\nwhere: [\"price > @min\"]\nterminal: count\nvars: {min: 10}\n",
		"any.yaml":   "table: items\nwhere: [\"price > 1000\"]\nterminal: any\n",
		"first.yaml": "table: items\norder_by: [price]\nterminal: first\n",
		"all.yaml":   "table: items\norder_by: [id]\n",
	})

	c, err := client.Open("sqlite", path)
	require.NoError(t, err)
	defer c.Close()
	ctx := context.Background()

	tests := []struct {
		file    string
		kind    compiler.TerminalKind
		headers []string
		rows    [][]string
	}{
		{"items.yaml", compiler.TerminalList, []string{"name", "price"}, [][]string{{`"desk"`, "120"}, {`"lamp"`, "40"}}},
		{"count.yaml", compiler.TerminalCount, []string{"count"}, [][]string{{"2"}}},
		{"any.yaml", compiler.TerminalAny, []string{"any"}, [][]string{{"false"}}},
		{"first.yaml", compiler.TerminalFirst, []string{"id", "name", "price"}, [][]string{{"3", `"pen"`, "2"}}},
		{"all.yaml", compiler.TerminalList, []string{"id", "name", "price"}, [][]string{{"1", `"lamp"`, "40"}, {"2", `"desk"`, "120"}, {"3", `"pen"`, "2"}}},
	}
	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			f, q, err := build(c, tt.file, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.kind, f.TerminalKind())

			headers, rows, err := execute(ctx, q, f.TerminalKind())
			require.NoError(t, err)
			assert.Equal(t, tt.headers, headers)
			assert.Equal(t, tt.rows, rows)
		})
	}
}

func TestRunCommand(t *testing.T) {
	path := seed(t)
	setup(t, map[string]string{"items.yaml": itemsQuery})

	t.Setenv("SQLCHAIN_TELEMETRY_DISABLED", "")
	out, err := execRoot(t, "run", "items.yaml", "--provider", "sqlite", "--url", path, "--stats")
	require.NoError(t, err)
	assert.Contains(t, out, `"desk"`)
	assert.Contains(t, out, `"lamp"`)
	assert.NotContains(t, out, `"pen"`)
	assert.Contains(t, out, "list")
}

func TestRunCommandNeedsDatabase(t *testing.T) {
	setup(t, map[string]string{"items.yaml": itemsQuery})
	t.Setenv("DATABASE_URL", "")

	_, err := execRoot(t, "run", "items.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no database")
}
