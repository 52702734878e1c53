package commands

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/satishbabariya/sqlchain/cli/internal/ui"
	"github.com/satishbabariya/sqlchain/internal/debug"
	"github.com/satishbabariya/sqlchain/query"
	"github.com/satishbabariya/sqlchain/query/compiler"
	"github.com/satishbabariya/sqlchain/runtime/client"
	"github.com/satishbabariya/sqlchain/telemetry"
)

type runOptions struct {
	provider string
	url      string
	stats    bool
	vars     []string
}

// NewRunCommand creates the run command
func NewRunCommand() *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run <file.yaml>",
		Short: "Run a query file and print the result",
		Long: `Compile a query file for the configured provider, run it and print the
rows as a table.

The database comes from --url, SQLCHAIN_DATABASE_URL or DATABASE_URL.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.provider, "provider", "p", "", "database provider (default from config)")
	cmd.Flags().StringVar(&opts.url, "url", "", "database connection string")
	cmd.Flags().BoolVar(&opts.stats, "stats", false, "print statement statistics afterwards")
	cmd.Flags().StringArrayVar(&opts.vars, "var", nil, "set a query variable (name=value, repeatable)")

	return cmd
}

func runQuery(cmd *cobra.Command, path string, opts *runOptions) error {
	provider := opts.provider
	if provider == "" {
		provider = cfg.Provider
	}
	url := opts.url
	if url == "" {
		url = cfg.DatabaseURL
	}
	if url == "" {
		return fmt.Errorf("no database: pass --url or set SQLCHAIN_DATABASE_URL or DATABASE_URL")
	}

	copts := []client.Option{
		client.WithLogger(debug.Logger()),
		client.WithStatementCache(cfg.StatementCache),
	}
	if cfg.ClientClock {
		copts = append(copts, client.WithClientClock(nil))
	}
	var stats *telemetry.Collector
	if opts.stats || cfg.Stats {
		stats = telemetry.NewCollector()
		copts = append(copts, client.WithObserver(stats))
	}

	c, err := client.Open(provider, url, copts...)
	if err != nil {
		return err
	}
	defer c.Close()

	ctx := commandContext(cmd)
	if err := c.Connect(ctx); err != nil {
		return err
	}
	if v := c.ServerVersion(); v != nil {
		ui.PrintSuccess("connected to %s %s", c.Provider().Name, v)
	}
	for _, w := range c.Warnings() {
		ui.PrintWarning("%s", w)
	}

	f, q, err := build(c, path, opts.vars)
	if err != nil {
		return err
	}
	headers, rows, err := execute(ctx, q, f.TerminalKind())
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if err := ui.PrintTable(out, headers, rows); err != nil {
		return err
	}
	if f.TerminalKind() == compiler.TerminalList {
		ui.PrintInfo("%d rows", len(rows))
	}

	if stats != nil {
		h, r := statsTable(stats.Stats())
		return ui.PrintTable(out, h, r)
	}
	return nil
}

// execute runs q with the given terminal and formats the result as a table
func execute(ctx context.Context, q *query.Query[query.Row], kind compiler.TerminalKind) ([]string, [][]string, error) {
	switch kind {
	case compiler.TerminalCount:
		n, err := q.LongCount(ctx)
		if err != nil {
			return nil, nil, err
		}
		return []string{"count"}, [][]string{{strconv.FormatInt(n, 10)}}, nil
	case compiler.TerminalAny:
		ok, err := q.Any(ctx)
		if err != nil {
			return nil, nil, err
		}
		return []string{"any"}, [][]string{{strconv.FormatBool(ok)}}, nil
	case compiler.TerminalFirst:
		row, err := q.First(ctx)
		if err != nil {
			return nil, nil, err
		}
		return recordTable([]query.Row{row})
	}

	list, err := q.ToList(ctx)
	if err != nil {
		return nil, nil, err
	}
	return recordTable(list)
}

func recordTable(list []query.Row) ([]string, [][]string, error) {
	if len(list) == 0 {
		return []string{"(no rows)"}, nil, nil
	}
	headers := list[0].Names()
	rows := make([][]string, len(list))
	for i, r := range list {
		cells := make([]string, r.Len())
		for j, v := range r.Values() {
			cells[j] = ui.Format(v)
		}
		rows[i] = cells
	}
	return headers, rows, nil
}

func statsTable(snap telemetry.Snapshot) ([]string, [][]string) {
	headers := []string{"op", "count", "errors", "rows", "mean", "max"}
	rows := make([][]string, 0, len(snap.Ops))
	for _, s := range snap.Ops {
		rows = append(rows, []string{
			s.Op,
			strconv.FormatInt(s.Count, 10),
			strconv.FormatInt(s.Errors, 10),
			strconv.FormatInt(s.Rows, 10),
			s.Mean().String(),
			s.Max.String(),
		})
	}
	return headers, rows
}
