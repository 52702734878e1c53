package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"github.com/satishbabariya/sqlchain/cli/internal/ui"
	"github.com/satishbabariya/sqlchain/cli/internal/watch"
	"github.com/satishbabariya/sqlchain/query/compiler"
	"github.com/satishbabariya/sqlchain/query/sqlgen"
)

var dialects = []string{"sqlite", "postgres", "mysql", "sqlserver"}

type renderOptions struct {
	dialect     string
	markdown    bool
	watch       bool
	interactive bool
	vars        []string
}

// NewRenderCommand creates the render command
func NewRenderCommand() *cobra.Command {
	opts := &renderOptions{}

	cmd := &cobra.Command{
		Use:   "render <file.yaml>",
		Short: "Print the SQL statement a query file compiles to",
		Long: `Compile a query file for one dialect and print the statement with its
parameters. Nothing is executed.

Example:
  sqlchain render orders.yaml --dialect postgres --var min=100`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.dialect, "dialect", "d", "", "dialect to render for: "+strings.Join(dialects, ", "))
	cmd.Flags().BoolVar(&opts.markdown, "markdown", false, "render as markdown")
	cmd.Flags().BoolVarP(&opts.watch, "watch", "w", false, "render again whenever the file changes")
	cmd.Flags().BoolVarP(&opts.interactive, "interactive", "i", false, "ask for the dialect")
	cmd.Flags().StringArrayVar(&opts.vars, "var", nil, "set a query variable (name=value, repeatable)")

	return cmd
}

func runRender(cmd *cobra.Command, path string, opts *renderOptions) error {
	name, err := chooseDialect(opts.dialect, opts.interactive)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	render := func() error {
		q, err := renderFile(path, name, opts.vars)
		if err != nil {
			return err
		}
		return printStatement(out, q, opts.markdown)
	}
	if !opts.watch {
		return render()
	}

	w, err := watch.NewWatcher(path, func() error {
		if err := render(); err != nil {
			ui.PrintError("%v", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if err := w.Start(); err != nil {
		return err
	}
	ui.PrintInfo("watching %s (Ctrl+C to stop)", path)

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt)
	defer stop()
	<-ctx.Done()
	return w.Stop()
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func chooseDialect(flag string, interactive bool) (string, error) {
	if flag != "" {
		return flag, nil
	}
	name := cfg.Dialect
	if !interactive {
		return name, nil
	}
	prompt := &survey.Select{
		Message: "Dialect:",
		Options: dialects,
		Default: name,
	}
	if err := survey.AskOne(prompt, &name); err != nil {
		return "", err
	}
	return name, nil
}

// renderFile compiles a query file for the terminal it names
func renderFile(path, dialectName string, vars []string) (*sqlgen.Query, error) {
	s, err := newOffline(dialectName, cfg.ClientClock)
	if err != nil {
		return nil, err
	}
	f, q, err := build(s, path, vars)
	if err != nil {
		return nil, err
	}
	return q.ToSQLFor(compiler.Terminal{Kind: f.TerminalKind()})
}

func printStatement(w io.Writer, q *sqlgen.Query, markdown bool) error {
	if markdown {
		out, err := ui.RenderMarkdown(statementMarkdown(q))
		if err != nil {
			return err
		}
		_, err = fmt.Fprint(w, out)
		return err
	}

	fmt.Fprintln(w, q.SQL)
	if len(q.Params) > 0 {
		names := make([]string, len(q.Params))
		for i, p := range q.Params {
			names[i] = p.Name
		}
		fmt.Fprintln(w, "-- parameters")
		ui.PrintParams(w, names, q.Values())
	}
	return nil
}

func statementMarkdown(q *sqlgen.Query) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## %s\n\n```sql\n%s\n```\n", q.Dialect, q.SQL)
	if len(q.Params) > 0 {
		b.WriteString("\n| parameter | type | value |\n|---|---|---|\n")
		for _, p := range q.Params {
			fmt.Fprintf(&b, "| %s | %s | `%s` |\n", p.Name, p.Type, ui.Format(p.Value))
		}
	}
	return b.String()
}
