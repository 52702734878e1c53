package commands

import (
	"fmt"

	"github.com/satishbabariya/sqlchain/cli/internal/config"
	"github.com/satishbabariya/sqlchain/cli/internal/queryfile"
	"github.com/satishbabariya/sqlchain/query"
	"github.com/satishbabariya/sqlchain/query/compiler"
	"github.com/satishbabariya/sqlchain/query/dialect"
	"github.com/satishbabariya/sqlchain/query/executor"
	"github.com/satishbabariya/sqlchain/query/mapping"
)

// offline is a session that renders chains but never runs them
type offline struct {
	profile  dialect.Profile
	registry *mapping.Registry
	compiler *compiler.Compiler
	ex       *executor.Executor
}

func newOffline(name string, clientClock bool) (*offline, error) {
	profile, err := dialect.Lookup(name)
	if err != nil {
		return nil, err
	}
	if clientClock {
		profile = profile.WithNow(dialect.NowClient)
	}
	return &offline{
		profile:  profile,
		registry: mapping.NewRegistry(),
		compiler: compiler.NewCompiler(profile),
		ex:       executor.NewExecutor(nil, profile),
	}, nil
}

func (s *offline) Profile() dialect.Profile     { return s.profile }
func (s *offline) Registry() *mapping.Registry  { return s.registry }
func (s *offline) Executor() *executor.Executor { return s.ex }
func (s *offline) Compiler() *compiler.Compiler { return s.compiler }

// load reads a query file and applies --var overrides
func load(path string, vars []string) (*queryfile.File, error) {
	f, err := queryfile.Load(config.AppFs, path)
	if err != nil {
		return nil, err
	}
	for _, v := range vars {
		if err := f.SetVar(v); err != nil {
			return nil, fmt.Errorf("--var: %w", err)
		}
	}
	return f, nil
}

// build loads a query file and turns it into a chain over s
func build(s query.Session, path string, vars []string) (*queryfile.File, *query.Query[query.Row], error) {
	f, err := load(path, vars)
	if err != nil {
		return nil, nil, err
	}
	q, err := f.Build(s)
	if err != nil {
		return nil, nil, err
	}
	return f, q, nil
}
