// Package client provides the stock session for sqlchain: it opens a
// database for a provider, checks the server, and runs chains, fixed-shape
// CRUD statements and transactions.
package client

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/hashicorp/go-version"

	"github.com/satishbabariya/sqlchain/internal/debug"
	"github.com/satishbabariya/sqlchain/query/cache"
	"github.com/satishbabariya/sqlchain/query/compiler"
	"github.com/satishbabariya/sqlchain/query/dialect"
	"github.com/satishbabariya/sqlchain/query/executor"
	"github.com/satishbabariya/sqlchain/query/mapping"
)

// Client is a database handle that chains can run on
type Client struct {
	db       *sql.DB
	provider Provider
	profile  dialect.Profile
	registry *mapping.Registry
	compiler *compiler.Compiler
	ex       *executor.Executor
	logger   *slog.Logger

	version  *version.Version
	warnings []string
}

// Open opens a database for provider. The connection is not checked until
// Connect is called.
func Open(provider, dsn string, opts ...Option) (*Client, error) {
	p, err := LookupProvider(provider)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(p.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", p.Name, err)
	}
	return newClient(p, db, opts), nil
}

// FromDB wraps an already opened database
func FromDB(provider string, db *sql.DB, opts ...Option) (*Client, error) {
	if db == nil {
		return nil, fmt.Errorf("no database given")
	}
	p, err := LookupProvider(provider)
	if err != nil {
		return nil, err
	}
	return newClient(p, db, opts), nil
}

func newClient(p Provider, db *sql.DB, opts []Option) *Client {
	s := settings{}
	for _, opt := range opts {
		opt(&s)
	}

	profile := dialect.Get(p.Dialect)
	if s.like != nil {
		profile = profile.WithLike(*s.like)
	}
	var copts []compiler.Option
	if s.clock != nil {
		profile = profile.WithNow(dialect.NowClient)
		copts = append(copts, compiler.WithClientClock(s.clock))
	}

	logger := s.logger
	if logger == nil {
		logger = debug.Logger()
	}
	eopts := []executor.Option{executor.WithLogger(logger)}
	if s.cacheSize > 0 {
		eopts = append(eopts, executor.WithStatementCache(cache.NewStatements(s.cacheSize)))
	}
	if obs := Observers(s.observers...); obs != nil {
		eopts = append(eopts, executor.WithObserver(obs))
	}

	return &Client{
		db:       db,
		provider: p,
		profile:  profile,
		registry: mapping.NewRegistry(),
		compiler: compiler.NewCompiler(profile, copts...),
		ex:       executor.NewExecutor(db, profile, eopts...),
		logger:   logger,
	}
}

// Connect checks the connection and reads the server version. Features the
// server is too old for are logged as warnings and kept in Warnings.
func (c *Client) Connect(ctx context.Context) error {
	if err := c.db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to connect to %s: %w", c.provider.Name, err)
	}
	v, err := c.provider.serverVersion(ctx, c.db)
	if err != nil {
		c.logger.Warn("server version unavailable", "provider", c.provider.Name, "error", err)
		return nil
	}
	c.version = v
	c.warnings = c.provider.check(v)
	for _, w := range c.warnings {
		c.logger.Warn(w, "provider", c.provider.Name, "version", v.String())
	}
	c.logger.Debug("connected", "provider", c.provider.Name, "version", v.String())
	return nil
}

// Close closes the statement cache and the database
func (c *Client) Close() error {
	if stmts := c.ex.Statements(); stmts != nil {
		if err := stmts.Clear(); err != nil {
			c.logger.Warn("failed to close cached statements", "error", err)
		}
	}
	return c.db.Close()
}

// DB returns the underlying database
func (c *Client) DB() *sql.DB {
	return c.db
}

// Provider returns the provider the client was opened for
func (c *Client) Provider() Provider {
	return c.provider
}

// ServerVersion is the version read by Connect, nil before it
func (c *Client) ServerVersion() *version.Version {
	return c.version
}

// Warnings lists features the connected server does not support
func (c *Client) Warnings() []string {
	return c.warnings
}

func (c *Client) Profile() dialect.Profile     { return c.profile }
func (c *Client) Registry() *mapping.Registry  { return c.registry }
func (c *Client) Executor() *executor.Executor { return c.ex }
func (c *Client) Compiler() *compiler.Compiler { return c.compiler }
