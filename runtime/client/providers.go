package client

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
	"github.com/hashicorp/go-version"
	_ "github.com/lib/pq"           // PostgreSQL driver
	_ "github.com/mattn/go-sqlite3" // SQLite driver (cgo)
	_ "modernc.org/sqlite"          // SQLite driver (pure Go)

	"github.com/satishbabariya/sqlchain/query/dialect"
)

// Provider ties a provider name to its database/sql driver and dialect
type Provider struct {
	Name    string
	Driver  string
	Dialect dialect.Name

	versionSQL string
}

// requirement is a server feature only some versions have
type requirement struct {
	dialect    dialect.Name
	constraint version.Constraints
	feature    string
}

var requirements = []requirement{
	{dialect.SQLite, mustConstraint(">= 3.35.0"), "math functions (sqrt, ln, log, power, floor, ceiling) need SQLite 3.35"},
	{dialect.MySQL, mustConstraint(">= 8.0.31"), "INTERSECT and EXCEPT need MySQL 8.0.31"},
}

func mustConstraint(s string) version.Constraints {
	c, err := version.NewConstraint(s)
	if err != nil {
		panic(err)
	}
	return c
}

var providers = map[string]Provider{
	"sqlite3":   {Name: "sqlite3", Driver: "sqlite3", Dialect: dialect.SQLite, versionSQL: "SELECT sqlite_version()"},
	"sqlite":    {Name: "sqlite", Driver: "sqlite", Dialect: dialect.SQLite, versionSQL: "SELECT sqlite_version()"},
	"postgres":  {Name: "postgres", Driver: "postgres", Dialect: dialect.Postgres, versionSQL: "SHOW server_version"},
	"mysql":     {Name: "mysql", Driver: "mysql", Dialect: dialect.MySQL, versionSQL: "SELECT VERSION()"},
	"sqlserver": {Name: "sqlserver", Driver: "sqlserver", Dialect: dialect.SQLServer, versionSQL: "SELECT CAST(SERVERPROPERTY('ProductVersion') AS NVARCHAR(128))"},
}

var aliases = map[string]string{
	"postgresql": "postgres",
	"mariadb":    "mysql",
	"mssql":      "sqlserver",
}

// LookupProvider maps a provider name to its driver and dialect. The
// sqlserver provider expects the caller to register a "sqlserver" driver.
func LookupProvider(name string) (Provider, error) {
	key := strings.ToLower(name)
	if alias, ok := aliases[key]; ok {
		key = alias
	}
	p, ok := providers[key]
	if !ok {
		return Provider{}, fmt.Errorf("unsupported provider: %s", name)
	}
	return p, nil
}

// Providers lists the supported provider names
func Providers() []string {
	names := make([]string, 0, len(providers))
	for name := range providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (p Provider) serverVersion(ctx context.Context, db *sql.DB) (*version.Version, error) {
	var raw string
	if err := db.QueryRowContext(ctx, p.versionSQL).Scan(&raw); err != nil {
		return nil, fmt.Errorf("failed to read server version: %w", err)
	}
	return ParseServerVersion(raw)
}

// ParseServerVersion reads the leading version number of a server banner
// such as "16.2 (Debian 16.2-1)" or "8.0.36-0ubuntu0.22.04.1"
func ParseServerVersion(raw string) (*version.Version, error) {
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return nil, fmt.Errorf("empty server version")
	}
	v, err := version.NewVersion(fields[0])
	if err != nil {
		return nil, fmt.Errorf("invalid server version %q: %w", raw, err)
	}
	return v, nil
}

// check returns a warning for every requirement v does not meet
func (p Provider) check(v *version.Version) []string {
	var warnings []string
	for _, r := range requirements {
		if r.dialect == p.Dialect && !r.constraint.Check(v.Core()) {
			warnings = append(warnings, r.feature)
		}
	}
	return warnings
}
