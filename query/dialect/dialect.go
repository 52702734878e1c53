// Package dialect describes the syntactic differences between the supported database backends.
package dialect

import (
	"fmt"
	"strings"
)

// Name identifies a dialect family
type Name string

const (
	// SQLite is the SQLite family ($name markers, [ident] quoting, LIMIT/OFFSET)
	SQLite Name = "sqlite"
	// SQLServer is the SQL Server family (@name markers, [ident] quoting, TOP / OFFSET FETCH)
	SQLServer Name = "sqlserver"
	// Postgres is PostgreSQL ($n markers, "ident" quoting, LIMIT/OFFSET)
	Postgres Name = "postgres"
	// MySQL is MySQL/MariaDB (? markers, `ident` quoting, LIMIT/OFFSET)
	MySQL Name = "mysql"
)

// Paging selects how Take/Skip are rendered
type Paging int

const (
	// PagingLimitOffset renders LIMIT n OFFSET m
	PagingLimitOffset Paging = iota
	// PagingTopOffsetFetch renders TOP n, or OFFSET m ROWS FETCH NEXT n ROWS ONLY
	PagingTopOffsetFetch
)

// LikePolicy controls case handling of pattern matches
type LikePolicy int

const (
	// LikeNative passes LIKE through and lets the backend collation decide
	LikeNative LikePolicy = iota
	// LikeFold lowers both operands so matching is case-insensitive everywhere
	LikeFold
)

// NowPolicy controls where the current instant is evaluated
type NowPolicy int

const (
	// NowDatabase evaluates the current instant on the database clock
	NowDatabase NowPolicy = iota
	// NowClient binds the client clock at translation time
	NowClient
)

// CastType is a logical target type for explicit conversions
type CastType int

const (
	CastInt CastType = iota
	CastFloat
	CastText
	CastDecimal
)

func (c CastType) String() string {
	switch c {
	case CastInt:
		return "int"
	case CastFloat:
		return "float"
	case CastText:
		return "text"
	case CastDecimal:
		return "decimal"
	default:
		return fmt.Sprintf("cast(%d)", int(c))
	}
}

// Profile holds the per-backend constants used by the compiler and renderer.
// Profiles are values; the With* methods return modified copies.
type Profile struct {
	name   Name
	paging Paging
	like   LikePolicy
	now    NowPolicy

	openQuote  string
	closeQuote string
	named      bool
	marker     func(index int, name string) string

	// timeLayout is the text layout used to bind time values, empty to bind natively
	timeLayout string
	nowSQL     string
	funcs      map[Func]string
	casts      map[CastType]string
}

// SQLiteTimeLayout is the text form timestamps are stored in on SQLite
const SQLiteTimeLayout = "2006-01-02 15:04:05.999999999-07:00"

var profiles = map[Name]Profile{
	SQLite: {
		name:       SQLite,
		paging:     PagingLimitOffset,
		openQuote:  "[",
		closeQuote: "]",
		named:      true,
		marker:     func(_ int, name string) string { return "$" + name },
		timeLayout: SQLiteTimeLayout,
		nowSQL:     "STRFTIME('%Y-%m-%d %H:%M:%f', 'now')",
		funcs:      sqliteFuncs,
		casts: map[CastType]string{
			CastInt: "INTEGER", CastFloat: "REAL", CastText: "TEXT", CastDecimal: "NUMERIC",
		},
	},
	SQLServer: {
		name:       SQLServer,
		paging:     PagingTopOffsetFetch,
		openQuote:  "[",
		closeQuote: "]",
		named:      true,
		marker:     func(_ int, name string) string { return "@" + name },
		nowSQL:     "SYSDATETIMEOFFSET()",
		funcs:      sqlServerFuncs,
		casts: map[CastType]string{
			CastInt: "BIGINT", CastFloat: "FLOAT", CastText: "NVARCHAR(MAX)", CastDecimal: "DECIMAL(38, 10)",
		},
	},
	Postgres: {
		name:       Postgres,
		paging:     PagingLimitOffset,
		openQuote:  `"`,
		closeQuote: `"`,
		marker:     func(index int, _ string) string { return fmt.Sprintf("$%d", index+1) },
		nowSQL:     "CURRENT_TIMESTAMP",
		funcs:      postgresFuncs,
		casts: map[CastType]string{
			CastInt: "BIGINT", CastFloat: "DOUBLE PRECISION", CastText: "TEXT", CastDecimal: "NUMERIC",
		},
	},
	MySQL: {
		name:       MySQL,
		paging:     PagingLimitOffset,
		openQuote:  "`",
		closeQuote: "`",
		marker:     func(int, string) string { return "?" },
		nowSQL:     "CURRENT_TIMESTAMP(6)",
		funcs:      mysqlFuncs,
		casts: map[CastType]string{
			CastInt: "SIGNED", CastFloat: "DOUBLE", CastText: "CHAR", CastDecimal: "DECIMAL(38, 10)",
		},
	},
}

// Get returns the profile for a dialect family
func Get(name Name) Profile {
	p, ok := profiles[name]
	if !ok {
		panic(fmt.Sprintf("dialect: unknown dialect %q", name))
	}
	return p
}

// Lookup maps a provider or driver name to its profile
func Lookup(provider string) (Profile, error) {
	switch strings.ToLower(provider) {
	case "sqlite", "sqlite3":
		return profiles[SQLite], nil
	case "sqlserver", "mssql":
		return profiles[SQLServer], nil
	case "postgres", "postgresql", "pq", "pgx":
		return profiles[Postgres], nil
	case "mysql", "mariadb":
		return profiles[MySQL], nil
	default:
		return Profile{}, fmt.Errorf("unsupported dialect: %s", provider)
	}
}

// Name returns the dialect family
func (p Profile) Name() Name { return p.name }

// Paging returns the paging style
func (p Profile) Paging() Paging { return p.paging }

// Like returns the pattern-match policy
func (p Profile) Like() LikePolicy { return p.like }

// Now returns the current-instant policy
func (p Profile) Now() NowPolicy { return p.now }

// NamedParams reports whether parameters are bound by name
func (p Profile) NamedParams() bool { return p.named }

// TimeLayout returns the layout used to bind time values, or "" when bound natively
func (p Profile) TimeLayout() string { return p.timeLayout }

// NowSQL returns the expression reading the database clock
func (p Profile) NowSQL() string { return p.nowSQL }

// WithLike returns a copy using the given pattern-match policy
func (p Profile) WithLike(policy LikePolicy) Profile {
	p.like = policy
	return p
}

// WithNow returns a copy using the given current-instant policy
func (p Profile) WithNow(policy NowPolicy) Profile {
	p.now = policy
	return p
}

// Quote quotes an identifier, doubling any embedded closing quote
func (p Profile) Quote(ident string) string {
	escaped := strings.ReplaceAll(ident, p.closeQuote, p.closeQuote+p.closeQuote)
	return p.openQuote + escaped + p.closeQuote
}

// ParamName returns the generated name of the parameter at index
func (p Profile) ParamName(index int) string {
	return fmt.Sprintf("p%d", index)
}

// Marker returns the placeholder text for a parameter
func (p Profile) Marker(index int, name string) string {
	return p.marker(index, name)
}

// Template returns the function template for f
func (p Profile) Template(f Func) (string, bool) {
	t, ok := p.funcs[f]
	return t, ok
}

// Supports reports whether the dialect can render f
func (p Profile) Supports(f Func) bool {
	_, ok := p.funcs[f]
	return ok
}

// CastName returns the backend type name for a logical cast target
func (p Profile) CastName(t CastType) string {
	return p.casts[t]
}

func (p Profile) String() string {
	return string(p.name)
}
