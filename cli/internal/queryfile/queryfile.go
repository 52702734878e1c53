// Package queryfile loads chain descriptions written in YAML, with
// predicates and projections in the dsl expression language:
//
//	table: items
//	where:
//	  - price > @min
//	  - contains(name, "a")
//	select: "name, price"
//	order_by: ["price desc", "name"]
//	take: 10
//	vars:
//	  min: 5
package queryfile

import (
	"fmt"
	"strings"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/satishbabariya/sqlchain/query"
	"github.com/satishbabariya/sqlchain/query/ast"
	"github.com/satishbabariya/sqlchain/query/compiler"
	"github.com/satishbabariya/sqlchain/query/dsl"
	"github.com/satishbabariya/sqlchain/query/mapping"
)

// Terminals accepted by the terminal key
var Terminals = []string{"list", "count", "any", "first"}

var terminalKinds = map[string]compiler.TerminalKind{
	"list":  compiler.TerminalList,
	"count": compiler.TerminalCount,
	"any":   compiler.TerminalAny,
	"first": compiler.TerminalFirst,
}

// File is one chain description
type File struct {
	Table    string         `yaml:"table"`
	Where    []string       `yaml:"where"`
	GroupBy  string         `yaml:"group_by"`
	Having   []string       `yaml:"having"`
	Select   string         `yaml:"select"`
	Distinct bool           `yaml:"distinct"`
	OrderBy  []string       `yaml:"order_by"`
	Skip     int            `yaml:"skip"`
	Take     *int           `yaml:"take"`
	Terminal string         `yaml:"terminal"`
	Vars     map[string]any `yaml:"vars"`
}

// Load reads and validates a query file
func Load(fs afero.Fs, path string) (*File, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read query file: %w", err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Parse decodes and validates a query file
func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("invalid YAML: %w", err)
	}
	if f.Table == "" {
		return nil, fmt.Errorf("table is required")
	}
	if f.Terminal == "" {
		f.Terminal = "list"
	}
	if _, ok := terminalKinds[f.Terminal]; !ok {
		return nil, fmt.Errorf("unknown terminal %q (want one of %s)", f.Terminal, strings.Join(Terminals, ", "))
	}
	if len(f.Having) > 0 && f.GroupBy == "" {
		return nil, fmt.Errorf("having needs group_by")
	}
	if f.Skip < 0 || (f.Take != nil && *f.Take < 0) {
		return nil, fmt.Errorf("skip and take must not be negative")
	}
	return &f, nil
}

// TerminalKind is the compiler terminal the file ends with
func (f *File) TerminalKind() compiler.TerminalKind {
	return terminalKinds[f.Terminal]
}

// SetVar overrides a variable; the value is read as YAML, so 10 is an
// integer and abc a string
func (f *File) SetVar(assignment string) error {
	name, raw, ok := strings.Cut(assignment, "=")
	if !ok || name == "" {
		return fmt.Errorf("variable %q is not name=value", assignment)
	}
	var v any
	if err := yaml.Unmarshal([]byte(raw), &v); err != nil {
		return fmt.Errorf("variable %s: %w", name, err)
	}
	if f.Vars == nil {
		f.Vars = make(map[string]any)
	}
	f.Vars[name] = v
	return nil
}

// Build turns the description into a chain over s
func (f *File) Build(s query.Session) (*query.Query[query.Row], error) {
	vars := dsl.Vars(f.Vars)
	q := query.FromTable(s, mapping.NewTable(f.Table))

	for _, w := range f.Where {
		pred, err := dsl.Parse(w, vars)
		if err != nil {
			return nil, fmt.Errorf("where %q: %w", w, err)
		}
		q = q.Where(pred)
	}

	switch {
	case f.GroupBy != "":
		g, err := f.group(q, vars)
		if err != nil {
			return nil, err
		}
		if f.Select == "" {
			q = g.Keys()
			break
		}
		shape, err := dsl.ParseShape(f.Select, vars)
		if err != nil {
			return nil, fmt.Errorf("select %q: %w", f.Select, err)
		}
		q = g.Select(shape)
	case f.Select != "":
		shape, err := dsl.ParseShape(f.Select, vars)
		if err != nil {
			return nil, fmt.Errorf("select %q: %w", f.Select, err)
		}
		q = query.Select(q, shape)
	}

	if f.Distinct {
		q = q.Distinct()
	}
	for i, o := range f.OrderBy {
		key, desc, err := sortKey(o, vars)
		if err != nil {
			return nil, err
		}
		switch {
		case i == 0 && desc:
			q = q.OrderByDesc(key)
		case i == 0:
			q = q.OrderBy(key)
		case desc:
			q = q.ThenByDesc(key)
		default:
			q = q.ThenBy(key)
		}
	}
	if f.Skip > 0 {
		q = q.Skip(f.Skip)
	}
	if f.Take != nil {
		q = q.Take(*f.Take)
	}
	return q, q.Err()
}

func (f *File) group(q *query.Query[query.Row], vars dsl.Vars) (*query.Grouping[query.Row], error) {
	shape, err := dsl.ParseShape(f.GroupBy, vars)
	if err != nil {
		return nil, fmt.Errorf("group_by %q: %w", f.GroupBy, err)
	}
	var key ast.Expr = shape
	if len(shape.Fields) == 1 {
		key = shape.Fields[0].Expr
	}
	g := q.GroupBy(key)
	for _, h := range f.Having {
		pred, err := dsl.Parse(h, vars)
		if err != nil {
			return nil, fmt.Errorf("having %q: %w", h, err)
		}
		g = g.Having(pred)
	}
	return g, nil
}

// sortKey splits an optional trailing asc/desc off an order_by entry
func sortKey(s string, vars dsl.Vars) (ast.Expr, bool, error) {
	src, desc := strings.TrimSpace(s), false
	if i := strings.LastIndexAny(src, " \t"); i > 0 {
		switch strings.ToLower(src[i+1:]) {
		case "desc":
			src, desc = strings.TrimSpace(src[:i]), true
		case "asc":
			src = strings.TrimSpace(src[:i])
		}
	}
	key, err := dsl.Parse(src, vars)
	if err != nil {
		return nil, false, fmt.Errorf("order_by %q: %w", s, err)
	}
	return key, desc, nil
}
