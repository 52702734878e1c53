package compiler

import (
	"reflect"
	"strings"
	"time"

	"github.com/satishbabariya/sqlchain/query/ir"
	"github.com/satishbabariya/sqlchain/query/mapping"
)

// field is one member of a row: either a scalar with the SQL that reads it, or
// a nested row (a whole entity placed inside a join result or shape)
type field struct {
	name     string
	expr     ir.Expr
	row      *scope
	col      *mapping.Column
	typ      reflect.Type
	nullable bool
}

// scope describes the row visible to an operator
type scope struct {
	fields []*field
	// table is set while the row is still a whole entity of a mapped table
	table *mapping.Table
	// open scopes come from dynamic tables without declared columns; any name
	// resolves to a column of alias
	open  bool
	alias string
}

func entityScope(t *mapping.Table, alias string) *scope {
	s := &scope{table: t, alias: alias, open: len(t.Columns) == 0}
	for _, c := range t.Columns {
		s.fields = append(s.fields, &field{
			name:     c.Name,
			expr:     ir.Column{Table: alias, Name: c.Name},
			col:      c,
			typ:      c.Type,
			nullable: c.Nullable,
		})
	}
	return s
}

// get finds a direct member by exact name, then case-insensitively, then by
// the mapped Go field name
func (s *scope) get(name string) (*field, bool) {
	for _, f := range s.fields {
		if f.name == name {
			return f, true
		}
	}
	for _, f := range s.fields {
		if strings.EqualFold(f.name, name) {
			return f, true
		}
	}
	if s.table != nil {
		if c, ok := s.table.Column(name); ok {
			for _, f := range s.fields {
				if f.col == c {
					return f, true
				}
			}
		}
	}
	if s.open {
		return &field{name: name, expr: ir.Column{Table: s.alias, Name: name}, nullable: true}, true
	}
	return nil, false
}

// lookup resolves a dotted path through nested rows
func (s *scope) lookup(path string) (*field, bool) {
	cur := s
	parts := strings.Split(path, ".")
	for i, part := range parts {
		f, ok := cur.get(part)
		if !ok {
			return nil, false
		}
		if i == len(parts)-1 {
			return f, true
		}
		if f.row == nil {
			return nil, false
		}
		cur = f.row
	}
	return nil, false
}

// leaf is a flattened scalar member with its dotted output name
type leaf struct {
	name string
	*field
}

func (s *scope) leaves() []leaf {
	var out []leaf
	s.collect("", &out)
	return out
}

func (s *scope) collect(prefix string, out *[]leaf) {
	for _, f := range s.fields {
		name := f.name
		if prefix != "" {
			name = prefix + "." + f.name
		}
		if f.row != nil {
			f.row.collect(name, out)
			continue
		}
		*out = append(*out, leaf{name: name, field: f})
	}
}

func (s *scope) projections() []ir.Projection {
	leaves := s.leaves()
	if len(leaves) == 0 {
		return nil
	}
	out := make([]ir.Projection, len(leaves))
	for i, l := range leaves {
		out[i] = ir.Projection{Expr: l.expr, Alias: l.name}
	}
	return out
}

func (s *scope) outFields() []OutField {
	leaves := s.leaves()
	out := make([]OutField, len(leaves))
	for i, l := range leaves {
		out[i] = OutField{Name: l.name, Column: l.col, Type: l.typ}
	}
	return out
}

// rebase returns the same row read from a derived table: every scalar member
// becomes a column of alias named by its output name
func (s *scope) rebase(alias string) *scope {
	return s.rebaseAt(alias, "")
}

func (s *scope) rebaseAt(alias, prefix string) *scope {
	out := &scope{table: s.table, open: s.open, alias: alias}
	for _, f := range s.fields {
		name := f.name
		if prefix != "" {
			name = prefix + "." + f.name
		}
		nf := *f
		if f.row != nil {
			nf.row = f.row.rebaseAt(alias, name)
		} else {
			nf.expr = ir.Column{Table: alias, Name: name}
		}
		out.fields = append(out.fields, &nf)
	}
	return out
}

// nullable returns a copy whose members may all be absent, as on the inner
// side of a left join
func (s *scope) nullable() *scope {
	out := &scope{table: s.table, open: s.open, alias: s.alias}
	for _, f := range s.fields {
		nf := *f
		nf.nullable = true
		if f.row != nil {
			nf.row = f.row.nullable()
		}
		out.fields = append(out.fields, &nf)
	}
	return out
}

// typeClass groups Go types that the database stores alike, for comparing
// the shapes of set operands
func typeClass(t reflect.Type) string {
	if t == nil {
		return ""
	}
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t == reflect.TypeOf(time.Time{}) {
		return "time"
	}
	switch t.Kind() {
	case reflect.Bool:
		return "bool"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "int"
	case reflect.Float32, reflect.Float64:
		return "float"
	case reflect.String:
		return "string"
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			return "bytes"
		}
	}
	return t.String()
}

func typeOf(v any) reflect.Type {
	if v == nil {
		return nil
	}
	t := reflect.TypeOf(v)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t
}

// isTime reports whether t holds a timestamp
func isTime(t reflect.Type) bool {
	for t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t == timeType
}

var (
	boolType    = reflect.TypeOf(false)
	int64Type   = reflect.TypeOf(int64(0))
	float64Type = reflect.TypeOf(float64(0))
	stringType  = reflect.TypeOf("")
	timeType    = reflect.TypeOf(time.Time{})
)
