package executor

import (
	"database/sql"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/satishbabariya/sqlchain/query/compiler"
	"github.com/satishbabariya/sqlchain/query/dialect"
	"github.com/satishbabariya/sqlchain/query/failure"
	"github.com/satishbabariya/sqlchain/query/mapping"
)

// Record is a row read without a Go shape. Values keep the order of the
// projected fields.
type Record struct {
	names  []string
	values []any
}

// NewRecord pairs field names with their values
func NewRecord(names []string, values []any) Record {
	return Record{names: names, values: values}
}

// Get returns the value of a field, matching names exactly first and then
// case-insensitively
func (r Record) Get(name string) (any, bool) {
	for i, n := range r.names {
		if n == name {
			return r.values[i], true
		}
	}
	for i, n := range r.names {
		if strings.EqualFold(n, name) {
			return r.values[i], true
		}
	}
	return nil, false
}

// Names returns the field names in projection order
func (r Record) Names() []string { return r.names }

// Values returns the field values in projection order
func (r Record) Values() []any { return r.values }

// Len returns the number of fields
func (r Record) Len() int { return len(r.values) }

func (r Record) String() string {
	var b strings.Builder
	b.WriteByte('{')
	for i, n := range r.names {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s: %v", n, r.values[i])
	}
	b.WriteByte('}')
	return b.String()
}

var (
	recordType   = reflect.TypeOf(Record{})
	timeType     = reflect.TypeOf(time.Time{})
	durationType = reflect.TypeOf(time.Duration(0))
	scannerType  = reflect.TypeOf((*sql.Scanner)(nil)).Elem()
)

type bindMode int

const (
	bindScalar bindMode = iota
	bindRecord
	bindStruct
)

// target locates the struct field an output column is written to
type target struct {
	// path holds one field index per dotted name segment; nil skips the column
	path [][]int
	col  *mapping.Column
}

// Binder converts result rows into values of one Go type. Entity rows of the
// type's own table bind by column position; other structs bind by field name,
// walking dotted names into nested structs.
type Binder struct {
	typ     reflect.Type
	mode    bindMode
	fields  []compiler.OutField
	targets []target
	profile dialect.Profile
}

// NewBinder prepares a binder for rows shaped by fields
func NewBinder(t reflect.Type, table *mapping.Table, fields []compiler.OutField, p dialect.Profile) (*Binder, error) {
	b := &Binder{typ: t, fields: fields, profile: p}
	switch {
	case t == recordType:
		b.mode = bindRecord
	case scalarType(t):
		if len(fields) != 1 {
			return nil, failure.Mappingf(t.String(), "cannot bind %d columns to %s", len(fields), t)
		}
		b.mode = bindScalar
	default:
		st := t
		if st.Kind() == reflect.Ptr {
			st = st.Elem()
		}
		if st.Kind() != reflect.Struct {
			return nil, failure.Mappingf(t.String(), "cannot bind rows to %s", t)
		}
		b.mode = bindStruct
		b.targets = resolveTargets(st, table, fields)
	}
	return b, nil
}

// Type returns the type the binder produces
func (b *Binder) Type() reflect.Type {
	return b.typ
}

// Bind converts one row into a new value of the binder's type
func (b *Binder) Bind(row []any) (reflect.Value, error) {
	if len(row) < len(b.fields) {
		return reflect.Value{}, fmt.Errorf("row has %d columns, expected %d", len(row), len(b.fields))
	}

	switch b.mode {
	case bindRecord:
		values := make([]any, len(b.fields))
		names := make([]string, len(b.fields))
		for i, f := range b.fields {
			names[i] = f.Name
			values[i] = b.recordValue(f, row[i])
		}
		return reflect.ValueOf(NewRecord(names, values)), nil

	case bindScalar:
		out := reflect.New(b.typ).Elem()
		if err := assign(out, row[0], b.fields[0].Column, b.profile); err != nil {
			return reflect.Value{}, failure.Mappingf(b.typ.String(), "column %s: %w", b.fields[0].Name, err)
		}
		return out, nil
	}

	st := b.typ
	if st.Kind() == reflect.Ptr {
		st = st.Elem()
	}
	entity := reflect.New(st)
	for i, tg := range b.targets {
		// absent values leave the zero value, so nested pointers stay nil
		// when every one of their columns is NULL
		if tg.path == nil || row[i] == nil {
			continue
		}
		dst := fieldAlloc(entity.Elem(), tg.path)
		if err := assign(dst, row[i], tg.col, b.profile); err != nil {
			return reflect.Value{}, failure.Mappingf(st.String(), "column %s: %w", b.fields[i].Name, err)
		}
	}
	if b.typ.Kind() == reflect.Ptr {
		return entity, nil
	}
	return entity.Elem(), nil
}

// Into binds row into dst, which must hold the binder's type
func (b *Binder) Into(row []any, dst reflect.Value) error {
	v, err := b.Bind(row)
	if err != nil {
		return err
	}
	dst.Set(v)
	return nil
}

// recordValue converts a raw value to the field's Go type when one is known
func (b *Binder) recordValue(f compiler.OutField, raw any) any {
	if raw == nil || f.Type == nil {
		return raw
	}
	v := reflect.New(f.Type).Elem()
	if err := assign(v, raw, f.Column, b.profile); err != nil {
		return raw
	}
	return v.Interface()
}

func scalarType(t reflect.Type) bool {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return true
	}
	return t == timeType || reflect.PointerTo(t).Implements(scannerType)
}

func resolveTargets(st reflect.Type, table *mapping.Table, fields []compiler.OutField) []target {
	targets := make([]target, len(fields))
	ownTable := table != nil && table.Type == st
	for i, f := range fields {
		targets[i].col = f.Column
		if ownTable && f.Column != nil && len(f.Column.Index) > 0 {
			targets[i].path = [][]int{f.Column.Index}
			continue
		}
		targets[i].path = namePath(st, f.Name)
	}
	return targets
}

// namePath resolves a dotted output name to struct field indexes
func namePath(t reflect.Type, name string) [][]int {
	var path [][]int
	segments := strings.Split(name, ".")
	for i, seg := range segments {
		for t.Kind() == reflect.Ptr {
			t = t.Elem()
		}
		if t.Kind() != reflect.Struct {
			return nil
		}
		f, ok := findField(t, seg)
		if !ok {
			return nil
		}
		path = append(path, f.Index)
		if i < len(segments)-1 && scalarType(f.Type) {
			return nil
		}
		t = f.Type
	}
	return path
}

// findField matches a column name to a struct field by db tag, then Go name,
// then snake_case Go name. Shallower fields win.
func findField(t reflect.Type, name string) (reflect.StructField, bool) {
	var (
		best      reflect.StructField
		bestRank  = 4
		bestDepth int
	)
	for _, f := range reflect.VisibleFields(t) {
		if !f.IsExported() {
			continue
		}
		tag, hasTag := f.Tag.Lookup("db")
		tagName := strings.TrimSpace(strings.Split(tag, ",")[0])
		if tagName == "-" {
			continue
		}
		if f.Anonymous && !hasTag && f.Type.Kind() == reflect.Struct && !scalarType(f.Type) {
			continue
		}

		rank := 4
		switch {
		case hasTag && tagName != "" && strings.EqualFold(tagName, name):
			rank = 1
		case strings.EqualFold(f.Name, name):
			rank = 2
		case mapping.ToSnakeCase(f.Name) == strings.ToLower(name):
			rank = 3
		}
		if rank == 4 {
			continue
		}
		if rank < bestRank || rank == bestRank && len(f.Index) < bestDepth {
			best, bestRank, bestDepth = f, rank, len(f.Index)
		}
	}
	return best, bestRank < 4
}

// fieldAlloc walks path from v, allocating nil struct pointers on the way
func fieldAlloc(v reflect.Value, path [][]int) reflect.Value {
	for _, index := range path {
		for _, i := range index {
			for v.Kind() == reflect.Ptr {
				if v.IsNil() {
					v.Set(reflect.New(v.Type().Elem()))
				}
				v = v.Elem()
			}
			v = v.Field(i)
		}
	}
	return v
}
