package mapping

import (
	"reflect"
	"strings"
	"sync"

	"github.com/satishbabariya/sqlchain/query/failure"
)

// Registry builds table metadata once per Go type and keeps it for its own lifetime.
// It is safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	tables map[reflect.Type]*Table
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{tables: make(map[reflect.Type]*Table)}
}

// For returns the table metadata of T
func For[T any](r *Registry) (*Table, error) {
	return r.Table(reflect.TypeOf((*T)(nil)).Elem())
}

// Table returns the metadata of a struct type, building it on first use
func (r *Registry) Table(t reflect.Type) (*Table, error) {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	r.mu.RLock()
	table, ok := r.tables[t]
	r.mu.RUnlock()
	if ok {
		return table, nil
	}

	table, err := build(t)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.tables[t]; ok {
		return existing, nil
	}
	r.tables[t] = table
	return table, nil
}

// Len returns the number of cached types
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tables)
}

// candidate is a field found while walking a struct and its embedded structs
type candidate struct {
	field   reflect.StructField
	index   []int
	depth   int
	ignored bool
	column  *Column
}

func build(t reflect.Type) (*Table, error) {
	if t.Kind() != reflect.Struct {
		return nil, failure.Mappingf(t.String(), "mapped type must be a struct, got %s", t.Kind())
	}

	var candidates []*candidate
	walk(t, nil, 0, &candidates)

	// Most-derived declaration wins, first by Go field name, then by column name.
	byField := make(map[string]*candidate)
	for _, c := range candidates {
		if best, ok := byField[c.field.Name]; !ok || c.depth < best.depth {
			byField[c.field.Name] = c
		}
	}
	byColumn := make(map[string]*candidate)
	for _, c := range candidates {
		if c.ignored || byField[c.field.Name] != c {
			continue
		}
		key := strings.ToLower(c.column.Name)
		if best, ok := byColumn[key]; !ok || c.depth < best.depth {
			byColumn[key] = c
		}
	}

	table := &Table{Name: tableName(t), Type: t}
	for _, c := range candidates {
		if c.ignored || byField[c.field.Name] != c || byColumn[strings.ToLower(c.column.Name)] != c {
			continue
		}
		table.add(c.column)
	}

	if len(table.Columns) == 0 {
		return nil, failure.Mappingf(table.Name, "type %s has no mapped columns", t)
	}

	if len(table.PrimaryKey) == 0 {
		if id, ok := table.byName["id"]; ok {
			id.PrimaryKey = true
			table.PrimaryKey = []*Column{id}
		}
	}

	return table, nil
}

func walk(t reflect.Type, prefix []int, depth int, out *[]*candidate) {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		index := append(append([]int(nil), prefix...), i)
		tag, hasTag := f.Tag.Lookup("db")

		if f.Anonymous && !hasTag && embeddable(f.Type) {
			walk(f.Type, index, depth+1, out)
			continue
		}
		if !f.IsExported() {
			continue
		}

		c := &candidate{field: f, index: index, depth: depth}
		if tag == "-" {
			c.ignored = true
			*out = append(*out, c)
			continue
		}
		c.column = parseColumn(f, index, tag)
		*out = append(*out, c)
	}
}

func embeddable(t reflect.Type) bool {
	if t.Kind() != reflect.Struct || t == timeType {
		return false
	}
	return !reflect.PointerTo(t).Implements(scannerType)
}

// parseColumn reads tags of the form `db:"name,pk,autoincrement,nullable,enum=text"`
func parseColumn(f reflect.StructField, index []int, tag string) *Column {
	parts := strings.Split(tag, ",")
	col := &Column{
		Name:     strings.TrimSpace(parts[0]),
		Field:    f.Name,
		Index:    index,
		Type:     f.Type,
		Nullable: nullableType(f.Type),
	}
	if col.Name == "" {
		col.Name = ToSnakeCase(f.Name)
	}

	for _, opt := range parts[1:] {
		opt = strings.TrimSpace(opt)
		switch {
		case opt == "pk" || opt == "primarykey":
			col.PrimaryKey = true
		case opt == "autoincrement":
			col.AutoIncrement = true
		case opt == "nullable":
			col.Nullable = true
		case opt == "enum" || opt == "enum=int":
			col.Enum = EnumInt
		case opt == "enum=text":
			col.Enum = EnumText
		}
	}

	if col.Enum == EnumNone && f.Type.Implements(textEnum) {
		col.Enum = EnumText
	}
	return col
}

func tableName(t reflect.Type) string {
	if namer, ok := reflect.New(t).Interface().(TableNamer); ok {
		return namer.TableName()
	}
	return ToSnakeCase(t.Name())
}
