// Package mapping resolves Go struct types into table metadata.
package mapping

import (
	"database/sql"
	"reflect"
	"strings"
	"time"
)

// EnumKind selects how an enum column is stored
type EnumKind int

const (
	// EnumNone marks a regular column
	EnumNone EnumKind = iota
	// EnumInt stores the enum's integer value
	EnumInt
	// EnumText stores the enum's name
	EnumText
)

// TableNamer lets a mapped type override its table name
type TableNamer interface {
	TableName() string
}

// TextEnum is implemented by integer enums stored as text.
// EnumNames()[i] is the stored name of value i.
type TextEnum interface {
	EnumNames() []string
}

// Column describes one mapped column
type Column struct {
	Name          string
	Field         string
	Index         []int
	Type          reflect.Type
	Nullable      bool
	PrimaryKey    bool
	AutoIncrement bool
	Enum          EnumKind
}

// Value returns the column's field inside a struct value.
// entity must be an addressable struct value for Set to work on the result.
func (c *Column) Value(entity reflect.Value) reflect.Value {
	return entity.FieldByIndex(c.Index)
}

// Get returns the column's current value from an entity (struct or pointer to struct)
func (c *Column) Get(entity any) any {
	v := reflect.Indirect(reflect.ValueOf(entity))
	return c.Value(v).Interface()
}

// Table describes a mapped type
type Table struct {
	Name       string
	Type       reflect.Type
	Columns    []*Column
	PrimaryKey []*Column

	byName  map[string]*Column
	byField map[string]*Column
}

// NewTable builds table metadata without a Go type, for dynamic rows
func NewTable(name string, columns ...*Column) *Table {
	t := &Table{Name: name}
	for _, c := range columns {
		t.add(c)
	}
	return t
}

func (t *Table) add(c *Column) {
	if t.byName == nil {
		t.byName = make(map[string]*Column)
		t.byField = make(map[string]*Column)
	}
	t.Columns = append(t.Columns, c)
	t.byName[strings.ToLower(c.Name)] = c
	if c.Field != "" {
		t.byField[c.Field] = c
	}
	if c.PrimaryKey {
		t.PrimaryKey = append(t.PrimaryKey, c)
	}
}

// Column finds a column by column name (case-insensitive) or Go field name
func (t *Table) Column(name string) (*Column, bool) {
	if c, ok := t.byField[name]; ok {
		return c, true
	}
	c, ok := t.byName[strings.ToLower(name)]
	return c, ok
}

// ColumnNames returns the column names in declaration order
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// Dynamic reports whether the table has no backing Go type
func (t *Table) Dynamic() bool {
	return t.Type == nil
}

var (
	scannerType = reflect.TypeOf((*sql.Scanner)(nil)).Elem()
	timeType    = reflect.TypeOf(time.Time{})
	textEnum    = reflect.TypeOf((*TextEnum)(nil)).Elem()
)

// nullableType reports whether a Go type can hold an absent value
func nullableType(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Ptr, reflect.Slice, reflect.Map, reflect.Interface:
		return true
	}
	return strings.HasPrefix(t.Name(), "Null") && reflect.PointerTo(t).Implements(scannerType)
}

// ToSnakeCase converts PascalCase to snake_case, keeping acronyms together
func ToSnakeCase(s string) string {
	runes := []rune(s)
	var result strings.Builder
	for i, r := range runes {
		upper := r >= 'A' && r <= 'Z'
		if i > 0 && upper {
			prevLower := runes[i-1] >= 'a' && runes[i-1] <= 'z' || runes[i-1] >= '0' && runes[i-1] <= '9'
			nextLower := i+1 < len(runes) && runes[i+1] >= 'a' && runes[i+1] <= 'z'
			if prevLower || nextLower {
				result.WriteRune('_')
			}
		}
		result.WriteRune(r)
	}
	return strings.ToLower(result.String())
}
