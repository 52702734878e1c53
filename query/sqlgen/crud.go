package sqlgen

import (
	"github.com/satishbabariya/sqlchain/query/dialect"
	"github.com/satishbabariya/sqlchain/query/ir"
)

// Assignment is one column/value pair of an INSERT or UPDATE
type Assignment struct {
	Column string
	Value  any
}

// Insert renders INSERT INTO table (...) VALUES (...). When returning names a
// generated key column, Postgres appends RETURNING and SQL Server adds an
// OUTPUT clause; the other dialects report the key through LastInsertId.
func (r *Renderer) Insert(table string, values []Assignment, returning string) (*Query, error) {
	w := r.newWriter()
	w.write("INSERT INTO ", w.quote(table))
	if len(values) == 0 {
		switch {
		case returning != "" && r.profile.Name() == dialect.SQLServer:
			w.write(" OUTPUT INSERTED.", w.quote(returning), " DEFAULT VALUES")
		case r.profile.Name() == dialect.MySQL:
			w.write(" () VALUES ()")
		default:
			w.write(" DEFAULT VALUES")
		}
		if returning != "" && r.profile.Name() == dialect.Postgres {
			w.write(" RETURNING ", w.quote(returning))
		}
		return w.finish()
	}

	w.write(" (")
	for i, a := range values {
		if i > 0 {
			w.write(", ")
		}
		w.write(w.quote(a.Column))
	}
	w.write(")")

	if returning != "" && r.profile.Name() == dialect.SQLServer {
		w.write(" OUTPUT INSERTED.", w.quote(returning))
	}

	w.write(" VALUES (")
	for i, a := range values {
		if i > 0 {
			w.write(", ")
		}
		w.bind(ir.Param{Value: a.Value})
	}
	w.write(")")

	if returning != "" && r.profile.Name() == dialect.Postgres {
		w.write(" RETURNING ", w.quote(returning))
	}
	return w.finish()
}

// Returns reports whether Insert with a returning column yields a result row
func (r *Renderer) Returns() bool {
	switch r.profile.Name() {
	case dialect.Postgres, dialect.SQLServer:
		return true
	}
	return false
}

// Update renders UPDATE table SET ... WHERE key = ...
func (r *Renderer) Update(table string, set []Assignment, key []Assignment) (*Query, error) {
	w := r.newWriter()
	if len(set) == 0 {
		w.fail("update of %s has no columns to set", table)
		return w.finish()
	}
	w.write("UPDATE ", w.quote(table), " SET ")
	for i, a := range set {
		if i > 0 {
			w.write(", ")
		}
		w.write(w.quote(a.Column), " = ")
		w.bind(ir.Param{Value: a.Value})
	}
	w.keyWhere(key)
	return w.finish()
}

// DeleteByKey renders DELETE FROM table WHERE key = ...
func (r *Renderer) DeleteByKey(table string, key []Assignment) (*Query, error) {
	w := r.newWriter()
	w.write("DELETE FROM ", w.quote(table))
	w.keyWhere(key)
	return w.finish()
}

// SelectByKey renders SELECT columns FROM table WHERE key = ...
func (r *Renderer) SelectByKey(table string, columns []string, key []Assignment) (*Query, error) {
	w := r.newWriter()
	w.write("SELECT ")
	for i, c := range columns {
		if i > 0 {
			w.write(", ")
		}
		w.write(w.quote(c))
	}
	w.write(" FROM ", w.quote(table))
	w.keyWhere(key)
	return w.finish()
}

func (w *writer) keyWhere(key []Assignment) {
	if len(key) == 0 {
		w.fail("statement has no key columns")
		return
	}
	w.write(" WHERE ")
	for i, a := range key {
		if i > 0 {
			w.write(" AND ")
		}
		w.write(w.quote(a.Column), " = ")
		w.bind(ir.Param{Value: a.Value})
	}
}
