package client

import (
	"context"
	"fmt"
	"reflect"

	"github.com/satishbabariya/sqlchain/query/compiler"
	"github.com/satishbabariya/sqlchain/query/executor"
	"github.com/satishbabariya/sqlchain/query/failure"
	"github.com/satishbabariya/sqlchain/query/mapping"
	"github.com/satishbabariya/sqlchain/query/sqlgen"
)

// Insert writes entity as a new row. A zero auto-increment key is left to
// the database and the generated value is stored back into entity.
func Insert[T any](ctx context.Context, s executor.Session, entity *T) error {
	table, rv, err := entityOf(s, entity)
	if err != nil {
		return err
	}

	var (
		values    []sqlgen.Assignment
		generated *mapping.Column
	)
	for _, col := range table.Columns {
		fv := col.Value(rv)
		if col.AutoIncrement && fv.IsZero() {
			generated = col
			continue
		}
		v, err := col.Encode(fv.Interface())
		if err != nil {
			return failure.Mappingf(table.Name, "column %s: %w", col.Name, err)
		}
		values = append(values, sqlgen.Assignment{Column: col.Name, Value: v})
	}

	returning := ""
	if generated != nil {
		returning = generated.Name
	}
	r := sqlgen.NewRenderer(s.Profile())
	q, err := r.Insert(table.Name, values, returning)
	if err != nil {
		return err
	}

	if generated != nil && r.Returns() {
		res, err := s.Executor().Query(ctx, "insert", q)
		if err != nil {
			return err
		}
		if len(res.Rows) == 0 || len(res.Rows[0]) == 0 {
			return failure.NewExecution("insert", q.SQL, string(q.Dialect), fmt.Errorf("no generated key returned"))
		}
		return setColumn(s, generated, rv, res.Rows[0][0])
	}

	res, err := s.Executor().ExecResult(ctx, "insert", q)
	if err != nil || generated == nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return failure.NewExecution("insert", q.SQL, string(q.Dialect), err)
	}
	return setColumn(s, generated, rv, id)
}

// Update writes every non-key column of entity to the row with its key and
// returns the number of rows changed
func Update[T any](ctx context.Context, s executor.Session, entity *T) (int64, error) {
	table, rv, err := entityOf(s, entity)
	if err != nil {
		return 0, err
	}
	if len(table.PrimaryKey) == 0 {
		return 0, failure.Mappingf(table.Name, "update needs a primary key")
	}

	var set, key []sqlgen.Assignment
	for _, col := range table.Columns {
		v, err := col.Encode(col.Value(rv).Interface())
		if err != nil {
			return 0, failure.Mappingf(table.Name, "column %s: %w", col.Name, err)
		}
		a := sqlgen.Assignment{Column: col.Name, Value: v}
		if col.PrimaryKey {
			key = append(key, a)
		} else {
			set = append(set, a)
		}
	}

	q, err := sqlgen.NewRenderer(s.Profile()).Update(table.Name, set, key)
	if err != nil {
		return 0, err
	}
	return s.Executor().Exec(ctx, "update", q)
}

// DeleteByKey deletes the row of T with the given primary key values, in
// key column order, and returns the number of rows removed
func DeleteByKey[T any](ctx context.Context, s executor.Session, key ...any) (int64, error) {
	table, err := mapping.For[T](s.Registry())
	if err != nil {
		return 0, err
	}
	where, err := keyOf(table, key)
	if err != nil {
		return 0, err
	}
	q, err := sqlgen.NewRenderer(s.Profile()).DeleteByKey(table.Name, where)
	if err != nil {
		return 0, err
	}
	return s.Executor().Exec(ctx, "delete", q)
}

// Get reads the row of T with the given primary key values. A missing row
// fails with failure.ErrNoElements.
func Get[T any](ctx context.Context, s executor.Session, key ...any) (T, error) {
	var zero T
	table, err := mapping.For[T](s.Registry())
	if err != nil {
		return zero, err
	}
	where, err := keyOf(table, key)
	if err != nil {
		return zero, err
	}
	q, err := sqlgen.NewRenderer(s.Profile()).SelectByKey(table.Name, table.ColumnNames(), where)
	if err != nil {
		return zero, err
	}
	res, err := s.Executor().Query(ctx, "get", q)
	if err != nil {
		return zero, err
	}
	if len(res.Rows) == 0 {
		return zero, failure.NewSequence("get", failure.ErrNoElements)
	}

	fields := make([]compiler.OutField, len(table.Columns))
	for i, col := range table.Columns {
		fields[i] = compiler.OutField{Name: col.Name, Column: col, Type: col.Type}
	}
	b, err := executor.NewBinder(reflect.TypeOf(zero), table, fields, s.Profile())
	if err != nil {
		return zero, err
	}
	v, err := b.Bind(res.Rows[0])
	if err != nil {
		return zero, err
	}
	return v.Interface().(T), nil
}

func entityOf[T any](s executor.Session, entity *T) (*mapping.Table, reflect.Value, error) {
	table, err := mapping.For[T](s.Registry())
	if err != nil {
		return nil, reflect.Value{}, err
	}
	if entity == nil {
		return nil, reflect.Value{}, failure.Mappingf(table.Name, "nil entity")
	}
	return table, reflect.ValueOf(entity).Elem(), nil
}

func keyOf(table *mapping.Table, key []any) ([]sqlgen.Assignment, error) {
	if len(table.PrimaryKey) == 0 {
		return nil, failure.Mappingf(table.Name, "no primary key")
	}
	if len(key) != len(table.PrimaryKey) {
		return nil, failure.Mappingf(table.Name, "primary key has %d columns, got %d values", len(table.PrimaryKey), len(key))
	}
	out := make([]sqlgen.Assignment, len(key))
	for i, col := range table.PrimaryKey {
		v, err := col.Encode(key[i])
		if err != nil {
			return nil, failure.Mappingf(table.Name, "column %s: %w", col.Name, err)
		}
		out[i] = sqlgen.Assignment{Column: col.Name, Value: v}
	}
	return out, nil
}

// setColumn stores a generated value into the entity's column field
func setColumn(s executor.Session, col *mapping.Column, entity reflect.Value, raw any) error {
	b, err := executor.NewBinder(col.Type, nil, []compiler.OutField{{Name: col.Name, Column: col}}, s.Profile())
	if err != nil {
		return err
	}
	return b.Into([]any{raw}, col.Value(entity))
}
