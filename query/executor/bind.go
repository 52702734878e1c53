package executor

import (
	"database/sql"
	"database/sql/driver"
	"fmt"
	"math"
	"reflect"
	"time"

	"github.com/satishbabariya/sqlchain/query/dialect"
	"github.com/satishbabariya/sqlchain/query/sqlgen"
)

var byteSliceType = reflect.TypeOf([]byte(nil))

func (e *Executor) bindArgs(q *sqlgen.Query) ([]any, error) {
	args := make([]any, len(q.Params))
	for i, p := range q.Params {
		v, err := BindValue(e.profile, p.Value)
		if err != nil {
			return nil, fmt.Errorf("bind %s: %w", p.Name, err)
		}
		if q.Named() {
			args[i] = sql.Named(p.Name, v)
		} else {
			args[i] = v
		}
	}
	return args, nil
}

// BindValue converts a caller value into a driver value for the dialect.
// Times become profile layout text where the dialect has no native time type,
// durations become int64 nanoseconds and named basic kinds their base kind.
func BindValue(p dialect.Profile, v any) (any, error) {
	if v == nil {
		return nil, nil
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil, nil
		}
		if _, ok := v.(driver.Valuer); !ok {
			return BindValue(p, rv.Elem().Interface())
		}
	}

	switch x := v.(type) {
	case time.Time:
		if layout := p.TimeLayout(); layout != "" {
			return x.Format(layout), nil
		}
		return x, nil
	case time.Duration:
		return int64(x), nil
	case []byte:
		if x == nil {
			return nil, nil
		}
		return x, nil
	case driver.Valuer:
		dv, err := x.Value()
		if err != nil {
			return nil, err
		}
		if t, ok := dv.(time.Time); ok {
			return BindValue(p, t)
		}
		return dv, nil
	}

	switch rv.Kind() {
	case reflect.Bool:
		return rv.Bool(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return nil, fmt.Errorf("unsigned value %d overflows int64", u)
		}
		return int64(u), nil
	case reflect.Float32, reflect.Float64:
		return rv.Float(), nil
	case reflect.String:
		return rv.String(), nil
	case reflect.Slice:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return rv.Convert(byteSliceType).Interface(), nil
		}
	}
	return nil, fmt.Errorf("unsupported parameter type %T", v)
}
