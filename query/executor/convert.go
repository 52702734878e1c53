package executor

import (
	"database/sql"
	"fmt"
	"reflect"
	"time"

	"github.com/spf13/cast"

	"github.com/satishbabariya/sqlchain/query/dialect"
	"github.com/satishbabariya/sqlchain/query/mapping"
)

// timeLayouts are tried in order when a driver returns timestamps as text
var timeLayouts = []string{
	dialect.SQLiteTimeLayout,
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// assign stores a raw driver value into dst
func assign(dst reflect.Value, raw any, col *mapping.Column, p dialect.Profile) error {
	if raw == nil {
		dst.Set(reflect.Zero(dst.Type()))
		return nil
	}

	if dst.Kind() == reflect.Ptr {
		v := reflect.New(dst.Type().Elem())
		if err := assign(v.Elem(), raw, col, p); err != nil {
			return err
		}
		dst.Set(v)
		return nil
	}

	if ok, err := col.DecodeEnum(raw, dst); ok || err != nil {
		return err
	}

	if dst.CanAddr() {
		if sc, ok := dst.Addr().Interface().(sql.Scanner); ok {
			return sc.Scan(raw)
		}
	}

	switch dst.Type() {
	case timeType:
		t, err := toTime(raw, p)
		if err != nil {
			return err
		}
		dst.Set(reflect.ValueOf(t))
		return nil
	case durationType:
		d, err := cast.ToDurationE(raw)
		if err != nil {
			return err
		}
		dst.SetInt(int64(d))
		return nil
	}

	switch dst.Kind() {
	case reflect.Interface:
		if b, ok := raw.([]byte); ok {
			raw = append([]byte{}, b...)
		}
		rv := reflect.ValueOf(raw)
		if !rv.Type().AssignableTo(dst.Type()) {
			return fmt.Errorf("cannot assign %T to %s", raw, dst.Type())
		}
		dst.Set(rv)
		return nil
	case reflect.Slice:
		if dst.Type().Elem().Kind() == reflect.Uint8 {
			return assignBytes(dst, raw)
		}
	case reflect.Array:
		if b, ok := raw.([]byte); ok && dst.Type().Elem().Kind() == reflect.Uint8 && len(b) == dst.Len() {
			reflect.Copy(dst, reflect.ValueOf(b))
			return nil
		}
	}

	if b, ok := raw.([]byte); ok {
		raw = string(b)
	}

	switch dst.Kind() {
	case reflect.Bool:
		v, err := cast.ToBoolE(raw)
		if err != nil {
			return err
		}
		dst.SetBool(v)
		return nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		v, err := cast.ToInt64E(raw)
		if err != nil {
			return err
		}
		if dst.OverflowInt(v) {
			return fmt.Errorf("value %d overflows %s", v, dst.Type())
		}
		dst.SetInt(v)
		return nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		v, err := cast.ToUint64E(raw)
		if err != nil {
			return err
		}
		if dst.OverflowUint(v) {
			return fmt.Errorf("value %d overflows %s", v, dst.Type())
		}
		dst.SetUint(v)
		return nil
	case reflect.Float32, reflect.Float64:
		v, err := cast.ToFloat64E(raw)
		if err != nil {
			return err
		}
		dst.SetFloat(v)
		return nil
	case reflect.String:
		v, err := cast.ToStringE(raw)
		if err != nil {
			return err
		}
		dst.SetString(v)
		return nil
	}

	rv := reflect.ValueOf(raw)
	switch {
	case rv.Type().AssignableTo(dst.Type()):
		dst.Set(rv)
	case rv.Type().ConvertibleTo(dst.Type()):
		dst.Set(rv.Convert(dst.Type()))
	default:
		return fmt.Errorf("cannot assign %T to %s", raw, dst.Type())
	}
	return nil
}

// assignBytes copies binary values; an empty value stays non-nil
func assignBytes(dst reflect.Value, raw any) error {
	var b []byte
	switch r := raw.(type) {
	case []byte:
		b = make([]byte, len(r))
		copy(b, r)
	case string:
		b = []byte(r)
	default:
		return fmt.Errorf("cannot assign %T to %s", raw, dst.Type())
	}
	dst.Set(reflect.ValueOf(b).Convert(dst.Type()))
	return nil
}

func toTime(raw any, p dialect.Profile) (time.Time, error) {
	switch r := raw.(type) {
	case time.Time:
		return r, nil
	case []byte:
		return parseTime(string(r), p)
	case string:
		return parseTime(r, p)
	case int64:
		return time.Unix(r, 0).UTC(), nil
	}
	return cast.ToTimeE(raw)
}

func parseTime(s string, p dialect.Profile) (time.Time, error) {
	if layout := p.TimeLayout(); layout != "" {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return cast.ToTimeE(s)
}
