package mapping

import (
	"fmt"
	"reflect"
)

// Encode converts a Go value bound to this column into its stored form.
// Text enums become their names, integer enums become int64.
func (c *Column) Encode(v any) (any, error) {
	if v == nil || c.Enum == EnumNone {
		return v, nil
	}
	return EncodeEnum(v, c.Enum)
}

// EncodeEnum converts an enum value into its stored form
func EncodeEnum(v any, kind EnumKind) (any, error) {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil, nil
		}
		rv = rv.Elem()
	}

	switch kind {
	case EnumText:
		if rv.Kind() == reflect.String {
			return rv.String(), nil
		}
		if !isInt(rv.Kind()) {
			return nil, fmt.Errorf("text enum value %v has kind %s", v, rv.Kind())
		}
		named, ok := rv.Interface().(TextEnum)
		if !ok {
			return nil, fmt.Errorf("type %s does not implement EnumNames", rv.Type())
		}
		names := named.EnumNames()
		i := intValue(rv)
		if i < 0 || i >= int64(len(names)) {
			return nil, fmt.Errorf("enum value %d of %s has no name", i, rv.Type())
		}
		return names[i], nil
	case EnumInt:
		if isInt(rv.Kind()) {
			return intValue(rv), nil
		}
		return nil, fmt.Errorf("integer enum value %v has kind %s", v, rv.Kind())
	default:
		return v, nil
	}
}

// DecodeEnum sets dst from a stored enum value. It reports false when the
// column is not an enum so the caller can fall back to plain conversion.
func (c *Column) DecodeEnum(raw any, dst reflect.Value) (bool, error) {
	if c == nil || c.Enum != EnumText || raw == nil {
		return false, nil
	}

	var name string
	switch r := raw.(type) {
	case string:
		name = r
	case []byte:
		name = string(r)
	default:
		return false, nil
	}

	target := dst
	if target.Kind() == reflect.Ptr {
		target = reflect.New(dst.Type().Elem()).Elem()
	}

	switch {
	case target.Kind() == reflect.String:
		target.SetString(name)
	case isInt(target.Kind()):
		named, ok := target.Interface().(TextEnum)
		if !ok {
			return true, fmt.Errorf("type %s does not implement EnumNames", target.Type())
		}
		found := false
		for i, n := range named.EnumNames() {
			if n == name {
				setInt(target, int64(i))
				found = true
				break
			}
		}
		if !found {
			return true, fmt.Errorf("unknown %s value %q", target.Type(), name)
		}
	default:
		return false, nil
	}

	if dst.Kind() == reflect.Ptr {
		dst.Set(target.Addr())
	}
	return true, nil
}

func isInt(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	}
	return false
}

func intValue(v reflect.Value) int64 {
	switch v.Kind() {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int64(v.Uint())
	default:
		return v.Int()
	}
}

func setInt(v reflect.Value, i int64) {
	switch v.Kind() {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		v.SetUint(uint64(i))
	default:
		v.SetInt(i)
	}
}
