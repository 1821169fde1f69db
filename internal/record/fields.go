package record

import (
	"encoding/json"
	"fmt"
	"reflect"
)

// Path addresses a value in a nested field map: a single top-level key, or a
// sequence of keys descending into nested maps
type Path []string

// Key builds a Path from its parts
func Key(parts ...string) Path {
	return Path(parts)
}

func (p Path) String() string {
	return fmt.Sprint([]string(p))
}

// FindFirstField tries each path in order and returns the first value that exists
// and is not empty, as a string. It returns "" when no path yields a value.
func FindFirstField(fields map[string]any, paths ...Path) string {
	for _, p := range paths {
		v, ok := Lookup(fields, p)
		if ok && !isEmpty(v) {
			return stringify(v)
		}
	}
	return ""
}

// Lookup walks p through nested maps
func Lookup(fields map[string]any, p Path) (any, bool) {
	if len(p) == 0 {
		return nil, false
	}
	var cur any = fields
	for _, part := range p {
		switch m := cur.(type) {
		case map[string]any:
			v, ok := m[part]
			if !ok {
				return nil, false
			}
			cur = v
		case map[string]string:
			v, ok := m[part]
			if !ok {
				return nil, false
			}
			cur = v
		default:
			return nil, false
		}
	}
	return cur, true
}

func isEmpty(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return x == ""
	case bool:
		return !x
	case json.Number:
		f, err := x.Float64()
		return x == "" || (err == nil && f == 0)
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map, reflect.Slice, reflect.Array:
		return rv.Len() == 0
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return rv.IsZero()
	}
	return false
}

func stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	}
	return fmt.Sprint(v)
}
