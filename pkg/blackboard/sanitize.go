package blackboard

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
)

// Sanitize converts v into a JSON compatible value built only from
// map[string]any, []any, strings, bools, numbers and nil. Anything that cannot be
// represented is rendered with %v. It never panics.
func Sanitize(v any) (out any) {
	defer func() {
		if r := recover(); r != nil {
			out = fmt.Sprintf("%v", v)
		}
	}()
	return sanitize(v)
}

func sanitize(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case string, bool,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64:
		return val
	case float32:
		return finite(float64(val), val)
	case float64:
		return finite(val, val)
	case json.Number:
		return val.String()
	case []byte:
		return string(val)
	case error:
		return val.Error()
	case map[string]any:
		res := make(map[string]any, len(val))
		for k, item := range val {
			res[k] = sanitize(item)
		}
		return res
	case []any:
		res := make([]any, len(val))
		for i, item := range val {
			res[i] = sanitize(item)
		}
		return res
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return nil
		}
		return sanitize(rv.Elem().Interface())
	case reflect.Map:
		res := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			res[fmt.Sprint(iter.Key().Interface())] = sanitize(iter.Value().Interface())
		}
		return res
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return []any{}
		}
		res := make([]any, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			res[i] = sanitize(rv.Index(i).Interface())
		}
		return res
	case reflect.String:
		return rv.String()
	case reflect.Bool:
		return rv.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return rv.Uint()
	case reflect.Float32, reflect.Float64:
		return finite(rv.Float(), rv.Float())
	case reflect.Struct:
		return viaJSON(v)
	}
	return fmt.Sprintf("%v", v)
}

// finite keeps f as v unless it is NaN or infinite, which JSON cannot carry.
func finite(f float64, v any) any {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	return v
}

// viaJSON round-trips structs so their json tags decide the document shape.
func viaJSON(v any) any {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	var res any
	if err := json.Unmarshal(b, &res); err != nil {
		return fmt.Sprintf("%v", v)
	}
	return res
}

// deepCopy copies a sanitized value. Only containers need copying.
func deepCopy(v any) any {
	switch val := v.(type) {
	case map[string]any:
		res := make(map[string]any, len(val))
		for k, item := range val {
			res[k] = deepCopy(item)
		}
		return res
	case []any:
		res := make([]any, len(val))
		for i, item := range val {
			res[i] = deepCopy(item)
		}
		return res
	default:
		return val
	}
}

// Decode maps a stored document onto a typed value through its json tags.
func Decode(doc any, out any) error {
	b, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	if err := json.Unmarshal(b, out); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	return nil
}
