// SPDX-License-Identifier: MIT

package agent

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
)

// Redacted replaces the value of any sensitive key in sanitized state.
const Redacted = "***REDACTED***"

// maxDepth caps recursion into nested state. Anything deeper, including
// self-referential structures, is coerced to its string form.
const maxDepth = 16

var sensitiveMarkers = []string{"password", "token"}

// Sanitize returns a deep copy of state with the value of every sensitive
// key replaced by the redaction marker. A key is sensitive when its
// lower-cased name contains "password" or "token", at any nesting level.
// Values with no JSON representation are coerced to a string instead of
// failing. The result shares no memory with the input.
func Sanitize(state map[string]any) map[string]any {
	return cloneMap(state, 0, true)
}

func sensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, marker := range sensitiveMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

func cloneMap(m map[string]any, depth int, redact bool) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if redact && sensitiveKey(k) {
			out[k] = Redacted
			continue
		}
		out[k] = cloneValue(v, depth+1, redact)
	}
	return out
}

// truncated stands in for containers nested beyond maxDepth. Printing them
// instead would recurse forever on self-referential structures.
const truncated = "<truncated>"

func cloneValue(v any, depth int, redact bool) any {
	if depth > maxDepth {
		switch reflect.ValueOf(v).Kind() {
		case reflect.Map, reflect.Slice, reflect.Array, reflect.Pointer, reflect.Interface:
			return truncated
		default:
			return fmt.Sprint(v)
		}
	}

	switch val := v.(type) {
	case nil:
		return nil
	case map[string]any:
		return cloneMap(val, depth, redact)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cloneValue(item, depth+1, redact)
		}
		return out
	case string, bool,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64, json.Number:
		return val
	}

	// Typed containers (map[string]string, []int, structs...) still need
	// the redaction and copy guarantees, so walk them reflectively.
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return stringify(v)
		}
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			key := iter.Key().String()
			if redact && sensitiveKey(key) {
				out[key] = Redacted
				continue
			}
			out[key] = cloneValue(iter.Value().Interface(), depth+1, redact)
		}
		return out
	case reflect.Slice, reflect.Array:
		out := make([]any, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			out[i] = cloneValue(rv.Index(i).Interface(), depth+1, redact)
		}
		return out
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return nil
		}
		return cloneValue(rv.Elem().Interface(), depth+1, redact)
	default:
		return stringify(v)
	}
}

// stringify keeps JSON-representable scalars as-is and falls back to the
// fmt form for everything else (channels, funcs, errors...).
func stringify(v any) any {
	if _, err := json.Marshal(v); err == nil {
		return v
	}
	return fmt.Sprint(v)
}
