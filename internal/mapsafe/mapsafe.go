// Package mapsafe reads typed values out of loosely typed parameter maps.
// Parameters reach the backends from YAML (int, float64), JSON (float64,
// json.Number) and query strings (string), so numeric and boolean lookups
// accept any of those shapes.
package mapsafe

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Get retrieves a typed value from a map[string]any.
// If the key is missing or the value cannot be converted, it returns the default value.
func Get[T any](m map[string]any, key string, defaultValue T) T {
	val, ok := m[key]
	if !ok || val == nil {
		return defaultValue
	}

	var (
		out     any
		matched bool
	)
	switch any(defaultValue).(type) {
	case int:
		var f float64
		if f, matched = number(val); matched && f == float64(int(f)) {
			out = int(f)
		} else {
			matched = false
		}
	case float64:
		out, matched = number(val)
	case string:
		out, matched = val.(string)
	case bool:
		out, matched = boolean(val)
	default:
		out, matched = val.(T)
	}
	if !matched {
		return defaultValue
	}

	return out.(T)
}

func number(v any) (float64, bool) {
	switch x := v.(type) {
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint64:
		return float64(x), true
	case float32:
		return float64(x), true
	case float64:
		return x, true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil
	}
	return 0, false
}

func boolean(v any) (bool, bool) {
	switch x := v.(type) {
	case bool:
		return x, true
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(x))
		return b, err == nil
	}
	return false, false
}
