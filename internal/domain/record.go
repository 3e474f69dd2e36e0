package domain

import (
	"encoding/json"
	"strconv"
	"strings"
)

// RawRecord is one upstream announcement as decoded from JSON or XML. Fields
// vary by presence and spelling, so it stays an untyped map.
type RawRecord map[string]any

// Value returns the raw field, nil when absent.
func (r RawRecord) Value(key string) any {
	return r[key]
}

// String returns a scalar field rendered as a string. Maps, slices and nil
// report false.
func (r RawRecord) String(key string) (string, bool) {
	return ScalarString(r[key])
}

// OptString is String as a pointer, nil when the field is missing.
func (r RawRecord) OptString(key string) *string {
	s, ok := r.String(key)
	if !ok {
		return nil
	}
	return &s
}

func ScalarString(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		return x, true
	case json.Number:
		return x.String(), true
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true
	case int:
		return strconv.Itoa(x), true
	case int64:
		return strconv.FormatInt(x, 10), true
	case bool:
		return strconv.FormatBool(x), true
	default:
		return "", false
	}
}

// NonBlank reports whether s has any non-whitespace content.
func NonBlank(s string) bool {
	return strings.TrimSpace(s) != ""
}
