// Package jsonpath reads values out of documents decoded by encoding/json
// without binding callers to a concrete schema.
package jsonpath

// Get follows path as a chain of object lookups starting at doc.
// It reports false when a key is missing or a step is not an object.
// A JSON null found at the last key is present: Get returns (nil, true).
func Get(doc any, path ...string) (any, bool) {
	cur := doc
	for _, key := range path {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = obj[key]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// String returns the string at path, or def when it is absent or not a string.
func String(doc any, def string, path ...string) string {
	v, ok := Get(doc, path...)
	if !ok {
		return def
	}
	s, ok := v.(string)
	if !ok {
		return def
	}
	return s
}

// Array returns the array at path. Absent or non-array values yield an
// empty slice.
func Array(doc any, path ...string) []any {
	v, ok := Get(doc, path...)
	if !ok {
		return []any{}
	}
	arr, ok := v.([]any)
	if !ok {
		return []any{}
	}
	return arr
}

// Number returns the number at path, or def when it is absent or not a number.
func Number(doc any, def float64, path ...string) float64 {
	v, ok := Get(doc, path...)
	if !ok {
		return def
	}
	f, ok := v.(float64)
	if !ok {
		return def
	}
	return f
}

// IsNull reports whether path is absent or holds JSON null.
func IsNull(doc any, path ...string) bool {
	v, ok := Get(doc, path...)
	return !ok || v == nil
}
