package agent

import (
	"reflect"
	"strings"
)

// Backend payloads arrive either as decoded JSON (map[string]any trees) or as
// SDK response structs. The helpers below give the normalizer one way to read
// both: fieldOf resolves a wire-format field name against maps and structs,
// listOf flattens both []any and typed slices, and coerceText reduces nested
// text payloads to their string fragments.

// fieldOf returns the named field of a payload node. Struct fields match by
// json tag first, then by field name with case and underscores ignored.
func fieldOf(node any, name string) (any, bool) {
	if node == nil {
		return nil, false
	}
	if m, ok := node.(map[string]any); ok {
		v, ok := m[name]
		return v, ok
	}

	rv := reflect.ValueOf(node)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil, false
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, false
		}
		mv := rv.MapIndex(reflect.ValueOf(name))
		if !mv.IsValid() {
			return nil, false
		}
		return mv.Interface(), true
	case reflect.Struct:
		var fallback reflect.Value
		t := rv.Type()
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if !f.IsExported() {
				continue
			}
			tag := f.Tag.Get("json")
			if comma := strings.IndexByte(tag, ','); comma >= 0 {
				tag = tag[:comma]
			}
			if tag == name {
				return rv.Field(i).Interface(), true
			}
			if !fallback.IsValid() && looseNameMatch(f.Name, name) {
				fallback = rv.Field(i)
			}
		}
		if fallback.IsValid() {
			return fallback.Interface(), true
		}
	}
	return nil, false
}

func looseNameMatch(fieldName, wireName string) bool {
	return strings.EqualFold(fieldName, strings.ReplaceAll(wireName, "_", ""))
}

// stringField resolves a field and returns it only when it is a string.
func stringField(node any, name string) string {
	v, ok := fieldOf(node, name)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// listOf returns the node's elements when it is a slice or array. Byte slices
// and strings are scalars, not item lists.
func listOf(node any) ([]any, bool) {
	if node == nil {
		return nil, false
	}
	if items, ok := node.([]any); ok {
		return items, true
	}

	rv := reflect.ValueOf(node)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil, false
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	if rv.Type().Elem().Kind() == reflect.Uint8 {
		return nil, false
	}
	items := make([]any, rv.Len())
	for i := range items {
		items[i] = rv.Index(i).Interface()
	}
	return items, true
}

// listField resolves a field and flattens it into a list.
func listField(node any, name string) ([]any, bool) {
	v, ok := fieldOf(node, name)
	if !ok {
		return nil, false
	}
	return listOf(v)
}

// coerceText reduces an arbitrarily nested text payload to its string
// fragments: strings pass through, lists recurse per element, and any node
// carrying a text, value, or content field recurses into the first of those
// that yields text. Unrecognized node kinds contribute nothing, so coercion
// is total.
func coerceText(node any) []string {
	if node == nil {
		return nil
	}
	if s, ok := node.(string); ok {
		if s == "" {
			return nil
		}
		return []string{s}
	}
	if items, ok := listOf(node); ok {
		var frags []string
		for _, item := range items {
			frags = append(frags, coerceText(item)...)
		}
		return frags
	}
	for _, key := range []string{"text", "value", "content"} {
		if v, ok := fieldOf(node, key); ok {
			if frags := coerceText(v); len(frags) > 0 {
				return frags
			}
		}
	}
	return nil
}
