// Package extract flattens structured tool and network responses into text.
//
// Flatten is total: every value maps to some string, and the same value
// always maps to the same string, so the result can be used as a cache key.
package extract

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/alpkeskin/gotoon"
)

// PriorityKeys are the well-known response fields emitted before the rest
// of a mapping, in this order.
var PriorityKeys = []string{"content", "text", "body", "result", "summary"}

// Flatten walks resp depth-first and joins its textual fragments with newlines.
//
// String values under PriorityKeys are hoisted to the front of a mapping and
// are not emitted a second time by the generic pass.
func Flatten(resp any) string {
	resp = decodeRaw(resp)
	switch v := resp.(type) {
	case nil:
		return ""
	case string:
		return v
	case map[string]any:
		return join(flattenMap(v))
	case []any:
		return join(flattenList(v))
	}

	rv := reflect.ValueOf(resp)
	switch rv.Kind() {
	case reflect.Map:
		if m, ok := stringKeyed(rv); ok {
			return join(flattenMap(m))
		}
	case reflect.Slice, reflect.Array:
		return join(flattenList(toList(rv)))
	}
	return Stringify(resp)
}

func flattenMap(m map[string]any) []string {
	if len(m) == 0 {
		return nil
	}
	parts := make([]string, 0, len(m)+len(PriorityKeys))
	hoisted := make(map[string]bool, len(PriorityKeys))
	for _, k := range PriorityKeys {
		if s, ok := m[k].(string); ok {
			parts = append(parts, s)
			hoisted[k] = true
		}
	}

	for _, k := range sortedKeys(m) {
		if hoisted[k] {
			continue
		}
		switch v := decodeRaw(m[k]).(type) {
		case string:
			parts = append(parts, v)
		case []any:
			for _, item := range v {
				parts = append(parts, Stringify(item))
			}
		default:
			rv := reflect.ValueOf(v)
			if v != nil && (rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array) {
				for _, item := range toList(rv) {
					parts = append(parts, Stringify(item))
				}
				continue
			}
			parts = append(parts, Stringify(v))
		}
	}
	return parts
}

func flattenList(items []any) []string {
	parts := make([]string, 0, len(items))
	for _, item := range items {
		item = decodeRaw(item)
		if m, ok := item.(map[string]any); ok {
			parts = append(parts, join(flattenMap(m)))
			continue
		}
		if item != nil {
			if m, ok := stringKeyed(reflect.ValueOf(item)); ok {
				parts = append(parts, join(flattenMap(m)))
				continue
			}
		}
		parts = append(parts, Stringify(item))
	}
	return parts
}

// Stringify renders a single value as text. Nested maps, slices and structs
// are encoded as TOON with sorted keys; scalars use their canonical form.
func Stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		return x
	case []byte:
		return string(x)
	case bool:
		return strconv.FormatBool(x)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case json.Number:
		return x.String()
	case error, fmt.Stringer:
		// fmt prints nil receivers as <nil> and contains panicking methods.
		return fmt.Sprint(x)
	}

	switch reflect.ValueOf(v).Kind() {
	case reflect.Map, reflect.Slice, reflect.Array, reflect.Struct, reflect.Pointer:
		if out, ok := encodeTOON(v); ok {
			return out
		}
	}
	return fmt.Sprint(v)
}

func encodeTOON(v any) (out string, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			out, ok = "", false
		}
	}()
	out, err := gotoon.Encode(v, gotoon.WithSortedKeys(true))
	return out, err == nil
}

// decodeRaw turns JSON held in bytes into a generic value. Bytes that are
// not valid JSON are returned as a string.
func decodeRaw(v any) any {
	var raw []byte
	switch x := v.(type) {
	case json.RawMessage:
		raw = x
	case []byte:
		raw = x
	default:
		return v
	}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return ""
	}
	if !json.Valid(trimmed) {
		return string(raw)
	}
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return string(raw)
	}
	return out
}

func stringKeyed(rv reflect.Value) (map[string]any, bool) {
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil, false
	}
	out := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		out[iter.Key().String()] = iter.Value().Interface()
	}
	return out, true
}

func toList(rv reflect.Value) []any {
	if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8 {
		return []any{string(rv.Bytes())}
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func join(parts []string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if strings.TrimSpace(p) == "" {
			continue
		}
		kept = append(kept, p)
	}
	return strings.Join(kept, "\n")
}
