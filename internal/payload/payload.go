// Package payload reads loosely shaped JSON from external providers. Each
// accessor takes an ordered list of candidate keys; the first key present with
// a usable value wins, otherwise the documented default applies.
package payload

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Object is a decoded JSON object.
type Object map[string]any

// Decode parses data into an Object, keeping numbers as json.Number.
func Decode(data []byte) (Object, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var obj Object
	if err := dec.Decode(&obj); err != nil {
		return nil, fmt.Errorf("payload: decode: %w", err)
	}
	if obj == nil {
		return Object{}, nil
	}
	return obj, nil
}

// Lookup returns the value of the first candidate key that is present and not null.
func (o Object) Lookup(keys ...string) (any, bool) {
	for _, key := range keys {
		if v, ok := o[key]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

// String returns the first non-empty string (or number rendered as text) among keys,
// or def when none is found.
func (o Object) String(def string, keys ...string) string {
	for _, key := range keys {
		switch v := o[key].(type) {
		case string:
			if strings.TrimSpace(v) != "" {
				return v
			}
		case json.Number:
			return v.String()
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return def
}

// Int returns the first integer-valued key, accepting numbers and numeric strings.
func (o Object) Int(def int64, keys ...string) int64 {
	for _, key := range keys {
		switch v := o[key].(type) {
		case json.Number:
			if n, err := v.Int64(); err == nil {
				return n
			}
		case float64:
			return int64(v)
		case string:
			if n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
				return n
			}
		}
	}
	return def
}

// Object returns the first nested object among keys.
func (o Object) Object(keys ...string) Object {
	for _, key := range keys {
		if v, ok := o[key].(map[string]any); ok {
			return Object(v)
		}
	}
	return nil
}

// Objects returns the first array among keys, keeping only its object elements.
func (o Object) Objects(keys ...string) []Object {
	for _, key := range keys {
		arr, ok := o[key].([]any)
		if !ok {
			continue
		}
		out := make([]Object, 0, len(arr))
		for _, item := range arr {
			if m, ok := item.(map[string]any); ok {
				out = append(out, Object(m))
			}
		}
		return out
	}
	return nil
}

// Strings returns the first array among keys, keeping only its non-empty string elements.
func (o Object) Strings(keys ...string) []string {
	for _, key := range keys {
		arr, ok := o[key].([]any)
		if !ok {
			continue
		}
		out := make([]string, 0, len(arr))
		for _, item := range arr {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
