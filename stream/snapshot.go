package stream

import (
	"github.com/tidwall/gjson"
)

// RawSnapshot is the agent's full state as reported after one internal
// step. It is a raw JSON document whose fields may be absent, wrongly
// typed, or malformed; it is never trusted and never accessed directly —
// every read goes through the total accessors below, which degrade to zero
// values instead of faulting.
type RawSnapshot []byte

// field reads one top-level field. A missing path yields a Result whose
// Exists() is false and whose typed getters return zero values.
func (s RawSnapshot) field(path string) gjson.Result {
	return gjson.GetBytes(s, path)
}

// stringOr returns the string value at path, or def when the field is
// absent or not a string.
func (s RawSnapshot) stringOr(path, def string) string {
	v := s.field(path)
	if v.Type != gjson.String {
		return def
	}
	return v.String()
}

// list returns the array at path, or nil when the field is absent or not
// an array.
func (s RawSnapshot) list(path string) []gjson.Result {
	v := s.field(path)
	if !v.IsArray() {
		return nil
	}
	return v.Array()
}

// strField reads a string member of an arbitrary result, with default.
func strField(item gjson.Result, path, def string) string {
	v := item.Get(path)
	if v.Type != gjson.String {
		return def
	}
	return v.String()
}
