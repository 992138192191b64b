// Package wire holds the JSON helpers shared by the Kraken message codecs:
// positional array decoding and strict object decoding. Every helper is pure
// and reports failures with the typed errors of the models package.
package wire

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"krakenflow/models"
)

var null = []byte("null")

// Kind names the JSON type of a raw value for error messages.
func Kind(data []byte) string {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return "empty"
	}
	switch data[0] {
	case '{':
		return "object"
	case '[':
		return "array"
	case '"':
		return "string"
	case 't', 'f':
		return "bool"
	case 'n':
		return "null"
	default:
		return "number"
	}
}

// Array splits a JSON array into its raw elements.
func Array(typ string, data []byte) ([]json.RawMessage, error) {
	if k := Kind(data); k != "array" {
		return nil, &models.ShapeMismatchError{Type: typ, Index: -1, Want: "array", Got: k}
	}
	var elems []json.RawMessage
	if err := json.Unmarshal(data, &elems); err != nil {
		return nil, &models.ShapeMismatchError{Type: typ, Index: -1, Want: "array", Got: "malformed", Err: err}
	}
	return elems, nil
}

// Tuple decodes a fixed-arity positional array, element i into dst[i].
// Null elements are rejected.
func Tuple(typ string, data []byte, dst ...any) error {
	elems, err := Array(typ, data)
	if err != nil {
		return err
	}
	if len(elems) != len(dst) {
		return &models.ShapeMismatchError{
			Type:  typ,
			Index: -1,
			Want:  fmt.Sprintf("%d elements", len(dst)),
			Got:   fmt.Sprintf("%d elements", len(elems)),
		}
	}
	return Elements(typ, elems, dst...)
}

// Elements decodes already split elements into dst. len(dst) must not exceed
// len(elems).
func Elements(typ string, elems []json.RawMessage, dst ...any) error {
	for i, d := range dst {
		if bytes.Equal(bytes.TrimSpace(elems[i]), null) {
			return &models.ShapeMismatchError{Type: typ, Index: i, Want: "value", Got: "null"}
		}
		if err := json.Unmarshal(elems[i], d); err != nil {
			return &models.ShapeMismatchError{Type: typ, Index: i, Err: err}
		}
	}
	return nil
}

// Object splits a JSON object into its raw members.
func Object(typ string, data []byte) (map[string]json.RawMessage, error) {
	if k := Kind(data); k != "object" {
		return nil, &models.ShapeMismatchError{Type: typ, Index: -1, Want: "object", Got: k}
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, &models.ShapeMismatchError{Type: typ, Index: -1, Want: "object", Got: "malformed", Err: err}
	}
	return m, nil
}

// RequireKeys fails when one of keys is absent or null in m.
func RequireKeys(typ string, m map[string]json.RawMessage, keys ...string) error {
	for _, k := range keys {
		v, ok := m[k]
		if !ok || bytes.Equal(bytes.TrimSpace(v), null) {
			return &models.SchemaViolationError{Type: typ, Field: k, Reason: "required field missing"}
		}
	}
	return nil
}

// Strict decodes an object into v rejecting unknown fields. v must point to a
// struct. Keys listed in required must be present and non-null.
func Strict(typ string, data []byte, v any, required ...string) error {
	m, err := Object(typ, data)
	if err != nil {
		return err
	}
	if err := RequireKeys(typ, m, required...); err != nil {
		return err
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return &models.SchemaViolationError{Type: typ, Reason: "decode failed", Err: err}
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return &models.SchemaViolationError{Type: typ, Reason: "trailing data after object"}
	}
	return nil
}

// Event checks that m carries "event": want.
func Event(typ string, m map[string]json.RawMessage, want string) error {
	raw, ok := m["event"]
	if !ok {
		return &models.SchemaViolationError{Type: typ, Field: "event", Reason: "required field missing"}
	}
	var got string
	if err := json.Unmarshal(raw, &got); err != nil {
		return &models.SchemaViolationError{Type: typ, Field: "event", Reason: "not a string", Err: err}
	}
	if got != want {
		return &models.SchemaViolationError{Type: typ, Field: "event", Reason: fmt.Sprintf("want %q, got %q", want, got)}
	}
	return nil
}

// StrictEvent is Strict preceded by an event literal check.
func StrictEvent(typ string, data []byte, event string, v any, required ...string) error {
	m, err := Object(typ, data)
	if err != nil {
		return err
	}
	if err := Event(typ, m, event); err != nil {
		return err
	}
	return Strict(typ, data, v, required...)
}
