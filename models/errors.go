package models

import (
	"errors"
	"fmt"
	"strings"
)

var errNotString = errors.New("expected a JSON string")

// NumericParseError is returned when text is not a valid decimal literal.
type NumericParseError struct {
	Text string
	Err  error
}

func (e *NumericParseError) Error() string {
	return fmt.Sprintf("invalid numeric value %q: %v", e.Text, e.Err)
}

func (e *NumericParseError) Unwrap() error { return e.Err }

// CurrencyParseError is returned for a code outside the ISO 4217 table.
type CurrencyParseError struct {
	Code string
}

func (e *CurrencyParseError) Error() string {
	return fmt.Sprintf("invalid currency %q", e.Code)
}

// CryptocurrencyParseError is returned for a code outside the supported
// cryptocurrency table.
type CryptocurrencyParseError struct {
	Code string
}

func (e *CryptocurrencyParseError) Error() string {
	return fmt.Sprintf("invalid cryptocurrency %q", e.Code)
}

// PairParseError reports which half of a "CRYPTO/FIAT" pair was missing or
// invalid.
type PairParseError struct {
	Text   string
	Reason string
	Err    error
}

func (e *PairParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid currency pair %q: %s: %v", e.Text, e.Reason, e.Err)
	}
	return fmt.Sprintf("invalid currency pair %q: %s", e.Text, e.Reason)
}

func (e *PairParseError) Unwrap() error { return e.Err }

// SchemaViolationError is returned when an object carries an unknown field
// where the schema is strict, misses a required field, or has the wrong
// literal tag.
type SchemaViolationError struct {
	Type   string
	Field  string
	Reason string
	Err    error
}

func (e *SchemaViolationError) Error() string {
	var b strings.Builder
	b.WriteString(e.Type)
	if e.Field != "" {
		b.WriteString(".")
		b.WriteString(e.Field)
	}
	b.WriteString(": ")
	b.WriteString(e.Reason)
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *SchemaViolationError) Unwrap() error { return e.Err }

// ShapeMismatchError is returned when a positional array has the wrong arity
// or an element of the wrong type.
type ShapeMismatchError struct {
	Type  string
	Index int // -1 when the array itself is wrong
	Want  string
	Got   string
	Err   error
}

func (e *ShapeMismatchError) Error() string {
	if e.Index >= 0 {
		if e.Err != nil {
			return fmt.Sprintf("%s[%d]: %v", e.Type, e.Index, e.Err)
		}
		return fmt.Sprintf("%s[%d]: want %s, got %s", e.Type, e.Index, e.Want, e.Got)
	}
	return fmt.Sprintf("%s: want %s, got %s", e.Type, e.Want, e.Got)
}

func (e *ShapeMismatchError) Unwrap() error { return e.Err }

// ClassificationError is returned when no known variant matches a message.
// Attempts holds the per-candidate failure in the order candidates were tried.
type ClassificationError struct {
	Kind     string
	Payload  string
	Attempts []error
}

func (e *ClassificationError) Error() string {
	payload := e.Payload
	if len(payload) > 256 {
		payload = payload[:256] + "..."
	}
	return fmt.Sprintf("unrecognized %s after %d attempts: %s", e.Kind, len(e.Attempts), payload)
}

// Unwrap exposes the individual attempt failures to errors.As.
func (e *ClassificationError) Unwrap() []error { return e.Attempts }

// EmptyResultError is returned when a REST result is empty after filtering.
type EmptyResultError struct {
	What string
}

func (e *EmptyResultError) Error() string {
	return fmt.Sprintf("empty %s result", e.What)
}

// APIError carries the error strings of a REST envelope.
type APIError struct {
	Messages []string
}

func (e *APIError) Error() string {
	return "kraken api error: " + strings.Join(e.Messages, "; ")
}
