package domain

import (
	"bytes"
	"encoding/json"
)

// Optional is a tri-state field for partial updates: it distinguishes
// "field omitted" (Unset) from "field set to null" (Null) from "field set
// to a value". Override columns use Null to mean "inherit the default".
type Optional[T any] struct {
	set   bool
	null  bool
	value T
}

// NewOptional returns an Optional holding value.
func NewOptional[T any](value T) Optional[T] {
	return Optional[T]{set: true, value: value}
}

// NullOptional returns an Optional explicitly set to null.
func NullOptional[T any]() Optional[T] {
	return Optional[T]{set: true, null: true}
}

// IsSet reports whether the field appeared in the payload at all.
func (o Optional[T]) IsSet() bool { return o.set }

// IsNull reports whether the field was explicitly set to null.
func (o Optional[T]) IsNull() bool { return o.set && o.null }

// Value returns the held value and whether a non-null value is present.
func (o Optional[T]) Value() (T, bool) {
	if !o.set || o.null {
		var zero T
		return zero, false
	}
	return o.value, true
}

// Ptr returns the held value as a pointer, nil when unset or null.
func (o Optional[T]) Ptr() *T {
	if v, ok := o.Value(); ok {
		return &v
	}
	return nil
}

func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.null = true
		var zero T
		o.value = zero
		return nil
	}
	o.null = false
	return json.Unmarshal(data, &o.value)
}

func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if !o.set || o.null {
		return []byte("null"), nil
	}
	return json.Marshal(o.value)
}
