package merge

import (
	"fmt"
	"reflect"

	"enrichment-engine/internal/common/errors"
)

// Kind constrains the values a declared field may hold. Kind mismatches at
// merge time are strategy errors, never silent skips.
type Kind int

const (
	// KindAny accepts any value
	KindAny Kind = iota
	// KindString accepts string values
	KindString
	// KindNumber accepts integer and floating point values
	KindNumber
	// KindBool accepts boolean values
	KindBool
	// KindList accepts slice and array values
	KindList
	// KindMap accepts map values
	KindMap
)

// String returns the string representation of a kind
func (k Kind) String() string {
	switch k {
	case KindAny:
		return "any"
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	default:
		return "unknown"
	}
}

// Field declares one named, typed slot of a target shape.
type Field struct {
	Name string
	Kind Kind
}

// Shape is the ordered field declaration of a target object. Field order is
// fixed at construction and drives the merge engine's enumeration order.
type Shape struct {
	fields []Field
}

// NewShape builds a shape from the given fields. Duplicate field names are a
// configuration error.
func NewShape(fields ...Field) (Shape, error) {
	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		if f.Name == "" {
			return Shape{}, errors.ConfigError("shape field name must not be empty")
		}
		if seen[f.Name] {
			return Shape{}, errors.ConfigError("duplicate shape field: " + f.Name)
		}
		seen[f.Name] = true
	}
	return Shape{fields: fields}, nil
}

// MustShape builds a shape and panics on invalid declarations. Intended for
// static shape tables assembled at startup.
func MustShape(fields ...Field) Shape {
	shape, err := NewShape(fields...)
	if err != nil {
		panic(err)
	}
	return shape
}

// Fields returns the declared fields in order. The returned slice is a copy.
func (s Shape) Fields() []Field {
	out := make([]Field, len(s.fields))
	copy(out, s.fields)
	return out
}

// Len returns the number of declared fields
func (s Shape) Len() int {
	return len(s.fields)
}

// Has reports whether a field with the given name is declared
func (s Shape) Has(name string) bool {
	for _, f := range s.fields {
		if f.Name == name {
			return true
		}
	}
	return false
}

// checkKind validates a value against a declared kind. Nil values always
// pass; absence is a merge concern, not a type concern.
func checkKind(field string, v interface{}, kind Kind) error {
	if v == nil || kind == KindAny {
		return nil
	}

	rv := reflect.ValueOf(v)
	ok := false
	switch kind {
	case KindString:
		ok = rv.Kind() == reflect.String
	case KindBool:
		ok = rv.Kind() == reflect.Bool
	case KindNumber:
		switch rv.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
			reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
			reflect.Float32, reflect.Float64:
			ok = true
		}
	case KindList:
		ok = rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array
	case KindMap:
		ok = rv.Kind() == reflect.Map
	}

	if !ok {
		return errors.StrategyError(fmt.Sprintf("field %s: value of type %T does not satisfy kind %s", field, v, kind))
	}
	return nil
}

// IsEmpty reports whether a value counts as absent for merge purposes.
// Nil, empty strings and zero-length collections are empty; numeric zero
// and false are present values.
func IsEmpty(v interface{}) bool {
	if v == nil {
		return true
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String, reflect.Slice, reflect.Array, reflect.Map:
		return rv.Len() == 0
	}
	return false
}
