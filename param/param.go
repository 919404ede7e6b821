// Package param provides parameter sets for pipeline modules. A set is
// built from a schema declared by the module and tracks which parameters
// were changed since the last time the owner consumed them.
package param

import (
	"errors"
	"fmt"
	"math"
)

// Kind is a parameter value type.
type Kind int

// Parameter kinds.
const (
	// Real is a scalar float64.
	Real Kind = iota
	// Int is a scalar int.
	Int
	// Enum is a string from a fixed set of choices.
	Enum
	// RealArray is a []float64.
	RealArray
	// StringArray is a []string.
	StringArray
	// Text is a free-form string, e.g. a file path.
	Text
)

func (k Kind) String() string {
	switch k {
	case Real:
		return "real"
	case Int:
		return "int"
	case Enum:
		return "enum"
	case RealArray:
		return "real array"
	case StringArray:
		return "string array"
	case Text:
		return "text"
	}
	return "unknown"
}

// Mutability declares what a change of the parameter means for the module.
type Mutability int

const (
	// Coefficient parameters are recomputed in place by the module and
	// running state is preserved.
	Coefficient Mutability = iota
	// Structural parameters change module-internal structure. The module
	// is reset and fully prepared again.
	Structural
	// Fixed parameters can only be changed before the stream starts.
	Fixed
)

func (m Mutability) String() string {
	switch m {
	case Coefficient:
		return "coefficient"
	case Structural:
		return "structural"
	case Fixed:
		return "fixed"
	}
	return "unknown"
}

// Spec declares a single parameter.
type Spec struct {
	Name       string
	Kind       Kind
	Default    interface{}
	Choices    []string // Enum only.
	Mutability Mutability
	Doc        string
}

// Schema is an ordered list of parameter declarations.
type Schema []Spec

// Lookup returns the spec with provided name.
func (s Schema) Lookup(name string) (Spec, bool) {
	for _, spec := range s {
		if spec.Name == name {
			return spec, true
		}
	}
	return Spec{}, false
}

var (
	// ErrUnknown is returned when parameter is not declared in schema.
	ErrUnknown = errors.New("unknown parameter")
	// ErrKind is returned when value has wrong type.
	ErrKind = errors.New("wrong value kind")
	// ErrChoice is returned when enum value is not one of choices.
	ErrChoice = errors.New("invalid choice")
	// ErrSchema is returned when schema declaration is invalid.
	ErrSchema = errors.New("invalid schema")
)

// Error describes a rejected parameter value.
type Error struct {
	Param string
	Got   interface{}
	Want  interface{}
	Err   error
}

func (e *Error) Error() string {
	if e.Want == nil {
		return fmt.Sprintf("parameter %q: %v: got %v", e.Param, e.Err, e.Got)
	}
	return fmt.Sprintf("parameter %q: %v: got %v, want %v", e.Param, e.Err, e.Got, e.Want)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// coerce converts value to the canonical representation of the kind.
// Arrays are always copied.
func coerce(spec Spec, v interface{}) (interface{}, error) {
	fail := func(err error, want interface{}) (interface{}, error) {
		return nil, &Error{Param: spec.Name, Got: v, Want: want, Err: err}
	}
	switch spec.Kind {
	case Real:
		if f, ok := toFloat(v); ok {
			return f, nil
		}
		return fail(ErrKind, spec.Kind)
	case Int:
		f, ok := toFloat(v)
		if !ok || f != math.Trunc(f) {
			return fail(ErrKind, spec.Kind)
		}
		return int(f), nil
	case Enum:
		s, ok := v.(string)
		if !ok {
			return fail(ErrKind, spec.Kind)
		}
		for _, c := range spec.Choices {
			if c == s {
				return s, nil
			}
		}
		return fail(ErrChoice, spec.Choices)
	case Text:
		s, ok := v.(string)
		if !ok {
			return fail(ErrKind, spec.Kind)
		}
		return s, nil
	case RealArray:
		switch vv := v.(type) {
		case []float64:
			return append([]float64{}, vv...), nil
		case []interface{}:
			out := make([]float64, len(vv))
			for i := range vv {
				f, ok := toFloat(vv[i])
				if !ok {
					return fail(ErrKind, spec.Kind)
				}
				out[i] = f
			}
			return out, nil
		}
		return fail(ErrKind, spec.Kind)
	case StringArray:
		switch vv := v.(type) {
		case []string:
			return append([]string{}, vv...), nil
		case []interface{}:
			out := make([]string, len(vv))
			for i := range vv {
				s, ok := vv[i].(string)
				if !ok {
					return fail(ErrKind, spec.Kind)
				}
				out[i] = s
			}
			return out, nil
		}
		return fail(ErrKind, spec.Kind)
	}
	return fail(ErrKind, spec.Kind)
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case uint32:
		return float64(n), true
	}
	return 0, false
}

// equal compares two canonical values of the same kind.
func equal(a, b interface{}) bool {
	switch av := a.(type) {
	case []float64:
		bv := b.([]float64)
		if len(av) != len(bv) {
			return false
		}
		for i := range av {
			if av[i] != bv[i] {
				return false
			}
		}
		return true
	case []string:
		bv := b.([]string)
		if len(av) != len(bv) {
			return false
		}
		for i := range av {
			if av[i] != bv[i] {
				return false
			}
		}
		return true
	}
	return a == b
}

// copyValue returns a copy of canonical value, so callers can't mutate
// arrays stored in a set.
func copyValue(v interface{}) interface{} {
	switch vv := v.(type) {
	case []float64:
		return append([]float64{}, vv...)
	case []string:
		return append([]string{}, vv...)
	}
	return v
}
