package param

import (
	"fmt"
)

// Set holds values of a module instance configuration. Any value change
// marks the set dirty until Clean is called.
type Set struct {
	schema  Schema
	index   map[string]int
	values  []interface{}
	changed []bool
	dirty   bool
}

// New creates a set with default values of the schema.
func New(schema Schema) (*Set, error) {
	s := &Set{
		schema:  append(Schema(nil), schema...),
		index:   make(map[string]int, len(schema)),
		values:  make([]interface{}, len(schema)),
		changed: make([]bool, len(schema)),
	}
	for i, spec := range schema {
		if spec.Name == "" {
			return nil, fmt.Errorf("%w: parameter %d has no name", ErrSchema, i)
		}
		if _, ok := s.index[spec.Name]; ok {
			return nil, fmt.Errorf("%w: duplicate parameter %q", ErrSchema, spec.Name)
		}
		if spec.Kind == Enum && len(spec.Choices) == 0 {
			return nil, fmt.Errorf("%w: enum %q has no choices", ErrSchema, spec.Name)
		}
		v, err := coerce(spec, spec.Default)
		if err != nil {
			return nil, fmt.Errorf("%w: default: %v", ErrSchema, err)
		}
		s.index[spec.Name] = i
		s.values[i] = v
	}
	return s, nil
}

// MustNew is like New but panics on error.
func MustNew(schema Schema) *Set {
	s, err := New(schema)
	if err != nil {
		panic("param: " + err.Error())
	}
	return s
}

// Schema returns the declarations of the set.
func (s *Set) Schema() Schema {
	return s.schema
}

// Spec returns declaration of the named parameter.
func (s *Set) Spec(name string) (Spec, error) {
	i, ok := s.index[name]
	if !ok {
		return Spec{}, &Error{Param: name, Err: ErrUnknown}
	}
	return s.schema[i], nil
}

// Names returns parameter names in declaration order.
func (s *Set) Names() []string {
	names := make([]string, len(s.schema))
	for i := range s.schema {
		names[i] = s.schema[i].Name
	}
	return names
}

// Get returns a copy of the named value.
func (s *Set) Get(name string) (interface{}, error) {
	i, ok := s.index[name]
	if !ok {
		return nil, &Error{Param: name, Err: ErrUnknown}
	}
	return copyValue(s.values[i]), nil
}

// Validate checks the value against declaration without changing the set.
func (s *Set) Validate(name string, v interface{}) error {
	i, ok := s.index[name]
	if !ok {
		return &Error{Param: name, Got: v, Err: ErrUnknown}
	}
	_, err := coerce(s.schema[i], v)
	return err
}

// Set assigns new value. It returns true if value was actually changed.
// Rejected values leave the set unchanged.
func (s *Set) Set(name string, v interface{}) (bool, error) {
	i, ok := s.index[name]
	if !ok {
		return false, &Error{Param: name, Got: v, Err: ErrUnknown}
	}
	cv, err := coerce(s.schema[i], v)
	if err != nil {
		return false, err
	}
	if equal(s.values[i], cv) {
		return false, nil
	}
	s.values[i] = cv
	s.changed[i] = true
	s.dirty = true
	return true, nil
}

// Dirty returns true if any value was changed since last Clean or if set
// was explicitly invalidated.
func (s *Set) Dirty() bool {
	return s.dirty
}

// Invalidate marks the set dirty without changing values.
func (s *Set) Invalidate() {
	s.dirty = true
}

// Changed returns names of parameters changed since last Clean in
// declaration order.
func (s *Set) Changed() []string {
	var names []string
	for i, c := range s.changed {
		if c {
			names = append(names, s.schema[i].Name)
		}
	}
	return names
}

// Clean resets dirty state.
func (s *Set) Clean() {
	clear(s.changed)
	s.dirty = false
}

// Real returns value of a real parameter. Zero is returned for unknown or
// non-real parameters.
func (s *Set) Real(name string) float64 {
	v, _ := s.value(name).(float64)
	return v
}

// Int returns value of an int parameter.
func (s *Set) Int(name string) int {
	v, _ := s.value(name).(int)
	return v
}

// Enum returns value of an enum parameter.
func (s *Set) Enum(name string) string {
	v, _ := s.value(name).(string)
	return v
}

// Text returns value of a text parameter.
func (s *Set) Text(name string) string {
	v, _ := s.value(name).(string)
	return v
}

// Reals returns a copy of a real array parameter.
func (s *Set) Reals(name string) []float64 {
	v, _ := s.value(name).([]float64)
	return append([]float64(nil), v...)
}

// Strings returns a copy of a string array parameter.
func (s *Set) Strings(name string) []string {
	v, _ := s.value(name).([]string)
	return append([]string(nil), v...)
}

func (s *Set) value(name string) interface{} {
	i, ok := s.index[name]
	if !ok {
		return nil
	}
	return s.values[i]
}
