package prototype

import (
	"strings"
)

// EnumType is a named set of symbolic values
type EnumType struct {
	Name   string
	Values []string
	lower  map[string]int
	exact  map[string]int
}

// EnumValue is a value of an EnumType
type EnumValue struct {
	Type  *EnumType
	Index int
}

func (v EnumValue) String() string {
	if v.Type == nil || v.Index < 0 || v.Index >= len(v.Type.Values) {
		return "<invalid enum>"
	}
	return v.Type.Values[v.Index]
}

// NewEnumType creates an enum type with values in declaration order
func NewEnumType(name string, values ...string) *EnumType {
	e := &EnumType{
		Name:   name,
		Values: values,
		lower:  map[string]int{},
		exact:  map[string]int{},
	}
	for i, v := range values {
		e.exact[v] = i
		if _, ok := e.lower[strings.ToLower(v)]; !ok {
			e.lower[strings.ToLower(v)] = i
		}
	}
	return e
}

// Parse finds a value by name, ignoring case when there is no exact match
func (e *EnumType) Parse(name string) (EnumValue, bool) {
	if i, ok := e.exact[name]; ok {
		return EnumValue{Type: e, Index: i}, true
	}
	if i, ok := e.lower[strings.ToLower(name)]; ok {
		return EnumValue{Type: e, Index: i}, true
	}
	return EnumValue{}, false
}

// At returns the value of ordinal i
func (e *EnumType) At(i int) (EnumValue, bool) {
	if i < 0 || i >= len(e.Values) {
		return EnumValue{}, false
	}
	return EnumValue{Type: e, Index: i}, true
}
