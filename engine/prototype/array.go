package prototype

import (
	"github.com/pkg/errors"
)

// Array is a fixed-length sequence of values of a single element type
//
// Resizing operations always produce a new Array, the original is not modified.
type Array struct {
	elem  *Type
	items []interface{}
}

// NewArray creates an array of n zero elements
func NewArray(elem *Type, n int) *Array {
	a := &Array{elem: elem, items: make([]interface{}, n)}
	for i := range a.items {
		a.items[i] = elem.Zero()
	}
	return a
}

// ArrayFrom creates an array from values that are already of the element type
func ArrayFrom(elem *Type, values []interface{}) (*Array, error) {
	a := &Array{elem: elem, items: make([]interface{}, len(values))}
	for i, v := range values {
		if v == nil {
			v = elem.Zero()
		}
		if !elem.Accepts(v) {
			return nil, errors.Errorf("array element %d: %T is not assignable to %s", i, v, elem)
		}
		a.items[i] = v
	}
	return a, nil
}

// Elem returns the element type
func (a *Array) Elem() *Type {
	return a.elem
}

// Len returns the number of elements, 0 for a nil array
func (a *Array) Len() int {
	if a == nil {
		return 0
	}
	return len(a.items)
}

// At returns element i
func (a *Array) At(i int) (interface{}, error) {
	if i < 0 || i >= a.Len() {
		return nil, errors.Errorf("index %d out of range [0, %d)", i, a.Len())
	}
	return a.items[i], nil
}

// SetAt writes element i in place
func (a *Array) SetAt(i int, v interface{}) error {
	if i < 0 || i >= a.Len() {
		return errors.Errorf("index %d out of range [0, %d)", i, a.Len())
	}
	if v == nil {
		v = a.elem.Zero()
	}
	if !a.elem.Accepts(v) {
		return errors.Errorf("%T is not assignable to %s", v, a.elem)
	}
	a.items[i] = v
	return nil
}

// Values returns a copy of the elements
func (a *Array) Values() []interface{} {
	if a == nil {
		return nil
	}
	values := make([]interface{}, len(a.items))
	copy(values, a.items)
	return values
}

// Clone deep copies the array
func (a *Array) Clone() *Array {
	if a == nil {
		return nil
	}
	c := &Array{elem: a.elem, items: make([]interface{}, len(a.items))}
	for i, v := range a.items {
		c.items[i] = cloneValue(v)
	}
	return c
}
