package prototype

import (
	"github.com/pkg/errors"
	"github.com/xiaonanln/protopatch/engine/common"
)

// Record is implemented by *Object and *Prototype
type Record interface {
	Base() *Object
	Class() *Class
}

// Object is an instance of a class: a value slot per field descriptor
type Object struct {
	class *Class
	slots []interface{}
}

func (o *Object) init(c *Class) {
	o.class = c
	o.slots = make([]interface{}, len(c.fields))
	for _, f := range c.fields {
		if f.Default != nil && f.Type.Accepts(f.Default) {
			o.slots[f.slot] = f.Default
		} else {
			o.slots[f.slot] = f.Type.Zero()
		}
	}
}

// Base returns the object itself
func (o *Object) Base() *Object {
	return o
}

// Class returns the class of the object
func (o *Object) Class() *Class {
	return o.class
}

// Get reads a field by name
func (o *Object) Get(name string) (interface{}, error) {
	f := o.class.Field(name)
	if f == nil {
		return nil, errors.Errorf("class %s has no field %s", o.class.name, name)
	}
	return f.Get(o), nil
}

// Set writes a field by name
func (o *Object) Set(name string, v interface{}) error {
	f := o.class.Field(name)
	if f == nil {
		return errors.Errorf("class %s has no field %s", o.class.name, name)
	}
	return f.Set(o, v)
}

// MustGet reads a field by name and panics if the field does not exist
func (o *Object) MustGet(name string) interface{} {
	v, err := o.Get(name)
	if err != nil {
		panic(err)
	}
	return v
}

// Clone deep copies the object, nested objects and arrays included
func (o *Object) Clone() *Object {
	if o == nil {
		return nil
	}
	c := &Object{class: o.class, slots: make([]interface{}, len(o.slots))}
	for i, v := range o.slots {
		c.slots[i] = cloneValue(v)
	}
	return c
}

// Prototype is a named, top-level record of game data
//
// Embedded prototype objects have a nil DataRef.
type Prototype struct {
	Object
	DataRef       common.PrototypeID
	ParentDataRef common.PrototypeID
}

// IsEmbedded returns if the prototype is an unnamed object embedded in another record
func (p *Prototype) IsEmbedded() bool {
	return p.DataRef.IsNil()
}

// Clone deep copies the prototype
func (p *Prototype) Clone() *Prototype {
	if p == nil {
		return nil
	}
	return &Prototype{
		Object:        *p.Object.Clone(),
		DataRef:       p.DataRef,
		ParentDataRef: p.ParentDataRef,
	}
}

func cloneValue(v interface{}) interface{} {
	switch x := v.(type) {
	case *Object:
		return x.Clone()
	case *Prototype:
		// top-level prototypes are shared references, embedded ones belong to their owner
		if x == nil || !x.IsEmbedded() {
			return x
		}
		return x.Clone()
	case *Array:
		return x.Clone()
	case *PropertyCollection:
		return x.Clone()
	}
	return v
}

// CopyFields copies every field of src that dst also has into dst
//
// Objects and arrays are deep copied so that writes into dst never reach src.
func CopyFields(dst Record, src Record) {
	d, s := dst.Base(), src.Base()
	for _, sf := range s.class.fields {
		df := d.class.Field(sf.Name)
		if df == nil || !df.Type.Equal(sf.Type) {
			continue
		}
		d.slots[df.slot] = cloneValue(s.slots[sf.slot])
	}
}
