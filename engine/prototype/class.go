package prototype

import (
	"github.com/pkg/errors"
	"github.com/xiaonanln/protopatch/engine/gwlog"
)

// FieldDef declares one field of a class
type FieldDef struct {
	Name    string
	Type    *Type
	Default interface{}
}

// Field is the descriptor of a class field: its name, static type and storage slot
type Field struct {
	Name    string
	Type    *Type
	Default interface{}
	slot    int
}

// Get reads the field of o
func (f *Field) Get(o *Object) interface{} {
	return o.slots[f.slot]
}

// Set writes v into the field of o, v must already be of the field type
func (f *Field) Set(o *Object, v interface{}) error {
	if v == nil {
		v = f.Type.Zero()
	}
	if !f.Type.Accepts(v) {
		return errors.Errorf("field %s.%s: %T is not assignable to %s", o.class.name, f.Name, v, f.Type)
	}
	o.slots[f.slot] = v
	return nil
}

// Class is the field-descriptor table of a prototype or nested object class
//
// The table of a subclass starts with all fields of its parent class, in order.
type Class struct {
	name      string
	parent    *Class
	prototype bool
	fields    []*Field
	index     map[string]*Field
}

// NewClass creates the class of nested (non-prototype) objects
func NewClass(name string, parent *Class, defs ...FieldDef) *Class {
	return newClass(name, parent, false, defs)
}

// NewPrototypeClass creates the class of prototype records
func NewPrototypeClass(name string, parent *Class, defs ...FieldDef) *Class {
	return newClass(name, parent, true, defs)
}

func newClass(name string, parent *Class, isPrototype bool, defs []FieldDef) *Class {
	c := &Class{
		name:      name,
		parent:    parent,
		prototype: isPrototype,
		index:     map[string]*Field{},
	}
	if parent != nil {
		for _, f := range parent.fields {
			c.addField(f.Name, f.Type, f.Default)
		}
	}
	for _, def := range defs {
		if _, ok := c.index[def.Name]; ok {
			gwlog.Panicf("class %s: duplicate field %s", name, def.Name)
		}
		if def.Type == nil {
			gwlog.Panicf("class %s: field %s has no type", name, def.Name)
		}
		c.addField(def.Name, def.Type, def.Default)
	}
	return c
}

func (c *Class) addField(name string, t *Type, def interface{}) {
	f := &Field{Name: name, Type: t, Default: def, slot: len(c.fields)}
	c.fields = append(c.fields, f)
	c.index[name] = f
}

// Name returns the class name
func (c *Class) Name() string {
	return c.name
}

// Parent returns the parent class, or nil
func (c *Class) Parent() *Class {
	return c.parent
}

// IsPrototypeClass returns if instances of c are *Prototype records
func (c *Class) IsPrototypeClass() bool {
	return c.prototype
}

// Field returns the descriptor of the named field, or nil
func (c *Class) Field(name string) *Field {
	return c.index[name]
}

// Fields returns all field descriptors in slot order
func (c *Class) Fields() []*Field {
	return c.fields
}

// IsA returns if c is base or a subclass of base
func (c *Class) IsA(base *Class) bool {
	for x := c; x != nil; x = x.parent {
		if x == base {
			return true
		}
	}
	return false
}

// NewObject allocates a nested object of class c with default field values
func (c *Class) NewObject() *Object {
	o := &Object{}
	o.init(c)
	return o
}

// NewPrototype allocates a prototype record of class c with default field values
func (c *Class) NewPrototype() *Prototype {
	p := &Prototype{}
	p.init(c)
	return p
}

// Allocate allocates a *Prototype or an *Object depending on the class kind
func (c *Class) Allocate() Record {
	if c.prototype {
		return c.NewPrototype()
	}
	return c.NewObject()
}

func (c *Class) String() string {
	return c.name
}
