package prototype

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/xiaonanln/protopatch/engine/common"
)

// Kind is the kind of value a field holds
type Kind int

const (
	KindInvalid Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindEnum
	KindAsset
	KindPrototypeGuid
	KindPrototypeRef
	KindLocaleString
	KindVector3
	KindPrototype // embedded or referenced *Prototype object
	KindComplex   // nested non-prototype *Object
	KindProperties
	KindArray
)

var kindNames = map[Kind]string{
	KindBool:          "Boolean",
	KindInt:           "Integer",
	KindFloat:         "Float",
	KindString:        "String",
	KindEnum:          "Enum",
	KindAsset:         "Asset",
	KindPrototypeGuid: "PrototypeGuid",
	KindPrototypeRef:  "PrototypeRef",
	KindLocaleString:  "LocaleString",
	KindVector3:       "Vector3",
	KindPrototype:     "Prototype",
	KindComplex:       "Complex",
	KindProperties:    "Properties",
	KindArray:         "Array",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "Invalid"
}

// Type describes the static type of a field or array element
//
// Elem is set for KindArray, Class for KindPrototype / KindComplex (nil accepts any class)
// and Enum for KindEnum.
type Type struct {
	Kind  Kind
	Elem  *Type
	Class *Class
	Enum  *EnumType
}

var (
	TypeBool          = &Type{Kind: KindBool}
	TypeInt           = &Type{Kind: KindInt}
	TypeFloat         = &Type{Kind: KindFloat}
	TypeString        = &Type{Kind: KindString}
	TypeAsset         = &Type{Kind: KindAsset}
	TypePrototypeGuid = &Type{Kind: KindPrototypeGuid}
	TypePrototypeRef  = &Type{Kind: KindPrototypeRef}
	TypeLocaleString  = &Type{Kind: KindLocaleString}
	TypeVector3       = &Type{Kind: KindVector3}
	TypeProperties    = &Type{Kind: KindProperties}
)

// ArrayOf returns the array type of elem
func ArrayOf(elem *Type) *Type {
	return &Type{Kind: KindArray, Elem: elem}
}

// PrototypeOf returns the type of prototype objects of class c (or subclasses)
func PrototypeOf(c *Class) *Type {
	return &Type{Kind: KindPrototype, Class: c}
}

// ComplexOf returns the type of nested objects of class c (or subclasses)
func ComplexOf(c *Class) *Type {
	return &Type{Kind: KindComplex, Class: c}
}

// EnumOf returns the type of values of enum e
func EnumOf(e *EnumType) *Type {
	return &Type{Kind: KindEnum, Enum: e}
}

// IsArray returns if t is an array type
func (t *Type) IsArray() bool {
	return t.Kind == KindArray
}

// IsObject returns if values of t are *Prototype or *Object
func (t *Type) IsObject() bool {
	return t.Kind == KindPrototype || t.Kind == KindComplex
}

// Equal returns if two types are structurally the same
func (t *Type) Equal(o *Type) bool {
	if t == o {
		return true
	}
	if t == nil || o == nil || t.Kind != o.Kind {
		return false
	}
	switch t.Kind {
	case KindArray:
		return t.Elem.Equal(o.Elem)
	case KindPrototype, KindComplex:
		return t.Class == o.Class
	case KindEnum:
		return t.Enum == o.Enum
	}
	return true
}

// Accepts returns if v can be stored in a location of type t without conversion
func (t *Type) Accepts(v interface{}) bool {
	switch t.Kind {
	case KindBool:
		_, ok := v.(bool)
		return ok
	case KindInt:
		_, ok := v.(int64)
		return ok
	case KindFloat:
		_, ok := v.(float64)
		return ok
	case KindString:
		_, ok := v.(string)
		return ok
	case KindEnum:
		ev, ok := v.(EnumValue)
		return ok && ev.Type == t.Enum
	case KindAsset:
		_, ok := v.(common.AssetID)
		return ok
	case KindPrototypeGuid:
		_, ok := v.(common.PrototypeGuid)
		return ok
	case KindPrototypeRef:
		_, ok := v.(common.PrototypeID)
		return ok
	case KindLocaleString:
		_, ok := v.(common.LocaleStringID)
		return ok
	case KindVector3:
		_, ok := v.(common.Vector3)
		return ok
	case KindPrototype:
		p, ok := v.(*Prototype)
		return ok && (p == nil || t.Class == nil || p.Class().IsA(t.Class))
	case KindComplex:
		o, ok := v.(*Object)
		return ok && (o == nil || t.Class == nil || o.Class().IsA(t.Class))
	case KindProperties:
		_, ok := v.(*PropertyCollection)
		return ok
	case KindArray:
		a, ok := v.(*Array)
		return ok && (a == nil || a.elem.Equal(t.Elem))
	}
	return false
}

// Zero returns the zero value of t
func (t *Type) Zero() interface{} {
	switch t.Kind {
	case KindBool:
		return false
	case KindInt:
		return int64(0)
	case KindFloat:
		return float64(0)
	case KindString:
		return ""
	case KindEnum:
		return EnumValue{Type: t.Enum}
	case KindAsset:
		return common.InvalidAssetID
	case KindPrototypeGuid:
		return common.PrototypeGuid(0)
	case KindPrototypeRef:
		return common.InvalidPrototypeID
	case KindLocaleString:
		return common.LocaleStringID(0)
	case KindVector3:
		return common.Vector3{}
	case KindPrototype:
		return (*Prototype)(nil)
	case KindComplex:
		return (*Object)(nil)
	case KindProperties:
		return (*PropertyCollection)(nil)
	case KindArray:
		return (*Array)(nil)
	}
	return nil
}

// IsNilValue returns if v is a typed nil object, array or property collection
func IsNilValue(v interface{}) bool {
	switch x := v.(type) {
	case nil:
		return true
	case *Prototype:
		return x == nil
	case *Object:
		return x == nil
	case *Array:
		return x == nil
	case *PropertyCollection:
		return x == nil
	}
	return false
}

func (t *Type) String() string {
	if t == nil {
		return "<nil>"
	}
	switch t.Kind {
	case KindArray:
		return t.Elem.String() + "[]"
	case KindPrototype, KindComplex:
		if t.Class != nil {
			return t.Kind.String() + ":" + t.Class.Name()
		}
	case KindEnum:
		if t.Enum != nil {
			return "Enum:" + t.Enum.Name
		}
	}
	return t.Kind.String()
}

// ParseType parses a type spec like "Integer", "Enum:Rarity", "Complex:Behavior[]" or
// "Prototype:LootTable[][]", resolving enum and class names through dir
func ParseType(spec string, dir *Directory) (*Type, error) {
	spec = strings.TrimSpace(spec)
	dims := 0
	for strings.HasSuffix(spec, "[]") {
		spec = strings.TrimSpace(spec[:len(spec)-2])
		dims += 1
	}

	base, arg := spec, ""
	if i := strings.IndexByte(spec, ':'); i >= 0 {
		base, arg = strings.TrimSpace(spec[:i]), strings.TrimSpace(spec[i+1:])
	}

	var t *Type
	switch strings.ToLower(base) {
	case "boolean", "bool":
		t = TypeBool
	case "integer", "int":
		t = TypeInt
	case "float", "real":
		t = TypeFloat
	case "string":
		t = TypeString
	case "asset", "assetref", "assetid":
		t = TypeAsset
	case "prototypeguid":
		t = TypePrototypeGuid
	case "prototyperef", "prototypeid", "prototypedataref":
		t = TypePrototypeRef
	case "localestring", "localestringref", "localestringid":
		t = TypeLocaleString
	case "vector3":
		t = TypeVector3
	case "properties", "propertycollection":
		t = TypeProperties
	case "enum":
		e := dir.Enum(arg)
		if e == nil {
			return nil, errors.Errorf("unknown enum %q in type %q", arg, spec)
		}
		t = EnumOf(e)
	case "prototype", "complex", "complexobject":
		var c *Class
		if arg != "" {
			c = dir.Class(arg)
			if c == nil {
				return nil, errors.Errorf("unknown class %q in type %q", arg, spec)
			}
		}
		if strings.ToLower(base) == "prototype" {
			t = PrototypeOf(c)
		} else {
			if c == nil {
				return nil, errors.Errorf("complex type %q needs a class", spec)
			}
			t = ComplexOf(c)
		}
	default:
		return nil, errors.Errorf("unknown type %q", spec)
	}

	for i := 0; i < dims; i++ {
		t = ArrayOf(t)
	}
	return t, nil
}
