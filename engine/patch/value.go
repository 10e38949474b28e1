package patch

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/xiaonanln/protopatch/engine/common"
	"github.com/xiaonanln/protopatch/engine/prototype"
)

// ValueKind is the declared kind of a patch value
type ValueKind int

const (
	ValueString ValueKind = iota
	ValueBoolean
	ValueFloat
	ValueInteger
	ValueEnum
	ValueAssetRef
	ValuePrototypeGuid
	ValuePrototypeRef
	ValueLocaleStringRef
	ValueVector3
	ValuePrototype
	ValuePropertyCollection
	ValueComplexObject
)

var valueKindNames = []string{
	"String",
	"Boolean",
	"Float",
	"Integer",
	"Enum",
	"AssetRef",
	"PrototypeGuid",
	"PrototypeRef",
	"LocaleStringRef",
	"Vector3",
	"Prototype",
	"PropertyCollection",
	"ComplexObject",
}

var valueKindAliases = map[string]ValueKind{
	"bool":             ValueBoolean,
	"int":              ValueInteger,
	"real":             ValueFloat,
	"assetid":          ValueAssetRef,
	"prototypeid":      ValuePrototypeRef,
	"prototypedataref": ValuePrototypeRef,
	"localestringid":   ValueLocaleStringRef,
	"properties":       ValuePropertyCollection,
	"complex":          ValueComplexObject,
}

func (k ValueKind) String() string {
	if int(k) < len(valueKindNames) {
		return valueKindNames[k]
	}
	return "Invalid"
}

// ValueType is a value kind, optionally as an array of that kind
type ValueType struct {
	Kind  ValueKind
	Array bool
}

func (t ValueType) String() string {
	if t.Array {
		return t.Kind.String() + "Array"
	}
	return t.Kind.String()
}

// ParseValueType parses a value kind name
//
// "<Kind>[]" is a synonym of "<Kind>Array", names are matched ignoring case.
func ParseValueType(s string) (ValueType, error) {
	name := strings.TrimSpace(s)
	var vt ValueType
	if strings.HasSuffix(name, "[]") {
		vt.Array = true
		name = strings.TrimSpace(name[:len(name)-2])
	} else if len(name) > 5 && strings.EqualFold(name[len(name)-5:], "array") {
		vt.Array = true
		name = name[:len(name)-5]
	}

	lname := strings.ToLower(name)
	for i, kn := range valueKindNames {
		if strings.ToLower(kn) == lname {
			vt.Kind = ValueKind(i)
			return vt, nil
		}
	}
	if k, ok := valueKindAliases[lname]; ok {
		vt.Kind = k
		return vt, nil
	}
	return ValueType{}, errors.Errorf("unknown value kind %q", s)
}

// isRaw returns if values of this type are kept as decoded JSON until applied
func (t ValueType) isRaw() bool {
	if t.Array {
		return true
	}
	switch t.Kind {
	case ValuePrototype, ValuePropertyCollection, ValueComplexObject:
		return true
	}
	return false
}

// Value is a typed patch value in one of two states
//
// Concrete values (primitives, identifiers, Vector3) are decoded when the entry is
// loaded. Raw values (arrays, objects, property collections) keep their decoded JSON
// tree and are materialized against the target field type each time they are applied.
// Prototype and asset names stay strings until applied, since they are resolved
// against the directory.
type Value struct {
	Type     ValueType
	raw      interface{}
	concrete interface{}
	isRaw    bool
}

// NewValue decodes a JSON value of the given type, a missing value stays nil
func NewValue(t ValueType, v interface{}) (Value, error) {
	if v == nil {
		return ConcreteValue(t, nil), nil
	}
	if t.isRaw() {
		return RawValue(t, v), nil
	}
	c, err := decodeConcrete(t.Kind, v)
	if err != nil {
		return Value{}, err
	}
	return ConcreteValue(t, c), nil
}

// RawValue creates a value in the raw state
func RawValue(t ValueType, raw interface{}) Value {
	return Value{Type: t, raw: raw, isRaw: true}
}

// ConcreteValue creates a value in the concrete state
func ConcreteValue(t ValueType, v interface{}) Value {
	return Value{Type: t, concrete: v}
}

// IsRaw returns if the value is kept as a decoded JSON tree
func (v Value) IsRaw() bool {
	return v.isRaw
}

// Interface returns the raw tree or the concrete value
func (v Value) Interface() interface{} {
	if v.isRaw {
		return v.raw
	}
	return v.concrete
}

func decodeConcrete(kind ValueKind, v interface{}) (interface{}, error) {
	switch kind {
	case ValueString:
		if s, ok := v.(string); ok {
			return s, nil
		}
	case ValueBoolean:
		if b, ok := v.(bool); ok {
			return b, nil
		}
	case ValueFloat:
		if n, ok := v.(json.Number); ok {
			return toFloat64(n)
		}
	case ValueInteger:
		if n, ok := v.(json.Number); ok {
			return toInt64(n)
		}
	case ValueEnum:
		switch x := v.(type) {
		case string:
			return x, nil
		case json.Number:
			return x.Int64()
		}
	case ValueAssetRef:
		switch x := v.(type) {
		case string:
			return x, nil
		case json.Number:
			u, err := parseUint(x)
			return common.AssetID(u), err
		}
	case ValuePrototypeRef:
		switch x := v.(type) {
		case string:
			return x, nil
		case json.Number:
			u, err := parseUint(x)
			return common.PrototypeID(u), err
		}
	case ValuePrototypeGuid:
		if n, ok := v.(json.Number); ok {
			u, err := parseUint(n)
			return common.PrototypeGuid(u), err
		}
	case ValueLocaleStringRef:
		if n, ok := v.(json.Number); ok {
			u, err := parseUint(n)
			return common.LocaleStringID(u), err
		}
	case ValueVector3:
		if list, ok := v.([]interface{}); ok {
			return vector3FromList(list)
		}
	}
	return nil, errors.Errorf("%v (%T) is not a valid %s value", v, v, kind)
}

func parseUint(n json.Number) (uint64, error) {
	return strconv.ParseUint(n.String(), 10, 64)
}

func vector3FromList(list []interface{}) (common.Vector3, error) {
	if len(list) != 3 {
		return common.Vector3{}, errors.Errorf("Vector3 needs 3 components, got %d", len(list))
	}
	xyz := make([]float64, 3)
	for i, c := range list {
		f, err := toFloat64(c)
		if err != nil {
			return common.Vector3{}, errors.Wrapf(err, "Vector3 component %d", i)
		}
		xyz[i] = f
	}
	return common.NewVector3(xyz)
}

// rawDepth returns how many array levels a raw value or a materialized array has
func rawDepth(v interface{}) int {
	switch x := v.(type) {
	case []interface{}:
		if len(x) == 0 {
			return 1
		}
		return 1 + rawDepth(x[0])
	case *prototype.Array:
		if x == nil {
			return 1
		}
		return 1 + typeDepth(x.Elem())
	}
	return 0
}

// typeDepth returns how many JSON array levels a value of type t is written with
func typeDepth(t *prototype.Type) int {
	switch t.Kind {
	case prototype.KindArray:
		return 1 + typeDepth(t.Elem)
	case prototype.KindVector3:
		return 1
	}
	return 0
}

// toFloat64 converts a number of any representation to float64
func toFloat64(v interface{}) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case int64:
		return float64(x), nil
	case uint64:
		return float64(x), nil
	case json.Number:
		return x.Float64()
	case string:
		return strconv.ParseFloat(strings.TrimSpace(x), 64)
	}
	if f, ok := widen(v, float64Type); ok {
		return f.(float64), nil
	}
	return 0, errors.Errorf("%v (%T) is not a number", v, v)
}

// toInt64 converts a number of any representation to int64, rejecting fractions and overflows
func toInt64(v interface{}) (int64, error) {
	switch x := v.(type) {
	case int64:
		return x, nil
	case uint64:
		if x > math.MaxInt64 {
			return 0, errors.Errorf("%d overflows int64", x)
		}
		return int64(x), nil
	case float64:
		if x != math.Trunc(x) || x > math.MaxInt64 || x < math.MinInt64 {
			return 0, errors.Errorf("%v is not an integer", x)
		}
		return int64(x), nil
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return n, nil
		}
		f, err := x.Float64()
		if err != nil {
			return 0, err
		}
		return toInt64(f)
	case string:
		s := strings.TrimSpace(x)
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n, nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, errors.Errorf("%q is not an integer", x)
		}
		return toInt64(f)
	}
	if n, ok := widen(v, int64Type); ok {
		return n.(int64), nil
	}
	return 0, errors.Errorf("%v (%T) is not an integer", v, v)
}

// toUint64 converts a non-negative integer of any representation to uint64
func toUint64(v interface{}) (uint64, error) {
	switch x := v.(type) {
	case uint64:
		return x, nil
	case json.Number:
		if u, err := strconv.ParseUint(x.String(), 10, 64); err == nil {
			return u, nil
		}
	case string:
		if u, err := strconv.ParseUint(strings.TrimSpace(x), 10, 64); err == nil {
			return u, nil
		}
	}
	n, err := toInt64(v)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, errors.Errorf("%d is negative", n)
	}
	return uint64(n), nil
}
