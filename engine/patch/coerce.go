package patch

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/xiaonanln/protopatch/engine/common"
	"github.com/xiaonanln/protopatch/engine/consts"
	"github.com/xiaonanln/protopatch/engine/gwlog"
	"github.com/xiaonanln/protopatch/engine/gwutils"
	"github.com/xiaonanln/protopatch/engine/prototype"
	"github.com/xiaonanln/typeconv"
)

const (
	parentDataRefKey   = "ParentDataRef"
	polymorphicDataKey = "PolymorphicData"
)

var (
	int64Type   = reflect.TypeOf(int64(0))
	float64Type = reflect.TypeOf(float64(0))
)

// Coercer converts loosely typed patch values into field values, resolving names through a directory
type Coercer struct {
	dir *prototype.Directory
}

// NewCoercer creates a coercer resolving names in dir
func NewCoercer(dir *prototype.Directory) *Coercer {
	return &Coercer{dir: dir}
}

// Coerce converts raw into a value assignable to a location of type t
func (c *Coercer) Coerce(raw interface{}, t *prototype.Type) (interface{}, error) {
	if prototype.IsNilValue(raw) {
		return t.Zero(), nil
	}
	if t.Accepts(raw) {
		return raw, nil
	}
	if consts.DEBUG_PATCH_COERCE {
		gwlog.Debugf("coerce %v (%T) to %s", raw, raw, t)
	}

	switch t.Kind {
	case prototype.KindPrototypeRef:
		if s, ok := raw.(string); ok {
			return c.resolvePrototypeRef(s)
		}
	case prototype.KindAsset:
		if s, ok := raw.(string); ok {
			return c.resolveAsset(s)
		}
	case prototype.KindEnum:
		if s, ok := raw.(string); ok {
			if v, ok := t.Enum.Parse(strings.TrimSpace(s)); ok {
				return v, nil
			}
			return nil, coercionError(raw, t, "no such enum value")
		}
	case prototype.KindPrototype, prototype.KindComplex:
		if m, ok := raw.(map[string]interface{}); ok {
			return c.object(m, t)
		}
	case prototype.KindArray:
		if list, ok := toList(raw); ok {
			return c.array(list, t)
		}
	case prototype.KindProperties:
		if m, ok := raw.(map[string]interface{}); ok {
			return c.properties(m)
		}
	}
	return c.convertScalar(raw, t)
}

// Element converts raw into an array element of type elem
//
// A prototype reference or name is promoted to the referenced prototype object
// when the element type is the prototype object itself.
func (c *Coercer) Element(raw interface{}, elem *prototype.Type) (interface{}, error) {
	if elem.Kind == prototype.KindPrototype && !prototype.IsNilValue(raw) && !elem.Accepts(raw) {
		if _, isObject := raw.(map[string]interface{}); !isObject {
			ref, err := c.Coerce(raw, prototype.TypePrototypeRef)
			if err != nil {
				return nil, err
			}
			return c.promote(ref.(common.PrototypeID), elem)
		}
	}
	return c.Coerce(raw, elem)
}

func (c *Coercer) promote(ref common.PrototypeID, elem *prototype.Type) (interface{}, error) {
	p := c.dir.Prototype(ref)
	if p == nil {
		return nil, resolutionError("prototype", ref.String())
	}
	if !elem.Accepts(p) {
		return nil, coercionError(c.dir.PrototypeName(ref), elem, "prototype class %s", p.Class())
	}
	return p, nil
}

func (c *Coercer) resolvePrototypeRef(name string) (interface{}, error) {
	name = strings.TrimSpace(name)
	if ref := c.dir.PrototypeRefByName(name); !ref.IsNil() {
		return ref, nil
	}
	// numeric data refs written as strings
	if u, err := strconv.ParseUint(name, 10, 64); err == nil {
		return common.PrototypeID(u), nil
	}
	gwlog.Warnf("can not resolve prototype name %q", name)
	return nil, resolutionError("prototype", name)
}

// resolveAsset looks up "Name (TypeName)" in the named asset type, or a plain name in all asset types
func (c *Coercer) resolveAsset(s string) (interface{}, error) {
	name := strings.TrimSpace(s)
	if strings.HasSuffix(name, ")") {
		if open := strings.LastIndexByte(name, '('); open > 0 {
			assetName := strings.TrimSpace(name[:open])
			typeName := strings.TrimSpace(name[open+1 : len(name)-1])
			if at := c.dir.AssetType(typeName); at != nil {
				if id, ok := at.FindAsset(assetName); ok {
					return id, nil
				}
				return nil, resolutionError("asset", s)
			}
		}
	}

	if id, ok := c.dir.FindAsset(name); ok {
		return id, nil
	}
	if u, err := strconv.ParseUint(name, 10, 64); err == nil {
		return common.AssetID(u), nil
	}

	assetTypes := c.dir.AssetTypes()
	typeNames := make([]string, len(assetTypes))
	for i, at := range assetTypes {
		typeNames[i] = at.Name
	}
	gwlog.Warnf("can not find asset %q in any asset type, asset types: %s", s, strings.Join(typeNames, ", "))
	return nil, resolutionError("asset", s)
}

// object builds a nested prototype or complex object field by field
//
// A prototype carrying ParentDataRef is allocated with the class of that parent and
// starts from a copy of its fields.
func (c *Coercer) object(m map[string]interface{}, t *prototype.Type) (interface{}, error) {
	class := t.Class
	var parentRef common.PrototypeID
	if t.Kind == prototype.KindPrototype {
		if pr, ok := m[parentDataRefKey]; ok {
			ref, err := c.Coerce(pr, prototype.TypePrototypeRef)
			if err != nil {
				return nil, errors.Wrap(err, parentDataRefKey)
			}
			parentRef = ref.(common.PrototypeID)
			class = c.dir.PrototypeClass(parentRef)
			if class == nil {
				return nil, resolutionError("prototype class of", parentRef.String())
			}
		}
	}
	if class == nil {
		return nil, coercionError(m, t, "no class to allocate")
	}
	if t.Class != nil && !class.IsA(t.Class) {
		return nil, coercionError(m, t, "class %s is not a %s", class, t.Class)
	}
	if class.IsPrototypeClass() != (t.Kind == prototype.KindPrototype) {
		return nil, coercionError(m, t, "class %s can not be allocated as %s", class, t.Kind)
	}

	rec := class.Allocate()
	if p, ok := rec.(*prototype.Prototype); ok && !parentRef.IsNil() {
		if parent := c.dir.Prototype(parentRef); parent != nil {
			prototype.CopyFields(p, parent)
		} else {
			gwlog.Warnf("%s %s is not constructed yet, fields are not copied", parentDataRefKey, c.dir.PrototypeName(parentRef))
		}
		p.ParentDataRef = parentRef
	}

	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if name == parentDataRefKey && t.Kind == prototype.KindPrototype {
			continue
		}
		f := class.Field(name)
		if f == nil {
			if name != polymorphicDataKey {
				gwlog.Warnf("field %s not found on class %s", name, class)
			}
			continue
		}
		v, err := c.Coerce(m[name], f.Type)
		if err == nil {
			err = f.Set(rec.Base(), v)
		}
		if err != nil {
			gwlog.Errorf("failed to set field %s on %s: %v", name, class, err)
		}
	}
	return rec, nil
}

func (c *Coercer) array(list []interface{}, t *prototype.Type) (interface{}, error) {
	arr := prototype.NewArray(t.Elem, len(list))
	for i, raw := range list {
		v, err := c.Element(raw, t.Elem)
		if err != nil {
			return nil, errors.Wrapf(err, "element %d", i)
		}
		if err := arr.SetAt(i, v); err != nil {
			return nil, coercionError(raw, t.Elem, "%v", err)
		}
	}
	return arr, nil
}

// properties builds a property collection from {"Name": value} or {"Name": [params..., value]}
func (c *Coercer) properties(m map[string]interface{}) (interface{}, error) {
	table := c.dir.Properties()
	pc := prototype.NewPropertyCollection()

	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		info := table.Lookup(name)
		if info == nil {
			return nil, resolutionError("property", name)
		}
		id := prototype.PropertyID{Name: name}
		raw := m[name]
		if len(info.Params) > 0 {
			list, ok := raw.([]interface{})
			if !ok || len(list) == 0 {
				return nil, coercionError(raw, prototype.TypeProperties, "property %s needs [params..., value]", name)
			}
			for i := range info.Params {
				if i >= len(list)-1 {
					break
				}
				pv, err := c.Coerce(list[i], info.ParamType(i))
				if err != nil {
					return nil, errors.Wrapf(err, "property %s param %d", name, i)
				}
				id.Params[i] = paramValue(pv)
			}
			raw = list[len(list)-1]
		}
		v, err := c.Coerce(raw, info.ValueType())
		if err != nil {
			return nil, errors.Wrapf(err, "property %s", name)
		}
		pc.Set(id, v)
	}
	return pc, nil
}

func paramValue(v interface{}) int64 {
	switch x := v.(type) {
	case int64:
		return x
	case common.AssetID:
		return int64(x)
	case common.PrototypeID:
		return int64(x)
	}
	return 0
}

// convertScalar converts between representable scalar types
func (c *Coercer) convertScalar(raw interface{}, t *prototype.Type) (interface{}, error) {
	var v interface{}
	var err error
	switch t.Kind {
	case prototype.KindBool:
		v, err = toBool(raw)
	case prototype.KindInt:
		v, err = toInt64(raw)
	case prototype.KindFloat:
		v, err = toFloat64(raw)
	case prototype.KindString:
		v, err = toString(raw)
	case prototype.KindEnum:
		var n int64
		if n, err = toInt64(raw); err == nil {
			var ok bool
			if v, ok = t.Enum.At(int(n)); !ok {
				err = errors.Errorf("enum %s has no value %d", t.Enum.Name, n)
			}
		}
	case prototype.KindAsset:
		var u uint64
		u, err = toUint64(raw)
		v = common.AssetID(u)
	case prototype.KindPrototypeGuid:
		var u uint64
		u, err = toUint64(raw)
		v = common.PrototypeGuid(u)
	case prototype.KindPrototypeRef:
		var u uint64
		u, err = toUint64(raw)
		v = common.PrototypeID(u)
	case prototype.KindLocaleString:
		var u uint64
		u, err = toUint64(raw)
		v = common.LocaleStringID(u)
	case prototype.KindVector3:
		if list, ok := toList(raw); ok {
			v, err = vector3FromList(list)
		} else {
			err = errors.New("Vector3 must be written as [x, y, z]")
		}
	default:
		return nil, coercionError(raw, t, "")
	}
	if err != nil {
		return nil, coercionError(raw, t, "%v", err)
	}
	return v, nil
}

func toBool(v interface{}) (bool, error) {
	switch x := v.(type) {
	case bool:
		return x, nil
	case string:
		return strconv.ParseBool(strings.TrimSpace(x))
	}
	n, err := toFloat64(v)
	if err != nil {
		return false, err
	}
	return n != 0, nil
}

func toString(v interface{}) (string, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case json.Number:
		return x.String(), nil
	case bool:
		return strconv.FormatBool(x), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case uint64:
		return strconv.FormatUint(x, 10), nil
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64), nil
	case fmt.Stringer:
		return x.String(), nil
	}
	return "", errors.Errorf("%T is not convertible to string", v)
}

// toList returns the elements of a decoded JSON array, a Go slice or an array value
func toList(v interface{}) ([]interface{}, bool) {
	switch x := v.(type) {
	case []interface{}:
		return x, true
	case *prototype.Array:
		return x.Values(), true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	list := make([]interface{}, rv.Len())
	for i := range list {
		list[i] = rv.Index(i).Interface()
	}
	return list, true
}

// widen converts Go numeric kinds like int32 or float32 through typeconv
func widen(v interface{}, to reflect.Type) (res interface{}, ok bool) {
	switch reflect.ValueOf(v).Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
	default:
		return nil, false
	}
	err := gwutils.CatchPanic(func() error {
		res = typeconv.Convert(v, to).Interface()
		return nil
	})
	return res, err == nil
}
