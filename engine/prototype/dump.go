package prototype

import (
	"github.com/xiaonanln/protopatch/engine/common"
)

// Dump converts a record to plain maps and lists for printing
//
// Referenced prototypes and assets are written by name when dir knows them.
func Dump(dir *Directory, rec Record) map[string]interface{} {
	o := rec.Base()
	m := make(map[string]interface{}, len(o.class.fields))
	for _, f := range o.class.fields {
		m[f.Name] = dumpValue(dir, f.Get(o))
	}
	if p, ok := rec.(*Prototype); ok && !p.ParentDataRef.IsNil() {
		m["ParentDataRef"] = dumpValue(dir, p.ParentDataRef)
	}
	return m
}

func dumpValue(dir *Directory, v interface{}) interface{} {
	switch x := v.(type) {
	case *Prototype:
		if x == nil {
			return nil
		}
		if !x.IsEmbedded() {
			return dumpValue(dir, x.DataRef)
		}
		return Dump(dir, x)
	case *Object:
		if x == nil {
			return nil
		}
		return Dump(dir, x)
	case *Array:
		if x == nil {
			return nil
		}
		list := make([]interface{}, x.Len())
		for i, elem := range x.Values() {
			list[i] = dumpValue(dir, elem)
		}
		return list
	case *PropertyCollection:
		if x == nil {
			return nil
		}
		props := make(map[string]interface{}, x.Len())
		for _, id := range x.IDs() {
			pv, _ := x.Get(id)
			props[id.String()] = dumpValue(dir, pv)
		}
		return props
	case EnumValue:
		return x.String()
	case common.PrototypeID:
		if name := dir.PrototypeName(x); name != "" {
			return name
		}
		return uint64(x)
	case common.AssetID:
		for _, at := range dir.AssetTypes() {
			if name, ok := at.AssetName(x); ok {
				return name + " (" + at.Name + ")"
			}
		}
		return uint64(x)
	case common.PrototypeGuid:
		return uint64(x)
	case common.LocaleStringID:
		if text, ok := dir.LocaleString(x); ok {
			return text
		}
		return uint64(x)
	case common.Vector3:
		return []float64{float64(x.X), float64(x.Y), float64(x.Z)}
	}
	return v
}
