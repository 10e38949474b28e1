package patch

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/xiaonanln/protopatch/engine/common"
	"github.com/xiaonanln/protopatch/engine/prototype"
)

type fixture struct {
	t        *testing.T
	dir      *prototype.Directory
	rarity   *prototype.EnumType
	behavior *prototype.Class
	loot     *prototype.Class
	creature *prototype.Class
	coercer  *Coercer
	applier  *Applier
}

func newFixture(t *testing.T) *fixture {
	dir := prototype.NewDirectory()
	rarity := prototype.NewEnumType("Rarity", "Common", "Rare", "Epic")
	dir.RegisterEnum(rarity)
	dir.AddAssetType("Icons").AddAsset("Sword")
	sounds := dir.AddAssetType("Sounds")
	sounds.AddAsset("Sword")
	sounds.AddAsset("Roar")
	dir.Properties().Register(&prototype.PropertyInfo{
		Name:     "Damage",
		DataType: prototype.PropertyInteger,
		Params:   []prototype.PropertyParamType{prototype.ParamInteger},
	})
	dir.Properties().Register(&prototype.PropertyInfo{Name: "Flying", DataType: prototype.PropertyBoolean})
	dir.Properties().Register(&prototype.PropertyInfo{
		Name:     "Summon",
		DataType: prototype.PropertyPrototype,
		Params:   []prototype.PropertyParamType{prototype.ParamAsset},
	})

	behavior := prototype.NewClass("Behavior", nil,
		prototype.FieldDef{Name: "Speed", Type: prototype.TypeFloat},
		prototype.FieldDef{Name: "Stages", Type: prototype.ArrayOf(prototype.TypeInt)},
	)
	loot := prototype.NewPrototypeClass("Loot", nil,
		prototype.FieldDef{Name: "Value", Type: prototype.TypeInt},
		prototype.FieldDef{Name: "Weight", Type: prototype.TypeFloat},
	)
	creature := prototype.NewPrototypeClass("Creature", nil,
		prototype.FieldDef{Name: "Health", Type: prototype.TypeInt},
		prototype.FieldDef{Name: "Name", Type: prototype.TypeString},
		prototype.FieldDef{Name: "Alive", Type: prototype.TypeBool},
		prototype.FieldDef{Name: "Scale", Type: prototype.TypeFloat},
		prototype.FieldDef{Name: "Tags", Type: prototype.ArrayOf(prototype.TypeString)},
		prototype.FieldDef{Name: "Grid", Type: prototype.ArrayOf(prototype.ArrayOf(prototype.TypeInt))},
		prototype.FieldDef{Name: "Position", Type: prototype.TypeVector3},
		prototype.FieldDef{Name: "Waypoints", Type: prototype.ArrayOf(prototype.TypeVector3)},
		prototype.FieldDef{Name: "Rarity", Type: prototype.EnumOf(rarity)},
		prototype.FieldDef{Name: "Icon", Type: prototype.TypeAsset},
		prototype.FieldDef{Name: "Guid", Type: prototype.TypePrototypeGuid},
		prototype.FieldDef{Name: "Title", Type: prototype.TypeLocaleString},
		prototype.FieldDef{Name: "Friend", Type: prototype.TypePrototypeRef},
		prototype.FieldDef{Name: "Friends", Type: prototype.ArrayOf(prototype.TypePrototypeRef)},
		prototype.FieldDef{Name: "Favorite", Type: prototype.PrototypeOf(loot)},
		prototype.FieldDef{Name: "Drops", Type: prototype.ArrayOf(prototype.PrototypeOf(loot))},
		prototype.FieldDef{Name: "Behavior", Type: prototype.ComplexOf(behavior)},
		prototype.FieldDef{Name: "Behaviors", Type: prototype.ArrayOf(prototype.ComplexOf(behavior))},
		prototype.FieldDef{Name: "Props", Type: prototype.TypeProperties},
	)
	dir.RegisterClass(behavior)
	dir.RegisterClass(loot)
	dir.RegisterClass(creature)

	coercer := NewCoercer(dir)
	f := &fixture{
		t:        t,
		dir:      dir,
		rarity:   rarity,
		behavior: behavior,
		loot:     loot,
		creature: creature,
		coercer:  coercer,
		applier:  NewApplier(coercer),
	}
	gold := f.newPrototype("Loot/Gold.prototype", loot, "")
	gold.Set("Value", int64(100))
	gold.Set("Weight", float64(0.5))
	f.newPrototype("Loot/Gem.prototype", loot, "")
	return f
}

// newPrototype declares and constructs a prototype, copying the fields of parent
func (f *fixture) newPrototype(name string, class *prototype.Class, parent string) *prototype.Prototype {
	var parentRef common.PrototypeID
	if parent != "" {
		parentRef = f.dir.PrototypeRefByName(parent)
	}
	id, err := f.dir.DeclarePrototype(name, 0, class, parentRef)
	if err != nil {
		f.t.Fatal(err)
	}
	p := class.NewPrototype()
	p.DataRef = id
	p.ParentDataRef = parentRef
	if pp := f.dir.Prototype(parentRef); pp != nil {
		prototype.CopyFields(p, pp)
	}
	if err := f.dir.SetPrototype(p); err != nil {
		f.t.Fatal(err)
	}
	return p
}

func (f *fixture) creatureWith(name string, fields map[string]interface{}) *prototype.Prototype {
	p := f.newPrototype(name, f.creature, "")
	for field, v := range fields {
		if err := p.Set(field, v); err != nil {
			f.t.Fatal(err)
		}
	}
	return p
}

// decodeJSON round-trips v through JSON the way patch files are decoded
func decodeJSON(t *testing.T, v interface{}) interface{} {
	if v == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw interface{}
	if err := dec.Decode(&raw); err != nil {
		t.Fatal(err)
	}
	return raw
}

func (f *fixture) entry(target string, path string, kind string, value interface{}, op Operation) *Entry {
	vt, err := ParseValueType(kind)
	if err != nil {
		f.t.Fatal(err)
	}
	v, err := NewValue(vt, decodeJSON(f.t, value))
	if err != nil {
		f.t.Fatal(err)
	}
	e := NewEntry(target, path, v, op)
	e.TargetRef = f.dir.PrototypeRefByName(target)
	return e
}

func stringValues(v interface{}) []string {
	arr := v.(*prototype.Array)
	res := []string{}
	for _, x := range arr.Values() {
		res = append(res, x.(string))
	}
	return res
}

func intValues(v interface{}) []int64 {
	arr := v.(*prototype.Array)
	res := []int64{}
	for _, x := range arr.Values() {
		res = append(res, x.(int64))
	}
	return res
}

func stringArray(values ...string) *prototype.Array {
	list := make([]interface{}, len(values))
	for i, v := range values {
		list[i] = v
	}
	a, _ := prototype.ArrayFrom(prototype.TypeString, list)
	return a
}
