package prototype

import (
	"testing"

	"github.com/bmizerany/assert"
	"github.com/xiaonanln/protopatch/engine/common"
)

func TestDump(t *testing.T) {
	dir := NewDirectory()
	rarity := NewEnumType("Rarity", "Common", "Rare")
	dir.RegisterEnum(rarity)
	sword := dir.AddAssetType("Icons").AddAsset("Sword")
	dir.AddLocaleString(7, "Rat")

	behavior := NewClass("Behavior", nil, FieldDef{Name: "Speed", Type: TypeFloat})
	creature := NewPrototypeClass("Creature", nil,
		FieldDef{Name: "Health", Type: TypeInt},
		FieldDef{Name: "Rarity", Type: EnumOf(rarity)},
		FieldDef{Name: "Icon", Type: TypeAsset},
		FieldDef{Name: "Title", Type: TypeLocaleString},
		FieldDef{Name: "Friend", Type: TypePrototypeRef},
		FieldDef{Name: "Position", Type: TypeVector3},
		FieldDef{Name: "Behaviors", Type: ArrayOf(ComplexOf(behavior))},
		FieldDef{Name: "Props", Type: TypeProperties},
	)
	dir.RegisterClass(creature)

	id, err := dir.DeclarePrototype("Creatures/Rat.prototype", 0, creature, 0)
	assert.Equal(t, nil, err)
	rat := creature.NewPrototype()
	rat.DataRef = id
	rat.Set("Health", int64(5))
	rat.Set("Rarity", EnumValue{Type: rarity, Index: 1})
	rat.Set("Icon", sword)
	rat.Set("Title", common.LocaleStringID(7))
	rat.Set("Friend", id)
	rat.Set("Position", common.Vector3{X: 1, Y: 2, Z: 3})
	b := behavior.NewObject()
	b.Set("Speed", 1.5)
	behaviors, _ := ArrayFrom(ComplexOf(behavior), []interface{}{b})
	rat.Set("Behaviors", behaviors)
	props := NewPropertyCollection()
	props.Set(PropertyID{Name: "Flying"}, true)
	rat.Set("Props", props)

	m := Dump(dir, rat)
	assert.Equal(t, int64(5), m["Health"])
	assert.Equal(t, "Rare", m["Rarity"])
	assert.Equal(t, "Sword (Icons)", m["Icon"])
	assert.Equal(t, "Rat", m["Title"])
	assert.Equal(t, "Creatures/Rat.prototype", m["Friend"])
	assert.Equal(t, []float64{1, 2, 3}, m["Position"])
	assert.Equal(t, []interface{}{map[string]interface{}{"Speed": 1.5}}, m["Behaviors"])
	assert.Equal(t, map[string]interface{}{"Flying[0 0 0 0]": true}, m["Props"])
	_, hasParent := m["ParentDataRef"]
	assert.Equal(t, false, hasParent)
}
