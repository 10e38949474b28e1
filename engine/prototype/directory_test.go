package prototype

import (
	"testing"

	"github.com/bmizerany/assert"
	"github.com/xiaonanln/protopatch/engine/common"
)

func TestDeclarePrototype(t *testing.T) {
	dir := NewDirectory()
	class := NewPrototypeClass("Creature", nil)
	id, err := dir.DeclarePrototype("Entity/Creatures/Rat.prototype", 1001, class, common.InvalidPrototypeID)
	assert.Equal(t, nil, err)
	assert.Equal(t, common.HashPrototypeName("Entity/Creatures/Rat.prototype"), id)
	assert.Equal(t, id, dir.PrototypeRefByName("Entity/Creatures/Rat.prototype"))
	assert.Equal(t, id, dir.PrototypeRefByGuid(1001))
	assert.Equal(t, "Entity/Creatures/Rat.prototype", dir.PrototypeName(id))
	assert.Equal(t, class, dir.PrototypeClass(id))
	assert.T(t, dir.PrototypeRefByName("Entity/Creatures/Cat.prototype").IsNil(), "undeclared name")
	assert.T(t, dir.PrototypeRefByName("").IsNil(), "empty name")
	assert.T(t, dir.Prototype(id) == nil, "declared but not constructed")

	_, err = dir.DeclarePrototype("Entity/Creatures/Rat.prototype", 0, class, 0)
	assert.T(t, err != nil, "declared twice")
	_, err = dir.DeclarePrototype("Behavior", 0, NewClass("Behavior", nil), 0)
	assert.T(t, err != nil, "not a prototype class")

	p := class.NewPrototype()
	p.DataRef = id
	assert.Equal(t, nil, dir.SetPrototype(p))
	assert.T(t, dir.Prototype(id) == p, "constructed")

	p2 := class.NewPrototype()
	p2.DataRef = 12345
	assert.T(t, dir.SetPrototype(p2) != nil, "never declared")
}

func TestPrototypeRefsSorted(t *testing.T) {
	dir := NewDirectory()
	class := NewPrototypeClass("Creature", nil)
	for _, name := range []string{"c", "a", "b"} {
		dir.DeclarePrototype(name, 0, class, 0)
	}
	names := []string{}
	for _, id := range dir.PrototypeRefs() {
		names = append(names, dir.PrototypeName(id))
	}
	assert.Equal(t, []string{"a", "b", "c"}, names)
}

func TestFindAsset(t *testing.T) {
	dir := NewDirectory()
	icons := dir.AddAssetType("Icons")
	sword := icons.AddAsset("Sword")
	assert.T(t, dir.AddAssetType("Icons") == icons, "asset type registered once")

	id, ok := icons.FindAsset("Sword")
	assert.T(t, ok, "exact")
	assert.Equal(t, sword, id)
	id, ok = icons.FindAsset("sWORD")
	assert.T(t, ok, "case-insensitive")
	assert.Equal(t, sword, id)
	_, ok = icons.FindAsset("Shield")
	assert.T(t, !ok, "missing")
	_, ok = icons.FindAsset("")
	assert.T(t, !ok, "empty")

	name, ok := icons.AssetName(sword)
	assert.T(t, ok, "asset name")
	assert.Equal(t, "Sword", name)
	assert.Equal(t, 1, len(dir.AssetTypes()))
}

func TestDirectoryFindAsset(t *testing.T) {
	dir := NewDirectory()
	icons := dir.AddAssetType("Icons")
	upperSword := icons.AddAsset("SWORD")
	sword := dir.AddAssetType("Sounds").AddAsset("Sword")

	_, ok := icons.FindAssetExact("Sword")
	assert.T(t, !ok, "exact lookup must not ignore case")
	id, ok := icons.FindAssetIgnoreCase("Sword")
	assert.T(t, ok, "case-insensitive")
	assert.Equal(t, upperSword, id)

	id, ok = dir.FindAsset("Sword")
	assert.T(t, ok, "exact in a later type")
	assert.Equal(t, sword, id)
	id, ok = dir.FindAsset("sword")
	assert.T(t, ok, "case-insensitive in the first type")
	assert.Equal(t, upperSword, id)
	_, ok = dir.FindAsset("Shield")
	assert.T(t, !ok, "missing")
}

func TestInitialized(t *testing.T) {
	dir := NewDirectory()
	assert.T(t, !dir.IsInitialized(), "not yet")
	done := make(chan struct{})
	go func() {
		dir.Initialized().Wait()
		close(done)
	}()
	dir.MarkInitialized()
	dir.MarkInitialized()
	<-done
	assert.T(t, dir.IsInitialized(), "initialized")
}
