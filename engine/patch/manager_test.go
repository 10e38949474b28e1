package patch

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bmizerany/assert"
	"github.com/xiaonanln/protopatch/engine/prototype"
)

const testDefinitions = `
enums:
  - name: Rarity
    values: [Common, Rare, Epic]
assetTypes:
  - name: Icons
    assets: [Sword, Shield]
properties:
  - name: Damage
    type: Integer
    params: [Integer]
classes:
  - name: Behavior
    fields:
      - {name: Speed, type: Float}
  - name: Creature
    prototype: true
    fields:
      - {name: Health, type: Integer, default: 10}
      - {name: Tags, type: "String[]"}
      - {name: Rarity, type: "Enum:Rarity"}
      - {name: Icon, type: Asset}
      - {name: Behavior, type: "Complex:Behavior"}
      - {name: Behaviors, type: "Complex:Behavior[]"}
prototypes:
  - name: Creatures/GiantRat.prototype
    parent: Creatures/Rat.prototype
    fields:
      Rarity: rare
  - name: Creatures/Base.prototype
    class: Creature
    fields:
      Health: 20
      Tags: [base]
      Behavior: {Speed: 1}
      Behaviors: [{Speed: 3}]
  - name: Creatures/Rat.prototype
    parent: Creatures/Base.prototype
    fields:
      Icon: Sword
`

var testPatches = []map[string]interface{}{
	{"enabled": true, "targetName": "Creatures/GiantRat.prototype", "path": "Tags[0]", "valueKind": "String", "value": "giant"},
	{"enabled": true, "targetName": "Creatures/GiantRat.prototype", "path": "Behavior.Nope", "valueKind": "Integer", "value": 1},
	{"enabled": true, "targetName": "Creatures/Base.prototype", "path": "Health", "valueKind": "Integer", "value": 30},
	{"enabled": true, "targetName": "Creatures/Base.prototype", "path": "Tags", "valueKind": "String", "value": "patched", "operation": "Add"},
	{"enabled": true, "targetName": "Creatures/Rat.prototype", "path": "Behavior.Speed", "valueKind": "Float", "value": 2.5},
	{"enabled": true, "targetName": "Creatures/Rat.prototype", "path": "Properties", "valueKind": "Properties", "value": map[string]interface{}{"Damage": []interface{}{1, 7}}},
	{"enabled": true, "targetName": "Creatures/Unknown.prototype", "path": "Health", "valueKind": "Integer", "value": 1},
}

type managerFixture struct {
	t      *testing.T
	dir    *prototype.Directory
	mgr    *Manager
	loader *prototype.Loader
	tmp    string
}

func newManagerFixture(t *testing.T, opts Options) *managerFixture {
	tmp, err := ioutil.TempDir("", "protopatch_manager")
	if err != nil {
		t.Fatal(err)
	}
	if err := WriteFile(filepath.Join(tmp, "PatchData_test.json.zst"), testPatches); err != nil {
		t.Fatal(err)
	}

	dir := prototype.NewDirectory()
	mgr := NewManager(dir, tmp, opts)
	loader := prototype.NewLoader(dir, mgr.Coercer(), mgr)
	if err := loader.Load("creatures.yaml", []byte(testDefinitions)); err != nil {
		t.Fatal(err)
	}
	if err := loader.Prepare(); err != nil {
		t.Fatal(err)
	}
	return &managerFixture{t: t, dir: dir, mgr: mgr, loader: loader, tmp: tmp}
}

func (mf *managerFixture) close() {
	os.RemoveAll(mf.tmp)
}

func (mf *managerFixture) proto(name string) *prototype.Prototype {
	p := mf.dir.Prototype(mf.dir.PrototypeRefByName(name))
	if p == nil {
		mf.t.Fatalf("prototype %s not built", name)
	}
	return p
}

func (mf *managerFixture) entry(target string, path string) *Entry {
	for _, e := range mf.mgr.Table().Entries(mf.dir.PrototypeRefByName(target)) {
		if e.Path == path {
			return e
		}
	}
	mf.t.Fatalf("no entry %s %s", target, path)
	return nil
}

func TestManagerInline(t *testing.T) {
	mf := newManagerFixture(t, Options{})
	defer mf.close()
	assert.Equal(t, nil, mf.mgr.Initialize(true))
	assert.Equal(t, 6, mf.mgr.Table().Len())
	assert.Equal(t, true, mf.mgr.PreCheck(mf.dir.PrototypeRefByName("Creatures/Rat.prototype")))

	assert.Equal(t, nil, mf.loader.Build())
	mf.loader.Finish()
	assert.Equal(t, 3, mf.loader.Built())

	base := mf.proto("Creatures/Base.prototype")
	rat := mf.proto("Creatures/Rat.prototype")
	giant := mf.proto("Creatures/GiantRat.prototype")

	assert.Equal(t, int64(30), base.MustGet("Health"))
	assert.Equal(t, []string{"base", "patched"}, stringValues(base.MustGet("Tags")))
	assert.Equal(t, float64(1), base.MustGet("Behavior").(*prototype.Object).MustGet("Speed"))

	// children are built from their patched parents
	assert.Equal(t, int64(30), rat.MustGet("Health"))
	assert.Equal(t, float64(2.5), rat.MustGet("Behavior").(*prototype.Object).MustGet("Speed"))
	assert.Equal(t, []string{"giant", "patched"}, stringValues(giant.MustGet("Tags")))
	assert.Equal(t, float64(2.5), giant.MustGet("Behavior").(*prototype.Object).MustGet("Speed"))
	assert.Equal(t, "Rare", giant.MustGet("Rarity").(prototype.EnumValue).String())

	for _, p := range []*prototype.Prototype{base, rat, giant} {
		assert.Equal(t, Patched, mf.mgr.State(p.DataRef))
	}

	failed := mf.entry("Creatures/GiantRat.prototype", "Behavior.Nope")
	err := mf.mgr.Failure(failed)
	assert.T(t, IsNavigationError(err), err)
	assert.T(t, strings.Contains(err.Error(), "Creatures/GiantRat.prototype.Behavior has no field Nope"), err)
	assert.Equal(t, nil, mf.mgr.Failure(mf.entry("Creatures/Base.prototype", "Health")))

	assert.Equal(t, Report{
		Load:       LoadStats{Files: 1, Entries: 6, Unresolved: 1},
		Loaded:     6,
		Applied:    5,
		Failed:     1,
		Properties: 1,
	}, mf.mgr.Report())
}

func TestManagerDeferred(t *testing.T) {
	mf := newManagerFixture(t, Options{Deferred: true})
	defer mf.close()
	assert.Equal(t, nil, mf.mgr.Initialize(true))
	assert.Equal(t, nil, mf.loader.Build())

	base := mf.proto("Creatures/Base.prototype")
	assert.Equal(t, int64(20), base.MustGet("Health"))
	assert.Equal(t, Unseen, mf.mgr.State(base.DataRef))

	mf.mgr.ApplyWhenInitialized(mf.dir.Initialized())
	mf.loader.Finish()
	mf.mgr.Wait()

	rat := mf.proto("Creatures/Rat.prototype")
	giant := mf.proto("Creatures/GiantRat.prototype")
	assert.Equal(t, int64(30), base.MustGet("Health"))
	assert.Equal(t, float64(2.5), rat.MustGet("Behavior").(*prototype.Object).MustGet("Speed"))

	// copies were taken before patching
	assert.Equal(t, int64(20), rat.MustGet("Health"))
	assert.Equal(t, []string{"giant"}, stringValues(giant.MustGet("Tags")))
	assert.Equal(t, Patched, mf.mgr.State(giant.DataRef))

	r := mf.mgr.Report()
	assert.Equal(t, 5, r.Applied)
	assert.Equal(t, 1, r.Failed)
	assert.Equal(t, 0, r.Pending)

	// a second start is ignored
	mf.mgr.ApplyWhenInitialized(mf.dir.Initialized())
	mf.mgr.Wait()
}

func TestManagerDisabled(t *testing.T) {
	mf := newManagerFixture(t, Options{})
	defer mf.close()
	assert.Equal(t, nil, mf.mgr.Initialize(false))
	assert.Equal(t, nil, mf.loader.Build())
	mf.loader.Finish()

	base := mf.proto("Creatures/Base.prototype")
	assert.Equal(t, int64(20), base.MustGet("Health"))
	assert.Equal(t, false, mf.mgr.PreCheck(base.DataRef))
	_, ok := mf.mgr.CheckProperties(mf.dir.PrototypeRefByName("Creatures/Rat.prototype"))
	assert.Equal(t, false, ok)

	// nothing to wait for
	mf.mgr.ApplyWhenInitialized(mf.dir.Initialized())
	mf.mgr.Wait()
	assert.Equal(t, 0, mf.mgr.Report().Loaded)
}

func TestManagerMissingDirectory(t *testing.T) {
	dir := prototype.NewDirectory()
	mgr := NewManager(dir, "/nonexistent/protopatch", Options{})
	assert.NotEqual(t, nil, mgr.Initialize(true))
	assert.Equal(t, false, mgr.PreCheck(dir.PrototypeRefByName("Creatures/Rat.prototype")))
}

func TestManagerCheckProperties(t *testing.T) {
	mf := newManagerFixture(t, Options{})
	defer mf.close()
	assert.Equal(t, nil, mf.mgr.Initialize(true))
	assert.Equal(t, nil, mf.loader.Build())

	pc, ok := mf.mgr.CheckProperties(mf.dir.PrototypeRefByName("Creatures/Rat.prototype"))
	assert.Equal(t, true, ok)
	v, ok := pc.Get(prototype.PropertyID{Name: "Damage", Params: [prototype.MaxPropertyParams]int64{1}})
	assert.Equal(t, true, ok)
	assert.Equal(t, int64(7), v)

	// every call builds a new collection
	pc2, _ := mf.mgr.CheckProperties(mf.dir.PrototypeRefByName("Creatures/Rat.prototype"))
	assert.T(t, pc != pc2)

	_, ok = mf.mgr.CheckProperties(mf.dir.PrototypeRefByName("Creatures/Base.prototype"))
	assert.Equal(t, false, ok)
	_, ok = mf.mgr.CheckProperties(0)
	assert.Equal(t, false, ok)
}

func TestManagerChildPath(t *testing.T) {
	mf := newManagerFixture(t, Options{})
	defer mf.close()
	assert.Equal(t, nil, mf.mgr.Initialize(true))
	assert.Equal(t, nil, mf.loader.Build())

	rat := mf.proto("Creatures/Rat.prototype")
	owner, path, ok := mf.mgr.ChildPath(rat.MustGet("Behavior").(*prototype.Object))
	assert.Equal(t, true, ok)
	assert.Equal(t, rat, owner)
	assert.Equal(t, "Behavior", path)

	b0, _ := rat.MustGet("Behaviors").(*prototype.Array).At(0)
	_, path, ok = mf.mgr.ChildPath(b0.(*prototype.Object))
	assert.Equal(t, true, ok)
	assert.Equal(t, "Behaviors[0]", path)

	owner, path, ok = mf.mgr.ChildPath(rat)
	assert.Equal(t, true, ok)
	assert.Equal(t, rat, owner)
	assert.Equal(t, "", path)

	_, _, ok = mf.mgr.ChildPath(mf.dir.Class("Behavior").NewObject())
	assert.Equal(t, false, ok)
}
