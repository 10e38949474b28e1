package prototype

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/bmizerany/assert"
	"github.com/pkg/errors"
	"github.com/xiaonanln/protopatch/engine/common"
)

// yamlConverter converts the plain YAML values used by these tests
type yamlConverter struct{}

func (c yamlConverter) Coerce(raw interface{}, t *Type) (interface{}, error) {
	if raw == nil {
		return t.Zero(), nil
	}
	if t.Accepts(raw) {
		return raw, nil
	}
	switch t.Kind {
	case KindInt:
		if n, ok := raw.(int); ok {
			return int64(n), nil
		}
	case KindFloat:
		switch x := raw.(type) {
		case int:
			return float64(x), nil
		case float64:
			return x, nil
		}
	case KindEnum:
		if s, ok := raw.(string); ok {
			if v, ok := t.Enum.Parse(s); ok {
				return v, nil
			}
		}
	case KindArray:
		if list, ok := raw.([]interface{}); ok {
			a := NewArray(t.Elem, len(list))
			for i, elem := range list {
				v, err := c.Coerce(elem, t.Elem)
				if err != nil {
					return nil, err
				}
				a.SetAt(i, v)
			}
			return a, nil
		}
	case KindComplex:
		if m, ok := raw.(map[string]interface{}); ok {
			o := t.Class.NewObject()
			for name, fv := range m {
				f := t.Class.Field(name)
				if f == nil {
					return nil, errors.Errorf("no field %s", name)
				}
				v, err := c.Coerce(fv, f.Type)
				if err != nil {
					return nil, err
				}
				f.Set(o, v)
			}
			return o, nil
		}
	}
	return nil, errors.Errorf("can not convert %v to %s", raw, t)
}

type recordingHooks struct {
	prechecked  []common.PrototypeID
	constructed []string
	children    []string
	dir         *Directory
}

func (h *recordingHooks) PreCheck(id common.PrototypeID) bool {
	h.prechecked = append(h.prechecked, id)
	return false
}

func (h *recordingHooks) PostConstruct(p *Prototype) {
	h.constructed = append(h.constructed, h.dir.PrototypeName(p.DataRef))
}

func (h *recordingHooks) RegisterChildPath(parent Record, child Record, field string, index int) {
	h.children = append(h.children, field)
}

const testSchema = `
enums:
  - name: Rarity
    values: [Common, Rare]
assetTypes:
  - name: Icons
    assets: [Sword, Shield]
properties:
  - name: Damage
    type: Integer
    params: [Integer]
classes:
  - name: Creature
    prototype: true
    fields:
      - {name: Health, type: Integer, default: 10}
      - {name: Tags, type: "String[]"}
      - {name: Behaviors, type: "Complex:Behavior[]"}
      - {name: Main, type: "Complex:Behavior"}
  - name: Behavior
    fields:
      - {name: Speed, type: Float, default: 1}
  - name: Boss
    parent: Creature
    fields:
      - {name: Rarity, type: "Enum:Rarity"}
`

const testPrototypes = `
prototypes:
  - name: Entity/Boss/Doom.prototype
    parent: Entity/Creature.prototype
    class: Boss
    fields:
      Rarity: rare
  - name: Entity/Creature.prototype
    class: Creature
    fields:
      Health: 50
      Tags: [a, b]
      Behaviors:
        - {Speed: 2}
        - {Speed: 3}
      Main: {Speed: 4}
  - name: Entity/Creature/Rat.prototype
    parent: Entity/Creature.prototype
    fields:
      Health: 5
      Unknown: 1
`

func TestLoaderBuild(t *testing.T) {
	dir := NewDirectory()
	hooks := &recordingHooks{dir: dir}
	loader := NewLoader(dir, yamlConverter{}, hooks)
	assert.Equal(t, nil, loader.Load("schema.yaml", []byte(testSchema)))
	assert.Equal(t, nil, loader.Load("prototypes.yaml", []byte(testPrototypes)))

	assert.Equal(t, nil, loader.Prepare())
	creatureRef := dir.PrototypeRefByName("Entity/Creature.prototype")
	assert.T(t, !creatureRef.IsNil(), "names are declared by Prepare")
	assert.T(t, dir.Prototype(creatureRef) == nil, "nothing is constructed by Prepare")
	assert.T(t, dir.Class("Boss").IsA(dir.Class("Creature")), "class hierarchy")
	assert.T(t, dir.Properties().Lookup("Damage") != nil, "property registered")

	assert.Equal(t, nil, loader.Build())
	assert.Equal(t, 3, loader.Built())
	assert.Equal(t, 0, loader.Failed())
	assert.Equal(t, []string{"Entity/Creature.prototype", "Entity/Boss/Doom.prototype", "Entity/Creature/Rat.prototype"}, hooks.constructed)
	assert.Equal(t, 3, len(hooks.prechecked))

	doom := dir.Prototype(dir.PrototypeRefByName("Entity/Boss/Doom.prototype"))
	assert.Equal(t, int64(50), doom.MustGet("Health"))
	assert.Equal(t, "Rare", doom.MustGet("Rarity").(EnumValue).String())
	assert.Equal(t, creatureRef, doom.ParentDataRef)

	rat := dir.Prototype(dir.PrototypeRefByName("Entity/Creature/Rat.prototype"))
	assert.Equal(t, "Creature", rat.Class().Name())
	assert.Equal(t, int64(5), rat.MustGet("Health"))
	assert.Equal(t, 2, rat.MustGet("Tags").(*Array).Len())

	// Behaviors[0], Behaviors[1], Main for each of the three prototypes
	assert.Equal(t, 9, len(hooks.children))

	assert.T(t, !dir.IsInitialized(), "not finished")
	loader.Finish()
	assert.T(t, dir.IsInitialized(), "finished")
}

func TestLoaderMissingParent(t *testing.T) {
	dir := NewDirectory()
	loader := NewLoader(dir, yamlConverter{}, nil)
	loader.Load("schema.yaml", []byte(testSchema))
	loader.Load("orphan.yaml", []byte(`
prototypes:
  - name: Orphan
    class: Creature
    parent: Nobody
  - name: Fine
    class: Creature
`))
	assert.Equal(t, nil, loader.Build())
	assert.Equal(t, 1, loader.Built())
	assert.Equal(t, 1, loader.Failed())
}

func TestLoaderBadClass(t *testing.T) {
	loader := NewLoader(NewDirectory(), yamlConverter{}, nil)
	loader.Load("bad.yaml", []byte(`
classes:
  - name: A
    parent: Missing
`))
	assert.T(t, loader.Build() != nil, "class with missing parent")
}

func TestLoaderDirectory(t *testing.T) {
	tmp, err := ioutil.TempDir("", "protopatch_loader")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(tmp)
	ioutil.WriteFile(filepath.Join(tmp, "1_schema.yaml"), []byte(testSchema), 0644)
	ioutil.WriteFile(filepath.Join(tmp, "2_prototypes.yml"), []byte(testPrototypes), 0644)
	ioutil.WriteFile(filepath.Join(tmp, "readme.txt"), []byte("not yaml: ["), 0644)

	dir := NewDirectory()
	loader := NewLoader(dir, yamlConverter{}, nil)
	assert.Equal(t, nil, loader.LoadDirectory(tmp))
	assert.Equal(t, nil, loader.Build())
	assert.Equal(t, 3, loader.Built())

	assert.T(t, loader.LoadDirectory(filepath.Join(tmp, "missing")) != nil, "missing directory")
}
