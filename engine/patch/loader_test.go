package patch

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/bmizerany/assert"
)

const testPatchFile = `[
	{"Enabled": true, "Prototype": "Creatures/Rat.prototype", "Path": "Health", "ValueType": "Integer", "Value": 75, "Description": "buff"},
	{"enabled": false, "targetName": "Creatures/Rat.prototype", "path": "Health", "valueKind": "Integer", "value": 1},
	{"enabled": true, "targetName": "Creatures/Nobody.prototype", "path": "Health", "valueKind": "Integer", "value": 1},
	{"enabled": true, "targetName": "Creatures/Rat.prototype", "path": "Health", "valueKind": "Integer", "value": 1, "extra": 1},
	{"enabled": true, "targetName": "Creatures/Rat.prototype", "valueKind": "Integer", "value": 1},
	{"enabled": true, "targetName": "Creatures/Rat.prototype", "path": "Tags", "valueKind": "String[]", "value": ["x"], "operation": "add"},
	{"enabled": true, "targetName": "Creatures/Rat.prototype", "path": "Props", "valueKind": "Properties", "value": {"Flying": true}, "description": null},
	{"enabled": true, "targetName": "Creatures/Rat.prototype", "path": "Name", "valueKind": "String", "value": "Rattus", "operation": "Merge"},
	{"enabled": true, "targetName": "Creatures/Rat.prototype", "path": "Health", "valueKind": "Double", "value": 1},
	{"enabled": true, "targetName": "Creatures/Rat.prototype", "path": "1abc", "valueKind": "Integer", "value": 1},
	"oops"
]`

func writeTestPatchDir(t *testing.T) string {
	dir, err := ioutil.TempDir("", "protopatch_patches")
	if err != nil {
		t.Fatal(err)
	}
	write := func(name string, content string) {
		if err := ioutil.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	write("PatchData_01.json", testPatchFile)
	write("PatchData_bad.json", `{"enabled": true}`)
	write("PatchData_broken.json", `[{"enabled": `)
	write("Other.json", `[]`)
	write("PatchData_notes.txt", `not a patch`)
	if err := os.Mkdir(filepath.Join(dir, "PatchData_dir.json"), 0755); err != nil {
		t.Fatal(err)
	}

	compressed := map[string]map[string]interface{}{
		"PatchData_02.json.zst":     {"enabled": true, "targetName": "Creatures/Rat.prototype", "path": "Scale", "valueKind": "Float", "value": 1.5},
		"PatchData_03.json.sz":      {"enabled": true, "targetName": "Creatures/Rat.prototype", "path": "Alive", "valueKind": "Boolean", "value": true},
		"PatchData_04.json.deflate": {"enabled": true, "targetName": "Loot/Gold.prototype", "path": "Value", "valueKind": "Integer", "value": 5},
	}
	for name, entry := range compressed {
		if err := WriteFile(filepath.Join(dir, name), []map[string]interface{}{entry}); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestLoadDirectory(t *testing.T) {
	f := newFixture(t)
	rat := newRat(f, nil)
	dir := writeTestPatchDir(t)
	defer os.RemoveAll(dir)

	table, stats, err := LoadDirectory(dir, "PatchData", f.dir)
	assert.Equal(t, nil, err)
	assert.Equal(t, LoadStats{
		Files:       6,
		FailedFiles: 2,
		Entries:     7,
		Disabled:    1,
		Invalid:     5,
		Unresolved:  1,
	}, stats)
	assert.Equal(t, 7, table.Len())

	gold := f.dir.PrototypeRefByName("Loot/Gold.prototype")
	assert.Equal(t, 2, len(table.Targets()))
	assert.Equal(t, rat.DataRef, table.Targets()[0])
	assert.Equal(t, true, table.Has(gold))
	assert.Equal(t, 6, len(table.Entries(rat.DataRef)))

	all := table.All()
	assert.Equal(t, 7, len(all))
	for i, e := range all {
		assert.Equal(t, i+1, e.Seq)
	}

	e := all[0]
	assert.Equal(t, "Creatures/Rat.prototype", e.Target)
	assert.Equal(t, "buff", e.Description)
	assert.Equal(t, "PatchData_01.json", e.Source)
	assert.Equal(t, int64(75), e.Value.Interface())
	assert.Equal(t, OpSet, e.Operation)
	assert.Equal(t, false, e.Applied())

	tags := all[1]
	assert.Equal(t, OpAdd, tags.Operation)
	assert.Equal(t, ValueType{Kind: ValueString, Array: true}, tags.Value.Type)

	props := all[2]
	assert.Equal(t, true, props.Applied())
	assert.Equal(t, "", props.Description)

	// unknown operations fall back to Set
	assert.Equal(t, OpSet, all[3].Operation)

	assert.Equal(t, "PatchData_02.json.zst", all[4].Source)
	assert.Equal(t, 1.5, all[4].Value.Interface())
	assert.Equal(t, true, all[5].Value.Interface())
	assert.Equal(t, gold, all[6].TargetRef)
}

func TestLoadDirectoryPrefix(t *testing.T) {
	f := newFixture(t)
	newRat(f, nil)
	dir := writeTestPatchDir(t)
	defer os.RemoveAll(dir)

	table, stats, err := LoadDirectory(dir, "Other", f.dir)
	assert.Equal(t, nil, err)
	assert.Equal(t, 1, stats.Files)
	assert.Equal(t, 0, table.Len())
}

func TestLoadDirectoryMissing(t *testing.T) {
	f := newFixture(t)
	table, _, err := LoadDirectory("/nonexistent/protopatch", "PatchData", f.dir)
	assert.NotEqual(t, nil, err)
	assert.Equal(t, 0, table.Len())
}

func TestDecodeEntry(t *testing.T) {
	raws, err := decodePatchData("test.json", []byte(testPatchFile))
	assert.Equal(t, nil, err)
	assert.Equal(t, 11, len(raws))

	_, err = decodeEntry("test.json", 3, raws[3])
	assert.T(t, IsLoadError(err), err)

	e, err := decodeEntry("test.json", 1, raws[1])
	assert.Equal(t, nil, err)
	assert.T(t, e == nil)

	_, err = decodePatchData("test.json", []byte(`{}`))
	assert.T(t, IsLoadError(err), err)
}

func TestIsPatchFile(t *testing.T) {
	assert.Equal(t, true, isPatchFile("PatchData.json", "PatchData"))
	assert.Equal(t, true, isPatchFile("PatchData_1.JSON", "PatchData"))
	assert.Equal(t, true, isPatchFile("PatchData_1.json.zst", "PatchData"))
	assert.Equal(t, false, isPatchFile("PatchData_1.zst", "PatchData"))
	assert.Equal(t, false, isPatchFile("Patch.json", "PatchData"))
}
