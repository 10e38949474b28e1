package patch

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"io/ioutil"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/xiaonanln/protopatch/engine/common"
	"github.com/xiaonanln/protopatch/engine/compress"
	"github.com/xiaonanln/protopatch/engine/consts"
	"github.com/xiaonanln/protopatch/engine/gwlog"
)

//go:embed patch_entry.schema.json
var entrySchemaText string

var entrySchema = jsonschema.MustCompileString("patch_entry.schema.json", entrySchemaText)

// on-disk keys are matched ignoring case, older files use prototype and valueType
var entryKeys = map[string]string{
	"enabled":     "enabled",
	"targetname":  "targetName",
	"prototype":   "targetName",
	"path":        "path",
	"description": "description",
	"valuekind":   "valueKind",
	"valuetype":   "valueKind",
	"value":       "value",
	"operation":   "operation",
}

// NameResolver resolves prototype display names
type NameResolver interface {
	PrototypeRefByName(name string) common.PrototypeID
}

// Table is the set of loaded entries grouped by target prototype
type Table struct {
	entries map[common.PrototypeID][]*Entry
	targets []common.PrototypeID
	count   int
}

// NewTable creates an empty table
func NewTable() *Table {
	return &Table{entries: map[common.PrototypeID][]*Entry{}}
}

// Add appends an entry to its target's list
func (t *Table) Add(e *Entry) {
	list, ok := t.entries[e.TargetRef]
	if !ok {
		t.targets = append(t.targets, e.TargetRef)
	}
	t.entries[e.TargetRef] = append(list, e)
	t.count += 1
}

// Entries returns the entries of a target in load order
func (t *Table) Entries(id common.PrototypeID) []*Entry {
	return t.entries[id]
}

// Has returns if a target has any entry
func (t *Table) Has(id common.PrototypeID) bool {
	return len(t.entries[id]) > 0
}

// Targets returns all targets in the order of their first entry
func (t *Table) Targets() []common.PrototypeID {
	return t.targets
}

// Len returns the number of entries
func (t *Table) Len() int {
	return t.count
}

// All returns every entry in load order
func (t *Table) All() []*Entry {
	all := make([]*Entry, 0, t.count)
	for _, id := range t.targets {
		all = append(all, t.entries[id]...)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].Seq < all[j].Seq
	})
	return all
}

// LoadStats counts what happened while loading a patch directory
type LoadStats struct {
	Files       int
	FailedFiles int
	Entries     int
	Disabled    int
	Invalid     int
	Unresolved  int
}

// LoadDirectory reads every patch file in dir whose name starts with prefix
//
// Accepted files end in .json, optionally compressed as .json.zst, .json.sz or
// .json.deflate. A bad file or entry is logged and skipped, only an unreadable
// directory is an error.
func LoadDirectory(dir string, prefix string, resolver NameResolver) (*Table, LoadStats, error) {
	var stats LoadStats
	table := NewTable()

	infos, err := ioutil.ReadDir(dir)
	if err != nil {
		return table, stats, errors.Wrapf(err, "read patch directory %s", dir)
	}

	var names []string
	for _, info := range infos {
		if !info.Mode().IsRegular() || !isPatchFile(info.Name(), prefix) {
			continue
		}
		if info.Size() > consts.PATCH_FILE_MAX_SIZE {
			gwlog.Warnf("%v", loadError(info.Name(), -1, "file size %d exceeds %d", info.Size(), consts.PATCH_FILE_MAX_SIZE))
			stats.FailedFiles += 1
			continue
		}
		names = append(names, info.Name())
	}
	sort.Strings(names)

	seq := 0
	for _, name := range names {
		stats.Files += 1
		raws, err := readPatchFile(filepath.Join(dir, name))
		if err != nil {
			gwlog.Warnf("Failed to parse %s, skipping: %v", name, err)
			stats.FailedFiles += 1
			continue
		}

		for i, raw := range raws {
			e, err := decodeEntry(name, i, raw)
			if err != nil {
				gwlog.Warnf("%v", err)
				stats.Invalid += 1
				continue
			}
			if e == nil {
				stats.Disabled += 1
				continue
			}

			e.TargetRef = resolver.PrototypeRefByName(e.Target)
			if e.TargetRef.IsNil() {
				gwlog.Warnf("%v in patch %q of %s, skipping", resolutionError("prototype", e.Target), e.Description, name)
				stats.Unresolved += 1
				continue
			}
			seq += 1
			e.Seq = seq
			table.Add(e)
			stats.Entries += 1
		}
		gwlog.Debugf("Parsed patch data from %s", name)
	}

	gwlog.Infof("Loaded %d patches for %d prototypes from %d files (%d failed files, %d invalid, %d disabled, %d unresolved)",
		stats.Entries, len(table.targets), stats.Files, stats.FailedFiles, stats.Invalid, stats.Disabled, stats.Unresolved)
	return table, stats, nil
}

func isPatchFile(name string, prefix string) bool {
	if !strings.HasPrefix(name, prefix) {
		return false
	}
	_, plain := compress.ForFile(name)
	return strings.HasSuffix(strings.ToLower(plain), consts.PATCH_FILE_EXT)
}

// readPatchFile decompresses and decodes a patch file into its top-level entry list
func readPatchFile(path string) ([]interface{}, error) {
	name := filepath.Base(path)
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, loadError(name, -1, "%v", err)
	}
	if c, _ := compress.ForFile(name); c != nil {
		if data, err = c.Decompress(data); err != nil {
			return nil, loadError(name, -1, "decompress: %v", err)
		}
		if len(data) > consts.PATCH_FILE_MAX_SIZE {
			return nil, loadError(name, -1, "decompressed size %d exceeds %d", len(data), consts.PATCH_FILE_MAX_SIZE)
		}
	}
	return decodePatchData(name, data)
}

func decodePatchData(name string, data []byte) ([]interface{}, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc interface{}
	if err := dec.Decode(&doc); err != nil {
		return nil, loadError(name, -1, "%v", err)
	}
	list, ok := doc.([]interface{})
	if !ok {
		return nil, loadError(name, -1, "top level must be an array of entries, got %T", doc)
	}
	return list, nil
}

// decodeEntry validates and decodes one on-disk entry, returning nil for a disabled entry
func decodeEntry(file string, index int, raw interface{}) (*Entry, error) {
	m, ok := raw.(map[string]interface{})
	if !ok {
		return nil, loadError(file, index, "entry must be an object, got %T", raw)
	}
	m = normalizeKeys(m)
	if err := entrySchema.Validate(m); err != nil {
		return nil, loadError(file, index, "%v", err)
	}
	if !m["enabled"].(bool) {
		return nil, nil
	}

	vt, err := ParseValueType(m["valueKind"].(string))
	if err != nil {
		return nil, loadError(file, index, "%v", err)
	}
	value, err := NewValue(vt, m["value"])
	if err != nil {
		return nil, loadError(file, index, "%v", err)
	}

	opName, _ := m["operation"].(string)
	op, ok := ParseOperation(opName)
	if !ok {
		gwlog.Warnf("%s entry %d: unknown operation %q, using Set", file, index, opName)
	}

	e := NewEntry(m["targetName"].(string), m["path"].(string), value, op)
	e.Description, _ = m["description"].(string)
	e.Source = file
	if len(e.Segments) == 0 {
		return nil, loadError(file, index, "path %q has no segments", e.Path)
	}
	if vt.Kind == ValuePropertyCollection && !vt.Array {
		// property collections are served through CheckProperties, never applied to a field
		e.markApplied()
	}
	return e, nil
}

func normalizeKeys(m map[string]interface{}) map[string]interface{} {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	norm := make(map[string]interface{}, len(m))
	for _, k := range keys {
		if canon, ok := entryKeys[strings.ToLower(k)]; ok {
			norm[canon] = m[k]
		} else {
			norm[k] = m[k]
		}
	}
	return norm
}

// WriteFile is a helper writing entries as a patch file, compressed by the file extension
func WriteFile(path string, entries []map[string]interface{}) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	if c, _ := compress.ForFile(filepath.Base(path)); c != nil {
		if data, err = c.Compress(data); err != nil {
			return err
		}
	}
	return ioutil.WriteFile(path, data, os.FileMode(0644))
}
