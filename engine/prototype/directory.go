package prototype

import (
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"
	trie_tst "github.com/xiaonanln/go-trie-tst"
	"github.com/xiaonanln/go-xnsyncutil/xnsyncutil"
	"github.com/xiaonanln/protopatch/engine/common"
)

// AssetType is a named group of assets
type AssetType struct {
	Name  string
	exact trie_tst.TST
	lower trie_tst.TST
	names map[common.AssetID]string
}

func newAssetType(name string) *AssetType {
	return &AssetType{Name: name, names: map[common.AssetID]string{}}
}

// AddAsset registers an asset name and returns its id
func (at *AssetType) AddAsset(name string) common.AssetID {
	id := common.HashAssetName(at.Name, name)
	at.exact.Sub(name).Val = id
	lt := at.lower.Sub(strings.ToLower(name))
	if lt.Val == nil {
		lt.Val = id
	}
	at.names[id] = name
	return id
}

// FindAsset looks up an asset by name, exact match first, then ignoring case
func (at *AssetType) FindAsset(name string) (common.AssetID, bool) {
	if id, ok := at.FindAssetExact(name); ok {
		return id, true
	}
	return at.FindAssetIgnoreCase(name)
}

// FindAssetExact looks up an asset by its exact name
func (at *AssetType) FindAssetExact(name string) (common.AssetID, bool) {
	return findAssetIn(&at.exact, name)
}

// FindAssetIgnoreCase looks up an asset by name ignoring case
func (at *AssetType) FindAssetIgnoreCase(name string) (common.AssetID, bool) {
	return findAssetIn(&at.lower, strings.ToLower(name))
}

func findAssetIn(tree *trie_tst.TST, key string) (common.AssetID, bool) {
	if key == "" {
		return common.InvalidAssetID, false
	}
	if t := tree.Sub(key); t.Val != nil {
		return t.Val.(common.AssetID), true
	}
	return common.InvalidAssetID, false
}

// AssetName returns the name of an asset of this type
func (at *AssetType) AssetName(id common.AssetID) (string, bool) {
	name, ok := at.names[id]
	return name, ok
}

type dataRef struct {
	id     common.PrototypeID
	name   string
	guid   common.PrototypeGuid
	class  *Class
	parent common.PrototypeID
	proto  *Prototype
}

// Directory is the registry of classes, enums, prototypes, assets and properties
//
// Prototype names are declared before the records are constructed, so names resolve
// to data refs while the objects themselves are still being built.
type Directory struct {
	mu         sync.Mutex
	classes    map[string]*Class
	enums      map[string]*EnumType
	refs       map[common.PrototypeID]*dataRef
	names      trie_tst.TST
	guids      map[common.PrototypeGuid]common.PrototypeID
	assetTypes []*AssetType
	assetIndex map[string]*AssetType
	locales    map[common.LocaleStringID]string
	properties *PropertyInfoTable

	initialized     *xnsyncutil.OneTimeCond
	initializedFlag xnsyncutil.AtomicBool
}

// NewDirectory creates an empty directory
func NewDirectory() *Directory {
	return &Directory{
		classes:     map[string]*Class{},
		enums:       map[string]*EnumType{},
		refs:        map[common.PrototypeID]*dataRef{},
		guids:       map[common.PrototypeGuid]common.PrototypeID{},
		assetIndex:  map[string]*AssetType{},
		locales:     map[common.LocaleStringID]string{},
		properties:  newPropertyInfoTable(),
		initialized: xnsyncutil.NewOneTimeCond(),
	}
}

// RegisterClass adds a class
func (d *Directory) RegisterClass(c *Class) {
	d.mu.Lock()
	d.classes[c.name] = c
	d.mu.Unlock()
}

// Class finds a class by name
func (d *Directory) Class(name string) *Class {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.classes[name]
}

// RegisterEnum adds an enum type
func (d *Directory) RegisterEnum(e *EnumType) {
	d.mu.Lock()
	d.enums[e.Name] = e
	d.mu.Unlock()
}

// Enum finds an enum type by name
func (d *Directory) Enum(name string) *EnumType {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.enums[name]
}

// Properties returns the property info table
func (d *Directory) Properties() *PropertyInfoTable {
	return d.properties
}

// DeclarePrototype records a prototype name, guid, class and parent before it is constructed
func (d *Directory) DeclarePrototype(name string, guid common.PrototypeGuid, class *Class, parent common.PrototypeID) (common.PrototypeID, error) {
	if name == "" {
		return common.InvalidPrototypeID, errors.New("empty prototype name")
	}
	if class == nil || !class.IsPrototypeClass() {
		return common.InvalidPrototypeID, errors.Errorf("prototype %s: class is not a prototype class", name)
	}

	id := common.HashPrototypeName(name)
	d.mu.Lock()
	defer d.mu.Unlock()
	if ref, ok := d.refs[id]; ok {
		return common.InvalidPrototypeID, errors.Errorf("prototype %s: id collides with %s", name, ref.name)
	}
	d.refs[id] = &dataRef{id: id, name: name, guid: guid, class: class, parent: parent}
	d.names.Sub(name).Val = id
	if !guid.IsNil() {
		d.guids[guid] = id
	}
	return id, nil
}

// SetPrototype attaches a constructed record to its declared data ref
func (d *Directory) SetPrototype(p *Prototype) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	ref := d.refs[p.DataRef]
	if ref == nil {
		return errors.Errorf("prototype %d was never declared", p.DataRef)
	}
	ref.proto = p
	return nil
}

// PrototypeRefByName resolves a prototype display name to its data ref
func (d *Directory) PrototypeRefByName(name string) common.PrototypeID {
	if name == "" {
		return common.InvalidPrototypeID
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if t := d.names.Sub(name); t.Val != nil {
		return t.Val.(common.PrototypeID)
	}
	return common.InvalidPrototypeID
}

// PrototypeRefByGuid resolves a prototype guid to its data ref
func (d *Directory) PrototypeRefByGuid(guid common.PrototypeGuid) common.PrototypeID {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.guids[guid]
}

// PrototypeName returns the display name of a data ref, or "" if undeclared
func (d *Directory) PrototypeName(id common.PrototypeID) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if ref := d.refs[id]; ref != nil {
		return ref.name
	}
	return ""
}

// PrototypeClass returns the class a data ref was declared with
func (d *Directory) PrototypeClass(id common.PrototypeID) *Class {
	d.mu.Lock()
	defer d.mu.Unlock()
	if ref := d.refs[id]; ref != nil {
		return ref.class
	}
	return nil
}

// ParentRef returns the declared parent of a data ref
func (d *Directory) ParentRef(id common.PrototypeID) common.PrototypeID {
	d.mu.Lock()
	defer d.mu.Unlock()
	if ref := d.refs[id]; ref != nil {
		return ref.parent
	}
	return common.InvalidPrototypeID
}

// Prototype returns the constructed record of a data ref, or nil
func (d *Directory) Prototype(id common.PrototypeID) *Prototype {
	d.mu.Lock()
	defer d.mu.Unlock()
	if ref := d.refs[id]; ref != nil {
		return ref.proto
	}
	return nil
}

// PrototypeRefs returns all declared data refs sorted by name
func (d *Directory) PrototypeRefs() []common.PrototypeID {
	d.mu.Lock()
	refs := make([]*dataRef, 0, len(d.refs))
	for _, ref := range d.refs {
		refs = append(refs, ref)
	}
	d.mu.Unlock()

	sort.Slice(refs, func(i, j int) bool {
		return refs[i].name < refs[j].name
	})
	ids := make([]common.PrototypeID, len(refs))
	for i, ref := range refs {
		ids[i] = ref.id
	}
	return ids
}

// AddAssetType registers an asset type, returning the existing one if already registered
func (d *Directory) AddAssetType(name string) *AssetType {
	d.mu.Lock()
	defer d.mu.Unlock()
	if at := d.assetIndex[name]; at != nil {
		return at
	}
	at := newAssetType(name)
	d.assetTypes = append(d.assetTypes, at)
	d.assetIndex[name] = at
	return at
}

// AssetType finds an asset type by name
func (d *Directory) AssetType(name string) *AssetType {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.assetIndex[name]
}

// FindAsset searches every asset type for name
//
// All types are searched for an exact match before any type is searched ignoring case,
// so an exact name in a later type wins over a differently cased name in an earlier one.
func (d *Directory) FindAsset(name string) (common.AssetID, bool) {
	ats := d.AssetTypes()
	for _, at := range ats {
		if id, ok := at.FindAssetExact(name); ok {
			return id, true
		}
	}
	for _, at := range ats {
		if id, ok := at.FindAssetIgnoreCase(name); ok {
			return id, true
		}
	}
	return common.InvalidAssetID, false
}

// AssetTypes returns all asset types in registration order
func (d *Directory) AssetTypes() []*AssetType {
	d.mu.Lock()
	defer d.mu.Unlock()
	ats := make([]*AssetType, len(d.assetTypes))
	copy(ats, d.assetTypes)
	return ats
}

// AddLocaleString registers a localized string
func (d *Directory) AddLocaleString(id common.LocaleStringID, text string) {
	d.mu.Lock()
	d.locales[id] = text
	d.mu.Unlock()
}

// LocaleString returns a localized string
func (d *Directory) LocaleString(id common.LocaleStringID) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	text, ok := d.locales[id]
	return text, ok
}

// MarkInitialized signals that every prototype has been constructed
func (d *Directory) MarkInitialized() {
	if d.initializedFlag.Load() {
		return
	}
	d.initializedFlag.Store(true)
	d.initialized.Signal()
}

// IsInitialized returns if MarkInitialized was called
func (d *Directory) IsInitialized() bool {
	return d.initializedFlag.Load()
}

// Initialized returns the one-time signal raised by MarkInitialized
func (d *Directory) Initialized() *xnsyncutil.OneTimeCond {
	return d.initialized
}
