package prototype

import (
	"io/ioutil"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/xiaonanln/protopatch/engine/common"
	"github.com/xiaonanln/protopatch/engine/consts"
	"github.com/xiaonanln/protopatch/engine/gwlog"
	"gopkg.in/yaml.v3"
)

// Hooks is called by the loader while it constructs prototypes
type Hooks interface {
	// PreCheck is called before a prototype's own fields override the inherited ones
	PreCheck(id common.PrototypeID) bool
	// PostConstruct is called once a prototype is complete
	PostConstruct(p *Prototype)
	// RegisterChildPath is called for every nested object, index is -1 for plain fields
	RegisterChildPath(parent Record, child Record, field string, index int)
}

// Converter converts loosely typed definition values to field values
type Converter interface {
	Coerce(raw interface{}, t *Type) (interface{}, error)
}

type definitionFile struct {
	Enums         []enumDef              `yaml:"enums"`
	AssetTypes    []assetTypeDef         `yaml:"assetTypes"`
	Properties    []propertyDef          `yaml:"properties"`
	Classes       []classDef             `yaml:"classes"`
	LocaleStrings map[uint64]string      `yaml:"localeStrings"`
	Prototypes    []*prototypeDef        `yaml:"prototypes"`
	Extra         map[string]interface{} `yaml:",inline"`
}

type enumDef struct {
	Name   string   `yaml:"name"`
	Values []string `yaml:"values"`
}

type assetTypeDef struct {
	Name   string   `yaml:"name"`
	Assets []string `yaml:"assets"`
}

type propertyDef struct {
	Name    string      `yaml:"name"`
	Type    string      `yaml:"type"`
	Params  []string    `yaml:"params"`
	Default interface{} `yaml:"default"`
}

type classDef struct {
	Name      string     `yaml:"name"`
	Parent    string     `yaml:"parent"`
	Prototype bool       `yaml:"prototype"`
	Fields    []fieldDef `yaml:"fields"`
}

type fieldDef struct {
	Name    string      `yaml:"name"`
	Type    string      `yaml:"type"`
	Default interface{} `yaml:"default"`
}

type prototypeDef struct {
	Name   string                 `yaml:"name"`
	Guid   uint64                 `yaml:"guid"`
	Class  string                 `yaml:"class"`
	Parent string                 `yaml:"parent"`
	Fields map[string]interface{} `yaml:"fields"`

	source string
	id     common.PrototypeID
	state  int
}

const (
	defDeclared = iota
	defBuilding
	defBuilt
	defFailed
)

// Loader builds a Directory from YAML definition files
//
// Schema (enums, asset types, properties, classes) is registered first, then every
// prototype name is declared, then prototypes are constructed parent-first.
type Loader struct {
	dir   *Directory
	conv  Converter
	hooks Hooks

	files  []*definitionFile
	protos []*prototypeDef
	byName map[string]*prototypeDef

	prepared bool
	built    int
	failed   int
}

// NewLoader creates a loader filling dir, hooks may be nil
func NewLoader(dir *Directory, conv Converter, hooks Hooks) *Loader {
	return &Loader{
		dir:    dir,
		conv:   conv,
		hooks:  hooks,
		byName: map[string]*prototypeDef{},
	}
}

// LoadDirectory reads every .yaml / .yml file in path, in name order
func (l *Loader) LoadDirectory(path string) error {
	infos, err := ioutil.ReadDir(path)
	if err != nil {
		return errors.Wrapf(err, "read prototype directory %s", path)
	}

	var names []string
	for _, info := range infos {
		ext := strings.ToLower(filepath.Ext(info.Name()))
		if info.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		names = append(names, info.Name())
	}
	sort.Strings(names)

	for _, name := range names {
		data, err := ioutil.ReadFile(filepath.Join(path, name))
		if err != nil {
			return errors.Wrapf(err, "read %s", name)
		}
		if err := l.Load(name, data); err != nil {
			return err
		}
	}
	return nil
}

// Load parses one definition file
func (l *Loader) Load(source string, data []byte) error {
	var file definitionFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return errors.Wrapf(err, "parse %s", source)
	}
	for key := range file.Extra {
		gwlog.Warnf("%s: unknown section %s", source, key)
	}
	for _, def := range file.Prototypes {
		def.source = source
	}
	l.files = append(l.files, &file)
	if consts.DEBUG_PROTOTYPE_LOAD {
		gwlog.Debugf("%s: %d classes, %d prototypes", source, len(file.Classes), len(file.Prototypes))
	}
	return nil
}

// Prepare registers the schema and declares every prototype name without constructing any record
//
// Names resolve through the directory once Prepare returns, so patch targets can be
// loaded before Build.
func (l *Loader) Prepare() error {
	if l.prepared {
		return nil
	}
	for _, file := range l.files {
		for _, e := range file.Enums {
			l.dir.RegisterEnum(NewEnumType(e.Name, e.Values...))
		}
		for _, at := range file.AssetTypes {
			assetType := l.dir.AddAssetType(at.Name)
			for _, name := range at.Assets {
				assetType.AddAsset(name)
			}
		}
		for id, text := range file.LocaleStrings {
			l.dir.AddLocaleString(common.LocaleStringID(id), text)
		}
	}

	for _, file := range l.files {
		for _, pd := range file.Properties {
			if err := l.registerProperty(pd); err != nil {
				return err
			}
		}
	}

	if err := l.buildClasses(); err != nil {
		return err
	}
	if err := l.declarePrototypes(); err != nil {
		return err
	}
	l.prepared = true
	return nil
}

// Build constructs every prototype, calling Prepare first if needed
//
// A prototype that fails to build is logged and skipped along with its descendants.
func (l *Loader) Build() error {
	if err := l.Prepare(); err != nil {
		return err
	}
	for _, def := range l.protos {
		l.construct(def)
	}
	gwlog.Infof("prototype loader: %d prototypes built, %d failed", l.built, l.failed)
	return nil
}

// Finish resolves the directory's initialized signal
func (l *Loader) Finish() {
	l.dir.MarkInitialized()
}

// Built returns the number of constructed prototypes
func (l *Loader) Built() int {
	return l.built
}

// Failed returns the number of prototypes that could not be constructed
func (l *Loader) Failed() int {
	return l.failed
}

func (l *Loader) registerProperty(pd propertyDef) error {
	dataType, ok := ParsePropertyDataType(pd.Type)
	if !ok {
		return errors.Errorf("property %s: unknown type %q", pd.Name, pd.Type)
	}
	if len(pd.Params) > MaxPropertyParams {
		return errors.Errorf("property %s: too many params", pd.Name)
	}
	info := &PropertyInfo{Name: pd.Name, DataType: dataType}
	for _, ps := range pd.Params {
		pt, ok := ParsePropertyParamType(ps)
		if !ok {
			return errors.Errorf("property %s: unknown param type %q", pd.Name, ps)
		}
		info.Params = append(info.Params, pt)
	}
	if pd.Default != nil {
		v, err := l.conv.Coerce(pd.Default, info.ValueType())
		if err != nil {
			return errors.Wrapf(err, "property %s: default", pd.Name)
		}
		info.Default = v
	}
	l.dir.Properties().Register(info)
	return nil
}

// buildClasses registers classes in passes so that parents and field classes may be declared in any order
func (l *Loader) buildClasses() error {
	var pending []classDef
	for _, file := range l.files {
		pending = append(pending, file.Classes...)
	}

	for len(pending) > 0 {
		var next []classDef
		var lastErr error
		for _, cd := range pending {
			c, err := l.buildClass(cd)
			if err != nil {
				lastErr = err
				next = append(next, cd)
				continue
			}
			l.dir.RegisterClass(c)
		}
		if len(next) == len(pending) {
			return errors.Wrapf(lastErr, "%d classes can not be built", len(next))
		}
		pending = next
	}
	return nil
}

func (l *Loader) buildClass(cd classDef) (*Class, error) {
	var parent *Class
	if cd.Parent != "" {
		parent = l.dir.Class(cd.Parent)
		if parent == nil {
			return nil, errors.Errorf("class %s: parent %s not found", cd.Name, cd.Parent)
		}
	}

	defs := make([]FieldDef, 0, len(cd.Fields))
	for _, fd := range cd.Fields {
		t, err := ParseType(fd.Type, l.dir)
		if err != nil {
			return nil, errors.Wrapf(err, "class %s: field %s", cd.Name, fd.Name)
		}
		def := FieldDef{Name: fd.Name, Type: t}
		if fd.Default != nil {
			v, err := l.conv.Coerce(fd.Default, t)
			if err != nil {
				return nil, errors.Wrapf(err, "class %s: field %s default", cd.Name, fd.Name)
			}
			def.Default = v
		}
		defs = append(defs, def)
	}

	isPrototype := cd.Prototype || (parent != nil && parent.IsPrototypeClass())
	if isPrototype {
		return NewPrototypeClass(cd.Name, parent, defs...), nil
	}
	return NewClass(cd.Name, parent, defs...), nil
}

func (l *Loader) declarePrototypes() error {
	for _, file := range l.files {
		for _, def := range file.Prototypes {
			if _, ok := l.byName[def.Name]; ok {
				return errors.Errorf("%s: prototype %s declared twice", def.source, def.Name)
			}
			l.byName[def.Name] = def
			l.protos = append(l.protos, def)
		}
	}

	// classes are inherited from parents, so resolve them parent-first
	var classOf func(def *prototypeDef, depth int) (*Class, error)
	classOf = func(def *prototypeDef, depth int) (*Class, error) {
		if def.Class != "" {
			c := l.dir.Class(def.Class)
			if c == nil {
				return nil, errors.Errorf("prototype %s: class %s not found", def.Name, def.Class)
			}
			return c, nil
		}
		parent := l.byName[def.Parent]
		if parent == nil || depth > len(l.protos) {
			return nil, errors.Errorf("prototype %s: no class and no usable parent", def.Name)
		}
		return classOf(parent, depth+1)
	}

	for _, def := range l.protos {
		class, err := classOf(def, 0)
		if err != nil {
			return err
		}
		var parentRef common.PrototypeID
		if def.Parent != "" {
			parentRef = common.HashPrototypeName(def.Parent)
		}
		id, err := l.dir.DeclarePrototype(def.Name, common.PrototypeGuid(def.Guid), class, parentRef)
		if err != nil {
			return errors.Wrap(err, def.source)
		}
		def.id = id
	}
	return nil
}

func (l *Loader) construct(def *prototypeDef) bool {
	switch def.state {
	case defBuilt:
		return true
	case defFailed:
		return false
	case defBuilding:
		gwlog.Errorf("%s: prototype %s inherits from itself", def.source, def.Name)
		def.state = defFailed
		l.failed += 1
		return false
	}
	def.state = defBuilding

	var parent *Prototype
	if def.Parent != "" {
		parentDef := l.byName[def.Parent]
		if parentDef == nil {
			return l.fail(def, errors.Errorf("parent %s not found", def.Parent))
		}
		if !l.construct(parentDef) {
			return l.fail(def, errors.Errorf("parent %s failed to build", def.Parent))
		}
		parent = l.dir.Prototype(parentDef.id)
	}

	class := l.dir.PrototypeClass(def.id)
	if parent != nil && !class.IsA(parent.Class()) && !parent.Class().IsA(class) {
		gwlog.Warnf("%s: prototype %s of class %s inherits from %s of unrelated class %s", def.source, def.Name, class, def.Parent, parent.Class())
	}

	p := class.NewPrototype()
	p.DataRef = def.id
	if parent != nil {
		p.ParentDataRef = parent.DataRef
		CopyFields(p, parent)
	}

	if l.hooks != nil && l.hooks.PreCheck(def.id) && consts.DEBUG_PROTOTYPE_LOAD {
		gwlog.Debugf("prototype %s has patches", def.Name)
	}

	names := make([]string, 0, len(def.Fields))
	for name := range def.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		f := class.Field(name)
		if f == nil {
			gwlog.Warnf("%s: prototype %s: class %s has no field %s", def.source, def.Name, class, name)
			continue
		}
		v, err := l.conv.Coerce(def.Fields[name], f.Type)
		if err == nil {
			err = f.Set(&p.Object, v)
		}
		if err != nil {
			gwlog.Errorf("%s: prototype %s: field %s: %v", def.source, def.Name, name, err)
		}
	}

	if err := l.dir.SetPrototype(p); err != nil {
		return l.fail(def, err)
	}
	if l.hooks != nil {
		l.registerChildren(p)
	}
	def.state = defBuilt
	l.built += 1

	if l.hooks != nil {
		l.hooks.PostConstruct(p)
	}
	return true
}

func (l *Loader) fail(def *prototypeDef, err error) bool {
	gwlog.Errorf("%s: prototype %s: %v", def.source, def.Name, err)
	def.state = defFailed
	l.failed += 1
	return false
}

// registerChildren reports every nested object reachable from rec through fields and 1-dimensional arrays
func (l *Loader) registerChildren(rec Record) {
	o := rec.Base()
	for _, f := range o.class.fields {
		switch v := f.Get(o).(type) {
		case *Array:
			for i, elem := range v.Values() {
				if child := nestedRecord(elem); child != nil {
					l.hooks.RegisterChildPath(rec, child, f.Name, i)
					l.registerChildren(child)
				}
			}
		default:
			if child := nestedRecord(v); child != nil {
				l.hooks.RegisterChildPath(rec, child, f.Name, -1)
				l.registerChildren(child)
			}
		}
	}
}

func nestedRecord(v interface{}) Record {
	switch x := v.(type) {
	case *Object:
		if x != nil {
			return x
		}
	case *Prototype:
		if x != nil && x.IsEmbedded() {
			return x
		}
	}
	return nil
}
