package prototype

import (
	"fmt"
	"sort"
	"strings"

	"github.com/xiaonanln/protopatch/engine/common"
)

// MaxPropertyParams is the max number of params a property id carries
const MaxPropertyParams = 4

// PropertyDataType is the type of a property value
type PropertyDataType int

const (
	PropertyInteger PropertyDataType = iota
	PropertyReal
	PropertyBoolean
	PropertyPrototype
	PropertyAsset
)

var propertyDataTypeNames = []string{"Integer", "Real", "Boolean", "Prototype", "Asset"}

func (t PropertyDataType) String() string {
	if int(t) < len(propertyDataTypeNames) {
		return propertyDataTypeNames[t]
	}
	return "Invalid"
}

// ParsePropertyDataType parses a property data type name, ignoring case
func ParsePropertyDataType(s string) (PropertyDataType, bool) {
	for i, name := range propertyDataTypeNames {
		if strings.EqualFold(name, s) {
			return PropertyDataType(i), true
		}
	}
	return 0, false
}

// PropertyParamType is the type of a property id param
type PropertyParamType int

const (
	ParamInteger PropertyParamType = iota
	ParamAsset
	ParamPrototype
)

// ParsePropertyParamType parses a property param type name, ignoring case
func ParsePropertyParamType(s string) (PropertyParamType, bool) {
	switch strings.ToLower(s) {
	case "integer", "int":
		return ParamInteger, true
	case "asset":
		return ParamAsset, true
	case "prototype":
		return ParamPrototype, true
	}
	return 0, false
}

// PropertyInfo describes one property kind
type PropertyInfo struct {
	Name     string
	DataType PropertyDataType
	Params   []PropertyParamType
	Default  interface{}
}

// Zero returns the default value of the property
func (info *PropertyInfo) Zero() interface{} {
	if info.Default != nil {
		return info.Default
	}
	switch info.DataType {
	case PropertyInteger:
		return int64(0)
	case PropertyReal:
		return float64(0)
	case PropertyBoolean:
		return false
	case PropertyPrototype:
		return common.InvalidPrototypeID
	case PropertyAsset:
		return common.InvalidAssetID
	}
	return nil
}

// ValueType returns the field type property values are coerced to
func (info *PropertyInfo) ValueType() *Type {
	switch info.DataType {
	case PropertyReal:
		return TypeFloat
	case PropertyBoolean:
		return TypeBool
	case PropertyPrototype:
		return TypePrototypeRef
	case PropertyAsset:
		return TypeAsset
	}
	return TypeInt
}

// ParamType returns the field type of param i
func (info *PropertyInfo) ParamType(i int) *Type {
	switch info.Params[i] {
	case ParamAsset:
		return TypeAsset
	case ParamPrototype:
		return TypePrototypeRef
	}
	return TypeInt
}

// PropertyInfoTable is the registry of known properties by name
type PropertyInfoTable struct {
	infos map[string]*PropertyInfo
}

func newPropertyInfoTable() *PropertyInfoTable {
	return &PropertyInfoTable{infos: map[string]*PropertyInfo{}}
}

// Register adds a property info
func (t *PropertyInfoTable) Register(info *PropertyInfo) {
	t.infos[info.Name] = info
}

// Lookup finds a property info by name
func (t *PropertyInfoTable) Lookup(name string) *PropertyInfo {
	return t.infos[name]
}

// PropertyID is a property name with its params
type PropertyID struct {
	Name   string
	Params [MaxPropertyParams]int64
}

func (id PropertyID) String() string {
	return fmt.Sprintf("%s%v", id.Name, id.Params)
}

// PropertyCollection is a bag of property values
type PropertyCollection struct {
	values map[PropertyID]interface{}
}

// NewPropertyCollection creates an empty property collection
func NewPropertyCollection() *PropertyCollection {
	return &PropertyCollection{values: map[PropertyID]interface{}{}}
}

// Set sets the value of a property
func (pc *PropertyCollection) Set(id PropertyID, v interface{}) {
	pc.values[id] = v
}

// Get returns the value of a property
func (pc *PropertyCollection) Get(id PropertyID) (interface{}, bool) {
	if pc == nil {
		return nil, false
	}
	v, ok := pc.values[id]
	return v, ok
}

// Len returns the number of properties set
func (pc *PropertyCollection) Len() int {
	if pc == nil {
		return 0
	}
	return len(pc.values)
}

// IDs returns all property ids in stable order
func (pc *PropertyCollection) IDs() []PropertyID {
	if pc == nil {
		return nil
	}
	ids := make([]PropertyID, 0, len(pc.values))
	for id := range pc.values {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if ids[i].Name != ids[j].Name {
			return ids[i].Name < ids[j].Name
		}
		for k := 0; k < MaxPropertyParams; k++ {
			if ids[i].Params[k] != ids[j].Params[k] {
				return ids[i].Params[k] < ids[j].Params[k]
			}
		}
		return false
	})
	return ids
}

// Clone copies the collection
func (pc *PropertyCollection) Clone() *PropertyCollection {
	if pc == nil {
		return nil
	}
	c := NewPropertyCollection()
	for id, v := range pc.values {
		c.values[id] = v
	}
	return c
}

func (pc *PropertyCollection) String() string {
	var sb strings.Builder
	sb.WriteString("{")
	for i, id := range pc.IDs() {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%s=%v", id, pc.values[id])
	}
	sb.WriteString("}")
	return sb.String()
}
