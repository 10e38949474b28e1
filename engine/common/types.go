package common

import (
	"fmt"
	"hash/fnv"
)

// PrototypeID is the data reference of a prototype record
type PrototypeID uint64

// InvalidPrototypeID is the zero PrototypeID
const InvalidPrototypeID PrototypeID = 0

// IsNil returns if PrototypeID is invalid
func (id PrototypeID) IsNil() bool {
	return id == InvalidPrototypeID
}

func (id PrototypeID) String() string {
	return fmt.Sprintf("%d", uint64(id))
}

// HashPrototypeName computes the PrototypeID of a prototype display name
func HashPrototypeName(name string) PrototypeID {
	return PrototypeID(hashName(name))
}

// PrototypeGuid is the stable guid of a prototype record, independent of its name
type PrototypeGuid uint64

// IsNil returns if PrototypeGuid is invalid
func (guid PrototypeGuid) IsNil() bool {
	return guid == 0
}

// AssetID identifies an asset inside an asset type
type AssetID uint64

// InvalidAssetID is the zero AssetID
const InvalidAssetID AssetID = 0

// IsNil returns if AssetID is invalid
func (id AssetID) IsNil() bool {
	return id == InvalidAssetID
}

// HashAssetName computes the AssetID of asset name in asset type
func HashAssetName(typeName string, name string) AssetID {
	return AssetID(hashName(typeName + "/" + name))
}

// LocaleStringID identifies a localized string
type LocaleStringID uint64

// IsNil returns if LocaleStringID is invalid
func (id LocaleStringID) IsNil() bool {
	return id == 0
}

func hashName(s string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	v := h.Sum64()
	if v == 0 {
		v = 1 // 0 is reserved for invalid ids
	}
	return v
}
