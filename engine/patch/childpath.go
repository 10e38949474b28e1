package patch

import (
	"github.com/xiaonanln/protopatch/engine/prototype"
)

type childLink struct {
	parent *prototype.Object
	field  string
	index  int
}

// ChildPaths remembers where nested objects live so their path from the owning prototype can be rebuilt
type ChildPaths struct {
	links map[*prototype.Object]childLink
	roots map[*prototype.Object]*prototype.Prototype
}

// NewChildPaths creates an empty registry
func NewChildPaths() *ChildPaths {
	return &ChildPaths{
		links: map[*prototype.Object]childLink{},
		roots: map[*prototype.Object]*prototype.Prototype{},
	}
}

// Register records that child is stored in field of parent, at index unless index is -1
func (cp *ChildPaths) Register(parent prototype.Record, child prototype.Record, field string, index int) {
	if p, ok := parent.(*prototype.Prototype); ok && !p.IsEmbedded() {
		cp.roots[p.Base()] = p
	}
	cp.links[child.Base()] = childLink{parent: parent.Base(), field: field, index: index}
}

// Path returns the owning prototype of rec and the path of rec inside it
func (cp *ChildPaths) Path(rec prototype.Record) (*prototype.Prototype, string, bool) {
	if p, ok := rec.(*prototype.Prototype); ok && !p.IsEmbedded() {
		return p, "", true
	}

	var path Path
	o := rec.Base()
	for steps := 0; steps <= len(cp.links); steps++ {
		if root, ok := cp.roots[o]; ok {
			// segments were collected leaf first
			for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
				path[i], path[j] = path[j], path[i]
			}
			return root, path.String(), true
		}
		link, ok := cp.links[o]
		if !ok {
			return nil, "", false
		}
		seg := Segment{Field: link.field}
		if link.index >= 0 {
			seg.Indices = []int{link.index}
		}
		path = append(path, seg)
		o = link.parent
	}
	return nil, "", false
}

// Len returns the number of registered nested objects
func (cp *ChildPaths) Len() int {
	return len(cp.links)
}
