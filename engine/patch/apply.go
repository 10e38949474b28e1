package patch

import (
	"github.com/xiaonanln/protopatch/engine/consts"
	"github.com/xiaonanln/protopatch/engine/gwlog"
	"github.com/xiaonanln/protopatch/engine/gwutils"
	"github.com/xiaonanln/protopatch/engine/opmon"
	"github.com/xiaonanln/protopatch/engine/prototype"
)

// Applier applies patch entries to prototype records
type Applier struct {
	coercer  *Coercer
	describe func(rec prototype.Record) string
}

// NewApplier creates an applier converting values through coercer
func NewApplier(coercer *Coercer) *Applier {
	return &Applier{coercer: coercer}
}

// SetDescriber sets the function naming nested objects in error messages
func (a *Applier) SetDescriber(describe func(rec prototype.Record) string) {
	a.describe = describe
}

// Apply applies e to root and returns if it is applied
//
// Errors and panics are logged and leave the entry unapplied. Applying an entry
// that is already applied does nothing and returns true.
func (a *Applier) Apply(root *prototype.Prototype, e *Entry) bool {
	err := a.Try(root, e)
	if err != nil {
		gwlog.Errorf("Failed to apply patch %s: %v", e, err)
		return false
	}
	return true
}

// Try is Apply returning the failure instead of logging it
func (a *Applier) Try(root *prototype.Prototype, e *Entry) error {
	if e.Applied() {
		return nil
	}
	if len(e.Segments) == 0 {
		return navigationError(e.Path, "path has no segments")
	}

	op := opmon.StartOperation("patch.apply")
	err := gwutils.CatchPanic(func() error {
		return a.apply(root, e)
	})
	op.Finish(consts.PATCH_APPLY_WARN_THRESHOLD)
	if err != nil {
		return err
	}

	e.markApplied()
	if consts.DEBUG_PATCH_APPLY {
		gwlog.Debugf("Patch prototype %s = %v", e, e.Value.Interface())
	}
	return nil
}

func (a *Applier) apply(root *prototype.Prototype, e *Entry) error {
	var cur prototype.Record = root
	for i := 0; i < len(e.Segments)-1; i++ {
		next, err := a.navigate(cur, e.Segments[i], e.Segments[:i+1])
		if err != nil {
			return err
		}
		cur = next
	}

	last := e.Segments.Last()
	obj := cur.Base()
	f := cur.Class().Field(last.Field)
	if f == nil {
		return navigationError(e.Path, "%s has no field %s", a.name(cur), last.Field)
	}

	value := e.Value.Interface()
	switch e.Operation {
	case OpSet:
		if !last.IsArray() {
			v, err := a.coercer.Coerce(value, f.Type)
			if err != nil {
				return err
			}
			return f.Set(obj, v)
		}
		return a.setElement(obj, f, last.Indices, value, e.Path)
	case OpAdd:
		return a.add(obj, f, value, e.Path)
	case OpInsert:
		return a.insert(obj, f, last, value, e.Path)
	case OpRemove:
		return a.remove(obj, f, last, value, e.Path)
	case OpReplace:
		if !last.IsArray() {
			return navigationError(e.Path, "Replace requires array indices")
		}
		return a.setElement(obj, f, last.Indices, value, e.Path)
	}
	return navigationError(e.Path, "operation %s not supported", e.Operation)
}

// navigate reads the field of seg off rec, indexing once per array index, and returns the nested object
func (a *Applier) navigate(rec prototype.Record, seg Segment, walked Path) (prototype.Record, error) {
	f := rec.Class().Field(seg.Field)
	if f == nil {
		return nil, navigationError(walked.String(), "%s has no field %s", a.name(rec), seg.Field)
	}
	v := f.Get(rec.Base())
	for _, index := range seg.Indices {
		arr, ok := v.(*prototype.Array)
		if !ok || arr == nil {
			return nil, navigationError(walked.String(), "not an array")
		}
		elem, err := arr.At(index)
		if err != nil {
			return nil, navigationError(walked.String(), "%v", err)
		}
		v = elem
	}

	switch x := v.(type) {
	case *prototype.Object:
		if x != nil {
			return x, nil
		}
	case *prototype.Prototype:
		if x != nil {
			return x, nil
		}
	}
	if prototype.IsNilValue(v) {
		return nil, navigationError(walked.String(), "is nil")
	}
	return nil, navigationError(walked.String(), "%T is not an object", v)
}

func (a *Applier) name(rec prototype.Record) string {
	if a.describe != nil {
		if s := a.describe(rec); s != "" {
			return s
		}
	}
	if p, ok := rec.(*prototype.Prototype); ok && !p.IsEmbedded() {
		return p.DataRef.String()
	}
	return rec.Class().Name()
}

func arrayField(obj *prototype.Object, f *prototype.Field, op string, path string) (*prototype.Array, error) {
	if !f.Type.IsArray() {
		return nil, navigationError(path, "%s can only be used on array fields, %s is %s", op, f.Name, f.Type)
	}
	return f.Get(obj).(*prototype.Array), nil
}

// setElement writes one element of a possibly multi-dimensional array in place
func (a *Applier) setElement(obj *prototype.Object, f *prototype.Field, indices []int, value interface{}, path string) error {
	arr, err := arrayField(obj, f, "indexed Set", path)
	if err != nil {
		return err
	}
	if arr == nil {
		return navigationError(path, "array %s is nil", f.Name)
	}
	for _, index := range indices[:len(indices)-1] {
		elem, err := arr.At(index)
		if err != nil {
			return navigationError(path, "%v", err)
		}
		next, ok := elem.(*prototype.Array)
		if !ok || next == nil {
			return navigationError(path, "element %d is not an array", index)
		}
		arr = next
	}

	index := indices[len(indices)-1]
	if index < 0 || index >= arr.Len() {
		return navigationError(path, "index %d out of range [0, %d)", index, arr.Len())
	}
	v, err := a.coercer.Element(value, arr.Elem())
	if err != nil {
		return err
	}
	return arr.SetAt(index, v)
}

// incoming materializes the elements an Add or Insert puts into an array of elem
//
// A value nested deeper than one element is a list of elements, otherwise it is a single element.
func (a *Applier) incoming(value interface{}, elem *prototype.Type) ([]interface{}, error) {
	if rawDepth(value) > typeDepth(elem) {
		list, _ := toList(value)
		values := make([]interface{}, len(list))
		for i, raw := range list {
			v, err := a.coercer.Element(raw, elem)
			if err != nil {
				return nil, err
			}
			values[i] = v
		}
		return values, nil
	}

	v, err := a.coercer.Element(value, elem)
	if err != nil {
		return nil, err
	}
	return []interface{}{v}, nil
}

func (a *Applier) add(obj *prototype.Object, f *prototype.Field, value interface{}, path string) error {
	cur, err := arrayField(obj, f, "Add", path)
	if err != nil {
		return err
	}
	values, err := a.incoming(value, f.Type.Elem)
	if err != nil {
		return err
	}
	newArr, err := prototype.ArrayFrom(f.Type.Elem, append(cur.Values(), values...))
	if err != nil {
		return err
	}
	return f.Set(obj, newArr)
}

func (a *Applier) insert(obj *prototype.Object, f *prototype.Field, seg Segment, value interface{}, path string) error {
	cur, err := arrayField(obj, f, "Insert", path)
	if err != nil {
		return err
	}
	if len(seg.Indices) != 1 {
		return navigationError(path, "Insert requires exactly one array index")
	}
	index := seg.Indices[0]
	if index < 0 || index > cur.Len() {
		return navigationError(path, "insert index %d out of range [0, %d]", index, cur.Len())
	}
	values, err := a.incoming(value, f.Type.Elem)
	if err != nil {
		return err
	}

	old := cur.Values()
	merged := make([]interface{}, 0, len(old)+len(values))
	merged = append(merged, old[:index]...)
	merged = append(merged, values...)
	merged = append(merged, old[index:]...)
	newArr, err := prototype.ArrayFrom(f.Type.Elem, merged)
	if err != nil {
		return err
	}
	return f.Set(obj, newArr)
}

// remove drops one element by index, or every element equal to value when no index is given
func (a *Applier) remove(obj *prototype.Object, f *prototype.Field, seg Segment, value interface{}, path string) error {
	cur, err := arrayField(obj, f, "Remove", path)
	if err != nil {
		return err
	}
	if cur.Len() == 0 {
		return nil
	}

	old := cur.Values()
	kept := make([]interface{}, 0, len(old))
	switch len(seg.Indices) {
	case 0:
		target, err := a.coercer.Element(value, f.Type.Elem)
		if err != nil {
			return err
		}
		for _, v := range old {
			if v != target {
				kept = append(kept, v)
			}
		}
	case 1:
		index := seg.Indices[0]
		if index < 0 || index >= len(old) {
			return navigationError(path, "remove index %d out of range [0, %d)", index, len(old))
		}
		kept = append(kept, old[:index]...)
		kept = append(kept, old[index+1:]...)
	default:
		return navigationError(path, "Remove takes at most one array index")
	}

	newArr, err := prototype.ArrayFrom(f.Type.Elem, kept)
	if err != nil {
		return err
	}
	return f.Set(obj, newArr)
}
