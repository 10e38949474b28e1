package prototype

import (
	"testing"

	"github.com/bmizerany/assert"
)

func TestArray(t *testing.T) {
	a := NewArray(TypeInt, 3)
	assert.Equal(t, 3, a.Len())
	v, err := a.At(2)
	assert.Equal(t, nil, err)
	assert.Equal(t, int64(0), v)

	assert.Equal(t, nil, a.SetAt(1, int64(7)))
	assert.T(t, a.SetAt(3, int64(7)) != nil, "out of range")
	assert.T(t, a.SetAt(0, "x") != nil, "wrong type")
	_, err = a.At(-1)
	assert.T(t, err != nil, "negative index")

	values := a.Values()
	values[1] = int64(100)
	v, _ = a.At(1)
	assert.Equal(t, int64(7), v)

	var nilArray *Array
	assert.Equal(t, 0, nilArray.Len())
	assert.T(t, nilArray.Values() == nil, "nil values")
}

func TestArrayFrom(t *testing.T) {
	a, err := ArrayFrom(TypeString, []interface{}{"a", nil})
	assert.Equal(t, nil, err)
	v, _ := a.At(1)
	assert.Equal(t, "", v)

	_, err = ArrayFrom(TypeString, []interface{}{"a", int64(1)})
	assert.T(t, err != nil, "mixed types")

	grid, err := ArrayFrom(ArrayOf(TypeInt), []interface{}{NewArray(TypeInt, 2)})
	assert.Equal(t, nil, err)
	c := grid.Clone()
	inner, _ := c.At(0)
	inner.(*Array).SetAt(0, int64(5))
	orig, _ := grid.At(0)
	v, _ = orig.(*Array).At(0)
	assert.Equal(t, int64(0), v)
}

func TestPropertyCollection(t *testing.T) {
	pc := NewPropertyCollection()
	pc.Set(PropertyID{Name: "Damage", Params: [MaxPropertyParams]int64{2}}, int64(10))
	pc.Set(PropertyID{Name: "Damage"}, int64(5))
	pc.Set(PropertyID{Name: "Armor"}, float64(1.5))
	assert.Equal(t, 3, pc.Len())

	ids := pc.IDs()
	assert.Equal(t, "Armor", ids[0].Name)
	assert.Equal(t, int64(0), ids[1].Params[0])
	assert.Equal(t, int64(2), ids[2].Params[0])

	c := pc.Clone()
	c.Set(PropertyID{Name: "Armor"}, float64(3))
	v, _ := pc.Get(PropertyID{Name: "Armor"})
	assert.Equal(t, float64(1.5), v)

	var nilPC *PropertyCollection
	_, ok := nilPC.Get(PropertyID{Name: "Armor"})
	assert.T(t, !ok, "nil collection")
}
