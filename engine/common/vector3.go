package common

import (
	"fmt"
	"math"
)

// Coord is the type of a Vector3 component
type Coord float32

// Vector3 is the type of 3D vectors stored in prototype fields
type Vector3 struct {
	X Coord
	Y Coord
	Z Coord
}

func (p Vector3) String() string {
	return fmt.Sprintf("(%.2f, %.2f, %.2f)", p.X, p.Y, p.Z)
}

// DistanceTo calculates distance between two positions
func (p Vector3) DistanceTo(o Vector3) Coord {
	dx := p.X - o.X
	dy := p.Y - o.Y
	dz := p.Z - o.Z
	return Coord(math.Sqrt(float64(dx*dx + dy*dy + dz*dz)))
}

// Sub calculates Vector3 p - Vector3 o
func (p Vector3) Sub(o Vector3) Vector3 {
	return Vector3{p.X - o.X, p.Y - o.Y, p.Z - o.Z}
}

// Add calculates Vector3 p + Vector3 o
func (p Vector3) Add(o Vector3) Vector3 {
	return Vector3{p.X + o.X, p.Y + o.Y, p.Z + o.Z}
}

// Mul calculates Vector3 p * m
func (p Vector3) Mul(m Coord) Vector3 {
	return Vector3{p.X * m, p.Y * m, p.Z * m}
}

// NewVector3 makes a Vector3 from a 3-element slice of numbers
func NewVector3(xyz []float64) (Vector3, error) {
	if len(xyz) != 3 {
		return Vector3{}, fmt.Errorf("vector3 needs 3 components, got %d", len(xyz))
	}
	return Vector3{Coord(xyz[0]), Coord(xyz[1]), Coord(xyz[2])}, nil
}
