package types

import "math"

// AABB is an axis-aligned bounding box. Procedural primitives are fed
// to bottom-level acceleration structure builds as a list of these.
type AABB struct {
	Min Vec3
	Max Vec3
}

// NewAABB returns an empty box that any Extend call will replace.
func NewAABB() AABB {
	inf := float32(math.Inf(1))
	return AABB{
		Min: Vec3{inf, inf, inf},
		Max: Vec3{-inf, -inf, -inf},
	}
}

// Extend grows the box to contain the given point.
func (b *AABB) Extend(p Vec3) {
	b.Min = MinVec3(b.Min, p)
	b.Max = MaxVec3(b.Max, p)
}

// Union grows the box to contain another box.
func (b *AABB) Union(other AABB) {
	b.Min = MinVec3(b.Min, other.Min)
	b.Max = MaxVec3(b.Max, other.Max)
}

// Center returns the box midpoint.
func (b AABB) Center() Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

// Transform returns the axis-aligned box containing the eight
// transformed corners of this box.
func (b AABB) Transform(t Transform3x4) AABB {
	out := NewAABB()
	for i := 0; i < 8; i++ {
		corner := Vec3{b.Min[0], b.Min[1], b.Min[2]}
		if i&1 != 0 {
			corner[0] = b.Max[0]
		}
		if i&2 != 0 {
			corner[1] = b.Max[1]
		}
		if i&4 != 0 {
			corner[2] = b.Max[2]
		}
		out.Extend(t.Apply(corner))
	}
	return out
}
