package geom

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Sphere is a bounding sphere. The layout (x, y, z, radius) is 16 bytes so a
// slice of spheres can be scanned four lanes at a time.
type Sphere struct {
	Center mgl32.Vec3
	Radius float32
}

// BoundingBox returns the smallest AABB enclosing the sphere.
func (s Sphere) BoundingBox() AABB {
	r := mgl32.Vec3{s.Radius, s.Radius, s.Radius}
	return AABB{Min: s.Center.Sub(r), Max: s.Center.Add(r)}
}

// IntersectsSphere reports whether two spheres overlap (touching counts).
func (s Sphere) IntersectsSphere(o Sphere) bool {
	d := s.Center.Sub(o.Center)
	r := s.Radius + o.Radius
	return d.Dot(d) <= r*r
}

// IntersectsAABB reports whether the sphere overlaps the box.
func (s Sphere) IntersectsAABB(b AABB) bool {
	var d2 float32
	for i := 0; i < 3; i++ {
		c := s.Center[i]
		if c < b.Min[i] {
			e := b.Min[i] - c
			d2 += e * e
		} else if c > b.Max[i] {
			e := c - b.Max[i]
			d2 += e * e
		}
	}
	return d2 <= s.Radius*s.Radius
}

// AABB is an axis-aligned bounding box.
type AABB struct {
	Min mgl32.Vec3
	Max mgl32.Vec3
}

// NewAABB builds a box from its center and half extent.
func NewAABB(center, halfExtent mgl32.Vec3) AABB {
	return AABB{Min: center.Sub(halfExtent), Max: center.Add(halfExtent)}
}

// Unbounded returns a box covering all finite coordinates.
func Unbounded() AABB {
	const m = math.MaxFloat32
	return AABB{
		Min: mgl32.Vec3{-m, -m, -m},
		Max: mgl32.Vec3{m, m, m},
	}
}

// Center returns the box center.
func (b AABB) Center() mgl32.Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

// HalfExtent returns half the box size on each axis.
func (b AABB) HalfExtent() mgl32.Vec3 {
	return b.Max.Sub(b.Min).Mul(0.5)
}

// Contains reports whether o lies entirely inside b.
func (b AABB) Contains(o AABB) bool {
	return o.Min[0] >= b.Min[0] && o.Max[0] <= b.Max[0] &&
		o.Min[1] >= b.Min[1] && o.Max[1] <= b.Max[1] &&
		o.Min[2] >= b.Min[2] && o.Max[2] <= b.Max[2]
}

// Intersects reports whether two boxes overlap (touching counts).
func (b AABB) Intersects(o AABB) bool {
	return b.Min[0] <= o.Max[0] && b.Max[0] >= o.Min[0] &&
		b.Min[1] <= o.Max[1] && b.Max[1] >= o.Min[1] &&
		b.Min[2] <= o.Max[2] && b.Max[2] >= o.Min[2]
}

// Inflate grows the box by d on every side.
func (b AABB) Inflate(d float32) AABB {
	v := mgl32.Vec3{d, d, d}
	return AABB{Min: b.Min.Sub(v), Max: b.Max.Add(v)}
}

// Bounds is the bounding volume stored per entity: a sphere plus the half
// extent of the box around the same center.
type Bounds struct {
	Sphere Sphere
	Extent mgl32.Vec3
}

// BoundsFromAABB derives bounds whose sphere encloses the box.
func BoundsFromAABB(b AABB) Bounds {
	ext := b.HalfExtent()
	return Bounds{
		Sphere: Sphere{Center: b.Center(), Radius: ext.Len()},
		Extent: ext,
	}
}

// BoundsFromSphere derives bounds whose box encloses the sphere.
func BoundsFromSphere(s Sphere) Bounds {
	return Bounds{
		Sphere: s,
		Extent: mgl32.Vec3{s.Radius, s.Radius, s.Radius},
	}
}

// Box returns the bounds as an AABB.
func (b Bounds) Box() AABB {
	return NewAABB(b.Sphere.Center, b.Extent)
}

// IsValid reports whether the bounds contain no NaN and no negative size.
func (b Bounds) IsValid() bool {
	if isNaN(b.Sphere.Radius) || b.Sphere.Radius < 0 {
		return false
	}
	for i := 0; i < 3; i++ {
		if isNaN(b.Sphere.Center[i]) || isNaN(b.Extent[i]) || b.Extent[i] < 0 {
			return false
		}
	}
	return true
}

func isNaN(f float32) bool {
	return f != f
}
