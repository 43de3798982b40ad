package geom

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Plane is n·p + d = 0. Points with a positive signed distance are on the
// inner side.
type Plane struct {
	Normal   mgl32.Vec3
	Distance float32
}

// SignedDistance returns n·p + d.
func (p Plane) SignedDistance(v mgl32.Vec3) float32 {
	return p.Normal.Dot(v) + p.Distance
}

// Frustum holds six inward-facing planes.
type Frustum struct {
	Planes [6]Plane // Left, Right, Bottom, Top, Near, Far
}

// Frustum plane indices.
const (
	FrustumLeft = iota
	FrustumRight
	FrustumBottom
	FrustumTop
	FrustumNear
	FrustumFar
)

// FrustumFromMatrix extracts normalized planes from a combined
// projection*view matrix using the Gribb/Hartmann method. Clip space is the
// OpenGL convention produced by mgl32.Perspective (z in [-w, w]).
func FrustumFromMatrix(viewProj mgl32.Mat4) Frustum {
	r0, r1, r2, r3 := viewProj.Row(0), viewProj.Row(1), viewProj.Row(2), viewProj.Row(3)

	rows := [6]mgl32.Vec4{
		FrustumLeft:   r3.Add(r0),
		FrustumRight:  r3.Sub(r0),
		FrustumBottom: r3.Add(r1),
		FrustumTop:    r3.Sub(r1),
		FrustumNear:   r3.Add(r2),
		FrustumFar:    r3.Sub(r2),
	}

	var f Frustum
	for i, r := range rows {
		n := r.Vec3()
		l := n.Len()
		if l > 0 {
			inv := 1 / l
			f.Planes[i] = Plane{Normal: n.Mul(inv), Distance: r.W() * inv}
		} else {
			f.Planes[i] = Plane{Normal: n, Distance: r.W()}
		}
	}
	return f
}

// IntersectsSphere reports whether the sphere is at least partially inside.
func (f Frustum) IntersectsSphere(s Sphere) bool {
	for i := range f.Planes {
		if f.Planes[i].SignedDistance(s.Center) < -s.Radius {
			return false
		}
	}
	return true
}

// IntersectsAABB is the conservative positive-vertex test: the box is
// rejected only when it lies fully outside one plane.
func (f Frustum) IntersectsAABB(b AABB) bool {
	for i := range f.Planes {
		p := &f.Planes[i]
		var v mgl32.Vec3
		for a := 0; a < 3; a++ {
			if p.Normal[a] >= 0 {
				v[a] = b.Max[a]
			} else {
				v[a] = b.Min[a]
			}
		}
		if p.SignedDistance(v) < 0 {
			return false
		}
	}
	return true
}
