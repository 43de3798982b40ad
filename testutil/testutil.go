package testutil

import (
	"math/rand"
	"sync"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/hupe1980/cullgrid/geom"
	"github.com/hupe1980/cullgrid/tags"
)

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Float32 returns, as a float32, a pseudo-random number in [0.0,1.0).
func (r *RNG) Float32() float32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float32()
}

// Range returns a pseudo-random number in [minVal, maxVal).
func (r *RNG) Range(minVal, maxVal float32) float32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return minVal + r.rand.Float32()*(maxVal-minVal)
}

// Vec3 returns a point uniformly distributed in [-extent, extent)^3.
func (r *RNG) Vec3(extent float32) mgl32.Vec3 {
	r.mu.Lock()
	defer r.mu.Unlock()
	var v mgl32.Vec3
	for i := range v {
		v[i] = (r.rand.Float32()*2 - 1) * extent
	}
	return v
}

// Spheres generates num spheres centered in [-extent, extent)^3 with radii
// in [minRadius, maxRadius).
func (r *RNG) Spheres(num int, extent, minRadius, maxRadius float32) []geom.Sphere {
	out := make([]geom.Sphere, num)
	for i := range out {
		out[i] = geom.Sphere{
			Center: r.Vec3(extent),
			Radius: r.Range(minRadius, maxRadius),
		}
	}
	return out
}

// TagSet returns a set with each tag in [0, numTags) present with
// probability p.
func (r *RNG) TagSet(numTags int, p float32) tags.Set {
	r.mu.Lock()
	defer r.mu.Unlock()
	var s tags.Set
	for t := 0; t < numTags; t++ {
		if r.rand.Float32() < p {
			s = s.With(tags.Tag(t))
		}
	}
	return s
}

// Frustum returns a 90° perspective frustum at eye looking at target with
// the given far distance.
func Frustum(eye, target mgl32.Vec3, far float32) geom.Frustum {
	proj := mgl32.Perspective(mgl32.DegToRad(90), 1, 0.1, far)
	view := mgl32.LookAtV(eye, target, mgl32.Vec3{0, 1, 0})
	return geom.FrustumFromMatrix(proj.Mul4(view))
}

// FrustumHits returns the indices of spheres that intersect f.
func FrustumHits(f geom.Frustum, spheres []geom.Sphere) []int {
	var out []int
	for i, s := range spheres {
		if f.IntersectsSphere(s) {
			out = append(out, i)
		}
	}
	return out
}

// SphereHits returns the indices of spheres that overlap q.
func SphereHits(q geom.Sphere, spheres []geom.Sphere) []int {
	var out []int
	for i, s := range spheres {
		if q.IntersectsSphere(s) {
			out = append(out, i)
		}
	}
	return out
}
