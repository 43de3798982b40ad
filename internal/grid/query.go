package grid

import (
	"math/bits"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/hupe1980/cullgrid/geom"
	"github.com/hupe1980/cullgrid/internal/cell"
	"github.com/hupe1980/cullgrid/internal/simd"
	"github.com/hupe1980/cullgrid/tags"
)

// occlusionPadding inflates an object's box, relative to its radius, before
// it is handed to the occlusion callback.
const occlusionPadding = 1.0 / 32

// Stats counts the work done by one query over one grid.
type Stats struct {
	// Tested is the number of objects spatially tested.
	Tested int
	// Hits is the number of objects that passed the spatial test.
	Hits int
	// Filtered is the number of hits rejected by the tag filter.
	Filtered int
	// Passed is the number of objects reported to the caller.
	Passed int
}

// Add accumulates o into s.
func (s *Stats) Add(o Stats) {
	s.Tested += o.Tested
	s.Hits += o.Hits
	s.Filtered += o.Filtered
	s.Passed += o.Passed
}

// FilteredRatio is the fraction of spatial hits rejected by the tag filter.
func (s Stats) FilteredRatio() float64 {
	if s.Hits == 0 {
		return 0
	}
	return float64(s.Filtered) / float64(s.Hits)
}

// Visitor receives the reference and instance index of each hit. Returning
// false stops the query.
type Visitor func(ref uint64, index uint32) bool

// QuerySphere visits entities whose bounding sphere overlaps s. It returns
// false if the visitor stopped the query.
func (g *Grid) QuerySphere(s geom.Sphere, f tags.Filter, st *Stats, visit Visitor) bool {
	return g.queryShape(s.BoundingBox(), s.IntersectsAABB, s.IntersectsSphere, f, st, visit)
}

// QueryBox visits entities whose bounding sphere overlaps box. It returns
// false if the visitor stopped the query.
func (g *Grid) QueryBox(box geom.AABB, f tags.Filter, st *Stats, visit Visitor) bool {
	return g.queryShape(box, box.Intersects, func(s geom.Sphere) bool { return s.IntersectsAABB(box) }, f, st, visit)
}

func (g *Grid) queryShape(
	box geom.AABB,
	cellHit func(geom.AABB) bool,
	objectHit func(geom.Sphere) bool,
	f tags.Filter,
	st *Stats,
	visit Visitor,
) bool {
	filter := !f.IsEmpty()
	return g.ForEachCellInBox(box, func(_ uint32, c *cell.Cell) bool {
		if c.Len() == 0 {
			return true
		}
		if !c.Unbounded() && !cellHit(c.BoundingBox()) {
			return true
		}
		spheres := c.Spheres()
		for i := range spheres {
			st.Tested++
			if !objectHit(spheres[i]) {
				continue
			}
			st.Hits++
			if filter && !f.Accepts(c.Tags(i)) {
				st.Filtered++
				continue
			}
			st.Passed++
			if !visit(c.Ref(i), c.DataIndex(i)) {
				return false
			}
		}
		return true
	})
}

// FrustumQuery describes one frustum query over a grid.
type FrustumQuery struct {
	// Frustum is used for whole-cell rejection.
	Frustum geom.Frustum
	// Planes is the packed form of Frustum for the batch kernel.
	Planes *simd.PackedPlanes
	// Filter is applied to objects that pass the spatial test.
	Filter tags.Filter
	// Occlusion returns true when a box is hidden. Nil disables occlusion.
	Occlusion func(geom.AABB) bool
	// Stamp is written to every visible object with an atomic max.
	Stamp cell.Stamp
	// Seen suppresses duplicates when several grids are queried. It may be nil.
	Seen *roaring.Bitmap
}

// QueryFrustum appends the references of visible objects to out.
//
// Cells are first tested as a whole against the frustum and the occlusion
// callback. Objects are then tested BatchSize at a time with the packed
// kernel and the remainder one by one. Objects in the bypass cell skip the
// spatial and occlusion tests.
func (g *Grid) QueryFrustum(q *FrustumQuery, st *Stats, out []uint64) []uint64 {
	filter := !q.Filter.IsEmpty()

	for ci, c := range g.cells {
		n := c.Len()
		if n == 0 {
			continue
		}

		if uint32(ci) == BypassCellIndex {
			for i := 0; i < n; i++ {
				st.Tested++
				st.Hits++
				out = emit(c, i, q, filter, false, st, out)
			}
			continue
		}

		if !c.Unbounded() {
			box := c.BoundingBox()
			if !q.Frustum.IntersectsAABB(box) {
				continue
			}
			if q.Occlusion != nil && q.Occlusion(box) {
				continue
			}
		}

		spheres := c.Spheres()
		full := n - n%simd.BatchSize
		for base := 0; base < full; base += simd.BatchSize {
			mask := simd.CullBatch(q.Planes, spheres[base:])
			st.Tested += simd.BatchSize
			for mask != 0 {
				i := bits.TrailingZeros32(mask)
				mask &= mask - 1
				st.Hits++
				out = emit(c, base+i, q, filter, true, st, out)
			}
		}
		for i := full; i < n; i++ {
			st.Tested++
			if q.Planes.TestSphere(spheres[i]) {
				st.Hits++
				out = emit(c, i, q, filter, true, st, out)
			}
		}
	}
	return out
}

func emit(c *cell.Cell, i int, q *FrustumQuery, filter, occlude bool, st *Stats, out []uint64) []uint64 {
	if filter && !q.Filter.Accepts(c.Tags(i)) {
		st.Filtered++
		return out
	}
	if occlude && q.Occlusion != nil {
		b := c.Bounds(i)
		if q.Occlusion(b.Box().Inflate(b.Sphere.Radius * occlusionPadding)) {
			return out
		}
	}
	c.MarkVisible(i, q.Stamp)
	if q.Seen != nil && !q.Seen.CheckedAdd(c.DataIndex(i)) {
		return out
	}
	st.Passed++
	return append(out, c.Ref(i))
}
