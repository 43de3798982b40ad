package cell

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/hupe1980/cullgrid/geom"
	"github.com/hupe1980/cullgrid/tags"
)

// ErrLengthMismatch is returned by Verify when the parallel arrays diverge.
var ErrLengthMismatch = errors.New("cell: parallel array length mismatch")

// Cell stores the entities of one grid cell as parallel arrays.
type Cell struct {
	box       geom.AABB
	unbounded bool

	spheres []geom.Sphere
	extents []mgl32.Vec3
	tags    []tags.Set
	refs    []uint64
	data    []uint32
	visible []uint64 // Stamp values, written with StoreMax
}

// New creates a cell whose fixed bounding box is box.
func New(box geom.AABB) *Cell {
	return &Cell{box: box}
}

// NewUnbounded creates a cell that overlaps everything (overflow cells).
func NewUnbounded() *Cell {
	return &Cell{box: geom.Unbounded(), unbounded: true}
}

// Len returns the number of stored entities.
func (c *Cell) Len() int {
	return len(c.data)
}

// BoundingBox returns the cell's fixed box.
func (c *Cell) BoundingBox() geom.AABB {
	return c.box
}

// Unbounded reports whether the cell is an overflow-style cell.
func (c *Cell) Unbounded() bool {
	return c.unbounded
}

// Add appends an entity and returns its slot.
func (c *Cell) Add(b geom.Bounds, t tags.Set, ref uint64, stamp Stamp, dataIndex uint32) int {
	c.spheres = append(c.spheres, b.Sphere)
	c.extents = append(c.extents, b.Extent)
	c.tags = append(c.tags, t)
	c.refs = append(c.refs, ref)
	c.data = append(c.data, dataIndex)
	c.visible = append(c.visible, uint64(stamp))
	return len(c.data) - 1
}

// Remove swap-removes slot and returns the data index of the entity that now
// occupies slot, or the removed entity's own index if it was last.
func (c *Cell) Remove(slot int) uint32 {
	last := len(c.data) - 1
	removed := c.data[slot]
	moved := removed

	if slot != last {
		c.spheres[slot] = c.spheres[last]
		c.extents[slot] = c.extents[last]
		c.tags[slot] = c.tags[last]
		c.refs[slot] = c.refs[last]
		c.data[slot] = c.data[last]
		atomic.StoreUint64(&c.visible[slot], atomic.LoadUint64(&c.visible[last]))
		moved = c.data[slot]
	}

	c.spheres = c.spheres[:last]
	c.extents = c.extents[:last]
	c.tags = c.tags[:last]
	c.refs = c.refs[:last]
	c.data = c.data[:last]
	c.visible = c.visible[:last]

	return moved
}

// Spheres exposes the sphere column for batched tests. Callers must not
// modify it.
func (c *Cell) Spheres() []geom.Sphere {
	return c.spheres
}

// Bounds returns the bounds stored at slot.
func (c *Cell) Bounds(slot int) geom.Bounds {
	return geom.Bounds{Sphere: c.spheres[slot], Extent: c.extents[slot]}
}

// SetBounds overwrites the bounds at slot.
func (c *Cell) SetBounds(slot int, b geom.Bounds) {
	c.spheres[slot] = b.Sphere
	c.extents[slot] = b.Extent
}

// Tags returns the tag set at slot.
func (c *Cell) Tags(slot int) tags.Set {
	return c.tags[slot]
}

// Ref returns the entity reference at slot.
func (c *Cell) Ref(slot int) uint64 {
	return c.refs[slot]
}

// DataIndex returns the back-index into the grid's mapping table.
func (c *Cell) DataIndex(slot int) uint32 {
	return c.data[slot]
}

// Stamp returns the last-visible stamp at slot.
func (c *Cell) Stamp(slot int) Stamp {
	return Stamp(atomic.LoadUint64(&c.visible[slot]))
}

// MarkVisible raises the stamp at slot to s.
func (c *Cell) MarkVisible(slot int, s Stamp) {
	StoreMax(&c.visible[slot], s)
}

// Verify checks that all parallel arrays have the same length.
func (c *Cell) Verify() error {
	n := len(c.data)
	if len(c.spheres) != n || len(c.extents) != n || len(c.tags) != n ||
		len(c.refs) != n || len(c.visible) != n {
		return fmt.Errorf("%w: data=%d spheres=%d extents=%d tags=%d refs=%d visible=%d",
			ErrLengthMismatch, n, len(c.spheres), len(c.extents), len(c.tags), len(c.refs), len(c.visible))
	}
	return nil
}
