package grid

import (
	"fmt"
	"math"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/hupe1980/cullgrid/geom"
	"github.com/hupe1980/cullgrid/internal/cell"
	"github.com/hupe1980/cullgrid/tags"
)

const (
	// OverflowCellIndex holds entities too large for a single cell.
	OverflowCellIndex uint32 = 0
	// BypassCellIndex holds always-visible entities.
	BypassCellIndex uint32 = 1
	// InvalidIndex marks an absent mapping and a completed migration.
	InvalidIndex uint32 = math.MaxUint32

	firstRegularCell = 2

	// cellInflation grows a cell's static box past its canonical box,
	// relative to the cell size.
	cellInflation = 1.0 / 64
)

// Mapping locates an entity inside the grid.
type Mapping struct {
	Cell uint32
	Slot uint32
}

var invalidMapping = Mapping{Cell: InvalidIndex, Slot: InvalidIndex}

// Valid reports whether the mapping points at a slot.
func (m Mapping) Valid() bool {
	return m.Cell != InvalidIndex
}

// Config describes a grid.
type Config struct {
	// Slot is the grid's position in the index (its bit in entity masks).
	Slot int
	// Category is the category bit the grid serves.
	Category int
	// CellSize is the edge length of a cell.
	CellSize float32
	// CanBeCached is false for frequently-changing categories.
	CanBeCached bool
	// Cached marks a promoted grid that accepts only Filter matches.
	Cached bool
	// Filter is the tag filter of a cached grid.
	Filter tags.Filter
}

// Grid is a sparse map from cell coordinates to cells.
type Grid struct {
	cfg    Config
	margin float32

	cells   []*cell.Cell
	keys    []Key
	lookup  map[Key]uint32
	mapping []Mapping
	members *roaring.Bitmap

	lastMigration uint32
}

// New creates an empty grid. Cached grids start with migration pending.
func New(cfg Config) *Grid {
	g := &Grid{
		cfg:           cfg,
		margin:        cfg.CellSize / 4,
		cells:         []*cell.Cell{cell.NewUnbounded(), cell.NewUnbounded()},
		keys:          make([]Key, firstRegularCell),
		lookup:        make(map[Key]uint32),
		members:       roaring.New(),
		lastMigration: InvalidIndex,
	}
	if cfg.Cached {
		g.lastMigration = 0
	}
	return g
}

// Slot returns the grid's slot in the index.
func (g *Grid) Slot() int { return g.cfg.Slot }

// Category returns the category bit the grid serves.
func (g *Grid) Category() int { return g.cfg.Category }

// CanBeCached reports whether filtered queries on this grid may be cached.
func (g *Grid) CanBeCached() bool { return g.cfg.CanBeCached }

// Cached reports whether this is a promoted cache grid.
func (g *Grid) Cached() bool { return g.cfg.Cached }

// Filter returns the cache filter (empty for regular grids).
func (g *Grid) Filter() tags.Filter { return g.cfg.Filter }

// CellSize returns the cell edge length.
func (g *Grid) CellSize() float32 { return g.cfg.CellSize }

// Len returns the number of entities in the grid.
func (g *Grid) Len() int { return int(g.members.GetCardinality()) }

// CellCount returns the number of allocated cells, including the overflow
// and bypass cells.
func (g *Grid) CellCount() int { return len(g.cells) }

// Cell returns the cell at index i.
func (g *Grid) Cell(i uint32) *cell.Cell { return g.cells[i] }

// Members returns the set of member instance indices. Callers must not
// modify it.
func (g *Grid) Members() *roaring.Bitmap { return g.members }

// Contains reports whether the entity is stored in the grid.
func (g *Grid) Contains(index uint32) bool {
	return int(index) < len(g.mapping) && g.mapping[index].Valid()
}

// Mapping returns the entity's location.
func (g *Grid) Mapping(index uint32) Mapping {
	if int(index) >= len(g.mapping) {
		return invalidMapping
	}
	return g.mapping[index]
}

// LastMigrationIndex returns the next instance index to migrate, or
// InvalidIndex when migration is complete.
func (g *Grid) LastMigrationIndex() uint32 { return g.lastMigration }

// SetLastMigrationIndex records migration progress.
func (g *Grid) SetLastMigrationIndex(i uint32) { g.lastMigration = i }

// MigrationComplete reports whether the grid is fully populated.
func (g *Grid) MigrationComplete() bool { return g.lastMigration == InvalidIndex }

// canonicalBox is the region an entity must fit in to live in cell k.
func (g *Grid) canonicalBox(k Key) geom.AABB {
	s := g.cfg.CellSize
	var b geom.AABB
	for i, c := range [3]int32{k.X(), k.Y(), k.Z()} {
		b.Min[i] = float32(c)*s - g.margin
		b.Max[i] = float32(c+1)*s + g.margin
	}
	return b
}

// coord returns floor(v / cellSize), or false if it is not representable.
func (g *Grid) coord(v float32) (int32, bool) {
	f := math.Floor(float64(v) / float64(g.cfg.CellSize))
	if math.IsNaN(f) || f < MinCoord || f > MaxCoord {
		return 0, false
	}
	return int32(f), true
}

// locate returns the key of the regular cell that can hold b.
func (g *Grid) locate(b geom.Bounds) (Key, bool) {
	c := b.Sphere.Center
	x, okx := g.coord(c[0])
	y, oky := g.coord(c[1])
	z, okz := g.coord(c[2])
	if !okx || !oky || !okz {
		return 0, false
	}
	k := NewKey(x, y, z)
	if !g.canonicalBox(k).Contains(b.Box()) {
		return 0, false
	}
	return k, true
}

// GetOrCreateCell returns the cell index for b, creating the cell if needed.
// Bounds that do not fit a single cell go to the overflow cell.
func (g *Grid) GetOrCreateCell(b geom.Bounds, alwaysVisible bool) uint32 {
	if alwaysVisible {
		return BypassCellIndex
	}
	k, ok := g.locate(b)
	if !ok {
		return OverflowCellIndex
	}
	if ci, ok := g.lookup[k]; ok {
		return ci
	}
	ci := uint32(len(g.cells))
	g.cells = append(g.cells, cell.New(g.canonicalBox(k).Inflate(g.cfg.CellSize*cellInflation)))
	g.keys = append(g.keys, k)
	g.lookup[k] = ci
	return ci
}

func (g *Grid) ensureMapping(index uint32) {
	for int(index) >= len(g.mapping) {
		g.mapping = append(g.mapping, invalidMapping)
	}
}

func (g *Grid) addAt(index, ci uint32, b geom.Bounds, t tags.Set, ref uint64, stamp cell.Stamp) {
	g.ensureMapping(index)
	slot := g.cells[ci].Add(b, t, ref, stamp, index)
	g.mapping[index] = Mapping{Cell: ci, Slot: uint32(slot)}
	g.members.Add(index)
}

// AddSpatialData stores an entity. The caller decides membership; the cache
// filter is not re-checked here.
func (g *Grid) AddSpatialData(index uint32, b geom.Bounds, t tags.Set, ref uint64, stamp cell.Stamp, alwaysVisible bool) error {
	if index == InvalidIndex {
		return fmt.Errorf("%w: reserved instance index", ErrCorrupt)
	}
	if g.Contains(index) {
		return fmt.Errorf("%w: entity %d already in grid %d", ErrCorrupt, index, g.cfg.Slot)
	}
	g.addAt(index, g.GetOrCreateCell(b, alwaysVisible), b, t, ref, stamp)
	return nil
}

// checkedMapping returns the entity's mapping after verifying the slot's
// back-reference.
func (g *Grid) checkedMapping(index uint32) (Mapping, error) {
	m := g.Mapping(index)
	if !m.Valid() {
		return m, fmt.Errorf("%w: entity %d not in grid %d", ErrCorrupt, index, g.cfg.Slot)
	}
	c := g.cells[m.Cell]
	if int(m.Slot) >= c.Len() || c.DataIndex(int(m.Slot)) != index {
		return m, fmt.Errorf("%w: entity %d mapped to cell %d slot %d with mismatched back-reference",
			ErrCorrupt, index, m.Cell, m.Slot)
	}
	return m, nil
}

func (g *Grid) removeAt(index uint32, m Mapping) {
	moved := g.cells[m.Cell].Remove(int(m.Slot))
	if moved != index {
		g.mapping[moved].Slot = m.Slot
	}
	g.mapping[index] = invalidMapping
	g.members.Remove(index)
}

// RemoveSpatialData removes an entity and patches the mapping of whichever
// entity was swapped into its slot.
func (g *Grid) RemoveSpatialData(index uint32) error {
	m, err := g.checkedMapping(index)
	if err != nil {
		return err
	}
	g.removeAt(index, m)
	return nil
}

// UpdateSpatialData replaces the entity's bounds. It updates in place while
// the bounds still fit the current cell and relocates otherwise. Always-
// visible entities are never relocated.
func (g *Grid) UpdateSpatialData(index uint32, b geom.Bounds) (relocated bool, err error) {
	m, err := g.checkedMapping(index)
	if err != nil {
		return false, err
	}
	c := g.cells[m.Cell]
	slot := int(m.Slot)

	switch m.Cell {
	case BypassCellIndex:
		c.SetBounds(slot, b)
		return false, nil
	case OverflowCellIndex:
		if _, fits := g.locate(b); !fits {
			c.SetBounds(slot, b)
			return false, nil
		}
	default:
		if g.canonicalBox(g.keys[m.Cell]).Contains(b.Box()) {
			c.SetBounds(slot, b)
			return false, nil
		}
	}

	t, ref, stamp := c.Tags(slot), c.Ref(slot), c.Stamp(slot)
	g.removeAt(index, m)
	g.addAt(index, g.GetOrCreateCell(b, false), b, t, ref, stamp)
	return true, nil
}

// MigrateSpatialDataFromOtherGrid copies one entity from src, applying this
// grid's filter. It returns false when the entity is already present, absent
// from src, or rejected by the filter.
func (g *Grid) MigrateSpatialDataFromOtherGrid(index uint32, src *Grid) bool {
	if g.Contains(index) {
		return false
	}
	m, err := src.checkedMapping(index)
	if err != nil {
		return false
	}
	c := src.cells[m.Cell]
	slot := int(m.Slot)
	t := c.Tags(slot)
	if !g.cfg.Filter.Accepts(t) {
		return false
	}
	b := c.Bounds(slot)
	g.addAt(index, g.GetOrCreateCell(b, m.Cell == BypassCellIndex), b, t, c.Ref(slot), c.Stamp(slot))
	return true
}

// VisibilityStamp returns the entity's last-visible stamp.
func (g *Grid) VisibilityStamp(index uint32) (cell.Stamp, bool) {
	m := g.Mapping(index)
	if !m.Valid() {
		return 0, false
	}
	return g.cells[m.Cell].Stamp(int(m.Slot)), true
}

// CellVisitor receives a cell and its index; returning false stops the walk.
type CellVisitor func(index uint32, c *cell.Cell) bool

// ForEachCellInBox visits every populated cell that can hold an entity
// overlapping box, then the overflow and bypass cells. The order of the
// regular cells is unspecified. It returns false if the visitor stopped the
// walk.
func (g *Grid) ForEachCellInBox(box geom.AABB, visit CellVisitor) bool {
	lo, hi, ok := g.coordRange(box)
	if ok {
		if spanExceeds(lo, hi, len(g.lookup)) {
			// Fewer populated cells than coordinates in range: scan the cells.
			for ci := firstRegularCell; ci < len(g.cells); ci++ {
				k := g.keys[ci]
				if k.X() < lo[0] || k.X() > hi[0] || k.Y() < lo[1] || k.Y() > hi[1] || k.Z() < lo[2] || k.Z() > hi[2] {
					continue
				}
				if !visit(uint32(ci), g.cells[ci]) {
					return false
				}
			}
		} else {
			for z := lo[2]; z <= hi[2]; z++ {
				for y := lo[1]; y <= hi[1]; y++ {
					for x := lo[0]; x <= hi[0]; x++ {
						ci, found := g.lookup[NewKey(x, y, z)]
						if !found {
							continue
						}
						if !visit(ci, g.cells[ci]) {
							return false
						}
					}
				}
			}
		}
	}

	if !visit(OverflowCellIndex, g.cells[OverflowCellIndex]) {
		return false
	}
	return visit(BypassCellIndex, g.cells[BypassCellIndex])
}

// spanExceeds reports whether the coordinate range holds more than n
// coordinates. The running product stops at n so it cannot overflow.
func spanExceeds(lo, hi [3]int32, n int) bool {
	span := int64(1)
	for i := 0; i < 3; i++ {
		span *= int64(hi[i]) - int64(lo[i]) + 1
		if span > int64(n) {
			return true
		}
	}
	return false
}

// coordRange returns the clamped coordinate range covering box expanded by
// the cell margin.
func (g *Grid) coordRange(box geom.AABB) (lo, hi [3]int32, ok bool) {
	s := float64(g.cfg.CellSize)
	m := float64(g.margin)
	for i := 0; i < 3; i++ {
		// A cell reaches down to its coordinate's upper bound plus the margin.
		l := math.Ceil((float64(box.Min[i])-m)/s) - 1
		h := math.Floor((float64(box.Max[i]) + m) / s)
		if math.IsNaN(l) || math.IsNaN(h) || l > h || l > MaxCoord || h < MinCoord {
			return lo, hi, false
		}
		lo[i] = int32(math.Max(l, MinCoord))
		hi[i] = int32(math.Min(h, MaxCoord))
	}
	return lo, hi, true
}

// Verify checks every cell and the mapping/back-reference invariant.
func (g *Grid) Verify() error {
	total := 0
	for ci, c := range g.cells {
		if err := c.Verify(); err != nil {
			return fmt.Errorf("%w: cell %d: %w", ErrCorrupt, ci, err)
		}
		for slot := 0; slot < c.Len(); slot++ {
			idx := c.DataIndex(slot)
			if got := g.Mapping(idx); got != (Mapping{Cell: uint32(ci), Slot: uint32(slot)}) {
				return fmt.Errorf("%w: entity %d at cell %d slot %d but mapped to %+v", ErrCorrupt, idx, ci, slot, got)
			}
		}
		total += c.Len()
	}
	if total != g.Len() {
		return fmt.Errorf("%w: %d stored entities, %d members", ErrCorrupt, total, g.Len())
	}
	return nil
}
