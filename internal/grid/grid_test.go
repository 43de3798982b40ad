package grid

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/hupe1980/cullgrid/geom"
	"github.com/hupe1980/cullgrid/internal/cell"
	"github.com/hupe1980/cullgrid/tags"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCellSize = 10

func newTestGrid() *Grid {
	return New(Config{Slot: 0, Category: 0, CellSize: testCellSize, CanBeCached: true})
}

func sphereAt(x, y, z, r float32) geom.Bounds {
	return geom.BoundsFromSphere(geom.Sphere{Center: mgl32.Vec3{x, y, z}, Radius: r})
}

func TestGrid_GetOrCreateCell(t *testing.T) {
	g := newTestGrid()

	small := g.GetOrCreateCell(sphereAt(5, 5, 5, 1), false)
	assert.GreaterOrEqual(t, small, uint32(firstRegularCell))
	assert.Equal(t, small, g.GetOrCreateCell(sphereAt(6, 4, 5, 1), false), "same coordinate reuses the cell")

	// Fits the margin: the canonical box spans [-2.5, 12.5].
	assert.Equal(t, small, g.GetOrCreateCell(sphereAt(9, 5, 5, 3), false))

	// Exceeds the canonical box.
	assert.Equal(t, OverflowCellIndex, g.GetOrCreateCell(sphereAt(5, 5, 5, 20), false))

	// Negative coordinates hash to a different cell.
	neg := g.GetOrCreateCell(sphereAt(-5, -5, -5, 1), false)
	assert.NotEqual(t, small, neg)

	// Out of the representable range.
	assert.Equal(t, OverflowCellIndex, g.GetOrCreateCell(sphereAt(1e12, 0, 0, 1), false))

	assert.Equal(t, BypassCellIndex, g.GetOrCreateCell(sphereAt(5, 5, 5, 1), true))
}

func TestGrid_CellBoxInflated(t *testing.T) {
	g := newTestGrid()
	ci := g.GetOrCreateCell(sphereAt(5, 5, 5, 1), false)
	box := g.Cell(ci).BoundingBox()
	canonical := g.canonicalBox(NewKey(0, 0, 0))

	assert.True(t, box.Contains(canonical))
	assert.NotEqual(t, canonical, box)
}

func TestGrid_SwapRemoveIntegrity(t *testing.T) {
	g := newTestGrid()

	for i := uint32(0); i < 6; i++ {
		require.NoError(t, g.AddSpatialData(i, sphereAt(5, 5, 5, 1), tags.Set{}, uint64(i), 0, false))
	}
	ci := g.Mapping(0).Cell
	require.Equal(t, 6, g.Cell(ci).Len())

	require.NoError(t, g.RemoveSpatialData(1))
	require.NoError(t, g.Verify())

	// Entity 5 was last and now sits in slot 1.
	assert.Equal(t, Mapping{Cell: ci, Slot: 1}, g.Mapping(5))
	assert.Equal(t, uint32(5), g.Cell(ci).DataIndex(1))
	assert.False(t, g.Contains(1))
	assert.Equal(t, 5, g.Len())

	require.NoError(t, g.RemoveSpatialData(5))
	require.NoError(t, g.Verify())
	assert.Equal(t, uint32(4), g.Cell(ci).DataIndex(1))
}

func TestGrid_InvariantErrors(t *testing.T) {
	g := newTestGrid()
	require.NoError(t, g.AddSpatialData(3, sphereAt(1, 1, 1, 1), tags.Set{}, 3, 0, false))

	assert.ErrorIs(t, g.AddSpatialData(3, sphereAt(1, 1, 1, 1), tags.Set{}, 3, 0, false), ErrCorrupt)
	assert.ErrorIs(t, g.RemoveSpatialData(4), ErrCorrupt)
	assert.ErrorIs(t, g.AddSpatialData(InvalidIndex, sphereAt(1, 1, 1, 1), tags.Set{}, 0, 0, false), ErrCorrupt)

	_, err := g.UpdateSpatialData(99, sphereAt(1, 1, 1, 1))
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestGrid_UpdateSpatialData(t *testing.T) {
	g := newTestGrid()
	require.NoError(t, g.AddSpatialData(0, sphereAt(5, 5, 5, 1), tags.New(1), 42, cell.NewStamp(7, cell.Direct), false))
	start := g.Mapping(0)

	t.Run("in place", func(t *testing.T) {
		relocated, err := g.UpdateSpatialData(0, sphereAt(11, 5, 5, 1))
		require.NoError(t, err)
		assert.False(t, relocated, "still inside the margin of the old cell")
		assert.Equal(t, start, g.Mapping(0))
	})

	t.Run("relocate", func(t *testing.T) {
		relocated, err := g.UpdateSpatialData(0, sphereAt(25, 5, 5, 1))
		require.NoError(t, err)
		assert.True(t, relocated)
		assert.NotEqual(t, start.Cell, g.Mapping(0).Cell)

		m := g.Mapping(0)
		c := g.Cell(m.Cell)
		assert.Equal(t, uint64(42), c.Ref(int(m.Slot)))
		assert.True(t, c.Tags(int(m.Slot)).Has(1))
		assert.Equal(t, cell.NewStamp(7, cell.Direct), c.Stamp(int(m.Slot)))
	})

	t.Run("to overflow and back", func(t *testing.T) {
		_, err := g.UpdateSpatialData(0, sphereAt(25, 5, 5, 100))
		require.NoError(t, err)
		assert.Equal(t, OverflowCellIndex, g.Mapping(0).Cell)

		relocated, err := g.UpdateSpatialData(0, sphereAt(25, 5, 5, 200))
		require.NoError(t, err)
		assert.False(t, relocated)

		relocated, err = g.UpdateSpatialData(0, sphereAt(25, 5, 5, 1))
		require.NoError(t, err)
		assert.True(t, relocated)
		assert.NotEqual(t, OverflowCellIndex, g.Mapping(0).Cell)
	})

	t.Run("bypass never relocates", func(t *testing.T) {
		require.NoError(t, g.AddSpatialData(1, sphereAt(0, 0, 0, 1), tags.Set{}, 1, 0, true))
		relocated, err := g.UpdateSpatialData(1, sphereAt(500, 0, 0, 1))
		require.NoError(t, err)
		assert.False(t, relocated)
		assert.Equal(t, BypassCellIndex, g.Mapping(1).Cell)
	})

	require.NoError(t, g.Verify())
}

func TestGrid_ForEachCellInBox(t *testing.T) {
	g := newTestGrid()
	near := g.GetOrCreateCell(sphereAt(5, 5, 5, 1), false)
	far := g.GetOrCreateCell(sphereAt(505, 5, 5, 1), false)

	var visited []uint32
	completed := g.ForEachCellInBox(geom.AABB{Min: mgl32.Vec3{0, 0, 0}, Max: mgl32.Vec3{1, 1, 1}}, func(i uint32, _ *cell.Cell) bool {
		visited = append(visited, i)
		return true
	})
	assert.True(t, completed)
	assert.Equal(t, []uint32{near, OverflowCellIndex, BypassCellIndex}, visited)

	t.Run("overflow visited for remote box", func(t *testing.T) {
		visited = visited[:0]
		g.ForEachCellInBox(geom.AABB{Min: mgl32.Vec3{-900, -900, -900}, Max: mgl32.Vec3{-899, -899, -899}}, func(i uint32, _ *cell.Cell) bool {
			visited = append(visited, i)
			return true
		})
		assert.Equal(t, []uint32{OverflowCellIndex, BypassCellIndex}, visited)
	})

	t.Run("huge box scans populated cells", func(t *testing.T) {
		visited = visited[:0]
		g.ForEachCellInBox(geom.Unbounded(), func(i uint32, _ *cell.Cell) bool {
			visited = append(visited, i)
			return true
		})
		assert.ElementsMatch(t, []uint32{near, far, OverflowCellIndex, BypassCellIndex}, visited)
	})

	t.Run("early stop", func(t *testing.T) {
		calls := 0
		completed := g.ForEachCellInBox(geom.Unbounded(), func(uint32, *cell.Cell) bool {
			calls++
			return false
		})
		assert.False(t, completed)
		assert.Equal(t, 1, calls)
	})
}

func TestGrid_ForEachCellInBox_WorldSizedBox(t *testing.T) {
	g := newTestGrid()
	require.NoError(t, g.AddSpatialData(0, sphereAt(5, 5, 5, 1), tags.Set{}, 10, 0, false))
	require.NoError(t, g.AddSpatialData(1, sphereAt(-305, 45, 5, 1), tags.Set{}, 11, 0, false))
	require.NoError(t, g.AddSpatialData(2, sphereAt(0, 0, 0, 500), tags.Set{}, 12, 0, false))
	require.Equal(t, OverflowCellIndex, g.Mapping(2).Cell)

	world := geom.AABB{Min: mgl32.Vec3{-1e9, -1e9, -1e9}, Max: mgl32.Vec3{1e9, 1e9, 1e9}}
	lo, hi, ok := g.coordRange(world)
	require.True(t, ok)
	assert.Equal(t, [3]int32{MinCoord, MinCoord, MinCoord}, lo)
	assert.Equal(t, [3]int32{MaxCoord, MaxCoord, MaxCoord}, hi)

	var visited []uint32
	var refs []uint64
	g.ForEachCellInBox(world, func(i uint32, c *cell.Cell) bool {
		visited = append(visited, i)
		for slot := 0; slot < c.Len(); slot++ {
			refs = append(refs, c.Ref(slot))
		}
		return true
	})
	assert.ElementsMatch(t, []uint32{g.Mapping(0).Cell, g.Mapping(1).Cell, OverflowCellIndex, BypassCellIndex}, visited)
	assert.ElementsMatch(t, []uint64{10, 11, 12}, refs)
}

func TestSpanExceeds(t *testing.T) {
	full := [3]int32{MaxCoord, MaxCoord, MaxCoord}
	lowest := [3]int32{MinCoord, MinCoord, MinCoord}

	tests := []struct {
		name   string
		lo, hi [3]int32
		n      int
		want   bool
	}{
		{"single coordinate", [3]int32{}, [3]int32{}, 1, false},
		{"single coordinate empty grid", [3]int32{}, [3]int32{}, 0, true},
		{"cube of 27", [3]int32{-1, -1, -1}, [3]int32{1, 1, 1}, 27, false},
		{"cube of 27 vs 26", [3]int32{-1, -1, -1}, [3]int32{1, 1, 1}, 26, true},
		{"full range", lowest, full, 1 << 30, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, spanExceeds(tt.lo, tt.hi, tt.n))
		})
	}
}

func TestGrid_MigrateSpatialDataFromOtherGrid(t *testing.T) {
	src := newTestGrid()
	require.NoError(t, src.AddSpatialData(0, sphereAt(5, 5, 5, 1), tags.New(1), 10, cell.NewStamp(3, cell.Indirect), false))
	require.NoError(t, src.AddSpatialData(1, sphereAt(5, 5, 5, 1), tags.New(2), 11, 0, false))
	require.NoError(t, src.AddSpatialData(2, sphereAt(5, 5, 5, 1), tags.New(1), 12, 0, true))

	dst := New(Config{Slot: 9, Category: 0, CellSize: testCellSize, Cached: true, Filter: tags.Filter{Include: tags.New(1)}})
	assert.False(t, dst.MigrationComplete())

	assert.True(t, dst.MigrateSpatialDataFromOtherGrid(0, src))
	assert.False(t, dst.MigrateSpatialDataFromOtherGrid(0, src), "already present")
	assert.False(t, dst.MigrateSpatialDataFromOtherGrid(1, src), "filtered out")
	assert.False(t, dst.MigrateSpatialDataFromOtherGrid(7, src), "absent from source")
	assert.True(t, dst.MigrateSpatialDataFromOtherGrid(2, src))

	stamp, ok := dst.VisibilityStamp(0)
	require.True(t, ok)
	assert.Equal(t, cell.NewStamp(3, cell.Indirect), stamp)
	assert.Equal(t, BypassCellIndex, dst.Mapping(2).Cell)
	assert.Equal(t, 2, dst.Len())
	require.NoError(t, dst.Verify())
}
