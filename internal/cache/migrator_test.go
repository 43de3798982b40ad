package cache

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/hupe1980/cullgrid/geom"
	"github.com/hupe1980/cullgrid/internal/grid"
	"github.com/hupe1980/cullgrid/tags"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrator_Step(t *testing.T) {
	src := grid.New(grid.Config{Slot: 0, CellSize: 10, CanBeCached: true})
	for i := uint32(0); i < 100; i++ {
		// Sparse indices exercise the cursor.
		index := i * 3
		tg := tags.New(2)
		if i%4 == 0 {
			tg = tags.New(1)
		}
		b := geom.BoundsFromSphere(geom.Sphere{Center: mgl32.Vec3{float32(i), 0, 0}, Radius: 1})
		require.NoError(t, src.AddSpatialData(index, b, tg, uint64(index), 0, false))
	}

	include := tags.New(1)
	dst := grid.New(grid.Config{Slot: 7, CellSize: 10, Cached: true, Filter: tags.NewFilter(&include, nil)})
	m := Migrator{BatchSize: 16}

	assert.Zero(t, Progress(dst, src))

	var moved []uint32
	steps := 0
	for {
		_, done := m.Step(dst, src, func(index uint32) { moved = append(moved, index) })
		steps++
		if done {
			break
		}
		p := Progress(dst, src)
		assert.InDelta(t, float64(16*steps)/100, p, 1e-9)
		require.Less(t, steps, 10)
	}

	assert.Equal(t, 7, steps)
	assert.True(t, dst.MigrationComplete())
	assert.Equal(t, 1.0, Progress(dst, src))
	assert.Len(t, moved, 25)
	assert.Equal(t, 25, dst.Len())
	for _, index := range moved {
		assert.Zero(t, index%12, "index %d", index)
	}
	require.NoError(t, dst.Verify())

	n, done := m.Step(dst, src, nil)
	assert.Zero(t, n)
	assert.True(t, done)
}

func TestMigrator_EmptySource(t *testing.T) {
	src := grid.New(grid.Config{CellSize: 10})
	dst := grid.New(grid.Config{Slot: 1, CellSize: 10, Cached: true})

	n, done := Migrator{BatchSize: 4}.Step(dst, src, nil)
	assert.Zero(t, n)
	assert.True(t, done)
}

func TestMigrator_SkipsAlreadyPresent(t *testing.T) {
	src := grid.New(grid.Config{CellSize: 10})
	dst := grid.New(grid.Config{Slot: 1, CellSize: 10, Cached: true})
	b := geom.BoundsFromSphere(geom.Sphere{Radius: 1})
	for i := uint32(0); i < 4; i++ {
		require.NoError(t, src.AddSpatialData(i, b, tags.Set{}, uint64(i), 0, false))
	}
	// Inserted directly after promotion.
	require.NoError(t, dst.AddSpatialData(2, b, tags.Set{}, 2, 0, false))

	n, done := Migrator{BatchSize: 64}.Step(dst, src, nil)
	assert.Equal(t, 3, n)
	assert.True(t, done)
	assert.Equal(t, 4, dst.Len())
}
