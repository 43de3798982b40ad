package cell

import (
	"sync"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/hupe1980/cullgrid/geom"
	"github.com/hupe1980/cullgrid/tags"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bounds(x float32) geom.Bounds {
	return geom.BoundsFromSphere(geom.Sphere{Center: mgl32.Vec3{x, 0, 0}, Radius: 1})
}

func TestCell_AddRemove(t *testing.T) {
	c := New(geom.AABB{Max: mgl32.Vec3{10, 10, 10}})

	for i := uint32(0); i < 4; i++ {
		slot := c.Add(bounds(float32(i)), tags.New(tags.Tag(i)), uint64(100+i), NewStamp(uint64(i), Direct), i)
		require.Equal(t, int(i), slot)
	}
	require.Equal(t, 4, c.Len())

	t.Run("swap with last", func(t *testing.T) {
		moved := c.Remove(1)
		assert.Equal(t, uint32(3), moved)
		require.NoError(t, c.Verify())
		assert.Equal(t, 3, c.Len())

		// slot 1 now holds what was entity 3, with all columns moved together
		assert.Equal(t, uint32(3), c.DataIndex(1))
		assert.Equal(t, uint64(103), c.Ref(1))
		assert.True(t, c.Tags(1).Has(3))
		assert.Equal(t, float32(3), c.Bounds(1).Sphere.Center[0])
		assert.Equal(t, uint64(3), c.Stamp(1).Frame())
	})

	t.Run("remove last", func(t *testing.T) {
		moved := c.Remove(c.Len() - 1)
		assert.Equal(t, uint32(2), moved)
		require.NoError(t, c.Verify())
		assert.Equal(t, 2, c.Len())
	})

	t.Run("remove only", func(t *testing.T) {
		c.Remove(0)
		c.Remove(0)
		assert.Equal(t, 0, c.Len())
		require.NoError(t, c.Verify())
	})
}

func TestCell_SetBoundsAndBox(t *testing.T) {
	box := geom.AABB{Min: mgl32.Vec3{-1, -1, -1}, Max: mgl32.Vec3{1, 1, 1}}
	c := New(box)
	assert.Equal(t, box, c.BoundingBox())
	assert.False(t, c.Unbounded())

	slot := c.Add(bounds(0), tags.Set{}, 1, 0, 0)
	c.SetBounds(slot, bounds(0.5))
	assert.Equal(t, float32(0.5), c.Spheres()[slot].Center[0])

	assert.True(t, NewUnbounded().Unbounded())
}

func TestCell_MarkVisibleConcurrent(t *testing.T) {
	c := New(geom.Unbounded())
	slot := c.Add(bounds(0), tags.Set{}, 1, 0, 0)

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for f := uint64(1); f <= 100; f++ {
				kind := Indirect
				if w%2 == 0 {
					kind = Direct
				}
				c.MarkVisible(slot, NewStamp(f, kind))
			}
		}(w)
	}
	wg.Wait()

	assert.Equal(t, NewStamp(100, Direct), c.Stamp(slot))
}
