package simd

import (
	"math/rand"
	"testing"
)

func BenchmarkCullBatch(b *testing.B) {
	p := testPlanes()
	spheres := randomSpheres(rand.New(rand.NewSource(7)), BatchSize*64)

	b.Run("generic", func(b *testing.B) {
		var sink uint32
		for i := 0; i < b.N; i++ {
			off := (i % 64) * BatchSize
			sink ^= cullBatchGeneric(&p, spheres[off:off+BatchSize])
		}
		_ = sink
	})

	b.Run("paired", func(b *testing.B) {
		var sink uint32
		for i := 0; i < b.N; i++ {
			off := (i % 64) * BatchSize
			sink ^= cullBatchPaired(&p, spheres[off:off+BatchSize])
		}
		_ = sink
	})
}
