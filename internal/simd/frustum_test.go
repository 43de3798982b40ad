package simd

import (
	"math/rand"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/hupe1980/cullgrid/geom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPlanes() PackedPlanes {
	proj := mgl32.Perspective(mgl32.DegToRad(60), 16.0/9.0, 0.5, 200)
	view := mgl32.LookAtV(mgl32.Vec3{0, 5, 10}, mgl32.Vec3{0, 0, -20}, mgl32.Vec3{0, 1, 0})
	return PackFrustum(geom.FrustumFromMatrix(proj.Mul4(view)))
}

func randomSpheres(rng *rand.Rand, n int) []geom.Sphere {
	out := make([]geom.Sphere, n)
	for i := range out {
		out[i] = geom.Sphere{
			Center: mgl32.Vec3{
				rng.Float32()*400 - 200,
				rng.Float32()*100 - 50,
				rng.Float32()*400 - 300,
			},
			Radius: rng.Float32() * 8,
		}
	}
	return out
}

func TestTestSphere_MatchesFrustum(t *testing.T) {
	proj := mgl32.Perspective(mgl32.DegToRad(60), 16.0/9.0, 0.5, 200)
	view := mgl32.LookAtV(mgl32.Vec3{0, 5, 10}, mgl32.Vec3{0, 0, -20}, mgl32.Vec3{0, 1, 0})
	f := geom.FrustumFromMatrix(proj.Mul4(view))
	p := PackFrustum(f)

	rng := rand.New(rand.NewSource(1))
	for _, s := range randomSpheres(rng, 2000) {
		require.Equal(t, f.IntersectsSphere(s), p.TestSphere(s), "sphere %v", s)
	}
}

func TestPackFrustum_DuplicatesLastPlanes(t *testing.T) {
	p := testPlanes()
	assert.Equal(t, p.BX[0], p.BX[2])
	assert.Equal(t, p.BX[1], p.BX[3])
	assert.Equal(t, p.BW[0], p.BW[2])
	assert.Equal(t, p.BW[1], p.BW[3])
}

func TestCullBatch_KernelsAgree(t *testing.T) {
	p := testPlanes()
	rng := rand.New(rand.NewSource(42))

	for round := 0; round < 200; round++ {
		spheres := randomSpheres(rng, BatchSize)

		generic := cullBatchGeneric(&p, spheres)
		paired := cullBatchPaired(&p, spheres)
		require.Equal(t, generic, paired, "round %d", round)
		require.Equal(t, generic, CullBatch(&p, spheres), "round %d", round)

		for i, s := range spheres {
			require.Equal(t, p.TestSphere(s), generic&(1<<uint(i)) != 0)
		}
	}
}

func TestCullBatch_AllInsideAndOutside(t *testing.T) {
	p := testPlanes()

	inside := make([]geom.Sphere, BatchSize)
	outside := make([]geom.Sphere, BatchSize)
	for i := range inside {
		inside[i] = geom.Sphere{Center: mgl32.Vec3{0, 0, -30}, Radius: 1}
		outside[i] = geom.Sphere{Center: mgl32.Vec3{0, 0, 500}, Radius: 1}
	}

	assert.Equal(t, ^uint32(0), cullBatchPaired(&p, inside))
	assert.Equal(t, uint32(0), cullBatchPaired(&p, outside))

	mixed := append([]geom.Sphere(nil), inside...)
	mixed[5] = outside[0]
	mixed[30] = outside[0]
	assert.Equal(t, ^uint32(0)&^(1<<5|1<<30), cullBatchPaired(&p, mixed))
}

func TestCullBatch_PanicsOnShortInput(t *testing.T) {
	p := testPlanes()
	assert.Panics(t, func() {
		CullBatch(&p, make([]geom.Sphere, BatchSize-1))
	})
}

func TestSelectKernel(t *testing.T) {
	prevImpl, prevKernel := cullBatchImpl, activeKernel
	t.Cleanup(func() {
		cullBatchImpl, activeKernel = prevImpl, prevKernel
	})

	p := testPlanes()
	spheres := randomSpheres(rand.New(rand.NewSource(3)), BatchSize)
	want := cullBatchGeneric(&p, spheres)

	for _, k := range []Kernel{Generic, Paired} {
		selectKernel(k)
		assert.Equal(t, k, ActiveKernel())
		assert.Equal(t, k.String(), KernelName())
		assert.Equal(t, want, CullBatch(&p, spheres), "kernel %s", k)
	}
}

func TestChooseKernel(t *testing.T) {
	tests := []struct {
		name     string
		wide     bool
		override string
		want     Kernel
	}{
		{"wide", true, "", Paired},
		{"narrow", false, "", Generic},
		{"forced generic", true, "generic", Generic},
		{"forced paired", false, " PAIRED ", Paired},
		{"unknown override ignored", true, "avx512", Paired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, chooseKernel(tt.wide, tt.override))
		})
	}
}

func TestParseKernel(t *testing.T) {
	k, ok := ParseKernel(" Paired ")
	assert.True(t, ok)
	assert.Equal(t, Paired, k)

	_, ok = ParseKernel("mmx")
	assert.False(t, ok)
	assert.Equal(t, "unknown", Kernel(99).String())
}
