package simd

import (
	"github.com/hupe1980/cullgrid/geom"
)

// BatchSize is the number of spheres CullBatch tests per call. The result is
// a uint32 with bit i set when sphere i intersects the frustum.
const BatchSize = 32

// PackedPlanes stores six outward-facing planes lane-major. Group A holds
// planes 0-3. Group B holds planes 4, 5, 4, 5 so one 4-wide evaluation covers
// the last two planes for a pair of spheres.
//
// A sphere intersects the frustum when dot(center, n) + w <= radius holds
// for all six planes.
type PackedPlanes struct {
	AX, AY, AZ, AW [4]float32
	BX, BY, BZ, BW [4]float32
}

// PackFrustum converts inward-facing frustum planes into the packed outward
// layout.
func PackFrustum(f geom.Frustum) PackedPlanes {
	var p PackedPlanes
	for i := 0; i < 4; i++ {
		pl := f.Planes[i]
		p.AX[i], p.AY[i], p.AZ[i], p.AW[i] = -pl.Normal[0], -pl.Normal[1], -pl.Normal[2], -pl.Distance
	}
	for i := 0; i < 4; i++ {
		pl := f.Planes[4+i%2]
		p.BX[i], p.BY[i], p.BZ[i], p.BW[i] = -pl.Normal[0], -pl.Normal[1], -pl.Normal[2], -pl.Distance
	}
	return p
}

// TestSphere is the scalar test used for tail elements and by the generic
// kernel.
func (p *PackedPlanes) TestSphere(s geom.Sphere) bool {
	x, y, z, r := s.Center[0], s.Center[1], s.Center[2], s.Radius
	for i := 0; i < 4; i++ {
		if x*p.AX[i]+y*p.AY[i]+z*p.AZ[i]+p.AW[i] > r {
			return false
		}
	}
	for i := 0; i < 2; i++ {
		if x*p.BX[i]+y*p.BY[i]+z*p.BZ[i]+p.BW[i] > r {
			return false
		}
	}
	return true
}

// cullBatchImpl is the implementation function pointer.
var cullBatchImpl = cullBatchGeneric

// activeKernel describes cullBatchImpl for diagnostics.
var activeKernel = Generic

func selectKernel(k Kernel) {
	activeKernel = k
	switch k {
	case Paired:
		cullBatchImpl = cullBatchPaired
	default:
		cullBatchImpl = cullBatchGeneric
	}
}

// ActiveKernel reports which batch kernel is in use.
func ActiveKernel() Kernel {
	return activeKernel
}

// KernelName reports the name of the active batch kernel.
func KernelName() string {
	return activeKernel.String()
}

// CullBatch tests spheres[0:BatchSize] against the planes. It panics if
// fewer than BatchSize spheres are given.
func CullBatch(p *PackedPlanes, spheres []geom.Sphere) uint32 {
	return cullBatchImpl(p, spheres[:BatchSize:BatchSize])
}

func cullBatchGeneric(p *PackedPlanes, spheres []geom.Sphere) uint32 {
	var mask uint32
	for i := range spheres {
		if p.TestSphere(spheres[i]) {
			mask |= 1 << uint(i)
		}
	}
	return mask
}

// cullBatchPaired tests two spheres per iteration and sets up to two result
// bits.
func cullBatchPaired(p *PackedPlanes, spheres []geom.Sphere) uint32 {
	_ = spheres[BatchSize-1]

	var mask uint32
	for i := 0; i < BatchSize; i += 2 {
		a := &spheres[i]
		b := &spheres[i+1]

		ma := groupA(p, a)
		mb := groupA(p, b)
		pair := groupB(p, a, b)

		// pair lanes: 0,1 = sphere a vs planes 4,5; 2,3 = sphere b vs planes 4,5.
		if ma == 0xF && pair&0x3 == 0x3 {
			mask |= 1 << uint(i)
		}
		if mb == 0xF && pair&0xC == 0xC {
			mask |= 1 << uint(i+1)
		}
	}
	return mask
}

// groupA returns a 4-bit mask of planes 0-3 that pass for s.
func groupA(p *PackedPlanes, s *geom.Sphere) uint32 {
	x, y, z, r := s.Center[0], s.Center[1], s.Center[2], s.Radius
	return le(x*p.AX[0]+y*p.AY[0]+z*p.AZ[0]+p.AW[0], r) |
		le(x*p.AX[1]+y*p.AY[1]+z*p.AZ[1]+p.AW[1], r)<<1 |
		le(x*p.AX[2]+y*p.AY[2]+z*p.AZ[2]+p.AW[2], r)<<2 |
		le(x*p.AX[3]+y*p.AY[3]+z*p.AZ[3]+p.AW[3], r)<<3
}

// groupB evaluates planes 4,5 for a (lanes 0,1) and b (lanes 2,3).
func groupB(p *PackedPlanes, a, b *geom.Sphere) uint32 {
	return le(a.Center[0]*p.BX[0]+a.Center[1]*p.BY[0]+a.Center[2]*p.BZ[0]+p.BW[0], a.Radius) |
		le(a.Center[0]*p.BX[1]+a.Center[1]*p.BY[1]+a.Center[2]*p.BZ[1]+p.BW[1], a.Radius)<<1 |
		le(b.Center[0]*p.BX[2]+b.Center[1]*p.BY[2]+b.Center[2]*p.BZ[2]+p.BW[2], b.Radius)<<2 |
		le(b.Center[0]*p.BX[3]+b.Center[1]*p.BY[3]+b.Center[2]*p.BZ[3]+p.BW[3], b.Radius)<<3
}

// le returns 1 when v <= r. The compiler lowers it to a conditional move.
func le(v, r float32) uint32 {
	if v <= r {
		return 1
	}
	return 0
}
