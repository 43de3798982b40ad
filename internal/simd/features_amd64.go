//go:build amd64

package simd

import "golang.org/x/sys/cpu"

// The plane dot products are fused multiply-adds, so AVX only counts with FMA.
func init() {
	hasWideFloat = cpu.X86.HasAVX && cpu.X86.HasFMA
	initCapabilities()
}
