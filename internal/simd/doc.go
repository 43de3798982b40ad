// Package simd provides the data-parallel frustum culling kernels.
//
// Two kernels implement CullBatch. Generic tests one sphere against the six
// planes at a time. Paired processes two spheres per step: planes 0-3 are
// evaluated as one 4-wide group per sphere, and planes 4-5 are duplicated
// into a second 4-wide group so both spheres share it.
//
// Paired is selected on CPUs with 4-wide float vectors and fused
// multiply-add (AVX with FMA on x86-64, ASIMD on ARM64). Set
// CULLGRID_SIMD=generic or CULLGRID_SIMD=paired to pin a kernel.
package simd
