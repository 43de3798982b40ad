// Package geom provides the bounding volumes and frustum math used by the
// spatial index.
//
// Vectors and matrices are github.com/go-gl/mathgl/mgl32 values. Bounds pair a
// bounding sphere with a box half extent sharing the same center, which lets
// the index run cheap sphere tests in the hot path and exact box containment
// when assigning grid cells.
package geom
