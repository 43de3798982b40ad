package grid

import "fmt"

const (
	axisBits   = 21
	axisMask   = 1<<axisBits - 1
	axisOffset = 1 << (axisBits - 1)

	// MinCoord and MaxCoord bound the representable cell coordinates.
	MinCoord = -axisOffset
	MaxCoord = axisOffset - 1
)

// Key packs a 3D cell coordinate into 3 × 21-bit fields (x low, z high).
// Coordinates are offset so negative values map to unsigned ranges.
type Key uint64

// NewKey packs a coordinate. Each axis must be within [MinCoord, MaxCoord].
func NewKey(x, y, z int32) Key {
	return Key(uint64(x+axisOffset)&axisMask |
		(uint64(y+axisOffset)&axisMask)<<axisBits |
		(uint64(z+axisOffset)&axisMask)<<(2*axisBits))
}

// X returns the x coordinate.
func (k Key) X() int32 { return int32(uint64(k)&axisMask) - axisOffset }

// Y returns the y coordinate.
func (k Key) Y() int32 { return int32(uint64(k)>>axisBits&axisMask) - axisOffset }

// Z returns the z coordinate.
func (k Key) Z() int32 { return int32(uint64(k)>>(2*axisBits)&axisMask) - axisOffset }

func (k Key) String() string {
	return fmt.Sprintf("(%d,%d,%d)", k.X(), k.Y(), k.Z())
}
