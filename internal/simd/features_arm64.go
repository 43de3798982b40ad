//go:build arm64

package simd

import "golang.org/x/sys/cpu"

// ASIMD always includes vector fused multiply-add.
func init() {
	hasWideFloat = cpu.ARM64.HasASIMD
	initCapabilities()
}
