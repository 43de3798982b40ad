package simd

import (
	"os"
	"strings"
)

// Kernel identifies a CullBatch implementation.
type Kernel uint8

const (
	// Generic tests one sphere against all six planes at a time.
	Generic Kernel = iota
	// Paired tests two spheres per step with 4-wide plane groups.
	Paired
)

func (k Kernel) String() string {
	switch k {
	case Generic:
		return "generic"
	case Paired:
		return "paired"
	default:
		return "unknown"
	}
}

// ParseKernel parses a kernel name.
func ParseKernel(s string) (Kernel, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "generic":
		return Generic, true
	case "paired":
		return Paired, true
	default:
		return Generic, false
	}
}

// overrideEnv names the environment variable that pins the kernel.
const overrideEnv = "CULLGRID_SIMD"

// hasWideFloat is set by the platform init when the CPU has 4-wide float
// vectors with fused multiply-add.
var hasWideFloat bool

// initCapabilities selects the kernel once CPU features are known.
func initCapabilities() {
	selectKernel(chooseKernel(hasWideFloat, os.Getenv(overrideEnv)))
}

// chooseKernel picks Paired on wide-float CPUs unless override names a
// kernel. Unknown override values are ignored.
func chooseKernel(wide bool, override string) Kernel {
	if k, ok := ParseKernel(override); ok {
		return k
	}
	if wide {
		return Paired
	}
	return Generic
}

// HasWideFloat reports whether the CPU has 4-wide float vectors with FMA.
func HasWideFloat() bool {
	return hasWideFloat
}
