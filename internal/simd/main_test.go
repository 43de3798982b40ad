package simd

import (
	"fmt"
	"os"
	"runtime"
	"testing"
)

// TestMain prints which kernel the tests exercise.
func TestMain(m *testing.M) {
	fmt.Printf("=== SIMD Diagnostics ===\n")
	fmt.Printf("GOOS=%s GOARCH=%s\n", runtime.GOOS, runtime.GOARCH)
	fmt.Printf("%s=%q\n", overrideEnv, os.Getenv(overrideEnv))
	fmt.Printf("Wide float: %v\n", HasWideFloat())
	fmt.Printf("Kernel: %s\n", KernelName())
	fmt.Printf("========================\n\n")

	os.Exit(m.Run())
}
