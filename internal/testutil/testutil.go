// Package testutil provides shared fixtures and skip helpers for tests.
//
// Tests that need pixel data use GrayImage instead of the canonical image so
// they run without any data files; tests that exercise the real image call
// RequireCanonicalImage first.
//
// Typical usage:
//
//	func TestSweep(t *testing.T) {
//	    mem := testutil.CheckedAllocator(t)
//	    src := datagen.StaticSource(testutil.GrayImage(64, 64))
//	    ...
//	}
package testutil

import (
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/apache/arrow-go/v18/arrow/memory"
)

// CanonicalImageEnv overrides the canonical image path for integration tests.
const CanonicalImageEnv = "KERNELBENCH_PATHS_IMAGE"

// GrayImage returns a deterministic w x h gray ramp covering all 256 levels.
func GrayImage(w, h int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.Pix[y*img.Stride+x] = uint8((x*7 + y*13) % 256)
		}
	}

	return img
}

// WritePNG encodes img as dir/name and returns the path.
func WritePNG(tb testing.TB, dir, name string, img image.Image) string {
	tb.Helper()

	path := filepath.Join(dir, name)

	f, err := os.Create(path)
	if err != nil {
		tb.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		tb.Fatalf("encode %s: %v", path, err)
	}

	return path
}

// CheckedAllocator returns an allocator that fails the test if any of its
// allocations is still live when the test ends.
func CheckedAllocator(tb testing.TB) *memory.CheckedAllocator {
	tb.Helper()

	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	tb.Cleanup(func() { mem.AssertSize(tb, 0) })

	return mem
}

// RequireCanonicalImage skips the test unless the canonical image exists. It
// returns the resolved path, preferring CanonicalImageEnv over fallback.
func RequireCanonicalImage(tb testing.TB, fallback string) string {
	tb.Helper()

	path := fallback
	if p := os.Getenv(CanonicalImageEnv); p != "" {
		path = p
	}

	if _, err := os.Stat(path); err != nil {
		tb.Skipf("canonical image not available at %q; set %s to override", path, CanonicalImageEnv)
	}

	return path
}
