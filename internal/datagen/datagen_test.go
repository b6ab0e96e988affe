package datagen_test

import (
	"errors"
	"image"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/go-kernel-bench/internal/datagen"
	"github.com/example/go-kernel-bench/internal/matrix"
	"github.com/example/go-kernel-bench/internal/testutil"
)

func newGenerator(t *testing.T, opts ...datagen.Option) *datagen.Generator {
	t.Helper()

	mem := testutil.CheckedAllocator(t)
	src := datagen.StaticSource(testutil.GrayImage(64, 64))

	return datagen.NewGenerator(src, append([]datagen.Option{datagen.WithAllocator(mem)}, opts...)...)
}

func TestGenerate_Deterministic(t *testing.T) {
	gen := newGenerator(t)

	for _, typ := range matrix.AllTypes() {
		a, err := gen.Generate(16, 16, typ, 1)
		require.NoError(t, err)

		b, err := gen.Generate(16, 16, typ, 1)
		require.NoError(t, err)

		assert.Equal(t, typ, a.Type())
		assert.Equal(t, a.Values(), b.Values(), "%s generation is not reproducible", typ)

		a.Release()
		b.Release()
	}
}

func TestGenerate_IdentityAtSourceSize(t *testing.T) {
	img := testutil.GrayImage(8, 8)
	gen := datagen.NewGenerator(datagen.StaticSource(img), datagen.WithAllocator(testutil.CheckedAllocator(t)))

	m, err := gen.Generate(8, 8, matrix.U8, 1)
	require.NoError(t, err)
	defer m.Release()

	for y := range 8 {
		for x := range 8 {
			if got, want := m.At(y, x), float64(img.GrayAt(x, y).Y); got != want {
				t.Fatalf("At(%d,%d) = %v; want %v", y, x, got, want)
			}
		}
	}
}

func TestGenerate_SaturationPolicy(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 2, 2))
	for i := range img.Pix {
		img.Pix[i] = 200
	}

	src := datagen.StaticSource(img)

	sat := datagen.NewGenerator(src, datagen.WithAllocator(testutil.CheckedAllocator(t)))
	m, err := sat.Generate(2, 2, matrix.U8, 2)
	require.NoError(t, err)
	defer m.Release()

	assert.True(t, m.Saturated())
	assert.Equal(t, 255.0, m.At(0, 0))

	wrap := datagen.NewGenerator(src, datagen.WithAllocator(testutil.CheckedAllocator(t)), datagen.WithSaturation(false))
	w, err := wrap.Generate(2, 2, matrix.U8, 2)
	require.NoError(t, err)
	defer w.Release()

	assert.False(t, w.Saturated())
	assert.Equal(t, float64(400-256), w.At(0, 0))
}

func TestGenerate_ScaleOnFloat(t *testing.T) {
	gen := newGenerator(t)

	base, err := gen.Generate(8, 8, matrix.F64, 1)
	require.NoError(t, err)
	defer base.Release()

	scaled, err := gen.Generate(8, 8, matrix.F64, 0.5)
	require.NoError(t, err)
	defer scaled.Release()

	for i := range base.Len() {
		assert.Equal(t, base.AtIndex(i)*0.5, scaled.AtIndex(i))
	}
}

func TestGenerate_ImageUnavailable(t *testing.T) {
	src := datagen.FileSource(filepath.Join(t.TempDir(), "missing.tiff"))
	gen := datagen.NewGenerator(src)

	_, err := gen.Generate(4, 4, matrix.U8, 1)
	assert.True(t, errors.Is(err, datagen.ErrImageUnavailable), "err = %v", err)
}

func TestSource_LoadsOnce(t *testing.T) {
	loads := 0
	src := datagen.NewSource(func() (*image.Gray, error) {
		loads++
		return testutil.GrayImage(4, 4), nil
	})

	for range 3 {
		_, err := src.Image()
		require.NoError(t, err)
	}

	assert.Equal(t, 1, loads)
}

func TestSource_FailureIsSticky(t *testing.T) {
	loads := 0
	src := datagen.NewSource(func() (*image.Gray, error) {
		loads++
		return nil, errors.New("disk on fire")
	})

	_, err1 := src.Image()
	_, err2 := src.Image()

	assert.ErrorIs(t, err1, datagen.ErrImageUnavailable)
	assert.ErrorIs(t, err2, datagen.ErrImageUnavailable)
	assert.Equal(t, 1, loads)
}

func TestSource_RejectsEmptyImage(t *testing.T) {
	src := datagen.StaticSource(image.NewGray(image.Rectangle{}))

	_, err := src.Image()
	assert.ErrorIs(t, err, datagen.ErrImageUnavailable)
}

func TestFileSource_CanonicalImage(t *testing.T) {
	path := testutil.RequireCanonicalImage(t, filepath.Join("..", "..", "data", "misc", "lenna.tiff"))

	gen := datagen.NewGenerator(datagen.FileSource(path))

	m, err := gen.Generate(32, 32, matrix.F32, 1)
	require.NoError(t, err)
	defer m.Release()

	assert.Equal(t, 32, m.Rows())
}
