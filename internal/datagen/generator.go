// Package datagen derives reproducible test matrices from a canonical
// grayscale image.
package datagen

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/example/go-kernel-bench/internal/imagesrc"
	"github.com/example/go-kernel-bench/internal/matrix"
)

// Generator turns the canonical image into matrices of a requested shape,
// element type and scale.
type Generator struct {
	src        *Source
	mem        memory.Allocator
	saturation bool
}

// Option configures a Generator.
type Option func(*Generator)

// WithAllocator sets the allocator generated matrices are drawn from.
func WithAllocator(mem memory.Allocator) Option {
	return func(g *Generator) { g.mem = mem }
}

// WithSaturation selects clamp (true) or wrap (false) overflow for integer
// types of depth 16 or less. The default is clamp.
func WithSaturation(v bool) Option {
	return func(g *Generator) { g.saturation = v }
}

func NewGenerator(src *Source, opts ...Option) *Generator {
	g := &Generator{src: src, mem: memory.DefaultAllocator, saturation: true}
	for _, opt := range opts {
		opt(g)
	}

	return g
}

// Saturation reports the overflow policy stamped on generated matrices.
func (g *Generator) Saturation() bool { return g.saturation }

// Generate resamples the canonical image to rows x cols with nearest
// neighbour interpolation and converts it to t, multiplying every pixel by
// scale during the conversion. The caller owns the result.
func (g *Generator) Generate(rows, cols int, t matrix.Type, scale float64) (*matrix.Matrix, error) {
	if g.src == nil {
		return nil, fmt.Errorf("%w: generator has no source", ErrImageUnavailable)
	}

	img, err := g.src.Image()
	if err != nil {
		return nil, err
	}

	m, err := matrix.New(g.mem, rows, cols, t)
	if err != nil {
		return nil, fmt.Errorf("datagen: %w", err)
	}

	if t.Saturable() {
		m.SetSaturated(g.saturation)
	}

	resized := imagesrc.Resize(img, rows, cols)
	for y := range rows {
		row := resized.Pix[y*resized.Stride : y*resized.Stride+cols]
		for x, px := range row {
			m.Set(y, x, float64(px)*scale)
		}
	}

	return m, nil
}
