// Package candidate wraps compiled kernels behind the same call signature as
// the reference kernels.
package candidate

import (
	"errors"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/example/go-kernel-bench/internal/interp"
	"github.com/example/go-kernel-bench/internal/matrix"
)

// ErrCompile wraps every failure to obtain a compiled kernel.
var ErrCompile = errors.New("candidate: compile failed")

// Compiler turns kernel source into a callable kernel.
type Compiler interface {
	Compile(source string) (interp.Kernel, error)
}

// Adapter is a compiled kernel that takes and returns matrices.
type Adapter struct {
	source string
	fn     interp.Kernel
}

// Compile compiles source through c.
func Compile(c Compiler, source string) (*Adapter, error) {
	if c == nil {
		return nil, fmt.Errorf("%w: no compiler configured", ErrCompile)
	}

	fn, err := c.Compile(source)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCompile, source, err)
	}

	if fn == nil {
		return nil, fmt.Errorf("%w: %s: compiler returned no kernel", ErrCompile, source)
	}

	return &Adapter{source: source, fn: fn}, nil
}

// Source returns the kernel source the adapter was compiled from.
func (a *Adapter) Source() string { return a.source }

// Call runs the kernel on m and returns a new matrix the caller releases.
// m is shared with the kernel without copying and is not modified.
func (a *Adapter) Call(m *matrix.Matrix) (*matrix.Matrix, error) {
	in := toArray(m)
	defer in.Release()

	out, err := a.fn(in)
	if err != nil {
		return nil, fmt.Errorf("candidate %s: %w", a.source, err)
	}
	defer out.Release()

	res, err := fromArray(m.Allocator(), out)
	if err != nil {
		return nil, fmt.Errorf("candidate %s: %w", a.source, err)
	}

	return res, nil
}

func toArray(m *matrix.Matrix) *interp.Array {
	data := array.NewData(m.Type().ArrowType(), m.Len(), []*memory.Buffer{nil, m.Buffer()}, nil, 0, 0)
	defer data.Release()

	return &interp.Array{
		Rows:      m.Rows(),
		Cols:      m.Cols(),
		Values:    array.MakeFromData(data),
		Parallel:  m.Parallel(),
		Saturated: m.Saturated(),
	}
}

// fromArray takes a reference to out's value buffer and wraps it as a
// matrix. out keeps its own reference.
func fromArray(mem memory.Allocator, out *interp.Array) (*matrix.Matrix, error) {
	if out == nil || out.Values == nil {
		return nil, errors.New("kernel returned no array")
	}

	t, err := matrix.FromArrow(out.Values.DataType().ID())
	if err != nil {
		return nil, err
	}

	data := out.Values.Data()
	if data.Offset() != 0 || out.Values.NullN() != 0 {
		return nil, errors.New("kernel returned a sliced or nullable array")
	}

	buf := data.Buffers()[1]
	buf.Retain()

	res, err := matrix.FromBuffer(mem, buf, out.Rows, out.Cols, t)
	if err != nil {
		buf.Release()
		return nil, err
	}

	res.SetSaturated(out.Saturated)
	res.SetParallel(out.Parallel)

	return res, nil
}
