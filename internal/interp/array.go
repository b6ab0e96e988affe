// Package interp is an in-process kernel compiler and script interpreter.
//
// Kernel source is a function name with optional literal operands, such as
// "sqrt", "add{32}" or "fma{2,3}". Compiled kernels operate on Array, a
// two-dimensional view over a flat Arrow primitive array, and honour the
// array's parallel and saturation flags.
package interp

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// Array is the native operand of a compiled kernel.
type Array struct {
	Rows, Cols int
	Values     arrow.Array
	// Parallel asks the kernel to split work across goroutines.
	Parallel bool
	// Saturated selects clamping (true) or wrapping (false) on integer
	// overflow for types of depth 16 or less.
	Saturated bool
}

// Kernel is a compiled function. The caller releases the returned array.
type Kernel func(src *Array) (*Array, error)

// NewArray allocates a zeroed rows x cols array of the given primitive type.
func NewArray(mem memory.Allocator, dt arrow.DataType, rows, cols int) (*Array, error) {
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("interp: invalid shape %dx%d", rows, cols)
	}

	width, err := elemWidth(dt.ID())
	if err != nil {
		return nil, err
	}

	n := rows * cols
	buf := memory.NewResizableBuffer(mem)
	buf.Resize(n * width)
	defer buf.Release()

	data := array.NewData(dt, n, []*memory.Buffer{nil, buf}, nil, 0, 0)
	defer data.Release()

	return &Array{Rows: rows, Cols: cols, Values: array.MakeFromData(data), Saturated: true}, nil
}

// Len returns the element count.
func (a *Array) Len() int { return a.Rows * a.Cols }

// Type returns the Arrow type id of the elements.
func (a *Array) Type() arrow.Type { return a.Values.DataType().ID() }

// Release drops the array's reference to its values.
func (a *Array) Release() {
	if a == nil || a.Values == nil {
		return
	}

	a.Values.Release()
	a.Values = nil
}

func (a *Array) bytes() []byte {
	data := a.Values.Data()
	width, _ := elemWidth(data.DataType().ID())
	off := data.Offset() * width

	return data.Buffers()[1].Bytes()[off:]
}

func (a *Array) validate() error {
	if a == nil || a.Values == nil {
		return fmt.Errorf("interp: nil array")
	}

	if a.Rows <= 0 || a.Cols <= 0 {
		return fmt.Errorf("interp: invalid shape %dx%d", a.Rows, a.Cols)
	}

	if a.Values.Len() != a.Len() {
		return fmt.Errorf("interp: %dx%d array holds %d values", a.Rows, a.Cols, a.Values.Len())
	}

	if a.Values.NullN() > 0 {
		return fmt.Errorf("interp: arrays with nulls are not supported")
	}

	_, err := elemWidth(a.Type())

	return err
}
