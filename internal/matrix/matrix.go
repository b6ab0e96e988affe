// Package matrix provides the two-dimensional numeric buffer shared by the
// data generator, the reference kernels and the candidate adapter.
//
// Storage is a reference-counted Arrow buffer drawn from a memory.Allocator,
// so ownership is explicit: whoever creates a Matrix calls Release.
package matrix

import (
	"errors"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// ErrShape reports an invalid or mismatched matrix shape.
var ErrShape = errors.New("matrix: invalid shape")

// Matrix is a dense row-major buffer of a single element type.
type Matrix struct {
	rows, cols int
	typ        Type
	saturated  bool
	parallel   bool
	mem        memory.Allocator
	buf        *memory.Buffer
}

// New allocates a zeroed rows x cols matrix of type t.
// A nil allocator selects memory.DefaultAllocator.
func New(mem memory.Allocator, rows, cols int, t Type) (*Matrix, error) {
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrShape, rows, cols)
	}

	if !t.Valid() {
		return nil, fmt.Errorf("matrix: invalid element type %d", t)
	}

	if mem == nil {
		mem = memory.DefaultAllocator
	}

	buf := memory.NewResizableBuffer(mem)
	buf.Resize(rows * cols * t.Size())

	return &Matrix{
		rows:      rows,
		cols:      cols,
		typ:       t,
		saturated: true,
		mem:       mem,
		buf:       buf,
	}, nil
}

// FromBuffer wraps an existing buffer, taking over the caller's reference.
func FromBuffer(mem memory.Allocator, buf *memory.Buffer, rows, cols int, t Type) (*Matrix, error) {
	if buf == nil {
		return nil, errors.New("matrix: nil buffer")
	}

	if rows <= 0 || cols <= 0 || !t.Valid() {
		return nil, fmt.Errorf("%w: %dx%d %s", ErrShape, rows, cols, t)
	}

	if need := rows * cols * t.Size(); buf.Len() < need {
		return nil, fmt.Errorf("%w: buffer holds %d bytes, %dx%d %s needs %d", ErrShape, buf.Len(), rows, cols, t, need)
	}

	if mem == nil {
		mem = memory.DefaultAllocator
	}

	return &Matrix{rows: rows, cols: cols, typ: t, saturated: true, mem: mem, buf: buf}, nil
}

func (m *Matrix) Rows() int  { return m.rows }
func (m *Matrix) Cols() int  { return m.cols }
func (m *Matrix) Len() int   { return m.rows * m.cols }
func (m *Matrix) Type() Type { return m.typ }

// Allocator returns the allocator the matrix storage came from. Kernels
// allocate their outputs from it.
func (m *Matrix) Allocator() memory.Allocator { return m.mem }

// Saturated reports the overflow policy: clamp (true) or wrap (false).
// It is always true for types whose policy is not selectable.
func (m *Matrix) Saturated() bool {
	if !m.typ.Saturable() {
		return true
	}

	return m.saturated
}

// SetSaturated selects the overflow policy. It is ignored for types whose
// policy is not selectable.
func (m *Matrix) SetSaturated(v bool) { m.saturated = v }

// Parallel reports whether kernels should use their own parallelism.
func (m *Matrix) Parallel() bool { return m.parallel }

func (m *Matrix) SetParallel(v bool) { m.parallel = v }

// SameShape reports whether a and b have equal row and column counts.
func SameShape(a, b *Matrix) bool {
	return a != nil && b != nil && a.rows == b.rows && a.cols == b.cols
}

// Buffer returns the underlying storage. Callers that keep it past the
// lifetime of m must Retain it.
func (m *Matrix) Buffer() *memory.Buffer { return m.buf }

// Bytes returns the raw element bytes. Callers must treat it as read-only
// unless they own m.
func (m *Matrix) Bytes() []byte {
	return m.buf.Bytes()[:m.Len()*m.typ.Size()]
}

// View returns a second handle onto the same storage with its own flags.
// The view holds a reference of its own and must be released.
func (m *Matrix) View() *Matrix {
	m.buf.Retain()
	v := *m

	return &v
}

// Release drops this handle's reference to the storage. It is safe to call
// on a nil matrix and idempotent per handle.
func (m *Matrix) Release() {
	if m == nil || m.buf == nil {
		return
	}

	m.buf.Release()
	m.buf = nil
}

// At returns the element at (row, col) as float64.
func (m *Matrix) At(row, col int) float64 {
	return m.AtIndex(row*m.cols + col)
}

// AtIndex returns the i-th element in row-major order as float64.
func (m *Matrix) AtIndex(i int) float64 {
	b := m.buf.Bytes()
	switch m.typ {
	case U8:
		return float64(arrow.Uint8Traits.CastFromBytes(b)[i])
	case I8:
		return float64(arrow.Int8Traits.CastFromBytes(b)[i])
	case U16:
		return float64(arrow.Uint16Traits.CastFromBytes(b)[i])
	case I16:
		return float64(arrow.Int16Traits.CastFromBytes(b)[i])
	case U32:
		return float64(arrow.Uint32Traits.CastFromBytes(b)[i])
	case I32:
		return float64(arrow.Int32Traits.CastFromBytes(b)[i])
	case F32:
		return float64(arrow.Float32Traits.CastFromBytes(b)[i])
	case F64:
		return arrow.Float64Traits.CastFromBytes(b)[i]
	default:
		panic(fmt.Sprintf("matrix: element access on %s", m.typ))
	}
}

// Set stores v at (row, col), converting it to the element type.
func (m *Matrix) Set(row, col int, v float64) {
	m.SetIndex(row*m.cols+col, v)
}

// SetIndex stores v at the i-th element. Integer types round half to even
// and then clamp or wrap according to Saturated.
func (m *Matrix) SetIndex(i int, v float64) {
	b := m.buf.Bytes()
	switch m.typ {
	case F32:
		arrow.Float32Traits.CastFromBytes(b)[i] = float32(v)
		return
	case F64:
		arrow.Float64Traits.CastFromBytes(b)[i] = v
		return
	}

	q := m.typ.Quantize(v, m.Saturated())
	switch m.typ {
	case U8:
		arrow.Uint8Traits.CastFromBytes(b)[i] = uint8(q)
	case I8:
		arrow.Int8Traits.CastFromBytes(b)[i] = int8(q)
	case U16:
		arrow.Uint16Traits.CastFromBytes(b)[i] = uint16(q)
	case I16:
		arrow.Int16Traits.CastFromBytes(b)[i] = int16(q)
	case U32:
		arrow.Uint32Traits.CastFromBytes(b)[i] = uint32(q)
	case I32:
		arrow.Int32Traits.CastFromBytes(b)[i] = int32(q)
	default:
		panic(fmt.Sprintf("matrix: element store on %s", m.typ))
	}
}

// Convert returns a new matrix of type t holding m's values multiplied by
// scale. The result inherits m's flags.
func (m *Matrix) Convert(t Type, scale float64) (*Matrix, error) {
	out, err := New(m.mem, m.rows, m.cols, t)
	if err != nil {
		return nil, err
	}

	out.saturated = m.saturated
	out.parallel = m.parallel

	for i := range m.Len() {
		out.SetIndex(i, m.AtIndex(i)*scale)
	}

	return out, nil
}

// Values returns a copy of all elements as float64 in row-major order.
func (m *Matrix) Values() []float64 {
	out := make([]float64, m.Len())
	for i := range out {
		out[i] = m.AtIndex(i)
	}

	return out
}

func (m *Matrix) String() string {
	return fmt.Sprintf("%dx%d %s", m.rows, m.cols, m.typ)
}
