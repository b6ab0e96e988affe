package matrix

import (
	"fmt"
	"math"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
)

// Type is the element type of a Matrix.
type Type uint8

const (
	Null Type = iota
	U8
	I8
	U16
	I16
	U32
	I32
	F32
	F64
)

var typeNames = map[Type]string{
	U8:  "u8",
	I8:  "i8",
	U16: "u16",
	I16: "i16",
	U32: "u32",
	I32: "i32",
	F32: "f32",
	F64: "f64",
}

// DefaultTypes is the type domain a kernel sweeps unless it declares its own.
func DefaultTypes() []Type {
	return []Type{U8, U16, I32, F32, F64}
}

// AllTypes lists every supported element type in enumeration order.
func AllTypes() []Type {
	return []Type{U8, I8, U16, I16, U32, I32, F32, F64}
}

// ParseType maps a type name such as "u8" or "f32" to its Type.
func ParseType(raw string) (Type, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	for t, name := range typeNames {
		if name == s {
			return t, nil
		}
	}

	return Null, fmt.Errorf("matrix: unknown element type %q (expected u8|i8|u16|i16|u32|i32|f32|f64)", raw)
}

func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}

	return "null"
}

// Valid reports whether t is one of the supported element types.
func (t Type) Valid() bool {
	_, ok := typeNames[t]
	return ok
}

// Depth returns the width of one element in bits.
func (t Type) Depth() int {
	switch t {
	case U8, I8:
		return 8
	case U16, I16:
		return 16
	case U32, I32, F32:
		return 32
	case F64:
		return 64
	default:
		return 0
	}
}

// Size returns the width of one element in bytes.
func (t Type) Size() int { return t.Depth() / 8 }

func (t Type) IsFloat() bool { return t == F32 || t == F64 }

func (t Type) IsSigned() bool {
	switch t {
	case I8, I16, I32, F32, F64:
		return true
	default:
		return false
	}
}

// Saturable reports whether the overflow policy of t is selectable.
// Only integer types of depth 16 or less carry a saturation flag.
func (t Type) Saturable() bool {
	return t.Valid() && !t.IsFloat() && t.Depth() <= 16
}

// Promote returns the floating type used for operations that are only
// defined over floating-point domains.
func (t Type) Promote() Type {
	if t == F64 {
		return F64
	}

	return F32
}

// Bounds returns the representable range of an integer type.
func (t Type) Bounds() (lo, hi int64) {
	switch t {
	case U8:
		return 0, math.MaxUint8
	case I8:
		return math.MinInt8, math.MaxInt8
	case U16:
		return 0, math.MaxUint16
	case I16:
		return math.MinInt16, math.MaxInt16
	case U32:
		return 0, math.MaxUint32
	case I32:
		return math.MinInt32, math.MaxInt32
	default:
		return math.MinInt64, math.MaxInt64
	}
}

// ArrowType returns the Arrow primitive type with the same layout as t.
func (t Type) ArrowType() arrow.DataType {
	switch t {
	case U8:
		return arrow.PrimitiveTypes.Uint8
	case I8:
		return arrow.PrimitiveTypes.Int8
	case U16:
		return arrow.PrimitiveTypes.Uint16
	case I16:
		return arrow.PrimitiveTypes.Int16
	case U32:
		return arrow.PrimitiveTypes.Uint32
	case I32:
		return arrow.PrimitiveTypes.Int32
	case F32:
		return arrow.PrimitiveTypes.Float32
	case F64:
		return arrow.PrimitiveTypes.Float64
	default:
		return arrow.Null
	}
}

// FromArrow maps an Arrow primitive type id back to a Type.
func FromArrow(id arrow.Type) (Type, error) {
	switch id {
	case arrow.UINT8:
		return U8, nil
	case arrow.INT8:
		return I8, nil
	case arrow.UINT16:
		return U16, nil
	case arrow.INT16:
		return I16, nil
	case arrow.UINT32:
		return U32, nil
	case arrow.INT32:
		return I32, nil
	case arrow.FLOAT32:
		return F32, nil
	case arrow.FLOAT64:
		return F64, nil
	default:
		return Null, fmt.Errorf("matrix: unsupported arrow type %s", id)
	}
}

// Quantize converts v to the nearest value representable by integer type t.
// Values are rounded half to even. Out-of-range values are clamped when
// saturate is set and wrapped modulo 2^depth otherwise; 32-bit types always
// clamp. NaN maps to zero.
func (t Type) Quantize(v float64, saturate bool) int64 {
	if math.IsNaN(v) {
		return 0
	}

	lo, hi := t.Bounds()
	if !t.Saturable() {
		saturate = true
	}

	r := math.RoundToEven(v)
	if saturate {
		switch {
		case r <= float64(lo):
			return lo
		case r >= float64(hi):
			return hi
		default:
			return int64(r)
		}
	}

	if r <= math.MinInt64 || r >= math.MaxInt64 || math.IsInf(r, 0) {
		return 0
	}

	return wrap(t, int64(r))
}

func wrap(t Type, x int64) int64 {
	switch t {
	case U8:
		return int64(uint8(x))
	case I8:
		return int64(int8(x))
	case U16:
		return int64(uint16(x))
	case I16:
		return int64(int16(x))
	case U32:
		return int64(uint32(x))
	case I32:
		return int64(int32(x))
	default:
		return x
	}
}
