package interp

import (
	"fmt"
	"math"

	"github.com/apache/arrow-go/v18/arrow"
)

func elemWidth(id arrow.Type) (int, error) {
	switch id {
	case arrow.UINT8, arrow.INT8:
		return 1, nil
	case arrow.UINT16, arrow.INT16:
		return 2, nil
	case arrow.UINT32, arrow.INT32, arrow.FLOAT32:
		return 4, nil
	case arrow.FLOAT64:
		return 8, nil
	default:
		return 0, fmt.Errorf("interp: unsupported element type %s", id)
	}
}

func isFloat(id arrow.Type) bool { return id == arrow.FLOAT32 || id == arrow.FLOAT64 }

func promote(id arrow.Type) arrow.DataType {
	if id == arrow.FLOAT64 {
		return arrow.PrimitiveTypes.Float64
	}

	return arrow.PrimitiveTypes.Float32
}

func bounds(id arrow.Type) (lo, hi int64) {
	switch id {
	case arrow.UINT8:
		return 0, math.MaxUint8
	case arrow.INT8:
		return math.MinInt8, math.MaxInt8
	case arrow.UINT16:
		return 0, math.MaxUint16
	case arrow.INT16:
		return math.MinInt16, math.MaxInt16
	case arrow.UINT32:
		return 0, math.MaxUint32
	default:
		return math.MinInt32, math.MaxInt32
	}
}

// narrow fits x into integer type id. Types of depth 16 or less clamp or
// wrap according to saturate; 32-bit types always clamp.
func narrow(id arrow.Type, x int64, saturate bool) int64 {
	w, _ := elemWidth(id)
	if saturate || w >= 4 {
		lo, hi := bounds(id)
		return min(max(x, lo), hi)
	}

	switch id {
	case arrow.UINT8:
		return int64(uint8(x))
	case arrow.INT8:
		return int64(int8(x))
	case arrow.UINT16:
		return int64(uint16(x))
	default:
		return int64(int16(x))
	}
}

// truncate converts a float result destined for an integer array the way a
// C cast does, toward zero, with NaN mapping to zero.
func truncate(v float64) int64 {
	switch {
	case math.IsNaN(v):
		return 0
	case v >= math.MaxInt64:
		return math.MaxInt64
	case v <= math.MinInt64:
		return math.MinInt64
	default:
		return int64(v)
	}
}

type loader func(i int) float64

func newLoader(id arrow.Type, b []byte) loader {
	switch id {
	case arrow.UINT8:
		s := arrow.Uint8Traits.CastFromBytes(b)
		return func(i int) float64 { return float64(s[i]) }
	case arrow.INT8:
		s := arrow.Int8Traits.CastFromBytes(b)
		return func(i int) float64 { return float64(s[i]) }
	case arrow.UINT16:
		s := arrow.Uint16Traits.CastFromBytes(b)
		return func(i int) float64 { return float64(s[i]) }
	case arrow.INT16:
		s := arrow.Int16Traits.CastFromBytes(b)
		return func(i int) float64 { return float64(s[i]) }
	case arrow.UINT32:
		s := arrow.Uint32Traits.CastFromBytes(b)
		return func(i int) float64 { return float64(s[i]) }
	case arrow.INT32:
		s := arrow.Int32Traits.CastFromBytes(b)
		return func(i int) float64 { return float64(s[i]) }
	case arrow.FLOAT32:
		s := arrow.Float32Traits.CastFromBytes(b)
		return func(i int) float64 { return float64(s[i]) }
	default:
		s := arrow.Float64Traits.CastFromBytes(b)
		return func(i int) float64 { return s[i] }
	}
}

type intStorer func(i int, v int64)

func newIntStorer(id arrow.Type, b []byte, saturate bool) intStorer {
	switch id {
	case arrow.UINT8:
		s := arrow.Uint8Traits.CastFromBytes(b)
		return func(i int, v int64) { s[i] = uint8(narrow(id, v, saturate)) }
	case arrow.INT8:
		s := arrow.Int8Traits.CastFromBytes(b)
		return func(i int, v int64) { s[i] = int8(narrow(id, v, saturate)) }
	case arrow.UINT16:
		s := arrow.Uint16Traits.CastFromBytes(b)
		return func(i int, v int64) { s[i] = uint16(narrow(id, v, saturate)) }
	case arrow.INT16:
		s := arrow.Int16Traits.CastFromBytes(b)
		return func(i int, v int64) { s[i] = int16(narrow(id, v, saturate)) }
	case arrow.UINT32:
		s := arrow.Uint32Traits.CastFromBytes(b)
		return func(i int, v int64) { s[i] = uint32(narrow(id, v, saturate)) }
	default:
		s := arrow.Int32Traits.CastFromBytes(b)
		return func(i int, v int64) { s[i] = int32(narrow(id, v, saturate)) }
	}
}

type storer func(i int, v float64)

func newStorer(id arrow.Type, b []byte, saturate bool) storer {
	switch id {
	case arrow.FLOAT32:
		s := arrow.Float32Traits.CastFromBytes(b)
		return func(i int, v float64) { s[i] = float32(v) }
	case arrow.FLOAT64:
		s := arrow.Float64Traits.CastFromBytes(b)
		return func(i int, v float64) { s[i] = v }
	default:
		st := newIntStorer(id, b, saturate)
		return func(i int, v float64) { st(i, truncate(v)) }
	}
}
