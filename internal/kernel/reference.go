package kernel

import (
	"github.com/example/go-kernel-bench/internal/matrix"
)

// Map applies fn elementwise, writing into a new matrix of type out that
// inherits src's overflow policy.
func Map(src *matrix.Matrix, out matrix.Type, fn func(float64) float64) (*matrix.Matrix, error) {
	dst, err := matrix.New(src.Allocator(), src.Rows(), src.Cols(), out)
	if err != nil {
		return nil, err
	}

	dst.SetSaturated(src.Saturated())

	for i := range src.Len() {
		dst.SetIndex(i, fn(src.AtIndex(i)))
	}

	return dst, nil
}

// Arithmetic returns a reference that keeps the input type and applies fn.
func Arithmetic(fn func(float64) float64) Func {
	return func(src *matrix.Matrix) (*matrix.Matrix, error) {
		return Map(src, src.Type(), fn)
	}
}

// Floating returns a reference for an operation defined only over
// floating-point values. Integer inputs are promoted to f32 first and the
// result has the promoted type.
func Floating(fn32 func(float32) float32, fn64 func(float64) float64) Func {
	return func(src *matrix.Matrix) (*matrix.Matrix, error) {
		if src.Type() == matrix.F64 {
			return Map(src, matrix.F64, fn64)
		}

		return Map(src, matrix.F32, func(x float64) float64 {
			return float64(fn32(float32(x)))
		})
	}
}

// Cast returns a reference converting to type t.
func Cast(t matrix.Type) Func {
	return func(src *matrix.Matrix) (*matrix.Matrix, error) {
		return src.Convert(t, 1)
	}
}

// FusedMultiplyAdd returns a reference computing x*a + b in the promoted
// floating type.
func FusedMultiplyAdd(a, b float64) Func {
	return func(src *matrix.Matrix) (*matrix.Matrix, error) {
		return Map(src, src.Type().Promote(), func(x float64) float64 { return x*a + b })
	}
}

// Threshold returns a reference producing 1 where x > t and 0 elsewhere,
// in the input type.
func Threshold(t float64) Func {
	return Arithmetic(func(x float64) float64 {
		if x > t {
			return 1
		}

		return 0
	})
}
