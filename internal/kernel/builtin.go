package kernel

import (
	"math"

	"github.com/chewxy/math32"

	"github.com/example/go-kernel-bench/internal/matrix"
)

// unaryOp pairs the 32- and 64-bit reference implementations of a
// single-argument floating-point function.
type unaryOp struct {
	name string
	f32  func(float32) float32
	f64  func(float64) float64
}

// rounded evaluates fn in float64 and rounds the result to float32, which
// gives the correctly rounded single-precision value.
func rounded(fn func(float64) float64) func(float32) float32 {
	return func(x float32) float32 { return float32(fn(float64(x))) }
}

// The math table is split into the groups the sweep order places apart.
// Entries without an exact 32-bit implementation go through rounded.
var (
	trigTable = []unaryOp{
		{"sin", rounded(math.Sin), math.Sin},
		{"cos", rounded(math.Cos), math.Cos},
	}
	expLogTable = []unaryOp{
		{"exp", rounded(math.Exp), math.Exp},
		{"exp2", rounded(math.Exp2), math.Exp2},
		{"log", rounded(math.Log), math.Log},
		{"log10", rounded(math.Log10), math.Log10},
		{"log2", rounded(math.Log2), math.Log2},
	}
	roundingTable = []unaryOp{
		{"floor", math32.Floor, math.Floor},
		{"ceil", math32.Ceil, math.Ceil},
		{"trunc", math32.Trunc, math.Trunc},
		{"rint", rounded(math.RoundToEven), math.RoundToEven},
		{"nearbyint", rounded(math.RoundToEven), math.RoundToEven},
		{"round", rounded(math.Round), math.Round},
	}
)

func registerTable(r *Registry, table []unaryOp) {
	for _, op := range table {
		r.MustRegister(Descriptor{Name: op.name, Reference: Floating(op.f32, op.f64)})
	}
}

// Builtins returns the standard kernel set in sweep order.
func Builtins() *Registry {
	r := NewRegistry()

	r.MustRegister(Descriptor{Name: "add{32}", Reference: Arithmetic(func(x float64) float64 { return x + 32 })})
	r.MustRegister(Descriptor{Name: "subtract{32}", Reference: Arithmetic(func(x float64) float64 { return x - 32 })})
	r.MustRegister(Descriptor{Name: "multiply{2}", Reference: Arithmetic(func(x float64) float64 { return x * 2 })})
	// The reference rounds integer quotients to nearest; compiled kernels floor.
	r.MustRegister(Descriptor{
		Name:           "divide{2}",
		Reference:      Arithmetic(func(x float64) float64 { return x / 2 }),
		IgnoreOffByOne: true,
	})
	r.MustRegister(Descriptor{Name: "sqrt", Reference: Floating(math32.Sqrt, math.Sqrt)})
	r.MustRegister(Descriptor{Name: "powi{3}", Reference: Floating(
		func(x float32) float32 { return x * x * x },
		func(x float64) float64 { return x * x * x },
	)})
	registerTable(r, trigTable)
	r.MustRegister(Descriptor{Name: "pow{1.5}", Reference: Floating(
		rounded(func(x float64) float64 { return math.Pow(x, 1.5) }),
		func(x float64) float64 { return math.Pow(x, 1.5) },
	)})
	registerTable(r, expLogTable)
	r.MustRegister(Descriptor{Name: "fma{2,3}", Reference: FusedMultiplyAdd(2, 3)})
	r.MustRegister(Descriptor{Name: "fabs", Reference: Floating(math32.Abs, math.Abs)})
	r.MustRegister(Descriptor{Name: "copysign{-1}", Reference: Floating(
		func(x float32) float32 { return math32.Copysign(x, -1) },
		func(x float64) float64 { return math.Copysign(x, -1) },
	)})
	registerTable(r, roundingTable)
	r.MustRegister(Descriptor{Name: "cast{f32}", Reference: Cast(matrix.F32)})
	r.MustRegister(Descriptor{
		Name:      "threshold{127}",
		Reference: Threshold(127),
		Types:     []matrix.Type{matrix.U8, matrix.F32},
	})

	return r
}
