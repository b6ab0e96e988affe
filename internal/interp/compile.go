package interp

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

var (
	// ErrSyntax reports malformed kernel source.
	ErrSyntax = errors.New("interp: syntax error")
	// ErrUnknownFunction reports a kernel name with no definition.
	ErrUnknownFunction = errors.New("interp: unknown function")
)

// Compiler turns kernel source into Kernels whose outputs are drawn from
// its allocator.
type Compiler struct {
	mem memory.Allocator
}

// NewCompiler returns a Compiler. A nil allocator selects
// memory.DefaultAllocator.
func NewCompiler(mem memory.Allocator) *Compiler {
	if mem == nil {
		mem = memory.DefaultAllocator
	}

	return &Compiler{mem: mem}
}

// call is parsed kernel source: name{arg,arg,...}.
type call struct {
	name string
	args []string
}

func parse(source string) (call, error) {
	s := strings.TrimSpace(source)
	if s == "" {
		return call{}, fmt.Errorf("%w: empty source", ErrSyntax)
	}

	name, rest, hasArgs := strings.Cut(s, "{")
	name = strings.TrimSpace(name)
	if !isIdent(name) {
		return call{}, fmt.Errorf("%w: bad function name %q", ErrSyntax, name)
	}

	c := call{name: name}
	if !hasArgs {
		return c, nil
	}

	inner, ok := strings.CutSuffix(strings.TrimSpace(rest), "}")
	if !ok || strings.ContainsAny(inner, "{}") {
		return call{}, fmt.Errorf("%w: unbalanced braces in %q", ErrSyntax, source)
	}

	for _, a := range strings.Split(inner, ",") {
		a = strings.TrimSpace(a)
		if a == "" {
			return call{}, fmt.Errorf("%w: empty operand in %q", ErrSyntax, source)
		}

		c.args = append(c.args, a)
	}

	return c, nil
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}

	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}

	return true
}

// plan describes an elementwise kernel. The integer path is taken when it
// is set and both input and output are integer typed.
type plan struct {
	out func(in arrow.Type) arrow.DataType
	ifn func(x int64) int64
	ffn func(x float64) float64
}

type builder func(args []string) (plan, error)

var builders map[string]builder

func init() {
	builders = map[string]builder{
		"add":       arith(func(x, c float64) float64 { return x + c }, func(x, c int64) int64 { return x + c }),
		"subtract":  arith(func(x, c float64) float64 { return x - c }, func(x, c int64) int64 { return x - c }),
		"multiply":  arith(func(x, c float64) float64 { return x * c }, func(x, c int64) int64 { return x * c }),
		"divide":    buildDivide,
		"powi":      buildPowi,
		"pow":       floatArgs(1, func(a []float64) func(float64) float64 { return func(x float64) float64 { return math.Pow(x, a[0]) } }),
		"copysign":  floatArgs(1, func(a []float64) func(float64) float64 { return func(x float64) float64 { return math.Copysign(x, a[0]) } }),
		"fma":       floatArgs(2, func(a []float64) func(float64) float64 { return func(x float64) float64 { return x*a[0] + a[1] } }),
		"cast":      buildCast,
		"threshold": buildThreshold,
	}

	for name, fn := range map[string]func(float64) float64{
		"sqrt":      math.Sqrt,
		"sin":       math.Sin,
		"cos":       math.Cos,
		"exp":       math.Exp,
		"exp2":      math.Exp2,
		"log":       math.Log,
		"log10":     math.Log10,
		"log2":      math.Log2,
		"fabs":      math.Abs,
		"floor":     math.Floor,
		"ceil":      math.Ceil,
		"trunc":     math.Trunc,
		"rint":      math.RoundToEven,
		"nearbyint": math.RoundToEven,
		"round":     math.Round,
	} {
		builders[name] = floatArgs(0, func([]float64) func(float64) float64 { return fn })
	}
}

// Functions lists the names Compile understands.
func Functions() []string {
	names := make([]string, 0, len(builders))
	for name := range builders {
		names = append(names, name)
	}

	return names
}

// Compile parses source and returns the kernel it names.
func (c *Compiler) Compile(source string) (Kernel, error) {
	k, err := parse(source)
	if err != nil {
		return nil, err
	}

	build, ok := builders[k.name]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownFunction, k.name)
	}

	p, err := build(k.args)
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w", source, err)
	}

	return c.kernel(p), nil
}

func (c *Compiler) kernel(p plan) Kernel {
	return func(src *Array) (*Array, error) {
		if err := src.validate(); err != nil {
			return nil, err
		}

		in := src.Type()
		dt := p.out(in)

		dst, err := NewArray(c.mem, dt, src.Rows, src.Cols)
		if err != nil {
			return nil, err
		}

		dst.Parallel = src.Parallel
		dst.Saturated = src.Saturated

		load := newLoader(in, src.bytes())
		cols := src.Cols

		if p.ifn != nil && !isFloat(in) && !isFloat(dt.ID()) {
			store := newIntStorer(dt.ID(), dst.bytes(), src.Saturated)
			forRows(src.Rows, src.Parallel, func(lo, hi int) {
				for i := lo * cols; i < hi*cols; i++ {
					store(i, p.ifn(int64(load(i))))
				}
			})

			return dst, nil
		}

		store := newStorer(dt.ID(), dst.bytes(), src.Saturated)
		forRows(src.Rows, src.Parallel, func(lo, hi int) {
			for i := lo * cols; i < hi*cols; i++ {
				store(i, p.ffn(load(i)))
			}
		})

		return dst, nil
	}
}

func dataType(id arrow.Type) arrow.DataType {
	switch id {
	case arrow.UINT8:
		return arrow.PrimitiveTypes.Uint8
	case arrow.INT8:
		return arrow.PrimitiveTypes.Int8
	case arrow.UINT16:
		return arrow.PrimitiveTypes.Uint16
	case arrow.INT16:
		return arrow.PrimitiveTypes.Int16
	case arrow.UINT32:
		return arrow.PrimitiveTypes.Uint32
	case arrow.INT32:
		return arrow.PrimitiveTypes.Int32
	case arrow.FLOAT32:
		return arrow.PrimitiveTypes.Float32
	default:
		return arrow.PrimitiveTypes.Float64
	}
}

func parseFloats(args []string, want int) ([]float64, error) {
	if len(args) != want {
		return nil, fmt.Errorf("%w: want %d operand(s), got %d", ErrSyntax, want, len(args))
	}

	out := make([]float64, len(args))
	for i, a := range args {
		v, err := strconv.ParseFloat(a, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: operand %q is not a number", ErrSyntax, a)
		}

		out[i] = v
	}

	return out, nil
}

func integral(v float64) bool {
	return v == math.Trunc(v) && math.Abs(v) < 1<<53
}

// arith builds a kernel applying a constant operand. Integer inputs stay
// integer when the operand is integral and are promoted otherwise.
func arith(ffn func(x, c float64) float64, ifn func(x, c int64) int64) builder {
	return func(args []string) (plan, error) {
		a, err := parseFloats(args, 1)
		if err != nil {
			return plan{}, err
		}

		c := a[0]
		p := plan{ffn: func(x float64) float64 { return ffn(x, c) }}
		if !integral(c) {
			p.out = func(in arrow.Type) arrow.DataType {
				if isFloat(in) {
					return dataType(in)
				}

				return promote(in)
			}

			return p, nil
		}

		ic := int64(c)
		p.out = dataType
		p.ifn = func(x int64) int64 { return ifn(x, ic) }

		return p, nil
	}
}

// buildDivide divides by a constant. Integer quotients are floored.
func buildDivide(args []string) (plan, error) {
	a, err := parseFloats(args, 1)
	if err != nil {
		return plan{}, err
	}

	if a[0] == 0 {
		return plan{}, errors.New("division by zero")
	}

	p, err := arith(func(x, c float64) float64 { return x / c }, nil)(args)
	if err != nil {
		return plan{}, err
	}

	if integral(a[0]) {
		c := int64(a[0])
		p.ifn = func(x int64) int64 {
			q := x / c
			if (x%c != 0) && ((x < 0) != (c < 0)) {
				q--
			}

			return q
		}
	}

	return p, nil
}

func buildPowi(args []string) (plan, error) {
	a, err := parseFloats(args, 1)
	if err != nil {
		return plan{}, err
	}

	if !integral(a[0]) {
		return plan{}, fmt.Errorf("%w: powi exponent %v is not an integer", ErrSyntax, a[0])
	}

	n := a[0]

	return plan{out: promote, ffn: func(x float64) float64 { return math.Pow(x, n) }}, nil
}

// floatArgs builds a floating-only kernel with n numeric operands.
func floatArgs(n int, mk func([]float64) func(float64) float64) builder {
	return func(args []string) (plan, error) {
		a, err := parseFloats(args, n)
		if err != nil {
			return plan{}, err
		}

		return plan{out: promote, ffn: mk(a)}, nil
	}
}

func buildCast(args []string) (plan, error) {
	if len(args) != 1 {
		return plan{}, fmt.Errorf("%w: cast wants one type operand", ErrSyntax)
	}

	dt, ok := typeNames[strings.ToLower(args[0])]
	if !ok {
		return plan{}, fmt.Errorf("%w: unknown type %q", ErrSyntax, args[0])
	}

	identity := func(x float64) float64 { return x }

	return plan{
		out: func(arrow.Type) arrow.DataType { return dt },
		ifn: func(x int64) int64 { return x },
		ffn: identity,
	}, nil
}

func buildThreshold(args []string) (plan, error) {
	a, err := parseFloats(args, 1)
	if err != nil {
		return plan{}, err
	}

	t := a[0]

	return plan{out: dataType, ffn: func(x float64) float64 {
		if x > t {
			return 1
		}

		return 0
	}}, nil
}

var typeNames = map[string]arrow.DataType{
	"u8":  arrow.PrimitiveTypes.Uint8,
	"i8":  arrow.PrimitiveTypes.Int8,
	"u16": arrow.PrimitiveTypes.Uint16,
	"i16": arrow.PrimitiveTypes.Int16,
	"u32": arrow.PrimitiveTypes.Uint32,
	"i32": arrow.PrimitiveTypes.Int32,
	"f32": arrow.PrimitiveTypes.Float32,
	"f64": arrow.PrimitiveTypes.Float64,
}
