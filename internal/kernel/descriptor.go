// Package kernel declares the kernels under test: for each one a display
// name that doubles as its source text, the types and sizes it is swept
// over, and the reference computation its compiled output is checked
// against.
package kernel

import (
	"fmt"
	"slices"
	"strings"

	"github.com/example/go-kernel-bench/internal/matrix"
)

// Func is the uniform kernel call signature: one input matrix in, one newly
// allocated matrix out. The caller releases the result.
type Func func(src *matrix.Matrix) (*matrix.Matrix, error)

// Descriptor identifies one kernel under test.
type Descriptor struct {
	// Name is the kernel source, e.g. "add{32}".
	Name string
	// Types is the ordered element type domain.
	Types []matrix.Type
	// Sizes is the ascending set of square matrix edge lengths.
	Sizes []int
	// Reference computes the trusted result.
	Reference Func
	// IgnoreOffByOne suppresses mismatches of exactly one unit.
	IgnoreOffByOne bool
	// Scale multiplies generated input data. Zero means 1.
	Scale float64
}

// DefaultSizes is the size domain a kernel sweeps unless it declares its own.
func DefaultSizes() []int {
	return []int{4, 8, 16, 32, 64, 128, 256, 512, 1024, 2048, 4096}
}

// ScaleFactor returns the effective input scale.
func (d Descriptor) ScaleFactor() float64 {
	if d.Scale == 0 {
		return 1
	}

	return d.Scale
}

// Validate checks that d can be swept.
func (d Descriptor) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return fmt.Errorf("kernel: descriptor has no name")
	}

	if d.Reference == nil {
		return fmt.Errorf("kernel %s: no reference function", d.Name)
	}

	for _, t := range d.Types {
		if !t.Valid() {
			return fmt.Errorf("kernel %s: invalid element type %d", d.Name, t)
		}
	}

	for _, s := range d.Sizes {
		if s <= 0 {
			return fmt.Errorf("kernel %s: invalid size %d", d.Name, s)
		}
	}

	return nil
}

// Registry is an ordered collection of descriptors with unique names.
type Registry struct {
	descs []Descriptor
	index map[string]int
}

func NewRegistry() *Registry {
	return &Registry{index: make(map[string]int)}
}

// Register adds d, filling in default types and sizes when unset.
// Sizes are kept in ascending order.
func (r *Registry) Register(d Descriptor) error {
	if len(d.Types) == 0 {
		d.Types = matrix.DefaultTypes()
	}

	if len(d.Sizes) == 0 {
		d.Sizes = DefaultSizes()
	}

	d.Types = slices.Clone(d.Types)
	d.Sizes = slices.Clone(d.Sizes)
	slices.Sort(d.Sizes)
	d.Sizes = slices.Compact(d.Sizes)

	if err := d.Validate(); err != nil {
		return err
	}

	if _, dup := r.index[d.Name]; dup {
		return fmt.Errorf("kernel %s: already registered", d.Name)
	}

	r.index[d.Name] = len(r.descs)
	r.descs = append(r.descs, d)

	return nil
}

// MustRegister is Register for static tables.
func (r *Registry) MustRegister(d Descriptor) {
	if err := r.Register(d); err != nil {
		panic(err)
	}
}

// Lookup returns the descriptor registered under name.
func (r *Registry) Lookup(name string) (Descriptor, bool) {
	i, ok := r.index[name]
	if !ok {
		return Descriptor{}, false
	}

	return r.descs[i], true
}

// All returns the descriptors in registration order.
func (r *Registry) All() []Descriptor {
	return slices.Clone(r.descs)
}

func (r *Registry) Len() int { return len(r.descs) }
