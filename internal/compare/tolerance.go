package compare

import "slices"

// Tolerance is the per-kernel comparison policy.
type Tolerance struct {
	Epsilon        float64
	IgnoreOffByOne bool
}

// Tolerances resolves the policy for a kernel: the kernel's own declared
// policy, overridden by any configured entries.
type Tolerances struct {
	// Epsilon applies to every kernel. Zero keeps DefaultEpsilon.
	Epsilon float64
	// AbsoluteDenominator selects |reference| + epsilon normalisation.
	AbsoluteDenominator bool
	// MaxRecords caps recorded mismatches. Zero keeps DefaultMaxRecords.
	MaxRecords int
	// OffByOne lists kernels that ignore off-by-one mismatches regardless
	// of their declaration.
	OffByOne []string
	// Overrides replaces the policy of individual kernels.
	Overrides map[string]Tolerance
}

// For returns the comparison options for kernel name, which declares
// offByOne itself.
func (t Tolerances) For(name string, offByOne bool) Options {
	opts := Options{
		Epsilon:             t.Epsilon,
		IgnoreOffByOne:      offByOne || slices.Contains(t.OffByOne, name),
		AbsoluteDenominator: t.AbsoluteDenominator,
		MaxRecords:          t.MaxRecords,
	}

	if o, ok := t.Overrides[name]; ok {
		if o.Epsilon > 0 {
			opts.Epsilon = o.Epsilon
		}

		opts.IgnoreOffByOne = o.IgnoreOffByOne
	}

	return opts
}
