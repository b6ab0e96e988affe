// Package compare checks a candidate kernel output against its reference
// output cell by cell.
package compare

import (
	"fmt"
	"math"

	"github.com/example/go-kernel-bench/internal/matrix"
)

const (
	// DefaultEpsilon is both the normalisation offset and the mismatch
	// threshold.
	DefaultEpsilon = 1e-6
	// DefaultMaxRecords caps the mismatch records kept in a Report.
	DefaultMaxRecords = 100
)

// Options controls one comparison.
type Options struct {
	// Epsilon offsets the normalising denominator and is the threshold a
	// normalised error must exceed. Zero selects DefaultEpsilon.
	Epsilon float64
	// IgnoreOffByOne drops mismatches whose raw difference is exactly 1.
	IgnoreOffByOne bool
	// AbsoluteDenominator normalises by |reference| + epsilon instead of
	// reference + epsilon.
	AbsoluteDenominator bool
	// MaxRecords caps Report.Records. Zero selects DefaultMaxRecords.
	MaxRecords int
}

func (o Options) epsilon() float64 {
	if o.Epsilon <= 0 {
		return DefaultEpsilon
	}

	return o.Epsilon
}

func (o Options) maxRecords() int {
	if o.MaxRecords <= 0 {
		return DefaultMaxRecords
	}

	return o.MaxRecords
}

// NormalizedError returns |candidate - reference| / (reference + eps), or
// with absolute set, / (|reference| + eps).
func NormalizedError(reference, candidate, eps float64, absolute bool) float64 {
	den := reference
	if absolute {
		den = math.Abs(reference)
	}

	return math.Abs(candidate-reference) / (den + eps)
}

// Compare classifies candidate against reference for the same input. None
// of the matrices are modified or released. A shape disagreement is
// returned as an error, never as a mismatch.
func Compare(input, reference, candidate *matrix.Matrix, opts Options) (*Report, error) {
	if reference == nil || candidate == nil || input == nil {
		return nil, fmt.Errorf("compare: nil matrix")
	}

	if !matrix.SameShape(reference, candidate) {
		return nil, fmt.Errorf("compare: %w: reference %s, candidate %s", matrix.ErrShape, reference, candidate)
	}

	if !matrix.SameShape(input, reference) {
		return nil, fmt.Errorf("compare: %w: input %s, reference %s", matrix.ErrShape, input, reference)
	}

	eps := opts.epsilon()
	n := reference.Len()

	// Thresholded error image; its L1 norm is a fast pre-check.
	mask := make([]float32, n)
	var l1 float64
	for i := range n {
		e := NormalizedError(reference.AtIndex(i), candidate.AtIndex(i), eps, opts.AbsoluteDenominator)
		if e > eps {
			mask[i] = 1
			l1++
		}
	}

	rep := &Report{}
	if l1 == 0 {
		return rep, nil
	}

	limit := opts.maxRecords()
	cols := reference.Cols()
	for i, flagged := range mask {
		if flagged == 0 {
			continue
		}

		ref, cand := reference.AtIndex(i), candidate.AtIndex(i)
		if opts.IgnoreOffByOne && math.Abs(ref-cand) == 1 {
			continue
		}

		rep.Total++
		if len(rep.Records) < limit {
			rep.Records = append(rep.Records, Mismatch{
				Input:     input.AtIndex(i),
				Reference: ref,
				Candidate: cand,
				Row:       i / cols,
				Col:       i % cols,
			})
		}
	}

	return rep, nil
}
