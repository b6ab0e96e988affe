// Package harness drives the differential sweep: for every kernel it
// generates inputs, checks the compiled kernel against its reference and
// measures their relative throughput.
package harness

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"

	"github.com/example/go-kernel-bench/internal/bench"
	"github.com/example/go-kernel-bench/internal/candidate"
	"github.com/example/go-kernel-bench/internal/compare"
	"github.com/example/go-kernel-bench/internal/datagen"
	"github.com/example/go-kernel-bench/internal/kernel"
	"github.com/example/go-kernel-bench/internal/matrix"
)

// SweepHeader is printed before the first result line.
const SweepHeader = "Function \tType \tSize \tExecution \tSpeedup\n"

// ControllerOptions configures a Controller.
type ControllerOptions struct {
	Generator  *datagen.Generator
	Compiler   candidate.Compiler
	Tolerances compare.Tolerances
	Filters    Filters
	// Modes overrides DefaultModes.
	Modes []Mode
	// Speed enables throughput measurement.
	Speed bool
	// Quiet suppresses all console output.
	Quiet  bool
	Meter  bench.Meter
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger
}

// Result is the outcome of one combination.
type Result struct {
	Function string
	Combination
	Report    *compare.Report
	Baseline  bench.Speed
	Candidate bench.Speed
	Speedup   float64
	Err       error
}

// Record flattens r for reporting.
func (r Result) Record() bench.Record {
	rec := bench.Record{
		Function:  r.Function,
		Type:      r.Type.String(),
		Size:      r.Size,
		Execution: r.Mode.String(),
		Baseline:  r.Baseline,
		Candidate: r.Candidate,
		Speedup:   r.Speedup,
	}

	if r.Report != nil {
		rec.Mismatches = r.Report.Total
	}

	if r.Err != nil {
		rec.Err = r.Err.Error()
	}

	return rec
}

// CaseFailure is a kernel that could not be swept at all.
type CaseFailure struct {
	Function string
	Err      error
}

// Summary collects everything a sweep produced.
type Summary struct {
	Results  []Result
	Failures []CaseFailure
	// Skipped lists cases with no combination left after filtering.
	Skipped []string
}

// Records flattens all results.
func (s Summary) Records() []bench.Record {
	out := make([]bench.Record, len(s.Results))
	for i, r := range s.Results {
		out[i] = r.Record()
	}

	return out
}

// Mismatched counts combinations with at least one mismatch.
func (s Summary) Mismatched() int {
	n := 0
	for _, r := range s.Results {
		if r.Report != nil && !r.Report.Passed() {
			n++
		}
	}

	return n
}

// Controller runs sweeps. It is single-threaded: every step completes
// before the next begins.
type Controller struct {
	opts ControllerOptions
	log  *slog.Logger
}

// NewController validates opts and fills in defaults.
func NewController(opts ControllerOptions) (*Controller, error) {
	if opts.Generator == nil {
		return nil, errors.New("harness: a data generator is required")
	}

	if opts.Compiler == nil {
		return nil, errors.New("harness: a kernel compiler is required")
	}

	if len(opts.Modes) == 0 {
		opts.Modes = DefaultModes()
	}

	if opts.Stdout == nil || opts.Quiet {
		opts.Stdout = io.Discard
	}

	if opts.Stderr == nil || opts.Quiet {
		opts.Stderr = io.Discard
	}

	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	return &Controller{opts: opts, log: log}, nil
}

// Run sweeps cases in order. Mismatches and per-case compile failures are
// collected in the Summary; only an unavailable canonical image aborts the
// sweep with an error.
func (c *Controller) Run(cases []kernel.Descriptor) (Summary, error) {
	var sum Summary

	fmt.Fprint(c.opts.Stdout, SweepHeader)

	for _, d := range cases {
		plan := c.opts.Filters.Plan(d, c.opts.Modes)
		if len(plan) == 0 {
			sum.Skipped = append(sum.Skipped, d.Name)
			c.log.Debug("kernel skipped by filters", "function", d.Name)
			continue
		}

		adapter, err := candidate.Compile(c.opts.Compiler, d.Name)
		if err != nil {
			sum.Failures = append(sum.Failures, CaseFailure{Function: d.Name, Err: err})
			fmt.Fprintf(c.opts.Stderr, "Failed to compile %s: %v\n", d.Name, err)
			c.log.Error("kernel compile failed", "function", d.Name, "error", err)
			continue
		}

		results, err := c.runCase(d, adapter, plan)
		sum.Results = append(sum.Results, results...)
		if err != nil {
			return sum, err
		}
	}

	c.log.Info("sweep finished",
		"combinations", len(sum.Results),
		"mismatched", sum.Mismatched(),
		"failures", len(sum.Failures),
		"skipped", len(sum.Skipped),
	)

	return sum, nil
}

func (c *Controller) runCase(d kernel.Descriptor, adapter *candidate.Adapter, plan []Combination) ([]Result, error) {
	opts := c.opts.Tolerances.For(d.Name, d.IgnoreOffByOne)
	results := make([]Result, 0, len(plan))

	var input *matrix.Matrix
	defer func() { input.Release() }()

	for _, comb := range plan {
		if input == nil || input.Type() != comb.Type || input.Rows() != comb.Size {
			input.Release()
			input = nil

			m, err := c.opts.Generator.Generate(comb.Size, comb.Size, comb.Type, d.ScaleFactor())
			if err != nil {
				if errors.Is(err, datagen.ErrImageUnavailable) {
					return results, err
				}

				results = append(results, c.failed(d.Name, comb, fmt.Errorf("generate input: %w", err)))
				continue
			}

			input = m
		}

		results = append(results, c.runCombination(d, adapter, input, comb, opts))
	}

	return results, nil
}

func (c *Controller) failed(name string, comb Combination, err error) Result {
	fmt.Fprintf(c.opts.Stderr, "Test for %s (%s %d %s) failed: %v\n", name, comb.Type, comb.Size, comb.Mode, err)
	c.log.Error("combination failed", "function", name, "type", comb.Type.String(), "size", comb.Size, "execution", comb.Mode.String(), "error", err)

	return Result{
		Function:    name,
		Combination: comb,
		Baseline:    bench.Unmeasured,
		Candidate:   bench.Unmeasured,
		Speedup:     math.NaN(),
		Err:         err,
	}
}

// runCombination checks and optionally measures one combination. The input
// is shared read-only through a view carrying the mode's parallel flag.
func (c *Controller) runCombination(d kernel.Descriptor, adapter *candidate.Adapter, input *matrix.Matrix, comb Combination, opts compare.Options) Result {
	view := input.View()
	defer view.Release()

	view.SetParallel(comb.Mode == Parallel)

	fmt.Fprintf(c.opts.Stdout, "%s \t%s \t%d \t%s\t", d.Name, comb.Type, comb.Size, comb.Mode.Label())

	report, err := check(d, adapter, view, opts)
	if err != nil {
		fmt.Fprintln(c.opts.Stdout)
		return c.failed(d.Name, comb, err)
	}

	if err := report.WriteTable(c.opts.Stderr, d.Name); err != nil {
		c.log.Debug("mismatch table not written", "function", d.Name, "error", err)
	}

	res := Result{
		Function:    d.Name,
		Combination: comb,
		Report:      report,
		Baseline:    bench.Unmeasured,
		Candidate:   bench.Unmeasured,
		Speedup:     math.NaN(),
	}

	if !c.opts.Speed {
		fmt.Fprintln(c.opts.Stdout)
		return res
	}

	res.Baseline, err = c.opts.Meter.Measure(func() (bench.Releaser, error) {
		return d.Reference(view)
	})
	if err == nil {
		res.Candidate, err = c.opts.Meter.Measure(func() (bench.Releaser, error) {
			return adapter.Call(view)
		})
	}

	if err != nil {
		fmt.Fprintln(c.opts.Stdout)
		failed := c.failed(d.Name, comb, fmt.Errorf("measure: %w", err))
		failed.Report = report

		return failed
	}

	res.Speedup = bench.Speedup(res.Candidate, res.Baseline)
	fmt.Fprintln(c.opts.Stdout, bench.FormatSpeedup(res.Speedup))

	c.log.Debug("combination measured",
		"function", d.Name,
		"type", comb.Type.String(),
		"size", comb.Size,
		"execution", comb.Mode.String(),
		"baseline_hz", res.Baseline.Hz,
		"candidate_hz", res.Candidate.Hz,
	)

	return res
}

func check(d kernel.Descriptor, adapter *candidate.Adapter, input *matrix.Matrix, opts compare.Options) (*compare.Report, error) {
	ref, err := d.Reference(input)
	if err != nil {
		return nil, fmt.Errorf("reference: %w", err)
	}
	defer ref.Release()

	cand, err := adapter.Call(input)
	if err != nil {
		return nil, err
	}
	defer cand.Release()

	return compare.Compare(input, ref, cand, opts)
}
