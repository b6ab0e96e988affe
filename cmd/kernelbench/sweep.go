package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/example/go-kernel-bench/internal/bench"
	"github.com/example/go-kernel-bench/internal/compare"
	"github.com/example/go-kernel-bench/internal/config"
	"github.com/example/go-kernel-bench/internal/datagen"
	"github.com/example/go-kernel-bench/internal/harness"
	"github.com/example/go-kernel-bench/internal/interp"
	"github.com/example/go-kernel-bench/internal/kernel"
	"github.com/example/go-kernel-bench/internal/matrix"
	"github.com/example/go-kernel-bench/internal/metrics"
	"github.com/example/go-kernel-bench/internal/results"
)

// sweepEnv holds the collaborators of one sweep. Tests swap in a static
// image source.
type sweepEnv struct {
	mem    memory.Allocator
	source *datagen.Source
}

func defaultSweepEnv(cfg config.Config) sweepEnv {
	return sweepEnv{
		mem:    memory.DefaultAllocator,
		source: datagen.FileSource(cfg.Paths.Image),
	}
}

func runSweep(cfg config.Config, stdout, stderr io.Writer) error {
	return defaultSweepEnv(cfg).run(cfg, stdout, stderr)
}

func (env sweepEnv) run(cfg config.Config, stdout, stderr io.Writer) error {
	format, err := config.NormalizeFormat(cfg.Output.Format)
	if err != nil {
		return err
	}

	filters, err := sweepFilters(cfg.Sweep)
	if err != nil {
		return err
	}

	// The canonical image is loaded before anything is printed; without it
	// no case can run.
	if _, err := env.source.Image(); err != nil {
		return err
	}

	// JSON summaries own stdout, so progress lines move to stderr.
	console := stdout
	if format == config.FormatJSON {
		console = stderr
	}

	ctrl, err := harness.NewController(harness.ControllerOptions{
		Generator: datagen.NewGenerator(env.source,
			datagen.WithAllocator(env.mem),
			datagen.WithSaturation(!cfg.Sweep.NoSat),
		),
		Compiler:   interp.NewCompiler(env.mem),
		Tolerances: tolerances(cfg.Tolerance),
		Filters:    filters,
		Speed:      !cfg.Sweep.NoSpeed,
		Quiet:      cfg.Sweep.Quiet,
		Meter:      bench.Meter{Window: cfg.Sweep.Window},
		Stdout:     console,
		Stderr:     stderr,
		Logger:     slog.Default(),
	})
	if err != nil {
		return err
	}

	sum, err := ctrl.Run(kernel.Builtins().All())
	if err != nil {
		return err
	}

	records := sum.Records()

	if err := writeSummary(format, records, stdout); err != nil {
		return err
	}

	if err := persist(cfg.Output, sum); err != nil {
		return err
	}

	var errs []error

	if n := len(sum.Failures); n > 0 {
		errs = append(errs, fmt.Errorf("%d kernels failed to compile", n))
	}

	failed := 0
	for _, r := range sum.Results {
		if r.Err != nil {
			failed++
		}
	}

	if failed > 0 {
		errs = append(errs, fmt.Errorf("%d combinations failed to run", failed))
	}

	if err := bench.CheckMismatchGate(records, cfg.Output.FailOnMismatch); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

func sweepFilters(s config.SweepConfig) (harness.Filters, error) {
	f := harness.Filters{Function: s.Function, Size: s.Size}

	if s.Type != "" {
		t, err := matrix.ParseType(s.Type)
		if err != nil {
			return harness.Filters{}, err
		}

		f.Type = t
	}

	mode, err := harness.ParseMode(s.Mode())
	if err != nil {
		return harness.Filters{}, err
	}

	f.Mode = mode

	return f, nil
}

func tolerances(t config.ToleranceConfig) compare.Tolerances {
	out := compare.Tolerances{
		Epsilon:             t.Epsilon,
		AbsoluteDenominator: t.AbsoluteDenominator,
		MaxRecords:          t.MaxRecords,
		OffByOne:            t.OffByOne,
	}

	if len(t.Overrides) > 0 {
		out.Overrides = make(map[string]compare.Tolerance, len(t.Overrides))
		for name, o := range t.Overrides {
			out.Overrides[name] = compare.Tolerance{Epsilon: o.Epsilon, IgnoreOffByOne: o.IgnoreOffByOne}
		}
	}

	return out
}

func writeSummary(format string, records []bench.Record, w io.Writer) error {
	stats := bench.ComputeStats(records)

	switch format {
	case config.FormatJSON:
		return bench.FormatJSON(records, stats, w)
	case config.FormatTable:
		bench.FormatTable(records, stats, w)
	}

	return nil
}

func persist(out config.OutputConfig, sum harness.Summary) error {
	records := sum.Records()

	if out.ResultsPath != "" {
		if err := results.WriteFile(out.ResultsPath, records); err != nil {
			return err
		}

		slog.Info("results written", "path", out.ResultsPath, "rows", len(records))
	}

	if out.MetricsPath != "" {
		rec := metrics.NewRecorder()
		rec.ObserveAll(records)

		for _, f := range sum.Failures {
			rec.CompileFailure(f.Function)
		}

		if err := rec.WriteTextfile(out.MetricsPath); err != nil {
			return err
		}

		slog.Info("metrics written", "path", out.MetricsPath)
	}

	return nil
}

func runExamples(cfg config.Config, names []string, stdout, stderr io.Writer) error {
	if len(names) == 0 {
		names = harness.DefaultExamples()
	}

	runner, err := harness.NewExampleRunner(harness.ExampleOptions{
		Interpreter: interp.NewCompiler(memory.DefaultAllocator),
		Dir:         cfg.Paths.Examples,
		Meter:       bench.Meter{Window: cfg.Sweep.Window},
		Quiet:       cfg.Sweep.Quiet,
		Stdout:      stdout,
		Stderr:      stderr,
		Logger:      slog.Default(),
	})
	if err != nil {
		return err
	}

	res, err := runner.Run(names)
	if err != nil {
		return err
	}

	failed := 0
	for _, r := range res {
		if r.Err != nil {
			failed++
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d examples failed", failed, len(res))
	}

	return nil
}
