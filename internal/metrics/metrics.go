// Package metrics exports sweep outcomes in the Prometheus text format so
// that a node exporter textfile collector can pick them up.
package metrics

import (
	"fmt"
	"math"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/example/go-kernel-bench/internal/bench"
)

// Recorder accumulates sweep metrics on its own registry.
type Recorder struct {
	registry *prometheus.Registry

	combinations *prometheus.CounterVec
	mismatches   *prometheus.CounterVec
	throughput   *prometheus.GaugeVec
	speedup      *prometheus.GaugeVec
	speedups     prometheus.Histogram
	failures     *prometheus.CounterVec
}

var labels = []string{"function", "type", "size", "execution"}

// NewRecorder creates a Recorder with all collectors registered.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		combinations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kernelbench_combinations_total",
				Help: "Swept combinations by outcome",
			},
			[]string{"function", "status"},
		),
		mismatches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kernelbench_mismatches_total",
				Help: "Cells whose candidate value differs from the reference",
			},
			labels,
		),
		throughput: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "kernelbench_throughput_hz",
				Help: "Invocations per second measured for each side",
			},
			append([]string{"side"}, labels...),
		),
		speedup: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "kernelbench_speedup_ratio",
				Help: "Candidate throughput divided by reference throughput",
			},
			labels,
		),
		speedups: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "kernelbench_speedup_distribution",
				Help:    "Distribution of measured speedups",
				Buckets: prometheus.ExponentialBuckets(1.0/64, 2, 16),
			},
		),
		failures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kernelbench_compile_failures_total",
				Help: "Kernels whose candidate failed to compile",
			},
			[]string{"function"},
		),
	}

	r.registry.MustRegister(r.combinations, r.mismatches, r.throughput, r.speedup, r.speedups, r.failures)

	return r
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// Observe records one swept combination.
func (r *Recorder) Observe(rec bench.Record) {
	size := fmt.Sprint(rec.Size)

	r.combinations.WithLabelValues(rec.Function, rec.Status()).Inc()
	r.mismatches.WithLabelValues(rec.Function, rec.Type, size, rec.Execution).Add(float64(rec.Mismatches))

	if rec.Baseline.Measured() {
		r.throughput.WithLabelValues("reference", rec.Function, rec.Type, size, rec.Execution).Set(rec.Baseline.Hz)
	}

	if rec.Candidate.Measured() {
		r.throughput.WithLabelValues("candidate", rec.Function, rec.Type, size, rec.Execution).Set(rec.Candidate.Hz)
	}

	if !math.IsNaN(rec.Speedup) && !math.IsInf(rec.Speedup, 0) && rec.Speedup > 0 {
		r.speedup.WithLabelValues(rec.Function, rec.Type, size, rec.Execution).Set(rec.Speedup)
		r.speedups.Observe(rec.Speedup)
	}
}

// ObserveAll records every combination of a sweep.
func (r *Recorder) ObserveAll(records []bench.Record) {
	for _, rec := range records {
		r.Observe(rec)
	}
}

// CompileFailure records a kernel that could not be compiled.
func (r *Recorder) CompileFailure(function string) {
	r.failures.WithLabelValues(function).Inc()
}

// WriteTextfile writes the registry to path in the text exposition format.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("metrics: write %s: %w", path, err)
	}

	return nil
}
