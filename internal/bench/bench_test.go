package bench_test

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"
	"testing"

	"github.com/example/go-kernel-bench/internal/bench"
)

func measured(fn string, speedup float64) bench.Record {
	return bench.Record{
		Function:  fn,
		Type:      "u8",
		Size:      8,
		Execution: "serial",
		Baseline:  bench.Speed{Iterations: 100, Hz: 100},
		Candidate: bench.Speed{Iterations: int(100 * speedup), Hz: 100 * speedup},
		Speedup:   speedup,
	}
}

// ---------------------------------------------------------------------------
// Aggregation
// ---------------------------------------------------------------------------

func TestStats_MinMaxGeoMean(t *testing.T) {
	s := bench.ComputeStats([]bench.Record{
		measured("a", 0.5),
		measured("b", 2),
		measured("c", 8),
	})

	if s.Count != 3 {
		t.Errorf("want count=3, got %d", s.Count)
	}

	if s.Min != 0.5 {
		t.Errorf("want min=0.5, got %v", s.Min)
	}

	if s.Max != 8 {
		t.Errorf("want max=8, got %v", s.Max)
	}

	if math.Abs(s.GeoMean-2) > 1e-12 {
		t.Errorf("want geomean=2, got %v", s.GeoMean)
	}
}

func TestStats_SkipsUnmeasured(t *testing.T) {
	unmeasured := bench.Record{Function: "x", Speedup: math.NaN(), Baseline: bench.Unmeasured, Candidate: bench.Unmeasured}

	s := bench.ComputeStats([]bench.Record{unmeasured, measured("a", 4)})
	if s.Count != 1 || s.Min != 4 || s.Max != 4 || s.GeoMean != 4 {
		t.Errorf("want single measured record, got %+v", s)
	}
}

func TestStats_Empty(t *testing.T) {
	if s := bench.ComputeStats(nil); s != (bench.Stats{}) {
		t.Errorf("want zero stats, got %+v", s)
	}
}

// ---------------------------------------------------------------------------
// Speed and speedup
// ---------------------------------------------------------------------------

func TestSpeedup(t *testing.T) {
	got := bench.Speedup(bench.Speed{Iterations: 300, Hz: 300}, bench.Speed{Iterations: 100, Hz: 100})
	if got != 3 {
		t.Errorf("want speedup=3, got %v", got)
	}
}

func TestSpeedup_UndefinedUntilMeasured(t *testing.T) {
	cases := []struct {
		name      string
		candidate bench.Speed
		baseline  bench.Speed
	}{
		{"candidate unmeasured", bench.Unmeasured, bench.Speed{Iterations: 1, Hz: 1}},
		{"baseline unmeasured", bench.Speed{Iterations: 1, Hz: 1}, bench.Unmeasured},
		{"zero baseline", bench.Speed{Iterations: 1, Hz: 1}, bench.Speed{}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := bench.Speedup(tc.candidate, tc.baseline); !math.IsNaN(got) {
				t.Errorf("want NaN, got %v", got)
			}
		})
	}
}

func TestUnmeasured(t *testing.T) {
	if bench.Unmeasured.Measured() {
		t.Error("Unmeasured.Measured() = true")
	}

	if bench.Unmeasured.Iterations != -1 || bench.Unmeasured.Hz != -1 {
		t.Errorf("Unmeasured = %+v; want {-1 -1}", bench.Unmeasured)
	}
}

// ---------------------------------------------------------------------------
// Record status
// ---------------------------------------------------------------------------

func TestRecord_Status(t *testing.T) {
	cases := []struct {
		rec  bench.Record
		want string
	}{
		{bench.Record{}, "pass"},
		{bench.Record{Mismatches: 3}, "mismatch"},
		{bench.Record{Mismatches: 3, Err: "boom"}, "error"},
	}

	for _, tc := range cases {
		if got := tc.rec.Status(); got != tc.want {
			t.Errorf("Status(%+v) = %q; want %q", tc.rec, got, tc.want)
		}

		if got := tc.rec.Passed(); got != (tc.want == "pass") {
			t.Errorf("Passed(%+v) = %v", tc.rec, got)
		}
	}
}

// ---------------------------------------------------------------------------
// Mismatch gate
// ---------------------------------------------------------------------------

func TestMismatchGate(t *testing.T) {
	records := []bench.Record{{Function: "a"}, {Function: "b", Mismatches: 2}}

	if err := bench.CheckMismatchGate(records, true); err == nil {
		t.Error("want gate error when a record mismatched")
	}

	if err := bench.CheckMismatchGate(records, false); err != nil {
		t.Errorf("disabled gate returned %v", err)
	}

	if err := bench.CheckMismatchGate(records[:1], true); err != nil {
		t.Errorf("clean records returned %v", err)
	}
}

// ---------------------------------------------------------------------------
// Formatters
// ---------------------------------------------------------------------------

func TestFormatSpeedup(t *testing.T) {
	if got := bench.FormatSpeedup(12.5); got != "1.25e+01" {
		t.Errorf("FormatSpeedup(12.5) = %q; want 1.25e+01", got)
	}
}

func TestFormatTable_ContainsHeaders(t *testing.T) {
	records := []bench.Record{measured("add{32}", 2), {Function: "sin", Type: "f32", Err: "boom", Speedup: math.NaN()}}

	var buf bytes.Buffer
	bench.FormatTable(records, bench.ComputeStats(records), &buf)
	out := buf.String()

	for _, want := range []string{"Function", "Execution", "Mismatches", "Speedup", "add{32}", "2.00e+00", "error", "(geomean)"} {
		if !strings.Contains(out, want) {
			t.Errorf("table output missing %q:\n%s", want, out)
		}
	}
}

func TestFormatJSON_IsValidJSON(t *testing.T) {
	records := []bench.Record{
		measured("add{32}", 2),
		{Function: "sin", Type: "f32", Size: 4, Execution: "parallel", Mismatches: 1, Baseline: bench.Unmeasured, Candidate: bench.Unmeasured, Speedup: math.NaN()},
	}

	var buf bytes.Buffer
	if err := bench.FormatJSON(records, bench.ComputeStats(records), &buf); err != nil {
		t.Fatalf("FormatJSON: %v", err)
	}

	var decoded struct {
		Records []map[string]any `json:"records"`
		Stats   map[string]any   `json:"stats"`
	}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, buf.String())
	}

	if len(decoded.Records) != 2 {
		t.Fatalf("want 2 records, got %d", len(decoded.Records))
	}

	if decoded.Records[0]["speedup"] != 2.0 {
		t.Errorf("records[0].speedup = %v; want 2", decoded.Records[0]["speedup"])
	}

	if _, ok := decoded.Records[1]["speedup"]; ok {
		t.Error("unmeasured record should omit speedup")
	}

	if decoded.Records[1]["status"] != "mismatch" {
		t.Errorf("records[1].status = %v; want mismatch", decoded.Records[1]["status"])
	}

	if decoded.Stats["measured"] != 1.0 {
		t.Errorf("stats.measured = %v; want 1", decoded.Stats["measured"])
	}
}
