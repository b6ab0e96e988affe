// Package bench provides throughput measurement and result reporting for
// the kernelbench sweeps.
package bench

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"
)

// ---------------------------------------------------------------------------
// Result record and stats
// ---------------------------------------------------------------------------

// Record is the flat outcome of one swept combination.
type Record struct {
	Function   string
	Type       string
	Size       int
	Execution  string
	Mismatches int
	Baseline   Speed
	Candidate  Speed
	Speedup    float64
	Err        string
}

// Passed reports whether the combination ran and matched its reference.
func (r Record) Passed() bool { return r.Err == "" && r.Mismatches == 0 }

// Status is "pass", "mismatch" or "error".
func (r Record) Status() string {
	switch {
	case r.Err != "":
		return "error"
	case r.Mismatches > 0:
		return "mismatch"
	default:
		return "pass"
	}
}

// Stats holds aggregate speedup statistics across measured records.
type Stats struct {
	Count   int
	Min     float64
	Max     float64
	GeoMean float64
}

// ComputeStats calculates min, max and geometric mean over the speedups of
// records that were measured. Records without a finite positive speedup are
// skipped.
func ComputeStats(records []Record) Stats {
	var s Stats
	var logSum float64

	for _, r := range records {
		v := r.Speedup
		if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
			continue
		}

		if s.Count == 0 || v < s.Min {
			s.Min = v
		}

		if v > s.Max {
			s.Max = v
		}

		logSum += math.Log(v)
		s.Count++
	}

	if s.Count > 0 {
		s.GeoMean = math.Exp(logSum / float64(s.Count))
	}

	return s
}

// ---------------------------------------------------------------------------
// Mismatch gate
// ---------------------------------------------------------------------------

// CheckMismatchGate returns an error if any record mismatched while the
// gate is enabled.
func CheckMismatchGate(records []Record, enabled bool) error {
	if !enabled {
		return nil
	}

	failed := 0
	for _, r := range records {
		if r.Mismatches > 0 {
			failed++
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d combinations mismatched their reference", failed, len(records))
	}

	return nil
}

// ---------------------------------------------------------------------------
// Output formatters
// ---------------------------------------------------------------------------

// FormatSpeedup renders a speedup ratio in scientific notation.
func FormatSpeedup(v float64) string {
	return fmt.Sprintf("%.2e", v)
}

// FormatTable writes a human-readable ASCII table of sweep records to w.
func FormatTable(records []Record, stats Stats, w io.Writer) {
	sb := &strings.Builder{}

	fmt.Fprintf(sb, "%-16s  %-4s  %6s  %-9s  %10s  %10s\n", "Function", "Type", "Size", "Execution", "Mismatches", "Speedup")
	fmt.Fprintln(sb, strings.Repeat("-", 64))

	for _, r := range records {
		speedup := "-"
		if !math.IsNaN(r.Speedup) && r.Speedup != 0 {
			speedup = FormatSpeedup(r.Speedup)
		}

		mismatches := fmt.Sprint(r.Mismatches)
		if r.Err != "" {
			mismatches = "error"
		}

		fmt.Fprintf(sb, "%-16s  %-4s  %6d  %-9s  %10s  %10s\n",
			r.Function, r.Type, r.Size, r.Execution, mismatches, speedup)
	}

	fmt.Fprintln(sb, strings.Repeat("-", 64))

	if stats.Count > 0 {
		fmt.Fprintf(sb, "%-42s  %10s  %10s  (min)\n", "", "", FormatSpeedup(stats.Min))
		fmt.Fprintf(sb, "%-42s  %10s  %10s  (geomean)\n", "", "", FormatSpeedup(stats.GeoMean))
		fmt.Fprintf(sb, "%-42s  %10s  %10s  (max)\n", "", "", FormatSpeedup(stats.Max))
	}

	fmt.Fprint(w, sb.String())
}

// jsonReport is the top-level JSON structure emitted by FormatJSON.
type jsonReport struct {
	Records []jsonRecord `json:"records"`
	Stats   jsonStats    `json:"stats"`
}

type jsonRecord struct {
	Function    string   `json:"function"`
	Type        string   `json:"type"`
	Size        int      `json:"size"`
	Execution   string   `json:"execution"`
	Status      string   `json:"status"`
	Mismatches  int      `json:"mismatches"`
	BaselineHz  *float64 `json:"baseline_hz,omitempty"`
	CandidateHz *float64 `json:"candidate_hz,omitempty"`
	Speedup     *float64 `json:"speedup,omitempty"`
	Error       string   `json:"error,omitempty"`
}

type jsonStats struct {
	Measured int     `json:"measured"`
	Min      float64 `json:"min_speedup"`
	GeoMean  float64 `json:"geomean_speedup"`
	Max      float64 `json:"max_speedup"`
}

// FormatJSON writes a JSON report of sweep records to w. Unmeasured speeds
// are omitted.
func FormatJSON(records []Record, stats Stats, w io.Writer) error {
	jr := jsonReport{
		Records: make([]jsonRecord, len(records)),
		Stats: jsonStats{
			Measured: stats.Count,
			Min:      stats.Min,
			GeoMean:  stats.GeoMean,
			Max:      stats.Max,
		},
	}

	for i, r := range records {
		jr.Records[i] = jsonRecord{
			Function:   r.Function,
			Type:       r.Type,
			Size:       r.Size,
			Execution:  r.Execution,
			Status:     r.Status(),
			Mismatches: r.Mismatches,
			Error:      r.Err,
		}

		if r.Baseline.Measured() {
			jr.Records[i].BaselineHz = &r.Baseline.Hz
		}

		if r.Candidate.Measured() {
			jr.Records[i].CandidateHz = &r.Candidate.Hz
		}

		if !math.IsNaN(r.Speedup) && !math.IsInf(r.Speedup, 0) && r.Speedup != 0 {
			jr.Records[i].Speedup = &r.Speedup
		}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(jr)
}
