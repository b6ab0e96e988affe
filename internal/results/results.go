// Package results persists sweep records as Parquet files.
package results

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/parquet-go/parquet-go"

	"github.com/example/go-kernel-bench/internal/bench"
)

// Row is the on-disk layout of one swept combination.
type Row struct {
	Function            string  `parquet:"function"`
	Type                string  `parquet:"type"`
	Size                int32   `parquet:"size"`
	Execution           string  `parquet:"execution"`
	Status              string  `parquet:"status"`
	Mismatches          int64   `parquet:"mismatches"`
	BaselineIterations  int64   `parquet:"baseline_iterations"`
	BaselineHz          float64 `parquet:"baseline_hz"`
	CandidateIterations int64   `parquet:"candidate_iterations"`
	CandidateHz         float64 `parquet:"candidate_hz"`
	Speedup             float64 `parquet:"speedup"`
	Error               string  `parquet:"error,optional"`
}

// FromRecord converts a sweep record. An unmeasured speedup is stored as 0.
func FromRecord(r bench.Record) Row {
	speedup := r.Speedup
	if math.IsNaN(speedup) || math.IsInf(speedup, 0) {
		speedup = 0
	}

	return Row{
		Function:            r.Function,
		Type:                r.Type,
		Size:                int32(r.Size),
		Execution:           r.Execution,
		Status:              r.Status(),
		Mismatches:          int64(r.Mismatches),
		BaselineIterations:  int64(r.Baseline.Iterations),
		BaselineHz:          r.Baseline.Hz,
		CandidateIterations: int64(r.Candidate.Iterations),
		CandidateHz:         r.Candidate.Hz,
		Speedup:             speedup,
		Error:               r.Err,
	}
}

// Record converts row back into a sweep record.
func (row Row) Record() bench.Record {
	speedup := row.Speedup
	if speedup == 0 {
		speedup = math.NaN()
	}

	return bench.Record{
		Function:   row.Function,
		Type:       row.Type,
		Size:       int(row.Size),
		Execution:  row.Execution,
		Mismatches: int(row.Mismatches),
		Baseline:   bench.Speed{Iterations: int(row.BaselineIterations), Hz: row.BaselineHz},
		Candidate:  bench.Speed{Iterations: int(row.CandidateIterations), Hz: row.CandidateHz},
		Speedup:    speedup,
		Err:        row.Error,
	}
}

// Write encodes records to w as one zstd-compressed Parquet file.
func Write(w io.Writer, records []bench.Record) error {
	rows := make([]Row, len(records))
	for i, r := range records {
		rows[i] = FromRecord(r)
	}

	pw := parquet.NewGenericWriter[Row](w, parquet.Compression(&parquet.Zstd))

	if _, err := pw.Write(rows); err != nil {
		_ = pw.Close()
		return fmt.Errorf("results: write rows: %w", err)
	}

	if err := pw.Close(); err != nil {
		return fmt.Errorf("results: close writer: %w", err)
	}

	return nil
}

// WriteFile writes records to path, creating parent directories. The file
// is replaced atomically.
func WriteFile(path string, records []bench.Record) (err error) {
	if path == "" {
		return errors.New("results: empty path")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("results: create directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("results: create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if err = Write(tmp, records); err != nil {
		_ = tmp.Close()
		return err
	}

	if err = tmp.Close(); err != nil {
		return fmt.Errorf("results: close temp file: %w", err)
	}

	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("results: rename: %w", err)
	}

	return nil
}

// ReadFile decodes every row of the Parquet file at path.
func ReadFile(path string) ([]Row, error) {
	rows, err := parquet.ReadFile[Row](path)
	if err != nil {
		return nil, fmt.Errorf("results: read %s: %w", path, err)
	}

	return rows, nil
}
