// Package doctor provides environment preflight checks for kernelbench.
package doctor

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// PassMark and FailMark are the prefix symbols printed for each check result.
const (
	PassMark = "✓"
	FailMark = "✗"
)

// ProbeFunc returns a short description of a component or an error if the
// component is unusable.
type ProbeFunc func() (string, error)

// CompileFunc compiles one kernel source.
type CompileFunc func(source string) error

// Config holds injectable dependencies for each doctor check.
type Config struct {
	// ImagePath is the canonical image reported in the output.
	ImagePath string
	// Image decodes the canonical image and describes it (e.g. "512x512 gray").
	Image ProbeFunc
	// ExamplesDir holds the example scripts listed in Examples.
	ExamplesDir string
	// Examples are example names; each must exist as <dir>/<name><ExampleExt>.
	Examples   []string
	ExampleExt string
	// Kernels are the kernel sources handed to Compile.
	Kernels []string
	Compile CompileFunc
}

// Result collects the outcome of all checks.
type Result struct {
	failures []string
}

// Failed returns true if any check failed.
func (r *Result) Failed() bool { return len(r.failures) > 0 }

// Failures returns the list of failure messages.
func (r *Result) Failures() []string { return append([]string(nil), r.failures...) }

// AddFailure appends an external failure message to the result.
func (r *Result) AddFailure(msg string) { r.failures = append(r.failures, msg) }

func (r *Result) fail(msg string) { r.failures = append(r.failures, msg) }

// Run executes all configured checks and writes human-readable output to w.
// Each check line is prefixed with PassMark or FailMark.
func Run(cfg Config, w io.Writer) Result {
	var res Result

	// ---- canonical image --------------------------------------------------
	if cfg.Image == nil {
		fmt.Fprintf(w, "%s canonical image: skipped\n", PassMark)
	} else {
		desc, err := cfg.Image()
		if err != nil {
			res.fail(fmt.Sprintf("canonical image %q: %v", cfg.ImagePath, err))
			fmt.Fprintf(w, "%s canonical image %s: %v\n", FailMark, cfg.ImagePath, err)
		} else {
			fmt.Fprintf(w, "%s canonical image: %s (%s)\n", PassMark, cfg.ImagePath, desc)
		}
	}

	// ---- example scripts --------------------------------------------------
	for _, name := range cfg.Examples {
		path := filepath.Join(cfg.ExamplesDir, name+cfg.ExampleExt)
		if _, err := os.Stat(path); err != nil {
			res.fail(fmt.Sprintf("example %q: %v", path, err))
			fmt.Fprintf(w, "%s example %s: not found\n", FailMark, path)
		} else {
			fmt.Fprintf(w, "%s example: %s\n", PassMark, path)
		}
	}

	// ---- kernel compilation -----------------------------------------------
	if cfg.Compile == nil {
		if len(cfg.Kernels) > 0 {
			fmt.Fprintf(w, "%s kernel compilation: skipped\n", PassMark)
		}

		return res
	}

	compiled := 0
	for _, src := range cfg.Kernels {
		if err := cfg.Compile(src); err != nil {
			res.fail(fmt.Sprintf("kernel %s: %v", src, err))
			fmt.Fprintf(w, "%s kernel %s: %v\n", FailMark, src, err)
			continue
		}

		compiled++
	}

	if compiled == len(cfg.Kernels) {
		fmt.Fprintf(w, "%s kernels: %d compiled\n", PassMark, compiled)
	}

	return res
}
