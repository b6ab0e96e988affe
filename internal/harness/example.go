package harness

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/example/go-kernel-bench/internal/bench"
	"github.com/example/go-kernel-bench/internal/interp"
)

// ExampleHeader is printed before the first example line.
const ExampleHeader = "Example \tSpeed\n"

// ExampleExt is the file extension of example scripts.
const ExampleExt = ".kb"

// DefaultExamples lists the example scripts measured by default.
func DefaultExamples() []string {
	return []string{"hello_world", "function_calls", "closures", "arithmetic", "currying"}
}

// Interpreter executes script snippets against a persistent state.
type Interpreter interface {
	Exec(source string, st *interp.State) (*interp.State, error)
}

// ExampleOptions configures an ExampleRunner.
type ExampleOptions struct {
	Interpreter Interpreter
	// Dir holds <name>.kb scripts.
	Dir    string
	Meter  bench.Meter
	Quiet  bool
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger
}

// ExampleResult is the throughput of one example script.
type ExampleResult struct {
	Name  string
	Speed bench.Speed
	Err   error
}

// ExampleRunner measures how fast the interpreter executes example scripts.
// All examples share one interpreter state.
type ExampleRunner struct {
	opts ExampleOptions
	log  *slog.Logger
}

// NewExampleRunner validates opts and fills in defaults.
func NewExampleRunner(opts ExampleOptions) (*ExampleRunner, error) {
	if opts.Interpreter == nil {
		return nil, errors.New("harness: an interpreter is required")
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

	return &ExampleRunner{opts: opts, log: log}, nil
}

// Path returns the script path of example name.
func (r *ExampleRunner) Path(name string) string {
	return filepath.Join(r.opts.Dir, name+ExampleExt)
}

// Run measures names in order. A missing or failing script is reported in
// its result and the run continues; only a failure to create the
// interpreter state is returned as an error.
func (r *ExampleRunner) Run(names []string) ([]ExampleResult, error) {
	st, err := r.opts.Interpreter.Exec("", nil)
	if err != nil {
		return nil, fmt.Errorf("harness: create interpreter state: %w", err)
	}
	defer func() { st.Close() }()

	fmt.Fprint(r.opts.Stdout, ExampleHeader)

	results := make([]ExampleResult, 0, len(names))
	for _, name := range names {
		res := ExampleResult{Name: name, Speed: bench.Unmeasured}

		res.Speed, res.Err = r.measure(name, &st)
		if res.Err != nil {
			fmt.Fprintf(r.opts.Stderr, "Example %s failed: %v\n", name, res.Err)
			r.log.Error("example failed", "example", name, "error", res.Err)
		} else {
			fmt.Fprintf(r.opts.Stdout, "%s \t%.2e \n", name, res.Speed.Hz)
			r.log.Debug("example measured", "example", name, "hz", res.Speed.Hz, "iterations", res.Speed.Iterations)
		}

		results = append(results, res)
	}

	return results, nil
}

func (r *ExampleRunner) measure(name string, st **interp.State) (bench.Speed, error) {
	src, err := os.ReadFile(r.Path(name))
	if err != nil {
		return bench.Unmeasured, fmt.Errorf("read example: %w", err)
	}

	script := string(src)

	if err := r.exec(script, st); err != nil {
		return bench.Unmeasured, fmt.Errorf("prime: %w", err)
	}

	return r.opts.Meter.Measure(func() (bench.Releaser, error) {
		return nil, r.exec(script, st)
	})
}

func (r *ExampleRunner) exec(script string, st **interp.State) error {
	next, err := r.opts.Interpreter.Exec(script, *st)
	if next != nil {
		*st = next
	}

	return err
}
