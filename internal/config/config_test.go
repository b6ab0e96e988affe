package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

// fakeBinder wraps a pflag.FlagSet to satisfy the flagBinder interface.
type fakeBinder struct {
	fs *pflag.FlagSet
}

func (f *fakeBinder) Flags() *pflag.FlagSet { return f.fs }

func parsedBinder(t *testing.T, args ...string) *fakeBinder {
	t.Helper()

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs, DefaultConfig())

	if err := fs.Parse(args); err != nil {
		t.Fatalf("Parse(%v) error = %v", args, err)
	}

	return &fakeBinder{fs: fs}
}

// chdir isolates Load from a kernelbench.yaml in the package directory.
func chdir(t *testing.T, dir string) {
	t.Helper()

	old, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}

	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir: %v", err)
	}

	t.Cleanup(func() { _ = os.Chdir(old) })
}

// --- DefaultConfig ---

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Paths.Image != "data/misc/lenna.tiff" {
		t.Errorf("Paths.Image = %q; want %q", cfg.Paths.Image, "data/misc/lenna.tiff")
	}

	if cfg.Paths.Examples != "examples" {
		t.Errorf("Paths.Examples = %q; want %q", cfg.Paths.Examples, "examples")
	}

	if cfg.Sweep.Window != time.Second {
		t.Errorf("Sweep.Window = %v; want 1s", cfg.Sweep.Window)
	}

	if cfg.Tolerance.Epsilon != 1e-6 {
		t.Errorf("Tolerance.Epsilon = %g; want 1e-6", cfg.Tolerance.Epsilon)
	}

	if cfg.Tolerance.MaxRecords != 100 {
		t.Errorf("Tolerance.MaxRecords = %d; want 100", cfg.Tolerance.MaxRecords)
	}

	if cfg.Output.Format != FormatText {
		t.Errorf("Output.Format = %q; want %q", cfg.Output.Format, FormatText)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("DefaultConfig().Validate() = %v; want nil", err)
	}
}

// --- RegisterFlags ---

func TestRegisterFlags(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs, DefaultConfig())

	checks := []struct {
		flag string
		want string
	}{
		{"image", "data/misc/lenna.tiff"},
		{"function", ""},
		{"size", "0"},
		{"nosat", "false"},
		{"window", "1s"},
		{"epsilon", "1e-06"},
		{"format", "text"},
		{"log-level", "warn"},
	}

	for _, c := range checks {
		f := fs.Lookup(c.flag)
		if f == nil {
			t.Errorf("flag %q not registered", c.flag)
			continue
		}

		if f.DefValue != c.want {
			t.Errorf("flag %q default = %q; want %q", c.flag, f.DefValue, c.want)
		}
	}
}

func TestRegisterFlags_AllBound(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs, DefaultConfig())

	fs.VisitAll(func(f *pflag.Flag) {
		if _, ok := flagKeys[f.Name]; !ok {
			t.Errorf("flag %q has no config key", f.Name)
		}
	})
}

// --- Load ---

func TestLoad_Defaults(t *testing.T) {
	chdir(t, t.TempDir())

	defaults := DefaultConfig()

	cfg, err := Load(LoadOptions{Cmd: parsedBinder(t), Defaults: defaults})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if !reflect.DeepEqual(cfg.Sweep, defaults.Sweep) {
		t.Errorf("Sweep = %+v; want %+v", cfg.Sweep, defaults.Sweep)
	}

	if cfg.Paths != defaults.Paths {
		t.Errorf("Paths = %+v; want %+v", cfg.Paths, defaults.Paths)
	}
}

func TestLoad_FlagOverride(t *testing.T) {
	chdir(t, t.TempDir())

	binder := parsedBinder(t,
		"--function=add",
		"--type=u8",
		"--size=8",
		"--serial",
		"--nosat",
		"--window=250ms",
		"--off-by-one=divide{2},multiply{2}",
		"--workers=3",
		"--format=json",
		"--log-level=debug",
	)

	cfg, err := Load(LoadOptions{Cmd: binder, Defaults: DefaultConfig()})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Sweep.Function != "add" {
		t.Errorf("Sweep.Function = %q; want %q", cfg.Sweep.Function, "add")
	}

	if cfg.Sweep.Type != "u8" || cfg.Sweep.Size != 8 {
		t.Errorf("Sweep type/size = %q/%d; want u8/8", cfg.Sweep.Type, cfg.Sweep.Size)
	}

	if cfg.Sweep.Mode() != ModeSerial {
		t.Errorf("Sweep.Mode() = %q; want %q", cfg.Sweep.Mode(), ModeSerial)
	}

	if !cfg.Sweep.NoSat {
		t.Error("Sweep.NoSat = false; want true")
	}

	if cfg.Sweep.Window != 250*time.Millisecond {
		t.Errorf("Sweep.Window = %v; want 250ms", cfg.Sweep.Window)
	}

	want := []string{"divide{2}", "multiply{2}"}
	if !reflect.DeepEqual(cfg.Tolerance.OffByOne, want) {
		t.Errorf("Tolerance.OffByOne = %v; want %v", cfg.Tolerance.OffByOne, want)
	}

	if cfg.Runtime.Workers != 3 {
		t.Errorf("Runtime.Workers = %d; want 3", cfg.Runtime.Workers)
	}

	if cfg.Output.Format != FormatJSON {
		t.Errorf("Output.Format = %q; want %q", cfg.Output.Format, FormatJSON)
	}

	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q; want %q", cfg.LogLevel, "debug")
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("KERNELBENCH_LOG_LEVEL", "error")
	t.Setenv("KERNELBENCH_SWEEP_FUNCTION", "sin")
	t.Setenv("KERNELBENCH_TOLERANCE_EPSILON", "0.001")

	cfg, err := Load(LoadOptions{Defaults: DefaultConfig()})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.LogLevel != "error" {
		t.Errorf("LogLevel = %q; want %q", cfg.LogLevel, "error")
	}

	if cfg.Sweep.Function != "sin" {
		t.Errorf("Sweep.Function = %q; want %q", cfg.Sweep.Function, "sin")
	}

	if cfg.Tolerance.Epsilon != 0.001 {
		t.Errorf("Tolerance.Epsilon = %g; want 0.001", cfg.Tolerance.Epsilon)
	}
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	// godotenv never overwrites variables that are already set.
	os.Unsetenv("KERNELBENCH_PATHS_IMAGE")
	t.Cleanup(func() { os.Unsetenv("KERNELBENCH_PATHS_IMAGE") })

	envFile := filepath.Join(dir, ".env")
	if err := os.WriteFile(envFile, []byte("KERNELBENCH_PATHS_IMAGE=/tmp/gray.png\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(LoadOptions{
		DotEnv:   []string{filepath.Join(dir, "missing.env"), envFile},
		Defaults: DefaultConfig(),
	})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Paths.Image != "/tmp/gray.png" {
		t.Errorf("Paths.Image = %q; want %q", cfg.Paths.Image, "/tmp/gray.png")
	}
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	cfgFile := filepath.Join(dir, "kernelbench.yaml")
	content := `
log_level: info
paths:
  image: testdata/gray.png
sweep:
  function: threshold
  nospeed: true
tolerance:
  max_records: 10
  off_by_one:
    - "divide{2}"
  overrides:
    sin:
      epsilon: 0.01
      ignore_off_by_one: true
output:
  fail_on_mismatch: true
`
	if err := os.WriteFile(cfgFile, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(LoadOptions{
		Cmd:        parsedBinder(t, "--log-level=debug"),
		ConfigFile: cfgFile,
		Defaults:   DefaultConfig(),
	})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q; want flag value %q", cfg.LogLevel, "debug")
	}

	if cfg.Paths.Image != "testdata/gray.png" {
		t.Errorf("Paths.Image = %q; want %q", cfg.Paths.Image, "testdata/gray.png")
	}

	if cfg.Sweep.Function != "threshold" || !cfg.Sweep.NoSpeed {
		t.Errorf("Sweep = %+v; want function threshold with nospeed", cfg.Sweep)
	}

	if cfg.Tolerance.MaxRecords != 10 {
		t.Errorf("Tolerance.MaxRecords = %d; want 10", cfg.Tolerance.MaxRecords)
	}

	if !reflect.DeepEqual(cfg.Tolerance.OffByOne, []string{"divide{2}"}) {
		t.Errorf("Tolerance.OffByOne = %v; want [divide{2}]", cfg.Tolerance.OffByOne)
	}

	if o := cfg.Tolerance.Overrides["sin"]; o.Epsilon != 0.01 || !o.IgnoreOffByOne {
		t.Errorf("Tolerance.Overrides[sin] = %+v; want epsilon 0.01 ignoring off-by-one", o)
	}

	if !cfg.Output.FailOnMismatch {
		t.Error("Output.FailOnMismatch = false; want true")
	}
}

func TestLoad_InvalidConfigFile(t *testing.T) {
	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "bad.yaml")

	if err := os.WriteFile(cfgFile, []byte(":\t:bad yaml:::"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	_, err := Load(LoadOptions{ConfigFile: cfgFile, Defaults: DefaultConfig()})
	if err == nil {
		t.Error("Load() = nil; want error for invalid config file")
	}
}

func TestLoad_MissingExplicitConfigFile(t *testing.T) {
	_, err := Load(LoadOptions{
		ConfigFile: "/nonexistent/path/kernelbench.yaml",
		Defaults:   DefaultConfig(),
	})
	if err == nil {
		t.Error("Load() = nil; want error for missing explicit config file")
	}
}

func TestLoad_SerialAndParallel(t *testing.T) {
	chdir(t, t.TempDir())

	_, err := Load(LoadOptions{
		Cmd:      parsedBinder(t, "--serial", "--parallel"),
		Defaults: DefaultConfig(),
	})
	if err == nil {
		t.Error("Load(--serial --parallel) = nil; want error")
	}
}

// --- Validate ---

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative size", func(c *Config) { c.Sweep.Size = -1 }},
		{"zero epsilon", func(c *Config) { c.Tolerance.Epsilon = 0 }},
		{"negative max records", func(c *Config) { c.Tolerance.MaxRecords = -1 }},
		{"negative workers", func(c *Config) { c.Runtime.Workers = -2 }},
		{"unknown format", func(c *Config) { c.Output.Format = "xml" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)

			if err := cfg.Validate(); err == nil {
				t.Errorf("Validate() = nil; want error")
			}
		})
	}
}

// --- NormalizeFormat / Mode ---

func TestNormalizeFormat(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{"", FormatText, false},
		{"text", FormatText, false},
		{" TABLE ", FormatTable, false},
		{"Json", FormatJSON, false},
		{"yaml", "", true},
	}

	for _, tt := range tests {
		got, err := NormalizeFormat(tt.input)
		if tt.wantErr {
			if err == nil {
				t.Errorf("NormalizeFormat(%q) = %q, nil; want error", tt.input, got)
			}

			continue
		}

		if err != nil {
			t.Errorf("NormalizeFormat(%q) unexpected error: %v", tt.input, err)
			continue
		}

		if got != tt.want {
			t.Errorf("NormalizeFormat(%q) = %q; want %q", tt.input, got, tt.want)
		}
	}
}

func TestSweepMode(t *testing.T) {
	if got := (SweepConfig{}).Mode(); got != ModeAny {
		t.Errorf("Mode() = %q; want any", got)
	}

	if got := (SweepConfig{Parallel: true}).Mode(); got != ModeParallel {
		t.Errorf("Mode() = %q; want %q", got, ModeParallel)
	}
}
