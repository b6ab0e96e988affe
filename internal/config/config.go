package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. KERNELBENCH_SWEEP_FUNCTION.
const EnvPrefix = "KERNELBENCH"

type Config struct {
	Paths     PathsConfig     `mapstructure:"paths"`
	Sweep     SweepConfig     `mapstructure:"sweep"`
	Tolerance ToleranceConfig `mapstructure:"tolerance"`
	Runtime   RuntimeConfig   `mapstructure:"runtime"`
	Output    OutputConfig    `mapstructure:"output"`
	LogLevel  string          `mapstructure:"log_level"`
}

type PathsConfig struct {
	Image    string `mapstructure:"image"`
	Examples string `mapstructure:"examples"`
}

type SweepConfig struct {
	Function string        `mapstructure:"function"`
	Type     string        `mapstructure:"type"`
	Size     int           `mapstructure:"size"`
	Serial   bool          `mapstructure:"serial"`
	Parallel bool          `mapstructure:"parallel"`
	NoSat    bool          `mapstructure:"nosat"`
	NoSpeed  bool          `mapstructure:"nospeed"`
	Quiet    bool          `mapstructure:"quiet"`
	Examples bool          `mapstructure:"examples"`
	Window   time.Duration `mapstructure:"window"`
}

type ToleranceConfig struct {
	Epsilon             float64  `mapstructure:"epsilon"`
	AbsoluteDenominator bool     `mapstructure:"absolute_denominator"`
	MaxRecords          int      `mapstructure:"max_records"`
	OffByOne            []string `mapstructure:"off_by_one"`
	// Overrides replaces the policy of individual kernels. Config file only.
	Overrides map[string]OverrideConfig `mapstructure:"overrides"`
}

type OverrideConfig struct {
	Epsilon        float64 `mapstructure:"epsilon"`
	IgnoreOffByOne bool    `mapstructure:"ignore_off_by_one"`
}

type RuntimeConfig struct {
	// Workers bounds the goroutines of parallel kernels. Zero means GOMAXPROCS.
	Workers int `mapstructure:"workers"`
}

type OutputConfig struct {
	Format         string `mapstructure:"format"`
	ResultsPath    string `mapstructure:"results_path"`
	MetricsPath    string `mapstructure:"metrics_path"`
	FailOnMismatch bool   `mapstructure:"fail_on_mismatch"`
}

type LoadOptions struct {
	Cmd        flagBinder
	ConfigFile string
	// DotEnv files are loaded into the environment first. Missing files
	// are ignored.
	DotEnv   []string
	Defaults Config
}

type flagBinder interface {
	Flags() *pflag.FlagSet
}

func DefaultConfig() Config {
	return Config{
		Paths: PathsConfig{
			Image:    "data/misc/lenna.tiff",
			Examples: "examples",
		},
		Sweep: SweepConfig{
			Window: time.Second,
		},
		Tolerance: ToleranceConfig{
			Epsilon:    1e-6,
			MaxRecords: 100,
		},
		Output: OutputConfig{
			Format: FormatText,
		},
		LogLevel: "warn",
	}
}

// flagKeys maps every flag registered by RegisterFlags to its config key.
var flagKeys = map[string]string{
	"image":                "paths.image",
	"examples-dir":         "paths.examples",
	"function":             "sweep.function",
	"type":                 "sweep.type",
	"size":                 "sweep.size",
	"serial":               "sweep.serial",
	"parallel":             "sweep.parallel",
	"nosat":                "sweep.nosat",
	"nospeed":              "sweep.nospeed",
	"quiet":                "sweep.quiet",
	"examples":             "sweep.examples",
	"window":               "sweep.window",
	"epsilon":              "tolerance.epsilon",
	"absolute-denominator": "tolerance.absolute_denominator",
	"max-records":          "tolerance.max_records",
	"off-by-one":           "tolerance.off_by_one",
	"workers":              "runtime.workers",
	"format":               "output.format",
	"results":              "output.results_path",
	"metrics":              "output.metrics_path",
	"fail-on-mismatch":     "output.fail_on_mismatch",
	"log-level":            "log_level",
}

func RegisterFlags(fs *pflag.FlagSet, defaults Config) {
	fs.String("image", defaults.Paths.Image, "Path to the canonical input image")
	fs.String("examples-dir", defaults.Paths.Examples, "Directory holding <name>.kb example scripts")
	fs.String("function", defaults.Sweep.Function, "Only run kernels whose name starts with this prefix")
	fs.String("type", defaults.Sweep.Type, "Only run this element type (u8|i8|u16|i16|u32|i32|f32|f64)")
	fs.Int("size", defaults.Sweep.Size, "Only run this matrix size")
	fs.Bool("serial", defaults.Sweep.Serial, "Only run serial execution")
	fs.Bool("parallel", defaults.Sweep.Parallel, "Only run parallel execution")
	fs.Bool("nosat", defaults.Sweep.NoSat, "Wrap instead of saturate small integer types")
	fs.Bool("nospeed", defaults.Sweep.NoSpeed, "Skip throughput measurement")
	fs.Bool("quiet", defaults.Sweep.Quiet, "Suppress console output")
	fs.Bool("examples", defaults.Sweep.Examples, "Measure example scripts instead of sweeping kernels")
	fs.Duration("window", defaults.Sweep.Window, "Wall-clock window of one throughput measurement")
	fs.Float64("epsilon", defaults.Tolerance.Epsilon, "Normalised error tolerance")
	fs.Bool("absolute-denominator", defaults.Tolerance.AbsoluteDenominator, "Normalise errors by |reference| + epsilon")
	fs.Int("max-records", defaults.Tolerance.MaxRecords, "Mismatches recorded per combination")
	fs.StringSlice("off-by-one", defaults.Tolerance.OffByOne, "Kernels that ignore off-by-one mismatches")
	fs.Int("workers", defaults.Runtime.Workers, "Goroutines used by parallel kernels (0 = GOMAXPROCS)")
	fs.String("format", defaults.Output.Format, "Summary format after the sweep: text, table, json")
	fs.String("results", defaults.Output.ResultsPath, "Write sweep results to this Parquet file")
	fs.String("metrics", defaults.Output.MetricsPath, "Write Prometheus metrics to this textfile")
	fs.Bool("fail-on-mismatch", defaults.Output.FailOnMismatch, "Exit non-zero when any combination mismatches")
	fs.String("log-level", defaults.LogLevel, "Log level: debug, info, warn, error")
}

func Load(opts LoadOptions) (Config, error) {
	if err := loadDotEnv(opts.DotEnv); err != nil {
		return Config{}, err
	}

	v := viper.New()

	setDefaults(v, opts.Defaults)
	if opts.Cmd != nil {
		if err := bindFlags(v, opts.Cmd.Flags()); err != nil {
			return Config{}, err
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	replacer := strings.NewReplacer("-", "_", ".", "_", "__", "_")
	v.SetEnvKeyReplacer(replacer)
	v.AutomaticEnv()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	} else {
		v.SetConfigName("kernelbench")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	return cfg, cfg.Validate()
}

// Validate rejects values no sweep can run with.
func (c Config) Validate() error {
	if c.Sweep.Serial && c.Sweep.Parallel {
		return errors.New("serial and parallel are mutually exclusive")
	}

	if c.Sweep.Size < 0 {
		return fmt.Errorf("invalid size %d", c.Sweep.Size)
	}

	if c.Tolerance.Epsilon <= 0 {
		return fmt.Errorf("invalid epsilon %g (must be > 0)", c.Tolerance.Epsilon)
	}

	if c.Tolerance.MaxRecords < 0 {
		return fmt.Errorf("invalid max records %d", c.Tolerance.MaxRecords)
	}

	if c.Runtime.Workers < 0 {
		return fmt.Errorf("invalid worker count %d", c.Runtime.Workers)
	}

	if _, err := NormalizeFormat(c.Output.Format); err != nil {
		return err
	}

	return nil
}

func loadDotEnv(files []string) error {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}

	return nil
}

func setDefaults(v *viper.Viper, c Config) {
	v.SetDefault("paths.image", c.Paths.Image)
	v.SetDefault("paths.examples", c.Paths.Examples)
	v.SetDefault("sweep.function", c.Sweep.Function)
	v.SetDefault("sweep.type", c.Sweep.Type)
	v.SetDefault("sweep.size", c.Sweep.Size)
	v.SetDefault("sweep.serial", c.Sweep.Serial)
	v.SetDefault("sweep.parallel", c.Sweep.Parallel)
	v.SetDefault("sweep.nosat", c.Sweep.NoSat)
	v.SetDefault("sweep.nospeed", c.Sweep.NoSpeed)
	v.SetDefault("sweep.quiet", c.Sweep.Quiet)
	v.SetDefault("sweep.examples", c.Sweep.Examples)
	v.SetDefault("sweep.window", c.Sweep.Window)
	v.SetDefault("tolerance.epsilon", c.Tolerance.Epsilon)
	v.SetDefault("tolerance.absolute_denominator", c.Tolerance.AbsoluteDenominator)
	v.SetDefault("tolerance.max_records", c.Tolerance.MaxRecords)
	v.SetDefault("tolerance.off_by_one", c.Tolerance.OffByOne)
	v.SetDefault("runtime.workers", c.Runtime.Workers)
	v.SetDefault("output.format", c.Output.Format)
	v.SetDefault("output.results_path", c.Output.ResultsPath)
	v.SetDefault("output.metrics_path", c.Output.MetricsPath)
	v.SetDefault("output.fail_on_mismatch", c.Output.FailOnMismatch)
	v.SetDefault("log_level", c.LogLevel)
}

// bindFlags binds each registered flag under its config key, so a config
// file can set the same key and an explicit flag still wins.
func bindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	for name, key := range flagKeys {
		f := fs.Lookup(name)
		if f == nil {
			continue
		}

		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}

	return nil
}
