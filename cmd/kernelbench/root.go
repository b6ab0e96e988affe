package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/example/go-kernel-bench/internal/config"
	"github.com/example/go-kernel-bench/internal/interp"
)

var (
	cfgFile   string
	activeCfg config.Config
	loaded    bool
)

// dotEnvFiles are read before the environment is consulted.
var dotEnvFiles = []string{".env"}

func NewRootCmd() *cobra.Command {
	defaults := config.DefaultConfig()

	cmd := &cobra.Command{
		Use:   "kernelbench [example...]",
		Short: "Differential test and benchmark JIT-compiled numeric kernels",
		Long: `kernelbench checks every registered kernel against its reference
implementation across element types, matrix sizes and execution modes, and
measures how much faster the compiled kernel runs.

With --examples it instead measures how fast the interpreter runs the
example scripts (all of them, or the ones named as arguments).`,
		SilenceErrors: true,
		SilenceUsage:  true,
		Args:          cobra.ArbitraryArgs,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(config.LoadOptions{
				Cmd:        cmd,
				ConfigFile: cfgFile,
				DotEnv:     dotEnvFiles,
				Defaults:   defaults,
			})
			if err != nil {
				return err
			}

			activeCfg, loaded = cfg, true

			setupLogger(cfg.LogLevel)

			if cfg.Runtime.Workers > 0 {
				interp.SetWorkers(cfg.Runtime.Workers)
			}

			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			if cfg.Sweep.Examples {
				return runExamples(cfg, args, cmd.OutOrStdout(), cmd.ErrOrStderr())
			}

			if len(args) > 0 {
				return fmt.Errorf("unexpected arguments %q (example names require --examples)", args)
			}

			return runSweep(cfg, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	// Flag errors print usage to stderr before any sweep runs.
	cmd.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		fmt.Fprintln(c.ErrOrStderr(), c.UsageString())
		return err
	})

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Optional config file (yaml|toml|json)")
	config.RegisterFlags(cmd.PersistentFlags(), defaults)

	cmd.AddCommand(newListCmd())
	cmd.AddCommand(newDoctorCmd())

	return cmd
}

// ParseLogLevel maps debug|info|warn|error to a slog level.
func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q (want debug|info|warn|error)", s)
	}
}

// setupLogger configures the process-wide slog default logger.
func setupLogger(levelStr string) {
	lvl, err := ParseLogLevel(levelStr)
	if err != nil {
		lvl = slog.LevelInfo
	}

	h := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(h))
}

func requireConfig() (config.Config, error) {
	if !loaded {
		return config.Config{}, errors.New("configuration not loaded")
	}

	return activeCfg, nil
}
