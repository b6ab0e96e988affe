package main

import (
	"errors"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/spf13/cobra"

	"github.com/example/go-kernel-bench/internal/datagen"
	"github.com/example/go-kernel-bench/internal/doctor"
	"github.com/example/go-kernel-bench/internal/harness"
	"github.com/example/go-kernel-bench/internal/interp"
	"github.com/example/go-kernel-bench/internal/kernel"
)

func newDoctorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check the canonical image, example scripts and kernel compilation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			compiler := interp.NewCompiler(memory.DefaultAllocator)

			reg := kernel.Builtins()
			names := make([]string, 0, reg.Len())
			for _, d := range reg.All() {
				names = append(names, d.Name)
			}

			out := cmd.OutOrStdout()

			result := doctor.Run(doctor.Config{
				ImagePath:   cfg.Paths.Image,
				Image:       probeImage(datagen.FileSource(cfg.Paths.Image)),
				ExamplesDir: cfg.Paths.Examples,
				Examples:    harness.DefaultExamples(),
				ExampleExt:  harness.ExampleExt,
				Kernels:     names,
				Compile: func(src string) error {
					_, err := compiler.Compile(src)
					return err
				},
			}, out)

			if result.Failed() {
				for _, f := range result.Failures() {
					fmt.Fprintf(cmd.ErrOrStderr(), "FAIL: %s\n", f)
				}

				return errors.New("doctor checks failed")
			}

			_, _ = fmt.Fprintln(out, "doctor checks passed")

			return nil
		},
	}

	return cmd
}

// probeImage decodes the canonical image and describes its dimensions.
func probeImage(src *datagen.Source) doctor.ProbeFunc {
	return func() (string, error) {
		img, err := src.Image()
		if err != nil {
			return "", err
		}

		b := img.Bounds()

		return fmt.Sprintf("%dx%d gray", b.Dx(), b.Dy()), nil
	}
}
