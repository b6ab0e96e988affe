package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/example/go-kernel-bench/internal/kernel"
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered kernels with their type and size domains",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			listKernels(kernel.Builtins(), cmd.OutOrStdout())
			return nil
		},
	}
}

func listKernels(reg *kernel.Registry, w io.Writer) {
	for _, d := range reg.All() {
		types := make([]string, len(d.Types))
		for i, t := range d.Types {
			types[i] = t.String()
		}

		sizes := fmt.Sprintf("%d..%d", d.Sizes[0], d.Sizes[len(d.Sizes)-1])

		var notes []string
		if d.IgnoreOffByOne {
			notes = append(notes, "off-by-one")
		}

		if d.ScaleFactor() != 1 {
			notes = append(notes, fmt.Sprintf("scale %g", d.ScaleFactor()))
		}

		fmt.Fprintf(w, "%-14s %-20s %-9s %s\n", d.Name, strings.Join(types, ","), sizes, strings.Join(notes, " "))
	}
}
