package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "lensqc",
		Short:        "Lens production QC feed import and defect-rate reports",
		SilenceUsage: true,
	}
	cmd.AddCommand(newImportCmd())
	cmd.AddCommand(newReportCmd())
	return cmd
}

func execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
