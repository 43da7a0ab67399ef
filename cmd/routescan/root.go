package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for routescan.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "routescan",
		Short: "Same-origin web reconnaissance crawler",
		Long: `routescan crawls a web site breadth-first without leaving its origin.

It records every reachable route, classifies and downloads every file the
site links to (images, documents, scripts, archives, ...), extracts content
metadata from the downloads and writes a JSON and HTML report per run.
Reports are kept in a local history database so runs can be compared.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	cmd.AddCommand(NewScanCmd())
	cmd.AddCommand(NewCompareCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
