// Copyright 2023 The TraceDB Authors.
//
// Use of this software is governed by the Apache License, Version 2.0
// included in the /LICENSE file.

// Package cli implements the tracedb command-line interface.
package cli

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/tracedb/tracedb/pkg/util/envutil"
	"github.com/tracedb/tracedb/pkg/util/log"
)

// version identifies the binary in `tracedb version`.
const version = "v0.1.0-dev"

// Proxy to allow overrides in tests.
var stdout io.Writer = os.Stdout

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "output version information",
	Long: `
Output build version information.
`,
	Run: func(cmd *cobra.Command, args []string) {
		tw := tabwriter.NewWriter(stdout, 2, 1, 2, ' ', 0)
		fmt.Fprintf(tw, "Version:    %s\n", version)
		fmt.Fprintf(tw, "Platform:   %s/%s\n", runtime.GOOS, runtime.GOARCH)
		fmt.Fprintf(tw, "Go Version: %s\n", runtime.Version())
		_ = tw.Flush()
	},
}

var tracedbCmd = &cobra.Command{
	Use:   "tracedb [command] (flags)",
	Short: "TraceDB trace-analysis toolkit",
	Long: `TraceDB ingests execution traces and materializes slices, flow edges and
arguments as columnar tables for analysis.`,
	SilenceUsage: true,
}

var verbosity int

func init() {
	cobra.EnableCommandSorting = false

	// The flag defaults to the environment so that an unset flag does not
	// clobber TRACEDB_VERBOSITY.
	tracedbCmd.PersistentFlags().IntVar(&verbosity, "verbosity",
		envutil.EnvOrDefaultInt("TRACEDB_VERBOSITY", 0),
		"verbosity level for debug logging; higher logs more")
	tracedbCmd.PersistentPreRun = func(*cobra.Command, []string) {
		log.SetVerbosity(int32(verbosity))
	}

	tracedbCmd.AddCommand(
		demoCmd,
		benchCmd,
		versionCmd,
	)
}

// Run executes the root command with the given command-line arguments.
func Run(args []string) error {
	tracedbCmd.SetArgs(args)
	return tracedbCmd.Execute()
}

// Main is the entry point for the tracedb binary.
func Main() {
	if err := Run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
