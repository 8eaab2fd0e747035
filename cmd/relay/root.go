package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"logbook-hq/relay/pkg/cli"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "relay",
	Short: "Relay - capturing HTTP reverse proxy",
	Long: `Relay forwards HTTP exchanges to their upstream unchanged and captures the
response bodies that match its capture rules.

Captured payloads are correlated with their request and classified on a
worker pool into typed records, which are kept in memory or in SQLite.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return cli.ExitCode(err)
	}
	return cli.ExitOK
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "relay.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
