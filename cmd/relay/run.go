package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"logbook-hq/relay/pkg/cli"
	"logbook-hq/relay/pkg/config"
	"logbook-hq/relay/pkg/telemetry/logging"
)

var runFlags struct {
	listenAddress string
	logLevel      string
	dryRun        bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the relay proxy",
	Long: `Start the relay proxy with the specified configuration.

The proxy listens on the configured address and forwards every exchange to
its upstream. Matching response bodies are captured and classified in the
background. The admin listener serves /health, /ready, /version, /status and
the metrics endpoint.

Examples:
  # Start with default config
  relay run

  # Start with custom config
  relay run --config /etc/relay/relay.yaml

  # Override listen address
  relay run --listen 127.0.0.1:9090

  # Validate config without starting the proxy
  relay run --dry-run`,
	RunE: runRelay,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting the proxy")
}

func runRelay(cmd *cobra.Command, args []string) error {
	if err := config.Initialize(cfgFile); err != nil {
		return cli.NewConfigError(cfgFile, err)
	}
	cfg := config.GetConfig()

	// Apply flag overrides
	if runFlags.listenAddress != "" {
		cfg.Proxy.ListenAddress = runFlags.listenAddress
	}
	switch {
	case runFlags.logLevel != "":
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	case verbose:
		cfg.Telemetry.Logging.Level = "debug"
	}
	if err := config.Validate(cfg); err != nil {
		return cli.NewConfigError(cfgFile, err)
	}

	logger, err := logging.New(cfg.Telemetry.Logging, nil)
	if err != nil {
		return cli.NewConfigError(cfgFile, err)
	}
	slog.SetDefault(logger)

	if runFlags.dryRun {
		fmt.Fprintln(cmd.OutOrStdout(), "✓ Configuration valid")
		return nil
	}

	ctx, stop := cli.SetupSignalHandler(cmd.Context())
	defer stop()

	r, err := newRelay(cfg, config.Path(), logger)
	if err != nil {
		return cli.NewCommandError("run", err)
	}
	if err := r.run(ctx); err != nil {
		return cli.NewCommandError("run", err)
	}
	slog.Info("relay stopped")
	return nil
}
