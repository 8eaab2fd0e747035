package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"logbook-hq/relay/pkg/cli"
	"logbook-hq/relay/pkg/config"
	"logbook-hq/relay/pkg/proxy"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Long: `Load a configuration file with environment overrides applied and report
every validation error. The upstream transport is built as well, so a
malformed upstream proxy host or port is reported here rather than at the
first exchange.

Exit status is 0 when the configuration is valid and 2 otherwise.

Examples:
  relay validate --config relay.yaml
  RELAY_UPSTREAM_USE_PROXY=true relay validate -c relay.yaml`,
	RunE: validateConfig,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func validateConfig(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return cli.NewConfigError(cfgFile, err)
	}
	if _, err := proxy.NewTransport(cfg.Upstream); err != nil {
		return cli.NewConfigError(cfgFile, err)
	}

	printSummary(cmd.OutOrStdout(), cfgFile, cfg)
	return nil
}

func printSummary(w io.Writer, path string, cfg *config.Config) {
	fmt.Fprintf(w, "✓ Configuration valid: %s\n", path)
	fmt.Fprintf(w, "  proxy:    %s (restrict_to_loopback=%t)\n", cfg.Proxy.ListenAddress, cfg.Proxy.RestrictToLoopback)

	upstream := cfg.Upstream.Target
	if upstream == "" {
		upstream = "request URI"
	}
	if cfg.Upstream.UseProxy {
		upstream = fmt.Sprintf("%s via %s:%d", upstream, cfg.Upstream.ProxyHost, cfg.Upstream.ProxyPort)
	}
	fmt.Fprintf(w, "  upstream: %s\n", upstream)

	fmt.Fprintf(w, "  capture:  %d hosts, %d content types\n", len(cfg.Capture.Hosts), len(cfg.Capture.ContentTypes))
	fmt.Fprintf(w, "  classify: %d workers, %d rules\n", cfg.Classify.Workers, len(cfg.Classify.Rules))
	fmt.Fprintf(w, "  records:  %s\n", cfg.Records.Backend)
	if cfg.Telemetry.Admin.ListenAddress != "" {
		fmt.Fprintf(w, "  admin:    %s\n", cfg.Telemetry.Admin.ListenAddress)
	}
}
