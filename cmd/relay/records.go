package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"logbook-hq/relay/pkg/classify"
	"logbook-hq/relay/pkg/cli"
	"logbook-hq/relay/pkg/config"
	"logbook-hq/relay/pkg/records"
)

var recordsFlags struct {
	kind       string
	host       string
	since      time.Duration
	limit      int
	format     string
	olderThan  time.Duration
	maxRecords int64
}

var recordsCmd = &cobra.Command{
	Use:   "records",
	Short: "Inspect stored records",
	Long: `Inspect and prune the records published by the classification pool.

The commands read the store configured under records. The memory backend
does not outlive the relay process, so they require the sqlite backend.

Subcommands:
  list   - List stored records
  prune  - Delete old records`,
}

var recordsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored records",
	Long: `List stored records, oldest first.

Examples:
  # Last hour of PORT records
  relay records list --kind PORT --since 1h

  # Everything captured from one host, as JSON
  relay records list --host 203.104.209.71 --format json`,
	RunE: listRecords,
}

var recordsPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete old records",
	Long: `Delete records older than --older-than, then the oldest records beyond
--max-records. Flags left unset fall back to records.retention.

Examples:
  relay records prune --older-than 168h
  relay records prune --max-records 10000`,
	RunE: pruneRecords,
}

func init() {
	rootCmd.AddCommand(recordsCmd)
	recordsCmd.AddCommand(recordsListCmd)
	recordsCmd.AddCommand(recordsPruneCmd)

	recordsListCmd.Flags().StringVar(&recordsFlags.kind, "kind", "", "only records of this kind")
	recordsListCmd.Flags().StringVar(&recordsFlags.host, "host", "", "only records captured from this host")
	recordsListCmd.Flags().DurationVar(&recordsFlags.since, "since", 0, "only records captured within this duration")
	recordsListCmd.Flags().IntVar(&recordsFlags.limit, "limit", 100, "maximum records to list (0 for all)")
	recordsListCmd.Flags().StringVar(&recordsFlags.format, "format", "text", "output format: text, json, csv")

	recordsPruneCmd.Flags().DurationVar(&recordsFlags.olderThan, "older-than", 0, "delete records older than this duration")
	recordsPruneCmd.Flags().Int64Var(&recordsFlags.maxRecords, "max-records", 0, "keep at most this many records")
}

// openRecordStore opens the configured persistent store.
func openRecordStore() (records.Store, error) {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return nil, cli.NewConfigError(cfgFile, err)
	}
	if cfg.Records.Backend != "sqlite" {
		return nil, fmt.Errorf("records backend %q is not persistent; configure records.backend: sqlite", cfg.Records.Backend)
	}
	return records.Open(cfg.Records)
}

func listRecords(cmd *cobra.Command, args []string) error {
	formatter, err := cli.NewFormatter(cli.OutputFormat(recordsFlags.format))
	if err != nil {
		return cli.NewCommandError("records list", err)
	}

	store, err := openRecordStore()
	if err != nil {
		return cli.NewCommandError("records list", err)
	}
	defer store.Close()

	f := records.Filter{
		Kind:  classify.Kind(recordsFlags.kind),
		Host:  recordsFlags.host,
		Limit: recordsFlags.limit,
	}
	if recordsFlags.since > 0 {
		f.Since = time.Now().Add(-recordsFlags.since)
	}

	list, err := store.List(cmd.Context(), f)
	if err != nil {
		return cli.NewCommandError("records list", err)
	}
	return formatter.FormatTo(cmd.OutOrStdout(), recordTable(list))
}

func pruneRecords(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return cli.NewConfigError(cfgFile, err)
	}
	retention := cfg.Records.Retention
	if recordsFlags.olderThan > 0 {
		retention.MaxAge = recordsFlags.olderThan
	}
	if recordsFlags.maxRecords > 0 {
		retention.MaxRecords = recordsFlags.maxRecords
	}

	store, err := openRecordStore()
	if err != nil {
		return cli.NewCommandError("records prune", err)
	}
	defer store.Close()

	pruner := records.NewPruner(store, retention)
	if !pruner.Enabled() {
		return cli.NewCommandError("records prune", fmt.Errorf("no retention limit given; set --older-than or --max-records"))
	}

	deleted, err := pruner.Prune(cmd.Context())
	if err != nil {
		return cli.NewCommandError("records prune", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Pruned %d records\n", deleted)
	return nil
}

// recordTable renders records as a table. It marshals to JSON as the
// record list itself.
type recordTable []*classify.Record

func (t recordTable) Headers() []string {
	return []string{"ID", "KIND", "HOST", "METHOD", "URI", "CAPTURED_AT", "BYTES", "DIGEST"}
}

func (t recordTable) Rows() [][]string {
	rows := make([][]string, 0, len(t))
	for _, rec := range t {
		digest := rec.Digest
		if len(digest) > 16 {
			digest = digest[:16]
		}
		rows = append(rows, []string{
			rec.ID,
			string(rec.Kind),
			rec.Host,
			rec.Method,
			rec.URI,
			rec.CapturedAt.UTC().Format(time.RFC3339),
			strconv.Itoa(len(rec.Payload)),
			digest,
		})
	}
	return rows
}
