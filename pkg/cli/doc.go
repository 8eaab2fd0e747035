/*
Package cli provides helpers shared by the relay commands.

Output Formatting:

Command results are printed as an aligned text table, JSON or CSV:

	formatter, err := cli.NewFormatter(cli.FormatJSON)
	if err != nil {
		return err
	}
	return formatter.FormatTo(os.Stdout, table)

Text and CSV output need a value implementing Tabular.

Signal Handling:

	ctx, stop := cli.SetupSignalHandler(context.Background())
	defer stop()

Exit Codes:

ExitCode maps a command error to the process exit status: 2 for
configuration problems and 1 for everything else.
*/
package cli
