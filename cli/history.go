package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/petal-labs/fractions/history"
)

// NewHistoryCmd creates the "history" command group. Without a subcommand
// it lists recent evaluations.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent evaluations",
		Args:  cobra.NoArgs,
		RunE:  runHistoryList,
	}
	cmd.Flags().Int("limit", 20, "Maximum number of records (0 = all)")
	cmd.Flags().String("session", "", "Only show records from this session")
	cmd.Flags().Bool("failed", false, "Only show failed evaluations")
	cmd.Flags().String("format", "text", "Output format: text | json")

	cmd.AddCommand(&cobra.Command{
		Use:   "prune",
		Short: "Apply the configured retention rules once",
		Args:  cobra.NoArgs,
		RunE:  runHistoryPrune,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Delete all stored evaluations",
		Args:  cobra.NoArgs,
		RunE:  runHistoryClear,
	})
	return cmd
}

func runHistoryList(cmd *cobra.Command, _ []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	sessionID, _ := cmd.Flags().GetString("session")
	failedOnly, _ := cmd.Flags().GetBool("failed")
	format, _ := cmd.Flags().GetString("format")
	if err := validateFormat(format); err != nil {
		return err
	}
	if limit < 0 {
		return exitError(exitInputParse, "--limit must not be negative")
	}

	app, err := newApp(cmd, appOptions{noTelemetry: true})
	if err != nil {
		return err
	}
	defer app.Close()

	records, err := app.history.List(cmd.Context(), history.ListOptions{
		SessionID:  sessionID,
		Limit:      limit,
		FailedOnly: failedOnly,
	})
	if err != nil {
		return exitError(exitRuntime, "listing history: %v", err)
	}

	if format == "json" {
		if records == nil {
			records = []history.Record{}
		}
		return writeJSON(cmd.OutOrStdout(), records)
	}

	if len(records) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No evaluations recorded.")
		return nil
	}

	writer := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 2, 2, ' ', 0)
	fmt.Fprintln(writer, "TIME\tSESSION\tEXPRESSION\tOUTPUT")
	for _, rec := range records {
		fmt.Fprintf(writer, "%s\t%s\t%s\t%s\n",
			rec.CreatedAt.Local().Format(time.DateTime),
			shortID(rec.SessionID),
			rec.Expression,
			rec.Output,
		)
	}
	return writer.Flush()
}

func runHistoryPrune(cmd *cobra.Command, _ []string) error {
	app, err := newApp(cmd, appOptions{noTelemetry: true})
	if err != nil {
		return err
	}
	defer app.Close()

	if !app.cfg.Retention().Enabled() {
		fmt.Fprintln(cmd.OutOrStdout(), "No retention rules configured.")
		return nil
	}
	removed, err := app.history.Prune(cmd.Context())
	if err != nil {
		return exitError(exitRuntime, "pruning history: %v", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Pruned %d %s.\n", removed, pluralize("record", int(removed)))
	return nil
}

func runHistoryClear(cmd *cobra.Command, _ []string) error {
	app, err := newApp(cmd, appOptions{noTelemetry: true})
	if err != nil {
		return err
	}
	defer app.Close()

	removed, err := app.history.Clear(cmd.Context())
	if err != nil {
		return exitError(exitRuntime, "clearing history: %v", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Removed %d %s.\n", removed, pluralize("record", int(removed)))
	return nil
}

// shortID trims uuids to their first block for table output.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
