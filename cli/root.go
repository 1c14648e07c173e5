package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the "fractions" command tree. Without a subcommand it
// starts the interactive console.
func NewRootCmd(version string) *cobra.Command {
	root := &cobra.Command{
		Use:   "fractions",
		Short: "Mixed-fraction calculator",
		Long:  "fractions evaluates arithmetic on whole numbers, proper and improper fractions and mixed numbers (e.g. 3_1/4).",
		Args:  cobra.NoArgs,
		RunE:  RunRepl,
		// SilenceUsage prevents printing usage on every error
		SilenceUsage: true,
	}

	root.PersistentFlags().BoolP("verbose", "", false, "Enable verbose/debug logging")
	root.PersistentFlags().BoolP("quiet", "", false, "Suppress all output except errors")
	root.PersistentFlags().String("config", "", "Path to fractions.yaml (default: ./fractions.yaml, then ~/.fractions/config.yaml)")
	root.PersistentFlags().String("history-path", "", "Path to the history database (default: ~/.fractions/history.db)")
	root.PersistentFlags().Bool("no-history", false, "Keep history in memory only")

	root.Version = version
	root.SetVersionTemplate(fmt.Sprintf("fractions version %s\n", version))

	root.AddCommand(NewReplCmd())
	root.AddCommand(NewEvalCmd())
	root.AddCommand(NewBatchCmd())
	root.AddCommand(NewHistoryCmd())
	root.AddCommand(NewOperatorsCmd())
	root.AddCommand(NewServeCmd())
	return root
}
