package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/petal-labs/fractions/registry"
)

// NewOperatorsCmd creates the "operators" subcommand.
func NewOperatorsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "operators",
		Short: "List the legal operators with an example each",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, _ := cmd.Flags().GetString("format")
			if err := validateFormat(format); err != nil {
				return err
			}
			ops := registry.Global().All()
			if format == "json" {
				return writeJSON(cmd.OutOrStdout(), ops)
			}

			writer := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 2, 2, ' ', 0)
			fmt.Fprintln(writer, "OPERATOR\tNAME\tEXAMPLE\tRESULT")
			for _, op := range ops {
				fmt.Fprintf(writer, "%s\t%s\t%s\t%s\n", op.Symbol, op.Name, op.Example, op.Result)
			}
			return writer.Flush()
		},
	}
	cmd.Flags().String("format", "text", "Output format: text | json")
	return cmd
}
