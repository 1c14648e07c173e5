package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/petal-labs/fractions/runtime"
)

// NewEvalCmd creates the "eval" subcommand.
func NewEvalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "eval <expression...>",
		Short: "Evaluate one expression",
		Long: "Evaluate one expression. Arguments are joined with spaces, so\n" +
			"`fractions eval 1/2 + 3_1/4` and `fractions eval \"1/2 + 3_1/4\"` are equivalent.\n" +
			"Use -- before expressions that start with a minus sign.",
		Args: cobra.MinimumNArgs(1),
		RunE: runEval,
	}
	cmd.Flags().String("format", "text", "Output format: text | json")
	return cmd
}

func runEval(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	if err := validateFormat(format); err != nil {
		return err
	}

	app, err := newApp(cmd, appOptions{})
	if err != nil {
		return err
	}
	defer app.Close()

	out := app.runtime.Evaluate(runtime.SessionEval, strings.Join(args, " "))
	app.logger.Debug("evaluated", "expression", out.Expression, "elapsed", out.Elapsed)

	if format == "json" {
		if err := writeJSON(cmd.OutOrStdout(), toOutcomeJSON(out)); err != nil {
			return err
		}
	} else if !out.Failed() {
		fmt.Fprintln(cmd.OutOrStdout(), out.Output())
	}

	if out.Failed() {
		return exitError(exitEvaluation, "%s", out.Err.Error())
	}
	return nil
}
