package cli

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/spf13/cobra"

	"github.com/petal-labs/fractions/loader"
	"github.com/petal-labs/fractions/runtime"
)

// NewBatchCmd creates the "batch" subcommand.
func NewBatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch <file>",
		Short: "Evaluate every expression in a file",
		Long: "Evaluate every expression in a file. .yaml/.yml files hold a list (or an\n" +
			"\"expressions\" list), .json files an array (or {\"expressions\": [...]}),\n" +
			"and any other file one expression per line with # comments.",
		Args: cobra.ExactArgs(1),
		RunE: runBatch,
	}
	cmd.Flags().String("format", "text", "Output format: text | json")
	cmd.Flags().Bool("fail-fast", false, "Stop at the first expression that fails")
	return cmd
}

func runBatch(cmd *cobra.Command, args []string) error {
	filePath := args[0]
	format, _ := cmd.Flags().GetString("format")
	failFast, _ := cmd.Flags().GetBool("fail-fast")
	if err := validateFormat(format); err != nil {
		return err
	}

	batch, err := loader.LoadBatch(filePath)
	if err != nil {
		var parseErr *loader.ParseError
		switch {
		case errors.Is(err, fs.ErrNotExist):
			return exitError(exitFileNotFound, "file not found: %s", filePath)
		case errors.As(err, &parseErr):
			return exitError(exitInputParse, "%v", err)
		default:
			return exitError(exitRuntime, "%v", err)
		}
	}

	app, err := newApp(cmd, appOptions{})
	if err != nil {
		return err
	}
	defer app.Close()

	session := app.runtime.NewSession(runtime.SessionBatch)
	defer session.Close()

	app.logger.Debug("running batch", "path", batch.Path, "format", batch.Format,
		"expressions", len(batch.Expressions), "session_id", session.ID())

	out := cmd.OutOrStdout()
	results := make([]outcomeJSON, 0, len(batch.Expressions))
	failed := 0
	for _, expr := range batch.Expressions {
		outcome := session.Evaluate(expr)
		if format == "json" {
			results = append(results, toOutcomeJSON(outcome))
		} else {
			fmt.Fprintf(out, "%s  %s\n", expr, outcome.Output())
		}
		if outcome.Failed() {
			failed++
			if failFast {
				break
			}
		}
	}

	if format == "json" {
		if err := writeJSON(out, results); err != nil {
			return err
		}
	}

	if failed > 0 {
		return exitError(exitEvaluation, "%d of %d %s failed", failed, len(batch.Expressions),
			pluralize("expression", len(batch.Expressions)))
	}
	return nil
}

func pluralize(word string, n int) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
