package cli

import (
	"errors"
	"io"

	"github.com/spf13/cobra"

	"github.com/petal-labs/fractions/fraction"
	"github.com/petal-labs/fractions/runtime"
)

// Console texts.
const (
	WelcomeMessage  = "Welcome to this command line tool to resolve operations with fractions."
	MenuPrompt      = "\nType 'f' to start writing your operation with fractions or 'h' for help. Type 'q' to quit."
	OperationPrompt = "Type the operation to resolve (e.g. 1/2 * 3_3/4, 2_3/8 + 9/8):"
)

// HelpMessage lists the accepted syntax. It ends with a newline, so printing
// it leaves a blank line before the next prompt.
const HelpMessage = "HELP: Legal operators shall be *, /, +, - (multiply, divide, add, subtract)\n" +
	"Operands and operators shall be separated by one or more spaces\n" +
	"Mixed numbers will be represented by whole_numerator/denominator. e.g. 3_1/4\n" +
	"Improper fractions and whole numbers are also allowed as operands\n"

// Option is a menu choice typed at the console prompt.
type Option string

const (
	OptionFractions Option = "f"
	OptionHelp      Option = "h"
	OptionQuit      Option = "q"
	OptionUnknown   Option = ""
)

// ParseOption maps a typed line to its menu option.
func ParseOption(value string) Option {
	switch Option(value) {
	case OptionFractions, OptionHelp, OptionQuit:
		return Option(value)
	default:
		return OptionUnknown
	}
}

// Console runs the interactive menu loop.
type Console struct {
	IO      *ConsoleIO
	Session *runtime.Session

	// Welcome and Prompt replace WelcomeMessage and MenuPrompt when set.
	Welcome string
	Prompt  string
}

// Run greets the user and loops until 'q' or end of input.
func (c *Console) Run() error {
	welcome := c.Welcome
	if welcome == "" {
		welcome = WelcomeMessage
	}
	prompt := c.Prompt
	if prompt == "" {
		prompt = MenuPrompt
	}

	c.IO.WriteMessage(welcome, OutputStandard)
	for {
		c.IO.WriteMessage(prompt, OutputStandard)
		value, err := c.IO.ReadLine()
		if err != nil {
			return eofIsDone(err)
		}

		switch ParseOption(value) {
		case OptionFractions:
			c.IO.WriteMessage(OperationPrompt, OutputStandard)
			line, err := c.IO.ReadLine()
			if err != nil {
				return eofIsDone(err)
			}
			out := c.Session.Evaluate(line)
			// A zero denominator in a product is also reported on stderr.
			if out.Operator == string(fraction.OpMultiply) && errors.Is(out.Err, fraction.ErrZeroDenominator) {
				c.IO.WriteMessage(out.Err.Error(), OutputError)
			}
			c.IO.WriteMessage(out.Output(), OutputStandard)
		case OptionHelp:
			c.IO.WriteMessage(HelpMessage, OutputStandard)
		case OptionQuit:
			return nil
		default:
			c.IO.WriteMessage("Unknown option "+value, OutputError)
		}
	}
}

func eofIsDone(err error) error {
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// NewReplCmd creates the "repl" subcommand.
func NewReplCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Start the interactive console",
		Args:  cobra.NoArgs,
		RunE:  RunRepl,
	}
}

// RunRepl runs the interactive console on the command's streams. It is also
// the root command's default action.
func RunRepl(cmd *cobra.Command, _ []string) error {
	app, err := newApp(cmd, appOptions{})
	if err != nil {
		return err
	}
	defer app.Close()

	session := app.runtime.NewSession(runtime.SessionREPL)
	defer session.Close()

	console := &Console{
		IO:      NewConsoleIO(cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr()),
		Session: session,
		Welcome: app.cfg.Console.Welcome,
		Prompt:  app.cfg.Console.Prompt,
	}
	if err := console.Run(); err != nil {
		return exitError(exitRuntime, "reading input: %v", err)
	}
	return nil
}
