package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// OutputType selects the stream a console message is written to.
type OutputType int

const (
	OutputStandard OutputType = iota
	OutputError
)

// ConsoleIO reads lines from one reader and writes messages to a standard
// and an error writer. Error messages are prefixed with "Error: ".
type ConsoleIO struct {
	in  *bufio.Reader
	out io.Writer
	err io.Writer
}

// NewConsoleIO creates a ConsoleIO over the given streams.
func NewConsoleIO(in io.Reader, out, errOut io.Writer) *ConsoleIO {
	return &ConsoleIO{
		in:  bufio.NewReader(in),
		out: out,
		err: errOut,
	}
}

// WriteMessage writes message followed by a newline.
func (c *ConsoleIO) WriteMessage(message string, to OutputType) {
	switch to {
	case OutputError:
		fmt.Fprintf(c.err, "Error: %s\n", message)
	default:
		fmt.Fprintln(c.out, message)
	}
}

// ReadLine returns the next input line without its line terminator. A final
// line without a terminator is returned with a nil error; io.EOF is only
// reported once no input is left.
func (c *ConsoleIO) ReadLine() (string, error) {
	line, err := c.in.ReadString('\n')
	if err == io.EOF && line != "" {
		err = nil
	}
	if err != nil {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
