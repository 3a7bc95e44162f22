package command

import (
	"bufio"
	"fmt"

	"github.com/dekarrin/skein/internal/usererr"
)

// Reader gives lines of command input.
type Reader interface {
	// ReadCommand blocks until a line of input is ready and returns it. Once
	// input is exhausted it returns "" and io.EOF; a final line that was not
	// terminated is returned first with a nil error.
	ReadCommand() (string, error)

	// Close releases whatever the Reader holds. Call it once the Reader is no
	// longer needed.
	Close() error
}

// Get reads lines from cmdStream until one of them parses as a command, and
// returns that command. Lines that fail to parse are reported to ostream and
// skipped. Whether the command can actually be run is not checked.
func Get(cmdStream Reader, ostream *bufio.Writer) (Command, error) {
	for {
		line, err := cmdStream.ReadCommand()
		if err != nil {
			return Command{}, fmt.Errorf("could not get input: %w", err)
		}

		cmd, err := ParseCommand(line)
		if err == nil {
			if cmd.Verb == "" {
				continue
			}
			return cmd, nil
		}

		if err := reportParseError(ostream, err); err != nil {
			return Command{}, err
		}
	}
}

func reportParseError(ostream *bufio.Writer, parseErr error) error {
	msg := usererr.Message(parseErr) + "\nTry HELP for valid commands\n"
	if _, err := ostream.WriteString(msg); err != nil {
		return fmt.Errorf("could not write output: %w", err)
	}
	if err := ostream.Flush(); err != nil {
		return fmt.Errorf("could not flush output: %w", err)
	}
	return nil
}
