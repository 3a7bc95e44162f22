// Package input contains the readers that get shell command lines from a
// terminal or from any other stream, such as a script piped to the shell.
//
// Both readers work on logical lines: a line ending in a backslash continues
// onto the next one, and a line whose first non-space character is '#' is a
// comment and is skipped.
package input

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
)

const (
	// DefaultPrompt is the prompt shown by an InteractiveCommandReader until
	// SetPrompt is called.
	DefaultPrompt = "skein> "

	// ContinuationPrompt is shown while reading the rest of a continued line.
	ContinuationPrompt = "  ...> "

	// CommentPrefix starts a line that is ignored.
	CommentPrefix = "#"

	// Continuation at the end of a line joins the next line to it.
	Continuation = `\`
)

// errDropLine is returned by a line source when everything read so far for
// the current logical line should be thrown away.
var errDropLine = errors.New("line dropped")

// nextLineFunc reads one physical line. continuing is true if the line is the
// continuation of a previous one.
type nextLineFunc func(continuing bool) (string, error)

// readLogical assembles a logical line out of the physical lines given by
// next. At end of input it returns "" and io.EOF.
func readLogical(next nextLineFunc, blanksAllowed bool) (string, error) {
	var sb strings.Builder
	continuing := false

	for {
		line, err := next(continuing)
		if errors.Is(err, errDropLine) {
			sb.Reset()
			continuing = false
			continue
		}
		atEOF := errors.Is(err, io.EOF)
		if err != nil && !atEOF {
			return "", err
		}

		line = strings.TrimSpace(line)
		if !continuing && strings.HasPrefix(line, CommentPrefix) {
			line = ""
			if !atEOF {
				continue
			}
		}

		continuing = strings.HasSuffix(line, Continuation)
		if continuing {
			line = strings.TrimSpace(strings.TrimSuffix(line, Continuation))
		}
		if line != "" {
			if sb.Len() > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteString(line)
		}

		if continuing && !atEOF {
			continue
		}
		if sb.Len() > 0 {
			return sb.String(), nil
		}
		if atEOF {
			return "", io.EOF
		}
		if blanksAllowed {
			return "", nil
		}
	}
}

// DirectCommandReader implements command.Reader and reads commands from any
// generic input stream directly. It does not sanitize the input of control and
// escape sequences.
//
// Create one with [NewDirectReader].
type DirectCommandReader struct {
	r             *bufio.Reader
	blanksAllowed bool
}

// NewDirectReader creates a DirectCommandReader that buffers reads from r.
func NewDirectReader(r io.Reader) *DirectCommandReader {
	return &DirectCommandReader{
		r: bufio.NewReader(r),
	}
}

// Close does nothing; it is there so DirectCommandReader implements
// command.Reader.
func (dcr *DirectCommandReader) Close() error {
	return nil
}

// ReadCommand reads the next logical line. Blank lines are skipped unless
// AllowBlank(true) was called.
//
// At end of input, the returned string will be empty and error will be io.EOF.
func (dcr *DirectCommandReader) ReadCommand() (string, error) {
	return readLogical(func(bool) (string, error) {
		line, err := dcr.r.ReadString('\n')
		if errors.Is(err, io.EOF) && line != "" {
			// the final line has no newline; give it now and EOF next time
			return line, nil
		}
		return line, err
	}, dcr.blanksAllowed)
}

// AllowBlank sets whether blank lines are returned. By default they are not.
func (dcr *DirectCommandReader) AllowBlank(allow bool) {
	dcr.blanksAllowed = allow
}

// InteractiveCommandReader implements command.Reader and reads commands from
// stdin using a go implementation of the GNU Readline library. This keeps input
// clear of all typing and editing escape sequences and enables the use of
// command history. It should only be used when directly connected to a TTY.
//
// Create one with [NewInteractiveReader].
type InteractiveCommandReader struct {
	rl            *readline.Instance
	blanksAllowed bool
	prompt        string
}

// NewInteractiveReader creates an InteractiveCommandReader. If historyFile is
// not empty, command history is loaded from and saved to it. Close must be
// called on the returned reader to tear down readline.
func NewInteractiveReader(historyFile string) (*InteractiveCommandReader, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          DefaultPrompt,
		HistoryFile:     historyFile,
		InterruptPrompt: "^C",
		EOFPrompt:       "quit",
	})
	if err != nil {
		return nil, fmt.Errorf("create readline config: %w", err)
	}

	return &InteractiveCommandReader{
		rl:     rl,
		prompt: DefaultPrompt,
	}, nil
}

// Close tears down readline.
func (icr *InteractiveCommandReader) Close() error {
	return icr.rl.Close()
}

// ReadCommand reads the next logical line from the terminal. Pressing ctrl-C
// throws away the line being typed, including any lines it continues.
//
// At end of input, the returned string will be empty and error will be io.EOF.
func (icr *InteractiveCommandReader) ReadCommand() (string, error) {
	defer icr.rl.SetPrompt(icr.prompt)

	return readLogical(func(continuing bool) (string, error) {
		if continuing {
			icr.rl.SetPrompt(ContinuationPrompt)
		} else {
			icr.rl.SetPrompt(icr.prompt)
		}

		line, err := icr.rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			return "", errDropLine
		}
		return line, err
	}, icr.blanksAllowed)
}

// AllowBlank sets whether blank lines are returned. By default they are not.
func (icr *InteractiveCommandReader) AllowBlank(allow bool) {
	icr.blanksAllowed = allow
}

// SetPrompt updates the prompt to the given text.
func (icr *InteractiveCommandReader) SetPrompt(p string) {
	icr.prompt = p
	icr.rl.SetPrompt(p)
}

// GetPrompt gets the current prompt.
func (icr *InteractiveCommandReader) GetPrompt() string {
	return icr.prompt
}
