// Package skein contains a CLI-driven engine for reading shell commands and
// applying them to a grammar continuously until the user quits.
package skein

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dekarrin/rosed"
	"github.com/dekarrin/skein/internal/command"
	"github.com/dekarrin/skein/internal/input"
	"github.com/dekarrin/skein/internal/shell"
	"github.com/dekarrin/skein/internal/skg"
	"github.com/dekarrin/skein/internal/usererr"
	"github.com/dekarrin/skein/internal/version"
)

// Engine contains the things needed to edit a grammar from an interactive
// shell attached to an input stream and an output stream.
type Engine struct {
	state       *shell.State
	in          command.Reader
	out         *bufio.Writer
	forceDirect bool
	running     bool
}

const consoleOutputWidth = 80

// Options are the settings for a new Engine. The zero value starts with an
// empty grammar and picks the input mode automatically.
type Options struct {
	// GrammarFile is a file to load the grammar from at start. If empty, the
	// session starts with an empty grammar.
	GrammarFile string

	// ForceDirect forces reading input directly from the input stream even
	// when readline could be used.
	ForceDirect bool

	// HistoryFile is where readline keeps command history. It is not used in
	// direct input mode.
	HistoryFile string
}

// New creates a new engine ready to operate on the given input and output
// streams. It will immediately open a buffered reader on the input stream and a
// buffered writer on the output stream.
//
// If nil is given for the input stream, a bufio.Reader is opened on stdin. If
// nil is given for the output stream, a bufio.Writer is opened on stdout.
func New(inputStream io.Reader, outputStream io.Writer, opts Options) (*Engine, error) {
	if inputStream == nil {
		inputStream = os.Stdin
	}
	if outputStream == nil {
		outputStream = os.Stdout
	}

	def := skg.NewDefinition()
	if opts.GrammarFile != "" {
		var err error
		def, err = skg.LoadFile(opts.GrammarFile)
		if err != nil {
			return nil, err
		}
	}

	eng := &Engine{
		state:       shell.New(def, consoleOutputWidth),
		out:         bufio.NewWriter(outputStream),
		running:     false,
		forceDirect: opts.ForceDirect,
	}

	useReadline := !opts.ForceDirect && inputStream == os.Stdin && outputStream == os.Stdout

	if useReadline {
		var err error
		eng.in, err = input.NewInteractiveReader(opts.HistoryFile)
		if err != nil {
			return nil, fmt.Errorf("initializing interactive-mode input reader: %w", err)
		}
	} else {
		eng.in = input.NewDirectReader(inputStream)
	}

	return eng, nil
}

// Definition returns the grammar currently being edited, along with its
// labels.
func (eng *Engine) Definition() skg.Definition {
	return eng.state.Def
}

// Close closes all resources associated with the Engine, including any
// readline-related resources created for interactive mode.
func (eng *Engine) Close() error {
	if eng.running {
		return fmt.Errorf("cannot close a running engine")
	}

	err := eng.in.Close()
	if err != nil {
		return fmt.Errorf("close command reader: %w", err)
	}

	return nil
}

// RunUntilQuit begins reading commands from the streams and applying them to
// the grammar until the QUIT command is received or input ends.
func (eng *Engine) RunUntilQuit() error {
	introMsg := "Skein " + version.Current + " grammar shell\n"
	if eng.forceDirect {
		introMsg += "(direct input mode)\n"
	}
	introMsg += "===========================\n"
	introMsg += fmt.Sprintf("%d rules and %d roots loaded. Type HELP for commands.\n", eng.state.Def.Grammar.Len(), len(eng.state.Def.Grammar.Roots()))

	if err := eng.write(introMsg); err != nil {
		return err
	}

	eng.running = true
	// so we dont have to remember to do this on every returned error condition
	defer func() {
		eng.running = false
	}()

	for eng.running {
		cmd, err := command.Get(eng.in, eng.out)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return fmt.Errorf("get user command: %w", err)
		}

		// special check: the shell state will not take the QUIT command, only
		// a runner can do that. so check if that's what we got
		if cmd.Verb == "QUIT" {
			eng.running = false
			break
		}

		output, err := eng.state.Advance(cmd)
		if err != nil {
			consoleMessage := usererr.Message(err)
			output = rosed.Edit(consoleMessage).Wrap(consoleOutputWidth).String()
		}
		if err := eng.write(output + "\n"); err != nil {
			return err
		}
	}

	return eng.write("Goodbye\n")
}

func (eng *Engine) write(s string) error {
	if _, err := eng.out.WriteString(s); err != nil {
		return fmt.Errorf("could not write output: %w", err)
	}
	if err := eng.out.Flush(); err != nil {
		return fmt.Errorf("could not flush output: %w", err)
	}
	return nil
}
