/*
Skein starts an interactive grammar shell session.

It optionally reads in a grammar file and then reads shell commands from stdin
that define rules, combine them, and query the sequences they stand for, until
the "QUIT" command is input or input ends.

Usage:

	skein [flags] [FILE]

If FILE is given, the grammar is loaded from it before the session starts. The
format is chosen by extension: ".skgb" and ".skgb.xz" files are read as binary
grammars and all other files as SKG text files or manifests.

The flags are:

	-v, --version
		Give the current version of Skein and then exit.

	-d, --direct
		Force reading directly from the console as opposed to using GNU readline
		based routines for reading command input even if launched in a tty with
		stdin and stdout.

	--history FILE
		Keep readline command history in FILE. Defaults to the value of
		environment variable SKEIN_HISTORY_FILE; if that is not set, history is
		not kept between sessions.

Once a session has started, the user input will be parsed for Skein commands.
For an explanation of the commands, type "HELP" once in a session. To exit the
shell, type "QUIT".

Lines starting with "#" are ignored, and a line ending in a backslash is joined
with the one after it, so a file of commands can be piped in as a script:

	skein -d < build.skein
*/
package main

import (
	"fmt"
	"os"

	"github.com/dekarrin/skein"
	"github.com/dekarrin/skein/internal/version"
	"github.com/spf13/pflag"
)

const (

	// ExitSuccess indicates a successful program execution.
	ExitSuccess = iota

	// ExitSessionError indicates an unsuccessful program execution due to a
	// problem during the session.
	ExitSessionError

	// ExitInitError indicates an unsuccessful program execution due to an issue
	// initializing the engine.
	ExitInitError
)

const EnvHistory = "SKEIN_HISTORY_FILE"

var (
	returnCode  int = ExitSuccess
	flagVersion     = pflag.BoolP("version", "v", false, "Give the current version of Skein and then exit.")
	flagDirect      = pflag.BoolP("direct", "d", false, "Force reading directly from stdin instead of going through GNU readline where possible.")
	flagHistory     = pflag.String("history", "", "Keep readline command history in the given file.")
)

func main() {
	defer func() {
		if panicErr := recover(); panicErr != nil {
			// we are panicking, make sure we dont lose the panic just because
			// we checked
			panic("unrecoverable panic occured")
		} else {
			os.Exit(returnCode)
		}
	}()

	pflag.Parse()

	if *flagVersion {
		fmt.Printf("%s\n", version.Current)
		return
	}

	args := pflag.Args()
	if len(args) > 1 {
		fmt.Fprintf(os.Stderr, "Too many arguments\nDo -h for help.\n")
		returnCode = ExitInitError
		return
	}

	opts := skein.Options{
		ForceDirect: *flagDirect,
		HistoryFile: os.Getenv(EnvHistory),
	}
	if pflag.Lookup("history").Changed {
		opts.HistoryFile = *flagHistory
	}
	if len(args) == 1 {
		opts.GrammarFile = args[0]
	}

	eng, initErr := skein.New(os.Stdin, os.Stdout, opts)
	if initErr != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", initErr.Error())
		returnCode = ExitInitError
		return
	}
	defer eng.Close()

	err := eng.RunUntilQuit()
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", err.Error())
		returnCode = ExitSessionError
		return
	}
}
