package slp

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidReference is the cause of errors caused by naming a rule that
	// does not exist in the Grammar.
	ErrInvalidReference = errors.New("reference to a rule that does not exist")

	// ErrInvalidArgument is the cause of errors caused by an argument that
	// can never be valid, such as a repeat count below 1 or an empty range.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrOutOfRange is the cause of errors caused by an offset or range that
	// falls outside of a rule's expansion.
	ErrOutOfRange = errors.New("offset out of range")

	// ErrMalformedGrammar is the cause of errors caused by loading a grammar
	// whose rules refer forward, refer to themselves, or refer to rules that
	// are not defined.
	ErrMalformedGrammar = errors.New("malformed grammar")

	// ErrTooLong is the cause of errors caused by an expansion that would be
	// longer than the caller allowed or longer than can be counted.
	ErrTooLong = errors.New("expansion too long")
)

// Error is the error type returned by the functions in slp. It holds a
// message along with one or more causes; calling errors.Is on an Error with
// any of its causes returns true, so callers can check for the specific kind
// of failure by comparing against the Err* sentinels of this package.
//
// If Error has at least one cause, the result of Error() is its message with
// the message of the first cause appended.
type Error struct {
	msg   string
	cause []error
}

// Error returns the message of the Error followed by that of its first cause.
func (e Error) Error() string {
	if e.msg == "" && e.cause != nil {
		return e.cause[0].Error()
	}

	if e.cause != nil {
		return e.msg + ": " + e.cause[0].Error()
	}

	return e.msg
}

// Unwrap returns the causes of Error, or nil if there are none.
func (e Error) Unwrap() []error {
	if len(e.cause) > 0 {
		return e.cause
	}
	return nil
}

// Is returns whether one of the causes of Error is target.
func (e Error) Is(target error) bool {
	for i := range e.cause {
		if e.cause[i] == target {
			return true
		}
	}
	return false
}

func newError(msg string, causes ...error) Error {
	err := Error{msg: msg}
	if len(causes) > 0 {
		err.cause = make([]error, len(causes))
		copy(err.cause, causes)
	}
	return err
}

func errorf(cause error, format string, a ...interface{}) Error {
	return newError(fmt.Sprintf(format, a...), cause)
}
