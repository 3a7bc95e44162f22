// Package serr holds the error values used across the Skein server. Error can
// carry one or more causes, and errors.Is reports true for any of them, so
// callers can check failure conditions against the sentinels below without
// type assertions.
package serr

import "errors"

var (
	ErrBadCredentials = errors.New("the supplied username/password combination is incorrect")
	ErrPermissions    = errors.New("you don't have permission to do that")
	ErrNotFound       = errors.New("the requested entity could not be found")
	ErrAlreadyExists  = errors.New("resource with same identifying information already exists")
	ErrDB             = errors.New("an error occured with the DB")
	ErrBadArgument    = errors.New("one or more of the arguments is invalid")
	ErrBodyUnmarshal  = errors.New("malformed data in request")

	// ErrGrammar is a cause of every failure reported by the grammar engine
	// for a well-formed request, such as an out-of-range offset or an
	// expansion that is too long.
	ErrGrammar = errors.New("the grammar operation failed")
)

// Error is an error with a message and any number of causes. Create one with
// New or WrapDB.
type Error struct {
	msg   string
	cause []error
}

// Error returns the message followed by the message of the first cause. If
// there is no message, only the first cause's message is returned.
func (e Error) Error() string {
	if len(e.cause) == 0 {
		return e.msg
	}
	if e.msg == "" {
		return e.cause[0].Error()
	}
	return e.msg + ": " + e.cause[0].Error()
}

// Unwrap returns the causes of the Error, or nil if it has none.
func (e Error) Unwrap() []error {
	if len(e.cause) > 0 {
		return e.cause
	}
	return nil
}

// Is returns whether target is an identical Error or is one of e's causes.
func (e Error) Is(target error) bool {
	if other, ok := target.(Error); ok && e.msg == other.msg && len(e.cause) == len(other.cause) {
		same := true
		for i := range e.cause {
			if e.cause[i] != other.cause[i] {
				same = false
				break
			}
		}
		if same {
			return true
		}
	}

	for i := range e.cause {
		if e.cause[i] == target {
			return true
		}
	}
	return false
}

// WrapDB creates a new Error with err and ErrDB as its causes. msg may be
// empty.
func WrapDB(msg string, err error) Error {
	return Error{
		msg:   msg,
		cause: []error{err, ErrDB},
	}
}

// New creates a new Error with the given message and causes.
func New(msg string, causes ...error) Error {
	err := Error{msg: msg}
	if len(causes) > 0 {
		err.cause = make([]error, len(causes))
		copy(err.cause, causes)
	}
	return err
}
