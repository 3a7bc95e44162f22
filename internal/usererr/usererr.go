// Package usererr has errors that carry a message meant for the person at the
// console in addition to the usual technical description.
package usererr

import "fmt"

// userError is an error caused by input from the user. Either the input could
// not be understood or it asks for something that cannot be done to the
// grammar.
//
// userError includes a human-readable message to show to the user as well as
// a typical more technical "error message" style message.
type userError struct {
	msg   string
	human string
	wrap  error
}

func (e *userError) Error() string {
	return e.msg
}

// Message shows the message that should be displayed at the console to
// describe the error.
func (e *userError) Message() string {
	return e.human
}

// Unwrap gives the error that the userError wraps, if it wraps one.
func (e *userError) Unwrap() error {
	return e.wrap
}

// New returns a new error that has both the message to show the user and the
// technical description of the error.
func New(human, technical string) error {
	if technical == "" {
		technical = fmt.Sprintf("got user error(%q)", human)
	}
	return &userError{
		msg:   technical,
		human: human,
	}
}

// Errorf returns a new error that has a message to show to the user and an
// automatically generated Error() description.
func Errorf(format string, a ...interface{}) error {
	return New(fmt.Sprintf(format, a...), "")
}

// Wrap returns a new error that has both the message to show the user and the
// technical description of the error, and that wraps the given error. If
// technical is empty, the wrapped error's own message is used.
func Wrap(e error, human, technical string) error {
	if technical == "" {
		technical = e.Error()
	}
	return &userError{
		msg:   technical,
		human: human,
		wrap:  e,
	}
}

// Wrapf is Wrap with a formatted message for the user.
func Wrapf(e error, format string, a ...interface{}) error {
	return Wrap(e, fmt.Sprintf(format, a...), "")
}

// Message gets the message to display to the console for the given error. If
// it was created by this package, the user message is returned. Otherwise,
// err.Error() is returned.
func Message(err error) string {
	if uErr, ok := err.(*userError); ok {
		return uErr.Message()
	}
	return err.Error()
}
