package usererr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_Message(t *testing.T) {
	cause := errors.New("rule #9 does not exist")

	testCases := []struct {
		name   string
		err    error
		expect string
	}{
		{name: "plain error", err: cause, expect: "rule #9 does not exist"},
		{name: "New", err: New("No such rule", "lookup failed"), expect: "No such rule"},
		{name: "Errorf", err: Errorf("No rule called %q", "x"), expect: `No rule called "x"`},
		{name: "Wrapf", err: Wrapf(cause, "Can't use %s", "#9"), expect: "Can't use #9"},
		{name: "wrapped by fmt", err: fmt.Errorf("ctx: %w", New("hi", "")), expect: `ctx: got user error("hi")`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			assert.Equal(tc.expect, Message(tc.err))
		})
	}
}

func Test_Wrap_Unwraps(t *testing.T) {
	assert := assert.New(t)
	cause := errors.New("cause")

	err := Wrap(cause, "human", "")

	assert.ErrorIs(err, cause)
	assert.Equal("cause", err.Error())
}
