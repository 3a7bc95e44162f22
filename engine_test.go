package skein

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_Engine_RunUntilQuit(t *testing.T) {
	testCases := []struct {
		name          string
		input         string
		expectContain []string
	}{
		{
			name:  "builds and expands",
			input: "RULE ab = 'a 'b\nREPEAT x = ab 3\nEXPAND x\nQUIT\n",
			expectContain: []string{
				"ab is #0, length 2",
				"ababab",
				"Goodbye",
			},
		},
		{
			name:  "bad command then recovery",
			input: "FLY away\nRULE a = 'a\nLEN a\nBYE\n",
			expectContain: []string{
				`I don't know what you mean by "FLY"`,
				"Try HELP",
				"1\n",
			},
		},
		{
			name:  "error message shown",
			input: "LEN nope\nQUIT\n",
			expectContain: []string{
				`There is no rule or root called "nope"`,
			},
		},
		{
			name:  "end of input without quit",
			input: "RULE a = 'a\n",
			expectContain: []string{
				"Goodbye",
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)
			var out bytes.Buffer

			eng, err := New(strings.NewReader(tc.input), &out, Options{})
			if !assert.NoError(err) {
				return
			}

			err = eng.RunUntilQuit()
			assert.NoError(err)
			assert.NoError(eng.Close())

			for _, s := range tc.expectContain {
				assert.Contains(out.String(), s)
			}
		})
	}
}

func Test_New_MissingGrammarFile(t *testing.T) {
	_, err := New(strings.NewReader(""), &bytes.Buffer{}, Options{GrammarFile: "does/not/exist.skg"})

	assert.Error(t, err)
}
