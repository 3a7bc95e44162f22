package input

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_DirectCommandReader_ReadCommand(t *testing.T) {
	testCases := []struct {
		name       string
		input      string
		allowBlank bool
		expect     []string
	}{
		{
			name:   "skips blank lines",
			input:  "RULES\n\n   \nSTATS\n",
			expect: []string{"RULES", "STATS"},
		},
		{
			name:   "last line without newline",
			input:  "LEN x\nQUIT",
			expect: []string{"LEN x", "QUIT"},
		},
		{
			name:       "blanks allowed",
			input:      "A\n\nB\n",
			allowBlank: true,
			expect:     []string{"A", "", "B"},
		},
		{
			name:   "comments skipped",
			input:  "# build it\nRULE a = 'x\n  # more\nSHOW #0\n",
			expect: []string{"RULE a = 'x", "SHOW #0"},
		},
		{
			name:   "continued lines are joined",
			input:  "RULE abc = \\\n  'a \\\n  'b 'c\nRULES\n",
			expect: []string{"RULE abc = 'a 'b 'c", "RULES"},
		},
		{
			name:   "continuation at end of input",
			input:  "LEN x \\",
			expect: []string{"LEN x"},
		},
		{
			name:   "only comments",
			input:  "# nothing\n# here",
			expect: nil,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			r := NewDirectReader(strings.NewReader(tc.input))
			r.AllowBlank(tc.allowBlank)

			var actual []string
			for {
				line, err := r.ReadCommand()
				if err == io.EOF {
					break
				}
				if !assert.NoError(err) {
					return
				}
				actual = append(actual, line)
			}

			assert.Equal(tc.expect, actual)
			assert.NoError(r.Close())
		})
	}
}
