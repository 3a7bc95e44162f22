package skg

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dekarrin/rezi"
	"github.com/dekarrin/skein/slp"
	"github.com/stretchr/testify/assert"
)

const exampleData = `format = "SKEIN"
type = "DATA"

[[rule]]
label = "ab"
symbols = ["'a", "'b"]

[[rule]]
label = "abc"
symbols = ["ab", "'c"]

[[rule]]
label = "Twice"
concat = ["abc", "abc"]

[[rule]]
label = "many"
repeat = { of = "abc", times = 5 }

[[rule]]
label = "middle"
extract = { of = "many", start = 2, end = 7 }

[[rule]]
label = "seq"
sequence = "hello"

[[root]]
name = "main"
rule = "many"

[[root]]
name = "greeting"
rule = "seq"
`

func expandRoot(t *testing.T, def Definition, target string) string {
	t.Helper()
	id, err := def.Resolve(target)
	if !assert.NoError(t, err) {
		return ""
	}
	vals, err := def.Grammar.Expand(id)
	if !assert.NoError(t, err) {
		return ""
	}
	return strings.Join(vals, "")
}

func Test_Parse(t *testing.T) {
	assert := assert.New(t)

	def, err := Parse([]byte(exampleData))
	if !assert.NoError(err) {
		return
	}

	assert.Equal("ab", expandRoot(t, def, "ab"))
	assert.Equal("abcabc", expandRoot(t, def, "twice"))
	assert.Equal("abcabc", expandRoot(t, def, "TWICE"))
	assert.Equal("abcabcabcabcabc", expandRoot(t, def, "main"))
	assert.Equal("cabca", expandRoot(t, def, "middle"))
	assert.Equal("hello", expandRoot(t, def, "greeting"))

	roots := def.Grammar.Roots()
	assert.Len(roots, 2)
}

func Test_Parse_Errors(t *testing.T) {
	header := "format = \"SKEIN\"\ntype = \"DATA\"\n"

	testCases := []struct {
		name      string
		input     string
		expectErr error
	}{
		{
			name:  "missing header",
			input: "[[rule]]\nlabel = \"a\"\nsymbols = [\"'a\"]\n",
		},
		{
			name:      "forward reference",
			input:     header + "[[rule]]\nlabel = \"a\"\nsymbols = [\"b\"]\n[[rule]]\nlabel = \"b\"\nsymbols = [\"'b\"]\n",
			expectErr: slp.ErrMalformedGrammar,
		},
		{
			name:      "self reference",
			input:     header + "[[rule]]\nlabel = \"a\"\nsymbols = [\"'x\", \"a\"]\n",
			expectErr: slp.ErrMalformedGrammar,
		},
		{
			name:      "undefined root target",
			input:     header + "[[rule]]\nlabel = \"a\"\nsymbols = [\"'x\"]\n[[root]]\nname = \"r\"\nrule = \"nope\"\n",
			expectErr: slp.ErrMalformedGrammar,
		},
		{
			name:      "duplicate label differing in case",
			input:     header + "[[rule]]\nlabel = \"a\"\nsymbols = [\"'x\"]\n[[rule]]\nlabel = \"A\"\nsymbols = [\"'y\"]\n",
			expectErr: slp.ErrMalformedGrammar,
		},
		{
			name:      "two bodies",
			input:     header + "[[rule]]\nlabel = \"a\"\nsymbols = [\"'x\"]\nsequence = \"xy\"\n",
			expectErr: slp.ErrMalformedGrammar,
		},
		{
			name:      "no body",
			input:     header + "[[rule]]\nlabel = \"a\"\n",
			expectErr: slp.ErrMalformedGrammar,
		},
		{
			name:  "bad label",
			input: header + "[[rule]]\nlabel = \"#1\"\nsymbols = [\"'x\"]\n",
		},
		{
			name:  "empty terminal",
			input: header + "[[rule]]\nlabel = \"a\"\nsymbols = [\"'\"]\n",
		},
		{
			name:      "negative extract bound",
			input:     header + "[[rule]]\nlabel = \"a\"\nsymbols = [\"'x\", \"'y\"]\n[[rule]]\nlabel = \"b\"\nextract = { of = \"a\", start = -1, end = 1 }\n",
			expectErr: slp.ErrOutOfRange,
		},
		{
			name:      "extract past end",
			input:     header + "[[rule]]\nlabel = \"a\"\nsymbols = [\"'x\", \"'y\"]\n[[rule]]\nlabel = \"b\"\nextract = { of = \"a\", start = 0, end = 3 }\n",
			expectErr: slp.ErrOutOfRange,
		},
		{
			name:      "zero repeat",
			input:     header + "[[rule]]\nlabel = \"a\"\nsymbols = [\"'x\"]\n[[rule]]\nlabel = \"b\"\nrepeat = { of = \"a\", times = 0 }\n",
			expectErr: slp.ErrInvalidArgument,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			_, err := Parse([]byte(tc.input))

			if !assert.Error(err) {
				return
			}
			if tc.expectErr != nil {
				assert.ErrorIs(err, tc.expectErr)
			}
		})
	}
}

func Test_Definition_Resolve(t *testing.T) {
	def, err := Parse([]byte(exampleData))
	if !assert.NoError(t, err) {
		return
	}
	manyID := def.Labels["many"]

	testCases := []struct {
		name      string
		target    string
		expect    slp.RuleID
		expectErr bool
	}{
		{name: "label", target: "many", expect: manyID},
		{name: "label in other case", target: "MANY", expect: manyID},
		{name: "root", target: "main", expect: manyID},
		{name: "id", target: "#0", expect: 0},
		{name: "id out of range", target: "#9999", expectErr: true},
		{name: "bad id", target: "#x", expectErr: true},
		{name: "unknown", target: "nothing", expectErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			actual, err := def.Resolve(tc.target)

			if tc.expectErr {
				assert.Error(err)
				return
			}
			assert.NoError(err)
			assert.Equal(tc.expect, actual)
		})
	}
}

func Test_Marshal_ReadsBack(t *testing.T) {
	assert := assert.New(t)

	def, err := Parse([]byte(exampleData))
	if !assert.NoError(err) {
		return
	}

	// give one rule a second label and leave one without any
	def.Labels["alias"] = def.Labels["many"]
	unlabeled, err := def.Grammar.AddRule(slp.Terms("z", "z")...)
	if !assert.NoError(err) {
		return
	}

	data, err := Marshal(def)
	if !assert.NoError(err) {
		return
	}

	back, err := Parse(data)
	if !assert.NoError(err, string(data)) {
		return
	}

	assert.Equal(def.Grammar.Len(), back.Grammar.Len())
	assert.Equal(def.Grammar.Roots(), back.Grammar.Roots())
	assert.Equal(def.Labels["many"], back.Labels["alias"])
	assert.Equal("abcabcabcabcabc", expandRoot(t, back, "alias"))
	assert.Equal("zz", expandRoot(t, back, unlabeled.String()))
}

func Test_Binary_RoundTrip(t *testing.T) {
	testCases := []struct {
		name     string
		compress bool
	}{
		{name: "plain", compress: false},
		{name: "xz", compress: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			def, err := Parse([]byte(exampleData))
			if !assert.NoError(err) {
				return
			}

			data, err := EncodeBinary(def, tc.compress)
			if !assert.NoError(err) {
				return
			}

			back, err := DecodeBinary(data, tc.compress)
			if !assert.NoError(err) {
				return
			}

			assert.Equal(def.Labels, back.Labels)
			assert.Equal(def.Grammar.Roots(), back.Grammar.Roots())
			assert.Equal(def.Grammar.Stats(), back.Grammar.Stats())
			assert.Equal("cabca", expandRoot(t, back, "middle"))
		})
	}
}

func Test_UnmarshalBinary_DuplicateRulesKeepLabels(t *testing.T) {
	assert := assert.New(t)

	term := func(v string) []byte {
		return append(rezi.EncBool(false), rezi.EncString(v)...)
	}

	// rules: #0 = 'a, #1 = 'a (same as #0), #2 = 'b; label "b" names #2
	var gram []byte
	gram = append(gram, rezi.EncInt(3)...)
	gram = append(gram, rezi.EncInt(1)...)
	gram = append(gram, term("a")...)
	gram = append(gram, rezi.EncInt(1)...)
	gram = append(gram, term("a")...)
	gram = append(gram, rezi.EncInt(1)...)
	gram = append(gram, term("b")...)
	gram = append(gram, rezi.EncInt(0)...)

	var data []byte
	data = append(data, binaryMagic...)
	data = append(data, rezi.EncInt(len(gram))...)
	data = append(data, gram...)
	data = append(data, rezi.EncInt(2)...)
	data = append(data, rezi.EncString("a2")...)
	data = append(data, rezi.EncInt(1)...)
	data = append(data, rezi.EncString("b")...)
	data = append(data, rezi.EncInt(2)...)

	def, err := UnmarshalBinary(data)
	if !assert.NoError(err) {
		return
	}

	assert.Equal(2, def.Grammar.Len())
	assert.Equal(slp.RuleID(0), def.Labels["a2"])
	vals, err := def.Grammar.Expand(def.Labels["b"])
	assert.NoError(err)
	assert.Equal([]string{"b"}, vals)
}

func Test_UnmarshalBinary_NotBinary(t *testing.T) {
	_, err := UnmarshalBinary([]byte(exampleData))
	assert.ErrorIs(t, err, slp.ErrMalformedGrammar)
}

func Test_LoadResourceBundle_Manifest(t *testing.T) {
	assert := assert.New(t)
	dir := t.TempDir()

	write := func(name, content string) {
		assert.NoError(os.MkdirAll(filepath.Dir(filepath.Join(dir, name)), 0755))
		assert.NoError(os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	}

	write("main.skg", "format = \"SKEIN\"\ntype = \"MANIFEST\"\nfiles = [\"base.skg\", \"more/manifest.skg\"]\n")
	write("base.skg", "format = \"SKEIN\"\ntype = \"DATA\"\n[[rule]]\nlabel = \"ab\"\nsymbols = [\"'a\", \"'b\"]\n")
	// refers back to main.skg, which is skipped rather than failing.
	write("more/manifest.skg", "format = \"SKEIN\"\ntype = \"MANIFEST\"\nfiles = [\"top.skg\", \"../main.skg\"]\n")
	write("more/top.skg", "format = \"SKEIN\"\ntype = \"DATA\"\n[[rule]]\nlabel = \"top\"\nrepeat = { of = \"ab\", times = 3 }\n[[root]]\nname = \"main\"\nrule = \"top\"\n")

	def, err := LoadFile(filepath.Join(dir, "main.skg"))
	if !assert.NoError(err) {
		return
	}

	assert.Equal("ababab", expandRoot(t, def, "main"))
}

func Test_LoadResourceBundle_EmptyManifest(t *testing.T) {
	assert := assert.New(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "main.skg")

	assert.NoError(os.WriteFile(path, []byte("format = \"SKEIN\"\ntype = \"MANIFEST\"\nfiles = []\n"), 0644))

	_, err := LoadResourceBundle(path)
	assert.ErrorIs(err, ErrManifestEmpty)
}

func Test_SaveFile_LoadFile(t *testing.T) {
	for _, ext := range []string{ExtText, ExtBinary, ExtBinaryXZ} {
		t.Run(ext, func(t *testing.T) {
			assert := assert.New(t)

			def, err := Parse([]byte(exampleData))
			if !assert.NoError(err) {
				return
			}

			path := filepath.Join(t.TempDir(), "grammar"+ext)
			if !assert.NoError(SaveFile(path, def)) {
				return
			}

			back, err := LoadFile(path)
			if !assert.NoError(err) {
				return
			}

			assert.Equal("hello", expandRoot(t, back, "greeting"))
			assert.Equal("abcabc", expandRoot(t, back, "twice"))
		})
	}
}
