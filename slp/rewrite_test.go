package slp

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

// buildWord adds rules for a word given one rule per space-separated part, so
// "ab ab c" shares the rule for "ab".
func buildWord(t *testing.T, g *Grammar[string], word string) RuleID {
	var parts []Symbol[string]
	for _, p := range strings.Fields(word) {
		id, err := g.AddRule(Terms(strings.Split(p, "")...)...)
		if !assert.NoError(t, err) {
			t.FailNow()
		}
		parts = append(parts, Ref[string](id))
	}
	id, err := g.AddRule(parts...)
	if !assert.NoError(t, err) {
		t.FailNow()
	}
	return id
}

func expandString(t *testing.T, g *Grammar[string], id RuleID) string {
	vals, err := g.Expand(id)
	if !assert.NoError(t, err) {
		t.FailNow()
	}
	return strings.Join(vals, "")
}

func Test_Grammar_Count(t *testing.T) {
	testCases := []struct {
		name   string
		word   string
		repeat int
		value  string
	}{
		{name: "single rule", word: "abcab", repeat: 1, value: "a"},
		{name: "shared children", word: "ab ab c ab", repeat: 1, value: "b"},
		{name: "repeated", word: "ab c", repeat: 1000, value: "c"},
		{name: "not present", word: "ab c", repeat: 7, value: "z"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)
			g := New[string](StringCodec{})
			id := buildWord(t, g, tc.word)
			id, err := g.Repeat(id, tc.repeat)
			if !assert.NoError(err) {
				return
			}

			expect := strings.Count(expandString(t, g, id), tc.value)

			actual, err := g.Count(id, tc.value)
			assert.NoError(err)
			assert.Equal(uint64(expect), actual)
		})
	}
}

func Test_Grammar_CountFunc(t *testing.T) {
	assert := assert.New(t)
	g := New[string](StringCodec{})
	id, _ := g.FromSequence([]string{"x", "X", "y", "x", "Y", "X"})

	both, err := g.CountFunc(id, func(v string) bool { return strings.EqualFold(v, "x") })
	assert.NoError(err)
	assert.Equal(uint64(4), both)

	_, err = g.CountFunc(99, func(string) bool { return true })
	assert.ErrorIs(err, ErrInvalidReference)
}

func Test_Grammar_Complexity(t *testing.T) {
	assert := assert.New(t)
	g := New[string](StringCodec{})
	x := g.Terminal("x")
	y := g.Terminal("y")
	top, _ := g.AddRule(Ref[string](x), Ref[string](y), Term("x"))
	unrelated, _ := g.AddRule(Terms("q", "r", "s", "t")...)

	n, err := g.Complexity(top)
	assert.NoError(err)
	assert.Equal(5, n)

	n, err = g.Complexity(unrelated)
	assert.NoError(err)
	assert.Equal(4, n)
}

func Test_Grammar_Reverse(t *testing.T) {
	testCases := []struct {
		name   string
		word   string
		repeat int
		expect string
	}{
		{name: "flat", word: "abc", repeat: 1, expect: "cba"},
		{name: "nested", word: "ab c de", repeat: 1, expect: "edcba"},
		{name: "repeated", word: "ab c", repeat: 3, expect: "cbacbacba"},
		{name: "palindrome", word: "aba", repeat: 1, expect: "aba"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)
			g := New[string](StringCodec{})
			id := buildWord(t, g, tc.word)
			id, _ = g.Repeat(id, tc.repeat)
			before, _ := g.Length(id)

			rev, err := g.Reverse(id)
			if !assert.NoError(err) {
				return
			}

			assert.Equal(tc.expect, expandString(t, g, rev))
			after, _ := g.Length(rev)
			assert.Equal(before, after)

			back, err := g.Reverse(rev)
			assert.NoError(err)
			assert.Equal(id, back, "reversing twice should give the same rule")
		})
	}
}

func Test_Grammar_Inverse(t *testing.T) {
	assert := assert.New(t)
	g := New[string](StringCodec{})

	// upper case stands for the inverse of the lower case generator
	inv := func(v string) string {
		if strings.ToLower(v) == v {
			return strings.ToUpper(v)
		}
		return strings.ToLower(v)
	}

	id := buildWord(t, g, "aB c aB")
	inverse, err := g.Inverse(id, inv)
	assert.NoError(err)
	assert.Equal("bACbA", expandString(t, g, inverse))

	word, _ := g.Concat(id, inverse)
	pos, _ := g.Count(word, "a")
	neg, _ := g.Count(word, "A")
	assert.Equal(pos, neg)

	_, err = g.Inverse(500, inv)
	assert.ErrorIs(err, ErrInvalidReference)
}

func Test_Grammar_Substitute(t *testing.T) {
	testCases := []struct {
		name   string
		word   string
		value  string
		with   string
		expect string
	}{
		{name: "terminal in flat rule", word: "abca", value: "a", with: "xy", expect: "xybcxy"},
		{name: "terminal in shared child", word: "ab c ab", value: "b", with: "zz", expect: "azzcazz"},
		{name: "not present", word: "ab c", value: "q", with: "xyz", expect: "abc"},
		{name: "with contains value", word: "ab", value: "a", with: "aa", expect: "aab"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)
			g := New[string](StringCodec{})
			id := buildWord(t, g, tc.word)
			with, _ := g.AddRule(Terms(strings.Split(tc.with, "")...)...)

			orig := expandString(t, g, id)

			actual, err := g.Substitute(id, tc.value, with)
			if !assert.NoError(err) {
				return
			}
			assert.Equal(tc.expect, expandString(t, g, actual))
			assert.Equal(orig, expandString(t, g, id), "original rule changed")
		})
	}
}

func Test_Grammar_Substitute_Errors(t *testing.T) {
	assert := assert.New(t)
	g := New[string](StringCodec{})
	ab, _ := g.AddRule(Terms("a", "b")...)
	aa, _ := g.AddRule(Terms("a", "a")...)

	_, err := g.Substitute(ab, "a", 40)
	assert.ErrorIs(err, ErrInvalidReference)
	_, err = g.Substitute(40, "a", ab)
	assert.ErrorIs(err, ErrInvalidReference)

	// 2^63 values each; putting two of them in one rule cannot be counted
	huge, err := g.Repeat(ab, 1<<62)
	if !assert.NoError(err) {
		return
	}
	count := g.Len()
	_, err = g.Substitute(aa, "a", huge)
	assert.ErrorIs(err, ErrTooLong)
	assert.Equal(count, g.Len(), "failed substitute added rules")

	one, err := g.Substitute(ab, "a", huge)
	assert.NoError(err)
	n, _ := g.Length(one)
	assert.Equal(uint64(1<<63)+1, n)
}

func Test_Grammar_Binarize(t *testing.T) {
	testCases := []struct {
		name   string
		word   string
		repeat int
	}{
		{name: "single terminal", word: "a", repeat: 1},
		{name: "pair", word: "ab", repeat: 1},
		{name: "wide flat rule", word: "abcdefg", repeat: 1},
		{name: "mixed", word: "ab c de ab", repeat: 1},
		{name: "repeated", word: "ab c", repeat: 13},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)
			g := New[string](StringCodec{})
			id := buildWord(t, g, tc.word)
			id, _ = g.Repeat(id, tc.repeat)

			bin, err := g.Binarize(id)
			if !assert.NoError(err) {
				return
			}

			assert.Equal(expandString(t, g, id), expandString(t, g, bin))
			for _, r := range g.rules.reachable([]RuleID{bin}) {
				syms := g.rules[r].symbols
				single := len(syms) == 1 && !syms[0].isRule
				pair := len(syms) == 2 && syms[0].isRule && syms[1].isRule
				assert.True(single || pair, "rule %s is %v", r, syms)
			}
		})
	}
}
