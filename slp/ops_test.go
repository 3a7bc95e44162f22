package slp

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_Scenario_ABC(t *testing.T) {
	assert := assert.New(t)
	g, r1 := buildABC(t)

	r1Len, err := g.Length(r1)
	assert.NoError(err)
	assert.Equal(uint64(3), r1Len)
	r1Exp, err := g.Expand(r1)
	assert.NoError(err)
	assert.Equal([]string{"a", "b", "c"}, r1Exp)

	r2, err := g.Repeat(r1, 3)
	assert.NoError(err)
	r2Len, err := g.Length(r2)
	assert.NoError(err)
	assert.Equal(uint64(9), r2Len)
	at4, err := g.At(r2, 4)
	assert.NoError(err)
	assert.Equal("b", at4)

	r3, err := g.Extract(r2, 2, 5)
	assert.NoError(err)
	r3Len, err := g.Length(r3)
	assert.NoError(err)
	assert.Equal(uint64(3), r3Len)
	r3Exp, err := g.Expand(r3)
	assert.NoError(err)
	assert.Equal([]string{"c", "a", "b"}, r3Exp)
}

func Test_Grammar_Concat(t *testing.T) {
	assert := assert.New(t)
	g, r1 := buildABC(t)
	xy, _ := g.AddRule(Terms("x", "y")...)

	cat, err := g.Concat(r1, xy)
	assert.NoError(err)

	catLen, _ := g.Length(cat)
	assert.Equal(uint64(5), catLen)
	vals, _ := g.Expand(cat)
	assert.Equal([]string{"a", "b", "c", "x", "y"}, vals)

	count := g.Len()
	again, err := g.Concat(r1, xy)
	assert.NoError(err)
	assert.Equal(cat, again)
	assert.Equal(count, g.Len())

	_, err = g.Concat(r1, 500)
	assert.ErrorIs(err, ErrInvalidReference)
	assert.Equal(count, g.Len())

	single, err := g.ConcatAll(xy)
	assert.NoError(err)
	assert.Equal(xy, single)

	_, err = g.ConcatAll()
	assert.ErrorIs(err, ErrInvalidArgument)
}

func Test_Grammar_Repeat(t *testing.T) {
	testCases := []struct {
		name      string
		k         int
		expectErr error
	}{
		{name: "zero", k: 0, expectErr: ErrInvalidArgument},
		{name: "negative", k: -4, expectErr: ErrInvalidArgument},
		{name: "once", k: 1},
		{name: "twice", k: 2},
		{name: "flat limit", k: repeatFlatMax},
		{name: "just over flat limit", k: repeatFlatMax + 1},
		{name: "power of two", k: 64},
		{name: "odd large", k: 1001},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)
			g, r1 := buildABC(t)

			id, err := g.Repeat(r1, tc.k)

			if tc.expectErr != nil {
				assert.ErrorIs(err, tc.expectErr)
				return
			}
			if !assert.NoError(err) {
				return
			}

			n, _ := g.Length(id)
			assert.Equal(uint64(3*tc.k), n)

			vals, err := g.Expand(id)
			assert.NoError(err)
			assert.Equal(strings.Split(strings.Repeat("abc", tc.k), ""), vals)

			if tc.k == 1 {
				assert.Equal(r1, id)
			}
		})
	}
}

func Test_Grammar_Repeat_LogarithmicRules(t *testing.T) {
	assert := assert.New(t)
	g, r1 := buildABC(t)
	before := g.Len()

	id, err := g.Repeat(r1, 1<<40+3)
	assert.NoError(err)

	// one squaring per bit plus the combining rule
	assert.LessOrEqual(g.Len()-before, 42)

	n, _ := g.Length(id)
	assert.Equal(uint64(3)*(1<<40+3), n)

	v, err := g.At(id, n-2)
	assert.NoError(err)
	assert.Equal("b", v)
}

func Test_Grammar_Repeat_Overflow(t *testing.T) {
	assert := assert.New(t)
	g, r1 := buildABC(t)

	big, err := g.Repeat(r1, math.MaxInt32)
	assert.NoError(err)
	before := g.Len()

	_, err = g.Repeat(big, 1<<40)
	assert.ErrorIs(err, ErrTooLong)
	assert.Equal(before, g.Len())
}

func Test_Grammar_Extract_AllRanges(t *testing.T) {
	g := New[rune](RuneCodec{})

	text := "the quick brown fox jumps over the lazy dog"
	seq, err := g.FromSequence([]rune(text))
	if !assert.NoError(t, err) {
		return
	}
	twice, _ := g.Repeat(seq, 2)
	wrapped, _ := g.AddRule(Term('<'), Ref[rune](twice), Term('>'))

	full := "<" + text + text + ">"
	n, _ := g.Length(wrapped)
	if !assert.Equal(t, uint64(len(full)), n) {
		return
	}

	for s := 0; s < len(full); s++ {
		for e := s + 1; e <= len(full); e++ {
			id, err := g.Extract(wrapped, uint64(s), uint64(e))
			if !assert.NoError(t, err, "[%d, %d)", s, e) {
				return
			}
			vals, _ := g.Expand(id)
			if !assert.Equal(t, full[s:e], string(vals), "[%d, %d)", s, e) {
				return
			}
		}
	}
}

func Test_Grammar_Extract(t *testing.T) {
	testCases := []struct {
		name       string
		start, end uint64
		expect     string
		expectErr  error
	}{
		{name: "whole range returns rule", start: 0, end: 9, expect: "abcabcabc"},
		{name: "single position", start: 4, end: 5, expect: "b"},
		{name: "aligned child", start: 3, end: 6, expect: "abc"},
		{name: "straddles two children", start: 2, end: 5, expect: "cab"},
		{name: "suffix", start: 7, end: 9, expect: "bc"},
		{name: "empty range", start: 4, end: 4, expectErr: ErrInvalidArgument},
		{name: "reversed range", start: 5, end: 2, expectErr: ErrInvalidArgument},
		{name: "end past length", start: 2, end: 10, expectErr: ErrOutOfRange},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)
			g, r1 := buildABC(t)
			r2, _ := g.Repeat(r1, 3)
			before := g.Len()

			id, err := g.Extract(r2, tc.start, tc.end)

			if tc.expectErr != nil {
				assert.ErrorIs(err, tc.expectErr)
				assert.Equal(before, g.Len())
				return
			}
			if !assert.NoError(err) {
				return
			}
			vals, _ := g.Expand(id)
			assert.Equal(tc.expect, strings.Join(vals, ""))

			if tc.start == 0 && tc.end == 9 {
				assert.Equal(r2, id)
			}
			if tc.start == 3 && tc.end == 6 {
				assert.Equal(r1, id, "aligned child should be reused")
			}
		})
	}
}

func Test_Grammar_Extract_SmallGrowth(t *testing.T) {
	assert := assert.New(t)
	g, r1 := buildABC(t)
	huge, _ := g.Repeat(r1, 1<<30)
	depth, _ := g.Depth(huge)
	before := g.Len()

	id, err := g.Extract(huge, 1, 3*(1<<30)-1)
	assert.NoError(err)

	assert.LessOrEqual(g.Len()-before, 2*depth+1)
	n, _ := g.Length(id)
	assert.Equal(uint64(3*(1<<30)-2), n)
	first, _ := g.At(id, 0)
	last, _ := g.At(id, n-1)
	assert.Equal("b", first)
	assert.Equal("b", last)
}

func Test_Grammar_Equal(t *testing.T) {
	g := New[string](StringCodec{})
	a := g.Terminal("a")
	b := g.Terminal("b")
	ab, _ := g.AddRule(Ref[string](a), Ref[string](b))
	abab, _ := g.Repeat(ab, 2)
	flat, _ := g.AddRule(Terms("a", "b", "a", "b")...)
	aba, _ := g.AddRule(Ref[string](ab), Ref[string](a))
	ababLeft, _ := g.AddRule(Ref[string](aba), Ref[string](b))
	baba, _ := g.AddRule(Terms("b", "a", "b", "a")...)
	abc, _ := g.AddRule(Terms("a", "b", "c")...)
	big1, _ := g.Repeat(abab, 1<<20)
	big2, _ := g.Repeat(ab, 1<<21)
	big3, _ := g.Concat(big2, a)

	testCases := []struct {
		name      string
		a, b      RuleID
		expect    bool
		expectErr error
	}{
		{name: "same rule", a: abab, b: abab, expect: true},
		{name: "different grouping", a: abab, b: flat, expect: true},
		{name: "left vs balanced", a: ababLeft, b: abab, expect: true},
		{name: "same length different content", a: abab, b: baba, expect: false},
		{name: "different length", a: abab, b: abc, expect: false},
		{name: "huge shared structure", a: big1, b: big2, expect: true},
		{name: "huge different length", a: big1, b: big3, expect: false},
		{name: "missing rule", a: abab, b: 9999, expectErr: ErrInvalidReference},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			actual, err := g.Equal(tc.a, tc.b)

			if tc.expectErr != nil {
				assert.ErrorIs(err, tc.expectErr)
				return
			}
			assert.NoError(err)
			assert.Equal(tc.expect, actual)

			reverse, err := g.Equal(tc.b, tc.a)
			assert.NoError(err)
			assert.Equal(tc.expect, reverse)
		})
	}
}

func Test_Grammar_FromSequence(t *testing.T) {
	assert := assert.New(t)
	g := New[int](IntCodec{})

	_, err := g.FromSequence(nil)
	assert.ErrorIs(err, ErrInvalidArgument)

	periodic := make([]int, 4096)
	for i := range periodic {
		periodic[i] = i % 4
	}
	id, err := g.FromSequence(periodic)
	assert.NoError(err)

	// every chunk is [0 1 2 3], every chunk of chunks is the same, and so on.
	assert.Equal(6, g.Len())
	n, _ := g.Length(id)
	assert.Equal(uint64(4096), n)
}
