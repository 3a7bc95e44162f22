package slp

import "math/bits"

const (
	// repeat counts up to this are built as a single flat rule; larger ones
	// are built from a chain of squarings.
	repeatFlatMax = 16

	// arity of the rules FromSequence builds at each level.
	buildArity = 4
)

// Concat returns the ID of a rule that expands to the expansion of a followed
// by that of b. It adds at most one rule.
func (g *Grammar[V]) Concat(a, b RuleID) (RuleID, error) {
	return g.ConcatAll(a, b)
}

// ConcatAll returns the ID of a rule that expands to the expansions of all the
// given rules, one after the other. Concatenating a single rule returns that
// rule.
func (g *Grammar[V]) ConcatAll(ids ...RuleID) (RuleID, error) {
	if len(ids) == 0 {
		return -1, newError("nothing to concatenate", ErrInvalidArgument)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	for _, id := range ids {
		if err := g.rules.check(id); err != nil {
			return -1, err
		}
	}
	if len(ids) == 1 {
		return ids[0], nil
	}

	syms := make([]Symbol[V], len(ids))
	for i := range ids {
		syms[i] = Ref[V](ids[i])
	}
	return g.addRule(syms)
}

// Repeat returns the ID of a rule that expands to the expansion of a repeated
// k times. Repeating a rule once returns the rule itself. Small counts give a
// single rule with k references to a; larger counts are built by repeated
// squaring, adding O(log k) rules.
//
// The returned error, if non-nil, matches ErrInvalidArgument if k is less than
// 1, ErrInvalidReference if a does not exist, and ErrTooLong if the result
// would be longer than can be counted.
func (g *Grammar[V]) Repeat(a RuleID, k int) (RuleID, error) {
	if k < 1 {
		return -1, errorf(ErrInvalidArgument, "repeat count must be at least 1 but is %d", k)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.rules.check(a); err != nil {
		return -1, err
	}
	hi, _ := bits.Mul64(g.rules[a].length(), uint64(k))
	if hi != 0 {
		return -1, errorf(ErrTooLong, "rule %s repeated %d times", a, k)
	}

	if k == 1 {
		return a, nil
	}

	if k <= repeatFlatMax {
		syms := make([]Symbol[V], k)
		for i := range syms {
			syms[i] = Ref[V](a)
		}
		return g.addRule(syms)
	}

	// pow is a repeated 2^i times for the current bit i of k.
	var parts []Symbol[V]
	pow := a
	for n := k; n > 0; n >>= 1 {
		if n&1 == 1 {
			parts = append(parts, Ref[V](pow))
		}
		if n > 1 {
			var err error
			pow, err = g.addRule([]Symbol[V]{Ref[V](pow), Ref[V](pow)})
			if err != nil {
				// the total length was checked above, so no square can
				// overflow.
				return -1, err
			}
		}
	}
	if len(parts) == 1 {
		return parts[0].rule, nil
	}
	return g.addRule(parts)
}

// Extract returns the ID of a rule that expands to the part of the expansion
// of id from offset start up to but not including offset end. Children of id
// that lie entirely inside the range are reused as-is and only those that
// straddle an end of the range are extracted from in turn, so at most a number
// of rules proportional to the depth of id is added. Extracting the full range
// returns id itself.
//
// The returned error, if non-nil, matches ErrInvalidArgument if start is not
// less than end, ErrOutOfRange if end is greater than the length of the rule,
// and ErrInvalidReference if the rule does not exist.
func (g *Grammar[V]) Extract(id RuleID, start, end uint64) (RuleID, error) {
	if start >= end {
		return -1, errorf(ErrInvalidArgument, "range start %d is not before end %d", start, end)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.rules.check(id); err != nil {
		return -1, err
	}
	if end > g.rules[id].length() {
		return -1, errorf(ErrOutOfRange, "range [%d, %d) in rule %s of length %d", start, end, id, g.rules[id].length())
	}

	piece := g.extract(id, start, end)
	if piece.isRule {
		return piece.rule, nil
	}
	return g.addRule([]Symbol[V]{piece})
}

// extract returns a single symbol that expands to [start, end) of the rule. The
// range must be valid and the write lock must be held.
func (g *Grammar[V]) extract(id RuleID, start, end uint64) Symbol[V] {
	r := &g.rules[id]
	if start == 0 && end == r.length() {
		return Ref[V](id)
	}

	var pieces []Symbol[V]
	for i := r.locate(start); i < len(r.symbols) && r.prefix[i] < end; i++ {
		sym := r.symbols[i]
		lo, hi := r.prefix[i], r.prefix[i+1]

		if !sym.isRule || (start <= lo && hi <= end) {
			pieces = append(pieces, sym)
			continue
		}

		subStart, subEnd := uint64(0), hi-lo
		if start > lo {
			subStart = start - lo
		}
		if end < hi {
			subEnd = end - lo
		}
		pieces = append(pieces, g.extract(sym.rule, subStart, subEnd))
	}

	if len(pieces) == 1 {
		return pieces[0]
	}

	newID, err := g.addRule(pieces)
	if err != nil {
		// every piece refers to an existing rule and is shorter than r.
		panic("extracting from valid rule: " + err.Error())
	}
	return Ref[V](newID)
}

// FromSequence adds rules for the given sequence and returns the ID of the rule
// that expands to it. The sequence is split into runs of a few symbols each,
// and those into runs of rules, and so on, so the result has logarithmic
// depth; repeated runs share a rule.
func (g *Grammar[V]) FromSequence(seq []V) (RuleID, error) {
	if len(seq) == 0 {
		return -1, newError("sequence is empty", ErrInvalidArgument)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	level := Terms(seq...)
	for len(level) > buildArity {
		next := make([]Symbol[V], 0, (len(level)+buildArity-1)/buildArity)
		for i := 0; i < len(level); i += buildArity {
			j := i + buildArity
			if j > len(level) {
				j = len(level)
			}
			id, err := g.addRule(level[i:j])
			if err != nil {
				return -1, err
			}
			next = append(next, Ref[V](id))
		}
		level = next
	}
	return g.addRule(level)
}
