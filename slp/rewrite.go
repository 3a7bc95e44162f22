package slp

import (
	"fmt"
	"math/bits"
)

// count returns how many values in the expansion of id match. Each reachable
// rule is visited once, children before parents.
func (t table[V]) count(id RuleID, match func(V) bool) uint64 {
	counts := make(map[RuleID]uint64)
	for _, r := range t.reachable([]RuleID{id}) {
		var n uint64
		for _, s := range t[r].symbols {
			if s.isRule {
				n += counts[s.rule]
			} else if match(s.value) {
				n++
			}
		}
		counts[r] = n
	}
	return counts[id]
}

// complexity is the total number of right-hand side symbols over every rule
// reachable from id.
func (t table[V]) complexity(id RuleID) int {
	var n int
	for _, r := range t.reachable([]RuleID{id}) {
		n += len(t[r].symbols)
	}
	return n
}

// Count returns the number of times v occurs in the expansion of id. It is
// computed over the rules without expanding them.
func (g *Grammar[V]) Count(id RuleID, v V) (uint64, error) {
	return g.CountFunc(id, func(x V) bool { return x == v })
}

// CountFunc returns the number of values in the expansion of id for which match
// returns true. To count a value together with its inverse, give a match
// function that accepts both.
func (g *Grammar[V]) CountFunc(id RuleID, match func(V) bool) (uint64, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if err := g.rules.check(id); err != nil {
		return 0, err
	}
	return g.rules.count(id, match), nil
}

// Complexity returns the sum of the right-hand side lengths of every rule
// reachable from id, including id itself.
func (g *Grammar[V]) Complexity(id RuleID) (int, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if err := g.rules.check(id); err != nil {
		return 0, err
	}
	return g.rules.complexity(id), nil
}

// Reverse returns the ID of a rule that expands to the expansion of id in
// reverse order.
func (g *Grammar[V]) Reverse(id RuleID) (RuleID, error) {
	return g.Inverse(id, nil)
}

// Inverse returns the ID of a rule that expands to the expansion of id in
// reverse order with inv applied to every value. inv should be an involution,
// such as mapping a generator to its inverse; if it is nil, values are kept
// as-is. Each rule reachable from id gets one mirrored rule.
func (g *Grammar[V]) Inverse(id RuleID, inv func(V) V) (RuleID, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.rules.check(id); err != nil {
		return -1, err
	}

	mirror := make(map[RuleID]RuleID)
	for _, r := range g.rules.reachable([]RuleID{id}) {
		old := g.rules[r].symbols
		syms := make([]Symbol[V], len(old))
		for i, s := range old {
			if s.isRule {
				s.rule = mirror[s.rule]
			} else if inv != nil {
				s.value = inv(s.value)
			}
			syms[len(old)-1-i] = s
		}
		newID, err := g.addRule(syms)
		if err != nil {
			// same lengths and only existing references
			panic(fmt.Sprintf("mirroring rule %s: %v", r, err))
		}
		mirror[r] = newID
	}
	return mirror[id], nil
}

// Substitute returns the ID of a rule that expands to the expansion of id with
// every occurrence of the value v replaced by the expansion of with. Rules
// that do not contain v are reused.
//
// The returned error, if non-nil, matches ErrInvalidReference if either rule
// does not exist and ErrTooLong if the result would be longer than can be
// counted. On error the Grammar is unchanged.
func (g *Grammar[V]) Substitute(id RuleID, v V, with RuleID) (RuleID, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.rules.check(id); err != nil {
		return -1, err
	}
	if err := g.rules.check(with); err != nil {
		return -1, err
	}

	order := g.rules.reachable([]RuleID{id})

	// lengths are checked first so a failure adds no rules.
	withLen := g.rules[with].length()
	newLen := make(map[RuleID]uint64, len(order))
	for _, r := range order {
		var total uint64
		for _, s := range g.rules[r].symbols {
			n := uint64(1)
			if s.isRule {
				n = newLen[s.rule]
			} else if s.value == v {
				n = withLen
			}
			var carry uint64
			total, carry = bits.Add64(total, n, 0)
			if carry != 0 {
				return -1, errorf(ErrTooLong, "substituting into rule %s", r)
			}
		}
		newLen[r] = total
	}

	subst := make(map[RuleID]RuleID, len(order))
	for _, r := range order {
		old := g.rules[r].symbols
		var syms []Symbol[V]
		for i, s := range old {
			switch {
			case s.isRule && subst[s.rule] != s.rule:
				s.rule = subst[s.rule]
			case !s.isRule && s.value == v:
				s = Ref[V](with)
			default:
				if syms == nil {
					continue
				}
			}
			if syms == nil {
				syms = make([]Symbol[V], i, len(old))
				copy(syms, old[:i])
			}
			syms = append(syms, s)
		}

		if syms == nil {
			subst[r] = r
			continue
		}
		newID, err := g.addRule(syms)
		if err != nil {
			panic(fmt.Sprintf("substituting into rule %s: %v", r, err))
		}
		subst[r] = newID
	}
	return subst[id], nil
}

// Binarize returns the ID of a rule that expands to the same sequence as id
// and is in Chomsky normal form: every rule reachable from it is either a
// single terminal or a pair of references. Wide rules are split into balanced
// trees of pairs.
func (g *Grammar[V]) Binarize(id RuleID) (RuleID, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.rules.check(id); err != nil {
		return -1, err
	}

	must := func(syms []Symbol[V]) RuleID {
		newID, err := g.addRule(syms)
		if err != nil {
			panic(fmt.Sprintf("binarizing rule %s: %v", id, err))
		}
		return newID
	}

	binary := make(map[RuleID]RuleID)
	for _, r := range g.rules.reachable([]RuleID{id}) {
		old := g.rules[r].symbols
		level := make([]Symbol[V], len(old))
		for i, s := range old {
			if s.isRule {
				level[i] = Ref[V](binary[s.rule])
			} else if len(old) == 1 {
				level[i] = s
			} else {
				level[i] = Ref[V](must([]Symbol[V]{s}))
			}
		}

		if len(level) == 1 {
			if level[0].isRule {
				binary[r] = level[0].rule
			} else {
				binary[r] = must(level)
			}
			continue
		}

		for len(level) > 1 {
			next := make([]Symbol[V], 0, (len(level)+1)/2)
			for i := 0; i+1 < len(level); i += 2 {
				next = append(next, Ref[V](must([]Symbol[V]{level[i], level[i+1]})))
			}
			if len(level)%2 == 1 {
				next = append(next, level[len(level)-1])
			}
			level = next
		}
		binary[r] = level[0].rule
	}
	return binary[id], nil
}
