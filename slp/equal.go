package slp

// cursor walks the expansion of a rule one symbol at a time without expanding
// any non-terminal until asked to. It is the unit of the merge-compare done by
// equal.
type cursor[V comparable] struct {
	t     table[V]
	stack []frame
}

func newCursor[V comparable](t table[V], id RuleID) *cursor[V] {
	return &cursor[V]{t: t, stack: []frame{{rule: id}}}
}

// peek returns the next symbol at the current position, discarding any rules
// that have been fully walked. ok is false once the expansion is exhausted.
func (c *cursor[V]) peek() (sym Symbol[V], ok bool) {
	for len(c.stack) > 0 {
		top := c.stack[len(c.stack)-1]
		r := &c.t[top.rule]
		if top.next < len(r.symbols) {
			return r.symbols[top.next], true
		}
		c.stack = c.stack[:len(c.stack)-1]
	}
	return sym, false
}

// skip moves past the symbol that peek returned.
func (c *cursor[V]) skip() {
	c.stack[len(c.stack)-1].next++
}

// descend replaces the non-terminal that peek returned with its right-hand
// side.
func (c *cursor[V]) descend() {
	sym, _ := c.peek()
	c.skip()
	c.stack = append(c.stack, frame{rule: sym.rule})
}

// equal reports whether a and b expand to the same sequence. Identical rules
// are equal at once and rules of different lengths are unequal at once.
// Otherwise both expansions are walked in step; whenever both sides are
// positioned at the start of the same rule, that rule is skipped over whole,
// so shared structure is never expanded.
func (t table[V]) equal(a, b RuleID) (bool, error) {
	if err := t.check(a); err != nil {
		return false, err
	}
	if err := t.check(b); err != nil {
		return false, err
	}
	if a == b {
		return true, nil
	}
	if t[a].length() != t[b].length() {
		return false, nil
	}

	ca := newCursor(t, a)
	cb := newCursor(t, b)
	for {
		sa, okA := ca.peek()
		sb, okB := cb.peek()
		if !okA || !okB {
			return okA == okB, nil
		}

		switch {
		case sa.isRule && sb.isRule:
			if sa.rule == sb.rule {
				ca.skip()
				cb.skip()
				continue
			}
			lenA := t[sa.rule].length()
			lenB := t[sb.rule].length()
			if lenA >= lenB {
				ca.descend()
			}
			if lenB >= lenA {
				cb.descend()
			}
		case sa.isRule:
			ca.descend()
		case sb.isRule:
			cb.descend()
		default:
			if sa.value != sb.value {
				return false, nil
			}
			ca.skip()
			cb.skip()
		}
	}
}
