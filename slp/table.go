package slp

import (
	"math/bits"
	"sort"
)

// rules with at most this many symbols are searched linearly during random
// access; wider ones use binary search over the prefix lengths.
const linearScanMax = 8

// rule is a single immutable entry of the rule table. Its expansion length and
// the lengths of every prefix of its right-hand side are computed once when it
// is created.
type rule[V comparable] struct {
	symbols []Symbol[V]

	// prefix[i] is the length of the expansion of symbols[:i], so
	// prefix[len(symbols)] is the length of the whole rule.
	prefix []uint64

	// depth is 1 for a rule made only of terminals, and otherwise one more
	// than the deepest rule it refers to.
	depth int
}

func (r *rule[V]) length() uint64 {
	return r.prefix[len(r.symbols)]
}

// locate returns the index of the symbol whose expansion covers offset. offset
// must be less than r.length().
func (r *rule[V]) locate(offset uint64) int {
	if len(r.symbols) <= linearScanMax {
		for i := 1; i < len(r.prefix); i++ {
			if offset < r.prefix[i] {
				return i - 1
			}
		}
		return len(r.symbols) - 1
	}
	return sort.Search(len(r.symbols), func(i int) bool {
		return r.prefix[i+1] > offset
	})
}

// table is the append-only rule store shared by Grammar and Snapshot. All read
// algorithms live on it so that both can run them; it does no locking of its
// own.
type table[V comparable] []rule[V]

func (t table[V]) valid(id RuleID) bool {
	return id >= 0 && int(id) < len(t)
}

func (t table[V]) check(id RuleID) error {
	if !t.valid(id) {
		return errorf(ErrInvalidReference, "rule %s", id)
	}
	return nil
}

// newRule builds the rule for syms, computing its prefix lengths and depth
// from the already-indexed rules it refers to. All references in syms must
// already be valid.
func (t table[V]) newRule(syms []Symbol[V]) (rule[V], error) {
	r := rule[V]{
		symbols: make([]Symbol[V], len(syms)),
		prefix:  make([]uint64, len(syms)+1),
		depth:   1,
	}
	copy(r.symbols, syms)

	for i, s := range syms {
		symLen := uint64(1)
		if s.isRule {
			child := &t[s.rule]
			symLen = child.length()
			if child.depth+1 > r.depth {
				r.depth = child.depth + 1
			}
		}
		sum, carry := bits.Add64(r.prefix[i], symLen, 0)
		if carry != 0 {
			return rule[V]{}, newError("rule length does not fit in 64 bits", ErrTooLong)
		}
		r.prefix[i+1] = sum
	}

	return r, nil
}

func (t table[V]) length(id RuleID) (uint64, error) {
	if err := t.check(id); err != nil {
		return 0, err
	}
	return t[id].length(), nil
}

func (t table[V]) at(id RuleID, offset uint64) (V, error) {
	var zero V
	if err := t.check(id); err != nil {
		return zero, err
	}
	if offset >= t[id].length() {
		return zero, errorf(ErrOutOfRange, "offset %d in rule %s of length %d", offset, id, t[id].length())
	}

	for {
		r := &t[id]
		i := r.locate(offset)
		sym := r.symbols[i]
		if !sym.isRule {
			return sym.value, nil
		}
		offset -= r.prefix[i]
		id = sym.rule
	}
}

type frame struct {
	rule RuleID
	next int
}

// each calls fn with every value in the expansion of id, in order, until fn
// returns false. It returns false if fn stopped the iteration. It uses memory
// proportional to the depth of id, not its length.
func (t table[V]) each(id RuleID, fn func(V) bool) bool {
	stack := []frame{{rule: id}}
	for len(stack) > 0 {
		top := len(stack) - 1
		r := &t[stack[top].rule]
		if stack[top].next >= len(r.symbols) {
			stack = stack[:top]
			continue
		}
		sym := r.symbols[stack[top].next]
		stack[top].next++

		if sym.isRule {
			stack = append(stack, frame{rule: sym.rule})
			continue
		}
		if !fn(sym.value) {
			return false
		}
	}
	return true
}

// expand returns the full expansion of id. If limit is greater than 0 and the
// expansion is longer than limit, an error matching ErrTooLong is returned
// without expanding anything.
func (t table[V]) expand(id RuleID, limit uint64) ([]V, error) {
	if err := t.check(id); err != nil {
		return nil, err
	}
	n := t[id].length()
	if limit > 0 && n > limit {
		return nil, errorf(ErrTooLong, "rule %s has length %d, limit is %d", id, n, limit)
	}
	if n > uint64(maxExpandable) {
		return nil, errorf(ErrTooLong, "rule %s has length %d", id, n)
	}

	out := make([]V, 0, int(n))
	t.each(id, func(v V) bool {
		out = append(out, v)
		return true
	})
	return out, nil
}

// the largest expansion that could ever be held in a slice.
const maxExpandable = int(^uint(0) >> 1)

// reachable returns the IDs of every rule reachable from the given roots, in
// ascending order.
func (t table[V]) reachable(roots []RuleID) []RuleID {
	seen := make([]bool, len(t))
	var stack []RuleID
	for _, id := range roots {
		if !seen[id] {
			seen[id] = true
			stack = append(stack, id)
		}
	}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, s := range t[id].symbols {
			if s.isRule && !seen[s.rule] {
				seen[s.rule] = true
				stack = append(stack, s.rule)
			}
		}
	}

	var ids []RuleID
	for i := range seen {
		if seen[i] {
			ids = append(ids, RuleID(i))
		}
	}
	return ids
}
