// Package slp implements straight-line programs: grammars in which every rule
// expands to exactly one sequence, used as a compressed representation of long
// sequences that can be queried and edited without being expanded.
//
// A Grammar is an append-only table of rules. Each rule is an ordered,
// non-empty list of symbols, any mix of terminals (values of the alphabet V)
// and references to other rules. A rule may only refer to rules that already
// exist when it is added, so the rules always form a DAG and every rule has a
// finite length, which is computed once when the rule is created. Adding a
// rule whose right-hand side is identical to that of an existing rule returns
// the existing rule instead of creating a new one.
//
// Operations that edit sequences (Concat, Repeat, Extract) never modify or
// expand existing rules; they add new rules that share structure with the old
// ones and return the ID of the rule for the result.
package slp

import (
	"encoding/binary"
	"fmt"
	"sort"
	"sync"

	"github.com/zeebo/blake3"
)

// Root is a named handle on a rule of a Grammar. A Grammar can expose several
// named sequences that share rules with each other.
type Root struct {
	Name string
	Rule RuleID
}

// Stats is a summary of the size of a Grammar.
type Stats struct {
	// Rules is the number of rules in the Grammar.
	Rules int

	// Roots is the number of named roots in the Grammar.
	Roots int

	// Symbols is the total number of symbols across the right-hand sides of
	// all rules.
	Symbols int

	// MaxDepth is the greatest depth of any rule in the Grammar.
	MaxDepth int
}

// Grammar is a straight-line program over the alphabet V. It is safe for
// concurrent use; adding a rule is a single atomic step with respect to other
// callers, and any number of readers may run at once.
//
// The zero value is not ready for use; create one with New.
type Grammar[V comparable] struct {
	mu    sync.RWMutex
	codec Codec[V]
	rules table[V]
	canon map[[32]byte][]RuleID
	roots map[string]RuleID
}

// New creates a new empty Grammar that uses codec to key and encode its
// terminal values.
func New[V comparable](codec Codec[V]) *Grammar[V] {
	return &Grammar[V]{
		codec: codec,
		canon: make(map[[32]byte][]RuleID),
		roots: make(map[string]RuleID),
	}
}

// Codec returns the Codec that g was created with.
func (g *Grammar[V]) Codec() Codec[V] {
	return g.codec
}

// AddRule adds a rule with the given right-hand side and returns its ID. If a
// rule with an identical right-hand side already exists, its ID is returned
// and the Grammar is not changed.
//
// The returned error, if non-nil, matches ErrInvalidReference if any symbol
// refers to a rule that does not exist, ErrInvalidArgument if no symbols are
// given, and ErrTooLong if the length of the rule would not fit in a uint64.
// A failed call has no effect on the Grammar.
func (g *Grammar[V]) AddRule(symbols ...Symbol[V]) (RuleID, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.addRule(symbols)
}

// Canonicalize is the same as AddRule. It is the name under which callers that
// build grammars bottom-up usually think of the operation: it returns the one
// ID that the given right-hand side is known by.
func (g *Grammar[V]) Canonicalize(symbols ...Symbol[V]) (RuleID, error) {
	return g.AddRule(symbols...)
}

// Lookup returns the ID of the existing rule with exactly the given
// right-hand side. It never adds a rule.
func (g *Grammar[V]) Lookup(symbols ...Symbol[V]) (RuleID, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if len(symbols) == 0 {
		return -1, false
	}
	return g.lookup(g.key(symbols), symbols)
}

// Terminal returns the ID of the rule consisting of only the terminal v,
// adding it if needed.
func (g *Grammar[V]) Terminal(v V) RuleID {
	id, _ := g.AddRule(Term(v))
	return id
}

// Rule returns a copy of the right-hand side of the rule with the given ID.
func (g *Grammar[V]) Rule(id RuleID) ([]Symbol[V], error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if err := g.rules.check(id); err != nil {
		return nil, err
	}
	syms := make([]Symbol[V], len(g.rules[id].symbols))
	copy(syms, g.rules[id].symbols)
	return syms, nil
}

// Len returns the number of rules in the Grammar.
func (g *Grammar[V]) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return len(g.rules)
}

// Length returns the length of the expansion of the rule. It takes constant
// time.
func (g *Grammar[V]) Length(id RuleID) (uint64, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return g.rules.length(id)
}

// Depth returns the height of the rule in the DAG. A rule made only of
// terminals has depth 1.
func (g *Grammar[V]) Depth(id RuleID) (int, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if err := g.rules.check(id); err != nil {
		return 0, err
	}
	return g.rules[id].depth, nil
}

// At returns the value at the given offset of the expansion of the rule,
// without expanding it. The time taken is proportional to the depth of the
// rule (times the log of the arity of the widest rule on the way down), not to
// its length.
//
// The returned error, if non-nil, matches ErrOutOfRange if offset is not less
// than the length of the rule and ErrInvalidReference if the rule does not
// exist.
func (g *Grammar[V]) At(id RuleID, offset uint64) (V, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return g.rules.at(id, offset)
}

// Expand returns the full expansion of the rule. Its cost is proportional to
// the length of the rule, which may be exponential in the size of the Grammar;
// callers should check Length first or use ExpandLimit.
func (g *Grammar[V]) Expand(id RuleID) ([]V, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return g.rules.expand(id, 0)
}

// ExpandLimit is like Expand but returns an error matching ErrTooLong, without
// doing any expansion, if the rule is longer than limit.
func (g *Grammar[V]) ExpandLimit(id RuleID, limit uint64) ([]V, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if limit == 0 {
		return nil, newError("limit must be at least 1", ErrInvalidArgument)
	}
	return g.rules.expand(id, limit)
}

// Each calls fn with every value of the expansion of the rule in order, until
// fn returns false. It uses memory proportional to the depth of the rule. The
// Grammar is read-locked for the duration of the call, so fn must not add
// rules to g.
func (g *Grammar[V]) Each(id RuleID, fn func(v V) bool) error {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if err := g.rules.check(id); err != nil {
		return err
	}
	g.rules.each(id, fn)
	return nil
}

// Equal returns whether two rules expand to the same sequence. Rules that are
// the same rule are compared in constant time, as are rules of different
// lengths; otherwise the expansions are compared in step, skipping over any
// rule that both are positioned at the start of at the same time.
func (g *Grammar[V]) Equal(a, b RuleID) (bool, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return g.rules.equal(a, b)
}

// AddRoot gives the rule a name and returns the handle for it. If the name is
// already in use, it is re-pointed at the rule.
func (g *Grammar[V]) AddRoot(id RuleID, name string) (Root, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if name == "" {
		return Root{}, newError("root name cannot be empty", ErrInvalidArgument)
	}
	if err := g.rules.check(id); err != nil {
		return Root{}, err
	}
	g.roots[name] = id
	return Root{Name: name, Rule: id}, nil
}

// Root returns the root with the given name.
func (g *Grammar[V]) Root(name string) (Root, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	id, ok := g.roots[name]
	if !ok {
		return Root{}, false
	}
	return Root{Name: name, Rule: id}, true
}

// RemoveRoot removes the root with the given name. The rules it referred to
// stay in the Grammar. Returns whether there was such a root.
func (g *Grammar[V]) RemoveRoot(name string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	_, ok := g.roots[name]
	delete(g.roots, name)
	return ok
}

// Roots returns all roots of the Grammar ordered by name.
func (g *Grammar[V]) Roots() []Root {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return sortedRoots(g.roots)
}

// TotalLength returns the length of the sequence named by the root.
func (g *Grammar[V]) TotalLength(name string) (uint64, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	id, ok := g.roots[name]
	if !ok {
		return 0, errorf(ErrInvalidReference, "no root named %q", name)
	}
	return g.rules.length(id)
}

// Stats returns a summary of the size of the Grammar.
func (g *Grammar[V]) Stats() Stats {
	g.mu.RLock()
	defer g.mu.RUnlock()

	st := Stats{
		Rules: len(g.rules),
		Roots: len(g.roots),
	}
	for i := range g.rules {
		st.Symbols += len(g.rules[i].symbols)
		if g.rules[i].depth > st.MaxDepth {
			st.MaxDepth = g.rules[i].depth
		}
	}
	return st
}

// Freeze returns a read-only view of the Grammar as it is now. The Snapshot
// takes no locks; rules added to g afterwards are not visible through it.
func (g *Grammar[V]) Freeze() *Snapshot[V] {
	g.mu.RLock()
	defer g.mu.RUnlock()

	roots := make(map[string]RuleID, len(g.roots))
	for k, v := range g.roots {
		roots[k] = v
	}

	return &Snapshot[V]{
		rules: g.rules[:len(g.rules):len(g.rules)],
		roots: roots,
	}
}

// Prune returns a new Grammar that contains only the rules reachable from the
// roots of g, along with the same roots. The second return value maps the
// IDs of the kept rules in g to their IDs in the new Grammar.
func (g *Grammar[V]) Prune() (*Grammar[V], map[RuleID]RuleID) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var rootIDs []RuleID
	for _, id := range g.roots {
		rootIDs = append(rootIDs, id)
	}
	keep := g.rules.reachable(rootIDs)

	pruned := New(g.codec)
	remap := make(map[RuleID]RuleID, len(keep))

	// ascending order means every child is remapped before its parents.
	for _, oldID := range keep {
		old := g.rules[oldID].symbols
		syms := make([]Symbol[V], len(old))
		for i, s := range old {
			if s.isRule {
				s.rule = remap[s.rule]
			}
			syms[i] = s
		}
		newID, err := pruned.addRule(syms)
		if err != nil {
			// g is acyclic and its lengths already fit, so this cannot fail.
			panic(fmt.Sprintf("pruning rule %s: %v", oldID, err))
		}
		remap[oldID] = newID
	}
	for name, id := range g.roots {
		pruned.roots[name] = remap[id]
	}

	return pruned, remap
}

// addRule must be called with the write lock held.
func (g *Grammar[V]) addRule(syms []Symbol[V]) (RuleID, error) {
	if len(syms) == 0 {
		return -1, newError("rule must have at least one symbol", ErrInvalidArgument)
	}
	for i := range syms {
		if syms[i].isRule && !g.rules.valid(syms[i].rule) {
			return -1, errorf(ErrInvalidReference, "symbol %d refers to rule %s", i, syms[i].rule)
		}
	}

	key := g.key(syms)
	if id, ok := g.lookup(key, syms); ok {
		return id, nil
	}

	r, err := g.rules.newRule(syms)
	if err != nil {
		return -1, err
	}

	id := RuleID(len(g.rules))
	g.rules = append(g.rules, r)
	g.canon[key] = append(g.canon[key], id)
	return id, nil
}

func (g *Grammar[V]) lookup(key [32]byte, syms []Symbol[V]) (RuleID, bool) {
	// more than one entry per key only happens on a digest collision.
	for _, id := range g.canon[key] {
		if symbolsEqual(g.rules[id].symbols, syms) {
			return id, true
		}
	}
	return -1, false
}

// key returns the structural key of a right-hand side. Terminals contribute
// their encoded value and non-terminals the ID of the rule they refer to; as
// rules are themselves canonical, equal keys mean equal rules.
func (g *Grammar[V]) key(syms []Symbol[V]) [32]byte {
	var buf []byte
	for _, s := range syms {
		if s.isRule {
			buf = append(buf, 1)
			buf = binary.AppendUvarint(buf, uint64(s.rule))
		} else {
			buf = append(buf, 0)
			buf = append(buf, g.codec.EncodeValue(s.value)...)
		}
	}
	return blake3.Sum256(buf)
}

func sortedRoots(roots map[string]RuleID) []Root {
	all := make([]Root, 0, len(roots))
	for name, id := range roots {
		all = append(all, Root{Name: name, Rule: id})
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].Name < all[j].Name
	})
	return all
}
