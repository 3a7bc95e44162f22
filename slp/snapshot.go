package slp

// Snapshot is a read-only view of a Grammar at the time Freeze was called. It
// takes no locks, so any number of goroutines may query it at once while the
// Grammar it came from continues to grow.
type Snapshot[V comparable] struct {
	rules table[V]
	roots map[string]RuleID
}

// Len returns the number of rules in the Snapshot.
func (s *Snapshot[V]) Len() int {
	return len(s.rules)
}

// Rule returns a copy of the right-hand side of the rule.
func (s *Snapshot[V]) Rule(id RuleID) ([]Symbol[V], error) {
	if err := s.rules.check(id); err != nil {
		return nil, err
	}
	syms := make([]Symbol[V], len(s.rules[id].symbols))
	copy(syms, s.rules[id].symbols)
	return syms, nil
}

// Length returns the length of the expansion of the rule.
func (s *Snapshot[V]) Length(id RuleID) (uint64, error) {
	return s.rules.length(id)
}

// At returns the value at the given offset of the expansion of the rule. See
// Grammar.At.
func (s *Snapshot[V]) At(id RuleID, offset uint64) (V, error) {
	return s.rules.at(id, offset)
}

// Expand returns the full expansion of the rule. See Grammar.Expand.
func (s *Snapshot[V]) Expand(id RuleID) ([]V, error) {
	return s.rules.expand(id, 0)
}

// Each calls fn with every value of the expansion of the rule in order, until
// fn returns false.
func (s *Snapshot[V]) Each(id RuleID, fn func(v V) bool) error {
	if err := s.rules.check(id); err != nil {
		return err
	}
	s.rules.each(id, fn)
	return nil
}

// Equal returns whether two rules expand to the same sequence. See
// Grammar.Equal.
func (s *Snapshot[V]) Equal(a, b RuleID) (bool, error) {
	return s.rules.equal(a, b)
}

// Root returns the root with the given name.
func (s *Snapshot[V]) Root(name string) (Root, bool) {
	id, ok := s.roots[name]
	if !ok {
		return Root{}, false
	}
	return Root{Name: name, Rule: id}, true
}

// Roots returns all roots of the Snapshot ordered by name.
func (s *Snapshot[V]) Roots() []Root {
	return sortedRoots(s.roots)
}
