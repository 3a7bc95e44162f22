package slp

import "fmt"

// RuleID identifies a rule within a single Grammar. IDs are dense and assigned
// in creation order, so a rule can only ever refer to IDs smaller than its
// own.
type RuleID int

// String gives the ID in the "#N" form used by the shell and file formats.
func (id RuleID) String() string {
	return fmt.Sprintf("#%d", int(id))
}

// Symbol is a single entry in the right-hand side of a rule. It is either a
// terminal holding a value from the alphabet or a non-terminal referring to
// another rule. The zero value is a terminal holding the zero value of V.
//
// Symbol should be created with Term or Ref.
type Symbol[V comparable] struct {
	isRule bool
	value  V
	rule   RuleID
}

// Term returns a terminal Symbol for v.
func Term[V comparable](v V) Symbol[V] {
	return Symbol[V]{value: v}
}

// Ref returns a non-terminal Symbol that refers to the rule with the given ID.
func Ref[V comparable](id RuleID) Symbol[V] {
	return Symbol[V]{isRule: true, rule: id}
}

// Terms returns a terminal Symbol for each of the given values, in order.
func Terms[V comparable](values ...V) []Symbol[V] {
	syms := make([]Symbol[V], len(values))
	for i := range values {
		syms[i] = Term(values[i])
	}
	return syms
}

// IsTerminal returns whether the Symbol is a terminal.
func (s Symbol[V]) IsTerminal() bool {
	return !s.isRule
}

// Value returns the terminal value. It is the zero value of V for a
// non-terminal.
func (s Symbol[V]) Value() V {
	if s.isRule {
		var zero V
		return zero
	}
	return s.value
}

// Rule returns the ID of the referenced rule. It is -1 for a terminal.
func (s Symbol[V]) Rule() RuleID {
	if !s.isRule {
		return -1
	}
	return s.rule
}

// String shows a terminal as its value in Go syntax and a non-terminal as its
// rule ID.
func (s Symbol[V]) String() string {
	if s.isRule {
		return s.rule.String()
	}
	return fmt.Sprintf("%#v", s.value)
}

func symbolsEqual[V comparable](s1, s2 []Symbol[V]) bool {
	if len(s1) != len(s2) {
		return false
	}
	for i := range s1 {
		if s1[i] != s2[i] {
			return false
		}
	}
	return true
}
