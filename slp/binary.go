package slp

import (
	"fmt"

	"github.com/dekarrin/rezi"
)

// This file contains the binary encoding of grammars. The encoding is the list
// of rules in ID order, each as its arity followed by its symbols, followed by
// the roots ordered by name.

// MarshalBinary encodes the rules and roots of the Grammar.
func (g *Grammar[V]) MarshalBinary() ([]byte, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if g.codec == nil {
		return nil, fmt.Errorf("grammar has no codec")
	}

	var data []byte
	data = append(data, rezi.EncInt(len(g.rules))...)
	for i := range g.rules {
		syms := g.rules[i].symbols
		data = append(data, rezi.EncInt(len(syms))...)
		for _, s := range syms {
			data = append(data, rezi.EncBool(s.isRule)...)
			if s.isRule {
				data = append(data, rezi.EncInt(int(s.rule))...)
			} else {
				data = append(data, g.codec.EncodeValue(s.value)...)
			}
		}
	}

	roots := sortedRoots(g.roots)
	data = append(data, rezi.EncInt(len(roots))...)
	for _, r := range roots {
		data = append(data, rezi.EncString(r.Name)...)
		data = append(data, rezi.EncInt(int(r.Rule))...)
	}

	return data, nil
}

// UnmarshalBinary replaces the contents of the Grammar with the grammar encoded
// in data. The Grammar must have been created with New so that it has a Codec
// to decode terminals with.
//
// Every rule is checked as it is read; the returned error matches
// ErrMalformedGrammar if any rule refers to itself, to a rule after it, or to a
// rule that is not defined, or if a root names a rule that is not defined. Rules
// in data that duplicate earlier ones are merged, so IDs in the loaded Grammar
// can differ from those in data; roots are remapped to match. Use Load to get
// that mapping. On error the Grammar is left unchanged.
func (g *Grammar[V]) UnmarshalBinary(data []byte) error {
	_, err := g.Load(data)
	return err
}

// Load is UnmarshalBinary that also returns the ID each encoded rule has in the
// loaded Grammar, indexed by the ID it was encoded with.
func (g *Grammar[V]) Load(data []byte) ([]RuleID, error) {
	if g.codec == nil {
		return nil, fmt.Errorf("grammar has no codec; create it with New")
	}

	loaded := New(g.codec)

	ruleCount, n, err := rezi.DecInt(data)
	if err != nil {
		return nil, newError("rule count", err, ErrMalformedGrammar)
	}
	data = data[n:]
	// every rule takes at least a byte, so no count can pass the data left
	if ruleCount < 0 || ruleCount > len(data) {
		return nil, errorf(ErrMalformedGrammar, "rule count %d", ruleCount)
	}

	// remap[i] is the ID in loaded of the i-th encoded rule.
	var remap []RuleID
	for i := 0; i < ruleCount; i++ {
		arity, n, err := rezi.DecInt(data)
		if err != nil {
			return nil, newError(fmt.Sprintf("rule %d: arity", i), err, ErrMalformedGrammar)
		}
		data = data[n:]
		if arity < 1 || arity > len(data) {
			return nil, errorf(ErrMalformedGrammar, "rule %d: arity %d", i, arity)
		}

		syms := make([]Symbol[V], arity)
		for j := range syms {
			isRule, n, err := rezi.DecBool(data)
			if err != nil {
				return nil, newError(fmt.Sprintf("rule %d: symbol %d", i, j), err, ErrMalformedGrammar)
			}
			data = data[n:]

			if isRule {
				ref, n, err := rezi.DecInt(data)
				if err != nil {
					return nil, newError(fmt.Sprintf("rule %d: symbol %d", i, j), err, ErrMalformedGrammar)
				}
				data = data[n:]
				if ref < 0 || ref >= i {
					return nil, errorf(ErrMalformedGrammar, "rule %d: symbol %d refers to rule #%d", i, j, ref)
				}
				syms[j] = Ref[V](remap[ref])
			} else {
				v, n, err := g.codec.DecodeValue(data)
				if err != nil {
					return nil, newError(fmt.Sprintf("rule %d: symbol %d", i, j), err, ErrMalformedGrammar)
				}
				data = data[n:]
				syms[j] = Term(v)
			}
		}

		id, err := loaded.addRule(syms)
		if err != nil {
			return nil, newError(fmt.Sprintf("rule %d", i), err, ErrMalformedGrammar)
		}
		remap = append(remap, id)
	}

	rootCount, n, err := rezi.DecInt(data)
	if err != nil {
		return nil, newError("root count", err, ErrMalformedGrammar)
	}
	data = data[n:]
	if rootCount < 0 || rootCount > len(data) {
		return nil, errorf(ErrMalformedGrammar, "root count %d", rootCount)
	}
	for i := 0; i < rootCount; i++ {
		name, n, err := rezi.DecString(data)
		if err != nil {
			return nil, newError(fmt.Sprintf("root %d: name", i), err, ErrMalformedGrammar)
		}
		data = data[n:]

		ref, n, err := rezi.DecInt(data)
		if err != nil {
			return nil, newError(fmt.Sprintf("root %q", name), err, ErrMalformedGrammar)
		}
		data = data[n:]
		if ref < 0 || ref >= ruleCount {
			return nil, errorf(ErrMalformedGrammar, "root %q refers to rule #%d", name, ref)
		}
		if name == "" {
			return nil, errorf(ErrMalformedGrammar, "root %d has empty name", i)
		}
		loaded.roots[name] = remap[ref]
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.rules = loaded.rules
	g.canon = loaded.canon
	g.roots = loaded.roots
	return remap, nil
}
