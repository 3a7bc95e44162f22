package skg

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/dekarrin/skein/slp"
	"golang.org/x/text/cases"
)

var (
	labelRegexp = regexp.MustCompile(`^[\p{L}_][\p{L}\p{N}_.\-]*$`)
	labelFolder = cases.Fold()
)

// ErrUnknownTarget is returned by Resolve when nothing is known by the given
// name.
var ErrUnknownTarget = errors.New("no rule or root by that name")

func parseManifest(skg topLevelManifest) (Manifest, error) {
	manif := Manifest{
		Files: skg.Files,
	}

	return manif, nil
}

// NormalizeLabel checks that label is a valid rule label and returns it in the
// case-folded form that Definition.Labels is keyed by.
func NormalizeLabel(label string) (string, error) {
	if label == "" {
		return "", fmt.Errorf("label cannot be empty")
	}
	if !labelRegexp.MatchString(label) {
		return "", fmt.Errorf("label %q must start with a letter or underscore and contain only letters, digits, '_', '.', and '-'", label)
	}
	return labelFolder.String(label), nil
}

// Resolve gives the rule referred to by target, which is checked in order as a
// rule label, a root name, and finally an ID of the form "#N".
func (def Definition) Resolve(target string) (slp.RuleID, error) {
	if norm, err := NormalizeLabel(target); err == nil {
		if id, ok := def.Labels[norm]; ok {
			return id, nil
		}
	}
	if root, ok := def.Grammar.Root(target); ok {
		return root.Rule, nil
	}
	if strings.HasPrefix(target, "#") {
		n, err := strconv.Atoi(target[1:])
		if err != nil {
			return 0, fmt.Errorf("%q is not a valid rule ID", target)
		}
		id := slp.RuleID(n)
		if n < 0 || n >= def.Grammar.Len() {
			return 0, fmt.Errorf("%w: %s", slp.ErrInvalidReference, id)
		}
		return id, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownTarget, target)
}

// parseData builds a Definition from unmarshaled data. Rules are built in the
// order given and may only refer to labels of rules that came before them,
// which is what keeps every loaded grammar acyclic.
func parseData(skg topLevelData) (Definition, error) {
	def := NewDefinition()

	for i, r := range skg.Rules {
		label, err := NormalizeLabel(r.Label)
		if err != nil {
			return Definition{}, fmt.Errorf("rule[%d]: %w", i, err)
		}
		if _, dup := def.Labels[label]; dup {
			return Definition{}, fmt.Errorf("rule[%d]: %w: label %q is already defined", i, slp.ErrMalformedGrammar, r.Label)
		}

		id, err := def.buildRule(r)
		if err != nil {
			return Definition{}, fmt.Errorf("rule %q: %w", r.Label, err)
		}
		def.Labels[label] = id
	}

	for i, root := range skg.Roots {
		if root.Name == "" {
			return Definition{}, fmt.Errorf("root[%d]: name cannot be empty", i)
		}
		id, err := def.labeled(root.Rule)
		if err != nil {
			return Definition{}, fmt.Errorf("root %q: %w", root.Name, err)
		}
		if _, err := def.Grammar.AddRoot(id, root.Name); err != nil {
			return Definition{}, fmt.Errorf("root %q: %w", root.Name, err)
		}
	}

	return def, nil
}

func (def Definition) buildRule(r ruleDef) (slp.RuleID, error) {
	kinds := 0
	for _, set := range []bool{len(r.Symbols) > 0, r.Sequence != "", len(r.Concat) > 0, r.Repeat != nil, r.Extract != nil} {
		if set {
			kinds++
		}
	}
	if kinds != 1 {
		return 0, fmt.Errorf("%w: must give exactly one of 'symbols', 'sequence', 'concat', 'repeat', or 'extract'", slp.ErrMalformedGrammar)
	}

	g := def.Grammar

	switch {
	case len(r.Symbols) > 0:
		syms := make([]slp.Symbol[string], len(r.Symbols))
		for i, s := range r.Symbols {
			if strings.HasPrefix(s, "'") {
				if len(s) == 1 {
					return 0, fmt.Errorf("symbols[%d]: terminal cannot be empty", i)
				}
				syms[i] = slp.Term(s[1:])
				continue
			}
			id, err := def.labeled(s)
			if err != nil {
				return 0, fmt.Errorf("symbols[%d]: %w", i, err)
			}
			syms[i] = slp.Ref[string](id)
		}
		return g.AddRule(syms...)
	case r.Sequence != "":
		var text []string
		for _, ch := range r.Sequence {
			text = append(text, string(ch))
		}
		return g.FromSequence(text)
	case len(r.Concat) > 0:
		ids := make([]slp.RuleID, len(r.Concat))
		for i, l := range r.Concat {
			id, err := def.labeled(l)
			if err != nil {
				return 0, fmt.Errorf("concat[%d]: %w", i, err)
			}
			ids[i] = id
		}
		return g.ConcatAll(ids...)
	case r.Repeat != nil:
		id, err := def.labeled(r.Repeat.Of)
		if err != nil {
			return 0, fmt.Errorf("repeat: %w", err)
		}
		return g.Repeat(id, r.Repeat.Times)
	default:
		id, err := def.labeled(r.Extract.Of)
		if err != nil {
			return 0, fmt.Errorf("extract: %w", err)
		}
		if r.Extract.Start < 0 || r.Extract.End < 0 {
			return 0, fmt.Errorf("extract: %w: bounds cannot be negative", slp.ErrOutOfRange)
		}
		return g.Extract(id, uint64(r.Extract.Start), uint64(r.Extract.End))
	}
}

// labeled gives the rule with the given label. Only labels defined so far are
// known, so a forward reference fails the same as an undefined one.
func (def Definition) labeled(label string) (slp.RuleID, error) {
	norm, err := NormalizeLabel(label)
	if err != nil {
		return 0, err
	}
	id, ok := def.Labels[norm]
	if !ok {
		return 0, fmt.Errorf("%w: no rule labeled %q is defined before this point", slp.ErrMalformedGrammar, label)
	}
	return id, nil
}
