// Package shell carries out shell commands against a grammar being edited and
// produces the text to show for them.
package shell

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dekarrin/rosed"
	"github.com/dekarrin/skein/internal/command"
	"github.com/dekarrin/skein/internal/skg"
	"github.com/dekarrin/skein/internal/usererr"
	"github.com/dekarrin/skein/slp"
)

// DefaultExpandMax is the longest expansion that EXPAND prints when no maximum
// is given.
const DefaultExpandMax = 1000

// showSymbolsMax is how many symbols of a rule are listed in the RULES table.
const showSymbolsMax = 8

var commandHelp = [][2]string{
	{"HELP [verb]", "show this help, or help on a single command"},
	{"RULE name = 'a 'b x", "define a rule from terminals (written with a leading ') and other rules"},
	{"CONCAT/CAT name = x y...", "define a rule that is the given rules one after another"},
	{"REPEAT name = x COUNT", "define a rule that is x repeated COUNT times"},
	{"EXTRACT name = x START END", "define a rule that is the part of x from START up to but not including END"},
	{"REVERSE/REV name = x", "define a rule that is x backwards"},
	{"SUBST name = x 'v y", "define a rule that is x with every v replaced by all of y"},
	{"BINARIZE/CNF name = x", "define a rule equal to x where every rule is one terminal or two rules"},
	{"ROOT name x", "name x as one of the sequences of the grammar"},
	{"LEN x", "show the length of x"},
	{"AT x OFFSET", "show the value at OFFSET in x"},
	{"COUNT x 'v", "show how many times v occurs in x"},
	{"EXPAND x [MAX]", fmt.Sprintf("print all of x if it is no longer than MAX (default %d)", DefaultExpandMax)},
	{"EQUALS/EQ x y", "show whether x and y expand to the same sequence"},
	{"RULES/LS", "list every rule"},
	{"ROOTS", "list every root"},
	{"SHOW x", "show the definition of x"},
	{"STATS", "show the size of the grammar"},
	{"PRUNE", "remove every rule that no root uses"},
	{"SAVE file", "save the grammar; the format is chosen by extension (.skg, .skgb, .skgb.xz)"},
	{"LOAD file", "replace the grammar with the one in file"},
	{"QUIT/BYE", "leave the shell"},
}

var textFormatOptions = rosed.Options{
	PreserveParagraphs: true,
	IndentStr:          "  ",
}

// State is the grammar being edited in a shell session.
type State struct {
	// Def is the grammar and the labels of its rules.
	Def skg.Definition

	// Width is the width that output is wrapped to.
	Width int
}

// New creates a new State that edits def. If def has no Grammar, an empty one
// is created.
func New(def skg.Definition, width int) *State {
	if def.Grammar == nil {
		def = skg.NewDefinition()
	}
	return &State{Def: def, Width: width}
}

// Advance carries out the given command and returns the output to show for
// it. Errors that should be shown to the user are created with package
// usererr.
//
// QUIT is not a valid command here, as it is on the controlling engine to end
// the session.
func (st *State) Advance(cmd command.Command) (string, error) {
	switch cmd.Verb {
	case "QUIT":
		return "", usererr.Errorf("I can't QUIT; I'm not being run by a quitable engine")
	case "RULE":
		return st.ExecuteCommandRule(cmd)
	case "CONCAT":
		return st.ExecuteCommandConcat(cmd)
	case "REPEAT":
		return st.ExecuteCommandRepeat(cmd)
	case "EXTRACT":
		return st.ExecuteCommandExtract(cmd)
	case "REVERSE":
		return st.ExecuteCommandReverse(cmd)
	case "SUBST":
		return st.ExecuteCommandSubst(cmd)
	case "BINARIZE":
		return st.ExecuteCommandBinarize(cmd)
	case "ROOT":
		return st.ExecuteCommandRoot(cmd)
	case "LEN":
		return st.ExecuteCommandLen(cmd)
	case "AT":
		return st.ExecuteCommandAt(cmd)
	case "COUNT":
		return st.ExecuteCommandCount(cmd)
	case "EXPAND":
		return st.ExecuteCommandExpand(cmd)
	case "EQUALS":
		return st.ExecuteCommandEquals(cmd)
	case "RULES":
		return st.ExecuteCommandRules(cmd)
	case "ROOTS":
		return st.ExecuteCommandRoots(cmd)
	case "SHOW":
		return st.ExecuteCommandShow(cmd)
	case "STATS":
		return st.ExecuteCommandStats(cmd)
	case "PRUNE":
		return st.ExecuteCommandPrune(cmd)
	case "SAVE":
		return st.ExecuteCommandSave(cmd)
	case "LOAD":
		return st.ExecuteCommandLoad(cmd)
	case "HELP":
		return st.ExecuteCommandHelp(cmd)
	default:
		return "", usererr.Errorf("I don't know how to %q", cmd.Verb)
	}
}

// ExecuteCommandRule executes the RULE command with the arguments in the
// provided Command and returns the output.
func (st *State) ExecuteCommandRule(cmd command.Command) (string, error) {
	syms := make([]slp.Symbol[string], len(cmd.Args))
	for i, arg := range cmd.Args {
		if strings.HasPrefix(arg, "'") {
			v, err := terminal(arg)
			if err != nil {
				return "", err
			}
			syms[i] = slp.Term(v)
			continue
		}
		id, err := st.resolve(arg)
		if err != nil {
			return "", err
		}
		syms[i] = slp.Ref[string](id)
	}

	id, err := st.Def.Grammar.AddRule(syms...)
	if err != nil {
		return "", usererr.Wrapf(err, "Can't define %s: %s", cmd.Name, reason(err))
	}
	return st.define(cmd.Name, id)
}

// ExecuteCommandConcat executes the CONCAT command with the arguments in the
// provided Command and returns the output.
func (st *State) ExecuteCommandConcat(cmd command.Command) (string, error) {
	ids, err := st.resolveAll(cmd.Args)
	if err != nil {
		return "", err
	}

	id, err := st.Def.Grammar.ConcatAll(ids...)
	if err != nil {
		return "", usererr.Wrapf(err, "Can't concatenate those: %s", reason(err))
	}
	return st.define(cmd.Name, id)
}

// ExecuteCommandRepeat executes the REPEAT command with the arguments in the
// provided Command and returns the output.
func (st *State) ExecuteCommandRepeat(cmd command.Command) (string, error) {
	id, err := st.resolve(cmd.Args[0])
	if err != nil {
		return "", err
	}
	k, err := strconv.Atoi(cmd.Args[1])
	if err != nil {
		return "", usererr.Errorf("%q is not a number of times to repeat", cmd.Args[1])
	}

	rep, err := st.Def.Grammar.Repeat(id, k)
	if err != nil {
		return "", usererr.Wrapf(err, "Can't repeat %s %d times: %s", cmd.Args[0], k, reason(err))
	}
	return st.define(cmd.Name, rep)
}

// ExecuteCommandExtract executes the EXTRACT command with the arguments in the
// provided Command and returns the output.
func (st *State) ExecuteCommandExtract(cmd command.Command) (string, error) {
	id, err := st.resolve(cmd.Args[0])
	if err != nil {
		return "", err
	}
	start, err := st.offset(cmd.Args[1], cmd.Args[0], id)
	if err != nil {
		return "", err
	}
	end, err := st.offset(cmd.Args[2], cmd.Args[0], id)
	if err != nil {
		return "", err
	}

	ext, err := st.Def.Grammar.Extract(id, start, end)
	if err != nil {
		return "", usererr.Wrapf(err, "Can't extract [%d, %d) from %s: %s", start, end, cmd.Args[0], reason(err))
	}
	return st.define(cmd.Name, ext)
}

// ExecuteCommandReverse executes the REVERSE command with the arguments in the
// provided Command and returns the output.
func (st *State) ExecuteCommandReverse(cmd command.Command) (string, error) {
	id, err := st.resolve(cmd.Args[0])
	if err != nil {
		return "", err
	}
	rev, err := st.Def.Grammar.Reverse(id)
	if err != nil {
		return "", usererr.Wrapf(err, "Can't reverse %s: %s", cmd.Args[0], reason(err))
	}
	return st.define(cmd.Name, rev)
}

// ExecuteCommandSubst executes the SUBST command with the arguments in the
// provided Command and returns the output.
func (st *State) ExecuteCommandSubst(cmd command.Command) (string, error) {
	id, err := st.resolve(cmd.Args[0])
	if err != nil {
		return "", err
	}
	v, err := terminal(cmd.Args[1])
	if err != nil {
		return "", err
	}
	with, err := st.resolve(cmd.Args[2])
	if err != nil {
		return "", err
	}

	sub, err := st.Def.Grammar.Substitute(id, v, with)
	if err != nil {
		return "", usererr.Wrapf(err, "Can't replace %q in %s: %s", v, cmd.Args[0], reason(err))
	}
	return st.define(cmd.Name, sub)
}

// ExecuteCommandBinarize executes the BINARIZE command with the arguments in
// the provided Command and returns the output.
func (st *State) ExecuteCommandBinarize(cmd command.Command) (string, error) {
	id, err := st.resolve(cmd.Args[0])
	if err != nil {
		return "", err
	}
	bin, err := st.Def.Grammar.Binarize(id)
	if err != nil {
		return "", usererr.Wrapf(err, "Can't binarize %s: %s", cmd.Args[0], reason(err))
	}
	return st.define(cmd.Name, bin)
}

// ExecuteCommandRoot executes the ROOT command with the arguments in the
// provided Command and returns the output.
func (st *State) ExecuteCommandRoot(cmd command.Command) (string, error) {
	id, err := st.resolve(cmd.Args[0])
	if err != nil {
		return "", err
	}
	if _, err := st.Def.Grammar.AddRoot(id, cmd.Name); err != nil {
		return "", usererr.Wrapf(err, "Can't make root %s: %s", cmd.Name, reason(err))
	}
	return fmt.Sprintf("Root %s is now %s", cmd.Name, st.describe(id)), nil
}

// ExecuteCommandLen executes the LEN command with the arguments in the
// provided Command and returns the output.
func (st *State) ExecuteCommandLen(cmd command.Command) (string, error) {
	id, err := st.resolve(cmd.Args[0])
	if err != nil {
		return "", err
	}
	n, err := st.Def.Grammar.Length(id)
	if err != nil {
		return "", usererr.Wrapf(err, "Can't get the length of %s: %s", cmd.Args[0], reason(err))
	}
	return strconv.FormatUint(n, 10), nil
}

// ExecuteCommandAt executes the AT command with the arguments in the provided
// Command and returns the output.
func (st *State) ExecuteCommandAt(cmd command.Command) (string, error) {
	id, err := st.resolve(cmd.Args[0])
	if err != nil {
		return "", err
	}
	off, err := st.offset(cmd.Args[1], cmd.Args[0], id)
	if err != nil {
		return "", err
	}

	v, err := st.Def.Grammar.At(id, off)
	if err != nil {
		if errors.Is(err, slp.ErrOutOfRange) {
			return "", st.outOfRange(err, cmd.Args[0], id)
		}
		return "", usererr.Wrapf(err, "Can't look in %s: %s", cmd.Args[0], reason(err))
	}
	return strconv.Quote(v), nil
}

// ExecuteCommandCount executes the COUNT command with the arguments in the
// provided Command and returns the output.
func (st *State) ExecuteCommandCount(cmd command.Command) (string, error) {
	id, err := st.resolve(cmd.Args[0])
	if err != nil {
		return "", err
	}
	v, err := terminal(cmd.Args[1])
	if err != nil {
		return "", err
	}

	n, err := st.Def.Grammar.Count(id, v)
	if err != nil {
		return "", usererr.Wrapf(err, "Can't count in %s: %s", cmd.Args[0], reason(err))
	}
	return strconv.FormatUint(n, 10), nil
}

// ExecuteCommandExpand executes the EXPAND command with the arguments in the
// provided Command and returns the output.
func (st *State) ExecuteCommandExpand(cmd command.Command) (string, error) {
	id, err := st.resolve(cmd.Args[0])
	if err != nil {
		return "", err
	}
	var limit uint64 = DefaultExpandMax
	if len(cmd.Args) > 1 {
		limit, err = parseOffset(cmd.Args[1])
		if err != nil {
			return "", err
		}
	}

	vals, err := st.Def.Grammar.ExpandLimit(id, limit)
	if err != nil {
		if errors.Is(err, slp.ErrTooLong) {
			n, _ := st.Def.Grammar.Length(id)
			return "", usererr.Wrapf(err, "%s has %d values, more than %d; give a bigger MAX to EXPAND it anyway", cmd.Args[0], n, limit)
		}
		return "", usererr.Wrapf(err, "Can't expand %s: %s", cmd.Args[0], reason(err))
	}
	return JoinValues(vals), nil
}

// ExecuteCommandEquals executes the EQUALS command with the arguments in the
// provided Command and returns the output.
func (st *State) ExecuteCommandEquals(cmd command.Command) (string, error) {
	ids, err := st.resolveAll(cmd.Args)
	if err != nil {
		return "", err
	}
	eq, err := st.Def.Grammar.Equal(ids[0], ids[1])
	if err != nil {
		return "", usererr.Wrapf(err, "Can't compare those: %s", reason(err))
	}
	if eq {
		return fmt.Sprintf("%s and %s are equal", cmd.Args[0], cmd.Args[1]), nil
	}
	return fmt.Sprintf("%s and %s are not equal", cmd.Args[0], cmd.Args[1]), nil
}

// ExecuteCommandRules executes the RULES command with the arguments in the
// provided Command and returns the output.
func (st *State) ExecuteCommandRules(cmd command.Command) (string, error) {
	g := st.Def.Grammar
	if g.Len() == 0 {
		return "There are no rules yet; define one with RULE", nil
	}

	data := [][]string{{"Rule", "Labels", "Length", "Depth", "Symbols"}}
	for id := slp.RuleID(0); int(id) < g.Len(); id++ {
		syms, _ := g.Rule(id)
		n, _ := g.Length(id)
		depth, _ := g.Depth(id)

		shown := syms
		if len(shown) > showSymbolsMax {
			shown = shown[:showSymbolsMax]
		}
		rendered := st.renderSymbols(shown)
		if len(shown) < len(syms) {
			rendered += fmt.Sprintf(" ...(%d more)", len(syms)-len(shown))
		}

		data = append(data, []string{
			id.String(),
			strings.Join(st.Def.LabelsOf(id), ", "),
			strconv.FormatUint(n, 10),
			strconv.Itoa(depth),
			rendered,
		})
	}

	return st.table(data), nil
}

// ExecuteCommandRoots executes the ROOTS command with the arguments in the
// provided Command and returns the output.
func (st *State) ExecuteCommandRoots(cmd command.Command) (string, error) {
	roots := st.Def.Grammar.Roots()
	if len(roots) == 0 {
		return "There are no roots yet; name one with ROOT", nil
	}

	data := [][]string{{"Root", "Rule", "Length"}}
	for _, r := range roots {
		n, _ := st.Def.Grammar.Length(r.Rule)
		data = append(data, []string{r.Name, st.nameOf(r.Rule), strconv.FormatUint(n, 10)})
	}

	return st.table(data), nil
}

// ExecuteCommandShow executes the SHOW command with the arguments in the
// provided Command and returns the output.
func (st *State) ExecuteCommandShow(cmd command.Command) (string, error) {
	id, err := st.resolve(cmd.Args[0])
	if err != nil {
		return "", err
	}
	syms, err := st.Def.Grammar.Rule(id)
	if err != nil {
		return "", usererr.Wrapf(err, "Can't show %s: %s", cmd.Args[0], reason(err))
	}
	depth, _ := st.Def.Grammar.Depth(id)
	size, _ := st.Def.Grammar.Complexity(id)

	var roots []string
	for _, r := range st.Def.Grammar.Roots() {
		if r.Rule == id {
			roots = append(roots, r.Name)
		}
	}

	defs := [][2]string{
		{"Rule", id.String()},
		{"Labels", strings.Join(st.Def.LabelsOf(id), ", ")},
		{"Roots", strings.Join(roots, ", ")},
		{"Length", st.lengthOf(id)},
		{"Depth", strconv.Itoa(depth)},
		{"Complexity", strconv.Itoa(size)},
		{"Symbols", st.renderSymbols(syms)},
	}

	output := rosed.Edit("").WithOptions(
		textFormatOptions.
			WithParagraphSeparator("\n").
			WithNoTrailingLineSeparators(true)).
		InsertDefinitionsTable(rosed.End, defs, st.Width).String()
	return output, nil
}

// ExecuteCommandStats executes the STATS command with the arguments in the
// provided Command and returns the output.
func (st *State) ExecuteCommandStats(cmd command.Command) (string, error) {
	stats := st.Def.Grammar.Stats()
	data := [][]string{
		{"Rules", "Roots", "Labels", "Symbols", "Max Depth"},
		{
			strconv.Itoa(stats.Rules),
			strconv.Itoa(stats.Roots),
			strconv.Itoa(len(st.Def.Labels)),
			strconv.Itoa(stats.Symbols),
			strconv.Itoa(stats.MaxDepth),
		},
	}
	return st.table(data), nil
}

// ExecuteCommandPrune executes the PRUNE command with the arguments in the
// provided Command and returns the output. Labels of removed rules are removed
// along with them.
func (st *State) ExecuteCommandPrune(cmd command.Command) (string, error) {
	if len(st.Def.Grammar.Roots()) == 0 {
		return "", usererr.Errorf("There are no roots, so PRUNE would remove every rule; make a ROOT first")
	}

	before := st.Def.Grammar.Len()
	st.Def = PruneDefinition(st.Def)
	after := st.Def.Grammar.Len()

	return fmt.Sprintf("Removed %d rules; %d remain", before-after, after), nil
}

// ExecuteCommandSave executes the SAVE command with the arguments in the
// provided Command and returns the output.
func (st *State) ExecuteCommandSave(cmd command.Command) (string, error) {
	if err := skg.SaveFile(cmd.Args[0], st.Def); err != nil {
		return "", usererr.Wrapf(err, "Couldn't save: %v", err)
	}
	return fmt.Sprintf("Saved %d rules to %s", st.Def.Grammar.Len(), cmd.Args[0]), nil
}

// ExecuteCommandLoad executes the LOAD command with the arguments in the
// provided Command and returns the output.
func (st *State) ExecuteCommandLoad(cmd command.Command) (string, error) {
	def, err := skg.LoadFile(cmd.Args[0])
	if err != nil {
		return "", usererr.Wrapf(err, "Couldn't load: %v", err)
	}
	st.Def = def
	return fmt.Sprintf("Loaded %d rules and %d roots from %s", def.Grammar.Len(), len(def.Grammar.Roots()), cmd.Args[0]), nil
}

// ExecuteCommandHelp executes the HELP command with the arguments in the
// provided Command and returns the output.
func (st *State) ExecuteCommandHelp(cmd command.Command) (string, error) {
	ed := rosed.Edit("").WithOptions(
		textFormatOptions.
			WithParagraphSeparator("\n").
			WithNoTrailingLineSeparators(true))

	if len(cmd.Args) > 0 {
		verb := cmd.Args[0]
		for _, entry := range commandHelp {
			names := strings.Fields(entry[0])[0]
			for _, n := range strings.Split(names, "/") {
				if n == verb {
					return ed.
						Insert(rosed.End, "Usage: "+command.Usage(verb)+"\n").
						InsertDefinitionsTable(rosed.End, [][2]string{entry}, st.Width).String(), nil
				}
			}
		}
		return "", usererr.Errorf("There is no command %q", verb)
	}

	output := ed.
		Insert(rosed.End, "Here are the commands you can use. Wherever x is shown, give a rule label, a root name, or a rule ID such as #3:\n").
		InsertDefinitionsTable(rosed.End, commandHelp, st.Width).String()

	return output, nil
}

// PruneDefinition returns a copy of def that has only the rules reachable from
// its roots. Labels of kept rules are carried over to their new IDs and the
// rest are dropped.
func PruneDefinition(def skg.Definition) skg.Definition {
	pruned, remap := def.Grammar.Prune()
	labels := make(map[string]slp.RuleID, len(def.Labels))
	for l, id := range def.Labels {
		if newID, ok := remap[id]; ok {
			labels[l] = newID
		}
	}
	return skg.Definition{Grammar: pruned, Labels: labels}
}

// JoinValues gives the text of an expansion. Values are run together when they
// are all single characters and separated by spaces otherwise.
func JoinValues(vals []string) string {
	for _, v := range vals {
		if len([]rune(v)) != 1 {
			return strings.Join(vals, " ")
		}
	}
	return strings.Join(vals, "")
}

// define points label name at id and gives the output for it.
func (st *State) define(name string, id slp.RuleID) (string, error) {
	label, err := skg.NormalizeLabel(name)
	if err != nil {
		return "", usererr.Wrapf(err, "Can't use %q as a label: %v", name, err)
	}

	msg := fmt.Sprintf("%s is %s", name, st.describe(id))
	if old, ok := st.Def.Labels[label]; ok && old != id {
		msg += fmt.Sprintf(" (it was %s)", old)
	}
	st.Def.Labels[label] = id
	return msg, nil
}

func (st *State) describe(id slp.RuleID) string {
	return fmt.Sprintf("%s, length %s", id, st.lengthOf(id))
}

func (st *State) lengthOf(id slp.RuleID) string {
	n, err := st.Def.Grammar.Length(id)
	if err != nil {
		return "?"
	}
	return strconv.FormatUint(n, 10)
}

// nameOf gives the first label of the rule, or its ID if it has none.
func (st *State) nameOf(id slp.RuleID) string {
	labels := st.Def.LabelsOf(id)
	if len(labels) > 0 {
		return labels[0]
	}
	return id.String()
}

func (st *State) renderSymbols(syms []slp.Symbol[string]) string {
	parts := make([]string, len(syms))
	for i, s := range syms {
		if s.IsTerminal() {
			parts[i] = "'" + s.Value()
		} else {
			parts[i] = st.nameOf(s.Rule())
		}
	}
	return strings.Join(parts, " ")
}

func (st *State) table(data [][]string) string {
	tableOpts := rosed.Options{
		TableHeaders:             true,
		NoTrailingLineSeparators: true,
	}
	return rosed.Edit("").
		InsertTableOpts(0, data, st.Width, tableOpts).
		String()
}

func (st *State) resolve(target string) (slp.RuleID, error) {
	id, err := st.Def.Resolve(target)
	if err != nil {
		if strings.HasPrefix(target, "#") {
			return 0, usererr.Wrapf(err, "There is no rule %s", target)
		}
		return 0, usererr.Wrapf(err, "There is no rule or root called %q", target)
	}
	return id, nil
}

func (st *State) resolveAll(targets []string) ([]slp.RuleID, error) {
	ids := make([]slp.RuleID, len(targets))
	for i, t := range targets {
		id, err := st.resolve(t)
		if err != nil {
			return nil, err
		}
		ids[i] = id
	}
	return ids, nil
}

// terminal gives the value of a terminal typed as 'v.
func terminal(arg string) (string, error) {
	if !strings.HasPrefix(arg, "'") {
		return "", usererr.Errorf("%q is not a terminal; write terminals with a leading ', like 'a", arg)
	}
	if len(arg) == 1 {
		return "", usererr.Errorf("A terminal needs a value after the '")
	}
	return arg[1:], nil
}

// offset parses an offset into the rule that target names. Negative offsets
// are out of range.
func (st *State) offset(s, target string, id slp.RuleID) (uint64, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return parseOffset(s)
	}
	if n < 0 {
		return 0, st.outOfRange(slp.ErrOutOfRange, target, id)
	}
	return uint64(n), nil
}

func (st *State) outOfRange(err error, target string, id slp.RuleID) error {
	n, _ := st.Def.Grammar.Length(id)
	return usererr.Wrapf(err, "%s only has %d values; the last offset is %d", target, n, n-1)
}

func parseOffset(s string) (uint64, error) {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, usererr.Errorf("%q is not a whole number", s)
	}
	return n, nil
}

// reason gives a short explanation of an error from package slp.
func reason(err error) string {
	switch {
	case errors.Is(err, slp.ErrTooLong):
		return "the result would be too long"
	case errors.Is(err, slp.ErrOutOfRange):
		return "that goes past the end"
	case errors.Is(err, slp.ErrInvalidReference):
		return "that refers to a rule that doesn't exist"
	default:
		return err.Error()
	}
}
