package command

import (
	"strings"

	"github.com/dekarrin/skein/internal/usererr"
)

var (
	// VerbAliases maps shorthand verbs (which must be the first word in a
	// command) to their canonical forms. They are all uppercase.
	VerbAliases = map[string]string{
		"DEF":    "RULE",
		"CAT":    "CONCAT",
		"REP":    "REPEAT",
		"SLICE":  "EXTRACT",
		"SUB":    "EXTRACT",
		"LENGTH": "LEN",
		"GET":    "AT",
		"PRINT":  "EXPAND",
		"EQ":     "EQUALS",
		"EQUAL":  "EQUALS",
		"LS":     "RULES",
		"DESC":   "SHOW",
		"INFO":   "STATS",
		"GC":     "PRUNE",
		"REV":    "REVERSE",
		"REPL":   "SUBST",
		"CNF":    "BINARIZE",
		"OCC":    "COUNT",
		"WRITE":  "SAVE",
		"OPEN":   "LOAD",
		"READ":   "LOAD",
		"BYE":    "QUIT",
		"EXIT":   "QUIT",
		"?":      "HELP",
		"/?":     "HELP",
		"/H":     "HELP",
		"-H":     "HELP",
		"H":      "HELP",
	}
)

// argCount gives, for each verb that is not an assignment, the minimum and
// maximum number of arguments it takes.
var argCount = map[string][2]int{
	"ROOT":   {2, 2},
	"LEN":    {1, 1},
	"AT":     {2, 2},
	"COUNT":  {2, 2},
	"EXPAND": {1, 2},
	"EQUALS": {2, 2},
	"RULES":  {0, 0},
	"ROOTS":  {0, 0},
	"SHOW":   {1, 1},
	"STATS":  {0, 0},
	"PRUNE":  {0, 0},
	"SAVE":   {1, 1},
	"LOAD":   {1, 1},
	"HELP":   {0, 1},
	"QUIT":   {0, 0},
}

// assignCount gives, for each verb of the form "VERB name = args...", the
// minimum and maximum number of arguments after the '='. A maximum of -1 means
// there is no maximum.
var assignCount = map[string][2]int{
	"RULE":     {1, -1},
	"CONCAT":   {1, -1},
	"REPEAT":   {2, 2},
	"EXTRACT":  {3, 3},
	"REVERSE":  {1, 1},
	"SUBST":    {3, 3},
	"BINARIZE": {1, 1},
}

var usage = map[string]string{
	"RULE":     "RULE name = 'a 'b other",
	"CONCAT":   "CONCAT name = x y ...",
	"REPEAT":   "REPEAT name = x COUNT",
	"EXTRACT":  "EXTRACT name = x START END",
	"ROOT":     "ROOT name x",
	"LEN":      "LEN x",
	"AT":       "AT x OFFSET",
	"COUNT":    "COUNT x 'v",
	"REVERSE":  "REVERSE name = x",
	"SUBST":    "SUBST name = x 'v y",
	"BINARIZE": "BINARIZE name = x",
	"EXPAND":   "EXPAND x [MAX]",
	"EQUALS":   "EQUALS x y",
	"SHOW":     "SHOW x",
	"SAVE":     "SAVE file",
	"LOAD":     "LOAD file",
	"HELP":     "HELP [verb]",
}

// Usage gives the usage line for the verb, or the verb itself if it takes no
// arguments.
func Usage(verb string) string {
	if u, ok := usage[verb]; ok {
		return u
	}
	return verb
}

// ParseCommand parses a command from the given text. If it cannot, a non-nil
// error is returned.
//
// Only the verb is case-insensitive; arguments keep the case they were typed
// with, since terminals are case-sensitive.
//
// If an empty string or a string composed only of whitespace is passed in, nil
// error is returned and a zero value for Command will be returned.
func ParseCommand(toParse string) (Command, error) {
	var parsedCmd Command

	// now tokenize our string, collapsing all whitespace
	tokens := strings.Fields(toParse)

	// some simple sanity checking, make sure we at least have a command
	if len(tokens) < 1 {
		return parsedCmd, nil
	}

	// allow "name=" and "=x" to be typed without spaces around the '='
	tokens = splitAssignment(tokens)

	verb := ExpandAlias(strings.ToUpper(tokens[0]))
	args := tokens[1:]

	if counts, ok := assignCount[verb]; ok {
		if len(args) < 2 || args[1] != "=" {
			return parsedCmd, usererr.Errorf("%s needs a name to define; type it as: %s", verb, Usage(verb))
		}
		parsedCmd.Verb = verb
		parsedCmd.Name = args[0]
		parsedCmd.Args = args[2:]
		if !countOK(len(parsedCmd.Args), counts) {
			return Command{}, usererr.Errorf("Wrong number of arguments to %s; type it as: %s", verb, Usage(verb))
		}
		return parsedCmd, nil
	}

	counts, ok := argCount[verb]
	if !ok {
		return parsedCmd, usererr.Errorf("I don't know what you mean by %q", tokens[0])
	}
	if !countOK(len(args), counts) {
		if counts[1] == 0 {
			return parsedCmd, usererr.Errorf("%s takes no arguments; type %s by itself", verb, tokens[0])
		}
		return parsedCmd, usererr.Errorf("Wrong number of arguments to %s; type it as: %s", verb, Usage(verb))
	}

	parsedCmd.Verb = verb
	if verb == "ROOT" {
		parsedCmd.Name = args[0]
		args = args[1:]
	}
	if verb == "HELP" && len(args) > 0 {
		args = []string{ExpandAlias(strings.ToUpper(args[0]))}
	}
	if len(args) > 0 {
		parsedCmd.Args = args
	}

	return parsedCmd, nil
}

// ExpandAlias returns the canonical verb for the given uppercase verb. Verbs
// that are not aliases are returned unchanged.
func ExpandAlias(verb string) string {
	if expansion, ok := VerbAliases[verb]; ok {
		return expansion
	}
	return verb
}

func countOK(n int, counts [2]int) bool {
	return n >= counts[0] && (counts[1] < 0 || n <= counts[1])
}

func splitAssignment(tokens []string) []string {
	var split []string
	seenEq := false
	for i, tok := range tokens {
		// only the name and the token after it can be glued to the '='
		if seenEq || i == 0 || i > 2 || !strings.Contains(tok, "=") {
			split = append(split, tok)
			continue
		}
		seenEq = true
		parts := strings.SplitN(tok, "=", 2)
		if parts[0] != "" {
			split = append(split, parts[0])
		}
		split = append(split, "=")
		if parts[1] != "" {
			split = append(split, parts[1])
		}
	}
	return split
}
