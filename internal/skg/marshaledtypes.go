package skg

type topLevelManifest struct {
	Format string   `toml:"format"`
	Type   string   `toml:"type"`
	Files  []string `toml:"files"`
}

// topLevelData is the top-level structure containing all keys in a complete
// SKG 'DATA' type file.
type topLevelData struct {
	Format string    `toml:"format"`
	Type   string    `toml:"type"`
	Rules  []ruleDef `toml:"rule,omitempty"`
	Roots  []rootDef `toml:"root,omitempty"`
}

// ruleDef is a single [[rule]] entry. Exactly one of the ways to give its body
// must be set.
type ruleDef struct {
	Label string `toml:"label"`

	// Symbols is the right-hand side written out; entries beginning with a
	// single quote are terminals, all others are labels of earlier rules.
	Symbols []string `toml:"symbols,omitempty"`

	// Sequence is raw text; each character becomes a terminal and the rule is
	// built up in balanced form.
	Sequence string `toml:"sequence,omitempty"`

	Concat  []string    `toml:"concat,omitempty"`
	Repeat  *repeatDef  `toml:"repeat,omitempty"`
	Extract *extractDef `toml:"extract,omitempty"`
}

type repeatDef struct {
	Of    string `toml:"of"`
	Times int    `toml:"times"`
}

type extractDef struct {
	Of    string `toml:"of"`
	Start int64  `toml:"start"`
	End   int64  `toml:"end"`
}

type rootDef struct {
	Name string `toml:"name"`
	Rule string `toml:"rule,omitempty"`
}
