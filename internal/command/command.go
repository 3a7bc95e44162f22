// Package command defines shell command data types and handles parsing of
// commands from input sources.
package command

// Command is a valid command received from a shell input source.
type Command struct {

	// Verb is the canonical name of the command being invoked, such as "RULE",
	// "EXPAND", or "QUIT". Some verbs have shorthand forms which are typed
	// differently, for instance "CAT" could be typed instead of "CONCAT", and
	// for all those cases they would result in a Command with the canonical
	// verb.
	Verb string

	// Name is the label being defined by an assignment command such as
	// "REPEAT x = y 3", or the root name for ROOT. It is empty for all other
	// verbs.
	Name string

	// Args is the rest of the arguments, in the case they were typed in.
	Args []string
}
