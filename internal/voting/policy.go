package voting

import (
	"strconv"
	"strings"

	"golang.org/x/text/cases"
)

// ArgumentRule constrains the argument string given when a vote starts.
type ArgumentRule int

const (
	ArgsMustBeEmpty ArgumentRule = iota
	ArgsMustBeNonEmpty
	ArgsCustom
)

// Lifecycle tells whether a vote survives the end of the current song.
type Lifecycle int

const (
	PersistsUntilQuorum Lifecycle = iota
	CancelledOnResourceEnd
)

// Policy is the fixed voting rule for one command.
type Policy struct {
	Name      string
	Arguments ArgumentRule
	// Validate is consulted for ArgsCustom only.
	Validate  func(args string) bool
	Usage     string
	Lifecycle Lifecycle
}

func (p Policy) Accepts(args string) bool {
	switch p.Arguments {
	case ArgsMustBeEmpty:
		return args == ""
	case ArgsMustBeNonEmpty:
		return args != ""
	default:
		return p.Validate != nil && p.Validate(args)
	}
}

var policies = map[string]Policy{
	"pause":    {Name: "pause", Arguments: ArgsMustBeEmpty, Usage: "!vote pause", Lifecycle: PersistsUntilQuorum},
	"previous": {Name: "previous", Arguments: ArgsMustBeEmpty, Usage: "!vote previous", Lifecycle: CancelledOnResourceEnd},
	"stop":     {Name: "stop", Arguments: ArgsMustBeEmpty, Usage: "!vote stop", Lifecycle: PersistsUntilQuorum},
	"clear":    {Name: "clear", Arguments: ArgsMustBeEmpty, Usage: "!vote clear", Lifecycle: PersistsUntilQuorum},
	"front":    {Name: "front", Arguments: ArgsMustBeNonEmpty, Usage: "!vote front <song>", Lifecycle: PersistsUntilQuorum},
	"skip":     {Name: "skip", Arguments: ArgsCustom, Validate: optionalCount, Usage: "!vote skip [count]", Lifecycle: CancelledOnResourceEnd},
}

// Lookup finds the policy for a command name, ignoring case.
func Lookup(name string) (Policy, bool) {
	p, ok := policies[cases.Fold().String(strings.TrimSpace(name))]
	return p, ok
}

// Names lists the votable commands.
func Names() []string {
	return []string{"clear", "front", "pause", "previous", "skip", "stop"}
}

func optionalCount(args string) bool {
	if args == "" {
		return true
	}
	n, err := strconv.Atoi(args)
	return err == nil && n > 0
}
