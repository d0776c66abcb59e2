package grammar

import (
	"fmt"
	"strings"
)

// RefKind identifies what a command field reference resolves to.
type RefKind int

const (
	// RefLiteral is literal wire text.
	RefLiteral RefKind = iota
	// RefArg copies a positional command argument.
	RefArg
	// RefTime is the current time of day from the expansion context.
	RefTime
	// RefDate is the current date from the expansion context.
	RefDate
	// RefSerial draws the next number from a named document-scoped counter.
	RefSerial
)

// Ref is a resolved command field reference.
type Ref struct {
	Kind RefKind
	// Name is the argument name for RefArg, the counter name for RefSerial,
	// and the literal text for RefLiteral.
	Name string
}

// ParseRef interprets a command field reference string. References start
// with '$'; anything else is a literal. args lists the command's declared
// argument names; pass nil to disallow "$<arg>" references, as in terse-form
// defaults.
func ParseRef(s string, args []string) (Ref, error) {
	if !strings.HasPrefix(s, "$") {
		return Ref{Kind: RefLiteral, Name: s}, nil
	}
	switch {
	case s == "$time":
		return Ref{Kind: RefTime}, nil
	case s == "$date":
		return Ref{Kind: RefDate}, nil
	case strings.HasPrefix(s, "$serial:"):
		name := s[len("$serial:"):]
		if name == "" {
			return Ref{}, fmt.Errorf("serial reference %q names no counter", s)
		}
		return Ref{Kind: RefSerial, Name: name}, nil
	}
	name := s[1:]
	for _, a := range args {
		if a == name {
			return Ref{Kind: RefArg, Name: name}, nil
		}
	}
	return Ref{}, fmt.Errorf("unknown reference %q", s)
}
