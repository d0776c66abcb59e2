// Package grammar defines the data model for a Maka project grammar, the
// observation types and shorthand commands of one field-research project,
// and its YAML loader. Every structural defect a grammar can have surfaces
// at load time; after a successful load all lookups are total and the
// grammar is read-only.
package grammar

// Observation format strings:
//   Format  := Item { ' ' Item }
//   Item    := '{' FieldName [ ':' Pad ] '}' | Literal
//   Pad     := a printf integer verb such as '%05d' (integer fields only)
//   Literal := any non-whitespace text, optionally ending in '*'
//
// Each field of the type appears in exactly one item. Exactly one literal is
// starred; that *key* literal classifies a document line as being of this
// type, so key literals must be unique across the grammar's types.

// FormatItem is one compiled item of an observation format string: either a
// field reference or a literal.
type FormatItem struct {
	Field   *FieldSpec // nil for literal items
	Pad     string     // printf verb for integer fields, e.g. "%05d"
	Literal string
	Key     bool
}

// CrossRule is a rule spanning several fields of one observation type.
// The only rule kind is "order": the named fields, where set, must be
// non-decreasing in declaration order. All named fields must share one
// comparable kind.
type CrossRule struct {
	Rule   string   `yaml:"rule"`
	Fields []string `yaml:"fields"`
}

// ObservationType declares one observation shape: an ordered field sequence
// and the format string that serializes it to a document line.
type ObservationType struct {
	Name   string       `yaml:"name"`
	Format string       `yaml:"format"`
	Fields []*FieldSpec `yaml:"fields"`
	Rules  []*CrossRule `yaml:"rules"`

	items    []FormatItem
	keyIndex int
	byName   map[string]*FieldSpec
}

// Field returns the named field spec, or nil if the type has no such field.
func (t *ObservationType) Field(name string) *FieldSpec { return t.byName[name] }

// Items returns the compiled format items in serialization order.
func (t *ObservationType) Items() []FormatItem { return t.items }

// KeyIndex returns the token position of the type's key literal.
func (t *ObservationType) KeyIndex() int { return t.keyIndex }

// Key returns the text of the type's key literal.
func (t *ObservationType) Key() string { return t.items[t.keyIndex].Literal }

// CommandTarget names one observation type a fan-out command produces, with
// a mapping from field names to value references: "$<arg>" for a command
// argument, "$time"/"$date"/"$serial:<counter>" for computed values, or
// literal wire text.
type CommandTarget struct {
	Type   string            `yaml:"type"`
	Fields map[string]string `yaml:"fields"`
}

// CommandSpec declares one shorthand command. A command uses either the
// terse form (Type plus Args naming fields of that type, with Defaults
// filling the rest) or the fan-out form, an ordered Targets list each
// building one observation. Args are positional; a command invocation may
// supply any prefix of them.
type CommandSpec struct {
	Name     string            `yaml:"name"`
	Type     string            `yaml:"type"`
	Args     []string          `yaml:"args"`
	Defaults map[string]string `yaml:"defaults"`
	Targets  []*CommandTarget  `yaml:"targets"`
}

// Grammar is the full set of observation types and commands for one project,
// read-only after load.
type Grammar struct {
	Name     string             `yaml:"name"`
	Types    []*ObservationType `yaml:"types"`
	Commands []*CommandSpec     `yaml:"commands"`

	typesByName    map[string]*ObservationType
	commandsByName map[string]*CommandSpec
}

// Type returns the named observation type, or nil if the grammar has none.
func (g *Grammar) Type(name string) *ObservationType { return g.typesByName[name] }

// Command returns the command with the given trigger name, or nil.
func (g *Grammar) Command(name string) *CommandSpec { return g.commandsByName[name] }
