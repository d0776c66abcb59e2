package grammar

import (
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// GrammarError reports every defect found in a grammar definition. Loading
// fails on any defect so that a bad project configuration surfaces at
// session start, never at first use.
type GrammarError struct {
	Defects []string
}

func (e *GrammarError) Error() string {
	if len(e.Defects) == 1 {
		return "invalid grammar: " + e.Defects[0]
	}
	return fmt.Sprintf("invalid grammar (%d defects): %s",
		len(e.Defects), strings.Join(e.Defects, "; "))
}

var padRE = regexp.MustCompile(`^%0?\d*d$`)

// Load reads a YAML grammar definition and compiles it, checking every
// name, reference, and constraint. On failure it returns a *GrammarError
// listing all defects found.
func Load(r io.Reader) (*Grammar, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var g Grammar
	if err := dec.Decode(&g); err != nil {
		return nil, &GrammarError{Defects: []string{err.Error()}}
	}
	return compile(&g)
}

// LoadString parses a grammar definition from a string.
func LoadString(s string) (*Grammar, error) {
	return Load(strings.NewReader(s))
}

// LoadFile parses a grammar definition from a file.
func LoadFile(path string) (*Grammar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Load(f)
}

func compile(g *Grammar) (*Grammar, error) {
	c := &compiler{}

	if len(g.Types) == 0 {
		c.defectf("grammar declares no observation types")
	}

	g.typesByName = make(map[string]*ObservationType, len(g.Types))
	for _, t := range g.Types {
		if t.Name == "" {
			c.defectf("observation type with empty name")
			continue
		}
		if _, dup := g.typesByName[t.Name]; dup {
			c.defectf("duplicate observation type name %q", t.Name)
			continue
		}
		g.typesByName[t.Name] = t
		c.compileType(t)
	}

	// Key literals classify document lines, so they must be unique across
	// the whole grammar.
	keyOwners := map[string]string{}
	for _, t := range g.Types {
		if t.items == nil {
			continue
		}
		key := t.Key()
		if owner, dup := keyOwners[key]; dup {
			c.defectf("types %q and %q share key literal %q", owner, t.Name, key)
		} else {
			keyOwners[key] = t.Name
		}
	}

	g.commandsByName = make(map[string]*CommandSpec, len(g.Commands))
	for _, cmd := range g.Commands {
		if cmd.Name == "" {
			c.defectf("command with empty name")
			continue
		}
		if _, dup := g.commandsByName[cmd.Name]; dup {
			c.defectf("duplicate command name %q", cmd.Name)
			continue
		}
		g.commandsByName[cmd.Name] = cmd
		c.compileCommand(g, cmd)
	}

	if len(c.defects) > 0 {
		return nil, &GrammarError{Defects: c.defects}
	}
	return g, nil
}

type compiler struct {
	defects []string
}

func (c *compiler) defectf(format string, args ...interface{}) {
	c.defects = append(c.defects, fmt.Sprintf(format, args...))
}

func (c *compiler) compileType(t *ObservationType) {
	t.byName = make(map[string]*FieldSpec, len(t.Fields))
	ok := true
	for _, f := range t.Fields {
		if f.Name == "" {
			c.defectf("type %q has a field with empty name", t.Name)
			ok = false
			continue
		}
		if _, dup := t.byName[f.Name]; dup {
			c.defectf("type %q has duplicate field name %q", t.Name, f.Name)
			ok = false
			continue
		}
		t.byName[f.Name] = f
		if !c.compileField(t.Name, f) {
			ok = false
		}
	}

	for _, r := range t.Rules {
		c.compileRule(t, r)
	}

	if ok {
		c.compileFormat(t)
	}
}

func (c *compiler) compileField(typeName string, f *FieldSpec) bool {
	before := len(c.defects)

	if !kinds[f.Kind] {
		c.defectf("field %s.%s has unknown kind %q", typeName, f.Name, f.Kind)
		return false
	}

	if (f.Min != nil || f.Max != nil) && !numericKinds[f.Kind] {
		c.defectf("field %s.%s: min/max apply only to numeric kinds, not %s", typeName, f.Name, f.Kind)
	}
	if f.Min != nil && f.Max != nil && *f.Min > *f.Max {
		c.defectf("field %s.%s: min %g exceeds max %g", typeName, f.Name, *f.Min, *f.Max)
	}
	if f.MinExclusive && f.Min == nil {
		c.defectf("field %s.%s: minExclusive without min", typeName, f.Name)
	}
	if f.MaxExclusive && f.Max == nil {
		c.defectf("field %s.%s: maxExclusive without max", typeName, f.Name)
	}
	if f.Kind == Integer {
		if f.MinExclusive || f.MaxExclusive {
			c.defectf("field %s.%s: integer bounds are always inclusive", typeName, f.Name)
		}
		for _, b := range []*float64{f.Min, f.Max} {
			if b != nil && *b != float64(int(*b)) {
				c.defectf("field %s.%s: integer bound %g is not a whole number", typeName, f.Name, *b)
			}
		}
	}

	if f.Values != nil {
		if f.Kind != String {
			c.defectf("field %s.%s: values apply only to string fields", typeName, f.Name)
		} else {
			f.valueSet = make(map[string]bool, len(f.Values))
			for _, v := range f.Values {
				if v == "" {
					c.defectf("field %s.%s: empty string in values set", typeName, f.Name)
				}
				if f.valueSet[v] {
					c.defectf("field %s.%s: duplicate value %q", typeName, f.Name, v)
				}
				f.valueSet[v] = true
			}
		}
	}

	if f.Translations != nil {
		if f.Kind != String {
			c.defectf("field %s.%s: translations apply only to string fields", typeName, f.Name)
		} else if f.valueSet != nil {
			for from, to := range f.Translations {
				if !f.valueSet[to] {
					c.defectf("field %s.%s: translation %q -> %q targets a value outside the values set",
						typeName, f.Name, from, to)
				}
			}
		}
	}

	if f.Width != 0 || f.Pattern != "" {
		if f.Kind != Code {
			c.defectf("field %s.%s: width/pattern apply only to code fields", typeName, f.Name)
		}
		if f.Width < 0 {
			c.defectf("field %s.%s: negative width", typeName, f.Name)
		}
		if f.Pattern != "" {
			re, err := regexp.Compile("^(?:" + f.Pattern + ")$")
			if err != nil {
				c.defectf("field %s.%s: bad pattern %q: %v", typeName, f.Name, f.Pattern, err)
			} else {
				f.patternRE = re
			}
		}
	}

	if f.Default != "" && len(c.defects) == before {
		v, err := f.ParseValue(f.Default)
		if err != nil {
			c.defectf("field %s.%s: bad default %q: %v", typeName, f.Name, f.Default, err)
		} else if vs := f.Check(v); len(vs) > 0 {
			c.defectf("field %s.%s: default %q fails check: %s", typeName, f.Name, f.Default, vs[0].Message)
		} else {
			f.defaultValue = v
		}
	}

	return len(c.defects) == before
}

func (c *compiler) compileRule(t *ObservationType, r *CrossRule) {
	if r.Rule != "order" {
		c.defectf("type %q: unknown cross-field rule %q", t.Name, r.Rule)
		return
	}
	if len(r.Fields) < 2 {
		c.defectf("type %q: order rule needs at least two fields", t.Name)
		return
	}
	var kind Kind
	for i, name := range r.Fields {
		f := t.byName[name]
		if f == nil {
			c.defectf("type %q: order rule references unknown field %q", t.Name, name)
			return
		}
		if !comparableKinds[f.Kind] {
			c.defectf("type %q: order rule field %q has non-comparable kind %s", t.Name, name, f.Kind)
			return
		}
		if i == 0 {
			kind = f.Kind
		} else if f.Kind != kind {
			c.defectf("type %q: order rule mixes kinds %s and %s", t.Name, kind, f.Kind)
			return
		}
	}
}

func (c *compiler) compileFormat(t *ObservationType) {
	if t.Format == "" {
		c.defectf("type %q has no format string", t.Name)
		return
	}

	seen := map[string]bool{}
	keyIndex := -1
	var items []FormatItem

	for _, raw := range strings.Fields(t.Format) {
		if strings.HasPrefix(raw, "{") {
			if !strings.HasSuffix(raw, "}") {
				c.defectf("type %q: bad field item %q: must start with '{' and end with '}'", t.Name, raw)
				return
			}
			name, pad, found := strings.Cut(raw[1:len(raw)-1], ":")
			f := t.byName[name]
			if f == nil {
				c.defectf("type %q: format references unknown field %q", t.Name, name)
				return
			}
			if seen[name] {
				c.defectf("type %q: format references field %q twice", t.Name, name)
				return
			}
			seen[name] = true
			if found {
				if f.Kind != Integer {
					c.defectf("type %q: pad spec on non-integer field %q", t.Name, name)
					return
				}
				if !padRE.MatchString(pad) {
					c.defectf("type %q: bad pad spec %q for field %q", t.Name, pad, name)
					return
				}
			}
			items = append(items, FormatItem{Field: f, Pad: pad})
		} else {
			lit := raw
			key := false
			if strings.HasSuffix(lit, "*") {
				lit = lit[:len(lit)-1]
				key = true
			}
			if lit == "" {
				c.defectf("type %q: empty literal in format %q", t.Name, t.Format)
				return
			}
			if key {
				if keyIndex >= 0 {
					c.defectf("type %q: more than one key literal in format", t.Name)
					return
				}
				keyIndex = len(items)
			}
			items = append(items, FormatItem{Literal: lit, Key: key})
		}
	}

	if keyIndex < 0 {
		c.defectf("type %q: no key literal in format %q", t.Name, t.Format)
		return
	}
	for _, f := range t.Fields {
		if !seen[f.Name] {
			c.defectf("type %q: field %q missing from format", t.Name, f.Name)
			return
		}
	}

	t.items = items
	t.keyIndex = keyIndex
}

func (c *compiler) compileCommand(g *Grammar, cmd *CommandSpec) {
	terse := cmd.Type != ""
	fanout := len(cmd.Targets) > 0
	if terse == fanout {
		c.defectf("command %q must declare exactly one of type or targets", cmd.Name)
		return
	}

	argSeen := map[string]bool{}
	for _, a := range cmd.Args {
		if argSeen[a] {
			c.defectf("command %q: duplicate argument %q", cmd.Name, a)
		}
		argSeen[a] = true
	}

	if terse {
		c.compileTerseCommand(g, cmd)
		return
	}
	c.compileFanoutCommand(g, cmd)
}

func (c *compiler) compileTerseCommand(g *Grammar, cmd *CommandSpec) {
	t := g.Type(cmd.Type)
	if t == nil {
		c.defectf("command %q targets unknown type %q", cmd.Name, cmd.Type)
		return
	}
	for _, a := range cmd.Args {
		if t.Field(a) == nil {
			c.defectf("command %q: argument %q is not a field of type %q", cmd.Name, a, cmd.Type)
		}
	}
	for name, refText := range cmd.Defaults {
		f := t.Field(name)
		if f == nil {
			c.defectf("command %q: default for unknown field %q", cmd.Name, name)
			continue
		}
		c.checkRef(cmd, f, refText, nil)
	}

	// Every required field needs a source: an argument, a command default,
	// or a field default.
	for _, f := range t.Fields {
		if f.Optional || f.defaultValue != nil {
			continue
		}
		if _, ok := cmd.Defaults[f.Name]; ok {
			continue
		}
		if !contains(cmd.Args, f.Name) {
			c.defectf("command %q: required field %s.%s has no argument or default",
				cmd.Name, cmd.Type, f.Name)
		}
	}
}

func (c *compiler) compileFanoutCommand(g *Grammar, cmd *CommandSpec) {
	if len(cmd.Defaults) > 0 {
		c.defectf("command %q: defaults apply to the terse form only", cmd.Name)
	}
	argUsed := map[string]bool{}
	for i, tgt := range cmd.Targets {
		t := g.Type(tgt.Type)
		if t == nil {
			c.defectf("command %q: target %d names unknown type %q", cmd.Name, i, tgt.Type)
			continue
		}
		for name, refText := range tgt.Fields {
			f := t.Field(name)
			if f == nil {
				c.defectf("command %q: target %q maps unknown field %q", cmd.Name, tgt.Type, name)
				continue
			}
			ref := c.checkRef(cmd, f, refText, cmd.Args)
			if ref.Kind == RefArg {
				argUsed[ref.Name] = true
			}
		}
		for _, f := range t.Fields {
			if f.Optional || f.defaultValue != nil {
				continue
			}
			if _, ok := tgt.Fields[f.Name]; !ok {
				c.defectf("command %q: required field %s.%s has no mapping or default",
					cmd.Name, tgt.Type, f.Name)
			}
		}
	}
	for _, a := range cmd.Args {
		if !argUsed[a] {
			c.defectf("command %q: argument %q is never used by any target", cmd.Name, a)
		}
	}
}

// checkRef validates one default or target-field reference against its
// destination field and returns the parsed reference.
func (c *compiler) checkRef(cmd *CommandSpec, f *FieldSpec, refText string, args []string) Ref {
	ref, err := ParseRef(refText, args)
	if err != nil {
		c.defectf("command %q: field %q: %v", cmd.Name, f.Name, err)
		return ref
	}
	switch ref.Kind {
	case RefTime:
		if f.Kind != Time {
			c.defectf("command %q: $time reference on non-time field %q", cmd.Name, f.Name)
		}
	case RefDate:
		if f.Kind != Date {
			c.defectf("command %q: $date reference on non-date field %q", cmd.Name, f.Name)
		}
	case RefSerial:
		if f.Kind != Integer {
			c.defectf("command %q: $serial reference on non-integer field %q", cmd.Name, f.Name)
		}
	case RefLiteral:
		v, err := f.ParseInput(ref.Name)
		if err != nil {
			c.defectf("command %q: bad literal %q for field %q: %v", cmd.Name, refText, f.Name, err)
		} else if vs := f.Check(v); len(vs) > 0 {
			c.defectf("command %q: literal %q fails field %q check: %s", cmd.Name, refText, f.Name, vs[0].Message)
		}
	}
	return ref
}

func contains(ss []string, s string) bool {
	for _, x := range ss {
		if x == s {
			return true
		}
	}
	return false
}
