// Package command expands terse typed commands into validated observations.
package command

import (
	"fmt"
	"time"

	"github.com/makadata/maka/data"
	"github.com/makadata/maka/format"
	"github.com/makadata/maka/grammar"
	"github.com/makadata/maka/validate"
)

// Expansion failure reasons.
const (
	ReasonUnknownCommand     = "unknown-command"
	ReasonMalformedCommand   = "malformed-command"
	ReasonInvalidObservation = "invalid-observation"
)

// ExpansionError reports why a command produced no observations. Reason is
// one of the Reason constants; Err carries the underlying parse error or
// violation list when there is one.
type ExpansionError struct {
	Reason  string
	Command string
	Err     error
}

func (e *ExpansionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %q", e.Reason, e.Command)
	}
	return fmt.Sprintf("%s: %q: %v", e.Reason, e.Command, e.Err)
}

func (e *ExpansionError) Unwrap() error { return e.Err }

// Context supplies the external inputs of command expansion: the clock
// behind $time and $date references and the document's serial counters.
// Expansion is deterministic given a Context, which is what makes it
// testable.
type Context struct {
	Now     func() time.Time
	Serials *SerialSet
}

// NewContext returns a context using the system clock and a fresh set of
// serial counters.
func NewContext() *Context {
	return &Context{Now: time.Now, Serials: NewSerialSet()}
}

func (c *Context) now() time.Time {
	if c.Now == nil {
		return time.Now()
	}
	return c.Now()
}

// Expand parses a command line against the grammar and expands it into its
// target observations. Expansion is all-or-nothing: if any target fails
// validation, no observations are returned and no serial numbers are
// consumed. The returned error is always an *ExpansionError.
func Expand(text string, g *grammar.Grammar, ctx *Context) ([]*data.Observation, error) {
	if ctx == nil {
		ctx = NewContext()
	}
	tokens, err := format.Tokenize(text)
	if err != nil {
		return nil, &ExpansionError{Reason: ReasonMalformedCommand, Command: text, Err: err}
	}
	if len(tokens) == 0 {
		return nil, &ExpansionError{
			Reason: ReasonMalformedCommand, Command: text,
			Err: fmt.Errorf("empty command"),
		}
	}
	if tokens[0].Quoted {
		return nil, &ExpansionError{
			Reason: ReasonMalformedCommand, Command: text,
			Err: fmt.Errorf("command name must be a bare token"),
		}
	}

	cmd, args := resolveCommand(g, tokens)
	if cmd == nil {
		return nil, &ExpansionError{Reason: ReasonUnknownCommand, Command: text}
	}
	if len(args) > len(cmd.Args) {
		return nil, &ExpansionError{
			Reason: ReasonMalformedCommand, Command: text,
			Err: fmt.Errorf("command %q takes at most %d arguments, got %d",
				cmd.Name, len(cmd.Args), len(args)),
		}
	}

	e := &expansion{grammar: g, ctx: ctx, text: text, cmd: cmd, args: args}
	if ctx.Serials != nil {
		e.serials = newSerialTxn(ctx.Serials)
	}

	observations, err := e.run()
	if err != nil {
		return nil, err
	}
	if e.serials != nil {
		e.serials.commit()
	}
	return observations, nil
}

// resolveCommand looks up the command named by the first token. A compound
// token like "s100" is split into the command "s" with "100" as its first
// argument when "s100" itself is not a command.
func resolveCommand(g *grammar.Grammar, tokens []format.Token) (*grammar.CommandSpec, []format.Token) {
	name := tokens[0].Text
	if cmd := g.Command(name); cmd != nil {
		return cmd, tokens[1:]
	}
	prefix, number, ok := format.SplitCompound(name)
	if !ok {
		return nil, nil
	}
	cmd := g.Command(prefix)
	if cmd == nil {
		return nil, nil
	}
	first := format.Token{Text: number, Offset: tokens[0].Offset + len(prefix)}
	return cmd, append([]format.Token{first}, tokens[1:]...)
}

type expansion struct {
	grammar *grammar.Grammar
	ctx     *Context
	text    string
	cmd     *grammar.CommandSpec
	args    []format.Token
	serials *serialTxn
}

func (e *expansion) run() ([]*data.Observation, error) {
	argValues := map[string]format.Token{}
	for i, tok := range e.args {
		if tok.IsNone() {
			continue
		}
		argValues[e.cmd.Args[i]] = tok
	}

	targets := e.cmd.Targets
	if e.cmd.Type != "" {
		targets = []*grammar.CommandTarget{terseTarget(e.cmd)}
	}

	var observations []*data.Observation
	for _, tgt := range targets {
		obs, err := e.expandTarget(tgt, argValues)
		if err != nil {
			return nil, err
		}
		observations = append(observations, obs)
	}
	return observations, nil
}

// terseTarget derives the single implied target of a terse-form command:
// each argument maps to the field of the same name, and the command's
// defaults fill the rest.
func terseTarget(cmd *grammar.CommandSpec) *grammar.CommandTarget {
	fields := make(map[string]string, len(cmd.Args)+len(cmd.Defaults))
	for _, a := range cmd.Args {
		fields[a] = "$" + a
	}
	for name, ref := range cmd.Defaults {
		if _, ok := fields[name]; !ok {
			fields[name] = ref
		}
	}
	return &grammar.CommandTarget{Type: cmd.Type, Fields: fields}
}

func (e *expansion) expandTarget(tgt *grammar.CommandTarget, argValues map[string]format.Token) (*data.Observation, error) {
	typ := e.grammar.Type(tgt.Type)
	values := make(map[string]data.Value, len(typ.Fields))

	// Resolve references in field declaration order so serial draws and
	// error reporting are deterministic.
	for _, f := range typ.Fields {
		refText, mapped := tgt.Fields[f.Name]
		if !mapped {
			continue
		}
		ref, err := grammar.ParseRef(refText, e.cmd.Args)
		if err != nil {
			return nil, e.malformed(err)
		}
		v, ok, err := e.resolve(f, ref, argValues)
		if err != nil {
			return nil, err
		}
		if ok {
			values[f.Name] = v
		}
	}

	// A terse-form field can be both an argument and a default; when the
	// argument is omitted the default still applies.
	if e.cmd.Type != "" {
		for _, f := range typ.Fields {
			refText, mapped := e.cmd.Defaults[f.Name]
			if !mapped {
				continue
			}
			if _, ok := values[f.Name]; ok {
				continue
			}
			ref, err := grammar.ParseRef(refText, nil)
			if err != nil {
				return nil, e.malformed(err)
			}
			v, ok, err := e.resolve(f, ref, argValues)
			if err != nil {
				return nil, err
			}
			if ok {
				values[f.Name] = v
			}
		}
	}

	for _, f := range typ.Fields {
		if _, ok := values[f.Name]; !ok && f.DefaultValue() != nil {
			values[f.Name] = f.DefaultValue()
		}
	}

	obs, vs := validate.Values(typ, values)
	if len(vs) > 0 {
		return nil, &ExpansionError{Reason: ReasonInvalidObservation, Command: e.text, Err: vs}
	}
	return obs, nil
}

// resolve produces the value of one target field reference. The ok result
// is false when the reference is an argument the user did not supply, in
// which case the field falls through to its default.
func (e *expansion) resolve(f *grammar.FieldSpec, ref grammar.Ref, argValues map[string]format.Token) (data.Value, bool, error) {
	switch ref.Kind {
	case grammar.RefArg:
		tok, ok := argValues[ref.Name]
		if !ok {
			return nil, false, nil
		}
		v, err := f.ParseInput(tok.Text)
		if err != nil {
			return nil, false, e.malformed(fmt.Errorf("argument %q: %v", ref.Name, err))
		}
		return v, true, nil

	case grammar.RefTime:
		now := e.ctx.now()
		return data.TimeOfDay{Hour: now.Hour(), Minute: now.Minute(), Second: now.Second()}, true, nil

	case grammar.RefDate:
		now := e.ctx.now()
		return data.Date{Year: now.Year(), Month: int(now.Month()), Day: now.Day()}, true, nil

	case grammar.RefSerial:
		if e.serials == nil {
			return nil, false, e.malformed(fmt.Errorf("no serial counters in expansion context"))
		}
		return e.serials.draw(ref.Name), true, nil

	default:
		v, err := f.ParseInput(ref.Name)
		if err != nil {
			return nil, false, e.malformed(fmt.Errorf("field %q: %v", f.Name, err))
		}
		return v, true, nil
	}
}

func (e *expansion) malformed(err error) error {
	return &ExpansionError{Reason: ReasonMalformedCommand, Command: e.text, Err: err}
}
