package format

import (
	"fmt"

	"github.com/makadata/maka/data"
	"github.com/makadata/maka/grammar"
)

// DocumentFormat classifies document lines across all observation types of a
// grammar and renders observations of any type. Line classification keys on
// the type's starred format literal, which the grammar loader guarantees is
// unique across types.
type DocumentFormat struct {
	formats []*ObservationFormat
	byName  map[string]*ObservationFormat
}

// NewDocumentFormat builds the line codec for a loaded grammar.
func NewDocumentFormat(g *grammar.Grammar) *DocumentFormat {
	d := &DocumentFormat{byName: make(map[string]*ObservationFormat, len(g.Types))}
	for _, t := range g.Types {
		f := NewObservationFormat(t)
		d.formats = append(d.formats, f)
		d.byName[t.Name] = f
	}
	return d
}

// TypeFormat returns the line format for a named observation type, or nil.
func (d *DocumentFormat) TypeFormat(name string) *ObservationFormat {
	return d.byName[name]
}

// MatchLine tokenizes a line, identifies its observation type by key
// literal, and matches it structurally. The returned field tokens are in
// line order.
func (d *DocumentFormat) MatchLine(line string) ([]FieldToken, *grammar.ObservationType, error) {
	tokens, err := Tokenize(line)
	if err != nil {
		return nil, nil, err
	}
	if len(tokens) == 0 {
		return nil, nil, &ParseError{
			Offset:   0,
			Expected: "an observation line",
			Actual:   "blank line",
		}
	}
	for _, f := range d.formats {
		i := f.typ.KeyIndex()
		if i < len(tokens) && !tokens[i].Quoted && tokens[i].Text == f.typ.Key() {
			fields, err := f.ParseTokens(line, tokens)
			if err != nil {
				return nil, nil, err
			}
			return fields, f.typ, nil
		}
	}
	return nil, nil, &ParseError{
		Offset:   tokens[0].Offset,
		Expected: "a line with a known key literal",
		Actual:   fmt.Sprintf("%q", tokens[0].Text),
	}
}

// Format renders an observation as one canonical line, choosing the layout
// by the observation's type name.
func (d *DocumentFormat) Format(obs *data.Observation) (string, error) {
	f := d.byName[obs.TypeName()]
	if f == nil {
		return "", fmt.Errorf("no observation type named %q in grammar", obs.TypeName())
	}
	return f.Format(obs), nil
}
