package format

import (
	"fmt"
	"strings"

	"github.com/makadata/maka/data"
	"github.com/makadata/maka/grammar"
)

// FieldToken pairs one token of a parsed line with the field it fills.
type FieldToken struct {
	Field *grammar.FieldSpec
	Token Token
}

// ObservationFormat matches lines against one observation type's layout and
// renders observations of that type back to canonical text. Matching is
// structural only; converting field tokens to typed values is the
// validator's job.
type ObservationFormat struct {
	typ *grammar.ObservationType
}

// NewObservationFormat returns the line format for an observation type of a
// loaded grammar.
func NewObservationFormat(t *grammar.ObservationType) *ObservationFormat {
	return &ObservationFormat{typ: t}
}

// Type returns the observation type this format belongs to.
func (f *ObservationFormat) Type() *grammar.ObservationType { return f.typ }

// Parse tokenizes a line and matches it against the type's layout.
func (f *ObservationFormat) Parse(line string) ([]FieldToken, error) {
	tokens, err := Tokenize(line)
	if err != nil {
		return nil, err
	}
	return f.ParseTokens(line, tokens)
}

// ParseTokens matches already-tokenized line text against the type's layout,
// checking token count and literal positions. line is the source text the
// tokens came from, used to locate end-of-line errors.
func (f *ObservationFormat) ParseTokens(line string, tokens []Token) ([]FieldToken, error) {
	items := f.typ.Items()
	var fields []FieldToken
	for i, item := range items {
		if i >= len(tokens) {
			return nil, &ParseError{
				Offset:   len(line),
				Expected: itemLabel(item),
				Actual:   "end of line",
			}
		}
		tok := tokens[i]
		if item.Field == nil {
			if tok.Quoted || tok.Text != item.Literal {
				return nil, &ParseError{
					Offset:   tok.Offset,
					Expected: fmt.Sprintf("%q", item.Literal),
					Actual:   fmt.Sprintf("%q", tok.Text),
				}
			}
			continue
		}
		fields = append(fields, FieldToken{Field: item.Field, Token: tok})
	}
	if len(tokens) > len(items) {
		extra := tokens[len(items)]
		return nil, &ParseError{
			Offset:   extra.Offset,
			Expected: "end of line",
			Actual:   fmt.Sprintf("%q", extra.Text),
		}
	}
	return fields, nil
}

func itemLabel(item grammar.FormatItem) string {
	if item.Field == nil {
		return fmt.Sprintf("%q", item.Literal)
	}
	return fmt.Sprintf("a value for field %q", item.Field.Name)
}

// Format renders an observation of this format's type as one canonical line.
// Absent optional fields come out as the quoted empty string, so every line
// has the same token count and reparses to an equal observation.
func (f *ObservationFormat) Format(obs *data.Observation) string {
	var parts []string
	for _, item := range f.typ.Items() {
		if item.Field == nil {
			parts = append(parts, item.Literal)
			continue
		}
		v, ok := obs.Value(item.Field.Name)
		if !ok {
			parts = append(parts, `""`)
			continue
		}
		text := item.Field.FormatValue(v)
		switch {
		case item.Pad != "":
			text = fmt.Sprintf(item.Pad, v.(int))
		case item.Field.Kind == grammar.String || item.Field.Kind == grammar.Code:
			text = Quote(text)
		}
		parts = append(parts, text)
	}
	return strings.Join(parts, " ")
}
