// Package document holds ordered sequences of validated observations and
// the atomic line-edit operations over them.
package document

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/makadata/maka/data"
	"github.com/makadata/maka/format"
	"github.com/makadata/maka/grammar"
	"github.com/makadata/maka/validate"
)

// Document is an immutable snapshot of one observation sequence. Every
// observation in it validates against its type; mutating operations return
// a new snapshot and leave the receiver untouched, so a reader holding a
// Document never sees a half-applied edit. Snapshots of the same logical
// document share an ID.
type Document struct {
	id           uuid.UUID
	grammar      *grammar.Grammar
	format       *format.DocumentFormat
	observations []*data.Observation
}

// New returns an empty document for a loaded grammar.
func New(g *grammar.Grammar) *Document {
	return &Document{
		id:      uuid.New(),
		grammar: g,
		format:  format.NewDocumentFormat(g),
	}
}

// LineError wraps an error with the 1-based number of the text line that
// caused it.
type LineError struct {
	Line int
	Err  error
}

func (e *LineError) Error() string { return fmt.Sprintf("line %d: %v", e.Line, e.Err) }

func (e *LineError) Unwrap() error { return e.Err }

// FromText parses a whole document text, one observation per non-blank
// line. The first invalid line fails the load with a *LineError.
func FromText(g *grammar.Grammar, text string) (*Document, error) {
	d := New(g)
	observations, err := d.parseLines(strings.Split(text, "\n"), 1)
	if err != nil {
		return nil, err
	}
	d.observations = observations
	return d, nil
}

// ID identifies the logical document; all snapshots produced by edits of
// this document share it.
func (d *Document) ID() uuid.UUID { return d.id }

// Grammar returns the grammar the document's observations validate against.
func (d *Document) Grammar() *grammar.Grammar { return d.grammar }

// Len returns the number of observations.
func (d *Document) Len() int { return len(d.observations) }

// Observation returns the observation at index i.
func (d *Document) Observation(i int) *data.Observation { return d.observations[i] }

// Observations returns a copy of the observation sequence.
func (d *Document) Observations() []*data.Observation {
	out := make([]*data.Observation, len(d.observations))
	copy(out, d.observations)
	return out
}

// Line renders the observation at index i as its canonical text line.
func (d *Document) Line(i int) string {
	line, err := d.format.Format(d.observations[i])
	if err != nil {
		// Unreachable for observations admitted by Splice.
		panic(err)
	}
	return line
}

// Text renders the whole document, one line per observation with a
// trailing newline. An empty document renders as the empty string.
func (d *Document) Text() string {
	if len(d.observations) == 0 {
		return ""
	}
	var b strings.Builder
	for i := range d.observations {
		b.WriteString(d.Line(i))
		b.WriteByte('\n')
	}
	return b.String()
}

// Insert parses and validates one line and inserts the resulting
// observation at position pos. On any failure the returned error is a
// *format.ParseError or validate.Violations and the document is unchanged.
func (d *Document) Insert(pos int, line string) (*Document, *Edit, error) {
	obs, err := d.parseLine(line)
	if err != nil {
		return nil, nil, err
	}
	return d.splice("Insert", pos, pos, []*data.Observation{obs})
}

// EditLine replaces the observation at index i with the parse of line.
// The line's observation type is re-resolved from its key literal, so an
// edit may change a line's type. Partial or invalid edits are rejected
// whole, leaving the document unchanged.
func (d *Document) EditLine(i int, line string) (*Document, *Edit, error) {
	if i < 0 || i >= len(d.observations) {
		return nil, nil, fmt.Errorf("line index %d out of range [0, %d)", i, len(d.observations))
	}
	obs, err := d.parseLine(line)
	if err != nil {
		return nil, nil, err
	}
	return d.splice("Edit Line", i, i+1, []*data.Observation{obs})
}

// ReplaceRange replaces observations [start, end) with the parses of
// lines, as when pasting. Every line is parsed and validated before any
// change is made; one bad line rejects the whole replacement.
func (d *Document) ReplaceRange(start, end int, lines []string) (*Document, *Edit, error) {
	observations, err := d.parseLines(lines, 1)
	if err != nil {
		return nil, nil, err
	}
	return d.splice("Replace", start, end, observations)
}

// DeleteRange removes observations [start, end). Removal never fails
// validation; only the indices are checked.
func (d *Document) DeleteRange(start, end int) (*Document, *Edit, error) {
	return d.splice("Delete", start, end, nil)
}

// Splice replaces observations [start, end) with the given observations,
// validating each against its declared type. It is the primitive the
// line-based operations build on, and the one hosts use to append expanded
// command output.
func (d *Document) Splice(start, end int, observations []*data.Observation) (*Document, *Edit, error) {
	for _, obs := range observations {
		if err := d.checkObservation(obs); err != nil {
			return nil, nil, err
		}
	}
	return d.splice("Splice", start, end, observations)
}

// Apply performs an edit produced by this document's history, typically an
// inverse edit during undo. The edit's observations are re-validated, so a
// hand-built edit cannot smuggle an invalid observation in; edits that came
// from this document's own operations always pass.
func (d *Document) Apply(e *Edit) (*Document, error) {
	for _, obs := range e.New {
		if err := d.checkObservation(obs); err != nil {
			return nil, err
		}
	}
	next, _, err := d.splice(e.Name, e.Start, e.End, e.New)
	return next, err
}

func (d *Document) splice(name string, start, end int, observations []*data.Observation) (*Document, *Edit, error) {
	if err := checkEditIndices(start, end, len(d.observations)); err != nil {
		return nil, nil, err
	}

	old := make([]*data.Observation, end-start)
	copy(old, d.observations[start:end])

	next := make([]*data.Observation, 0, len(d.observations)-(end-start)+len(observations))
	next = append(next, d.observations[:start]...)
	next = append(next, observations...)
	next = append(next, d.observations[end:]...)

	edit := &Edit{Name: name, Start: start, End: end, Old: old, New: observations}
	return &Document{
		id:           d.id,
		grammar:      d.grammar,
		format:       d.format,
		observations: next,
	}, edit, nil
}

func checkEditIndices(start, end, length int) error {
	if start < 0 {
		return fmt.Errorf("edit start index must be at least zero")
	}
	if end < 0 {
		return fmt.Errorf("edit end index must be at least zero")
	}
	if start > length || end > length {
		return fmt.Errorf("edit index must not exceed document length %d", length)
	}
	if end < start {
		return fmt.Errorf("edit end index must be at least start index")
	}
	return nil
}

func (d *Document) parseLine(line string) (*data.Observation, error) {
	fields, typ, err := d.format.MatchLine(line)
	if err != nil {
		return nil, err
	}
	obs, vs := validate.Observation(typ, fields)
	if len(vs) > 0 {
		return nil, vs
	}
	return obs, nil
}

// parseLines parses every non-blank line, numbering errors from firstLine.
func (d *Document) parseLines(lines []string, firstLine int) ([]*data.Observation, error) {
	var observations []*data.Observation
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		obs, err := d.parseLine(line)
		if err != nil {
			return nil, &LineError{Line: firstLine + i, Err: err}
		}
		observations = append(observations, obs)
	}
	return observations, nil
}

// checkObservation re-validates an externally supplied observation, so a
// document never admits one that would not survive a serialize/parse
// round trip.
func (d *Document) checkObservation(obs *data.Observation) error {
	typ := d.grammar.Type(obs.TypeName())
	if typ == nil {
		return fmt.Errorf("no observation type named %q in grammar", obs.TypeName())
	}
	values := make(map[string]data.Value, len(typ.Fields))
	for _, f := range typ.Fields {
		if v, ok := obs.Value(f.Name); ok {
			values[f.Name] = v
		}
	}
	_, vs := validate.Values(typ, values)
	if len(vs) > 0 {
		return vs
	}
	return nil
}
