package data

import (
	"fmt"
	"sort"
	"strings"
)

// Observation is one structured data record: a mapping from field names to
// values for a single observation type. Observations are immutable; edits
// produce new observations via Copy. Construction does not check values
// against a grammar; the validate package is the only producer of
// observations inside the engine, and a Document admits observations only
// through its validating operations.
type Observation struct {
	typeName string
	values   map[string]Value
}

// NewObservation creates an observation of the named type from the given
// field values. The map is copied; nil entries denote absent optional fields.
func NewObservation(typeName string, values map[string]Value) *Observation {
	vs := make(map[string]Value, len(values))
	for name, v := range values {
		vs[name] = v
	}
	return &Observation{typeName: typeName, values: vs}
}

// TypeName returns the name of the observation's type.
func (o *Observation) TypeName() string { return o.typeName }

// Value returns the value of the named field and whether the field is set.
// Absent optional fields report (nil, false).
func (o *Observation) Value(name string) (Value, bool) {
	v, ok := o.values[name]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// Copy returns a new observation with the given field values replacing the
// originals. A nil value in overrides clears the field.
func (o *Observation) Copy(overrides map[string]Value) *Observation {
	vs := make(map[string]Value, len(o.values))
	for name, v := range o.values {
		vs[name] = v
	}
	for name, v := range overrides {
		if v == nil {
			delete(vs, name)
		} else {
			vs[name] = v
		}
	}
	return &Observation{typeName: o.typeName, values: vs}
}

// Equal reports whether two observations have the same type and the same
// value for every field.
func (o *Observation) Equal(p *Observation) bool {
	if p == nil || o.typeName != p.typeName || len(o.values) != len(p.values) {
		return false
	}
	for name, v := range o.values {
		if pv, ok := p.values[name]; !ok || pv != v {
			return false
		}
	}
	return true
}

// String returns a debugging representation with fields in name order.
func (o *Observation) String() string {
	names := make([]string, 0, len(o.values))
	for name := range o.values {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = fmt.Sprintf("%s=%v", name, o.values[name])
	}
	return o.typeName + "(" + strings.Join(parts, ", ") + ")"
}
