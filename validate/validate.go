// Package validate turns structurally matched line tokens or candidate field
// values into validated observations, reporting every rule failure at once.
package validate

import (
	"fmt"
	"strings"

	"github.com/makadata/maka/data"
	"github.com/makadata/maka/format"
	"github.com/makadata/maka/grammar"
)

// Violation names one validation rule a line or candidate observation
// failed. Codes follow a fixed scheme so hosts can match on them:
//
//	missing:<field>             required field omitted
//	type:<field>                text does not convert to the field's kind
//	constraint:<field>:<rule>   value fails a field or cross-field rule
type Violation struct {
	Code    string
	Message string
}

// Violations is a non-empty list of everything wrong with one candidate
// observation. It satisfies error so callers can thread it through ordinary
// error returns.
type Violations []Violation

func (vs Violations) Error() string {
	if len(vs) == 1 {
		return vs[0].Code + ": " + vs[0].Message
	}
	codes := make([]string, len(vs))
	for i, v := range vs {
		codes[i] = v.Code
	}
	return fmt.Sprintf("%d violations: %s", len(vs), strings.Join(codes, ", "))
}

// Observation converts matched field tokens into a validated observation of
// the given type. It checks presence, kind conversion, field constraints,
// and cross-field rules, and collects every violation rather than stopping
// at the first. On failure the observation is nil and the list is non-empty;
// no partially converted observation is ever returned.
func Observation(typ *grammar.ObservationType, fields []format.FieldToken) (*data.Observation, Violations) {
	values := make(map[string]data.Value, len(fields))
	var vs Violations

	for _, ft := range fields {
		f := ft.Field
		if ft.Token.IsNone() {
			if !f.Optional {
				vs = append(vs, Violation{
					Code:    "missing:" + f.Name,
					Message: fmt.Sprintf("required field %q has no value", f.Name),
				})
			}
			continue
		}
		v, err := f.ParseValue(ft.Token.Text)
		if err != nil {
			vs = append(vs, Violation{
				Code:    "type:" + f.Name,
				Message: fmt.Sprintf("field %q: %v", f.Name, err),
			})
			continue
		}
		if fieldVs := fieldViolations(f, v); len(fieldVs) > 0 {
			vs = append(vs, fieldVs...)
			continue
		}
		values[f.Name] = v
	}

	vs = append(vs, crossViolations(typ, values)...)

	if len(vs) > 0 {
		return nil, vs
	}
	return data.NewObservation(typ.Name, values), nil
}

// Values validates a candidate field-value mapping, as built by command
// expansion, against an observation type. Presence, constraints, and
// cross-field rules are checked exactly as for parsed lines.
func Values(typ *grammar.ObservationType, values map[string]data.Value) (*data.Observation, Violations) {
	var vs Violations
	clean := make(map[string]data.Value, len(values))

	for _, f := range typ.Fields {
		v, ok := values[f.Name]
		if !ok || v == nil {
			if !f.Optional {
				vs = append(vs, Violation{
					Code:    "missing:" + f.Name,
					Message: fmt.Sprintf("required field %q has no value", f.Name),
				})
			}
			continue
		}
		if fieldVs := fieldViolations(f, v); len(fieldVs) > 0 {
			vs = append(vs, fieldVs...)
			continue
		}
		clean[f.Name] = v
	}

	vs = append(vs, crossViolations(typ, clean)...)

	if len(vs) > 0 {
		return nil, vs
	}
	return data.NewObservation(typ.Name, clean), nil
}

func fieldViolations(f *grammar.FieldSpec, v data.Value) Violations {
	var vs Violations
	for _, rv := range f.Check(v) {
		code := "constraint:" + f.Name + ":" + rv.Rule
		if rv.Rule == "type" {
			code = "type:" + f.Name
		}
		vs = append(vs, Violation{Code: code, Message: fmt.Sprintf("field %q: %s", f.Name, rv.Message)})
	}
	return vs
}

// crossViolations evaluates cross-field rules over the fields that already
// passed their own checks; a pair with an absent or failed member is skipped
// rather than double-reported.
func crossViolations(typ *grammar.ObservationType, values map[string]data.Value) Violations {
	var vs Violations
	for _, r := range typ.Rules {
		for i := 1; i < len(r.Fields); i++ {
			prev, ok1 := values[r.Fields[i-1]]
			next, ok2 := values[r.Fields[i]]
			if !ok1 || !ok2 {
				continue
			}
			kind := typ.Field(r.Fields[i]).Kind
			if grammar.Compare(kind, prev, next) > 0 {
				vs = append(vs, Violation{
					Code: "constraint:" + r.Fields[i] + ":order",
					Message: fmt.Sprintf("field %q must not come before %q",
						r.Fields[i], r.Fields[i-1]),
				})
			}
		}
	}
	return vs
}
