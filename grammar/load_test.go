package grammar

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sightingGrammar = `
name: shore-station
types:
  - name: Sighting
    format: "{id:%05d} {date} {time} Sighting* {species} {count}"
    fields:
      - name: id
        kind: integer
        min: 0
      - name: date
        kind: date
      - name: time
        kind: time
      - name: species
        kind: string
        values: [DEER, ELK]
        translations: {D: DEER, E: ELK}
      - name: count
        kind: integer
        min: 1
  - name: Comment
    format: "{time} Comment* {text}"
    fields:
      - name: time
        kind: time
      - name: text
        kind: string
        optional: true
commands:
  - name: s
    type: Sighting
    args: [species, count]
    defaults: {id: "$serial:obs", date: "$date", time: "$time"}
  - name: c
    type: Comment
    args: [text]
    defaults: {time: "$time"}
`

func mustLoad(t *testing.T, text string) *Grammar {
	t.Helper()
	g, err := LoadString(text)
	require.NoError(t, err)
	return g
}

// loadDefects loads a grammar expected to fail and returns its defect list.
func loadDefects(t *testing.T, text string) []string {
	t.Helper()
	_, err := LoadString(text)
	require.Error(t, err)
	var ge *GrammarError
	require.ErrorAs(t, err, &ge)
	require.NotEmpty(t, ge.Defects)
	return ge.Defects
}

func assertDefect(t *testing.T, defects []string, substr string) {
	t.Helper()
	for _, d := range defects {
		if strings.Contains(d, substr) {
			return
		}
	}
	t.Errorf("no defect mentions %q in %q", substr, defects)
}

func TestLoadValidGrammar(t *testing.T) {
	g := mustLoad(t, sightingGrammar)

	assert.Equal(t, "shore-station", g.Name)
	require.NotNil(t, g.Type("Sighting"))
	require.NotNil(t, g.Command("s"))
	assert.Nil(t, g.Type("Nope"))
	assert.Nil(t, g.Command("x"))

	sighting := g.Type("Sighting")
	assert.Equal(t, "Sighting", sighting.Key())
	require.Len(t, sighting.Items(), 6)
	assert.Equal(t, 3, sighting.KeyIndex())
	assert.Equal(t, "%05d", sighting.Items()[0].Pad)
	require.NotNil(t, sighting.Field("species"))
	assert.Nil(t, sighting.Field("nope"))
}

func TestLoadBadYAML(t *testing.T) {
	defects := loadDefects(t, "types: [")
	assert.Len(t, defects, 1)
}

func TestLoadUnknownYAMLKey(t *testing.T) {
	// Strict decoding rejects misspelled keys instead of ignoring them.
	loadDefects(t, `
types:
  - name: T
    fmt: "T* {x}"
    fields:
      - {name: x, kind: integer}
`)
}

func TestLoadNoTypes(t *testing.T) {
	defects := loadDefects(t, "name: empty")
	assertDefect(t, defects, "no observation types")
}

func TestLoadDuplicateTypeName(t *testing.T) {
	defects := loadDefects(t, `
types:
  - name: T
    format: "T* {x}"
    fields: [{name: x, kind: integer}]
  - name: T
    format: "U* {x}"
    fields: [{name: x, kind: integer}]
`)
	assertDefect(t, defects, `duplicate observation type name "T"`)
}

func TestLoadDuplicateFieldName(t *testing.T) {
	defects := loadDefects(t, `
types:
  - name: T
    format: "T* {x}"
    fields:
      - {name: x, kind: integer}
      - {name: x, kind: string}
`)
	assertDefect(t, defects, `duplicate field name "x"`)
}

func TestLoadUnknownKind(t *testing.T) {
	defects := loadDefects(t, `
types:
  - name: T
    format: "T* {x}"
    fields: [{name: x, kind: number}]
`)
	assertDefect(t, defects, `unknown kind "number"`)
}

func TestLoadConstraintApplicability(t *testing.T) {
	defects := loadDefects(t, `
types:
  - name: T
    format: "T* {a} {b} {c}"
    fields:
      - {name: a, kind: string, min: 0}
      - {name: b, kind: integer, values: [X]}
      - {name: c, kind: integer, width: 4}
`)
	assertDefect(t, defects, "min/max apply only to numeric kinds")
	assertDefect(t, defects, "values apply only to string fields")
	assertDefect(t, defects, "width/pattern apply only to code fields")
}

func TestLoadIntegerBounds(t *testing.T) {
	defects := loadDefects(t, `
types:
  - name: T
    format: "T* {a} {b}"
    fields:
      - {name: a, kind: integer, min: 0.5}
      - {name: b, kind: integer, min: 0, minExclusive: true}
`)
	assertDefect(t, defects, "not a whole number")
	assertDefect(t, defects, "integer bounds are always inclusive")
}

func TestLoadMinAboveMax(t *testing.T) {
	defects := loadDefects(t, `
types:
  - name: T
    format: "T* {x}"
    fields: [{name: x, kind: float, min: 10, max: 1}]
`)
	assertDefect(t, defects, "min 10 exceeds max 1")
}

func TestLoadBadPattern(t *testing.T) {
	defects := loadDefects(t, `
types:
  - name: T
    format: "T* {x}"
    fields: [{name: x, kind: code, pattern: "["}]
`)
	assertDefect(t, defects, "bad pattern")
}

func TestLoadBadDefault(t *testing.T) {
	defects := loadDefects(t, `
types:
  - name: T
    format: "T* {x}"
    fields: [{name: x, kind: integer, min: 0, default: "-1"}]
`)
	assertDefect(t, defects, `default "-1" fails check`)
}

func TestLoadFieldDefaultParsed(t *testing.T) {
	g := mustLoad(t, `
types:
  - name: T
    format: "T* {x}"
    fields: [{name: x, kind: integer, default: "7"}]
commands: []
`)
	assert.Equal(t, 7, g.Type("T").Field("x").DefaultValue())
}

func TestLoadTranslationOutsideValues(t *testing.T) {
	defects := loadDefects(t, `
types:
  - name: T
    format: "T* {x}"
    fields:
      - {name: x, kind: string, values: [A], translations: {B: BEAR}}
`)
	assertDefect(t, defects, "targets a value outside the values set")
}

func TestLoadFormatDefects(t *testing.T) {
	cases := []struct {
		name   string
		format string
		want   string
	}{
		{"no key", "{x}", "no key literal"},
		{"two keys", "T* U* {x}", "more than one key literal"},
		{"unknown field", "T* {y}", `unknown field "y"`},
		{"field twice", "T* {x} {x}", `references field "x" twice`},
		{"field missing", "T*", `field "x" missing from format`},
		{"pad on string", "T* {x:%05d} {s}", "pad spec on non-integer"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			kind := "integer"
			if c.name == "pad on string" {
				kind = "string"
			}
			defects := loadDefects(t, `
types:
  - name: T
    format: "`+c.format+`"
    fields:
      - {name: x, kind: `+kind+`}
      - {name: s, kind: string, optional: true}
`)
			assertDefect(t, defects, c.want)
		})
	}
}

func TestLoadDuplicateKeyAcrossTypes(t *testing.T) {
	defects := loadDefects(t, `
types:
  - name: A
    format: "Obs* {x}"
    fields: [{name: x, kind: integer}]
  - name: B
    format: "Obs* {y}"
    fields: [{name: y, kind: integer}]
`)
	assertDefect(t, defects, `share key literal "Obs"`)
}

func TestLoadCrossRuleDefects(t *testing.T) {
	defects := loadDefects(t, `
types:
  - name: T
    format: "T* {a} {b} {s}"
    fields:
      - {name: a, kind: time}
      - {name: b, kind: date}
      - {name: s, kind: string}
    rules:
      - {rule: order, fields: [a, b]}
      - {rule: order, fields: [s, s]}
      - {rule: before, fields: [a, b]}
`)
	assertDefect(t, defects, "mixes kinds time and date")
	assertDefect(t, defects, "non-comparable kind string")
	assertDefect(t, defects, `unknown cross-field rule "before"`)
}

func TestLoadCommandDefects(t *testing.T) {
	defects := loadDefects(t, `
types:
  - name: T
    format: "T* {x} {d}"
    fields:
      - {name: x, kind: integer}
      - {name: d, kind: date}
commands:
  - name: a
    type: Nope
    args: [x]
  - name: b
    type: T
    args: [x, y]
    defaults: {d: "$date"}
  - name: c
    type: T
    args: [x]
    defaults: {d: "$time"}
  - name: d
    args: [x]
`)
	assertDefect(t, defects, `targets unknown type "Nope"`)
	assertDefect(t, defects, `argument "y" is not a field`)
	assertDefect(t, defects, "$time reference on non-time field")
	assertDefect(t, defects, "exactly one of type or targets")
}

func TestLoadRequiredCoverage(t *testing.T) {
	defects := loadDefects(t, `
types:
  - name: T
    format: "T* {x} {y}"
    fields:
      - {name: x, kind: integer}
      - {name: y, kind: integer}
commands:
  - name: a
    type: T
    args: [x]
`)
	assertDefect(t, defects, "required field T.y has no argument or default")
}

func TestLoadSerialOnNonInteger(t *testing.T) {
	defects := loadDefects(t, `
types:
  - name: T
    format: "T* {x} {s}"
    fields:
      - {name: x, kind: integer}
      - {name: s, kind: string}
commands:
  - name: a
    type: T
    args: [x]
    defaults: {s: "$serial:obs"}
`)
	assertDefect(t, defects, "$serial reference on non-integer field")
}

func TestLoadFanoutCommand(t *testing.T) {
	g := mustLoad(t, `
types:
  - name: A
    format: "A* {x}"
    fields: [{name: x, kind: integer}]
  - name: B
    format: "B* {y}"
    fields: [{name: y, kind: integer}]
commands:
  - name: ab
    args: [n]
    targets:
      - type: A
        fields: {x: "$n"}
      - type: B
        fields: {y: "$n"}
`)
	cmd := g.Command("ab")
	require.NotNil(t, cmd)
	assert.Len(t, cmd.Targets, 2)
}

func TestLoadFanoutDefects(t *testing.T) {
	defects := loadDefects(t, `
types:
  - name: A
    format: "A* {x}"
    fields: [{name: x, kind: integer}]
commands:
  - name: ab
    args: [n, unused]
    targets:
      - type: A
        fields: {x: "$n", z: "1"}
      - type: B
        fields: {}
`)
	assertDefect(t, defects, `maps unknown field "z"`)
	assertDefect(t, defects, `names unknown type "B"`)
	assertDefect(t, defects, `argument "unused" is never used`)
}

func TestLoadCollectsAllDefects(t *testing.T) {
	defects := loadDefects(t, `
types:
  - name: T
    format: "T* {x}"
    fields:
      - {name: x, kind: number}
  - name: U
    format: "{y}"
    fields: [{name: y, kind: integer}]
commands:
  - name: a
    type: Nope
`)
	assert.GreaterOrEqual(t, len(defects), 3)
}
