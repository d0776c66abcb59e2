package grammar

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/makadata/maka/data"
)

// Kind identifies the value kind of an observation field.
type Kind string

const (
	Integer Kind = "integer"
	Float   Kind = "float"
	Decimal Kind = "decimal"
	String  Kind = "string"
	Code    Kind = "code"
	Date    Kind = "date"
	Time    Kind = "time"
	Angle   Kind = "angle"
)

var kinds = map[Kind]bool{
	Integer: true, Float: true, Decimal: true, String: true,
	Code: true, Date: true, Time: true, Angle: true,
}

// numericKinds are the kinds that accept min/max bounds.
var numericKinds = map[Kind]bool{Integer: true, Float: true, Decimal: true, Angle: true}

// comparableKinds are the kinds usable in cross-field order rules.
var comparableKinds = map[Kind]bool{
	Integer: true, Float: true, Decimal: true, Angle: true, Date: true, Time: true,
}

// FieldSpec declares one field of an observation type: its name, value kind,
// and constraints. A FieldSpec is read-only after the grammar loads.
type FieldSpec struct {
	Name     string `yaml:"name"`
	Kind     Kind   `yaml:"kind"`
	Optional bool   `yaml:"optional"`

	// Default is the default value in wire syntax, applied by the expander
	// when a command supplies no value. Empty means no default.
	Default string `yaml:"default"`

	// Min and Max bound integer, float, decimal, and angle values.
	// The exclusive flags turn the corresponding bound into a strict one
	// for float, decimal, and angle fields.
	Min          *float64 `yaml:"min"`
	Max          *float64 `yaml:"max"`
	MinExclusive bool     `yaml:"minExclusive"`
	MaxExclusive bool     `yaml:"maxExclusive"`

	// Values enumerates the allowed values of a string field.
	Values []string `yaml:"values"`

	// Translations maps terse command-input shorthands to canonical values
	// of a string field, for example "D" to "DEER". Translations apply to
	// command arguments only, never to document lines, so serialization
	// stays canonical.
	Translations map[string]string `yaml:"translations"`

	// Width and Pattern constrain code fields.
	Width   int    `yaml:"width"`
	Pattern string `yaml:"pattern"`

	valueSet     map[string]bool
	patternRE    *regexp.Regexp
	defaultValue data.Value
}

// RuleViolation names one field constraint a value failed, with a
// human-readable message.
type RuleViolation struct {
	Rule    string
	Message string
}

var (
	decimalRE = regexp.MustCompile(`^-?(\d+\.?|\d*\.\d+)$`)
	dateRE    = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{2})$`)
	timeRE    = regexp.MustCompile(`^(\d{1,2}):(\d\d):(\d\d)$`)
	angleRE   = regexp.MustCompile(`^(-?)(\d{1,3}):(\d\d):(\d\d)$`)
)

// ParseValue converts wire text to a typed value of this field's kind.
// It performs kind conversion only; constraint checking is Check's job.
func (f *FieldSpec) ParseValue(s string) (data.Value, error) {
	switch f.Kind {
	case Integer:
		n, err := strconv.Atoi(s)
		if err != nil {
			return nil, fmt.Errorf("could not parse %q as an integer", s)
		}
		return n, nil

	case Float:
		x, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("could not parse %q as a floating point number", s)
		}
		return x, nil

	case Decimal:
		if !decimalRE.MatchString(s) {
			return nil, fmt.Errorf("bad decimal number %q", s)
		}
		return s, nil

	case String, Code:
		return s, nil

	case Date:
		return parseDate(s)

	case Time:
		return parseTime(s)

	case Angle:
		return parseAngle(s)

	default:
		return nil, fmt.Errorf("unknown field kind %q", f.Kind)
	}
}

// ParseInput converts command-argument text to a typed value, applying the
// field's translations first. Document-line parsing uses ParseValue instead,
// so translated shorthands never appear in serialized observations.
func (f *FieldSpec) ParseInput(s string) (data.Value, error) {
	if f.Kind == String && f.Translations != nil {
		if t, ok := f.Translations[s]; ok {
			s = t
		}
	}
	return f.ParseValue(s)
}

// FormatValue renders a typed value as canonical wire text. Quoting of
// string values is the serializer's concern, not FormatValue's. The value
// must be non-nil and of the field's kind.
func (f *FieldSpec) FormatValue(v data.Value) string {
	switch f.Kind {
	case Integer:
		return strconv.Itoa(v.(int))
	case Float:
		return strconv.FormatFloat(v.(float64), 'g', -1, 64)
	case Decimal, String, Code:
		return v.(string)
	case Date:
		return v.(data.Date).String()
	case Time:
		return v.(data.TimeOfDay).String()
	case Angle:
		return formatAngle(v.(float64))
	default:
		return fmt.Sprint(v)
	}
}

// Check reports every constraint the value violates. A nil result means the
// value is valid for this field. A value of the wrong dynamic type yields a
// single "type" violation.
func (f *FieldSpec) Check(v data.Value) []RuleViolation {
	switch f.Kind {
	case Integer:
		n, ok := v.(int)
		if !ok {
			return f.typeViolation(v)
		}
		return f.checkBounds(float64(n), strconv.Itoa(n))

	case Float, Angle:
		x, ok := v.(float64)
		if !ok {
			return f.typeViolation(v)
		}
		return f.checkBounds(x, f.FormatValue(x))

	case Decimal:
		s, ok := v.(string)
		if !ok || !decimalRE.MatchString(s) {
			return f.typeViolation(v)
		}
		x, _ := strconv.ParseFloat(s, 64)
		return f.checkBounds(x, s)

	case String:
		s, ok := v.(string)
		if !ok {
			return f.typeViolation(v)
		}
		var vs []RuleViolation
		if s == "" {
			vs = append(vs, RuleViolation{
				Rule:    "empty",
				Message: "string field value must not be empty; omit the field instead",
			})
		}
		if f.valueSet != nil && !f.valueSet[s] {
			vs = append(vs, RuleViolation{
				Rule:    "values",
				Message: fmt.Sprintf("value %q is not in the set %v", s, f.Values),
			})
		}
		return vs

	case Code:
		s, ok := v.(string)
		if !ok {
			return f.typeViolation(v)
		}
		var vs []RuleViolation
		if f.Width > 0 && len(s) != f.Width {
			vs = append(vs, RuleViolation{
				Rule:    "width",
				Message: fmt.Sprintf("code %q must be exactly %d characters", s, f.Width),
			})
		}
		if f.patternRE != nil && !f.patternRE.MatchString(s) {
			vs = append(vs, RuleViolation{
				Rule:    "pattern",
				Message: fmt.Sprintf("code %q does not match pattern %q", s, f.Pattern),
			})
		}
		return vs

	case Date:
		if _, ok := v.(data.Date); !ok {
			return f.typeViolation(v)
		}
		return nil

	case Time:
		if _, ok := v.(data.TimeOfDay); !ok {
			return f.typeViolation(v)
		}
		return nil
	}
	return nil
}

func (f *FieldSpec) typeViolation(v data.Value) []RuleViolation {
	return []RuleViolation{{
		Rule:    "type",
		Message: fmt.Sprintf("value %v is not a valid %s", v, f.Kind),
	}}
}

func (f *FieldSpec) checkBounds(x float64, text string) []RuleViolation {
	var vs []RuleViolation
	if f.Min != nil {
		if f.MinExclusive {
			if x <= *f.Min {
				vs = append(vs, RuleViolation{
					Rule:    "min",
					Message: fmt.Sprintf("value %s is not greater than lower bound of %g", text, *f.Min),
				})
			}
		} else if x < *f.Min {
			vs = append(vs, RuleViolation{
				Rule:    "min",
				Message: fmt.Sprintf("value %s is less than minimum allowed value of %g", text, *f.Min),
			})
		}
	}
	if f.Max != nil {
		if f.MaxExclusive {
			if x >= *f.Max {
				vs = append(vs, RuleViolation{
					Rule:    "max",
					Message: fmt.Sprintf("value %s is not less than upper bound of %g", text, *f.Max),
				})
			}
		} else if x > *f.Max {
			vs = append(vs, RuleViolation{
				Rule:    "max",
				Message: fmt.Sprintf("value %s is greater than maximum allowed value of %g", text, *f.Max),
			})
		}
	}
	return vs
}

// DefaultValue returns the field's parsed default value, or nil if the field
// has none.
func (f *FieldSpec) DefaultValue() data.Value { return f.defaultValue }

// Compare orders two non-nil values of the given comparable kind, returning
// a negative, zero, or positive result like strings.Compare.
func Compare(kind Kind, a, b data.Value) int {
	switch kind {
	case Integer:
		return a.(int) - b.(int)
	case Float, Angle:
		return cmpFloat(a.(float64), b.(float64))
	case Decimal:
		x, _ := strconv.ParseFloat(a.(string), 64)
		y, _ := strconv.ParseFloat(b.(string), 64)
		return cmpFloat(x, y)
	case Date:
		da, db := a.(data.Date), b.(data.Date)
		return cmpInts(da.Year, db.Year, da.Month, db.Month, da.Day, db.Day)
	case Time:
		ta, tb := a.(data.TimeOfDay), b.(data.TimeOfDay)
		return cmpInts(ta.Hour, tb.Hour, ta.Minute, tb.Minute, ta.Second, tb.Second)
	}
	return 0
}

func cmpFloat(x, y float64) int {
	switch {
	case x < y:
		return -1
	case x > y:
		return 1
	default:
		return 0
	}
}

func cmpInts(pairs ...int) int {
	for i := 0; i+1 < len(pairs); i += 2 {
		if d := pairs[i] - pairs[i+1]; d != 0 {
			return d
		}
	}
	return 0
}

func parseDate(s string) (data.Value, error) {
	m := dateRE.FindStringSubmatch(s)
	if m == nil {
		return nil, fmt.Errorf("bad date %q", s)
	}
	month, _ := strconv.Atoi(m[1])
	day, _ := strconv.Atoi(m[2])
	year, _ := strconv.Atoi(m[3])

	// Two-digit years below 70 fall in the 2000s, the rest in the 1900s.
	if year < 70 {
		year += 2000
	} else {
		year += 1900
	}

	if month == 0 || month > 12 {
		return nil, fmt.Errorf("month must be in range [1, 12]")
	}
	numDays := daysInMonth(year, month)
	if day == 0 || day > numDays {
		return nil, fmt.Errorf("day must be in range [1, %d] for month %d of %d", numDays, month, year)
	}
	return data.Date{Year: year, Month: month, Day: day}, nil
}

func daysInMonth(year, month int) int {
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func parseTime(s string) (data.Value, error) {
	m := timeRE.FindStringSubmatch(s)
	if m == nil {
		return nil, fmt.Errorf("bad time %q", s)
	}
	hour, _ := strconv.Atoi(m[1])
	minute, _ := strconv.Atoi(m[2])
	second, _ := strconv.Atoi(m[3])
	if hour > 23 {
		return nil, fmt.Errorf("hour must be in range [0, 23]")
	}
	if minute > 59 {
		return nil, fmt.Errorf("minute must be in range [0, 59]")
	}
	if second > 59 {
		return nil, fmt.Errorf("second must be in range [0, 59]")
	}
	return data.TimeOfDay{Hour: hour, Minute: minute, Second: second}, nil
}

func parseAngle(s string) (data.Value, error) {
	m := angleRE.FindStringSubmatch(s)
	if m == nil {
		return nil, fmt.Errorf("bad angle %q", s)
	}
	degrees, _ := strconv.Atoi(m[2])
	minutes, _ := strconv.Atoi(m[3])
	seconds, _ := strconv.Atoi(m[4])
	if minutes > 59 {
		return nil, fmt.Errorf("angle minutes must be in range [0, 59]")
	}
	if seconds > 59 {
		return nil, fmt.Errorf("angle seconds must be in range [0, 59]")
	}
	v := float64(degrees) + float64(minutes)/60 + float64(seconds)/3600
	if m[1] == "-" {
		v = -v
	}
	return v, nil
}

func formatAngle(v float64) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	totalSeconds := int(v*3600 + 0.5)
	seconds := totalSeconds % 60
	totalMinutes := totalSeconds / 60
	minutes := totalMinutes % 60
	degrees := totalMinutes / 60
	return fmt.Sprintf("%s%d:%02d:%02d", sign, degrees, minutes, seconds)
}
