// Package data holds observation values and the Observation record type.
// Everything here is plain comparable data; parsing, formatting, and
// validation live elsewhere.
package data

import "fmt"

// Value is an observation field value. The concrete types used by the
// engine are int, float64, string, Date, and TimeOfDay, all comparable
// with ==. A nil Value represents an absent optional field.
type Value interface{}

// Date is a calendar date. Month and Day are 1-based.
type Date struct {
	Year  int
	Month int
	Day   int
}

// String returns the date in m/d/yy form.
func (d Date) String() string {
	return fmt.Sprintf("%d/%d/%02d", d.Month, d.Day, d.Year%100)
}

// TimeOfDay is a wall-clock time with second resolution.
type TimeOfDay struct {
	Hour   int
	Minute int
	Second int
}

// String returns the time in h:mm:ss form.
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%d:%02d:%02d", t.Hour, t.Minute, t.Second)
}
