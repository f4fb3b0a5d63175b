// Package civil models wall-clock dates and times tagged with a named zone.
//
// A DateTime is what a clock on the wall shows. It carries no absolute
// instant until Resolve pins it to the zone's offset for that calendar date.
package civil

import (
	"fmt"
	"time"
)

const (
	DateLayout     = "2006-01-02"
	DateTimeLayout = "2006-01-02T15:04"
)

// InvalidCivilTimeError reports a malformed or out-of-range civil field.
type InvalidCivilTimeError struct {
	Field  string
	Value  string
	Reason string
}

func (e *InvalidCivilTimeError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

func invalid(field, value, reason string) error {
	return &InvalidCivilTimeError{Field: field, Value: value, Reason: reason}
}

// Date is a calendar day with no zone.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// NewDate validates the fields against the Gregorian calendar, leap years included.
func NewDate(year int, month time.Month, day int) (Date, error) {
	d := Date{Year: year, Month: month, Day: day}
	if err := d.validate(); err != nil {
		return Date{}, err
	}
	return d, nil
}

func (d Date) validate() error {
	if d.Year < 1 || d.Year > 9999 {
		return invalid("year", fmt.Sprint(d.Year), "must be between 1 and 9999")
	}
	if d.Month < time.January || d.Month > time.December {
		return invalid("month", fmt.Sprint(int(d.Month)), "must be between 1 and 12")
	}
	if n := DaysIn(d.Year, d.Month); d.Day < 1 || d.Day > n {
		return invalid("day", fmt.Sprint(d.Day), fmt.Sprintf("must be between 1 and %d for %d-%02d", n, d.Year, int(d.Month)))
	}
	return nil
}

// IsValid reports whether d names a real calendar day.
func (d Date) IsValid() bool { return d.validate() == nil }

// DaysIn returns the number of days in the given month.
func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// DateOf returns the calendar day of t in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// Today returns the current calendar day in loc.
func Today(now time.Time, loc *time.Location) Date {
	return DateOf(now.In(loc))
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

func (d Date) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

func (d *Date) UnmarshalText(b []byte) error {
	v, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = v
	return nil
}

const secondsPerDay = 24 * 60 * 60

// utc anchors d at UTC midnight; only used for day arithmetic.
func (d Date) utc() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// AddDays moves d by n calendar days, crossing month and year ends.
func (d Date) AddDays(n int) Date {
	return DateOf(d.utc().AddDate(0, 0, n))
}

// DaysUntil returns the number of calendar days from d to other.
func (d Date) DaysUntil(other Date) int {
	return int((other.utc().Unix() - d.utc().Unix()) / secondsPerDay)
}

func (d Date) Weekday() time.Weekday { return d.utc().Weekday() }

// Compare returns -1, 0 or +1.
func (d Date) Compare(other Date) int {
	switch {
	case d.Year != other.Year:
		return cmpInt(d.Year, other.Year)
	case d.Month != other.Month:
		return cmpInt(int(d.Month), int(other.Month))
	default:
		return cmpInt(d.Day, other.Day)
	}
}

func (d Date) Before(other Date) bool { return d.Compare(other) < 0 }
func (d Date) After(other Date) bool  { return d.Compare(other) > 0 }

func (d Date) IsZero() bool { return d == Date{} }

// Midnight returns the first instant of d in loc.
func (d Date) Midnight(loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

// MinDate and MaxDate return the earlier and later of two dates.
func MinDate(a, b Date) Date {
	if b.Before(a) {
		return b
	}
	return a
}

func MaxDate(a, b Date) Date {
	if b.After(a) {
		return b
	}
	return a
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Clock is a time of day at minute resolution.
type Clock struct {
	Hour   int
	Minute int
}

func NewClock(hour, minute int) (Clock, error) {
	if hour < 0 || hour > 23 {
		return Clock{}, invalid("hour", fmt.Sprint(hour), "must be between 0 and 23")
	}
	if minute < 0 || minute > 59 {
		return Clock{}, invalid("minute", fmt.Sprint(minute), "must be between 0 and 59")
	}
	return Clock{Hour: hour, Minute: minute}, nil
}

func (c Clock) String() string { return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute) }

// DateTime is a wall-clock reading in a named zone.
type DateTime struct {
	Date
	Clock
	Location *time.Location
}

// New validates every field and returns the civil value.
func New(year int, month time.Month, day, hour, minute int, loc *time.Location) (DateTime, error) {
	d, err := NewDate(year, month, day)
	if err != nil {
		return DateTime{}, err
	}
	c, err := NewClock(hour, minute)
	if err != nil {
		return DateTime{}, err
	}
	if loc == nil {
		return DateTime{}, invalid("timezone", "", "zone is required")
	}
	return DateTime{Date: d, Clock: c, Location: loc}, nil
}

// Zone returns the IANA name of the zone the value is read in.
func (dt DateTime) Zone() string {
	if dt.Location == nil {
		return ""
	}
	return dt.Location.String()
}

// At combines a date with the wall-clock time and zone of dt.
func (dt DateTime) At(d Date) DateTime {
	return DateTime{Date: d, Clock: dt.Clock, Location: dt.Location}
}

// Resolve pins dt to an absolute instant using the zone offset in effect on
// dt's calendar date. Wall times inside a spring-forward gap move forward by
// the gap; repeated fall-back times resolve to the first instant.
func Resolve(dt DateTime) time.Time {
	loc := dt.Location
	if loc == nil {
		loc = time.UTC
	}
	return time.Date(dt.Year, dt.Month, dt.Day, dt.Hour, dt.Minute, 0, 0, loc)
}

// FromInstant reads t on the wall clock of loc.
func FromInstant(t time.Time, loc *time.Location) DateTime {
	local := t.In(loc)
	return DateTime{
		Date:     DateOf(local),
		Clock:    Clock{Hour: local.Hour(), Minute: local.Minute()},
		Location: loc,
	}
}

// Format renders dt as YYYY-MM-DDTHH:mm from its own fields. It never
// converts through UTC.
func Format(dt DateTime) string {
	return dt.Date.String() + "T" + dt.Clock.String()
}

func (dt DateTime) String() string { return Format(dt) }

// LoadZone loads a named IANA zone. Empty and "Local" are rejected so the
// host's zone never leaks into business time.
func LoadZone(name string) (*time.Location, error) {
	switch name {
	case "":
		return nil, invalid("timezone", "", "zone name is required")
	case "Local":
		return nil, invalid("timezone", name, "host local zone is not allowed")
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, invalid("timezone", name, err.Error())
	}
	return loc, nil
}
