// Package recurrence describes when a repeating event recurs.
//
// A Rule pairs a Pattern (None, Weekly or Monthly) with orthogonal bounds:
// an inclusive Until date and a set of exception dates.
package recurrence

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/jtomassoni/monaghans-sub000/internal/civil"
)

// InvalidRuleError reports a rule that cannot be constructed.
type InvalidRuleError struct {
	Field  string
	Reason string
}

func (e *InvalidRuleError) Error() string {
	return fmt.Sprintf("invalid recurrence %s: %s", e.Field, e.Reason)
}

func invalid(field, format string, args ...any) error {
	return &InvalidRuleError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

type Kind string

const (
	KindNone    Kind = "none"
	KindWeekly  Kind = "weekly"
	KindMonthly Kind = "monthly"
)

// Pattern is the closed set of recurrence variants. Only None, Weekly and
// Monthly implement it.
type Pattern interface {
	Kind() Kind
	matches(d civil.Date) bool
}

// None is a single occurrence on the event's start date.
type None struct{}

func (None) Kind() Kind { return KindNone }

// None places no calendar constraint; the expander pins it to the start date.
func (None) matches(civil.Date) bool { return true }

// Weekly recurs on each listed weekday. Construct with NewWeekly.
type Weekly struct {
	Weekdays []time.Weekday
}

func (Weekly) Kind() Kind { return KindWeekly }

func (w Weekly) matches(d civil.Date) bool {
	wd := d.Weekday()
	for _, x := range w.Weekdays {
		if x == wd {
			return true
		}
	}
	return false
}

// NewWeekly de-duplicates and sorts the weekdays Monday first.
func NewWeekly(days ...time.Weekday) (Weekly, error) {
	if len(days) == 0 {
		return Weekly{}, invalid("weekdays", "at least one weekday is required")
	}
	seen := map[time.Weekday]bool{}
	out := make([]time.Weekday, 0, len(days))
	for _, d := range days {
		if d < time.Sunday || d > time.Saturday {
			return Weekly{}, invalid("weekdays", "unknown weekday %d", int(d))
		}
		if !seen[d] {
			seen[d] = true
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return mondayFirst(out[i]) < mondayFirst(out[j]) })
	return Weekly{Weekdays: out}, nil
}

func mondayFirst(d time.Weekday) int { return (int(d) + 6) % 7 }

// Monthly recurs once a month on DayOfMonth. In months shorter than
// DayOfMonth the occurrence is clamped to the month's last day.
type Monthly struct {
	DayOfMonth int
}

func (Monthly) Kind() Kind { return KindMonthly }

func (m Monthly) matches(d civil.Date) bool {
	return d.Day == m.DayIn(d.Year, d.Month)
}

// DayIn returns the day the pattern lands on in the given month.
func (m Monthly) DayIn(year int, month time.Month) int {
	if n := civil.DaysIn(year, month); m.DayOfMonth > n {
		return n
	}
	return m.DayOfMonth
}

func NewMonthly(day int) (Monthly, error) {
	if day < 1 || day > 31 {
		return Monthly{}, invalid("day_of_month", "must be between 1 and 31, got %d", day)
	}
	return Monthly{DayOfMonth: day}, nil
}

// Bounds limits a series independently of its pattern.
type Bounds struct {
	Until      *civil.Date
	Exceptions []civil.Date
}

// Rule is a validated pattern plus bounds.
type Rule struct {
	Pattern Pattern
	Bounds
}

// Once returns the degenerate single-occurrence rule.
func Once() Rule { return Rule{Pattern: None{}} }

// NewRule validates p and b against the series start date. A nil pattern is
// None. Exceptions are de-duplicated and sorted.
func NewRule(p Pattern, b Bounds, start civil.Date) (Rule, error) {
	if p == nil {
		p = None{}
	}
	switch v := p.(type) {
	case None:
	case Weekly:
		w, err := NewWeekly(v.Weekdays...)
		if err != nil {
			return Rule{}, err
		}
		p = w
	case Monthly:
		if _, err := NewMonthly(v.DayOfMonth); err != nil {
			return Rule{}, err
		}
	default:
		return Rule{}, invalid("kind", "unsupported pattern %T", p)
	}
	if b.Until != nil {
		if !b.Until.IsValid() {
			return Rule{}, invalid("until", "%s is not a calendar date", b.Until)
		}
		if b.Until.Before(start) {
			return Rule{}, invalid("until", "%s is before the start date %s", b.Until, start)
		}
		u := *b.Until
		b.Until = &u
	}
	ex := make([]civil.Date, 0, len(b.Exceptions))
	seen := map[civil.Date]bool{}
	for _, d := range b.Exceptions {
		if !d.IsValid() {
			return Rule{}, invalid("exceptions", "%s is not a calendar date", d)
		}
		if !seen[d] {
			seen[d] = true
			ex = append(ex, d)
		}
	}
	sort.Slice(ex, func(i, j int) bool { return ex[i].Before(ex[j]) })
	b.Exceptions = ex
	return Rule{Pattern: p, Bounds: b}, nil
}

// Kind returns the pattern kind, treating a zero Rule as None.
func (r Rule) Kind() Kind {
	if r.Pattern == nil {
		return KindNone
	}
	return r.Pattern.Kind()
}

// IncludesDate reports whether d is an occurrence date: it matches the
// pattern, is not after Until (inclusive) and is not an exception.
//
// The rule does not know the series start. None matches every date, so a
// caller testing a None rule must also require d to be the start date, as
// occurrence.Expand does; likewise dates before the start never occur.
func (r Rule) IncludesDate(d civil.Date) bool {
	if r.Until != nil && d.After(*r.Until) {
		return false
	}
	if r.IsException(d) {
		return false
	}
	if r.Pattern == nil {
		return true
	}
	return r.Pattern.matches(d)
}

// maxPatternGap bounds the search in First: a weekly day recurs within 7
// days and a clamped monthly day within 31.
const maxPatternGap = 31

// First returns the first date on or after from that matches the pattern,
// ignoring exceptions. It reports false when Until passes first.
func (r Rule) First(from civil.Date) (civil.Date, bool) {
	if r.Pattern == nil {
		return from, r.Until == nil || !from.After(*r.Until)
	}
	for i, d := 0, from; i <= maxPatternGap; i, d = i+1, d.AddDays(1) {
		if r.Until != nil && d.After(*r.Until) {
			return civil.Date{}, false
		}
		if r.Pattern.matches(d) {
			return d, true
		}
	}
	return civil.Date{}, false
}

func (r Rule) IsException(d civil.Date) bool {
	for _, x := range r.Exceptions {
		if x == d {
			return true
		}
	}
	return false
}

// WithException returns a copy of r that also suppresses d.
func (r Rule) WithException(d civil.Date) Rule {
	if r.IsException(d) {
		return r
	}
	ex := make([]civil.Date, 0, len(r.Exceptions)+1)
	ex = append(ex, r.Exceptions...)
	ex = append(ex, d)
	sort.Slice(ex, func(i, j int) bool { return ex[i].Before(ex[j]) })
	r.Exceptions = ex
	return r
}

// Describe renders a short human summary such as "weekly on Mon, Wed until 2026-03-31".
func (r Rule) Describe() string {
	var b strings.Builder
	switch p := r.Pattern.(type) {
	case Weekly:
		names := make([]string, len(p.Weekdays))
		for i, d := range p.Weekdays {
			names[i] = d.String()[:3]
		}
		b.WriteString("weekly on " + strings.Join(names, ", "))
	case Monthly:
		b.WriteString("monthly on the " + humanize.Ordinal(p.DayOfMonth))
		if p.DayOfMonth > 28 {
			b.WriteString(" or last day")
		}
	default:
		return "once"
	}
	if r.Until != nil {
		b.WriteString(" until " + r.Until.String())
	}
	if n := len(r.Exceptions); n > 0 {
		fmt.Fprintf(&b, " (%d skipped)", n)
	}
	return b.String()
}

// ParseWeekdays reads a comma-separated weekday list such as "mon,wed".
func ParseWeekdays(v string) ([]time.Weekday, error) {
	parts := strings.Split(v, ",")
	out := make([]time.Weekday, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		wd, err := parseWeekdayToken(p)
		if err != nil {
			return nil, err
		}
		out = append(out, wd)
	}
	if len(out) == 0 {
		return nil, invalid("weekdays", "at least one weekday is required")
	}
	return out, nil
}

func parseWeekdayToken(v string) (time.Weekday, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "mon", "monday", "mo":
		return time.Monday, nil
	case "tue", "tues", "tuesday", "tu":
		return time.Tuesday, nil
	case "wed", "wednesday", "we":
		return time.Wednesday, nil
	case "thu", "thurs", "thursday", "th":
		return time.Thursday, nil
	case "fri", "friday", "fr":
		return time.Friday, nil
	case "sat", "saturday", "sa":
		return time.Saturday, nil
	case "sun", "sunday", "su":
		return time.Sunday, nil
	default:
		return time.Sunday, invalid("weekdays", "unknown weekday %q", v)
	}
}
