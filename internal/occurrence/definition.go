package occurrence

import (
	"github.com/jtomassoni/monaghans-sub000/internal/civil"
)

// Definition is a stored event as the expander reads it.
type Definition struct {
	ID     string
	Title  string
	Start  civil.DateTime
	End    *civil.DateTime
	AllDay bool
}

// NewDefinition validates start and end. The end may fall on a later
// calendar day than the start but must not resolve to an earlier instant.
func NewDefinition(id, title string, start civil.DateTime, end *civil.DateTime, allDay bool) (Definition, error) {
	if start.Location == nil {
		return Definition{}, &civil.InvalidCivilTimeError{Field: "start", Value: civil.Format(start), Reason: "zone is required"}
	}
	if end != nil {
		if end.Location == nil || end.Zone() != start.Zone() {
			return Definition{}, &civil.InvalidCivilTimeError{Field: "end", Value: civil.Format(*end), Reason: "must use the start's zone " + start.Zone()}
		}
		if allDay && end.Date.Before(start.Date) {
			return Definition{}, &civil.InvalidCivilTimeError{Field: "end", Value: end.Date.String(), Reason: "must not be before the start date " + start.Date.String()}
		}
		if !allDay && civil.Resolve(*end).Before(civil.Resolve(start)) {
			return Definition{}, &civil.InvalidCivilTimeError{Field: "end", Value: civil.Format(*end), Reason: "must not be before the start " + civil.Format(start)}
		}
		e := *end
		end = &e
	}
	return Definition{ID: id, Title: title, Start: start, End: end, AllDay: allDay}, nil
}

// SpansMidnight reports whether the end falls on a later calendar day.
func (d Definition) SpansMidnight() bool {
	return d.End != nil && d.End.Date.After(d.Start.Date)
}

// spanDays is the wall-clock day distance from start to end.
func (d Definition) spanDays() int {
	if d.End == nil {
		return 0
	}
	return d.Start.Date.DaysUntil(d.End.Date)
}
