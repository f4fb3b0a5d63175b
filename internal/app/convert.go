package app

import (
	"time"

	"github.com/dustin/go-humanize"

	"github.com/jtomassoni/monaghans-sub000/internal/civil"
	"github.com/jtomassoni/monaghans-sub000/internal/contract"
	"github.com/jtomassoni/monaghans-sub000/internal/occurrence"
	"github.com/jtomassoni/monaghans-sub000/internal/recurrence"
	"github.com/jtomassoni/monaghans-sub000/internal/store"
)

func toEvent(r store.Record) contract.Event {
	e := contract.Event{
		ID:         r.ID,
		Title:      r.Title,
		Notes:      r.Notes,
		Zone:       r.Start.Zone(),
		Start:      civil.Format(r.Start),
		AllDay:     r.AllDay,
		Recurrence: toRecurrence(r.Rule, r.Start),
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
	if r.End != nil {
		e.End = civil.Format(*r.End)
	}
	return e
}

func toEvents(records []store.Record) []contract.Event {
	out := make([]contract.Event, len(records))
	for i, r := range records {
		out[i] = toEvent(r)
	}
	return out
}

func toRecurrence(rule recurrence.Rule, start civil.DateTime) contract.Recurrence {
	out := contract.Recurrence{
		Kind:        string(rule.Kind()),
		RRule:       rule.RRule(start),
		Description: rule.Describe(),
	}
	switch p := rule.Pattern.(type) {
	case recurrence.Weekly:
		for _, d := range p.Weekdays {
			out.Weekdays = append(out.Weekdays, d.String())
		}
	case recurrence.Monthly:
		out.DayOfMonth = p.DayOfMonth
	}
	if rule.Until != nil {
		out.Until = rule.Until.String()
	}
	for _, d := range rule.Exceptions {
		out.Exceptions = append(out.Exceptions, d.String())
	}
	return out
}

// toOccurrence renders o for output. Local is the wall-clock span in loc and
// Relative is measured from now.
func toOccurrence(o occurrence.Occurrence, loc *time.Location, now time.Time) contract.Occurrence {
	out := contract.Occurrence{
		EventID: o.EventID,
		Title:   o.Title,
		Date:    o.Date.String(),
		Start:   o.Start,
		End:     o.End,
		AllDay:  o.AllDay,
	}
	switch {
	case o.AllDay:
		out.Local = "all day"
	case o.End != nil:
		out.Local = o.Start.In(loc).Format("15:04") + "-" + o.End.In(loc).Format("15:04")
	default:
		out.Local = o.Start.In(loc).Format("15:04")
	}
	if !now.IsZero() {
		if o.End != nil && !o.Start.After(now) && o.End.After(now) {
			out.Relative = "now"
		} else {
			out.Relative = humanize.RelTime(o.Start, now, "ago", "from now")
		}
	}
	return out
}

func toOccurrences(occs []occurrence.Occurrence, loc *time.Location, now time.Time) []contract.Occurrence {
	out := make([]contract.Occurrence, len(occs))
	for i, o := range occs {
		out[i] = toOccurrence(o, loc, now)
	}
	return out
}

func toClassification(c occurrence.Classification, loc *time.Location, now time.Time) contract.Classification {
	return contract.Classification{
		Date:     c.Day.String(),
		Zone:     loc.String(),
		Today:    toOccurrences(c.Today, loc, now),
		Upcoming: toOccurrences(c.Upcoming, loc, now),
	}
}
