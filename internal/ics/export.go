// Package ics renders event definitions and occurrences as iCalendar.
package ics

import (
	"fmt"
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/jtomassoni/monaghans-sub000/internal/civil"
	"github.com/jtomassoni/monaghans-sub000/internal/occurrence"
	"github.com/jtomassoni/monaghans-sub000/internal/store"
)

const (
	productID   = "-//monaghans//events//EN"
	localLayout = "20060102T150405"
	dateLayout  = "20060102"
)

// Series writes one VEVENT per definition with its RRULE and EXDATEs.
// Timed events use DTSTART;TZID so the series keeps its wall-clock time
// across DST when a client expands it. DTSTART is moved to the first date
// the pattern produces, since clients always count DTSTART as an instance;
// a series that ends before its first match is left out.
func Series(records []store.Record, zone string, stamp time.Time) *ical.Calendar {
	cal := newCalendar(zone)
	for _, r := range records {
		start, end, ok := anchor(r)
		if !ok {
			continue
		}
		ev := cal.AddEvent(r.ID + "@monaghans")
		ev.SetDtStampTime(stamp)
		ev.SetSummary(r.Title)
		if r.Notes != "" {
			ev.SetDescription(r.Notes)
		}
		if !r.CreatedAt.IsZero() {
			ev.SetCreatedTime(r.CreatedAt)
		}
		if !r.UpdatedAt.IsZero() {
			ev.SetModifiedAt(r.UpdatedAt)
		}
		tzid := ical.WithTZID(start.Zone())
		var rule string
		if r.AllDay {
			ev.SetAllDayStartAt(start.Date.Midnight(time.UTC))
			last := start.Date
			if end != nil {
				last = end.Date
			}
			ev.SetAllDayEndAt(last.AddDays(1).Midnight(time.UTC))
			rule = r.Rule.DateRRule(start)
		} else {
			ev.SetProperty(ical.ComponentPropertyDtStart, localStamp(start), tzid)
			if end != nil {
				ev.SetProperty(ical.ComponentPropertyDtEnd, localStamp(*end), tzid)
			}
			rule = r.Rule.RRule(start)
		}
		if rule != "" {
			ev.AddRrule(rule)
		}
		for _, d := range r.Rule.Exceptions {
			if d.Before(start.Date) {
				continue
			}
			if r.AllDay {
				ev.AddExdate(d.Midnight(time.UTC).Format(dateLayout), ical.WithValue(string(ical.ValueDataTypeDate)))
				continue
			}
			ev.AddExdate(localStamp(start.At(d)), tzid)
		}
	}
	return cal
}

// anchor returns the start and end of the first instance of r. The end
// keeps its day distance from the start.
func anchor(r store.Record) (civil.DateTime, *civil.DateTime, bool) {
	first, ok := r.Rule.First(r.Start.Date)
	if !ok {
		return civil.DateTime{}, nil, false
	}
	shift := r.Start.Date.DaysUntil(first)
	start := r.Start.At(first)
	if r.End == nil {
		return start, nil, true
	}
	end := r.End.At(r.End.Date.AddDays(shift))
	return start, &end, true
}

// Occurrences writes already expanded occurrences as standalone VEVENTs
// with UTC times, for clients that do not expand RRULEs.
func Occurrences(occs []occurrence.Occurrence, zone string, stamp time.Time) *ical.Calendar {
	cal := newCalendar(zone)
	for _, o := range occs {
		ev := cal.AddEvent(fmt.Sprintf("%s-%s@monaghans", o.EventID, o.Date))
		ev.SetDtStampTime(stamp)
		ev.SetSummary(o.Title)
		if o.AllDay {
			ev.SetAllDayStartAt(o.Date.Midnight(time.UTC))
			if o.End != nil {
				loc := o.Start.Location()
				ev.SetAllDayEndAt(civil.DateOf(o.End.In(loc)).Midnight(time.UTC))
			}
			continue
		}
		ev.SetStartAt(o.Start)
		if o.End != nil {
			ev.SetEndAt(*o.End)
		}
	}
	return cal
}

func newCalendar(zone string) *ical.Calendar {
	cal := ical.NewCalendar()
	cal.SetProductId(productID)
	cal.SetMethod(ical.MethodPublish)
	if zone != "" {
		cal.SetXWRTimezone(zone)
	}
	return cal
}

func localStamp(dt civil.DateTime) string {
	return fmt.Sprintf("%04d%02d%02dT%02d%02d00", dt.Year, int(dt.Month), dt.Day, dt.Hour, dt.Minute)
}
