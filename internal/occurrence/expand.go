// Package occurrence turns event definitions and recurrence rules into
// concrete occurrences and sorts them into today and upcoming.
//
// Every function here is pure: no logging, no clocks, no package state.
package occurrence

import (
	"sort"
	"time"

	"github.com/jtomassoni/monaghans-sub000/internal/civil"
	"github.com/jtomassoni/monaghans-sub000/internal/recurrence"
)

// Occurrence is one concrete instance of an event. It is rebuilt on every
// expansion and never stored.
type Occurrence struct {
	EventID string
	Title   string
	Date    civil.Date
	Start   time.Time
	End     *time.Time
	AllDay  bool
}

// Ended reports whether the occurrence finished before now. Occurrences
// without an end never count as ended.
func (o Occurrence) Ended(now time.Time) bool {
	return o.End != nil && o.End.Before(now)
}

// Series is a definition with its rule.
type Series struct {
	Definition Definition
	Rule       recurrence.Rule
}

// Expand returns the occurrences of def under rule whose dates fall in the
// inclusive window [from, to], ascending by date. An inverted window yields
// nothing. Each occurrence keeps the definition's wall-clock start and end
// times, so a 19:00-02:00 event stays 19:00-02:00 on both sides of a DST
// change, and a midnight-spanning event stays one occurrence dated on its
// start day.
func Expand(def Definition, rule recurrence.Rule, from, to civil.Date) []Occurrence {
	if to.Before(from) {
		return nil
	}
	first := def.Start.Date
	if rule.Kind() == recurrence.KindNone {
		if first.Before(from) || first.After(to) || !rule.IncludesDate(first) {
			return nil
		}
		return []Occurrence{build(def, first)}
	}

	lo := civil.MaxDate(first, from)
	hi := to
	if rule.Until != nil {
		hi = civil.MinDate(hi, *rule.Until)
	}
	var out []Occurrence
	for d := lo; !d.After(hi); d = d.AddDays(1) {
		if rule.IncludesDate(d) {
			out = append(out, build(def, d))
		}
	}
	return out
}

// ExpandAll expands every series and merges the result by start instant,
// then event ID.
func ExpandAll(series []Series, from, to civil.Date) []Occurrence {
	var out []Occurrence
	for _, s := range series {
		out = append(out, Expand(s.Definition, s.Rule, from, to)...)
	}
	sortByStart(out)
	return out
}

func build(def Definition, d civil.Date) Occurrence {
	occ := Occurrence{EventID: def.ID, Title: def.Title, Date: d, AllDay: def.AllDay}
	loc := def.Start.Location
	span := def.spanDays()

	if def.AllDay {
		occ.Start = d.Midnight(loc)
		end := d.AddDays(span + 1).Midnight(loc)
		occ.End = &end
		return occ
	}

	occ.Start = civil.Resolve(def.Start.At(d))
	if def.End != nil {
		end := civil.Resolve(def.End.At(d.AddDays(span)))
		// a DST transition can fold a short span onto itself
		if end.Before(occ.Start) {
			end = occ.Start
		}
		occ.End = &end
	}
	return occ
}

func sortByStart(items []Occurrence) {
	sort.SliceStable(items, func(i, j int) bool {
		if !items[i].Start.Equal(items[j].Start) {
			return items[i].Start.Before(items[j].Start)
		}
		return items[i].EventID < items[j].EventID
	})
}
