package occurrence

import (
	"sort"
	"time"

	"github.com/jtomassoni/monaghans-sub000/internal/civil"
)

// Classification splits occurrences around the business day.
type Classification struct {
	Day      civil.Date
	Today    []Occurrence
	Upcoming []Occurrence
}

// Classify reads now on the business zone's wall clock. An occurrence is
// today when its date equals that calendar day, even if it already ended or
// its end falls after midnight. Later dates are upcoming; earlier dates are
// dropped. Both lists are ascending.
func Classify(occs []Occurrence, now time.Time, loc *time.Location) Classification {
	today := civil.Today(now, loc)
	c := Classification{Day: today}
	for _, o := range occs {
		switch o.Date.Compare(today) {
		case 0:
			c.Today = append(c.Today, o)
		case 1:
			c.Upcoming = append(c.Upcoming, o)
		}
	}
	sortByDate(c.Today)
	sortByDate(c.Upcoming)
	return c
}

// Tonight drops occurrences that already ended before now. It is the
// homepage widget's policy, applied on top of Classify.
func Tonight(today []Occurrence, now time.Time) []Occurrence {
	out := make([]Occurrence, 0, len(today))
	for _, o := range today {
		if !o.Ended(now) {
			out = append(out, o)
		}
	}
	return out
}

func sortByDate(items []Occurrence) {
	sort.SliceStable(items, func(i, j int) bool {
		if c := items[i].Date.Compare(items[j].Date); c != 0 {
			return c < 0
		}
		if !items[i].Start.Equal(items[j].Start) {
			return items[i].Start.Before(items[j].Start)
		}
		return items[i].EventID < items[j].EventID
	})
}
