package app

import (
	"github.com/jtomassoni/monaghans-sub000/internal/civil"
	"github.com/jtomassoni/monaghans-sub000/internal/contract"
	"github.com/jtomassoni/monaghans-sub000/internal/occurrence"
)

// summarizeByDay counts occurrences per date, emitting a row for every day in
// [from, to] including empty ones.
func summarizeByDay(occs []occurrence.Occurrence, from, to civil.Date) []contract.DaySummary {
	if to.Before(from) {
		return nil
	}
	buckets := map[civil.Date]*contract.DaySummary{}
	for _, o := range occs {
		row, ok := buckets[o.Date]
		if !ok {
			row = &contract.DaySummary{Date: o.Date.String()}
			buckets[o.Date] = row
		}
		row.Total++
		if o.AllDay {
			row.AllDay++
		} else {
			row.Timed++
		}
	}

	rows := make([]contract.DaySummary, 0, from.DaysUntil(to)+1)
	for d := from; !d.After(to); d = d.AddDays(1) {
		if row, ok := buckets[d]; ok {
			rows = append(rows, *row)
			continue
		}
		rows = append(rows, contract.DaySummary{Date: d.String()})
	}
	return rows
}
