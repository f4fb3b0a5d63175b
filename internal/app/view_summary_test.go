package app

import (
	"testing"
	"time"

	"github.com/jtomassoni/monaghans-sub000/internal/occurrence"
)

func TestSummarizeByDay(t *testing.T) {
	from, to := mustDate(t, "2026-02-09"), mustDate(t, "2026-02-11")
	occs := []occurrence.Occurrence{
		{Date: from, Start: time.Date(2026, 2, 9, 17, 0, 0, 0, time.UTC)},
		{Date: from, AllDay: true},
		{Date: to, Start: time.Date(2026, 2, 12, 2, 0, 0, 0, time.UTC)},
	}
	rows := summarizeByDay(occs, from, to)
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	if rows[0].Date != "2026-02-09" || rows[0].Total != 2 || rows[0].AllDay != 1 || rows[0].Timed != 1 {
		t.Fatalf("unexpected day 1 summary: %+v", rows[0])
	}
	if rows[1].Date != "2026-02-10" || rows[1].Total != 0 {
		t.Fatalf("unexpected day 2 summary: %+v", rows[1])
	}
	// bucketed by occurrence date, not by the UTC instant
	if rows[2].Date != "2026-02-11" || rows[2].Total != 1 {
		t.Fatalf("unexpected day 3 summary: %+v", rows[2])
	}
	if got := summarizeByDay(occs, to, from); got != nil {
		t.Fatalf("inverted window should be empty, got %+v", got)
	}
}
