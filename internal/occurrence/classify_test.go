package occurrence

import (
	"testing"
	"time"

	"github.com/jtomassoni/monaghans-sub000/internal/civil"
	"github.com/jtomassoni/monaghans-sub000/internal/recurrence"
)

func TestClassifyUsesBusinessZone(t *testing.T) {
	loc := denver(t)
	// 23:30 in Denver on 2026-03-01 is already 2026-03-02 in UTC.
	now := time.Date(2026, 3, 2, 6, 30, 0, 0, time.UTC)
	first := def(t, "2026-03-01T20:00", "2026-03-01T23:00", loc)
	second := def(t, "2026-03-02T20:00", "", loc)
	second.ID = "ev-2"
	occs := append(
		Expand(first, recurrence.Once(), day(t, "2026-03-01"), day(t, "2026-03-02")),
		Expand(second, recurrence.Once(), day(t, "2026-03-01"), day(t, "2026-03-02"))...,
	)
	c := Classify(occs, now, loc)
	if c.Day.String() != "2026-03-01" {
		t.Fatalf("day = %s", c.Day)
	}
	if len(c.Today) != 1 || c.Today[0].Date.String() != "2026-03-01" {
		t.Fatalf("today = %+v", c.Today)
	}
	if len(c.Upcoming) != 1 || c.Upcoming[0].Date.String() != "2026-03-02" {
		t.Fatalf("upcoming = %+v", c.Upcoming)
	}
}

func TestClassifyIgnoresHostZone(t *testing.T) {
	loc := denver(t)
	orig := time.Local
	t.Cleanup(func() { time.Local = orig })
	time.Local = time.FixedZone("UTC+9", 9*3600)

	// 06:30 on 2026-03-02 in the host zone is 14:30 on 2026-03-01 in Denver.
	now := time.Date(2026, 3, 2, 6, 30, 0, 0, time.Local)
	occ := Occurrence{EventID: "x", Date: civil.Date{Year: 2026, Month: 3, Day: 1}}
	c := Classify([]Occurrence{occ}, now, loc)
	if len(c.Today) != 1 || len(c.Upcoming) != 0 {
		t.Fatalf("expected the occurrence to be today, got %+v", c)
	}
}

func TestClassifyEndedStillToday(t *testing.T) {
	loc := denver(t)
	d := def(t, "2026-08-14T11:00", "2026-08-14T13:00", loc)
	occs := Expand(d, recurrence.Once(), day(t, "2026-08-14"), day(t, "2026-08-14"))
	now := time.Date(2026, 8, 14, 20, 0, 0, 0, loc)
	c := Classify(occs, now, loc)
	if len(c.Today) != 1 {
		t.Fatalf("ended occurrence must still classify as today")
	}
	if tonight := Tonight(c.Today, now); len(tonight) != 0 {
		t.Fatalf("tonight should drop ended occurrences: %+v", tonight)
	}
}

func TestTonightKeepsMidnightSpan(t *testing.T) {
	loc := denver(t)
	d := def(t, "2026-08-14T22:00", "2026-08-15T01:00", loc)
	occs := Expand(d, recurrence.Once(), day(t, "2026-08-14"), day(t, "2026-08-14"))
	now := time.Date(2026, 8, 14, 23, 45, 0, 0, loc)
	c := Classify(occs, now, loc)
	if got := Tonight(c.Today, now); len(got) != 1 {
		t.Fatalf("running late show should stay on tonight: %+v", got)
	}
}

func TestClassifyDropsPastAndSorts(t *testing.T) {
	loc := denver(t)
	d := def(t, "2026-08-10T18:00", "", loc)
	r := rule(t, recurrence.Weekly{Weekdays: []time.Weekday{time.Monday, time.Friday}}, recurrence.Bounds{}, d.Start.Date)
	occs := Expand(d, r, day(t, "2026-08-01"), day(t, "2026-08-31"))
	// reverse to prove Classify sorts
	for i, j := 0, len(occs)-1; i < j; i, j = i+1, j-1 {
		occs[i], occs[j] = occs[j], occs[i]
	}
	now := time.Date(2026, 8, 17, 9, 0, 0, 0, loc)
	c := Classify(occs, now, loc)
	if len(c.Today) != 1 || c.Today[0].Date.String() != "2026-08-17" {
		t.Fatalf("today = %v", dates(c.Today))
	}
	want := []string{"2026-08-21", "2026-08-24", "2026-08-28", "2026-08-31"}
	got := dates(c.Upcoming)
	if len(got) != len(want) {
		t.Fatalf("upcoming = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("upcoming = %v, want %v", got, want)
		}
	}
}
