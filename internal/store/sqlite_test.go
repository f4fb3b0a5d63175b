package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/jtomassoni/monaghans-sub000/internal/civil"
	"github.com/jtomassoni/monaghans-sub000/internal/occurrence"
	"github.com/jtomassoni/monaghans-sub000/internal/recurrence"
)

func openTestStore(t *testing.T) *SQLite {
	t.Helper()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "data", "events.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func mustParse(t *testing.T, v string, loc *time.Location) civil.DateTime {
	t.Helper()
	dt, err := civil.Parse(v, loc)
	if err != nil {
		t.Fatal(err)
	}
	return dt
}

func mustDate(t *testing.T, v string) civil.Date {
	t.Helper()
	d, err := civil.ParseDate(v)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func TestAddGetRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	loc, _ := civil.LoadZone("America/Denver")

	start := mustParse(t, "2026-01-07T19:00", loc)
	end := mustParse(t, "2026-01-07T22:00", loc)
	until := mustDate(t, "2026-01-28")
	rule, err := recurrence.NewRule(recurrence.Weekly{Weekdays: []time.Weekday{time.Wednesday}}, recurrence.Bounds{Until: &until, Exceptions: []civil.Date{mustDate(t, "2026-01-14")}}, start.Date)
	if err != nil {
		t.Fatal(err)
	}
	rec, err := s.Add(ctx, CreateInput{Title: "Trivia Night", Start: start, End: &end, Rule: rule})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if rec.ID == "" {
		t.Fatalf("expected generated id")
	}

	got, err := s.Get(ctx, rec.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if civil.Format(got.Start) != "2026-01-07T19:00" || civil.Format(*got.End) != "2026-01-07T22:00" {
		t.Fatalf("civil fields shifted: start=%s end=%s", got.Start, got.End)
	}
	if got.Start.Zone() != "America/Denver" {
		t.Fatalf("zone = %q", got.Start.Zone())
	}
	if got.Rule.Kind() != recurrence.KindWeekly || got.Rule.Until == nil || *got.Rule.Until != until {
		t.Fatalf("rule not restored: %s", got.Rule)
	}
	if len(got.Rule.Exceptions) != 1 {
		t.Fatalf("exceptions = %v", got.Rule.Exceptions)
	}

	occs := occurrence.ExpandAll(Series([]Record{*got}), mustDate(t, "2026-01-01"), mustDate(t, "2026-01-31"))
	if len(occs) != 3 {
		t.Fatalf("expected 3 occurrences after exception, got %d", len(occs))
	}
}

func TestAddRejectsInvalidInput(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	start := mustParse(t, "2026-03-10T20:00", time.UTC)
	before := mustParse(t, "2026-03-10T19:00", time.UTC)

	if _, err := s.Add(ctx, CreateInput{Title: "", Start: start}); err == nil {
		t.Fatalf("expected missing title error")
	}
	var ce *civil.InvalidCivilTimeError
	if _, err := s.Add(ctx, CreateInput{Title: "x", Start: start, End: &before}); !errors.As(err, &ce) {
		t.Fatalf("expected civil time error, got %v", err)
	}
	var re *recurrence.InvalidRuleError
	if _, err := s.Add(ctx, CreateInput{Title: "x", Start: start, Rule: recurrence.Rule{Pattern: recurrence.Weekly{}}}); !errors.As(err, &re) {
		t.Fatalf("expected rule error, got %v", err)
	}
}

func TestListFiltersByWindow(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	loc := time.UTC

	add := func(title, start string, rule recurrence.Rule) {
		t.Helper()
		if _, err := s.Add(ctx, CreateInput{Title: title, Start: mustParse(t, start, loc), Rule: rule}); err != nil {
			t.Fatalf("Add(%s): %v", title, err)
		}
	}
	until := mustDate(t, "2026-02-28")
	add("old single", "2026-01-10T18:00", recurrence.Once())
	add("ended series", "2026-01-05T18:00", recurrence.Rule{Pattern: recurrence.Monthly{DayOfMonth: 5}, Bounds: recurrence.Bounds{Until: &until}})
	add("open series", "2026-01-06T18:00", recurrence.Rule{Pattern: recurrence.Weekly{Weekdays: []time.Weekday{time.Tuesday}}})
	add("future single", "2026-03-20T18:00", recurrence.Once())
	add("far future", "2026-06-01T18:00", recurrence.Once())

	recs, err := s.List(ctx, Filter{From: mustDate(t, "2026-03-01"), To: mustDate(t, "2026-03-31")})
	if err != nil {
		t.Fatal(err)
	}
	var titles []string
	for _, r := range recs {
		titles = append(titles, r.Title)
	}
	if len(titles) != 2 || titles[0] != "open series" || titles[1] != "future single" {
		t.Fatalf("titles = %v", titles)
	}

	recs, err = s.List(ctx, Filter{Query: "SERIES"})
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 2 {
		t.Fatalf("query matched %d records", len(recs))
	}
}

func TestAddExceptionAndDelete(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	start := mustParse(t, "2026-04-01T12:00", time.UTC)
	rec, err := s.Add(ctx, CreateInput{Title: "Lunch special", Start: start, Rule: recurrence.Rule{Pattern: recurrence.Monthly{DayOfMonth: 1}}})
	if err != nil {
		t.Fatal(err)
	}
	updated, err := s.AddException(ctx, rec.ID, mustDate(t, "2026-05-01"))
	if err != nil {
		t.Fatalf("AddException: %v", err)
	}
	if !updated.Rule.IsException(mustDate(t, "2026-05-01")) {
		t.Fatalf("exception not stored")
	}
	if _, err := s.AddException(ctx, rec.ID, mustDate(t, "2026-03-01")); err == nil {
		t.Fatalf("expected error for exception before start")
	}
	if err := s.Delete(ctx, rec.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get(ctx, rec.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := s.Delete(ctx, rec.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}
