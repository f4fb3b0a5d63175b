package app

import (
	"strings"
	"testing"
	"time"

	"github.com/jtomassoni/monaghans-sub000/internal/contract"
)

// 2026-03-02T06:30Z is Sunday 2026-03-01 23:30 in Denver.
var lateSundayNow = time.Date(2026, 3, 2, 6, 30, 0, 0, time.UTC)

func occurrencesJSON(t *testing.T, args ...string) []contract.Occurrence {
	t.Helper()
	out, errOut, err := runCLI(t, append([]string{"occurrences", "--json"}, args...)...)
	if err != nil {
		t.Fatalf("occurrences failed: %v\n%s", err, errOut)
	}
	return decodeEnvelope[[]contract.Occurrence](t, out).Data
}

func TestOccurrencesUntilInclusive(t *testing.T) {
	useTestStore(t, winterNow)
	mustAdd(t, "--title", "Trivia Night", "--start", "2026-01-07T19:00", "--end", "2026-01-07T22:00", "--weekly", "wed", "--until", "2026-01-28")
	occs := occurrencesJSON(t, "--from", "2026-01-01", "--to", "2026-02-28")
	want := []string{"2026-01-07", "2026-01-14", "2026-01-21", "2026-01-28"}
	if len(occs) != len(want) {
		t.Fatalf("expected %d occurrences, got %+v", len(want), occs)
	}
	for i, o := range occs {
		if o.Date != want[i] {
			t.Fatalf("occurrence %d: got %s want %s", i, o.Date, want[i])
		}
		if o.Local != "19:00-22:00" {
			t.Fatalf("occurrence %d: unexpected local span %q", i, o.Local)
		}
	}
}

func TestOccurrencesMidnightSpanIsOneOccurrence(t *testing.T) {
	useTestStore(t, winterNow)
	mustAdd(t, "--title", "Late Show", "--start", "2026-03-06T23:00", "--end", "2026-03-07T02:00")
	occs := occurrencesJSON(t, "--from", "2026-03-06", "--to", "2026-03-07")
	if len(occs) != 1 {
		t.Fatalf("expected one occurrence, got %+v", occs)
	}
	o := occs[0]
	if o.Date != "2026-03-06" || o.End == nil || o.End.Sub(o.Start) != 3*time.Hour {
		t.Fatalf("unexpected occurrence: %+v", o)
	}
	if !o.Start.Equal(time.Date(2026, 3, 7, 6, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected start instant %s", o.Start)
	}
	if occs := occurrencesJSON(t, "--from", "2026-03-07", "--to", "2026-03-07"); len(occs) != 0 {
		t.Fatalf("trailing day must not repeat the occurrence: %+v", occs)
	}
}

func TestOccurrencesKeepWallClockAcrossDST(t *testing.T) {
	useTestStore(t, winterNow)
	mustAdd(t, "--title", "Live Music", "--start", "2026-03-02T19:00", "--weekly", "mon")
	occs := occurrencesJSON(t, "--from", "2026-03-02", "--to", "2026-03-09")
	if len(occs) != 2 {
		t.Fatalf("expected two occurrences, got %+v", occs)
	}
	if !occs[0].Start.Equal(time.Date(2026, 3, 3, 2, 0, 0, 0, time.UTC)) {
		t.Fatalf("MST occurrence at %s", occs[0].Start)
	}
	if !occs[1].Start.Equal(time.Date(2026, 3, 10, 1, 0, 0, 0, time.UTC)) {
		t.Fatalf("MDT occurrence at %s", occs[1].Start)
	}
}

func TestOccurrencesMonthlyClamp(t *testing.T) {
	useTestStore(t, winterNow)
	mustAdd(t, "--title", "Whiskey Club", "--start", "2026-01-31T18:00", "--monthly", "31")
	occs := occurrencesJSON(t, "--from", "2026-01-01", "--to", "2026-12-31")
	if len(occs) != 12 {
		t.Fatalf("expected one occurrence per month, got %d", len(occs))
	}
	if occs[1].Date != "2026-02-28" || occs[3].Date != "2026-04-30" {
		t.Fatalf("unexpected clamped dates: %s %s", occs[1].Date, occs[3].Date)
	}
}

func TestOccurrencesWhereAndLimit(t *testing.T) {
	useTestStore(t, winterNow)
	mustAdd(t, "--title", "Trivia Night", "--start", "2026-01-07T19:00", "--weekly", "wed")
	mustAdd(t, "--title", "Live Music", "--start", "2026-01-09T21:00", "--weekly", "fri")
	occs := occurrencesJSON(t, "--from", "2026-01-05", "--to", "2026-01-31", "--where", "title~music", "--limit", "2")
	if len(occs) != 2 || occs[0].Title != "Live Music" || occs[0].Date != "2026-01-09" {
		t.Fatalf("unexpected filtered occurrences: %+v", occs)
	}
	if _, _, err := runCLI(t, "occurrences", "--where", "nonsense", "--json"); ExitCode(err) != 2 {
		t.Fatalf("expected usage error for bad predicate, got %v", err)
	}
	if _, _, err := runCLI(t, "occurrences", "--from", "2026-02-01", "--to", "2026-01-01", "--json"); ExitCode(err) != 2 {
		t.Fatalf("expected usage error for inverted window, got %v", err)
	}
}

func TestTodayClassifiesInBusinessZone(t *testing.T) {
	useTestStore(t, lateSundayNow)
	mustAdd(t, "--title", "Sunday Session", "--start", "2026-03-01T19:00", "--end", "2026-03-01T22:00")
	mustAdd(t, "--title", "Monday Trivia", "--start", "2026-03-02T19:00", "--end", "2026-03-02T22:00")

	out, errOut, err := runCLI(t, "today", "--json")
	if err != nil {
		t.Fatalf("today failed: %v\n%s", err, errOut)
	}
	c := decodeEnvelope[contract.Classification](t, out).Data
	if c.Date != "2026-03-01" || c.Zone != "America/Denver" {
		t.Fatalf("unexpected business day: %+v", c)
	}
	if len(c.Today) != 1 || c.Today[0].Title != "Sunday Session" {
		t.Fatalf("ended occurrence must still be today: %+v", c.Today)
	}
	if len(c.Upcoming) != 1 || c.Upcoming[0].Title != "Monday Trivia" {
		t.Fatalf("unexpected upcoming: %+v", c.Upcoming)
	}
}

func TestTodayPlainSections(t *testing.T) {
	useTestStore(t, lateSundayNow)
	mustAdd(t, "--title", "Monday Trivia", "--start", "2026-03-02T19:00", "--end", "2026-03-02T22:00")
	out, _, err := runCLI(t, "today", "--plain")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Today 2026-03-01 (America/Denver)") || !strings.Contains(out, "nothing scheduled") {
		t.Fatalf("unexpected plain output:\n%s", out)
	}
	if !strings.Contains(out, "2026-03-02  19:00-22:00  Monday Trivia") {
		t.Fatalf("missing upcoming line:\n%s", out)
	}
}

func TestTonightDropsEndedOccurrences(t *testing.T) {
	useTestStore(t, lateSundayNow)
	mustAdd(t, "--title", "Early Set", "--start", "2026-03-01T19:00", "--end", "2026-03-01T21:00")
	mustAdd(t, "--title", "Late Set", "--start", "2026-03-01T22:00", "--end", "2026-03-02T01:00")
	mustAdd(t, "--title", "Monday Trivia", "--start", "2026-03-02T19:00", "--end", "2026-03-02T22:00")

	out, errOut, err := runCLI(t, "tonight", "--json")
	if err != nil {
		t.Fatalf("tonight failed: %v\n%s", err, errOut)
	}
	items := decodeEnvelope[[]contract.Occurrence](t, out).Data
	if len(items) != 1 || items[0].Title != "Late Set" {
		t.Fatalf("unexpected tonight list: %+v", items)
	}
	if items[0].Relative != "now" {
		t.Fatalf("running occurrence should read as now, got %q", items[0].Relative)
	}
}

func TestCalendarMonthSummary(t *testing.T) {
	useTestStore(t, winterNow)
	mustAdd(t, "--title", "Whiskey Club", "--start", "2026-01-31T18:00", "--monthly", "31")
	out, errOut, err := runCLI(t, "calendar", "--month", "--of", "2026-02", "--summary", "--json")
	if err != nil {
		t.Fatalf("calendar failed: %v\n%s", err, errOut)
	}
	env := decodeEnvelope[[]contract.DaySummary](t, out)
	rows := env.Data
	if len(rows) != 28 {
		t.Fatalf("expected 28 rows, got %d", len(rows))
	}
	if rows[27].Date != "2026-02-28" || rows[27].Total != 1 || rows[27].Timed != 1 {
		t.Fatalf("unexpected last row: %+v", rows[27])
	}
	if env.Meta["month"] != "2026-02" || env.Meta["view"] != "month" {
		t.Fatalf("unexpected meta: %v", env.Meta)
	}
}

func TestCalendarWeekUsesWeekStart(t *testing.T) {
	useTestStore(t, winterNow)
	mustAdd(t, "--title", "Sunday Roast", "--start", "2026-01-04T12:00", "--weekly", "sun")
	out, _, err := runCLI(t, "calendar", "--of", "2026-01-07", "--week-start", "sunday", "--json")
	if err != nil {
		t.Fatal(err)
	}
	env := decodeEnvelope[[]contract.Occurrence](t, out)
	if env.Meta["from"] != "2026-01-04" || env.Meta["to"] != "2026-01-10" {
		t.Fatalf("unexpected week bounds: %v", env.Meta)
	}
	if len(env.Data) != 1 || env.Data[0].Date != "2026-01-04" {
		t.Fatalf("unexpected occurrences: %+v", env.Data)
	}
}

func TestOccurrencesHelpStatesWindowPolicy(t *testing.T) {
	cmd := newOccurrencesCmd(&globalOptions{})
	if usage := cmd.Flags().Lookup("to").Usage; !strings.Contains(usage, "not before --from") {
		t.Fatalf("--to help does not state the window policy: %q", usage)
	}
	if !strings.Contains(cmd.Long, "usage error") {
		t.Fatalf("long help does not state the inverted window policy: %q", cmd.Long)
	}
}
