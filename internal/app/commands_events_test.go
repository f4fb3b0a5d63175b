package app

import (
	"testing"
	"time"

	"github.com/jtomassoni/monaghans-sub000/internal/contract"
)

var winterNow = time.Date(2026, 1, 5, 18, 0, 0, 0, time.UTC)

func TestEventsAddWeeklyAndShow(t *testing.T) {
	useTestStore(t, winterNow)
	ev := mustAdd(t, "--title", "Trivia Night", "--start", "2026-01-07T19:00", "--end", "2026-01-07T22:00", "--weekly", "wed", "--until", "2026-01-28")
	if ev.ID == "" || ev.Zone != "America/Denver" || ev.Start != "2026-01-07T19:00" || ev.End != "2026-01-07T22:00" {
		t.Fatalf("unexpected event: %+v", ev)
	}
	r := ev.Recurrence
	if r.Kind != "weekly" || len(r.Weekdays) != 1 || r.Weekdays[0] != "Wednesday" || r.Until != "2026-01-28" {
		t.Fatalf("unexpected recurrence: %+v", r)
	}
	if r.RRule != "FREQ=WEEKLY;UNTIL=20260129T065959Z;BYDAY=WE" {
		t.Fatalf("unexpected rrule: %q", r.RRule)
	}

	out, errOut, err := runCLI(t, "events", "show", ev.ID, "--next", "10", "--json")
	if err != nil {
		t.Fatalf("show failed: %v\n%s", err, errOut)
	}
	env := decodeEnvelope[contract.Event](t, out)
	if env.Data.ID != ev.ID || env.Data.Title != "Trivia Night" {
		t.Fatalf("unexpected show payload: %+v", env.Data)
	}
	next, ok := env.Meta["next"].([]any)
	if !ok || len(next) != 4 {
		t.Fatalf("expected four upcoming occurrences through the inclusive until date, got %v", env.Meta["next"])
	}
}

func TestEventsAddMonthlyDescribesClamp(t *testing.T) {
	useTestStore(t, winterNow)
	ev := mustAdd(t, "--title", "Whiskey Club", "--start", "2026-01-31T18:00", "--monthly", "31")
	if ev.Recurrence.Kind != "monthly" || ev.Recurrence.DayOfMonth != 31 {
		t.Fatalf("unexpected recurrence: %+v", ev.Recurrence)
	}
	if ev.Recurrence.Description != "monthly on the 31st or last day" {
		t.Fatalf("unexpected description: %q", ev.Recurrence.Description)
	}
}

func TestEventsAddValidationErrors(t *testing.T) {
	tests := []struct {
		name  string
		args  []string
		code  contract.ErrorCode
		field string
	}{
		{"month out of range", []string{"--title", "X", "--start", "2026-13-01T19:00"}, contract.ErrInvalidCivilTime, "month"},
		{"minute out of range", []string{"--title", "X", "--start", "2026-01-07T19:60"}, contract.ErrInvalidCivilTime, "minute"},
		{"end before start", []string{"--title", "X", "--start", "2026-01-07T19:00", "--end", "2026-01-07T18:00"}, contract.ErrInvalidCivilTime, "end"},
		{"day of month", []string{"--title", "X", "--start", "2026-01-07T19:00", "--monthly", "32"}, contract.ErrInvalidRule, "day_of_month"},
		{"negative day of month", []string{"--title", "X", "--start", "2026-01-07T19:00", "--monthly", "-1"}, contract.ErrInvalidRule, "day_of_month"},
		{"zero day of month", []string{"--title", "X", "--start", "2026-01-07T19:00", "--monthly=0"}, contract.ErrInvalidRule, "day_of_month"},
		{"unknown weekday", []string{"--title", "X", "--start", "2026-01-07T19:00", "--weekly", "funday"}, contract.ErrInvalidRule, "weekdays"},
		{"until before start", []string{"--title", "X", "--start", "2026-01-07T19:00", "--weekly", "wed", "--until", "2026-01-01"}, contract.ErrInvalidRule, "until"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			useTestStore(t, winterNow)
			_, errOut, err := runCLI(t, append([]string{"events", "add", "--json"}, tc.args...)...)
			if code := ExitCode(err); code != 2 {
				t.Fatalf("exit code mismatch: got=%d want=2 (%v)", code, err)
			}
			body := decodeError(t, errOut)
			if body.Code != tc.code || body.Field != tc.field {
				t.Fatalf("unexpected error body: %+v", body)
			}
		})
	}
}

func TestEventsAddRequiresTitleAndSinglePattern(t *testing.T) {
	useTestStore(t, winterNow)
	if _, _, err := runCLI(t, "events", "add", "--start", "2026-01-07T19:00", "--json"); ExitCode(err) != 2 {
		t.Fatalf("expected usage error without --title, got %v", err)
	}
	_, _, err := runCLI(t, "events", "add", "--title", "X", "--start", "2026-01-07T19:00", "--weekly", "wed", "--monthly", "7", "--json")
	if ExitCode(err) != 2 {
		t.Fatalf("expected usage error for two patterns, got %v", err)
	}
}

func TestEventsAddDryRunDoesNotWrite(t *testing.T) {
	useTestStore(t, winterNow)
	out, errOut, err := runCLI(t, "events", "add", "--title", "Karaoke", "--start", "2026-01-09T21:00", "--weekly", "fri", "--dry-run", "--json")
	if err != nil {
		t.Fatalf("dry run failed: %v\n%s", err, errOut)
	}
	env := decodeEnvelope[contract.Event](t, out)
	if env.Meta["dry_run"] != true || env.Data.ID != "" {
		t.Fatalf("unexpected dry-run payload: %+v meta=%v", env.Data, env.Meta)
	}
	out, _, err = runCLI(t, "events", "list", "--json")
	if err != nil {
		t.Fatal(err)
	}
	if got := decodeEnvelope[[]contract.Event](t, out).Data; len(got) != 0 {
		t.Fatalf("dry run wrote %d events", len(got))
	}
}

func TestEventsAddAllDayAcceptsDates(t *testing.T) {
	useTestStore(t, winterNow)
	ev := mustAdd(t, "--title", "St. Patrick's Weekend", "--start", "2026-03-14", "--end", "2026-03-17", "--all-day")
	if !ev.AllDay || ev.Start != "2026-03-14T00:00" || ev.End != "2026-03-17T00:00" {
		t.Fatalf("unexpected all-day event: %+v", ev)
	}
}

func TestEventsExceptAndDelete(t *testing.T) {
	useTestStore(t, winterNow)
	ev := mustAdd(t, "--title", "Open Mic", "--start", "2026-01-06T20:00", "--weekly", "tue")

	out, errOut, err := runCLI(t, "events", "except", ev.ID, "2026-01-13", "--json")
	if err != nil {
		t.Fatalf("except failed: %v\n%s", err, errOut)
	}
	got := decodeEnvelope[contract.Event](t, out).Data
	if len(got.Recurrence.Exceptions) != 1 || got.Recurrence.Exceptions[0] != "2026-01-13" {
		t.Fatalf("unexpected exceptions: %+v", got.Recurrence)
	}

	out, _, err = runCLI(t, "occurrences", "--from", "2026-01-06", "--to", "2026-01-20", "--json")
	if err != nil {
		t.Fatal(err)
	}
	occs := decodeEnvelope[[]contract.Occurrence](t, out).Data
	if len(occs) != 2 || occs[0].Date != "2026-01-06" || occs[1].Date != "2026-01-20" {
		t.Fatalf("exception not applied: %+v", occs)
	}

	if _, _, err := runCLI(t, "events", "delete", ev.ID, "--json"); ExitCode(err) != 2 {
		t.Fatalf("delete without --force should be a usage error, got %v", err)
	}
	if _, errOut, err := runCLI(t, "events", "delete", ev.ID, "--force", "--json"); err != nil {
		t.Fatalf("delete failed: %v\n%s", err, errOut)
	}
	_, errOut, err = runCLI(t, "events", "show", ev.ID, "--json")
	if code := ExitCode(err); code != 4 {
		t.Fatalf("exit code mismatch: got=%d want=4", code)
	}
	if body := decodeError(t, errOut); body.Code != contract.ErrNotFound {
		t.Fatalf("unexpected error body: %+v", body)
	}
}

func TestEventsExceptBeforeStartRejected(t *testing.T) {
	useTestStore(t, winterNow)
	ev := mustAdd(t, "--title", "Open Mic", "--start", "2026-01-06T20:00", "--weekly", "tue")
	_, errOut, err := runCLI(t, "events", "except", ev.ID, "2025-12-30", "--json")
	if ExitCode(err) != 2 {
		t.Fatalf("expected exit 2, got %v", err)
	}
	if body := decodeError(t, errOut); body.Code != contract.ErrInvalidRule || body.Field != "exceptions" {
		t.Fatalf("unexpected error body: %+v", body)
	}
}

func TestEventsListQuery(t *testing.T) {
	useTestStore(t, winterNow)
	mustAdd(t, "--title", "Trivia Night", "--start", "2026-01-07T19:00", "--weekly", "wed")
	mustAdd(t, "--title", "Live Music", "--start", "2026-01-09T21:00", "--weekly", "fri")
	out, _, err := runCLI(t, "events", "list", "--query", "trivia", "--json")
	if err != nil {
		t.Fatal(err)
	}
	items := decodeEnvelope[[]contract.Event](t, out).Data
	if len(items) != 1 || items[0].Title != "Trivia Night" {
		t.Fatalf("unexpected list: %+v", items)
	}
}
