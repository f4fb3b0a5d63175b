// Package timeparse reads the loose date and time selectors accepted on the
// command line and turns them into civil values in the business zone.
package timeparse

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jtomassoni/monaghans-sub000/internal/civil"
	"github.com/jtomassoni/monaghans-sub000/internal/recurrence"
)

// ParseDate resolves today, tomorrow, yesterday, +Nd/-Nd, a weekday name
// (the next such day on or after today) or YYYY-MM-DD. Relative forms are
// counted in calendar days in loc, never in 24h steps.
func ParseDate(input string, now time.Time, loc *time.Location) (civil.Date, error) {
	s := strings.TrimSpace(strings.ToLower(input))
	if s == "" {
		return civil.Date{}, fmt.Errorf("empty date")
	}
	today := civil.Today(now, loc)

	switch s {
	case "today":
		return today, nil
	case "tomorrow":
		return today.AddDays(1), nil
	case "yesterday":
		return today.AddDays(-1), nil
	}

	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		sign := 1
		if strings.HasPrefix(s, "-") {
			sign = -1
		}
		raw := s[1:]
		if strings.HasSuffix(raw, "d") {
			n, err := strconv.Atoi(strings.TrimSuffix(raw, "d"))
			if err != nil || n < 0 {
				return civil.Date{}, fmt.Errorf("invalid relative day: %s", input)
			}
			return today.AddDays(sign * n), nil
		}
		if strings.HasSuffix(raw, "w") {
			n, err := strconv.Atoi(strings.TrimSuffix(raw, "w"))
			if err != nil || n < 0 {
				return civil.Date{}, fmt.Errorf("invalid relative week: %s", input)
			}
			return today.AddDays(sign * n * 7), nil
		}
		return civil.Date{}, fmt.Errorf("invalid relative date: %s", input)
	}

	if wd, err := recurrence.ParseWeekdays(s); err == nil && len(wd) == 1 {
		return today.AddDays((int(wd[0]) - int(today.Weekday()) + 7) % 7), nil
	}

	return civil.ParseDate(strings.TrimSpace(input))
}

// ParseDateTime accepts YYYY-MM-DDTHH:mm (or a space separator), a date
// selector followed by HH:mm such as "tomorrow 19:00", or an RFC3339
// instant which is read on loc's wall clock.
func ParseDateTime(input string, now time.Time, loc *time.Location) (civil.DateTime, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return civil.DateTime{}, fmt.Errorf("empty time")
	}
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return civil.FromInstant(ts, loc), nil
	}
	dt, err := civil.Parse(s, loc)
	if err == nil {
		return dt, nil
	}
	// Right shape, bad field: report the field rather than the format.
	var civilErr *civil.InvalidCivilTimeError
	if errors.As(err, &civilErr) && civilErr.Field != "datetime" {
		return civil.DateTime{}, err
	}

	day, clock, ok := strings.Cut(s, " ")
	if !ok {
		return civil.DateTime{}, fmt.Errorf("unsupported datetime format: %s", input)
	}
	d, err := ParseDate(day, now, loc)
	if err != nil {
		return civil.DateTime{}, err
	}
	c, err := civil.ParseClock(strings.TrimSpace(clock))
	if err != nil {
		return civil.DateTime{}, err
	}
	return civil.DateTime{Date: d, Clock: c, Location: loc}, nil
}
