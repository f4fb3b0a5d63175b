package civil

import (
	"strconv"
	"strings"
	"time"
)

// ParseDate reads a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if len(s) != len(DateLayout) || s[4] != '-' || s[7] != '-' {
		return Date{}, invalid("date", s, "expected YYYY-MM-DD")
	}
	y, err := digits(s[0:4], "year")
	if err != nil {
		return Date{}, err
	}
	m, err := digits(s[5:7], "month")
	if err != nil {
		return Date{}, err
	}
	d, err := digits(s[8:10], "day")
	if err != nil {
		return Date{}, err
	}
	return NewDate(y, time.Month(m), d)
}

// ParseClock reads an HH:mm string.
func ParseClock(s string) (Clock, error) {
	s = strings.TrimSpace(s)
	if len(s) != 5 || s[2] != ':' {
		return Clock{}, invalid("time", s, "expected HH:mm")
	}
	h, err := digits(s[0:2], "hour")
	if err != nil {
		return Clock{}, err
	}
	m, err := digits(s[3:5], "minute")
	if err != nil {
		return Clock{}, err
	}
	return NewClock(h, m)
}

// Parse reads the YYYY-MM-DDTHH:mm form used by datetime-local inputs and
// tags it with loc. A space is accepted in place of the T.
func Parse(s string, loc *time.Location) (DateTime, error) {
	s = strings.TrimSpace(s)
	if len(s) != len(DateTimeLayout) || (s[10] != 'T' && s[10] != ' ') {
		return DateTime{}, invalid("datetime", s, "expected YYYY-MM-DDTHH:mm")
	}
	d, err := ParseDate(s[:10])
	if err != nil {
		return DateTime{}, err
	}
	c, err := ParseClock(s[11:])
	if err != nil {
		return DateTime{}, err
	}
	if loc == nil {
		return DateTime{}, invalid("timezone", "", "zone is required")
	}
	return DateTime{Date: d, Clock: c, Location: loc}, nil
}

func digits(s, field string) (int, error) {
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, invalid(field, s, "must be numeric")
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, invalid(field, s, "must be numeric")
	}
	return n, nil
}
