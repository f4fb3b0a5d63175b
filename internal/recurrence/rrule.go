package recurrence

import (
	"fmt"
	"strings"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/jtomassoni/monaghans-sub000/internal/civil"
)

var toRRuleDay = map[time.Weekday]rrule.Weekday{
	time.Monday:    rrule.MO,
	time.Tuesday:   rrule.TU,
	time.Wednesday: rrule.WE,
	time.Thursday:  rrule.TH,
	time.Friday:    rrule.FR,
	time.Saturday:  rrule.SA,
	time.Sunday:    rrule.SU,
}

// Options builds RFC 5545 options for the rule anchored at start. The
// second result is false for None, which has no RRULE.
//
// A clamped monthly day above 28 is written as the last of the candidate
// days 28..N that exists in each month (BYMONTHDAY=28,..,N;BYSETPOS=-1).
func (r Rule) Options(start civil.DateTime) (rrule.ROption, bool) {
	opt := rrule.ROption{Dtstart: civil.Resolve(start)}
	switch p := r.Pattern.(type) {
	case Weekly:
		opt.Freq = rrule.WEEKLY
		for _, d := range p.Weekdays {
			opt.Byweekday = append(opt.Byweekday, toRRuleDay[d])
		}
	case Monthly:
		opt.Freq = rrule.MONTHLY
		if p.DayOfMonth <= 28 {
			opt.Bymonthday = []int{p.DayOfMonth}
		} else {
			for d := 28; d <= p.DayOfMonth; d++ {
				opt.Bymonthday = append(opt.Bymonthday, d)
			}
			opt.Bysetpos = []int{-1}
		}
	default:
		return rrule.ROption{}, false
	}
	if r.Until != nil {
		// last second of the UNTIL day in the event's zone
		opt.Until = r.Until.AddDays(1).Midnight(start.Location).Add(-time.Second)
	}
	return opt, true
}

// RRule returns the RRULE value (without the "RRULE:" prefix or DTSTART),
// or "" for None.
func (r Rule) RRule(start civil.DateTime) string {
	opt, ok := r.Options(start)
	if !ok {
		return ""
	}
	return opt.RRuleString()
}

// DateRRule is RRule for all-day series. UNTIL is written as a DATE value,
// which RFC 5545 requires when DTSTART is a DATE.
func (r Rule) DateRRule(start civil.DateTime) string {
	opt, ok := r.Options(start)
	if !ok {
		return ""
	}
	opt.Until = time.Time{}
	out := opt.RRuleString()
	if r.Until != nil {
		out += fmt.Sprintf(";UNTIL=%04d%02d%02d", r.Until.Year, int(r.Until.Month), r.Until.Day)
	}
	return out
}

// ParseRRule reverses RRule and DateRRule. Only the shapes they produce are accepted;
// UNTIL is read back as a calendar date in loc.
func ParseRRule(value string, exceptions []civil.Date, start civil.Date, loc *time.Location) (Rule, error) {
	value = strings.TrimPrefix(strings.TrimSpace(value), "RRULE:")
	if value == "" {
		return NewRule(None{}, Bounds{Exceptions: exceptions}, start)
	}
	opt, err := rrule.StrToROptionInLocation(value, loc)
	if err != nil {
		return Rule{}, invalid("rrule", "%v", err)
	}
	if opt.Interval > 1 || opt.Count != 0 || len(opt.Bymonth) > 0 || len(opt.Byyearday) > 0 || len(opt.Byweekno) > 0 {
		return Rule{}, invalid("rrule", "unsupported RRULE %q", value)
	}
	var p Pattern
	switch opt.Freq {
	case rrule.WEEKLY:
		days := make([]time.Weekday, 0, len(opt.Byweekday))
		for _, wd := range opt.Byweekday {
			if wd.N() != 0 {
				return Rule{}, invalid("rrule", "positional BYDAY %s is not supported", wd)
			}
			days = append(days, fromPyWeekday(wd.Day()))
		}
		if p, err = NewWeekly(days...); err != nil {
			return Rule{}, err
		}
	case rrule.MONTHLY:
		if p, err = monthlyFromOptions(opt.Bymonthday, opt.Bysetpos); err != nil {
			return Rule{}, err
		}
	default:
		return Rule{}, invalid("rrule", "unsupported frequency %s", opt.Freq)
	}
	b := Bounds{Exceptions: exceptions}
	if !opt.Until.IsZero() {
		u := civil.DateOf(opt.Until.In(loc))
		b.Until = &u
	}
	return NewRule(p, b, start)
}

func monthlyFromOptions(days, setpos []int) (Monthly, error) {
	switch {
	case len(days) == 1 && len(setpos) == 0:
		return NewMonthly(days[0])
	case len(days) > 1 && len(setpos) == 1 && setpos[0] == -1 && days[0] == 28:
		for i, d := range days {
			if d != 28+i {
				return Monthly{}, invalid("rrule", "unsupported BYMONTHDAY %v", days)
			}
		}
		return NewMonthly(days[len(days)-1])
	default:
		return Monthly{}, invalid("rrule", "unsupported BYMONTHDAY %v", days)
	}
}

// fromPyWeekday maps rrule-go's Monday=0 numbering to time.Weekday.
func fromPyWeekday(d int) time.Weekday {
	return time.Weekday((d + 1) % 7)
}

// String is used in logs.
func (r Rule) String() string {
	return fmt.Sprintf("%s(%s)", r.Kind(), r.Describe())
}
