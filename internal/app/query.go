package app

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jtomassoni/monaghans-sub000/internal/contract"
)

type predicate struct {
	field string
	op    string
	value string
}

func parsePredicates(wheres []string) ([]predicate, error) {
	out := make([]predicate, 0, len(wheres))
	ops := []string{"==", "!=", "~", ">=", "<=", ">", "<"}
	for _, w := range wheres {
		s := strings.TrimSpace(w)
		if s == "" {
			continue
		}
		var op string
		idx := -1
		for _, candidate := range ops {
			if i := strings.Index(s, candidate); i > 0 && (idx < 0 || i < idx) {
				op = candidate
				idx = i
			}
		}
		if op == "" {
			return nil, fmt.Errorf("invalid where clause: %s", w)
		}
		// prefer the two-character operator starting at the same index
		if len(op) == 1 && idx+1 < len(s) && s[idx+1] == '=' {
			op += "="
		}
		field := strings.TrimSpace(s[:idx])
		val := strings.Trim(strings.TrimSpace(s[idx+len(op):]), "\"")
		if field == "" || val == "" {
			return nil, fmt.Errorf("invalid where clause: %s", w)
		}
		out = append(out, predicate{field: strings.ToLower(field), op: op, value: val})
	}
	return out, nil
}

func applyPredicates(items []contract.Occurrence, preds []predicate) ([]contract.Occurrence, error) {
	filtered := make([]contract.Occurrence, 0, len(items))
	for _, o := range items {
		ok, err := matchesAll(o, preds)
		if err != nil {
			return nil, err
		}
		if ok {
			filtered = append(filtered, o)
		}
	}
	return filtered, nil
}

func matchesAll(o contract.Occurrence, preds []predicate) (bool, error) {
	for _, p := range preds {
		ok, err := matchesOne(o, p)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func matchesOne(o contract.Occurrence, p predicate) (bool, error) {
	switch p.field {
	case "title":
		return compareString(o.Title, p.op, p.value)
	case "event_id", "id":
		return compareString(o.EventID, p.op, p.value)
	case "date":
		// YYYY-MM-DD strings order the same as the dates they name.
		return compareOrdered(o.Date, p.op, p.value)
	case "all_day":
		want, err := strconv.ParseBool(p.value)
		if err != nil {
			return false, fmt.Errorf("all_day predicate expects true or false, got %q", p.value)
		}
		return compareString(strconv.FormatBool(o.AllDay), p.op, strconv.FormatBool(want))
	case "start":
		return compareTime(o.Start, p.op, p.value)
	case "end":
		if o.End == nil {
			return false, nil
		}
		return compareTime(*o.End, p.op, p.value)
	default:
		return false, fmt.Errorf("unsupported field in --where: %s", p.field)
	}
}

func compareString(actual, op, expected string) (bool, error) {
	a := strings.ToLower(actual)
	e := strings.ToLower(expected)
	switch op {
	case "==":
		return a == e, nil
	case "!=":
		return a != e, nil
	case "~":
		return strings.Contains(a, e), nil
	default:
		return false, fmt.Errorf("operator %s not supported for string fields", op)
	}
}

func compareOrdered(actual, op, expected string) (bool, error) {
	switch op {
	case "==":
		return actual == expected, nil
	case "!=":
		return actual != expected, nil
	case ">":
		return actual > expected, nil
	case ">=":
		return actual >= expected, nil
	case "<":
		return actual < expected, nil
	case "<=":
		return actual <= expected, nil
	default:
		return false, fmt.Errorf("operator %s not supported for date fields", op)
	}
}

func compareTime(actual time.Time, op, expected string) (bool, error) {
	parsed, err := time.Parse(time.RFC3339, expected)
	if err != nil {
		return false, fmt.Errorf("time predicate expects RFC3339 value, got %q", expected)
	}
	switch op {
	case "==":
		return actual.Equal(parsed), nil
	case "!=":
		return !actual.Equal(parsed), nil
	case ">":
		return actual.After(parsed), nil
	case ">=":
		return actual.After(parsed) || actual.Equal(parsed), nil
	case "<":
		return actual.Before(parsed), nil
	case "<=":
		return actual.Before(parsed) || actual.Equal(parsed), nil
	default:
		return false, fmt.Errorf("operator %s not supported for time fields", op)
	}
}

func sortOccurrences(items []contract.Occurrence, sortField, order string) {
	desc := strings.EqualFold(order, "desc")
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if desc {
			a, b = b, a
		}
		switch strings.ToLower(sortField) {
		case "title":
			return a.Title < b.Title
		case "event_id":
			return a.EventID < b.EventID
		default:
			return a.Start.Before(b.Start)
		}
	})
}
