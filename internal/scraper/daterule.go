package scraper

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

var ordinals = map[string]int{
	"first":  1,
	"second": 2,
	"third":  3,
	"fourth": 4,
	"fifth":  5,
	"last":   -1,
}

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// ApproximateDate computes a race day from a date rule for the given year.
// Supported rules are "<ordinal> <weekday> of <month>" (ordinal first..fifth or
// last) and "<month> <day>".
func ApproximateDate(rule string, year int) (time.Time, error) {
	fields := strings.Fields(strings.ToLower(strings.TrimSpace(rule)))

	switch {
	case len(fields) == 4 && fields[2] == "of":
		n, ok := ordinals[fields[0]]
		if !ok {
			return time.Time{}, fmt.Errorf("unknown ordinal %q in date rule %q", fields[0], rule)
		}
		wd, ok := weekdays[fields[1]]
		if !ok {
			return time.Time{}, fmt.Errorf("unknown weekday %q in date rule %q", fields[1], rule)
		}
		month, err := parseMonth(fields[3])
		if err != nil {
			return time.Time{}, fmt.Errorf("date rule %q: %w", rule, err)
		}
		return nthWeekday(year, month, wd, n)

	case len(fields) == 2:
		month, err := parseMonth(fields[0])
		if err != nil {
			return time.Time{}, fmt.Errorf("date rule %q: %w", rule, err)
		}
		day, err := strconv.Atoi(fields[1])
		if err != nil {
			return time.Time{}, fmt.Errorf("date rule %q: invalid day", rule)
		}
		t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
		if t.Month() != month {
			return time.Time{}, fmt.Errorf("date rule %q: day out of range", rule)
		}
		return t, nil
	}

	return time.Time{}, fmt.Errorf("unsupported date rule %q", rule)
}

func nthWeekday(year int, month time.Month, wd time.Weekday, n int) (time.Time, error) {
	if n == -1 {
		last := time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC)
		offset := (int(last.Weekday()) - int(wd) + 7) % 7
		return last.AddDate(0, 0, -offset), nil
	}

	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	offset := (int(wd) - int(first.Weekday()) + 7) % 7
	t := first.AddDate(0, 0, offset+7*(n-1))
	if t.Month() != month {
		return time.Time{}, fmt.Errorf("%s has no %d %s in %d", month, n, wd, year)
	}
	return t, nil
}

func parseMonth(s string) (time.Month, error) {
	s = strings.TrimSuffix(strings.ToLower(s), ".")
	for m := time.January; m <= time.December; m++ {
		name := strings.ToLower(m.String())
		if s == name || (len(s) >= 3 && strings.HasPrefix(name, s)) {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown month %q", s)
}
