package normalize

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrInvalidTime is returned when a finish time cannot be parsed.
var ErrInvalidTime = errors.New("invalid finish time")

// unitTimePattern matches finish times written as "3h 42m 15s"; every unit is optional.
var unitTimePattern = regexp.MustCompile(`^(?:(\d+)\s*h)?\s*(?:(\d+)\s*m)?\s*(?:(\d+)\s*s)?$`)

// NormalizeTime parses a finish time and returns it in canonical h:mm:ss form.
//
// Accepted inputs are "h:mm:ss", "hh:mm:ss", "mm:ss" and "Xh Ym Zs". Fractional
// seconds ("3:42:15.4") are truncated, matching how chip times are printed.
func NormalizeTime(raw string) (string, error) {
	total, err := TimeToSeconds(raw)
	if err != nil {
		return "", err
	}
	return secondsToClock(total), nil
}

// TimeToSeconds returns the total number of seconds in a finish time.
func TimeToSeconds(raw string) (int, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return 0, ErrInvalidTime
	}

	if strings.Contains(s, ":") {
		return clockToSeconds(s)
	}

	m := unitTimePattern.FindStringSubmatch(s)
	if m == nil || (m[1] == "" && m[2] == "" && m[3] == "") {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTime, raw)
	}
	h, _ := atoiOrZero(m[1])
	mins, _ := atoiOrZero(m[2])
	secs, _ := atoiOrZero(m[3])
	if mins >= 60 || secs >= 60 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTime, raw)
	}
	return h*3600 + mins*60 + secs, nil
}

func clockToSeconds(s string) (int, error) {
	if whole, _, ok := strings.Cut(s, "."); ok {
		s = whole
	}

	parts := strings.Split(s, ":")
	if len(parts) == 2 {
		parts = append([]string{"0"}, parts...)
	}
	if len(parts) != 3 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}

	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || len(parts[0]) > 2 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m >= 60 || len(parts[1]) != 2 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	sec, err := strconv.Atoi(parts[2])
	if err != nil || sec < 0 || sec >= 60 || len(parts[2]) != 2 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	return h*3600 + m*60 + sec, nil
}

func atoiOrZero(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}

func secondsToClock(total int) string {
	return fmt.Sprintf("%d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}

// FormatTime prepares a finish time for display by stripping exactly one
// leading zero from the hour component: "04:14:45" becomes "4:14:45" and
// "00:45:30" becomes "0:45:30".
func FormatTime(t string) string {
	t = strings.TrimSpace(t)
	hour, rest, ok := strings.Cut(t, ":")
	if !ok || strings.Count(rest, ":") != 1 {
		return t
	}
	if len(hour) == 2 && hour[0] == '0' {
		hour = hour[1:]
	}
	return hour + ":" + rest
}
