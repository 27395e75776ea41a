package normalize

import (
	"fmt"
	"math"
	"strings"
)

// CalculatePace returns the per-mile pace for a finish time over distanceMiles,
// formatted for display as "m:ss".
func CalculatePace(finishTime string, distanceMiles float64) (string, error) {
	if distanceMiles <= 0 {
		return "", fmt.Errorf("distance must be positive, got %v", distanceMiles)
	}
	total, err := TimeToSeconds(finishTime)
	if err != nil {
		return "", err
	}

	paceSeconds := float64(total) / distanceMiles
	minutes := int(paceSeconds / 60)
	seconds := int(math.Round(paceSeconds - float64(minutes*60)))
	if seconds == 60 {
		minutes++
		seconds = 0
	}

	return FormatPace(fmt.Sprintf("%02d:%02d", minutes, seconds)), nil
}

// FormatPace strips one leading zero from the minutes component of a pace:
// "08:29" becomes "8:29".
func FormatPace(pace string) string {
	pace = strings.TrimSpace(pace)
	pace = strings.TrimSuffix(strings.TrimSuffix(pace, "/mi"), " ")
	minutes, seconds, ok := strings.Cut(pace, ":")
	if !ok {
		return pace
	}
	if len(minutes) == 2 && minutes[0] == '0' {
		minutes = minutes[1:]
	}
	return minutes + ":" + seconds
}

// distances in miles for common event types.
var eventDistances = []struct {
	keywords []string
	miles    float64
}{
	{[]string{"half marathon", "half-marathon", "13.1", "half"}, 13.1},
	{[]string{"marathon", "26.2"}, 26.2},
	{[]string{"10 mile", "10-mile", "ten mile"}, 10},
	{[]string{"10k", "10 k"}, 6.2137},
	{[]string{"5k", "5 k"}, 3.1069},
}

// DistanceMiles returns the distance of a named event type in miles. The second
// return value is false when the event type is not recognized.
func DistanceMiles(eventType string) (float64, bool) {
	e := strings.ToLower(strings.TrimSpace(eventType))
	if e == "" {
		return 0, false
	}
	for _, d := range eventDistances {
		for _, kw := range d.keywords {
			if strings.Contains(e, kw) {
				return d.miles, true
			}
		}
	}
	return 0, false
}
