package registry

import (
	"fmt"
	"strings"
)

// NoScraperAvailableError is returned when a race name cannot be routed to any
// source. The race has to be researched manually.
type NoScraperAvailableError struct {
	RaceName  string
	Supported []string
}

func (e *NoScraperAvailableError) Error() string {
	return fmt.Sprintf("no scraper available for race %q; supported races: %s",
		e.RaceName, strings.Join(e.Supported, ", "))
}
