// Package fetch - platform.go provides timing-platform detection and platform-specific selectors.
package fetch

import (
	"net/url"
	"strings"
)

// Platform represents a known race-timing platform.
type Platform string

const (
	// PlatformRaceRoster is the Race Roster results platform
	PlatformRaceRoster Platform = "raceroster"
	// PlatformRunSignup is the RunSignup results platform
	PlatformRunSignup Platform = "runsignup"
	// PlatformRaceResult is the RACE RESULT (my.raceresult.com) platform
	PlatformRaceResult Platform = "raceresult"
	// PlatformAthlinks is the Athlinks results platform
	PlatformAthlinks Platform = "athlinks"
	// PlatformUnknown is an unrecognized platform
	PlatformUnknown Platform = "unknown"
)

// DetectPlatform identifies the timing platform from a results URL.
func DetectPlatform(urlStr string) Platform {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return PlatformUnknown
	}

	host := strings.ToLower(parsed.Host)

	switch {
	case strings.Contains(host, "raceroster.com"):
		return PlatformRaceRoster
	case strings.Contains(host, "runsignup.com"):
		return PlatformRunSignup
	case strings.Contains(host, "raceresult.com"):
		return PlatformRaceResult
	case strings.Contains(host, "athlinks.com"):
		return PlatformAthlinks
	}

	return PlatformUnknown
}

// RequiresBrowser reports whether a platform renders its results table client-side.
func RequiresBrowser(platform Platform) bool {
	switch platform {
	case PlatformRaceResult, PlatformAthlinks:
		return true
	default:
		return false
	}
}

// PlatformRowSelectors returns candidate selectors for result rows on a platform,
// most specific first.
func PlatformRowSelectors(platform Platform) []string {
	switch platform {
	case PlatformRaceRoster:
		return []string{
			".results-table tbody tr",
			"table.rr-table tbody tr",
		}
	case PlatformRunSignup:
		return []string{
			"#resultsTable tbody tr",
			".resultsTable tbody tr",
		}
	case PlatformRaceResult:
		return []string{
			".RRPublish table tbody tr",
			"table.MainTable tbody tr",
		}
	case PlatformAthlinks:
		return []string{
			"#pager .row",
			".result-row",
		}
	default:
		return DefaultRowSelectors()
	}
}

// DefaultRowSelectors returns generic selectors for results tables.
func DefaultRowSelectors() []string {
	return []string{
		"table.results tbody tr",
		"#results tbody tr",
		"table tbody tr",
	}
}
