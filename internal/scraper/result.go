package scraper

import (
	"fmt"
	"strings"

	"github.com/jonathan/race-results/internal/normalize"
)

// Candidate is one name-matching row returned by a source. Sites without a bib
// column still identify a finisher by time.
type Candidate struct {
	Name      string `json:"name" validate:"required"`
	Bib       string `json:"bib" validate:"required_without=Time"`
	Time      string `json:"time" validate:"required_without=Bib"`
	Pace      string `json:"pace,omitempty"`
	EventType string `json:"event_type,omitempty"`
}

// Label is a short human-readable description used in research notes.
func (c Candidate) Label() string {
	parts := []string{c.Name}
	if c.Bib != "" {
		parts = append(parts, "bib "+c.Bib)
	}
	if c.Time != "" {
		parts = append(parts, c.Time)
	}
	return strings.Join(parts, ", ")
}

// SearchResult is the standardized outcome of SearchRunner. Exactly one of
// Found, Ambiguous or neither (not found) holds.
type SearchResult struct {
	Found         bool           `json:"found"`
	Ambiguous     bool           `json:"ambiguous,omitempty"`
	BibNumber     string         `json:"bib_number,omitempty"`
	OfficialTime  string         `json:"official_time,omitempty"`
	OfficialPace  string         `json:"official_pace,omitempty"`
	EventType     string         `json:"event_type,omitempty"`
	ResultsURL    string         `json:"results_url,omitempty"`
	RawData       map[string]any `json:"raw_data,omitempty"`
	Matches       []Candidate    `json:"matches,omitempty"`
	ResearchNotes string         `json:"research_notes,omitempty"`
}

// NotFound builds a not-found result carrying a human-readable explanation.
func NotFound(notes string) *SearchResult {
	return &SearchResult{ResearchNotes: notes}
}

// Ambiguous builds a result that needs an operator to pick one of matches.
func Ambiguous(matches []Candidate) *SearchResult {
	return &SearchResult{
		Ambiguous:     true,
		Matches:       matches,
		ResearchNotes: fmt.Sprintf("%d runners match this name; select the correct one", len(matches)),
	}
}

// Found builds a found result from a single candidate, normalizing the time and
// computing the pace from the event distance when the site does not publish one.
func Found(c Candidate, defaultEvent string, resultsURL string) *SearchResult {
	event := c.EventType
	if event == "" {
		event = defaultEvent
	}

	res := &SearchResult{
		Found:      true,
		BibNumber:  c.Bib,
		EventType:  event,
		ResultsURL: resultsURL,
		RawData: map[string]any{
			"name":       c.Name,
			"bib":        c.Bib,
			"time":       c.Time,
			"pace":       c.Pace,
			"event_type": c.EventType,
		},
	}

	var notes []string
	official, err := normalize.NormalizeTime(c.Time)
	if err != nil {
		res.OfficialTime = strings.TrimSpace(c.Time)
		notes = append(notes, fmt.Sprintf("unrecognized finish time %q", c.Time))
	} else {
		res.OfficialTime = normalize.FormatTime(official)
	}

	switch {
	case c.Pace != "":
		res.OfficialPace = normalize.FormatPace(c.Pace)
	case err == nil:
		if miles, ok := normalize.DistanceMiles(event); ok {
			if pace, perr := normalize.CalculatePace(official, miles); perr == nil {
				res.OfficialPace = pace
			}
		}
	}
	if res.OfficialPace == "" {
		notes = append(notes, "pace unavailable")
	}

	res.ResearchNotes = strings.Join(notes, "; ")
	return res
}

// Classify filters rows by the shared name matcher and maps the survivors to a
// found, ambiguous or not-found result.
func Classify(query string, rows []Candidate, site SiteConfig, year int, resultsURL string) *SearchResult {
	var matches []Candidate
	seen := make(map[string]bool)
	for _, row := range rows {
		if !normalize.NameMatch(query, row.Name) {
			continue
		}
		if row.Bib == "" && row.Time == "" {
			continue
		}
		// Some sites list a finisher once per split table; the bib identifies the runner.
		key := row.Bib + "|" + normalize.NormalizeName(row.Name)
		if row.Bib != "" && seen[key] {
			continue
		}
		seen[key] = true
		matches = append(matches, row)
	}

	defaultEvent := ""
	if len(site.EventTypes) > 0 {
		defaultEvent = site.EventTypes[0]
	}

	switch len(matches) {
	case 0:
		return NotFound(fmt.Sprintf("no runner matching %q in %d %s results (%d rows checked)",
			query, year, site.Name, len(rows)))
	case 1:
		return Found(matches[0], defaultEvent, resultsURL)
	default:
		return Ambiguous(matches)
	}
}
