// Package scraper defines the contract every race-timing source implements and the
// config-driven sources that ship with the service.
//
// A source is built for one race edition (site config + year) and answers two
// questions: what are the race's metadata (GetRaceInfo) and what did a given
// runner record (SearchRunner). Sources never compare names or format times
// themselves; they go through package normalize so results from different sites
// are comparable.
package scraper

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jonathan/race-results/internal/fetch"
)

// Scraper is implemented by every race-timing source.
type Scraper interface {
	// GetRaceInfo always returns metadata. When the authoritative page cannot be
	// read the date degrades to the site's date rule and Approximate is set.
	GetRaceInfo(ctx context.Context) (*RaceInfo, error)
	// SearchRunner looks a runner up by name. Only network or parse failures are errors;
	// ambiguous and not-found outcomes are expressed in the result.
	SearchRunner(ctx context.Context, name string) (*SearchResult, error)
}

// SiteType selects the source implementation for a site.
type SiteType string

const (
	// SiteTypeHTMLTable reads a server-rendered results table.
	SiteTypeHTMLTable SiteType = "html_table"
	// SiteTypeRenderedTable reads a results table rendered client-side, through a headless browser.
	SiteTypeRenderedTable SiteType = "rendered_table"
	// SiteTypeJSONAPI queries a JSON participant search endpoint.
	SiteTypeJSONAPI SiteType = "json_api"
)

// SiteConfig describes one race's timing site. URL templates may contain
// {year} and {name}; {name} is query-escaped.
type SiteConfig struct {
	Key        string   `yaml:"key" json:"key"`
	Name       string   `yaml:"name" json:"name"`
	Type       SiteType `yaml:"type" json:"type"`
	Location   string   `yaml:"location" json:"location"`
	EventTypes []string `yaml:"event_types" json:"event_types"`
	// DateRule computes the approximate race day, e.g. "first sunday of november" or "april 21".
	DateRule     string `yaml:"date_rule" json:"date_rule"`
	InfoURL      string `yaml:"info_url,omitempty" json:"info_url,omitempty"`
	DateSelector string `yaml:"date_selector,omitempty" json:"date_selector,omitempty"`
	ResultsURL   string `yaml:"results_url" json:"results_url"`
	SearchURL    string `yaml:"search_url,omitempty" json:"search_url,omitempty"`

	// Table sources
	RowSelector string `yaml:"row_selector,omitempty" json:"row_selector,omitempty"`
	// CellSelector finds the cells inside a row; "td" when empty.
	CellSelector string  `yaml:"cell_selector,omitempty" json:"cell_selector,omitempty"`
	Columns      Columns `yaml:"columns,omitempty" json:"columns,omitempty"`

	// JSON sources
	ResultsKey string     `yaml:"results_key,omitempty" json:"results_key,omitempty"`
	Fields     JSONFields `yaml:"fields,omitempty" json:"fields,omitempty"`
}

// Columns maps result fields to zero-based table cell indexes. A negative index means absent.
type Columns struct {
	Name  int `yaml:"name" json:"name"`
	Bib   int `yaml:"bib" json:"bib"`
	Time  int `yaml:"time" json:"time"`
	Pace  int `yaml:"pace" json:"pace"`
	Event int `yaml:"event" json:"event"`
}

// JSONFields maps result fields to keys of a participant object.
type JSONFields struct {
	Name  string `yaml:"name" json:"name"`
	Bib   string `yaml:"bib" json:"bib"`
	Time  string `yaml:"time" json:"time"`
	Pace  string `yaml:"pace,omitempty" json:"pace,omitempty"`
	Event string `yaml:"event,omitempty" json:"event,omitempty"`
}

// RaceInfo is the metadata of one race edition.
type RaceInfo struct {
	RaceDate        *time.Time `json:"race_date,omitempty"`
	Location        string     `json:"location"`
	EventTypes      []string   `json:"event_types"`
	ResultsURL      string     `json:"results_url"`
	ResultsSiteType string     `json:"results_site_type"`
	// Approximate is set when RaceDate was computed from the date rule.
	Approximate bool `json:"approximate"`
}

// Deps are the shared collaborators handed to every source.
type Deps struct {
	Fetcher *fetch.CachedFetcher
	Logger  logrus.FieldLogger
}

// Factory builds a source for one race edition.
type Factory func(year int, site SiteConfig, deps Deps) (Scraper, error)

// Factories is the dispatch table from site type to implementation.
var Factories = map[SiteType]Factory{
	SiteTypeHTMLTable:     newTableSource(false),
	SiteTypeRenderedTable: newTableSource(true),
	SiteTypeJSONAPI:       newJSONSource,
}

// New builds the source for site and year.
func New(year int, site SiteConfig, deps Deps) (Scraper, error) {
	factory, ok := Factories[site.Type]
	if !ok {
		return nil, fmt.Errorf("unknown site type %q for %s", site.Type, site.Key)
	}
	if deps.Fetcher == nil {
		deps.Fetcher = fetch.NewCachedFetcher(nil, nil)
	}
	if deps.Logger == nil {
		deps.Logger = logrus.StandardLogger()
	}
	return factory(year, site, deps)
}
