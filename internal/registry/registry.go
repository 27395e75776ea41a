package registry

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/jonathan/race-results/internal/scraper"
)

// MatchRule records which routing rule resolved a race name.
type MatchRule string

const (
	// MatchExact means the name is an alias, character for character.
	MatchExact MatchRule = "exact"
	// MatchCaseInsensitive means the name matches an alias ignoring case and surrounding whitespace.
	MatchCaseInsensitive MatchRule = "case_insensitive"
	// MatchHeuristic means the name was routed by the city-token + race-keyword rule.
	MatchHeuristic MatchRule = "heuristic"
)

// Registry maps race names to catalog entries and builds scrapers for them.
// It is immutable after construction and safe for concurrent use.
type Registry struct {
	entries []*Entry
	exact   map[string]*Entry
	folded  map[string]*Entry
	deps    scraper.Deps
	logger  logrus.FieldLogger
}

// New indexes a catalog. Aliases must be unique across the catalog, ignoring case.
func New(cat *Catalog, deps scraper.Deps) (*Registry, error) {
	if deps.Logger == nil {
		deps.Logger = logrus.StandardLogger()
	}
	r := &Registry{
		exact:  make(map[string]*Entry),
		folded: make(map[string]*Entry),
		deps:   deps,
		logger: deps.Logger,
	}

	for i := range cat.Races {
		e := &cat.Races[i]
		if _, ok := scraper.Factories[e.Type]; !ok {
			return nil, fmt.Errorf("race %s: unknown site type %q", e.Key, e.Type)
		}
		r.entries = append(r.entries, e)

		for _, alias := range append([]string{e.Name}, e.Aliases...) {
			key := foldKey(alias)
			if other, ok := r.folded[key]; ok && other != e {
				return nil, fmt.Errorf("alias %q is used by both %s and %s", alias, other.Key, e.Key)
			}
			r.exact[alias] = e
			r.folded[key] = e
		}
	}
	return r, nil
}

// Resolve finds the catalog entry for a race name: exact alias first, then
// case-insensitive alias, then the heuristic rule.
func (r *Registry) Resolve(raceName string) (*Entry, MatchRule, error) {
	if e, ok := r.exact[raceName]; ok {
		return e, MatchExact, nil
	}
	if e, ok := r.folded[foldKey(raceName)]; ok {
		return e, MatchCaseInsensitive, nil
	}
	if e := r.heuristicMatch(raceName); e != nil {
		r.logger.WithFields(logrus.Fields{
			"race":  raceName,
			"route": e.Key,
		}).Info("race routed by heuristic rule")
		return e, MatchHeuristic, nil
	}
	return nil, "", &NoScraperAvailableError{RaceName: raceName, Supported: r.SupportedRaces()}
}

// ScraperForRace builds the scraper for one edition of a race.
func (r *Registry) ScraperForRace(raceName string, year int) (scraper.Scraper, error) {
	e, _, err := r.Resolve(raceName)
	if err != nil {
		return nil, err
	}
	return scraper.New(year, e.SiteConfig, r.deps)
}

// HasScraperForRace reports whether a race name can be researched automatically.
func (r *Registry) HasScraperForRace(raceName string) bool {
	_, _, err := r.Resolve(raceName)
	return err == nil
}

// SupportedRaces lists the display names of all catalog races, sorted.
func (r *Registry) SupportedRaces() []string {
	seen := make(map[string]bool, len(r.entries))
	names := make([]string, 0, len(r.entries))
	for _, e := range r.entries {
		if seen[e.Name] {
			continue
		}
		seen[e.Name] = true
		names = append(names, e.Name)
	}
	sort.Strings(names)
	return names
}

// heuristicMatch is the single fuzzy routing rule: the name must contain one of
// an entry's city/abbreviation tokens and its race keyword as whole words, and
// none of its exclusions. The first entry in catalog order wins.
func (r *Registry) heuristicMatch(raceName string) *Entry {
	words := " " + wordKey(raceName) + " "
	for _, e := range r.entries {
		h := e.Heuristic
		if h == nil || !containsWord(words, h.Keyword) {
			continue
		}
		if containsAnyWord(words, h.Exclude) {
			continue
		}
		if containsAnyWord(words, h.Tokens) {
			return e
		}
	}
	return nil
}

func foldKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

var nonWord = regexp.MustCompile(`[^a-z0-9.]+`)

// wordKey lowercases s and splits it into space-separated words of letters, digits
// and inner dots ("13.1", "b.a.a").
func wordKey(s string) string {
	fields := strings.Fields(nonWord.ReplaceAllString(strings.ToLower(s), " "))
	words := fields[:0]
	for _, f := range fields {
		if f = strings.Trim(f, "."); f != "" {
			words = append(words, f)
		}
	}
	return strings.Join(words, " ")
}

func containsWord(padded, word string) bool {
	w := wordKey(word)
	return w != "" && strings.Contains(padded, " "+w+" ")
}

func containsAnyWord(padded string, words []string) bool {
	for _, w := range words {
		if containsWord(padded, w) {
			return true
		}
	}
	return false
}
