package registry

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/race-results/internal/scraper"
)

func testRegistry(t *testing.T) *Registry {
	t.Helper()
	cat, err := DefaultCatalog()
	require.NoError(t, err)

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	reg, err := New(cat, scraper.Deps{Logger: logger})
	require.NoError(t, err)
	return reg
}

func TestDefaultCatalog(t *testing.T) {
	cat, err := DefaultCatalog()
	require.NoError(t, err)
	require.NotEmpty(t, cat.Races)

	for _, e := range cat.Races {
		assert.NotEmpty(t, e.Key)
		assert.NotEmpty(t, e.Location, "race %s needs a location", e.Key)
		assert.NotEmpty(t, e.DateRule, "race %s needs a date rule", e.Key)
		_, err := scraper.ApproximateDate(e.DateRule, 2024)
		assert.NoError(t, err, "race %s has an unusable date rule", e.Key)
		if e.RowSelector != "" && e.CellSelector == "" {
			assert.Contains(t, e.RowSelector, "tr", "race %s rows are not table rows but cells default to td", e.Key)
		}
	}
}

func TestResolve(t *testing.T) {
	reg := testRegistry(t)

	tests := []struct {
		name string
		race string
		key  string
		rule MatchRule
	}{
		{"exact alias", "Bank of America Chicago Marathon", "chicago-marathon", MatchExact},
		{"exact display name", "Boston Marathon", "boston-marathon", MatchExact},
		{"case insensitive", "  nyc marathon ", "nyc-marathon", MatchCaseInsensitive},
		{"abbreviation alias", "MCM", "marine-corps-marathon", MatchExact},
		{"heuristic city token", "2024 Chicago Marathon - Full", "chicago-marathon", MatchHeuristic},
		{"heuristic abbreviation token", "TCS NY Marathon Finisher", "nyc-marathon", MatchHeuristic},
		{"heuristic punctuation", "B.A.A. Boston Marathon!", "boston-marathon", MatchHeuristic},
		{"heuristic punctuation around words", "Boston (Marathon).", "boston-marathon", MatchHeuristic},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, rule, err := reg.Resolve(tt.race)
			require.NoError(t, err)
			assert.Equal(t, tt.key, e.Key)
			assert.Equal(t, tt.rule, rule)
		})
	}
}

func TestResolve_NoScraperAvailable(t *testing.T) {
	reg := testRegistry(t)

	for _, race := range []string{
		"Chicago Half Marathon",
		"Boston 10K",
		"Marathon",
		"Chicagoland Marathon",
		"Small Town Turkey Trot",
	} {
		t.Run(race, func(t *testing.T) {
			_, _, err := reg.Resolve(race)
			var nsa *NoScraperAvailableError
			require.True(t, errors.As(err, &nsa), "expected NoScraperAvailableError, got %v", err)
			assert.Equal(t, race, nsa.RaceName)
			assert.Contains(t, nsa.Error(), "Chicago Marathon")
			assert.False(t, reg.HasScraperForRace(race))
		})
	}
}

func TestScraperForRace(t *testing.T) {
	reg := testRegistry(t)

	s, err := reg.ScraperForRace("Chicago Marathon", 2024)
	require.NoError(t, err)
	assert.NotNil(t, s)

	_, err = reg.ScraperForRace("Unknown Race", 2024)
	var nsa *NoScraperAvailableError
	assert.ErrorAs(t, err, &nsa)
}

func TestSupportedRaces(t *testing.T) {
	reg := testRegistry(t)
	races := reg.SupportedRaces()

	assert.IsNonDecreasing(t, races)
	assert.Contains(t, races, "Chicago Marathon")
	assert.NotContains(t, races, "MCM", "aliases are not listed")

	seen := map[string]bool{}
	for _, r := range races {
		assert.False(t, seen[r], "duplicate %s", r)
		seen[r] = true
	}
}

func TestNew_DuplicateAlias(t *testing.T) {
	cat := &Catalog{Races: []Entry{
		{SiteConfig: scraper.SiteConfig{Key: "a", Name: "Race A", Type: scraper.SiteTypeHTMLTable}, Aliases: []string{"Shared"}},
		{SiteConfig: scraper.SiteConfig{Key: "b", Name: "Race B", Type: scraper.SiteTypeHTMLTable}, Aliases: []string{"shared"}},
	}}
	_, err := New(cat, scraper.Deps{})
	assert.Error(t, err)
}

func TestNew_UnknownSiteType(t *testing.T) {
	cat := &Catalog{Races: []Entry{
		{SiteConfig: scraper.SiteConfig{Key: "a", Name: "Race A", Type: "fax"}},
	}}
	_, err := New(cat, scraper.Deps{})
	assert.Error(t, err)
}

func TestParseCatalog_SchemaViolation(t *testing.T) {
	data := []byte(`
races:
  - key: Bad Key
    name: Bad
    type: html_table
    location: Nowhere
    date_rule: april 1
    results_url: https://example.com
    aliases: []
`)
	_, err := ParseCatalog("test", data)
	var ce *CatalogError
	require.ErrorAs(t, err, &ce)
	assert.Contains(t, ce.Message, "key")
}

func TestLoadCatalogFileAndMerge(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "extra.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
races:
  - key: chicago-marathon
    name: Chicago Marathon
    type: json_api
    location: Chicago, IL
    date_rule: second sunday of october
    results_url: https://example.com/{year}
    search_url: https://example.com/api/{year}?q={name}
    fields: {name: n}
    aliases: [Chicago Marathon]
  - key: harbor-city-marathon
    name: Harbor City Marathon
    type: html_table
    location: Baltimore, MD
    date_rule: third saturday of october
    results_url: https://example.com/hcm/{year}
    aliases: [Harbor City Marathon, HCM]
`), 0o600))

	extra, err := LoadCatalogFile(path)
	require.NoError(t, err)

	base, err := DefaultCatalog()
	require.NoError(t, err)
	merged := base.Merge(extra)
	assert.Len(t, merged.Races, len(base.Races)+1)

	reg, err := New(merged, scraper.Deps{})
	require.NoError(t, err)
	e, _, err := reg.Resolve("HCM")
	require.NoError(t, err)
	assert.Equal(t, "harbor-city-marathon", e.Key)

	chicago, _, err := reg.Resolve("Chicago Marathon")
	require.NoError(t, err)
	assert.Equal(t, scraper.SiteTypeJSONAPI, chicago.Type)
}

func TestLoadCatalogFile_Missing(t *testing.T) {
	_, err := LoadCatalogFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
