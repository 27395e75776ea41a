package research

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/race-results/internal/db"
	"github.com/jonathan/race-results/internal/events"
	"github.com/jonathan/race-results/internal/registry"
	"github.com/jonathan/race-results/internal/scraper"
	"github.com/jonathan/race-results/internal/weather"
)

var fixedNow = time.Date(2024, 10, 20, 12, 0, 0, 0, time.UTC)

// memStore is an in-memory Store.
type memStore struct {
	mu       sync.Mutex
	orders   map[string]*db.Order
	editions map[uuid.UUID]*db.RaceEdition
	research map[string]*db.RunnerResearch

	weatherUpdates int
}

func newMemStore() *memStore {
	return &memStore{
		orders:   map[string]*db.Order{},
		editions: map[uuid.UUID]*db.RaceEdition{},
		research: map[string]*db.RunnerResearch{},
	}
}

func (m *memStore) addOrder(o *db.Order) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if o.Status == "" {
		o.Status = db.OrderStatusPending
	}
	m.orders[o.OrderNumber] = o
}

func (m *memStore) addEdition(e *db.RaceEdition) *db.RaceEdition {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	m.editions[e.ID] = e
	return e
}

func researchKey(orderNumber string, id uuid.UUID) string {
	return orderNumber + "|" + id.String()
}

func copyOrder(o *db.Order) *db.Order {
	c := *o
	return &c
}

func copyEdition(e *db.RaceEdition) *db.RaceEdition {
	c := *e
	return &c
}

func copyResearch(r *db.RunnerResearch) *db.RunnerResearch {
	c := *r
	return &c
}

func (m *memStore) GetOrder(_ context.Context, orderNumber string) (*db.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderNumber]
	if !ok {
		return nil, nil
	}
	return copyOrder(o), nil
}

func (m *memStore) UpdateOrderOverrides(_ context.Context, orderNumber string, ov db.OrderOverrides) (*db.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderNumber]
	if !ok {
		return nil, nil
	}
	o.RaceNameOverride, o.RaceYearOverride, o.RunnerNameOverride = ov.RaceName, ov.RaceYear, ov.RunnerName
	return copyOrder(o), nil
}

func (m *memStore) MarkOrderReady(_ context.Context, orderNumber string, at time.Time) (*db.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderNumber]
	if !ok {
		return nil, nil
	}
	o.Status = db.OrderStatusReady
	o.ResearchedAt = &at
	return copyOrder(o), nil
}

func (m *memStore) GetRaceEdition(_ context.Context, raceName string, year int) (*db.RaceEdition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.editions {
		if e.RaceName == raceName && e.Year == year {
			return copyEdition(e), nil
		}
	}
	return nil, nil
}

func (m *memStore) GetRaceEditionByID(_ context.Context, id uuid.UUID) (*db.RaceEdition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.editions[id]
	if !ok {
		return nil, nil
	}
	return copyEdition(e), nil
}

func (m *memStore) UpsertRaceEdition(_ context.Context, in *db.RaceEditionInput) (*db.RaceEdition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var e *db.RaceEdition
	for _, existing := range m.editions {
		if existing.RaceName == in.RaceName && existing.Year == in.Year {
			e = existing
		}
	}
	if e == nil {
		e = &db.RaceEdition{ID: uuid.New(), RaceName: in.RaceName, Year: in.Year}
		m.editions[e.ID] = e
	}
	if in.RaceDate != nil {
		e.RaceDate = in.RaceDate
	}
	if in.Location != "" {
		loc := in.Location
		e.Location = &loc
	}
	e.DateApproximate = in.DateApproximate
	if len(in.EventTypes) > 0 {
		e.EventTypes = in.EventTypes
	}
	if in.ResultsURL != "" {
		u := in.ResultsURL
		e.ResultsURL = &u
	}
	return copyEdition(e), nil
}

func (m *memStore) UpdateRaceEditionWeather(_ context.Context, id uuid.UUID, u db.WeatherUpdate) (*db.RaceEdition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.editions[id]
	if !ok {
		return nil, nil
	}
	m.weatherUpdates++
	e.WeatherTemp = u.TempF
	if u.Condition != "" {
		c := u.Condition
		e.WeatherCondition = &c
	}
	at := u.FetchedAt
	e.WeatherFetchedAt = &at
	return copyEdition(e), nil
}

func (m *memStore) ListRaceEditionsMissingWeather(_ context.Context, limit int) ([]db.RaceEdition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []db.RaceEdition
	for _, e := range m.editions {
		if e.WeatherFetchedAt == nil && e.IsCacheComplete() {
			out = append(out, *e)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) GetRunnerResearch(_ context.Context, orderNumber string, id uuid.UUID) (*db.RunnerResearch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.research[researchKey(orderNumber, id)]
	if !ok {
		return nil, nil
	}
	return copyResearch(r), nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func applyResearch(r *db.RunnerResearch, in *db.RunnerResearchInput) {
	r.BibNumber = optional(in.BibNumber)
	r.OfficialTime = optional(in.OfficialTime)
	r.OfficialPace = optional(in.OfficialPace)
	r.EventType = optional(in.EventType)
	r.ResultsURL = optional(in.ResultsURL)
	r.RawData = in.RawData
	r.ResearchStatus = in.ResearchStatus
	r.ResearchNotes = optional(in.ResearchNotes)
}

func (m *memStore) UpsertRunnerResearch(_ context.Context, in *db.RunnerResearchInput) (*db.RunnerResearch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := researchKey(in.OrderNumber, in.RaceEditionID)
	r, ok := m.research[key]
	if ok && r.IsFound() {
		return copyResearch(r), nil
	}
	if !ok {
		r = &db.RunnerResearch{ID: uuid.New(), OrderNumber: in.OrderNumber, RaceEditionID: in.RaceEditionID}
		m.research[key] = r
	}
	r.RunnerName = in.RunnerName
	applyResearch(r, in)
	return copyResearch(r), nil
}

func (m *memStore) UpdateRunnerResearch(_ context.Context, id uuid.UUID, in *db.RunnerResearchInput) (*db.RunnerResearch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.research {
		if r.ID == id {
			applyResearch(r, in)
			return copyResearch(r), nil
		}
	}
	return nil, nil
}

// fakeSource is a scraper that counts calls.
type fakeSource struct {
	mu          sync.Mutex
	info        *scraper.RaceInfo
	infoErr     error
	results     map[string]*scraper.SearchResult
	searchErr   error
	infoCalls   int
	searchCalls int
	searched    []string
}

func (f *fakeSource) GetRaceInfo(context.Context) (*scraper.RaceInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.infoCalls++
	if f.infoErr != nil {
		return nil, f.infoErr
	}
	info := *f.info
	return &info, nil
}

func (f *fakeSource) SearchRunner(_ context.Context, name string) (*scraper.SearchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searchCalls++
	f.searched = append(f.searched, name)
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	if res, ok := f.results[name]; ok {
		return res, nil
	}
	return scraper.NotFound("no runner matching " + name), nil
}

func (f *fakeSource) calls() (info, search int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.infoCalls, f.searchCalls
}

// fakeResolver routes exact names and aliases to fake sources.
type fakeResolver struct {
	entries map[string]*registry.Entry
	sources map[string]*fakeSource
}

func newFakeResolver() *fakeResolver {
	return &fakeResolver{entries: map[string]*registry.Entry{}, sources: map[string]*fakeSource{}}
}

func (r *fakeResolver) add(name string, src *fakeSource, aliases ...string) {
	e := &registry.Entry{SiteConfig: scraper.SiteConfig{Key: name, Name: name}, Aliases: aliases}
	r.entries[name] = e
	for _, a := range aliases {
		r.entries[a] = e
	}
	r.sources[name] = src
}

func (r *fakeResolver) Resolve(raceName string) (*registry.Entry, registry.MatchRule, error) {
	e, ok := r.entries[raceName]
	if !ok {
		return nil, "", &registry.NoScraperAvailableError{RaceName: raceName, Supported: r.SupportedRaces()}
	}
	return e, registry.MatchExact, nil
}

func (r *fakeResolver) ScraperForRace(raceName string, _ int) (scraper.Scraper, error) {
	e, _, err := r.Resolve(raceName)
	if err != nil {
		return nil, err
	}
	return r.sources[e.Name], nil
}

func (r *fakeResolver) SupportedRaces() []string {
	var names []string
	for name := range r.sources {
		names = append(names, name)
	}
	return names
}

// fakeWeather counts lookups.
type fakeWeather struct {
	mu    sync.Mutex
	obs   *weather.Observation
	err   error
	calls int
}

func (w *fakeWeather) HistoricalWeather(context.Context, time.Time, string) (*weather.Observation, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.calls++
	return w.obs, w.err
}

func (w *fakeWeather) count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.calls
}

// recordingPublisher keeps published events.
type recordingPublisher struct {
	mu     sync.Mutex
	events []events.OrderReady
	err    error
}

func (p *recordingPublisher) PublishOrderReady(_ context.Context, e events.OrderReady) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

var errUpstream = errors.New("upstream timeout")

type fixture struct {
	store     *memStore
	resolver  *fakeResolver
	chicago   *fakeSource
	weather   *fakeWeather
	publisher *recordingPublisher
	svc       *Service
}

func raceDate(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func newFixture(t *testing.T) *fixture {
	t.Helper()

	temp := 52.3
	f := &fixture{
		store:    newMemStore(),
		resolver: newFakeResolver(),
		chicago: &fakeSource{
			info: &scraper.RaceInfo{
				RaceDate:        raceDate(2024, time.October, 13),
				Location:        "Chicago, IL",
				EventTypes:      []string{"Marathon"},
				ResultsURL:      "https://results.example.com/2024",
				ResultsSiteType: "html_table",
			},
			results: map[string]*scraper.SearchResult{
				"Jane Doe": scraper.Found(scraper.Candidate{Name: "Jane Doe", Bib: "4242", Time: "3:10:05"}, "Marathon", "https://results.example.com/2024"),
				"John Smith": scraper.Ambiguous([]scraper.Candidate{
					{Name: "John Smith", Bib: "101", Time: "4:01:00"},
					{Name: "John Smith", Bib: "202", Time: "3:55:38"},
				}),
			},
		},
		weather:   &fakeWeather{obs: &weather.Observation{TempF: &temp, Condition: "Partly cloudy"}},
		publisher: &recordingPublisher{},
	}
	f.resolver.add("Chicago Marathon", f.chicago, "Bank of America Chicago Marathon")

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	svc, err := NewService(Config{
		Store:     f.store,
		Resolver:  f.resolver,
		Weather:   f.weather,
		Publisher: f.publisher,
		Logger:    logger,
		Now:       func() time.Time { return fixedNow },
	})
	require.NoError(t, err)
	f.svc = svc
	return f
}

func (f *fixture) order(number, race string, year *int, runner string) {
	f.store.addOrder(&db.Order{
		OrderNumber: number,
		Channel:     "shopify",
		RaceName:    optional(race),
		RaceYear:    year,
		RunnerName:  optional(runner),
	})
}
