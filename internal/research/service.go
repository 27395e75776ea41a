// Package research resolves orders to official race results. It coordinates the
// race-edition cache (tier 1), the per-order runner research cache (tier 2), the
// operator disambiguation workflow and race-day weather.
package research

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/jonathan/race-results/internal/db"
	"github.com/jonathan/race-results/internal/events"
	"github.com/jonathan/race-results/internal/registry"
	"github.com/jonathan/race-results/internal/scraper"
	"github.com/jonathan/race-results/internal/weather"
)

// Store is the storage the service reads and writes. *db.DB implements it.
type Store interface {
	GetOrder(ctx context.Context, orderNumber string) (*db.Order, error)
	UpdateOrderOverrides(ctx context.Context, orderNumber string, overrides db.OrderOverrides) (*db.Order, error)
	MarkOrderReady(ctx context.Context, orderNumber string, researchedAt time.Time) (*db.Order, error)

	GetRaceEdition(ctx context.Context, raceName string, year int) (*db.RaceEdition, error)
	GetRaceEditionByID(ctx context.Context, id uuid.UUID) (*db.RaceEdition, error)
	UpsertRaceEdition(ctx context.Context, input *db.RaceEditionInput) (*db.RaceEdition, error)
	UpdateRaceEditionWeather(ctx context.Context, id uuid.UUID, update db.WeatherUpdate) (*db.RaceEdition, error)
	ListRaceEditionsMissingWeather(ctx context.Context, limit int) ([]db.RaceEdition, error)

	GetRunnerResearch(ctx context.Context, orderNumber string, raceEditionID uuid.UUID) (*db.RunnerResearch, error)
	UpsertRunnerResearch(ctx context.Context, input *db.RunnerResearchInput) (*db.RunnerResearch, error)
	UpdateRunnerResearch(ctx context.Context, id uuid.UUID, input *db.RunnerResearchInput) (*db.RunnerResearch, error)
}

// ScraperResolver routes race names to sources. *registry.Registry implements it.
type ScraperResolver interface {
	Resolve(raceName string) (*registry.Entry, registry.MatchRule, error)
	ScraperForRace(raceName string, year int) (scraper.Scraper, error)
}

var (
	_ Store           = (*db.DB)(nil)
	_ ScraperResolver = (*registry.Registry)(nil)
)

// Config holds the service collaborators. Store and Resolver are required.
type Config struct {
	Store     Store
	Resolver  ScraperResolver
	Weather   weather.Provider
	Publisher events.Publisher
	Logger    logrus.FieldLogger
	Now       func() time.Time
}

// Service is the research orchestrator. It keeps no state between calls.
type Service struct {
	store     Store
	resolver  ScraperResolver
	weather   weather.Provider
	publisher events.Publisher
	logger    logrus.FieldLogger
	now       func() time.Time
}

// NewService creates a research service
func NewService(cfg Config) (*Service, error) {
	if cfg.Store == nil {
		return nil, errors.New("research: store is required")
	}
	if cfg.Resolver == nil {
		return nil, errors.New("research: scraper resolver is required")
	}
	if cfg.Publisher == nil {
		cfg.Publisher = events.NopPublisher{}
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Service{
		store:     cfg.Store,
		resolver:  cfg.Resolver,
		weather:   cfg.Weather,
		publisher: cfg.Publisher,
		logger:    cfg.Logger,
		now:       cfg.Now,
	}, nil
}

// SupportedRaces lists the races that can be researched automatically, when the
// resolver can enumerate them.
func (s *Service) SupportedRaces() []string {
	if lister, ok := s.resolver.(interface{ SupportedRaces() []string }); ok {
		return lister.SupportedRaces()
	}
	return nil
}

// Result is the outcome of researching one order.
type Result struct {
	Order          *db.Order          `json:"order"`
	RaceEdition    *db.RaceEdition    `json:"race_edition"`
	RunnerResearch *db.RunnerResearch `json:"runner_research"`
	// Matches lists the candidates an operator can accept when the research is ambiguous.
	Matches   []scraper.Candidate `json:"matches,omitempty"`
	MatchRule registry.MatchRule  `json:"match_rule,omitempty"`
}

func (s *Service) loadOrder(ctx context.Context, orderNumber string) (*db.Order, error) {
	order, err := s.store.GetOrder(ctx, orderNumber)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, orderErr(orderNumber, ErrOrderNotFound)
	}
	return order, nil
}

// target is what an order resolves to once overrides and routing are applied.
type target struct {
	raceName   string // catalog display name
	year       int
	runnerName string
	rule       registry.MatchRule
}

// resolveTarget validates the effective order values and routes the race. It
// performs no network I/O.
func (s *Service) resolveTarget(order *db.Order) (*target, error) {
	runner := order.EffectiveRunnerName()
	if runner == "" {
		return nil, orderErr(order.OrderNumber, ErrMissingRunnerName)
	}
	year, ok := order.EffectiveRaceYear()
	if !ok {
		return nil, orderErr(order.OrderNumber, ErrMissingRaceYear)
	}
	entry, rule, err := s.resolver.Resolve(order.EffectiveRaceName())
	if err != nil {
		return nil, err
	}
	return &target{raceName: entry.Name, year: year, runnerName: runner, rule: rule}, nil
}

func (s *Service) orderLogger(order *db.Order) logrus.FieldLogger {
	return s.logger.WithField("order_number", order.OrderNumber)
}
