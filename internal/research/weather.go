package research

import (
	"context"
	"sync/atomic"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/race-results/internal/db"
)

// FetchWeatherForRaceEdition looks up and stores race-day weather once. It is a
// no-op when weather was already attempted, when the date or location is
// unknown, or when no provider is configured. Temperature, condition and
// fetched-at are written together; fetched-at alone marks "no data available".
func (s *Service) FetchWeatherForRaceEdition(ctx context.Context, id uuid.UUID) (*db.RaceEdition, error) {
	edition, err := s.store.GetRaceEditionByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if edition == nil {
		return nil, ErrRaceEditionNotFound
	}
	if edition.WeatherAttempted() || !edition.IsCacheComplete() || s.weather == nil {
		return edition, nil
	}

	obs, err := s.weather.HistoricalWeather(ctx, *edition.RaceDate, *edition.Location)
	if err != nil {
		return nil, err
	}

	update := db.WeatherUpdate{FetchedAt: s.now().UTC()}
	if obs != nil {
		update.TempF = obs.TempF
		update.Condition = obs.Condition
	}
	updated, err := s.store.UpdateRaceEditionWeather(ctx, id, update)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, ErrRaceEditionNotFound
	}

	s.logger.WithFields(map[string]any{
		"race":    updated.RaceName,
		"year":    updated.Year,
		"no_data": obs == nil,
	}).Info("race weather stored")
	return updated, nil
}

// BackfillReport summarizes a weather backfill run.
type BackfillReport struct {
	Checked int `json:"checked"`
	Updated int `json:"updated"`
	Failed  int `json:"failed"`
}

// DefaultBackfillConcurrency bounds parallel weather lookups during backfill.
const DefaultBackfillConcurrency = 4

// BackfillWeather fetches weather for cache-complete editions that have none.
// Editions are independent, so lookups run in parallel up to concurrency.
// Individual failures are counted and logged.
func (s *Service) BackfillWeather(ctx context.Context, limit, concurrency int) (*BackfillReport, error) {
	editions, err := s.store.ListRaceEditionsMissingWeather(ctx, limit)
	if err != nil {
		return nil, err
	}
	if concurrency <= 0 {
		concurrency = DefaultBackfillConcurrency
	}

	var updated, failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for _, e := range editions {
		g.Go(func() error {
			if _, err := s.FetchWeatherForRaceEdition(gctx, e.ID); err != nil {
				failed.Add(1)
				s.logger.WithError(err).WithFields(map[string]any{
					"race": e.RaceName,
					"year": e.Year,
				}).Warn("weather backfill failed")
				return nil
			}
			updated.Add(1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &BackfillReport{
		Checked: len(editions),
		Updated: int(updated.Load()),
		Failed:  int(failed.Load()),
	}, nil
}
