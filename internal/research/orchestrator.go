package research

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/jonathan/race-results/internal/db"
	"github.com/jonathan/race-results/internal/events"
	"github.com/jonathan/race-results/internal/scraper"
)

// ResearchOrder resolves one order: race edition first (tier 1), then the runner
// within it (tier 2). Missing runner name, missing year and unroutable races
// fail before any network activity.
func (s *Service) ResearchOrder(ctx context.Context, orderNumber string) (*Result, error) {
	return s.researchOrder(ctx, orderNumber, nil)
}

// researchOrder is ResearchOrder with an optional call-scoped edition cache
// keyed by raceEditionKey.
func (s *Service) researchOrder(ctx context.Context, orderNumber string, editions map[string]*db.RaceEdition) (*Result, error) {
	order, err := s.loadOrder(ctx, orderNumber)
	if err != nil {
		return nil, err
	}
	t, err := s.resolveTarget(order)
	if err != nil {
		return nil, err
	}

	key := raceEditionKey(t.raceName, t.year)
	edition, ok := editions[key]
	if !ok {
		edition, err = s.GetOrFetchRaceEdition(ctx, t.raceName, t.year)
		if err != nil {
			return nil, orderErr(order.OrderNumber, err)
		}
		if editions != nil {
			editions[key] = edition
		}
	}

	rr, order, err := s.GetOrFetchRunnerResearch(ctx, order, edition, t.runnerName)
	if err != nil {
		return nil, err
	}

	return &Result{
		Order:          order,
		RaceEdition:    edition,
		RunnerResearch: rr,
		Matches:        MatchesFrom(rr),
		MatchRule:      t.rule,
	}, nil
}

func raceEditionKey(raceName string, year int) string {
	return fmt.Sprintf("%s_%d", raceName, year)
}

// GetOrFetchRaceEdition returns the race edition for (raceName, year). A
// cache-complete edition (date and location known) is returned without touching
// the source. Otherwise the source's race info is fetched and stored, and the
// first time the edition becomes complete its weather is looked up.
func (s *Service) GetOrFetchRaceEdition(ctx context.Context, raceName string, year int) (*db.RaceEdition, error) {
	entry, _, err := s.resolver.Resolve(raceName)
	if err != nil {
		return nil, err
	}
	name := entry.Name
	log := s.logger.WithFields(logrus.Fields{"race": name, "year": year})

	existing, err := s.store.GetRaceEdition(ctx, name, year)
	if err != nil {
		return nil, err
	}
	if existing != nil && existing.IsCacheComplete() {
		log.WithField("cache", "hit").Debug("race edition cache hit")
		return existing, nil
	}
	log.WithField("cache", "miss").Info("fetching race info")

	src, err := s.resolver.ScraperForRace(name, year)
	if err != nil {
		return nil, err
	}
	info, err := src.GetRaceInfo(ctx)
	if err != nil {
		return nil, &SearchError{RaceName: name, Year: year, Stage: "race info", Cause: err}
	}

	edition, err := s.store.UpsertRaceEdition(ctx, &db.RaceEditionInput{
		RaceName:        name,
		Year:            year,
		RaceDate:        info.RaceDate,
		DateApproximate: info.Approximate,
		Location:        info.Location,
		EventTypes:      info.EventTypes,
		ResultsURL:      info.ResultsURL,
		ResultsSiteType: info.ResultsSiteType,
	})
	if err != nil {
		return nil, err
	}
	if info.Approximate {
		log.Warn("race date approximated from date rule")
	}

	if edition.IsCacheComplete() {
		// first transition to complete
		updated, err := s.FetchWeatherForRaceEdition(ctx, edition.ID)
		if err != nil {
			log.WithError(err).Warn("weather lookup failed")
		} else {
			edition = updated
		}
	}
	return edition, nil
}

// GetOrFetchRunnerResearch returns the runner research for order within
// edition. A found row is returned unchanged without calling the source. Any
// other state is searched again with runnerName and stored; a found result
// advances the order to ready.
func (s *Service) GetOrFetchRunnerResearch(ctx context.Context, order *db.Order, edition *db.RaceEdition, runnerName string) (*db.RunnerResearch, *db.Order, error) {
	log := s.orderLogger(order).WithFields(logrus.Fields{"race": edition.RaceName, "year": edition.Year})

	existing, err := s.store.GetRunnerResearch(ctx, order.OrderNumber, edition.ID)
	if err != nil {
		return nil, nil, err
	}
	if existing != nil && existing.IsFound() {
		log.WithField("cache", "hit").Debug("runner research cache hit")
		return existing, order, nil
	}

	src, err := s.resolver.ScraperForRace(edition.RaceName, edition.Year)
	if err != nil {
		return nil, nil, err
	}
	res, err := src.SearchRunner(ctx, runnerName)
	if err != nil {
		return nil, nil, &SearchError{
			OrderNumber: order.OrderNumber,
			RaceName:    edition.RaceName,
			Year:        edition.Year,
			Stage:       "runner search",
			Cause:       err,
		}
	}

	rr, err := s.store.UpsertRunnerResearch(ctx, researchInput(order.OrderNumber, edition, runnerName, res))
	if err != nil {
		return nil, nil, err
	}
	log.WithFields(logrus.Fields{
		"status": rr.ResearchStatus,
		"runner": runnerName,
	}).Info("runner research stored")

	if res.Found && rr.IsFound() {
		order, err = s.markReady(ctx, order, edition, rr, "search")
		if err != nil {
			return nil, nil, err
		}
	}
	return rr, order, nil
}

func researchInput(orderNumber string, edition *db.RaceEdition, runnerName string, res *scraper.SearchResult) *db.RunnerResearchInput {
	input := &db.RunnerResearchInput{
		OrderNumber:   orderNumber,
		RaceEditionID: edition.ID,
		RunnerName:    runnerName,
		ResearchNotes: res.ResearchNotes,
	}
	switch {
	case res.Found:
		input.ResearchStatus = db.ResearchStatusFound
		input.BibNumber = res.BibNumber
		input.OfficialTime = res.OfficialTime
		input.OfficialPace = res.OfficialPace
		input.EventType = res.EventType
		input.ResultsURL = res.ResultsURL
		input.RawData = res.RawData
	case res.Ambiguous:
		input.ResearchStatus = db.ResearchStatusAmbiguous
		input.ResultsURL = res.ResultsURL
		input.RawData = map[string]any{"search": runnerName, "matches": res.Matches}
	default:
		input.ResearchStatus = db.ResearchStatusNotFound
		input.RawData = res.RawData
	}
	return input
}

// markReady advances an order to ready and publishes the order-ready event.
// Publication failures are logged only.
func (s *Service) markReady(ctx context.Context, order *db.Order, edition *db.RaceEdition, rr *db.RunnerResearch, source string) (*db.Order, error) {
	now := s.now().UTC()
	updated, err := s.store.MarkOrderReady(ctx, order.OrderNumber, now)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, orderErr(order.OrderNumber, ErrOrderNotFound)
	}

	evt := events.OrderReady{
		OrderNumber:   updated.OrderNumber,
		RaceEditionID: edition.ID.String(),
		RaceName:      edition.RaceName,
		Year:          edition.Year,
		RunnerName:    rr.RunnerName,
		BibNumber:     deref(rr.BibNumber),
		OfficialTime:  deref(rr.OfficialTime),
		OfficialPace:  deref(rr.OfficialPace),
		EventType:     deref(rr.EventType),
		Source:        source,
		ResearchedAt:  now,
	}
	if err := s.publisher.PublishOrderReady(ctx, evt); err != nil {
		s.orderLogger(order).WithError(err).Warn("failed to publish order ready event")
	}
	return updated, nil
}

// MatchesFrom returns the candidates stored with an ambiguous research row.
func MatchesFrom(rr *db.RunnerResearch) []scraper.Candidate {
	if rr == nil || rr.ResearchStatus != db.ResearchStatusAmbiguous || rr.RawData == nil {
		return nil
	}
	raw, ok := rr.RawData["matches"]
	if !ok {
		return nil
	}
	// stored rows hold decoded JSON, fresh rows hold []scraper.Candidate
	b, err := json.Marshal(raw)
	if err != nil {
		return nil
	}
	var matches []scraper.Candidate
	if err := json.Unmarshal(b, &matches); err != nil {
		return nil
	}
	return matches
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}
