package research

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/jonathan/race-results/internal/db"
	"github.com/jonathan/race-results/internal/scraper"
)

var validate = validator.New()

// AcceptMatch records an operator-selected candidate as the found result for an
// order. The order's research row for its current race edition must exist and
// not be found yet. No source is contacted.
func (s *Service) AcceptMatch(ctx context.Context, orderNumber string, c scraper.Candidate) (*Result, error) {
	if err := validate.Struct(c); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCandidate, err)
	}

	order, err := s.loadOrder(ctx, orderNumber)
	if err != nil {
		return nil, err
	}
	t, err := s.resolveTarget(order)
	if err != nil {
		return nil, err
	}

	edition, err := s.store.GetRaceEdition(ctx, t.raceName, t.year)
	if err != nil {
		return nil, err
	}
	if edition == nil {
		return nil, orderErr(orderNumber, ErrNoResearchToAccept)
	}
	rr, err := s.store.GetRunnerResearch(ctx, orderNumber, edition.ID)
	if err != nil {
		return nil, err
	}
	if rr == nil {
		return nil, orderErr(orderNumber, ErrNoResearchToAccept)
	}
	if rr.IsFound() {
		return nil, orderErr(orderNumber, ErrAlreadyFound)
	}

	defaultEvent := ""
	if len(edition.EventTypes) > 0 {
		defaultEvent = edition.EventTypes[0]
	}
	resultsURL := deref(rr.ResultsURL)
	if resultsURL == "" {
		resultsURL = deref(edition.ResultsURL)
	}
	found := scraper.Found(c, defaultEvent, resultsURL)

	notes := fmt.Sprintf("Accepted match %q for search %q", c.Label(), rr.RunnerName)
	if found.ResearchNotes != "" {
		notes += "; " + found.ResearchNotes
	}
	raw := found.RawData
	raw["accepted"] = true
	if prior := MatchesFrom(rr); len(prior) > 0 {
		raw["candidates"] = prior
	}

	updated, err := s.store.UpdateRunnerResearch(ctx, rr.ID, &db.RunnerResearchInput{
		BibNumber:      found.BibNumber,
		OfficialTime:   found.OfficialTime,
		OfficialPace:   found.OfficialPace,
		EventType:      found.EventType,
		ResultsURL:     found.ResultsURL,
		RawData:        raw,
		ResearchStatus: db.ResearchStatusFound,
		ResearchNotes:  notes,
	})
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, orderErr(orderNumber, ErrNoResearchToAccept)
	}

	s.orderLogger(order).WithFields(logrus.Fields{
		"bib":           updated.BibNumber,
		"prior_status":  rr.ResearchStatus,
		"search_runner": rr.RunnerName,
	}).Info("match accepted")

	order, err = s.markReady(ctx, order, edition, updated, "accept_match")
	if err != nil {
		return nil, err
	}
	return &Result{Order: order, RaceEdition: edition, RunnerResearch: updated, MatchRule: t.rule}, nil
}
