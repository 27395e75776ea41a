// Package server provides the HTTP API operators use to research orders.
package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jonathan/race-results/internal/fetch"
	"github.com/jonathan/race-results/internal/registry"
	"github.com/jonathan/race-results/internal/research"
	"github.com/jonathan/race-results/internal/scraper"
)

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var (
		validation *ErrValidation
		noScraper  *registry.NoScraperAvailableError
		search     *research.SearchError
		scrape     *scraper.FetchError
		upstream   *fetch.Error
	)
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &validation),
		errors.Is(err, research.ErrInvalidCandidate),
		errors.Is(err, research.ErrInvalidOverride):
		return http.StatusBadRequest
	case errors.Is(err, research.ErrOrderNotFound),
		errors.Is(err, research.ErrRaceEditionNotFound):
		return http.StatusNotFound
	case errors.Is(err, research.ErrNoResearchToAccept),
		errors.Is(err, research.ErrAlreadyFound):
		return http.StatusConflict
	case errors.As(err, &noScraper),
		errors.Is(err, research.ErrMissingRunnerName),
		errors.Is(err, research.ErrMissingRaceYear):
		return http.StatusUnprocessableEntity
	case errors.As(err, &upstream) && upstream.Retryable:
		return http.StatusServiceUnavailable
	case errors.As(err, &search), errors.As(err, &scrape), errors.As(err, &upstream):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error          string   `json:"error"`
	Code           string   `json:"code,omitempty"`
	SupportedRaces []string `json:"supported_races,omitempty"`
}

func newErrorBody(err error) errorBody {
	body := errorBody{Error: err.Error()}

	var noScraper *registry.NoScraperAvailableError
	switch {
	case errors.As(err, &noScraper):
		body.Code = "no_scraper_available"
		body.SupportedRaces = noScraper.Supported
	case errors.Is(err, research.ErrMissingRunnerName):
		body.Code = "missing_runner_name"
	case errors.Is(err, research.ErrMissingRaceYear):
		body.Code = "missing_race_year"
	case errors.Is(err, research.ErrAlreadyFound):
		body.Code = "already_found"
	case errors.Is(err, research.ErrNoResearchToAccept):
		body.Code = "no_research_to_accept"
	}
	return body
}
