package db

import (
	"time"

	"github.com/google/uuid"
)

// Order status constants
const (
	OrderStatusPending     = "pending"
	OrderStatusReady       = "ready"
	OrderStatusFlagged     = "flagged"
	OrderStatusMissingYear = "missing_year"
	OrderStatusCompleted   = "completed"
)

// Research status constants
const (
	ResearchStatusFound     = "found"
	ResearchStatusAmbiguous = "ambiguous"
	ResearchStatusNotFound  = "not_found"
)

// Order is one sellable line item. Ingested race and runner fields are never
// rewritten; operator corrections live in the override columns.
type Order struct {
	OrderNumber        string     `json:"order_number"`
	ParentOrderNumber  *string    `json:"parent_order_number,omitempty"`
	LineItemIndex      int        `json:"line_item_index"`
	Channel            string     `json:"channel"`
	RaceName           *string    `json:"race_name,omitempty"`
	RaceYear           *int       `json:"race_year,omitempty"`
	RunnerName         *string    `json:"runner_name,omitempty"`
	RaceNameOverride   *string    `json:"race_name_override,omitempty"`
	RaceYearOverride   *int       `json:"race_year_override,omitempty"`
	RunnerNameOverride *string    `json:"runner_name_override,omitempty"`
	Status             string     `json:"status"`
	ResearchedAt       *time.Time `json:"researched_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// EffectiveRaceName returns the race name override if set, else the ingested name.
func (o *Order) EffectiveRaceName() string {
	return firstString(o.RaceNameOverride, o.RaceName)
}

// EffectiveRunnerName returns the runner name override if set, else the ingested name.
func (o *Order) EffectiveRunnerName() string {
	return firstString(o.RunnerNameOverride, o.RunnerName)
}

// EffectiveRaceYear returns the race year override if set, else the ingested
// year. ok is false when neither is known.
func (o *Order) EffectiveRaceYear() (year int, ok bool) {
	switch {
	case o.RaceYearOverride != nil:
		return *o.RaceYearOverride, true
	case o.RaceYear != nil:
		return *o.RaceYear, true
	default:
		return 0, false
	}
}

func firstString(override, ingested *string) string {
	if override != nil {
		return *override
	}
	if ingested != nil {
		return *ingested
	}
	return ""
}

// OrderInput is used when creating an order
type OrderInput struct {
	OrderNumber       string
	ParentOrderNumber string
	LineItemIndex     int
	Channel           string
	RaceName          string
	RaceYear          *int
	RunnerName        string
}

// OrderOverrides holds the complete set of override values to store for an
// order. A nil field clears that override.
type OrderOverrides struct {
	RaceName   *string
	RaceYear   *int
	RunnerName *string
}

// RaceEdition is one (race name, year) pair
type RaceEdition struct {
	ID               uuid.UUID  `json:"id"`
	RaceName         string     `json:"race_name"`
	Year             int        `json:"year"`
	RaceDate         *time.Time `json:"race_date,omitempty"`
	DateApproximate  bool       `json:"date_approximate"`
	Location         *string    `json:"location,omitempty"`
	EventTypes       []string   `json:"event_types"`
	ResultsURL       *string    `json:"results_url,omitempty"`
	ResultsSiteType  *string    `json:"results_site_type,omitempty"`
	WeatherTemp      *float64   `json:"weather_temp,omitempty"`
	WeatherCondition *string    `json:"weather_condition,omitempty"`
	WeatherFetchedAt *time.Time `json:"weather_fetched_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// IsCacheComplete reports whether the race date and location are both known.
func (r *RaceEdition) IsCacheComplete() bool {
	return r.RaceDate != nil && r.Location != nil && *r.Location != ""
}

// WeatherAttempted reports whether a weather lookup has already been stored,
// with or without data.
func (r *RaceEdition) WeatherAttempted() bool {
	return r.WeatherFetchedAt != nil
}

// RaceEditionInput is used when creating or refreshing a race edition
type RaceEditionInput struct {
	RaceName        string
	Year            int
	RaceDate        *time.Time
	DateApproximate bool
	Location        string
	EventTypes      []string
	ResultsURL      string
	ResultsSiteType string
}

// WeatherUpdate is stored on a race edition in a single write
type WeatherUpdate struct {
	TempF     *float64
	Condition string
	FetchedAt time.Time
}

// RunnerResearch is the lookup of one order's runner within one race edition
type RunnerResearch struct {
	ID             uuid.UUID      `json:"id"`
	OrderNumber    string         `json:"order_number"`
	RaceEditionID  uuid.UUID      `json:"race_edition_id"`
	RunnerName     string         `json:"runner_name"`
	BibNumber      *string        `json:"bib_number,omitempty"`
	OfficialTime   *string        `json:"official_time,omitempty"`
	OfficialPace   *string        `json:"official_pace,omitempty"`
	EventType      *string        `json:"event_type,omitempty"`
	ResultsURL     *string        `json:"results_url,omitempty"`
	RawData        map[string]any `json:"raw_data,omitempty"`
	ResearchStatus string         `json:"research_status"`
	ResearchNotes  *string        `json:"research_notes,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// IsFound reports whether the research reached the terminal found state.
func (r *RunnerResearch) IsFound() bool {
	return r.ResearchStatus == ResearchStatusFound
}

// RunnerResearchInput is used when creating or updating runner research
type RunnerResearchInput struct {
	OrderNumber    string
	RaceEditionID  uuid.UUID
	RunnerName     string
	BibNumber      string
	OfficialTime   string
	OfficialPace   string
	EventType      string
	ResultsURL     string
	RawData        map[string]any
	ResearchStatus string
	ResearchNotes  string
}

// ValidOrderStatus checks if an order status value is valid
func ValidOrderStatus(status string) bool {
	switch status {
	case OrderStatusPending, OrderStatusReady, OrderStatusFlagged, OrderStatusMissingYear, OrderStatusCompleted:
		return true
	default:
		return false
	}
}

// ValidResearchStatus checks if a research status value is valid
func ValidResearchStatus(status string) bool {
	switch status {
	case ResearchStatusFound, ResearchStatusAmbiguous, ResearchStatusNotFound:
		return true
	default:
		return false
	}
}
