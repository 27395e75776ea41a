package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const raceEditionColumns = `id, race_name, year, race_date, date_approximate, location, event_types,
	results_url, results_site_type, weather_temp, weather_condition, weather_fetched_at,
	created_at, updated_at`

func scanRaceEdition(row pgx.Row) (*RaceEdition, error) {
	var r RaceEdition
	err := row.Scan(&r.ID, &r.RaceName, &r.Year, &r.RaceDate, &r.DateApproximate, &r.Location,
		&r.EventTypes, &r.ResultsURL, &r.ResultsSiteType, &r.WeatherTemp, &r.WeatherCondition,
		&r.WeatherFetchedAt, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// GetRaceEdition looks up a race edition by race name and year
func (db *DB) GetRaceEdition(ctx context.Context, raceName string, year int) (*RaceEdition, error) {
	r, err := scanRaceEdition(db.pool.QueryRow(ctx,
		`SELECT `+raceEditionColumns+` FROM race_editions WHERE race_name = $1 AND year = $2`,
		raceName, year,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get race edition %s %d: %w", raceName, year, err)
	}
	return r, nil
}

// GetRaceEditionByID retrieves a race edition by ID
func (db *DB) GetRaceEditionByID(ctx context.Context, id uuid.UUID) (*RaceEdition, error) {
	r, err := scanRaceEdition(db.pool.QueryRow(ctx,
		`SELECT `+raceEditionColumns+` FROM race_editions WHERE id = $1`,
		id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get race edition %s: %w", id, err)
	}
	return r, nil
}

// UpsertRaceEdition creates a race edition or refreshes its metadata. The
// (race_name, year) constraint keeps concurrent first fetches to a single row.
// Weather columns are never touched here.
func (db *DB) UpsertRaceEdition(ctx context.Context, input *RaceEditionInput) (*RaceEdition, error) {
	eventTypes := input.EventTypes
	if eventTypes == nil {
		eventTypes = []string{}
	}

	r, err := scanRaceEdition(db.pool.QueryRow(ctx,
		`INSERT INTO race_editions (race_name, year, race_date, date_approximate, location,
		                            event_types, results_url, results_site_type)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (race_name, year) DO UPDATE SET
		     race_date = COALESCE(EXCLUDED.race_date, race_editions.race_date),
		     date_approximate = EXCLUDED.date_approximate,
		     location = COALESCE(EXCLUDED.location, race_editions.location),
		     event_types = CASE
		         WHEN cardinality(EXCLUDED.event_types) > 0 THEN EXCLUDED.event_types
		         ELSE race_editions.event_types
		     END,
		     results_url = COALESCE(EXCLUDED.results_url, race_editions.results_url),
		     results_site_type = COALESCE(EXCLUDED.results_site_type, race_editions.results_site_type),
		     updated_at = NOW()
		 RETURNING `+raceEditionColumns,
		input.RaceName, input.Year, input.RaceDate, input.DateApproximate, nullIfEmpty(input.Location),
		eventTypes, nullIfEmpty(input.ResultsURL), nullIfEmpty(input.ResultsSiteType),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to upsert race edition %s %d: %w", input.RaceName, input.Year, err)
	}
	return r, nil
}

// UpdateRaceEditionWeather stores temperature, condition and fetched-at together
func (db *DB) UpdateRaceEditionWeather(ctx context.Context, id uuid.UUID, update WeatherUpdate) (*RaceEdition, error) {
	r, err := scanRaceEdition(db.pool.QueryRow(ctx,
		`UPDATE race_editions
		 SET weather_temp = $2, weather_condition = $3, weather_fetched_at = $4, updated_at = NOW()
		 WHERE id = $1
		 RETURNING `+raceEditionColumns,
		id, update.TempF, nullIfEmpty(update.Condition), update.FetchedAt,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to update weather for race edition %s: %w", id, err)
	}
	return r, nil
}

// ListRaceEditionsMissingWeather returns cache-complete editions with no weather attempt yet
func (db *DB) ListRaceEditionsMissingWeather(ctx context.Context, limit int) ([]RaceEdition, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := db.pool.Query(ctx,
		`SELECT `+raceEditionColumns+` FROM race_editions
		 WHERE weather_fetched_at IS NULL AND race_date IS NOT NULL AND location IS NOT NULL
		 ORDER BY race_date ASC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list race editions missing weather: %w", err)
	}
	defer rows.Close()

	var editions []RaceEdition
	for rows.Next() {
		r, err := scanRaceEdition(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan race edition: %w", err)
		}
		editions = append(editions, *r)
	}
	return editions, rows.Err()
}
