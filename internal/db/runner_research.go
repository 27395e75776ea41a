package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const runnerResearchColumns = `id, order_number, race_edition_id, runner_name, bib_number,
	official_time, official_pace, event_type, results_url, raw_data,
	research_status, research_notes, created_at, updated_at`

func scanRunnerResearch(row pgx.Row) (*RunnerResearch, error) {
	var r RunnerResearch
	var raw []byte
	err := row.Scan(&r.ID, &r.OrderNumber, &r.RaceEditionID, &r.RunnerName, &r.BibNumber,
		&r.OfficialTime, &r.OfficialPace, &r.EventType, &r.ResultsURL, &raw,
		&r.ResearchStatus, &r.ResearchNotes, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if r.RawData, err = unmarshalRawData(raw); err != nil {
		return nil, err
	}
	return &r, nil
}

// GetRunnerResearch looks up the research row for an order within a race edition
func (db *DB) GetRunnerResearch(ctx context.Context, orderNumber string, raceEditionID uuid.UUID) (*RunnerResearch, error) {
	r, err := scanRunnerResearch(db.pool.QueryRow(ctx,
		`SELECT `+runnerResearchColumns+` FROM runner_research
		 WHERE order_number = $1 AND race_edition_id = $2`,
		orderNumber, raceEditionID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get runner research for order %s: %w", orderNumber, err)
	}
	return r, nil
}

// UpsertRunnerResearch creates or updates the research row for (order, race
// edition). A found row is never overwritten: the stored row is returned as is.
func (db *DB) UpsertRunnerResearch(ctx context.Context, input *RunnerResearchInput) (*RunnerResearch, error) {
	if !ValidResearchStatus(input.ResearchStatus) {
		return nil, fmt.Errorf("invalid research status %q", input.ResearchStatus)
	}
	raw, err := marshalRawData(input.RawData)
	if err != nil {
		return nil, err
	}

	r, err := scanRunnerResearch(db.pool.QueryRow(ctx,
		`INSERT INTO runner_research (order_number, race_edition_id, runner_name, bib_number,
		                              official_time, official_pace, event_type, results_url,
		                              raw_data, research_status, research_notes)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 ON CONFLICT (order_number, race_edition_id) DO UPDATE SET
		     runner_name = EXCLUDED.runner_name,
		     bib_number = EXCLUDED.bib_number,
		     official_time = EXCLUDED.official_time,
		     official_pace = EXCLUDED.official_pace,
		     event_type = EXCLUDED.event_type,
		     results_url = EXCLUDED.results_url,
		     raw_data = EXCLUDED.raw_data,
		     research_status = EXCLUDED.research_status,
		     research_notes = EXCLUDED.research_notes,
		     updated_at = NOW()
		 WHERE runner_research.research_status <> 'found'
		 RETURNING `+runnerResearchColumns,
		input.OrderNumber, input.RaceEditionID, input.RunnerName, nullIfEmpty(input.BibNumber),
		nullIfEmpty(input.OfficialTime), nullIfEmpty(input.OfficialPace), nullIfEmpty(input.EventType),
		nullIfEmpty(input.ResultsURL), raw, input.ResearchStatus, nullIfEmpty(input.ResearchNotes),
	))
	if errors.Is(err, pgx.ErrNoRows) {
		// conflict with a found row
		return db.GetRunnerResearch(ctx, input.OrderNumber, input.RaceEditionID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to upsert runner research for order %s: %w", input.OrderNumber, err)
	}
	return r, nil
}

// UpdateRunnerResearch overwrites the result fields of an existing research row.
// The search term (runner_name) is kept.
func (db *DB) UpdateRunnerResearch(ctx context.Context, id uuid.UUID, input *RunnerResearchInput) (*RunnerResearch, error) {
	if !ValidResearchStatus(input.ResearchStatus) {
		return nil, fmt.Errorf("invalid research status %q", input.ResearchStatus)
	}
	raw, err := marshalRawData(input.RawData)
	if err != nil {
		return nil, err
	}

	r, err := scanRunnerResearch(db.pool.QueryRow(ctx,
		`UPDATE runner_research SET
		     bib_number = $2, official_time = $3, official_pace = $4, event_type = $5,
		     results_url = $6, raw_data = $7, research_status = $8, research_notes = $9,
		     updated_at = NOW()
		 WHERE id = $1
		 RETURNING `+runnerResearchColumns,
		id, nullIfEmpty(input.BibNumber), nullIfEmpty(input.OfficialTime), nullIfEmpty(input.OfficialPace),
		nullIfEmpty(input.EventType), nullIfEmpty(input.ResultsURL), raw, input.ResearchStatus,
		nullIfEmpty(input.ResearchNotes),
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to update runner research %s: %w", id, err)
	}
	return r, nil
}
