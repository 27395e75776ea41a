package observability

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jonathan/race-results/internal/db"
	"github.com/jonathan/race-results/internal/research"
	"github.com/jonathan/race-results/internal/scraper"
)

func strPtr(s string) *string { return &s }

func TestPrintOrder(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	year := 2024
	override := 2023
	p.PrintOrder(&db.Order{
		OrderNumber:      "1001",
		RaceName:         strPtr("Chicago Marathon"),
		RaceYear:         &year,
		RaceYearOverride: &override,
		RunnerName:       strPtr("Jane Doe"),
		Status:           db.OrderStatusPending,
	})
	output := buf.String()

	assert.Contains(t, output, "ORDER 1001")
	assert.Contains(t, output, "Chicago Marathon")
	assert.Contains(t, output, "2023 (override)")
	assert.Contains(t, output, "Jane Doe")
	assert.Contains(t, output, "pending")
}

func TestPrintRaceEdition(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	date := time.Date(2024, 10, 13, 0, 0, 0, 0, time.UTC)
	temp := 52.3
	fetched := date
	p.PrintRaceEdition(&db.RaceEdition{
		RaceName:         "Chicago Marathon",
		Year:             2024,
		RaceDate:         &date,
		DateApproximate:  true,
		Location:         strPtr("Chicago, IL"),
		EventTypes:       []string{"Marathon"},
		WeatherTemp:      &temp,
		WeatherCondition: strPtr("Partly cloudy"),
		WeatherFetchedAt: &fetched,
	})
	output := buf.String()

	assert.Contains(t, output, "Chicago Marathon 2024")
	assert.Contains(t, output, "Sun Oct 13, 2024 (approximate)")
	assert.Contains(t, output, "Chicago, IL")
	assert.Contains(t, output, "52°F, Partly cloudy")
}

func TestPrintRaceEdition_WeatherStates(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).PrintRaceEdition(&db.RaceEdition{RaceName: "Boston Marathon", Year: 2024})
	assert.Contains(t, buf.String(), "not fetched")
	assert.Contains(t, buf.String(), "(unknown)")

	buf.Reset()
	now := time.Now()
	NewPrinter(&buf).PrintRaceEdition(&db.RaceEdition{RaceName: "Boston Marathon", Year: 2024, WeatherFetchedAt: &now})
	assert.Contains(t, buf.String(), "unavailable")
}

func TestPrintRunnerResearch_Found(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).PrintRunnerResearch(&db.RunnerResearch{
		RunnerName:     "Jane Doe",
		ResearchStatus: db.ResearchStatusFound,
		BibNumber:      strPtr("4242"),
		OfficialTime:   strPtr("3:10:05"),
		OfficialPace:   strPtr("7:15"),
		EventType:      strPtr("Marathon"),
	}, nil)
	output := buf.String()

	assert.Contains(t, output, "FOUND")
	assert.Contains(t, output, "4242")
	assert.Contains(t, output, "3:10:05")
	assert.Contains(t, output, "7:15")
}

func TestPrintRunnerResearch_AmbiguousTruncates(t *testing.T) {
	matches := make([]scraper.Candidate, 7)
	for i := range matches {
		matches[i] = scraper.Candidate{Name: "John Smith", Bib: string(rune('1' + i)), Time: "4:00:00"}
	}

	var buf bytes.Buffer
	NewPrinter(&buf).PrintRunnerResearch(&db.RunnerResearch{
		RunnerName:     "John Smith",
		ResearchStatus: db.ResearchStatusAmbiguous,
		ResearchNotes:  strPtr("7 runners match this name; select the correct one"),
	}, matches)
	output := buf.String()

	assert.Contains(t, output, "AMBIGUOUS")
	assert.Contains(t, output, "7 candidates")
	assert.Contains(t, output, "John Smith, bib 1, 4:00:00")
	assert.Contains(t, output, "... and 2 more")
	assert.Contains(t, output, "Notes:")
}

func TestPrintBatch(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).PrintBatch([]research.BatchItem{
		{OrderNumber: "A", Result: &research.Result{RunnerResearch: &db.RunnerResearch{ResearchStatus: db.ResearchStatusFound}}},
		{OrderNumber: "B", Error: errors.New("order B: order has no race year")},
	})
	output := buf.String()

	assert.Contains(t, output, "✓ A  found")
	assert.Contains(t, output, "✗ B")
	assert.Contains(t, output, "1 succeeded, 1 failed")
}

func TestPrintBox_TruncatesLongLines(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).printBox("T", strings.Repeat("x", 200))
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		assert.LessOrEqual(t, len([]rune(line)), boxWidth)
	}
}

func TestPrint_Nil(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)
	p.PrintResult(nil)
	p.PrintOrder(nil)
	p.PrintRaceEdition(nil)
	p.PrintRunnerResearch(nil, nil)
	p.PrintBatch(nil)
	assert.Empty(t, buf.String())
}
