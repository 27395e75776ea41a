package research

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/race-results/internal/db"
	"github.com/jonathan/race-results/internal/scraper"
)

func TestResearchBatch_SharedEditionFetchedOnce(t *testing.T) {
	f := newFixture(t)
	// location missing keeps the edition incomplete, so only the batch map prevents a refetch
	f.chicago.info.Location = ""
	f.order("A", "Chicago Marathon", intPtr(2024), "Jane Doe")
	f.order("B", "Chicago Marathon", intPtr(2024), "John Smith")

	items := f.svc.ResearchBatch(context.Background(), []string{"A", "B"})
	require.Len(t, items, 2)
	for _, item := range items {
		assert.True(t, item.Success(), "order %s: %v", item.OrderNumber, item.Error)
	}

	info, search := f.chicago.calls()
	assert.Equal(t, 1, info)
	assert.Equal(t, 2, search)
	assert.Equal(t, items[0].Result.RaceEdition.ID, items[1].Result.RaceEdition.ID)
}

func TestResearchBatch_CacheIsCallScoped(t *testing.T) {
	f := newFixture(t)
	f.chicago.info.Location = ""
	f.order("A", "Chicago Marathon", intPtr(2024), "Jane Doe")

	f.svc.ResearchBatch(context.Background(), []string{"A"})
	f.svc.ResearchBatch(context.Background(), []string{"A"})

	info, _ := f.chicago.calls()
	assert.Equal(t, 2, info, "each batch call starts with an empty edition map")
}

func TestResearchBatch_PartialFailure(t *testing.T) {
	f := newFixture(t)
	boston := &fakeSource{
		info: &scraper.RaceInfo{RaceDate: raceDate(2024, time.April, 15), Location: "Boston, MA"},
		results: map[string]*scraper.SearchResult{
			"Jane Doe": scraper.Found(scraper.Candidate{Name: "Jane Doe", Bib: "7", Time: "2:59:59"}, "Marathon", ""),
		},
	}
	f.resolver.add("Boston Marathon", boston)

	f.order("A", "Chicago Marathon", intPtr(2024), "Jane Doe")
	f.order("B", "Chicago Marathon", nil, "Jane Doe")
	f.order("C", "Unknown 10K", intPtr(2024), "Jane Doe")
	f.order("D", "Boston Marathon", intPtr(2024), "Jane Doe")

	items := f.svc.ResearchBatch(context.Background(), []string{"A", "B", "C", "missing", "D"})
	require.Len(t, items, 5)

	assert.True(t, items[0].Success())
	assert.ErrorIs(t, items[1].Error, ErrMissingRaceYear)
	assert.Error(t, items[2].Error)
	assert.ErrorIs(t, items[3].Error, ErrOrderNotFound)
	require.True(t, items[4].Success())
	assert.Equal(t, db.ResearchStatusFound, items[4].Result.RunnerResearch.ResearchStatus)

	for i, item := range items {
		if item.Error != nil {
			assert.Nil(t, item.Result, "item %d", i)
		}
	}
}

func TestResearchBatch_DistinctYearsAreDistinctEditions(t *testing.T) {
	f := newFixture(t)
	f.order("A", "Chicago Marathon", intPtr(2023), "Jane Doe")
	f.order("B", "Chicago Marathon", intPtr(2024), "Jane Doe")

	items := f.svc.ResearchBatch(context.Background(), []string{"A", "B"})
	require.True(t, items[0].Success())
	require.True(t, items[1].Success())

	info, _ := f.chicago.calls()
	assert.Equal(t, 2, info)
	assert.NotEqual(t, items[0].Result.RaceEdition.ID, items[1].Result.RaceEdition.ID)
}

func TestResearchBatch_Empty(t *testing.T) {
	f := newFixture(t)
	assert.Empty(t, f.svc.ResearchBatch(context.Background(), nil))
}
