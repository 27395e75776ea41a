package research

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/race-results/internal/db"
)

func completeEdition(f *fixture, name string) *db.RaceEdition {
	return f.store.addEdition(&db.RaceEdition{
		RaceName: name,
		Year:     2024,
		RaceDate: raceDate(2024, time.October, 13),
		Location: strPtr("Chicago, IL"),
	})
}

func TestFetchWeatherForRaceEdition(t *testing.T) {
	f := newFixture(t)
	e := completeEdition(f, "Chicago Marathon")
	ctx := context.Background()

	updated, err := f.svc.FetchWeatherForRaceEdition(ctx, e.ID)
	require.NoError(t, err)
	require.NotNil(t, updated.WeatherTemp)
	assert.InDelta(t, 52.3, *updated.WeatherTemp, 0.001)
	assert.Equal(t, "Partly cloudy", *updated.WeatherCondition)
	require.NotNil(t, updated.WeatherFetchedAt)
	assert.Equal(t, fixedNow, *updated.WeatherFetchedAt)

	again, err := f.svc.FetchWeatherForRaceEdition(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, updated.WeatherFetchedAt, again.WeatherFetchedAt)
	assert.Equal(t, 1, f.weather.count(), "idempotent once attempted")
	assert.Equal(t, 1, f.store.weatherUpdates)
}

func TestFetchWeatherForRaceEdition_NoData(t *testing.T) {
	f := newFixture(t)
	f.weather.obs = nil
	e := completeEdition(f, "Chicago Marathon")

	updated, err := f.svc.FetchWeatherForRaceEdition(context.Background(), e.ID)
	require.NoError(t, err)
	assert.True(t, updated.WeatherAttempted())
	assert.Nil(t, updated.WeatherTemp)
	assert.Nil(t, updated.WeatherCondition)
}

func TestFetchWeatherForRaceEdition_Skips(t *testing.T) {
	f := newFixture(t)
	incomplete := f.store.addEdition(&db.RaceEdition{RaceName: "Chicago Marathon", Year: 2023})

	got, err := f.svc.FetchWeatherForRaceEdition(context.Background(), incomplete.ID)
	require.NoError(t, err)
	assert.False(t, got.WeatherAttempted())
	assert.Zero(t, f.weather.count())

	_, err = f.svc.FetchWeatherForRaceEdition(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrRaceEditionNotFound)
}

func TestFetchWeatherForRaceEdition_ProviderError(t *testing.T) {
	f := newFixture(t)
	f.weather.err = errors.New("rate limited")
	e := completeEdition(f, "Chicago Marathon")

	_, err := f.svc.FetchWeatherForRaceEdition(context.Background(), e.ID)
	require.Error(t, err)

	stored, _ := f.store.GetRaceEditionByID(context.Background(), e.ID)
	assert.False(t, stored.WeatherAttempted(), "failures stay eligible for retry")
}

func TestFetchWeatherForRaceEdition_NoProvider(t *testing.T) {
	f := newFixture(t)
	f.svc.weather = nil
	e := completeEdition(f, "Chicago Marathon")

	got, err := f.svc.FetchWeatherForRaceEdition(context.Background(), e.ID)
	require.NoError(t, err)
	assert.False(t, got.WeatherAttempted())
}

func TestBackfillWeather(t *testing.T) {
	f := newFixture(t)
	for _, name := range []string{"Race A", "Race B", "Race C"} {
		completeEdition(f, name)
	}
	f.store.addEdition(&db.RaceEdition{RaceName: "Race D", Year: 2024})

	report, err := f.svc.BackfillWeather(context.Background(), 10, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Checked)
	assert.Equal(t, 3, report.Updated)
	assert.Zero(t, report.Failed)
	assert.Equal(t, 3, f.weather.count())

	report, err = f.svc.BackfillWeather(context.Background(), 10, 2)
	require.NoError(t, err)
	assert.Zero(t, report.Checked)
}

func TestBackfillWeather_CountsFailures(t *testing.T) {
	f := newFixture(t)
	f.weather.err = errors.New("down")
	completeEdition(f, "Race A")
	completeEdition(f, "Race B")

	report, err := f.svc.BackfillWeather(context.Background(), 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Failed)
	assert.Zero(t, report.Updated)
}
