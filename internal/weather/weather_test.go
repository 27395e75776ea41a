package weather

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/race-results/internal/fetch"
)

func newTestProvider(t *testing.T, handler http.HandlerFunc) *OpenMeteo {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	p := NewOpenMeteo()
	p.GeocodeURL = srv.URL + "/geocode"
	p.ArchiveURL = srv.URL + "/archive"
	p.Options = fetch.DefaultOptions()
	return p
}

func TestOpenMeteo_HistoricalWeather(t *testing.T) {
	var archiveQuery map[string]string
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/geocode":
			assert.Equal(t, "Chicago", r.URL.Query().Get("name"))
			_, _ = w.Write([]byte(`{"results":[{"name":"Chicago","latitude":41.85,"longitude":-87.65,"admin1":"Illinois","country_code":"US"}]}`))
		case "/archive":
			archiveQuery = map[string]string{
				"start_date": r.URL.Query().Get("start_date"),
				"unit":       r.URL.Query().Get("temperature_unit"),
				"latitude":   r.URL.Query().Get("latitude"),
			}
			_, _ = w.Write([]byte(`{"hourly":{
				"time":["2024-10-13T07:00","2024-10-13T08:00","2024-10-13T09:00"],
				"temperature_2m":[50.1,52.3,55.0],
				"weather_code":[0,2,3]}}`))
		default:
			http.NotFound(w, r)
		}
	})

	obs, err := p.HistoricalWeather(context.Background(), time.Date(2024, 10, 13, 0, 0, 0, 0, time.UTC), "Chicago, IL")
	require.NoError(t, err)
	require.NotNil(t, obs)
	require.NotNil(t, obs.TempF)
	assert.InDelta(t, 52.3, *obs.TempF, 0.001)
	assert.Equal(t, "Partly cloudy", obs.Condition)

	assert.Equal(t, "2024-10-13", archiveQuery["start_date"])
	assert.Equal(t, "fahrenheit", archiveQuery["unit"])
	assert.Equal(t, "41.8500", archiveQuery["latitude"])
}

func TestOpenMeteo_UnknownLocation(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})

	obs, err := p.HistoricalWeather(context.Background(), time.Now(), "Atlantis")
	require.NoError(t, err)
	assert.Nil(t, obs)
}

func TestOpenMeteo_NoHourlyData(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/geocode" {
			_, _ = w.Write([]byte(`{"results":[{"name":"Boston","latitude":42.36,"longitude":-71.06}]}`))
			return
		}
		_, _ = w.Write([]byte(`{"hourly":{"time":["2024-04-15T08:00"],"temperature_2m":[null],"weather_code":[null]}}`))
	})

	obs, err := p.HistoricalWeather(context.Background(), time.Date(2024, 4, 15, 0, 0, 0, 0, time.UTC), "Boston, MA")
	require.NoError(t, err)
	assert.Nil(t, obs)
}

func TestOpenMeteo_UpstreamFailure(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	_, err := p.HistoricalWeather(context.Background(), time.Now(), "Boston, MA")
	var werr *Error
	require.ErrorAs(t, err, &werr)
	var ferr *fetch.Error
	assert.ErrorAs(t, err, &ferr)
}

func TestOpenMeteo_EmptyLocation(t *testing.T) {
	p := NewOpenMeteo()
	obs, err := p.HistoricalWeather(context.Background(), time.Now(), "  ")
	require.NoError(t, err)
	assert.Nil(t, obs)
}

func TestCondition(t *testing.T) {
	tests := map[int]string{
		0:   "Clear",
		3:   "Overcast",
		45:  "Fog",
		53:  "Drizzle",
		63:  "Rain",
		75:  "Snow",
		81:  "Rain showers",
		95:  "Thunderstorm",
		100: "",
	}
	for code, want := range tests {
		assert.Equal(t, want, Condition(code), "code %d", code)
	}
}

func TestCityName(t *testing.T) {
	assert.Equal(t, "Chicago", cityName("Chicago, IL"))
	assert.Equal(t, "Arlington", cityName(" Arlington , VA, USA"))
	assert.Equal(t, "Boston", cityName("Boston"))
}
