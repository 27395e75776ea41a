// Package weather looks up historical race-day weather.
package weather

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/jonathan/race-results/internal/fetch"
)

// Observation is the weather at race start. TempF is nil when the provider has no data.
type Observation struct {
	TempF     *float64
	Condition string
}

// Provider looks up the weather for a date and free-form location ("Chicago, IL").
// It returns nil, nil when the location or date has no data.
type Provider interface {
	HistoricalWeather(ctx context.Context, date time.Time, location string) (*Observation, error)
}

// Default Open-Meteo endpoints
const (
	DefaultGeocodeURL = "https://geocoding-api.open-meteo.com/v1/search"
	DefaultArchiveURL = "https://archive-api.open-meteo.com/v1/archive"
)

// DefaultStartHour is the local hour used as race start when reading hourly data.
const DefaultStartHour = 8

// OpenMeteo is a Provider backed by the Open-Meteo geocoding and archive APIs.
type OpenMeteo struct {
	GeocodeURL string
	ArchiveURL string
	StartHour  int
	Options    *fetch.Options
}

// NewOpenMeteo returns a provider using the public Open-Meteo endpoints.
func NewOpenMeteo() *OpenMeteo {
	return &OpenMeteo{
		GeocodeURL: DefaultGeocodeURL,
		ArchiveURL: DefaultArchiveURL,
		StartHour:  DefaultStartHour,
		Options:    fetch.DefaultOptions(),
	}
}

type geocodeResponse struct {
	Results []struct {
		Name      string  `json:"name"`
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
		Admin1    string  `json:"admin1"`
		Country   string  `json:"country_code"`
	} `json:"results"`
}

type archiveResponse struct {
	Hourly struct {
		Time        []string   `json:"time"`
		Temperature []*float64 `json:"temperature_2m"`
		WeatherCode []*int     `json:"weather_code"`
	} `json:"hourly"`
}

// HistoricalWeather geocodes the location and reads the hourly archive for the race date.
func (p *OpenMeteo) HistoricalWeather(ctx context.Context, date time.Time, location string) (*Observation, error) {
	city := cityName(location)
	if city == "" {
		return nil, nil
	}

	var geo geocodeResponse
	geoURL := p.GeocodeURL + "?" + url.Values{
		"name":     {city},
		"count":    {"1"},
		"language": {"en"},
		"format":   {"json"},
	}.Encode()
	if err := fetch.JSON(ctx, geoURL, p.Options, &geo); err != nil {
		return nil, &Error{Message: fmt.Sprintf("failed to geocode %q", location), Cause: err}
	}
	if len(geo.Results) == 0 {
		return nil, nil
	}
	place := geo.Results[0]

	day := date.Format("2006-01-02")
	var archive archiveResponse
	archiveURL := p.ArchiveURL + "?" + url.Values{
		"latitude":         {fmt.Sprintf("%.4f", place.Latitude)},
		"longitude":        {fmt.Sprintf("%.4f", place.Longitude)},
		"start_date":       {day},
		"end_date":         {day},
		"hourly":           {"temperature_2m,weather_code"},
		"temperature_unit": {"fahrenheit"},
		"timezone":         {"auto"},
	}.Encode()
	if err := fetch.JSON(ctx, archiveURL, p.Options, &archive); err != nil {
		return nil, &Error{Message: fmt.Sprintf("failed to read weather archive for %s on %s", location, day), Cause: err}
	}

	i := hourIndex(archive.Hourly.Time, p.StartHour)
	if i < 0 || i >= len(archive.Hourly.Temperature) {
		return nil, nil
	}

	obs := &Observation{TempF: archive.Hourly.Temperature[i]}
	if i < len(archive.Hourly.WeatherCode) && archive.Hourly.WeatherCode[i] != nil {
		obs.Condition = Condition(*archive.Hourly.WeatherCode[i])
	}
	if obs.TempF == nil && obs.Condition == "" {
		return nil, nil
	}
	return obs, nil
}

// cityName keeps the part of a location before the first comma ("Chicago, IL" -> "Chicago").
func cityName(location string) string {
	city, _, _ := strings.Cut(location, ",")
	return strings.TrimSpace(city)
}

// hourIndex finds the entry for the given local hour in Open-Meteo "2006-01-02T15:04" timestamps.
func hourIndex(times []string, hour int) int {
	suffix := fmt.Sprintf("T%02d:00", hour)
	for i, ts := range times {
		if strings.HasSuffix(ts, suffix) {
			return i
		}
	}
	return -1
}

// Condition maps a WMO weather interpretation code to a short description.
func Condition(code int) string {
	switch {
	case code == 0:
		return "Clear"
	case code == 1:
		return "Mainly clear"
	case code == 2:
		return "Partly cloudy"
	case code == 3:
		return "Overcast"
	case code == 45 || code == 48:
		return "Fog"
	case code >= 51 && code <= 57:
		return "Drizzle"
	case code >= 61 && code <= 67:
		return "Rain"
	case code >= 71 && code <= 77:
		return "Snow"
	case code >= 80 && code <= 82:
		return "Rain showers"
	case code == 85 || code == 86:
		return "Snow showers"
	case code >= 95 && code <= 99:
		return "Thunderstorm"
	default:
		return ""
	}
}
