package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/pmorvan/tregorweather/internal/forecast"
	"github.com/pmorvan/tregorweather/internal/region"
)

// dailyPayload mirrors the Open-Meteo daily-forecast response: one parallel
// array per measurement series, one entry per forecast day.
type dailyPayload struct {
	Daily struct {
		Time          []string  `json:"time"`
		TempMax       []float64 `json:"temperature_2m_max"`
		TempMin       []float64 `json:"temperature_2m_min"`
		PrecipSum     []float64 `json:"precipitation_sum"`
		PrecipProbMax []float64 `json:"precipitation_probability_max"`
		WindSpeedMax  []float64 `json:"windspeed_10m_max"`
		WindGustsMax  []float64 `json:"windgusts_10m_max"`
		UVIndexMax    []float64 `json:"uv_index_max"`
		WeatherCode   []int     `json:"weathercode"`
		Sunrise       []string  `json:"sunrise"`
		Sunset        []string  `json:"sunset"`
	} `json:"daily"`
}

// OpenMeteoProvider implements the forecast.Provider interface for the
// Open-Meteo daily forecast endpoint. Open-Meteo needs no API key; a shared
// rate limiter keeps the per-city fan-out inside the API's request budget.
type OpenMeteoProvider struct {
	name     string
	baseURL  string
	timezone string
	rc       *resilientClient
	limiter  *rate.Limiter
}

func NewOpenMeteoProvider(client *http.Client) *OpenMeteoProvider {
	return &OpenMeteoProvider{
		name:     "openmeteo",
		baseURL:  "https://api.open-meteo.com/v1/forecast",
		timezone: "Europe/Paris",
		rc: newResilientClient("openmeteo", client, retryPolicy{
			maxRetries:      2,
			initialInterval: 500 * time.Millisecond,
			maxInterval:     5 * time.Second,
		}),
		limiter: rate.NewLimiter(rate.Limit(10), 15),
	}
}

func (p *OpenMeteoProvider) Name() string {
	return p.name
}

// FetchDaily fetches the daily series for one city and validates the
// parallel-array shape before converting it to normalized readings.
func (p *OpenMeteoProvider) FetchDaily(ctx context.Context, city region.City, days int) ([]forecast.DailyReading, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("latitude", fmt.Sprintf("%.4f", city.Lat))
		values.Set("longitude", fmt.Sprintf("%.4f", city.Lon))
		values.Set("forecast_days", fmt.Sprintf("%d", days))
		values.Set("timezone", p.timezone)
		values.Set("daily", "temperature_2m_max,temperature_2m_min,precipitation_sum,"+
			"precipitation_probability_max,windspeed_10m_max,windgusts_10m_max,"+
			"uv_index_max,weathercode,sunrise,sunset")

		u := fmt.Sprintf("%s?%s", p.baseURL, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := p.rc.do(ctx, buildRequest)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var payload dailyPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decoding response for %s: %w", city.Name, err)
	}

	return convertDaily(city, payload, days)
}

// convertDaily validates the payload shape and maps it to readings. All
// series must be present with equal lengths of at least days entries; any
// violation fails this city only.
func convertDaily(city region.City, payload dailyPayload, days int) ([]forecast.DailyReading, error) {
	d := payload.Daily

	series := map[string]int{
		"time":                          len(d.Time),
		"temperature_2m_max":            len(d.TempMax),
		"temperature_2m_min":            len(d.TempMin),
		"precipitation_sum":             len(d.PrecipSum),
		"precipitation_probability_max": len(d.PrecipProbMax),
		"windspeed_10m_max":             len(d.WindSpeedMax),
		"windgusts_10m_max":             len(d.WindGustsMax),
		"uv_index_max":                  len(d.UVIndexMax),
		"weathercode":                   len(d.WeatherCode),
		"sunrise":                       len(d.Sunrise),
		"sunset":                        len(d.Sunset),
	}
	for name, n := range series {
		if n == 0 {
			return nil, fmt.Errorf("%s: missing daily series %q", city.Name, name)
		}
		if n != len(d.Time) {
			return nil, fmt.Errorf("%s: daily series %q has %d entries, want %d",
				city.Name, name, n, len(d.Time))
		}
	}
	if len(d.Time) < days {
		return nil, fmt.Errorf("%s: got %d forecast days, want %d", city.Name, len(d.Time), days)
	}

	readings := make([]forecast.DailyReading, 0, days)
	for i := 0; i < days; i++ {
		date, err := time.Parse("2006-01-02", d.Time[i])
		if err != nil {
			return nil, fmt.Errorf("%s: invalid date %q: %w", city.Name, d.Time[i], err)
		}

		readings = append(readings, forecast.DailyReading{
			Date:       date,
			TempMaxC:   d.TempMax[i],
			TempMinC:   d.TempMin[i],
			PrecipMM:   d.PrecipSum[i],
			PrecipProb: d.PrecipProbMax[i],
			WindKmh:    d.WindSpeedMax[i],
			GustKmh:    d.WindGustsMax[i],
			UVIndex:    d.UVIndexMax[i],
			Code:       forecast.WeatherCode(d.WeatherCode[i]),
			Sunrise:    parseLocalTime(d.Sunrise[i]),
			Sunset:     parseLocalTime(d.Sunset[i]),
		})
	}

	return readings, nil
}

// parseLocalTime parses Open-Meteo's "2006-01-02T15:04" local timestamps.
// A malformed value yields the zero time rather than failing the city.
func parseLocalTime(s string) time.Time {
	ts, err := time.Parse("2006-01-02T15:04", s)
	if err != nil {
		return time.Time{}
	}
	return ts
}
