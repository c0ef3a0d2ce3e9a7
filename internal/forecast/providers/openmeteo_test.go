package providers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/pmorvan/tregorweather/internal/forecast"
	"github.com/pmorvan/tregorweather/internal/region"
)

const goodPayload = `{
	"daily": {
		"time": ["2026-08-28","2026-08-29"],
		"temperature_2m_max": [19.4, 21.0],
		"temperature_2m_min": [12.1, 13.2],
		"precipitation_sum": [0.0, 3.6],
		"precipitation_probability_max": [5, 70],
		"windspeed_10m_max": [22.3, 31.0],
		"windgusts_10m_max": [40.1, 55.2],
		"uv_index_max": [6.2, 4.1],
		"weathercode": [1, 61],
		"sunrise": ["2026-08-28T07:12","2026-08-29T07:13"],
		"sunset": ["2026-08-28T20:48","2026-08-29T20:46"]
	}
}`

func testProvider(serverURL string) *OpenMeteoProvider {
	p := NewOpenMeteoProvider(&http.Client{})
	p.baseURL = serverURL
	return p
}

func TestFetchDailyParsesSeries(t *testing.T) {
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Write([]byte(goodPayload))
	}))
	defer server.Close()

	p := testProvider(server.URL)
	city := region.City{Name: "Lannion", Lat: 48.7326, Lon: -3.4590}

	readings, err := p.FetchDaily(context.Background(), city, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(readings) != 2 {
		t.Fatalf("expected 2 readings, got %d", len(readings))
	}

	first := readings[0]
	if first.TempMaxC != 19.4 || first.TempMinC != 12.1 {
		t.Errorf("unexpected temperatures: %+v", first)
	}
	if first.Code != forecast.CodeMainlyClear {
		t.Errorf("unexpected weather code: %v", first.Code)
	}
	if first.Sunrise.IsZero() || first.Sunset.IsZero() {
		t.Error("sunrise/sunset not parsed")
	}

	second := readings[1]
	if second.PrecipMM != 3.6 || second.PrecipProb != 70 {
		t.Errorf("unexpected precipitation: %+v", second)
	}

	if !strings.Contains(gotQuery, "forecast_days=2") {
		t.Errorf("request missing forecast_days: %s", gotQuery)
	}
	if !strings.Contains(gotQuery, "timezone=Europe%2FParis") {
		t.Errorf("request missing timezone: %s", gotQuery)
	}
}

// TestFetchDailyRejectsMismatchedSeries covers the parallel-array check: a
// series shorter than the others fails this location.
func TestFetchDailyRejectsMismatchedSeries(t *testing.T) {
	broken := strings.Replace(goodPayload,
		`"temperature_2m_min": [12.1, 13.2]`,
		`"temperature_2m_min": [12.1]`, 1)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(broken))
	}))
	defer server.Close()

	p := testProvider(server.URL)
	_, err := p.FetchDaily(context.Background(), region.City{Name: "Lannion"}, 2)
	if err == nil {
		t.Fatal("expected a validation error for mismatched series lengths")
	}
	if !strings.Contains(err.Error(), "temperature_2m_min") {
		t.Errorf("error should name the offending series: %v", err)
	}
}

func TestFetchDailyRejectsMissingSeries(t *testing.T) {
	broken := strings.Replace(goodPayload,
		`"uv_index_max": [6.2, 4.1],`, "", 1)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(broken))
	}))
	defer server.Close()

	p := testProvider(server.URL)
	if _, err := p.FetchDaily(context.Background(), region.City{Name: "Lannion"}, 2); err == nil {
		t.Fatal("expected a validation error for a missing series")
	}
}

func TestFetchDailyRejectsTooFewDays(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(goodPayload))
	}))
	defer server.Close()

	p := testProvider(server.URL)
	if _, err := p.FetchDaily(context.Background(), region.City{Name: "Lannion"}, 7); err == nil {
		t.Fatal("expected an error when fewer days than requested are returned")
	}
}

// TestFetchDailyRetriesServerErrors covers the transient-failure path: a 5xx
// response is retried and the next attempt can still succeed.
func TestFetchDailyRetriesServerErrors(t *testing.T) {
	var requests int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if requests == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(goodPayload))
	}))
	defer server.Close()

	p := testProvider(server.URL)
	p.rc.retry.initialInterval = 5 * time.Millisecond

	readings, err := p.FetchDaily(context.Background(), region.City{Name: "Lannion"}, 2)
	if err != nil {
		t.Fatalf("unexpected error after retry: %v", err)
	}
	if len(readings) != 2 {
		t.Fatalf("expected 2 readings, got %d", len(readings))
	}
	if requests != 2 {
		t.Errorf("expected 2 requests (one retry), got %d", requests)
	}
}

// TestFetchDailyDoesNotRetryRejections covers the classification: a 4xx
// rejection is final and must not be retried.
func TestFetchDailyDoesNotRetryRejections(t *testing.T) {
	var requests int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	p := testProvider(server.URL)
	p.rc.retry.initialInterval = 5 * time.Millisecond

	_, err := p.FetchDaily(context.Background(), region.City{Name: "Lannion"}, 2)
	if !errors.Is(err, errUpstreamRefused) {
		t.Fatalf("expected an upstream rejection error, got %v", err)
	}
	if requests != 1 {
		t.Errorf("expected exactly 1 request for a rejection, got %d", requests)
	}
}
