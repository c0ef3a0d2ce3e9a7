package view

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pmorvan/tregorweather/internal/docstore"
	"github.com/pmorvan/tregorweather/internal/forecast"
	"github.com/pmorvan/tregorweather/internal/markers"
	"github.com/pmorvan/tregorweather/internal/region"
)

// scriptedProvider returns weather shaped by city name so filters have
// something to bite on.
type scriptedProvider struct {
	rainy  map[string]bool
	stormy map[string]bool
	fail   map[string]bool
}

func (p *scriptedProvider) Name() string { return "scripted" }

func (p *scriptedProvider) FetchDaily(ctx context.Context, city region.City, days int) ([]forecast.DailyReading, error) {
	if p.fail[city.Name] {
		return nil, errors.New("upstream unavailable")
	}

	base := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)
	readings := make([]forecast.DailyReading, days)
	for i := range readings {
		r := forecast.DailyReading{
			Date:     base.AddDate(0, 0, i),
			TempMaxC: 20,
			TempMinC: 13,
			WindKmh:  15,
			Code:     forecast.CodeMainlyClear,
		}
		if p.rainy[city.Name] {
			r.PrecipMM = 6
			r.PrecipProb = 85
			r.Code = forecast.CodeRainModerate
		}
		if p.stormy[city.Name] {
			r.PrecipMM = 14
			r.PrecipProb = 95
			r.WindKmh = 70
			r.GustKmh = 95
			r.TempMaxC = 11
			r.Code = forecast.CodeThunderstorm
		}
		readings[i] = r
	}
	return readings, nil
}

func seededCoordinator(t *testing.T, provider forecast.Provider, sink RenderSink) (*Coordinator, *forecast.Store) {
	t.Helper()

	docs, err := docstore.Open(":memory:")
	if err != nil {
		t.Fatalf("failed to open document store: %v", err)
	}
	t.Cleanup(func() { docs.Close() })

	store := forecast.NewStore(provider, docs, forecast.Options{})
	if _, err := store.FetchForecast(context.Background(), region.Catalog()); err != nil {
		t.Fatalf("seed fetch failed: %v", err)
	}

	c := NewCoordinator(store, markers.NewEngine(markers.Profile{}), sink)
	t.Cleanup(c.Close)
	return c, store
}

func TestFilteredDayDryFilter(t *testing.T) {
	c, _ := seededCoordinator(t, &scriptedProvider{rainy: map[string]bool{"Paimpol": true, "Morlaix": true}}, nil)

	day, err := c.FilteredDay(0, true, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, lf := range day {
		if lf.Name == "Paimpol" || lf.Name == "Morlaix" {
			t.Errorf("dry filter kept rainy %s", lf.Name)
		}
	}
	if len(day) != len(region.Catalog())-2 {
		t.Fatalf("expected %d dry locations, got %d", len(region.Catalog())-2, len(day))
	}
}

func TestFilteredDayKeepsUnavailableUnderDryFilter(t *testing.T) {
	c, _ := seededCoordinator(t, &scriptedProvider{fail: map[string]bool{"Pontrieux": true}}, nil)

	day, err := c.FilteredDay(0, true, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	found := false
	for _, lf := range day {
		if lf.Name == "Pontrieux" {
			found = true
		}
	}
	if !found {
		t.Error("placeholder for an unavailable city should survive the dry filter")
	}
}

func TestFilteredDayActivityFilter(t *testing.T) {
	c, _ := seededCoordinator(t, &scriptedProvider{stormy: map[string]bool{"Lannion": true}}, nil)

	day, err := c.FilteredDay(0, false, forecast.ActivityHiking)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, lf := range day {
		if lf.Name == "Lannion" {
			t.Error("activity filter kept a location with storm conditions")
		}
	}
}

func TestFilteredDayRejectsBadIndex(t *testing.T) {
	c, _ := seededCoordinator(t, &scriptedProvider{}, nil)

	if _, err := c.FilteredDay(7, false, ""); !errors.Is(err, ErrNoDay) {
		t.Fatalf("expected ErrNoDay, got %v", err)
	}
	if _, err := c.FilteredDay(-1, false, ""); !errors.Is(err, ErrNoDay) {
		t.Fatalf("expected ErrNoDay, got %v", err)
	}
}

func TestSelectDayPushesRenderSet(t *testing.T) {
	var mu sync.Mutex
	var got []markers.RenderSet
	sink := func(rs markers.RenderSet) {
		mu.Lock()
		got = append(got, rs)
		mu.Unlock()
	}

	c, _ := seededCoordinator(t, &scriptedProvider{}, sink)

	if err := c.SelectDay(2); err != nil {
		t.Fatalf("select day failed: %v", err)
	}

	if err := c.SelectDay(9); !errors.Is(err, ErrNoDay) {
		t.Fatalf("expected ErrNoDay for index 9, got %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 1 {
		t.Fatalf("expected one render set, got %d", len(got))
	}
	if len(got[0].Markers) == 0 {
		t.Error("render set should carry markers")
	}
}

// TestSetActivityRecomputesRenderSet verifies the activity toggle reaches
// the rendered markers even when the same (zoom, day, dry) combination was
// rendered before: locations failing the activity cutoff must drop out of
// the second delivery instead of riding a cached set.
func TestSetActivityRecomputesRenderSet(t *testing.T) {
	var mu sync.Mutex
	var got []markers.RenderSet
	sink := func(rs markers.RenderSet) {
		mu.Lock()
		got = append(got, rs)
		mu.Unlock()
	}

	c, _ := seededCoordinator(t, &scriptedProvider{stormy: map[string]bool{"Lannion": true}}, sink)

	if err := c.SelectDay(0); err != nil {
		t.Fatalf("select day failed: %v", err)
	}
	c.SetActivity(forecast.ActivityHiking)

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 2 {
		t.Fatalf("expected two render sets, got %d", len(got))
	}

	containsLannion := func(rs markers.RenderSet) bool {
		for _, m := range rs.Markers {
			if m.Name == "Lannion" {
				return true
			}
		}
		return false
	}

	if !containsLannion(got[0]) {
		t.Fatal("unfiltered render set should contain Lannion")
	}
	if containsLannion(got[1]) {
		t.Fatal("activity-filtered render set still contains Lannion")
	}
	if len(got[1].Markers) >= len(got[0].Markers) {
		t.Fatalf("filtered set has %d markers, unfiltered had %d", len(got[1].Markers), len(got[0].Markers))
	}
}

func TestStatusLineVariants(t *testing.T) {
	// Full success.
	c, _ := seededCoordinator(t, &scriptedProvider{}, nil)
	if got := c.StatusLine(); !strings.Contains(got, "live data") {
		t.Errorf("unexpected status for live data: %q", got)
	}

	// Partial failure names the unavailable count.
	c, _ = seededCoordinator(t, &scriptedProvider{fail: map[string]bool{"Paimpol": true, "Morlaix": true}}, nil)
	if got := c.StatusLine(); !strings.Contains(got, "2 of 15 locations") {
		t.Errorf("unexpected status for partial failure: %q", got)
	}
}

func TestStatusLineOffline(t *testing.T) {
	docs, err := docstore.Open(":memory:")
	if err != nil {
		t.Fatalf("failed to open document store: %v", err)
	}
	t.Cleanup(func() { docs.Close() })

	offline := false
	store := forecast.NewStore(&scriptedProvider{}, docs, forecast.Options{
		Offline: func() bool { return offline },
	})
	if _, err := store.FetchForecast(context.Background(), region.Catalog()); err != nil {
		t.Fatalf("seed fetch failed: %v", err)
	}

	offline = true
	if _, err := store.FetchForecast(context.Background(), region.Catalog()); err != nil {
		t.Fatalf("offline fetch failed: %v", err)
	}

	c := NewCoordinator(store, markers.NewEngine(markers.Profile{}), nil)
	t.Cleanup(c.Close)

	if got := c.StatusLine(); !strings.Contains(got, "offline, showing cached data of age") {
		t.Errorf("unexpected offline status: %q", got)
	}
}
