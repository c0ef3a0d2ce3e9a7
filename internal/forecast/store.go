package forecast

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/pmorvan/tregorweather/internal/docstore"
	"github.com/pmorvan/tregorweather/internal/region"
)

const bundleKey = "weather:bundle"

// Regional plausibility bounds used to sanity-check cached bundles before
// accepting them as a fallback.
const (
	minPlausibleTempC = -15.0
	maxPlausibleTempC = 45.0
)

var (
	// ErrNoOfflineData is returned when the runtime is offline and no cache
	// entry younger than the maximum age exists.
	ErrNoOfflineData = errors.New("offline and no usable cached data")

	// ErrAllLocationsFailed is returned when every requested location failed
	// and no usable cache entry could take its place.
	ErrAllLocationsFailed = errors.New("all locations failed and no usable cached data")
)

// Options tunes the store's timeout and caching behaviour.
type Options struct {
	// PerLocationTimeout bounds a single city's fetch.
	PerLocationTimeout time.Duration
	// BatchTimeout bounds the whole batch; when shorter it always wins.
	BatchTimeout time.Duration
	// CacheMaxAge is the oldest a cached bundle may be and still serve as a
	// fallback. Older entries are treated as absent.
	CacheMaxAge time.Duration
	// Offline reports whether the runtime has network connectivity. When it
	// returns true the store skips network entirely. Nil means always online.
	Offline func() bool
}

func (o *Options) applyDefaults() {
	if o.PerLocationTimeout <= 0 {
		o.PerLocationTimeout = 8 * time.Second
	}
	if o.BatchTimeout <= 0 {
		o.BatchTimeout = 12 * time.Second
	}
	if o.CacheMaxAge <= 0 {
		o.CacheMaxAge = 24 * time.Hour
	}
}

// Store fetches, validates, caches and serves forecast bundles. It degrades
// through tiers: fresh network data, then an acceptable cached bundle, then
// failure. The store owns its bundles exclusively and hands out pointers the
// callers must treat as read-only.
type Store struct {
	provider Provider
	docs     *docstore.Store
	opts     Options

	mu        sync.Mutex
	current   *Bundle
	attempted int
	succeeded int
}

// NewStore creates a Store around a provider and a document store.
func NewStore(provider Provider, docs *docstore.Store, opts Options) *Store {
	opts.applyDefaults()
	return &Store{
		provider: provider,
		docs:     docs,
		opts:     opts,
	}
}

// FetchForecast resolves a bundle for the given cities. It fails only when
// neither network nor cache can produce data.
func (s *Store) FetchForecast(ctx context.Context, cities []region.City) (*Bundle, error) {
	if s.offline() {
		log.Printf("INFO: offline, skipping network fetch for %d locations", len(cities))
		bundle, err := s.loadCache(TierCacheOffline)
		if err != nil {
			return nil, ErrNoOfflineData
		}
		s.setCurrent(bundle)
		return bundle, nil
	}

	bundle, err := s.fetchNetwork(ctx, cities)
	if err != nil {
		log.Printf("network fetch failed: %v; trying cached bundle", err)
		cached, cacheErr := s.loadCache(TierCacheStale)
		if cacheErr != nil {
			return nil, fmt.Errorf("%w: %v", ErrAllLocationsFailed, err)
		}
		s.setCurrent(cached)
		return cached, nil
	}

	if err := s.persist(bundle); err != nil {
		// A failed cache write degrades future fallbacks but not this fetch.
		log.Printf("failed to persist forecast bundle: %v", err)
	}
	s.setCurrent(bundle)
	return bundle, nil
}

// Refresh fetches the full catalog. Intended for the periodic scheduler.
func (s *Store) Refresh(ctx context.Context) error {
	_, err := s.FetchForecast(ctx, region.Catalog())
	return err
}

// Current returns the most recently resolved bundle, falling back to the
// cached one when nothing has been fetched this session yet.
func (s *Store) Current() (*Bundle, error) {
	s.mu.Lock()
	cur := s.current
	s.mu.Unlock()
	if cur != nil {
		return cur, nil
	}

	bundle, err := s.loadCache(TierCacheOffline)
	if err != nil {
		return nil, err
	}
	s.setCurrent(bundle)
	return bundle, nil
}

// Reliability reports the session's rolling per-location fetch statistics.
// Diagnostic only; it never gates behaviour.
func (s *Store) Reliability() (succeeded, attempted int, ratio float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.attempted == 0 {
		return 0, 0, 0
	}
	return s.succeeded, s.attempted, float64(s.succeeded) / float64(s.attempted)
}

func (s *Store) offline() bool {
	return s.opts.Offline != nil && s.opts.Offline()
}

func (s *Store) setCurrent(b *Bundle) {
	s.mu.Lock()
	s.current = b
	s.mu.Unlock()
}

// fetchNetwork fans out one provider call per city, bounded by both the
// per-location and the batch timeout, and reassembles results into the
// original request order regardless of completion order.
func (s *Store) fetchNetwork(ctx context.Context, cities []region.City) (*Bundle, error) {
	batchCtx, cancel := context.WithTimeout(ctx, s.opts.BatchTimeout)
	defer cancel()

	type result struct {
		readings []DailyReading
		err      error
	}
	results := make([]result, len(cities))

	var wg sync.WaitGroup
	for i, city := range cities {
		i, city := i, city
		wg.Add(1)
		go func() {
			defer wg.Done()

			locCtx, locCancel := context.WithTimeout(batchCtx, s.opts.PerLocationTimeout)
			defer locCancel()

			readings, err := s.provider.FetchDaily(locCtx, city, ForecastDays)
			results[i] = result{readings: readings, err: err}
		}()
	}
	wg.Wait()

	succeeded := 0
	for i, r := range results {
		if r.err != nil {
			log.Printf("location %s fetch failed: %v", cities[i].Name, r.err)
			continue
		}
		succeeded++
	}

	s.mu.Lock()
	s.attempted += len(cities)
	s.succeeded += succeeded
	s.mu.Unlock()

	if succeeded == 0 {
		return nil, fmt.Errorf("no location succeeded out of %d", len(cities))
	}

	// Assemble the bundle: failed cities become unavailable placeholders so
	// every day keeps exactly one entry per requested city, in request order.
	bundle := &Bundle{
		FetchedAt:    time.Now().UTC(),
		Source:       TierNetwork,
		SuccessRatio: float64(succeeded) / float64(len(cities)),
	}
	for d := 0; d < ForecastDays; d++ {
		day := make(DayForecast, 0, len(cities))
		for i, city := range cities {
			lf := LocationForecast{
				Name:       city.Name,
				Lat:        city.Lat,
				Lon:        city.Lon,
				Importance: region.ClassifyImportance(city),
			}
			if r := results[i]; r.err != nil {
				lf.FailureReason = r.err.Error()
			} else {
				reading := r.readings[d]
				lf.Available = true
				lf.TempMaxC = reading.TempMaxC
				lf.TempMinC = reading.TempMinC
				lf.PrecipMM = reading.PrecipMM
				lf.PrecipProb = reading.PrecipProb
				lf.WindKmh = reading.WindKmh
				lf.GustKmh = reading.GustKmh
				lf.UVIndex = reading.UVIndex
				lf.Code = reading.Code
				lf.Sunrise = reading.Sunrise
				lf.Sunset = reading.Sunset
			}
			day = append(day, lf)
		}
		bundle.Days[d] = day
	}

	return bundle, nil
}

func (s *Store) persist(b *Bundle) error {
	data, err := json.Marshal(b)
	if err != nil {
		return err
	}
	return s.docs.Put(bundleKey, data)
}

// loadCache reads the persisted bundle and accepts it only when it passes
// age and sanity checks. The tier parameter is purely a label: offline and
// online-but-failed fallbacks share one code path.
func (s *Store) loadCache(tier Tier) (*Bundle, error) {
	data, writtenAt, err := s.docs.Get(bundleKey)
	if err != nil {
		return nil, err
	}

	if age := time.Since(writtenAt); age > s.opts.CacheMaxAge {
		return nil, fmt.Errorf("cached bundle is %s old, max age %s", age.Round(time.Minute), s.opts.CacheMaxAge)
	}

	var bundle Bundle
	if err := json.Unmarshal(data, &bundle); err != nil {
		if qErr := s.docs.Quarantine(bundleKey); qErr != nil {
			log.Printf("failed to quarantine corrupt bundle: %v", qErr)
		}
		return nil, fmt.Errorf("corrupt cached bundle: %w", err)
	}

	if err := sanityCheck(&bundle); err != nil {
		return nil, fmt.Errorf("cached bundle failed sanity check: %w", err)
	}

	bundle.Source = tier
	return &bundle, nil
}

// sanityCheck rejects cached bundles with implausible shapes or values.
func sanityCheck(b *Bundle) error {
	for d, day := range b.Days {
		if len(day) == 0 {
			return fmt.Errorf("day %d has no entries", d)
		}
		for _, lf := range day {
			if !lf.Available {
				continue
			}
			if lf.TempMinC > lf.TempMaxC {
				return fmt.Errorf("%s day %d: min %.1f above max %.1f", lf.Name, d, lf.TempMinC, lf.TempMaxC)
			}
			if lf.TempMaxC < minPlausibleTempC || lf.TempMaxC > maxPlausibleTempC ||
				lf.TempMinC < minPlausibleTempC || lf.TempMinC > maxPlausibleTempC {
				return fmt.Errorf("%s day %d: temperature outside plausible range", lf.Name, d)
			}
		}
	}
	return nil
}
