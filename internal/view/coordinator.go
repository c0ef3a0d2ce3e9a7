package view

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/pmorvan/tregorweather/internal/forecast"
	"github.com/pmorvan/tregorweather/internal/markers"
)

// minActivityScore is the cutoff below which the activity filter drops a
// location from the visible set.
const minActivityScore = 40

// ErrNoDay is returned for a day index outside the forecast window.
var ErrNoDay = errors.New("day index outside forecast window")

// RenderSink receives the render sets the coordinator produces. The map
// rendering surface registers itself here; failures to render never feed
// back into data state.
type RenderSink func(markers.RenderSet)

// Coordinator mediates between the forecast store and the marker engine. It
// reacts to day selection, filter toggles and fresh data by recomputing the
// visible day's forecast set; zoom and pan settle events trigger pure
// re-renders without touching data content. Collaborators are injected
// explicitly, never reached through package globals.
type Coordinator struct {
	store  *forecast.Store
	engine *markers.Engine
	sink   RenderSink

	zoomDebounce *markers.ZoomDebouncer
	panThrottle  *markers.PanThrottle

	mu       sync.Mutex
	dayIndex int
	dryOnly  bool
	activity forecast.Activity
	zoom     float64
}

// NewCoordinator wires a coordinator to its collaborators. The initial zoom
// matches a whole-region view.
func NewCoordinator(store *forecast.Store, engine *markers.Engine, sink RenderSink) *Coordinator {
	c := &Coordinator{
		store:  store,
		engine: engine,
		sink:   sink,
		zoom:   9,
	}
	c.zoomDebounce = markers.NewZoomDebouncer(0, c.zoomSettled)
	c.panThrottle = markers.NewPanThrottle(0, c.panSettled)
	return c
}

// SelectDay switches the visible forecast day and refreshes markers.
func (c *Coordinator) SelectDay(index int) error {
	if index < 0 || index >= forecast.ForecastDays {
		return fmt.Errorf("%w: %d", ErrNoDay, index)
	}

	c.mu.Lock()
	c.dayIndex = index
	c.mu.Unlock()

	c.refresh()
	return nil
}

// SetDryOnly toggles the dry-weather filter and refreshes markers.
func (c *Coordinator) SetDryOnly(on bool) {
	c.mu.Lock()
	c.dryOnly = on
	c.mu.Unlock()

	c.refresh()
}

// SetActivity applies an activity suitability filter; the empty activity
// clears it.
func (c *Coordinator) SetActivity(a forecast.Activity) {
	c.mu.Lock()
	c.activity = a
	c.mu.Unlock()

	c.refresh()
}

// DataArrived signals that a fresh bundle replaced the previous one. Cached
// render sets are stale at that point.
func (c *Coordinator) DataArrived() {
	c.engine.InvalidateCache()
	c.refresh()
}

// ZoomStart forwards a zoom-gesture start to the debouncer.
func (c *Coordinator) ZoomStart() {
	c.zoomDebounce.ZoomStart()
}

// ZoomEnd forwards a candidate settled zoom level to the debouncer.
func (c *Coordinator) ZoomEnd(zoom float64) {
	c.zoomDebounce.ZoomEnd(zoom)
}

// PanMoved forwards a map move-end event to the throttle.
func (c *Coordinator) PanMoved() {
	c.panThrottle.Notify()
}

// Close stops the debounce timers.
func (c *Coordinator) Close() {
	c.zoomDebounce.Stop()
}

func (c *Coordinator) zoomSettled(zoom float64) {
	c.mu.Lock()
	c.zoom = zoom
	c.mu.Unlock()

	if _, changed := c.engine.ApplyZoom(zoom); changed {
		log.Printf("DEBUG: cluster radius reconfigured for zoom %.1f", zoom)
	}
	c.refresh()
}

func (c *Coordinator) panSettled() {
	// Pan changes the viewport, not the data; a pure re-render suffices.
	c.refresh()
}

// FilteredDay resolves one day of the current bundle with the given filters.
// The dry filter excludes any location with nonzero precipitation; the
// activity filter excludes locations scoring below the cutoff.
func (c *Coordinator) FilteredDay(dayIndex int, dryOnly bool, activity forecast.Activity) (forecast.DayForecast, error) {
	if dayIndex < 0 || dayIndex >= forecast.ForecastDays {
		return nil, fmt.Errorf("%w: %d", ErrNoDay, dayIndex)
	}

	bundle, err := c.store.Current()
	if err != nil {
		return nil, err
	}

	day := bundle.Days[dayIndex]
	if !dryOnly && activity == "" {
		return day, nil
	}

	filtered := make(forecast.DayForecast, 0, len(day))
	for _, lf := range day {
		if dryOnly && lf.Available && lf.PrecipMM > 0 {
			continue
		}
		if activity != "" && lf.ActivityScore(activity) < minActivityScore {
			continue
		}
		filtered = append(filtered, lf)
	}
	return filtered, nil
}

// refresh recomputes the visible day and pushes a render set to the sink.
// Filter state is snapshotted once so the day content and the render-cache
// key always describe the same selection, even under concurrent toggles.
// Failures produce a log line, never a crash: a broken fetch must leave the
// rest of the interface usable.
func (c *Coordinator) refresh() {
	c.mu.Lock()
	opts := markers.Options{
		Zoom:     c.zoom,
		Day:      c.dayIndex,
		DryOnly:  c.dryOnly,
		Activity: c.activity,
	}
	c.mu.Unlock()

	day, err := c.FilteredDay(opts.Day, opts.DryOnly, opts.Activity)
	if err != nil {
		log.Printf("refresh skipped: %v", err)
		return
	}

	rs := c.engine.BuildRenderSet(day, opts)
	if c.sink != nil {
		c.sink(rs)
	}
}

// StatusLine renders a short human-readable summary of where the current
// data came from and how complete it is.
func (c *Coordinator) StatusLine() string {
	bundle, err := c.store.Current()
	if err != nil {
		return "servers unreachable, no data available"
	}

	age := bundle.Age(time.Now()).Round(time.Minute)
	switch bundle.Source {
	case forecast.TierCacheOffline:
		return fmt.Sprintf("offline, showing cached data of age %s", age)
	case forecast.TierCacheStale:
		return fmt.Sprintf("servers unreachable, showing cached data of age %s", age)
	default:
		if bundle.SuccessRatio < 1 {
			total := 0
			unavailable := 0
			for _, lf := range bundle.Days[0] {
				total++
				if !lf.Available {
					unavailable++
				}
			}
			return fmt.Sprintf("%d of %d locations could not be retrieved", unavailable, total)
		}
		return fmt.Sprintf("live data, updated %s ago", age)
	}
}
