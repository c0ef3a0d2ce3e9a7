package markers

import (
	"log"
	"sync"
	"time"
)

// DefaultZoomDebounce coalesces rapid zoom-end events so only the settled
// zoom level triggers a re-render.
const DefaultZoomDebounce = 100 * time.Millisecond

// DefaultPanThrottle governs move-end events, which fire far more often than
// zoom changes and only need a refresh, not a recompute.
const DefaultPanThrottle = 250 * time.Millisecond

// ZoomDebouncer coalesces zoom events: rapid ZoomEnd calls reset a short
// timer and only the final settled level is handed to the callback. A
// settled level equal to the last processed one is dropped entirely.
type ZoomDebouncer struct {
	delay     time.Duration
	onSettled func(zoom float64)

	mu            sync.Mutex
	timer         *time.Timer
	startedAt     time.Time
	pendingZoom   float64
	lastProcessed float64
	hasProcessed  bool
}

// NewZoomDebouncer creates a debouncer firing onSettled after delay of zoom
// quiet. A delay of zero uses the default.
func NewZoomDebouncer(delay time.Duration, onSettled func(zoom float64)) *ZoomDebouncer {
	if delay <= 0 {
		delay = DefaultZoomDebounce
	}
	return &ZoomDebouncer{delay: delay, onSettled: onSettled}
}

// ZoomStart records the start of a zoom gesture for performance tracing.
func (d *ZoomDebouncer) ZoomStart() {
	d.mu.Lock()
	d.startedAt = time.Now()
	d.mu.Unlock()
}

// ZoomEnd registers a candidate settled zoom level. Rapid successive calls
// are coalesced; only the last one within the debounce window fires.
func (d *ZoomDebouncer) ZoomEnd(zoom float64) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.pendingZoom = zoom
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, d.fire)
}

func (d *ZoomDebouncer) fire() {
	d.mu.Lock()
	zoom := d.pendingZoom
	if d.hasProcessed && zoom == d.lastProcessed {
		// Settled on the level we already rendered; nothing to do.
		d.mu.Unlock()
		return
	}
	d.lastProcessed = zoom
	d.hasProcessed = true
	startedAt := d.startedAt
	d.startedAt = time.Time{}
	d.mu.Unlock()

	if !startedAt.IsZero() {
		log.Printf("DEBUG: zoom settled at %.1f after %s", zoom, time.Since(startedAt).Round(time.Millisecond))
	}
	d.onSettled(zoom)
}

// Stop cancels any pending settle. Safe to call multiple times.
func (d *ZoomDebouncer) Stop() {
	d.mu.Lock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.mu.Unlock()
}

// PanThrottle limits how often pan (move-end) events propagate. Unlike the
// zoom debouncer it fires on the leading edge: the first event in a window
// passes, later ones inside the interval are dropped.
type PanThrottle struct {
	interval time.Duration
	onPan    func()

	mu       sync.Mutex
	lastFire time.Time
}

// NewPanThrottle creates a throttle with the given minimum interval. An
// interval of zero uses the default.
func NewPanThrottle(interval time.Duration, onPan func()) *PanThrottle {
	if interval <= 0 {
		interval = DefaultPanThrottle
	}
	return &PanThrottle{interval: interval, onPan: onPan}
}

// Notify registers a pan event, invoking the callback if the interval has
// elapsed since the last accepted event.
func (t *PanThrottle) Notify() {
	t.mu.Lock()
	if time.Since(t.lastFire) < t.interval {
		t.mu.Unlock()
		return
	}
	t.lastFire = time.Now()
	t.mu.Unlock()

	t.onPan()
}
