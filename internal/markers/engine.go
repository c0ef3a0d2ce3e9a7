package markers

import (
	"sync"

	"github.com/pmorvan/tregorweather/internal/forecast"
	"github.com/pmorvan/tregorweather/internal/region"
)

// Size is a marker's rendered footprint class.
type Size string

const (
	SizeSmall  Size = "small"
	SizeMedium Size = "medium"
	SizeLarge  Size = "large"
)

// Pixels returns the square footprint for a size class.
func (s Size) Pixels() int {
	switch s {
	case SizeMedium:
		return 34
	case SizeLarge:
		return 44
	default:
		return 24
	}
}

// Zoom bands for the three step functions. Wider view at lower zoom.
const (
	zoomVeryFar = 8.0
	zoomFar     = 10.0
	zoomMid     = 12.0
	zoomNear    = 14.0

	// Visibility thresholds: below highOnlyZoom only high-importance cities
	// show; below highMediumZoom high and medium show; above that all show.
	highOnlyZoom   = 8.5
	highMediumZoom = 10.5
)

// radiusChangeThreshold suppresses clustering-layer updates on sub-pixel
// zoom changes.
const radiusChangeThreshold = 5

// mobileRadiusScale makes clustering more aggressive on narrow touch
// viewports.
const mobileRadiusScale = 1.5

// dimmedOpacity is applied on mobile to markers that a desktop view would
// hide outright when zoomed far out.
const dimmedOpacity = 0.45

// ClusterRadius is the clustering radius in pixels for a zoom level. Five
// discrete bands, monotonically non-increasing with zoom.
func ClusterRadius(zoom float64) int {
	switch {
	case zoom < zoomVeryFar:
		return 80
	case zoom < zoomFar:
		return 60
	case zoom < zoomMid:
		return 40
	case zoom < zoomNear:
		return 20
	default:
		return 0
	}
}

// ShouldShowMarker reports whether a location of the given importance tier
// is visible at a zoom level. Pure function of its two arguments; an
// unclassified tier is visible everywhere.
func ShouldShowMarker(tier region.ImportanceTier, zoom float64) bool {
	switch tier {
	case region.TierHigh, region.TierUnclassified:
		return true
	case region.TierMedium:
		return zoom > highOnlyZoom
	default:
		return zoom > highMediumZoom
	}
}

// MarkerSize is the size class for a zoom level, monotonically non-decreasing
// with zoom.
func MarkerSize(zoom float64) Size {
	switch {
	case zoom < zoomFar:
		return SizeSmall
	case zoom < zoomMid+1:
		return SizeMedium
	default:
		return SizeLarge
	}
}

// Profile describes the rendering surface the engine is driving.
type Profile struct {
	// Mobile marks a touch-capable narrow viewport: clustering is scaled up
	// and low-importance markers are dimmed rather than hidden far out.
	Mobile bool
}

// Options select what BuildRenderSet computes. Every field that shapes the
// day content handed in (day index, filters) must be part of Options so the
// render cache can key on it; a cache hit must never change what renders.
type Options struct {
	Zoom     float64
	Day      int
	DryOnly  bool
	Activity forecast.Activity
}

// Marker is one renderable map marker.
type Marker struct {
	Name    string  `json:"name"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	Icon    string  `json:"icon"`
	SizePx  int     `json:"sizePx"`
	Opacity float64 `json:"opacity"`
}

// RenderSet is the engine's output: the markers to draw and the clustering
// radius to apply to the whole set.
type RenderSet struct {
	Markers       []Marker `json:"markers"`
	ClusterRadius int      `json:"clusterRadius"`
}

// Engine decides, per zoom level, which markers render and how. It owns no
// persistent data; its render cache may be dropped at any time without loss.
type Engine struct {
	profile Profile

	mu            sync.Mutex
	appliedRadius int
	cache         *renderCache
}

// NewEngine creates an Engine for the given surface profile.
func NewEngine(profile Profile) *Engine {
	return &Engine{
		profile:       profile,
		appliedRadius: -1,
		cache:         newRenderCache(renderCacheCap),
	}
}

// ApplyZoom computes the clustering radius for a zoom level and reports
// whether the clustering layer should be reconfigured. Changes smaller than
// the threshold are suppressed to avoid layout churn.
func (e *Engine) ApplyZoom(zoom float64) (radius int, changed bool) {
	radius = ClusterRadius(zoom)
	if e.profile.Mobile {
		radius = int(float64(radius) * mobileRadiusScale)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.appliedRadius >= 0 && abs(radius-e.appliedRadius) <= radiusChangeThreshold {
		return e.appliedRadius, false
	}
	e.appliedRadius = radius
	return radius, true
}

// BuildRenderSet produces the markers for one day at one zoom level.
// Results for a previously-seen (zoom, day, dry) combination come from the
// bounded render cache.
func (e *Engine) BuildRenderSet(day forecast.DayForecast, opts Options) RenderSet {
	key := renderKey{zoom: opts.Zoom, day: opts.Day, dryOnly: opts.DryOnly, activity: opts.Activity}

	e.mu.Lock()
	if rs, ok := e.cache.get(key); ok {
		e.mu.Unlock()
		return rs
	}
	e.mu.Unlock()

	rs := e.computeRenderSet(day, opts)

	e.mu.Lock()
	e.cache.put(key, rs)
	e.mu.Unlock()
	return rs
}

// InvalidateCache drops all cached render sets. Call on fresh data arrival.
func (e *Engine) InvalidateCache() {
	e.mu.Lock()
	e.cache.clear()
	e.mu.Unlock()
}

func (e *Engine) computeRenderSet(day forecast.DayForecast, opts Options) RenderSet {
	size := MarkerSize(opts.Zoom).Pixels()

	radius := ClusterRadius(opts.Zoom)
	if e.profile.Mobile {
		radius = int(float64(radius) * mobileRadiusScale)
	}

	markers := make([]Marker, 0, len(day))
	for _, lf := range day {
		if opts.DryOnly && lf.Available && lf.PrecipMM > 0 {
			continue
		}

		opacity := 1.0
		if !ShouldShowMarker(lf.Importance, opts.Zoom) {
			if !e.profile.Mobile {
				continue
			}
			// Mobile keeps the marker discoverable but dimmed.
			opacity = dimmedOpacity
		}

		icon := lf.Code.Icon()
		if !lf.Available {
			icon = "unavailable"
		}

		markers = append(markers, Marker{
			Name:    lf.Name,
			Lat:     lf.Lat,
			Lon:     lf.Lon,
			Icon:    icon,
			SizePx:  size,
			Opacity: opacity,
		})
	}

	return RenderSet{Markers: markers, ClusterRadius: radius}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
