package forecast

import (
	"time"

	"github.com/pmorvan/tregorweather/internal/region"
)

// WeatherCode is a WMO-style condition code as delivered by the upstream
// daily series. The enumeration is closed; unknown codes map to a generic
// description and icon.
type WeatherCode int

const (
	CodeClear             WeatherCode = 0
	CodeMainlyClear       WeatherCode = 1
	CodePartlyCloudy      WeatherCode = 2
	CodeOvercast          WeatherCode = 3
	CodeFog               WeatherCode = 45
	CodeDrizzleLight      WeatherCode = 51
	CodeDrizzleModerate   WeatherCode = 53
	CodeDrizzleDense      WeatherCode = 55
	CodeRainLight         WeatherCode = 61
	CodeRainModerate      WeatherCode = 63
	CodeRainHeavy         WeatherCode = 65
	CodeSnowLight         WeatherCode = 71
	CodeSnowModerate      WeatherCode = 73
	CodeSnowHeavy         WeatherCode = 75
	CodeShowersLight      WeatherCode = 80
	CodeShowersModerate   WeatherCode = 81
	CodeShowersViolent    WeatherCode = 82
	CodeThunderstorm      WeatherCode = 95
	CodeThunderstormHail  WeatherCode = 96
	CodeThunderstormHail2 WeatherCode = 99
)

// Description returns a short human-readable condition label.
func (c WeatherCode) Description() string {
	switch {
	case c == CodeClear:
		return "clear sky"
	case c >= CodeMainlyClear && c <= CodePartlyCloudy:
		return "partly cloudy"
	case c == CodeOvercast:
		return "overcast"
	case c == CodeFog:
		return "fog"
	case c >= CodeDrizzleLight && c <= CodeDrizzleDense:
		return "drizzle"
	case c >= CodeRainLight && c <= CodeRainHeavy:
		return "rain"
	case c >= CodeSnowLight && c <= CodeSnowHeavy:
		return "snow"
	case c >= CodeShowersLight && c <= CodeShowersViolent:
		return "showers"
	case c >= CodeThunderstorm:
		return "thunderstorm"
	default:
		return "unknown"
	}
}

// Icon returns the marker icon key for this condition.
func (c WeatherCode) Icon() string {
	switch {
	case c == CodeClear:
		return "sun"
	case c >= CodeMainlyClear && c <= CodePartlyCloudy:
		return "sun-cloud"
	case c == CodeOvercast:
		return "cloud"
	case c == CodeFog:
		return "fog"
	case c >= CodeDrizzleLight && c <= CodeRainHeavy:
		return "rain"
	case c >= CodeSnowLight && c <= CodeSnowHeavy:
		return "snow"
	case c >= CodeShowersLight && c <= CodeShowersViolent:
		return "showers"
	case c >= CodeThunderstorm:
		return "storm"
	default:
		return "cloud"
	}
}

// IsDry reports whether the condition carries no precipitation.
func (c WeatherCode) IsDry() bool {
	return c <= CodeOvercast || c == CodeFog
}

// Activity is a trip activity that forecasts are scored against.
type Activity string

const (
	ActivityHiking  Activity = "hiking"
	ActivityBeach   Activity = "beach"
	ActivitySailing Activity = "sailing"
	ActivityCycling Activity = "cycling"
)

// Activities lists the supported activities.
func Activities() []Activity {
	return []Activity{ActivityHiking, ActivityBeach, ActivitySailing, ActivityCycling}
}

// LocationForecast is one city's forecast for one day.
type LocationForecast struct {
	Name       string                `json:"name"`
	Lat        float64               `json:"lat"`
	Lon        float64               `json:"lon"`
	Importance region.ImportanceTier `json:"importance"`

	TempMaxC   float64     `json:"tempMaxC"`
	TempMinC   float64     `json:"tempMinC"`
	PrecipMM   float64     `json:"precipMm"`
	PrecipProb float64     `json:"precipProb"`
	WindKmh    float64     `json:"windKmh"`
	GustKmh    float64     `json:"gustKmh"`
	UVIndex    float64     `json:"uvIndex"`
	Code       WeatherCode `json:"weatherCode"`
	Sunrise    time.Time   `json:"sunrise"`
	Sunset     time.Time   `json:"sunset"`

	// Available is false when the measurements could not be retrieved; only
	// the identity fields above are populated then.
	Available     bool   `json:"available"`
	FailureReason string `json:"failureReason,omitempty"`
}

// ComfortIndex derives a 0-100 suitability heuristic from the measurements.
// It is recomputed on demand and never persisted, so it cannot go stale
// relative to the fields it is derived from.
func (f LocationForecast) ComfortIndex() int {
	if !f.Available {
		return 0
	}

	// Temperature band: ideal around 18-24 °C.
	score := 100.0
	switch {
	case f.TempMaxC < 5:
		score -= 50
	case f.TempMaxC < 12:
		score -= 30
	case f.TempMaxC < 16:
		score -= 15
	case f.TempMaxC > 32:
		score -= 35
	case f.TempMaxC > 27:
		score -= 15
	}

	// Precipitation penalty: amount and probability both count.
	score -= f.PrecipMM * 4
	score -= f.PrecipProb * 0.25

	// Wind penalty above a fresh breeze.
	if f.WindKmh > 30 {
		score -= (f.WindKmh - 30) * 0.8
	}

	// Strong UV nudges the score down a little.
	if f.UVIndex > 7 {
		score -= (f.UVIndex - 7) * 3
	}

	return clampScore(score)
}

// ActivityScore rates this forecast for a given activity on a 0-100 scale,
// starting from the comfort index and applying activity-specific penalties.
func (f LocationForecast) ActivityScore(a Activity) int {
	if !f.Available {
		return 0
	}

	score := float64(f.ComfortIndex())
	switch a {
	case ActivityHiking:
		// Rain matters more than temperature on the coastal paths.
		score -= f.PrecipMM * 3
		if f.GustKmh > 60 {
			score -= 20
		}
	case ActivityBeach:
		if f.TempMaxC < 18 {
			score -= (18 - f.TempMaxC) * 4
		}
		score -= f.PrecipProb * 0.3
	case ActivitySailing:
		// Some wind is wanted, too much or too little is not.
		switch {
		case f.WindKmh < 8:
			score -= 25
		case f.WindKmh > 45:
			score -= 40
		case f.GustKmh > 65:
			score -= 30
		}
	case ActivityCycling:
		if f.WindKmh > 25 {
			score -= (f.WindKmh - 25) * 1.2
		}
		score -= f.PrecipMM * 3
	}

	return clampScore(score)
}

func clampScore(s float64) int {
	if s < 0 {
		return 0
	}
	if s > 100 {
		return 100
	}
	return int(s)
}

// ForecastDays is the fixed forecast window length.
const ForecastDays = 7

// DayForecast holds one entry per monitored city for a single day, in
// canonical catalog order.
type DayForecast []LocationForecast

// Tier labels where a bundle's data came from.
type Tier string

const (
	TierNetwork      Tier = "network"
	TierCacheStale   Tier = "cache-stale"
	TierCacheOffline Tier = "cache-offline"
)

// Bundle is the full multi-day, multi-city dataset produced by one fetch
// cycle. Bundles are replaced wholesale by the next successful fetch and are
// never merged field by field.
type Bundle struct {
	Days         [ForecastDays]DayForecast `json:"days"`
	FetchedAt    time.Time                 `json:"fetchedAt"`
	Source       Tier                      `json:"source"`
	SuccessRatio float64                   `json:"successRatio"`
}

// Age returns how old the bundle is relative to now.
func (b *Bundle) Age(now time.Time) time.Duration {
	return now.Sub(b.FetchedAt)
}
