package forecast

import (
	"context"
	"time"

	"github.com/pmorvan/tregorweather/internal/region"
)

// DailyReading is one provider-normalized day of measurements for one city.
type DailyReading struct {
	Date       time.Time
	TempMaxC   float64
	TempMinC   float64
	PrecipMM   float64
	PrecipProb float64
	WindKmh    float64
	GustKmh    float64
	UVIndex    float64
	Code       WeatherCode
	Sunrise    time.Time
	Sunset     time.Time
}

// Provider abstracts the upstream daily-forecast source.
type Provider interface {
	Name() string
	// FetchDaily returns at least days readings for the city, ordered by
	// date ascending. A validation failure on the upstream payload is an
	// error for this city only, never for the whole batch.
	FetchDaily(ctx context.Context, city region.City, days int) ([]DailyReading, error)
}
