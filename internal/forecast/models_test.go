package forecast

import "testing"

func availableForecast() LocationForecast {
	return LocationForecast{
		Name:      "Lannion",
		Available: true,
		TempMaxC:  21,
		TempMinC:  14,
		WindKmh:   12,
	}
}

func TestComfortIndexRange(t *testing.T) {
	mild := availableForecast()
	if got := mild.ComfortIndex(); got < 90 {
		t.Errorf("mild day scored %d, expected near 100", got)
	}

	awful := availableForecast()
	awful.TempMaxC = 3
	awful.PrecipMM = 18
	awful.PrecipProb = 100
	awful.WindKmh = 75
	if got := awful.ComfortIndex(); got != 0 {
		t.Errorf("awful day scored %d, expected 0", got)
	}
}

func TestComfortIndexUnavailable(t *testing.T) {
	lf := LocationForecast{Name: "Paimpol", Available: false}
	if lf.ComfortIndex() != 0 {
		t.Error("unavailable forecast must score 0")
	}
	for _, a := range Activities() {
		if lf.ActivityScore(a) != 0 {
			t.Errorf("unavailable forecast must score 0 for %s", a)
		}
	}
}

func TestActivityScoreSailingWantsWind(t *testing.T) {
	calm := availableForecast()
	calm.WindKmh = 3

	breezy := availableForecast()
	breezy.WindKmh = 22

	if calm.ActivityScore(ActivitySailing) >= breezy.ActivityScore(ActivitySailing) {
		t.Error("a light breeze should out-score a flat calm for sailing")
	}

	gale := availableForecast()
	gale.WindKmh = 55
	if gale.ActivityScore(ActivitySailing) >= breezy.ActivityScore(ActivitySailing) {
		t.Error("a gale should score below a working breeze for sailing")
	}
}

func TestActivityScoreBeachPenalizesCold(t *testing.T) {
	cold := availableForecast()
	cold.TempMaxC = 13

	warm := availableForecast()
	warm.TempMaxC = 24

	if cold.ActivityScore(ActivityBeach) >= warm.ActivityScore(ActivityBeach) {
		t.Error("a cold day should score below a warm one for the beach")
	}
}

func TestWeatherCodeHelpers(t *testing.T) {
	if !CodeClear.IsDry() || !CodeOvercast.IsDry() || !CodeFog.IsDry() {
		t.Error("clear, overcast and fog are dry conditions")
	}
	if CodeRainModerate.IsDry() || CodeThunderstorm.IsDry() {
		t.Error("rain and thunderstorm are not dry conditions")
	}

	if CodeRainLight.Icon() != "rain" {
		t.Errorf("unexpected icon for light rain: %q", CodeRainLight.Icon())
	}
	if CodeThunderstorm.Description() != "thunderstorm" {
		t.Errorf("unexpected description: %q", CodeThunderstorm.Description())
	}
	if WeatherCode(42).Description() != "unknown" {
		t.Error("unmapped codes should describe as unknown")
	}
}
