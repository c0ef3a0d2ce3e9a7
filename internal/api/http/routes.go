package httpapi

import (
	"errors"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/pmorvan/tregorweather/internal/forecast"
	"github.com/pmorvan/tregorweather/internal/markers"
	"github.com/pmorvan/tregorweather/internal/region"
	"github.com/pmorvan/tregorweather/internal/spots"
	"github.com/pmorvan/tregorweather/internal/view"
)

var validate = validator.New()

// Deps bundles the collaborators the HTTP layer needs. Everything is
// injected; the handlers hold no package-level state.
type Deps struct {
	Forecasts   *forecast.Store
	Coordinator *view.Coordinator
	Engine      *markers.Engine
	Spots       *spots.Store
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, deps Deps) {
	v1 := app.Group("/api/v1")

	v1.Get("/forecast", func(c *fiber.Ctx) error {
		bundle, err := deps.Forecasts.Current()
		if err != nil {
			return fiber.NewError(fiber.StatusNotFound, "no forecast data available")
		}
		return c.JSON(fiber.Map{
			"bundle": bundle,
			"status": deps.Coordinator.StatusLine(),
		})
	})

	v1.Get("/forecast/day/:index", func(c *fiber.Ctx) error {
		index, err := c.ParamsInt("index")
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "day index must be an integer")
		}

		var q dayQuery
		if err := q.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		day, err := deps.Coordinator.FilteredDay(index, q.Dry, q.activity())
		if err != nil {
			if errors.Is(err, view.ErrNoDay) {
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			}
			return fiber.NewError(fiber.StatusNotFound, "no forecast data available")
		}

		return c.JSON(fiber.Map{
			"day":       index,
			"locations": annotateDay(day),
		})
	})

	v1.Get("/markers", func(c *fiber.Ctx) error {
		var q markersQuery
		if err := q.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		day, err := deps.Coordinator.FilteredDay(q.Day, q.Dry, "")
		if err != nil {
			if errors.Is(err, view.ErrNoDay) {
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			}
			return fiber.NewError(fiber.StatusNotFound, "no forecast data available")
		}

		rs := deps.Engine.BuildRenderSet(day, markers.Options{
			Zoom:    q.Zoom,
			Day:     q.Day,
			DryOnly: q.Dry,
		})
		return c.JSON(rs)
	})

	v1.Get("/status", func(c *fiber.Ctx) error {
		succeeded, attempted, ratio := deps.Forecasts.Reliability()

		resp := fiber.Map{
			"status":           deps.Coordinator.StatusLine(),
			"fetchesSucceeded": succeeded,
			"fetchesAttempted": attempted,
			"reliabilityRatio": ratio,
			"monitoredCities":  len(region.Catalog()),
			"spotCount":        deps.Spots.Count(),
		}
		if bundle, err := deps.Forecasts.Current(); err == nil {
			resp["source"] = bundle.Source
			resp["fetchedAt"] = bundle.FetchedAt
			resp["successRatio"] = bundle.SuccessRatio
		}
		return c.JSON(resp)
	})

	registerSpotRoutes(v1, deps.Spots)
}

// annotatedLocation inlines the derived scores next to the stored fields so
// the map popups need no client-side recomputation.
type annotatedLocation struct {
	forecast.LocationForecast
	Condition      string         `json:"condition"`
	ComfortIndex   int            `json:"comfortIndex"`
	ActivityScores map[string]int `json:"activityScores"`
}

func annotateDay(day forecast.DayForecast) []annotatedLocation {
	out := make([]annotatedLocation, 0, len(day))
	for _, lf := range day {
		scores := make(map[string]int, len(forecast.Activities()))
		for _, a := range forecast.Activities() {
			scores[string(a)] = lf.ActivityScore(a)
		}
		out = append(out, annotatedLocation{
			LocationForecast: lf,
			Condition:        lf.Code.Description(),
			ComfortIndex:     lf.ComfortIndex(),
			ActivityScores:   scores,
		})
	}
	return out
}

// dayQuery holds the optional filters of the day endpoint.
type dayQuery struct {
	Dry      bool
	Activity string `validate:"omitempty,oneof=hiking beach sailing cycling"`
}

func (q *dayQuery) bind(c *fiber.Ctx) error {
	q.Dry = c.QueryBool("dry")
	q.Activity = c.Query("activity")
	return validate.Struct(q)
}

func (q *dayQuery) activity() forecast.Activity {
	return forecast.Activity(q.Activity)
}

// markersQuery holds the render-set parameters.
type markersQuery struct {
	Zoom float64 `validate:"required,gte=1,lte=19"`
	Day  int     `validate:"gte=0,lte=6"`
	Dry  bool
}

func (q *markersQuery) bind(c *fiber.Ctx) error {
	zoomStr := c.Query("zoom")
	if zoomStr == "" {
		return errors.New("zoom query parameter is required")
	}
	zoom, err := strconv.ParseFloat(zoomStr, 64)
	if err != nil {
		return errors.New("zoom must be a number")
	}
	q.Zoom = zoom
	q.Day = c.QueryInt("day", 0)
	q.Dry = c.QueryBool("dry")
	return validate.Struct(q)
}
