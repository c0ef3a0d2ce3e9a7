package httpapi

import (
	"errors"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/pmorvan/tregorweather/internal/spots"
)

// registerSpotRoutes wires the point-of-interest CRUD surface.
func registerSpotRoutes(router fiber.Router, store *spots.Store) {
	g := router.Group("/spots")

	g.Get("/", func(c *fiber.Ctx) error {
		if tag := c.Query("tag"); tag != "" {
			return c.JSON(store.ListByTag(tag))
		}
		return c.JSON(store.List())
	})

	g.Post("/", func(c *fiber.Ctx) error {
		var spot spots.Spot
		if err := c.BodyParser(&spot); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid spot payload")
		}

		created, err := store.Add(spot)
		if err != nil {
			return spotError(err)
		}
		return c.Status(fiber.StatusCreated).JSON(created)
	})

	g.Get("/nearby", func(c *fiber.Ctx) error {
		lat, latErr := strconv.ParseFloat(c.Query("lat"), 64)
		lon, lonErr := strconv.ParseFloat(c.Query("lon"), 64)
		if latErr != nil || lonErr != nil {
			return fiber.NewError(fiber.StatusBadRequest, "lat and lon query parameters are required")
		}
		radius := c.QueryFloat("radiusKm", 5)
		if radius <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "radiusKm must be positive")
		}
		return c.JSON(store.ListNearby(lat, lon, radius))
	})

	g.Get("/export", func(c *fiber.Ctx) error {
		c.Set(fiber.HeaderContentDisposition, `attachment; filename="spots-export.json"`)
		return c.JSON(store.ExportAll())
	})

	g.Post("/import", func(c *fiber.Ctx) error {
		var doc spots.ExportDocument
		if err := c.BodyParser(&doc); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid export document")
		}
		if doc.Version != spots.ExportVersion {
			return fiber.NewError(fiber.StatusBadRequest, "unsupported export document version")
		}

		report, err := store.ImportMerge(doc)
		if err != nil {
			return spotError(err)
		}
		return c.JSON(report)
	})

	g.Put("/:id", func(c *fiber.Ctx) error {
		var spot spots.Spot
		if err := c.BodyParser(&spot); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid spot payload")
		}

		updated, err := store.Update(c.Params("id"), spot)
		if err != nil {
			return spotError(err)
		}
		return c.JSON(updated)
	})

	g.Delete("/:id", func(c *fiber.Ctx) error {
		if err := store.Remove(c.Params("id")); err != nil {
			return spotError(err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	g.Post("/:id/visit", func(c *fiber.Ctx) error {
		visited, err := store.MarkVisited(c.Params("id"))
		if err != nil {
			return spotError(err)
		}
		return c.JSON(visited)
	})
}

// spotError maps store failures onto HTTP status codes.
func spotError(err error) error {
	var vErrs validator.ValidationErrors
	switch {
	case errors.Is(err, spots.ErrSpotNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, spots.ErrCapacityExceeded):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.As(err, &vErrs):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	default:
		return fiber.NewError(fiber.StatusInternalServerError, "failed to persist spot collection")
	}
}
