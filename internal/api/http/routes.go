package httpapi

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/liondevhq/weather-tomorrow/internal/weather"
)

var validate = validator.New()

// DefaultRefreshTimeout bounds an on-demand refresh when none is configured.
const DefaultRefreshTimeout = time.Minute

// RegisterRoutes wires the HTTP handlers into the Fiber app. Handlers that
// run the forecast pipeline give up after refreshTimeout.
func RegisterRoutes(app *fiber.App, service *weather.Service, refreshTimeout time.Duration) {
	if refreshTimeout <= 0 {
		refreshTimeout = DefaultRefreshTimeout
	}

	v1 := app.Group("/api/v1")

	forecasts := v1.Group("/forecasts")

	forecasts.Get("/", func(c *fiber.Ctx) error {
		run, err := service.GetLatest()
		if err != nil {
			return toHTTPError(err, "no forecasts have been fetched yet")
		}
		return c.JSON(newRunView(run))
	})

	forecasts.Post("/refresh", func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), refreshTimeout)
		defer cancel()

		run, err := service.Refresh(ctx)
		if err != nil {
			return toHTTPError(err, "")
		}
		return c.JSON(newRunView(run))
	})

	forecasts.Get("/history", func(c *fiber.Ctx) error {
		var req historyQuery
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		runs, err := service.GetRange(req.From, req.To)
		if err != nil {
			return toHTTPError(err, "no forecast runs in requested range")
		}

		views := make([]runView, 0, len(runs))
		for _, run := range runs {
			views = append(views, newRunView(run))
		}
		return c.JSON(fiber.Map{
			"from": req.From,
			"to":   req.To,
			"runs": views,
		})
	})

	forecasts.Get("/:id", func(c *fiber.Ctx) error {
		res, err := cityResult(c, service)
		if err != nil {
			return err
		}
		return c.JSON(newForecastEntry(res))
	})

	forecasts.Get("/:id/link", func(c *fiber.Ctx) error {
		res, err := cityResult(c, service)
		if err != nil {
			return err
		}
		return c.Redirect(res.Summary.DetailsURL, fiber.StatusFound)
	})

	cities := v1.Group("/cities")

	cities.Get("/", func(c *fiber.Ctx) error {
		list, err := service.ListCities(c.UserContext())
		if err != nil {
			return toHTTPError(err, "")
		}
		return c.JSON(list)
	})

	cities.Post("/", func(c *fiber.Ctx) error {
		var req cityRequest
		if err := req.bind(c); err != nil {
			return err
		}
		city, err := service.AddCity(c.UserContext(), req.Name, req.Country)
		if err != nil {
			return toHTTPError(err, "")
		}
		return c.Status(fiber.StatusCreated).JSON(city)
	})

	cities.Delete("/", func(c *fiber.Ctx) error {
		n, err := service.DeleteAllCities(c.UserContext())
		if err != nil {
			return toHTTPError(err, "")
		}
		return c.JSON(fiber.Map{"deleted": n})
	})

	cities.Get("/:id", func(c *fiber.Ctx) error {
		id, err := trackedID(c)
		if err != nil {
			return err
		}
		city, err := service.GetCity(c.UserContext(), id)
		if err != nil {
			return toHTTPError(err, "city is not tracked")
		}
		return c.JSON(city)
	})

	cities.Put("/:id", func(c *fiber.Ctx) error {
		id, err := trackedID(c)
		if err != nil {
			return err
		}
		var req cityRequest
		if err := req.bind(c); err != nil {
			return err
		}
		city := weather.TrackedCity{ID: id, Name: req.Name, Country: req.Country}
		if err := service.UpdateCity(c.UserContext(), city); err != nil {
			return toHTTPError(err, "city is not tracked")
		}
		updated, err := service.GetCity(c.UserContext(), id)
		if err != nil {
			return toHTTPError(err, "city is not tracked")
		}
		return c.JSON(updated)
	})

	cities.Delete("/:id", func(c *fiber.Ctx) error {
		id, err := trackedID(c)
		if err != nil {
			return err
		}
		if err := service.DeleteCity(c.UserContext(), id); err != nil {
			return toHTTPError(err, "city is not tracked")
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	settings := v1.Group("/settings")

	settings.Get("/", func(c *fiber.Ctx) error {
		units, err := service.Units(c.UserContext())
		if err != nil {
			return toHTTPError(err, "")
		}
		return c.JSON(fiber.Map{"units": units})
	})

	// Changing units refetches every city in the new units.
	settings.Put("/", func(c *fiber.Ctx) error {
		var req settingsRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		ctx, cancel := context.WithTimeout(c.UserContext(), refreshTimeout)
		defer cancel()

		run, err := service.SetUnits(ctx, weather.Units(req.Units))
		if err != nil {
			return toHTTPError(err, "")
		}
		return c.JSON(fiber.Map{
			"units": req.Units,
			"run":   newRunView(run),
		})
	})
}

// toHTTPError maps service errors onto status codes. notFound overrides the
// message for missing resources.
func toHTTPError(err error, notFound string) error {
	switch {
	case errors.Is(err, weather.ErrNotFound):
		if notFound == "" {
			notFound = err.Error()
		}
		return fiber.NewError(fiber.StatusNotFound, notFound)
	case errors.Is(err, weather.ErrInvalidInput):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	default:
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
}

func trackedID(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "id must be a positive integer")
	}
	return id, nil
}

// cityResult returns the latest successful result for the tracked city in
// the path.
func cityResult(c *fiber.Ctx, service *weather.Service) (weather.CityResult, error) {
	id, err := trackedID(c)
	if err != nil {
		return weather.CityResult{}, err
	}
	res, err := service.Summary(id)
	if err != nil {
		return weather.CityResult{}, toHTTPError(err, "no forecast for requested city")
	}
	if !res.OK() {
		return weather.CityResult{}, fiber.NewError(fiber.StatusServiceUnavailable,
			"forecast unavailable: "+weather.ErrorKind(res.Err))
	}
	return res, nil
}

// cityRequest is the body of city create and update calls.
type cityRequest struct {
	Name    string `json:"name" validate:"required"`
	Country string `json:"country" validate:"required"`
}

func (r *cityRequest) bind(c *fiber.Ctx) error {
	if err := c.BodyParser(r); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(r); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return nil
}

type settingsRequest struct {
	Units string `json:"units" validate:"required,oneof=metric imperial"`
}

// historyQuery holds query parameters for the history endpoint.
type historyQuery struct {
	From time.Time `validate:"required"`
	To   time.Time `validate:"required,gtefield=From"`
}

func (h *historyQuery) bind(c *fiber.Ctx) error {
	fromStr := c.Query("from")
	toStr := c.Query("to")
	if fromStr == "" || toStr == "" {
		return errors.New("from and to query parameters are required")
	}

	from, err := parseTime(fromStr)
	if err != nil {
		return err
	}
	to, err := parseTime(toStr)
	if err != nil {
		return err
	}

	h.From = from
	h.To = to
	return nil
}

// parseTime tries to parse either RFC3339 or Unix seconds.
func parseTime(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts, nil
	}
	if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC(), nil
	}
	return time.Time{}, errors.New("invalid time format; use RFC3339 or unix seconds")
}
