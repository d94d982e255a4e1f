package httpapi

import (
	"errors"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/i474232898/pirateweather/internal/entry"
	"github.com/i474232898/pirateweather/internal/host"
	"github.com/i474232898/pirateweather/internal/platform"
	"github.com/i474232898/pirateweather/internal/store"
	"github.com/i474232898/pirateweather/internal/weather"
)

var validate = validator.New()

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, h *host.Host, history weather.SnapshotStore) {
	v1 := app.Group("/api/v1")

	v1.Get("/entries", func(c *fiber.Ctx) error {
		return c.JSON(h.Entries())
	})

	v1.Get("/entries/:id", func(c *fiber.Ctx) error {
		status, err := h.Entry(c.Params("id"))
		if err != nil {
			return toFiberError(err)
		}
		return c.JSON(status)
	})

	v1.Post("/entries", func(c *fiber.Ctx) error {
		var req createEntryRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		e := req.toEntry()
		// A failed setup still stores the entry; its status carries the reason.
		if err := h.Add(c.UserContext(), e); err != nil && !errors.Is(err, host.ErrSetupFailed) {
			return toFiberError(err)
		}

		status, err := h.Entry(e.ID)
		if err != nil {
			return toFiberError(err)
		}
		return c.Status(fiber.StatusCreated).JSON(status)
	})

	v1.Put("/entries/:id/options", func(c *fiber.Ctx) error {
		var req optionsRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		id := c.Params("id")
		if err := h.UpdateOptions(c.UserContext(), id, req.Options); err != nil && !errors.Is(err, host.ErrSetupFailed) {
			return toFiberError(err)
		}
		status, err := h.Entry(id)
		if err != nil {
			return toFiberError(err)
		}
		return c.JSON(status)
	})

	v1.Post("/entries/:id/reload", func(c *fiber.Ctx) error {
		id := c.Params("id")
		if err := h.Reload(c.UserContext(), id); err != nil && !errors.Is(err, host.ErrSetupFailed) {
			return toFiberError(err)
		}
		status, err := h.Entry(id)
		if err != nil {
			return toFiberError(err)
		}
		return c.JSON(status)
	})

	v1.Delete("/entries/:id", func(c *fiber.Ctx) error {
		if err := h.Remove(c.UserContext(), c.Params("id")); err != nil {
			return toFiberError(err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	// Values accepted in monitored_conditions.
	v1.Get("/conditions", func(c *fiber.Ctx) error {
		return c.JSON(platform.ConditionKeys())
	})

	v1.Get("/entities", func(c *fiber.Ctx) error {
		return c.JSON(h.Entities())
	})

	v1.Get("/entities/:id", func(c *fiber.Ctx) error {
		state, err := h.Entity(c.Params("id"))
		if err != nil {
			return toFiberError(err)
		}
		return c.JSON(state)
	})

	v1.Get("/locations/:key/latest", func(c *fiber.Ctx) error {
		snapshot, err := history.Latest(c.Params("key"))
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no weather data for requested location")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch weather data")
		}
		return c.JSON(snapshot)
	})

	v1.Get("/locations/:key/history", func(c *fiber.Ctx) error {
		var req historyQuery
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		snapshots, err := history.Range(req.Key, req.From, req.To)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no weather history for requested range")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch weather history")
		}

		return c.JSON(fiber.Map{
			"key":       req.Key,
			"from":      req.From,
			"to":        req.To,
			"snapshots": snapshots,
		})
	})
}

func toFiberError(err error) error {
	switch {
	case errors.Is(err, host.ErrEntryNotFound), errors.Is(err, host.ErrEntityNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, host.ErrUnloadFailed), errors.Is(err, host.ErrEntryExists),
		errors.Is(err, host.ErrEntryLoaded):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	default:
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
}

// createEntryRequest is the body of POST /entries.
type createEntryRequest struct {
	ID      string         `json:"id"`
	Title   string         `json:"title"`
	Data    map[string]any `json:"data" validate:"required,min=1"`
	Options map[string]any `json:"options"`
}

func (r createEntryRequest) toEntry() *entry.Entry {
	id := r.ID
	if id == "" {
		id = uuid.NewString()
	}
	title := r.Title
	if title == "" {
		title, _ = r.Data[entry.KeyName].(string)
	}
	return &entry.Entry{ID: id, Title: title, Data: r.Data, Options: r.Options}
}

// optionsRequest is the body of PUT /entries/:id/options.
type optionsRequest struct {
	Options map[string]any `json:"options" validate:"required"`
}

// historyQuery holds path and query parameters for the history endpoint.
type historyQuery struct {
	Key  string    `validate:"required"`
	From time.Time `validate:"required"`
	To   time.Time `validate:"required,gtefield=From"`
}

func (h *historyQuery) bind(c *fiber.Ctx) error {
	h.Key = c.Params("key")

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
