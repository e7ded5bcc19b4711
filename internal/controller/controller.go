package controller

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"

	"metrics-query-service/internal/model"
	"metrics-query-service/internal/service"
)

// QueryController exposes one HTTP handler per query operation. The
// handlers are debug-grade glue: they parse query parameters and return
// the service result as JSON.
type QueryController interface {
	Range(c *fiber.Ctx) error
	DistinctSeries(c *fiber.Ctx) error
	DistinctTotals(c *fiber.Ctx) error
	DistinctUnion(c *fiber.Ctx) error
	MostFrequent(c *fiber.Ctx) error
	MostFrequentSeries(c *fiber.Ctx) error
	FrequencySeries(c *fiber.Ctx) error
	FrequencyTotals(c *fiber.Ctx) error
}

type queryController struct {
	queries service.QueryService
}

// NewQueryController builds a QueryController.
func NewQueryController(svc service.QueryService) QueryController {
	return &queryController{queries: svc}
}

func (h *queryController) Range(c *fiber.Ctx) error {
	q, err := parseQuery(c)
	if err != nil {
		return err
	}
	result, err := h.queries.GetRange(c.Context(), q.model, q.keys, q.start, q.end, q.opts)
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(result)
}

func (h *queryController) DistinctSeries(c *fiber.Ctx) error {
	q, err := parseQuery(c)
	if err != nil {
		return err
	}
	result, err := h.queries.GetDistinctCountsSeries(c.Context(), q.model, q.keys, q.start, q.end, q.opts)
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(result)
}

func (h *queryController) DistinctTotals(c *fiber.Ctx) error {
	q, err := parseQuery(c)
	if err != nil {
		return err
	}
	result, err := h.queries.GetDistinctCountsTotals(c.Context(), q.model, q.keys, q.start, q.end, q.opts)
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(result)
}

func (h *queryController) DistinctUnion(c *fiber.Ctx) error {
	q, err := parseQuery(c)
	if err != nil {
		return err
	}
	result, err := h.queries.GetDistinctCountsUnion(c.Context(), q.model, q.keys, q.start, q.end, q.opts)
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(fiber.Map{"count": result})
}

func (h *queryController) MostFrequent(c *fiber.Ctx) error {
	q, err := parseQuery(c)
	if err != nil {
		return err
	}
	result, err := h.queries.GetMostFrequent(c.Context(), q.model, q.keys, q.start, q.end, q.opts)
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(result)
}

func (h *queryController) MostFrequentSeries(c *fiber.Ctx) error {
	q, err := parseQuery(c)
	if err != nil {
		return err
	}
	result, err := h.queries.GetMostFrequentSeries(c.Context(), q.model, q.keys, q.start, q.end, q.opts)
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(result)
}

func (h *queryController) FrequencySeries(c *fiber.Ctx) error {
	q, err := parseQuery(c)
	if err != nil {
		return err
	}
	result, err := h.queries.GetFrequencySeries(c.Context(), q.model, q.keys, q.start, q.end, q.opts)
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(result)
}

func (h *queryController) FrequencyTotals(c *fiber.Ctx) error {
	q, err := parseQuery(c)
	if err != nil {
		return err
	}
	result, err := h.queries.GetFrequencyTotals(c.Context(), q.model, q.keys, q.start, q.end, q.opts)
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(result)
}

type parsedQuery struct {
	model model.Model
	keys  any
	start time.Time
	end   time.Time
	opts  service.QueryOptions
}

func parseQuery(c *fiber.Ctx) (parsedQuery, error) {
	var q parsedQuery

	name := utils.Trim(c.Query("model"), ' ')
	if name == "" {
		return q, fiber.NewError(fiber.StatusBadRequest, "model is required")
	}
	m, err := model.ParseModel(name)
	if err != nil {
		return q, fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	q.model = m

	rawKeys := utils.Trim(c.Query("keys"), ' ')
	if rawKeys == "" {
		return q, fiber.NewError(fiber.StatusBadRequest, "keys is required")
	}
	keys := strings.Split(rawKeys, ",")
	for i, k := range keys {
		keys[i] = utils.Trim(k, ' ')
	}
	q.keys = keys

	q.start, err = parseTimestamp(c, "start")
	if err != nil {
		return q, err
	}
	if q.start.IsZero() {
		return q, fiber.NewError(fiber.StatusBadRequest, "start is required")
	}
	q.end, err = parseTimestamp(c, "end")
	if err != nil {
		return q, err
	}

	if raw := c.Query("rollup"); raw != "" {
		r, parseErr := strconv.ParseInt(raw, 10, 64)
		if parseErr != nil {
			return q, fiber.NewError(fiber.StatusBadRequest, "invalid rollup")
		}
		q.opts.Rollup = r
	}
	if raw := c.Query("limit"); raw != "" {
		limit, parseErr := strconv.Atoi(raw)
		if parseErr != nil {
			return q, fiber.NewError(fiber.StatusBadRequest, "invalid limit")
		}
		q.opts.Limit = limit
	}
	if raw := c.Query("jitter"); raw != "" {
		jitter, parseErr := strconv.ParseInt(raw, 10, 64)
		if parseErr != nil {
			return q, fiber.NewError(fiber.StatusBadRequest, "invalid jitter")
		}
		q.opts.Jitter = jitter
	}
	q.opts.Environment = utils.Trim(c.Query("environment"), ' ')
	q.opts.UseCache = c.QueryBool("use_cache")

	return q, nil
}

func parseTimestamp(c *fiber.Ctx, name string) (time.Time, error) {
	raw := utils.Trim(c.Query(name), ' ')
	if raw == "" {
		return time.Time{}, nil
	}
	sec, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, fiber.NewError(fiber.StatusBadRequest, "invalid "+name+" timestamp")
	}
	return time.Unix(sec, 0).UTC(), nil
}

func mapServiceError(err error) error {
	if errors.Is(err, model.ErrUnsupportedModel) || errors.Is(err, service.ErrUnsupportedKeyShape) {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return fiber.NewError(fiber.StatusInternalServerError, "query failed")
}
