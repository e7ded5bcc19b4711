package routes

import (
	"github.com/gofiber/fiber/v2"

	"metrics-query-service/internal/controller"
)

// Register attaches all HTTP routes to the Fiber app.
func Register(app *fiber.App, queryController controller.QueryController) {
	app.Get("/series/range", queryController.Range)
	app.Get("/distinct/series", queryController.DistinctSeries)
	app.Get("/distinct/totals", queryController.DistinctTotals)
	app.Get("/distinct/union", queryController.DistinctUnion)
	app.Get("/frequent", queryController.MostFrequent)
	app.Get("/frequent/series", queryController.MostFrequentSeries)
	app.Get("/frequency/series", queryController.FrequencySeries)
	app.Get("/frequency/totals", queryController.FrequencyTotals)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
}
