// Package api is the thin HTTP front-end: it enqueues broker messages and
// serves job status. All lifecycle work happens in the queue workers.
package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ocrforge/hpcbroker/internal/broker"
	"github.com/ocrforge/hpcbroker/internal/messaging"
)

// NewApp builds the fiber application with all routes registered.
func NewApp(store *broker.Store, channel messaging.Channel, jobsDir string) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: errorHandler,
	})

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "healthy"})
	})

	handler := NewJobHandler(store, channel, jobsDir)
	jobs := app.Group("/jobs")
	jobs.Post("/", handler.SubmitJob)
	jobs.Get("/:id", handler.JobStatus)

	app.Get("/users/:id/stats", handler.UserStats)

	return app
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}
	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
	})
}
