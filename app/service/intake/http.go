package intake

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

type researchRequest struct {
	Text string `json:"text"`
}

// RunHTTP serves the HTTP intake endpoint until the context is cancelled.
func (s *Service) RunHTTP(ctx context.Context) {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	app.Post("/research", func(c *fiber.Ctx) error {
		var req researchRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid request body",
			})
		}

		if strings.TrimSpace(req.Text) == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "text is required",
			})
		}

		taskID := s.Submit(req.Text)

		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
			"id": taskID,
		})
	})

	app.Get("/research/:id", func(c *fiber.Ctx) error {
		taskID := c.Params("id")

		path := filepath.Join(s.cfg.Research.Volume, resultPrefix+taskID+taskSuffix)

		result, err := os.ReadFile(path)
		if err != nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "result is not ready",
			})
		}

		return c.SendString(string(result))
	})

	go func() {
		<-ctx.Done()

		if err := app.ShutdownWithTimeout(5 * time.Second); err != nil {
			slog.Warn("HTTP shutdown failed", "error", err)
		}
	}()

	if err := app.Listen(s.cfg.Research.HTTPAddr); err != nil {
		slog.Error("HTTP server stopped", "error", err)
	}
}
