package handler

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"snaplens/internal/service"
)

// uploadRequest is the JSON body of POST /upload. The image field carries a
// base64 data-URL captured from the browser webcam.
type uploadRequest struct {
	Image string `json:"image"`
}

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
// Keep handlers minimal and free of business logic.
func RegisterRoutes(app *fiber.App, db *sql.DB, imgSvc service.ImageService) {
	// Gallery page: server-rendered list of processed captures.
	app.Get("/", func(c *fiber.Ctx) error {
		entries, err := imgSvc.GalleryEntries(c.UserContext())
		if err != nil {
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.Render("index", fiber.Map{
			"Images": entries,
		})
	})

	// Upload a webcam capture (JSON body with a base64 data-URL).
	app.Post("/upload", func(c *fiber.Ctx) error {
		var req uploadRequest
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
		}

		img, err := imgSvc.Upload(c.UserContext(), req.Image)
		if err != nil {
			if errors.Is(err, service.ErrInvalidImage) {
				return writeError(c, fiber.StatusBadRequest, "INVALID_IMAGE", "invalid image data")
			}
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.JSON(fiber.Map{
			"success":  true,
			"message":  "Image uploaded successfully and is being processed.",
			"image_id": img.ID,
		})
	})

	// Raw JPEG bytes of a stored capture.
	app.Get("/image/:id", func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		data, err := imgSvc.ImageData(c.UserContext(), id)
		if err != nil {
			if errors.Is(err, service.ErrNotFound) {
				return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "image not found")
			}
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		c.Type("jpg")
		return c.Send(data)
	})

	// Processing status, polled by the gallery page to know when to refresh.
	app.Get("/status", func(c *fiber.Ctx) error {
		pending, err := imgSvc.HasPending(c.UserContext())
		if err != nil {
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.JSON(fiber.Map{"pending": pending})
	})

	// Health endpoint: checks DB connectivity only.
	app.Get("/health", func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			return writeError(c, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "dependency unavailable")
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "healthy"})
	})

	// Simple liveness probe.
	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
}
