package api

import (
	"context"
	"errors"
	"log/slog"

	"aaronromeo.com/mailsift/internal/worker"
	"aaronromeo.com/mailsift/pkg/search"
	"aaronromeo.com/mailsift/pkg/utils"
	"github.com/gofiber/contrib/otelfiber/v2"
	"github.com/gofiber/fiber/v2"
)

// NewApp builds the instrumented fiber app serving h.
func NewApp(h *Handler) *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          h.handleError,
	})
	app.Use(otelfiber.Middleware())
	h.Register(app)
	return app
}

func ErrorResponse(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{"error": message})
}

func (h *Handler) handleError(c *fiber.Ctx, err error) error {
	status := StatusFor(err)
	if status >= fiber.StatusInternalServerError {
		h.logger.Error("request failed",
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.Int("status", status),
			slog.Any("error", utils.WrapError(err)))
	}
	return ErrorResponse(c, status, err.Error())
}

// StatusFor maps search and worker errors onto HTTP status codes.
func StatusFor(err error) int {
	var (
		fiberErr      *fiber.Error
		invalidFilter *search.InvalidFilterError
		unknownFolder *search.UnknownFolderError
		resolution    *search.FolderResolutionError
		execution     *search.SearchExecutionError
	)
	switch {
	case errors.As(err, &fiberErr):
		return fiberErr.Code
	case errors.As(err, &invalidFilter), errors.As(err, &unknownFolder):
		return fiber.StatusBadRequest
	case errors.As(err, &resolution):
		return fiber.StatusNotFound
	case errors.As(err, &execution):
		return fiber.StatusBadGateway
	case errors.Is(err, worker.ErrExportDisabled):
		return fiber.StatusNotImplemented
	case errors.Is(err, context.DeadlineExceeded):
		return fiber.StatusGatewayTimeout
	}
	return fiber.StatusInternalServerError
}
