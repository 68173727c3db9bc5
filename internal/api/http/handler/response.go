package handler

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v3"

	"github.com/clinicadesk/clinica_backend/pkg/apperr"
	"github.com/clinicadesk/clinica_backend/pkg/reqctx"
)

func ok(c fiber.Ctx, data any) error {
	return c.JSON(fiber.Map{"data": data})
}

func created(c fiber.Ctx, data any) error {
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": data})
}

func noContent(c fiber.Ctx) error {
	return c.SendStatus(fiber.StatusNoContent)
}

func badRequest(c fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
}

func notFound(c fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": msg})
}

func conflict(c fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": msg})
}

func unprocessable(c fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": msg})
}

func internalError(c fiber.Ctx) error {
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
}

// mapError turns a service error into a response by its kind.
func mapError(c fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return notFound(c, err.Error())
	case errors.Is(err, apperr.ErrInvalidInput):
		return badRequest(c, err.Error())
	case errors.Is(err, apperr.ErrInvalidState):
		return unprocessable(c, err.Error())
	case errors.Is(err, apperr.ErrConflict):
		return conflict(c, err.Error())
	default:
		attrs := append([]any{"method", c.Method(), "path", c.Path(), "err", err}, reqctx.LogAttrs(c.Context())...)
		slog.ErrorContext(c.Context(), "request failed", attrs...)
		return internalError(c)
	}
}
