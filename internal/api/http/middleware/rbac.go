package middleware

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v3"

	"github.com/clinicadesk/clinica_backend/pkg/authorize"
)

// RequirePermission lets the request through when the caller's role may
// perform action on resource. It must run after AuthRequired.
func RequirePermission(auth authorize.IAuthorization, resource authorize.Resource, action authorize.Action) fiber.Handler {
	return func(c fiber.Ctx) error {
		role, err := authorize.RoleFromContext(c.Context())
		if err != nil {
			return fiber.ErrUnauthorized
		}

		if err := auth.MustEnforce(c.Context(), role, resource, action); err != nil {
			if errors.Is(err, authorize.ErrForbidden) {
				return fiber.ErrForbidden
			}
			slog.ErrorContext(c.Context(), "authorization check failed",
				"role", role, "resource", resource, "action", action, "err", err)
			return fiber.ErrInternalServerError
		}

		return c.Next()
	}
}
