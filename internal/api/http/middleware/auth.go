package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/redis/go-redis/v9"

	pasetotoken "github.com/clinicadesk/clinica_backend/pkg/paseto"
	"github.com/clinicadesk/clinica_backend/pkg/reqctx"
)

// SessionKey is the Redis key whose presence keeps a session alive.
func SessionKey(sessionID string) string {
	return "session:" + sessionID
}

// AuthRequired validates a Bearer PASETO access token. With requireSession,
// the token must carry a session id that is still present in Redis.
// On success the claims are stored in the request context.
func AuthRequired(mgr *pasetotoken.Manager, rdb *redis.Client, requireSession bool) fiber.Handler {
	return func(c fiber.Ctx) error {
		h := c.Get(fiber.HeaderAuthorization)
		if h == "" {
			return fiber.ErrUnauthorized
		}

		parts := strings.SplitN(h, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return fiber.ErrUnauthorized
		}

		claims, err := mgr.Verify(strings.TrimSpace(parts[1]))
		if err != nil {
			return fiber.ErrUnauthorized
		}
		if claims.Type != pasetotoken.TokenTypeAccess {
			return fiber.ErrUnauthorized
		}

		if requireSession {
			if claims.SessionID == nil || rdb == nil {
				return fiber.ErrUnauthorized
			}
			if err := rdb.Get(c.Context(), SessionKey(claims.SessionID.String())).Err(); err != nil {
				return fiber.ErrUnauthorized
			}
		}

		c.SetContext(reqctx.WithClaims(c.Context(), claims))
		return c.Next()
	}
}
