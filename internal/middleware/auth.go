package middleware

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"doctools-gateway/internal/auth"
)

// userIDKey is the echo context key holding the resolved caller identity.
const userIDKey = "user_id"

// RequireUser returns an Echo middleware that resolves the caller identity
// before the handler runs. It inspects only request headers, so rejected
// requests never have their bodies read. On any failure it short-circuits
// with a fixed 401 and the backend is never contacted.
func RequireUser(v auth.Verifier, logger *slog.Logger) echo.MiddlewareFunc {
	log := logger.With("component", "auth_middleware")
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cred := auth.Credential(c.Request())
			if cred == "" {
				return unauthorized(c)
			}

			userID, err := v.Verify(c.Request().Context(), cred)
			if err != nil {
				log.Warn("identity verification failed",
					"err", err,
					"method", c.Request().Method,
					"path", c.Request().URL.Path,
				)
				return unauthorized(c)
			}

			c.Set(userIDKey, userID)
			return next(c)
		}
	}
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Não autorizado"})
}

// UserID returns the caller identity resolved by RequireUser, or empty
// string when the middleware has not run.
func UserID(c echo.Context) string {
	id, _ := c.Get(userIDKey).(string)
	return id
}
