package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/stylistai/auth-service/internal/auth"
)

// SessionAuth returns an Echo middleware that resolves an opaque Bearer
// session token through the authentication service and injects the owning
// user ID into the request context. Resolution happens once per request;
// there is no process-wide "current user". Handlers downstream read the
// principal via c.Get("user_id") and the raw token via c.Get("session_id").
func SessionAuth(svc *auth.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			token := strings.TrimPrefix(header, "Bearer ")

			userID, ok := svc.Validate(c.Request().Context(), token)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or expired session"})
			}

			c.Set("user_id", userID)
			c.Set("session_id", token)
			return next(c)
		}
	}
}
