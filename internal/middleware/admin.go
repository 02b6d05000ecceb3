package middleware // middleware provides shared request processing for handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/stylistai/auth-service/internal/auth"
)

// RequireAdmin returns a middleware that rejects requests from non-admin
// principals with 403. It assumes SessionAuth already ran and stored the
// user ID under "user_id". The admin flag is looked up in the credential
// store on every request; the service performs the same check again on the
// audit read itself, so the gate here only saves work for rejected calls.
func RequireAdmin(svc *auth.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userID, ok := c.Get("user_id").(string)
			if !ok || userID == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
			}
			if !svc.IsAdmin(c.Request().Context(), userID) {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
			}
			return next(c)
		}
	}
}
