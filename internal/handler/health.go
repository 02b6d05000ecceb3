package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Health reports process liveness for load balancers and uptime probes.
// It deliberately touches no dependency: a database or broker outage is
// a degraded state, not a reason to restart the process.
func Health(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"status": "ok", "service": "auth"})
}
