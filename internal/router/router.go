package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/stylistai/auth-service/internal/auth"
	"github.com/stylistai/auth-service/internal/config"
	"github.com/stylistai/auth-service/internal/handler"
	"github.com/stylistai/auth-service/internal/middleware"
)

// RegisterRoutes wires up the full HTTP surface: the health check, the
// unauthenticated auth endpoints behind the Redis token bucket, and the
// session-guarded group. Passing a nil Redis client disables rate
// limiting but changes nothing else.
func RegisterRoutes(e *echo.Echo, h *handler.AuthHandler, svc *auth.Service, rlCfg config.RateLimitConfig, rdb *redis.Client) {
	e.GET("/healthz", handler.Health)

	// Endpoints reachable without a session. Login, registration and the
	// reset flow are the abuse targets, so the token bucket sits here.
	limited := middleware.NewTokenBucket(rlCfg, rdb)
	g := e.Group("/v1/auth")
	g.POST("/register", h.Register, limited)
	g.POST("/login", h.Login, limited)
	g.POST("/logout", h.Logout)
	g.POST("/password-reset", h.BeginPasswordReset, limited)
	g.POST("/password-reset/confirm", h.CompletePasswordReset, limited)

	// Session-guarded endpoints. The guard resolves the bearer token once
	// per request and injects the principal into the context.
	authed := e.Group("/v1")
	authed.Use(middleware.SessionAuth(svc))
	authed.GET("/me", h.Me)

	admin := authed.Group("/admin")
	admin.Use(middleware.RequireAdmin(svc))
	admin.GET("/audit-events", h.RecentAuditEvents)
}
