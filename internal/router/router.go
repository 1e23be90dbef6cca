package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/skywatch/drone-investigations/internal/config"
	"github.com/skywatch/drone-investigations/internal/handler"
	"github.com/skywatch/drone-investigations/internal/middleware"
)

// Handlers bundles every handler the router wires up.
type Handlers struct {
	Auth          *handler.AuthHandler
	Profile       *handler.ProfileHandler
	Investigation *handler.InvestigationHandler
	Dashboard     *handler.DashboardHandler
}

// Register wires all routes onto the Echo instance. Sign-up and login
// live under /v1/auth without a session; everything else under /v1
// requires the session cookie. The auth group carries the Redis rate
// limiter, the global feed the Redis response cache; both degrade to
// pass-throughs when rdb is nil.
func Register(e *echo.Echo, h Handlers, cfg config.Config, rdb *redis.Client) {
	// Health check for load balancers and monitoring.
	e.GET("/healthz", handler.Health)

	// Unauthenticated auth operations, rate limited.
	auth := e.Group("/v1/auth")
	auth.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))
	auth.POST("/signup", h.Auth.SignUp)
	auth.POST("/login", h.Auth.Login)
	auth.POST("/logout", h.Auth.Logout)

	// Everything below requires an authenticated session.
	v1 := e.Group("/v1")
	v1.Use(middleware.SessionAuth(cfg.SessionSecret))

	// Profile (the caller's own account).
	v1.GET("/me", h.Profile.Me)
	v1.PUT("/me", h.Profile.Update)
	v1.DELETE("/me", h.Profile.Delete)

	// Dashboard and listings.
	v1.GET("/dashboard", h.Dashboard.Dashboard)
	v1.GET("/investigations", h.Dashboard.ListGrouped)
	v1.GET("/reports", h.Dashboard.ListReports)
	v1.POST("/reports", h.Dashboard.CreateReport)
	v1.GET("/feed", h.Dashboard.FeedList, middleware.NewRedisCache(config.LoadCacheConfig(), rdb))

	// Investigation lifecycle.
	v1.POST("/investigations", h.Investigation.Create)
	v1.GET("/investigations/:id", h.Investigation.Get)
	v1.PUT("/investigations/:id", h.Investigation.Update)
	v1.DELETE("/investigations/:id", h.Investigation.Delete)
	v1.POST("/investigations/:id/status", h.Investigation.UpdateStatus)
	v1.GET("/investigations/:id/live", h.Investigation.Live)
}
