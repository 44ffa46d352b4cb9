package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // Echo web framework used for routing

	"github.com/stagehand/showcall/internal/handler"    // handlers implementing the business logic
	"github.com/stagehand/showcall/internal/middleware" // JWT middleware providing actor identity
)

// RegisterRoutes registers routes that do not require authentication.
// Currently it exposes only a health check for load balancers and
// monitoring.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterRunsheets registers the show-call API under /v1.  Every route
// requires a valid access token: reads are scoped to authenticated
// observers, and mutating calls additionally record the actor identity
// carried by the token in the show-call log.  The cache middleware,
// when enabled, wraps the read-heavy schedule and summary endpoints.
func RegisterRunsheets(e *echo.Echo, h *handler.RunsheetHandler, s *handler.StreamHandler, jwtSecret string, cache echo.MiddlewareFunc) {
	g := e.Group("/v1")
	g.Use(middleware.JWTAuth(jwtSecret))

	g.POST("/runsheets", h.CreateRunsheet)
	g.GET("/runsheets/:id", h.GetRunsheet)
	g.POST("/runsheets/:id/cues", h.AddCue)

	// Lifecycle and live calls all route through the coordinator.
	g.POST("/runsheets/:id/live", h.GoLive)
	g.POST("/runsheets/:id/finish", h.Finish)
	g.POST("/runsheets/:id/call", h.Call)

	// Computed reads.  Observers refetch these when the stream signals
	// a change, so they are cached per runsheet between commits.
	g.GET("/runsheets/:id/schedule", h.Schedule, cache)
	g.GET("/runsheets/:id/summary", h.Summary, cache)
	g.GET("/runsheets/:id/log", h.Log)

	// Realtime observer stream.
	g.GET("/runsheets/:id/stream", s.Stream)
}
