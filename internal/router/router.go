// Package router wires HTTP routes to their handlers and middleware.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/tulgax/studio-booking/internal/handler"
	"github.com/tulgax/studio-booking/internal/middleware"
	"github.com/tulgax/studio-booking/internal/model"
)

// RegisterRoutes registers routes that need no authentication beyond
// what the handler itself enforces.
func RegisterRoutes(e *echo.Echo) {
	// Liveness probe for load balancers and monitoring.
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers the authentication endpoints. Unauthenticated
// operations live under /v1/auth, protected ones under /v1.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/logout", a.Logout)

	auth := e.Group("/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleOwner, model.RoleManager, model.RoleStudent),
	)
	auth.GET("/me", a.Me)
	auth.POST("/logout-all", a.LogoutAll)
}

// RegisterPublic registers the unauthenticated browse surface plus the
// kiosk self check-in, whose credential is the membership code itself.
// Extra middleware (typically the response cache) applies to the whole
// group; the cache config only matches GET, so the check-in POST is
// never served stale.
func RegisterPublic(e *echo.Echo, p *handler.PublicHandler, s *handler.StudentHandler, mw ...echo.MiddlewareFunc) {
	g := e.Group("/v1", mw...)
	g.GET("/studios", p.ListStudios)
	g.GET("/studios/:id/classes", p.ListStudioClasses)
	g.GET("/studios/:id/plans", p.ListStudioPlans)
	g.GET("/classes/:id/sessions", p.ListClassSessions)
	g.POST("/studios/:id/checkins/self", s.SelfCheckIn)
}
