package router

import (
	"github.com/labstack/echo/v4"

	"github.com/tulgax/studio-booking/internal/handler"
	"github.com/tulgax/studio-booking/internal/middleware"
	"github.com/tulgax/studio-booking/internal/model"
)

// RegisterStudent registers the student-facing endpoints under /v1.
// All routes require a valid JWT with the STUDENT role.
func RegisterStudent(e *echo.Echo, s *handler.StudentHandler, jwtSecret string) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleStudent),
	)

	// ---- Bookings ----
	g.POST("/bookings", s.CreateBooking)
	g.GET("/bookings", s.MyBookings)
	g.DELETE("/bookings/:id", s.CancelBooking)

	// ---- Memberships ----
	g.POST("/memberships", s.PurchaseMembership)
	g.GET("/memberships", s.MyMemberships)
}
