package router

import (
	"github.com/labstack/echo/v4"

	"github.com/tulgax/studio-booking/internal/handler"
	"github.com/tulgax/studio-booking/internal/middleware"
	"github.com/tulgax/studio-booking/internal/model"
)

// RegisterOperator registers the studio-operator endpoints under /v1.
// All routes require a valid JWT with the OWNER or MANAGER role;
// per-studio access is checked in the handlers against ownership and
// the manager list.
func RegisterOperator(e *echo.Echo, o *handler.OperatorHandler, jwtSecret string) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleOwner, model.RoleManager),
	)

	// ---- Studios ----
	g.POST("/studios", o.CreateStudio)
	g.PUT("/studios/:id", o.UpdateStudio)
	g.POST("/studios/:id/managers", o.AddManager)
	g.GET("/studios/:id/calendar", o.StudioCalendar)
	// NOTE: GET /v1/studios/:id/classes is the public browse route; the
	// operator view, inactive classes included, lives under /all.
	g.GET("/studios/:id/classes/all", o.ListStudioClasses)

	// ---- Classes ----
	g.POST("/classes", o.CreateClass)
	g.PUT("/classes/:id", o.UpdateClass)
	g.PUT("/classes/:id/shape", o.UpdateClassShape)
	g.PUT("/classes/:id/active", o.SetClassActive)

	// ---- Scheduling ----
	g.POST("/classes/:id/schedule", o.ScheduleClass)
	g.GET("/classes/:id/rules", o.ListClassRules)
	g.POST("/classes/:id/rules/deactivate", o.DeactivateRules)
	g.POST("/classes/:id/instances/cancel", o.CancelFutureInstances)
	g.POST("/classes/:id/cancel-all", o.CancelAllFuture)
	g.PUT("/instances/:id", o.RescheduleInstance)
	g.DELETE("/instances/:id", o.RemoveInstance)
	g.GET("/instances/:id/roster", o.InstanceRoster)
	g.POST("/bookings/:id/attended", o.MarkAttendance)

	// ---- Memberships ----
	g.POST("/plans", o.CreatePlan)
	g.PUT("/plans/:id/active", o.SetPlanActive)
	g.POST("/studios/:id/checkins", o.CheckIn)
	g.GET("/studios/:id/memberships", o.ListStudioMemberships)
	g.GET("/memberships/:id/checkins", o.CheckInHistory)
	g.POST("/memberships/:id/expire", o.ForceExpire)
	g.POST("/memberships/sweep", o.SweepExpired)
}
