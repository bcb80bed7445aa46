package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/tulgax/studio-booking/internal/repository"
	"github.com/tulgax/studio-booking/internal/service"
)

// OperatorHandler bundles the repositories and services behind the
// studio-operator endpoints.
type OperatorHandler struct {
	Studios     *repository.StudioRepo
	Classes     *repository.ClassRepo
	Rules       *repository.RuleRepo
	Instances   *repository.InstanceRepo
	Bookings    *repository.BookingRepo
	Plans       *repository.PlanRepo
	Memberships *repository.MembershipRepo
	CheckIns    *repository.CheckInRepo
	Scheduling  *service.SchedulingService
	Membership  *service.MembershipService
}

// NewOperatorHandler constructs an OperatorHandler and panics when a
// dependency is missing.
func NewOperatorHandler(
	studios *repository.StudioRepo,
	classes *repository.ClassRepo,
	rules *repository.RuleRepo,
	instances *repository.InstanceRepo,
	bookings *repository.BookingRepo,
	plans *repository.PlanRepo,
	memberships *repository.MembershipRepo,
	checkins *repository.CheckInRepo,
	scheduling *service.SchedulingService,
	membership *service.MembershipService,
) *OperatorHandler {
	if studios == nil || classes == nil || rules == nil || instances == nil ||
		bookings == nil || plans == nil || memberships == nil || checkins == nil ||
		scheduling == nil || membership == nil {
		panic("nil dependency passed to NewOperatorHandler")
	}
	return &OperatorHandler{
		Studios:     studios,
		Classes:     classes,
		Rules:       rules,
		Instances:   instances,
		Bookings:    bookings,
		Plans:       plans,
		Memberships: memberships,
		CheckIns:    checkins,
		Scheduling:  scheduling,
		Membership:  membership,
	}
}

// requireOperator verifies the caller may act for the studio and
// writes the error response itself on failure. The bool tells the
// handler whether to continue.
func (h *OperatorHandler) requireOperator(c echo.Context, studioID uint64) (uint64, bool) {
	uid, err := getUserID(c)
	if err != nil {
		_ = c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
		return 0, false
	}
	ok, err := h.Studios.IsOperator(c.Request().Context(), studioID, uid)
	if err != nil {
		_ = c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
		return 0, false
	}
	if !ok {
		_ = c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
		return 0, false
	}
	return uid, true
}
