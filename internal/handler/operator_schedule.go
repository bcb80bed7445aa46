package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/tulgax/studio-booking/internal/repository"
	"github.com/tulgax/studio-booking/internal/schedule"
	"github.com/tulgax/studio-booking/internal/service"
)

type scheduleReq struct {
	InstructorID *uint64   `json:"instructor_id"`
	StartsAt     time.Time `json:"starts_at" validate:"required"`
	Repeat       string    `json:"repeat"`   // none | weekly
	Weekdays     []int     `json:"weekdays"` // 0=Sunday .. 6=Saturday
}

// ScheduleClass handles POST /v1/classes/:id/schedule. A one-off
// request creates a single instance; a weekly request expands over the
// 28-day horizon and records the recurrence rules.
func (h *OperatorHandler) ScheduleClass(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	classID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req scheduleReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "starts_at is required"})
	}
	mode := schedule.RepeatMode(req.Repeat)
	if req.Repeat == "" {
		mode = schedule.RepeatNone
	}
	days := make([]time.Weekday, 0, len(req.Weekdays))
	for _, d := range req.Weekdays {
		if d < 0 || d > 6 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "weekdays must be 0-6"})
		}
		days = append(days, time.Weekday(d))
	}

	res, err := h.Scheduling.ScheduleClass(c.Request().Context(), actor, service.ScheduleRequest{
		ClassID:      classID,
		InstructorID: req.InstructorID,
		StartsAt:     req.StartsAt.UTC(),
		Mode:         mode,
		Days:         days,
	})
	if err != nil {
		switch {
		case errors.Is(err, schedule.ErrInvalidMode), errors.Is(err, schedule.ErrNoWeekdays), errors.Is(err, schedule.ErrInvalidDuration):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
		default:
			return serviceError(c, err)
		}
	}
	resp := echo.Map{
		"instances_created": res.InstancesCreated,
		"rules_created":     res.RulesCreated,
	}
	if res.RulesCreated > 0 {
		resp["rule_group_id"] = res.GroupID
	}
	return c.JSON(http.StatusCreated, resp)
}

// RemoveInstance handles DELETE /v1/instances/:id. The response tells
// the operator which transition was taken: an empty instance is
// deleted outright, a booked one is soft-cancelled.
func (h *OperatorHandler) RemoveInstance(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	outcome, err := h.Scheduling.RemoveInstance(c.Request().Context(), actor, id)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"outcome": outcome})
}

// RescheduleInstance handles PUT /v1/instances/:id.
func (h *OperatorHandler) RescheduleInstance(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var body struct {
		StartsAt     time.Time `json:"starts_at"`
		InstructorID *uint64   `json:"instructor_id"`
	}
	if err := c.Bind(&body); err != nil || body.StartsAt.IsZero() {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "starts_at is required"})
	}
	if err := h.Scheduling.Reschedule(c.Request().Context(), actor, id, body.StartsAt.UTC(), body.InstructorID); err != nil {
		return serviceError(c, err)
	}
	inst, err := h.Instances.GetByID(c.Request().Context(), id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, inst)
}

// DeactivateRules handles POST /v1/classes/:id/rules/deactivate. Stops
// the weekly pattern without touching generated instances.
func (h *OperatorHandler) DeactivateRules(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	classID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	n, err := h.Scheduling.DeactivateRules(c.Request().Context(), actor, classID)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"rules_deactivated": n})
}

// CancelFutureInstances handles POST /v1/classes/:id/instances/cancel.
func (h *OperatorHandler) CancelFutureInstances(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	classID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	n, err := h.Scheduling.CancelFutureInstances(c.Request().Context(), actor, classID)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"instances_cancelled": n})
}

// CancelAllFuture handles POST /v1/classes/:id/cancel-all: the
// composite of rule deactivation and future-instance cancellation.
func (h *OperatorHandler) CancelAllFuture(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	classID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	res, err := h.Scheduling.CancelAllFuture(c.Request().Context(), actor, classID)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"rules_deactivated":   res.RulesDeactivated,
		"instances_cancelled": res.InstancesCancelled,
	})
}

// ListClassRules handles GET /v1/classes/:id/rules.
func (h *OperatorHandler) ListClassRules(c echo.Context) error {
	class := h.loadOperatedClass(c)
	if class == nil {
		return nil
	}
	items, err := h.Rules.ListByClass(c.Request().Context(), class.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// MarkAttendance handles POST /v1/bookings/:id/attended. Front-desk
// staff stamp a booking when the student shows up; the stamp appears
// on the roster and in the student's own booking list.
func (h *OperatorHandler) MarkAttendance(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	b, err := h.Bookings.GetByID(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	inst, err := h.Instances.GetByID(c.Request().Context(), b.InstanceID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	class, err := h.Classes.GetByID(c.Request().Context(), inst.ClassID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	if _, ok := h.requireOperator(c, class.StudioID); !ok {
		return nil
	}
	at := time.Now().UTC()
	if err := h.Bookings.MarkAttended(c.Request().Context(), id, at); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "booking is cancelled or already marked"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"booking_id": id, "checked_in_at": at})
}

// InstanceRoster handles GET /v1/instances/:id/roster and lists the
// confirmed bookings with student names.
func (h *OperatorHandler) InstanceRoster(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	inst, err := h.Instances.GetByID(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "instance not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	class, err := h.Classes.GetByID(c.Request().Context(), inst.ClassID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	if _, ok := h.requireOperator(c, class.StudioID); !ok {
		return nil
	}
	items, err := h.Bookings.ListForInstance(c.Request().Context(), id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}
