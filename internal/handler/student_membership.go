package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/tulgax/studio-booking/internal/model"
	"github.com/tulgax/studio-booking/internal/queue"
)

// PurchaseMembership handles POST /v1/memberships.
func (h *StudentHandler) PurchaseMembership(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body struct {
		PlanID   uint64 `json:"plan_id"`
		StudioID uint64 `json:"studio_id"`
	}
	if err := c.Bind(&body); err != nil || body.PlanID == 0 || body.StudioID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "plan_id and studio_id are required"})
	}
	m, err := h.Membership.Purchase(c.Request().Context(), uid, body.PlanID, body.StudioID)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"id":           m.ID,
		"plan_id":      m.PlanID,
		"studio_id":    m.StudioID,
		"purchased_at": m.PurchasedAt,
		"expires_at":   m.ExpiresAt,
		"status":       m.Status,
		"checkin_code": m.CheckinCode,
	})
}

// MyMemberships handles GET /v1/memberships.
func (h *StudentHandler) MyMemberships(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	items, err := h.Memberships.ListByStudent(c.Request().Context(), uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// SelfCheckIn handles POST /v1/studios/:id/checkins/self: a student at
// a kiosk scanning their code or typing their membership id. No actor
// is recorded for self-service entries.
func (h *StudentHandler) SelfCheckIn(c echo.Context) error {
	studioID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var body struct {
		Code         string `json:"code"`
		MembershipID uint64 `json:"membership_id"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	code := strings.TrimSpace(body.Code)
	if code == "" && body.MembershipID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "code or membership_id required"})
	}

	if code != "" {
		r, err := h.Membership.CheckInByCode(c.Request().Context(), studioID, code, nil)
		if err != nil {
			return serviceError(c, err)
		}
		go publishSelfCheckIn(studioID, r.MembershipID, r.StudentName, model.CheckInScanned, r.CheckedInAt)
		return c.JSON(http.StatusCreated, echo.Map{
			"membership_id": r.MembershipID,
			"student_name":  r.StudentName,
			"checked_in_at": r.CheckedInAt,
		})
	}
	r, err := h.Membership.CheckInByID(c.Request().Context(), studioID, body.MembershipID, nil)
	if err != nil {
		return serviceError(c, err)
	}
	go publishSelfCheckIn(studioID, r.MembershipID, r.StudentName, model.CheckInManualID, r.CheckedInAt)
	return c.JSON(http.StatusCreated, echo.Map{
		"membership_id": r.MembershipID,
		"student_name":  r.StudentName,
		"checked_in_at": r.CheckedInAt,
	})
}

func publishSelfCheckIn(studioID, membershipID uint64, studentName string, method model.CheckInMethod, at time.Time) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	_ = queue.PublishCheckInRecorded(ctx, queue.CheckInRecordedEvent{
		MembershipID: membershipID,
		StudioID:     studioID,
		StudentName:  studentName,
		Method:       string(method),
		RecordedAt:   at.UTC().Format(time.RFC3339),
	})
}
