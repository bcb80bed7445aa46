package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/tulgax/studio-booking/internal/model"
	"github.com/tulgax/studio-booking/internal/queue"
	"github.com/tulgax/studio-booking/internal/service"
)

type createPlanReq struct {
	StudioID       uint64 `json:"studio_id" validate:"required"`
	Name           string `json:"name" validate:"required"`
	DurationMonths uint32 `json:"duration_months" validate:"required,gt=0"`
	PriceCents     uint32 `json:"price_cents"`
	Currency       string `json:"currency" validate:"omitempty,len=3"`
}

// CreatePlan handles POST /v1/plans.
func (h *OperatorHandler) CreatePlan(c echo.Context) error {
	var req createPlanReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "studio_id, name and duration_months are required"})
	}
	if _, ok := h.requireOperator(c, req.StudioID); !ok {
		return nil
	}
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = "USD"
	}
	plan := &model.MembershipPlan{
		StudioID:       req.StudioID,
		Name:           strings.TrimSpace(req.Name),
		DurationMonths: req.DurationMonths,
		PriceCents:     req.PriceCents,
		Currency:       currency,
		IsActive:       true,
	}
	if err := h.Plans.Create(c.Request().Context(), plan); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not create plan"})
	}
	return c.JSON(http.StatusCreated, plan)
}

// SetPlanActive handles PUT /v1/plans/:id/active. Deactivating a plan
// blocks new purchases only.
func (h *OperatorHandler) SetPlanActive(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	plan, err := h.Plans.GetByID(c.Request().Context(), id)
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "plan not found"})
	}
	if _, ok := h.requireOperator(c, plan.StudioID); !ok {
		return nil
	}
	var body struct {
		IsActive *bool `json:"is_active"`
	}
	if err := c.Bind(&body); err != nil || body.IsActive == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "is_active is required"})
	}
	if err := h.Plans.SetActive(c.Request().Context(), id, *body.IsActive); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	plan.IsActive = *body.IsActive
	return c.JSON(http.StatusOK, plan)
}

// CheckIn handles POST /v1/studios/:id/checkins for staff at the
// front desk. The body carries either a scanned code or a numeric
// membership id.
func (h *OperatorHandler) CheckIn(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	studioID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	if err := h.Membership.AuthorizeOperator(c.Request().Context(), actor, studioID); err != nil {
		return serviceError(c, err)
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

	actorID := actor.UserID
	var res *service.CheckInResult
	if code != "" {
		res, err = h.Membership.CheckInByCode(c.Request().Context(), studioID, code, &actorID)
	} else {
		res, err = h.Membership.CheckInByID(c.Request().Context(), studioID, body.MembershipID, &actorID)
	}
	if err != nil {
		return serviceError(c, err)
	}

	// Broker failures must never fail the door flow; the publisher
	// logs and the error is dropped.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = queue.PublishCheckInRecorded(ctx, queue.CheckInRecordedEvent{
			MembershipID: res.MembershipID,
			StudioID:     studioID,
			StudentName:  res.StudentName,
			Method:       string(model.CheckInOperator),
			RecordedAt:   res.CheckedInAt.UTC().Format(time.RFC3339),
		})
	}()

	return c.JSON(http.StatusCreated, echo.Map{
		"membership_id": res.MembershipID,
		"student_name":  res.StudentName,
		"checked_in_at": res.CheckedInAt,
	})
}

// ForceExpire handles POST /v1/memberships/:id/expire.
func (h *OperatorHandler) ForceExpire(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	if err := h.Membership.ForceExpire(c.Request().Context(), actor, id); err != nil {
		return serviceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// SweepExpired handles POST /v1/memberships/sweep and runs the stale
// membership sweep on demand. Also invoked periodically from main.
func (h *OperatorHandler) SweepExpired(c echo.Context) error {
	n, err := h.Membership.ExpireStale(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "sweep failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"expired": n})
}

// ListStudioMemberships handles GET /v1/studios/:id/memberships.
func (h *OperatorHandler) ListStudioMemberships(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	if _, ok := h.requireOperator(c, id); !ok {
		return nil
	}
	infos, err := h.Memberships.ListByStudio(c.Request().Context(), id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	items := make([]echo.Map, 0, len(infos))
	for _, info := range infos {
		items = append(items, echo.Map{
			"id":           info.Membership.ID,
			"student_id":   info.Membership.StudentID,
			"student_name": info.StudentName,
			"plan_id":      info.Membership.PlanID,
			"purchased_at": info.Membership.PurchasedAt,
			"expires_at":   info.Membership.ExpiresAt,
			"status":       info.Membership.Status,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// CheckInHistory handles GET /v1/memberships/:id/checkins.
func (h *OperatorHandler) CheckInHistory(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	info, err := h.Memberships.GetByID(c.Request().Context(), id)
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "membership not found"})
	}
	if _, ok := h.requireOperator(c, info.Membership.StudioID); !ok {
		return nil
	}
	limit := 50
	if v := c.QueryParam("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}
	items, err := h.CheckIns.ListByMembership(c.Request().Context(), id, limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	// Rolling visit count for the front-desk usage view.
	recent, err := h.CheckIns.CountSince(c.Request().Context(), id, time.Now().UTC().AddDate(0, 0, -30))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items, "visits_last_30d": recent})
}
