package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/tulgax/studio-booking/internal/model"
	"github.com/tulgax/studio-booking/internal/repository"
)

// CreateStudio handles POST /v1/studios. The authenticated owner
// becomes the studio's owner.
func (h *OperatorHandler) CreateStudio(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body struct {
		Name     string `json:"name"`
		Timezone string `json:"timezone"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	name := strings.TrimSpace(body.Name)
	if name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
	}
	tz := strings.TrimSpace(body.Timezone)
	if tz == "" {
		tz = "UTC"
	}
	if _, err := time.LoadLocation(tz); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown timezone"})
	}
	studio := &model.Studio{OwnerID: uid, Name: name, Timezone: tz, IsActive: true}
	if err := h.Studios.Create(c.Request().Context(), studio); err != nil {
		if strings.Contains(err.Error(), "1062") {
			return c.JSON(http.StatusConflict, echo.Map{"error": "studio name already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not create studio"})
	}
	return c.JSON(http.StatusCreated, studio)
}

// UpdateStudio handles PUT /v1/studios/:id. Only the owner may change
// a studio; managers operate content, not the studio record itself.
func (h *OperatorHandler) UpdateStudio(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var body struct {
		Name     *string `json:"name"`
		Timezone *string `json:"timezone"`
		IsActive *bool   `json:"is_active"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	studio, err := h.Studios.GetByIDAndOwner(c.Request().Context(), id, uid)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "studio not found"})
		case errors.Is(err, repository.ErrForbidden):
			return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
		}
	}
	if body.Name != nil {
		if n := strings.TrimSpace(*body.Name); n != "" {
			studio.Name = n
		}
	}
	if body.Timezone != nil {
		tz := strings.TrimSpace(*body.Timezone)
		if _, err := time.LoadLocation(tz); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown timezone"})
		}
		studio.Timezone = tz
	}
	if body.IsActive != nil {
		studio.IsActive = *body.IsActive
	}
	if err := h.Studios.Update(c.Request().Context(), studio); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	return c.JSON(http.StatusOK, studio)
}

// AddManager handles POST /v1/studios/:id/managers and grants another
// user operator access. Owner-only.
func (h *OperatorHandler) AddManager(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var body struct {
		UserID uint64 `json:"user_id"`
	}
	if err := c.Bind(&body); err != nil || body.UserID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "user_id is required"})
	}
	if _, err := h.Studios.GetByIDAndOwner(c.Request().Context(), id, uid); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "studio not found"})
		case errors.Is(err, repository.ErrForbidden):
			return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
		}
	}
	if err := h.Studios.AddManager(c.Request().Context(), id, body.UserID); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not add manager"})
	}
	return c.NoContent(http.StatusNoContent)
}

// StudioCalendar handles GET /v1/studios/:id/calendar and returns
// every instance in the requested window, cancelled ones included.
// Defaults to the next 28 days.
func (h *OperatorHandler) StudioCalendar(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	if _, ok := h.requireOperator(c, id); !ok {
		return nil
	}
	from := time.Now().UTC()
	until := from.AddDate(0, 0, 28)
	if v := c.QueryParam("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid from"})
		}
		from = t
	}
	if v := c.QueryParam("until"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid until"})
		}
		until = t
	}
	items, err := h.Instances.ListByStudio(c.Request().Context(), id, from, until)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}
