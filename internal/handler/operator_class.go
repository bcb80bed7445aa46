package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/tulgax/studio-booking/internal/model"
	"github.com/tulgax/studio-booking/internal/repository"
)

type createClassReq struct {
	StudioID    uint64  `json:"studio_id" validate:"required"`
	Name        string  `json:"name" validate:"required"`
	Description *string `json:"description"`
	DurationMin uint32  `json:"duration_min" validate:"required,gt=0"`
	Capacity    uint32  `json:"capacity" validate:"required,gt=0"`
	PriceCents  uint32  `json:"price_cents"`
	Currency    string  `json:"currency" validate:"omitempty,len=3"`
}

// CreateClass handles POST /v1/classes.
func (h *OperatorHandler) CreateClass(c echo.Context) error {
	var req createClassReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "studio_id, name, duration_min and capacity are required"})
	}
	if _, ok := h.requireOperator(c, req.StudioID); !ok {
		return nil
	}
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = "USD"
	}
	class := &model.Class{
		StudioID:    req.StudioID,
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		DurationMin: req.DurationMin,
		Capacity:    req.Capacity,
		PriceCents:  req.PriceCents,
		Currency:    currency,
		IsActive:    true,
	}
	if err := h.Classes.Create(c.Request().Context(), class); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not create class"})
	}
	return c.JSON(http.StatusCreated, class)
}

// loadOperatedClass fetches the class and verifies operator access to
// its studio. A nil class means the response was already written.
func (h *OperatorHandler) loadOperatedClass(c echo.Context) *model.Class {
	id, err := pathID(c, "id")
	if err != nil {
		_ = c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
		return nil
	}
	class, err := h.Classes.GetByID(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			_ = c.JSON(http.StatusNotFound, echo.Map{"error": "class not found"})
		} else {
			_ = c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
		}
		return nil
	}
	if _, ok := h.requireOperator(c, class.StudioID); !ok {
		return nil
	}
	return class
}

// UpdateClass handles PUT /v1/classes/:id for the always-editable
// fields: name, description and price.
func (h *OperatorHandler) UpdateClass(c echo.Context) error {
	class := h.loadOperatedClass(c)
	if class == nil {
		return nil
	}
	var body struct {
		Name        *string `json:"name"`
		Description *string `json:"description"`
		PriceCents  *uint32 `json:"price_cents"`
		Currency    *string `json:"currency"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.Name != nil {
		if n := strings.TrimSpace(*body.Name); n != "" {
			class.Name = n
		}
	}
	if body.Description != nil {
		class.Description = body.Description
	}
	if body.PriceCents != nil {
		class.PriceCents = *body.PriceCents
	}
	if body.Currency != nil {
		cur := strings.ToUpper(strings.TrimSpace(*body.Currency))
		if len(cur) != 3 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "currency must be a 3-letter code"})
		}
		class.Currency = cur
	}
	if err := h.Classes.UpdateDescriptive(c.Request().Context(), class.ID, class.Name, class.Description, class.PriceCents, class.Currency); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	return c.JSON(http.StatusOK, class)
}

// UpdateClassShape handles PUT /v1/classes/:id/shape. Duration and
// capacity freeze once any instance exists.
func (h *OperatorHandler) UpdateClassShape(c echo.Context) error {
	class := h.loadOperatedClass(c)
	if class == nil {
		return nil
	}
	var body struct {
		DurationMin uint32 `json:"duration_min"`
		Capacity    uint32 `json:"capacity"`
	}
	if err := c.Bind(&body); err != nil || body.DurationMin == 0 || body.Capacity == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "duration_min and capacity must be positive"})
	}
	err := h.Classes.UpdateShape(c.Request().Context(), class.ID, body.DurationMin, body.Capacity)
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "class already has scheduled instances"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	class.DurationMin = body.DurationMin
	class.Capacity = body.Capacity
	return c.JSON(http.StatusOK, class)
}

// SetClassActive handles PUT /v1/classes/:id/active. Deactivating
// blocks new scheduling only; existing instances and bookings stand.
func (h *OperatorHandler) SetClassActive(c echo.Context) error {
	class := h.loadOperatedClass(c)
	if class == nil {
		return nil
	}
	var body struct {
		IsActive *bool `json:"is_active"`
	}
	if err := c.Bind(&body); err != nil || body.IsActive == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "is_active is required"})
	}
	if err := h.Classes.SetActive(c.Request().Context(), class.ID, *body.IsActive); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	class.IsActive = *body.IsActive
	return c.JSON(http.StatusOK, class)
}

// ListStudioClasses handles GET /v1/studios/:id/classes for operators:
// inactive classes are included.
func (h *OperatorHandler) ListStudioClasses(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	if _, ok := h.requireOperator(c, id); !ok {
		return nil
	}
	items, err := h.Classes.ListByStudio(c.Request().Context(), id, false)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}
