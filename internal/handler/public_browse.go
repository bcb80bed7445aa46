package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/tulgax/studio-booking/internal/repository"
)

// PublicHandler serves the unauthenticated browse surface: studios,
// their active classes and plans, and upcoming bookable sessions.
type PublicHandler struct {
	Studios   *repository.StudioRepo
	Classes   *repository.ClassRepo
	Instances *repository.InstanceRepo
	Plans     *repository.PlanRepo
}

// NewPublicHandler constructs a PublicHandler and panics when a
// dependency is missing.
func NewPublicHandler(studios *repository.StudioRepo, classes *repository.ClassRepo, instances *repository.InstanceRepo, plans *repository.PlanRepo) *PublicHandler {
	if studios == nil || classes == nil || instances == nil || plans == nil {
		panic("nil repository passed to NewPublicHandler")
	}
	return &PublicHandler{Studios: studios, Classes: classes, Instances: instances, Plans: plans}
}

// ListStudios handles GET /v1/studios.
func (h *PublicHandler) ListStudios(c echo.Context) error {
	items, err := h.Studios.ListActive(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// ListStudioClasses handles GET /v1/studios/:id/classes. Only active
// classes are visible to guests.
func (h *PublicHandler) ListStudioClasses(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	items, err := h.Classes.ListByStudio(c.Request().Context(), id, true)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// ListClassSessions handles GET /v1/classes/:id/sessions and returns
// the scheduled future instances with their free-spot counts.
func (h *PublicHandler) ListClassSessions(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	items, err := h.Instances.ListUpcomingByClass(c.Request().Context(), id, time.Now().UTC())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// ListStudioPlans handles GET /v1/studios/:id/plans. Only plans open
// for purchase are shown.
func (h *PublicHandler) ListStudioPlans(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	items, err := h.Plans.ListByStudio(c.Request().Context(), id, true)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}
