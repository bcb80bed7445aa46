package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/tulgax/studio-booking/internal/queue"
	"github.com/tulgax/studio-booking/internal/repository"
	"github.com/tulgax/studio-booking/internal/service"
)

// StudentHandler bundles the services behind the student-facing
// endpoints.
type StudentHandler struct {
	Booking     *service.BookingService
	Membership  *service.MembershipService
	Bookings    *repository.BookingRepo
	Instances   *repository.InstanceRepo
	Classes     *repository.ClassRepo
	Studios     *repository.StudioRepo
	Memberships *repository.MembershipRepo
}

// NewStudentHandler constructs a StudentHandler and panics when a
// dependency is missing.
func NewStudentHandler(
	booking *service.BookingService,
	membership *service.MembershipService,
	bookings *repository.BookingRepo,
	instances *repository.InstanceRepo,
	classes *repository.ClassRepo,
	studios *repository.StudioRepo,
	memberships *repository.MembershipRepo,
) *StudentHandler {
	if booking == nil || membership == nil || bookings == nil || instances == nil ||
		classes == nil || studios == nil || memberships == nil {
		panic("nil dependency passed to NewStudentHandler")
	}
	return &StudentHandler{
		Booking:     booking,
		Membership:  membership,
		Bookings:    bookings,
		Instances:   instances,
		Classes:     classes,
		Studios:     studios,
		Memberships: memberships,
	}
}

// CreateBooking handles POST /v1/bookings. On success a
// booking.confirmed event is published for downstream consumers;
// broker failures never fail the booking.
func (h *StudentHandler) CreateBooking(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body struct {
		InstanceID uint64 `json:"instance_id"`
	}
	if err := c.Bind(&body); err != nil || body.InstanceID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "instance_id is required"})
	}

	b, err := h.Booking.Book(c.Request().Context(), uid, body.InstanceID)
	if err != nil {
		return serviceError(c, err)
	}

	go h.publishBookingConfirmed(b.ID, uid, body.InstanceID)

	return c.JSON(http.StatusCreated, b)
}

func (h *StudentHandler) publishBookingConfirmed(bookingID, studentID, instanceID uint64) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	ev := queue.BookingConfirmedEvent{
		BookingID:   bookingID,
		StudentID:   studentID,
		InstanceID:  instanceID,
		ConfirmedAt: time.Now().UTC().Format(time.RFC3339),
	}
	// Enrich best-effort; a bare event is still worth publishing.
	if inst, err := h.Instances.GetByID(ctx, instanceID); err == nil {
		ev.ClassID = inst.ClassID
		ev.StartsAt = inst.StartsAt.UTC().Format(time.RFC3339)
		ev.EndsAt = inst.EndsAt.UTC().Format(time.RFC3339)
		if class, err := h.Classes.GetByID(ctx, inst.ClassID); err == nil {
			ev.ClassName = class.Name
			ev.StudioID = class.StudioID
			ev.PriceCents = class.PriceCents
			ev.Currency = class.Currency
			if studio, err := h.Studios.GetByID(ctx, class.StudioID); err == nil {
				ev.StudioName = studio.Name
			}
		}
	}
	_ = queue.PublishBookingConfirmed(ctx, ev)
}

// CancelBooking handles DELETE /v1/bookings/:id. Only the owning
// student may cancel; the freed spot becomes bookable immediately.
func (h *StudentHandler) CancelBooking(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	b, err := h.Booking.Cancel(c.Request().Context(), uid, id)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, b)
}

// MyBookings handles GET /v1/bookings.
func (h *StudentHandler) MyBookings(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	items, err := h.Bookings.ListByStudent(c.Request().Context(), uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}
