package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/tulgax/studio-booking/internal/model"
	"github.com/tulgax/studio-booking/internal/service"
)

// getUserID extracts the user_id set by the JWT middleware and
// converts it to uint64. JWT numeric claims decode as float64, so all
// plausible representations are accepted.
func getUserID(c echo.Context) (uint64, error) {
	v := c.Get("user_id")
	switch t := v.(type) {
	case uint64:
		return t, nil
	case int:
		return uint64(t), nil
	case int64:
		return uint64(t), nil
	case float64:
		return uint64(t), nil
	case string:
		if n, err := strconv.ParseUint(t, 10, 64); err == nil {
			return n, nil
		}
	}
	return 0, errors.New("invalid user_id in context")
}

// actorFrom builds the explicit actor passed into service calls from
// the claims the JWT middleware stored on the context.
func actorFrom(c echo.Context) (model.Actor, error) {
	uid, err := getUserID(c)
	if err != nil {
		return model.Actor{}, err
	}
	role, _ := c.Get("role").(string)
	return model.Actor{UserID: uid, Role: role}, nil
}

// pathID parses a numeric path parameter.
func pathID(c echo.Context, name string) (uint64, error) {
	return strconv.ParseUint(c.Param(name), 10, 64)
}

// serviceError maps the service layer's sentinel errors onto HTTP
// responses. Unknown errors become an opaque 500.
func serviceError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	case errors.Is(err, service.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	case errors.Is(err, service.ErrClassInactive):
		return c.JSON(http.StatusConflict, echo.Map{"error": "class is inactive"})
	case errors.Is(err, service.ErrNoSessions):
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "no upcoming sessions generated"})
	case errors.Is(err, service.ErrAlreadyBooked):
		return c.JSON(http.StatusConflict, echo.Map{"error": "already booked"})
	case errors.Is(err, service.ErrAtCapacity):
		return c.JSON(http.StatusConflict, echo.Map{"error": "class is at capacity"})
	case errors.Is(err, service.ErrInstanceCancelled):
		return c.JSON(http.StatusConflict, echo.Map{"error": "session is cancelled"})
	case errors.Is(err, service.ErrAlreadyCancelled):
		return c.JSON(http.StatusConflict, echo.Map{"error": "already cancelled"})
	case errors.Is(err, service.ErrPastInstance):
		return c.JSON(http.StatusConflict, echo.Map{"error": "cannot update past class instances"})
	case errors.Is(err, service.ErrPlanInactive):
		return c.JSON(http.StatusConflict, echo.Map{"error": "plan is not open for purchase"})
	case errors.Is(err, service.ErrWrongStudio):
		return c.JSON(http.StatusConflict, echo.Map{"error": "not for this studio"})
	case errors.Is(err, service.ErrMembershipInvalid):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "membership is not active or has expired"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
}
