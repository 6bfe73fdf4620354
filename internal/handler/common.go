// Package handler defines the HTTP handlers. Each handler bundles its
// dependencies in a struct and maps domain errors onto HTTP statuses in
// one place, so the booking rules never need to know about HTTP.
package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/amodallal/fishing-backend/internal/model"
)

const dbTimeout = 5 * time.Second

// getUserID extracts the user_id claim stored by the JWT middleware.
// JWT numeric claims decode as float64, so a few shapes are accepted.
func getUserID(c echo.Context) (uint64, error) {
	switch t := c.Get("user_id").(type) {
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

func getRole(c echo.Context) string {
	role, _ := c.Get("role").(string)
	return role
}

// domainStatus maps the booking error taxonomy onto HTTP statuses.
// ErrUnavailable is the only 503: the store could not give a definite
// verdict and the client may retry.
func domainStatus(err error) int {
	var insufficient *model.InsufficientCapacityError
	switch {
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.As(err, &insufficient),
		errors.Is(err, model.ErrInvalidRequest),
		errors.Is(err, model.ErrTripNotBookable),
		errors.Is(err, model.ErrTripExpired),
		errors.Is(err, model.ErrAlreadyCancelled):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrUnavailable):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func jsonDomainError(c echo.Context, err error) error {
	status := domainStatus(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	return c.JSON(status, echo.Map{"error": msg})
}

func parseID(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, errors.New("invalid id")
	}
	return id, nil
}
