// Package model holds the domain types shared by the repository,
// service and handler layers, together with the error taxonomy of the
// booking domain. Sentinel errors live here rather than in the
// repository so that in-memory test doubles and the admission engine
// can speak the same vocabulary without importing the storage layer.
package model

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a referenced trip, reservation, boat or
// user does not exist. Handlers translate it into HTTP 404.
var ErrNotFound = errors.New("not found")

// ErrUnauthorized is returned when the requester is not permitted to
// act on the resource (wrong guest, not the owning captain). Handlers
// translate it into HTTP 401.
var ErrUnauthorized = errors.New("unauthorized")

// ErrInvalidRequest is returned for malformed or out-of-range input,
// such as a seat count outside the per-booking bound.
var ErrInvalidRequest = errors.New("invalid request")

// ErrTripNotBookable is returned when admission is attempted against a
// trip that is not in the ACTIVE state.
var ErrTripNotBookable = errors.New("trip is not active and cannot be booked")

// ErrTripExpired is returned when admission is attempted against a
// trip whose departure time is not in the future.
var ErrTripExpired = errors.New("trip is in the past and can no longer be booked")

// ErrAlreadyCancelled is returned when cancelling a trip that has
// already been cancelled. The transition happens exactly once.
var ErrAlreadyCancelled = errors.New("trip has already been cancelled")

// ErrUnavailable is returned when the store cannot give a definite
// answer (timeout, lost connection). It is never a capacity verdict;
// handlers translate it into HTTP 503.
var ErrUnavailable = errors.New("storage unavailable")

// InsufficientCapacityError rejects an admission that would oversell
// the trip. Remaining reports the exact number of seats still
// available so the caller can tell the booker.
type InsufficientCapacityError struct {
	Remaining int
}

func (e *InsufficientCapacityError) Error() string {
	return fmt.Sprintf("not enough seats available, only %d seats are left", e.Remaining)
}
