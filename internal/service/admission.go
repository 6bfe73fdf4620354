// Package service holds the booking rules. The admission engine is
// deliberately storage-agnostic: it expresses every precondition as a
// decision callback executed inside the store's locked transaction, so
// the same rules run identically against MySQL and against the
// in-memory store used in tests.
package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/mail"
	"strings"
	"time"

	"github.com/amodallal/fishing-backend/internal/model"
)

// TripStore is the transactional surface the engine needs. The MySQL
// implementation serializes AdmitReservation per trip with a row lock;
// any implementation must guarantee that the admit callback sees a
// reserved-seats count that includes every earlier admitted booking on
// the same trip.
type TripStore interface {
	AdmitReservation(ctx context.Context, tripID uint64, admit func(trip *model.Trip, reservedSeats int) (*model.Reservation, error)) (*model.ReservationDetail, error)
	ReservationForCancel(ctx context.Context, id uint64) (*model.ReservationDetail, error)
	DeleteReservation(ctx context.Context, id uint64) error
	TripForCancel(ctx context.Context, tripID uint64) (*model.TripSnapshot, []model.ReservationDetail, error)
	MarkTripCancelled(ctx context.Context, tripID uint64) error
}

// Publisher emits notification events after a mutation commits. A
// publish failure never fails the booking; the engine logs it and moves
// on.
type Publisher interface {
	PublishReservationCreated(ctx context.Context, d *model.ReservationDetail) error
	PublishReservationCancelled(ctx context.Context, d *model.ReservationDetail) error
	PublishTripCancelled(ctx context.Context, trip *model.TripSnapshot, reason string, affected *model.ReservationDetail) error
}

// Actor identifies the authenticated requester of a cancellation.
type Actor struct {
	UserID uint64
	Role   string
}

// AdmissionEngine applies the booking rules on top of a TripStore.
type AdmissionEngine struct {
	store    TripStore
	pub      Publisher // may be nil, then events are skipped
	maxSeats int
	now      func() time.Time
}

func NewAdmissionEngine(store TripStore, pub Publisher, maxSeats int) *AdmissionEngine {
	return &AdmissionEngine{
		store:    store,
		pub:      pub,
		maxSeats: maxSeats,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Book admits a reservation for seats on a trip, on behalf of either a
// registered or an anonymous booker. The precondition chain runs inside
// the store's transaction, in order, first failure wins:
//
//	trip exists -> trip ACTIVE -> departure in the future -> seat bound -> seats fit
//
// Each rejected precondition maps to one taxonomy error and leaves the
// store unchanged. A rejected request can be retried and gets a fresh
// verdict against the then-current state.
func (e *AdmissionEngine) Book(ctx context.Context, tripID uint64, seats int, booker model.Booker) (*model.ReservationDetail, error) {
	if err := validateBooker(booker); err != nil {
		return nil, err
	}

	now := e.now()
	detail, err := e.store.AdmitReservation(ctx, tripID, func(trip *model.Trip, reserved int) (*model.Reservation, error) {
		if trip.Status != model.TripStatusActive {
			return nil, model.ErrTripNotBookable
		}
		if !trip.DepartsAt.After(now) {
			return nil, model.ErrTripExpired
		}
		if seats < 1 {
			return nil, fmt.Errorf("%w: seats must be at least 1", model.ErrInvalidRequest)
		}
		if seats > e.maxSeats {
			return nil, fmt.Errorf("%w: seats must not exceed %d per booking", model.ErrInvalidRequest, e.maxSeats)
		}
		remaining := trip.Capacity - reserved
		if seats > remaining {
			return nil, &model.InsufficientCapacityError{Remaining: remaining}
		}
		return model.NewReservation(tripID, seats, booker, now), nil
	})
	if err != nil {
		return nil, classify(err)
	}

	e.publish(func() error { return e.pub.PublishReservationCreated(ctx, detail) },
		"reservation.created", detail.Reservation.ID)
	return detail, nil
}

// CancelReservation deletes a reservation, freeing its seats. A guest
// may cancel only their own reservations; a captain may cancel any
// reservation on their own trips, which is also the only path for
// anonymous bookings. The detail is captured before the delete because
// the row is gone afterwards and the notification needs its contents.
func (e *AdmissionEngine) CancelReservation(ctx context.Context, id uint64, actor Actor) error {
	detail, err := e.store.ReservationForCancel(ctx, id)
	if err != nil {
		return classify(err)
	}
	if !mayCancelReservation(detail, actor) {
		// not found rather than forbidden, so IDs cannot be probed
		return model.ErrNotFound
	}
	if err := e.store.DeleteReservation(ctx, id); err != nil {
		return classify(err)
	}

	e.publish(func() error { return e.pub.PublishReservationCancelled(ctx, detail) },
		"reservation.cancelled", id)
	return nil
}

// CancelTrip flips the trip to CANCELLED exactly once and emits one
// event per existing reservation, each carrying the captain's reason
// and that booker's contact. Reservations stay in place as the record
// of who was affected.
func (e *AdmissionEngine) CancelTrip(ctx context.Context, tripID, captainID uint64, reason string) error {
	reason = strings.TrimSpace(reason)
	if len(reason) < 10 || len(reason) > 500 {
		return fmt.Errorf("%w: cancellation reason must be between 10 and 500 characters", model.ErrInvalidRequest)
	}

	trip, affected, err := e.store.TripForCancel(ctx, tripID)
	if err != nil {
		return classify(err)
	}
	if trip.CaptainID != captainID {
		return model.ErrUnauthorized
	}
	if trip.Status == model.TripStatusCancelled {
		return model.ErrAlreadyCancelled
	}
	if err := e.store.MarkTripCancelled(ctx, tripID); err != nil {
		return classify(err)
	}
	trip.Status = model.TripStatusCancelled

	for i := range affected {
		d := &affected[i]
		e.publish(func() error { return e.pub.PublishTripCancelled(ctx, trip, reason, d) },
			"trip.cancelled", d.Reservation.ID)
	}
	return nil
}

func (e *AdmissionEngine) publish(fn func() error, kind string, id uint64) {
	if e.pub == nil {
		return
	}
	if err := fn(); err != nil {
		log.Printf("publish %s for id=%d failed: %v", kind, id, err)
	}
}

func validateBooker(booker model.Booker) error {
	switch b := booker.(type) {
	case model.RegisteredBooker:
		if b.UserID == 0 {
			return fmt.Errorf("%w: missing user", model.ErrInvalidRequest)
		}
	case model.AnonymousBooker:
		if strings.TrimSpace(b.Name) == "" {
			return fmt.Errorf("%w: guest name is required", model.ErrInvalidRequest)
		}
		if _, err := mail.ParseAddress(b.Email); err != nil {
			return fmt.Errorf("%w: guest email is invalid", model.ErrInvalidRequest)
		}
	default:
		return fmt.Errorf("%w: missing booker identity", model.ErrInvalidRequest)
	}
	return nil
}

func mayCancelReservation(d *model.ReservationDetail, actor Actor) bool {
	switch actor.Role {
	case model.RoleCaptain:
		return d.Trip.CaptainID == actor.UserID
	case model.RoleGuest:
		return d.Reservation.UserID != nil && *d.Reservation.UserID == actor.UserID
	}
	return false
}

// classify passes taxonomy errors through untouched and folds anything
// else (timeouts, lost connections, driver errors) into ErrUnavailable,
// so a storage failure can never read as a capacity verdict.
func classify(err error) error {
	var insufficient *model.InsufficientCapacityError
	switch {
	case errors.As(err, &insufficient),
		errors.Is(err, model.ErrNotFound),
		errors.Is(err, model.ErrUnauthorized),
		errors.Is(err, model.ErrInvalidRequest),
		errors.Is(err, model.ErrTripNotBookable),
		errors.Is(err, model.ErrTripExpired),
		errors.Is(err, model.ErrAlreadyCancelled),
		errors.Is(err, model.ErrUnavailable):
		return err
	}
	return fmt.Errorf("%w: %v", model.ErrUnavailable, err)
}
