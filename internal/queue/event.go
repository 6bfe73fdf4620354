// Package queue defines the notification events exchanged over the
// message broker, the publisher that emits them and the background
// consumer that turns them into emails.
//
// Events are denormalized on purpose: a cancelled reservation row is
// deleted before the consumer runs, so each payload carries every trip
// and contact field the notification needs without querying the
// primary database.
package queue

import (
	"time"

	"github.com/google/uuid"

	"github.com/amodallal/fishing-backend/internal/model"
)

const (
	ReservationCreatedQueue   = "reservation.created"
	ReservationCancelledQueue = "reservation.cancelled"
	TripCancelledQueue        = "trip.cancelled"
)

// ReservationCreatedEvent is published after a booking commits.
type ReservationCreatedEvent struct {
	EventID       string `json:"event_id"`
	ReservationID uint64 `json:"reservation_id"`
	TripID        uint64 `json:"trip_id"`
	Seats         int    `json:"seats"`
	TripLocation  string `json:"trip_location"`
	DepartsAt     string `json:"departs_at"`
	PriceCents    int64  `json:"price_cents"`
	CaptainName   string `json:"captain_name"`
	CaptainEmail  string `json:"captain_email"`
	ContactName   string `json:"contact_name"`
	ContactEmail  string `json:"contact_email"`
	ContactPhone  string `json:"contact_phone,omitempty"`
	CreatedAt     string `json:"created_at"`
}

// ReservationCancelledEvent is published after a reservation row has
// been deleted. It is the only surviving record of the booking.
type ReservationCancelledEvent struct {
	EventID       string `json:"event_id"`
	ReservationID uint64 `json:"reservation_id"`
	TripID        uint64 `json:"trip_id"`
	Seats         int    `json:"seats"`
	TripLocation  string `json:"trip_location"`
	DepartsAt     string `json:"departs_at"`
	CaptainName   string `json:"captain_name"`
	CaptainEmail  string `json:"captain_email"`
	ContactName   string `json:"contact_name"`
	ContactEmail  string `json:"contact_email"`
	CancelledAt   string `json:"cancelled_at"`
}

// TripCancelledEvent is published once per reservation on a cancelled
// trip, so every booker gets their own notification with the captain's
// reason.
type TripCancelledEvent struct {
	EventID       string `json:"event_id"`
	TripID        uint64 `json:"trip_id"`
	ReservationID uint64 `json:"reservation_id"`
	TripLocation  string `json:"trip_location"`
	DepartsAt     string `json:"departs_at"`
	Reason        string `json:"reason"`
	CaptainName   string `json:"captain_name"`
	CaptainEmail  string `json:"captain_email"`
	Seats         int    `json:"seats"`
	ContactName   string `json:"contact_name"`
	ContactEmail  string `json:"contact_email"`
	CancelledAt   string `json:"cancelled_at"`
}

func newReservationCreatedEvent(d *model.ReservationDetail) ReservationCreatedEvent {
	return ReservationCreatedEvent{
		EventID:       uuid.NewString(),
		ReservationID: d.Reservation.ID,
		TripID:        d.Trip.ID,
		Seats:         d.Reservation.Seats,
		TripLocation:  d.Trip.Location,
		DepartsAt:     d.Trip.DepartsAt.UTC().Format(time.RFC3339),
		PriceCents:    d.Trip.PriceCents,
		CaptainName:   d.Trip.CaptainName,
		CaptainEmail:  d.Trip.CaptainEmail,
		ContactName:   d.ContactName,
		ContactEmail:  d.ContactEmail,
		ContactPhone:  d.ContactPhone,
		CreatedAt:     time.Now().UTC().Format(time.RFC3339),
	}
}

func newReservationCancelledEvent(d *model.ReservationDetail) ReservationCancelledEvent {
	return ReservationCancelledEvent{
		EventID:       uuid.NewString(),
		ReservationID: d.Reservation.ID,
		TripID:        d.Trip.ID,
		Seats:         d.Reservation.Seats,
		TripLocation:  d.Trip.Location,
		DepartsAt:     d.Trip.DepartsAt.UTC().Format(time.RFC3339),
		CaptainName:   d.Trip.CaptainName,
		CaptainEmail:  d.Trip.CaptainEmail,
		ContactName:   d.ContactName,
		ContactEmail:  d.ContactEmail,
		CancelledAt:   time.Now().UTC().Format(time.RFC3339),
	}
}

func newTripCancelledEvent(trip *model.TripSnapshot, reason string, d *model.ReservationDetail) TripCancelledEvent {
	return TripCancelledEvent{
		EventID:       uuid.NewString(),
		TripID:        trip.ID,
		ReservationID: d.Reservation.ID,
		TripLocation:  trip.Location,
		DepartsAt:     trip.DepartsAt.UTC().Format(time.RFC3339),
		Reason:        reason,
		CaptainName:   trip.CaptainName,
		CaptainEmail:  trip.CaptainEmail,
		Seats:         d.Reservation.Seats,
		ContactName:   d.ContactName,
		ContactEmail:  d.ContactEmail,
		CancelledAt:   time.Now().UTC().Format(time.RFC3339),
	}
}
