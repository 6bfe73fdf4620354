package model

import "time"

// Reservation records a claim on a number of seats of a trip. Exactly
// one identity mode is populated: UserID for registered guests, the
// guest_* contact columns for anonymous bookers. Rows are created only
// through the admission engine and deleted outright on cancellation;
// there is no soft-cancel state.
//
// Fields:
//  ID         – primary key identifier.
//  TripID     – trip being booked.
//  Seats      – number of seats claimed (>= 1).
//  UserID     – registered guest, when booked while logged in.
//  GuestName  – anonymous booker name.
//  GuestEmail – anonymous booker email.
//  GuestPhone – anonymous booker phone (optional).
//  CreatedAt  – timestamp of creation.
type Reservation struct {
	ID         uint64    // reservations.id
	TripID     uint64    // reservations.trip_id
	Seats      int       // reservations.seats
	UserID     *uint64   // reservations.user_id (nullable)
	GuestName  *string   // reservations.guest_name (nullable)
	GuestEmail *string   // reservations.guest_email (nullable)
	GuestPhone *string   // reservations.guest_phone (nullable)
	CreatedAt  time.Time // reservations.created_at
}

// Booker is the tagged identity of whoever requests a reservation:
// either a registered user or an anonymous contact tuple. Modelling
// the two modes as a closed variant keeps the "exactly one identity"
// invariant checkable by construction instead of by nullable-column
// convention.
type Booker interface {
	isBooker()
}

// RegisteredBooker identifies an authenticated guest by user ID.
type RegisteredBooker struct {
	UserID uint64
}

// AnonymousBooker carries the contact details of a booker without an
// account. Name and Email are required; Phone may be empty.
type AnonymousBooker struct {
	Name  string
	Email string
	Phone string
}

func (RegisteredBooker) isBooker() {}
func (AnonymousBooker) isBooker()  {}

// NewReservation builds an unsaved reservation row from a booker
// identity, populating exactly one identity mode.
func NewReservation(tripID uint64, seats int, booker Booker, now time.Time) *Reservation {
	r := &Reservation{TripID: tripID, Seats: seats, CreatedAt: now}
	switch b := booker.(type) {
	case RegisteredBooker:
		uid := b.UserID
		r.UserID = &uid
	case AnonymousBooker:
		name, email := b.Name, b.Email
		r.GuestName = &name
		r.GuestEmail = &email
		if b.Phone != "" {
			phone := b.Phone
			r.GuestPhone = &phone
		}
	}
	return r
}

// ReservationDetail is a reservation joined with its trip snapshot and
// the resolved booker contact. For registered guests the contact comes
// from the users table; for anonymous bookers from the guest columns.
// It is read in the same transaction as the mutation it accompanies,
// which matters for cancellation: the row is gone afterwards, so the
// detail is the only source for the notification payload.
type ReservationDetail struct {
	Reservation  Reservation
	Trip         TripSnapshot
	ContactName  string
	ContactEmail string
	ContactPhone string
}

// TripReservationView is a reservation row as shown to the owning
// captain in the my-trips listing, with the registered guest's name
// resolved when present.
type TripReservationView struct {
	Reservation
	UserFullName *string
}
