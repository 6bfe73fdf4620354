package model

import "time"

// TripStatus is stored as a string in trips.status. A trip is created
// ACTIVE and moves to CANCELLED exactly once; it is never deleted
// because reservations keep referencing it as a historical record.
type TripStatus string

const (
	TripStatusActive    TripStatus = "ACTIVE"
	TripStatusCancelled TripStatus = "CANCELLED"
)

// Trip represents a scheduled fishing trip offered by a captain.
// Capacity bounds the total seats across all of the trip's
// reservations; the sum of reserved seats must never exceed it.
//
// Fields:
//  ID         – primary key identifier.
//  Location   – departure/harbour description.
//  DepartsAt  – scheduled departure time (UTC).
//  PriceCents – price per seat in cents.
//  Capacity   – maximum seats across all reservations (>= 1).
//  Status     – ACTIVE or CANCELLED.
//  CaptainID  – owning captain (users.id).
//  BoatID     – optional boat reference (nullable).
//  CreatedAt  – timestamp of creation.
//  UpdatedAt  – timestamp of last update.
type Trip struct {
	ID         uint64     // trips.id
	Location   string     // trips.location
	DepartsAt  time.Time  // trips.departs_at
	PriceCents int64      // trips.price_cents
	Capacity   int        // trips.capacity
	Status     TripStatus // trips.status
	CaptainID  uint64     // trips.captain_id
	BoatID     *uint64    // trips.boat_id (nullable)
	CreatedAt  time.Time  // trips.created_at
	UpdatedAt  time.Time  // trips.updated_at
}

// TripSnapshot is a read-time join of a trip with its captain, taken
// inside the same transaction as the capacity check so reservation
// responses and notification events never see stale trip data.
type TripSnapshot struct {
	ID           uint64
	Location     string
	DepartsAt    time.Time
	PriceCents   int64
	Capacity     int
	Status       TripStatus
	CaptainID    uint64
	CaptainName  string
	CaptainEmail string
}

// TripView joins a trip with captain and optional boat details for
// list and detail endpoints.
type TripView struct {
	Trip
	CaptainName  string
	CaptainEmail string
	BoatName     *string
	BoatCapacity *int
}
