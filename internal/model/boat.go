package model

import "time"

// Boat is a captain-owned vessel that trips can optionally reference.
// Deleting a boat does not touch its trips; the foreign key is set to
// null so past trips keep their history.
type Boat struct {
	ID        uint64    // boats.id
	Name      string    // boats.name
	Capacity  int       // boats.capacity
	CaptainID uint64    // boats.captain_id
	CreatedAt time.Time // boats.created_at
	UpdatedAt time.Time // boats.updated_at
}
