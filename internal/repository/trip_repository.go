package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/amodallal/fishing-backend/internal/model"
)

// TripRepo owns the trips table plus the transactional admission and
// cancellation paths. All multi-statement mutations run inside a single
// transaction with the committed-flag rollback pattern so a failure at
// any step leaves the database untouched.
type TripRepo struct{ DB *sql.DB }

func NewTripRepo(db *sql.DB) *TripRepo { return &TripRepo{DB: db} }

const tripCols = "id, location, departs_at, price_cents, capacity, status, captain_id, boat_id, created_at, updated_at"

// Create inserts a trip (status defaults to ACTIVE) and fills its ID.
func (r *TripRepo) Create(ctx context.Context, t *model.Trip) error {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO trips (location, departs_at, price_cents, capacity, captain_id, boat_id) VALUES (?,?,?,?,?,?)",
		t.Location, t.DepartsAt, t.PriceCents, t.Capacity, t.CaptainID, t.BoatID)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = uint64(id)
	t.Status = model.TripStatusActive
	return nil
}

// GetByID fetches a bare trip row.
func (r *TripRepo) GetByID(ctx context.Context, id uint64) (model.Trip, error) {
	var t model.Trip
	var boatID sql.NullInt64
	err := r.DB.QueryRowContext(ctx,
		"SELECT "+tripCols+" FROM trips WHERE id=? LIMIT 1", id).
		Scan(&t.ID, &t.Location, &t.DepartsAt, &t.PriceCents, &t.Capacity, &t.Status,
			&t.CaptainID, &boatID, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return t, model.ErrNotFound
	}
	if err != nil {
		return t, err
	}
	t.BoatID = nullU64(boatID)
	return t, nil
}

const tripViewQuery = `
SELECT t.id, t.location, t.departs_at, t.price_cents, t.capacity, t.status,
       t.captain_id, t.boat_id, t.created_at, t.updated_at,
       c.full_name, c.email, b.name, b.capacity
FROM trips t
JOIN users c ON c.id = t.captain_id
LEFT JOIN boats b ON b.id = t.boat_id`

// GetView fetches a trip joined with captain and boat details.
func (r *TripRepo) GetView(ctx context.Context, id uint64) (model.TripView, error) {
	row := r.DB.QueryRowContext(ctx, tripViewQuery+" WHERE t.id=? LIMIT 1", id)
	v, err := scanTripView(row)
	if errors.Is(err, sql.ErrNoRows) {
		return v, model.ErrNotFound
	}
	return v, err
}

// ListOpen returns trips open for booking: active, departing in the
// future and with no reservations yet. Optional filters narrow by
// location substring and by departure date.
func (r *TripRepo) ListOpen(ctx context.Context, location string, date *time.Time) ([]model.TripView, error) {
	q := tripViewQuery + `
WHERE t.status = 'ACTIVE'
  AND t.departs_at >= UTC_TIMESTAMP()
  AND NOT EXISTS (SELECT 1 FROM reservations r WHERE r.trip_id = t.id)`
	args := []any{}
	if location != "" {
		q += " AND t.location LIKE CONCAT('%', ?, '%')"
		args = append(args, location)
	}
	if date != nil {
		q += " AND DATE(t.departs_at) = DATE(?)"
		args = append(args, *date)
	}
	q += " ORDER BY t.departs_at ASC"

	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTripViews(rows)
}

// ListByCaptain returns a captain's trips, newest departure first.
// Cancelled trips stay in the list so the captain keeps the history.
func (r *TripRepo) ListByCaptain(ctx context.Context, captainID uint64) ([]model.TripView, error) {
	rows, err := r.DB.QueryContext(ctx,
		tripViewQuery+" WHERE t.captain_id=? ORDER BY t.departs_at DESC", captainID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTripViews(rows)
}

// Update assigns the editable trip fields.
func (r *TripRepo) Update(ctx context.Context, t *model.Trip) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE trips SET location=?, departs_at=?, price_cents=?, capacity=?, boat_id=? WHERE id=?",
		t.Location, t.DepartsAt, t.PriceCents, t.Capacity, t.BoatID, t.ID)
	return err
}

// AdmitReservation runs the seat-admission protocol for one trip:
//
//	BEGIN
//	SELECT trip FOR UPDATE            -- serializes bookings per trip
//	SELECT COALESCE(SUM(seats),0)     -- seats already reserved
//	admit(trip, reserved)             -- caller decides, may reject
//	INSERT reservation
//	read trip+captain+contact snapshot
//	COMMIT
//
// The admit callback returns the reservation row to insert, or an error
// that aborts and rolls back the transaction unchanged. Concurrent
// bookings on the same trip queue up on the row lock, so the sum each
// one sees already includes every earlier committed reservation.
func (r *TripRepo) AdmitReservation(ctx context.Context, tripID uint64, admit func(trip *model.Trip, reservedSeats int) (*model.Reservation, error)) (*model.ReservationDetail, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	var t model.Trip
	var boatID sql.NullInt64
	err = tx.QueryRowContext(ctx,
		"SELECT "+tripCols+" FROM trips WHERE id=? FOR UPDATE", tripID).
		Scan(&t.ID, &t.Location, &t.DepartsAt, &t.PriceCents, &t.Capacity, &t.Status,
			&t.CaptainID, &boatID, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	t.BoatID = nullU64(boatID)

	var reserved int
	err = tx.QueryRowContext(ctx,
		"SELECT COALESCE(SUM(seats),0) FROM reservations WHERE trip_id=?", tripID).
		Scan(&reserved)
	if err != nil {
		return nil, err
	}

	res, err := admit(&t, reserved)
	if err != nil {
		return nil, err
	}

	ins, err := tx.ExecContext(ctx,
		"INSERT INTO reservations (trip_id, seats, user_id, guest_name, guest_email, guest_phone) VALUES (?,?,?,?,?,?)",
		res.TripID, res.Seats, res.UserID, res.GuestName, res.GuestEmail, res.GuestPhone)
	if err != nil {
		return nil, err
	}
	id, err := ins.LastInsertId()
	if err != nil {
		return nil, err
	}
	res.ID = uint64(id)

	detail := &model.ReservationDetail{
		Reservation: *res,
		Trip: model.TripSnapshot{
			ID: t.ID, Location: t.Location, DepartsAt: t.DepartsAt,
			PriceCents: t.PriceCents, Capacity: t.Capacity, Status: t.Status,
			CaptainID: t.CaptainID,
		},
	}
	err = tx.QueryRowContext(ctx,
		"SELECT full_name, email FROM users WHERE id=?", t.CaptainID).
		Scan(&detail.Trip.CaptainName, &detail.Trip.CaptainEmail)
	if err != nil {
		return nil, err
	}
	if res.UserID != nil {
		err = tx.QueryRowContext(ctx,
			"SELECT full_name, email FROM users WHERE id=?", *res.UserID).
			Scan(&detail.ContactName, &detail.ContactEmail)
		if err != nil {
			return nil, err
		}
	} else {
		detail.ContactName = deref(res.GuestName)
		detail.ContactEmail = deref(res.GuestEmail)
		detail.ContactPhone = deref(res.GuestPhone)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return detail, nil
}

const reservationDetailQuery = `
SELECT r.id, r.trip_id, r.seats, r.user_id, r.guest_name, r.guest_email, r.guest_phone, r.created_at,
       t.id, t.location, t.departs_at, t.price_cents, t.capacity, t.status, t.captain_id,
       c.full_name, c.email,
       COALESCE(u.full_name, r.guest_name, ''),
       COALESCE(u.email, r.guest_email, ''),
       COALESCE(r.guest_phone, '')
FROM reservations r
JOIN trips t ON t.id = r.trip_id
JOIN users c ON c.id = t.captain_id
LEFT JOIN users u ON u.id = r.user_id`

// ReservationForCancel reads the full reservation detail before a
// cancellation deletes the row. The joined contact and trip data is the
// payload for the cancellation email.
func (r *TripRepo) ReservationForCancel(ctx context.Context, id uint64) (*model.ReservationDetail, error) {
	row := r.DB.QueryRowContext(ctx, reservationDetailQuery+" WHERE r.id=? LIMIT 1", id)
	d, err := scanReservationDetail(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return d, nil
}

// DeleteReservation removes a reservation row outright, freeing its
// seats for later bookings.
func (r *TripRepo) DeleteReservation(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM reservations WHERE id=?", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return model.ErrAlreadyCancelled
	}
	return nil
}

// TripForCancel reads the trip snapshot together with the details of
// every reservation on it, so cancellation can notify each booker.
func (r *TripRepo) TripForCancel(ctx context.Context, tripID uint64) (*model.TripSnapshot, []model.ReservationDetail, error) {
	var snap model.TripSnapshot
	err := r.DB.QueryRowContext(ctx, `
SELECT t.id, t.location, t.departs_at, t.price_cents, t.capacity, t.status, t.captain_id,
       c.full_name, c.email
FROM trips t JOIN users c ON c.id = t.captain_id
WHERE t.id=? LIMIT 1`, tripID).
		Scan(&snap.ID, &snap.Location, &snap.DepartsAt, &snap.PriceCents, &snap.Capacity,
			&snap.Status, &snap.CaptainID, &snap.CaptainName, &snap.CaptainEmail)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, model.ErrNotFound
	}
	if err != nil {
		return nil, nil, err
	}

	rows, err := r.DB.QueryContext(ctx, reservationDetailQuery+" WHERE r.trip_id=? ORDER BY r.id", tripID)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	details := []model.ReservationDetail{}
	for rows.Next() {
		d, err := scanReservationDetail(rows)
		if err != nil {
			return nil, nil, err
		}
		details = append(details, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}
	return &snap, details, nil
}

// MarkTripCancelled flips an ACTIVE trip to CANCELLED. Reservations are
// intentionally left in place; only the status changes. The conditional
// update makes the flip idempotent under races.
func (r *TripRepo) MarkTripCancelled(ctx context.Context, tripID uint64) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE trips SET status='CANCELLED' WHERE id=? AND status='ACTIVE'", tripID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		var status string
		err := r.DB.QueryRowContext(ctx, "SELECT status FROM trips WHERE id=?", tripID).Scan(&status)
		if errors.Is(err, sql.ErrNoRows) {
			return model.ErrNotFound
		}
		if err != nil {
			return err
		}
		return model.ErrAlreadyCancelled
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTripView(s rowScanner) (model.TripView, error) {
	var v model.TripView
	var boatID sql.NullInt64
	var boatName sql.NullString
	var boatCap sql.NullInt64
	err := s.Scan(&v.ID, &v.Location, &v.DepartsAt, &v.PriceCents, &v.Capacity, &v.Status,
		&v.CaptainID, &boatID, &v.CreatedAt, &v.UpdatedAt,
		&v.CaptainName, &v.CaptainEmail, &boatName, &boatCap)
	if err != nil {
		return v, err
	}
	v.BoatID = nullU64(boatID)
	if boatName.Valid {
		v.BoatName = &boatName.String
	}
	if boatCap.Valid {
		c := int(boatCap.Int64)
		v.BoatCapacity = &c
	}
	return v, nil
}

func scanTripViews(rows *sql.Rows) ([]model.TripView, error) {
	views := []model.TripView{}
	for rows.Next() {
		v, err := scanTripView(rows)
		if err != nil {
			return nil, err
		}
		views = append(views, v)
	}
	return views, rows.Err()
}

func scanReservationDetail(s rowScanner) (*model.ReservationDetail, error) {
	var d model.ReservationDetail
	var userID sql.NullInt64
	var gName, gEmail, gPhone sql.NullString
	err := s.Scan(&d.Reservation.ID, &d.Reservation.TripID, &d.Reservation.Seats,
		&userID, &gName, &gEmail, &gPhone, &d.Reservation.CreatedAt,
		&d.Trip.ID, &d.Trip.Location, &d.Trip.DepartsAt, &d.Trip.PriceCents,
		&d.Trip.Capacity, &d.Trip.Status, &d.Trip.CaptainID,
		&d.Trip.CaptainName, &d.Trip.CaptainEmail,
		&d.ContactName, &d.ContactEmail, &d.ContactPhone)
	if err != nil {
		return nil, err
	}
	d.Reservation.UserID = nullU64(userID)
	d.Reservation.GuestName = nullStr(gName)
	d.Reservation.GuestEmail = nullStr(gEmail)
	d.Reservation.GuestPhone = nullStr(gPhone)
	return &d, nil
}

func nullU64(n sql.NullInt64) *uint64 {
	if !n.Valid {
		return nil
	}
	u := uint64(n.Int64)
	return &u
}

func nullStr(n sql.NullString) *string {
	if !n.Valid {
		return nil
	}
	s := n.String
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
