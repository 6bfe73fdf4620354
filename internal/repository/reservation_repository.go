package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/amodallal/fishing-backend/internal/model"
)

// ReservationRepo serves the read-only reservation views. All writes go
// through TripRepo so they stay inside the admission transaction.
type ReservationRepo struct{ DB *sql.DB }

func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{DB: db} }

// ListByUser returns a registered guest's reservations with trip data,
// newest first.
func (r *ReservationRepo) ListByUser(ctx context.Context, userID uint64) ([]model.ReservationDetail, error) {
	rows, err := r.DB.QueryContext(ctx,
		reservationDetailQuery+" WHERE r.user_id=? ORDER BY r.created_at DESC, r.id DESC", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	details := []model.ReservationDetail{}
	for rows.Next() {
		d, err := scanReservationDetail(rows)
		if err != nil {
			return nil, err
		}
		details = append(details, *d)
	}
	return details, rows.Err()
}

// GetByIDForUser fetches one reservation owned by the given user.
// Someone else's reservation comes back as not found rather than
// forbidden, so IDs cannot be probed.
func (r *ReservationRepo) GetByIDForUser(ctx context.Context, id, userID uint64) (*model.ReservationDetail, error) {
	row := r.DB.QueryRowContext(ctx,
		reservationDetailQuery+" WHERE r.id=? AND r.user_id=? LIMIT 1", id, userID)
	d, err := scanReservationDetail(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return d, nil
}

// ListByTrip returns a trip's reservations for its captain, resolving
// the registered guest's name when one exists.
func (r *ReservationRepo) ListByTrip(ctx context.Context, tripID uint64) ([]model.TripReservationView, error) {
	rows, err := r.DB.QueryContext(ctx, `
SELECT r.id, r.trip_id, r.seats, r.user_id, r.guest_name, r.guest_email, r.guest_phone, r.created_at,
       u.full_name
FROM reservations r
LEFT JOIN users u ON u.id = r.user_id
WHERE r.trip_id=?
ORDER BY r.id`, tripID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	views := []model.TripReservationView{}
	for rows.Next() {
		var v model.TripReservationView
		var userID sql.NullInt64
		var gName, gEmail, gPhone, uName sql.NullString
		err := rows.Scan(&v.ID, &v.TripID, &v.Seats, &userID, &gName, &gEmail, &gPhone,
			&v.CreatedAt, &uName)
		if err != nil {
			return nil, err
		}
		v.UserID = nullU64(userID)
		v.GuestName = nullStr(gName)
		v.GuestEmail = nullStr(gEmail)
		v.GuestPhone = nullStr(gPhone)
		v.UserFullName = nullStr(uName)
		views = append(views, v)
	}
	return views, rows.Err()
}
