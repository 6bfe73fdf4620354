package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/amodallal/fishing-backend/internal/model"
)

type BoatRepo struct{ DB *sql.DB }

func NewBoatRepo(db *sql.DB) *BoatRepo { return &BoatRepo{DB: db} }

const boatCols = "id, name, capacity, captain_id, created_at, updated_at"

// Create inserts a boat and fills in its assigned ID.
func (r *BoatRepo) Create(ctx context.Context, b *model.Boat) error {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO boats (name, capacity, captain_id) VALUES (?,?,?)",
		b.Name, b.Capacity, b.CaptainID)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	return nil
}

// GetByID fetches a boat by id.
func (r *BoatRepo) GetByID(ctx context.Context, id uint64) (model.Boat, error) {
	var b model.Boat
	err := r.DB.QueryRowContext(ctx,
		"SELECT "+boatCols+" FROM boats WHERE id=? LIMIT 1", id).
		Scan(&b.ID, &b.Name, &b.Capacity, &b.CaptainID, &b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return b, model.ErrNotFound
	}
	return b, err
}

// ListAll returns every boat, for the public listing.
func (r *BoatRepo) ListAll(ctx context.Context) ([]model.Boat, error) {
	rows, err := r.DB.QueryContext(ctx, "SELECT "+boatCols+" FROM boats ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanBoats(rows)
}

// ListByCaptain returns the boats owned by a captain.
func (r *BoatRepo) ListByCaptain(ctx context.Context, captainID uint64) ([]model.Boat, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+boatCols+" FROM boats WHERE captain_id=? ORDER BY id", captainID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanBoats(rows)
}

// Update assigns name and capacity.
func (r *BoatRepo) Update(ctx context.Context, b *model.Boat) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE boats SET name=?, capacity=? WHERE id=?",
		b.Name, b.Capacity, b.ID)
	return err
}

// Delete removes a boat. Trips referencing it keep running with a null
// boat_id thanks to ON DELETE SET NULL.
func (r *BoatRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM boats WHERE id=?", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return model.ErrNotFound
	}
	return nil
}

func scanBoats(rows *sql.Rows) ([]model.Boat, error) {
	boats := []model.Boat{}
	for rows.Next() {
		var b model.Boat
		if err := rows.Scan(&b.ID, &b.Name, &b.Capacity, &b.CaptainID, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, err
		}
		boats = append(boats, b)
	}
	return boats, rows.Err()
}
