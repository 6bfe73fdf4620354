package repository

import (
	"context"
	"database/sql"
	"time"
)

// TokenRepo stores refresh-token hashes for captains and guests. Raw
// tokens never touch the database; callers hash before storing and
// before lookup.
type TokenRepo struct{ DB *sql.DB }

func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{DB: db} }

// StoreRefresh records a new refresh token hash for the user.
func (r *TokenRepo) StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO refresh_tokens (user_id, token_hash, expires_at)
		VALUES (?, ?, ?)`,
		userID, tokenHash, exp)
	return err
}

// ValidateRefresh resolves a token hash to its user. Revoked and
// expired tokens answer sql.ErrNoRows, indistinguishable from unknown
// ones.
func (r *TokenRepo) ValidateRefresh(ctx context.Context, tokenHash string) (uint64, error) {
	var userID uint64
	err := r.DB.QueryRowContext(ctx, `
		SELECT user_id FROM refresh_tokens
		WHERE token_hash = ? AND revoked_at IS NULL AND expires_at > UTC_TIMESTAMP()`,
		tokenHash).Scan(&userID)
	if err != nil {
		return 0, err
	}
	return userID, nil
}

// RevokeByHash revokes a single token, used by logout with an explicit
// refresh token in the body.
func (r *TokenRepo) RevokeByHash(ctx context.Context, tokenHash string) error {
	_, err := r.DB.ExecContext(ctx, `
		UPDATE refresh_tokens SET revoked_at = UTC_TIMESTAMP()
		WHERE token_hash = ? AND revoked_at IS NULL`,
		tokenHash)
	return err
}

// RevokeAllForUser revokes every live token the user holds.
func (r *TokenRepo) RevokeAllForUser(ctx context.Context, userID uint64) error {
	_, err := r.DB.ExecContext(ctx, `
		UPDATE refresh_tokens SET revoked_at = UTC_TIMESTAMP()
		WHERE user_id = ? AND revoked_at IS NULL`,
		userID)
	return err
}
