package model

import "time"

// Role names as stored in the users.role column.
const (
	RoleCaptain = "CAPTAIN"
	RoleGuest   = "GUEST"
)

// User represents a row of the `users` table. Captains own boats and
// trips; guests book seats. The password is stored as a bcrypt hash
// only. Handlers define their own response types with JSON tags, so
// none are needed here.
//
// Fields:
//  ID           – primary key identifier of the user.
//  FullName     – display name shown in trip and reservation views.
//  Email        – unique email address (stored lower-cased).
//  PasswordHash – bcrypt hashed password.
//  Role         – CAPTAIN or GUEST.
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type User struct {
	ID           uint64    // users.id
	FullName     string    // users.full_name
	Email        string    // users.email
	PasswordHash string    // users.password_hash
	Role         string    // users.role
	CreatedAt    time.Time // users.created_at
	UpdatedAt    time.Time // users.updated_at
}

// RefreshToken models an entry in the `refresh_tokens` table. Only the
// SHA-256 hash of the token is persisted; the raw value is returned to
// the client once at issue time.
//
// Fields:
//  ID        – primary key identifier.
//  UserID    – owner of the token.
//  TokenHash – SHA-256 hex digest of the token value.
//  ExpiresAt – expiration timestamp of the token.
//  RevokedAt – when the token was revoked (null if still active).
//  CreatedAt – timestamp of creation.
type RefreshToken struct {
	ID        uint64     // refresh_tokens.id
	UserID    uint64     // refresh_tokens.user_id
	TokenHash string     // refresh_tokens.token_hash
	ExpiresAt time.Time  // refresh_tokens.expires_at
	RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
	CreatedAt time.Time  // refresh_tokens.created_at
}
