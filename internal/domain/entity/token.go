// Package entity contains the core business objects of the project.
package entity

import (
	"time"

	"github.com/google/uuid"
)

// RefreshToken is the server-side record behind an opaque refresh token
// string. It binds the string to the jti of the access token it was issued
// alongside, so that a presented access/refresh pair can be checked against
// each other. The issuance core never mutates a record in place; revocation
// is a separate policy operation that flips the Revoked flag.
type RefreshToken struct {
	ID        uuid.UUID // The unique ID for this specific refresh token record.
	Token     string    // The opaque high-entropy token string handed to the client. Unique across all records.
	JwtID     uuid.UUID // The jti claim of the access token this record was issued alongside.
	UserID    uuid.UUID // Links this session to the User it belongs to.
	ExpiresAt time.Time // The exact time when this refresh token will expire and become invalid.
	Revoked   bool      // Set by logout or admin revocation; a revoked record never authorizes issuance.
	CreatedAt time.Time // Timestamp of when this session was created (i.e., when the user logged in).
}

// Active reports whether the record can still authorize issuance at the
// given instant.
func (rt *RefreshToken) Active(now time.Time) bool {
	return !rt.Revoked && rt.ExpiresAt.After(now)
}

// TokenPair is the credential pair handed back to a client after login or a
// successful refresh. Pure output value, never persisted.
type TokenPair struct {
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
	ExpiresAt    time.Time `json:"expiresAt"` // Expiry of the access token, not the refresh token.
}

// SessionInfo is a read model over a RefreshToken record, exposed by the
// session management endpoints.
type SessionInfo struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
	Revoked   bool      `json:"revoked"`
	IsActive  bool      `json:"isActive"`
}
