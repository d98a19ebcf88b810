package usecase

import (
	"context"

	"authcore/internal/domain/entity"

	"github.com/google/uuid"
)

// SessionUsecase defines the interface for session management operations.
// Sessions are the server-side refresh token records; revoking one flips its
// flag rather than deleting it, so the audit trail survives.
type SessionUsecase interface {
	// ListSessions returns all sessions of a user, newest first.
	ListSessions(ctx context.Context, userID uuid.UUID) ([]*entity.SessionInfo, error)

	// RevokeSession revokes a single session after verifying it belongs to the user.
	RevokeSession(ctx context.Context, userID, sessionID uuid.UUID) error

	// RevokeAllSessions revokes every session of a user.
	RevokeAllSessions(ctx context.Context, userID uuid.UUID) error

	// PurgeExpired deletes records past their expiry and returns the count.
	PurgeExpired(ctx context.Context) (int64, error)
}
