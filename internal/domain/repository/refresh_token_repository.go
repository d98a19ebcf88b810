// Package repository defines the interfaces for the persistence layer.
// These interfaces act as a contract between the domain/application layers and the infrastructure layer.
package repository

import (
	"context"
	"errors"

	"authcore/internal/domain/entity"

	"github.com/google/uuid"
)

// ErrRefreshTokenNotFound is returned when a refresh token record is not found.
var ErrRefreshTokenNotFound = errors.New("refresh token not found")

// RefreshTokenRepository is the durable contract behind the opaque refresh
// token strings. The refresh verifier needs only the point lookup; the issuer
// needs the insert; session tooling drives the revocation flag.
//
// FindByToken deliberately returns expired and revoked records as-is: the
// verifier distinguishes "not found" from "expired" from "revoked" as
// separate rejection reasons, so the store must not pre-filter.
type RefreshTokenRepository interface {
	// Create persists a new refresh token record.
	Create(ctx context.Context, token *entity.RefreshToken) error

	// FindByToken retrieves a record by its opaque token string.
	FindByToken(ctx context.Context, token string) (*entity.RefreshToken, error)

	// FindByID retrieves a record by its unique ID.
	FindByID(ctx context.Context, id uuid.UUID) (*entity.RefreshToken, error)

	// FindByUserID retrieves all records for a user, newest first.
	FindByUserID(ctx context.Context, userID uuid.UUID) ([]*entity.RefreshToken, error)

	// Revoke flags a record as revoked by its ID.
	Revoke(ctx context.Context, id uuid.UUID) error

	// RevokeByToken flags a record as revoked by its opaque token string.
	RevokeByToken(ctx context.Context, token string) error

	// RevokeAllByUserID flags every record of a user as revoked.
	RevokeAllByUserID(ctx context.Context, userID uuid.UUID) error

	// DeleteExpired removes records past their expiry and returns the count.
	DeleteExpired(ctx context.Context) (int64, error)

	// CountActiveByUserID returns the number of non-expired, non-revoked
	// records for a user. Used to enforce the session limit on login.
	CountActiveByUserID(ctx context.Context, userID uuid.UUID) (int, error)
}
