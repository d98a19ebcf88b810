package impl

import (
	"context"
	"log/slog"
	"time"

	deliverycontext "authcore/internal/delivery/context"
	"authcore/internal/domain/entity"
	domainerrors "authcore/internal/domain/errors"
	"authcore/internal/domain/repository"
	"authcore/internal/usecase"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/fx"
)

// sessionService implements the SessionUsecase interface.
type sessionService struct {
	txManager        repository.TransactionManager
	refreshTokenRepo repository.RefreshTokenRepository
	logger           *slog.Logger
}

// SessionServiceParams holds dependencies for sessionService, injected by Fx.
type SessionServiceParams struct {
	fx.In

	TxManager        repository.TransactionManager
	RefreshTokenRepo repository.RefreshTokenRepository
	Logger           *slog.Logger
}

// NewSessionService is the constructor for sessionService.
func NewSessionService(params SessionServiceParams) usecase.SessionUsecase {
	return &sessionService{
		txManager:        params.TxManager,
		refreshTokenRepo: params.RefreshTokenRepo,
		logger:           params.Logger,
	}
}

// log returns a request-scoped logger if available, otherwise falls back to the service's logger.
func (srv *sessionService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

// ListSessions returns all sessions of a user, newest first.
func (srv *sessionService) ListSessions(ctx context.Context, userID uuid.UUID) ([]*entity.SessionInfo, error) {
	srv.log(ctx).Debug("Listing sessions", slog.Any("userID", userID))

	// Single query operation - use direct repository instance
	records, err := srv.refreshTokenRepo.FindByUserID(ctx, userID)
	if err != nil {
		srv.log(ctx).Error("Failed to list sessions", slog.Any("error", err), slog.Any("userID", userID))

		return nil, errors.Wrap(err, "failed to list sessions")
	}

	now := time.Now()
	sessions := make([]*entity.SessionInfo, 0, len(records))
	for _, record := range records {
		sessions = append(sessions, &entity.SessionInfo{
			ID:        record.ID,
			UserID:    record.UserID,
			CreatedAt: record.CreatedAt,
			ExpiresAt: record.ExpiresAt,
			Revoked:   record.Revoked,
			IsActive:  record.Active(now),
		})
	}

	return sessions, nil
}

// RevokeSession revokes a specific session after verifying ownership.
func (srv *sessionService) RevokeSession(ctx context.Context, userID, sessionID uuid.UUID) error {
	srv.log(ctx).Info("Attempting to revoke session", slog.Any("userID", userID), slog.Any("sessionID", sessionID))

	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		refreshRepo := repoFactory.RefreshTokenRepo()

		// Verify the session belongs to the user before revoking.
		record, err := refreshRepo.FindByID(ctx, sessionID)
		if err != nil {
			if errors.Is(err, repository.ErrRefreshTokenNotFound) {
				return domainerrors.ErrNotFound.WrapMessage("session not found")
			}

			return errors.Wrap(err, "failed to find session")
		}

		if record.UserID != userID {
			return domainerrors.ErrForbidden.WrapMessage("session does not belong to user")
		}

		return refreshRepo.Revoke(ctx, sessionID)
	})
	if err != nil {
		srv.log(ctx).Error("Failed to revoke session", slog.Any("error", err), slog.Any("userID", userID), slog.Any("sessionID", sessionID))

		return errors.Wrap(err, "failed to revoke session")
	}

	srv.log(ctx).Info("Revoked session", slog.Any("userID", userID), slog.Any("sessionID", sessionID))

	return nil
}

// RevokeAllSessions revokes every session of a user.
func (srv *sessionService) RevokeAllSessions(ctx context.Context, userID uuid.UUID) error {
	srv.log(ctx).Info("Revoking all sessions", slog.Any("userID", userID))

	// Single operation - use direct repository instance
	if err := srv.refreshTokenRepo.RevokeAllByUserID(ctx, userID); err != nil {
		srv.log(ctx).Error("Failed to revoke all sessions", slog.Any("error", err), slog.Any("userID", userID))

		return errors.Wrap(err, "failed to revoke all sessions")
	}

	srv.log(ctx).Info("Revoked all sessions", slog.Any("userID", userID))

	return nil
}

// PurgeExpired deletes records past their expiry and returns the count.
func (srv *sessionService) PurgeExpired(ctx context.Context) (int64, error) {
	purged, err := srv.refreshTokenRepo.DeleteExpired(ctx)
	if err != nil {
		srv.log(ctx).Error("Failed to purge expired sessions", slog.Any("error", err))

		return 0, errors.Wrap(err, "failed to purge expired sessions")
	}

	if purged > 0 {
		srv.log(ctx).Info("Purged expired sessions", slog.Int64("count", purged))
	}

	return purged, nil
}
