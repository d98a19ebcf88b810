package impl

import (
	"context"
	"log/slog"
	"time"

	deliverycontext "authcore/internal/delivery/context"
	"authcore/internal/domain/entity"
	domainerrors "authcore/internal/domain/errors"
	"authcore/internal/domain/repository"
	"authcore/internal/domain/service"
	"authcore/internal/usecase"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/fx"
)

// refreshVerifier implements the RefreshVerifier interface.
type refreshVerifier struct {
	txManager repository.TransactionManager
	codec     service.TokenCodec
	issuer    usecase.TokenIssuer
	logger    *slog.Logger
}

// RefreshVerifierParams holds dependencies for refreshVerifier, injected by Fx.
type RefreshVerifierParams struct {
	fx.In

	TxManager repository.TransactionManager
	Codec     service.TokenCodec
	Issuer    usecase.TokenIssuer
	Logger    *slog.Logger
}

// NewRefreshVerifier is the constructor for refreshVerifier.
func NewRefreshVerifier(params RefreshVerifierParams) usecase.RefreshVerifier {
	return &refreshVerifier{
		txManager: params.TxManager,
		codec:     params.Codec,
		issuer:    params.Issuer,
		logger:    params.Logger,
	}
}

// log returns a request-scoped logger if available, otherwise falls back to the service's logger.
func (srv *refreshVerifier) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

// Verify runs the presented access/refresh pair through the full check
// sequence and reissues the pair when everything holds.
//
// An access token that is expired but otherwise verifies is the normal case
// here, not a failure. Reissued access tokens carry a fresh jti while the
// record keeps the jti from login, so the jti binding is only enforced for
// live tokens; all record gates (lookup, expiry, revocation, user resolution
// and ownership) apply on both paths.
func (srv *refreshVerifier) Verify(ctx context.Context, accessToken, refreshToken string) (*entity.TokenPair, error) {
	// 1. Decode the access token: structure, signature, pinned algorithm,
	//    issuer and audience. Any of those failing is terminal.
	claims, status, err := srv.codec.Decode(accessToken)
	if err != nil {
		srv.log(ctx).Warn("Refresh rejected at access token decoding", slog.Any("error", err))

		return nil, err
	}

	if status == service.StatusExpired {
		srv.log(ctx).Info("Refreshing with expired access token", slog.String("userID", claims.Subject))
	}

	subjectID, err := uuid.Parse(claims.Subject)
	if err != nil {
		srv.log(ctx).Warn("Refresh rejected: subject claim is not a UUID", slog.String("subject", claims.Subject))

		return nil, domainerrors.ErrMalformedToken.WrapMessage("subject claim is not a valid user id")
	}

	var pair *entity.TokenPair

	txErr := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		refreshRepo := repoFactory.RefreshTokenRepo()
		userRepo := repoFactory.UserRepo()

		// 2. Look up the server-side record behind the opaque refresh string.
		record, err := refreshRepo.FindByToken(ctx, refreshToken)
		if err != nil {
			if errors.Is(err, repository.ErrRefreshTokenNotFound) {
				return domainerrors.ErrRefreshTokenNotFound
			}

			return errors.Wrap(err, "failed to find refresh token")
		}

		// 3. A live access token must be the one this record was issued
		//    alongside, matched via its jti. An expired token skips this
		//    gate: every reissued access token has a new jti while the record
		//    keeps the login-time one, so enforcing the match here would kill
		//    the session at its second refresh. The expired path is bound to
		//    the record by ownership instead (gate 6).
		if status == service.StatusValid && record.JwtID.String() != claims.ID {
			return domainerrors.ErrTokenRefreshMismatch
		}

		// 4. The record itself must not have expired.
		if !record.ExpiresAt.After(time.Now()) {
			return domainerrors.ErrRefreshTokenExpired
		}

		// 5. A revoked record never authorizes issuance.
		if record.Revoked {
			return domainerrors.ErrRefreshTokenRevoked
		}

		// 6. The subject must still resolve to a live account, and the record
		//    must belong to that account.
		user, err := userRepo.FindByID(ctx, subjectID)
		if err != nil {
			if errors.Is(err, repository.ErrUserNotFound) {
				return domainerrors.ErrUserNotFound
			}

			return errors.Wrap(err, "failed to find user")
		}
		if record.UserID != user.ID {
			return domainerrors.ErrTokenRefreshMismatch
		}

		// 7. Reissue. The existing record rides along unchanged: same token
		//    string, same expiry, no writes on this branch.
		pair, err = srv.issuer.Issue(ctx, refreshRepo, user, record)
		if err != nil {
			return errors.Wrap(err, "failed to reissue tokens")
		}

		return nil
	})

	if txErr != nil {
		srv.log(ctx).Warn("Refresh rejected", slog.String("userID", claims.Subject), slog.Any("error", txErr))

		return nil, txErr
	}

	srv.log(ctx).Debug("Access token refreshed", slog.String("userID", claims.Subject))

	return pair, nil
}
