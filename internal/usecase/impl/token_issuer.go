// Package impl contains the implementation of the application's business logic.
package impl

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	deliverycontext "authcore/internal/delivery/context"
	"authcore/internal/domain/entity"
	"authcore/internal/domain/repository"
	"authcore/internal/domain/service"
	"authcore/internal/usecase"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/fx"
)

// tokenIssuer implements the TokenIssuer interface.
type tokenIssuer struct {
	codec  service.TokenCodec
	logger *slog.Logger
}

// TokenIssuerParams holds dependencies for tokenIssuer, injected by Fx.
type TokenIssuerParams struct {
	fx.In

	Codec  service.TokenCodec
	Logger *slog.Logger
}

// NewTokenIssuer is the constructor for tokenIssuer.
func NewTokenIssuer(params TokenIssuerParams) usecase.TokenIssuer {
	return &tokenIssuer{
		codec:  params.Codec,
		logger: params.Logger,
	}
}

// log returns a request-scoped logger if available, otherwise falls back to the service's logger.
func (srv *tokenIssuer) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

// Issue mints an access token for the user and pairs it with a refresh token.
//
// With existing == nil a brand-new refresh string is generated and its record
// inserted through tokenRepo; an insert failure fails the whole issuance, so
// a client can never hold a refresh token the server does not know about.
// With a non-nil existing record its token string is reused verbatim and
// nothing is written.
func (srv *tokenIssuer) Issue(ctx context.Context, tokenRepo repository.RefreshTokenRepository, user *entity.User, existing *entity.RefreshToken) (*entity.TokenPair, error) {
	claims := srv.codec.NewClaims(user.ID.String(), user.Username, user.Email, user.Roles.ToStrings())

	accessToken, expiresAt, err := srv.codec.Encode(claims)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode access token")
	}

	if existing != nil {
		srv.log(ctx).Debug("Reissued access token against existing session",
			slog.Any("userID", user.ID), slog.Any("sessionID", existing.ID))

		return &entity.TokenPair{
			AccessToken:  accessToken,
			RefreshToken: existing.Token,
			ExpiresAt:    expiresAt,
		}, nil
	}

	jwtID, err := uuid.Parse(claims.ID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse jti claim")
	}

	record := &entity.RefreshToken{
		Token:     newRefreshTokenString(),
		JwtID:     jwtID,
		UserID:    user.ID,
		ExpiresAt: time.Now().Add(srv.codec.RefreshTokenTTL()),
	}

	if err := tokenRepo.Create(ctx, record); err != nil {
		return nil, errors.Wrap(err, "failed to store refresh token")
	}

	srv.log(ctx).Debug("Issued new session",
		slog.Any("userID", user.ID), slog.Any("sessionID", record.ID))

	return &entity.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: record.Token,
		ExpiresAt:    expiresAt,
	}, nil
}

// newRefreshTokenString builds the opaque refresh token handed to clients:
// two concatenated UUIDs, 73 characters of random material. The string never
// carries meaning; the server-side record does.
func newRefreshTokenString() string {
	return fmt.Sprintf("%s-%s", uuid.New().String(), uuid.New().String())
}
