package usecase

import (
	"context"

	"authcore/internal/domain/entity"
	"authcore/internal/domain/repository"
)

// TokenIssuer mints the access/refresh credential pair for a user.
//
// When existing is nil a fresh refresh record is inserted through the given
// repository, bound to the new access token's jti. When existing is non-nil
// its token string is reused verbatim and no write of any kind is performed;
// callers on the refresh path rely on that to keep long-lived sessions from
// being silently extended.
type TokenIssuer interface {
	Issue(ctx context.Context, tokenRepo repository.RefreshTokenRepository, user *entity.User, existing *entity.RefreshToken) (*entity.TokenPair, error)
}
