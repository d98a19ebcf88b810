package usecase

import (
	"context"

	"authcore/internal/domain/entity"
)

// RefreshVerifier drives the ordered checks behind the refresh endpoint and,
// when every one of them passes, reissues the credential pair. Each rejection
// is a distinct domain error; callers that face the network are expected to
// flatten them before responding.
type RefreshVerifier interface {
	Verify(ctx context.Context, accessToken, refreshToken string) (*entity.TokenPair, error)
}
