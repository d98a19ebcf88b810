package impl

import (
	"context"
	"testing"
	"time"

	"authcore/internal/domain/entity"
	domainerrors "authcore/internal/domain/errors"
	"authcore/internal/domain/repository"
	mockRepo "authcore/internal/mocks/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type sessionFixture struct {
	service     *sessionService
	txManager   *mockRepo.MockTransactionManager
	refreshRepo *mockRepo.MockRefreshTokenRepository
}

func newSessionFixture(t *testing.T) *sessionFixture {
	t.Helper()

	fixture := &sessionFixture{
		txManager:   mockRepo.NewMockTransactionManager(t),
		refreshRepo: mockRepo.NewMockRefreshTokenRepository(t),
	}

	fixture.service = &sessionService{
		txManager:        fixture.txManager,
		refreshTokenRepo: fixture.refreshRepo,
		logger:           newDiscardLogger(),
	}

	return fixture
}

func (f *sessionFixture) expectTransaction(t *testing.T, ctx context.Context) {
	t.Helper()

	f.txManager.EXPECT().
		Execute(ctx, mock.AnythingOfType("func(repository.RepositoryFactory) error")).
		RunAndReturn(func(_ context.Context, fn func(repository.RepositoryFactory) error) error {
			factory := mockRepo.NewMockRepositoryFactory(t)
			factory.EXPECT().RefreshTokenRepo().Return(f.refreshRepo)

			return fn(factory)
		})
}

func TestSessionService_ListSessions(t *testing.T) {
	fixture := newSessionFixture(t)
	ctx := context.Background()
	userID := uuid.New()

	records := []*entity.RefreshToken{
		{ID: uuid.New(), UserID: userID, ExpiresAt: time.Now().Add(time.Hour)},
		{ID: uuid.New(), UserID: userID, ExpiresAt: time.Now().Add(time.Hour), Revoked: true},
		{ID: uuid.New(), UserID: userID, ExpiresAt: time.Now().Add(-time.Hour)},
	}

	fixture.refreshRepo.EXPECT().FindByUserID(ctx, userID).Return(records, nil)

	sessions, err := fixture.service.ListSessions(ctx, userID)
	require.NoError(t, err)
	require.Len(t, sessions, 3)

	assert.True(t, sessions[0].IsActive)
	assert.False(t, sessions[1].IsActive, "revoked session is not active")
	assert.False(t, sessions[2].IsActive, "expired session is not active")
}

func TestSessionService_RevokeSession_Success(t *testing.T) {
	fixture := newSessionFixture(t)
	ctx := context.Background()
	userID := uuid.New()
	sessionID := uuid.New()
	record := &entity.RefreshToken{ID: sessionID, UserID: userID}

	fixture.expectTransaction(t, ctx)
	fixture.refreshRepo.EXPECT().FindByID(ctx, sessionID).Return(record, nil)
	fixture.refreshRepo.EXPECT().Revoke(ctx, sessionID).Return(nil)

	err := fixture.service.RevokeSession(ctx, userID, sessionID)
	require.NoError(t, err)
}

func TestSessionService_RevokeSession_NotFound(t *testing.T) {
	fixture := newSessionFixture(t)
	ctx := context.Background()
	userID := uuid.New()
	sessionID := uuid.New()

	fixture.expectTransaction(t, ctx)
	fixture.refreshRepo.EXPECT().FindByID(ctx, sessionID).Return(nil, repository.ErrRefreshTokenNotFound)

	err := fixture.service.RevokeSession(ctx, userID, sessionID)
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestSessionService_RevokeSession_WrongOwner(t *testing.T) {
	fixture := newSessionFixture(t)
	ctx := context.Background()
	sessionID := uuid.New()
	record := &entity.RefreshToken{ID: sessionID, UserID: uuid.New()}

	fixture.expectTransaction(t, ctx)
	fixture.refreshRepo.EXPECT().FindByID(ctx, sessionID).Return(record, nil)

	err := fixture.service.RevokeSession(ctx, uuid.New(), sessionID)
	assert.ErrorIs(t, err, domainerrors.ErrForbidden)
}

func TestSessionService_RevokeAllSessions(t *testing.T) {
	fixture := newSessionFixture(t)
	ctx := context.Background()
	userID := uuid.New()

	fixture.refreshRepo.EXPECT().RevokeAllByUserID(ctx, userID).Return(nil)

	err := fixture.service.RevokeAllSessions(ctx, userID)
	assert.NoError(t, err)
}

func TestSessionService_PurgeExpired(t *testing.T) {
	fixture := newSessionFixture(t)
	ctx := context.Background()

	fixture.refreshRepo.EXPECT().DeleteExpired(ctx).Return(int64(4), nil)

	purged, err := fixture.service.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), purged)
}
