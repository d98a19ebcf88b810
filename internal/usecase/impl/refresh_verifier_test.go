package impl

import (
	"context"
	"testing"
	"time"

	domainerrors "authcore/internal/domain/errors"
	"authcore/internal/domain/repository"
	mockRepo "authcore/internal/mocks/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type verifierFixture struct {
	verifier    *refreshVerifier
	txManager   *mockRepo.MockTransactionManager
	userRepo    *mockRepo.MockUserRepository
	refreshRepo *mockRepo.MockRefreshTokenRepository
}

func newVerifierFixture(t *testing.T) *verifierFixture {
	t.Helper()

	codec := newTestCodec(t)
	logger := newDiscardLogger()

	fixture := &verifierFixture{
		txManager:   mockRepo.NewMockTransactionManager(t),
		userRepo:    mockRepo.NewMockUserRepository(t),
		refreshRepo: mockRepo.NewMockRefreshTokenRepository(t),
	}

	fixture.verifier = &refreshVerifier{
		txManager: fixture.txManager,
		codec:     codec,
		issuer:    &tokenIssuer{codec: codec, logger: logger},
		logger:    logger,
	}

	return fixture
}

// expectTransaction wires the transaction mock to run the callback against
// the fixture's repository mocks and propagate its error, the way the real
// manager commits or rolls back.
func (f *verifierFixture) expectTransaction(t *testing.T, ctx context.Context) {
	t.Helper()

	f.txManager.EXPECT().
		Execute(ctx, mock.AnythingOfType("func(repository.RepositoryFactory) error")).
		RunAndReturn(func(_ context.Context, fn func(repository.RepositoryFactory) error) error {
			factory := mockRepo.NewMockRepositoryFactory(t)
			factory.EXPECT().RefreshTokenRepo().Return(f.refreshRepo)
			factory.EXPECT().UserRepo().Return(f.userRepo)

			return fn(factory)
		})
}

func TestRefreshVerifier_Verify_Success(t *testing.T) {
	fixture := newVerifierFixture(t)
	ctx := context.Background()
	user := newTestUser(t, "StrongPass123!")
	accessToken, record := issueTestPair(t, fixture.verifier.codec, user, false)

	fixture.expectTransaction(t, ctx)
	fixture.refreshRepo.EXPECT().FindByToken(ctx, record.Token).Return(record, nil)
	fixture.userRepo.EXPECT().FindByID(ctx, user.ID).Return(user, nil)

	pair, err := fixture.verifier.Verify(ctx, accessToken, record.Token)
	require.NoError(t, err)

	// Refresh string rides along unchanged; the access token is new.
	assert.Equal(t, record.Token, pair.RefreshToken)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEqual(t, accessToken, pair.AccessToken)
}

func TestRefreshVerifier_Verify_ExpiredAccessTokenRecovers(t *testing.T) {
	fixture := newVerifierFixture(t)
	ctx := context.Background()
	user := newTestUser(t, "StrongPass123!")
	accessToken, record := issueTestPair(t, fixture.verifier.codec, user, true)

	fixture.expectTransaction(t, ctx)
	fixture.refreshRepo.EXPECT().FindByToken(ctx, record.Token).Return(record, nil)
	fixture.userRepo.EXPECT().FindByID(ctx, user.ID).Return(user, nil)

	pair, err := fixture.verifier.Verify(ctx, accessToken, record.Token)
	require.NoError(t, err)
	assert.Equal(t, record.Token, pair.RefreshToken)
}

func TestRefreshVerifier_Verify_SessionSurvivesRepeatedRefreshes(t *testing.T) {
	fixture := newVerifierFixture(t)
	ctx := context.Background()
	user := newTestUser(t, "StrongPass123!")
	accessToken, record := issueTestPair(t, fixture.verifier.codec, user, true)

	fixture.expectTransaction(t, ctx)
	fixture.refreshRepo.EXPECT().FindByToken(ctx, record.Token).Return(record, nil)
	fixture.userRepo.EXPECT().FindByID(ctx, user.ID).Return(user, nil)

	first, err := fixture.verifier.Verify(ctx, accessToken, record.Token)
	require.NoError(t, err)
	assert.Equal(t, record.Token, first.RefreshToken)

	// The reissued access token carries a fresh jti while the record keeps
	// the one stamped at login. Once the new token ages out, the same record
	// must authorize the next refresh; the session lives as long as the
	// record does, not one access lifetime.
	agedToken := expireAccessToken(t, fixture.verifier.codec, first.AccessToken)

	second, err := fixture.verifier.Verify(ctx, agedToken, record.Token)
	require.NoError(t, err)
	assert.Equal(t, record.Token, second.RefreshToken)
	assert.NotEqual(t, first.AccessToken, second.AccessToken)
}

func TestRefreshVerifier_Verify_MalformedAccessToken(t *testing.T) {
	fixture := newVerifierFixture(t)

	// No transaction expectation: decoding fails before any database work.
	_, err := fixture.verifier.Verify(context.Background(), "not-a-token", "whatever")
	assert.ErrorIs(t, err, domainerrors.ErrMalformedToken)
}

func TestRefreshVerifier_Verify_UnknownRefreshToken(t *testing.T) {
	fixture := newVerifierFixture(t)
	ctx := context.Background()
	user := newTestUser(t, "StrongPass123!")
	accessToken, record := issueTestPair(t, fixture.verifier.codec, user, false)

	fixture.expectTransaction(t, ctx)
	fixture.refreshRepo.EXPECT().FindByToken(ctx, record.Token).Return(nil, repository.ErrRefreshTokenNotFound)

	_, err := fixture.verifier.Verify(ctx, accessToken, record.Token)
	assert.ErrorIs(t, err, domainerrors.ErrRefreshTokenNotFound)
}

func TestRefreshVerifier_Verify_JtiMismatch(t *testing.T) {
	fixture := newVerifierFixture(t)
	ctx := context.Background()
	user := newTestUser(t, "StrongPass123!")
	accessToken, record := issueTestPair(t, fixture.verifier.codec, user, false)

	// Record bound to some other access token.
	record.JwtID = uuid.New()

	fixture.expectTransaction(t, ctx)
	fixture.refreshRepo.EXPECT().FindByToken(ctx, record.Token).Return(record, nil)

	_, err := fixture.verifier.Verify(ctx, accessToken, record.Token)
	assert.ErrorIs(t, err, domainerrors.ErrTokenRefreshMismatch)
}

func TestRefreshVerifier_Verify_ExpiredRefreshRecord(t *testing.T) {
	fixture := newVerifierFixture(t)
	ctx := context.Background()
	user := newTestUser(t, "StrongPass123!")
	accessToken, record := issueTestPair(t, fixture.verifier.codec, user, false)

	record.ExpiresAt = time.Now().Add(-time.Minute)

	fixture.expectTransaction(t, ctx)
	fixture.refreshRepo.EXPECT().FindByToken(ctx, record.Token).Return(record, nil)

	_, err := fixture.verifier.Verify(ctx, accessToken, record.Token)
	assert.ErrorIs(t, err, domainerrors.ErrRefreshTokenExpired)
}

func TestRefreshVerifier_Verify_RevokedRecord(t *testing.T) {
	fixture := newVerifierFixture(t)
	ctx := context.Background()
	user := newTestUser(t, "StrongPass123!")
	accessToken, record := issueTestPair(t, fixture.verifier.codec, user, false)

	record.Revoked = true

	fixture.expectTransaction(t, ctx)
	fixture.refreshRepo.EXPECT().FindByToken(ctx, record.Token).Return(record, nil)

	_, err := fixture.verifier.Verify(ctx, accessToken, record.Token)
	assert.ErrorIs(t, err, domainerrors.ErrRefreshTokenRevoked)
}

func TestRefreshVerifier_Verify_UnknownUser(t *testing.T) {
	fixture := newVerifierFixture(t)
	ctx := context.Background()
	user := newTestUser(t, "StrongPass123!")
	accessToken, record := issueTestPair(t, fixture.verifier.codec, user, false)

	fixture.expectTransaction(t, ctx)
	fixture.refreshRepo.EXPECT().FindByToken(ctx, record.Token).Return(record, nil)
	fixture.userRepo.EXPECT().FindByID(ctx, user.ID).Return(nil, repository.ErrUserNotFound)

	_, err := fixture.verifier.Verify(ctx, accessToken, record.Token)
	assert.ErrorIs(t, err, domainerrors.ErrUserNotFound)
}

func TestRefreshVerifier_Verify_RecordOwnedByAnotherUser(t *testing.T) {
	fixture := newVerifierFixture(t)
	ctx := context.Background()
	user := newTestUser(t, "StrongPass123!")
	accessToken, record := issueTestPair(t, fixture.verifier.codec, user, false)

	record.UserID = uuid.New()

	fixture.expectTransaction(t, ctx)
	fixture.refreshRepo.EXPECT().FindByToken(ctx, record.Token).Return(record, nil)
	fixture.userRepo.EXPECT().FindByID(ctx, user.ID).Return(user, nil)

	_, err := fixture.verifier.Verify(ctx, accessToken, record.Token)
	assert.ErrorIs(t, err, domainerrors.ErrTokenRefreshMismatch)
}

func TestRefreshVerifier_Verify_ExpiredAccessTokenStillChecksRevocation(t *testing.T) {
	fixture := newVerifierFixture(t)
	ctx := context.Background()
	user := newTestUser(t, "StrongPass123!")
	accessToken, record := issueTestPair(t, fixture.verifier.codec, user, true)

	record.Revoked = true

	fixture.expectTransaction(t, ctx)
	fixture.refreshRepo.EXPECT().FindByToken(ctx, record.Token).Return(record, nil)

	// The expired-access path gets no shortcut past the record checks.
	_, err := fixture.verifier.Verify(ctx, accessToken, record.Token)
	assert.ErrorIs(t, err, domainerrors.ErrRefreshTokenRevoked)
}
