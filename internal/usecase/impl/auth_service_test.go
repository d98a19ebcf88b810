package impl

import (
	"context"
	"testing"

	"authcore/internal/domain/entity"
	domainerrors "authcore/internal/domain/errors"
	"authcore/internal/domain/repository"
	infraauth "authcore/internal/infra/auth"
	mockRepo "authcore/internal/mocks/repository"
	"authcore/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type authFixture struct {
	service     *authService
	txManager   *mockRepo.MockTransactionManager
	userRepo    *mockRepo.MockUserRepository
	refreshRepo *mockRepo.MockRefreshTokenRepository
}

func newAuthFixture(t *testing.T, maxActiveSessions int) *authFixture {
	t.Helper()

	codec := newTestCodec(t)
	logger := newDiscardLogger()
	issuer := &tokenIssuer{codec: codec, logger: logger}

	fixture := &authFixture{
		txManager:   mockRepo.NewMockTransactionManager(t),
		userRepo:    mockRepo.NewMockUserRepository(t),
		refreshRepo: mockRepo.NewMockRefreshTokenRepository(t),
	}

	fixture.service = &authService{
		txManager:        fixture.txManager,
		userRepo:         fixture.userRepo,
		refreshTokenRepo: fixture.refreshRepo,
		hasher:           infraauth.NewBcryptHasherWithCost(bcrypt.MinCost),
		issuer:           issuer,
		verifier: &refreshVerifier{
			txManager: fixture.txManager,
			codec:     codec,
			issuer:    issuer,
			logger:    logger,
		},
		maxActiveSessions: maxActiveSessions,
		logger:            logger,
	}

	return fixture
}

// expectTransaction runs transaction callbacks against the fixture's
// repository mocks. Repo getters are marked Maybe because different use cases
// fetch different subsets.
func (f *authFixture) expectTransaction(t *testing.T, ctx context.Context) {
	t.Helper()

	f.txManager.EXPECT().
		Execute(ctx, mock.AnythingOfType("func(repository.RepositoryFactory) error")).
		RunAndReturn(func(_ context.Context, fn func(repository.RepositoryFactory) error) error {
			factory := mockRepo.NewMockRepositoryFactory(t)
			factory.EXPECT().UserRepo().Return(f.userRepo).Maybe()
			factory.EXPECT().RefreshTokenRepo().Return(f.refreshRepo).Maybe()

			return fn(factory)
		})
}

func TestAuthService_Register_Success(t *testing.T) {
	fixture := newAuthFixture(t, 0)
	ctx := context.Background()

	fixture.expectTransaction(t, ctx)
	fixture.userRepo.EXPECT().FindByUsername(ctx, "alice").Return(nil, repository.ErrUserNotFound)
	fixture.userRepo.EXPECT().
		Create(ctx, mock.AnythingOfType("*entity.User")).
		Return(nil)

	out, err := fixture.service.Register(ctx, &usecase.RegisterInput{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "StrongPass123!",
	})
	require.NoError(t, err)

	assert.Equal(t, "alice", out.User.Username)
	assert.Equal(t, entity.Roles{entity.RoleMember}, out.User.Roles)

	// The stored hash verifies against the original password and is not the password itself.
	assert.NotEqual(t, "StrongPass123!", out.User.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(out.User.PasswordHash), []byte("StrongPass123!")))
}

func TestAuthService_Register_DuplicateUsername(t *testing.T) {
	fixture := newAuthFixture(t, 0)
	ctx := context.Background()
	existing := newTestUser(t, "StrongPass123!")

	fixture.expectTransaction(t, ctx)
	fixture.userRepo.EXPECT().FindByUsername(ctx, "alice").Return(existing, nil)

	_, err := fixture.service.Register(ctx, &usecase.RegisterInput{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "StrongPass123!",
	})
	assert.ErrorIs(t, err, domainerrors.ErrUserAlreadyExists)
}

func TestAuthService_Login_Success(t *testing.T) {
	fixture := newAuthFixture(t, 0)
	ctx := context.Background()
	user := newTestUser(t, "StrongPass123!")

	fixture.userRepo.EXPECT().FindByUsername(ctx, "alice").Return(user, nil)
	fixture.expectTransaction(t, ctx)
	fixture.refreshRepo.EXPECT().
		Create(ctx, mock.AnythingOfType("*entity.RefreshToken")).
		Return(nil).
		Once()

	out, err := fixture.service.Login(ctx, &usecase.LoginInput{Username: "alice", Password: "StrongPass123!"})
	require.NoError(t, err)

	assert.NotEmpty(t, out.TokenPair.AccessToken)
	assert.NotEmpty(t, out.TokenPair.RefreshToken)
	assert.Equal(t, user.ID, out.User.ID)
}

func TestAuthService_Login_UnknownUsername(t *testing.T) {
	fixture := newAuthFixture(t, 0)
	ctx := context.Background()

	fixture.userRepo.EXPECT().FindByUsername(ctx, "ghost").Return(nil, repository.ErrUserNotFound)

	_, err := fixture.service.Login(ctx, &usecase.LoginInput{Username: "ghost", Password: "whatever"})
	assert.ErrorIs(t, err, domainerrors.ErrInvalidCredentials)
}

func TestAuthService_Login_WrongPassword(t *testing.T) {
	fixture := newAuthFixture(t, 0)
	ctx := context.Background()
	user := newTestUser(t, "StrongPass123!")

	fixture.userRepo.EXPECT().FindByUsername(ctx, "alice").Return(user, nil)

	_, err := fixture.service.Login(ctx, &usecase.LoginInput{Username: "alice", Password: "WrongPass123!"})
	assert.ErrorIs(t, err, domainerrors.ErrInvalidCredentials)
}

func TestAuthService_Login_SessionLimitExceeded(t *testing.T) {
	fixture := newAuthFixture(t, 2)
	ctx := context.Background()
	user := newTestUser(t, "StrongPass123!")

	fixture.userRepo.EXPECT().FindByUsername(ctx, "alice").Return(user, nil)
	fixture.expectTransaction(t, ctx)
	fixture.refreshRepo.EXPECT().CountActiveByUserID(ctx, user.ID).Return(2, nil)

	_, err := fixture.service.Login(ctx, &usecase.LoginInput{Username: "alice", Password: "StrongPass123!"})
	assert.ErrorIs(t, err, domainerrors.ErrSessionLimitExceeded)
}

func TestAuthService_Refresh_Success(t *testing.T) {
	fixture := newAuthFixture(t, 0)
	ctx := context.Background()
	user := newTestUser(t, "StrongPass123!")
	accessToken, record := issueTestPair(t, fixture.service.verifier.(*refreshVerifier).codec, user, false)

	fixture.expectTransaction(t, ctx)
	fixture.refreshRepo.EXPECT().FindByToken(ctx, record.Token).Return(record, nil)
	fixture.userRepo.EXPECT().FindByID(ctx, user.ID).Return(user, nil)

	out, err := fixture.service.Refresh(ctx, &usecase.RefreshInput{
		AccessToken:  accessToken,
		RefreshToken: record.Token,
	})
	require.NoError(t, err)
	assert.Equal(t, record.Token, out.TokenPair.RefreshToken)
}

func TestAuthService_Refresh_FlattensRejections(t *testing.T) {
	fixture := newAuthFixture(t, 0)
	ctx := context.Background()
	user := newTestUser(t, "StrongPass123!")
	accessToken, record := issueTestPair(t, fixture.service.verifier.(*refreshVerifier).codec, user, false)

	record.Revoked = true

	fixture.expectTransaction(t, ctx)
	fixture.refreshRepo.EXPECT().FindByToken(ctx, record.Token).Return(record, nil)

	_, err := fixture.service.Refresh(ctx, &usecase.RefreshInput{
		AccessToken:  accessToken,
		RefreshToken: record.Token,
	})

	// The revocation reason stays internal; callers only see the generic rejection.
	assert.ErrorIs(t, err, domainerrors.ErrInvalidTokens)
	assert.NotErrorIs(t, err, domainerrors.ErrRefreshTokenRevoked)
}

func TestAuthService_Refresh_FlattensDecodeFailures(t *testing.T) {
	fixture := newAuthFixture(t, 0)

	_, err := fixture.service.Refresh(context.Background(), &usecase.RefreshInput{
		AccessToken:  "not-a-token",
		RefreshToken: "whatever",
	})
	assert.ErrorIs(t, err, domainerrors.ErrInvalidTokens)
}

func TestAuthService_Logout_Success(t *testing.T) {
	fixture := newAuthFixture(t, 0)
	ctx := context.Background()

	fixture.refreshRepo.EXPECT().RevokeByToken(ctx, "some-refresh-token").Return(nil)

	err := fixture.service.Logout(ctx, &usecase.LogoutInput{RefreshToken: "some-refresh-token"})
	assert.NoError(t, err)
}

func TestAuthService_Logout_UnknownTokenIsIdempotent(t *testing.T) {
	fixture := newAuthFixture(t, 0)
	ctx := context.Background()

	fixture.refreshRepo.EXPECT().
		RevokeByToken(ctx, "unknown-token").
		Return(repository.ErrRefreshTokenNotFound)

	err := fixture.service.Logout(ctx, &usecase.LogoutInput{RefreshToken: "unknown-token"})
	assert.NoError(t, err)
}
