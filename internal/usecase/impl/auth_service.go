package impl

import (
	"context"
	"log/slog"

	"authcore/config"
	deliverycontext "authcore/internal/delivery/context"
	"authcore/internal/domain/entity"
	domainerrors "authcore/internal/domain/errors"
	"authcore/internal/domain/repository"
	"authcore/internal/domain/service"
	"authcore/internal/usecase"

	"github.com/pkg/errors"
	"go.uber.org/fx"
)

// authService implements the AuthUsecase interface.
type authService struct {
	txManager         repository.TransactionManager
	userRepo          repository.UserRepository
	refreshTokenRepo  repository.RefreshTokenRepository
	hasher            service.PasswordHasher
	issuer            usecase.TokenIssuer
	verifier          usecase.RefreshVerifier
	maxActiveSessions int
	logger            *slog.Logger
}

// AuthServiceParams holds dependencies for authService, injected by Fx.
type AuthServiceParams struct {
	fx.In

	TxManager        repository.TransactionManager
	UserRepo         repository.UserRepository
	RefreshTokenRepo repository.RefreshTokenRepository
	Hasher           service.PasswordHasher
	Issuer           usecase.TokenIssuer
	Verifier         usecase.RefreshVerifier
	Config           *config.Config
	Logger           *slog.Logger
}

// NewAuthService is the constructor for authService. It receives all dependencies as interfaces.
func NewAuthService(params AuthServiceParams) usecase.AuthUsecase {
	maxActiveSessions := 0
	if params.Config != nil && params.Config.Auth != nil {
		maxActiveSessions = params.Config.Auth.MaxActiveSessions
	}

	return &authService{
		txManager:         params.TxManager,
		userRepo:          params.UserRepo,
		refreshTokenRepo:  params.RefreshTokenRepo,
		hasher:            params.Hasher,
		issuer:            params.Issuer,
		verifier:          params.Verifier,
		maxActiveSessions: maxActiveSessions,
		logger:            params.Logger,
	}
}

// log returns a request-scoped logger if available, otherwise falls back to the service's logger.
func (srv *authService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

// Register orchestrates the complete user registration process.
func (srv *authService) Register(ctx context.Context, input *usecase.RegisterInput) (*usecase.RegisterOutput, error) {
	srv.log(ctx).Info("Starting registration", slog.String("username", input.Username))

	// Hash outside the transaction (bcrypt is CPU-bound).
	hashedPassword, err := srv.hasher.Hash(input.Password)
	if err != nil {
		srv.log(ctx).Error("Failed to hash password during registration", slog.Any("error", err))

		return nil, domainerrors.ErrPasswordHashFailed.WrapMessage("failed to hash password during registration")
	}

	newUser := &entity.User{
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: hashedPassword,
		Roles:        entity.Roles{entity.RoleMember},
	}

	err = srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		userRepo := repoFactory.UserRepo()

		_, err := userRepo.FindByUsername(ctx, input.Username)
		if err == nil {
			return domainerrors.ErrUserAlreadyExists
		}
		if !errors.Is(err, repository.ErrUserNotFound) {
			return errors.Wrap(err, "failed to check existing username")
		}

		return userRepo.Create(ctx, newUser)
	})
	if err != nil {
		srv.log(ctx).Warn("Registration failed", slog.String("username", input.Username), slog.Any("error", err))

		return nil, errors.Wrap(err, "failed to execute registration transaction")
	}

	srv.log(ctx).Debug("Registration completed", slog.Any("userID", newUser.ID))

	return &usecase.RegisterOutput{User: newUser}, nil
}

// Login verifies the credentials and mints a fresh access/refresh pair.
//
// An unknown username and a wrong password produce the same error, so the
// endpoint cannot be used to enumerate accounts.
func (srv *authService) Login(ctx context.Context, input *usecase.LoginInput) (*usecase.LoginOutput, error) {
	srv.log(ctx).Debug("Starting login", slog.String("username", input.Username))

	user, err := srv.userRepo.FindByUsername(ctx, input.Username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			srv.log(ctx).Warn("Login failed: unknown username", slog.String("username", input.Username))

			return nil, domainerrors.ErrInvalidCredentials.WrapMessage("login failed")
		}

		return nil, errors.Wrap(err, "failed to find user for login")
	}

	// Check password outside the transaction (bcrypt is CPU-bound).
	if !srv.hasher.Check(input.Password, user.PasswordHash) {
		srv.log(ctx).Warn("Login failed: password mismatch", slog.String("username", input.Username))

		return nil, domainerrors.ErrInvalidCredentials.WrapMessage("login failed")
	}

	var pair *entity.TokenPair

	err = srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		refreshRepo := repoFactory.RefreshTokenRepo()

		if srv.maxActiveSessions > 0 {
			activeSessions, err := refreshRepo.CountActiveByUserID(ctx, user.ID)
			if err != nil {
				return errors.Wrap(err, "failed to count active sessions")
			}
			if activeSessions >= srv.maxActiveSessions {
				return domainerrors.ErrSessionLimitExceeded.WrapMessage("active session limit exceeded")
			}
		}

		var issueErr error
		pair, issueErr = srv.issuer.Issue(ctx, refreshRepo, user, nil)

		return issueErr
	})
	if err != nil {
		srv.log(ctx).Warn("Login failed", slog.String("username", input.Username), slog.Any("error", err))

		return nil, errors.Wrap(err, "failed to execute login transaction")
	}

	srv.log(ctx).Debug("User logged in", slog.Any("userID", user.ID))

	return &usecase.LoginOutput{TokenPair: pair, User: user}, nil
}

// Refresh exchanges a presented access/refresh pair for a fresh one. Every
// verification failure is collapsed into the same generic error before it
// leaves this layer; the precise reason has already been logged by the
// verifier, and handing it to the caller would let an attacker probe which
// check their forged pair failed.
func (srv *authService) Refresh(ctx context.Context, input *usecase.RefreshInput) (*usecase.RefreshOutput, error) {
	srv.log(ctx).Debug("Attempting token refresh")

	pair, err := srv.verifier.Verify(ctx, input.AccessToken, input.RefreshToken)
	if err != nil {
		if isRefreshRejection(err) {
			return nil, domainerrors.ErrInvalidTokens.WrapMessage("token refresh rejected")
		}

		return nil, errors.Wrap(err, "failed to refresh tokens")
	}

	return &usecase.RefreshOutput{TokenPair: pair}, nil
}

// isRefreshRejection reports whether the error is one of the verification
// outcomes, as opposed to an infrastructure failure that should surface as a
// server-side error.
func isRefreshRejection(err error) bool {
	rejections := []error{
		domainerrors.ErrMalformedToken,
		domainerrors.ErrSignatureMismatch,
		domainerrors.ErrUnexpectedAlgorithm,
		domainerrors.ErrRefreshTokenNotFound,
		domainerrors.ErrTokenRefreshMismatch,
		domainerrors.ErrRefreshTokenExpired,
		domainerrors.ErrRefreshTokenRevoked,
		domainerrors.ErrUserNotFound,
	}

	for _, rejection := range rejections {
		if errors.Is(err, rejection) {
			return true
		}
	}

	return false
}

// Logout revokes the session behind the presented refresh token. Revoking an
// unknown token is a no-op: the session the client wanted gone does not
// exist, which is the state logout promises.
func (srv *authService) Logout(ctx context.Context, input *usecase.LogoutInput) error {
	srv.log(ctx).Info("Attempting logout")

	if err := srv.refreshTokenRepo.RevokeByToken(ctx, input.RefreshToken); err != nil {
		if errors.Is(err, repository.ErrRefreshTokenNotFound) {
			srv.log(ctx).Warn("Logout with unknown refresh token")

			return nil
		}

		srv.log(ctx).Error("Failed to revoke refresh token", slog.Any("error", err))

		return errors.Wrap(err, "failed to revoke refresh token")
	}

	srv.log(ctx).Info("Logged out")

	return nil
}
