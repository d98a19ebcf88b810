package impl

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"authcore/config"
	"authcore/internal/domain/entity"
	"authcore/internal/domain/service"
	infraauth "authcore/internal/infra/auth"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newDiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestConfig(maxActiveSessions int) *config.Config {
	cfg := &config.Config{
		Auth: &config.AuthConfig{
			BcryptCost:        bcrypt.MinCost,
			MaxActiveSessions: maxActiveSessions,
		},
	}
	cfg.JWT = config.JWTConfig{
		Secret:          testSecret,
		Issuer:          "authcore-test",
		Audience:        "authcore-clients",
		AccessTokenTTL:  5 * time.Minute,
		RefreshTokenTTL: 180 * 24 * time.Hour,
	}

	return cfg
}

func newTestCodec(t *testing.T) service.TokenCodec {
	t.Helper()

	codec, err := infraauth.NewJWTCodec(newTestConfig(0))
	require.NoError(t, err)

	return codec
}

func newTestUser(t *testing.T, password string) *entity.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)

	return &entity.User{
		ID:           uuid.New(),
		Username:     "alice",
		Email:        "alice@example.com",
		PasswordHash: string(hash),
		Roles:        entity.Roles{entity.RoleMember},
	}
}

// issueTestPair signs a real access token for the user and builds the refresh
// record bound to its jti, optionally with the access token already expired.
func issueTestPair(t *testing.T, codec service.TokenCodec, user *entity.User, accessExpired bool) (string, *entity.RefreshToken) {
	t.Helper()

	claims := codec.NewClaims(user.ID.String(), user.Username, user.Email, user.Roles.ToStrings())
	if accessExpired {
		past := time.Now().Add(-time.Hour)
		claims.IssuedAt = jwt.NewNumericDate(past)
		claims.NotBefore = jwt.NewNumericDate(past)
		claims.ExpiresAt = jwt.NewNumericDate(past.Add(5 * time.Minute))
	}

	accessToken, _, err := codec.Encode(claims)
	require.NoError(t, err)

	jwtID, err := uuid.Parse(claims.ID)
	require.NoError(t, err)

	record := &entity.RefreshToken{
		ID:        uuid.New(),
		Token:     uuid.New().String() + "-" + uuid.New().String(),
		JwtID:     jwtID,
		UserID:    user.ID,
		ExpiresAt: time.Now().Add(180 * 24 * time.Hour),
		CreatedAt: time.Now(),
	}

	return accessToken, record
}

// expireAccessToken re-signs the claims of a live access token with a validity
// window in the past, simulating the token aging out between refreshes.
func expireAccessToken(t *testing.T, codec service.TokenCodec, accessToken string) string {
	t.Helper()

	claims, status, err := codec.Decode(accessToken)
	require.NoError(t, err)
	require.Equal(t, service.StatusValid, status)

	past := time.Now().Add(-time.Hour)
	claims.IssuedAt = jwt.NewNumericDate(past)
	claims.NotBefore = jwt.NewNumericDate(past)
	claims.ExpiresAt = jwt.NewNumericDate(past.Add(5 * time.Minute))

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	return signed
}
