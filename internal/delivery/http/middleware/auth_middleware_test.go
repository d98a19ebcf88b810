package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"authcore/config"
	"authcore/internal/domain/service"
	infraauth "authcore/internal/infra/auth"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMiddlewareCodec(t *testing.T) service.TokenCodec {
	t.Helper()

	cfg := &config.Config{}
	cfg.JWT = config.JWTConfig{
		Secret:          "0123456789abcdef0123456789abcdef",
		Issuer:          "authcore-test",
		Audience:        "authcore-clients",
		AccessTokenTTL:  5 * time.Minute,
		RefreshTokenTTL: 180 * 24 * time.Hour,
	}

	codec, err := infraauth.NewJWTCodec(cfg)
	require.NoError(t, err)

	return codec
}

func signTestToken(t *testing.T, codec service.TokenCodec, roles []string, expired bool) (string, uuid.UUID) {
	t.Helper()

	userID := uuid.New()
	claims := codec.NewClaims(userID.String(), "alice", "alice@example.com", roles)
	if expired {
		claims.IssuedAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))
		claims.NotBefore = jwt.NewNumericDate(time.Now().Add(-time.Hour))
		claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
	}

	token, _, err := codec.Encode(claims)
	require.NoError(t, err)

	return token, userID
}

func runAuthenticate(t *testing.T, m *AuthMiddleware, authHeader string) (echo.Context, *httptest.ResponseRecorder, error) {
	t.Helper()

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/sessions", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := m.Authenticate(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	return c, rec, handler(c)
}

func TestAuthMiddleware_Authenticate_Success(t *testing.T) {
	codec := newMiddlewareCodec(t)
	m := NewAuthMiddleware(codec)

	token, userID := signTestToken(t, codec, []string{"member"}, false)
	c, rec, err := runAuthenticate(t, m, "Bearer "+token)

	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)

	gotID, ok := UserIDFromContext(c)
	assert.True(t, ok)
	assert.Equal(t, userID, gotID)
	assert.Equal(t, []string{"member"}, c.Get(ContextKeyRoles))
}

func TestAuthMiddleware_Authenticate_MissingHeader(t *testing.T) {
	m := NewAuthMiddleware(newMiddlewareCodec(t))

	_, rec, err := runAuthenticate(t, m, "")

	assert.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "MISSING_TOKEN")
}

func TestAuthMiddleware_Authenticate_NotBearer(t *testing.T) {
	m := NewAuthMiddleware(newMiddlewareCodec(t))

	_, rec, err := runAuthenticate(t, m, "Basic dXNlcjpwYXNz")

	assert.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "INVALID_TOKEN_FORMAT")
}

func TestAuthMiddleware_Authenticate_ExpiredTokenRejected(t *testing.T) {
	codec := newMiddlewareCodec(t)
	m := NewAuthMiddleware(codec)

	token, _ := signTestToken(t, codec, []string{"member"}, true)
	_, rec, err := runAuthenticate(t, m, "Bearer "+token)

	assert.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "INVALID_TOKEN")
}

func TestAuthMiddleware_Authenticate_GarbageToken(t *testing.T) {
	m := NewAuthMiddleware(newMiddlewareCodec(t))

	_, rec, err := runAuthenticate(t, m, "Bearer not-a-token")

	assert.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthMiddleware_RequireRole(t *testing.T) {
	codec := newMiddlewareCodec(t)
	m := NewAuthMiddleware(codec)

	handler := func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}

	t.Run("grants matching role", func(t *testing.T) {
		token, _ := signTestToken(t, codec, []string{"member", "admin"}, false)

		e := echo.New()
		req := httptest.NewRequest(http.MethodDelete, "/admin/sessions/expired", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		err := m.Authenticate(m.RequireRole("admin")(handler))(c)
		assert.NoError(t, err)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("denies missing role", func(t *testing.T) {
		token, _ := signTestToken(t, codec, []string{"member"}, false)

		e := echo.New()
		req := httptest.NewRequest(http.MethodDelete, "/admin/sessions/expired", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		err := m.Authenticate(m.RequireRole("admin")(handler))(c)
		assert.NoError(t, err)
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Contains(t, rec.Body.String(), "FORBIDDEN")
	})
}
