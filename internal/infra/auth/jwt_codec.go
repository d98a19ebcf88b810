// Package auth provides concrete implementations for authentication-related domain services.
package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"authcore/config"
	domainerrors "authcore/internal/domain/errors"
	"authcore/internal/domain/service"
)

// jwtCodec is a concrete implementation of the TokenCodec interface using the
// JWT standard with HMAC-SHA-256 signing.
type jwtCodec struct {
	secret     []byte
	issuer     string
	audience   string
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewJWTCodec is the constructor for jwtCodec.
// It takes configuration values to create a new token codec instance.
func NewJWTCodec(cfg *config.Config) (service.TokenCodec, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid jwt configuration")
	}

	return &jwtCodec{
		secret:     []byte(cfg.JWT.Secret),
		issuer:     cfg.JWT.Issuer,
		audience:   cfg.JWT.Audience,
		accessTTL:  cfg.JWT.AccessTokenTTL,
		refreshTTL: cfg.JWT.RefreshTokenTTL,
	}, nil
}

// NewClaims builds the claim set for a subject, stamping issuer, audience,
// validity window and a fresh jti.
func (c *jwtCodec) NewClaims(subject, username, email string, roles []string) *service.AccessClaims {
	now := time.Now()

	return &service.AccessClaims{
		Username: username,
		Email:    email,
		Roles:    roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    c.issuer,
			Audience:  jwt.ClaimStrings{c.audience},
			ID:        uuid.New().String(),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.accessTTL)),
		},
	}
}

// Encode signs the claims with HMAC-SHA-256 and returns the compact token
// string together with its absolute expiry.
func (c *jwtCodec) Encode(claims *service.AccessClaims) (string, time.Time, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", time.Time{}, errors.Wrap(err, "failed to sign access token")
	}

	return signed, claims.ExpiresAt.Time, nil
}

// Decode verifies a token string against the shared secret, the pinned
// algorithm, and the configured issuer and audience. An expired token whose
// signature and remaining claims verify is not an error: it is returned with
// StatusExpired so the refresh verifier can branch into its recovery path.
func (c *jwtCodec) Decode(tokenString string) (*service.AccessClaims, service.TokenStatus, error) {
	claims := &service.AccessClaims{}

	_, err := jwt.ParseWithClaims(tokenString, claims, c.keyfunc,
		jwt.WithIssuer(c.issuer),
		jwt.WithAudience(c.audience),
		jwt.WithExpirationRequired(),
	)
	if err == nil {
		return claims, service.StatusValid, nil
	}

	switch {
	case errors.Is(err, domainerrors.ErrUnexpectedAlgorithm):
		return nil, 0, domainerrors.ErrUnexpectedAlgorithm

	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return nil, 0, domainerrors.ErrSignatureMismatch

	case errors.Is(err, jwt.ErrTokenExpired):
		// Expiry is recoverable, but only when it is the sole complaint.
		if errors.Is(err, jwt.ErrTokenInvalidIssuer) || errors.Is(err, jwt.ErrTokenInvalidAudience) {
			return nil, 0, domainerrors.ErrMalformedToken
		}

		return claims, service.StatusExpired, nil

	default:
		return nil, 0, domainerrors.ErrMalformedToken
	}
}

// keyfunc pins the signing algorithm to HS256. Anything else, including
// "none" and asymmetric algorithms, is rejected before signature
// verification, closing the algorithm-substitution hole.
func (c *jwtCodec) keyfunc(token *jwt.Token) (any, error) {
	if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
		return nil, domainerrors.ErrUnexpectedAlgorithm
	}

	return c.secret, nil
}

// AccessTokenTTL returns the configured access-token lifetime.
func (c *jwtCodec) AccessTokenTTL() time.Duration {
	return c.accessTTL
}

// RefreshTokenTTL returns the configured refresh-record lifetime.
func (c *jwtCodec) RefreshTokenTTL() time.Duration {
	return c.refreshTTL
}
