package service

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenStatus classifies the outcome of decoding an access token. An expired
// but otherwise valid token is an expected condition on the refresh path, not
// an error, so it gets its own status instead of an error value.
type TokenStatus int

const (
	// StatusValid means the token verified and is within its validity window.
	StatusValid TokenStatus = iota
	// StatusExpired means the token verified (signature, issuer, audience,
	// algorithm) but its expiry has passed.
	StatusExpired
)

// AccessClaims defines the claim set carried by access tokens.
type AccessClaims struct {
	Username string   `json:"name"`
	Email    string   `json:"email"`
	Roles    []string `json:"roles"`
	jwt.RegisteredClaims
}

// TokenCodec produces and verifies the signed access tokens. Implementations
// pin a single signing algorithm; a token whose header names any other
// algorithm must be rejected regardless of whether its signature verifies.
type TokenCodec interface {
	// Encode signs a fresh access token for the given claims and returns the
	// compact token string together with its absolute expiry.
	Encode(claims *AccessClaims) (token string, expiresAt time.Time, err error)

	// Decode verifies a token string. On success the status reports whether
	// the token is still within its validity window; claims are returned for
	// both StatusValid and StatusExpired. Structural, signature, algorithm,
	// issuer and audience failures are returned as domain errors.
	Decode(token string) (*AccessClaims, TokenStatus, error)

	// NewClaims builds the claim set for a subject, stamping issuer,
	// audience, validity window and a fresh jti.
	NewClaims(subject string, username, email string, roles []string) *AccessClaims

	// AccessTokenTTL returns the configured access-token lifetime.
	AccessTokenTTL() time.Duration

	// RefreshTokenTTL returns the configured refresh-record lifetime.
	RefreshTokenTTL() time.Duration
}
