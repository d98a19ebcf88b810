package middleware

import (
	"slices"
	"strings"

	"authcore/internal/domain/service"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"authcore/internal/delivery/http/response"
)

const (
	// ContextKeyUserID is the echo.Context key carrying the authenticated user's ID.
	ContextKeyUserID = "userID"
	// ContextKeyRoles is the echo.Context key carrying the authenticated user's roles.
	ContextKeyRoles = "roles"
)

// AuthMiddleware provides middleware for access-token authentication and authorization.
type AuthMiddleware struct {
	codec service.TokenCodec
}

// NewAuthMiddleware is the constructor for AuthMiddleware.
func NewAuthMiddleware(codec service.TokenCodec) *AuthMiddleware {
	return &AuthMiddleware{codec: codec}
}

// Authenticate validates the bearer access token on protected routes. Unlike
// the refresh endpoint, an expired token is rejected here; recovery is the
// refresh endpoint's job.
func (m *AuthMiddleware) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		authHeader := c.Request().Header.Get("Authorization")
		if authHeader == "" {
			return response.Unauthorized(c, "MISSING_TOKEN", "Authorization header is missing")
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			return response.Unauthorized(c, "INVALID_TOKEN_FORMAT", "Invalid token format, must be Bearer token")
		}

		claims, status, err := m.codec.Decode(tokenString)
		if err != nil || status != service.StatusValid {
			return response.Unauthorized(c, "INVALID_TOKEN", "Invalid or expired token")
		}

		userID, err := uuid.Parse(claims.Subject)
		if err != nil {
			return response.Unauthorized(c, "INVALID_TOKEN", "Invalid user ID format in token")
		}

		// Set user info on the context for handlers to use
		c.Set(ContextKeyUserID, userID)
		c.Set(ContextKeyRoles, claims.Roles)

		return next(c)
	}
}

// RequireRole is a middleware factory that checks if the user has a specific role.
// It must be used AFTER the Authenticate middleware.
func (m *AuthMiddleware) RequireRole(requiredRole string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			roles, ok := c.Get(ContextKeyRoles).([]string)
			if !ok {
				return response.Forbidden(c, "FORBIDDEN", "Permission denied: role information missing")
			}

			if !slices.Contains(roles, requiredRole) {
				return response.Forbidden(c, "FORBIDDEN", "Permission denied: require '"+requiredRole+"' role")
			}

			return next(c)
		}
	}
}

// UserIDFromContext extracts the authenticated user's ID set by Authenticate.
func UserIDFromContext(c echo.Context) (uuid.UUID, bool) {
	userID, ok := c.Get(ContextKeyUserID).(uuid.UUID)

	return userID, ok
}
