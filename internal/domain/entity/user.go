// Package entity contains the core business objects of the project,
// each representing a unique, identifiable concept within the domain.
package entity

import (
	"time"

	"github.com/google/uuid"
)

// User is the identity record the token subsystem authenticates. It is owned
// by the identity side of the service; the token core treats it as read-only
// input when building claims.
type User struct {
	ID           uuid.UUID // The global unique identifier for the user.
	Username     string    // The login identifier, unique across all users.
	Email        string    // The user's contact email, carried into access-token claims.
	PasswordHash string    // Stores the bcrypt-hashed password. Never serialized outward.
	Roles        Roles     // The set of roles granted to this user.
	CreatedAt    time.Time // Timestamp of when this user account was created.
	UpdatedAt    time.Time // Timestamp of the last modification to this user's data.
}
