package service

// PasswordHasher defines the interface for hashing and verifying passwords.
// This abstracts the hashing algorithm from the use cases.
type PasswordHasher interface {
	// Hash generates a hash of the given password.
	Hash(password string) (string, error)

	// Check compares a plaintext password with a hash, returning true on match.
	Check(password, hash string) bool
}
