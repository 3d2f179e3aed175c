// Package models defines the core data structures for users and signing secrets.
package models

import "time"

// User represents an application user with credentials.
type User struct {
	// ID is the unique identifier for the user.
	ID string `json:"id"`
	// Username is the login name chosen by the user.
	Username string `json:"username"`
	// PasswordHash is the bcrypt hash of the user's password.
	// It is never serialized in responses.
	PasswordHash []byte `json:"-"`
	// CreatedTime is when the user registered.
	CreatedTime time.Time `json:"createdTime"`
}

// SecretType defines the set of valid signing-secret kinds.
type SecretType string

const (
	// SecretTypeSignIn is an ephemeral session credential. It is always
	// created with a future DeletedTime, which doubles as its expiry.
	SecretTypeSignIn SecretType = "SignIn"
	// SecretTypeUser is a longer-lived credential whose expiry is
	// optional or caller-supplied.
	SecretTypeUser SecretType = "User"
)

// Secret is a revocable HMAC key record bound to a user. Its Value is the
// private signing material and is never serialized to a client; its Key is
// public and embedded in tokens for lookup.
type Secret struct {
	// Key is the public identifier, used for lookup.
	Key string `json:"key"`
	// Value is the HMAC key material. Never sent over the wire.
	Value string `json:"-"`
	// UserID is the owning user. Many secrets may belong to one user.
	UserID string `json:"userId"`
	// Type is SignIn or User.
	Type SecretType `json:"type"`
	// CreatedTime is when the secret was issued.
	CreatedTime time.Time `json:"createdTime"`
	// DeletedTime carries both scheduled expiry and soft-deletion. A nil
	// value means the secret never expires on its own.
	DeletedTime *time.Time `json:"deletedTime"`
}

// Active reports whether the secret may still anchor token verification at
// the given instant. A secret is inactive once DeletedTime is set and no
// longer in the future.
func (s *Secret) Active(now time.Time) bool {
	return s.DeletedTime == nil || s.DeletedTime.After(now)
}
