package models

import (
	"strings"
	"time"

	id "devconnect/pkg/domain"
	dErrors "devconnect/pkg/domain-errors"
	"devconnect/pkg/email"
)

// User is a registered account. Email is stored normalized; lookups use
// email.Key so uniqueness is case-insensitive.
type User struct {
	ID           id.UserID
	Name         string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// NewUser creates a User with domain invariant validation.
func NewUser(userID id.UserID, name, address, passwordHash string, createdAt time.Time) (*User, error) {
	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "user id cannot be nil")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "name cannot be empty")
	}
	address = email.Normalize(address)
	if !email.IsValid(address) {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "email must be valid")
	}
	if passwordHash == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "password hash cannot be empty")
	}
	return &User{
		ID:           userID,
		Name:         name,
		Email:        address,
		PasswordHash: passwordHash,
		CreatedAt:    createdAt,
	}, nil
}

// EmailKey is the uniqueness key for the user's email.
func (u *User) EmailKey() string {
	return email.Key(u.Email)
}

// AuthResult is a freshly issued session token and its owner.
type AuthResult struct {
	Token     string
	SessionID id.SessionID
	ExpiresAt time.Time
	User      *User
}
