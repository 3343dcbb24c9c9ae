// Package domain holds identifier primitives shared across modules.
//
// UUID-backed identifiers are distinct named types so a session id can never
// be passed where a user id is expected. Parsing happens once, at the trust
// boundary, and rejects nil and malformed values.
package domain

import (
	"strings"

	"github.com/google/uuid"

	dErrors "devconnect/pkg/domain-errors"
)

// UserID identifies an account.
type UserID uuid.UUID

// SessionID identifies one authenticated session (one issued token).
type SessionID uuid.UUID

// DeveloperID identifies a developer record. It is opaque: seeded records use
// short numeric ids, generated ones use UUIDs or a counter.
type DeveloperID string

const maxDeveloperIDLength = 64

func (u UserID) String() string {
	return uuid.UUID(u).String()
}

func (u UserID) IsNil() bool {
	return uuid.UUID(u) == uuid.Nil
}

func (s SessionID) String() string {
	return uuid.UUID(s).String()
}

func (s SessionID) IsNil() bool {
	return uuid.UUID(s) == uuid.Nil
}

func (d DeveloperID) String() string {
	return string(d)
}

// NewUserID returns a random user id.
func NewUserID() UserID { return UserID(uuid.New()) }

// NewSessionID returns a random session id.
func NewSessionID() SessionID { return SessionID(uuid.New()) }

func ParseUserID(s string) (UserID, error) {
	u, err := parseUUID(s, "user ID")
	if err != nil {
		return UserID{}, err
	}
	return UserID(u), nil
}

func ParseSessionID(s string) (SessionID, error) {
	u, err := parseUUID(s, "session ID")
	if err != nil {
		return SessionID{}, err
	}
	return SessionID(u), nil
}

// ParseDeveloperID accepts any trimmed, non-empty id made of printable ASCII
// without path separators.
func ParseDeveloperID(s string) (DeveloperID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "developer ID is required")
	}
	if len(s) > maxDeveloperIDLength {
		return "", dErrors.New(dErrors.CodeInvalidInput, "developer ID is too long")
	}
	for _, r := range s {
		if r <= ' ' || r > '~' || r == '/' {
			return "", dErrors.New(dErrors.CodeInvalidInput, "developer ID contains invalid characters")
		}
	}
	return DeveloperID(s), nil
}

func parseUUID(s, label string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" is required")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+label)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be nil")
	}
	return u, nil
}
