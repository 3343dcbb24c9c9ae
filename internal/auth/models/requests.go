package models

import (
	"strings"

	dErrors "devconnect/pkg/domain-errors"
	"devconnect/pkg/email"
)

const (
	MinPasswordLength = 6
	// bcrypt ignores input past 72 bytes
	MaxPasswordLength = 72
	MaxNameLength     = 128
)

// SignupRequest is the body of POST /auth/signup.
type SignupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *SignupRequest) Normalize() {
	if r == nil {
		return
	}
	r.Name = strings.TrimSpace(r.Name)
	r.Email = email.Normalize(r.Email)
}

func (r *SignupRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if r.Name == "" {
		return dErrors.New(dErrors.CodeValidation, "name is required")
	}
	if len(r.Name) > MaxNameLength {
		return dErrors.New(dErrors.CodeValidation, "name must be 128 characters or less")
	}
	if r.Email == "" {
		return dErrors.New(dErrors.CodeValidation, "email is required")
	}
	if !email.IsValid(r.Email) {
		return dErrors.New(dErrors.CodeValidation, "invalid email format")
	}
	return validatePassword(r.Password)
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *LoginRequest) Normalize() {
	if r == nil {
		return
	}
	r.Email = email.Normalize(r.Email)
}

func (r *LoginRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if r.Email == "" {
		return dErrors.New(dErrors.CodeValidation, "email is required")
	}
	if r.Password == "" {
		return dErrors.New(dErrors.CodeValidation, "password is required")
	}
	return nil
}

func validatePassword(p string) error {
	switch {
	case p == "":
		return dErrors.New(dErrors.CodeValidation, "password is required")
	case len(p) < MinPasswordLength:
		return dErrors.New(dErrors.CodeValidation, "password must be at least 6 characters")
	case len(p) > MaxPasswordLength:
		return dErrors.New(dErrors.CodeValidation, "password must be 72 bytes or less")
	}
	return nil
}
