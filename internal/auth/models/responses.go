package models

import (
	"time"

	"devconnect/internal/audit"
)

// UserResponse is the public view of a user.
type UserResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func FromUser(u *User) *UserResponse {
	if u == nil {
		return nil
	}
	return &UserResponse{ID: u.ID.String(), Name: u.Name, Email: u.Email}
}

// TokenResponse is returned by signup and login.
type TokenResponse struct {
	AccessToken string        `json:"access_token"`
	TokenType   string        `json:"token_type"`
	ExpiresIn   int64         `json:"expires_in"`
	User        *UserResponse `json:"user"`
}

func FromAuthResult(r *AuthResult, now time.Time) *TokenResponse {
	return &TokenResponse{
		AccessToken: r.Token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(r.ExpiresAt.Sub(now).Seconds()),
		User:        FromUser(r.User),
	}
}

// SessionResponse reports whether the caller is signed in.
type SessionResponse struct {
	Authenticated bool          `json:"authenticated"`
	User          *UserResponse `json:"user"`
}

// LockoutResponse is the body of a 429 from login.
type LockoutResponse struct {
	Error       string `json:"error"`
	Description string `json:"error_description"`
	RetryAfter  int64  `json:"retry_after"`
}

// ActivityEvent is one entry of the caller's audit trail.
type ActivityEvent struct {
	Action    string    `json:"action"`
	Subject   string    `json:"subject,omitempty"`
	SessionID string    `json:"session_id,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type ActivityResponse struct {
	Events []ActivityEvent `json:"events"`
	Total  int             `json:"total"`
}

func FromEvents(events []audit.Event) ActivityResponse {
	out := make([]ActivityEvent, 0, len(events))
	for _, e := range events {
		out = append(out, ActivityEvent{
			Action:    string(e.Action),
			Subject:   e.Subject,
			SessionID: e.SessionID,
			RequestID: e.RequestID,
			Timestamp: e.Timestamp,
		})
	}
	return ActivityResponse{Events: out, Total: len(out)}
}
