// Package requestcontext provides HTTP-independent accessors for request-scoped values.
//
// Middleware sets these values; services read them. Keeping the package free
// of net/http lets services depend on it without pulling in transport code.
//
//	userID := requestcontext.UserID(ctx)
//	sessionID := requestcontext.SessionID(ctx)
//	now := requestcontext.Now(ctx)
package requestcontext

import (
	"context"
	"time"

	id "devconnect/pkg/domain"
)

type (
	userIDKey      struct{}
	sessionIDKey   struct{}
	tokenKey       struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
)

// TokenInfo describes the bearer token that authenticated the request.
type TokenInfo struct {
	JTI       string
	ExpiresAt time.Time
}

// -----------------------------------------------------------------------------
// Auth context
// -----------------------------------------------------------------------------

// UserID returns the authenticated user id, or the nil id when unauthenticated.
func UserID(ctx context.Context) id.UserID {
	if userID, ok := ctx.Value(userIDKey{}).(id.UserID); ok {
		return userID
	}
	return id.UserID{}
}

func WithUserID(ctx context.Context, userID id.UserID) context.Context {
	return context.WithValue(ctx, userIDKey{}, userID)
}

// SessionID returns the session id carried by the token, or the nil id.
func SessionID(ctx context.Context) id.SessionID {
	if sessionID, ok := ctx.Value(sessionIDKey{}).(id.SessionID); ok {
		return sessionID
	}
	return id.SessionID{}
}

func WithSessionID(ctx context.Context, sessionID id.SessionID) context.Context {
	return context.WithValue(ctx, sessionIDKey{}, sessionID)
}

// Token returns the authenticating token's id and expiry.
func Token(ctx context.Context) (TokenInfo, bool) {
	info, ok := ctx.Value(tokenKey{}).(TokenInfo)
	return info, ok
}

func WithToken(ctx context.Context, info TokenInfo) context.Context {
	return context.WithValue(ctx, tokenKey{}, info)
}

// -----------------------------------------------------------------------------
// Request metadata
// -----------------------------------------------------------------------------

func RequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(requestIDKey{}).(string); ok {
		return reqID
	}
	return ""
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// Now returns the request-scoped time, falling back to time.Now() outside
// HTTP requests (tests, background work).
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(requestTimeKey{}).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime pins "now" for everything downstream of ctx.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, requestTimeKey{}, t)
}
