// Package auth authenticates bearer tokens and puts the caller's identity on
// the request context.
package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	id "devconnect/pkg/domain"
	dErrors "devconnect/pkg/domain-errors"
	"devconnect/pkg/platform/httputil"
	"devconnect/pkg/requestcontext"
)

// JWTValidator defines the interface for validating JWT tokens
type JWTValidator interface {
	ValidateToken(tokenString string) (*JWTClaims, error)
}

// TokenRevocationChecker defines the interface for checking if tokens are revoked
type TokenRevocationChecker interface {
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// JWTClaims represents the claims we expect from the JWT validator
type JWTClaims struct {
	UserID    id.UserID
	SessionID id.SessionID
	JTI       string // JWT ID for revocation tracking
	ExpiresAt time.Time
}

const bearerPrefix = "Bearer "

var (
	errMissingToken = dErrors.New(dErrors.CodeUnauthorized, "Missing or invalid Authorization header")
	errInvalidToken = dErrors.New(dErrors.CodeUnauthorized, "Invalid or expired token")
	errRevokedToken = dErrors.New(dErrors.CodeUnauthorized, "Token has been revoked")
)

// RequireAuth rejects requests without a valid, unrevoked bearer token.
func RequireAuth(validator JWTValidator, revocationChecker TokenRevocationChecker, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := requestcontext.RequestID(ctx)

			token, ok := bearerToken(r)
			if !ok {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", requestID,
				)
				httputil.WriteError(w, errMissingToken)
				return
			}

			claims, err := authenticate(ctx, validator, revocationChecker, token)
			if err != nil {
				if dErrors.HasCode(err, dErrors.CodeUnauthorized) {
					logger.WarnContext(ctx, "unauthorized access",
						"error", err,
						"request_id", requestID,
					)
				} else {
					logger.ErrorContext(ctx, "failed to check token revocation",
						"error", err,
						"request_id", requestID,
					)
				}
				httputil.WriteError(w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(withClaims(ctx, claims)))
		})
	}
}

// OptionalAuth resolves the identity when a valid token is present and
// otherwise passes the request through anonymously. It never rejects.
func OptionalAuth(validator JWTValidator, revocationChecker TokenRevocationChecker, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			token, ok := bearerToken(r)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}
			claims, err := authenticate(ctx, validator, revocationChecker, token)
			if err != nil {
				logger.DebugContext(ctx, "ignoring unusable token",
					"error", err,
					"request_id", requestcontext.RequestID(ctx),
				)
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(withClaims(ctx, claims)))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), bearerPrefix)
	token = strings.TrimSpace(token)
	return token, ok && token != ""
}

func authenticate(ctx context.Context, validator JWTValidator, revocationChecker TokenRevocationChecker, token string) (*JWTClaims, error) {
	claims, err := validator.ValidateToken(token)
	if err != nil {
		return nil, errInvalidToken
	}
	if revocationChecker == nil {
		return claims, nil
	}
	if claims.JTI == "" {
		return nil, errInvalidToken
	}
	revoked, err := revocationChecker.IsRevoked(ctx, claims.JTI)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to validate token")
	}
	if revoked {
		return nil, errRevokedToken
	}
	return claims, nil
}

func withClaims(ctx context.Context, claims *JWTClaims) context.Context {
	ctx = requestcontext.WithUserID(ctx, claims.UserID)
	ctx = requestcontext.WithSessionID(ctx, claims.SessionID)
	return requestcontext.WithToken(ctx, requestcontext.TokenInfo{
		JTI:       claims.JTI,
		ExpiresAt: claims.ExpiresAt,
	})
}
