package jwttoken

import (
	id "devconnect/pkg/domain"
	dErrors "devconnect/pkg/domain-errors"
	authmw "devconnect/pkg/platform/middleware/auth"
)

// ToMiddlewareClaims parses the string ids carried in the token.
func ToMiddlewareClaims(claims *Claims) (*authmw.JWTClaims, error) {
	userID, err := id.ParseUserID(claims.UserID)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	sessionID, err := id.ParseSessionID(claims.SessionID)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	out := &authmw.JWTClaims{
		UserID:    userID,
		SessionID: sessionID,
		JTI:       claims.ID,
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}

type JWTServiceAdapter struct {
	service *JWTService
}

func NewJWTServiceAdapter(service *JWTService) *JWTServiceAdapter {
	return &JWTServiceAdapter{service: service}
}

func (a *JWTServiceAdapter) ValidateToken(tokenString string) (*authmw.JWTClaims, error) {
	claims, err := a.service.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	return ToMiddlewareClaims(claims)
}
