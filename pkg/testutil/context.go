package testutil

import (
	"net/http"

	id "devconnect/pkg/domain"
	"devconnect/pkg/requestcontext"
)

// WithSession puts the identity the auth middleware would resolve onto the
// request context.
func WithSession(req *http.Request, userID id.UserID, sessionID id.SessionID) *http.Request {
	ctx := requestcontext.WithUserID(req.Context(), userID)
	ctx = requestcontext.WithSessionID(ctx, sessionID)
	return req.WithContext(ctx)
}
