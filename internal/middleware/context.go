package middleware

import (
	"net/http"

	"github.com/wearedev-studio/skillgame-app-sub001/internal/utils"
)

type contextKey string

const (
	ContextKeyUserID    = contextKey("userID")
	ContextKeyUserRole  = contextKey("userRole")
	ContextKeySessionID = contextKey("sessionID")

	// SessionCookieName carries the session identifier for browser clients;
	// it doubles as the CSRF owner key when present.
	SessionCookieName = "sid"
)

// UserIDFromRequest returns the authenticated user ID, or "" when the
// request never passed the auth middleware.
func UserIDFromRequest(r *http.Request) string {
	id, _ := r.Context().Value(ContextKeyUserID).(string)
	return id
}

// SessionIDFromRequest returns the session ID resolved by the auth
// middleware, or "" for unauthenticated requests.
func SessionIDFromRequest(r *http.Request) string {
	id, _ := r.Context().Value(ContextKeySessionID).(string)
	return id
}

// CSRFOwnerKey derives the key a CSRF token is bound to: the session cookie
// when one exists, otherwise the client IP.
func CSRFOwnerKey(r *http.Request) string {
	if c, err := r.Cookie(SessionCookieName); err == nil && c.Value != "" {
		return c.Value
	}
	return utils.ClientIP(r)
}
