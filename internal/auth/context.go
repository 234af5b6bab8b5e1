package auth

import (
	"net/http"

	"presetwave/models"
)

// ContextKey is the type used for context keys
type ContextKey string

const (
	// ContextKeySession is the key for the decoded SessionView in the context
	ContextKeySession ContextKey = "session"
)

// SessionFromRequest retrieves the decoded session view from the request
// context. Requests that carried no valid token get a zero, unauthenticated
// view.
func SessionFromRequest(r *http.Request) models.SessionView {
	if view, ok := r.Context().Value(ContextKeySession).(models.SessionView); ok {
		return view
	}
	return models.SessionView{}
}

// UserID retrieves the authenticated account ID from the request context.
func UserID(r *http.Request) string {
	return SessionFromRequest(r).UserID
}

// IsAdmin checks if the request carries an authenticated admin session.
func IsAdmin(r *http.Request) bool {
	return SessionFromRequest(r).IsAdmin()
}
