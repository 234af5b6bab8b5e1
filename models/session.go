package models

import "time"

// SessionView is the request-scoped projection of a decoded session token.
// It is rebuilt from the token on every request and never mutated in place;
// the role comes from the token claims alone, not from the account registry.
type SessionView struct {
	UserID          string    `json:"userId"`
	Role            Role      `json:"role"`
	IsAuthenticated bool      `json:"isAuthenticated"`
	IssuedAt        time.Time `json:"issuedAt"`
	ExpiresAt       time.Time `json:"expiresAt"`
}

// IsAdmin reports whether the session belongs to an admin account.
func (s SessionView) IsAdmin() bool {
	return s.IsAuthenticated && s.Role == RoleAdmin
}
