package models

import (
	"encoding/json"
	"time"
)

// Role describes what an account is allowed to do.
type Role string

const (
	// RoleAdmin grants access to the back-office under /admin.
	RoleAdmin Role = "admin"
	// RoleUser is a regular storefront customer.
	RoleUser Role = "user"
)

// Valid reports whether the role is one of the known values.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}

// AccountStatus marks whether an account may sign in.
type AccountStatus string

const (
	AccountActive   AccountStatus = "active"
	AccountInactive AccountStatus = "inactive"
)

// Account represents a registered marketplace user.
// Admin accounts can manage presets, users, analytics and activity logs.
// Regular accounts can browse, favorite and download presets.
type Account struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Email        string        `json:"email"`
	PasswordHash string        `json:"-"` // bcrypt hash, excluded from JSON API responses
	Role         Role          `json:"role"`
	Status       AccountStatus `json:"status"`
	// TokenEpoch invalidates previously issued session tokens when bumped.
	// Tokens carry the epoch they were issued under; decode rejects stale ones.
	TokenEpoch int       `json:"-"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// IsActive reports whether the account may authenticate.
func (a Account) IsActive() bool {
	return a.Status != AccountInactive
}

// MarshalJSON ensures the password hash never leaks into API responses even
// if struct tags change.
func (a Account) MarshalJSON() ([]byte, error) {
	type AccountAlias Account // prevent recursion
	return json.Marshal(&struct {
		AccountAlias
	}{
		AccountAlias: AccountAlias(a),
	})
}

// AccountStorage is the internal representation used for file persistence.
// Unlike Account, this includes the password hash and token epoch.
type AccountStorage struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Email        string        `json:"email"`
	PasswordHash string        `json:"passwordHash"`
	Role         Role          `json:"role"`
	Status       AccountStatus `json:"status"`
	TokenEpoch   int           `json:"tokenEpoch"`
	CreatedAt    time.Time     `json:"createdAt"`
	UpdatedAt    time.Time     `json:"updatedAt"`
}

// ToStorage converts an Account to AccountStorage for persistence.
func (a Account) ToStorage() AccountStorage {
	return AccountStorage{
		ID:           a.ID,
		Name:         a.Name,
		Email:        a.Email,
		PasswordHash: a.PasswordHash,
		Role:         a.Role,
		Status:       a.Status,
		TokenEpoch:   a.TokenEpoch,
		CreatedAt:    a.CreatedAt,
		UpdatedAt:    a.UpdatedAt,
	}
}

// ToAccount converts an AccountStorage back to Account.
func (as AccountStorage) ToAccount() Account {
	return Account{
		ID:           as.ID,
		Name:         as.Name,
		Email:        as.Email,
		PasswordHash: as.PasswordHash,
		Role:         as.Role,
		Status:       as.Status,
		TokenEpoch:   as.TokenEpoch,
		CreatedAt:    as.CreatedAt,
		UpdatedAt:    as.UpdatedAt,
	}
}
