// Package session owns the authenticated user state: it persists the
// {user, token} pair, validates token expiry on every transition, and is
// the single writer of in-memory session state.
package session

import (
	"errors"
	"time"
)

// User identifies the logged-in student.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Session is a validated credential pair. Valid iff ExpiresAt is in the
// future.
type Session struct {
	User      User
	Token     string
	ExpiresAt time.Time
}

// Valid reports whether the session's token is still usable.
func (s *Session) Valid() bool {
	return s != nil && s.ExpiresAt.Unix() > time.Now().Unix()
}

var (
	// ErrSessionExpired signals the token's embedded expiry is in the past;
	// the user must log in again.
	ErrSessionExpired = errors.New("session expired")
	// ErrSessionDecode signals an undecodable token. Callers treat it like
	// ErrSessionExpired; it exists so the two are logged apart.
	ErrSessionDecode = errors.New("session token undecodable")
)
