// Package session carries the identity of the calling user. Operations
// take a Session value explicitly instead of observing process-wide auth
// state, which keeps them deterministic under test.
package session

import "errors"

// ErrUnauthenticated is returned when an operation requires a current
// user and the session has none. The failing operation performs no side
// effects.
var ErrUnauthenticated = errors.New("session: no authenticated user")

// Session identifies the current user for a single operation.
type Session struct {
	UserID string
}

// Authenticated reports whether the session names a user.
func (s Session) Authenticated() bool {
	return s.UserID != ""
}
