// Package session identifies one automation session.
package session

import (
	"github.com/google/uuid"
)

// Session is the opaque identifier the backend uses to correlate every
// command of one automation run. It is immutable once created.
type Session struct {
	id string
}

// New starts a session with a freshly generated identifier.
func New() Session {
	return Session{id: uuid.NewString()}
}

// FromID resumes a session whose identifier was issued elsewhere. An empty
// id starts a new session instead.
func FromID(id string) Session {
	if id == "" {
		return New()
	}
	return Session{id: id}
}

// ID returns the session identifier.
func (s Session) ID() string {
	return s.id
}

func (s Session) String() string {
	return s.id
}
