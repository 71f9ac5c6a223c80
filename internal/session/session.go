// Package session owns the per-visitor session and the persisted
// credential token. No other package reads or writes the token store.
package session

import (
	"context"
	"errors"
	"strings"
	"time"
)

// ErrNotFound is returned by stores when no live session exists for an ID.
var ErrNotFound = errors.New("session not found")

// Session is the server-side record addressed by the session cookie.
type Session struct {
	ID        string    `json:"id"`
	Token     string    `json:"token"`
	Username  string    `json:"username,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	LastSeen  time.Time `json:"last_seen"`
}

// Authenticated reports whether the session holds a non-empty token.
func (s Session) Authenticated() bool {
	return strings.TrimSpace(s.Token) != ""
}

// Store persists sessions. Implementations must be safe for concurrent use.
type Store interface {
	Get(ctx context.Context, id string) (Session, error)
	Save(ctx context.Context, s Session, ttl time.Duration) error
	// Refresh updates LastSeen and the expiry of an existing session. It
	// never creates one and returns ErrNotFound when s.ID is gone.
	Refresh(ctx context.Context, s Session, ttl time.Duration) error
	Delete(ctx context.Context, id string) error
}

type contextKey struct{}

// NewContext returns ctx carrying s.
func NewContext(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// FromContext returns the session stored by the session middleware.
func FromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(contextKey{}).(Session)
	return s, ok
}
