// Package session stores interactive view state between requests.
//
// A [Session] pairs a view state with the payload it browses and an
// expiration. Backends:
//   - [MemoryStore]: in-process storage for a single server instance
//   - [RedisStore]: shared storage for multi-instance deployments
//   - [FileStore]: JSON files, used by the CLI to resume exploration
//
// Usage:
//
//	sess := session.New("warehouse", state, session.DefaultTTL)
//	if err := store.Set(ctx, sess); err != nil {
//	    return err
//	}
//
//	sess, err := store.Get(ctx, id)
//	if err != nil {
//	    return err
//	}
//	if sess == nil {
//	    // not found or expired
//	}
package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/matzehuels/pipescope/pkg/view"
)

// Sentinel errors for session operations.
var (
	// ErrNotFound is returned when a session does not exist or has expired.
	ErrNotFound = errors.New("session not found")

	// ErrInvalidID is returned for IDs that are not UUIDs.
	ErrInvalidID = errors.New("invalid session id")
)

// DefaultTTL is the default session lifetime, extended on every write.
const DefaultTTL = 2 * time.Hour

// Session is one user's view of a payload.
type Session struct {
	ID        string     `json:"id"`
	Payload   string     `json:"payload,omitempty"`
	State     view.State `json:"state"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	ExpiresAt time.Time  `json:"expires_at"`
}

// New creates a session with a random UUID.
func New(payload string, state view.State, ttl time.Duration) *Session {
	now := time.Now()
	return &Session{
		ID:        uuid.NewString(),
		Payload:   payload,
		State:     state.Clone(),
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}

// IsExpired returns true if the session has expired.
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// Update replaces the state and extends the expiration by ttl.
func (s *Session) Update(state view.State, ttl time.Duration) {
	now := time.Now()
	s.State = state.Clone()
	s.UpdatedAt = now
	s.ExpiresAt = now.Add(ttl)
}

// Clone returns a deep copy of s.
func (s *Session) Clone() *Session {
	out := *s
	out.State = s.State.Clone()
	return &out
}

// ValidateID checks that id is a UUID. Stores reject other IDs so that an
// ID can never address anything outside the store.
func ValidateID(id string) error {
	if err := uuid.Validate(id); err != nil {
		return ErrInvalidID
	}
	return nil
}

// Store is the interface for session storage backends.
type Store interface {
	// Get retrieves a session by ID.
	// Returns nil, nil if the session doesn't exist or has expired.
	Get(ctx context.Context, id string) (*Session, error)

	// Set stores a session.
	Set(ctx context.Context, sess *Session) error

	// Delete removes a session.
	Delete(ctx context.Context, id string) error

	// Cleanup removes expired sessions (may be a no-op for Redis).
	Cleanup(ctx context.Context) error
}
