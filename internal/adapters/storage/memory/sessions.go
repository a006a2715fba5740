package memory

import (
	"bytes"
	"context"
	"sync"
	"time"

	"github.com/jsamuelsen/quote-generator/internal/domain"
	"github.com/jsamuelsen/quote-generator/internal/ports"
)

// DefaultSessionTTL is how long an untouched session keeps its slots.
const DefaultSessionTTL = 30 * time.Minute

type session struct {
	slots    map[string][]byte
	lastSeen time.Time
}

// SessionStore keeps per-session slots in memory. A session that has not
// been read or written for longer than the TTL is dropped with its slots.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*session
	ttl      time.Duration
	now      func() time.Time
}

var _ ports.SessionStore = (*SessionStore)(nil)

// SessionOption configures a SessionStore.
type SessionOption func(*SessionStore)

// WithClock overrides the time source.
func WithClock(now func() time.Time) SessionOption {
	return func(s *SessionStore) { s.now = now }
}

// NewSessionStore creates a session store with the given idle TTL.
// A non-positive ttl selects DefaultSessionTTL.
func NewSessionStore(ttl time.Duration, opts ...SessionOption) *SessionStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}

	s := &SessionStore{
		sessions: make(map[string]*session),
		ttl:      ttl,
		now:      time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Get returns a session slot and refreshes the session's idle timer.
func (s *SessionStore) Get(_ context.Context, sessionID, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.live(sessionID)
	if sess == nil {
		return nil, domain.NewNotFoundError("session", sessionID)
	}

	v, ok := sess.slots[key]
	if !ok {
		return nil, domain.NewNotFoundError("session slot", key)
	}

	return bytes.Clone(v), nil
}

// Put writes a session slot, starting the session if needed.
func (s *SessionStore) Put(_ context.Context, sessionID, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweep()

	sess := s.live(sessionID)
	if sess == nil {
		sess = &session{slots: make(map[string][]byte), lastSeen: s.now()}
		s.sessions[sessionID] = sess
	}

	sess.slots[key] = bytes.Clone(value)

	return nil
}

// Delete removes a session slot.
func (s *SessionStore) Delete(_ context.Context, sessionID, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess := s.live(sessionID); sess != nil {
		delete(sess.slots, key)
	}

	return nil
}

// Len reports the number of unexpired sessions.
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweep()

	return len(s.sessions)
}

// live returns the session if it has not expired, touching it. Caller holds mu.
func (s *SessionStore) live(sessionID string) *session {
	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil
	}

	now := s.now()
	if now.Sub(sess.lastSeen) > s.ttl {
		delete(s.sessions, sessionID)
		return nil
	}

	sess.lastSeen = now

	return sess
}

// sweep drops every expired session. Caller holds mu.
func (s *SessionStore) sweep() {
	now := s.now()
	for id, sess := range s.sessions {
		if now.Sub(sess.lastSeen) > s.ttl {
			delete(s.sessions, id)
		}
	}
}
