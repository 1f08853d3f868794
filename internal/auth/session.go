package auth

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"tradejournal/internal/core"
)

// CookieName is the session cookie set on login and cleared on logout.
const CookieName = "session"

type session struct {
	userID    int64
	expiresAt time.Time
}

// SessionStore maps opaque tokens to user ids. Tokens are random UUIDs and
// expire after the configured TTL; expired entries are swept by Janitor.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]session
	ttl      time.Duration
}

func NewSessionStore(ttl time.Duration) *SessionStore {
	return &SessionStore{
		sessions: make(map[string]session),
		ttl:      ttl,
	}
}

// Create issues a new token for the given user.
func (s *SessionStore) Create(userID int64) string {
	token := uuid.NewString()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[token] = session{
		userID:    userID,
		expiresAt: time.Now().Add(s.ttl),
	}
	return token
}

// Resolve returns the user id behind a token. Expired tokens are removed on
// the spot and reported as not found.
func (s *SessionStore) Resolve(token string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[token]
	if !ok {
		return 0, core.ErrSessionNotFound
	}
	if time.Now().After(sess.expiresAt) {
		delete(s.sessions, token)
		return 0, core.ErrSessionNotFound
	}
	return sess.userID, nil
}

// Revoke removes a token, typically on logout. Revoking an unknown token is
// a no-op.
func (s *SessionStore) Revoke(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
}

// sweep removes all expired sessions and returns how many were dropped.
func (s *SessionStore) sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	removed := 0
	for token, sess := range s.sessions {
		if now.After(sess.expiresAt) {
			delete(s.sessions, token)
			removed++
		}
	}
	return removed
}

// Janitor periodically sweeps expired sessions until ctx is cancelled. Run
// it in its own goroutine.
func (s *SessionStore) Janitor(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if removed := s.sweep(); removed > 0 {
				slog.Debug("Expired sessions removed", "count", removed)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
