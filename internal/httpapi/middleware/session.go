package middleware

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"
)

// SessionStore hands out opaque bearer tokens after a successful admin
// login and validates them until they expire or are revoked. State is
// in-memory; restarting the process logs everyone out, which is fine
// for a single admin credential pair.
type SessionStore struct {
	ttl time.Duration

	mu       sync.Mutex
	sessions map[string]time.Time // token -> expiry
}

func NewSessionStore(ttl time.Duration) *SessionStore {
	return &SessionStore{
		ttl:      ttl,
		sessions: make(map[string]time.Time),
	}
}

// Issue creates a new session token. Sessions whose expiry has passed
// are swept here, so abandoned tokens do not pile up for the life of
// the process.
func (s *SessionStore) Issue() (token string, expiresAt time.Time, err error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", time.Time{}, fmt.Errorf("generate session token: %w", err)
	}
	token = hex.EncodeToString(buf)
	now := time.Now()
	expiresAt = now.Add(s.ttl)

	s.mu.Lock()
	for tok, exp := range s.sessions {
		if now.After(exp) {
			delete(s.sessions, tok)
		}
	}
	s.sessions[token] = expiresAt
	s.mu.Unlock()
	return token, expiresAt, nil
}

// Valid reports whether the token names a live session. Expired tokens
// are dropped on the way out.
func (s *SessionStore) Valid(token string) bool {
	if token == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	exp, ok := s.sessions[token]
	if !ok {
		return false
	}
	if time.Now().After(exp) {
		delete(s.sessions, token)
		return false
	}
	return true
}

func (s *SessionStore) Revoke(token string) {
	s.mu.Lock()
	delete(s.sessions, token)
	s.mu.Unlock()
}

// BearerToken pulls the token out of the Authorization header.
func BearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if strings.HasPrefix(strings.ToLower(h), "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// RequireSession guards mutating routes. A nil store means the admin
// credential pair is not configured; requests are allowed through so
// local development works, and preflight flags the gap.
func RequireSession(store *SessionStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if store == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if store.Valid(BearerToken(r)) {
				next.ServeHTTP(w, r)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"unauthorized"}`))
		})
	}
}
