package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequireSession_ValidToken(t *testing.T) {
	store := NewSessionStore(time.Hour)
	token, _, err := store.Issue()
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/servers", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	RequireSession(store)(okHandler()).ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("valid token should pass, got %d", rec.Code)
	}
}

func TestRequireSession_MissingOrBogusToken(t *testing.T) {
	store := NewSessionStore(time.Hour)

	req := httptest.NewRequest(http.MethodPost, "/api/servers", nil)
	rec := httptest.NewRecorder()
	RequireSession(store)(okHandler()).ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("missing token should be 401, got %d", rec.Code)
	}

	req2 := httptest.NewRequest(http.MethodPost, "/api/servers", nil)
	req2.Header.Set("Authorization", "Bearer nope")
	rec2 := httptest.NewRecorder()
	RequireSession(store)(okHandler()).ServeHTTP(rec2, req2)
	if rec2.Code != http.StatusUnauthorized {
		t.Fatalf("bogus token should be 401, got %d", rec2.Code)
	}
}

func TestSessionStore_ExpiryAndRevoke(t *testing.T) {
	store := NewSessionStore(10 * time.Millisecond)
	token, _, err := store.Issue()
	if err != nil {
		t.Fatal(err)
	}
	if !store.Valid(token) {
		t.Fatal("fresh token should be valid")
	}
	time.Sleep(20 * time.Millisecond)
	if store.Valid(token) {
		t.Fatal("expired token should be invalid")
	}

	store2 := NewSessionStore(time.Hour)
	tok2, _, _ := store2.Issue()
	store2.Revoke(tok2)
	if store2.Valid(tok2) {
		t.Fatal("revoked token should be invalid")
	}
}

func TestSessionStore_IssueSweepsExpired(t *testing.T) {
	store := NewSessionStore(10 * time.Millisecond)
	stale, _, err := store.Issue()
	if err != nil {
		t.Fatal(err)
	}
	time.Sleep(20 * time.Millisecond)

	// issuing a fresh token drops the expired one without it ever
	// being presented again
	if _, _, err := store.Issue(); err != nil {
		t.Fatal(err)
	}
	store.mu.Lock()
	_, ok := store.sessions[stale]
	n := len(store.sessions)
	store.mu.Unlock()
	if ok {
		t.Fatal("expired session should have been swept on Issue")
	}
	if n != 1 {
		t.Fatalf("want only the fresh session in the store, got %d", n)
	}
}

func TestRequireSession_NilStoreAllowsAll(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/servers", nil)
	rec := httptest.NewRecorder()
	RequireSession(nil)(okHandler()).ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("nil store should allow (dev mode), got %d", rec.Code)
	}
}
