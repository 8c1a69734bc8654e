package twitchapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func newTokenServer(t *testing.T, tokens ...string) (*httptest.Server, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if got := r.PostForm.Get("grant_type"); got != "client_credentials" {
			t.Errorf("grant_type = %q, want client_credentials", got)
		}
		if got := r.PostForm.Get("client_id"); got != "test-client" {
			t.Errorf("client_id = %q, want test-client", got)
		}
		tok := tokens[len(tokens)-1]
		if int(n) <= len(tokens) {
			tok = tokens[n-1]
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token": tok,
			"expires_in":   3600,
			"token_type":   "bearer",
		})
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestTokenSource_GetCached(t *testing.T) {
	srv, calls := newTokenServer(t, "test-token-123")
	ts := &TokenSource{ClientID: "test-client", ClientSecret: "test-secret", TokenURL: srv.URL}

	ctx := context.Background()
	token1, err := ts.Get(ctx)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if token1 != "test-token-123" {
		t.Errorf("Get() = %s, want test-token-123", token1)
	}
	token2, err := ts.Get(ctx)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if token2 != token1 {
		t.Errorf("cached token = %s, want %s", token2, token1)
	}
	if n := atomic.LoadInt32(calls); n != 1 {
		t.Errorf("expected 1 token request, got %d", n)
	}
}

func TestTokenSource_RefreshesNearExpiry(t *testing.T) {
	srv, calls := newTokenServer(t, "test-token-1", "test-token-2")
	ts := &TokenSource{ClientID: "test-client", ClientSecret: "test-secret", TokenURL: srv.URL}

	if _, err := ts.Get(context.Background()); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	// Inside the one minute buffer counts as expired.
	ts.expiresAt = time.Now().Add(30 * time.Second)

	tok, err := ts.Get(context.Background())
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if tok != "test-token-2" {
		t.Errorf("Get() = %s, want test-token-2 (refreshed)", tok)
	}
	if n := atomic.LoadInt32(calls); n != 2 {
		t.Errorf("expected 2 token requests, got %d", n)
	}
}

func TestTokenSource_GetMissingCredentials(t *testing.T) {
	ts := &TokenSource{}
	_, err := ts.Get(context.Background())
	if err == nil || !strings.Contains(err.Error(), "missing client id/secret") {
		t.Errorf("Get() error = %v, want error about missing credentials", err)
	}
}

func TestTokenSource_GetServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"invalid_client"}`))
	}))
	defer srv.Close()

	ts := &TokenSource{ClientID: "bad-client", ClientSecret: "bad-secret", TokenURL: srv.URL}
	_, err := ts.Get(context.Background())
	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("Get() error = %v, want *TransportError", err)
	}
}

func TestTokenSource_ConcurrentAccess(t *testing.T) {
	srv, calls := newTokenServer(t, "test-token")
	ts := &TokenSource{ClientID: "test-client", ClientSecret: "test-secret", TokenURL: srv.URL}

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tok, err := ts.Get(context.Background())
			if err != nil {
				t.Errorf("Get() error = %v", err)
				return
			}
			if tok != "test-token" {
				t.Errorf("Get() = %s, want test-token", tok)
			}
		}()
	}
	wg.Wait()

	// refresh double-checks under the write lock, so only one fetch happens.
	if n := atomic.LoadInt32(calls); n != 1 {
		t.Errorf("expected 1 token request with concurrent access, got %d", n)
	}
}

func TestTokenSource_Invalidate(t *testing.T) {
	srv, calls := newTokenServer(t, "test-token-1", "test-token-2")
	ts := &TokenSource{ClientID: "test-client", ClientSecret: "test-secret", TokenURL: srv.URL}

	if _, err := ts.Get(context.Background()); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	ts.Invalidate()
	tok, err := ts.Get(context.Background())
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if tok != "test-token-2" {
		t.Errorf("Get() after Invalidate = %s, want test-token-2", tok)
	}
	if n := atomic.LoadInt32(calls); n != 2 {
		t.Errorf("expected 2 token requests, got %d", n)
	}
}
