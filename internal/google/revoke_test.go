package google

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

// withRevokeEndpoint points RevokeToken at a test server for the duration
// of one test.
func withRevokeEndpoint(t *testing.T, url string) {
	t.Helper()
	prev := revokeEndpoint
	revokeEndpoint = url
	t.Cleanup(func() { revokeEndpoint = prev })
}

func TestRevokeToken(t *testing.T) {
	var gotToken string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST, got %s", r.Method)
		}
		if got := r.Header.Get("Content-Type"); got != "application/x-www-form-urlencoded" {
			t.Errorf("Content-Type = %q", got)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("failed to parse form: %v", err)
		}
		gotToken = r.PostForm.Get("token")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()
	withRevokeEndpoint(t, server.URL)

	if err := RevokeToken(context.Background(), nil, "rt-revoke-me"); err != nil {
		t.Fatalf("RevokeToken failed: %v", err)
	}
	if gotToken != "rt-revoke-me" {
		t.Errorf("revoked token = %q, want rt-revoke-me", gotToken)
	}
}

func TestRevokeTokenAlreadyInvalid(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Google's response for tokens that are expired or already revoked.
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()
	withRevokeEndpoint(t, server.URL)

	if err := RevokeToken(context.Background(), nil, "rt-already-dead"); err != nil {
		t.Errorf("RevokeToken should treat an already-invalid token as revoked, got %v", err)
	}
}

func TestRevokeTokenServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()
	withRevokeEndpoint(t, server.URL)

	if err := RevokeToken(context.Background(), nil, "rt-unlucky"); err == nil {
		t.Error("Expected error for server-side failure, got nil")
	}
}

func TestRevokeTokenEmpty(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()
	withRevokeEndpoint(t, server.URL)

	if err := RevokeToken(context.Background(), nil, ""); err == nil {
		t.Error("Expected error for empty token, got nil")
	}
	if called {
		t.Error("No request should be sent for an empty token")
	}
}
