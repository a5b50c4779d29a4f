package session

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func issueCookie(t *testing.T, m *Manager, userID, email string) *http.Cookie {
	t.Helper()

	w := httptest.NewRecorder()
	if err := m.Issue(w, userID, email); err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	cookies := w.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("Expected 1 cookie, got %d", len(cookies))
	}
	return cookies[0]
}

func TestNewManager_RejectsShortSecret(t *testing.T) {
	if _, err := NewManager([]byte("short"), 0, true); err == nil {
		t.Error("Expected an error for a short secret")
	}
}

func TestSession_RoundTrip(t *testing.T) {
	m, err := NewManager(testSecret, time.Hour, true)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	cookie := issueCookie(t, m, "u1", "u1@example.com")
	if cookie.Name != CookieName {
		t.Errorf("Expected cookie %s, got %s", CookieName, cookie.Name)
	}
	if !cookie.HttpOnly {
		t.Error("Expected an HttpOnly cookie")
	}
	if !cookie.Secure {
		t.Error("Expected a Secure cookie")
	}

	r := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	r.AddCookie(cookie)

	data, err := m.Read(r)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if data.UserID != "u1" {
		t.Errorf("Expected user u1, got %s", data.UserID)
	}
	if data.Email != "u1@example.com" {
		t.Errorf("Expected email u1@example.com, got %s", data.Email)
	}
	if data.ExpiresAt <= time.Now().Unix() {
		t.Error("Expected the session to expire in the future")
	}
}

func TestSession_NoCookie(t *testing.T) {
	m, _ := NewManager(testSecret, time.Hour, true)

	r := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	if _, err := m.Read(r); !errors.Is(err, ErrNoSession) {
		t.Errorf("Expected ErrNoSession, got %v", err)
	}
}

func TestSession_TamperedPayload(t *testing.T) {
	m, _ := NewManager(testSecret, time.Hour, true)
	cookie := issueCookie(t, m, "u1", "u1@example.com")

	value, sig, _ := strings.Cut(cookie.Value, "|")
	tampered := "A" + value[1:]
	cookie.Value = tampered + "|" + sig

	r := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	r.AddCookie(cookie)

	if _, err := m.Read(r); !errors.Is(err, ErrInvalidSession) {
		t.Errorf("Expected ErrInvalidSession, got %v", err)
	}
}

func TestSession_TamperedSignature(t *testing.T) {
	m, _ := NewManager(testSecret, time.Hour, true)
	cookie := issueCookie(t, m, "u1", "u1@example.com")

	value, _, _ := strings.Cut(cookie.Value, "|")
	cookie.Value = value + "|bm90LWEtcmVhbC1zaWduYXR1cmU="

	r := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	r.AddCookie(cookie)

	if _, err := m.Read(r); !errors.Is(err, ErrInvalidSession) {
		t.Errorf("Expected ErrInvalidSession, got %v", err)
	}
}

func TestSession_WrongSecret(t *testing.T) {
	issuer, _ := NewManager(testSecret, time.Hour, true)
	verifier, _ := NewManager([]byte("ffffffffffffffffffffffffffffffff"), time.Hour, true)

	cookie := issueCookie(t, issuer, "u1", "u1@example.com")

	r := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	r.AddCookie(cookie)

	if _, err := verifier.Read(r); !errors.Is(err, ErrInvalidSession) {
		t.Errorf("Expected ErrInvalidSession, got %v", err)
	}
}

func TestSession_Expired(t *testing.T) {
	m, _ := NewManager(testSecret, time.Nanosecond, true)
	cookie := issueCookie(t, m, "u1", "u1@example.com")

	// The 1ns TTL truncates to the issuing second; a backdated clock edge
	// may keep it alive for under a second.
	time.Sleep(1100 * time.Millisecond)

	r := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	r.AddCookie(cookie)

	if _, err := m.Read(r); !errors.Is(err, ErrExpiredSession) {
		t.Errorf("Expected ErrExpiredSession, got %v", err)
	}
}

func TestSession_Clear(t *testing.T) {
	m, _ := NewManager(testSecret, time.Hour, true)

	w := httptest.NewRecorder()
	m.Clear(w)

	cookies := w.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("Expected 1 cookie, got %d", len(cookies))
	}
	if cookies[0].MaxAge >= 0 {
		t.Error("Expected the cleared cookie to have a negative MaxAge")
	}
	if cookies[0].Value != "" {
		t.Error("Expected the cleared cookie to carry no value")
	}
}

func TestUserFromContext(t *testing.T) {
	if _, ok := UserFromContext(context.Background()); ok {
		t.Error("Expected no session on a bare context")
	}

	data := &Data{UserID: "u1", Email: "u1@example.com"}
	ctx := WithUser(context.Background(), data)

	got, ok := UserFromContext(ctx)
	if !ok {
		t.Fatal("Expected session data in context")
	}
	if got.UserID != "u1" {
		t.Errorf("Expected user u1, got %s", got.UserID)
	}
}
