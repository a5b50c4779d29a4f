package session

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// CookieName is the session cookie.
const CookieName = "dayboard_session"

// DefaultTTL is how long an issued session stays valid.
const DefaultTTL = 7 * 24 * time.Hour

var (
	// ErrNoSession means the request carried no session cookie.
	ErrNoSession = errors.New("no session")
	// ErrInvalidSession means the cookie was malformed or its signature
	// did not verify.
	ErrInvalidSession = errors.New("invalid session")
	// ErrExpiredSession means the session verified but its TTL has passed.
	ErrExpiredSession = errors.New("session expired")
)

// Data is what a session cookie carries. There is no server-side session
// state; the cookie is the session.
type Data struct {
	UserID    string `json:"uid"`
	Email     string `json:"email"`
	ExpiresAt int64  `json:"exp"`
}

// Manager issues and verifies HMAC-SHA256 signed session cookies. The
// cookie value is "payload|signature" with a base64url JSON payload.
type Manager struct {
	secret []byte
	ttl    time.Duration
	secure bool
}

// NewManager creates a session manager. The secret must be at least 32
// bytes; secure controls the cookie's Secure attribute and should only be
// false for local development over plain HTTP.
func NewManager(secret []byte, ttl time.Duration, secure bool) (*Manager, error) {
	if len(secret) < 32 {
		return nil, fmt.Errorf("session secret must be at least 32 bytes, got %d", len(secret))
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Manager{secret: secret, ttl: ttl, secure: secure}, nil
}

// Issue signs a fresh session for the user and sets it on the response.
func (m *Manager) Issue(w http.ResponseWriter, userID, email string) error {
	data := Data{
		UserID:    userID,
		Email:     email,
		ExpiresAt: time.Now().Add(m.ttl).Unix(),
	}

	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	value := base64.URLEncoding.EncodeToString(payload)
	cookieValue := value + "|" + m.sign(value)

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    cookieValue,
		Path:     "/",
		MaxAge:   int(m.ttl.Seconds()),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Read verifies the request's session cookie and returns its data.
func (m *Manager) Read(r *http.Request) (*Data, error) {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return nil, ErrNoSession
	}

	value, sig, ok := strings.Cut(cookie.Value, "|")
	if !ok {
		return nil, ErrInvalidSession
	}
	if !hmac.Equal([]byte(sig), []byte(m.sign(value))) {
		return nil, ErrInvalidSession
	}

	payload, err := base64.URLEncoding.DecodeString(value)
	if err != nil {
		return nil, ErrInvalidSession
	}

	var data Data
	if err := json.Unmarshal(payload, &data); err != nil {
		return nil, ErrInvalidSession
	}
	if data.UserID == "" {
		return nil, ErrInvalidSession
	}
	if time.Now().Unix() > data.ExpiresAt {
		return nil, ErrExpiredSession
	}

	return &data, nil
}

// Clear expires the session cookie.
func (m *Manager) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (m *Manager) sign(value string) string {
	mac := hmac.New(sha256.New, m.secret)
	mac.Write([]byte(value))
	return base64.URLEncoding.EncodeToString(mac.Sum(nil))
}

type contextKey struct{}

// WithUser attaches verified session data to the context.
func WithUser(ctx context.Context, data *Data) context.Context {
	return context.WithValue(ctx, contextKey{}, data)
}

// UserFromContext returns the session data the middleware attached.
func UserFromContext(ctx context.Context) (*Data, bool) {
	data, ok := ctx.Value(contextKey{}).(*Data)
	return data, ok
}
