package auth

import (
	"context"
	"errors"
	"time"

	"golang.org/x/oauth2"
)

// ErrCredentialNotFound is returned by CredentialSource implementations when
// no credential exists for the user.
var ErrCredentialNotFound = errors.New("credential not found")

// CredentialSnapshot is an immutable copy of one user's OAuth credential.
// Snapshots move between the store, the cache and the pool by value; nothing
// mutates a snapshot in place.
type CredentialSnapshot struct {
	UserID       string
	AccessToken  string
	RefreshToken string
	Expiry       time.Time
	Scopes       []string
}

// HasAccessToken reports whether the snapshot carries an access token at all.
func (s *CredentialSnapshot) HasAccessToken() bool {
	return s != nil && s.AccessToken != ""
}

// HasRefreshToken reports whether the snapshot carries a refresh token.
func (s *CredentialSnapshot) HasRefreshToken() bool {
	return s != nil && s.RefreshToken != ""
}

// ExpiresWithin reports whether the access token expires within d.
// A zero expiry means the token does not expire.
func (s *CredentialSnapshot) ExpiresWithin(d time.Duration) bool {
	if s.Expiry.IsZero() {
		return false
	}
	return time.Now().Add(d).After(s.Expiry)
}

// Token converts the snapshot to an oauth2 token.
func (s *CredentialSnapshot) Token() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		Expiry:       s.Expiry,
		TokenType:    "Bearer",
	}
}

// SnapshotFromToken builds a snapshot for a user from an oauth2 token,
// carrying the granted scopes along.
func SnapshotFromToken(userID string, token *oauth2.Token, scopes []string) *CredentialSnapshot {
	return &CredentialSnapshot{
		UserID:       userID,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		Expiry:       token.Expiry,
		Scopes:       scopes,
	}
}

// CredentialSource is the persistence boundary the manager reads and writes
// credentials through. Implementations return ErrCredentialNotFound when the
// user has no credential on file.
type CredentialSource interface {
	// Credential returns the stored credential including the token fields,
	// which default reads elsewhere leave out.
	Credential(ctx context.Context, userID string) (*CredentialSnapshot, error)

	// RefreshTokenOf returns just the stored refresh token. Writers must use
	// this rather than a cached copy: the stored value is the authoritative
	// one for the merge rule.
	RefreshTokenOf(ctx context.Context, userID string) (string, error)

	// SaveTokens persists the snapshot's token fields for its user.
	SaveTokens(ctx context.Context, snapshot *CredentialSnapshot) error

	// RemoveCredential deletes the stored credential.
	RemoveCredential(ctx context.Context, userID string) error
}

// TokenRefresher performs the provider's refresh exchange. The token passed
// in carries at least the refresh token; the returned token may or may not
// carry a new one.
type TokenRefresher interface {
	Refresh(ctx context.Context, token *oauth2.Token) (*oauth2.Token, error)
}
