package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/option"

	"github.com/dayboardhq/dayboard/internal/apperrors"
	"github.com/dayboardhq/dayboard/internal/instrumentation"
	"github.com/dayboardhq/dayboard/internal/logging"
)

const (
	// RefreshThreshold is how close to expiry an access token may get
	// before EnsureClient refreshes it ahead of use.
	RefreshThreshold = 5 * time.Minute

	// persistTimeout bounds persistence of tokens the SDK minted on its
	// own; those writes run detached from any request context.
	persistTimeout = 5 * time.Second
)

// Refresh trigger labels for metrics.
const (
	refreshTriggerExplicit = "explicit"
	refreshTriggerAuto     = "auto"
)

// googleRefresher exchanges a refresh token against Google's token endpoint.
type googleRefresher struct {
	config *oauth2.Config
}

// Refresh implements TokenRefresher. The seed token deliberately carries no
// access token, so the source performs the exchange instead of handing back
// what it was given.
func (r *googleRefresher) Refresh(ctx context.Context, token *oauth2.Token) (*oauth2.Token, error) {
	if token == nil || token.RefreshToken == "" {
		return nil, fmt.Errorf("refresh token is required")
	}

	fresh, err := r.config.TokenSource(ctx, &oauth2.Token{RefreshToken: token.RefreshToken}).Token()
	if err != nil {
		return nil, fmt.Errorf("failed to exchange refresh token: %w", err)
	}

	return fresh, nil
}

// ManagerConfig configures a Manager.
type ManagerConfig struct {
	// Store is the credential persistence boundary. Required.
	Store CredentialSource

	// OAuth is the application's OAuth config. Required; the pool builds
	// token sources from it.
	OAuth *oauth2.Config

	// Refresher overrides the token refresh exchange. Defaults to the
	// Google token endpoint via OAuth. Tests substitute a fake.
	Refresher TokenRefresher

	// CacheTTL bounds how long credential snapshots are served without a
	// store read. Defaults to DefaultCacheTTL when non-positive.
	CacheTTL time.Duration

	// PoolSize caps the client pool. Defaults to DefaultPoolSize when
	// non-positive.
	PoolSize int

	// ClientOptions are passed through to every service client.
	ClientOptions []option.ClientOption

	Logger  *slog.Logger
	Metrics *instrumentation.Metrics
}

// Manager owns the credential lifecycle: it hands out authorized provider
// clients, refreshes access tokens ahead of expiry, persists tokens the SDK
// minted on its own, and tears everything down on disconnect.
//
// The store is the system of record. The cache and the pool are expendable;
// dropping either only costs a store read or a client rebuild.
type Manager struct {
	store     CredentialSource
	cache     *SnapshotCache
	pool      *Pool
	refresher TokenRefresher

	logger  *slog.Logger
	metrics *instrumentation.Metrics
}

// NewManager creates a Manager bound to ctx. The context must outlive the
// manager; pooled clients and their token sources are built from it.
func NewManager(ctx context.Context, cfg ManagerConfig) (*Manager, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("credential store is required")
	}
	if cfg.OAuth == nil {
		return nil, fmt.Errorf("oauth config is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	m := &Manager{
		store:     cfg.Store,
		cache:     NewSnapshotCache(cfg.CacheTTL),
		refresher: cfg.Refresher,
		logger:    logging.WithService(logger, "auth"),
		metrics:   cfg.Metrics,
	}
	if m.refresher == nil {
		m.refresher = &googleRefresher{config: cfg.OAuth}
	}

	pool, err := NewPool(ctx, PoolConfig{
		Size:      cfg.PoolSize,
		OAuth:     cfg.OAuth,
		OnRefresh: m.handleProviderRefresh,
		OnEvict: func(userID string) {
			m.metrics.RecordPoolEviction(context.Background())
			m.logger.Debug("evicted pooled client", logging.User(userID))
		},
		ClientOptions: cfg.ClientOptions,
	})
	if err != nil {
		return nil, err
	}
	m.pool = pool

	if err := m.metrics.RegisterPoolSize(func() int64 {
		return int64(pool.Len())
	}); err != nil {
		return nil, err
	}

	return m, nil
}

// EnsureClient returns the user's provider clients, ready to make calls.
//
// The credential comes from the cache when fresh enough, otherwise from the
// store. An access token within RefreshThreshold of expiry is refreshed
// before the clients are handed out, so callers never start a request with
// a token about to die mid-flight.
func (m *Manager) EnsureClient(ctx context.Context, userID string) (*PooledClient, error) {
	snapshot, ok := m.cache.Get(userID)
	m.metrics.RecordTokenCacheLookup(ctx, ok)
	if !ok {
		stored, err := m.store.Credential(ctx, userID)
		if err != nil {
			if errors.Is(err, ErrCredentialNotFound) {
				return nil, apperrors.NotAuthenticated(userID)
			}
			return nil, fmt.Errorf("failed to load credential: %w", err)
		}
		m.cache.Set(userID, stored)
		snapshot = stored
	}

	if !snapshot.HasAccessToken() {
		// Consent never completed, or the tokens were wiped.
		return nil, apperrors.NotAuthenticated(userID)
	}

	if snapshot.ExpiresWithin(RefreshThreshold) {
		refreshed, err := m.Refresh(ctx, userID)
		if err != nil {
			return nil, err
		}
		snapshot = refreshed
	}

	return m.pool.Acquire(userID, snapshot)
}

// Refresh exchanges the user's stored refresh token for a new access token,
// persists the result, and reseeds the cache and pool.
//
// The stored refresh token is authoritative; cached copies are never used
// for the exchange. No stored refresh token means the user must go through
// consent again.
func (m *Manager) Refresh(ctx context.Context, userID string) (*CredentialSnapshot, error) {
	refreshToken, err := m.store.RefreshTokenOf(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrCredentialNotFound) {
			return nil, apperrors.NotAuthenticated(userID)
		}
		return nil, fmt.Errorf("failed to load refresh token: %w", err)
	}
	if refreshToken == "" {
		m.metrics.RecordOAuthTokenRefresh(ctx, refreshTriggerExplicit, "reauth_required")
		return nil, apperrors.ReauthRequired(userID)
	}

	fresh, err := m.refresher.Refresh(ctx, &oauth2.Token{RefreshToken: refreshToken})
	if err != nil {
		// The cached snapshot led here; drop it so the next attempt
		// starts from the store.
		m.cache.Invalidate(userID)
		m.metrics.RecordOAuthTokenRefresh(ctx, refreshTriggerExplicit, "failure")
		m.logger.Warn("token refresh failed",
			logging.User(userID),
			logging.Err(err))
		return nil, apperrors.RefreshFailed(userID, err)
	}

	snapshot, err := m.persistRefreshed(ctx, userID, fresh)
	if err != nil {
		return nil, err
	}

	m.metrics.RecordOAuthTokenRefresh(ctx, refreshTriggerExplicit, "success")
	m.logger.Info("token refreshed", logging.User(userID))

	return snapshot, nil
}

// persistRefreshed merges a freshly minted token with the stored credential
// and writes it back. The stored row is re-read immediately before the
// write: a refresh response without a refresh token means "no change",
// never "cleared", and a disconnect that raced the exchange must win.
func (m *Manager) persistRefreshed(ctx context.Context, userID string, fresh *oauth2.Token) (*CredentialSnapshot, error) {
	stored, err := m.store.Credential(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrCredentialNotFound) {
			// The user disconnected while the exchange was in flight.
			// Do not resurrect the credential.
			m.cache.Invalidate(userID)
			return nil, apperrors.NotAuthenticated(userID)
		}
		return nil, fmt.Errorf("failed to re-read credential: %w", err)
	}

	snapshot := &CredentialSnapshot{
		UserID:       userID,
		AccessToken:  fresh.AccessToken,
		RefreshToken: mergeRefreshToken(stored.RefreshToken, fresh.RefreshToken),
		Expiry:       fresh.Expiry,
		Scopes:       stored.Scopes,
	}

	if err := m.store.SaveTokens(ctx, snapshot); err != nil {
		if errors.Is(err, ErrCredentialNotFound) {
			m.cache.Invalidate(userID)
			return nil, apperrors.NotAuthenticated(userID)
		}
		return nil, fmt.Errorf("failed to persist refreshed token: %w", err)
	}

	m.cache.Set(userID, snapshot)
	if _, err := m.pool.Acquire(userID, snapshot); err != nil {
		return nil, err
	}

	return snapshot, nil
}

// mergeRefreshToken applies the provider's "absent means unchanged" rule.
func mergeRefreshToken(stored, incoming string) string {
	if incoming == "" {
		return stored
	}
	return incoming
}

// handleProviderRefresh persists a token the SDK minted mid-call. It runs
// on the calling goroutine but detached from the request context: the
// request may finish before persistence does, and its cancellation must not
// lose the token.
func (m *Manager) handleProviderRefresh(userID string, token *oauth2.Token) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	if _, err := m.persistRefreshed(ctx, userID, token); err != nil {
		// The minted token still serves the in-flight call; the next
		// EnsureClient repairs persistence from the store.
		m.metrics.RecordOAuthTokenRefresh(ctx, refreshTriggerAuto, "failure")
		m.logger.Warn("failed to persist auto-refreshed token",
			logging.User(userID),
			logging.Err(err))
		return
	}

	m.metrics.RecordOAuthTokenRefresh(ctx, refreshTriggerAuto, "success")
	m.logger.Debug("persisted auto-refreshed token", logging.User(userID))
}

// Disconnect removes the user's credential from the store and drops every
// derived copy: cached snapshot and pooled clients. Safe to call when
// nothing is stored.
func (m *Manager) Disconnect(ctx context.Context, userID string) error {
	if err := m.store.RemoveCredential(ctx, userID); err != nil && !errors.Is(err, ErrCredentialNotFound) {
		return fmt.Errorf("failed to remove credential: %w", err)
	}

	m.cache.Invalidate(userID)
	m.pool.Remove(userID)

	m.logger.Info("google account disconnected", logging.User(userID))
	return nil
}

// Invalidate drops the user's cached snapshot so the next EnsureClient
// re-reads the store. The consent handler calls this after writing new
// tokens.
func (m *Manager) Invalidate(userID string) {
	m.cache.Invalidate(userID)
}

// Stats returns cache and pool occupancy for the health endpoint.
func (m *Manager) Stats() map[string]int {
	return map[string]int{
		"cached_snapshots": m.cache.Len(),
		"pooled_clients":   m.pool.Len(),
	}
}
