package auth

import (
	"context"
	"sync"

	"golang.org/x/oauth2"
)

// RefreshListener receives tokens the provider SDK minted on its own while a
// pooled client was in use, so they can be persisted the same way an
// explicit refresh is.
type RefreshListener func(userID string, token *oauth2.Token)

// notifyingTokenSource wraps the provider's token source for one user and
// reports every newly minted access token to the listener. Reseeding via
// SetToken does not notify; those tokens already came from persistence.
type notifyingTokenSource struct {
	userID   string
	config   *oauth2.Config
	listener RefreshListener

	// ctx is the pool's lifetime context, not a request context; the source
	// outlives any single request.
	ctx context.Context

	mu   sync.Mutex
	last *oauth2.Token
	base oauth2.TokenSource
}

func newNotifyingTokenSource(ctx context.Context, userID string, config *oauth2.Config, seed *oauth2.Token, listener RefreshListener) *notifyingTokenSource {
	return &notifyingTokenSource{
		userID:   userID,
		config:   config,
		listener: listener,
		ctx:      ctx,
		last:     seed,
		base:     config.TokenSource(ctx, seed),
	}
}

// Token implements oauth2.TokenSource. The lock is released before the
// listener runs: the listener persists through the store and reseeds the
// pool, which takes this lock again.
func (s *notifyingTokenSource) Token() (*oauth2.Token, error) {
	s.mu.Lock()
	base := s.base
	last := s.last
	s.mu.Unlock()

	token, err := base.Token()
	if err != nil {
		return nil, err
	}

	// A changed access token means the SDK refreshed mid-call
	if last == nil || token.AccessToken != last.AccessToken {
		s.mu.Lock()
		s.last = token
		listener := s.listener
		s.mu.Unlock()

		if listener != nil {
			listener(s.userID, token)
		}
	}

	return token, nil
}

// SetToken reseeds the source with a token that came from persistence, so
// the pooled client starts using it without a notification round-trip.
func (s *notifyingTokenSource) SetToken(token *oauth2.Token) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = token
	s.base = s.config.TokenSource(s.ctx, token)
}

// current returns the token the source last saw, without touching the
// network.
func (s *notifyingTokenSource) current() *oauth2.Token {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}
