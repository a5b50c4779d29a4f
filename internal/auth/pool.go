package auth

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/oauth2"
	"google.golang.org/api/option"

	"github.com/dayboardhq/dayboard/internal/calendar"
	"github.com/dayboardhq/dayboard/internal/gmail"
	"github.com/dayboardhq/dayboard/internal/tasks"
)

// DefaultPoolSize is the maximum number of users whose service clients are
// kept alive at once.
const DefaultPoolSize = 100

// PooledClient bundles one user's Gmail, Calendar and Tasks clients. All
// three share a single authorized HTTP client, so a token refresh on any of
// them benefits the others.
type PooledClient struct {
	UserID   string
	Gmail    *gmail.Client
	Calendar *calendar.Client
	Tasks    *tasks.Client

	source *notifyingTokenSource
}

// CurrentToken returns the token the client's source last saw, without
// touching the network.
func (p *PooledClient) CurrentToken() *oauth2.Token {
	return p.source.current()
}

// PoolConfig configures a Pool.
type PoolConfig struct {
	// Size caps how many users' clients stay pooled. Defaults to
	// DefaultPoolSize when non-positive.
	Size int

	// OAuth is the application's OAuth config; the pool builds token
	// sources from it.
	OAuth *oauth2.Config

	// OnRefresh receives tokens the provider SDK minted on its own while a
	// pooled client was in use.
	OnRefresh RefreshListener

	// OnEvict is invoked when a least-recently-used client is dropped to
	// make room. It is not invoked for explicit removals.
	OnEvict func(userID string)

	// ClientOptions are passed through to every service client, after the
	// authorized HTTP client. Tests use this to point clients at a local
	// server.
	ClientOptions []option.ClientOption
}

// Pool keeps per-user service clients alive between requests, evicting the
// least recently used when full. Acquiring a client never performs network
// I/O; the underlying services defer all traffic to the first call.
type Pool struct {
	mu       sync.Mutex
	clients  *lru.Cache[string, *PooledClient]
	removing string

	cfg     PoolConfig
	baseCtx context.Context
}

// NewPool creates a client pool bound to ctx. The context must outlive the
// pool; token sources and HTTP clients are built from it, not from request
// contexts.
func NewPool(ctx context.Context, cfg PoolConfig) (*Pool, error) {
	if cfg.OAuth == nil {
		return nil, fmt.Errorf("oauth config is required")
	}
	if cfg.Size <= 0 {
		cfg.Size = DefaultPoolSize
	}

	p := &Pool{
		cfg:     cfg,
		baseCtx: ctx,
	}

	clients, err := lru.NewWithEvict(cfg.Size, func(userID string, _ *PooledClient) {
		// Explicit removals (disconnects) are not capacity evictions.
		if userID == p.removing {
			return
		}
		if cfg.OnEvict != nil {
			cfg.OnEvict(userID)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create client pool: %w", err)
	}
	p.clients = clients

	return p, nil
}

// Acquire returns the pooled client for userID, building one if necessary.
//
// When a snapshot is given and a client already exists, the client's token
// source is reseeded from the snapshot and the same handle is returned;
// callers holding the old handle keep working. When no client exists, the
// snapshot seeds a new one. A nil snapshot turns Acquire into a pure
// lookup, failing if the user has no pooled client.
func (p *Pool) Acquire(userID string, snapshot *CredentialSnapshot) (*PooledClient, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if existing, ok := p.clients.Get(userID); ok {
		if snapshot != nil {
			existing.source.SetToken(snapshot.Token())
		}
		return existing, nil
	}

	if snapshot == nil {
		return nil, fmt.Errorf("no pooled client for user %s and no credential to build one", userID)
	}

	client, err := p.newClient(userID, snapshot)
	if err != nil {
		return nil, err
	}
	p.clients.Add(userID, client)

	return client, nil
}

// newClient builds the per-user client bundle. Construction is purely
// local; the first network traffic happens on the first service call.
func (p *Pool) newClient(userID string, snapshot *CredentialSnapshot) (*PooledClient, error) {
	source := newNotifyingTokenSource(p.baseCtx, userID, p.cfg.OAuth, snapshot.Token(), p.cfg.OnRefresh)

	httpClient := oauth2.NewClient(p.baseCtx, source)

	// Force HTTP/1.1 by disabling HTTP/2
	if transport, ok := httpClient.Transport.(*oauth2.Transport); ok {
		transport.Base = &http.Transport{
			ForceAttemptHTTP2: false,
		}
	}

	gmailClient, err := gmail.NewClient(p.baseCtx, userID, httpClient, p.cfg.ClientOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to create gmail client: %w", err)
	}

	calendarClient, err := calendar.NewClient(p.baseCtx, userID, httpClient, p.cfg.ClientOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar client: %w", err)
	}

	tasksClient, err := tasks.NewClient(p.baseCtx, userID, httpClient, p.cfg.ClientOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to create tasks client: %w", err)
	}

	return &PooledClient{
		UserID:   userID,
		Gmail:    gmailClient,
		Calendar: calendarClient,
		Tasks:    tasksClient,
		source:   source,
	}, nil
}

// Remove drops the user's pooled client, if any. The next Acquire with a
// snapshot builds a fresh one.
func (p *Pool) Remove(userID string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.removing = userID
	p.clients.Remove(userID)
	p.removing = ""
}

// Len returns the number of pooled clients.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.clients.Len()
}
