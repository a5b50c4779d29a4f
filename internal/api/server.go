package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/oauth2"
	"google.golang.org/api/option"

	"github.com/dayboardhq/dayboard/internal/auth"
	"github.com/dayboardhq/dayboard/internal/instrumentation"
	"github.com/dayboardhq/dayboard/internal/logging"
	"github.com/dayboardhq/dayboard/internal/session"
)

const (
	// DefaultAddr is the default address for the API server.
	DefaultAddr = ":8080"

	// DefaultReadHeaderTimeout is the default read header timeout for the API server.
	DefaultReadHeaderTimeout = 10 * time.Second

	// DefaultWriteTimeout leaves room for the slowest provider write call
	// plus response encoding.
	DefaultWriteTimeout = 30 * time.Second

	// DefaultIdleTimeout is the default idle timeout for keep-alive connections.
	DefaultIdleTimeout = 120 * time.Second
)

// Config holds the wiring for the API server.
type Config struct {
	// Addr is the address to bind to (e.g. ":8080").
	Addr string

	// FrontendURL is where the browser is sent after the OAuth callback.
	FrontendURL string

	// SecureCookies marks cookies Secure; enable behind TLS.
	SecureCookies bool

	// Auth owns tokens, refresh, and pooled provider clients. Required.
	Auth *auth.Manager

	// Users is the account store. Required.
	Users UserDirectory

	// Todos is the local task store. Required.
	Todos TodoStore

	// Sessions signs and verifies browser sessions. Required.
	Sessions *session.Manager

	// OAuth is the application's OAuth config. Required.
	OAuth *oauth2.Config

	// RateLimit configures request throttling. Zero value disables it.
	RateLimit RateLimitConfig

	// PingDB verifies storage connectivity for readiness checks. Optional.
	PingDB func(ctx context.Context) error

	// ClientOptions are passed to the userinfo service client.
	ClientOptions []option.ClientOption

	Logger  *slog.Logger
	Metrics *instrumentation.Metrics
	Audit   *instrumentation.AuditLogger
}

// Server is the HTTP surface of the dashboard: the OAuth consent flow,
// the session-authenticated API, and the health probes.
type Server struct {
	cfg        Config
	router     *mux.Router
	httpServer *http.Server
	limiter    *RateLimiter
	health     *HealthChecker

	logger  *slog.Logger
	metrics *instrumentation.Metrics
	audit   *instrumentation.AuditLogger
}

// NewServer creates the API server and builds its routes.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Auth == nil {
		return nil, fmt.Errorf("auth manager is required")
	}
	if cfg.Users == nil {
		return nil, fmt.Errorf("user store is required")
	}
	if cfg.Todos == nil {
		return nil, fmt.Errorf("todo store is required")
	}
	if cfg.Sessions == nil {
		return nil, fmt.Errorf("session manager is required")
	}
	if cfg.OAuth == nil {
		return nil, fmt.Errorf("oauth config is required")
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logging.WithService(logger, "api")

	s := &Server{
		cfg:     cfg,
		limiter: NewRateLimiter(cfg.RateLimit, logger),
		health:  NewHealthChecker(cfg.PingDB),
		logger:  logger,
		metrics: cfg.Metrics,
		audit:   cfg.Audit,
	}
	s.router = s.buildRouter()
	return s, nil
}

// Handler returns the root handler, mostly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Health returns the health checker so the lifecycle owner can flip
// readiness during startup and shutdown.
func (s *Server) Health() *HealthChecker {
	return s.health
}

// ListenAndServe starts the server in a blocking manner.
// Call this in a goroutine if you need non-blocking operation.
func (s *Server) ListenAndServe() error {
	s.httpServer = &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: DefaultReadHeaderTimeout,
		WriteTimeout:      DefaultWriteTimeout,
		IdleTimeout:       DefaultIdleTimeout,
	}

	s.logger.Info("starting api server", "addr", s.cfg.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server. Readiness flips first so
// load balancers stop routing here while in-flight requests drain.
func (s *Server) Shutdown(ctx context.Context) error {
	s.health.SetReady(false)
	if s.httpServer != nil {
		s.logger.Info("shutting down api server")
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

// traceGoogle opens the span and audit record for one provider call.
// Handlers pass the returned context into the wrapper and call finish
// with the wrapper's error, so the measured duration covers only the
// remote call, not session or JSON work. finish ends the span, records
// the operation metric, and emits the audit event.
func (s *Server) traceGoogle(r *http.Request, service, operation string) (context.Context, func(error)) {
	data := sessionData(r)

	inv := instrumentation.NewProviderInvocation(service, operation).
		WithUser(data.UserID, data.Email).
		WithRoute(routeTemplate(r))

	ctx, span := instrumentation.StartGoogleAPISpan(r.Context(), service, operation,
		attribute.String(instrumentation.SpanAttrUser, data.UserID),
	)

	finish := func(err error) {
		if err != nil {
			instrumentation.SetSpanError(span, err)
		} else {
			instrumentation.SetSpanSuccess(span)
		}
		span.End()

		inv.WithSpanContext(instrumentation.GetTraceID(ctx), instrumentation.GetSpanID(ctx)).
			Complete(err)

		s.metrics.RecordGoogleAPIOperationForUser(ctx, service, operation, inv.Status(), data.UserID, inv.Duration)
		s.audit.LogInvocation(inv)
	}
	return ctx, finish
}
