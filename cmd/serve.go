package cmd

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	redis "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/dayboardhq/dayboard/internal/api"
	"github.com/dayboardhq/dayboard/internal/auth"
	"github.com/dayboardhq/dayboard/internal/google"
	"github.com/dayboardhq/dayboard/internal/instrumentation"
	"github.com/dayboardhq/dayboard/internal/session"
	"github.com/dayboardhq/dayboard/internal/store"
	"github.com/dayboardhq/dayboard/internal/todo"
)

// ServeConfig holds the settings for the serve command
type ServeConfig struct {
	// Addr is the address the API server binds to (e.g. ":8080")
	Addr string

	// BaseURL is the public URL of this server; the OAuth callback is
	// derived from it. Auto-detected for localhost when empty.
	BaseURL string

	// FrontendURL is where the browser is sent after login. Defaults to
	// the base URL.
	FrontendURL string

	// MongoDB connection
	MongoURI      string
	MongoDatabase string

	// Google OAuth client credentials
	GoogleClientID     string
	GoogleClientSecret string

	// Session cookie settings
	SessionSecret string
	SessionTTL    time.Duration
	SecureCookies bool

	// Rate limiting; Redis shares counters across replicas when set
	RedisURL          string
	RateLimitRequests int
	RateLimitWindow   time.Duration
	TrustProxy        bool

	// Logging
	Debug     bool
	LogFormat string

	Metrics MetricsConfig
}

// MetricsConfig holds configuration for the metrics server
type MetricsConfig struct {
	// Enabled determines whether to start the metrics server (default: true)
	Enabled bool

	// Addr is the address for the metrics server (e.g., ":9090")
	Addr string
}

func newServeCmd() *cobra.Command {
	var cfg ServeConfig

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the dashboard API server",
		Long: `Start the HTTP server that backs the dashboard frontend.

The server exposes:
  - The Google OAuth consent flow under /auth
  - The session-authenticated JSON API under /api
  - Health probes at /healthz and /readyz
  - Prometheus metrics on a dedicated port (default :9090)

Required configuration:
  Google OAuth client:
    --google-client-id and --google-client-secret flags
    OR GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET env vars

  Session secret (at least 32 bytes, base64 accepted):
    --session-secret flag OR DAYBOARD_SESSION_SECRET env var
    Generate with: openssl rand -base64 48

Storage:
  Users, tokens and todos live in MongoDB (--mongo-uri). Redis is
  optional and only shares rate-limit counters between replicas.

A .env file in the working directory is loaded on startup so local
development does not need the environment exported by hand.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Load a local .env file if present; deployments set the
			// environment directly.
			_ = godotenv.Load()

			loadServeEnvVars(cmd, &cfg)

			return runServe(cfg)
		},
	}

	cmd.Flags().StringVar(&cfg.Addr, "addr", ":8080", "API server address. Can also use DAYBOARD_ADDR env var.")
	cmd.Flags().StringVar(&cfg.BaseURL, "base-url", "", "Public base URL of this server, used to build the OAuth redirect URL. Required for deployed instances. Can also use DAYBOARD_BASE_URL env var. Example: https://dashboard.example.com")
	cmd.Flags().StringVar(&cfg.FrontendURL, "frontend-url", "", "URL the browser is redirected to after login. Defaults to the base URL. Can also use DAYBOARD_FRONTEND_URL env var.")
	cmd.Flags().StringVar(&cfg.MongoURI, "mongo-uri", "mongodb://localhost:27017", "MongoDB connection string. Can also use MONGODB_URI env var.")
	cmd.Flags().StringVar(&cfg.MongoDatabase, "mongo-database", "dayboard", "MongoDB database name. Can also use MONGODB_DATABASE env var.")
	cmd.Flags().StringVar(&cfg.GoogleClientID, "google-client-id", "", "Google OAuth Client ID. Can also use GOOGLE_CLIENT_ID env var.")
	cmd.Flags().StringVar(&cfg.GoogleClientSecret, "google-client-secret", "", "Google OAuth Client Secret. Can also use GOOGLE_CLIENT_SECRET env var.")
	cmd.Flags().StringVar(&cfg.SessionSecret, "session-secret", "", "Secret for signing session cookies (at least 32 bytes, base64 accepted). Can also use DAYBOARD_SESSION_SECRET env var. Generate with: openssl rand -base64 48")
	cmd.Flags().DurationVar(&cfg.SessionTTL, "session-ttl", session.DefaultTTL, "How long issued sessions stay valid. Can also use DAYBOARD_SESSION_TTL env var.")
	cmd.Flags().BoolVar(&cfg.SecureCookies, "secure-cookies", false, "Mark session cookies Secure; enable when serving over HTTPS. Can also use DAYBOARD_SECURE_COOKIES env var.")
	cmd.Flags().StringVar(&cfg.RedisURL, "redis-url", "", "Redis URL for shared rate-limit counters (e.g. redis://localhost:6379/0). Optional; without it each replica counts on its own. Can also use REDIS_URL env var.")
	cmd.Flags().IntVar(&cfg.RateLimitRequests, "rate-limit", 120, "Requests allowed per user per window. 0 disables rate limiting. Can also use DAYBOARD_RATE_LIMIT env var.")
	cmd.Flags().DurationVar(&cfg.RateLimitWindow, "rate-limit-window", api.DefaultRateLimitWindow, "Rate limit window length.")
	cmd.Flags().BoolVar(&cfg.TrustProxy, "trust-proxy", false, "Trust X-Forwarded-For / X-Real-IP for client IPs. Only enable behind a trusted reverse proxy. Can also use DAYBOARD_TRUST_PROXY env var.")
	cmd.Flags().BoolVar(&cfg.Debug, "debug", false, "Enable debug logging")
	cmd.Flags().StringVar(&cfg.LogFormat, "log-format", "json", "Log output format: json or text")
	cmd.Flags().BoolVar(&cfg.Metrics.Enabled, "metrics-enabled", true, "Enable the metrics server on a dedicated port. Can also use METRICS_ENABLED env var.")
	cmd.Flags().StringVar(&cfg.Metrics.Addr, "metrics-addr", ":9090", "Metrics server address. Can also use METRICS_ADDR env var.")

	return cmd
}

func runServe(cfg ServeConfig) error {
	logger := newLogger(cfg.Debug, cfg.LogFormat)
	slog.SetDefault(logger)

	if cfg.GoogleClientID == "" || cfg.GoogleClientSecret == "" {
		return fmt.Errorf("google OAuth client credentials are required (set --google-client-id and --google-client-secret or GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET)")
	}
	if cfg.SessionSecret == "" {
		return fmt.Errorf("session secret is required (set --session-secret or DAYBOARD_SESSION_SECRET; generate with: openssl rand -base64 48)")
	}

	// Determine base URL from flag, environment variable, or auto-detection
	if cfg.BaseURL == "" {
		cfg.BaseURL = fmt.Sprintf("http://%s", cfg.Addr)
		if strings.HasPrefix(cfg.Addr, ":") {
			cfg.BaseURL = fmt.Sprintf("http://localhost%s", cfg.Addr)
		}
		logger.Info("no base url configured, using auto-detected value (development only)",
			"base_url", cfg.BaseURL)
	}
	if cfg.FrontendURL == "" {
		cfg.FrontendURL = cfg.BaseURL
	}

	// Setup graceful shutdown
	shutdownCtx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Initialize instrumentation provider
	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version

	provider, err := instrumentation.NewProvider(shutdownCtx, instrConfig)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		flushCtx, flushCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer flushCancel()
		if err := provider.Shutdown(flushCtx); err != nil {
			logger.Error("error during instrumentation shutdown", "error", err)
		}
	}()

	var metrics *instrumentation.Metrics
	var audit *instrumentation.AuditLogger
	if provider.Enabled() {
		metrics = provider.Metrics()
		audit = instrumentation.NewAuditLoggerWithConfig(nil, instrConfig.AuditLogging)
	}

	// Connect to MongoDB. Startup fails fast when storage is unreachable;
	// there is nothing useful to serve without it.
	connectCtx, connectCancel := context.WithTimeout(shutdownCtx, 10*time.Second)
	defer connectCancel()

	mongoClient, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	defer func() {
		disconnectCtx, disconnectCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer disconnectCancel()
		if err := mongoClient.Disconnect(disconnectCtx); err != nil {
			logger.Error("error during MongoDB disconnect", "error", err)
		}
	}()
	if err := mongoClient.Ping(connectCtx, nil); err != nil {
		return fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	db := mongoClient.Database(cfg.MongoDatabase)
	users := store.NewUserStore(db, metrics)
	todos := todo.NewStore(db, metrics)

	if err := users.EnsureIndexes(connectCtx); err != nil {
		return fmt.Errorf("failed to ensure user indexes: %w", err)
	}
	if err := todos.EnsureIndexes(connectCtx); err != nil {
		return fmt.Errorf("failed to ensure todo indexes: %w", err)
	}

	oauthConf := google.OAuthConfig(google.Config{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  callbackURL(cfg.BaseURL),
	})

	sessions, err := session.NewManager(sessionSecretBytes(cfg.SessionSecret), cfg.SessionTTL, cfg.SecureCookies)
	if err != nil {
		return fmt.Errorf("failed to create session manager: %w", err)
	}

	authManager, err := auth.NewManager(shutdownCtx, auth.ManagerConfig{
		Store:   users,
		OAuth:   oauthConf,
		Logger:  logger,
		Metrics: metrics,
	})
	if err != nil {
		return fmt.Errorf("failed to create auth manager: %w", err)
	}

	rateLimit := api.RateLimitConfig{
		Requests:   cfg.RateLimitRequests,
		Window:     cfg.RateLimitWindow,
		TrustProxy: cfg.TrustProxy,
	}
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("invalid redis url: %w", err)
		}
		redisClient := redis.NewClient(opts)
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Error("error closing redis client", "error", err)
			}
		}()
		rateLimit.Redis = redisClient
		logger.Info("rate limit counters shared via redis", "addr", opts.Addr)
	}

	srv, err := api.NewServer(api.Config{
		Addr:          cfg.Addr,
		FrontendURL:   cfg.FrontendURL,
		SecureCookies: cfg.SecureCookies,
		Auth:          authManager,
		Users:         users,
		Todos:         todos,
		Sessions:      sessions,
		OAuth:         oauthConf,
		RateLimit:     rateLimit,
		PingDB: func(ctx context.Context) error {
			return mongoClient.Ping(ctx, nil)
		},
		Logger:  logger,
		Metrics: metrics,
		Audit:   audit,
	})
	if err != nil {
		return fmt.Errorf("failed to create api server: %w", err)
	}

	// Start metrics server if enabled
	if cfg.Metrics.Enabled && provider.Enabled() {
		metricsServer, err := api.NewMetricsServer(api.MetricsServerConfig{
			Addr:                    cfg.Metrics.Addr,
			InstrumentationProvider: provider,
		})
		if err != nil {
			return fmt.Errorf("failed to create metrics server: %w", err)
		}
		go func() {
			if err := metricsServer.Start(); err != nil && err != http.ErrServerClosed {
				logger.Error("metrics server stopped", "error", err)
			}
		}()
		defer func() {
			stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer stopCancel()
			if err := metricsServer.Shutdown(stopCtx); err != nil {
				logger.Error("error during metrics server shutdown", "error", err)
			}
		}()
		logger.Info("metrics server listening", "addr", metricsServer.Addr())
	}

	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverDone <- err
		}
	}()

	// Stores are connected and the listener is starting; accept traffic.
	srv.Health().SetReady(true)
	logger.Info("dashboard server ready",
		"addr", cfg.Addr,
		"base_url", cfg.BaseURL,
		"version", version)

	select {
	case <-shutdownCtx.Done():
		logger.Info("shutdown signal received, draining requests")
		drainCtx, drainCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer drainCancel()
		if err := srv.Shutdown(drainCtx); err != nil {
			return fmt.Errorf("error shutting down api server: %w", err)
		}
	case err := <-serverDone:
		if err != nil {
			return fmt.Errorf("api server stopped with error: %w", err)
		}
	}

	logger.Info("api server stopped")
	return nil
}

// loadServeEnvVars loads serve configuration from environment variables.
// Environment variables only apply when the corresponding flag was not
// explicitly set, so flags always win.
func loadServeEnvVars(cmd *cobra.Command, cfg *ServeConfig) {
	stringVars := []struct {
		flag   string
		envVar string
		target *string
	}{
		{"addr", "DAYBOARD_ADDR", &cfg.Addr},
		{"base-url", "DAYBOARD_BASE_URL", &cfg.BaseURL},
		{"frontend-url", "DAYBOARD_FRONTEND_URL", &cfg.FrontendURL},
		{"mongo-uri", "MONGODB_URI", &cfg.MongoURI},
		{"mongo-database", "MONGODB_DATABASE", &cfg.MongoDatabase},
		{"google-client-id", "GOOGLE_CLIENT_ID", &cfg.GoogleClientID},
		{"google-client-secret", "GOOGLE_CLIENT_SECRET", &cfg.GoogleClientSecret},
		{"session-secret", "DAYBOARD_SESSION_SECRET", &cfg.SessionSecret},
		{"redis-url", "REDIS_URL", &cfg.RedisURL},
		{"metrics-addr", "METRICS_ADDR", &cfg.Metrics.Addr},
	}
	for _, v := range stringVars {
		if !cmd.Flags().Changed(v.flag) {
			if val := os.Getenv(v.envVar); val != "" {
				*v.target = val
			}
		}
	}

	if !cmd.Flags().Changed("session-ttl") {
		if val := os.Getenv("DAYBOARD_SESSION_TTL"); val != "" {
			if d, err := time.ParseDuration(val); err == nil && d > 0 {
				cfg.SessionTTL = d
			}
		}
	}
	if !cmd.Flags().Changed("secure-cookies") {
		if os.Getenv("DAYBOARD_SECURE_COOKIES") == "true" {
			cfg.SecureCookies = true
		}
	}
	if !cmd.Flags().Changed("trust-proxy") {
		if os.Getenv("DAYBOARD_TRUST_PROXY") == "true" {
			cfg.TrustProxy = true
		}
	}
	if !cmd.Flags().Changed("rate-limit") {
		if val := os.Getenv("DAYBOARD_RATE_LIMIT"); val != "" {
			if n, err := strconv.Atoi(val); err == nil && n >= 0 {
				cfg.RateLimitRequests = n
			}
		}
	}
	if !cmd.Flags().Changed("metrics-enabled") {
		if val := os.Getenv("METRICS_ENABLED"); val != "" {
			if b, err := strconv.ParseBool(val); err == nil {
				cfg.Metrics.Enabled = b
			}
		}
	}
}

// newLogger builds the process logger. JSON is the default so log
// aggregators can parse the output; text is friendlier for local runs.
func newLogger(debug bool, format string) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if format == "text" {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}

// sessionSecretBytes turns the configured secret into key bytes. A
// base64 value is decoded so operators can paste the output of
// "openssl rand -base64 48" directly; anything else is used as the raw
// byte string. Decoded values shorter than the session manager's
// minimum fall back to the raw form rather than silently weakening the
// key.
func sessionSecretBytes(s string) []byte {
	if decoded, err := base64.StdEncoding.DecodeString(s); err == nil && len(decoded) >= 32 {
		return decoded
	}
	return []byte(s)
}

// callbackURL joins the public base URL with the OAuth callback route.
func callbackURL(baseURL string) string {
	return strings.TrimSuffix(baseURL, "/") + "/auth/google/callback"
}
