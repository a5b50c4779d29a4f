package api

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/dayboardhq/dayboard/internal/logging"
	"github.com/dayboardhq/dayboard/internal/session"
)

// DefaultRateLimitWindow is the default fixed window length.
const DefaultRateLimitWindow = time.Minute

// RateLimitConfig configures the fixed-window limiter.
type RateLimitConfig struct {
	// Requests is the number of requests allowed per window per key.
	// Zero or negative disables rate limiting.
	Requests int

	// Window is the fixed window length. Defaults to DefaultRateLimitWindow.
	Window time.Duration

	// Redis shares counters across replicas when set. Without it each
	// process counts on its own, which is fine for a single replica.
	Redis redis.Cmdable

	// TrustProxy trusts X-Forwarded-For / X-Real-IP headers. Only enable
	// behind a trusted reverse proxy.
	TrustProxy bool
}

// RateLimiter throttles requests per user (or per IP before login) in
// fixed windows. Redis keeps the counters when configured; otherwise an
// in-process map does. Backend errors fail open: throttling is load
// protection, not access control, so losing Redis must not take the API
// down with it.
type RateLimiter struct {
	cfg    RateLimitConfig
	logger *slog.Logger

	mu      sync.Mutex
	windows map[string]*window
}

type window struct {
	count   int
	resetAt time.Time
}

// NewRateLimiter creates a rate limiter. A config with Requests <= 0
// returns a limiter that allows everything.
func NewRateLimiter(cfg RateLimitConfig, logger *slog.Logger) *RateLimiter {
	if cfg.Window <= 0 {
		cfg.Window = DefaultRateLimitWindow
	}

	rl := &RateLimiter{
		cfg:     cfg,
		logger:  logger,
		windows: make(map[string]*window),
	}

	if cfg.Requests > 0 && cfg.Redis == nil {
		go rl.sweepExpiredWindows()
	}

	return rl
}

// Allow reports whether a request for the given key fits in the current
// window.
func (rl *RateLimiter) Allow(ctx context.Context, key string) bool {
	if rl == nil || rl.cfg.Requests <= 0 {
		return true
	}

	if rl.cfg.Redis != nil {
		allowed, err := rl.allowRedis(ctx, key)
		if err != nil {
			rl.logger.Warn("rate limit backend unavailable, failing open", logging.Err(err))
			return true
		}
		return allowed
	}

	return rl.allowLocal(key)
}

// allowRedis counts in a per-window Redis key: INCR, then EXPIRE on the
// first hit so abandoned windows clean themselves up.
func (rl *RateLimiter) allowRedis(ctx context.Context, key string) (bool, error) {
	bucket := time.Now().Unix() / int64(rl.cfg.Window.Seconds())
	redisKey := fmt.Sprintf("ratelimit:%s:%d", key, bucket)

	count, err := rl.cfg.Redis.Incr(ctx, redisKey).Result()
	if err != nil {
		return false, fmt.Errorf("failed to increment rate limit counter: %w", err)
	}
	if count == 1 {
		if err := rl.cfg.Redis.Expire(ctx, redisKey, rl.cfg.Window).Err(); err != nil {
			return false, fmt.Errorf("failed to expire rate limit counter: %w", err)
		}
	}

	return count <= int64(rl.cfg.Requests), nil
}

func (rl *RateLimiter) allowLocal(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	w, ok := rl.windows[key]
	if !ok || now.After(w.resetAt) {
		rl.windows[key] = &window{count: 1, resetAt: now.Add(rl.cfg.Window)}
		return true
	}

	w.count++
	return w.count <= rl.cfg.Requests
}

// sweepExpiredWindows drops stale in-process windows so the map does not
// grow with every key ever seen.
func (rl *RateLimiter) sweepExpiredWindows() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		rl.mu.Lock()
		now := time.Now()
		for key, w := range rl.windows {
			if now.After(w.resetAt) {
				delete(rl.windows, key)
			}
		}
		rl.mu.Unlock()
	}
}

// Middleware applies rate limiting. Authenticated requests are keyed by
// user so one noisy user cannot starve others behind the same NAT;
// everything else is keyed by client IP.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	if rl == nil || rl.cfg.Requests <= 0 {
		// No rate limiter configured, pass through
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := "ip:" + clientIP(r, rl.cfg.TrustProxy)
		if data, ok := session.UserFromContext(r.Context()); ok {
			key = "user:" + data.UserID
		}

		if !rl.Allow(r.Context(), key) {
			w.Header().Set("Retry-After", strconv.Itoa(int(rl.cfg.Window.Seconds())))
			writeError(w, http.StatusTooManyRequests, "rate_limited", "too many requests, slow down")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// clientIP extracts the client IP address from the request.
// Proxy headers are only honored when trustProxy is set; otherwise a
// client could smuggle an arbitrary key and dodge the limiter.
func clientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			// First address is the originating client.
			first, _, _ := strings.Cut(xff, ",")
			return strings.TrimSpace(first)
		}
		if xri := r.Header.Get("X-Real-IP"); xri != "" {
			return xri
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
