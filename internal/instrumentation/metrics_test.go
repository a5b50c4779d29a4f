package instrumentation

import (
	"context"
	"testing"
	"time"
)

// newTestProvider builds an enabled provider backed by the prometheus
// exporter. The exporter registers an unchecked collector, so building one
// per test does not conflict on the global registry.
func newTestProvider(t *testing.T, detailedLabels bool) *Provider {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	provider, err := NewProvider(ctx, Config{
		ServiceName:     "test-service",
		ServiceVersion:  "1.0.0",
		Enabled:         true,
		MetricsExporter: "prometheus",
		TracingExporter: "none",
		DetailedLabels:  detailedLabels,
	})
	if err != nil {
		t.Fatalf("failed to create provider: %v", err)
	}
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	return provider
}

func TestMetrics_RecordHTTPRequest(t *testing.T) {
	ctx := context.Background()
	metrics := newTestProvider(t, false).Metrics()
	if metrics == nil {
		t.Fatal("expected metrics to be non-nil")
	}

	// Should not panic
	metrics.RecordHTTPRequest(ctx, "GET", "/api/gmail/messages", 200, 100*time.Millisecond)
	metrics.RecordHTTPRequest(ctx, "POST", "/api/todos", 500, 50*time.Millisecond)
}

func TestMetrics_RecordGoogleAPIOperation(t *testing.T) {
	ctx := context.Background()
	metrics := newTestProvider(t, false).Metrics()

	// Should not panic
	metrics.RecordGoogleAPIOperation(ctx, ServiceGmail, "list_messages", StatusSuccess, 200*time.Millisecond)
	metrics.RecordGoogleAPIOperation(ctx, ServiceCalendar, "insert_event", StatusError, 500*time.Millisecond)
	metrics.RecordGoogleAPIOperation(ctx, ServiceTasks, "move_task", StatusSuccess, 100*time.Millisecond)
}

func TestMetrics_RecordGoogleAPIOperationForUser(t *testing.T) {
	ctx := context.Background()

	// Without detailed labels the user attribute is dropped.
	metrics := newTestProvider(t, false).Metrics()
	metrics.RecordGoogleAPIOperationForUser(ctx, ServiceGmail, "send_message", StatusSuccess, "user-1", 100*time.Millisecond)

	// With detailed labels it is included.
	detailed := newTestProvider(t, true).Metrics()
	detailed.RecordGoogleAPIOperationForUser(ctx, ServiceGmail, "send_message", StatusSuccess, "user-1", 100*time.Millisecond)
}

func TestMetrics_RecordOAuthAuth(t *testing.T) {
	ctx := context.Background()
	metrics := newTestProvider(t, false).Metrics()

	// Should not panic
	metrics.RecordOAuthAuth(ctx, OAuthResultSuccess)
	metrics.RecordOAuthAuth(ctx, OAuthResultFailure)
}

func TestMetrics_RecordOAuthTokenRefresh(t *testing.T) {
	ctx := context.Background()
	metrics := newTestProvider(t, false).Metrics()

	// Should not panic
	metrics.RecordOAuthTokenRefresh(ctx, "explicit", StatusSuccess)
	metrics.RecordOAuthTokenRefresh(ctx, "auto", StatusError)
	metrics.RecordOAuthTokenRefresh(ctx, "explicit", "reauth_required")
}

func TestMetrics_RecordTokenCacheLookup(t *testing.T) {
	ctx := context.Background()
	metrics := newTestProvider(t, false).Metrics()

	// Should not panic
	metrics.RecordTokenCacheLookup(ctx, true)
	metrics.RecordTokenCacheLookup(ctx, false)
}

func TestMetrics_RecordPoolEviction(t *testing.T) {
	ctx := context.Background()
	metrics := newTestProvider(t, false).Metrics()

	// Should not panic
	metrics.RecordPoolEviction(ctx)
}

func TestMetrics_RegisterPoolSize(t *testing.T) {
	metrics := newTestProvider(t, false).Metrics()

	if err := metrics.RegisterPoolSize(func() int64 { return 7 }); err != nil {
		t.Fatalf("RegisterPoolSize failed: %v", err)
	}
}

func TestMetrics_RecordStoreOperation(t *testing.T) {
	ctx := context.Background()
	metrics := newTestProvider(t, false).Metrics()

	// Should not panic
	metrics.RecordStoreOperation(ctx, "users", "find", StatusSuccess, 5*time.Millisecond)
	metrics.RecordStoreOperation(ctx, "todos", "insert", StatusError, 10*time.Millisecond)
}

func TestMetrics_ActiveSessions(t *testing.T) {
	ctx := context.Background()
	metrics := newTestProvider(t, false).Metrics()

	// Should not panic
	metrics.IncrementActiveSessions(ctx)
	metrics.IncrementActiveSessions(ctx)
	metrics.DecrementActiveSessions(ctx)
}

func TestMetrics_NoOp_WhenDisabled(t *testing.T) {
	ctx := context.Background()

	provider, err := NewProvider(ctx, Config{
		ServiceName:    "test-service",
		ServiceVersion: "1.0.0",
		Enabled:        false,
	})
	if err != nil {
		t.Fatalf("failed to create provider: %v", err)
	}

	metrics := provider.Metrics()
	if metrics == nil {
		t.Fatal("expected metrics to be non-nil even when disabled")
	}

	// All these should not panic even with nil underlying metrics
	metrics.RecordHTTPRequest(ctx, "GET", "/api/me", 200, 100*time.Millisecond)
	metrics.RecordGoogleAPIOperation(ctx, ServiceGmail, "list_messages", StatusSuccess, 200*time.Millisecond)
	metrics.RecordGoogleAPIOperationForUser(ctx, ServiceGmail, "list_messages", StatusSuccess, "user-1", 200*time.Millisecond)
	metrics.RecordOAuthAuth(ctx, OAuthResultSuccess)
	metrics.RecordOAuthTokenRefresh(ctx, "explicit", StatusSuccess)
	metrics.RecordTokenCacheLookup(ctx, true)
	metrics.RecordPoolEviction(ctx)
	metrics.RecordStoreOperation(ctx, "users", "find", StatusSuccess, time.Millisecond)
	metrics.IncrementActiveSessions(ctx)
	metrics.DecrementActiveSessions(ctx)

	if err := metrics.RegisterPoolSize(func() int64 { return 0 }); err != nil {
		t.Fatalf("RegisterPoolSize on a disabled provider failed: %v", err)
	}
}

// A nil receiver must also be safe, since components treat metrics as
// optional wiring.
func TestMetrics_NilReceiver(t *testing.T) {
	ctx := context.Background()
	var metrics *Metrics

	metrics.RecordHTTPRequest(ctx, "GET", "/api/me", 200, time.Millisecond)
	metrics.RecordGoogleAPIOperation(ctx, ServiceGmail, "list_messages", StatusSuccess, time.Millisecond)
	metrics.RecordOAuthAuth(ctx, OAuthResultSuccess)
	metrics.RecordTokenCacheLookup(ctx, false)
	metrics.RecordPoolEviction(ctx)
	metrics.IncrementActiveSessions(ctx)

	if err := metrics.RegisterPoolSize(func() int64 { return 0 }); err != nil {
		t.Fatalf("RegisterPoolSize on a nil recorder failed: %v", err)
	}
}
