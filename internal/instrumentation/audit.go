package instrumentation

import (
	"log/slog"
	"time"
)

// ProviderInvocation captures all information about one Google API operation
// the dashboard performed on a user's behalf. This provides an audit trail
// for every remote call that touches user data.
//
// # Privacy Considerations
//
// The UserEmail field contains PII. When logging, consider:
//   - Using UserDomain() to get only the domain for metrics/general logs
//   - Only logging full email in audit-specific log streams
//   - Ensuring audit logs have appropriate access controls
type ProviderInvocation struct {
	// Target information for Google services
	Service   string // Google service (gmail, calendar, tasks)
	Operation string // Operation name (list_messages, insert_event, move_task)

	// User identity
	UserID    string // Opaque account ID
	UserEmail string // Email from the session; PII

	// Route is the HTTP route template that triggered the call.
	Route string

	// Execution details
	StartTime time.Time
	Duration  time.Duration
	Success   bool
	Error     string

	// Tracing context
	TraceID string
	SpanID  string
}

// NewProviderInvocation creates a new ProviderInvocation with timing started.
// Call Complete() when the provider call finishes.
func NewProviderInvocation(service, operation string) *ProviderInvocation {
	return &ProviderInvocation{
		Service:   service,
		Operation: operation,
		StartTime: time.Now(),
	}
}

// WithUser sets the user identity information.
func (pi *ProviderInvocation) WithUser(userID, email string) *ProviderInvocation {
	pi.UserID = userID
	pi.UserEmail = email
	return pi
}

// WithRoute sets the HTTP route template that triggered the call.
func (pi *ProviderInvocation) WithRoute(route string) *ProviderInvocation {
	pi.Route = route
	return pi
}

// WithSpanContext records the identifiers of the span covering the call.
func (pi *ProviderInvocation) WithSpanContext(traceID, spanID string) *ProviderInvocation {
	pi.TraceID = traceID
	pi.SpanID = spanID
	return pi
}

// Complete marks the invocation as finished and calculates duration.
// Returns the same ProviderInvocation for method chaining.
func (pi *ProviderInvocation) Complete(err error) *ProviderInvocation {
	pi.Duration = time.Since(pi.StartTime)
	pi.Success = err == nil
	if err != nil {
		pi.Error = err.Error()
	}
	return pi
}

// UserDomain returns the domain portion of the user's email for
// lower-cardinality logging.
func (pi *ProviderInvocation) UserDomain() string {
	return ExtractUserDomain(pi.UserEmail)
}

// Status returns "success" or "error" based on the Success field.
func (pi *ProviderInvocation) Status() string {
	if pi.Success {
		return StatusSuccess
	}
	return StatusError
}

// LogAttrs returns slog attributes for structured logging.
//
// # Cardinality
//
// This method uses cardinality-controlled values (opaque user ID plus the
// email domain, never the address itself). For full audit logging, use
// LogAuditAttrs.
func (pi *ProviderInvocation) LogAttrs() []slog.Attr {
	attrs := []slog.Attr{
		slog.String("service", pi.Service),
		slog.String("operation", pi.Operation),
		slog.String("user_id", pi.UserID),
		slog.Duration("duration", pi.Duration),
		slog.Bool("success", pi.Success),
	}

	// Add optional fields only if present
	if pi.UserEmail != "" {
		attrs = append(attrs, slog.String("user_domain", pi.UserDomain()))
	}
	if pi.Route != "" {
		attrs = append(attrs, slog.String("route", pi.Route))
	}
	if pi.TraceID != "" {
		attrs = append(attrs, slog.String("trace_id", pi.TraceID))
	}
	if pi.Error != "" {
		attrs = append(attrs, slog.String("error", pi.Error))
	}

	return attrs
}

// LogAuditAttrs returns slog attributes for full audit logging.
// This includes the full user email for compliance/audit purposes.
//
// # Security Warning
//
// This method includes PII (full email). Ensure audit logs are:
//   - Stored securely with appropriate access controls
//   - Not exposed to general monitoring dashboards
//   - Retained according to compliance requirements
func (pi *ProviderInvocation) LogAuditAttrs() []slog.Attr {
	attrs := []slog.Attr{
		slog.String("service", pi.Service),
		slog.String("operation", pi.Operation),
		slog.String("user_id", pi.UserID),
		slog.String("user", pi.UserEmail),
		slog.Duration("duration", pi.Duration),
		slog.Bool("success", pi.Success),
	}

	if pi.Route != "" {
		attrs = append(attrs, slog.String("route", pi.Route))
	}
	if pi.TraceID != "" {
		attrs = append(attrs, slog.String("trace_id", pi.TraceID))
	}
	if pi.SpanID != "" {
		attrs = append(attrs, slog.String("span_id", pi.SpanID))
	}
	if pi.Error != "" {
		attrs = append(attrs, slog.String("error", pi.Error))
	}

	return attrs
}

// AuditLogger provides structured audit logging for provider invocations.
// It wraps slog.Logger with convenience methods for logging remote calls.
// A nil AuditLogger drops everything, so callers never need a guard.
type AuditLogger struct {
	logger     *slog.Logger
	includePII bool
	enabled    bool
}

// NewAuditLogger creates a new AuditLogger with the given slog.Logger.
// By default, PII is not included in logs (anonymized identifiers are used instead).
func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditLogger{
		logger:     logger,
		includePII: false,
		enabled:    true,
	}
}

// NewAuditLoggerWithConfig creates a new AuditLogger with the given configuration.
func NewAuditLoggerWithConfig(logger *slog.Logger, config AuditLoggingConfig) *AuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditLogger{
		logger:     logger,
		includePII: config.IncludePII,
		enabled:    config.Enabled,
	}
}

// SetIncludePII sets whether to include full email addresses in audit logs.
func (al *AuditLogger) SetIncludePII(include bool) {
	al.includePII = include
}

// SetEnabled sets whether audit logging is enabled.
func (al *AuditLogger) SetEnabled(enabled bool) {
	al.enabled = enabled
}

// LogInvocation logs a provider invocation using the standard log attributes.
// This is suitable for general operational logging with cardinality controls.
// If the logger is configured with IncludePII, full user emails are logged;
// otherwise, only domain-based anonymized identifiers are used.
func (al *AuditLogger) LogInvocation(pi *ProviderInvocation) {
	if al == nil || !al.enabled {
		return
	}

	// Choose between PII and anonymized logging based on configuration
	var attrs []slog.Attr
	if al.includePII {
		attrs = pi.LogAuditAttrs()
	} else {
		attrs = pi.LogAttrs()
	}

	args := make([]any, len(attrs))
	for i, attr := range attrs {
		args[i] = attr
	}

	if pi.Success {
		al.logger.Info("google_api_executed", args...)
	} else {
		al.logger.Warn("google_api_failed", args...)
	}
}

// LogAudit logs a provider invocation with full audit details.
// This includes PII (full email addresses) for compliance/audit purposes.
// SECURITY: Ensure audit logs are routed to secure storage with appropriate access controls.
//
// Note: This method respects the enabled flag but always includes PII when
// called, regardless of the IncludePII configuration. Use LogInvocation for
// configuration-aware logging.
func (al *AuditLogger) LogAudit(pi *ProviderInvocation) {
	if al == nil || !al.enabled {
		return
	}

	attrs := pi.LogAuditAttrs()
	args := make([]any, len(attrs))
	for i, attr := range attrs {
		args[i] = attr
	}

	al.logger.Info("google_api_audit", args...)
}
