package api

import (
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/otel/attribute"

	"github.com/dayboardhq/dayboard/internal/instrumentation"
	"github.com/dayboardhq/dayboard/internal/logging"
	"github.com/dayboardhq/dayboard/internal/session"
)

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(statusCode int) {
	r.status = statusCode
	r.ResponseWriter.WriteHeader(statusCode)
}

// routeTemplate returns the matched route pattern, e.g.
// "/api/todos/{todoID}". Patterns are low-cardinality by construction,
// which keeps them safe as log fields and metric labels.
func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tmpl, err := route.GetPathTemplate(); err == nil {
			return tmpl
		}
	}
	return "unmatched"
}

// recoverMiddleware turns handler panics into 500 responses instead of
// dropped connections.
func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				s.logger.Error("panic recovered",
					logging.Route(routeTemplate(r)),
					"panic", v,
					"stack", string(debug.Stack()),
				)
				writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware opens the request span, logs each request, and
// records HTTP metrics. Health probes log at debug so they do not drown
// out real traffic.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		route := routeTemplate(r)

		ctx, span := instrumentation.StartHTTPSpan(r.Context(), r.Method, route)
		next.ServeHTTP(rec, r.WithContext(ctx))
		span.SetAttributes(attribute.Int(instrumentation.SpanAttrHTTPStatus, rec.status))
		span.End()

		duration := time.Since(start)
		s.metrics.RecordHTTPRequest(ctx, r.Method, route, rec.status, duration)

		logFn := s.logger.Info
		if strings.HasPrefix(r.URL.Path, "/healthz") || r.URL.Path == "/readyz" {
			logFn = s.logger.Debug
		}
		args := []any{
			"method", r.Method,
			logging.Route(route),
			logging.Status(http.StatusText(rec.status)),
			"status_code", rec.status,
			logging.KeyDuration, duration,
		}
		if traceID := instrumentation.GetTraceID(ctx); traceID != "" {
			args = append(args, "trace_id", traceID)
		}
		logFn("http request", args...)
	})
}

// requireSession verifies the session cookie and stores the session on
// the request context. Requests without a valid session get a 401 and
// never reach the handler.
func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := s.cfg.Sessions.Read(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "session_required", "sign in to use the dashboard")
			return
		}
		next.ServeHTTP(w, r.WithContext(session.WithUser(r.Context(), data)))
	})
}
