package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dayboardhq/dayboard/internal/apperrors"
	"github.com/dayboardhq/dayboard/internal/logging"
	"github.com/dayboardhq/dayboard/internal/session"
	"github.com/dayboardhq/dayboard/internal/store"
	"github.com/dayboardhq/dayboard/internal/todo"
)

// ErrorResponse is the JSON error envelope for every non-2xx response.
type ErrorResponse struct {
	// Error is a stable machine-readable code.
	Error string `json:"error"`

	// Message is a human-readable description. It never carries token
	// values; provider causes surface in Detail.
	Message string `json:"message"`

	// Reconnect is set when the Google account must be reconnected
	// through the consent flow before the request can succeed.
	Reconnect bool `json:"reconnect,omitempty"`

	// Detail carries the provider error for 502 responses.
	Detail string `json:"detail,omitempty"`
}

// writeJSON writes v as a JSON response.
func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a plain error envelope.
func writeError(w http.ResponseWriter, statusCode int, code, message string) {
	writeJSON(w, statusCode, ErrorResponse{Error: code, Message: message})
}

// writeDomainError maps a domain error onto the HTTP taxonomy:
//
//   - not authenticated, reauth required, refresh failed: 401 with a
//     reconnect hint, since all three resolve through the consent flow
//   - provider call failed: 502 with the provider's error as detail
//   - validation: 400, not found: 404
//
// Anything unclassified is a 500; the cause is logged, not returned.
func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		switch appErr.Type {
		case apperrors.TypeNotAuthenticated, apperrors.TypeReauthRequired, apperrors.TypeRefreshFailed:
			writeJSON(w, http.StatusUnauthorized, ErrorResponse{
				Error:     string(appErr.Type),
				Message:   appErr.Message,
				Reconnect: true,
			})
			return
		case apperrors.TypeProviderCallFailed:
			resp := ErrorResponse{Error: string(appErr.Type), Message: appErr.Message}
			if appErr.Cause != nil {
				resp.Detail = appErr.Cause.Error()
			}
			writeJSON(w, http.StatusBadGateway, resp)
			return
		case apperrors.TypeValidation:
			writeError(w, http.StatusBadRequest, string(appErr.Type), appErr.Message)
			return
		case apperrors.TypeNotFound:
			writeError(w, http.StatusNotFound, string(appErr.Type), appErr.Message)
			return
		}
	}

	if errors.Is(err, store.ErrNotFound) || errors.Is(err, todo.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not_found", "resource not found")
		return
	}

	s.logger.Error("unhandled error", logging.Route(routeTemplate(r)), logging.Err(err))
	writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
}

// sessionData returns the verified session from the request context.
// Handlers behind requireSession can rely on it being present.
func sessionData(r *http.Request) *session.Data {
	data, _ := session.UserFromContext(r.Context())
	return data
}

// decodeBody decodes a JSON request body into v.
func decodeBody(r *http.Request, v any) error {
	defer func() { _ = r.Body.Close() }()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return apperrors.Validation("invalid JSON body: " + err.Error())
	}
	return nil
}
