package api

import (
	"net/http"

	"github.com/gorilla/mux"
)

// buildRouter wires every route. Health probes sit outside the rate
// limiter so orchestrator probes are never throttled; everything under
// /api additionally requires a session.
func (s *Server) buildRouter() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.recoverMiddleware, s.loggingMiddleware)

	// Health endpoints for orchestrator probes.
	r.Handle("/healthz", s.health.LivenessHandler()).Methods(http.MethodGet)
	r.Handle("/readyz", s.health.ReadinessHandler()).Methods(http.MethodGet)
	r.Handle("/healthz/detailed", s.health.DetailedHealthHandler()).Methods(http.MethodGet)

	// Consent flow. No session yet; throttled by client IP.
	authRoutes := r.PathPrefix("/auth").Subrouter()
	authRoutes.Use(s.limiter.Middleware)
	authRoutes.HandleFunc("/google/login", s.handleLogin).Methods(http.MethodGet)
	authRoutes.HandleFunc("/google/callback", s.handleCallback).Methods(http.MethodGet)
	authRoutes.HandleFunc("/logout", s.handleLogout).Methods(http.MethodPost)
	authRoutes.Handle("/disconnect", s.requireSession(http.HandlerFunc(s.handleDisconnect))).Methods(http.MethodPost)

	// Session-authenticated API. The session resolves before the limiter
	// so throttling is keyed per user rather than per IP.
	api := r.PathPrefix("/api").Subrouter()
	api.Use(s.requireSession, s.limiter.Middleware)

	api.HandleFunc("/me", s.handleMe).Methods(http.MethodGet)

	api.HandleFunc("/gmail/messages", s.handleListMessages).Methods(http.MethodGet)
	api.HandleFunc("/gmail/messages/send", s.handleSendMessage).Methods(http.MethodPost)

	api.HandleFunc("/calendar/events", s.handleListEvents).Methods(http.MethodGet)
	api.HandleFunc("/calendar/events", s.handleInsertEvent).Methods(http.MethodPost)
	api.HandleFunc("/calendar/events/{eventID}", s.handleUpdateEvent).Methods(http.MethodPatch)
	api.HandleFunc("/calendar/events/{eventID}", s.handleDeleteEvent).Methods(http.MethodDelete)

	api.HandleFunc("/tasks/lists", s.handleListTaskLists).Methods(http.MethodGet)
	api.HandleFunc("/tasks/lists", s.handleInsertTaskList).Methods(http.MethodPost)
	api.HandleFunc("/tasks/lists/{listID}/tasks", s.handleListTasks).Methods(http.MethodGet)
	api.HandleFunc("/tasks/lists/{listID}/tasks", s.handleInsertTask).Methods(http.MethodPost)
	api.HandleFunc("/tasks/lists/{listID}/tasks/{taskID}", s.handleUpdateTask).Methods(http.MethodPatch)
	api.HandleFunc("/tasks/lists/{listID}/tasks/{taskID}", s.handleDeleteTask).Methods(http.MethodDelete)
	api.HandleFunc("/tasks/lists/{listID}/tasks/{taskID}/toggle", s.handleToggleTask).Methods(http.MethodPost)
	api.HandleFunc("/tasks/lists/{listID}/tasks/{taskID}/move", s.handleMoveTask).Methods(http.MethodPost)
	api.HandleFunc("/tasks/lists/{listID}/clear", s.handleClearCompletedTasks).Methods(http.MethodPost)

	api.HandleFunc("/todos", s.handleListTodos).Methods(http.MethodGet)
	api.HandleFunc("/todos", s.handleCreateTodo).Methods(http.MethodPost)
	api.HandleFunc("/todos/{todoID}", s.handleGetTodo).Methods(http.MethodGet)
	api.HandleFunc("/todos/{todoID}", s.handleUpdateTodo).Methods(http.MethodPatch)
	api.HandleFunc("/todos/{todoID}", s.handleDeleteTodo).Methods(http.MethodDelete)
	api.HandleFunc("/todos/{todoID}/toggle", s.handleToggleTodo).Methods(http.MethodPost)

	return r
}
