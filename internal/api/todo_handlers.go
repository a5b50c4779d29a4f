package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/dayboardhq/dayboard/internal/todo"
)

// handleListTodos lists the caller's local todos.
func (s *Server) handleListTodos(w http.ResponseWriter, r *http.Request) {
	data := sessionData(r)

	todos, err := s.cfg.Todos.List(r.Context(), data.UserID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, todos)
}

// handleCreateTodo creates a local todo.
func (s *Server) handleCreateTodo(w http.ResponseWriter, r *http.Request) {
	data := sessionData(r)

	var input todo.Input
	if err := decodeBody(r, &input); err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	created, err := s.cfg.Todos.Create(r.Context(), data.UserID, input)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// handleGetTodo returns one todo.
func (s *Server) handleGetTodo(w http.ResponseWriter, r *http.Request) {
	data := sessionData(r)

	item, err := s.cfg.Todos.Get(r.Context(), data.UserID, mux.Vars(r)["todoID"])
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// handleUpdateTodo applies a partial update to a todo.
func (s *Server) handleUpdateTodo(w http.ResponseWriter, r *http.Request) {
	data := sessionData(r)

	var input todo.Input
	if err := decodeBody(r, &input); err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	updated, err := s.cfg.Todos.Update(r.Context(), data.UserID, mux.Vars(r)["todoID"], input)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// handleDeleteTodo deletes a todo.
func (s *Server) handleDeleteTodo(w http.ResponseWriter, r *http.Request) {
	data := sessionData(r)

	if err := s.cfg.Todos.Delete(r.Context(), data.UserID, mux.Vars(r)["todoID"]); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleToggleTodo flips a todo's done flag atomically in the store.
func (s *Server) handleToggleTodo(w http.ResponseWriter, r *http.Request) {
	data := sessionData(r)

	toggled, err := s.cfg.Todos.Toggle(r.Context(), data.UserID, mux.Vars(r)["todoID"])
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toggled)
}
