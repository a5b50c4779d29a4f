package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/dayboardhq/dayboard/internal/apperrors"
	"github.com/dayboardhq/dayboard/internal/tasks"
)

// handleListTaskLists lists the caller's task lists.
func (s *Server) handleListTaskLists(w http.ResponseWriter, r *http.Request) {
	data := sessionData(r)

	maxResults, err := intParam(r.URL.Query(), "maxResults")
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	client, err := s.cfg.Auth.EnsureClient(r.Context(), data.UserID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	ctx, finish := s.traceGoogle(r, "tasks", "list_task_lists")
	lists, err := client.Tasks.ListTaskLists(ctx, maxResults)
	finish(err)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, lists)
}

// handleInsertTaskList creates a task list.
func (s *Server) handleInsertTaskList(w http.ResponseWriter, r *http.Request) {
	data := sessionData(r)

	var body struct {
		Title string `json:"title"`
	}
	if err := decodeBody(r, &body); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	if body.Title == "" {
		s.writeDomainError(w, r, apperrors.Validation("title is required"))
		return
	}

	client, err := s.cfg.Auth.EnsureClient(r.Context(), data.UserID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	ctx, finish := s.traceGoogle(r, "tasks", "insert_task_list")
	list, err := client.Tasks.InsertTaskList(ctx, body.Title)
	finish(err)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, list)
}

// handleListTasks lists tasks in one list.
//
// Query parameters: showCompleted, dueMin, dueMax (RFC 3339), maxResults.
func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	data := sessionData(r)
	listID := mux.Vars(r)["listID"]
	q := r.URL.Query()

	showCompleted, err := boolParam(q, "showCompleted", false)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	dueMin, err := timeParam(q, "dueMin")
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	dueMax, err := timeParam(q, "dueMax")
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	maxResults, err := intParam(q, "maxResults")
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	client, err := s.cfg.Auth.EnsureClient(r.Context(), data.UserID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	ctx, finish := s.traceGoogle(r, "tasks", "list_tasks")
	items, err := client.Tasks.ListTasks(ctx, listID, showCompleted, dueMin, dueMax, maxResults)
	finish(err)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, items)
}

// handleInsertTask creates a task.
func (s *Server) handleInsertTask(w http.ResponseWriter, r *http.Request) {
	data := sessionData(r)
	listID := mux.Vars(r)["listID"]

	var input tasks.TaskInput
	if err := decodeBody(r, &input); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	if input.Title == "" {
		s.writeDomainError(w, r, apperrors.Validation("title is required"))
		return
	}

	client, err := s.cfg.Auth.EnsureClient(r.Context(), data.UserID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	ctx, finish := s.traceGoogle(r, "tasks", "insert_task")
	task, err := client.Tasks.InsertTask(ctx, listID, input)
	finish(err)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, task)
}

// handleUpdateTask applies a partial update to a task. The wrapper reads
// the task first so fields the body leaves empty survive.
func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	data := sessionData(r)
	vars := mux.Vars(r)

	var input tasks.TaskInput
	if err := decodeBody(r, &input); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	if input.Status != "" && input.Status != tasks.StatusNeedsAction && input.Status != tasks.StatusCompleted {
		s.writeDomainError(w, r, apperrors.Validation("status must be needsAction or completed"))
		return
	}

	client, err := s.cfg.Auth.EnsureClient(r.Context(), data.UserID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	ctx, finish := s.traceGoogle(r, "tasks", "update_task")
	task, err := client.Tasks.UpdateTask(ctx, vars["listID"], vars["taskID"], input)
	finish(err)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, task)
}

// handleDeleteTask deletes a task.
func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	data := sessionData(r)
	vars := mux.Vars(r)

	client, err := s.cfg.Auth.EnsureClient(r.Context(), data.UserID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	ctx, finish := s.traceGoogle(r, "tasks", "delete_task")
	err = client.Tasks.DeleteTask(ctx, vars["listID"], vars["taskID"])
	finish(err)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleToggleTask flips a task between needsAction and completed.
func (s *Server) handleToggleTask(w http.ResponseWriter, r *http.Request) {
	data := sessionData(r)
	vars := mux.Vars(r)

	client, err := s.cfg.Auth.EnsureClient(r.Context(), data.UserID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	ctx, finish := s.traceGoogle(r, "tasks", "toggle_task")
	task, err := client.Tasks.ToggleCompletion(ctx, vars["listID"], vars["taskID"])
	finish(err)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, task)
}

// handleMoveTask repositions a task under a parent or after a sibling.
func (s *Server) handleMoveTask(w http.ResponseWriter, r *http.Request) {
	data := sessionData(r)
	vars := mux.Vars(r)

	var body struct {
		Parent   string `json:"parent"`
		Previous string `json:"previous"`
	}
	if err := decodeBody(r, &body); err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	client, err := s.cfg.Auth.EnsureClient(r.Context(), data.UserID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	ctx, finish := s.traceGoogle(r, "tasks", "move_task")
	task, err := client.Tasks.MoveTask(ctx, vars["listID"], vars["taskID"], body.Parent, body.Previous)
	finish(err)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, task)
}

// handleClearCompletedTasks removes all completed tasks from a list.
func (s *Server) handleClearCompletedTasks(w http.ResponseWriter, r *http.Request) {
	data := sessionData(r)
	listID := mux.Vars(r)["listID"]

	client, err := s.cfg.Auth.EnsureClient(r.Context(), data.UserID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	ctx, finish := s.traceGoogle(r, "tasks", "clear_completed_tasks")
	err = client.Tasks.ClearCompletedTasks(ctx, listID)
	finish(err)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
