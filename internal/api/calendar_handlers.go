package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/dayboardhq/dayboard/internal/apperrors"
	"github.com/dayboardhq/dayboard/internal/calendar"
)

// calendarID returns the calendar scope for a request. The dashboard
// only works with the primary calendar unless the frontend asks
// otherwise.
func calendarID(r *http.Request) string {
	if id := r.URL.Query().Get("calendarId"); id != "" {
		return id
	}
	return "primary"
}

// handleListEvents lists events in a time range.
//
// Query parameters: timeMin, timeMax (RFC 3339), q, maxResults,
// calendarId.
func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	data := sessionData(r)
	q := r.URL.Query()

	timeMin, err := timeParam(q, "timeMin")
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	timeMax, err := timeParam(q, "timeMax")
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

	ctx, finish := s.traceGoogle(r, "calendar", "list_events")
	events, err := client.Calendar.ListEvents(ctx, calendarID(r), timeMin, timeMax, q.Get("q"), maxResults)
	finish(err)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, events)
}

// handleInsertEvent creates an event.
func (s *Server) handleInsertEvent(w http.ResponseWriter, r *http.Request) {
	data := sessionData(r)

	var input calendar.EventInput
	if err := decodeBody(r, &input); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	if err := validateEventInput(input); err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	client, err := s.cfg.Auth.EnsureClient(r.Context(), data.UserID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	ctx, finish := s.traceGoogle(r, "calendar", "insert_event")
	event, err := client.Calendar.InsertEvent(ctx, calendarID(r), input)
	finish(err)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, event)
}

// handleUpdateEvent applies a partial update to an event. The wrapper
// reads the event first and only overwrites the fields the body names.
func (s *Server) handleUpdateEvent(w http.ResponseWriter, r *http.Request) {
	data := sessionData(r)
	eventID := mux.Vars(r)["eventID"]

	var input calendar.EventInput
	if err := decodeBody(r, &input); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	if err := validateEmails("attendees", input.Attendees); err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	client, err := s.cfg.Auth.EnsureClient(r.Context(), data.UserID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	ctx, finish := s.traceGoogle(r, "calendar", "update_event")
	event, err := client.Calendar.UpdateEvent(ctx, calendarID(r), eventID, input)
	finish(err)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, event)
}

// handleDeleteEvent deletes an event.
func (s *Server) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	data := sessionData(r)
	eventID := mux.Vars(r)["eventID"]

	client, err := s.cfg.Auth.EnsureClient(r.Context(), data.UserID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	ctx, finish := s.traceGoogle(r, "calendar", "delete_event")
	err = client.Calendar.DeleteEvent(ctx, calendarID(r), eventID)
	finish(err)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// validateEventInput checks the fields a new event must carry.
func validateEventInput(input calendar.EventInput) error {
	if input.Summary == "" {
		return apperrors.Validation("summary is required")
	}
	if input.Start.IsZero() || input.End.IsZero() {
		return apperrors.Validation("start and end are required")
	}
	if !input.End.After(input.Start) {
		return apperrors.Validation("end must be after start")
	}
	return validateEmails("attendees", input.Attendees)
}
