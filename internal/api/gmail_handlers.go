package api

import (
	"net/http"

	"github.com/dayboardhq/dayboard/internal/apperrors"
	"github.com/dayboardhq/dayboard/internal/gmail"
)

// handleListMessages lists the caller's Gmail messages.
//
// Query parameters: q (Gmail search syntax), label (repeatable),
// maxResults, pageToken.
func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	data := sessionData(r)

	q := r.URL.Query()
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

	ctx, finish := s.traceGoogle(r, "gmail", "list_messages")
	page, err := client.Gmail.ListMessages(ctx, q.Get("q"), q["label"], maxResults, q.Get("pageToken"))
	finish(err)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, page)
}

// handleSendMessage sends an email as the caller.
func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	data := sessionData(r)

	var msg gmail.OutgoingMessage
	if err := decodeBody(r, &msg); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	if len(msg.To) == 0 {
		s.writeDomainError(w, r, apperrors.Validation("to must carry at least one recipient"))
		return
	}
	for field, addrs := range map[string][]string{"to": msg.To, "cc": msg.Cc, "bcc": msg.Bcc} {
		if err := validateEmails(field, addrs); err != nil {
			s.writeDomainError(w, r, err)
			return
		}
	}

	client, err := s.cfg.Auth.EnsureClient(r.Context(), data.UserID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	ctx, finish := s.traceGoogle(r, "gmail", "send_message")
	id, err := client.Gmail.SendMessage(ctx, &msg)
	finish(err)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}
