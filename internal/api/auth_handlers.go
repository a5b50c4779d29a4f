package api

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/dayboardhq/dayboard/internal/google"
	"github.com/dayboardhq/dayboard/internal/logging"
	"github.com/dayboardhq/dayboard/internal/store"
)

const (
	// stateCookieName holds the OAuth state between login and callback.
	stateCookieName = "dayboard_oauth_state"

	// stateTTL bounds how long a pending consent flow stays valid.
	stateTTL = 10 * time.Minute
)

// handleLogin starts the consent flow: a random state lands in a
// short-lived cookie and the browser goes to Google. "?force=1" demands
// the consent screen again, which makes Google reissue the refresh
// token; the frontend uses it after a reauth-required error.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	state := uuid.NewString()

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/auth",
		MaxAge:   int(stateTTL.Seconds()),
		HttpOnly: true,
		Secure:   s.cfg.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})

	force := r.URL.Query().Get("force") == "1"
	http.Redirect(w, r, google.AuthCodeURL(s.cfg.OAuth, state, force), http.StatusFound)
}

// handleCallback finishes the consent flow: state check, code exchange,
// profile fetch, account upsert, session issue, redirect to the frontend.
func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	cookie, err := r.Cookie(stateCookieName)
	if err != nil || cookie.Value == "" || cookie.Value != q.Get("state") {
		s.metrics.RecordOAuthAuth(ctx, "failure")
		s.logger.Warn("oauth callback with bad state")
		s.redirectWithError(w, r, "state_mismatch")
		return
	}
	s.clearStateCookie(w)

	if errCode := q.Get("error"); errCode != "" {
		// The user declined on Google's consent screen.
		s.metrics.RecordOAuthAuth(ctx, "failure")
		s.logger.Info("oauth consent declined", "reason", errCode)
		s.redirectWithError(w, r, "consent_declined")
		return
	}

	token, err := s.cfg.OAuth.Exchange(ctx, q.Get("code"))
	if err != nil {
		s.metrics.RecordOAuthAuth(ctx, "failure")
		s.logger.Error("oauth code exchange failed", logging.Err(err))
		s.redirectWithError(w, r, "exchange_failed")
		return
	}

	profile, err := google.FetchProfile(ctx, s.cfg.OAuth, token, s.cfg.ClientOptions...)
	if err != nil {
		s.metrics.RecordOAuthAuth(ctx, "failure")
		s.logger.Error("userinfo fetch failed", logging.Err(err))
		s.redirectWithError(w, r, "profile_failed")
		return
	}

	user, err := s.cfg.Users.CreateOrLink(ctx, store.CreateOrLinkInput{
		GoogleID:     profile.GoogleID,
		Email:        profile.Email,
		Name:         profile.Name,
		Picture:      profile.Picture,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		Expiry:       token.Expiry,
		Scopes:       grantedScopes(token),
	})
	if err != nil {
		s.metrics.RecordOAuthAuth(ctx, "failure")
		s.logger.Error("account link failed", logging.Err(err), logging.UserHash(profile.Email))
		s.redirectWithError(w, r, "link_failed")
		return
	}

	// The store now holds fresher tokens than any cached snapshot.
	s.cfg.Auth.Invalidate(user.ID)

	if err := s.cfg.Sessions.Issue(w, user.ID, user.Email); err != nil {
		s.metrics.RecordOAuthAuth(ctx, "failure")
		s.logger.Error("session issue failed", logging.Err(err), logging.User(user.ID))
		s.redirectWithError(w, r, "session_failed")
		return
	}

	s.metrics.RecordOAuthAuth(ctx, "success")
	s.metrics.IncrementActiveSessions(ctx)
	s.logger.Info("google account connected", logging.User(user.ID), logging.UserHash(user.Email))

	http.Redirect(w, r, s.frontendURL(), http.StatusFound)
}

// handleLogout drops the browser session. The stored Google credential
// stays; logging back in does not require another consent.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if _, err := s.cfg.Sessions.Read(r); err == nil {
		s.metrics.DecrementActiveSessions(r.Context())
	}
	s.cfg.Sessions.Clear(w)
	w.WriteHeader(http.StatusNoContent)
}

// handleDisconnect severs the Google account: credential gone from the
// store, snapshot gone from the cache, clients gone from the pool. The
// dashboard session itself survives.
func (s *Server) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	data := sessionData(r)
	if err := s.cfg.Auth.Disconnect(r.Context(), data.UserID); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleMe returns the caller's profile through the store's default
// projection, which never loads token fields.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	data := sessionData(r)

	user, err := s.cfg.Users.FindByID(r.Context(), data.UserID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	if err := s.cfg.Users.Touch(r.Context(), data.UserID); err != nil {
		s.logger.Debug("last-seen update failed", logging.User(data.UserID), logging.Err(err))
	}

	writeJSON(w, http.StatusOK, user)
}

// grantedScopes prefers the scope set Google reports on the token over
// the requested one; users can narrow grants on the consent screen.
func grantedScopes(token *oauth2.Token) []string {
	if granted, ok := token.Extra("scope").(string); ok && granted != "" {
		return strings.Fields(granted)
	}
	return google.OAuthScopes
}

func (s *Server) frontendURL() string {
	if s.cfg.FrontendURL != "" {
		return s.cfg.FrontendURL
	}
	return "/"
}

func (s *Server) redirectWithError(w http.ResponseWriter, r *http.Request, code string) {
	http.Redirect(w, r, s.frontendURL()+"?error="+url.QueryEscape(code), http.StatusFound)
}

func (s *Server) clearStateCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    "",
		Path:     "/auth",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.cfg.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}
