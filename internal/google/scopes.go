package google

// OAuthScopes are the Google OAuth scopes the dashboard requests during
// consent. They are used consistently across the application: the consent
// URL, the code exchange, and every refreshed token carry this set.
//
// The scopes provide access to:
//   - Gmail: read and send (no modify, no settings)
//   - Google Calendar: events only
//   - Google Tasks: full access
//   - OpenID Connect user info (identity for account linking)
var OAuthScopes = []string{
	// OpenID Connect scopes (required for user info)
	"openid",
	"https://www.googleapis.com/auth/userinfo.email",
	"https://www.googleapis.com/auth/userinfo.profile",

	// Gmail scopes
	"https://www.googleapis.com/auth/gmail.readonly",
	"https://www.googleapis.com/auth/gmail.send",

	// Google Calendar scope (events, not calendar settings)
	"https://www.googleapis.com/auth/calendar.events",

	// Google Tasks scope
	"https://www.googleapis.com/auth/tasks",
}
