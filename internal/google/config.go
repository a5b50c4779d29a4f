package google

import (
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// Config carries the OAuth client registration for the dashboard. Values
// come from configuration; there are no defaults because the client
// secret must never be baked into the binary.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// OAuthConfig returns the OAuth2 configuration for all Google services.
// The same configuration backs the consent URL, the code exchange, and
// every token refresh, so the granted scope set stays uniform.
func OAuthConfig(cfg Config) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint:     google.Endpoint,
		RedirectURL:  cfg.RedirectURL,
		Scopes:       OAuthScopes,
	}
}

// AuthCodeURL returns the consent URL for user authorization. Offline
// access is always requested so that Google issues a refresh token on
// first consent. With force set, the consent screen is shown even for an
// already-authorized client, which makes Google reissue the refresh
// token; callers use it after a refresh failure that demands re-consent.
func AuthCodeURL(conf *oauth2.Config, state string, force bool) string {
	opts := []oauth2.AuthCodeOption{oauth2.AccessTypeOffline}
	if force {
		opts = append(opts, oauth2.SetAuthURLParam("prompt", "consent"))
	}
	return conf.AuthCodeURL(state, opts...)
}
