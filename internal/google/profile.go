package google

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/oauth2"
	oauth2api "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"
)

// profileTimeout bounds the userinfo fetch during the OAuth callback.
const profileTimeout = 5 * time.Second

// Profile is the subset of the OpenID userinfo response the dashboard
// keeps: enough to identify the Google account and render the header.
type Profile struct {
	GoogleID string
	Email    string
	Name     string
	Picture  string
}

// FetchProfile reads the userinfo profile with a freshly exchanged token.
// It runs once per OAuth callback, before the token is persisted, so the
// account can be linked by its stable Google ID rather than by email.
func FetchProfile(ctx context.Context, conf *oauth2.Config, token *oauth2.Token, opts ...option.ClientOption) (*Profile, error) {
	ctx, cancel := context.WithTimeout(ctx, profileTimeout)
	defer cancel()

	clientOpts := append([]option.ClientOption{option.WithHTTPClient(conf.Client(ctx, token))}, opts...)
	svc, err := oauth2api.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create userinfo service: %w", err)
	}

	info, err := svc.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch userinfo: %w", err)
	}
	if info.Id == "" {
		return nil, fmt.Errorf("userinfo response carries no account ID")
	}

	return &Profile{
		GoogleID: info.Id,
		Email:    info.Email,
		Name:     info.Name,
		Picture:  info.Picture,
	}, nil
}
