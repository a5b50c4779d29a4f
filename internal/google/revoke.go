package google

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// revokeEndpoint is Google's OAuth 2.0 token revocation endpoint
// (RFC 7009). A var so tests can point it at a fake.
var revokeEndpoint = "https://oauth2.googleapis.com/revoke"

// revokeTimeout bounds the revocation round trip.
const revokeTimeout = 10 * time.Second

// RevokeToken asks Google to revoke a token. Either token kind is
// accepted; revoking the refresh token invalidates the whole grant,
// including any access tokens minted from it. A nil client falls back
// to http.DefaultClient.
func RevokeToken(ctx context.Context, hc *http.Client, token string) error {
	if token == "" {
		return fmt.Errorf("no token to revoke")
	}
	if hc == nil {
		hc = http.DefaultClient
	}

	ctx, cancel := context.WithTimeout(ctx, revokeTimeout)
	defer cancel()

	form := url.Values{"token": {token}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, revokeEndpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to build revocation request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := hc.Do(req)
	if err != nil {
		return fmt.Errorf("revocation request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	// Google answers 400 for tokens that are already invalid or revoked,
	// which is the state the caller wanted anyway.
	if resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusBadRequest {
		return nil
	}
	return fmt.Errorf("revocation endpoint returned status %d", resp.StatusCode)
}
