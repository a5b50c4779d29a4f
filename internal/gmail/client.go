package gmail

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"time"

	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/dayboardhq/dayboard/internal/apperrors"
)

const (
	// MaxListResults caps how many messages a single list call may return,
	// regardless of what the caller asked for.
	MaxListResults = 100

	readTimeout  = 5 * time.Second
	writeTimeout = 10 * time.Second
)

// Client wraps the Gmail Users service for a single user.
type Client struct {
	svc    *gmail.UsersService
	userID string // The user this client is associated with
}

// UserID returns the user this client is associated with.
func (c *Client) UserID() string {
	return c.userID
}

// NewClient creates a new Gmail client on top of an already-authorized HTTP
// client. The HTTP client must carry the user's OAuth2 token; this package
// never talks to the token endpoint itself.
func NewClient(ctx context.Context, userID string, httpClient *http.Client, opts ...option.ClientOption) (*Client, error) {
	opts = append([]option.ClientOption{option.WithHTTPClient(httpClient)}, opts...)
	svc, err := gmail.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}

	return &Client{
		svc:    svc.Users,
		userID: userID,
	}, nil
}

// capResults clamps a caller-supplied page size to the service ceiling.
func capResults(n int64) int64 {
	if n <= 0 || n > MaxListResults {
		return MaxListResults
	}
	return n
}

// ListMessages lists the user's messages matching a Gmail search query,
// optionally restricted to labels. Pagination is the caller's business: the
// returned page carries the token for the next one.
func (c *Client) ListMessages(ctx context.Context, query string, labelIDs []string, maxResults int64, pageToken string) (*MessagePage, error) {
	call := c.svc.Messages.List("me").MaxResults(capResults(maxResults))

	if query != "" {
		call = call.Q(query)
	}
	if len(labelIDs) > 0 {
		call = call.LabelIds(labelIDs...)
	}
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}

	ctx, cancel := context.WithTimeout(ctx, readTimeout)
	defer cancel()

	res, err := call.Context(ctx).Do()
	if err != nil {
		return nil, apperrors.ProviderCallFailed("gmail.listMessages", c.userID, err)
	}

	page := &MessagePage{
		NextPageToken:      res.NextPageToken,
		ResultSizeEstimate: res.ResultSizeEstimate,
	}
	for _, m := range res.Messages {
		page.Messages = append(page.Messages, MessageRef{ID: m.Id, ThreadID: m.ThreadId})
	}

	return page, nil
}

// SendMessage sends an email through the Gmail API and returns the provider's
// message ID.
func (c *Client) SendMessage(ctx context.Context, msg *OutgoingMessage) (string, error) {
	if len(msg.To) == 0 {
		return "", apperrors.Validation("at least one recipient is required")
	}
	if msg.Subject == "" {
		return "", apperrors.Validation("subject is required")
	}
	if msg.Body == "" {
		return "", apperrors.Validation("body is required")
	}

	// The API takes the full RFC 2822 message, base64url-encoded
	raw := base64.URLEncoding.EncodeToString([]byte(buildMIME(msg)))

	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	sent, err := c.svc.Messages.Send("me", &gmail.Message{Raw: raw}).Context(ctx).Do()
	if err != nil {
		return "", apperrors.ProviderCallFailed("gmail.sendMessage", c.userID, err)
	}

	return sent.Id, nil
}
