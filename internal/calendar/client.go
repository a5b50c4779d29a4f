package calendar

import (
	"context"
	"fmt"
	"net/http"
	"time"

	calendar "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/dayboardhq/dayboard/internal/apperrors"
)

const (
	// MaxListResults caps how many events a single list call may return,
	// regardless of what the caller asked for.
	MaxListResults = 250

	readTimeout  = 5 * time.Second
	writeTimeout = 10 * time.Second
)

// Client wraps the Google Calendar service for a single user.
type Client struct {
	svc    *calendar.Service
	userID string // The user this client is associated with
}

// UserID returns the user this client is associated with.
func (c *Client) UserID() string {
	return c.userID
}

// NewClient creates a new Calendar client on top of an already-authorized
// HTTP client. The HTTP client must carry the user's OAuth2 token; this
// package never talks to the token endpoint itself.
func NewClient(ctx context.Context, userID string, httpClient *http.Client, opts ...option.ClientOption) (*Client, error) {
	opts = append([]option.ClientOption{option.WithHTTPClient(httpClient)}, opts...)
	svc, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Calendar service: %w", err)
	}

	return &Client{
		svc:    svc,
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

// ListEvents lists events in a calendar within a time range, expanding
// recurring events into single instances ordered by start time.
func (c *Client) ListEvents(ctx context.Context, calendarID string, timeMin, timeMax time.Time, query string, maxResults int64) ([]EventSummary, error) {
	if timeMin.IsZero() || timeMax.IsZero() {
		return nil, apperrors.Validation("event time window is required")
	}

	call := c.svc.Events.List(calendarID).
		TimeMin(timeMin.Format(time.RFC3339)).
		TimeMax(timeMax.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		MaxResults(capResults(maxResults))

	if query != "" {
		call = call.Q(query)
	}

	ctx, cancel := context.WithTimeout(ctx, readTimeout)
	defer cancel()

	events, err := call.Context(ctx).Do()
	if err != nil {
		return nil, apperrors.ProviderCallFailed("calendar.listEvents", c.userID, err)
	}

	var summaries []EventSummary
	for _, event := range events.Items {
		summaries = append(summaries, toEventSummary(event))
	}

	return summaries, nil
}

// InsertEvent creates a new calendar event.
func (c *Client) InsertEvent(ctx context.Context, calendarID string, input EventInput) (*EventSummary, error) {
	if input.Start.IsZero() || input.End.IsZero() {
		return nil, apperrors.Validation("event start and end are required")
	}

	event := &calendar.Event{
		Summary:     input.Summary,
		Description: input.Description,
		Location:    input.Location,
	}
	event.Start, event.End = eventTimes(input)

	if len(input.Attendees) > 0 {
		event.Attendees = toAttendees(input.Attendees)
	}
	if len(input.Recurrence) > 0 {
		event.Recurrence = input.Recurrence
	}

	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	created, err := c.svc.Events.Insert(calendarID, event).Context(ctx).Do()
	if err != nil {
		return nil, apperrors.ProviderCallFailed("calendar.insertEvent", c.userID, err)
	}

	summary := toEventSummary(created)
	return &summary, nil
}

// UpdateEvent updates an existing calendar event. It reads the current event
// first and writes back the merged result, so fields the caller leaves empty
// keep their stored values instead of being reset by a partial update.
func (c *Client) UpdateEvent(ctx context.Context, calendarID, eventID string, input EventInput) (*EventSummary, error) {
	readCtx, cancel := context.WithTimeout(ctx, readTimeout)
	existing, err := c.svc.Events.Get(calendarID, eventID).Context(readCtx).Do()
	cancel()
	if err != nil {
		return nil, apperrors.ProviderCallFailed("calendar.updateEvent", c.userID, err)
	}

	if input.Summary != "" {
		existing.Summary = input.Summary
	}
	if input.Description != "" {
		existing.Description = input.Description
	}
	if input.Location != "" {
		existing.Location = input.Location
	}

	// Replace both times together when either moves, so an event cannot end
	// up half all-day
	if !input.Start.IsZero() || !input.End.IsZero() {
		if input.Start.IsZero() || input.End.IsZero() {
			return nil, apperrors.Validation("event start and end must be updated together")
		}
		existing.Start, existing.End = eventTimes(input)
	}

	if len(input.Attendees) > 0 {
		existing.Attendees = toAttendees(input.Attendees)
	}
	if len(input.Recurrence) > 0 {
		existing.Recurrence = input.Recurrence
	}

	ctx, cancel = context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	updated, err := c.svc.Events.Update(calendarID, eventID, existing).Context(ctx).Do()
	if err != nil {
		return nil, apperrors.ProviderCallFailed("calendar.updateEvent", c.userID, err)
	}

	summary := toEventSummary(updated)
	return &summary, nil
}

// DeleteEvent deletes a calendar event.
func (c *Client) DeleteEvent(ctx context.Context, calendarID, eventID string) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	if err := c.svc.Events.Delete(calendarID, eventID).Context(ctx).Do(); err != nil {
		return apperrors.ProviderCallFailed("calendar.deleteEvent", c.userID, err)
	}
	return nil
}
