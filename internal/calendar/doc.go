// Package calendar provides a per-user client for the Google Calendar API.
//
// This package wraps the Google Calendar API (calendar/v3) for the event
// operations the dashboard needs: listing events in a time window (recurring
// events expanded and ordered by start time), creating events, updating them
// with a read-merge-write cycle, and deleting them. All-day events are
// expressed as bare dates, timed events as RFC 3339 timestamps with a time
// zone.
//
// Each Client is bound to one user and is built from an HTTP client that
// already carries that user's OAuth2 token. Every method issues a single
// remote call with a bounded timeout and reports failures as
// apperrors.ProviderCallFailed, tagged with the operation name and user.
//
// Example usage:
//
//	client, err := calendar.NewClient(ctx, userID, httpClient)
//	if err != nil {
//	    return err
//	}
//
//	// List this week's events
//	events, err := client.ListEvents(ctx, "primary", time.Now(), time.Now().AddDate(0, 0, 7), "", 50)
//	if err != nil {
//	    return err
//	}
package calendar
