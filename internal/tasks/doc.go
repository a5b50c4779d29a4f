// Package tasks provides a per-user client for the Google Tasks API.
//
// This package wraps the Google Tasks API (tasks/v1) and provides functionality for:
//   - Managing task lists (list, create)
//   - Managing tasks (list, create, update, delete, move, toggle completion)
//   - Filtering tasks by due date and completion status
//   - Clearing completed tasks from a list
//
// Each Client is bound to one user and is built from an HTTP client that
// already carries that user's OAuth2 token; token acquisition and refresh
// happen upstream, before a Client is constructed. Every method issues a
// single remote call with a bounded timeout and reports failures as
// apperrors.ProviderCallFailed, tagged with the operation name and user.
//
// Mutating operations follow the read-merge-write shape the API demands:
// UpdateTask and ToggleCompletion fetch the current task and write back every
// mutable field, because the service treats a partial update as "clear what
// is missing". The completed timestamp is special: un-completing a task must
// drop the field from the payload entirely rather than sending a null.
//
// # Example Usage
//
//	client, err := tasks.NewClient(ctx, userID, httpClient)
//	if err != nil {
//	    return err
//	}
//
//	// List open tasks due this week
//	due := time.Now().AddDate(0, 0, 7)
//	open, err := client.ListTasks(ctx, listID, false, time.Time{}, due, 50)
//	if err != nil {
//	    return err
//	}
//
//	// Flip a task's completion state
//	task, err := client.ToggleCompletion(ctx, listID, taskID)
//	if err != nil {
//	    return err
//	}
package tasks
