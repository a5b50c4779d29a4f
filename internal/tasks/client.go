package tasks

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"google.golang.org/api/option"
	tasks "google.golang.org/api/tasks/v1"

	"github.com/dayboardhq/dayboard/internal/apperrors"
)

const (
	// MaxListResults caps how many items a single list call may return,
	// regardless of what the caller asked for.
	MaxListResults = 100

	readTimeout  = 5 * time.Second
	writeTimeout = 10 * time.Second
)

// Client wraps the Google Tasks service for a single user.
type Client struct {
	svc    *tasks.Service
	userID string // The user this client is associated with
}

// UserID returns the user this client is associated with.
func (c *Client) UserID() string {
	return c.userID
}

// NewClient creates a new Tasks client on top of an already-authorized HTTP
// client. The HTTP client must carry the user's OAuth2 token; this package
// never talks to the token endpoint itself.
func NewClient(ctx context.Context, userID string, httpClient *http.Client, opts ...option.ClientOption) (*Client, error) {
	opts = append([]option.ClientOption{option.WithHTTPClient(httpClient)}, opts...)
	svc, err := tasks.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Tasks service: %w", err)
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

// ListTaskLists lists the user's task lists.
func (c *Client) ListTaskLists(ctx context.Context, maxResults int64) ([]TaskList, error) {
	ctx, cancel := context.WithTimeout(ctx, readTimeout)
	defer cancel()

	result, err := c.svc.Tasklists.List().MaxResults(capResults(maxResults)).Context(ctx).Do()
	if err != nil {
		return nil, apperrors.ProviderCallFailed("tasks.listTaskLists", c.userID, err)
	}

	var taskLists []TaskList
	for _, tl := range result.Items {
		taskLists = append(taskLists, toTaskList(tl))
	}

	return taskLists, nil
}

// InsertTaskList creates a new task list.
func (c *Client) InsertTaskList(ctx context.Context, title string) (*TaskList, error) {
	if title == "" {
		return nil, apperrors.Validation("task list title is required")
	}

	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	created, err := c.svc.Tasklists.Insert(&tasks.TaskList{Title: title}).Context(ctx).Do()
	if err != nil {
		return nil, apperrors.ProviderCallFailed("tasks.insertTaskList", c.userID, err)
	}

	result := toTaskList(created)
	return &result, nil
}

// ListTasks lists tasks in a task list.
// Options:
//   - showCompleted: if true, includes completed tasks
//   - dueMin: only tasks with due date after this time
//   - dueMax: only tasks with due date before this time
func (c *Client) ListTasks(ctx context.Context, taskListID string, showCompleted bool, dueMin, dueMax time.Time, maxResults int64) ([]Task, error) {
	call := c.svc.Tasks.List(taskListID).MaxResults(capResults(maxResults))

	// Completed tasks age into the hidden state, so showing them needs both
	// flags.
	if showCompleted {
		call = call.ShowCompleted(true).ShowHidden(true)
	}
	if !dueMin.IsZero() {
		call = call.DueMin(dueMin.Format(time.RFC3339))
	}
	if !dueMax.IsZero() {
		call = call.DueMax(dueMax.Format(time.RFC3339))
	}

	ctx, cancel := context.WithTimeout(ctx, readTimeout)
	defer cancel()

	result, err := call.Context(ctx).Do()
	if err != nil {
		return nil, apperrors.ProviderCallFailed("tasks.listTasks", c.userID, err)
	}

	var taskList []Task
	for _, t := range result.Items {
		taskList = append(taskList, toTask(t))
	}

	return taskList, nil
}

// InsertTask creates a new task in a task list.
func (c *Client) InsertTask(ctx context.Context, taskListID string, input TaskInput) (*Task, error) {
	if input.Title == "" {
		return nil, apperrors.Validation("task title is required")
	}

	t := &tasks.Task{
		Title:  input.Title,
		Notes:  input.Notes,
		Status: input.Status,
	}
	if !input.Due.IsZero() {
		t.Due = input.Due.Format(time.RFC3339)
	}

	call := c.svc.Tasks.Insert(taskListID, t)

	// Nesting and sibling order are request parameters, not task fields.
	if input.Parent != "" {
		call = call.Parent(input.Parent)
	}
	if input.Previous != "" {
		call = call.Previous(input.Previous)
	}

	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	created, err := call.Context(ctx).Do()
	if err != nil {
		return nil, apperrors.ProviderCallFailed("tasks.insertTask", c.userID, err)
	}

	result := toTask(created)
	return &result, nil
}

// UpdateTask updates an existing task. It reads the current task first and
// writes back the merged result, so fields the caller leaves empty keep
// their stored values instead of being reset by a partial update.
func (c *Client) UpdateTask(ctx context.Context, taskListID, taskID string, input TaskInput) (*Task, error) {
	readCtx, cancel := context.WithTimeout(ctx, readTimeout)
	existing, err := c.svc.Tasks.Get(taskListID, taskID).Context(readCtx).Do()
	cancel()
	if err != nil {
		return nil, apperrors.ProviderCallFailed("tasks.updateTask", c.userID, err)
	}

	if input.Title != "" {
		existing.Title = input.Title
	}
	if input.Notes != "" {
		existing.Notes = input.Notes
	}
	if !input.Due.IsZero() {
		existing.Due = input.Due.Format(time.RFC3339)
	}
	if input.Status != "" {
		applyStatus(existing, input.Status)
	}

	ctx, cancel = context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	updated, err := c.svc.Tasks.Update(taskListID, taskID, existing).Context(ctx).Do()
	if err != nil {
		return nil, apperrors.ProviderCallFailed("tasks.updateTask", c.userID, err)
	}

	result := toTask(updated)
	return &result, nil
}

// ToggleCompletion flips a task between "needsAction" and "completed". It
// reads the current task state and writes back every mutable field it read,
// so the flip cannot clobber the title, notes, due date or parent.
func (c *Client) ToggleCompletion(ctx context.Context, taskListID, taskID string) (*Task, error) {
	readCtx, cancel := context.WithTimeout(ctx, readTimeout)
	existing, err := c.svc.Tasks.Get(taskListID, taskID).Context(readCtx).Do()
	cancel()
	if err != nil {
		return nil, apperrors.ProviderCallFailed("tasks.toggleCompletion", c.userID, err)
	}

	if existing.Status == StatusCompleted {
		applyStatus(existing, StatusNeedsAction)
	} else {
		applyStatus(existing, StatusCompleted)
	}

	ctx, cancel = context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	updated, err := c.svc.Tasks.Update(taskListID, taskID, existing).Context(ctx).Do()
	if err != nil {
		return nil, apperrors.ProviderCallFailed("tasks.toggleCompletion", c.userID, err)
	}

	result := toTask(updated)
	return &result, nil
}

// applyStatus sets the task status and keeps the completed timestamp
// consistent with it. When un-completing, the timestamp must be omitted from
// the update payload entirely; an explicit null means something else to the
// provider.
func applyStatus(t *tasks.Task, status string) {
	t.Status = status
	if status == StatusCompleted {
		if t.Completed == nil || *t.Completed == "" {
			completed := time.Now().UTC().Format(time.RFC3339)
			t.Completed = &completed
		}
		return
	}
	t.Completed = nil
}

// DeleteTask deletes a task.
func (c *Client) DeleteTask(ctx context.Context, taskListID, taskID string) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	if err := c.svc.Tasks.Delete(taskListID, taskID).Context(ctx).Do(); err != nil {
		return apperrors.ProviderCallFailed("tasks.deleteTask", c.userID, err)
	}
	return nil
}

// MoveTask moves a task to a different position or parent within its list.
func (c *Client) MoveTask(ctx context.Context, taskListID, taskID, parent, previous string) (*Task, error) {
	call := c.svc.Tasks.Move(taskListID, taskID)

	if parent != "" {
		call = call.Parent(parent)
	}
	if previous != "" {
		call = call.Previous(previous)
	}

	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	moved, err := call.Context(ctx).Do()
	if err != nil {
		return nil, apperrors.ProviderCallFailed("tasks.moveTask", c.userID, err)
	}

	result := toTask(moved)
	return &result, nil
}

// ClearCompletedTasks clears all completed tasks from a task list.
func (c *Client) ClearCompletedTasks(ctx context.Context, taskListID string) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	if err := c.svc.Tasks.Clear(taskListID).Context(ctx).Do(); err != nil {
		return apperrors.ProviderCallFailed("tasks.clearCompletedTasks", c.userID, err)
	}
	return nil
}
