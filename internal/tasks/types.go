package tasks

import (
	"time"

	tasks "google.golang.org/api/tasks/v1"
)

// Task status values understood by the Google Tasks API.
const (
	StatusNeedsAction = "needsAction"
	StatusCompleted   = "completed"
)

// TaskList represents a Google Tasks task list.
type TaskList struct {
	ID      string    `json:"id"`
	Title   string    `json:"title"`
	Updated time.Time `json:"updated,omitempty"`
}

// Task represents a Google Tasks task.
type Task struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Notes     string    `json:"notes,omitempty"`
	Status    string    `json:"status"` // "needsAction" or "completed"
	Due       time.Time `json:"due,omitempty"`
	Completed time.Time `json:"completed,omitempty"`
	Updated   time.Time `json:"updated,omitempty"`
	Parent    string    `json:"parent,omitempty"`   // Parent task ID for subtasks
	Position  string    `json:"position,omitempty"` // Position in the list
	Links     []Link    `json:"links,omitempty"`    // Related links
}

// Link represents a related link in a task.
type Link struct {
	Type        string `json:"type"` // "email" or other types
	Description string `json:"description,omitempty"`
	Link        string `json:"link"`
}

// TaskInput represents the input for creating or updating a task.
type TaskInput struct {
	Title    string    `json:"title"`
	Notes    string    `json:"notes,omitempty"`
	Status   string    `json:"status,omitempty"` // "needsAction" or "completed"
	Due      time.Time `json:"due,omitempty"`
	Parent   string    `json:"parent,omitempty"`   // Parent task ID for subtasks
	Previous string    `json:"previous,omitempty"` // Previous sibling task ID for positioning
}

// parseTime parses an RFC 3339 timestamp, returning the zero time for empty
// or malformed values.
func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// toTaskList converts a Google Tasks TaskList to our TaskList type.
func toTaskList(tl *tasks.TaskList) TaskList {
	if tl == nil {
		return TaskList{}
	}

	return TaskList{
		ID:      tl.Id,
		Title:   tl.Title,
		Updated: parseTime(tl.Updated),
	}
}

// toTask converts a Google Tasks Task to our Task type.
func toTask(t *tasks.Task) Task {
	if t == nil {
		return Task{}
	}

	result := Task{
		ID:       t.Id,
		Title:    t.Title,
		Notes:    t.Notes,
		Status:   t.Status,
		Due:      parseTime(t.Due),
		Updated:  parseTime(t.Updated),
		Parent:   t.Parent,
		Position: t.Position,
	}

	if t.Completed != nil {
		result.Completed = parseTime(*t.Completed)
	}

	if t.Links != nil {
		result.Links = make([]Link, len(t.Links))
		for i, link := range t.Links {
			result.Links[i] = Link{
				Type:        link.Type,
				Description: link.Description,
				Link:        link.Link,
			}
		}
	}

	return result
}
