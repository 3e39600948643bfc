package task

import (
	"time"

	"taskboard-backend/internal/authz"
)

const (
	StatusTodo       = "todo"
	StatusInProgress = "in_progress"
	StatusDone       = "done"
)

// Task is a row of the tasks table. The authorization core only ever reads
// CreatedBy and AssignedTo from it.
type Task struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	CreatedBy   string    `json:"created_by"`
	AssignedTo  string    `json:"assigned_to"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// FromRow maps a store row onto a Task.
func FromRow(row map[string]any) *Task {
	t := &Task{}
	t.ID, _ = row["id"].(string)
	t.Title, _ = row["title"].(string)
	t.Description, _ = row["description"].(string)
	t.Status, _ = row["status"].(string)
	t.CreatedBy, _ = row["created_by"].(string)
	t.AssignedTo, _ = row["assigned_to"].(string)
	if ts, ok := row["created_at"].(time.Time); ok {
		t.CreatedAt = ts
	}
	if ts, ok := row["updated_at"].(time.Time); ok {
		t.UpdatedAt = ts
	}
	return t
}

// Ownership is the snapshot slice handed to the resource authorizer.
func (t *Task) Ownership() authz.Ownership {
	return authz.Ownership{CreatedBy: t.CreatedBy, AssignedTo: t.AssignedTo}
}

// ValidStatus reports whether s is a known task status.
func ValidStatus(s string) bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusDone:
		return true
	}
	return false
}
