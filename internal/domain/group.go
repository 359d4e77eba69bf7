package domain

import (
	"fmt"
	"time"
)

// TaskGroup is a persisted cluster of tasks a user confirmed as duplicates or related.
type TaskGroup struct {
	ID   string
	Name string // Optional
	// OwnerID is empty for groups created outside any owner's scope.
	OwnerID   string
	CreatedAt time.Time
	UpdatedAt time.Time
	// TaskIDs lists the tasks assigned when the group was created. Not persisted.
	TaskIDs []string
}

// NewTaskGroup creates a new TaskGroup instance
func NewTaskGroup(id, name string, createdAt time.Time) *TaskGroup {
	return &TaskGroup{
		ID:        id,
		Name:      name,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

// ValidateTaskGroup validates a TaskGroup instance
func ValidateTaskGroup(g *TaskGroup) error {
	if g == nil {
		return fmt.Errorf("task group cannot be nil")
	}

	if g.ID == "" {
		return fmt.Errorf("task group ID is required")
	}

	if len(g.Name) > 200 {
		return fmt.Errorf("task group Name cannot exceed 200 characters")
	}

	return nil
}
