package domain

import (
	"fmt"
	"strings"
	"time"
)

// TaskStatus represents the lifecycle status of a task
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusBlocked    TaskStatus = "blocked"
)

// Task is a unit of work owned by a single founder account.
type Task struct {
	ID          string
	OwnerID     string
	Description string
	Status      TaskStatus
	GroupID     string // Empty when the task is not grouped
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewTask creates a new pending Task instance
func NewTask(id, ownerID, description string, createdAt time.Time) *Task {
	return &Task{
		ID:          id,
		OwnerID:     ownerID,
		Description: description,
		Status:      TaskStatusPending,
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}
}

// IsOpen reports whether the task can still be duplicated by new work.
// Completed and blocked tasks are never duplicate candidates.
func (t *Task) IsOpen() bool {
	return t.Status == TaskStatusPending || t.Status == TaskStatusInProgress
}

// ValidateTask validates a Task instance
func ValidateTask(t *Task) error {
	if t == nil {
		return fmt.Errorf("task cannot be nil")
	}

	if t.ID == "" {
		return fmt.Errorf("task ID is required")
	}

	if t.OwnerID == "" {
		return fmt.Errorf("task OwnerID is required")
	}

	if strings.TrimSpace(t.Description) == "" {
		return fmt.Errorf("task Description is required")
	}

	if !IsValidTaskStatus(t.Status) {
		return fmt.Errorf("task Status is invalid: %s", t.Status)
	}

	return nil
}

// IsValidTaskStatus checks if a TaskStatus is one of the known values
func IsValidTaskStatus(s TaskStatus) bool {
	switch s {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted, TaskStatusBlocked:
		return true
	}
	return false
}

// OpenTaskStatuses lists the statuses eligible for duplicate detection.
func OpenTaskStatuses() []TaskStatus {
	return []TaskStatus{TaskStatusPending, TaskStatusInProgress}
}
