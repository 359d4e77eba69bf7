package domain

import (
	"fmt"
	"time"
)

// DuplicateCheckJobStatus represents the status of a background duplicate check
type DuplicateCheckJobStatus string

const (
	DuplicateCheckJobStatusPending    DuplicateCheckJobStatus = "pending"
	DuplicateCheckJobStatusProcessing DuplicateCheckJobStatus = "processing"
	DuplicateCheckJobStatusCompleted  DuplicateCheckJobStatus = "completed"
	DuplicateCheckJobStatusFailed     DuplicateCheckJobStatus = "failed"
)

// DuplicateCheckJob is a queued background duplicate check for a newly created task
type DuplicateCheckJob struct {
	ID          string
	TaskID      string
	Status      DuplicateCheckJobStatus
	Retries     int32
	Error       string
	MatchCount  int32
	CreatedAt   time.Time
	ProcessedAt *time.Time
}

// NewDuplicateCheckJob creates a pending job for the given task
func NewDuplicateCheckJob(id, taskID string, createdAt time.Time) *DuplicateCheckJob {
	return &DuplicateCheckJob{
		ID:        id,
		TaskID:    taskID,
		Status:    DuplicateCheckJobStatusPending,
		CreatedAt: createdAt,
	}
}

// ValidateDuplicateCheckJob validates a DuplicateCheckJob instance
func ValidateDuplicateCheckJob(j *DuplicateCheckJob) error {
	if j == nil {
		return fmt.Errorf("duplicate check job cannot be nil")
	}

	if j.ID == "" {
		return fmt.Errorf("duplicate check job ID is required")
	}

	if j.TaskID == "" {
		return fmt.Errorf("duplicate check job TaskID is required")
	}

	if !isValidDuplicateCheckJobStatus(j.Status) {
		return fmt.Errorf("duplicate check job Status is invalid: %s", j.Status)
	}

	if j.Retries < 0 {
		return fmt.Errorf("duplicate check job Retries cannot be negative")
	}

	return nil
}

func isValidDuplicateCheckJobStatus(s DuplicateCheckJobStatus) bool {
	switch s {
	case DuplicateCheckJobStatusPending, DuplicateCheckJobStatusProcessing,
		DuplicateCheckJobStatusCompleted, DuplicateCheckJobStatusFailed:
		return true
	}
	return false
}
