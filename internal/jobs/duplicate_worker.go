package jobs

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/cloo-solutions/taskpriority/internal/domain"
	"github.com/cloo-solutions/taskpriority/internal/telemetry"
)

const (
	// MaxRetries is the maximum number of attempts for a duplicate check
	MaxRetries = 3

	// DefaultBatchSize is how many jobs one pass claims
	DefaultBatchSize = 50
)

// DuplicateCheckJobRepository defines the queue operations the worker needs
type DuplicateCheckJobRepository interface {
	// ClaimPending moves up to limit pending jobs to processing and returns them
	ClaimPending(ctx context.Context, limit int) ([]*domain.DuplicateCheckJob, error)

	// UpdateStatus sets the job status and error message
	UpdateStatus(ctx context.Context, jobID string, status domain.DuplicateCheckJobStatus, errMsg string) error

	// Complete marks the job completed with the number of stored matches
	Complete(ctx context.Context, jobID string, matchCount int) error

	// IncrementRetries increments the retry count for a job
	IncrementRetries(ctx context.Context, jobID string) error
}

// DuplicateChecker runs the background duplicate check for one stored task
type DuplicateChecker interface {
	CheckTaskDuplicates(ctx context.Context, taskID string) (int, error)
}

// DuplicateCheckWorker drains the duplicate check queue
type DuplicateCheckWorker struct {
	repo      DuplicateCheckJobRepository
	checker   DuplicateChecker
	batchSize int
}

// NewDuplicateCheckWorker creates a new DuplicateCheckWorker instance
func NewDuplicateCheckWorker(repo DuplicateCheckJobRepository, checker DuplicateChecker) *DuplicateCheckWorker {
	return &DuplicateCheckWorker{
		repo:      repo,
		checker:   checker,
		batchSize: DefaultBatchSize,
	}
}

// ProcessJobs implements the JobProcessor interface
func (w *DuplicateCheckWorker) ProcessJobs(ctx context.Context) error {
	jobs, err := w.repo.ClaimPending(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("failed to claim pending jobs: %w", err)
	}

	if len(jobs) == 0 {
		return nil
	}

	log.Printf("Processing %d pending duplicate check jobs", len(jobs))

	for _, job := range jobs {
		if err := w.processJob(ctx, job); err != nil {
			log.Printf("Error processing job %s: %v", job.ID, err)
		}
	}

	return nil
}

func (w *DuplicateCheckWorker) processJob(ctx context.Context, job *domain.DuplicateCheckJob) error {
	ctx, span := telemetry.StartTransaction(ctx, "DuplicateCheckWorker.processJob", "queue.process")
	defer span.End()

	matches, err := w.checker.CheckTaskDuplicates(ctx, job.TaskID)
	if err != nil {
		span.SetError(err)
		if errors.Is(err, domain.ErrTaskNotFound) {
			// The task is gone; retrying cannot help.
			return w.repo.UpdateStatus(ctx, job.ID, domain.DuplicateCheckJobStatusFailed, err.Error())
		}
		return w.handleJobFailure(ctx, job, err)
	}

	if err := w.repo.Complete(ctx, job.ID, matches); err != nil {
		return fmt.Errorf("failed to mark job completed: %w", err)
	}

	log.Printf("Job %s completed: %d possible duplicates for task %s", job.ID, matches, job.TaskID)
	return nil
}

// handleJobFailure handles a failed job with retry logic
func (w *DuplicateCheckWorker) handleJobFailure(ctx context.Context, job *domain.DuplicateCheckJob, jobErr error) error {
	log.Printf("Job %s failed: %v", job.ID, jobErr)

	if err := w.repo.IncrementRetries(ctx, job.ID); err != nil {
		return fmt.Errorf("failed to increment retries: %w", err)
	}

	if job.Retries+1 >= MaxRetries {
		log.Printf("Job %s exceeded max retries (%d), marking as failed", job.ID, MaxRetries)
		telemetry.CaptureMessage(ctx, fmt.Sprintf("duplicate check for task %s failed permanently: %v", job.TaskID, jobErr))
		errMsg := fmt.Sprintf("max retries exceeded: %v", jobErr)
		if err := w.repo.UpdateStatus(ctx, job.ID, domain.DuplicateCheckJobStatusFailed, errMsg); err != nil {
			return fmt.Errorf("failed to update job status to failed: %w", err)
		}
		return nil
	}

	log.Printf("Job %s will be retried (attempt %d/%d)", job.ID, job.Retries+1, MaxRetries)
	errMsg := fmt.Sprintf("retry %d: %v", job.Retries+1, jobErr)
	if err := w.repo.UpdateStatus(ctx, job.ID, domain.DuplicateCheckJobStatusPending, errMsg); err != nil {
		return fmt.Errorf("failed to reset job status to pending: %w", err)
	}

	return nil
}
