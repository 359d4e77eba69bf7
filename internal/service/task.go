package service

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/cloo-solutions/taskpriority/internal/domain"
	"github.com/cloo-solutions/taskpriority/internal/pagination"
	"github.com/cloo-solutions/taskpriority/internal/telemetry"
	"github.com/google/uuid"
)

// TaskRepositoryInterface defines the repository interface for task persistence
type TaskRepositoryInterface interface {
	Create(ctx context.Context, t *domain.Task) error
	GetByID(ctx context.Context, id string) (*domain.Task, error)
	ListByOwnerWithCursor(ctx context.Context, ownerID string, status domain.TaskStatus, cursor *pagination.Cursor, limit int) (*pagination.Page[*domain.Task], error)
	// ListCandidates returns the owner's open tasks created at or after since, newest first.
	ListCandidates(ctx context.Context, ownerID string, since time.Time, limit int) ([]*domain.Task, error)
	UpdateStatus(ctx context.Context, id string, status domain.TaskStatus, updatedAt time.Time) error
	SetGroup(ctx context.Context, taskID, groupID string) error
}

// DuplicateCheckJobRepositoryInterface defines the repository interface for queuing duplicate checks
type DuplicateCheckJobRepositoryInterface interface {
	Create(ctx context.Context, job *domain.DuplicateCheckJob) error
}

// UUIDGenerator defines interface for UUID generation (for testing)
type UUIDGenerator interface {
	NewString() string
}

// DefaultUUIDGenerator is the default UUID generator using google/uuid
type DefaultUUIDGenerator struct{}

// NewString generates a new UUID string
func (g *DefaultUUIDGenerator) NewString() string {
	return uuid.NewString()
}

// DetectionPolicy is the caller-side tuning for one kind of duplicate check.
type DetectionPolicy struct {
	Threshold      float64
	Window         time.Duration
	CandidateLimit int
	ResultLimit    int
}

// InteractivePolicy is used when a user explicitly asks for duplicates.
func InteractivePolicy() DetectionPolicy {
	return DetectionPolicy{
		Threshold:      0.85,
		Window:         30 * 24 * time.Hour,
		CandidateLimit: 100,
		ResultLimit:    5,
	}
}

// BackgroundPolicy is used by the queued check after task creation.
func BackgroundPolicy() DetectionPolicy {
	return DetectionPolicy{
		Threshold:      0.80,
		Window:         90 * 24 * time.Hour,
		CandidateLimit: 100,
		ResultLimit:    5,
	}
}

// DuplicateFinder is the detection capability the task service consumes.
type DuplicateFinder interface {
	DetectDuplicates(ctx context.Context, description string, candidates []*domain.Task, threshold float64) ([]domain.TaskSimilarity, error)
}

// SimilarityScoreStore persists detection evidence.
type SimilarityScoreStore interface {
	StoreSimilarityScores(ctx context.Context, scores []domain.SimilarityScoreInput) (bool, error)
}

// TaskService handles task intake and the duplicate checks around it
type TaskService struct {
	repo        TaskRepositoryInterface
	tx          TxRunner
	detector    DuplicateFinder
	scores      SimilarityScoreStore
	interactive DetectionPolicy
	background  DetectionPolicy
	uuidGen     UUIDGenerator
	now         func() time.Time
}

// TaskServiceConfig carries the detection policies.
type TaskServiceConfig struct {
	Interactive DetectionPolicy
	Background  DetectionPolicy
}

// DefaultTaskServiceConfig returns the default service configuration.
func DefaultTaskServiceConfig() TaskServiceConfig {
	return TaskServiceConfig{
		Interactive: InteractivePolicy(),
		Background:  BackgroundPolicy(),
	}
}

// NewTaskService creates a new TaskService instance
func NewTaskService(
	repo TaskRepositoryInterface,
	tx TxRunner,
	detector DuplicateFinder,
	scores SimilarityScoreStore,
	cfg TaskServiceConfig,
) *TaskService {
	return NewTaskServiceWithUUIDGen(repo, tx, detector, scores, cfg, &DefaultUUIDGenerator{})
}

// NewTaskServiceWithUUIDGen creates a new TaskService with custom UUID generator (for testing)
func NewTaskServiceWithUUIDGen(
	repo TaskRepositoryInterface,
	tx TxRunner,
	detector DuplicateFinder,
	scores SimilarityScoreStore,
	cfg TaskServiceConfig,
	uuidGen UUIDGenerator,
) *TaskService {
	return &TaskService{
		repo:        repo,
		tx:          tx,
		detector:    detector,
		scores:      scores,
		interactive: cfg.Interactive,
		background:  cfg.Background,
		uuidGen:     uuidGen,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// CreateTaskInput represents the input for creating a task
type CreateTaskInput struct {
	OwnerID     string
	Description string
	Status      domain.TaskStatus
}

type ListTasksInput struct {
	OwnerID string
	Status  domain.TaskStatus
	Cursor  string
	Limit   int
}

type ListTasksOutput struct {
	Items   []*domain.Task
	Cursor  string
	HasMore bool
}

// FindDuplicatesInput represents an interactive duplicate check
type FindDuplicatesInput struct {
	OwnerID       string
	Description   string
	ExcludeTaskID string
}

// Create stores a task and queues a background duplicate check for it in the same
// transaction. Detection never runs inline, so it cannot block task creation.
func (s *TaskService) Create(ctx context.Context, input CreateTaskInput) (*domain.Task, error) {
	ctx, span := telemetry.StartSpan(ctx, "TaskService.Create", telemetry.SpanAttributes{
		OwnerID:   input.OwnerID,
		Operation: "create",
	})
	defer span.End()

	now := s.now()
	task := domain.NewTask(s.uuidGen.NewString(), input.OwnerID, strings.TrimSpace(input.Description), now)
	if input.Status != "" {
		task.Status = input.Status
	}

	if err := domain.ValidateTask(task); err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid task", err)
	}

	job := domain.NewDuplicateCheckJob(s.uuidGen.NewString(), task.ID, now)

	err := s.tx.WithTx(ctx, func(repos TxRepositories) error {
		if err := repos.Tasks().Create(ctx, task); err != nil {
			return err
		}
		if !task.IsOpen() {
			return nil
		}
		return repos.DuplicateCheckJobs().Create(ctx, job)
	})
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	return task, nil
}

// GetByID retrieves a task by ID
func (s *TaskService) GetByID(ctx context.Context, id string) (*domain.Task, error) {
	ctx, span := telemetry.StartSpan(ctx, "TaskService.GetByID", telemetry.SpanAttributes{
		TaskID:    id,
		Operation: "get",
	})
	defer span.End()

	return s.repo.GetByID(ctx, id)
}

// List returns a page of the owner's tasks, newest first
func (s *TaskService) List(ctx context.Context, input ListTasksInput) (*ListTasksOutput, error) {
	ctx, span := telemetry.StartSpan(ctx, "TaskService.List", telemetry.SpanAttributes{
		OwnerID:   input.OwnerID,
		Operation: "list",
	})
	defer span.End()

	if input.Status != "" && !domain.IsValidTaskStatus(input.Status) {
		return nil, domain.ErrInvalidTaskStatus
	}

	cursor, err := pagination.DecodeCursor(input.Cursor)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid cursor", err)
	}

	page, err := s.repo.ListByOwnerWithCursor(ctx, input.OwnerID, input.Status, cursor, pagination.NormalizeLimit(input.Limit))
	if err != nil {
		return nil, err
	}

	return &ListTasksOutput{
		Items:   page.Items,
		Cursor:  page.NextCursor,
		HasMore: page.HasMore,
	}, nil
}

// UpdateStatus moves a task through its lifecycle
func (s *TaskService) UpdateStatus(ctx context.Context, id string, status domain.TaskStatus) (*domain.Task, error) {
	ctx, span := telemetry.StartSpan(ctx, "TaskService.UpdateStatus", telemetry.SpanAttributes{
		TaskID:    id,
		Operation: "update_status",
	})
	defer span.End()

	if !domain.IsValidTaskStatus(status) {
		return nil, domain.ErrInvalidTaskStatus
	}

	if err := s.repo.UpdateStatus(ctx, id, status, s.now()); err != nil {
		return nil, err
	}

	return s.repo.GetByID(ctx, id)
}

// FindDuplicates runs an interactive duplicate check. Detection is advisory: any
// failure is logged and reported as no duplicates.
func (s *TaskService) FindDuplicates(ctx context.Context, input FindDuplicatesInput) ([]domain.TaskSimilarity, error) {
	ctx, span := telemetry.StartSpan(ctx, "TaskService.FindDuplicates", telemetry.SpanAttributes{
		OwnerID:   input.OwnerID,
		TaskID:    input.ExcludeTaskID,
		Operation: "find_duplicates",
	})
	defer span.End()

	if input.OwnerID == "" {
		return nil, domain.ErrMissingOwner
	}

	results, err := s.detect(ctx, input.OwnerID, input.Description, input.ExcludeTaskID, s.interactive)
	if err != nil {
		log.Printf("duplicate check for owner %s failed, reporting none: %v", input.OwnerID, err)
		telemetry.CaptureError(ctx, err)
		return []domain.TaskSimilarity{}, nil
	}
	return results, nil
}

// DetectWithPolicy runs a duplicate check with an explicit policy and returns
// errors instead of swallowing them. Used for threshold tuning.
func (s *TaskService) DetectWithPolicy(ctx context.Context, input FindDuplicatesInput, policy DetectionPolicy) ([]domain.TaskSimilarity, error) {
	if input.OwnerID == "" {
		return nil, domain.ErrMissingOwner
	}
	if policy.Threshold < 0 || policy.Threshold > 1 {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "threshold must be within [0, 1]")
	}
	return s.detect(ctx, input.OwnerID, input.Description, input.ExcludeTaskID, policy)
}

// CheckTaskDuplicates runs the background check for a stored task and persists the
// matches as similarity evidence. Errors are returned so the job can be retried.
func (s *TaskService) CheckTaskDuplicates(ctx context.Context, taskID string) (int, error) {
	ctx, span := telemetry.StartSpan(ctx, "TaskService.CheckTaskDuplicates", telemetry.SpanAttributes{
		TaskID:    taskID,
		Operation: "check_task_duplicates",
	})
	defer span.End()

	task, err := s.repo.GetByID(ctx, taskID)
	if err != nil {
		return 0, err
	}
	if !task.IsOpen() {
		return 0, nil
	}

	results, err := s.detect(ctx, task.OwnerID, task.Description, task.ID, s.background)
	if err != nil {
		span.SetError(err)
		return 0, err
	}
	if len(results) == 0 {
		return 0, nil
	}

	inputs := make([]domain.SimilarityScoreInput, 0, len(results))
	for _, r := range results {
		inputs = append(inputs, domain.SimilarityScoreInput{
			TaskID:        task.ID,
			SimilarTaskID: r.Task.ID,
			Score:         clampScore(r.Similarity),
		})
	}
	if _, err := s.scores.StoreSimilarityScores(ctx, inputs); err != nil {
		return 0, err
	}

	return len(results), nil
}

func (s *TaskService) detect(ctx context.Context, ownerID, description, excludeID string, policy DetectionPolicy) ([]domain.TaskSimilarity, error) {
	if strings.TrimSpace(description) == "" {
		return []domain.TaskSimilarity{}, nil
	}

	since := s.now().Add(-policy.Window)
	candidates, err := s.repo.ListCandidates(ctx, ownerID, since, policy.CandidateLimit)
	if err != nil {
		return nil, err
	}

	if excludeID != "" {
		filtered := make([]*domain.Task, 0, len(candidates))
		for _, c := range candidates {
			if c.ID != excludeID {
				filtered = append(filtered, c)
			}
		}
		candidates = filtered
	}

	results, err := s.detector.DetectDuplicates(ctx, description, candidates, policy.Threshold)
	if err != nil {
		return nil, err
	}
	return domain.TopN(results, policy.ResultLimit), nil
}

func clampScore(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < 0 {
		return 0
	}
	return v
}
