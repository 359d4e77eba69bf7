package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/cloo-solutions/taskpriority/internal/domain"
	"github.com/cloo-solutions/taskpriority/internal/telemetry"
)

// GroupRepositoryInterface defines the repository interface for task group persistence
type GroupRepositoryInterface interface {
	Create(ctx context.Context, g *domain.TaskGroup) error
	GetByID(ctx context.Context, id string) (*domain.TaskGroup, error)
	Touch(ctx context.Context, id string, updatedAt time.Time) error
}

// SimilarityScoreRepositoryInterface defines the repository interface for similarity evidence
type SimilarityScoreRepositoryInterface interface {
	CreateBatch(ctx context.Context, scores []*domain.SimilarityScore) error
	ListByTask(ctx context.Context, taskID string) ([]*domain.SimilarityScore, error)
}

// GroupingService turns confirmed duplicates into persisted groups and keeps
// the similarity evidence behind those decisions.
type GroupingService struct {
	tx      TxRunner
	uuidGen UUIDGenerator
	now     func() time.Time
}

// NewGroupingService creates a new GroupingService instance
func NewGroupingService(tx TxRunner) *GroupingService {
	return NewGroupingServiceWithUUIDGen(tx, &DefaultUUIDGenerator{})
}

// NewGroupingServiceWithUUIDGen creates a new GroupingService with custom UUID generator (for testing)
func NewGroupingServiceWithUUIDGen(tx TxRunner, uuidGen UUIDGenerator) *GroupingService {
	return &GroupingService{
		tx:      tx,
		uuidGen: uuidGen,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// CreateGroup creates a group and points every listed task at it in one transaction.
// Any failure rolls back both steps and returns a *domain.GroupCreationError. The
// returned group lists the distinct ids that were assigned.
func (s *GroupingService) CreateGroup(ctx context.Context, taskIDs []string, name string) (*domain.TaskGroup, error) {
	return s.createGroup(ctx, "", taskIDs, name)
}

// CreateGroupForOwner is CreateGroup restricted to ownerID's tasks. A task that
// belongs to someone else fails the group exactly like a missing one.
func (s *GroupingService) CreateGroupForOwner(ctx context.Context, ownerID string, taskIDs []string, name string) (*domain.TaskGroup, error) {
	if ownerID == "" {
		return nil, domain.ErrMissingOwner
	}
	return s.createGroup(ctx, ownerID, taskIDs, name)
}

func (s *GroupingService) createGroup(ctx context.Context, ownerID string, taskIDs []string, name string) (*domain.TaskGroup, error) {
	ids := uniqueIDs(taskIDs)
	ctx, span := telemetry.StartSpan(ctx, "GroupingService.CreateGroup", telemetry.SpanAttributes{
		OwnerID:   ownerID,
		Operation: "create_group",
		Count:     len(ids),
	})
	defer span.End()

	if len(ids) == 0 {
		return nil, domain.ErrEmptyGroup
	}

	group := domain.NewTaskGroup(s.uuidGen.NewString(), strings.TrimSpace(name), s.now())
	group.OwnerID = ownerID
	if err := domain.ValidateTaskGroup(group); err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid task group", err)
	}

	err := s.tx.WithTx(ctx, func(repos TxRepositories) error {
		if err := repos.Groups().Create(ctx, group); err != nil {
			return err
		}
		if err := requireOwned(ctx, repos.Tasks(), ownerID, ids); err != nil {
			return err
		}
		for _, id := range ids {
			if err := repos.Tasks().SetGroup(ctx, id, group.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		span.SetError(err)
		return nil, &domain.GroupCreationError{TaskIDs: ids, Err: err}
	}

	group.TaskIDs = ids
	return group, nil
}

// AddTaskToGroup points a task at a group, persisting any supplied similarity
// evidence in the same transaction. Re-adding a task to its current group is a
// successful no-op.
func (s *GroupingService) AddTaskToGroup(ctx context.Context, taskID, groupID string, similarities []domain.SimilarityScoreInput) (bool, error) {
	return s.addTaskToGroup(ctx, "", taskID, groupID, similarities)
}

// AddTaskToGroupForOwner is AddTaskToGroup restricted to ownerID. The group, the
// task and every task named in the similarities must belong to ownerID; anything
// else is reported as not found.
func (s *GroupingService) AddTaskToGroupForOwner(ctx context.Context, ownerID, taskID, groupID string, similarities []domain.SimilarityScoreInput) (bool, error) {
	if ownerID == "" {
		return false, domain.ErrMissingOwner
	}
	return s.addTaskToGroup(ctx, ownerID, taskID, groupID, similarities)
}

func (s *GroupingService) addTaskToGroup(ctx context.Context, ownerID, taskID, groupID string, similarities []domain.SimilarityScoreInput) (bool, error) {
	ctx, span := telemetry.StartSpan(ctx, "GroupingService.AddTaskToGroup", telemetry.SpanAttributes{
		OwnerID:   ownerID,
		TaskID:    taskID,
		GroupID:   groupID,
		Operation: "add_task_to_group",
	})
	defer span.End()

	if taskID == "" || groupID == "" {
		return false, domain.ErrMissingRequiredField
	}

	scores, err := s.buildScores(similarities)
	if err != nil {
		return false, err
	}

	now := s.now()
	err = s.tx.WithTx(ctx, func(repos TxRepositories) error {
		group, err := repos.Groups().GetByID(ctx, groupID)
		if err != nil {
			return err
		}
		if ownerID != "" && group.OwnerID != ownerID {
			return domain.ErrTaskGroupNotFound
		}
		task, err := repos.Tasks().GetByID(ctx, taskID)
		if err != nil {
			return err
		}
		if ownerID != "" && task.OwnerID != ownerID {
			return domain.ErrTaskNotFound
		}
		if err := requireOwned(ctx, repos.Tasks(), ownerID, scoreTaskIDs(scores, taskID)); err != nil {
			return err
		}
		if task.GroupID != groupID {
			if err := repos.Tasks().SetGroup(ctx, taskID, groupID); err != nil {
				return err
			}
			if err := repos.Groups().Touch(ctx, groupID, now); err != nil {
				return err
			}
		}
		if len(scores) > 0 {
			return repos.SimilarityScores().CreateBatch(ctx, scores)
		}
		return nil
	})
	if err != nil {
		span.SetError(err)
		return false, persistenceError("failed to add task to group", err)
	}

	return true, nil
}

// StoreSimilarityScores bulk-persists similarity evidence independent of grouping.
func (s *GroupingService) StoreSimilarityScores(ctx context.Context, inputs []domain.SimilarityScoreInput) (bool, error) {
	return s.storeSimilarityScores(ctx, "", inputs)
}

// StoreSimilarityScoresForOwner is StoreSimilarityScores restricted to scores
// between ownerID's tasks.
func (s *GroupingService) StoreSimilarityScoresForOwner(ctx context.Context, ownerID string, inputs []domain.SimilarityScoreInput) (bool, error) {
	if ownerID == "" {
		return false, domain.ErrMissingOwner
	}
	return s.storeSimilarityScores(ctx, ownerID, inputs)
}

func (s *GroupingService) storeSimilarityScores(ctx context.Context, ownerID string, inputs []domain.SimilarityScoreInput) (bool, error) {
	if len(inputs) == 0 {
		return true, nil
	}

	ctx, span := telemetry.StartSpan(ctx, "GroupingService.StoreSimilarityScores", telemetry.SpanAttributes{
		OwnerID:   ownerID,
		Operation: "store_similarity_scores",
		Count:     len(inputs),
	})
	defer span.End()

	scores, err := s.buildScores(inputs)
	if err != nil {
		return false, err
	}

	err = s.tx.WithTx(ctx, func(repos TxRepositories) error {
		if err := requireOwned(ctx, repos.Tasks(), ownerID, scoreTaskIDs(scores, "")); err != nil {
			return err
		}
		return repos.SimilarityScores().CreateBatch(ctx, scores)
	})
	if err != nil {
		span.SetError(err)
		return false, persistenceError("failed to store similarity scores", err)
	}

	return true, nil
}

// requireOwned fails with ErrTaskNotFound unless every id names a task of
// ownerID. An empty ownerID skips the check.
func requireOwned(ctx context.Context, tasks TaskRepositoryInterface, ownerID string, ids []string) error {
	if ownerID == "" {
		return nil
	}
	for _, id := range ids {
		task, err := tasks.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if task.OwnerID != ownerID {
			return domain.ErrTaskNotFound
		}
	}
	return nil
}

// scoreTaskIDs returns the distinct task ids named by scores, leaving out skip.
func scoreTaskIDs(scores []*domain.SimilarityScore, skip string) []string {
	ids := make([]string, 0, len(scores)*2)
	for _, sc := range scores {
		ids = append(ids, sc.TaskID, sc.SimilarTaskID)
	}
	out := uniqueIDs(ids)
	if skip == "" {
		return out
	}
	kept := out[:0]
	for _, id := range out {
		if id != skip {
			kept = append(kept, id)
		}
	}
	return kept
}

func (s *GroupingService) buildScores(inputs []domain.SimilarityScoreInput) ([]*domain.SimilarityScore, error) {
	now := s.now()
	scores := make([]*domain.SimilarityScore, 0, len(inputs))
	for _, in := range inputs {
		if err := domain.ValidateSimilarityScoreInput(in); err != nil {
			return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, domain.ErrInvalidSimilarity.Message, err)
		}
		scores = append(scores, &domain.SimilarityScore{
			ID:            s.uuidGen.NewString(),
			TaskID:        in.TaskID,
			SimilarTaskID: in.SimilarTaskID,
			Score:         in.Score,
			CreatedAt:     now,
		})
	}
	return scores, nil
}

// persistenceError keeps domain errors (not found, validation) as they are and
// wraps everything else as a typed persistence failure.
func persistenceError(message string, err error) error {
	var domainErr *domain.DomainError
	if errors.As(err, &domainErr) {
		return err
	}
	return domain.NewDomainErrorWithCause(domain.ErrCodePersistence, message, err)
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
