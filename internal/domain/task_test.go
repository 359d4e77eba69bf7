package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskStatusConstants(t *testing.T) {
	tests := []struct {
		name     string
		status   TaskStatus
		expected string
	}{
		{"Pending", TaskStatusPending, "pending"},
		{"InProgress", TaskStatusInProgress, "in_progress"},
		{"Completed", TaskStatusCompleted, "completed"},
		{"Blocked", TaskStatusBlocked, "blocked"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, string(tt.status))
		})
	}
}

func TestNewTask(t *testing.T) {
	now := time.Now()
	task := NewTask("t1", "owner1", "Fix login crash on iOS", now)

	require.NotNil(t, task)
	assert.Equal(t, "t1", task.ID)
	assert.Equal(t, "owner1", task.OwnerID)
	assert.Equal(t, TaskStatusPending, task.Status)
	assert.Empty(t, task.GroupID)
	assert.Equal(t, now, task.CreatedAt)
	assert.Equal(t, now, task.UpdatedAt)
}

func TestTask_IsOpen(t *testing.T) {
	tests := []struct {
		status TaskStatus
		open   bool
	}{
		{TaskStatusPending, true},
		{TaskStatusInProgress, true},
		{TaskStatusCompleted, false},
		{TaskStatusBlocked, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			task := &Task{Status: tt.status}
			assert.Equal(t, tt.open, task.IsOpen())
		})
	}
}

func TestValidateTask(t *testing.T) {
	valid := func() *Task {
		return NewTask("t1", "owner1", "Write launch post", time.Now())
	}

	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, ValidateTask(valid()))
	})

	t.Run("nil", func(t *testing.T) {
		assert.Error(t, ValidateTask(nil))
	})

	t.Run("missing ID", func(t *testing.T) {
		task := valid()
		task.ID = ""
		assert.ErrorContains(t, ValidateTask(task), "ID is required")
	})

	t.Run("missing owner", func(t *testing.T) {
		task := valid()
		task.OwnerID = ""
		assert.ErrorContains(t, ValidateTask(task), "OwnerID is required")
	})

	t.Run("blank description", func(t *testing.T) {
		task := valid()
		task.Description = "   "
		assert.ErrorContains(t, ValidateTask(task), "Description is required")
	})

	t.Run("invalid status", func(t *testing.T) {
		task := valid()
		task.Status = "archived"
		assert.ErrorContains(t, ValidateTask(task), "Status is invalid")
	})
}

func TestValidateSimilarityScoreInput(t *testing.T) {
	assert.NoError(t, ValidateSimilarityScoreInput(SimilarityScoreInput{TaskID: "a", SimilarTaskID: "b", Score: 0.91}))
	assert.Error(t, ValidateSimilarityScoreInput(SimilarityScoreInput{SimilarTaskID: "b", Score: 0.5}))
	assert.Error(t, ValidateSimilarityScoreInput(SimilarityScoreInput{TaskID: "a", Score: 0.5}))
	assert.Error(t, ValidateSimilarityScoreInput(SimilarityScoreInput{TaskID: "a", SimilarTaskID: "a", Score: 0.5}))
	assert.Error(t, ValidateSimilarityScoreInput(SimilarityScoreInput{TaskID: "a", SimilarTaskID: "b", Score: 1.2}))
	assert.Error(t, ValidateSimilarityScoreInput(SimilarityScoreInput{TaskID: "a", SimilarTaskID: "b", Score: -0.1}))
}

func TestTopN(t *testing.T) {
	results := []TaskSimilarity{{Similarity: 0.9}, {Similarity: 0.8}, {Similarity: 0.7}}

	assert.Len(t, TopN(results, 2), 2)
	assert.Len(t, TopN(results, 5), 3)
	assert.Len(t, TopN(results, 0), 3)
	assert.Equal(t, 0.9, TopN(results, 1)[0].Similarity)
}

func TestValidateTaskGroup(t *testing.T) {
	assert.NoError(t, ValidateTaskGroup(NewTaskGroup("g1", "", time.Now())))
	assert.Error(t, ValidateTaskGroup(nil))
	assert.Error(t, ValidateTaskGroup(&TaskGroup{}))
	long := make([]byte, 201)
	for i := range long {
		long[i] = 'a'
	}
	assert.Error(t, ValidateTaskGroup(NewTaskGroup("g1", string(long), time.Now())))
}

func TestValidateDuplicateCheckJob(t *testing.T) {
	job := NewDuplicateCheckJob("j1", "t1", time.Now())
	assert.NoError(t, ValidateDuplicateCheckJob(job))

	job.Status = "unknown"
	assert.Error(t, ValidateDuplicateCheckJob(job))

	job = NewDuplicateCheckJob("j1", "", time.Now())
	assert.Error(t, ValidateDuplicateCheckJob(job))

	job = NewDuplicateCheckJob("j1", "t1", time.Now())
	job.Retries = -1
	assert.Error(t, ValidateDuplicateCheckJob(job))
}

func TestTypedErrors_Unwrap(t *testing.T) {
	cause := errors.New("quota exceeded")

	providerErr := NewEmbeddingProviderError("embedding request failed", cause)
	assert.ErrorIs(t, providerErr, cause)
	assert.Contains(t, providerErr.Error(), ErrCodeEmbeddingProvider)
	assert.Contains(t, providerErr.Error(), "quota exceeded")

	groupErr := &GroupCreationError{TaskIDs: []string{"t1", "t2"}, Err: cause}
	assert.ErrorIs(t, groupErr, cause)
	assert.Contains(t, groupErr.Error(), "2 tasks")

	detectErr := &DetectionError{Err: providerErr}
	var target *EmbeddingProviderError
	require.True(t, errors.As(detectErr, &target))
	assert.Equal(t, "embedding request failed", target.Message)
}

func TestDomainError(t *testing.T) {
	err := NewDomainErrorWithCause(ErrCodeNotFound, "task not found", errors.New("no rows"))
	assert.Equal(t, "[NOT_FOUND] task not found: no rows", err.Error())
	assert.Equal(t, "[VALIDATION_ERROR] missing required field", ErrMissingRequiredField.Error())
}
