package domain

import (
	"fmt"
	"time"
)

// TaskSimilarity ties a candidate task to its similarity against a new description.
// It is never persisted directly; see SimilarityScore.
type TaskSimilarity struct {
	Task       *Task
	Similarity float64
	Embedding  []float32
}

// SimilarityScoreInput is the caller-supplied evidence for one task pair.
type SimilarityScoreInput struct {
	TaskID        string
	SimilarTaskID string
	Score         float64
}

// SimilarityScore is a persisted similarity between two tasks.
type SimilarityScore struct {
	ID            string
	TaskID        string
	SimilarTaskID string
	Score         float64
	CreatedAt     time.Time
}

// ValidateSimilarityScoreInput validates a SimilarityScoreInput
func ValidateSimilarityScoreInput(s SimilarityScoreInput) error {
	if s.TaskID == "" {
		return fmt.Errorf("similarity score TaskID is required")
	}

	if s.SimilarTaskID == "" {
		return fmt.Errorf("similarity score SimilarTaskID is required")
	}

	if s.TaskID == s.SimilarTaskID {
		return fmt.Errorf("similarity score cannot reference the same task twice")
	}

	if s.Score < 0 || s.Score > 1 {
		return fmt.Errorf("similarity score must be between 0 and 1, got %f", s.Score)
	}

	return nil
}

// TopN returns at most n leading results. A non-positive n returns the input unchanged.
func TopN(results []TaskSimilarity, n int) []TaskSimilarity {
	if n <= 0 || len(results) <= n {
		return results
	}
	return results[:n]
}
