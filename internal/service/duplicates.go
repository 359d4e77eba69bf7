package service

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/cloo-solutions/taskpriority/internal/domain"
	"github.com/cloo-solutions/taskpriority/internal/telemetry"
	"github.com/cloo-solutions/taskpriority/internal/vector"
	"golang.org/x/sync/errgroup"
)

// DefaultDetectConcurrency bounds concurrent candidate embedding fetches.
const DefaultDetectConcurrency = 8

// Embedder produces vectors for text.
type Embedder interface {
	GetEmbedding(ctx context.Context, text string) ([]float32, error)
}

// DuplicateDetector ranks candidate tasks by semantic similarity to a description.
// It holds no state of its own and never writes anything.
type DuplicateDetector struct {
	embedder    Embedder
	concurrency int
}

// NewDuplicateDetector creates a new DuplicateDetector. A non-positive concurrency
// uses DefaultDetectConcurrency.
func NewDuplicateDetector(embedder Embedder, concurrency int) *DuplicateDetector {
	if concurrency <= 0 {
		concurrency = DefaultDetectConcurrency
	}
	return &DuplicateDetector{
		embedder:    embedder,
		concurrency: concurrency,
	}
}

// DetectDuplicates returns the open candidates whose cosine similarity to description
// is at least threshold, sorted by descending similarity with ties kept in input order.
//
// Completed and blocked candidates are skipped without being embedded. A candidate
// whose embedding fails scores 0 and the rest of the batch continues. Failing to embed
// description itself returns a *domain.DetectionError. The result is not truncated.
func (d *DuplicateDetector) DetectDuplicates(ctx context.Context, description string, candidates []*domain.Task, threshold float64) ([]domain.TaskSimilarity, error) {
	results := []domain.TaskSimilarity{}
	if strings.TrimSpace(description) == "" {
		return results, nil
	}

	open := make([]*domain.Task, 0, len(candidates))
	for _, t := range candidates {
		if t != nil && t.IsOpen() {
			open = append(open, t)
		}
	}
	if len(open) == 0 {
		return results, nil
	}

	ctx, span := telemetry.StartSpan(ctx, "DuplicateDetector.DetectDuplicates", telemetry.SpanAttributes{
		Operation: "detect_duplicates",
		Count:     len(open),
	})
	defer span.End()

	target, err := d.embedder.GetEmbedding(ctx, description)
	if err != nil {
		span.SetError(err)
		return nil, &domain.DetectionError{Err: err}
	}

	scores := make([]float64, len(open))
	embeddings := make([][]float32, len(open))

	var g errgroup.Group
	g.SetLimit(d.concurrency)
	for i, task := range open {
		g.Go(func() error {
			if strings.TrimSpace(task.Description) == "" {
				return nil
			}
			emb, err := d.embedder.GetEmbedding(ctx, task.Description)
			if err != nil {
				log.Printf("duplicate detection: skipping candidate %s: %v", task.ID, err)
				telemetry.AddBreadcrumb(ctx, "duplicates", fmt.Sprintf("candidate %s scored 0: %v", task.ID, err))
				return nil
			}
			embeddings[i] = emb
			scores[i] = vector.Cosine(target, emb)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, &domain.DetectionError{Err: err}
	}

	for i, task := range open {
		if scores[i] <= 0 || scores[i] < threshold {
			continue
		}
		results = append(results, domain.TaskSimilarity{
			Task:       task,
			Similarity: scores[i],
			Embedding:  embeddings[i],
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})

	return results, nil
}
