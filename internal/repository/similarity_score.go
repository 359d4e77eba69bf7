package repository

import (
	"context"

	"github.com/cloo-solutions/taskpriority/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type SimilarityScoreRepository struct {
	db dbtx
}

func NewSimilarityScoreRepository(pool *pgxpool.Pool) *SimilarityScoreRepository {
	return &SimilarityScoreRepository{db: pool}
}

func NewSimilarityScoreRepositoryWithTx(tx pgx.Tx) *SimilarityScoreRepository {
	return &SimilarityScoreRepository{db: tx}
}

// CreateBatch upserts scores in one round trip. A pair that already exists keeps
// its id and takes the newer score.
func (r *SimilarityScoreRepository) CreateBatch(ctx context.Context, scores []*domain.SimilarityScore) error {
	if len(scores) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, s := range scores {
		batch.Queue(
			`INSERT INTO similarity_scores (id, task_id, similar_task_id, score, created_at)
			 VALUES ($1, $2, $3, $4, $5)
			 ON CONFLICT (task_id, similar_task_id)
			 DO UPDATE SET score = EXCLUDED.score, created_at = EXCLUDED.created_at`,
			s.ID, s.TaskID, s.SimilarTaskID, s.Score, s.CreatedAt,
		)
	}

	br := r.db.SendBatch(ctx, batch)
	defer br.Close()

	for range scores {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// ListByTask returns the stored evidence for a task, strongest first.
func (r *SimilarityScoreRepository) ListByTask(ctx context.Context, taskID string) ([]*domain.SimilarityScore, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, task_id, similar_task_id, score, created_at
		 FROM similarity_scores
		 WHERE task_id = $1
		 ORDER BY score DESC, similar_task_id ASC`,
		taskID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var scores []*domain.SimilarityScore
	for rows.Next() {
		var s domain.SimilarityScore
		if err := rows.Scan(&s.ID, &s.TaskID, &s.SimilarTaskID, &s.Score, &s.CreatedAt); err != nil {
			return nil, err
		}
		scores = append(scores, &s)
	}
	return scores, rows.Err()
}
