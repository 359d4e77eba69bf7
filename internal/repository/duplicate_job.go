package repository

import (
	"context"
	"errors"
	"time"

	"github.com/cloo-solutions/taskpriority/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

const duplicateJobColumns = `id, task_id, status, retries, error, match_count, created_at, processed_at`

type DuplicateCheckJobRepository struct {
	db dbtx
}

func NewDuplicateCheckJobRepository(pool *pgxpool.Pool) *DuplicateCheckJobRepository {
	return &DuplicateCheckJobRepository{db: pool}
}

func NewDuplicateCheckJobRepositoryWithTx(tx pgx.Tx) *DuplicateCheckJobRepository {
	return &DuplicateCheckJobRepository{db: tx}
}

func (r *DuplicateCheckJobRepository) Create(ctx context.Context, job *domain.DuplicateCheckJob) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO duplicate_check_jobs (id, task_id, status, retries, error, match_count, created_at, processed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		job.ID, job.TaskID, job.Status, job.Retries, nullableString(job.Error), job.MatchCount, job.CreatedAt, job.ProcessedAt,
	)
	return err
}

func (r *DuplicateCheckJobRepository) GetByID(ctx context.Context, id string) (*domain.DuplicateCheckJob, error) {
	job, err := scanDuplicateJob(r.db.QueryRow(ctx,
		`SELECT `+duplicateJobColumns+` FROM duplicate_check_jobs WHERE id = $1`,
		id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrDuplicateCheckJobNotFound
		}
		return nil, err
	}
	return job, nil
}

// ClaimPending atomically moves up to limit pending jobs to processing, oldest
// first. Concurrent workers never claim the same job.
func (r *DuplicateCheckJobRepository) ClaimPending(ctx context.Context, limit int) ([]*domain.DuplicateCheckJob, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := r.db.Query(ctx,
		`WITH cte AS (
			 SELECT id
			 FROM duplicate_check_jobs
			 WHERE status = $1
			 ORDER BY created_at ASC
			 FOR UPDATE SKIP LOCKED
			 LIMIT $2
		 )
		 UPDATE duplicate_check_jobs
		 SET status = $3,
		     error = NULL,
		     processed_at = NULL
		 FROM cte
		 WHERE duplicate_check_jobs.id = cte.id
		 RETURNING duplicate_check_jobs.id, duplicate_check_jobs.task_id, duplicate_check_jobs.status,
		           duplicate_check_jobs.retries, duplicate_check_jobs.error, duplicate_check_jobs.match_count,
		           duplicate_check_jobs.created_at, duplicate_check_jobs.processed_at`,
		domain.DuplicateCheckJobStatusPending, limit, domain.DuplicateCheckJobStatusProcessing,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*domain.DuplicateCheckJob
	for rows.Next() {
		job, err := scanDuplicateJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

func (r *DuplicateCheckJobRepository) UpdateStatus(ctx context.Context, id string, status domain.DuplicateCheckJobStatus, errMsg string) error {
	var processedAt *time.Time
	if status == domain.DuplicateCheckJobStatusCompleted || status == domain.DuplicateCheckJobStatusFailed {
		now := time.Now().UTC()
		processedAt = &now
	}

	cmdTag, err := r.db.Exec(ctx,
		`UPDATE duplicate_check_jobs SET status = $1, error = $2, processed_at = $3 WHERE id = $4`,
		status, nullableString(errMsg), processedAt, id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrDuplicateCheckJobNotFound
	}
	return nil
}

// Complete marks the job done and records how many matches were stored.
func (r *DuplicateCheckJobRepository) Complete(ctx context.Context, id string, matchCount int) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE duplicate_check_jobs
		 SET status = $1, error = NULL, match_count = $2, processed_at = $3
		 WHERE id = $4`,
		domain.DuplicateCheckJobStatusCompleted, int32(matchCount), time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrDuplicateCheckJobNotFound
	}
	return nil
}

func (r *DuplicateCheckJobRepository) IncrementRetries(ctx context.Context, id string) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE duplicate_check_jobs SET retries = retries + 1 WHERE id = $1`,
		id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrDuplicateCheckJobNotFound
	}
	return nil
}

func scanDuplicateJob(row pgx.Row) (*domain.DuplicateCheckJob, error) {
	var job domain.DuplicateCheckJob
	var errMsg pgtype.Text
	if err := row.Scan(&job.ID, &job.TaskID, &job.Status, &job.Retries, &errMsg, &job.MatchCount, &job.CreatedAt, &job.ProcessedAt); err != nil {
		return nil, err
	}
	if errMsg.Valid {
		job.Error = errMsg.String
	}
	return &job, nil
}
