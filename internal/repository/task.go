package repository

import (
	"context"
	"errors"
	"time"

	"github.com/cloo-solutions/taskpriority/internal/domain"
	"github.com/cloo-solutions/taskpriority/internal/pagination"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const taskColumns = `id, owner_id, description, status, group_id, created_at, updated_at`

// uniqueViolation is the Postgres SQLSTATE for unique_violation.
const uniqueViolation = "23505"

type TaskRepository struct {
	db dbtx
}

func NewTaskRepository(pool *pgxpool.Pool) *TaskRepository {
	return &TaskRepository{db: pool}
}

func NewTaskRepositoryWithTx(tx pgx.Tx) *TaskRepository {
	return &TaskRepository{db: tx}
}

func (r *TaskRepository) Create(ctx context.Context, t *domain.Task) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO tasks (id, owner_id, description, status, group_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		t.ID, t.OwnerID, t.Description, t.Status, nullableString(t.GroupID), t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domain.ErrTaskAlreadyExists
		}
		return err
	}
	return nil
}

func (r *TaskRepository) GetByID(ctx context.Context, id string) (*domain.Task, error) {
	t, err := scanTask(r.db.QueryRow(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = $1`,
		id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTaskNotFound
		}
		return nil, err
	}
	return t, nil
}

// ListByOwnerWithCursor pages through an owner's tasks, newest first. An empty
// status lists every status.
func (r *TaskRepository) ListByOwnerWithCursor(ctx context.Context, ownerID string, status domain.TaskStatus, cursor *pagination.Cursor, limit int) (*pagination.Page[*domain.Task], error) {
	limit = pagination.NormalizeLimit(limit)

	var rows pgx.Rows
	var err error

	if cursor != nil {
		rows, err = r.db.Query(ctx,
			`SELECT `+taskColumns+`
			 FROM tasks
			 WHERE owner_id = $1 AND ($2::text = '' OR status = $2) AND (created_at, id) < ($3, $4)
			 ORDER BY created_at DESC, id DESC
			 LIMIT $5`,
			ownerID, string(status), cursor.CreatedAt, cursor.ID, limit+1,
		)
	} else {
		rows, err = r.db.Query(ctx,
			`SELECT `+taskColumns+`
			 FROM tasks
			 WHERE owner_id = $1 AND ($2::text = '' OR status = $2)
			 ORDER BY created_at DESC, id DESC
			 LIMIT $3`,
			ownerID, string(status), limit+1,
		)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items, err := scanTaskRows(rows)
	if err != nil {
		return nil, err
	}

	page := pagination.NewPage(items, limit,
		func(t *domain.Task) string { return t.ID },
		func(t *domain.Task) time.Time { return t.CreatedAt },
	)
	return &page, nil
}

// ListCandidates returns the owner's pending and in-progress tasks created at or
// after since, newest first.
func (r *TaskRepository) ListCandidates(ctx context.Context, ownerID string, since time.Time, limit int) ([]*domain.Task, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := r.db.Query(ctx,
		`SELECT `+taskColumns+`
		 FROM tasks
		 WHERE owner_id = $1 AND status = ANY($2) AND created_at >= $3
		 ORDER BY created_at DESC, id DESC
		 LIMIT $4`,
		ownerID, openStatuses(), since, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTaskRows(rows)
}

func (r *TaskRepository) UpdateStatus(ctx context.Context, id string, status domain.TaskStatus, updatedAt time.Time) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE tasks SET status = $1, updated_at = $2 WHERE id = $3`,
		status, updatedAt, id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrTaskNotFound
	}
	return nil
}

// SetGroup overwrites the task's group reference.
func (r *TaskRepository) SetGroup(ctx context.Context, taskID, groupID string) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE tasks SET group_id = $1, updated_at = $2 WHERE id = $3`,
		nullableString(groupID), time.Now().UTC(), taskID,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrTaskNotFound
	}
	return nil
}

func openStatuses() []string {
	statuses := domain.OpenTaskStatuses()
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

func scanTask(row pgx.Row) (*domain.Task, error) {
	var t domain.Task
	var groupID *string
	if err := row.Scan(&t.ID, &t.OwnerID, &t.Description, &t.Status, &groupID, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	if groupID != nil {
		t.GroupID = *groupID
	}
	return &t, nil
}

func scanTaskRows(rows pgx.Rows) ([]*domain.Task, error) {
	var tasks []*domain.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}
