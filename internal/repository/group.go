package repository

import (
	"context"
	"errors"
	"time"

	"github.com/cloo-solutions/taskpriority/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type GroupRepository struct {
	db dbtx
}

func NewGroupRepository(pool *pgxpool.Pool) *GroupRepository {
	return &GroupRepository{db: pool}
}

func NewGroupRepositoryWithTx(tx pgx.Tx) *GroupRepository {
	return &GroupRepository{db: tx}
}

func (r *GroupRepository) Create(ctx context.Context, g *domain.TaskGroup) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO task_groups (id, name, owner_id, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)`,
		g.ID, g.Name, g.OwnerID, g.CreatedAt, g.UpdatedAt,
	)
	return err
}

func (r *GroupRepository) GetByID(ctx context.Context, id string) (*domain.TaskGroup, error) {
	var g domain.TaskGroup
	err := r.db.QueryRow(ctx,
		`SELECT id, name, owner_id, created_at, updated_at FROM task_groups WHERE id = $1`,
		id,
	).Scan(&g.ID, &g.Name, &g.OwnerID, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTaskGroupNotFound
		}
		return nil, err
	}
	return &g, nil
}

// Touch bumps updated_at after membership changes.
func (r *GroupRepository) Touch(ctx context.Context, id string, updatedAt time.Time) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE task_groups SET updated_at = $1 WHERE id = $2`,
		updatedAt, id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrTaskGroupNotFound
	}
	return nil
}
