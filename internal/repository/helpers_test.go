//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/cloo-solutions/taskpriority/internal/domain"
	"github.com/cloo-solutions/taskpriority/internal/testutil"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
)

func newTestPool(_ context.Context, t *testing.T) *pgxpool.Pool {
	t.Helper()
	return testutil.StartPostgres(t, "../../migrations")
}

func createTestTask(ctx context.Context, t *testing.T, repo *TaskRepository, ownerID, description string, status domain.TaskStatus, createdAt time.Time) *domain.Task {
	t.Helper()
	task := domain.NewTask(uuid.NewString(), ownerID, description, createdAt.UTC().Truncate(time.Microsecond))
	task.Status = status
	require.NoError(t, repo.Create(ctx, task))
	return task
}
