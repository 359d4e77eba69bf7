package service

import (
	"context"
	"time"

	"github.com/cloo-solutions/taskpriority/internal/domain"
	"github.com/cloo-solutions/taskpriority/internal/pagination"
	"github.com/stretchr/testify/mock"
)

type testTxRepos struct {
	tasks    TaskRepositoryInterface
	groups   GroupRepositoryInterface
	scores   SimilarityScoreRepositoryInterface
	dupeJobs DuplicateCheckJobRepositoryInterface
}

func (t *testTxRepos) Tasks() TaskRepositoryInterface {
	return t.tasks
}

func (t *testTxRepos) Groups() GroupRepositoryInterface {
	return t.groups
}

func (t *testTxRepos) SimilarityScores() SimilarityScoreRepositoryInterface {
	return t.scores
}

func (t *testTxRepos) DuplicateCheckJobs() DuplicateCheckJobRepositoryInterface {
	return t.dupeJobs
}

type testTxRunner struct {
	repos  TxRepositories
	called bool
	// rolledBack records whether fn returned an error.
	rolledBack bool
}

func (t *testTxRunner) WithTx(ctx context.Context, fn func(repos TxRepositories) error) error {
	t.called = true
	if err := fn(t.repos); err != nil {
		t.rolledBack = true
		return err
	}
	return nil
}

// MockTaskRepo mocks TaskRepositoryInterface
type MockTaskRepo struct {
	mock.Mock
}

func (m *MockTaskRepo) Create(ctx context.Context, t *domain.Task) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *MockTaskRepo) GetByID(ctx context.Context, id string) (*domain.Task, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Task), args.Error(1)
}

func (m *MockTaskRepo) ListByOwnerWithCursor(ctx context.Context, ownerID string, status domain.TaskStatus, cursor *pagination.Cursor, limit int) (*pagination.Page[*domain.Task], error) {
	args := m.Called(ctx, ownerID, status, cursor, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*pagination.Page[*domain.Task]), args.Error(1)
}

func (m *MockTaskRepo) ListCandidates(ctx context.Context, ownerID string, since time.Time, limit int) ([]*domain.Task, error) {
	args := m.Called(ctx, ownerID, since, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Task), args.Error(1)
}

func (m *MockTaskRepo) UpdateStatus(ctx context.Context, id string, status domain.TaskStatus, updatedAt time.Time) error {
	args := m.Called(ctx, id, status, updatedAt)
	return args.Error(0)
}

func (m *MockTaskRepo) SetGroup(ctx context.Context, taskID, groupID string) error {
	args := m.Called(ctx, taskID, groupID)
	return args.Error(0)
}

// MockGroupRepo mocks GroupRepositoryInterface
type MockGroupRepo struct {
	mock.Mock
}

func (m *MockGroupRepo) Create(ctx context.Context, g *domain.TaskGroup) error {
	args := m.Called(ctx, g)
	return args.Error(0)
}

func (m *MockGroupRepo) GetByID(ctx context.Context, id string) (*domain.TaskGroup, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TaskGroup), args.Error(1)
}

func (m *MockGroupRepo) Touch(ctx context.Context, id string, updatedAt time.Time) error {
	args := m.Called(ctx, id, updatedAt)
	return args.Error(0)
}

// MockScoreRepo mocks SimilarityScoreRepositoryInterface
type MockScoreRepo struct {
	mock.Mock
}

func (m *MockScoreRepo) CreateBatch(ctx context.Context, scores []*domain.SimilarityScore) error {
	args := m.Called(ctx, scores)
	return args.Error(0)
}

func (m *MockScoreRepo) ListByTask(ctx context.Context, taskID string) ([]*domain.SimilarityScore, error) {
	args := m.Called(ctx, taskID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.SimilarityScore), args.Error(1)
}

// MockDuplicateCheckJobRepo mocks DuplicateCheckJobRepositoryInterface
type MockDuplicateCheckJobRepo struct {
	mock.Mock
}

func (m *MockDuplicateCheckJobRepo) Create(ctx context.Context, job *domain.DuplicateCheckJob) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}

// sequentialUUIDGen returns ids from a fixed list
type sequentialUUIDGen struct {
	ids []string
	i   int
}

func (g *sequentialUUIDGen) NewString() string {
	id := g.ids[g.i%len(g.ids)]
	g.i++
	return id
}
