package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cloo-solutions/taskpriority/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockGroupingService struct {
	mock.Mock
}

func (m *MockGroupingService) CreateGroupForOwner(ctx context.Context, ownerID string, taskIDs []string, name string) (*domain.TaskGroup, error) {
	args := m.Called(ctx, ownerID, taskIDs, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TaskGroup), args.Error(1)
}

func (m *MockGroupingService) AddTaskToGroupForOwner(ctx context.Context, ownerID, taskID, groupID string, similarities []domain.SimilarityScoreInput) (bool, error) {
	args := m.Called(ctx, ownerID, taskID, groupID, similarities)
	return args.Bool(0), args.Error(1)
}

func (m *MockGroupingService) StoreSimilarityScoresForOwner(ctx context.Context, ownerID string, scores []domain.SimilarityScoreInput) (bool, error) {
	args := m.Called(ctx, ownerID, scores)
	return args.Bool(0), args.Error(1)
}

func TestGroupHandler_Create_Success(t *testing.T) {
	mockSvc := new(MockGroupingService)
	handler := NewGroupHandler(mockSvc)

	created := domain.NewTaskGroup("group-1", "Login bugs", time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	created.TaskIDs = []string{"t1", "t2"}
	mockSvc.On("CreateGroupForOwner", mock.Anything, "owner-1", []string{"t1", " t2", "t1"}, "Login bugs").Return(created, nil)

	req := requestWithOwner(http.MethodPost, "/groups", []byte(`{"task_ids":["t1"," t2","t1"],"name":"Login bugs"}`))
	w := httptest.NewRecorder()

	handler.Create(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, "group-1", data["id"])
	assert.Equal(t, []interface{}{"t1", "t2"}, data["task_ids"])
	mockSvc.AssertExpectations(t)
}

func TestGroupHandler_Create_EmptyTaskIDs(t *testing.T) {
	mockSvc := new(MockGroupingService)
	handler := NewGroupHandler(mockSvc)

	req := requestWithOwner(http.MethodPost, "/groups", []byte(`{"task_ids":[]}`))
	w := httptest.NewRecorder()

	handler.Create(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	mockSvc.AssertNotCalled(t, "CreateGroupForOwner", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestGroupHandler_Create_MissingTaskMapsToNotFound(t *testing.T) {
	mockSvc := new(MockGroupingService)
	handler := NewGroupHandler(mockSvc)

	mockSvc.On("CreateGroupForOwner", mock.Anything, "owner-1", []string{"t1", "ghost"}, "").
		Return(nil, &domain.GroupCreationError{TaskIDs: []string{"t1", "ghost"}, Err: domain.ErrTaskNotFound})

	req := requestWithOwner(http.MethodPost, "/groups", []byte(`{"task_ids":["t1","ghost"]}`))
	w := httptest.NewRecorder()

	handler.Create(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGroupHandler_AddTask(t *testing.T) {
	mockSvc := new(MockGroupingService)
	handler := NewGroupHandler(mockSvc)

	mockSvc.On("AddTaskToGroupForOwner", mock.Anything, "owner-1", "t3", "group-1", []domain.SimilarityScoreInput{
		{TaskID: "t3", SimilarTaskID: "t1", Score: 0.9},
	}).Return(true, nil)

	body := `{"task_id":"t3","similarities":[{"task_id":"t3","similar_task_id":"t1","score":0.9}]}`
	req := withURLParam(requestWithOwner(http.MethodPost, "/groups/group-1/tasks", []byte(body)), "id", "group-1")
	w := httptest.NewRecorder()

	handler.AddTask(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decodeData(t, w)["ok"])
	mockSvc.AssertExpectations(t)
}

func TestGroupHandler_AddTask_GroupNotFound(t *testing.T) {
	mockSvc := new(MockGroupingService)
	handler := NewGroupHandler(mockSvc)

	mockSvc.On("AddTaskToGroupForOwner", mock.Anything, "owner-1", "t3", "missing", []domain.SimilarityScoreInput{}).
		Return(false, domain.ErrTaskGroupNotFound)

	req := withURLParam(requestWithOwner(http.MethodPost, "/groups/missing/tasks", []byte(`{"task_id":"t3"}`)), "id", "missing")
	w := httptest.NewRecorder()

	handler.AddTask(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGroupHandler_AddTask_MissingTaskID(t *testing.T) {
	mockSvc := new(MockGroupingService)
	handler := NewGroupHandler(mockSvc)

	req := withURLParam(requestWithOwner(http.MethodPost, "/groups/group-1/tasks", []byte(`{}`)), "id", "group-1")
	w := httptest.NewRecorder()

	handler.AddTask(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGroupHandler_StoreScores(t *testing.T) {
	mockSvc := new(MockGroupingService)
	handler := NewGroupHandler(mockSvc)

	mockSvc.On("StoreSimilarityScoresForOwner", mock.Anything, "owner-1", []domain.SimilarityScoreInput{
		{TaskID: "t1", SimilarTaskID: "t2", Score: 0.87},
	}).Return(true, nil)

	req := requestWithOwner(http.MethodPost, "/similarity-scores", []byte(`{"scores":[{"task_id":"t1","similar_task_id":"t2","score":0.87}]}`))
	w := httptest.NewRecorder()

	handler.StoreScores(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	mockSvc.AssertExpectations(t)
}

func TestGroupHandler_StoreScores_Invalid(t *testing.T) {
	mockSvc := new(MockGroupingService)
	handler := NewGroupHandler(mockSvc)

	mockSvc.On("StoreSimilarityScoresForOwner", mock.Anything, "owner-1", mock.Anything).Return(false, domain.ErrInvalidSimilarity)

	req := requestWithOwner(http.MethodPost, "/similarity-scores", []byte(`{"scores":[{"task_id":"t1","similar_task_id":"t2","score":2}]}`))
	w := httptest.NewRecorder()

	handler.StoreScores(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGroupHandler_RequiresOwner(t *testing.T) {
	mockSvc := new(MockGroupingService)
	handler := NewGroupHandler(mockSvc)

	for name, serve := range map[string]http.HandlerFunc{
		"create":   handler.Create,
		"add task": handler.AddTask,
		"store":    handler.StoreScores,
	} {
		t.Run(name, func(t *testing.T) {
			req := withURLParam(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"task_ids":["t1"],"task_id":"t1"}`)), "id", "g1")
			w := httptest.NewRecorder()

			serve(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
	assert.Empty(t, mockSvc.Calls)
}

func TestGroupHandler_AddTask_ForeignTaskIsNotFound(t *testing.T) {
	mockSvc := new(MockGroupingService)
	handler := NewGroupHandler(mockSvc)

	mockSvc.On("AddTaskToGroupForOwner", mock.Anything, "owner-1", "theirs", "group-1", []domain.SimilarityScoreInput{}).
		Return(false, domain.ErrTaskNotFound)

	req := withURLParam(requestWithOwner(http.MethodPost, "/groups/group-1/tasks", []byte(`{"task_id":"theirs"}`)), "id", "group-1")
	w := httptest.NewRecorder()

	handler.AddTask(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	mockSvc.AssertExpectations(t)
}
