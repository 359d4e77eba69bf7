package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/cloo-solutions/taskpriority/internal/api"
	"github.com/cloo-solutions/taskpriority/internal/api/middleware"
	"github.com/cloo-solutions/taskpriority/internal/domain"
	"github.com/cloo-solutions/taskpriority/internal/service"
	"github.com/go-chi/chi/v5"
)

type TaskService interface {
	Create(ctx context.Context, input service.CreateTaskInput) (*domain.Task, error)
	GetByID(ctx context.Context, id string) (*domain.Task, error)
	List(ctx context.Context, input service.ListTasksInput) (*service.ListTasksOutput, error)
	UpdateStatus(ctx context.Context, id string, status domain.TaskStatus) (*domain.Task, error)
	FindDuplicates(ctx context.Context, input service.FindDuplicatesInput) ([]domain.TaskSimilarity, error)
}

type TaskHandler struct {
	svc TaskService
}

func NewTaskHandler(svc TaskService) *TaskHandler {
	return &TaskHandler{svc: svc}
}

type CreateTaskRequest struct {
	Description string `json:"description"`
	Status      string `json:"status"`
}

type UpdateTaskStatusRequest struct {
	Status string `json:"status"`
}

type CheckDuplicatesRequest struct {
	Description   string `json:"description"`
	ExcludeTaskID string `json:"exclude_task_id"`
}

type TaskResponse struct {
	ID          string `json:"id"`
	OwnerID     string `json:"owner_id"`
	Description string `json:"description"`
	Status      string `json:"status"`
	GroupID     string `json:"group_id,omitempty"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

type TaskListResponse struct {
	Items   []*TaskResponse `json:"items"`
	Cursor  string          `json:"cursor,omitempty"`
	HasMore bool            `json:"has_more"`
}

type DuplicateMatchResponse struct {
	Task       *TaskResponse `json:"task"`
	Similarity float64       `json:"similarity"`
}

type DuplicatesResponse struct {
	Matches []*DuplicateMatchResponse `json:"matches"`
}

func taskToResponse(t *domain.Task) *TaskResponse {
	return &TaskResponse{
		ID:          t.ID,
		OwnerID:     t.OwnerID,
		Description: t.Description,
		Status:      string(t.Status),
		GroupID:     t.GroupID,
		CreatedAt:   t.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:   t.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	ownerID := middleware.GetOwnerID(r.Context())
	if ownerID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req CreateTaskRequest
	if !api.DecodeJSON(w, r, &req) {
		return
	}

	if req.Description == "" {
		api.Error(w, http.StatusBadRequest, "description is required")
		return
	}

	status := domain.TaskStatus(req.Status)
	if status != "" && !domain.IsValidTaskStatus(status) {
		api.Error(w, http.StatusBadRequest, "invalid task status")
		return
	}

	task, err := h.svc.Create(r.Context(), service.CreateTaskInput{
		OwnerID:     ownerID,
		Description: req.Description,
		Status:      status,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, taskToResponse(task))
}

func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	task, ok := h.ownedTask(w, r)
	if !ok {
		return
	}

	api.Success(w, http.StatusOK, taskToResponse(task))
}

func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	ownerID := middleware.GetOwnerID(r.Context())
	if ownerID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	query := r.URL.Query()
	limit := 20
	if limitStr := query.Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	output, err := h.svc.List(r.Context(), service.ListTasksInput{
		OwnerID: ownerID,
		Status:  domain.TaskStatus(query.Get("status")),
		Cursor:  query.Get("cursor"),
		Limit:   limit,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	responses := make([]*TaskResponse, len(output.Items))
	for i, t := range output.Items {
		responses[i] = taskToResponse(t)
	}

	api.Success(w, http.StatusOK, TaskListResponse{
		Items:   responses,
		Cursor:  output.Cursor,
		HasMore: output.HasMore,
	})
}

func (h *TaskHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	task, ok := h.ownedTask(w, r)
	if !ok {
		return
	}

	var req UpdateTaskStatusRequest
	if !api.DecodeJSON(w, r, &req) {
		return
	}

	status := domain.TaskStatus(req.Status)
	if !domain.IsValidTaskStatus(status) {
		api.Error(w, http.StatusBadRequest, "invalid task status")
		return
	}

	updated, err := h.svc.UpdateStatus(r.Context(), task.ID, status)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, taskToResponse(updated))
}

// CheckDuplicates reports open tasks that look like the submitted description.
// Detection problems surface as an empty match list, never as an error.
func (h *TaskHandler) CheckDuplicates(w http.ResponseWriter, r *http.Request) {
	ownerID := middleware.GetOwnerID(r.Context())
	if ownerID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req CheckDuplicatesRequest
	if !api.DecodeJSON(w, r, &req) {
		return
	}

	results, err := h.svc.FindDuplicates(r.Context(), service.FindDuplicatesInput{
		OwnerID:       ownerID,
		Description:   req.Description,
		ExcludeTaskID: req.ExcludeTaskID,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	matches := make([]*DuplicateMatchResponse, 0, len(results))
	for _, res := range results {
		matches = append(matches, &DuplicateMatchResponse{
			Task:       taskToResponse(res.Task),
			Similarity: res.Similarity,
		})
	}

	api.Success(w, http.StatusOK, DuplicatesResponse{Matches: matches})
}

// ownedTask loads the {id} task and hides tasks that belong to another owner.
func (h *TaskHandler) ownedTask(w http.ResponseWriter, r *http.Request) (*domain.Task, bool) {
	ownerID := middleware.GetOwnerID(r.Context())
	if ownerID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return nil, false
	}

	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return nil, false
	}

	task, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return nil, false
	}
	if task.OwnerID != ownerID {
		api.HandleError(w, domain.ErrTaskNotFound)
		return nil, false
	}

	return task, true
}
