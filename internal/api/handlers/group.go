package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/cloo-solutions/taskpriority/internal/api"
	"github.com/cloo-solutions/taskpriority/internal/api/middleware"
	"github.com/cloo-solutions/taskpriority/internal/domain"
	"github.com/go-chi/chi/v5"
)

// GroupingService is the owner-scoped grouping API. Tasks and groups of other
// owners are reported as not found.
type GroupingService interface {
	CreateGroupForOwner(ctx context.Context, ownerID string, taskIDs []string, name string) (*domain.TaskGroup, error)
	AddTaskToGroupForOwner(ctx context.Context, ownerID, taskID, groupID string, similarities []domain.SimilarityScoreInput) (bool, error)
	StoreSimilarityScoresForOwner(ctx context.Context, ownerID string, scores []domain.SimilarityScoreInput) (bool, error)
}

type GroupHandler struct {
	svc GroupingService
}

func NewGroupHandler(svc GroupingService) *GroupHandler {
	return &GroupHandler{svc: svc}
}

type CreateGroupRequest struct {
	TaskIDs []string `json:"task_ids"`
	Name    string   `json:"name"`
}

type SimilarityScoreRequest struct {
	TaskID        string  `json:"task_id"`
	SimilarTaskID string  `json:"similar_task_id"`
	Score         float64 `json:"score"`
}

type AddTaskToGroupRequest struct {
	TaskID       string                   `json:"task_id"`
	Similarities []SimilarityScoreRequest `json:"similarities"`
}

type StoreSimilarityScoresRequest struct {
	Scores []SimilarityScoreRequest `json:"scores"`
}

type GroupResponse struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	TaskIDs   []string `json:"task_ids"`
	CreatedAt string   `json:"created_at"`
}

type OKResponse struct {
	OK bool `json:"ok"`
}

func (h *GroupHandler) Create(w http.ResponseWriter, r *http.Request) {
	ownerID := middleware.GetOwnerID(r.Context())
	if ownerID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req CreateGroupRequest
	if !api.DecodeJSON(w, r, &req) {
		return
	}

	if len(req.TaskIDs) == 0 {
		api.Error(w, http.StatusBadRequest, "task_ids is required")
		return
	}

	group, err := h.svc.CreateGroupForOwner(r.Context(), ownerID, req.TaskIDs, req.Name)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, GroupResponse{
		ID:        group.ID,
		Name:      group.Name,
		TaskIDs:   group.TaskIDs,
		CreatedAt: group.CreatedAt.UTC().Format(time.RFC3339),
	})
}

func (h *GroupHandler) AddTask(w http.ResponseWriter, r *http.Request) {
	ownerID := middleware.GetOwnerID(r.Context())
	if ownerID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	groupID := chi.URLParam(r, "id")
	if groupID == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	var req AddTaskToGroupRequest
	if !api.DecodeJSON(w, r, &req) {
		return
	}

	if req.TaskID == "" {
		api.Error(w, http.StatusBadRequest, "task_id is required")
		return
	}

	ok, err := h.svc.AddTaskToGroupForOwner(r.Context(), ownerID, req.TaskID, groupID, toScoreInputs(req.Similarities))
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, OKResponse{OK: ok})
}

func (h *GroupHandler) StoreScores(w http.ResponseWriter, r *http.Request) {
	ownerID := middleware.GetOwnerID(r.Context())
	if ownerID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req StoreSimilarityScoresRequest
	if !api.DecodeJSON(w, r, &req) {
		return
	}

	ok, err := h.svc.StoreSimilarityScoresForOwner(r.Context(), ownerID, toScoreInputs(req.Scores))
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, OKResponse{OK: ok})
}

func toScoreInputs(reqs []SimilarityScoreRequest) []domain.SimilarityScoreInput {
	inputs := make([]domain.SimilarityScoreInput, 0, len(reqs))
	for _, s := range reqs {
		inputs = append(inputs, domain.SimilarityScoreInput{
			TaskID:        s.TaskID,
			SimilarTaskID: s.SimilarTaskID,
			Score:         s.Score,
		})
	}
	return inputs
}
