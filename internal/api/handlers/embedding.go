package handlers

import (
	"context"
	"net/http"

	"github.com/cloo-solutions/taskpriority/internal/api"
)

// CacheClearer empties the in-process embedding cache.
type CacheClearer interface {
	ClearCache()
}

// PersistentCachePurger drops persisted embeddings.
type PersistentCachePurger interface {
	DeleteAll(ctx context.Context) (int64, error)
}

type EmbeddingCacheHandler struct {
	cache      CacheClearer
	persistent PersistentCachePurger
}

// NewEmbeddingCacheHandler creates the handler. persistent may be nil when the
// embedding cache is not persisted.
func NewEmbeddingCacheHandler(cache CacheClearer, persistent PersistentCachePurger) *EmbeddingCacheHandler {
	return &EmbeddingCacheHandler{cache: cache, persistent: persistent}
}

type ClearCacheResponse struct {
	Cleared          bool  `json:"cleared"`
	PersistedDeleted int64 `json:"persisted_deleted"`
}

// Clear empties the in-process cache. With ?persistent=true the stored
// embeddings are purged as well.
func (h *EmbeddingCacheHandler) Clear(w http.ResponseWriter, r *http.Request) {
	var deleted int64
	if r.URL.Query().Get("persistent") == "true" && h.persistent != nil {
		n, err := h.persistent.DeleteAll(r.Context())
		if err != nil {
			api.HandleError(w, err)
			return
		}
		deleted = n
	}

	h.cache.ClearCache()

	api.Success(w, http.StatusOK, ClearCacheResponse{Cleared: true, PersistedDeleted: deleted})
}
