//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cloo-solutions/taskpriority/internal/api/handlers"
	"github.com/cloo-solutions/taskpriority/internal/api/middleware"
	"github.com/cloo-solutions/taskpriority/internal/cache"
	"github.com/cloo-solutions/taskpriority/internal/jobs"
	"github.com/cloo-solutions/taskpriority/internal/repository"
	"github.com/cloo-solutions/taskpriority/internal/server"
	"github.com/cloo-solutions/taskpriority/internal/service"
	"github.com/cloo-solutions/taskpriority/internal/testutil"
	"github.com/jackc/pgx/v5/pgxpool"
)

const embeddingDims = 64

// E2ETestEnv holds all resources needed for E2E tests
type E2ETestEnv struct {
	T          *testing.T
	Ctx        context.Context
	Pool       *pgxpool.Pool
	Server     *httptest.Server
	Worker     *jobs.Worker
	Embedder   *wordEmbedder
	Scores     *repository.SimilarityScoreRepository
	HTTPClient *http.Client
	cancel     context.CancelFunc
}

// SetupE2EEnv starts Postgres, the API and the duplicate check worker with a
// deterministic embedding client.
func SetupE2EEnv(t *testing.T) *E2ETestEnv {
	ctx, cancel := context.WithCancel(context.Background())

	pool := testutil.StartPostgres(t, "../../migrations")

	embedder := &wordEmbedder{}
	memCache, err := cache.NewMemory(0, 0)
	if err != nil {
		t.Fatalf("failed to create cache: %v", err)
	}
	persistent := repository.NewEmbeddingCacheRepository(pool, "e2e-words")
	embeddings := service.NewEmbeddingService(embedder, cache.NewTiered(memCache, persistent))
	detector := service.NewDuplicateDetector(embeddings, 4)

	taskRepo := repository.NewTaskRepository(pool)
	txRunner := repository.NewTxRunner(pool)
	grouping := service.NewGroupingService(txRunner)
	taskSvc := service.NewTaskService(taskRepo, txRunner, detector, grouping, service.DefaultTaskServiceConfig())

	worker := jobs.NewWorker(
		"duplicate-check",
		jobs.NewDuplicateCheckWorker(repository.NewDuplicateCheckJobRepository(pool), taskSvc),
		200*time.Millisecond,
	)
	go worker.Start(ctx)

	router := server.NewRouter(server.RouterConfig{
		TaskHandler:           handlers.NewTaskHandler(taskSvc),
		GroupHandler:          handlers.NewGroupHandler(grouping),
		EmbeddingCacheHandler: handlers.NewEmbeddingCacheHandler(embeddings, persistent),
	})

	return &E2ETestEnv{
		T:          t,
		Ctx:        ctx,
		Pool:       pool,
		Server:     httptest.NewServer(router),
		Worker:     worker,
		Embedder:   embedder,
		Scores:     repository.NewSimilarityScoreRepository(pool),
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		cancel:     cancel,
	}
}

// Cleanup releases all resources
func (e *E2ETestEnv) Cleanup() {
	e.Worker.Stop()
	e.cancel()
	e.Server.Close()
}

// APIResponse represents a standard API response
type APIResponse struct {
	Status int
	Data   json.RawMessage `json:"data"`
	Error  string          `json:"error,omitempty"`
	Code   string          `json:"code,omitempty"`
}

func (e *E2ETestEnv) Do(method, path, owner string, body interface{}) *APIResponse {
	e.T.Helper()

	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			e.T.Fatalf("failed to marshal body: %v", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequest(method, e.Server.URL+path, reqBody)
	if err != nil {
		e.T.Fatalf("failed to build request: %v", err)
	}
	if owner != "" {
		req.Header.Set(middleware.OwnerHeader, owner)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		e.T.Fatalf("%s %s failed: %v", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		e.T.Fatalf("failed to read response: %v", err)
	}

	apiResp := &APIResponse{Status: resp.StatusCode}
	if err := json.Unmarshal(respBody, apiResp); err != nil {
		e.T.Fatalf("HTTP %d: undecodable body %q", resp.StatusCode, respBody)
	}
	return apiResp
}

// Decode unmarshals the data envelope into v.
func (r *APIResponse) Decode(t *testing.T, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(r.Data, v); err != nil {
		t.Fatalf("failed to decode %s: %v", r.Data, err)
	}
}

// Eventually polls cond until it holds or the timeout passes.
func (e *E2ETestEnv) Eventually(timeout time.Duration, cond func() bool, msg string) {
	e.T.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(100 * time.Millisecond)
	}
	e.T.Fatalf("timed out after %v: %s", timeout, msg)
}

// wordEmbedder hashes each word into a fixed-size bag-of-words vector, so texts
// sharing words point in similar directions and identical texts are identical.
type wordEmbedder struct {
	calls atomic.Int64
}

func (w *wordEmbedder) GenerateEmbedding(_ context.Context, text string) ([]float32, error) {
	w.calls.Add(1)

	vec := make([]float32, embeddingDims)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		h.Write([]byte(word))
		vec[h.Sum32()%embeddingDims]++
	}
	return vec, nil
}

func (w *wordEmbedder) Calls() int64 {
	return w.calls.Load()
}

func taskPath(id string) string {
	return fmt.Sprintf("/tasks/%s", id)
}
