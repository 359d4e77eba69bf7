package admin

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/cloo-solutions/taskpriority/internal/cache"
	"github.com/cloo-solutions/taskpriority/internal/config"
	"github.com/cloo-solutions/taskpriority/internal/database"
	"github.com/cloo-solutions/taskpriority/internal/openai"
	"github.com/cloo-solutions/taskpriority/internal/repository"
	"github.com/cloo-solutions/taskpriority/internal/service"
	"github.com/jackc/pgx/v5/pgxpool"
	goopenai "github.com/sashabaranov/go-openai"
)

var errNoOpenAIKey = errors.New("TASKPRIORITY_OPENAI_API_KEY is required for duplicate detection")

// app holds the wired services shared by serve and dupes.
type app struct {
	pool       *pgxpool.Pool
	memCache   *cache.Memory
	persistent *repository.EmbeddingCacheRepository

	tasks      *repository.TaskRepository
	embeddings *service.EmbeddingService
	detector   *service.DuplicateDetector
	grouping   *service.GroupingService
	taskSvc    *service.TaskService
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	if !cfg.HasOpenAI() {
		return nil, errNoOpenAIKey
	}

	pool, err := database.NewPool(ctx, cfg.DatabaseURL, cfg.DatabaseMaxConns)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	log.Println("connected to database")

	memCache, err := cache.NewMemory(cfg.EmbeddingCacheMaxBytes, cfg.EmbeddingCacheTTL)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create embedding cache: %w", err)
	}

	client := openai.NewClientWithConfig(openai.Config{
		APIKey:              cfg.OpenAIAPIKey,
		BaseURL:             cfg.OpenAIBaseURL,
		EmbeddingModel:      goopenai.EmbeddingModel(cfg.EmbeddingModel),
		EmbeddingDimensions: cfg.EmbeddingDimensions,
	})

	a := &app{pool: pool, memCache: memCache}

	var embeddingCache service.EmbeddingCache = cache.NewTiered(memCache, nil)
	if cfg.EmbeddingCachePersist {
		a.persistent = repository.NewEmbeddingCacheRepository(pool, client.Model())
		embeddingCache = cache.NewTiered(memCache, a.persistent)
		log.Printf("embedding cache: persisting vectors for model %s", client.Model())
	}

	a.embeddings = service.NewEmbeddingServiceWithConfig(client, embeddingCache, service.EmbeddingServiceConfig{
		Timeout:   cfg.EmbeddingTimeout,
		RateLimit: cfg.EmbeddingRateLimit,
	})
	a.detector = service.NewDuplicateDetector(a.embeddings, cfg.DetectConcurrency)

	a.tasks = repository.NewTaskRepository(pool)
	txRunner := repository.NewTxRunner(pool)
	a.grouping = service.NewGroupingService(txRunner)
	a.taskSvc = service.NewTaskService(a.tasks, txRunner, a.detector, a.grouping, taskServiceConfig(cfg))

	return a, nil
}

func (a *app) Close() {
	a.memCache.Close()
	a.pool.Close()
}

// taskServiceConfig turns the configured thresholds and windows into detection policies.
func taskServiceConfig(cfg *config.Config) service.TaskServiceConfig {
	return service.TaskServiceConfig{
		Interactive: service.DetectionPolicy{
			Threshold:      cfg.InteractiveThreshold,
			Window:         days(cfg.InteractiveWindowDays),
			CandidateLimit: cfg.CandidateLimit,
			ResultLimit:    cfg.DuplicateResultLimit,
		},
		Background: service.DetectionPolicy{
			Threshold:      cfg.BackgroundThreshold,
			Window:         days(cfg.BackgroundWindowDays),
			CandidateLimit: cfg.CandidateLimit,
			ResultLimit:    cfg.DuplicateResultLimit,
		},
	}
}

func days(n int) time.Duration {
	return time.Duration(n) * 24 * time.Hour
}
