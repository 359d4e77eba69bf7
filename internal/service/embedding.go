package service

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/cloo-solutions/taskpriority/internal/domain"
	"github.com/cloo-solutions/taskpriority/internal/telemetry"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

// ErrEmptyEmbeddingText is wrapped in an EmbeddingProviderError when the input is blank.
var ErrEmptyEmbeddingText = errors.New("text cannot be empty")

// EmbeddingClient defines the interface for generating embeddings
type EmbeddingClient interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// EmbeddingCache is the injected cache the EmbeddingService reads through.
type EmbeddingCache interface {
	Get(ctx context.Context, key string) ([]float32, bool, error)
	Set(ctx context.Context, key string, vector []float32) error
	Clear()
}

// EmbeddingServiceConfig controls provider call behavior.
type EmbeddingServiceConfig struct {
	// Timeout bounds each provider call independently of the callers waiting on
	// it. Non-positive values use DefaultEmbeddingTimeout.
	Timeout time.Duration
	// RateLimit is the maximum provider calls per second. Zero disables limiting.
	RateLimit float64
	// Burst is the limiter bucket size; defaults to 1 when RateLimit is set.
	Burst int
}

const DefaultEmbeddingTimeout = 15 * time.Second

// DefaultEmbeddingServiceConfig returns the default service configuration.
func DefaultEmbeddingServiceConfig() EmbeddingServiceConfig {
	return EmbeddingServiceConfig{
		Timeout: DefaultEmbeddingTimeout,
	}
}

// EmbeddingService turns text into vectors, reading through a normalized-text cache
// so identical task descriptions hit the provider at most once.
type EmbeddingService struct {
	client  EmbeddingClient
	cache   EmbeddingCache
	timeout time.Duration
	limiter *rate.Limiter
	flight  singleflight.Group
}

// NewEmbeddingService creates a new EmbeddingService with the default configuration
func NewEmbeddingService(client EmbeddingClient, cache EmbeddingCache) *EmbeddingService {
	return NewEmbeddingServiceWithConfig(client, cache, DefaultEmbeddingServiceConfig())
}

// NewEmbeddingServiceWithConfig creates a new EmbeddingService with explicit configuration.
func NewEmbeddingServiceWithConfig(client EmbeddingClient, cache EmbeddingCache, cfg EmbeddingServiceConfig) *EmbeddingService {
	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultEmbeddingTimeout
	}
	return &EmbeddingService{
		client:  client,
		cache:   cache,
		timeout: cfg.Timeout,
		limiter: limiter,
	}
}

// NormalizeText builds the cache key for a text: trimmed and lower-cased.
func NormalizeText(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

// GetEmbedding returns the vector for text. A cache hit makes no provider call.
// On a miss the provider receives the original text and the result is cached
// under the normalized key. Returned slices are shared and must not be modified.
func (s *EmbeddingService) GetEmbedding(ctx context.Context, text string) ([]float32, error) {
	key := NormalizeText(text)
	if key == "" {
		return nil, domain.NewEmbeddingProviderError("cannot embed blank text", ErrEmptyEmbeddingText)
	}

	if vec, ok := s.cached(ctx, key); ok {
		return vec, nil
	}

	// The shared call outlives any one caller: it is bounded by the per-call
	// timeout, and each caller stops waiting when its own context ends.
	flightCtx := context.WithoutCancel(ctx)
	ch := s.flight.DoChan(key, func() (interface{}, error) {
		// A concurrent flight may have filled the cache while this one queued.
		if vec, ok := s.cached(flightCtx, key); ok {
			return vec, nil
		}
		return s.fetch(flightCtx, text, key)
	})

	select {
	case <-ctx.Done():
		return nil, domain.NewEmbeddingProviderError("embedding request aborted", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]float32), nil
	}
}

// ClearCache empties the in-process embedding cache.
func (s *EmbeddingService) ClearCache() {
	s.cache.Clear()
}

func (s *EmbeddingService) cached(ctx context.Context, key string) ([]float32, bool) {
	vec, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		log.Printf("embedding cache read failed (treating as miss): %v", err)
		return nil, false
	}
	return vec, ok
}

func (s *EmbeddingService) fetch(ctx context.Context, text, key string) ([]float32, error) {
	ctx, span := telemetry.StartSpan(ctx, "EmbeddingService.fetch", telemetry.SpanAttributes{
		Operation: "embed",
	})
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, domain.NewEmbeddingProviderError("embedding rate limit wait aborted", err)
		}
	}

	vec, err := s.client.GenerateEmbedding(ctx, text)
	if err != nil {
		span.SetError(err)
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, domain.NewEmbeddingProviderError("embedding request timed out", err)
		}
		return nil, domain.NewEmbeddingProviderError("embedding request failed", err)
	}
	if len(vec) == 0 {
		return nil, domain.NewEmbeddingProviderError("embedding provider returned no data", nil)
	}

	if err := s.cache.Set(ctx, key, vec); err != nil {
		log.Printf("embedding cache write failed: %v", err)
	}
	return vec, nil
}
