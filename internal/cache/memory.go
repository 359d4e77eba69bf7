// Package cache provides the embedding cache tiers: a bounded in-process L1
// backed by ristretto and an optional persistent L2.
package cache

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/dgraph-io/ristretto/v2"
)

const (
	// DefaultMaxCostBytes bounds the in-process cache to roughly 10k 1536-dim vectors.
	DefaultMaxCostBytes int64 = 64 << 20
	// MinMaxCostBytes is the smallest accepted bound, about 170 1536-dim vectors.
	// Smaller bounds would reject every vector and silently disable caching.
	MinMaxCostBytes int64 = 1 << 20
	// perEntryOverhead approximates map and header bytes beyond the float payload.
	perEntryOverhead = 64
)

// ErrNotAdmitted is returned when the cache declines to hold a vector.
var ErrNotAdmitted = errors.New("embedding cache: vector not admitted")

// Store is one tier of the embedding cache.
type Store interface {
	Get(ctx context.Context, key string) ([]float32, bool, error)
	Set(ctx context.Context, key string, vector []float32) error
}

// Memory is a bounded in-process embedding cache with optional TTL.
type Memory struct {
	c       *ristretto.Cache[string, []float32]
	ttl     time.Duration
	maxCost int64
}

// NewMemory creates a ristretto-backed cache. maxCostBytes is the maximum total
// size of cached vectors in bytes and is raised to MinMaxCostBytes when smaller;
// a zero ttl keeps entries until evicted.
func NewMemory(maxCostBytes int64, ttl time.Duration) (*Memory, error) {
	switch {
	case maxCostBytes <= 0:
		maxCostBytes = DefaultMaxCostBytes
	case maxCostBytes < MinMaxCostBytes:
		log.Printf("embedding cache: max bytes %d too small, using %d", maxCostBytes, MinMaxCostBytes)
		maxCostBytes = MinMaxCostBytes
	}
	numCounters := maxCostBytes / 1024 * 10 // ~10x expected items at 1536 dims
	if numCounters < 1000 {
		numCounters = 1000
	}

	c, err := ristretto.NewCache(&ristretto.Config[string, []float32]{
		NumCounters: numCounters,
		MaxCost:     maxCostBytes,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &Memory{c: c, ttl: ttl, maxCost: maxCostBytes}, nil
}

// Get retrieves a vector from the cache.
func (m *Memory) Get(_ context.Context, key string) ([]float32, bool, error) {
	val, found := m.c.Get(key)
	if !found {
		return nil, false, nil
	}
	return val, true, nil
}

// Set stores a vector. Writes are flushed before returning so an immediate Get
// observes them. A vector the cache refuses yields ErrNotAdmitted.
func (m *Memory) Set(_ context.Context, key string, vector []float32) error {
	cost := vectorCost(vector)
	if cost > m.maxCost {
		return fmt.Errorf("%w: %d bytes exceeds cache bound %d", ErrNotAdmitted, cost, m.maxCost)
	}
	if !m.c.SetWithTTL(key, vector, cost, m.ttl) {
		return fmt.Errorf("%w: write dropped", ErrNotAdmitted)
	}
	m.c.Wait()
	return nil
}

// Clear drops every cached vector.
func (m *Memory) Clear() {
	m.c.Clear()
}

// Close shuts down the cache and releases resources.
func (m *Memory) Close() {
	m.c.Close()
}

func vectorCost(v []float32) int64 {
	return int64(len(v))*4 + int64(perEntryOverhead)
}
