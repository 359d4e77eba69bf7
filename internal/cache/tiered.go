package cache

import (
	"context"
	"log"
)

// Tiered combines the in-process cache with a persistent store.
// Get checks L1 first, then L2 (backfilling L1 on an L2 hit).
// Set writes both levels; Clear only empties L1.
type Tiered struct {
	l1 *Memory
	l2 Store
}

// NewTiered creates a tiered cache. A nil l2 behaves like l1 alone.
func NewTiered(l1 *Memory, l2 Store) *Tiered {
	return &Tiered{l1: l1, l2: l2}
}

func (t *Tiered) Get(ctx context.Context, key string) ([]float32, bool, error) {
	val, found, err := t.l1.Get(ctx, key)
	if err != nil {
		return nil, false, err
	}
	if found || t.l2 == nil {
		return val, found, nil
	}

	val, found, err = t.l2.Get(ctx, key)
	if err != nil {
		return nil, false, err
	}
	if found {
		_ = t.l1.Set(ctx, key, val)
	}
	return val, found, nil
}

func (t *Tiered) Set(ctx context.Context, key string, vector []float32) error {
	l1Err := t.l1.Set(ctx, key, vector)
	if t.l2 == nil {
		return l1Err
	}
	if err := t.l2.Set(ctx, key, vector); err != nil {
		// The persistent tier is best effort.
		log.Printf("embedding cache: persistent write failed: %v", err)
	}
	return l1Err
}

func (t *Tiered) Clear() {
	t.l1.Clear()
}
