package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mapStore is a simple in-memory Store for testing.
type mapStore struct {
	data   map[string][]float32
	setErr error
	gets   int
}

func newMapStore() *mapStore {
	return &mapStore{data: make(map[string][]float32)}
}

func (m *mapStore) Get(_ context.Context, key string) ([]float32, bool, error) {
	m.gets++
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *mapStore) Set(_ context.Context, key string, vector []float32) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] = vector
	return nil
}

func newTestMemory(t *testing.T) *Memory {
	t.Helper()
	mem, err := NewMemory(1<<20, 0)
	require.NoError(t, err)
	t.Cleanup(mem.Close)
	return mem
}

func TestMemory_SetThenGet(t *testing.T) {
	mem := newTestMemory(t)
	ctx := context.Background()

	require.NoError(t, mem.Set(ctx, "hello world", []float32{1, 2, 3}))

	val, found, err := mem.Get(ctx, "hello world")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []float32{1, 2, 3}, val)
}

func TestMemory_TinyBoundStillCachesVectors(t *testing.T) {
	mem, err := NewMemory(100, 0)
	require.NoError(t, err)
	t.Cleanup(mem.Close)
	ctx := context.Background()

	vector := make([]float32, 1536)
	require.NoError(t, mem.Set(ctx, "fix login crash", vector))

	_, found, err := mem.Get(ctx, "fix login crash")
	require.NoError(t, err)
	assert.True(t, found)
}

func TestMemory_OversizedVectorIsReported(t *testing.T) {
	mem := newTestMemory(t)
	ctx := context.Background()

	err := mem.Set(ctx, "huge", make([]float32, 300_000))

	assert.ErrorIs(t, err, ErrNotAdmitted)
	_, found, _ := mem.Get(ctx, "huge")
	assert.False(t, found)
}

func TestTiered_L1RejectionStillWritesL2(t *testing.T) {
	mem := newTestMemory(t)
	l2 := newMapStore()
	tiered := NewTiered(mem, l2)

	err := tiered.Set(context.Background(), "huge", make([]float32, 300_000))

	assert.ErrorIs(t, err, ErrNotAdmitted)
	assert.Contains(t, l2.data, "huge")
}

func TestMemory_Miss(t *testing.T) {
	mem := newTestMemory(t)

	val, found, err := mem.Get(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, val)
}

func TestMemory_Clear(t *testing.T) {
	mem := newTestMemory(t)
	ctx := context.Background()

	require.NoError(t, mem.Set(ctx, "k", []float32{1}))
	mem.Clear()

	_, found, err := mem.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMemory_TTLExpiry(t *testing.T) {
	mem, err := NewMemory(1<<20, 50*time.Millisecond)
	require.NoError(t, err)
	defer mem.Close()
	ctx := context.Background()

	require.NoError(t, mem.Set(ctx, "k", []float32{1}))
	time.Sleep(1500 * time.Millisecond)

	_, found, err := mem.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestTiered_L1Hit(t *testing.T) {
	l1 := newTestMemory(t)
	l2 := newMapStore()
	c := NewTiered(l1, l2)
	ctx := context.Background()

	require.NoError(t, l1.Set(ctx, "k", []float32{0.5}))

	val, found, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []float32{0.5}, val)
	assert.Equal(t, 0, l2.gets)
}

func TestTiered_L2HitWithBackfill(t *testing.T) {
	l1 := newTestMemory(t)
	l2 := newMapStore()
	c := NewTiered(l1, l2)
	ctx := context.Background()

	l2.data["k"] = []float32{0.25, 0.75}

	val, found, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []float32{0.25, 0.75}, val)

	l1Val, found, err := l1.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, val, l1Val)
}

func TestTiered_SetWritesBoth(t *testing.T) {
	l1 := newTestMemory(t)
	l2 := newMapStore()
	c := NewTiered(l1, l2)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []float32{1, 0}))

	_, found, _ := l1.Get(ctx, "k")
	assert.True(t, found)
	assert.Equal(t, []float32{1, 0}, l2.data["k"])
}

func TestTiered_L2WriteFailureIsNotFatal(t *testing.T) {
	l1 := newTestMemory(t)
	l2 := newMapStore()
	l2.setErr = errors.New("connection refused")
	c := NewTiered(l1, l2)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []float32{1}))

	_, found, _ := c.Get(ctx, "k")
	assert.True(t, found)
}

func TestTiered_ClearOnlyL1(t *testing.T) {
	l1 := newTestMemory(t)
	l2 := newMapStore()
	c := NewTiered(l1, l2)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []float32{1}))
	c.Clear()

	_, found, _ := l1.Get(ctx, "k")
	assert.False(t, found)
	assert.Contains(t, l2.data, "k")
}

func TestTiered_NilL2(t *testing.T) {
	c := NewTiered(newTestMemory(t), nil)
	ctx := context.Background()

	_, found, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, c.Set(ctx, "k", []float32{1}))
	_, found, _ = c.Get(ctx, "k")
	assert.True(t, found)
}
