package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cloo-solutions/taskpriority/internal/cache"
	"github.com/cloo-solutions/taskpriority/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockEmbeddingClient mocks the OpenAI client
type MockEmbeddingClient struct {
	mock.Mock
}

func (m *MockEmbeddingClient) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

func newTestEmbeddingService(t *testing.T, client EmbeddingClient, cfg EmbeddingServiceConfig) *EmbeddingService {
	t.Helper()
	mem, err := cache.NewMemory(1<<20, 0)
	require.NoError(t, err)
	t.Cleanup(mem.Close)
	return NewEmbeddingServiceWithConfig(client, cache.NewTiered(mem, nil), cfg)
}

func TestEmbeddingService_GetEmbedding_CachesByNormalizedText(t *testing.T) {
	mockClient := new(MockEmbeddingClient)
	svc := newTestEmbeddingService(t, mockClient, DefaultEmbeddingServiceConfig())
	ctx := context.Background()

	vec := []float32{0.1, 0.2, 0.3}
	mockClient.On("GenerateEmbedding", mock.Anything, "Hello World").Return(vec, nil).Once()

	first, err := svc.GetEmbedding(ctx, "Hello World")
	require.NoError(t, err)
	second, err := svc.GetEmbedding(ctx, "hello world  ")
	require.NoError(t, err)

	assert.Equal(t, vec, first)
	assert.Equal(t, vec, second)
	mockClient.AssertNumberOfCalls(t, "GenerateEmbedding", 1)
	mockClient.AssertExpectations(t)
}

func TestEmbeddingService_GetEmbedding_IdenticalTextSingleCall(t *testing.T) {
	mockClient := new(MockEmbeddingClient)
	svc := newTestEmbeddingService(t, mockClient, DefaultEmbeddingServiceConfig())
	ctx := context.Background()

	texts := []string{"Add dark mode", "Write investor update", "Fix login crash on iOS"}
	for i, text := range texts {
		mockClient.On("GenerateEmbedding", mock.Anything, text).Return([]float32{float32(i + 1), 1}, nil).Once()
	}

	for _, text := range texts {
		for n := 0; n < 3; n++ {
			_, err := svc.GetEmbedding(ctx, text)
			require.NoError(t, err)
		}
	}

	mockClient.AssertNumberOfCalls(t, "GenerateEmbedding", len(texts))
}

func TestEmbeddingService_GetEmbedding_BlankText(t *testing.T) {
	mockClient := new(MockEmbeddingClient)
	svc := newTestEmbeddingService(t, mockClient, DefaultEmbeddingServiceConfig())

	vec, err := svc.GetEmbedding(context.Background(), "   \n\t")

	assert.Nil(t, vec)
	var providerErr *domain.EmbeddingProviderError
	require.ErrorAs(t, err, &providerErr)
	assert.ErrorIs(t, err, ErrEmptyEmbeddingText)
	mockClient.AssertNotCalled(t, "GenerateEmbedding")
}

func TestEmbeddingService_GetEmbedding_ProviderError(t *testing.T) {
	mockClient := new(MockEmbeddingClient)
	svc := newTestEmbeddingService(t, mockClient, DefaultEmbeddingServiceConfig())
	ctx := context.Background()

	apiErr := errors.New("insufficient_quota")
	mockClient.On("GenerateEmbedding", mock.Anything, "Add dark mode").Return(nil, apiErr)

	vec, err := svc.GetEmbedding(ctx, "Add dark mode")

	assert.Nil(t, vec)
	var providerErr *domain.EmbeddingProviderError
	require.ErrorAs(t, err, &providerErr)
	assert.ErrorIs(t, err, apiErr)
	assert.Contains(t, err.Error(), "insufficient_quota")

	// Failures are not cached.
	_, err = svc.GetEmbedding(ctx, "Add dark mode")
	assert.Error(t, err)
	mockClient.AssertNumberOfCalls(t, "GenerateEmbedding", 2)
}

func TestEmbeddingService_GetEmbedding_EmptyData(t *testing.T) {
	mockClient := new(MockEmbeddingClient)
	svc := newTestEmbeddingService(t, mockClient, DefaultEmbeddingServiceConfig())

	mockClient.On("GenerateEmbedding", mock.Anything, "Add dark mode").Return([]float32{}, nil)

	_, err := svc.GetEmbedding(context.Background(), "Add dark mode")

	var providerErr *domain.EmbeddingProviderError
	require.ErrorAs(t, err, &providerErr)
	assert.Contains(t, providerErr.Message, "no data")
}

func TestEmbeddingService_GetEmbedding_Timeout(t *testing.T) {
	mockClient := new(MockEmbeddingClient)
	svc := newTestEmbeddingService(t, mockClient, EmbeddingServiceConfig{Timeout: 20 * time.Millisecond})

	mockClient.On("GenerateEmbedding", mock.Anything, "slow").
		Run(func(args mock.Arguments) {
			ctx := args.Get(0).(context.Context)
			<-ctx.Done()
		}).
		Return(nil, context.DeadlineExceeded)

	_, err := svc.GetEmbedding(context.Background(), "slow")

	var providerErr *domain.EmbeddingProviderError
	require.ErrorAs(t, err, &providerErr)
	assert.Equal(t, "embedding request timed out", providerErr.Message)
}

func TestEmbeddingService_ClearCache(t *testing.T) {
	mockClient := new(MockEmbeddingClient)
	svc := newTestEmbeddingService(t, mockClient, DefaultEmbeddingServiceConfig())
	ctx := context.Background()

	mockClient.On("GenerateEmbedding", mock.Anything, "Add dark mode").Return([]float32{1, 0}, nil)

	_, err := svc.GetEmbedding(ctx, "Add dark mode")
	require.NoError(t, err)
	svc.ClearCache()
	_, err = svc.GetEmbedding(ctx, "Add dark mode")
	require.NoError(t, err)

	mockClient.AssertNumberOfCalls(t, "GenerateEmbedding", 2)
}

func TestEmbeddingService_GetEmbedding_ConcurrentMissesShareOneCall(t *testing.T) {
	mockClient := new(MockEmbeddingClient)
	svc := newTestEmbeddingService(t, mockClient, DefaultEmbeddingServiceConfig())
	ctx := context.Background()

	release := make(chan struct{})
	mockClient.On("GenerateEmbedding", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { <-release }).
		Return([]float32{0.5, 0.5}, nil)

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.GetEmbedding(ctx, "Prepare board deck")
			errs <- err
		}()
	}

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	mockClient.AssertNumberOfCalls(t, "GenerateEmbedding", 1)
}

func TestEmbeddingService_GetEmbedding_CancelledCallerDoesNotFailSharedCall(t *testing.T) {
	mockClient := new(MockEmbeddingClient)
	svc := newTestEmbeddingService(t, mockClient, DefaultEmbeddingServiceConfig())

	release := make(chan struct{})
	providerCtxErr := make(chan error, 1)
	mockClient.On("GenerateEmbedding", mock.Anything, "Fix login crash").
		Run(func(args mock.Arguments) {
			<-release
			providerCtxErr <- args.Get(0).(context.Context).Err()
		}).
		Return([]float32{0.6, 0.8}, nil).Once()

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := svc.GetEmbedding(firstCtx, "Fix login crash")
		firstErr <- err
	}()
	time.Sleep(20 * time.Millisecond)

	type result struct {
		vec []float32
		err error
	}
	second := make(chan result, 1)
	go func() {
		vec, err := svc.GetEmbedding(context.Background(), "fix login crash")
		second <- result{vec, err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancelFirst()
	err := <-firstErr
	var providerErr *domain.EmbeddingProviderError
	require.ErrorAs(t, err, &providerErr)
	assert.ErrorIs(t, err, context.Canceled)

	close(release)
	got := <-second
	require.NoError(t, got.err)
	assert.Equal(t, []float32{0.6, 0.8}, got.vec)
	assert.NoError(t, <-providerCtxErr)
	mockClient.AssertNumberOfCalls(t, "GenerateEmbedding", 1)

	// The shared result was cached for later callers.
	vec, err := svc.GetEmbedding(context.Background(), "FIX LOGIN CRASH")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.6, 0.8}, vec)
	mockClient.AssertNumberOfCalls(t, "GenerateEmbedding", 1)
}

func TestEmbeddingService_RateLimitHonorsContext(t *testing.T) {
	mockClient := new(MockEmbeddingClient)
	svc := newTestEmbeddingService(t, mockClient, EmbeddingServiceConfig{RateLimit: 0.001, Burst: 1})

	mockClient.On("GenerateEmbedding", mock.Anything, mock.Anything).Return([]float32{1}, nil)

	_, err := svc.GetEmbedding(context.Background(), "first")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = svc.GetEmbedding(ctx, "second")

	var providerErr *domain.EmbeddingProviderError
	require.ErrorAs(t, err, &providerErr)
	mockClient.AssertNumberOfCalls(t, "GenerateEmbedding", 1)
}

func TestNormalizeText(t *testing.T) {
	assert.Equal(t, "hello world", NormalizeText("  Hello World\n"))
	assert.Equal(t, "", NormalizeText(" \t "))
}
