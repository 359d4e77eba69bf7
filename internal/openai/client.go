package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

const (
	// DefaultEmbeddingModel is the OpenAI model used for task embeddings
	DefaultEmbeddingModel = openai.SmallEmbedding3
	// DefaultEmbeddingDimensions is the dimension of text-embedding-3-small vectors
	DefaultEmbeddingDimensions = 1536
)

var (
	ErrEmptyText       = errors.New("text cannot be empty")
	ErrWrongDimensions = errors.New("embedding has wrong dimensions")
	ErrNoData          = errors.New("no embedding data returned")
)

// EmbeddingAPI creates one embedding per call.
type EmbeddingAPI interface {
	CreateEmbeddings(ctx context.Context, text string) ([]float32, error)
}

// Config configures the embedding client. BaseURL points at an OpenAI-compatible
// endpoint and defaults to api.openai.com.
type Config struct {
	APIKey              string
	BaseURL             string
	EmbeddingModel      openai.EmbeddingModel
	EmbeddingDimensions int
}

// Client checks every vector returned by the API against the configured size,
// so that only vectors of one model and length ever reach the similarity engine.
type Client struct {
	api        EmbeddingAPI
	model      string
	dimensions int
}

// NewClient creates a client for the default model and dimensions.
func NewClient(apiKey string) *Client {
	return NewClientWithConfig(Config{APIKey: apiKey})
}

func NewClientWithConfig(cfg Config) *Client {
	if cfg.EmbeddingModel == "" {
		cfg.EmbeddingModel = DefaultEmbeddingModel
	}
	if cfg.EmbeddingDimensions <= 0 {
		cfg.EmbeddingDimensions = DefaultEmbeddingDimensions
	}
	return &Client{
		api:        newAdapter(cfg),
		model:      string(cfg.EmbeddingModel),
		dimensions: cfg.EmbeddingDimensions,
	}
}

// Model returns the embedding model name. Vectors from different models are never compared.
func (c *Client) Model() string {
	if c.model == "" {
		return string(DefaultEmbeddingModel)
	}
	return c.model
}

// GenerateEmbedding embeds text as given. Callers normalize cache keys, not the input.
func (c *Client) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyText
	}

	embedding, err := c.api.CreateEmbeddings(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding: %w", err)
	}

	expected := c.dimensions
	if expected <= 0 {
		expected = DefaultEmbeddingDimensions
	}
	if len(embedding) != expected {
		return nil, fmt.Errorf("%w: got %d, expected %d", ErrWrongDimensions, len(embedding), expected)
	}
	return embedding, nil
}

// adapter talks to the embeddings endpoint through go-openai.
type adapter struct {
	client     *openai.Client
	model      openai.EmbeddingModel
	dimensions int
}

func newAdapter(cfg Config) *adapter {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}

	a := &adapter{
		client: openai.NewClientWithConfig(clientCfg),
		model:  cfg.EmbeddingModel,
	}
	// Only the text-embedding-3 family accepts a requested output size.
	if supportsDimensions(cfg.EmbeddingModel) {
		a.dimensions = cfg.EmbeddingDimensions
	}
	return a
}

func supportsDimensions(model openai.EmbeddingModel) bool {
	return strings.HasPrefix(string(model), "text-embedding-3")
}

func (a *adapter) CreateEmbeddings(ctx context.Context, text string) ([]float32, error) {
	resp, err := a.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input:      []string{text},
		Model:      a.model,
		Dimensions: a.dimensions,
	})
	if err != nil {
		return nil, err
	}

	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, ErrNoData
	}
	return resp.Data[0].Embedding, nil
}
