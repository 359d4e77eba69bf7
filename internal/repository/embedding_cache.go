package repository

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// EmbeddingCacheRepository persists embeddings per (model, normalized text) so
// restarts do not pay for the same text twice. Keys are stored as sha256 digests.
type EmbeddingCacheRepository struct {
	db    dbtx
	model string
}

func NewEmbeddingCacheRepository(pool *pgxpool.Pool, model string) *EmbeddingCacheRepository {
	return &EmbeddingCacheRepository{db: pool, model: model}
}

// Get returns the stored vector for key, if any.
func (r *EmbeddingCacheRepository) Get(ctx context.Context, key string) ([]float32, bool, error) {
	var vec pgvector.Vector
	err := r.db.QueryRow(ctx,
		`SELECT embedding FROM embedding_cache WHERE model = $1 AND key_hash = $2`,
		r.model, hashKey(key),
	).Scan(&vec)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return vec.Slice(), true, nil
}

// Set stores or replaces the vector for key.
func (r *EmbeddingCacheRepository) Set(ctx context.Context, key string, embedding []float32) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO embedding_cache (model, key_hash, embedding, created_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (model, key_hash)
		 DO UPDATE SET embedding = EXCLUDED.embedding, created_at = EXCLUDED.created_at`,
		r.model, hashKey(key), pgvector.NewVector(embedding), time.Now().UTC(),
	)
	return err
}

// DeleteAll drops every stored vector for the repository's model.
func (r *EmbeddingCacheRepository) DeleteAll(ctx context.Context) (int64, error) {
	cmdTag, err := r.db.Exec(ctx, `DELETE FROM embedding_cache WHERE model = $1`, r.model)
	if err != nil {
		return 0, err
	}
	return cmdTag.RowsAffected(), nil
}

func hashKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}
