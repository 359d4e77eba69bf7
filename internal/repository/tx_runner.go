package repository

import (
	"context"

	"github.com/cloo-solutions/taskpriority/internal/service"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TxRunner hands out repositories bound to one transaction. The transaction
// commits when fn returns nil and rolls back on an error or a panic.
type TxRunner struct {
	pool *pgxpool.Pool
}

func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool}
}

func (r *TxRunner) WithTx(ctx context.Context, fn func(repos service.TxRepositories) error) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(&txRepos{tx: tx})
	})
}

type txRepos struct {
	tx pgx.Tx
}

func (r *txRepos) Tasks() service.TaskRepositoryInterface {
	return NewTaskRepositoryWithTx(r.tx)
}

func (r *txRepos) Groups() service.GroupRepositoryInterface {
	return NewGroupRepositoryWithTx(r.tx)
}

func (r *txRepos) SimilarityScores() service.SimilarityScoreRepositoryInterface {
	return NewSimilarityScoreRepositoryWithTx(r.tx)
}

func (r *txRepos) DuplicateCheckJobs() service.DuplicateCheckJobRepositoryInterface {
	return NewDuplicateCheckJobRepositoryWithTx(r.tx)
}
