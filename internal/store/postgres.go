package store

import (
	"context"
	"errors"
	"log"

	"WorkBridge/server/internal/db"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

type Postgres struct {
	pool *pgxpool.Pool
	q    db.Querier
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool, q: pool}
}

func (s *Postgres) InTx(ctx context.Context, fn func(Store) error) error {
	if s.pool == nil {
		// Already transaction-bound, keep using the same transaction.
		return fn(s)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		log.Printf("Error starting transaction: %v", err)
		return err
	}

	if err := fn(&Postgres{q: tx}); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			log.Printf("Error rolling back transaction: %v", rbErr)
		}
		return err
	}
	return tx.Commit(ctx)
}
