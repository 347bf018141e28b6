package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AggregateRepository guarda el score agregado por (usuario, trait).
type AggregateRepository interface {
	Get(ctx context.Context, userID, trait string) (float64, error)
	Set(ctx context.Context, userID, trait string, score float64) error
}

// PgAggregateRepository implementa AggregateRepository usando pgxpool.
type PgAggregateRepository struct {
	pool *pgxpool.Pool
}

func NewPgAggregateRepository(pool *pgxpool.Pool) *PgAggregateRepository {
	return &PgAggregateRepository{pool: pool}
}

// Get devuelve el score actual. Una fila ausente se lee como 0, no como error:
// un usuario sin ratings tiene agregado cero.
func (r *PgAggregateRepository) Get(ctx context.Context, userID, trait string) (float64, error) {
	const query = `
		SELECT score
		FROM trait_aggregates
		WHERE user_id = $1 AND trait = $2
	`
	var score float64
	err := r.pool.QueryRow(ctx, query, userID, trait).Scan(&score)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return score, nil
}

func (r *PgAggregateRepository) Set(ctx context.Context, userID, trait string, score float64) error {
	const query = `
		INSERT INTO trait_aggregates (user_id, trait, score, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, trait)
		DO UPDATE SET
			score = EXCLUDED.score,
			updated_at = EXCLUDED.updated_at
	`
	_, err := r.pool.Exec(ctx, query, userID, trait, score, time.Now().UTC())
	return err
}
