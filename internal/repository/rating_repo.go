package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"persona-board/internal/domain"
)

// RatingRepository define el contrato de persistencia para ratings individuales.
type RatingRepository interface {
	Upsert(ctx context.Context, rating domain.Rating) error
	Get(ctx context.Context, postID, raterID, trait string) (domain.Rating, error)
	ListByTargetUser(ctx context.Context, targetUserID string) ([]domain.Rating, error)
	SumByTargetTrait(ctx context.Context, targetUserID, trait string) (float64, error)
}

// PgRatingRepository implementa RatingRepository usando pgxpool.
type PgRatingRepository struct {
	pool *pgxpool.Pool
}

func NewPgRatingRepository(pool *pgxpool.Pool) *PgRatingRepository {
	return &PgRatingRepository{pool: pool}
}

// Upsert inserta o sobreescribe la fila (post, rater, trait) en una sola
// operacion condicional, sin read-then-branch.
func (r *PgRatingRepository) Upsert(ctx context.Context, rating domain.Rating) error {
	const query = `
		INSERT INTO ratings (post_id, rater_id, trait, value, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (post_id, rater_id, trait)
		DO UPDATE SET
			value = EXCLUDED.value,
			updated_at = EXCLUDED.updated_at
	`
	_, err := r.pool.Exec(ctx, query,
		rating.PostID,
		rating.RaterID,
		rating.Trait,
		rating.Value,
		rating.UpdatedAt,
	)
	return err
}

func (r *PgRatingRepository) Get(ctx context.Context, postID, raterID, trait string) (domain.Rating, error) {
	const query = `
		SELECT post_id, rater_id, trait, value, updated_at
		FROM ratings
		WHERE post_id = $1 AND rater_id = $2 AND trait = $3
	`
	var rt domain.Rating
	err := r.pool.QueryRow(ctx, query, postID, raterID, trait).Scan(
		&rt.PostID,
		&rt.RaterID,
		&rt.Trait,
		&rt.Value,
		&rt.UpdatedAt,
	)
	if err != nil {
		return domain.Rating{}, err
	}
	return rt, nil
}

// ListByTargetUser devuelve todas las ratings recibidas por los posts del usuario.
func (r *PgRatingRepository) ListByTargetUser(ctx context.Context, targetUserID string) ([]domain.Rating, error) {
	const query = `
		SELECT r.post_id, r.rater_id, r.trait, r.value, r.updated_at
		FROM ratings r
		JOIN posts p ON p.id = r.post_id
		WHERE p.author_id = $1
		ORDER BY r.trait, r.updated_at
	`
	rows, err := r.pool.Query(ctx, query, targetUserID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ratings []domain.Rating
	for rows.Next() {
		var rt domain.Rating
		if err := rows.Scan(&rt.PostID, &rt.RaterID, &rt.Trait, &rt.Value, &rt.UpdatedAt); err != nil {
			return nil, err
		}
		ratings = append(ratings, rt)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ratings, nil
}

// SumByTargetTrait recalcula la suma de un trait sobre todas las ratings
// dirigidas al usuario. Sin filas devuelve 0.
func (r *PgRatingRepository) SumByTargetTrait(ctx context.Context, targetUserID, trait string) (float64, error) {
	const query = `
		SELECT COALESCE(SUM(r.value), 0)
		FROM ratings r
		JOIN posts p ON p.id = r.post_id
		WHERE p.author_id = $1 AND r.trait = $2
	`
	var sum float64
	if err := r.pool.QueryRow(ctx, query, targetUserID, trait).Scan(&sum); err != nil {
		return 0, err
	}
	return sum, nil
}
