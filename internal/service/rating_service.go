package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"persona-board/internal/domain"
	"persona-board/internal/repository"
)

// scoreEpsilon tolera ruido de punto flotante al comparar sumas recalculadas.
const scoreEpsilon = 1e-9

// RatingService mantiene los agregados de personalidad por (usuario, trait).
//
// Politica de agregacion: recompute-from-source. Cada submit sobreescribe la
// fila (post, rater, trait) y recalcula la suma completa del trait desde la
// tabla de ratings antes de escribir el agregado. A diferencia de sumar un
// delta al valor guardado, el recalculo es idempotente: un reintento tras una
// falla parcial no duplica nada.
type RatingService struct {
	logger     *zap.Logger
	posts      repository.PostRepository
	ratings    repository.RatingRepository
	aggregates repository.AggregateRepository
	retry      RetryPolicy
}

func NewRatingService(
	logger *zap.Logger,
	posts repository.PostRepository,
	ratings repository.RatingRepository,
	aggregates repository.AggregateRepository,
) *RatingService {
	return &RatingService{
		logger:     logger,
		posts:      posts,
		ratings:    ratings,
		aggregates: aggregates,
		retry:      DefaultRetryPolicy,
	}
}

// ClampValue restringe un valor de rating al dominio [-1, 1].
func ClampValue(value float64) float64 {
	if value > 1 {
		return 1
	}
	if value < -1 {
		return -1
	}
	return value
}

// SubmitRating registra la opinion de raterID sobre postID en un trait y deja
// el agregado del autor del post consistente con la tabla de ratings.
//
// Las validaciones fallan antes de tocar la red. Las fallas transitorias se
// reintentan con backoff; al agotar el presupuesto se devuelve
// ErrAggregationFailed con la ultima causa. Tras escribir, el agregado se
// relee y, si otro writer lo piso con un valor distinto, el ciclo completo se
// ejecuta una vez mas.
func (s *RatingService) SubmitRating(ctx context.Context, postID, raterID, trait string, value float64) error {
	if !domain.IsValidTrait(trait) {
		return ErrInvalidTrait
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return ErrInvalidValue
	}
	value = ClampValue(value)

	var targetUserID string
	var computedSum float64

	cycle := func(ctx context.Context) error {
		post, err := s.posts.GetByID(ctx, postID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrPostNotFound
			}
			return err
		}
		targetUserID = post.AuthorID

		rating := domain.Rating{
			PostID:    postID,
			RaterID:   raterID,
			Trait:     trait,
			Value:     value,
			UpdatedAt: time.Now().UTC(),
		}
		if err := s.ratings.Upsert(ctx, rating); err != nil {
			return err
		}

		sum, err := s.ratings.SumByTargetTrait(ctx, targetUserID, trait)
		if err != nil {
			return err
		}
		computedSum = sum

		return s.aggregates.Set(ctx, targetUserID, trait, sum)
	}

	if err := s.runCycle(ctx, cycle); err != nil {
		return err
	}

	ok, err := s.verifyAggregate(ctx, targetUserID, trait, computedSum)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}

	// Otro writer piso el agregado entre el recalculo y la verificacion.
	// Un ciclo mas recalcula sobre el estado que ese writer ya dejo visible.
	s.logger.Warn("aggregate consistency miss, rerunning cycle",
		zap.String("user_id", targetUserID),
		zap.String("trait", trait),
		zap.Float64("expected", computedSum),
	)
	if err := s.runCycle(ctx, cycle); err != nil {
		return err
	}
	ok, err = s.verifyAggregate(ctx, targetUserID, trait, computedSum)
	if err != nil {
		return err
	}
	if !ok {
		s.logger.Error("aggregate still diverged after rerun",
			zap.String("user_id", targetUserID),
			zap.String("trait", trait),
		)
		return fmt.Errorf("%w: aggregate verification mismatch", ErrAggregationFailed)
	}
	return nil
}

func (s *RatingService) runCycle(ctx context.Context, cycle func(context.Context) error) error {
	err := withRetry(ctx, s.retry, isTransient, cycle)
	if err == nil {
		return nil
	}
	if isTransient(err) {
		return fmt.Errorf("%w: %v", ErrAggregationFailed, err)
	}
	return err
}

func (s *RatingService) verifyAggregate(ctx context.Context, userID, trait string, expected float64) (bool, error) {
	var stored float64
	err := withRetry(ctx, s.retry, isTransient, func(ctx context.Context) error {
		var err error
		stored, err = s.aggregates.Get(ctx, userID, trait)
		return err
	})
	if err != nil {
		if isTransient(err) {
			return false, fmt.Errorf("%w: %v", ErrAggregationFailed, err)
		}
		return false, err
	}
	return math.Abs(stored-expected) <= scoreEpsilon, nil
}

// GetTraitStats resume las ratings recibidas por un usuario: score, promedio
// y counts por signo, todos derivados del mismo scan de la tabla de ratings.
// Los cinco traits aparecen siempre, con ceros si nadie los califico.
func (s *RatingService) GetTraitStats(ctx context.Context, userID string) ([]domain.TraitStats, error) {
	ratings, err := s.ratings.ListByTargetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	byTrait := make(map[string]*domain.TraitStats, len(domain.TraitKeys))
	for _, key := range domain.TraitKeys {
		byTrait[key] = &domain.TraitStats{Trait: key}
	}
	for _, r := range ratings {
		stats, ok := byTrait[r.Trait]
		if !ok {
			// Fila con trait desconocido: ignorada, no rompe el perfil.
			continue
		}
		stats.Score += r.Value
		stats.RatingCount++
		switch {
		case r.Value > 0:
			stats.PositiveCount++
		case r.Value < 0:
			stats.NegativeCount++
		}
	}

	out := make([]domain.TraitStats, 0, len(domain.TraitKeys))
	for _, key := range domain.TraitKeys {
		stats := byTrait[key]
		if stats.RatingCount > 0 {
			stats.Average = stats.Score / float64(stats.RatingCount)
		}
		out = append(out, *stats)
	}
	return out, nil
}
