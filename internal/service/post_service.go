package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"persona-board/internal/domain"
	"persona-board/internal/feed"
	"persona-board/internal/repository"
)

// PostService coordina creacion, borrado y listado de posts, y emite los
// eventos de cambio que alimentan los feeds suscritos.
type PostService struct {
	logger    *zap.Logger
	posts     repository.PostRepository
	publisher feed.Publisher
}

func NewPostService(logger *zap.Logger, posts repository.PostRepository, publisher feed.Publisher) *PostService {
	return &PostService{
		logger:    logger,
		posts:     posts,
		publisher: publisher,
	}
}

func (s *PostService) Create(ctx context.Context, authorID, text string) (domain.Post, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.Post{}, ErrEmptyPost
	}

	post := domain.Post{
		ID:        uuid.NewString(),
		AuthorID:  authorID,
		Text:      text,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.posts.Create(ctx, post); err != nil {
		return domain.Post{}, err
	}

	// La entrega del evento es best effort: el post ya esta persistido y un
	// refresh manual reconcilia a cualquier cliente que no lo reciba.
	s.publish(ctx, feed.Event{Type: feed.EventInsert, Post: post})
	return post, nil
}

func (s *PostService) Delete(ctx context.Context, postID, requesterID string) error {
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrPostNotFound
		}
		return err
	}
	if post.AuthorID != requesterID {
		return ErrNotPostOwner
	}

	if err := s.posts.Delete(ctx, postID); err != nil {
		return err
	}
	s.publish(ctx, feed.Event{Type: feed.EventDelete, Post: domain.Post{ID: postID}})
	return nil
}

func (s *PostService) List(ctx context.Context) ([]domain.Post, error) {
	return s.posts.List(ctx)
}

func (s *PostService) publish(ctx context.Context, ev feed.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.logger.Warn("feed event publish failed",
			zap.String("type", string(ev.Type)),
			zap.String("post_id", ev.Post.ID),
			zap.Error(err),
		)
	}
}
