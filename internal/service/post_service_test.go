package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"go.uber.org/zap"

	"persona-board/internal/feed"
)

type capturePublisher struct {
	mu     sync.Mutex
	events []feed.Event
	err    error
}

func (p *capturePublisher) Publish(_ context.Context, ev feed.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, ev)
	return nil
}

func TestPostCreatePublishesInsert(t *testing.T) {
	posts := newMockPostRepo()
	pub := &capturePublisher{}
	svc := NewPostService(zap.NewNop(), posts, pub)

	post, err := svc.Create(context.Background(), "author", "  hola mundo  ")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if post.Text != "hola mundo" {
		t.Fatalf("expected trimmed text, got %q", post.Text)
	}
	if post.ID == "" || post.AuthorID != "author" {
		t.Fatalf("unexpected post: %+v", post)
	}

	if _, err := posts.GetByID(context.Background(), post.ID); err != nil {
		t.Fatalf("expected post persisted: %v", err)
	}
	if len(pub.events) != 1 || pub.events[0].Type != feed.EventInsert || pub.events[0].Post.ID != post.ID {
		t.Fatalf("expected one insert event, got %+v", pub.events)
	}
}

func TestPostCreateRejectsEmptyText(t *testing.T) {
	svc := NewPostService(zap.NewNop(), newMockPostRepo(), &capturePublisher{})

	if _, err := svc.Create(context.Background(), "author", "   "); !errors.Is(err, ErrEmptyPost) {
		t.Fatalf("expected ErrEmptyPost, got %v", err)
	}
}

func TestPostCreateSurvivesPublishFailure(t *testing.T) {
	posts := newMockPostRepo()
	pub := &capturePublisher{err: errors.New("broker down")}
	svc := NewPostService(zap.NewNop(), posts, pub)

	post, err := svc.Create(context.Background(), "author", "hola")
	if err != nil {
		t.Fatalf("expected create to succeed despite publish failure, got %v", err)
	}
	if _, err := posts.GetByID(context.Background(), post.ID); err != nil {
		t.Fatalf("expected post persisted: %v", err)
	}
}

func TestPostDeleteEnforcesOwnership(t *testing.T) {
	posts := newMockPostRepo()
	pub := &capturePublisher{}
	svc := NewPostService(zap.NewNop(), posts, pub)
	seedPost(t, posts, "p1", "author")

	if err := svc.Delete(context.Background(), "p1", "intruder"); !errors.Is(err, ErrNotPostOwner) {
		t.Fatalf("expected ErrNotPostOwner, got %v", err)
	}
	if err := svc.Delete(context.Background(), "missing", "author"); !errors.Is(err, ErrPostNotFound) {
		t.Fatalf("expected ErrPostNotFound, got %v", err)
	}

	if err := svc.Delete(context.Background(), "p1", "author"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := posts.GetByID(context.Background(), "p1"); err == nil {
		t.Fatalf("expected post removed")
	}
	if len(pub.events) != 1 || pub.events[0].Type != feed.EventDelete || pub.events[0].Post.ID != "p1" {
		t.Fatalf("expected one delete event, got %+v", pub.events)
	}
}
