package feed

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"persona-board/internal/domain"
)

type mockLister struct {
	posts []domain.Post
	err   error
	calls int
}

func (m *mockLister) List(_ context.Context) ([]domain.Post, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	out := make([]domain.Post, len(m.posts))
	copy(out, m.posts)
	return out, nil
}

func post(id, authorID string, t time.Time) domain.Post {
	return domain.Post{ID: id, AuthorID: authorID, Text: "text " + id, CreatedAt: t}
}

func seedPosts() []domain.Post {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return []domain.Post{
		post("p3", "a1", base.Add(3*time.Minute)),
		post("p2", "a2", base.Add(2*time.Minute)),
		post("p1", "a1", base.Add(1*time.Minute)),
	}
}

func readySync(t *testing.T, store *mockLister, selfID string) *Synchronizer {
	t.Helper()
	s := NewSynchronizer(zap.NewNop(), store, selfID)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if s.State() != StateReady {
		t.Fatalf("expected Ready, got %v", s.State())
	}
	return s
}

func assertOrder(t *testing.T, s *Synchronizer, want ...string) {
	t.Helper()
	posts := s.Posts()
	if len(posts) != len(want) {
		t.Fatalf("expected %d posts, got %d", len(want), len(posts))
	}
	for i, id := range want {
		if posts[i].ID != id {
			t.Fatalf("position %d: expected %s, got %s", i, id, posts[i].ID)
		}
	}
}

func TestSynchronizerStartFailure(t *testing.T) {
	store := &mockLister{err: errors.New("network down")}
	s := NewSynchronizer(zap.NewNop(), store, "me")

	if err := s.Start(context.Background()); err == nil {
		t.Fatalf("expected start error")
	}
	if s.State() != StateErrored {
		t.Fatalf("expected Errored, got %v", s.State())
	}
	if s.Err() == nil {
		t.Fatalf("expected recorded error")
	}
}

func TestSynchronizerLiveInsertPrepends(t *testing.T) {
	store := &mockLister{posts: seedPosts()}
	s := readySync(t, store, "me")

	p4 := post("p4", "a2", time.Date(2025, 6, 1, 12, 4, 0, 0, time.UTC))
	changed, banner := s.Apply(Event{Type: EventInsert, Post: p4})
	if !changed || !banner {
		t.Fatalf("expected changed+banner for foreign insert, got %v/%v", changed, banner)
	}
	assertOrder(t, s, "p4", "p3", "p2", "p1")
}

func TestSynchronizerSelfPostSuppression(t *testing.T) {
	store := &mockLister{posts: seedPosts()}
	s := readySync(t, store, "me")

	mine := post("pm", "me", time.Now().UTC())
	s.MarkSelfPost(mine.ID)

	changed, banner := s.Apply(Event{Type: EventInsert, Post: mine})
	if !changed {
		t.Fatalf("expected the echo applied to the list")
	}
	if banner {
		t.Fatalf("expected banner suppressed for own recent post")
	}
	assertOrder(t, s, "pm", "p3", "p2", "p1")
}

func TestSynchronizerOptimisticInsertReconciledOnce(t *testing.T) {
	store := &mockLister{posts: seedPosts()}
	s := readySync(t, store, "me")

	mine := post("pm", "me", time.Now().UTC())
	s.ApplyLocalInsert(mine)
	assertOrder(t, s, "pm", "p3", "p2", "p1")

	// El eco del server no duplica ni dispara banner.
	changed, banner := s.Apply(Event{Type: EventInsert, Post: mine})
	if changed || banner {
		t.Fatalf("expected echo ignored, got changed=%v banner=%v", changed, banner)
	}
	assertOrder(t, s, "pm", "p3", "p2", "p1")
}

func TestSynchronizerSelfAuthorFromAnotherDeviceBanners(t *testing.T) {
	store := &mockLister{posts: seedPosts()}
	s := readySync(t, store, "me")

	// Post propio pero nunca marcado: vino de otra sesion del mismo usuario.
	other := post("pd", "me", time.Now().UTC())
	changed, banner := s.Apply(Event{Type: EventInsert, Post: other})
	if !changed || !banner {
		t.Fatalf("expected changed+banner, got %v/%v", changed, banner)
	}
}

func TestSynchronizerUpdateReplacesInPlace(t *testing.T) {
	store := &mockLister{posts: seedPosts()}
	s := readySync(t, store, "me")

	updated := post("p2", "a2", time.Date(2025, 6, 1, 12, 2, 0, 0, time.UTC))
	updated.Text = "edited"
	changed, banner := s.Apply(Event{Type: EventUpdate, Post: updated})
	if !changed || banner {
		t.Fatalf("expected silent change, got %v/%v", changed, banner)
	}
	if s.Posts()[1].Text != "edited" {
		t.Fatalf("expected updated text")
	}

	unknown := post("px", "a9", time.Now().UTC())
	if changed, _ := s.Apply(Event{Type: EventUpdate, Post: unknown}); changed {
		t.Fatalf("expected update for unknown id ignored")
	}
}

func TestSynchronizerDeleteRemoves(t *testing.T) {
	store := &mockLister{posts: seedPosts()}
	s := readySync(t, store, "me")

	changed, banner := s.Apply(Event{Type: EventDelete, Post: domain.Post{ID: "p2"}})
	if !changed || banner {
		t.Fatalf("expected silent removal, got %v/%v", changed, banner)
	}
	assertOrder(t, s, "p3", "p1")

	if changed, _ := s.Apply(Event{Type: EventDelete, Post: domain.Post{ID: "p2"}}); changed {
		t.Fatalf("expected repeated delete ignored")
	}
}

func TestSynchronizerRefreshFailureKeepsList(t *testing.T) {
	store := &mockLister{posts: seedPosts()}
	s := readySync(t, store, "me")

	store.err = errors.New("network down")
	if err := s.Refresh(context.Background()); err == nil {
		t.Fatalf("expected refresh error")
	}
	if s.State() != StateErrored {
		t.Fatalf("expected Errored after failed refresh, got %v", s.State())
	}
	// La lista previa sigue visible.
	assertOrder(t, s, "p3", "p2", "p1")

	// Un refresh exitoso reemplaza la lista completa y limpia el error.
	store.err = nil
	store.posts = []domain.Post{post("p9", "a1", time.Now().UTC())}
	if err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if s.State() != StateReady || s.Err() != nil {
		t.Fatalf("expected clean Ready state, got %v / %v", s.State(), s.Err())
	}
	assertOrder(t, s, "p9")
}

func TestSynchronizerEventsAppliedWhileErrored(t *testing.T) {
	store := &mockLister{posts: seedPosts()}
	s := readySync(t, store, "me")

	store.err = errors.New("network down")
	_ = s.Refresh(context.Background())

	p4 := post("p4", "a2", time.Now().UTC())
	if changed, _ := s.Apply(Event{Type: EventInsert, Post: p4}); !changed {
		t.Fatalf("expected live events applied over the stale list")
	}
	assertOrder(t, s, "p4", "p3", "p2", "p1")
}

func TestSynchronizerIgnoresEventsBeforeStart(t *testing.T) {
	s := NewSynchronizer(zap.NewNop(), &mockLister{}, "me")
	if changed, banner := s.Apply(Event{Type: EventInsert, Post: post("p1", "a1", time.Now().UTC())}); changed || banner {
		t.Fatalf("expected events ignored before start")
	}
}

func TestSelfPostSetExpiry(t *testing.T) {
	set := newSelfPostSet(20 * time.Millisecond)
	set.Add("p1")
	if !set.Consume("p1") {
		t.Fatalf("expected fresh entry present")
	}
	if set.Consume("p1") {
		t.Fatalf("expected entry consumed exactly once")
	}

	set.Add("p2")
	time.Sleep(40 * time.Millisecond)
	if set.Consume("p2") {
		t.Fatalf("expected entry expired after ttl")
	}
}
