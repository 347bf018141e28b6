package feed

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"persona-board/internal/domain"
)

// State es el estado de la vista local del feed.
type State int

const (
	StateUninitialized State = iota
	StateLoading
	StateReady
	StateErrored
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateErrored:
		return "errored"
	default:
		return "uninitialized"
	}
}

// Synchronizer mantiene la vista local ordenada del feed de un cliente:
// un bulk fetch inicial reconciliado con el stream de eventos en vivo.
//
// Los inserts en vivo se anteponen (se asumen los mas nuevos); eso alcanza
// porque los posts son inmutables y se crean en orden. Un refresh manual es
// el camino de recuperacion ante cualquier anomalia de orden o evento perdido.
type Synchronizer struct {
	logger *zap.Logger
	store  Lister
	selfID string

	mu      sync.Mutex
	state   State
	posts   []domain.Post
	lastErr error
	self    *selfPostSet
}

func NewSynchronizer(logger *zap.Logger, store Lister, selfID string) *Synchronizer {
	return &Synchronizer{
		logger: logger,
		store:  store,
		selfID: selfID,
		state:  StateUninitialized,
		self:   newSelfPostSet(10 * time.Second),
	}
}

// Start ejecuta el bulk fetch inicial. Deja el estado en Ready o Errored.
func (s *Synchronizer) Start(ctx context.Context) error {
	s.mu.Lock()
	s.state = StateLoading
	s.mu.Unlock()

	posts, err := s.store.List(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.state = StateErrored
		s.lastErr = err
		return err
	}
	s.posts = posts
	s.state = StateReady
	s.lastErr = nil
	return nil
}

// Refresh re-ejecuta el bulk fetch. En exito reemplaza la lista completa
// (reconcilia eventos perdidos) y limpia el error; en falla conserva la
// lista mostrada y solo registra el error. Nunca deja la UI en blanco por
// un refresh fallido sobre contenido existente.
func (s *Synchronizer) Refresh(ctx context.Context) error {
	posts, err := s.store.List(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.lastErr = err
		s.state = StateErrored
		return err
	}
	s.posts = posts
	s.state = StateReady
	s.lastErr = nil
	return nil
}

// MarkSelfPost registra un post recien creado por este cliente para suprimir
// el banner cuando su eco llegue por el stream.
func (s *Synchronizer) MarkSelfPost(postID string) {
	s.self.Add(postID)
}

// ApplyLocalInsert antepone de inmediato un post creado localmente
// (visibilidad propia instantanea) y lo marca como propio. El eco del server
// se reconcilia por ID en Apply, nunca se aplica dos veces.
func (s *Synchronizer) ApplyLocalInsert(post domain.Post) {
	s.self.Add(post.ID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.indexOf(post.ID) >= 0 {
		return
	}
	s.posts = append([]domain.Post{post}, s.posts...)
}

// Apply incorpora un evento en vivo a la vista. Devuelve si la vista cambio
// y si corresponde levantar el banner de "nuevo post". El banner se suprime
// para el eco de un post propio recien creado; el post igual queda en la
// lista exactamente una vez.
func (s *Synchronizer) Apply(ev Event) (changed bool, banner bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateReady && s.state != StateErrored {
		return false, false
	}

	switch ev.Type {
	case EventInsert:
		suppressed := ev.Post.AuthorID == s.selfID && s.self.Consume(ev.Post.ID)
		if s.indexOf(ev.Post.ID) >= 0 {
			// Eco de un insert optimista ya aplicado.
			return false, false
		}
		s.posts = append([]domain.Post{ev.Post}, s.posts...)
		return true, !suppressed

	case EventUpdate:
		if i := s.indexOf(ev.Post.ID); i >= 0 {
			s.posts[i] = ev.Post
			return true, false
		}
		return false, false

	case EventDelete:
		if i := s.indexOf(ev.Post.ID); i >= 0 {
			s.posts = append(s.posts[:i], s.posts[i+1:]...)
			return true, false
		}
		return false, false
	}

	s.logger.Warn("unknown feed event type", zap.String("type", string(ev.Type)))
	return false, false
}

// Posts devuelve una copia de la vista actual, el mas reciente primero.
func (s *Synchronizer) Posts() []domain.Post {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Post, len(s.posts))
	copy(out, s.posts)
	return out
}

func (s *Synchronizer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Synchronizer) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// indexOf requiere s.mu tomado.
func (s *Synchronizer) indexOf(postID string) int {
	for i, p := range s.posts {
		if p.ID == postID {
			return i
		}
	}
	return -1
}
