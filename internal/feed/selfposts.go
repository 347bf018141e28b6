package feed

import (
	"sync"
	"time"
)

// selfPostSet recuerda por un rato los IDs de posts creados por este cliente,
// para que el eco del insert por el stream en vivo no dispare el banner de
// "nuevo post". Una entrada muere al expirar su TTL o al consumirse con el
// eco, lo que ocurra primero.
type selfPostSet struct {
	mu  sync.Mutex
	ttl time.Duration
	ids map[string]time.Time
}

func newSelfPostSet(ttl time.Duration) *selfPostSet {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &selfPostSet{
		ttl: ttl,
		ids: make(map[string]time.Time),
	}
}

func (s *selfPostSet) Add(id string) {
	if id == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prune()
	s.ids[id] = time.Now().UTC().Add(s.ttl)
}

// Consume elimina la entrada y reporta si seguia vigente.
func (s *selfPostSet) Consume(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prune()
	_, ok := s.ids[id]
	if ok {
		delete(s.ids, id)
	}
	return ok
}

func (s *selfPostSet) prune() {
	now := time.Now().UTC()
	for id, exp := range s.ids {
		if now.After(exp) {
			delete(s.ids, id)
		}
	}
}
