package session

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps sessions in a map with lazy expiry.
type MemoryStore struct {
	ttl time.Duration

	mu       sync.Mutex
	sessions map[string]memEntry

	now func() time.Time
}

type memEntry struct {
	session   Session
	expiresAt time.Time
}

// NewMemoryStore builds an in-process store with the given TTL.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		ttl:      ttl,
		sessions: make(map[string]memEntry),
		now:      time.Now,
	}
}

var _ Store = (*MemoryStore)(nil)

func (s *MemoryStore) Get(ctx context.Context, phone string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.sessions[phone]
	if !ok || !s.now().Before(e.expiresAt) {
		delete(s.sessions, phone)
		return nil, ErrNotFound
	}
	out := e.session
	return &out, nil
}

func (s *MemoryStore) Save(ctx context.Context, sess *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.PhoneNumber] = memEntry{
		session:   *sess,
		expiresAt: s.now().Add(s.ttl),
	}
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, phone string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, phone)
	return nil
}

// Run sweeps expired sessions on a fixed interval until ctx ends.
func (s *MemoryStore) Run(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			now := s.now()
			s.mu.Lock()
			for phone, e := range s.sessions {
				if !now.Before(e.expiresAt) {
					delete(s.sessions, phone)
				}
			}
			s.mu.Unlock()
		}
	}
}
