package draft

import (
	"context"
	"sync"
)

// MemoryStore is the in-process Store used when Redis is not configured.
type MemoryStore struct {
	mu     sync.RWMutex
	drafts map[string]Draft
}

func NewMemory() *MemoryStore {
	return &MemoryStore{drafts: make(map[string]Draft)}
}

func (s *MemoryStore) Save(_ context.Context, userID string, d Draft) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drafts[userID] = clone(d)
	return nil
}

func (s *MemoryStore) Load(_ context.Context, userID string) (*Draft, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.drafts[userID]
	if !ok {
		return nil, nil
	}
	out := clone(d)
	return &out, nil
}

func (s *MemoryStore) Discard(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.drafts, userID)
	return nil
}

func clone(d Draft) Draft {
	out := d
	out.Pavilions = make([]Pavilion, len(d.Pavilions))
	for i, p := range d.Pavilions {
		out.Pavilions[i] = Pavilion{Name: p.Name, Cells: append([]Cell(nil), p.Cells...)}
	}
	return out
}
