package report

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrNotFound is returned for unknown or expired report ids.
var ErrNotFound = errors.New("report not found")

// Store keeps generated reports until they expire.
type Store interface {
	Save(ctx context.Context, d Data) error
	Get(ctx context.Context, id string) (Data, error)
}

type memoryEntry struct {
	data      Data
	expiresAt time.Time
}

// MemoryStore is an in-process Store. Expired entries are dropped lazily.
type MemoryStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]memoryEntry
}

// NewMemoryStore keeps reports for ttl; a zero ttl keeps them forever.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]memoryEntry),
	}
}

func (s *MemoryStore) Save(ctx context.Context, d Data) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var expiresAt time.Time
	if s.ttl > 0 {
		expiresAt = s.now().Add(s.ttl)
	}
	s.entries[d.ID] = memoryEntry{data: d, expiresAt: expiresAt}
	s.evictLocked()
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (Data, error) {
	if err := ctx.Err(); err != nil {
		return Data{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return Data{}, ErrNotFound
	}
	if !e.expiresAt.IsZero() && !s.now().Before(e.expiresAt) {
		delete(s.entries, id)
		return Data{}, ErrNotFound
	}
	return e.data, nil
}

// evictLocked drops expired entries so the map does not grow without bound.
func (s *MemoryStore) evictLocked() {
	if s.ttl <= 0 {
		return
	}
	now := s.now()
	for id, e := range s.entries {
		if !now.Before(e.expiresAt) {
			delete(s.entries, id)
		}
	}
}
