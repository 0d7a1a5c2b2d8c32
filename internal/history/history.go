// Package history records chat interactions so recent queries can be listed.
package history

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultLimit is used when Recent is called with a non-positive limit.
const DefaultLimit = 20

// MaxLimit bounds how many entries a single Recent call returns.
const MaxLimit = 100

// Entry is one interpreted chat message.
type Entry struct {
	ID          string    `json:"id"`
	Message     string    `json:"message"`
	Substance   string    `json:"substance"`
	Endpoints   []string  `json:"endpoints"`
	Valid       bool      `json:"valid"`
	ResultCount int       `json:"result_count"`
	CreatedAt   time.Time `json:"created_at"`
}

// Recorder persists chat interactions.
type Recorder interface {
	Record(ctx context.Context, entry Entry) error
	Recent(ctx context.Context, limit int) ([]Entry, error)
}

// normalize fills the ID and timestamp when the caller left them empty.
func normalize(entry Entry, now time.Time) Entry {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	if entry.Endpoints == nil {
		entry.Endpoints = []string{}
	}
	return entry
}

// ClampLimit maps a requested limit into [1, MaxLimit].
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// MemoryRecorder keeps the most recent entries in a fixed-size ring.
type MemoryRecorder struct {
	mu      sync.Mutex
	entries []Entry
	next    int
	full    bool
	now     func() time.Time
}

// NewMemoryRecorder creates a recorder holding at most capacity entries.
func NewMemoryRecorder(capacity int) *MemoryRecorder {
	if capacity <= 0 {
		capacity = MaxLimit
	}
	return &MemoryRecorder{
		entries: make([]Entry, capacity),
		now:     time.Now,
	}
}

// Record stores an entry, overwriting the oldest when the ring is full.
func (r *MemoryRecorder) Record(ctx context.Context, entry Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries[r.next] = normalize(entry, r.now())
	r.next = (r.next + 1) % len(r.entries)
	if r.next == 0 {
		r.full = true
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (r *MemoryRecorder) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	limit = ClampLimit(limit)

	r.mu.Lock()
	defer r.mu.Unlock()

	size := r.next
	if r.full {
		size = len(r.entries)
	}
	if limit > size {
		limit = size
	}

	out := make([]Entry, 0, limit)
	for i := 1; i <= limit; i++ {
		idx := (r.next - i + len(r.entries)) % len(r.entries)
		out = append(out, r.entries[idx])
	}
	return out, nil
}
